// Package confita resolves configuration keys over an ordered list of
// read-only key-value backends. Later backends override earlier ones: the
// final value of a key is the last defined value found while scanning the
// list, and an empty string counts as defined.
//
// Components:
//   - Backend: read capability implemented by backend/dict, backend/env,
//     backend/file, backend/inline and backend/vault.
//   - Cast: coercion of raw values into String, Bool, Int or Float.
//   - Confita: the resolver (Get, GetStruct) with optional case-insensitive keys.
//
// Usage:
//
//	c, _ := confita.New(confita.Config{
//	    Backends: []confita.Backend{vaultBackend, fileBackend, env.New()},
//	    Logger:   zaplog.New(logger),
//	})
//	port, ok, err := c.GetInt(ctx, "PORT", confita.Options{})
//
// The vault backend can keep secrets in a bounded TTL cache (see kvcache),
// stored in ristretto, bigcache or Redis through provider.Provider.
package confita
