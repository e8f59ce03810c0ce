package vault

import "strconv"

// KeyRef locates a secret: the value of Key in the key-value store at Path.
// An empty Path means the backend's default path.
type KeyRef struct {
	Path string
	Key  string
}

// CacheKey identifies the secret by both path and key, so equal key names
// under different paths never share a cache entry.
func (r KeyRef) CacheKey() string {
	return strconv.Itoa(len(r.Path)) + ":" + r.Path + ":" + r.Key
}

func (r KeyRef) String() string { return r.Path + "#" + r.Key }
