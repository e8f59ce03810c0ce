package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/unkn0wn-root/confita"
	"github.com/unkn0wn-root/confita/backend/env"
	"github.com/unkn0wn-root/confita/backend/file"
	"github.com/unkn0wn-root/confita/backend/inline"
	"github.com/unkn0wn-root/confita/backend/vault"
	"github.com/unkn0wn-root/confita/kvcache"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv); err != nil {
		fmt.Fprintln(os.Stderr, "confita:", err)
		os.Exit(1)
	}
}

type sources struct {
	vaultAddr     string
	vaultPath     string
	vaultTimeout  time.Duration
	vaultCacheTTL time.Duration
	cacheStore    string
	cacheCodec    string
	cacheMaxValue int
	cacheStats    bool
	redisAddr     string

	files           []string
	inlines         []string
	useEnv          bool
	caseInsensitive bool
	logLevel        string
	logBackend      string
}

type cli struct {
	app *kingpin.Application
	src sources

	get     *kingpin.CmdClause
	getKey  string
	getType string
	getPath string

	strct       *kingpin.CmdClause
	strctFields []string
	strctPath   string
}

func newCLI() *cli {
	c := &cli{app: kingpin.New("confita", "Resolve configuration keys over layered sources")}
	c.app.Terminate(nil)

	c.app.Flag("vault-addr", "Vault agent address; enables the vault source").StringVar(&c.src.vaultAddr)
	c.app.Flag("vault-path", "Default secret path in vault").StringVar(&c.src.vaultPath)
	c.app.Flag("vault-timeout", "How long to wait for the vault agent to become ready").
		Default("30s").DurationVar(&c.src.vaultTimeout)
	c.app.Flag("vault-cache-ttl", "Cache vault secrets for this long (0 disables the cache)").
		Default("0s").DurationVar(&c.src.vaultCacheTTL)
	c.app.Flag("cache-store", "Vault cache store").
		Default("ristretto").EnumVar(&c.src.cacheStore, "ristretto", "bigcache", "redis")
	c.app.Flag("cache-codec", "Encoding of cached vault values").
		Default("msgpack").EnumVar(&c.src.cacheCodec, "msgpack", "cbor", "json", "protobuf")
	c.app.Flag("cache-max-value", "Refuse cached values larger than this many bytes (0 = no limit)").
		Default("1048576").IntVar(&c.src.cacheMaxValue)
	c.app.Flag("cache-stats", "Print vault cache counters to stderr in Prometheus text format").
		BoolVar(&c.src.cacheStats)
	c.app.Flag("redis-addr", "Redis address for --cache-store=redis").StringVar(&c.src.redisAddr)
	c.app.Flag("file", "JSON or YAML file source; repeatable, later files win").StringsVar(&c.src.files)
	c.app.Flag("inline", "Inline JSON or YAML source; repeatable, later strings win").StringsVar(&c.src.inlines)
	c.app.Flag("env", "Resolve from the process environment (highest precedence)").
		Default("true").BoolVar(&c.src.useEnv)
	c.app.Flag("case-insensitive", "Also try upper- and lower-cased keys").BoolVar(&c.src.caseInsensitive)
	c.app.Flag("log-level", "Log level: debug, info, warn or error").Default("warn").StringVar(&c.src.logLevel)
	c.app.Flag("log-backend", "Logging library for diagnostics on stderr").
		Default("zap").EnumVar(&c.src.logBackend, "zap", "logrus", "slog")

	c.get = c.app.Command("get", "Resolve a single key")
	c.get.Arg("key", "Key to resolve").Required().StringVar(&c.getKey)
	c.get.Flag("type", "Target type").Default("string").EnumVar(&c.getType, "string", "bool", "int", "float")
	c.get.Flag("path", "Vault path override").StringVar(&c.getPath)

	c.strct = c.app.Command("struct", "Resolve several keys at once")
	c.strct.Arg("fields", "KEY=TYPE pairs; TYPE defaults to string").Required().StringsVar(&c.strctFields)
	c.strct.Flag("path", "Vault path override").StringVar(&c.strctPath)
	return c
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookup env.LookupFunc) error {
	c := newCLI()
	cmd, err := c.app.Parse(args)
	if err != nil {
		return err
	}

	log, slogger, flush, err := newLogger(c.src, stderr)
	if err != nil {
		return err
	}
	defer flush()

	events, err := newCacheEvents(c.src.cacheStats, slogger)
	if err != nil {
		return err
	}
	resolver, closeAll, err := buildResolver(ctx, c.src, log, events.Hooks(), lookup)
	if err != nil {
		events.Close()
		return err
	}
	out, err := c.execute(ctx, cmd, resolver, log)
	closeAll()
	events.Close()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	return events.Report(stderr)
}

func (c *cli) execute(ctx context.Context, cmd string, resolver *confita.Confita, log confita.Logger) (any, error) {
	switch cmd {
	case c.get.FullCommand():
		t, err := confita.ParseType(c.getType)
		if err != nil {
			return nil, err
		}
		v, found, err := resolver.Get(ctx, c.getKey, confita.Options{Type: t, Path: c.getPath})
		if err != nil {
			return nil, err
		}
		log.Debug("resolved key", confita.Fields{"key": c.getKey, "found": found})
		return map[string]any{"key": c.getKey, "found": found, "value": v}, nil
	case c.strct.FullCommand():
		schema, err := parseSchema(c.strctFields)
		if err != nil {
			return nil, err
		}
		return resolver.GetStruct(ctx, schema, confita.Options{Path: c.strctPath})
	}
	return nil, fmt.Errorf("unknown command %q", cmd)
}

// buildResolver stacks the sources from lowest to highest precedence:
// vault, files, inline strings, then the environment.
func buildResolver(ctx context.Context, src sources, log confita.Logger, hooks kvcache.Hooks, lookup env.LookupFunc) (*confita.Confita, func(), error) {
	var (
		backends []confita.Backend
		closers  []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if src.vaultAddr != "" {
		cache, err := vaultCache(ctx, src, hooks)
		if err != nil {
			return nil, nil, err
		}
		vb, err := vault.New(vault.Config{
			Logger:           log,
			Address:          src.vaultAddr,
			DefaultPath:      src.vaultPath,
			ReadinessTimeout: src.vaultTimeout,
			Cache:            cache,
		})
		if err != nil {
			releaseCache(ctx, cache)
			return nil, nil, err
		}
		closers = append(closers, func() { _ = vb.Close(context.Background()) })
		backends = append(backends, vb)
	}

	for _, path := range src.files {
		fb, err := file.New(path, file.WithLogger(log))
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = fb.Close() })
		backends = append(backends, fb)
	}

	for _, s := range src.inlines {
		backends = append(backends, inline.New(s))
	}

	if src.useEnv {
		backends = append(backends, env.New(env.WithLookup(lookup)))
	}

	resolver, err := confita.New(confita.Config{
		Backends:        backends,
		CaseInsensitive: src.caseInsensitive,
		Logger:          log,
	})
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return resolver, closeAll, nil
}

func parseSchema(fields []string) (confita.Schema, error) {
	schema := make(confita.Schema, len(fields))
	for _, f := range fields {
		key, typ, _ := strings.Cut(f, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid field %q: empty key", f)
		}
		t, err := confita.ParseType(typ)
		if err != nil {
			return nil, fmt.Errorf("invalid field %q: %w", f, err)
		}
		schema[key] = t
	}
	return schema, nil
}
