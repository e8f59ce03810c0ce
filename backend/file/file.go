// Package file provides a backend over a JSON or YAML file.
//
// The file is parsed once at construction: a JSON object first, then a YAML
// mapping. Content that is neither yields an empty mapping, so a malformed
// file makes every key undefined rather than failing lookups. Only a missing
// file is an error.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/unkn0wn-root/confita"
	"github.com/unkn0wn-root/confita/internal/parse"
)

// Backend serves keys from a parsed file.
type Backend struct {
	path string

	mu sync.RWMutex
	kv map[string]any

	log       confita.Logger
	watch     bool
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

var _ confita.Backend = (*Backend)(nil)

// Option configures a file backend.
type Option func(*Backend)

// WithWatch reloads the mapping whenever the file is written or re-created.
// Reload failures and watcher errors are reported to log.
func WithWatch(log confita.Logger) Option {
	return func(b *Backend) {
		b.watch = true
		if log != nil {
			b.log = log
		}
	}
}

// WithLogger sets the logger without enabling the watcher.
func WithLogger(log confita.Logger) Option {
	return func(b *Backend) {
		if log != nil {
			b.log = log
		}
	}
}

// New stats and parses path. A missing file returns an error matching both
// confita.ErrSourceUnavailable and fs.ErrNotExist.
func New(path string, opts ...Option) (*Backend, error) {
	b := &Backend{path: path, log: confita.NopLogger{}}
	for _, opt := range opts {
		opt(b)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", path, errors.Join(confita.ErrSourceUnavailable, err))
	}
	if info.IsDir() {
		return nil, fmt.Errorf("file %s: is a directory: %w", path, confita.ErrSourceUnavailable)
	}
	if err := b.Reload(); err != nil {
		return nil, err
	}

	if b.watch {
		if err := b.startWatch(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Reload re-reads the file. Unparseable content replaces the mapping with an
// empty one; an unreadable file is an error and keeps the previous mapping.
func (b *Backend) Reload() error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("file %s: %w", b.path, errors.Join(confita.ErrSourceUnavailable, err))
	}
	kv, perr := parse.Mapping(data)
	if perr != nil {
		b.log.Warn("file not parseable, using empty mapping", confita.Fields{"path": b.path, "err": perr})
		kv = map[string]any{}
	}
	b.mu.Lock()
	b.kv = kv
	b.mu.Unlock()
	return nil
}

// Path returns the file path the backend reads.
func (b *Backend) Path() string { return b.path }

func (b *Backend) Name() string { return "file" }

func (b *Backend) Get(_ context.Context, key string, opts confita.Options) (any, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return confita.Lookup(b.kv, key, opts.Type)
}

func (b *Backend) GetStruct(ctx context.Context, schema confita.Schema, opts confita.Options) (map[string]any, error) {
	return confita.StructFrom(ctx, b, schema, opts)
}

// Close stops the watcher, if any. It is safe to call more than once.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.watcher == nil {
			return
		}
		close(b.stopCh)
		err = b.watcher.Close()
		<-b.doneCh
	})
	return err
}

// startWatch watches the parent directory so editors that replace the file
// through a rename are still observed.
func (b *Backend) startWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("file %s: create watcher: %w", b.path, err)
	}
	if err := w.Add(filepath.Dir(b.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("file %s: watch: %w", b.path, err)
	}
	b.watcher = w
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	go b.watchLoop()
	b.log.Info("watching file", confita.Fields{"path": b.path})
	return nil
}

func (b *Backend) watchLoop() {
	defer close(b.doneCh)
	target := filepath.Clean(b.path)
	for {
		select {
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			b.log.Debug("file changed, reloading", confita.Fields{"path": b.path, "op": ev.Op.String()})
			if err := b.Reload(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				b.log.Error("file reload failed", confita.Fields{"path": b.path, "err": err})
			}
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			b.log.Error("file watcher error", confita.Fields{"path": b.path, "err": err})
		case <-b.stopCh:
			return
		}
	}
}
