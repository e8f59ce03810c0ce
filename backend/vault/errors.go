package vault

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/confita"
)

var (
	// ErrAgentNotReady is returned when the store did not report healthy
	// within the readiness timeout.
	ErrAgentNotReady = fmt.Errorf("vault: agent not ready: %w", confita.ErrSourceUnavailable)

	// ErrBackendUnavailable marks a failed read of the store.
	ErrBackendUnavailable = fmt.Errorf("vault: backend unavailable: %w", confita.ErrSourceUnavailable)

	ErrNilLogger = errors.New("vault: logger must not be nil")

	// ErrNoPath is returned by lookups that name no path when the backend
	// has no default path.
	ErrNoPath = errors.New("vault: no path given and no default path configured")
)

// ReadError is a failed read of the key-value store at Path.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("vault: read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() []error { return []error{ErrBackendUnavailable, e.Err} }
