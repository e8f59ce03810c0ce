package confita

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable marks a source that cannot be read at all
	// (missing file, unreachable secret store). Never masked by backends.
	ErrSourceUnavailable = errors.New("confita: source unavailable")

	// ErrUnsupportedType is returned when a lookup asks for a Type outside
	// String, Bool, Int and Float.
	ErrUnsupportedType = errors.New("confita: unsupported type")

	// ErrTypeMismatch is returned when a non-string raw value does not already
	// have the requested type. Conversion across non-string types is never attempted.
	ErrTypeMismatch = errors.New("confita: type mismatch")

	// ErrConversion is returned when a string cannot be parsed as the requested type.
	ErrConversion = errors.New("confita: conversion failed")
)

// CastError describes a failed coercion of Value into Type.
type CastError struct {
	Value any
	Type  Type
	Err   error // one of ErrUnsupportedType, ErrTypeMismatch, ErrConversion
	Cause error // parser error, if any
}

func (e *CastError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUnsupportedType):
		return fmt.Sprintf("confita: cannot cast to %s: unsupported type", e.Type)
	case e.Cause != nil:
		return fmt.Sprintf("confita: cannot cast %q to %s: %v", fmt.Sprint(e.Value), e.Type, e.Cause)
	default:
		return fmt.Sprintf("confita: cannot cast %T to %s: %v", e.Value, e.Type, e.Err)
	}
}

func (e *CastError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// BackendError wraps an error returned by a backend during resolution.
type BackendError struct {
	Backend string
	Key     string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("confita: backend %s: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("confita: backend %s: key %q: %v", e.Backend, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
