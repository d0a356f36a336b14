// Package apperr holds the error taxonomy shared by the signal pipeline.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrUnauthenticated indicates the call carried no actor identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrConfiguration indicates a required identifier or setting is missing.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransientIO indicates a persistence or scoring call failed or timed out.
	ErrTransientIO = errors.New("transient io failure")
	// ErrRefreshFailed is returned alongside a previously cached result that could not be recomputed.
	ErrRefreshFailed = errors.New("could not refresh recommendations")
	// ErrNotHydrated indicates preferences for the session are not loaded yet.
	ErrNotHydrated = errors.New("preferences not hydrated")
)

// TransientError wraps an I/O failure with the operation that produced it.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransientIO) match any TransientError.
func (e *TransientError) Is(target error) bool {
	return target == ErrTransientIO
}

// Transient wraps err as a TransientError. Returns nil for a nil err.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// Configuration returns an ErrConfiguration describing what is missing.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// IsTransient reports whether err is worth a retry: timeouts, network errors and TransientError.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrUnauthenticated) {
		return false
	}
	if errors.Is(err, ErrTransientIO) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
