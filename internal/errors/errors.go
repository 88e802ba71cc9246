// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so that the CLI can decide how to present a failure
// (retry affordance, re-login hint, config fix) without string matching.
//
// The package supports wrapping underlying errors while maintaining error kind information.
// Wrapped errors stay reachable through errors.Is and errors.As.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// StorageUnavailable indicates the durable key-value medium could not be read or written.
	StorageUnavailable Kind = "storage_unavailable"
	// InvalidInput indicates a caller passed an unusable argument.
	InvalidInput Kind = "invalid_input"
	// Unauthorized indicates the backend rejected the credential.
	Unauthorized Kind = "unauthorized"
	// RefreshFailed indicates a silent token refresh did not produce a new token.
	RefreshFailed Kind = "refresh_failed"
	// ConfigInvalid indicates the configuration file or environment is unusable.
	ConfigInvalid Kind = "config_invalid"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
