package binder

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBinderClosed is returned when binding on a closed Binder.
	ErrBinderClosed = errors.New("bindflow: binder closed")
	// ErrNilChannel is returned when binding a nil channel.
	ErrNilChannel = errors.New("bindflow: channel is nil")
)

// BindingError reports a failed bind.
type BindingError struct {
	Destination string
	Role        Role
	Cause       error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("bindflow: failed to bind %s %q: %v", e.Role, e.Destination, e.Cause)
}

func (e *BindingError) Unwrap() error { return e.Cause }

// NewBindingError wraps cause unless it already is a BindingError.
func NewBindingError(destination string, role Role, cause error) error {
	var be *BindingError
	if errors.As(cause, &be) {
		return cause
	}
	return &BindingError{Destination: destination, Role: role, Cause: cause}
}

// AmbiguousBinderError is returned when no configuration name was given,
// several binders are registered and none is the default.
type AmbiguousBinderError struct {
	Candidates []string
}

func (e *AmbiguousBinderError) Error() string {
	return fmt.Sprintf("bindflow: several binders available (%s) and no default configured", strings.Join(e.Candidates, ", "))
}

// UnknownBinderError is returned when no binder is registered under Name.
type UnknownBinderError struct {
	Name       string
	Registered []string
}

func (e *UnknownBinderError) Error() string {
	if e.Name == "" {
		return "bindflow: no binder registered"
	}
	return fmt.Sprintf("bindflow: unknown binder %q (registered: %v)", e.Name, e.Registered)
}
