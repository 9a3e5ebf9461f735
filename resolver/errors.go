package resolver

import (
	"errors"
	"fmt"

	errspkg "github.com/drblury/bindflow/internal/runtime/errors"
)

var (
	// ErrEmptyName is returned when Resolve is called without a destination.
	ErrEmptyName = errspkg.ErrNameRequired
	// ErrNotBound is returned by Unbind for names the resolver never bound.
	ErrNotBound = errors.New("bindflow: destination not bound")
	// ErrResolverClosed is returned once Close has been called.
	ErrResolverClosed = errors.New("bindflow: resolver closed")
)

// ResolutionError reports a destination that could not be resolved. Err is
// one of the binder errors (AmbiguousBinderError, UnknownBinderError,
// BindingError), a context error or one of the resolver sentinels.
type ResolutionError struct {
	Destination string
	Err         error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("bindflow: resolve destination %q: %v", e.Destination, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
