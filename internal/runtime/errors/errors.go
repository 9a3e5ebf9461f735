package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrNameRequired    = sterrors.New("bindflow: destination name is required")
	ErrChannelRequired = sterrors.New("bindflow: channel is required")
	ErrBinderRequired  = sterrors.New("bindflow: binder is required")
	ErrRegistryNeeded  = sterrors.New("bindflow: binder registry is required")
	ErrConfigRequired  = sterrors.New("bindflow: configuration is required")
	ErrPayloadRequired = sterrors.New("bindflow: message payload is required")
	ErrServiceRequired = sterrors.New("bindflow: service is required")
	ErrHandlerRequired = sterrors.New("bindflow: handler is required")
)

// ConfigValidationError marks errors produced while validating a Config so
// callers can tell misconfiguration apart from runtime failures.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("bindflow: invalid configuration: %v", e.Err)
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError wraps err, returning nil when there is nothing to report.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
