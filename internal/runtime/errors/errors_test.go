package errors

import (
	"errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrNameRequired", ErrNameRequired, "bindflow: destination name is required"},
		{"ErrChannelRequired", ErrChannelRequired, "bindflow: channel is required"},
		{"ErrBinderRequired", ErrBinderRequired, "bindflow: binder is required"},
		{"ErrRegistryNeeded", ErrRegistryNeeded, "bindflow: binder registry is required"},
		{"ErrConfigRequired", ErrConfigRequired, "bindflow: configuration is required"},
		{"ErrPayloadRequired", ErrPayloadRequired, "bindflow: message payload is required"},
		{"ErrServiceRequired", ErrServiceRequired, "bindflow: service is required"},
		{"ErrHandlerRequired", ErrHandlerRequired, "bindflow: handler is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestConfigValidationError(t *testing.T) {
	inner := errors.New("unknown default binder")
	err := ConfigValidationError{Err: inner}

	want := "bindflow: invalid configuration: unknown default binder"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if unwrapped := err.Unwrap(); unwrapped != inner {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, inner)
	}
}

func TestNewConfigValidationError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if err := NewConfigValidationError(nil); err != nil {
			t.Errorf("NewConfigValidationError(nil) = %v, want nil", err)
		}
	})

	t.Run("errors.Is and errors.As see through the wrapper", func(t *testing.T) {
		inner := errors.New("bad config")
		err := NewConfigValidationError(inner)

		var cfgErr ConfigValidationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigValidationError, got %T", err)
		}
		if !errors.Is(err, inner) {
			t.Error("errors.Is should match wrapped error")
		}
	})
}
