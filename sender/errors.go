package sender

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected is the cause of a ForwardError when the channel refused the
	// message.
	ErrRejected = errors.New("bindflow: message rejected by channel")
	// ErrNilSequence is reported by Send when called without a sequence.
	ErrNilSequence = errors.New("bindflow: nil sequence")
)

// ForwardError reports an item that could not be forwarded. It is logged and
// counted; the subscription carries on with the next item.
type ForwardError struct {
	Destination string
	MessageUUID string
	Err         error
}

func (e *ForwardError) Error() string {
	if e.MessageUUID == "" {
		return fmt.Sprintf("bindflow: forward to %s: %v", e.Destination, e.Err)
	}
	return fmt.Sprintf("bindflow: forward message %s to %s: %v", e.MessageUUID, e.Destination, e.Err)
}

func (e *ForwardError) Unwrap() error { return e.Err }
