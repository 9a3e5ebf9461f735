package channel

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	errspkg "github.com/drblury/bindflow/internal/runtime/errors"
	"github.com/drblury/bindflow/internal/runtime/ids"
	"github.com/drblury/bindflow/internal/runtime/jsoncodec"
)

// Metadata keys set on messages built by this package.
const (
	MetadataContentType = "content_type"
	MetadataSchema      = "event_message_schema"
)

const (
	contentTypeBytes = "application/octet-stream"
	contentTypeText  = "text/plain"
)

// NewMessage builds a message with a fresh ULID identifier.
func NewMessage(payload []byte) *message.Message {
	return message.NewMessage(ids.NewMessageID(), payload)
}

// ToMessage converts v into a message. Messages pass through unchanged, byte
// slices and strings become the payload, proto messages are encoded with
// protojson and everything else is JSON encoded.
func ToMessage(v any) (*message.Message, error) {
	switch p := v.(type) {
	case nil:
		return nil, errspkg.ErrPayloadRequired
	case *message.Message:
		if p == nil {
			return nil, errspkg.ErrPayloadRequired
		}
		return p, nil
	case []byte:
		msg := NewMessage(p)
		msg.Metadata.Set(MetadataContentType, contentTypeBytes)
		return msg, nil
	case string:
		msg := NewMessage([]byte(p))
		msg.Metadata.Set(MetadataContentType, contentTypeText)
		return msg, nil
	case proto.Message:
		payload, err := protojson.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal proto payload: %w", err)
		}
		msg := NewMessage(payload)
		msg.Metadata.Set(MetadataContentType, jsoncodec.ContentType)
		msg.Metadata.Set(MetadataSchema, string(proto.MessageName(p)))
		return msg, nil
	default:
		payload, err := jsoncodec.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal json payload: %w", err)
		}
		msg := NewMessage(payload)
		msg.Metadata.Set(MetadataContentType, jsoncodec.ContentType)
		return msg, nil
	}
}
