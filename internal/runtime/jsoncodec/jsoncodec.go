// Package jsoncodec encodes message payloads that are neither raw bytes nor
// protobuf messages.
package jsoncodec

import "github.com/bytedance/sonic"

// ContentType is the content type recorded on messages encoded by this package.
const ContentType = "application/json"

var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}
