// Package rpcsurface registers the node's gRPC services by hand, without a
// protoc step: each service is a grpc.ServiceDesc built directly in Go,
// and messages travel the wire JSON-encoded via a custom encoding.Codec.
// This keeps the real gRPC dependency (framing, HTTP/2, deadlines,
// interceptors) while avoiding a .proto/codegen toolchain for a small,
// evolving message set.
package rpcsurface

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is registered as the name gRPC clients/servers negotiate via
// the "grpc+json" content-subtype.
const CodecName = "json"

// jsonCodec implements encoding.Codec over encoding/json.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpcsurface: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
