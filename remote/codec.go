package remote

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// codecName is the content-subtype the GraphService speaks. Clients opt in
// with grpc.CallContentSubtype(codecName); the server resolves it from the
// registered codecs automatically.
const codecName = "agentgraph-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec marshals the hand-written wire types as JSON, falling back to
// protobuf for real proto messages so interceptors that exchange proto
// types keep working.
type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return nil
}
