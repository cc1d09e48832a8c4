package nodeapi

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is registered with grpc's encoding package so connections
// created with grpc.CallContentSubtype(codecName) use it in place of the
// default proto codec — there is no generated proto.Message here, only the
// hand-rolled wireMessage types in messages.go.
const codecName = "rawpb"

type rawPBCodec struct{}

func (rawPBCodec) Name() string { return codecName }

func (rawPBCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("nodeapi: %T does not implement wireMessage", v)
	}
	return m.Marshal(), nil
}

func (rawPBCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("nodeapi: %T does not implement wireMessage", v)
	}
	return m.Unmarshal(data)
}

func init() {
	encoding.RegisterCodec(rawPBCodec{})
}
