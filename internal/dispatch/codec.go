package dispatch

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// codecName is the codec name advertised to the gRPC transport.
const codecName = "proto"

// rawCodec passes Frame payloads through without marshaling so the
// dispatcher can carry pre-serialized authorization messages. Non-Frame
// values fall back to proto marshaling.
type rawCodec struct{}

// Frame holds raw bytes for pass-through transport.
type Frame struct {
	payload []byte
}

// NewFrame creates a new Frame with the given payload.
func NewFrame(payload []byte) *Frame {
	return &Frame{payload: payload}
}

// Payload returns the frame payload.
func (f *Frame) Payload() []byte {
	return f.payload
}

// Marshal returns the payload bytes.
func (c rawCodec) Marshal(v interface{}) ([]byte, error) {
	switch m := v.(type) {
	case *Frame:
		return m.payload, nil
	case proto.Message:
		return proto.Marshal(m)
	default:
		return nil, fmt.Errorf("cannot marshal %T", v)
	}
}

// Unmarshal stores the data in a Frame.
func (c rawCodec) Unmarshal(data []byte, v interface{}) error {
	switch m := v.(type) {
	case *Frame:
		m.payload = data
		return nil
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return fmt.Errorf("cannot unmarshal into %T", v)
	}
}

// Name returns the codec name.
func (c rawCodec) Name() string {
	return codecName
}
