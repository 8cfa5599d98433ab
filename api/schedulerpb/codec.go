package schedulerpb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is advertised on the wire as the grpc content-subtype:
// "application/grpc+json". Registering it lets both the scheduler and
// worker binaries exchange the plain Go structs in this package over a
// real grpc.Server/grpc.ClientConn without protoc-generated bindings.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
