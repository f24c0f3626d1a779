package request

import "encoding/json"

// Codec serializes and deserializes user-level payloads carried inside a
// Message's opaque Data field. spec.md treats payload encoding as out of
// scope for the core and delegates it to an injected Codec; the core only
// ever moves raw bytes.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec is the default Codec, used unless a caller installs another.
// JSON is itself called out by spec.md §1 as an example of an out-of-scope,
// user-level encoding — this is the ambient default, not part of the core.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// DefaultCodec is used by the generic Msg/RspDecode helpers when none is supplied.
var DefaultCodec Codec = JSONCodec{}
