package request

// Msg encodes v with codec (DefaultCodec if nil) and sets it as r's outbound
// payload, mirroring the source's generic msg(T) builder method. Go methods
// cannot carry their own type parameters, so this is a free function rather
// than a method on *Request.
func Msg[T any](r *Request, v T, codec Codec) *Request {
	if codec == nil {
		codec = DefaultCodec
	}
	b, err := codec.Marshal(v)
	if err != nil {
		// Marshal failures here are a caller programming error (an
		// unencodable Go value), not a wire-level concern; surface it
		// as an empty payload so Call() still runs its full state
		// machine rather than panicking mid-build.
		b = nil
	}
	return r.Data(b)
}

// RspDecode attaches a typed response callback: it decodes the response's
// raw Data through codec (DefaultCodec if nil) into a P and invokes cb, or
// finishes with RspSerializeError on a decode failure, matching spec.md
// §4.4's described codec-failure path.
func RspDecode[P any](r *Request, codec Codec, cb func(P)) *Request {
	if codec == nil {
		codec = DefaultCodec
	}
	return r.RspRaw(func(data []byte) bool {
		var v P
		if err := codec.Unmarshal(data, &v); err != nil {
			return false
		}
		cb(v)
		return true
	})
}
