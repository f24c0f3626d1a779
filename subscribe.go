package rpccore

import (
	"github.com/shuai132/rpc-core/request"
	"github.com/shuai132/rpc-core/wire"
)

// Subscribe registers a typed command handler: spec.md §4.5's
// subscribe(cmd, f: P→R). Incoming Data is decoded as P through codec
// (request.DefaultCodec if nil); f's result is encoded as R into a reply
// whose type is Response and whose seq mirrors the request. A decode
// failure on the inbound P returns no reply, matching spec.md's "decode
// failure returns no reply".
func Subscribe[P any, R any](r *Rpc, cmd string, codec request.Codec, f func(P) R) {
	if codec == nil {
		codec = request.DefaultCodec
	}
	r.disp.SubscribeCmd(cmd, func(msg *wire.Message) *wire.Message {
		var p P
		if err := codec.Unmarshal(msg.Data, &p); err != nil {
			return nil
		}
		resp := f(p)
		b, err := codec.Marshal(resp)
		if err != nil {
			return nil
		}
		return &wire.Message{Data: b}
	})
}
