// Package interceptor provides cross-cutting wrappers (logging, auth,
// tracing, rate limiting) around command dispatch, adapted from the
// teacher's unary interceptor shape. rpc-core has no streaming RPCs and
// addresses commands by a flat name rather than a package/service/method
// triple, so the streaming variants and the Metadata-bearing Info fields
// are dropped; everything else keeps the chain-of-responsibility shape.
package interceptor

import (
	"github.com/gostdlib/base/context"
)

// ServerInfo carries the command name to a server interceptor.
type ServerInfo struct {
	Cmd string
}

// Handler is the next step a server interceptor may call.
type Handler func(ctx context.Context, data []byte) ([]byte, error)

// ServerInterceptor wraps a command handler invocation: it may inspect or
// modify data before calling handler, and the result/error after.
type ServerInterceptor func(ctx context.Context, data []byte, info *ServerInfo, handler Handler) ([]byte, error)

// Invoker performs the actual outbound call on the client side.
type Invoker func(ctx context.Context, cmd string, data []byte) ([]byte, error)

// ClientInterceptor wraps an outbound call's Invoker.
type ClientInterceptor func(ctx context.Context, cmd string, data []byte, invoker Invoker) ([]byte, error)
