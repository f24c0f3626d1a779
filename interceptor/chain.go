package interceptor

import (
	"github.com/gostdlib/base/context"
)

// ChainServer chains multiple server interceptors into one, executed in the
// order provided (the first wraps the outermost call).
func ChainServer(interceptors ...ServerInterceptor) ServerInterceptor {
	switch len(interceptors) {
	case 0:
		return nil
	case 1:
		return interceptors[0]
	}

	return func(ctx context.Context, data []byte, info *ServerInfo, handler Handler) ([]byte, error) {
		return chainServerHandler(interceptors, 0, info, handler)(ctx, data)
	}
}

func chainServerHandler(interceptors []ServerInterceptor, idx int, info *ServerInfo, finalHandler Handler) Handler {
	if idx == len(interceptors) {
		return finalHandler
	}
	return func(ctx context.Context, data []byte) ([]byte, error) {
		return interceptors[idx](ctx, data, info, chainServerHandler(interceptors, idx+1, info, finalHandler))
	}
}

// ChainClient chains multiple client interceptors into one, executed in the
// order provided.
func ChainClient(interceptors ...ClientInterceptor) ClientInterceptor {
	switch len(interceptors) {
	case 0:
		return nil
	case 1:
		return interceptors[0]
	}

	return func(ctx context.Context, cmd string, data []byte, invoker Invoker) ([]byte, error) {
		return chainClientInvoker(interceptors, 0, cmd, invoker)(ctx, cmd, data)
	}
}

func chainClientInvoker(interceptors []ClientInterceptor, idx int, cmd string, finalInvoker Invoker) Invoker {
	if idx == len(interceptors) {
		return finalInvoker
	}
	return func(ctx context.Context, cmd string, data []byte) ([]byte, error) {
		return interceptors[idx](ctx, cmd, data, chainClientInvoker(interceptors, idx+1, cmd, finalInvoker))
	}
}
