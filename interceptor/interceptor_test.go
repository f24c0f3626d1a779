package interceptor

import (
	"errors"
	"testing"

	"github.com/gostdlib/base/context"
)

func TestChainServerOrdering(t *testing.T) {
	var order []string
	mk := func(name string) ServerInterceptor {
		return func(ctx context.Context, data []byte, info *ServerInfo, handler Handler) ([]byte, error) {
			order = append(order, "before:"+name)
			out, err := handler(ctx, data)
			order = append(order, "after:"+name)
			return out, err
		}
	}

	chained := ChainServer(mk("a"), mk("b"))
	out, err := chained(context.Background(), []byte("in"), &ServerInfo{Cmd: "x"}, func(ctx context.Context, data []byte) ([]byte, error) {
		order = append(order, "handler")
		return data, nil
	})
	if err != nil || string(out) != "in" {
		t.Fatalf("got (%q, %v)", out, err)
	}
	want := []string{"before:a", "before:b", "handler", "after:b", "after:a"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestChainServerEmptyReturnsNil(t *testing.T) {
	if ChainServer() != nil {
		t.Fatalf("expected nil for zero interceptors")
	}
}

func TestChainServerShortCircuits(t *testing.T) {
	errStop := errors.New("stop")
	calledHandler := false
	chained := ChainServer(func(ctx context.Context, data []byte, info *ServerInfo, handler Handler) ([]byte, error) {
		return nil, errStop
	})
	_, err := chained(context.Background(), nil, &ServerInfo{Cmd: "x"}, func(ctx context.Context, data []byte) ([]byte, error) {
		calledHandler = true
		return nil, nil
	})
	if err != errStop {
		t.Fatalf("got %v, want errStop", err)
	}
	if calledHandler {
		t.Fatalf("handler must not run once an interceptor short-circuits")
	}
}

func TestChainClientOrdering(t *testing.T) {
	var order []string
	mk := func(name string) ClientInterceptor {
		return func(ctx context.Context, cmd string, data []byte, invoker Invoker) ([]byte, error) {
			order = append(order, "before:"+name)
			out, err := invoker(ctx, cmd, data)
			order = append(order, "after:"+name)
			return out, err
		}
	}
	chained := ChainClient(mk("a"), mk("b"))
	_, err := chained(context.Background(), "cmd", nil, func(ctx context.Context, cmd string, data []byte) ([]byte, error) {
		order = append(order, "invoke")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("got %v", err)
	}
	want := []string{"before:a", "before:b", "invoke", "after:b", "after:a"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}
