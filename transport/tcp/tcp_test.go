package tcp

import (
	"bytes"
	"testing"

	rpccore "github.com/shuai132/rpc-core"
)

func TestClientServerSynchronousRPC(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "Success: single request", payload: []byte("hello")},
		{name: "Success: empty payload", payload: []byte("")},
		{name: "Success: large payload", payload: bytes.Repeat([]byte("x"), 100000)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx := t.Context()

			listener, err := Listen(ctx, "127.0.0.1:0")
			if err != nil {
				t.Fatalf("[TestClientServerSynchronousRPC(%s)]: failed to listen: %v", test.name, err)
			}
			defer listener.Close()

			srv := NewServer(func(rpc *rpccore.Rpc) {
				rpc.SubscribeRaw("echo", func(in []byte) []byte {
					return append([]byte("echo:"), in...)
				})
			}, "")

			go func() {
				for {
					rpc, err := listener.Accept(ctx)
					if err != nil {
						return
					}
					srv.onConn(rpc)
				}
			}()

			client, err := Dial(ctx, listener.Addr().String())
			if err != nil {
				t.Fatalf("[TestClientServerSynchronousRPC(%s)]: dial failed: %v", test.name, err)
			}
			defer client.Close()

			resp, err := client.Rpc().CallSync(ctx, "echo", test.payload)
			if err != nil {
				t.Fatalf("[TestClientServerSynchronousRPC(%s)]: CallSync got err %v, want nil", test.name, err)
			}
			want := append([]byte("echo:"), test.payload...)
			if !bytes.Equal(resp, want) {
				t.Fatalf("[TestClientServerSynchronousRPC(%s)]: got %q, want %q", test.name, resp, want)
			}
		})
	}
}

func TestClientConnectedReflectsState(t *testing.T) {
	ctx := t.Context()

	listener, err := Listen(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer listener.Close()

	go func() {
		for {
			_, err := listener.Accept(ctx)
			if err != nil {
				return
			}
		}
	}()

	client, err := Dial(ctx, listener.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	if !client.Connected() {
		t.Fatal("expected client to be Connected() after Dial")
	}

	client.Close()

	if client.Connected() {
		t.Fatal("expected client to not be Connected() after Close")
	}
}
