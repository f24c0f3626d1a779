package retry

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/gostdlib/base/context"

	rpccore "github.com/shuai132/rpc-core"
	"github.com/shuai132/rpc-core/request"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("[TestDefaultPolicy]: MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if p.InitialBackoff != 100*time.Millisecond {
		t.Errorf("[TestDefaultPolicy]: InitialBackoff = %v, want 100ms", p.InitialBackoff)
	}
	if p.MaxBackoff != 5*time.Second {
		t.Errorf("[TestDefaultPolicy]: MaxBackoff = %v, want 5s", p.MaxBackoff)
	}
	if p.Multiplier != 2.0 {
		t.Errorf("[TestDefaultPolicy]: Multiplier = %f, want 2.0", p.Multiplier)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "Success: nil error", err: nil, want: false},
		{name: "Success: timeout is retryable", err: &rpccore.CallError{Cmd: "x", FinallyType: request.Timeout}, want: true},
		{name: "Success: rpc not ready is retryable", err: &rpccore.CallError{Cmd: "x", FinallyType: request.RpcNotReady}, want: true},
		{name: "Success: rpc expired is retryable", err: &rpccore.CallError{Cmd: "x", FinallyType: request.RpcExpired}, want: true},
		{name: "Success: canceled is not retryable", err: &rpccore.CallError{Cmd: "x", FinallyType: request.Canceled}, want: false},
		{name: "Success: no such cmd is not retryable", err: &rpccore.CallError{Cmd: "x", FinallyType: request.NoSuchCmd}, want: false},
		{name: "Success: rsp serialize error is not retryable", err: &rpccore.CallError{Cmd: "x", FinallyType: request.RspSerializeError}, want: false},
		{name: "Success: non-CallError is retryable", err: stderrors.New("boom"), want: true},
	}

	for _, test := range tests {
		if got := IsRetryable(test.err); got != test.want {
			t.Errorf("[TestIsRetryable](%s): got %v, want %v", test.name, got, test.want)
		}
	}
}

func TestClientInterceptorNoRetryOnSuccess(t *testing.T) {
	ic := ClientInterceptor(DefaultPolicy())
	calls := 0
	invoker := func(ctx context.Context, cmd string, data []byte) ([]byte, error) {
		calls++
		return []byte("ok"), nil
	}
	resp, err := ic(t.Context(), "cmd", nil, invoker)
	if err != nil {
		t.Fatalf("got err %v", err)
	}
	if string(resp) != "ok" {
		t.Fatalf("got %q", resp)
	}
	if calls != 1 {
		t.Fatalf("got %d calls, want 1", calls)
	}
}

func TestClientInterceptorRetriesTransientThenSucceeds(t *testing.T) {
	policy := DefaultPolicy()
	policy.InitialBackoff = time.Millisecond
	policy.MaxBackoff = time.Millisecond
	ic := ClientInterceptor(policy)

	calls := 0
	invoker := func(ctx context.Context, cmd string, data []byte) ([]byte, error) {
		calls++
		if calls < 3 {
			return nil, &rpccore.CallError{Cmd: cmd, FinallyType: request.Timeout}
		}
		return []byte("ok"), nil
	}
	resp, err := ic(t.Context(), "cmd", nil, invoker)
	if err != nil {
		t.Fatalf("got err %v", err)
	}
	if string(resp) != "ok" {
		t.Fatalf("got %q", resp)
	}
	if calls != 3 {
		t.Fatalf("got %d calls, want 3", calls)
	}
}

func TestClientInterceptorStopsOnNonRetryable(t *testing.T) {
	ic := ClientInterceptor(DefaultPolicy())
	calls := 0
	wantErr := &rpccore.CallError{Cmd: "cmd", FinallyType: request.NoSuchCmd}
	invoker := func(ctx context.Context, cmd string, data []byte) ([]byte, error) {
		calls++
		return nil, wantErr
	}
	_, err := ic(t.Context(), "cmd", nil, invoker)
	if err != wantErr {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Fatalf("got %d calls, want 1 (no retry on non-retryable error)", calls)
	}
}

func TestClientInterceptorExhaustsAttempts(t *testing.T) {
	policy := Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 2}
	ic := ClientInterceptor(policy)

	calls := 0
	invoker := func(ctx context.Context, cmd string, data []byte) ([]byte, error) {
		calls++
		return nil, &rpccore.CallError{Cmd: cmd, FinallyType: request.Timeout}
	}
	_, err := ic(t.Context(), "cmd", nil, invoker)
	if err == nil {
		t.Fatalf("expected an error after exhausting retries")
	}
	if calls != 2 {
		t.Fatalf("got %d calls, want 2 (MaxAttempts: 2)", calls)
	}
}

func TestClientInterceptorZeroMaxAttemptsPassesThrough(t *testing.T) {
	ic := ClientInterceptor(Policy{MaxAttempts: 0})
	calls := 0
	invoker := func(ctx context.Context, cmd string, data []byte) ([]byte, error) {
		calls++
		return nil, &rpccore.CallError{Cmd: cmd, FinallyType: request.Timeout}
	}
	_, _ = ic(t.Context(), "cmd", nil, invoker)
	if calls != 1 {
		t.Fatalf("got %d calls, want 1 (no retry loop when MaxAttempts <= 0)", calls)
	}
}
