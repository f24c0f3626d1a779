package hedge

import (
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gostdlib/base/context"

	rpccore "github.com/shuai132/rpc-core"
	"github.com/shuai132/rpc-core/request"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxHedgedRequests != 1 {
		t.Errorf("[TestDefaultPolicy]: MaxHedgedRequests = %d, want 1", p.MaxHedgedRequests)
	}
	if p.HedgeDelay != 50*time.Millisecond {
		t.Errorf("[TestDefaultPolicy]: HedgeDelay = %v, want 50ms", p.HedgeDelay)
	}
}

func TestClientInterceptorDisabled(t *testing.T) {
	ic := ClientInterceptor(Policy{MaxHedgedRequests: 0})

	calls := 0
	invoker := func(ctx context.Context, cmd string, data []byte) ([]byte, error) {
		calls++
		return []byte("response"), nil
	}

	resp, err := ic(t.Context(), "cmd", []byte("req"), invoker)
	if err != nil {
		t.Errorf("[TestClientInterceptorDisabled]: got err = %v, want nil", err)
	}
	if string(resp) != "response" {
		t.Errorf("[TestClientInterceptorDisabled]: got resp = %q, want %q", resp, "response")
	}
	if calls != 1 {
		t.Errorf("[TestClientInterceptorDisabled]: got calls = %d, want 1", calls)
	}
}

func TestClientInterceptorSuccess(t *testing.T) {
	policy := Policy{MaxHedgedRequests: 2, HedgeDelay: 10 * time.Millisecond}
	ic := ClientInterceptor(policy)

	var calls atomic.Int32
	invoker := func(ctx context.Context, cmd string, data []byte) ([]byte, error) {
		calls.Add(1)
		return []byte("response"), nil
	}

	resp, err := ic(t.Context(), "cmd", []byte("req"), invoker)
	if err != nil {
		t.Errorf("[TestClientInterceptorSuccess]: got err = %v, want nil", err)
	}
	if string(resp) != "response" {
		t.Errorf("[TestClientInterceptorSuccess]: got resp = %q, want %q", resp, "response")
	}
	if calls.Load() < 1 {
		t.Errorf("[TestClientInterceptorSuccess]: got calls = %d, want >= 1", calls.Load())
	}
}

func TestClientInterceptorHedgeWins(t *testing.T) {
	policy := Policy{MaxHedgedRequests: 1, HedgeDelay: 5 * time.Millisecond}
	ic := ClientInterceptor(policy)

	var calls atomic.Int32
	invoker := func(ctx context.Context, cmd string, data []byte) ([]byte, error) {
		n := calls.Add(1)
		if n == 1 {
			time.Sleep(50 * time.Millisecond)
		}
		return []byte(fmt.Sprintf("response-%d", n)), nil
	}

	resp, err := ic(t.Context(), "cmd", []byte("req"), invoker)
	if err != nil {
		t.Errorf("[TestClientInterceptorHedgeWins]: got err = %v, want nil", err)
	}
	if string(resp) != "response-2" {
		t.Errorf("[TestClientInterceptorHedgeWins]: got resp = %q, want %q (hedge should win)", resp, "response-2")
	}
}

func TestClientInterceptorAllFail(t *testing.T) {
	policy := Policy{MaxHedgedRequests: 2, HedgeDelay: 5 * time.Millisecond}
	ic := ClientInterceptor(policy)

	var calls atomic.Int32
	invoker := func(ctx context.Context, cmd string, data []byte) ([]byte, error) {
		calls.Add(1)
		return nil, &rpccore.CallError{Cmd: cmd, FinallyType: request.Timeout}
	}

	_, err := ic(t.Context(), "cmd", []byte("req"), invoker)
	if err == nil {
		t.Errorf("[TestClientInterceptorAllFail]: got err = nil, want error")
	}
	if calls.Load() != 3 {
		t.Errorf("[TestClientInterceptorAllFail]: got calls = %d, want 3 (1 original + 2 hedges)", calls.Load())
	}
}

func TestClientInterceptorFatalShortCircuits(t *testing.T) {
	policy := Policy{MaxHedgedRequests: 2, HedgeDelay: 20 * time.Millisecond}
	ic := ClientInterceptor(policy)

	var calls atomic.Int32
	wantErr := &rpccore.CallError{Cmd: "cmd", FinallyType: request.NoSuchCmd}
	invoker := func(ctx context.Context, cmd string, data []byte) ([]byte, error) {
		calls.Add(1)
		return nil, wantErr
	}

	start := time.Now()
	_, err := ic(t.Context(), "cmd", []byte("req"), invoker)
	elapsed := time.Since(start)

	if err != wantErr {
		t.Errorf("[TestClientInterceptorFatalShortCircuits]: got err = %v, want %v", err, wantErr)
	}
	// Should return right after the first (fatal) response, not wait for
	// staggered hedges at 20ms/40ms.
	if elapsed > 15*time.Millisecond {
		t.Errorf("[TestClientInterceptorFatalShortCircuits]: took %v, want < 15ms (should short-circuit)", elapsed)
	}
}

func TestIsFatalDefaultClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "Success: nil error is not fatal", err: nil, want: false},
		{name: "Success: timeout is not fatal", err: &rpccore.CallError{Cmd: "x", FinallyType: request.Timeout}, want: false},
		{name: "Success: rpc not ready is not fatal", err: &rpccore.CallError{Cmd: "x", FinallyType: request.RpcNotReady}, want: false},
		{name: "Success: rpc expired is not fatal", err: &rpccore.CallError{Cmd: "x", FinallyType: request.RpcExpired}, want: false},
		{name: "Success: canceled is fatal", err: &rpccore.CallError{Cmd: "x", FinallyType: request.Canceled}, want: true},
		{name: "Success: no such cmd is fatal", err: &rpccore.CallError{Cmd: "x", FinallyType: request.NoSuchCmd}, want: true},
		{name: "Success: rsp serialize error is fatal", err: &rpccore.CallError{Cmd: "x", FinallyType: request.RspSerializeError}, want: true},
		{name: "Success: non-CallError is always fatal", err: stderrors.New("boom"), want: true},
	}

	for _, test := range tests {
		if got := isFatal(test.err, nil); got != test.want {
			t.Errorf("[TestIsFatalDefaultClassification](%s): got %v, want %v", test.name, got, test.want)
		}
	}
}

func TestIsFatalAllowList(t *testing.T) {
	nonFatal := []request.FinallyType{request.Canceled}

	tests := []struct {
		name string
		ft   request.FinallyType
		want bool
	}{
		{name: "Success: explicitly allow-listed type is not fatal", ft: request.Canceled, want: false},
		{name: "Success: type otherwise non-fatal by default becomes fatal", ft: request.Timeout, want: true},
		{name: "Success: type otherwise fatal by default stays fatal", ft: request.NoSuchCmd, want: true},
	}

	for _, test := range tests {
		err := &rpccore.CallError{Cmd: "x", FinallyType: test.ft}
		if got := isFatal(err, nonFatal); got != test.want {
			t.Errorf("[TestIsFatalAllowList](%s): got %v, want %v", test.name, got, test.want)
		}
	}
}
