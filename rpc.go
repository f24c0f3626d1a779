// Package rpccore implements the Rpc facade described in spec.md §4.5: it
// owns a Connection and a Dispatcher, mints sequence numbers, registers
// command subscribers, and creates Requests bound to itself.
package rpccore

import (
	"log"

	"github.com/gostdlib/base/concurrency/sync"
	"github.com/gostdlib/base/context"

	"github.com/shuai132/rpc-core/conn"
	"github.com/shuai132/rpc-core/dispatch"
	"github.com/shuai132/rpc-core/interceptor"
	"github.com/shuai132/rpc-core/request"
	"github.com/shuai132/rpc-core/serviceconfig"
	"github.com/shuai132/rpc-core/wire"
)

// Rpc holds one Connection, its Dispatcher, a monotone seq counter, and a
// ready flag gating outbound calls. Each Rpc is an independent island: no
// package-level global state is shared between instances.
type Rpc struct {
	mu    sync.Mutex
	conn  *conn.Connection
	disp  *dispatch.Dispatcher
	seq   uint32
	ready bool
	alive bool

	svcConfig *serviceconfig.Config

	serverInterceptor interceptor.ServerInterceptor
	clientInterceptor interceptor.ClientInterceptor
}

// New creates an Rpc bound to c, installing a fresh Dispatcher on it. The
// Rpc starts not-ready; transport glue calls SetReady(true) once connected.
func New(c *conn.Connection) *Rpc {
	return &Rpc{
		conn:  c,
		disp:  dispatch.New(c),
		alive: true,
	}
}

// Alive implements request.Owner.
func (r *Rpc) Alive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alive
}

// IsReady implements request.Owner.
func (r *Rpc) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// SetReady gates outbound Request.Call(); transport glue sets true on
// connect and false on disconnect.
func (r *Rpc) SetReady(ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = ready
}

// Close marks the Rpc as gone. Requests already bound to it will observe
// Alive() == false and finish RpcExpired on their next Call().
func (r *Rpc) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alive = false
	r.ready = false
}

// MakeSeq implements request.Owner: a monotone per-Rpc counter starting at
// 0 and wrapping on overflow (spec.md §9: wrap is allowed, collisions are
// the caller's problem).
func (r *Rpc) MakeSeq() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq
}

// Dispatch implements request.Owner: it composes the outbound Message from
// req's fields, registers a pending-response entry keyed by req's seq iff
// req needs a response, and then sends the Message.
func (r *Rpc) Dispatch(req *request.Request) {
	flags := wire.Command
	if req.NeedRsp() {
		flags |= wire.NeedRsp
	}
	if req.IsPing() {
		flags |= wire.Ping
	}
	msg := &wire.Message{
		Seq:  req.Seq(),
		Cmd:  req.CmdName(),
		Type: flags,
		Data: req.Payload(),
	}

	if req.NeedRsp() {
		r.disp.SubscribeRsp(req.Seq(), req.HandleResponse, req.HandleTimeout, req.TimeoutMsValue())
	}

	if err := r.disp.Send(msg); err != nil {
		// A send-time encode failure (e.g. an over-long cmd) behaves
		// like any other terminal failure the source would surface as
		// a dropped frame: the pending entry (if any) is left to the
		// caller's timeout, matching spec.md's "no exception-style
		// propagation" stance.
		return
	}
}

// GetConnection exposes the underlying Connection so transport glue can
// wire its own send/receive hooks.
func (r *Rpc) GetConnection() *conn.Connection {
	return r.conn
}

// SetTimer installs the pluggable timer capability on the Dispatcher.
func (r *Rpc) SetTimer(fn dispatch.TimerFunc) {
	r.disp.SetTimerImpl(fn)
}

// CreateRequest returns a new Request bound to this Rpc.
func (r *Rpc) CreateRequest() *request.Request {
	return request.NewWithOwner(r)
}

// SetServiceConfig installs the per-command default Timeout/Retry lookup
// table consulted by Cmd. A nil config (the default) disables lookup: every
// Request keeps the builder's own defaults.
func (r *Rpc) SetServiceConfig(cfg *serviceconfig.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.svcConfig = cfg
}

// Cmd is sugar for CreateRequest().Cmd(cmd), pre-populated from the
// installed serviceconfig.Config (if any) per spec.md §4.13: a matching
// entry's Timeout/Retry become the Request's defaults, which the caller may
// still override via the builder before calling Call().
func (r *Rpc) Cmd(cmd string) *request.Request {
	req := r.CreateRequest().Cmd(cmd)

	r.mu.Lock()
	cfg := r.svcConfig
	r.mu.Unlock()

	if cfg != nil {
		if mc, ok := cfg.Lookup(cmd); ok {
			if mc.TimeoutMs != 0 {
				req.TimeoutMs(mc.TimeoutMs)
			}
			req.Retry(mc.Retry)
		}
	}
	return req
}

// Ping is sugar for CreateRequest().Ping().
func (r *Rpc) Ping() *request.Request {
	return r.CreateRequest().Ping()
}

// PingMsg is sugar for a ping carrying a raw payload.
func (r *Rpc) PingMsg(data []byte) *request.Request {
	return r.CreateRequest().Ping().Data(data)
}

// UnsubscribeCmd removes a command handler previously installed via
// Subscribe or SubscribeRaw.
func (r *Rpc) UnsubscribeCmd(cmd string) {
	r.disp.UnsubscribeCmd(cmd)
}

// SetServerInterceptor installs a single interceptor (build one with
// interceptor.ChainServer for multiple) wrapping every command handler
// registered afterwards via SubscribeRaw. Handlers registered with the
// generic Subscribe are not wrapped.
func (r *Rpc) SetServerInterceptor(ic interceptor.ServerInterceptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serverInterceptor = ic
}

// SetClientInterceptor installs a single interceptor (build one with
// interceptor.ChainClient for multiple) wrapping every outbound call made
// afterwards via CallSync.
func (r *Rpc) SetClientInterceptor(ic interceptor.ClientInterceptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clientInterceptor = ic
}

// SubscribeRaw registers a raw-bytes command handler: spec.md §4.3's
// subscribe_cmd, with no payload codec involved. handle may return nil for
// "no reply". If a server interceptor is installed, it wraps every
// invocation of handle.
func (r *Rpc) SubscribeRaw(cmd string, handle func(data []byte) []byte) {
	r.mu.Lock()
	ic := r.serverInterceptor
	r.mu.Unlock()

	wrapped := func(data []byte) (reply []byte, hadErr bool) {
		if ic == nil {
			return handle(data), false
		}
		info := &interceptor.ServerInfo{Cmd: cmd}
		out, err := ic(context.Background(), data, info, func(_ context.Context, data []byte) ([]byte, error) {
			return handle(data), nil
		})
		if err != nil {
			log.Printf("rpc-core: server interceptor rejected cmd %q: %v", cmd, err)
			return nil, true
		}
		return out, false
	}

	r.disp.SubscribeCmd(cmd, func(msg *wire.Message) *wire.Message {
		reply, hadErr := wrapped(msg.Data)
		if hadErr || reply == nil {
			return nil
		}
		return &wire.Message{Data: reply}
	})
}

// CallSync performs a blocking request/response call through the installed
// client interceptor chain (if any), adapting the callback-based Request
// into the synchronous Invoker shape interceptors expect. It blocks until a
// response, timeout, or cancellation settles the underlying Request.
func (r *Rpc) CallSync(ctx context.Context, cmd string, data []byte) ([]byte, error) {
	r.mu.Lock()
	ic := r.clientInterceptor
	r.mu.Unlock()

	invoke := func(_ context.Context, cmd string, data []byte) ([]byte, error) {
		type result struct {
			data []byte
			ft   request.FinallyType
		}
		done := make(chan result, 1)

		req := r.Cmd(cmd).Data(data)
		req.RspRaw(func(rsp []byte) bool {
			done <- result{data: rsp}
			return true
		})
		req.Finally(func(ft request.FinallyType) {
			if ft != request.Normal {
				done <- result{ft: ft}
			}
		})
		req.Call()

		res := <-done
		if res.ft != request.Normal {
			return nil, &CallError{Cmd: cmd, FinallyType: res.ft}
		}
		return res.data, nil
	}

	if ic == nil {
		return invoke(ctx, cmd, data)
	}
	return ic(ctx, cmd, data, invoke)
}

// CallError reports a non-Normal terminal outcome surfaced through CallSync.
type CallError struct {
	Cmd         string
	FinallyType request.FinallyType
}

func (e *CallError) Error() string {
	return "rpc-core: call " + e.Cmd + " finished with " + e.FinallyType.String()
}
