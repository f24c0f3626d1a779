// Package request implements the fluent Request builder/state machine
// (spec.md §4.4) and the Dispose cancellation group (spec.md §4.6).
package request

import (
	"github.com/gostdlib/base/concurrency/sync"

	"github.com/shuai132/rpc-core/compress"
	"github.com/shuai132/rpc-core/wire"
)

// Owner is the capability surface a Request needs from its owning Rpc
// facade: spec.md §4.4 step 7 describes this as "ask Rpc to send". Rpc
// implements this interface; Request never imports the rpccore package,
// avoiding an import cycle.
//
// Alive models the Rust source's weak-upgrade check ("rpc is none or gone").
// Go has no reference-counted weak pointers for ordinary objects, so this
// package does not attempt to replicate one: Owner.Alive reports whatever
// the concrete Rpc considers "torn down", typically a bool flipped by an
// explicit Close().
type Owner interface {
	Alive() bool
	IsReady() bool
	MakeSeq() uint32
	// Dispatch composes the outbound wire.Message from req's fields
	// (setting Command/Ping/NeedRsp as appropriate), registers a
	// pending-response entry iff req.NeedRsp(), encodes, and sends.
	Dispatch(req *Request)
}

// Request is a one-shot, fluent builder for an outgoing call. Every builder
// method returns the same *Request for chaining; Call() is the terminal
// action.
type Request struct {
	mu sync.Mutex

	owner Owner
	seq   uint32

	cmd     string
	payload []byte
	needRsp bool
	isPing  bool

	canceled   bool
	waitingRsp bool

	timeoutMs  uint32
	retryCount int32 // -1 = infinite, 0 = no retry, n>0 = n bounded retries

	rspHandle func(data []byte) bool // nil means no .Rsp() attached
	timeoutCb func()
	finallyCb func(FinallyType)

	finallyType FinallyType
	settled     bool // true once finish() has actually run, distinct from waitingRsp's "never started" zero value

	// selfKeeper mirrors the source's self-referential pin (request.rs:
	// self_keeper), kept across the in-flight window and cleared in
	// finish(). In Go the actual liveness guarantee comes from the
	// dispatcher's pending-response table holding a closure bound to this
	// Request (a strong reference reachable from the Rpc/Dispatcher, not
	// from this field) — see Owner.Dispatch. This field exists for
	// parity with the source's shape and as a cheap self-documentation
	// of "currently pinned", not as the GC root that keeps r alive.
	selfKeeper *Request
}

// New creates a standalone Request with no owner; bind one later via Rpc().
func New() *Request {
	return &Request{timeoutMs: 3000}
}

// NewWithOwner creates a Request bound to owner, matching the source's
// create_with_rpc.
func NewWithOwner(owner Owner) *Request {
	r := New()
	r.owner = owner
	return r
}

// Cmd sets the command name.
func (r *Request) Cmd(cmd string) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmd = cmd
	return r
}

// Data sets the raw outbound payload.
func (r *Request) Data(b []byte) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payload = b
	return r
}

// Compress compresses the currently set payload with alg and replaces it
// with the wrapped result (a one-byte algorithm tag followed by the
// compressed bytes, see package compress). Call after Data, before Call. If
// compression fails the error is swallowed and the payload is instead
// wrapped with CmpNone (the tag byte followed by the original bytes),
// matching Data's own no-error builder signature; callers needing to
// observe compression failures should call compress.Wrap themselves and
// pass the result to Data.
func (r *Request) Compress(alg compress.Compression) *Request {
	r.mu.Lock()
	payload := r.payload
	r.mu.Unlock()

	wrapped, err := compress.Wrap(alg, payload)
	if err != nil {
		wrapped, _ = compress.Wrap(compress.CmpNone, payload)
	}

	r.mu.Lock()
	r.payload = wrapped
	r.mu.Unlock()
	return r
}

// Rsp attaches a raw-bytes response callback and implies NeedRsp. cb is
// invoked with the decoded-through-nothing response Data on a successful,
// non-canceled, non-NoSuchCmd arrival.
func (r *Request) Rsp(cb func(data []byte)) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.needRsp = true
	r.rspHandle = func(data []byte) bool {
		cb(data)
		return true
	}
	return r
}

// RspRaw attaches a response callback that reports its own success, used by
// the generic RspDecode helper to surface RspSerializeError on a codec
// failure.
func (r *Request) RspRaw(cb func(data []byte) bool) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.needRsp = true
	r.rspHandle = cb
	return r
}

// Finally attaches the single terminal callback.
func (r *Request) Finally(cb func(FinallyType)) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finallyCb = cb
	return r
}

// TimeoutMs overrides the default 3000ms timeout.
func (r *Request) TimeoutMs(ms uint32) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeoutMs = ms
	return r
}

// Timeout attaches a callback invoked every time the timeout fires, before
// any retry re-call or the terminal Timeout finish.
func (r *Request) Timeout(cb func()) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeoutCb = cb
	return r
}

// Retry sets the retry budget: n >= 0 bounded retries, n == -1 infinite.
func (r *Request) Retry(n int32) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryCount = n
	return r
}

// DisableRsp clears NeedRsp, turning the call into fire-and-forget even if
// Rsp() was previously attached.
func (r *Request) DisableRsp() *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.needRsp = false
	return r
}

// Ping marks this request as a liveness ping.
func (r *Request) Ping() *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isPing = true
	return r
}

// AddTo registers this request with a Dispose group for mass cancellation.
func (r *Request) AddTo(d *Dispose) *Request {
	d.add(r)
	return r
}

// Rpc (re)binds the owning Rpc.
func (r *Request) Rpc(owner Owner) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owner = owner
	return r
}

// Cancel marks the request canceled and finishes it with Canceled
// immediately if it is in flight.
func (r *Request) Cancel() *Request {
	r.mu.Lock()
	r.canceled = true
	r.mu.Unlock()
	r.finish(Canceled)
	return r
}

// ResetCancel clears the canceled flag.
func (r *Request) ResetCancel() *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = false
	return r
}

// IsCanceled reports the current canceled flag.
func (r *Request) IsCanceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}

// IsWaiting reports whether the request is still in flight (waiting_rsp).
func (r *Request) IsWaiting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waitingRsp
}

// IsSettled reports whether finish() has already run once, i.e. the request
// has reached a terminal FinallyType. Distinct from !IsWaiting(), which is
// also true before Call() has ever run.
func (r *Request) IsSettled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settled
}

// FinallyType returns the terminal outcome once settled; before that it is
// the zero value (Normal) and should not be relied upon.
func (r *Request) FinallyType() FinallyType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finallyType
}

// Seq returns the sequence number assigned at Call() (0 before that).
func (r *Request) Seq() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// CmdName returns the command name.
func (r *Request) CmdName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd
}

// Payload returns the raw outbound payload.
func (r *Request) Payload() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payload
}

// NeedRsp reports whether a response is expected.
func (r *Request) NeedRsp() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.needRsp
}

// IsPing reports whether this is a ping request.
func (r *Request) IsPing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isPing
}

// TimeoutMsValue returns the configured timeout in milliseconds.
func (r *Request) TimeoutMsValue() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeoutMs
}

// Call is the terminal action described in spec.md §4.4. It is safe to
// invoke again from within a timeout retry (HandleTimeout re-enters it with
// a fresh seq), matching the source's re-call-on-timeout behavior.
func (r *Request) Call() {
	r.mu.Lock()
	r.waitingRsp = true
	canceled := r.canceled
	r.mu.Unlock()

	if canceled {
		r.finish(Canceled)
		return
	}

	r.mu.Lock()
	r.selfKeeper = r
	owner := r.owner
	r.mu.Unlock()

	if owner == nil || !owner.Alive() {
		r.finish(RpcExpired)
		return
	}
	if !owner.IsReady() {
		r.finish(RpcNotReady)
		return
	}

	r.mu.Lock()
	r.seq = owner.MakeSeq()
	needRsp := r.needRsp
	r.mu.Unlock()

	owner.Dispatch(r)

	if !needRsp {
		r.finish(NoNeedRsp)
	}
}

// CallWithOwner binds owner then calls.
func (r *Request) CallWithOwner(owner Owner) {
	r.mu.Lock()
	r.owner = owner
	r.mu.Unlock()
	r.Call()
}

// HandleResponse is invoked by the Dispatcher when a Response with this
// request's seq arrives. It implements spec.md §4.4's "Response arrival"
// contract and returns whether the message was handled (true) or signals a
// deserialize failure (false, which the Dispatcher logs).
func (r *Request) HandleResponse(msg *wire.Message) bool {
	r.mu.Lock()
	canceled := r.canceled
	cb := r.rspHandle
	r.mu.Unlock()

	if canceled {
		r.finish(Canceled)
		return true
	}
	if msg.Type.Has(wire.NoSuchCmd) {
		r.finish(NoSuchCmd)
		return true
	}
	if cb == nil {
		r.finish(Normal)
		return true
	}
	if cb(msg.Data) {
		r.finish(Normal)
		return true
	}
	r.finish(RspSerializeError)
	return false
}

// HandleTimeout is invoked by the Dispatcher when the pending entry for this
// request's seq times out. It implements spec.md §4.4's "Timeout firing"
// contract: invoke the user callback, then retry or finish.
func (r *Request) HandleTimeout() {
	r.mu.Lock()
	cb := r.timeoutCb
	retry := r.retryCount
	r.mu.Unlock()

	if cb != nil {
		cb()
	}

	if retry == -1 {
		r.Call()
		return
	}
	if retry > 0 {
		r.mu.Lock()
		r.retryCount--
		r.mu.Unlock()
		r.Call()
		return
	}
	r.finish(Timeout)
}

// finish implements the idempotent finish(type) contract: a no-op unless
// waiting_rsp is currently true, otherwise it fires finally exactly once and
// releases the self-reference.
func (r *Request) finish(t FinallyType) {
	r.mu.Lock()
	if !r.waitingRsp {
		r.mu.Unlock()
		return
	}
	r.waitingRsp = false
	r.finallyType = t
	r.settled = true
	cb := r.finallyCb
	r.mu.Unlock()

	if cb != nil {
		cb(t)
	}

	r.mu.Lock()
	r.selfKeeper = nil
	r.mu.Unlock()
}
