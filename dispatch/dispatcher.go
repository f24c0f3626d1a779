// Package dispatch routes inbound frames to command handlers or to
// pending-response callbacks by sequence number, per spec.md §4.3.
package dispatch

import (
	"log"

	"github.com/gostdlib/base/concurrency/sync"

	"github.com/shuai132/rpc-core/conn"
	"github.com/shuai132/rpc-core/wire"
)

// CmdHandler handles an inbound Command and may return a reply Message. A
// nil reply means "no reply", matched against NeedRsp by the dispatcher.
type CmdHandler func(msg *wire.Message) *wire.Message

// RspHandle is invoked when a Response arrives for a pending seq. It
// returns true if the message was handled (success) or false on a handling
// failure (e.g. deserialize error), matching spec.md §4.3's "invoke it
// (returning true on success, false on deserialize failure)". A timeout
// does not go through RspHandle; it fires the entry's TimeoutCb instead.
type RspHandle func(msg *wire.Message) bool

// TimeoutCb fires once a pending entry's timer expires without a response.
type TimeoutCb func()

// TimerFunc schedules cb to run after delayMs milliseconds, returning a
// Cancel function. It is the single injected timer capability spec.md's
// Out-of-scope section calls out; Dispatcher never assumes a runtime.
type TimerFunc func(delayMs uint32, cb func()) (cancel func())

type pendingEntry struct {
	rspHandle RspHandle
	timeoutCb TimeoutCb
	timeoutMs uint32
	cancel    func()
}

// Dispatcher owns the command-handler table and the pending-response table
// for one Rpc, and is installed as a Connection's recv hook.
type Dispatcher struct {
	mu       sync.RWMutex
	conn     *conn.Connection
	handlers map[string]CmdHandler
	pending  map[uint32]*pendingEntry
	timer    TimerFunc
}

// New binds d to c, installing d.handleIncoming as c's recv hook.
func New(c *conn.Connection) *Dispatcher {
	d := &Dispatcher{
		conn:     c,
		handlers: make(map[string]CmdHandler),
		pending:  make(map[uint32]*pendingEntry),
	}
	c.SetRecvImpl(d.handleIncoming)
	return d
}

// SubscribeCmd inserts (overwriting any prior) the handler for cmd.
func (d *Dispatcher) SubscribeCmd(cmd string, h CmdHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[cmd] = h
}

// UnsubscribeCmd removes the handler for cmd; no-op if absent.
func (d *Dispatcher) UnsubscribeCmd(cmd string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, cmd)
}

// SetTimerImpl installs the timer capability used by SubscribeRsp.
func (d *Dispatcher) SetTimerImpl(fn TimerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timer = fn
}

// SubscribeRsp registers a pending-response entry for seq. If a timer impl
// is installed, a one-shot timer is scheduled that, on fire, removes the
// entry (if still present) and invokes timeoutCb. Without a timer impl the
// entry remains indefinitely — documented in spec.md §5 as a leak risk.
func (d *Dispatcher) SubscribeRsp(seq uint32, rspHandle RspHandle, timeoutCb TimeoutCb, timeoutMs uint32) {
	d.mu.Lock()
	timer := d.timer
	entry := &pendingEntry{rspHandle: rspHandle, timeoutCb: timeoutCb, timeoutMs: timeoutMs}
	d.pending[seq] = entry
	d.mu.Unlock()

	if timer == nil {
		return
	}
	cancel := timer(timeoutMs, func() {
		d.mu.Lock()
		cur, ok := d.pending[seq]
		if ok && cur == entry {
			delete(d.pending, seq)
		}
		d.mu.Unlock()
		if ok && cur == entry {
			timeoutCb()
		}
	})
	d.mu.Lock()
	cur, ok := d.pending[seq]
	stillPending := ok && cur == entry
	if stillPending {
		entry.cancel = cancel
	}
	d.mu.Unlock()
	if !stillPending && cancel != nil {
		// entry already resolved between scheduling and here; cancel the timer.
		cancel()
	}
}

// popPending removes and returns the pending entry for seq, if any.
func (d *Dispatcher) popPending(seq uint32) (*pendingEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.pending[seq]
	if ok {
		delete(d.pending, seq)
	}
	return e, ok
}

// CancelRsp removes the pending entry for seq without invoking any
// callback, used when a Request cancels itself before a response arrives.
func (d *Dispatcher) CancelRsp(seq uint32) {
	e, ok := d.popPending(seq)
	if ok && e.cancel != nil {
		e.cancel()
	}
}

// Send encodes msg and forwards it to the bound Connection.
func (d *Dispatcher) Send(msg *wire.Message) error {
	b, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	d.conn.Send(b)
	return nil
}

// handleIncoming implements spec.md §4.3's handle_incoming: decode, then
// route by flag set. Decode failures are logged and dropped.
func (d *Dispatcher) handleIncoming(b []byte) {
	msg, err := wire.Decode(b)
	if err != nil {
		log.Printf("rpc-core/dispatch: decode failed, dropping frame: %v", err)
		return
	}

	switch {
	case msg.Type.Has(wire.Command):
		d.handleCommand(msg)
	case msg.Type.Has(wire.Response):
		d.handleResponse(msg)
	default:
		log.Printf("rpc-core/dispatch: malformed frame (neither Command nor Response), dropping: seq=%d", msg.Seq)
	}
}

func (d *Dispatcher) handleCommand(msg *wire.Message) {
	if msg.Type.Has(wire.Ping) {
		msg.Type = wire.Response | wire.Pong
		if err := d.Send(msg); err != nil {
			log.Printf("rpc-core/dispatch: failed to send pong: %v", err)
		}
		return
	}

	d.mu.RLock()
	handler, ok := d.handlers[msg.Cmd]
	d.mu.RUnlock()

	needRsp := msg.Type.Has(wire.NeedRsp)
	if ok {
		reply := handler(msg)
		if reply != nil && needRsp {
			reply.Seq = msg.Seq
			reply.Type = wire.Response
			if err := d.Send(reply); err != nil {
				log.Printf("rpc-core/dispatch: failed to send reply for cmd %q: %v", msg.Cmd, err)
			}
		}
		return
	}

	if needRsp {
		noSuchCmd := &wire.Message{Seq: msg.Seq, Type: wire.Response | wire.NoSuchCmd}
		if err := d.Send(noSuchCmd); err != nil {
			log.Printf("rpc-core/dispatch: failed to send NoSuchCmd for cmd %q: %v", msg.Cmd, err)
		}
		return
	}
	// Miss and not NeedRsp: drop silently.
}

func (d *Dispatcher) handleResponse(msg *wire.Message) {
	entry, ok := d.popPending(msg.Seq)
	if !ok {
		log.Printf("rpc-core/dispatch: response for unknown seq %d, dropping (likely post-timeout)", msg.Seq)
		return
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	if !entry.rspHandle(msg) {
		log.Printf("rpc-core/dispatch: peer may deserialize error for seq %d", msg.Seq)
	}
}
