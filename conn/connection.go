// Package conn implements the Connection capability spec.md §4.2 calls the
// single transport seam: a pair of hooks, send(bytes) outward and
// on_recv(bytes) inward, with no built-in framing or transport of its own.
package conn

import "github.com/gostdlib/base/concurrency/sync"

// SendFunc is installed to forward outbound frames to a transport.
type SendFunc func(b []byte)

// RecvFunc is installed to receive inbound frames from a transport,
// typically the Dispatcher's handle_incoming.
type RecvFunc func(b []byte)

// Connection is the pluggable capability set described in spec.md §4.2. Both
// hooks are no-ops until installed, so a Connection can be constructed and
// wired to its Dispatcher before any transport exists.
type Connection struct {
	mu       sync.Mutex
	sendImpl SendFunc
	recvImpl RecvFunc
}

// New returns a Connection with both hooks unset.
func New() *Connection {
	return &Connection{}
}

// SetSendImpl installs the outward hook.
func (c *Connection) SetSendImpl(fn SendFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendImpl = fn
}

// SetRecvImpl installs the inward hook. A Dispatcher calls this once at
// construction to route incoming bytes to its own decode/route logic.
func (c *Connection) SetRecvImpl(fn RecvFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recvImpl = fn
}

// Send forwards b to the installed send hook, or does nothing if none is
// installed.
func (c *Connection) Send(b []byte) {
	c.mu.Lock()
	fn := c.sendImpl
	c.mu.Unlock()
	if fn != nil {
		fn(b)
	}
}

// OnRecv forwards b to the installed recv hook, or does nothing if none is
// installed. Transport glue calls this whenever a whole frame has arrived.
func (c *Connection) OnRecv(b []byte) {
	c.mu.Lock()
	fn := c.recvImpl
	c.mu.Unlock()
	if fn != nil {
		fn(b)
	}
}
