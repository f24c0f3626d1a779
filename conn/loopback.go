package conn

// NewLoopbackPair returns two Connections cross-wired so that each one's
// Send delivers straight into the other's OnRecv, per spec.md §4.2's literal
// description: "wires two connections so each's send calls the other's
// on_recv". This is the shape used to test an Rpc pair entirely in-process,
// without any transport.
func NewLoopbackPair() (a, b *Connection) {
	a, b = New(), New()
	a.SetSendImpl(func(buf []byte) { b.OnRecv(buf) })
	b.SetSendImpl(func(buf []byte) { a.OnRecv(buf) })
	return a, b
}

// NewSelfLoop returns a single Connection whose Send calls its own OnRecv,
// matching the Rust original's LoopbackConnection (a single connection
// looping to itself via clone()). Prefer NewLoopbackPair for tests that
// model two distinct peers; this is kept for parity with the source shape.
func NewSelfLoop() *Connection {
	c := New()
	c.SetSendImpl(func(buf []byte) { c.OnRecv(buf) })
	return c
}
