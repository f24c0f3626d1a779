// Package tcp provides a TCP conn.Connection binding for rpc-core: it
// frames rpc-core's wire.Encode'd messages with a 4-byte length prefix over
// a net.Conn and wires the result to an rpccore.Rpc. A dropped client
// connection is not re-dialed automatically; Client.Reconnect re-dials with
// exponential backoff when called.
package tcp

import (
	"bufio"
	"crypto/tls"
	"errors"
	"net"

	"github.com/gostdlib/base/concurrency/sync"
	"github.com/gostdlib/base/context"
	"github.com/gostdlib/base/retry/exponential"

	rpccore "github.com/shuai132/rpc-core"
	"github.com/shuai132/rpc-core/conn"
)

// Common errors.
var (
	ErrClosed       = errors.New("tcp: transport closed")
	ErrNotConnected = errors.New("tcp: not connected")
)

// Client owns a TCP connection to addr and the rpccore.Rpc bound to it.
// Read/write buffering mirrors bufio sizing knobs; Reconnect backs off per
// config.retryPolicy.
type Client struct {
	addr   string
	config *config

	backoff *exponential.Backoff

	connMu    sync.Mutex
	netConn   net.Conn
	connected bool
	closed    bool
	connErr   error

	readMu sync.Mutex
	reader *bufio.Reader

	writeMu sync.Mutex
	writer  *bufio.Writer

	rpcConn *conn.Connection
	rpc     *rpccore.Rpc
}

// Dial connects to addr, wires an rpccore.Rpc over the connection, starts
// its read loop, and marks it ready. The address should be "host:port".
//
// Example:
//
//	c, err := tcp.Dial(ctx, "localhost:8080")
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	rpc := c.Rpc()
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	backoff, err := exponential.New(exponential.WithPolicy(cfg.retryPolicy))
	if err != nil {
		return nil, err
	}

	c := &Client{
		addr:    addr,
		config:  cfg,
		backoff: backoff,
		rpcConn: conn.New(),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.rpc = rpccore.New(c.rpcConn)
	c.rpcConn.SetSendImpl(c.send)
	c.rpc.SetReady(true)

	context.Pool(ctx).Submit(ctx, func() { c.readLoop(ctx) })

	return c, nil
}

// Rpc returns the Rpc bound to this connection.
func (c *Client) Rpc() *rpccore.Rpc {
	return c.rpc
}

// connect establishes the TCP connection and (re)creates the buffered
// reader/writer. Must not be called while holding connMu.
func (c *Client) connect(ctx context.Context) error {
	c.connMu.Lock()
	if c.closed {
		c.connMu.Unlock()
		return ErrClosed
	}
	c.cleanupLocked()
	c.connMu.Unlock()

	dialer := &net.Dialer{Timeout: c.config.dialTimeout, KeepAlive: c.config.keepAlive}

	var netConn net.Conn
	var err error
	if c.config.tlsConfig != nil {
		netConn, err = tls.DialWithDialer(dialer, "tcp", c.addr, c.config.tlsConfig)
	} else {
		netConn, err = dialer.DialContext(ctx, "tcp", c.addr)
	}
	if err != nil {
		return err
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.closed {
		netConn.Close()
		return ErrClosed
	}

	c.netConn = netConn
	c.connected = true
	c.connErr = nil

	c.readMu.Lock()
	c.reader = bufio.NewReaderSize(netConn, c.config.readBufferSize)
	c.readMu.Unlock()

	c.writeMu.Lock()
	c.writer = bufio.NewWriterSize(netConn, c.config.writeBufferSize)
	c.writeMu.Unlock()

	return nil
}

// cleanupLocked tears down the current connection. Must hold connMu.
func (c *Client) cleanupLocked() {
	c.connected = false
	if c.netConn != nil {
		c.writeMu.Lock()
		if c.writer != nil {
			c.writer.Flush()
			c.writer = nil
		}
		c.writeMu.Unlock()

		c.readMu.Lock()
		c.reader = nil
		c.readMu.Unlock()

		c.netConn.Close()
		c.netConn = nil
	}
}

// send implements conn.SendFunc: it frames b with a length prefix and
// writes it to the socket. Errors are recorded on connErr; Connection.Send
// has no return value to surface them to, matching spec.md §4.2's hook
// shape.
func (c *Client) send(b []byte) {
	c.writeMu.Lock()
	writer := c.writer
	c.writeMu.Unlock()
	if writer == nil {
		return
	}

	if err := writeFrame(writer, b); err != nil {
		c.connMu.Lock()
		c.connErr = err
		c.connMu.Unlock()
	}
}

// readLoop reads frames until the connection fails or is closed, handing
// each one to rpcConn.OnRecv. On a read failure it marks the Rpc not-ready;
// callers that want automatic recovery should call Reconnect.
func (c *Client) readLoop(ctx context.Context) {
	for {
		c.readMu.Lock()
		reader := c.reader
		c.readMu.Unlock()
		if reader == nil {
			return
		}

		frame, err := readFrame(reader, c.config.maxFrameSize)
		if err != nil {
			c.connMu.Lock()
			c.connErr = err
			c.connMu.Unlock()

			c.rpc.SetReady(false)
			return
		}

		c.rpcConn.OnRecv(frame)
	}
}

// Reconnect attempts to reconnect with exponential backoff, restarting the
// read loop on success.
func (c *Client) Reconnect(ctx context.Context) error {
	c.connMu.Lock()
	if c.closed {
		c.connMu.Unlock()
		return ErrClosed
	}
	c.connMu.Unlock()

	err := c.backoff.Retry(ctx, func(retryCtx context.Context, r exponential.Record) error {
		return c.connect(retryCtx)
	})
	if err != nil {
		return err
	}

	c.rpc.SetReady(true)
	context.Pool(ctx).Submit(ctx, func() { c.readLoop(ctx) })
	return nil
}

// Close closes the underlying connection. The Rpc remains usable but every
// call will fail once not-ready.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cleanupLocked()
	c.rpc.SetReady(false)
	return nil
}

// LocalAddr returns the local network address, or nil if not connected.
func (c *Client) LocalAddr() net.Addr {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.netConn != nil {
		return c.netConn.LocalAddr()
	}
	return nil
}

// RemoteAddr returns the remote network address, or nil if not connected.
func (c *Client) RemoteAddr() net.Addr {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.netConn != nil {
		return c.netConn.RemoteAddr()
	}
	return nil
}

// Err returns the last connection error, if any.
func (c *Client) Err() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connErr
}

// Connected reports whether the transport currently holds a live socket.
func (c *Client) Connected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connected && !c.closed
}
