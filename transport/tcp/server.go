package tcp

import (
	"bufio"
	"crypto/tls"
	"net"

	"github.com/gostdlib/base/concurrency/sync"
	"github.com/gostdlib/base/context"

	rpccore "github.com/shuai132/rpc-core"
	"github.com/shuai132/rpc-core/conn"
)

// Listener accepts incoming TCP connections and wraps each in a
// length-prefixed, rpccore.Rpc-bound serverConn.
type Listener struct {
	listener net.Listener
	config   *config

	mu     sync.Mutex
	closed bool
}

// Listen creates a TCP listener on addr ("host:port" or ":port").
func Listen(ctx context.Context, addr string, opts ...Option) (*Listener, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	lc := net.ListenConfig{KeepAlive: cfg.keepAlive}
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if cfg.tlsConfig != nil {
		listener = tls.NewListener(listener, cfg.tlsConfig)
	}

	return &Listener{listener: listener, config: cfg}, nil
}

// Accept waits for and returns the next connection as an Rpc already bound
// to its socket, with a read loop running and the Rpc marked ready.
func (l *Listener) Accept(ctx context.Context) (*rpccore.Rpc, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	listener := l.listener
	l.mu.Unlock()

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan acceptResult, 1)
	go func() {
		netConn, err := listener.Accept()
		resultCh <- acceptResult{netConn, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultCh:
		if result.err != nil {
			return nil, result.err
		}
		return l.newServerConn(ctx, result.conn), nil
	}
}

// newServerConn wires an accepted net.Conn to a fresh rpccore.Rpc and starts
// its read loop.
func (l *Listener) newServerConn(ctx context.Context, netConn net.Conn) *rpccore.Rpc {
	sc := &serverConn{
		netConn: netConn,
		config:  l.config,
		reader:  bufio.NewReaderSize(netConn, l.config.readBufferSize),
		writer:  bufio.NewWriterSize(netConn, l.config.writeBufferSize),
		rpcConn: conn.New(),
	}
	sc.rpc = rpccore.New(sc.rpcConn)
	sc.rpcConn.SetSendImpl(sc.send)
	sc.rpc.SetReady(true)

	context.Pool(ctx).Submit(ctx, func() { sc.readLoop() })

	return sc.rpc
}

// Close closes the listener.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.listener.Close()
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// serverConn is the accepted-connection counterpart of Client: it owns one
// socket, frames it, and hands frames to its own rpccore.Rpc.
type serverConn struct {
	netConn net.Conn
	config  *config

	readMu sync.Mutex
	reader *bufio.Reader

	writeMu sync.Mutex
	writer  *bufio.Writer

	connMu sync.Mutex
	closed bool

	rpcConn *conn.Connection
	rpc     *rpccore.Rpc
}

func (sc *serverConn) send(b []byte) {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	if sc.writer == nil {
		return
	}
	writeFrame(sc.writer, b)
}

func (sc *serverConn) readLoop() {
	for {
		sc.readMu.Lock()
		reader := sc.reader
		sc.readMu.Unlock()
		if reader == nil {
			return
		}

		frame, err := readFrame(reader, sc.config.maxFrameSize)
		if err != nil {
			sc.rpc.SetReady(false)
			sc.closeConn()
			return
		}

		sc.rpcConn.OnRecv(frame)
	}
}

func (sc *serverConn) closeConn() {
	sc.connMu.Lock()
	defer sc.connMu.Unlock()
	if sc.closed {
		return
	}
	sc.closed = true

	sc.writeMu.Lock()
	if sc.writer != nil {
		sc.writer.Flush()
		sc.writer = nil
	}
	sc.writeMu.Unlock()

	sc.readMu.Lock()
	sc.reader = nil
	sc.readMu.Unlock()

	sc.netConn.Close()
}

// Server accepts TCP connections and binds each to a fresh Rpc handed to
// onConn, which is responsible for registering command handlers (e.g. via
// rpccore.Subscribe) before returning. It is similar in shape to Go's
// http.Server.
//
// Example:
//
//	srv := tcp.NewServer(func(rpc *rpccore.Rpc) {
//	    rpccore.Subscribe(rpc, "echo", nil, func(s string) string { return s })
//	}, ":8080")
//	if err := srv.ListenAndServe(ctx); err != nil {
//	    log.Fatal(err)
//	}
type Server struct {
	onConn func(*rpccore.Rpc)
	addr   string
	config *config

	mu       sync.Mutex
	listener *Listener
	closed   bool
}

// NewServer creates a TCP server that invokes onConn for every accepted
// connection's freshly bound Rpc. It does not start listening until
// ListenAndServe or Serve is called.
func NewServer(onConn func(*rpccore.Rpc), addr string, opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Server{onConn: onConn, addr: addr, config: cfg}
}

// ListenAndServe listens on the configured address and blocks accepting
// connections until Close is called or an error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := Listen(ctx, s.addr,
		WithTLSConfig(s.config.tlsConfig),
		WithKeepAlive(s.config.keepAlive),
		WithReadBufferSize(s.config.readBufferSize),
		WithWriteBufferSize(s.config.writeBufferSize),
		WithMaxFrameSize(s.config.maxFrameSize),
	)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener, invoking onConn for each. Blocks
// until the server is closed or an error occurs.
func (s *Server) Serve(ctx context.Context, listener *Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return ErrClosed
	}
	s.listener = listener
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.listener = nil
		s.mu.Unlock()
		listener.Close()
	}()

	pool := context.Pool(ctx)
	for {
		rpc, err := listener.Accept(ctx)
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}

		pool.Submit(ctx, func() { s.onConn(rpc) })
	}
}

// Close closes the listener, stopping Serve. In-flight connections are not
// torn down; they complete or time out independently.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		return listener.Close()
	}
	return nil
}

// Addr returns the listener's address, or nil if not listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}
