package tcp

import (
	"crypto/tls"
	"time"

	"github.com/gostdlib/base/retry/exponential"
)

// config holds configuration for TCP transports.
type config struct {
	// TLS configuration for secure connections. If nil, plain TCP is used.
	tlsConfig *tls.Config

	// Retry policy for reconnection (client only).
	retryPolicy exponential.Policy

	// Dial timeout for connection establishment.
	dialTimeout time.Duration

	// Read buffer size for bufio.Reader.
	readBufferSize int

	// Write buffer size for bufio.Writer.
	writeBufferSize int

	// KeepAlive period for TCP connections. Zero selects Go's default
	// period; a negative value disables keep-alives.
	keepAlive time.Duration

	// maxFrameSize bounds the length prefix readFrame will accept. 0 means
	// unbounded.
	maxFrameSize uint32
}

func defaultConfig() *config {
	return &config{
		retryPolicy:     exponential.FastRetryPolicy(),
		dialTimeout:     30 * time.Second,
		readBufferSize:  64 * 1024,
		writeBufferSize: 64 * 1024,
		keepAlive:       30 * time.Second,
		maxFrameSize:    16 * 1024 * 1024,
	}
}

// Option configures a TCP transport.
type Option func(*config)

// WithTLSConfig sets the TLS configuration for secure connections.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *config) { c.tlsConfig = cfg }
}

// WithRetryPolicy sets the retry policy for reconnection attempts. Only
// applies to Client. Default is exponential.FastRetryPolicy().
func WithRetryPolicy(policy exponential.Policy) Option {
	return func(c *config) { c.retryPolicy = policy }
}

// WithDialTimeout sets the timeout for connection establishment. Default is
// 30 seconds.
func WithDialTimeout(timeout time.Duration) Option {
	return func(c *config) { c.dialTimeout = timeout }
}

// WithReadBufferSize sets the read buffer size for bufio.Reader. Default is
// 64KB.
func WithReadBufferSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.readBufferSize = size
		}
	}
}

// WithWriteBufferSize sets the write buffer size for bufio.Writer. Default
// is 64KB.
func WithWriteBufferSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.writeBufferSize = size
		}
	}
}

// WithKeepAlive sets the keep-alive period for TCP connections. Default is
// 30 seconds. Zero selects Go's default period; a negative value disables
// keep-alives.
func WithKeepAlive(d time.Duration) Option {
	return func(c *config) { c.keepAlive = d }
}

// WithMaxFrameSize bounds the length prefix readFrame accepts. Default is
// 16MiB. Zero means unbounded.
func WithMaxFrameSize(n uint32) Option {
	return func(c *config) { c.maxFrameSize = n }
}

// SlowRetryPolicy returns a slower reconnect policy suitable for unreliable
// networks.
func SlowRetryPolicy() exponential.Policy {
	return exponential.SecondsRetryPolicy()
}
