// Package compress provides optional compression for rpc-core payloads. It
// includes built-in compressors for gzip, snappy, and zstd, and supports
// custom compressor registration. Unlike the wire codec (package wire),
// compression is opt-in: the caller explicitly wraps outgoing data with
// Wrap and the receiver explicitly unwraps it with Unwrap; the core
// frame format (package wire) never changes shape.
package compress

import (
	"fmt"

	"github.com/gostdlib/base/concurrency/sync"
)

// Compression identifies a compression algorithm on the wire. It travels as
// a one-byte prefix inside a Request's opaque Data payload, so values must
// fit in a byte.
type Compression uint8

const (
	// CmpNone means the payload is not compressed.
	CmpNone Compression = iota
	// CmpGzip means the payload is compressed with gzip.
	CmpGzip
	// CmpSnappy means the payload is compressed with Snappy.
	CmpSnappy
	// CmpZstd means the payload is compressed with Zstandard.
	CmpZstd
)

// Compressor defines the interface for compression algorithms.
type Compressor interface {
	// Compress compresses data. Returns compressed data or error.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data. Returns original data or error.
	Decompress(data []byte) ([]byte, error)

	// Type returns the compression type for the wire protocol.
	Type() Compression
}

var (
	registry   = map[Compression]Compressor{}
	registryMu sync.RWMutex
)

// Register adds a compressor to the registry. This can be used to register
// custom compressors or override built-in compressors. Thread-safe.
func Register(c Compressor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Type()] = c
}

// Get returns the compressor for the given type, or nil if not found.
func Get(t Compression) Compressor {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[t]
}

func init() {
	Register(&Gzip{})
	Register(&Snappy{})
	Register(&Zstd{})
}

// Wrap compresses data with the algorithm t and prefixes the result with a
// one-byte tag identifying t, so Unwrap can recover the algorithm without an
// out-of-band channel. CmpNone always round-trips data unchanged aside from
// the tag byte.
func Wrap(t Compression, data []byte) ([]byte, error) {
	if t == CmpNone || len(data) == 0 {
		out := make([]byte, 1+len(data))
		out[0] = byte(CmpNone)
		copy(out[1:], data)
		return out, nil
	}
	c := Get(t)
	if c == nil {
		return nil, fmt.Errorf("compress: no compressor registered for type %d", t)
	}
	compressed, err := c.Compress(data)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(compressed))
	out[0] = byte(t)
	copy(out[1:], compressed)
	return out, nil
}

// Unwrap reads the one-byte compression tag written by Wrap and decompresses
// the remainder accordingly. Returns an error if data is empty or the tag's
// compressor isn't registered.
func Unwrap(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("compress: empty payload has no tag byte")
	}
	t := Compression(data[0])
	rest := data[1:]
	if t == CmpNone {
		return rest, nil
	}
	c := Get(t)
	if c == nil {
		return nil, fmt.Errorf("compress: no compressor registered for type %d", t)
	}
	return c.Decompress(rest)
}
