package tcp

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/shuai132/rpc-core/internal/binary"
)

// lengthPrefixSize is the width of the frame-length header written ahead of
// every wire.Encode'd message: rpc-core's own frame format (package wire)
// has no outer length field, since Connection.Send/OnRecv already operate
// on whole frames. A byte-stream transport like TCP has no message
// boundaries of its own, so this package adds one: a 4-byte little-endian
// length prefix ahead of each wire frame.
const lengthPrefixSize = 4

// errFrameTooLarge is returned by readFrame when a peer declares a frame
// length exceeding the configured maxFrameSize, guarding against a
// corrupted or malicious length header driving an unbounded allocation.
var errFrameTooLarge = errors.New("tcp: frame exceeds configured max size")

// writeFrame writes b prefixed with its little-endian length, then flushes.
func writeFrame(w *bufio.Writer, b []byte) error {
	var prefix [lengthPrefixSize]byte
	binary.Put(prefix[:], uint32(len(b)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	return w.Flush()
}

// readFrame reads one length-prefixed frame from r. maxFrameSize bounds the
// declared length; 0 means no bound.
func readFrame(r *bufio.Reader, maxFrameSize uint32) ([]byte, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.Get[uint32](prefix[:])
	if maxFrameSize > 0 && n > maxFrameSize {
		return nil, fmt.Errorf("%w: declared %d bytes, max %d", errFrameTooLarge, n, maxFrameSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
