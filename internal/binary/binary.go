// Package binary provides little-endian fixed-width integer encoding over
// byte slices using generics, for the handful of fixed-width fields the wire
// frame format needs (seq, cmd_len, the type byte).
package binary

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/exp/constraints"
)

// Get decodes a little-endian integer of T's width from the front of b.
func Get[T constraints.Integer](b []byte) T {
	_ = b[len(b)-1] // bounds check hint to compiler; see golang.org/issue/14808

	var r T // used only for type detection
	switch any(r).(type) {
	case int8:
		return T(int8(b[0]))
	case int16:
		return T(int16(uint16(b[0]) | uint16(b[1])<<8))
	case int32:
		return T(int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24))
	case int64:
		return T(int64(uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
			uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56))
	case uint8:
		return T(uint8(b[0]))
	case uint16:
		return T(uint16(b[0]) | uint16(b[1])<<8)
	case uint32:
		return T(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
	case uint64:
		return T(uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
			uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56)
	}
	panic(fmt.Sprintf("unsupported type that passed the type constraint %T", r))
}

// Put encodes v as a little-endian integer into the front of b. b must be at
// least as wide as T.
func Put[T constraints.Integer](b []byte, v T) {
	switch any(v).(type) {
	case int8, uint8:
		b[0] = byte(v)
		return
	case int16, uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
		return
	case int32, uint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
		return
	}
	binary.LittleEndian.PutUint64(b, uint64(v))
}
