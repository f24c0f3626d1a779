package wire

import (
	"fmt"

	"github.com/shuai132/rpc-core/internal/binary"
)

// MinFrameLen is the shortest legal encoded frame: seq(4) + cmd_len(2) +
// cmd(0) + type(1) + data(0).
const MinFrameLen = 7

// Encode serializes m as seq(u32 LE) ‖ cmd_len(u16 LE) ‖ cmd ‖ type(u8) ‖ data.
func Encode(m *Message) ([]byte, error) {
	if err := m.Type.Validate(); err != nil {
		return nil, err
	}
	cmd := []byte(m.Cmd)
	if len(cmd) > 0xFFFF {
		return nil, fmt.Errorf("wire: cmd too long: %d bytes", len(cmd))
	}
	data := m.payload()

	buf := make([]byte, 4+2+len(cmd)+1+len(data))
	binary.Put(buf[0:4], m.Seq)
	binary.Put(buf[4:6], uint16(len(cmd)))
	copy(buf[6:6+len(cmd)], cmd)
	off := 6 + len(cmd)
	binary.Put(buf[off:off+1], uint8(m.Type))
	copy(buf[off+1:], data)
	return buf, nil
}

// Decode parses a frame previously produced by Encode. It fails with a
// "short frame" error if len(b) < MinFrameLen, and rejects any flag byte
// carrying a reserved bit.
func Decode(b []byte) (*Message, error) {
	if len(b) < MinFrameLen {
		return nil, fmt.Errorf("wire: short frame: %d bytes, need at least %d", len(b), MinFrameLen)
	}
	seq := binary.Get[uint32](b[0:4])
	cmdLen := binary.Get[uint16](b[4:6])
	need := 6 + int(cmdLen) + 1
	if len(b) < need {
		return nil, fmt.Errorf("wire: short frame: declares cmd_len %d but only %d bytes follow header", cmdLen, len(b)-6)
	}
	cmd := string(b[6 : 6+int(cmdLen)])
	typeByte := binary.Get[uint8](b[6+int(cmdLen) : 6+int(cmdLen)+1])
	flags := Flags(typeByte)
	if err := flags.Validate(); err != nil {
		return nil, err
	}
	data := b[need:]
	out := make([]byte, len(data))
	copy(out, data)
	return &Message{Seq: seq, Cmd: cmd, Type: flags, Data: out}, nil
}
