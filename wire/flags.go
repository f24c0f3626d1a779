// Package wire implements the frame format and flag semantics shared by
// every Rpc: seq, command string, type-flag byte, opaque payload.
package wire

import "fmt"

// Flags is the 8-bit type tag carried on every frame. Bits combine.
type Flags uint8

const (
	// Command marks an outbound call carrying a command name.
	Command Flags = 1 << iota
	// Response marks a reply, matched to its request by Seq.
	Response
	// NeedRsp marks a Command that expects a Response.
	NeedRsp
	// Ping marks a liveness Command.
	Ping
	// Pong marks the Response to a Ping.
	Pong
	// NoSuchCmd marks a Response synthesized because no handler matched.
	NoSuchCmd
)

const knownFlags = Command | Response | NeedRsp | Ping | Pong | NoSuchCmd

// Has reports whether all bits in want are set.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// Validate checks the invariants from the data model: exactly one of
// Command/Response, Ping implies Command, Pong/NoSuchCmd imply Response, and
// no reserved bit is set.
func (f Flags) Validate() error {
	if f&^knownFlags != 0 {
		return fmt.Errorf("wire: unknown flag bits set: %#x", f&^knownFlags)
	}
	isCmd := f.Has(Command)
	isRsp := f.Has(Response)
	if isCmd == isRsp {
		return fmt.Errorf("wire: exactly one of Command/Response must be set, got %#x", f)
	}
	if f.Has(Ping) && !isCmd {
		return fmt.Errorf("wire: Ping requires Command, got %#x", f)
	}
	if f.Has(Pong) && !isRsp {
		return fmt.Errorf("wire: Pong requires Response, got %#x", f)
	}
	if f.Has(NoSuchCmd) && !isRsp {
		return fmt.Errorf("wire: NoSuchCmd requires Response, got %#x", f)
	}
	return nil
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	s := ""
	add := func(bit Flags, name string) {
		if f.Has(bit) {
			if s != "" {
				s += "|"
			}
			s += name
		}
	}
	add(Command, "Command")
	add(Response, "Response")
	add(NeedRsp, "NeedRsp")
	add(Ping, "Ping")
	add(Pong, "Pong")
	add(NoSuchCmd, "NoSuchCmd")
	return s
}
