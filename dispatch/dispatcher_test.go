package dispatch

import (
	"testing"
	"time"

	"github.com/shuai132/rpc-core/conn"
	"github.com/shuai132/rpc-core/wire"
)

func TestCommandDispatchToHandler(t *testing.T) {
	a, b := conn.NewLoopbackPair()
	da := New(a)
	_ = New(b)

	var gotCmd string
	var gotData []byte
	da.SubscribeCmd("echo", func(msg *wire.Message) *wire.Message {
		gotCmd = msg.Cmd
		gotData = msg.Data
		return &wire.Message{Data: msg.Data}
	})

	enc, err := wire.Encode(&wire.Message{Seq: 1, Cmd: "echo", Type: wire.Command | wire.NeedRsp, Data: []byte("hi")})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	a.OnRecv(enc) // simulate a's own dispatcher decoding a frame "received" on a

	if gotCmd != "echo" || string(gotData) != "hi" {
		t.Fatalf("handler not invoked correctly: cmd=%q data=%q", gotCmd, gotData)
	}
}

func TestNoSuchCmdReply(t *testing.T) {
	a, b := conn.NewLoopbackPair()
	New(a)
	New(b)

	var gotReply *wire.Message
	b.SetRecvImpl(func(buf []byte) {
		m, err := wire.Decode(buf)
		if err != nil {
			t.Fatalf("Decode reply: %v", err)
		}
		gotReply = m
	})

	enc, _ := wire.Encode(&wire.Message{Seq: 7, Cmd: "missing", Type: wire.Command | wire.NeedRsp})
	b.Send(enc) // b "sends" to a, a's dispatcher handles and replies back through a.Send -> b.OnRecv

	if gotReply == nil {
		t.Fatalf("expected a NoSuchCmd reply, got none")
	}
	if !gotReply.Type.Has(wire.Response) || !gotReply.Type.Has(wire.NoSuchCmd) {
		t.Fatalf("got type %v, want Response|NoSuchCmd", gotReply.Type)
	}
	if gotReply.Seq != 7 {
		t.Fatalf("got seq %d, want 7", gotReply.Seq)
	}
}

func TestNoSuchCmdSilentWithoutNeedRsp(t *testing.T) {
	a, b := conn.NewLoopbackPair()
	New(a)
	New(b)

	replied := false
	b.SetRecvImpl(func(buf []byte) { replied = true })

	enc, _ := wire.Encode(&wire.Message{Seq: 7, Cmd: "missing", Type: wire.Command})
	b.Send(enc)

	if replied {
		t.Fatalf("expected no reply for NeedRsp-less miss")
	}
}

func TestPingPongEchoesData(t *testing.T) {
	a, b := conn.NewLoopbackPair()
	New(a)
	New(b)

	var gotPong *wire.Message
	b.SetRecvImpl(func(buf []byte) {
		m, err := wire.Decode(buf)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		gotPong = m
	})

	enc, _ := wire.Encode(&wire.Message{Seq: 5, Type: wire.Command | wire.Ping | wire.NeedRsp, Data: []byte("hello")})
	b.Send(enc)

	if gotPong == nil {
		t.Fatalf("expected a pong")
	}
	if !gotPong.Type.Has(wire.Response) || !gotPong.Type.Has(wire.Pong) {
		t.Fatalf("got type %v, want Response|Pong", gotPong.Type)
	}
	if string(gotPong.Data) != "hello" {
		t.Fatalf("pong data = %q, want echo of ping data %q", gotPong.Data, "hello")
	}
}

func TestResponseMatchesPendingBySeq(t *testing.T) {
	a, b := conn.NewLoopbackPair()
	da := New(a)
	New(b)

	handled := make(chan *wire.Message, 1)
	da.SubscribeRsp(42, func(msg *wire.Message) bool {
		handled <- msg
		return true
	}, func() {}, 1000)

	enc, _ := wire.Encode(&wire.Message{Seq: 42, Type: wire.Response, Data: []byte("reply")})
	a.OnRecv(enc)

	select {
	case m := <-handled:
		if string(m.Data) != "reply" {
			t.Fatalf("got %q, want %q", m.Data, "reply")
		}
	default:
		t.Fatalf("rsp handle was not invoked")
	}
}

func TestResponseWithNoPendingEntryIsDropped(t *testing.T) {
	a, _ := conn.NewLoopbackPair()
	da := New(a)
	enc, _ := wire.Encode(&wire.Message{Seq: 99, Type: wire.Response})
	// must not panic despite no pending entry
	da.handleIncoming(enc)
}

func TestSubscribeRspTimeoutFires(t *testing.T) {
	a, _ := conn.NewLoopbackPair()
	da := New(a)
	da.SetTimerImpl(func(delayMs uint32, cb func()) func() {
		timer := time.AfterFunc(time.Duration(delayMs)*time.Millisecond, cb)
		return func() { timer.Stop() }
	})

	fired := make(chan struct{}, 1)
	da.SubscribeRsp(1, func(msg *wire.Message) bool { return true }, func() {
		fired <- struct{}{}
	}, 10)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("timeout callback never fired")
	}
}

func TestSubscribeRspTimeoutCanceledByResponse(t *testing.T) {
	a, _ := conn.NewLoopbackPair()
	da := New(a)
	var canceled bool
	da.SetTimerImpl(func(delayMs uint32, cb func()) func() {
		timer := time.AfterFunc(time.Duration(delayMs)*time.Millisecond, cb)
		return func() {
			canceled = timer.Stop()
		}
	})

	da.SubscribeRsp(1, func(msg *wire.Message) bool { return true }, func() {
		t.Fatalf("timeout should not fire once response arrived")
	}, 10_000)

	enc, _ := wire.Encode(&wire.Message{Seq: 1, Type: wire.Response})
	da.handleIncoming(enc)

	if !canceled {
		t.Fatalf("expected the timeout timer to be canceled on response arrival")
	}
}
