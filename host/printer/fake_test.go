package printer

import (
	"testing"

	"niimctl/bitmap"
	"niimctl/protocol"
)

// fakePrinter is a scripted B1 on the far side of a serial port.
// It decodes every written frame and queues the replies its handlers return.
type fakePrinter struct {
	t *testing.T

	pending []byte
	sent    []protocol.Packet
	// bytes still unread by the host when each frame arrived
	pendingAtSend []int

	replies  map[protocol.Command]func(protocol.Packet) [][]byte
	writeErr error

	rowsSeen  int
	handshake bool
	flushed   int
	closed    bool
}

func frameOf(t *testing.T, cmd protocol.Command, payload ...byte) []byte {
	t.Helper()
	f, err := protocol.Encode(cmd, payload)
	if err != nil {
		t.Fatalf("encode %s: %v", cmd, err)
	}
	return f
}

func ack(t *testing.T, cmd protocol.Command) func(protocol.Packet) [][]byte {
	return func(protocol.Packet) [][]byte {
		return [][]byte{frameOf(t, cmd, 0x01)}
	}
}

func newFakePrinter(t *testing.T) *fakePrinter {
	f := &fakePrinter{t: t}
	f.replies = map[protocol.Command]func(protocol.Packet) [][]byte{
		protocol.CmdSetDensity:   ack(t, 0x31),
		protocol.CmdSetLabelType: ack(t, 0x33),
		protocol.CmdPrintStart:   ack(t, 0x02),
		protocol.CmdPageStart:    ack(t, 0x04),
		protocol.CmdSetPageSize:  ack(t, 0x14),
		protocol.CmdPageEnd:      ack(t, 0xE4),
		protocol.CmdStatusPoll: func(protocol.Packet) [][]byte {
			return [][]byte{frameOf(t, 0xB3, 0x00, 0x01, 0x00, 0x64, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)}
		},
	}
	return f
}

func (f *fakePrinter) Read(p []byte) (int, error) {
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakePrinter) Write(b []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	pkt, err := protocol.Decode(protocol.NewSliceInputBuffer(b))
	if err != nil {
		f.t.Fatalf("host wrote a bad frame % x: %v", b, err)
	}
	f.sent = append(f.sent, pkt)
	f.pendingAtSend = append(f.pendingAtSend, len(f.pending))

	switch pkt.Cmd {
	case protocol.CmdBlankRows:
		f.rowsSeen += int(pkt.Payload[2])
	case protocol.CmdPixelRow:
		f.rowsSeen += int(pkt.Payload[4])<<8 | int(pkt.Payload[5])
	}
	if h := f.replies[pkt.Cmd]; h != nil {
		for _, frame := range h(pkt) {
			f.pending = append(f.pending, frame...)
		}
	}
	// Once the whole raster is in, the printer emits two frames of its own
	if !f.handshake && f.rowsSeen >= bitmap.Height {
		f.handshake = true
		f.pending = append(f.pending, frameOf(f.t, 0xD3, 0x01)...)
		f.pending = append(f.pending, frameOf(f.t, 0xB3, 0x00, 0x00)...)
	}
	return len(b), nil
}

func (f *fakePrinter) Flush() error {
	f.flushed++
	return nil
}

func (f *fakePrinter) Close() error {
	f.closed = true
	return nil
}

func (f *fakePrinter) commands() []protocol.Command {
	cmds := make([]protocol.Command, len(f.sent))
	for i, p := range f.sent {
		cmds[i] = p.Cmd
	}
	return cmds
}

func (f *fakePrinter) count(cmd protocol.Command) int {
	n := 0
	for _, p := range f.sent {
		if p.Cmd == cmd {
			n++
		}
	}
	return n
}

// recordingObserver counts what a session reports
type recordingObserver struct {
	sent     map[protocol.Command]int
	bytes    int
	received int
	failed   []string
	onSent   func(protocol.Command)
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{sent: map[protocol.Command]int{}}
}

func (o *recordingObserver) FrameSent(cmd protocol.Command, bytes int) {
	o.sent[cmd]++
	o.bytes += bytes
	if o.onSent != nil {
		o.onSent(cmd)
	}
}

func (o *recordingObserver) FrameReceived(protocol.Command) {
	o.received++
}

func (o *recordingObserver) ExchangeFailed(step string, err error) {
	o.failed = append(o.failed, step)
}
