package protocol

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// DefaultResponseTimeout bounds every byte read while waiting for a reply
const DefaultResponseTimeout = 1 * time.Second

// idlePoll is how long to back off when the port returns no data
const idlePoll = time.Millisecond

// HostTransport speaks the packet protocol over a serial port.
// It is strictly request/response: one goroutine sends a frame and then,
// if the command has a reply, decodes the reply before anything else is sent.
type HostTransport struct {
	// Serial I/O
	port io.ReadWriteCloser

	// Per-byte read timeout
	timeout time.Duration

	// Bytes read from the port but not yet consumed by a decoder
	input   *FifoBuffer
	readBuf []byte
}

// NewHostTransport creates a new host-side transport
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	return &HostTransport{
		port:    port,
		timeout: DefaultResponseTimeout,
		input:   NewFifoBuffer(2 * MaxFrame),
		readBuf: make([]byte, MaxFrame),
	}
}

// SetTimeout changes the read timeout used while waiting for a reply
func (t *HostTransport) SetTimeout(timeout time.Duration) {
	t.timeout = timeout
}

// Timeout returns the current read timeout
func (t *HostTransport) Timeout() time.Duration {
	return t.timeout
}

// Send encodes one frame and writes it to the port
func (t *HostTransport) Send(cmd Command, payload []byte) error {
	frame, err := Encode(cmd, payload)
	if err != nil {
		return fmt.Errorf("failed to build %s frame: %w", cmd, err)
	}

	n, err := t.port.Write(frame)
	if err != nil {
		return fmt.Errorf("failed to write %s frame: %w", cmd, err)
	}
	if n != len(frame) {
		return fmt.Errorf("incomplete write of %s frame: %d/%d bytes", cmd, n, len(frame))
	}

	return nil
}

// Receive decodes the next frame from the port
func (t *HostTransport) Receive() (Packet, error) {
	return Decode(t)
}

// ReadByte returns the next byte from the port, or ErrTimeout when nothing
// arrives within the transport timeout.
// A zero-length read is treated as "nothing yet": tarm/serial reports its
// VTIME expiry as io.EOF and go.bug.st/serial as (0, nil).
func (t *HostTransport) ReadByte() (byte, error) {
	var one [1]byte
	if !t.input.IsEmpty() {
		t.input.Read(one[:])
		return one[0], nil
	}

	deadline := time.Now().Add(t.timeout)
	for {
		// Never pull more from the port than the ring can hold
		n, err := t.port.Read(t.readBuf[:min(len(t.readBuf), t.input.Free())])
		if n > 0 {
			t.input.Write(t.readBuf[:n])
			t.input.Read(one[:])
			return one[0], nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("serial read failed: %w", err)
		}
		if !time.Now().Before(deadline) {
			return 0, ErrTimeout
		}
		time.Sleep(idlePoll)
	}
}

// Reset drops any buffered input bytes and returns how many were dropped
func (t *HostTransport) Reset() int {
	return t.input.Pop(t.input.Available())
}

// Close closes the underlying port
func (t *HostTransport) Close() error {
	if t.port != nil {
		return t.port.Close()
	}
	return nil
}
