package protocol

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrTimeout          = errors.New("no data within timeout")
	ErrFraming          = errors.New("malformed frame")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrPayloadTooLong   = errors.New("payload too long")
)

// Encode builds the wire frame for cmd and payload:
// 0x55 0x55 cmd len payload... checksum 0xAA 0xAA
func Encode(cmd Command, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLong, len(payload), MaxPayload)
	}

	out := NewScratchOutput()
	out.Output([]byte{FrameHeader, FrameHeader})

	body := out.CurPosition()
	EncodeUint8(out, uint8(cmd))
	EncodeUint8(out, uint8(len(payload)))
	out.Output(payload)

	var sum byte
	for _, b := range out.DataSince(body) {
		sum ^= b
	}
	out.Output([]byte{sum, FrameTrailer, FrameTrailer})

	return out.Result(), nil
}

// rxState is the receive position inside one frame
type rxState uint8

const (
	stateIdle rxState = iota
	stateStarted
	stateReadCmd
	stateReadLen
	stateReadPayload
	stateReadChecksum
	stateReadTrailer1
	stateReadTrailer2
	stateDone
)

func (s rxState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateStarted:
		return "started"
	case stateReadCmd:
		return "cmd"
	case stateReadLen:
		return "len"
	case stateReadPayload:
		return "payload"
	case stateReadChecksum:
		return "checksum"
	case stateReadTrailer1:
		return "trailer1"
	case stateReadTrailer2:
		return "trailer2"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// receiver holds the state of a single decode attempt
type receiver struct {
	state   rxState
	cmd     Command
	length  int
	payload []byte
	sum     byte
}

// step consumes one byte and advances the state machine
func (r *receiver) step(b byte) error {
	switch r.state {
	case stateIdle:
		if b == FrameHeader {
			r.state = stateStarted
		}

	case stateStarted:
		if b == FrameHeader {
			r.state = stateReadCmd
		} else {
			// Lone preamble byte, resynchronise
			r.state = stateIdle
		}

	case stateReadCmd:
		r.cmd = Command(b)
		r.sum = b
		r.state = stateReadLen

	case stateReadLen:
		r.length = int(b)
		r.sum ^= b
		r.payload = make([]byte, 0, r.length)
		if r.length == 0 {
			r.state = stateReadChecksum
		} else {
			r.state = stateReadPayload
		}

	case stateReadPayload:
		r.payload = append(r.payload, b)
		r.sum ^= b
		if len(r.payload) == r.length {
			r.state = stateReadChecksum
		}

	case stateReadChecksum:
		if b != r.sum {
			return fmt.Errorf("%w: got 0x%02x, calculated 0x%02x", ErrChecksumMismatch, b, r.sum)
		}
		r.state = stateReadTrailer1

	case stateReadTrailer1:
		if b != FrameTrailer {
			return fmt.Errorf("%w: first trailer byte 0x%02x", ErrFraming, b)
		}
		r.state = stateReadTrailer2

	case stateReadTrailer2:
		if b != FrameTrailer {
			return fmt.Errorf("%w: second trailer byte 0x%02x", ErrFraming, b)
		}
		r.state = stateDone
	}
	return nil
}

// Decode reads one frame from r, one byte at a time.
// Bytes before the preamble are discarded. Every call starts from a fresh
// receiver, so a failed attempt never leaks state into the next one.
func Decode(r io.ByteReader) (Packet, error) {
	rx := receiver{state: stateIdle}

	for rx.state != stateDone {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				return Packet{}, fmt.Errorf("waiting in state %s: %w", rx.state, err)
			}
			return Packet{}, err
		}
		if err := rx.step(b); err != nil {
			return Packet{}, err
		}
	}

	return Packet{Cmd: rx.cmd, Payload: rx.payload}, nil
}
