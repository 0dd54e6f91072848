// Package protocol implements the NiimBot B1 serial packet protocol
package protocol

import "fmt"

// Version is the niimctl release, reported by --version
const Version = "0.1.0"

// Frame layout constants
const (
	FrameHeader     = 0x55 // Both preamble bytes
	FrameTrailer    = 0xAA // Both trailer bytes
	FrameHeaderSize = 4    // 0x55 0x55 cmd len
	FrameTailSize   = 3    // checksum 0xAA 0xAA
	FrameOverhead   = FrameHeaderSize + FrameTailSize
	MaxPayload      = 255 // Length field is a single byte
	MaxFrame        = MaxPayload + FrameOverhead
)

// Command is a one-byte protocol opcode
type Command uint8

// Commands sent by the host. Replies come back with device-chosen opcodes.
const (
	CmdPrintStart   Command = 0x01
	CmdPageStart    Command = 0x03
	CmdSetPageSize  Command = 0x13
	CmdSetDensity   Command = 0x21
	CmdSetLabelType Command = 0x23
	CmdBlankRows    Command = 0x84
	CmdPixelRow     Command = 0x85
	CmdStatusPoll   Command = 0xA3
	CmdPageEnd      Command = 0xE3
	CmdPrintEnd     Command = 0xF3
)

func (c Command) String() string {
	switch c {
	case CmdPrintStart:
		return "print_start"
	case CmdPageStart:
		return "page_start"
	case CmdSetPageSize:
		return "set_page_size"
	case CmdSetDensity:
		return "set_density"
	case CmdSetLabelType:
		return "set_label_type"
	case CmdBlankRows:
		return "blank_rows"
	case CmdPixelRow:
		return "pixel_row"
	case CmdStatusPoll:
		return "status_poll"
	case CmdPageEnd:
		return "page_end"
	case CmdPrintEnd:
		return "print_end"
	}
	return fmt.Sprintf("0x%02x", uint8(c))
}

// Packet is a decoded (command, payload) pair
type Packet struct {
	Cmd     Command
	Payload []byte
}

func (p Packet) String() string {
	return fmt.Sprintf("%s[% x]", p.Cmd, p.Payload)
}
