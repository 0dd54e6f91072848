// This file builds the payloads of the commands a print job sends.
// Multi-byte fields are big-endian.
package printer

import (
	"niimctl/bitmap"
	"niimctl/protocol"
)

// Sets print darkness, 1 (light) to 5 (dark)
func setDensity(d Density) []byte {
	return []byte{byte(d)}
}

// Selects the label stock; the B1 accepts 1, 2 or 3
func setLabelType(l LabelType) []byte {
	return []byte{byte(l)}
}

// Starts a job. The B1 wants the 7 byte variant: page count, four reserved
// bytes and a reserved page colour byte.
func printStart(pages uint16) []byte {
	out := protocol.NewScratchOutput()
	protocol.EncodeUint16(out, pages)
	protocol.EncodeUint32(out, 0)
	protocol.EncodeUint8(out, 0)
	return out.Result()
}

func pageStart() []byte {
	return []byte{0x01}
}

// Declares the raster of the page that follows
func setPageSize(rows, cols, copies uint16) []byte {
	out := protocol.NewScratchOutput()
	protocol.EncodeUint16(out, rows)
	protocol.EncodeUint16(out, cols)
	protocol.EncodeUint16(out, copies)
	return out.Result()
}

// Skips a run of empty rows
func blankRows(r bitmap.BlankRun) []byte {
	out := protocol.NewScratchOutput()
	protocol.EncodeUint16(out, uint16(r.Start))
	protocol.EncodeUint8(out, uint8(r.Count))
	return out.Result()
}

// Sends one row of pixels: row number, ink pixel count, repeat count, then
// the packed row
func pixelRow(r bitmap.PixelRow) []byte {
	out := protocol.NewScratchOutput()
	protocol.EncodeUint16(out, uint16(r.Row))
	protocol.EncodeUint16(out, uint16(r.SetBits))
	protocol.EncodeUint16(out, uint16(r.Repeat))
	out.Output(r.Data[:])
	return out.Result()
}

func pageEnd() []byte {
	return []byte{0x01}
}

func statusPoll() []byte {
	return nil
}

func printEnd() []byte {
	return []byte{0x01}
}
