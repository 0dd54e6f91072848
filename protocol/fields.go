package protocol

import "errors"

var (
	ErrBufferTooSmall = errors.New("buffer too small for field")
)

// EncodeUint8 writes a single byte field
func EncodeUint8(output OutputBuffer, v uint8) {
	output.Output([]byte{v})
}

// EncodeUint16 writes a big-endian 16-bit field
func EncodeUint16(output OutputBuffer, v uint16) {
	output.Output([]byte{byte(v >> 8), byte(v)})
}

// EncodeUint32 writes a big-endian 32-bit field
func EncodeUint32(output OutputBuffer, v uint32) {
	output.Output([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// DecodeUint16 reads a big-endian 16-bit field
// The data slice is advanced past the consumed bytes
func DecodeUint16(data *[]byte) (uint16, error) {
	if len(*data) < 2 {
		return 0, ErrBufferTooSmall
	}
	v := uint16((*data)[0])<<8 | uint16((*data)[1])
	*data = (*data)[2:]
	return v, nil
}
