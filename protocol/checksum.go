package protocol

// Checksum calculates the frame checksum: the XOR of the opcode, the length
// byte and every payload byte, in that order
func Checksum(cmd Command, payload []byte) byte {
	sum := uint8(cmd) ^ uint8(len(payload))
	for _, b := range payload {
		sum ^= b
	}
	return sum
}
