package printer

import (
	"fmt"

	"niimctl/protocol"
)

// StatusFields is the number of 16-bit values in a status reply
const StatusFields = 5

// Status is one decoded status-poll reply. The meaning of the individual
// fields has not been established, so they are kept as raw values.
type Status [StatusFields]uint16

func (s Status) String() string {
	return fmt.Sprintf("%d/%d/%d/%d/%d", s[0], s[1], s[2], s[3], s[4])
}

// ParseStatus decodes the five big-endian fields of a status reply.
// Trailing bytes beyond the five fields are ignored.
func ParseStatus(payload []byte) (Status, error) {
	var st Status
	data := payload
	for i := range st {
		v, err := protocol.DecodeUint16(&data)
		if err != nil {
			return Status{}, fmt.Errorf("%w: status reply has %d bytes, want %d", ErrProtocolSequence, len(payload), 2*StatusFields)
		}
		st[i] = v
	}
	return st, nil
}
