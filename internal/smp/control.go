package smp

import "encoding/binary"

// Control payload field offsets. The payload is always ControlPayloadLen
// bytes; unused name bytes are NUL.
const (
	ctrlCommandIdx   = 0
	ctrlTimestampIdx = 1
	ctrlChannelIdx   = 5
	ctrlNameIdx      = 6
)

// controlPayload is a decoded control channel payload. Timestamps travel
// big-endian on the wire.
type controlPayload struct {
	command   uint8
	timestamp uint32
	channel   uint8
	name      channelName
}

func (p controlPayload) encode() []byte {
	buf := make([]byte, ControlPayloadLen)
	buf[ctrlCommandIdx] = p.command
	binary.BigEndian.PutUint32(buf[ctrlTimestampIdx:], p.timestamp)
	buf[ctrlChannelIdx] = p.channel
	copy(buf[ctrlNameIdx:], p.name[:])
	return buf
}

// parseControlPayload decodes a control channel payload. Anything that is
// not exactly ControlPayloadLen bytes is rejected.
func parseControlPayload(raw []byte) (controlPayload, bool) {
	if len(raw) != ControlPayloadLen {
		return controlPayload{}, false
	}
	p := controlPayload{
		command:   raw[ctrlCommandIdx],
		timestamp: binary.BigEndian.Uint32(raw[ctrlTimestampIdx:]),
		channel:   raw[ctrlChannelIdx],
	}
	copy(p.name[:], raw[ctrlNameIdx:ctrlNameIdx+ChannelNameMaxLen])
	return p, true
}
