// Package smp implements the SerialMuxProt session: named logical channels
// with fixed-size payloads multiplexed over a single byte-oriented
// point-to-point link. Two peers run symmetric sessions; each publishes
// channels the other subscribes to by name.
package smp

// Wire format constants. These must match the peer byte for byte.
const (
	// HeaderLen is the frame header size: channel id (1) + DLC (1) + checksum (1).
	HeaderLen = 3

	// MaxDataLen is the maximum payload size of a single frame.
	MaxDataLen = 32

	// MaxFrameLen is the maximum total frame size on the wire.
	MaxFrameLen = HeaderLen + MaxDataLen

	// ChannelNameMaxLen is the maximum channel name length in bytes.
	// Names are not required to be NUL-terminated on the wire.
	ChannelNameMaxLen = 10

	// ControlChannel is the channel id reserved for SYNC/SCRB traffic.
	ControlChannel = 0

	// ControlPayloadLen is the fixed DLC of control channel frames:
	// command (1) + timestamp (4) + channel number (1) + channel name (10).
	ControlPayloadLen = 16
)

// Heartbeat periods in milliseconds.
const (
	HeartbeatPeriodUnsynced = 1000
	HeartbeatPeriodSynced   = 5000
)

// maxRxAttempts bounds how many polls a partially received frame may span
// before the rx buffer is reset. This keeps a spurious valid-looking header
// that promises more bytes than will ever arrive from wedging the receiver.
const maxRxAttempts = MaxFrameLen

// Control channel command bytes.
const (
	cmdSync    uint8 = 0x00
	cmdSyncRsp uint8 = 0x01
	cmdScrb    uint8 = 0x02
	cmdScrbRsp uint8 = 0x03
)

// DefaultMaxChannels is the channel table capacity used when no explicit
// capacity is configured. Both peers must agree on the channel id space.
const DefaultMaxChannels = 10
