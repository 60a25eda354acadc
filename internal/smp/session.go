package smp

import (
	"github.com/1ureka/serialmux/internal/util"
)

// Session multiplexes named logical channels over a single Stream. It is
// event driven: the owner calls Process with a millisecond clock and the
// session does everything else, from the sync handshake to dispatching
// received payloads to subscription callbacks.
//
// A Session is not safe for concurrent use. Drive it from one goroutine.
type Session struct {
	stream      Stream
	maxChannels int

	txChannels      []txChannel
	rxCallbacks     []ChannelCallback
	pendingChannels []pendingChannel

	numTxChannels      uint8
	numRxChannels      uint8
	numPendingChannels uint8

	isSynced         bool
	lastSyncCommand  uint32
	lastSyncResponse uint32

	rxBuf         [MaxFrameLen]byte
	receivedBytes uint8
	rxAttempts    uint8

	onSynced   func()
	onDesynced func()
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithMaxChannels sets the channel table capacity (1..255). Both peers must
// agree on the capacity, since it bounds the channel id space.
func WithMaxChannels(n int) Option {
	return func(s *Session) {
		if n >= 1 && n <= 255 {
			s.maxChannels = n
		}
	}
}

// New creates a session over stream. The session takes exclusive ownership
// of the stream until the session is discarded.
func New(stream Stream, opts ...Option) *Session {
	s := &Session{
		stream:      stream,
		maxChannels: DefaultMaxChannels,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.txChannels = make([]txChannel, s.maxChannels)
	s.rxCallbacks = make([]ChannelCallback, s.maxChannels)
	s.pendingChannels = make([]pendingChannel, s.maxChannels)
	return s
}

// Process runs one poll cycle: heartbeat bookkeeping first, then receive
// processing. now is a monotonic millisecond clock; it may wrap, the
// session only ever looks at differences.
func (s *Session) Process(now uint32) {
	s.heartbeat(now)
	s.processRxData()
}

// IsSynced reports whether the sync handshake with the peer is currently
// established.
func (s *Session) IsSynced() bool { return s.isSynced }

// NumTxChannels returns the number of published channels.
func (s *Session) NumTxChannels() uint8 { return s.numTxChannels }

// NumRxChannels returns the number of confirmed subscriptions.
func (s *Session) NumRxChannels() uint8 { return s.numRxChannels }

// OnSynced registers fn to run every time the session transitions from
// unsynced to synced.
func (s *Session) OnSynced(fn func()) { s.onSynced = fn }

// OnDesynced registers fn to run every time the session transitions from
// synced to unsynced.
func (s *Session) OnDesynced(fn func()) { s.onDesynced = fn }

// heartbeat emits a SYNC on the heartbeat period and drops sync when the
// previous SYNC went unanswered.
func (s *Session) heartbeat(now uint32) {
	period := uint32(HeartbeatPeriodUnsynced)
	if s.isSynced {
		period = HeartbeatPeriodSynced
	}
	if now-s.lastSyncCommand < period {
		return
	}

	// The previous SYNC was never answered.
	if s.lastSyncCommand != s.lastSyncResponse {
		s.setSynced(false)
	}

	p := controlPayload{command: cmdSync, timestamp: now}
	if s.send(ControlChannel, p.encode()) {
		s.lastSyncCommand = now
	}
}

// setSynced updates the sync state and fires the transition hooks.
func (s *Session) setSynced(synced bool) {
	if s.isSynced == synced {
		return
	}
	s.isSynced = synced
	if synced {
		util.LogDebug("smp: synced")
		if s.onSynced != nil {
			s.onSynced()
		}
	} else {
		util.LogDebug("smp: sync lost")
		if s.onDesynced != nil {
			s.onDesynced()
		}
	}
}

// SendData sends payload on a published channel. The payload length must
// equal the channel's DLC and the session must be synced.
func (s *Session) SendData(channel uint8, payload []byte) bool {
	if channel == ControlChannel || payload == nil || !s.isSynced {
		return false
	}
	return s.send(channel, payload)
}

// SendDataTo sends payload on the channel published under name.
func (s *Session) SendDataTo(name string, payload []byte) bool {
	channel := s.lookupTx(makeChannelName(name))
	if channel == 0 {
		return false
	}
	return s.SendData(channel, payload)
}

// txChannelDLC returns the expected payload length for a channel id, or 0
// for an id that carries no channel.
func (s *Session) txChannelDLC(channel uint8) uint8 {
	if channel == ControlChannel {
		return ControlPayloadLen
	}
	if int(channel) <= s.maxChannels {
		return s.txChannels[channel-1].dlc
	}
	return 0
}

// send frames and writes a payload. Control frames may go out unsynced;
// everything else requires sync. A short write fails the frame.
func (s *Session) send(channel uint8, payload []byte) bool {
	dlc := s.txChannelDLC(channel)
	if dlc == 0 || payload == nil || len(payload) != int(dlc) {
		return false
	}
	if !s.isSynced && channel != ControlChannel {
		return false
	}

	frame := EncodeFrame(channel, payload)
	n, err := s.stream.Write(frame)
	if err != nil || n != len(frame) {
		return false
	}
	util.Stats.AddTxFrame()
	util.Stats.AddSent(n)
	return true
}
