package smp

import (
	"github.com/1ureka/serialmux/internal/util"
)

// processRxData advances the receive state machine by whatever the stream
// has buffered. A frame may span several polls; the header is read first,
// then as much of the payload as the DLC promises. A frame that fails to
// complete within maxRxAttempts polls is discarded so a corrupt header
// cannot wedge the receiver.
func (s *Session) processRxData() {
	expectedBytes := uint8(0)
	dlc := uint8(0)
	expectingHeader := false

	if s.receivedBytes < HeaderLen {
		expectedBytes = HeaderLen - s.receivedBytes
		expectingHeader = true
	} else {
		dlc = s.rxBuf[frameDLCIdx]
		// The counter is incremented after each empty wait for payload
		// bytes, so a stalled frame survives exactly maxRxAttempts+1 polls
		// before this fires.
		if dlc == 0 || dlc > MaxDataLen || s.rxAttempts > maxRxAttempts {
			s.resetRx()
			return
		}
		expectedBytes = HeaderLen + dlc - s.receivedBytes
	}

	if expectedBytes == 0 {
		s.resetRx()
		return
	}

	if !s.readInto(expectedBytes) {
		return
	}

	if expectingHeader && s.receivedBytes == HeaderLen {
		// Header complete. The payload may already be buffered too; read it
		// in the same poll so a frame delivered in one burst is dispatched
		// without an extra Process call.
		dlc = s.rxBuf[frameDLCIdx]
		if dlc == 0 || dlc > MaxDataLen {
			s.resetRx()
			return
		}
		if !s.readInto(dlc) {
			return
		}
	}

	if dlc != 0 && s.receivedBytes == HeaderLen+dlc {
		s.dispatchFrame(s.rxBuf[:s.receivedBytes])
		s.receivedBytes = 0
		s.rxAttempts = 0
	}
}

// readInto reads exactly n more bytes into the rx buffer, if the stream has
// them buffered. Returns false when the bytes are not yet available, in
// which case the attempt is counted once a header is held; idle waits for
// a header are not counted.
func (s *Session) readInto(n uint8) bool {
	if int(n) > s.stream.Available() {
		if s.receivedBytes >= HeaderLen {
			s.rxAttempts++
		}
		return false
	}
	read, err := s.stream.Read(s.rxBuf[s.receivedBytes : s.receivedBytes+n])
	if err != nil {
		s.resetRx()
		return false
	}
	util.Stats.AddRecv(read)
	s.receivedBytes += uint8(read)
	return uint8(read) == n
}

func (s *Session) resetRx() {
	s.receivedBytes = 0
	s.rxAttempts = 0
	util.Stats.AddRxReset()
}

// dispatchFrame validates a complete raw frame and routes its payload.
func (s *Session) dispatchFrame(raw []byte) {
	channel, payload, ok := DecodeFrame(raw)
	if !ok {
		util.Stats.AddChecksumErr()
		util.LogDebug("smp: dropping frame with bad checksum on channel %d", raw[frameChannelIdx])
		return
	}
	util.Stats.AddRxFrame()

	if channel == ControlChannel {
		s.handleControl(payload)
		return
	}
	if int(channel) > s.maxChannels {
		util.LogDebug("smp: dropping frame for out-of-range channel %d", channel)
		return
	}
	if cb := s.rxCallbacks[channel-1]; cb != nil {
		cb(payload)
	}
}

// handleControl processes one control channel payload. Unknown commands
// are ignored for forward compatibility.
func (s *Session) handleControl(payload []byte) {
	p, ok := parseControlPayload(payload)
	if !ok {
		return
	}

	switch p.command {
	case cmdSync:
		rsp := controlPayload{command: cmdSyncRsp, timestamp: p.timestamp}
		s.send(ControlChannel, rsp.encode())

	case cmdSyncRsp:
		if p.timestamp == s.lastSyncCommand {
			s.lastSyncResponse = s.lastSyncCommand
			s.setSynced(true)
			s.drainPending()
		} else {
			s.setSynced(false)
		}

	case cmdScrb:
		rsp := controlPayload{
			command: cmdScrbRsp,
			channel: s.lookupTx(p.name),
			name:    p.name,
		}
		if !s.send(ControlChannel, rsp.encode()) {
			s.setSynced(false)
		}

	case cmdScrbRsp:
		s.handleScrbRsp(p)
	}
}

// handleScrbRsp binds a confirmed subscription. A response with channel 0
// means the peer does not publish the name yet; the request stays pending
// and is retried on the next sync.
func (s *Session) handleScrbRsp(p controlPayload) {
	if int(p.channel) > s.maxChannels {
		return
	}
	if s.numPendingChannels == 0 {
		return
	}
	for i := 0; i < s.maxChannels; i++ {
		pc := &s.pendingChannels[i]
		if pc.callback == nil || !pc.name.equal(p.name) {
			continue
		}
		if p.channel != 0 {
			if s.rxCallbacks[p.channel-1] == nil {
				s.numRxChannels++
			}
			s.rxCallbacks[p.channel-1] = pc.callback
			*pc = pendingChannel{}
			s.numPendingChannels--
		}
		return
	}
}

// drainPending sends a SCRB for every pending subscription. It runs on
// every successful sync acknowledgement, which doubles as the retry path
// for subscriptions the peer rejected earlier.
func (s *Session) drainPending() {
	for i := 0; i < s.maxChannels; i++ {
		pc := &s.pendingChannels[i]
		if pc.callback == nil {
			continue
		}
		req := controlPayload{command: cmdScrb, name: pc.name}
		if !s.send(ControlChannel, req.encode()) {
			s.setSynced(false)
			return
		}
	}
}
