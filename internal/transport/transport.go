package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/serialmux/internal/util"
)

// Transport wraps a single PeerConnection + DataChannel pair, providing a
// high-level API for signaling exchange and a byte stream a mux session
// can run over.
//
// Its lifecycle is governed by the DataChannel state and the context passed
// at construction time. The PeerConnection state is recorded but does not
// drive open/close decisions.
type Transport struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	sender     *sender
	openSignal chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	pcState webrtc.PeerConnectionState

	rxMu sync.Mutex
	rx   []byte
}

// NewTransport creates a Transport backed by a new PeerConnection and a
// pre-negotiated DataChannel. The caller should perform signaling via the
// exposed methods (CreateOffer / CreateAnswer / …) and then hand Stream()
// to a mux session.
//
// The Transport is considered alive as long as the DataChannel is open and
// ctx has not been cancelled.
func NewTransport(ctx context.Context) (*Transport, error) {
	pc, err := newPeerConnection()
	if err != nil {
		return nil, err
	}

	dc, err := newDataChannel(pc)
	if err != nil {
		pc.Close()
		return nil, err
	}

	tCtx, tCancel := context.WithCancel(ctx)

	t := &Transport{
		pc:         pc,
		dc:         dc,
		openSignal: make(chan struct{}),
		ctx:        tCtx,
		cancel:     tCancel,
		pcState:    webrtc.PeerConnectionStateNew,
	}

	// DC open gate.
	var openOnce sync.Once
	dc.OnOpen(func() {
		openOnce.Do(func() { close(t.openSignal) })
	})

	// DC close → cancel transport context.
	dc.OnClose(func() {
		util.LogInfo("transport: DataChannel closed")
		tCancel()
	})

	// Inbound bytes feed the stream's read buffer.
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.rxMu.Lock()
		t.rx = append(t.rx, msg.Data...)
		t.rxMu.Unlock()
	})

	// Record PC state (informational only).
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("transport: PeerConnection state: %s", state.String())
		t.mu.Lock()
		t.pcState = state
		t.mu.Unlock()
	})

	// Start the sender goroutine.
	t.sender = newSender(tCtx, dc, t.openSignal)

	return t, nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Ready returns a channel that is closed when the DataChannel is open and
// the Transport is ready to carry data.
func (t *Transport) Ready() <-chan struct{} {
	return t.openSignal
}

// Done returns a channel that is closed when the Transport is shut down
// (DataChannel closed or parent context cancelled).
func (t *Transport) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Close shuts down the DataChannel and PeerConnection.
func (t *Transport) Close() error {
	t.cancel()
	return errors.Join(t.dc.Close(), t.pc.Close())
}

// ConnectionState returns the last observed PeerConnection state.
func (t *Transport) ConnectionState() webrtc.PeerConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pcState
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// CreateOffer generates an SDP offer.
func (t *Transport) CreateOffer() (webrtc.SessionDescription, error) {
	return t.pc.CreateOffer(nil)
}

// CreateAnswer generates an SDP answer.
func (t *Transport) CreateAnswer() (webrtc.SessionDescription, error) {
	return t.pc.CreateAnswer(nil)
}

// SetLocalDescription applies the local SDP.
func (t *Transport) SetLocalDescription(sdp webrtc.SessionDescription) error {
	return t.pc.SetLocalDescription(sdp)
}

// SetRemoteDescription applies the remote SDP.
func (t *Transport) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	return t.pc.SetRemoteDescription(sdp)
}

// OnICECandidate registers a callback invoked whenever a new local ICE
// candidate is gathered. A nil candidate signals the end of gathering.
func (t *Transport) OnICECandidate(fn func(*webrtc.ICECandidate)) {
	t.pc.OnICECandidate(fn)
}

// AddICECandidate adds a remote ICE candidate received through signaling.
func (t *Transport) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return t.pc.AddICECandidate(candidate)
}

// ---------------------------------------------------------------------------
// Stream
// ---------------------------------------------------------------------------

// Stream returns the byte stream carried by the DataChannel. Reads drain
// the inbound buffer without blocking; writes enqueue to the sender.
func (t *Transport) Stream() *DCStream {
	return &DCStream{t: t}
}

// DCStream adapts the Transport's DataChannel to the stream interface the
// mux expects.
type DCStream struct {
	t *Transport
}

// Available reports how many inbound bytes are buffered.
func (s *DCStream) Available() int {
	s.t.rxMu.Lock()
	defer s.t.rxMu.Unlock()
	return len(s.t.rx)
}

// Read copies up to len(p) buffered bytes into p without blocking.
func (s *DCStream) Read(p []byte) (int, error) {
	s.t.rxMu.Lock()
	defer s.t.rxMu.Unlock()
	n := copy(p, s.t.rx)
	s.t.rx = s.t.rx[n:]
	return n, nil
}

// Write enqueues p for transmission. The sender owns the slice afterwards,
// so p is copied.
func (s *DCStream) Write(p []byte) (int, error) {
	select {
	case <-s.t.ctx.Done():
		return 0, errors.New("transport: closed")
	default:
	}
	data := make([]byte, len(p))
	copy(data, p)
	if !s.t.sender.send(s.t.ctx, data) {
		return 0, errors.New("transport: closed")
	}
	return len(p), nil
}
