package signaling

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// pairListener accepts the single client WebSocket the host pairs with.
// A numeric PIN in the query string keeps strangers off a forwarded port.
type pairListener struct {
	pin      string
	listener net.Listener
	peerCh   chan *websocket.Conn
}

func newPairListener(pin string) *pairListener {
	return &pairListener{
		pin:    pin,
		peerCh: make(chan *websocket.Conn, 1),
	}
}

// listen binds a random local port and serves the /ws endpoint on it.
// Returns the assigned port number.
func (p *pairListener) listen() (int, error) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("failed to start signaling listener: %w", err)
	}
	p.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", p.upgrade)
	go func() {
		_ = http.Serve(ln, mux)
	}()

	return ln.Addr().(*net.TCPAddr).Port, nil
}

// upgrade authorizes and upgrades a candidate peer. The first authorized
// connection wins the pairing; anyone after that is turned away.
func (p *pairListener) upgrade(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("pin") != p.pin {
		http.Error(w, "wrong PIN", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	select {
	case p.peerCh <- conn:
	default:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "peer already paired"))
		conn.Close()
	}
}

// awaitPeer blocks until an authorized client shows up or ctx is cancelled.
func (p *pairListener) awaitPeer(ctx context.Context) (*websocket.Conn, error) {
	select {
	case conn := <-p.peerCh:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// shutdown stops accepting new connections.
func (p *pairListener) shutdown() {
	if p.listener != nil {
		p.listener.Close()
	}
}

// dialHost opens the client-side WebSocket to a host's pairListener. The
// PIN is expected to ride in the URL query.
func dialHost(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to reach the host: %w", err)
	}
	return conn, nil
}

// newPIN returns a uniformly random numeric PIN with the given number of
// digits, zero-padded.
func newPIN(digits int) string {
	bound := big.NewInt(1)
	for i := 0; i < digits; i++ {
		bound.Mul(bound, big.NewInt(10))
	}
	n, _ := rand.Int(rand.Reader, bound)
	return fmt.Sprintf("%0*d", digits, n)
}
