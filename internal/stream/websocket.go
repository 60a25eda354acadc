package stream

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/1ureka/serialmux/internal/util"
)

// WebSocket adapts a websocket connection to the mux stream interface.
// Each incoming binary message is appended to the rx buffer; each Write
// goes out as one binary message, so frame boundaries survive the hop
// even though the mux does not rely on them.
type WebSocket struct {
	conn *websocket.Conn

	mu     sync.Mutex
	rx     []byte
	rxErr  error
	closed bool
}

// NewWebSocket wraps an established websocket connection and starts the
// read pump. The caller must not use conn afterwards.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	w := &WebSocket{conn: conn}
	go w.readPump()
	return w
}

// DialWebSocket connects to a websocket endpoint and wraps it.
func DialWebSocket(url string) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return NewWebSocket(conn), nil
}

func (w *WebSocket) readPump() {
	for {
		msgType, data, err := w.conn.ReadMessage()

		w.mu.Lock()
		if err != nil {
			if !w.closed {
				util.LogWarning("websocket: read failed: %v", err)
				w.rxErr = err
			}
			w.mu.Unlock()
			return
		}
		if msgType == websocket.BinaryMessage {
			w.rx = append(w.rx, data...)
		}
		closed := w.closed
		w.mu.Unlock()

		if closed {
			return
		}
	}
}

// Available reports how many bytes are buffered for reading.
func (w *WebSocket) Available() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rx)
}

// Read copies up to len(p) buffered bytes into p without blocking.
// Buffered bytes are drained before a connection error is surfaced.
func (w *WebSocket) Read(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.rx) == 0 && w.rxErr != nil {
		return 0, w.rxErr
	}
	n := copy(p, w.rx)
	w.rx = w.rx[n:]
	return n, nil
}

// Write sends p as a single binary message.
func (w *WebSocket) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the underlying connection.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.conn.Close()
}
