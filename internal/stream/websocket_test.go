package stream

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer upgrades every request and echoes binary messages back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(msgType, data); err != nil {
				return
			}
		}
	}))
}

// waitAvailable polls the stream until n bytes are buffered or the
// deadline passes.
func waitAvailable(t *testing.T, ws *WebSocket, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for ws.Available() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d bytes, have %d", n, ws.Available())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestWebSocketEcho verifies the stream contract against a live echo
// server: written bytes come back and reads drain without blocking.
func TestWebSocketEcho(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, err := DialWebSocket(url)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer ws.Close()

	msg := []byte{0x01, 0x04, 0x1A, 0x12, 0x34, 0x56, 0x78}
	if n, err := ws.Write(msg); err != nil || n != len(msg) {
		t.Fatalf("write = (%d, %v)", n, err)
	}

	waitAvailable(t, ws, len(msg))

	buf := make([]byte, 16)
	n, err := ws.Read(buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(buf[:n], msg) {
		t.Fatalf("echoed bytes % X, want % X", buf[:n], msg)
	}
}

// TestWebSocketAccumulates verifies that several inbound messages build up
// in the read buffer and drain across partial reads.
func TestWebSocketAccumulates(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, err := DialWebSocket(url)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer ws.Close()

	ws.Write([]byte{1, 2})
	ws.Write([]byte{3, 4})
	waitAvailable(t, ws, 4)

	buf := make([]byte, 3)
	n, _ := ws.Read(buf)
	if n != 3 || !bytes.Equal(buf, []byte{1, 2, 3}) {
		t.Fatalf("first read = (%d, % X)", n, buf[:n])
	}
	n, _ = ws.Read(buf)
	if n != 1 || buf[0] != 4 {
		t.Fatalf("second read = (%d, % X)", n, buf[:n])
	}
}
