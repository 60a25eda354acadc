package stream

import (
	"sync"

	"go.bug.st/serial"

	"github.com/1ureka/serialmux/internal/util"
)

// Serial adapts a UART port to the non-blocking stream the mux expects.
// The port's blocking reads run in a background goroutine that fills an
// internal buffer; Available and Read only ever touch the buffer.
type Serial struct {
	port serial.Port

	mu     sync.Mutex
	rx     []byte
	rxErr  error
	closed bool
}

// OpenSerial opens device at the given baud rate (8N1) and starts the
// background fill goroutine.
func OpenSerial(device string, baud int) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}

	s := &Serial{port: port}
	go s.fill()
	return s, nil
}

// fill pumps the port into the rx buffer until the port fails or closes.
func (s *Serial) fill() {
	buf := make([]byte, 256)
	for {
		n, err := s.port.Read(buf)

		s.mu.Lock()
		if n > 0 {
			s.rx = append(s.rx, buf[:n]...)
		}
		if err != nil {
			if !s.closed {
				util.LogWarning("serial: read failed: %v", err)
				s.rxErr = err
			}
			s.mu.Unlock()
			return
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return
		}
	}
}

// Available reports how many bytes are buffered for reading.
func (s *Serial) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rx)
}

// Read copies up to len(p) buffered bytes into p without blocking.
// Buffered bytes are drained before a port error is surfaced.
func (s *Serial) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rx) == 0 && s.rxErr != nil {
		return 0, s.rxErr
	}
	n := copy(p, s.rx)
	s.rx = s.rx[n:]
	return n, nil
}

// Write writes p to the port.
func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Close closes the port and stops the fill goroutine.
func (s *Serial) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.port.Close()
}
