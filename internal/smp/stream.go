package smp

// Stream is the byte-oriented point-to-point link that a Session multiplexes
// its channels over. The Session uses the stream exclusively for the duration
// of the session; no other component may read from or write to it.
//
// Available reports how many bytes can currently be read without blocking.
// Read must not return more bytes than requested and must not block beyond
// what Available reports. Write may block until the bytes are buffered and
// returns the count actually written; a short write is treated as a failed
// frame by the Session.
type Stream interface {
	Available() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}
