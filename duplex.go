package noise

import "io"

// Duplex is the underlying bidirectional byte-oriented transport the
// handshake driver and secure-stream pipeline read and write
// length-prefixed frames on. It is supplied by the caller — this module
// establishes security over whatever duplex it is given (a TCP
// connection, a QUIC stream, net.Pipe in tests) and never constructs one
// itself.
//
// Close is best-effort: closing a Duplex aborts any read or write in
// progress on it. There are no internal timers; cancellation is
// cooperative via the caller closing the underlying duplex.
type Duplex interface {
	io.Reader
	io.Writer
	io.Closer
}
