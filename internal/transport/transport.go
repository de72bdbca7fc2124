package transport

import "io"

// Transport is the opaque byte stream the session operates over. Dial
// selection (plain TCP vs TLS) is left to cmd/tn5250r, grounded on the
// teacher's main.go dial-selection logic, not on this package —
// Transport itself only needs something that reads and writes bytes
// and can be closed.
type Transport interface {
	io.ReadWriteCloser
}

// NewFramedConn wraps a Transport in telnet IAC/EOR framing.
func NewFramedConn(t Transport) *Conn {
	return NewConn(t)
}
