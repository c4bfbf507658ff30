package linkmux

import (
	"io"
	"time"
)

// Porter is the minimal interface the mux needs from a link transport. The
// real transports are a TCP connection to the Host PC and a serial port for
// link-over-serial rigs; tests substitute in-memory ports.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutPorter extends Porter with a read timeout. Transports may implement
// it; the mux uses it when present.
type TimeoutPorter interface {
	Porter
	SetReadTimeout(timeout time.Duration) error
}

// PortFactory creates link ports. Injecting a factory lets tests intercept
// port creation without touching the network or hardware.
type PortFactory interface {
	Open(addr string, opts PortOptions) (Porter, error)
}
