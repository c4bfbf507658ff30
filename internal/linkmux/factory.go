package linkmux

import (
	"fmt"
	"net"

	"go.bug.st/serial"
)

// NewTCPLinkMux dials the Host PC at addr (host:port) and returns a mux over
// the connection. This is the normal transport for Ethernet-connected
// trackers.
func NewTCPLinkMux(addr string, opts PortOptions) (*LinkMux[net.Conn], error) {
	normalized, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout("tcp", addr, normalized.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to reach tracker host at %s: %w", addr, err)
	}
	return New[net.Conn](conn), nil
}

// NewSerialLinkMux opens a serial link at the given device path. Used for
// rigs that bridge the tracker link over a serial line.
func NewSerialLinkMux(path string, opts PortOptions) (*LinkMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return New[serial.Port](port), nil
}
