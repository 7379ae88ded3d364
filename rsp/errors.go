package rsp

import "errors"

var (
	// transport
	ErrParity         = errors.New("packet checksum mismatch")
	ErrPeerNack       = errors.New("peer rejected packet")
	ErrConnectionLost = errors.New("connection lost")

	// protocol
	ErrMalformedPacket = errors.New("malformed packet")

	// session control, returned by Parse to the server loop
	ErrDetach = errors.New("client detached")
	ErrKill   = errors.New("client killed the server")
)
