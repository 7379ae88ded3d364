package server

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/wnxd/tracedbg/rsp"
	"github.com/wnxd/tracedbg/shadow"
	"github.com/wnxd/tracedbg/socket"
)

// maxTransportErrors closes the connection after this many consecutive
// checksum or acknowledgement failures.
const maxTransportErrors = 3

// session runs the packet loop for one connected client. Packets are
// processed strictly in arrival order; the reply to a packet is fully
// emitted before the next one is consumed.
func (s *Server[XLEN]) session(conn socket.Conn) error {
	entry := logrus.NewEntry(s.log)
	framer := rsp.NewFramer(conn, entry)
	if s.opts.Debug {
		framer.SetWireLog(true)
	}
	proto := rsp.NewProtocol(framer, s.shd, s.opts.DUT, entry)

	var transport int
	for {
		payload, err := framer.Rx(proto.State().Acknowledge)
		if err != nil {
			if errors.Is(err, rsp.ErrConnectionLost) {
				return err
			}
			s.log.WithError(err).Warn("transport error")
			if transport++; transport >= maxTransportErrors {
				return rsp.ErrConnectionLost
			}
			continue
		}
		transport = 0
		if err := proto.Parse(payload); err != nil {
			var corrupt *shadow.CorruptionError
			switch {
			case errors.As(err, &corrupt):
				// the shadow no longer tracks the recorded execution
				proto.ConsoleOutput(corrupt.Error() + "\n")
				return corrupt
			case errors.Is(err, rsp.ErrDetach), errors.Is(err, rsp.ErrKill):
				return err
			case errors.Is(err, rsp.ErrPeerNack):
				s.log.WithError(err).Warn("transport error")
				if transport++; transport >= maxTransportErrors {
					return rsp.ErrConnectionLost
				}
			default:
				return err
			}
		}
	}
}

func isDetach(err error) bool {
	return errors.Is(err, rsp.ErrDetach)
}

func isKill(err error) bool {
	return errors.Is(err, rsp.ErrKill)
}

func isLost(err error) bool {
	return errors.Is(err, rsp.ErrConnectionLost)
}
