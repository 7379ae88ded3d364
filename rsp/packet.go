package rsp

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/wnxd/tracedbg/socket"
)

const (
	ack       = '+'
	nack      = '-'
	interrupt = 0x03
)

// reserved bytes requiring the }-escape inside a payload
const reserved = "$#}*"

// Framer translates between raw connection bytes and logical packet
// payloads: $payload#XX framing, checksum, acknowledgement, binary
// escape and run-length decoding. The receive buffer persists across
// calls since TCP may deliver partial frames.
type Framer struct {
	conn socket.Conn
	buf  []byte
	log  *logrus.Entry
	wire bool
	prev logrus.Level
}

func NewFramer(conn socket.Conn, log *logrus.Entry) *Framer {
	return &Framer{conn: conn, log: log}
}

// SetWireLog toggles the protocol trace, driven by the remote log
// monitor command. The logger is raised to debug while the trace is on
// so the toggle works regardless of the startup verbosity.
func (f *Framer) SetWireLog(on bool) {
	if on == f.wire {
		return
	}
	f.wire = on
	logger := f.log.Logger
	if on {
		f.prev = logger.GetLevel()
		if f.prev < logrus.DebugLevel {
			logger.SetLevel(logrus.DebugLevel)
		}
	} else {
		logger.SetLevel(f.prev)
	}
}

func (f *Framer) fill() error {
	var chunk [512]byte
	n, err := f.conn.Read(chunk[:])
	if n > 0 {
		f.buf = append(f.buf, chunk[:n]...)
		return nil
	}
	if err == io.EOF {
		return ErrConnectionLost
	}
	return err
}

func (f *Framer) readByte() (byte, error) {
	for len(f.buf) == 0 {
		if err := f.fill(); err != nil {
			return 0, err
		}
	}
	b := f.buf[0]
	f.buf = f.buf[1:]
	return b, nil
}

// Rx reads one complete packet and returns the decoded payload. The
// asynchronous interrupt byte is surfaced as a one byte pseudo payload.
// With acknowledgement enabled a checksum mismatch transmits NACK and
// fails with ErrParity.
func (f *Framer) Rx(acknowledge bool) ([]byte, error) {
	for {
		// drop stray acknowledgements and garbage before the frame start
		for len(f.buf) > 0 {
			switch f.buf[0] {
			case ack:
				f.buf = f.buf[1:]
				continue
			case interrupt:
				f.buf = f.buf[1:]
				return []byte{interrupt}, nil
			case '$':
			default:
				if i := bytes.IndexAny(f.buf, "$\x03"); i > 0 {
					f.buf = f.buf[i:]
					continue
				}
				f.buf = f.buf[:0]
			}
			break
		}
		if end := bytes.IndexByte(f.buf, '#'); len(f.buf) > 0 && f.buf[0] == '$' && end >= 0 && len(f.buf) >= end+3 {
			raw := f.buf[1:end]
			sum := f.buf[end+1 : end+3]
			want := fmt.Sprintf("%02x", checksum(raw))
			payload := decodePayload(raw)
			f.buf = f.buf[end+3:]
			if !bytes.EqualFold(sum, []byte(want)) {
				if acknowledge {
					f.conn.Write([]byte{nack})
				}
				return nil, ErrParity
			}
			if acknowledge {
				if _, err := f.conn.Write([]byte{ack}); err != nil {
					return nil, err
				}
			}
			if f.wire {
				f.log.Debugf("<- %s", payload)
			}
			return payload, nil
		}
		if err := f.fill(); err != nil {
			return nil, err
		}
	}
}

// Tx frames and transmits a payload. With acknowledgement enabled it
// waits for the peer's control byte and fails with ErrPeerNack on '-'.
func (f *Framer) Tx(payload []byte, acknowledge bool) error {
	if f.wire {
		f.log.Debugf("-> %s", payload)
	}
	escaped := encodePayload(payload)
	frame := make([]byte, 0, len(escaped)+4)
	frame = append(frame, '$')
	frame = append(frame, escaped...)
	frame = append(frame, '#')
	frame = append(frame, fmt.Sprintf("%02x", checksum(escaped))...)
	if _, err := f.conn.Write(frame); err != nil {
		return err
	}
	if !acknowledge {
		return nil
	}
	for {
		b, err := f.readByte()
		if err != nil {
			return err
		}
		switch b {
		case ack:
			return nil
		case nack:
			return ErrPeerNack
		case interrupt:
			// deliver on the next Rx
			f.buf = append([]byte{interrupt}, f.buf...)
		default:
			return ErrPeerNack
		}
	}
}

// Interrupted polls for the asynchronous interrupt byte without
// blocking, called between retired instructions during continue.
func (f *Framer) Interrupted() bool {
	if i := bytes.IndexByte(f.buf, interrupt); i >= 0 {
		f.buf = append(f.buf[:i], f.buf[i+1:]...)
		return true
	}
	b, ok := socket.Poll(f.conn)
	if !ok {
		return false
	}
	if b == interrupt {
		return true
	}
	f.buf = append(f.buf, b)
	return false
}

func checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return sum
}

// encodePayload applies the }-escape to the reserved bytes.
func encodePayload(payload []byte) []byte {
	if !bytes.ContainsAny(payload, reserved) {
		return payload
	}
	out := make([]byte, 0, len(payload)+8)
	for _, b := range payload {
		if strings.IndexByte(reserved, b) >= 0 {
			out = append(out, '}', b^0x20)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// decodePayload reverses the }-escape and expands run-length encoded
// runs: the three bytes x'*'N stand for N-28 copies of x.
func decodePayload(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '}':
			if i+1 < len(raw) {
				out = append(out, raw[i+1]^0x20)
				i++
			}
		case '*':
			if len(out) > 0 && i+1 < len(raw) {
				c := out[len(out)-1]
				for n := int(raw[i+1]) - 28 - 1; n > 0; n-- {
					out = append(out, c)
				}
				i++
			}
		default:
			out = append(out, raw[i])
		}
	}
	return out
}
