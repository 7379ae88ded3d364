package rsp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wnxd/tracedbg/shadow"
)

// stopReply renders a stop as a T packet: the signal in hex followed by
// semicolon-terminated reason pairs. Thread and core fields are added
// once the multiprocess extension is negotiated.
func (p *Protocol[XLEN]) stopReply(stop shadow.Stop[XLEN]) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "T%02x", int(stop.Signal))
	switch stop.Reason {
	case shadow.ReasonSwbreak:
		sb.WriteString("swbreak:;")
	case shadow.ReasonHwbreak:
		sb.WriteString("hwbreak:;")
	case shadow.ReasonWatch:
		fmt.Fprintf(&sb, "watch:%x;", uint64(stop.Addr))
	case shadow.ReasonRwatch:
		fmt.Fprintf(&sb, "rwatch:%x;", uint64(stop.Addr))
	case shadow.ReasonAwatch:
		fmt.Fprintf(&sb, "awatch:%x;", uint64(stop.Addr))
	case shadow.ReasonReplayBegin:
		sb.WriteString("replaylog:begin;")
	case shadow.ReasonReplayEnd:
		sb.WriteString("replaylog:end;")
	}
	if p.multiprocess() {
		fmt.Fprintf(&sb, "thread:%s;core:%x;", p.formatThread(stop.Core), stop.Core)
	}
	return sb.String()
}

func (p *Protocol[XLEN]) interruptStop() {
	p.shd.Interrupt()
}

// errorCode maps an error to the numeric E reply code.
func errorCode(err error) int {
	switch {
	case errors.Is(err, ErrMalformedPacket):
		return 0x01
	case errors.Is(err, shadow.ErrUnmappedAddress):
		return 0x02
	case errors.Is(err, shadow.ErrUnknownRegister):
		return 0x03
	case errors.Is(err, shadow.ErrTraceBounds):
		return 0x04
	case errors.Is(err, shadow.ErrPointNotFound):
		return 0x05
	case errors.Is(err, shadow.ErrUnknownThread):
		return 0x06
	case errors.Is(err, shadow.ErrMalformedImage):
		return 0x07
	}
	return 0x0e
}

// errorReply answers a failed handler with the richest error form the
// client advertised: E.<hex-text> once error-message+ was negotiated,
// the bare numeric ENN otherwise.
func (p *Protocol[XLEN]) errorReply(err error) error {
	if p.featClient["error-message"] == "+" {
		return p.tx("E." + binToHex([]byte(err.Error())))
	}
	return p.tx(fmt.Sprintf("E%02x", errorCode(err)))
}

// ConsoleOutput emits a spontaneous O packet: diagnostic text shown at
// the user's debugger prompt.
func (p *Protocol[XLEN]) ConsoleOutput(text string) error {
	return p.tx("O" + binToHex([]byte(text)))
}
