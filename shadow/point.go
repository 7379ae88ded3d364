package shadow

import (
	"github.com/wnxd/tracedbg/arch"
)

// PointType is the breakpoint/watchpoint class. The numeric values are
// the z/Z packet type field on the wire.
type PointType int

const (
	Swbreak PointType = 0
	Hwbreak PointType = 1
	Watch   PointType = 2 // write watchpoint
	Rwatch  PointType = 3 // read watchpoint
	Awatch  PointType = 4 // access watchpoint
)

// Reason is the cause of a stop.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonSwbreak
	ReasonHwbreak
	ReasonWatch
	ReasonRwatch
	ReasonAwatch
	ReasonReplayBegin
	ReasonReplayEnd
)

// Signal is the POSIX signal number reported to the debugger.
type Signal int

const (
	SIGINT  Signal = 2
	SIGILL  Signal = 4
	SIGTRAP Signal = 5
)

// Stop pairs a signal with the reason for delivering it. Addr is
// meaningful for watchpoint reasons.
type Stop[XLEN arch.Word] struct {
	Signal Signal
	Reason Reason
	Addr   XLEN
	Core   int
}

// Point is one breakpoint or watchpoint. Kind is the instruction length
// for breakpoints and the access width for watchpoints.
type Point struct {
	Type PointType
	Kind uint
}

// PointSet owns the address keyed breakpoint and watchpoint dictionaries.
type PointSet[XLEN arch.Word] struct {
	breakpoints map[XLEN]Point
	watchpoints map[XLEN]Point
}

func NewPointSet[XLEN arch.Word]() *PointSet[XLEN] {
	return &PointSet[XLEN]{
		breakpoints: make(map[XLEN]Point),
		watchpoints: make(map[XLEN]Point),
	}
}

// Insert adds a point; re-inserting the same address overwrites.
func (ps *PointSet[XLEN]) Insert(typ PointType, addr XLEN, kind uint) {
	switch typ {
	case Swbreak, Hwbreak:
		ps.breakpoints[addr] = Point{typ, kind}
	case Watch, Rwatch, Awatch:
		ps.watchpoints[addr] = Point{typ, kind}
	}
}

// Remove deletes a point; removing an absent address is a no-op.
func (ps *PointSet[XLEN]) Remove(typ PointType, addr XLEN, kind uint) {
	switch typ {
	case Swbreak, Hwbreak:
		delete(ps.breakpoints, addr)
	case Watch, Rwatch, Awatch:
		delete(ps.watchpoints, addr)
	}
}

// Match inspects one retired instruction and decides whether to stop.
// The soft-break predicate comes from the architecture adapter.
func (ps *PointSet[XLEN]) Match(ret *Retired[XLEN], isSoftBreak func([]byte) bool) (Stop[XLEN], bool) {
	if ret.Ifu.Ill {
		return Stop[XLEN]{Signal: SIGILL, Reason: ReasonNone, Addr: ret.Ifu.Adr}, true
	}
	if isSoftBreak != nil && isSoftBreak(ret.Ifu.Rdt) {
		return Stop[XLEN]{Signal: SIGTRAP, Reason: ReasonSwbreak, Addr: ret.Ifu.Adr}, true
	}
	if p, ok := ps.breakpoints[ret.Ifu.Adr]; ok && p.Type == Hwbreak {
		return Stop[XLEN]{Signal: SIGTRAP, Reason: ReasonHwbreak, Addr: ret.Ifu.Adr}, true
	}
	if p, ok := ps.watchpoints[ret.Lsu.Adr]; ok {
		rena := len(ret.Lsu.Rdt) > 0
		wena := len(ret.Lsu.Wdt) > 0
		if !rena && !wena {
			return Stop[XLEN]{}, false
		}
		switch p.Type {
		case Watch:
			if wena {
				return Stop[XLEN]{Signal: SIGTRAP, Reason: ReasonWatch, Addr: ret.Lsu.Adr}, true
			}
		case Rwatch:
			if rena {
				return Stop[XLEN]{Signal: SIGTRAP, Reason: ReasonRwatch, Addr: ret.Lsu.Adr}, true
			}
		case Awatch:
			return Stop[XLEN]{Signal: SIGTRAP, Reason: ReasonAwatch, Addr: ret.Lsu.Adr}, true
		}
	}
	return Stop[XLEN]{}, false
}
