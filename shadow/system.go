package shadow

import (
	"github.com/wnxd/tracedbg/arch"
)

// System is the shadow of the whole SoC: the cores, the shared memory
// map, system wide points and the immutable trace queue with its cursor.
type System[XLEN arch.Word] struct {
	Cores  []*Core[XLEN]
	Mem    *MemoryMap[XLEN]
	Points *PointSet[XLEN]

	adapter arch.Adapter

	time uint64
	trc  []Retired[XLEN]
	undo [][]byte // overwritten store bytes per applied record
	cnt  int      // cursor: next record to apply
	base int      // reverse replay floor, nonzero after a snapshot load
	high int      // first never-applied record, drives the observer
	cur  int      // core selected by the debugger

	last Stop[XLEN]

	// Observer, when set, sees every record the first time it is
	// applied, in commit order.
	Observer func(*Retired[XLEN]) error
}

func NewSystem[XLEN arch.Word](cfg *arch.Config[XLEN]) (*System[XLEN], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	adapter, _ := arch.Lookup(cfg.Arch)
	mem, err := NewMemoryMap(cfg.Mem, cfg.IO)
	if err != nil {
		return nil, err
	}
	s := &System[XLEN]{
		Mem:     mem,
		Points:  NewPointSet[XLEN](),
		adapter: adapter,
		last:    Stop[XLEN]{Signal: SIGTRAP, Reason: ReasonNone},
	}
	for i := range cfg.Core {
		core, err := newCore(&cfg.Core[i], cfg.FLEN, cfg.VLEN, mem)
		if err != nil {
			return nil, err
		}
		s.Cores = append(s.Cores, core)
	}
	return s, nil
}

// LoadTrace installs the trace queue. The queue is immutable afterwards;
// only the cursor moves.
func (s *System[XLEN]) LoadTrace(trc []Retired[XLEN]) {
	s.trc = trc
	s.undo = make([][]byte, len(trc))
	s.cnt = 0
	s.base = 0
	s.high = 0
}

// Rebase positions the cursor without replaying, after a snapshot load.
// The position becomes the reverse replay floor: stores before it were
// never journalled, so they cannot be unapplied.
func (s *System[XLEN]) Rebase(cursor int) error {
	if cursor < 0 || cursor > len(s.trc) {
		return ErrTraceBounds
	}
	s.cnt = cursor
	s.base = cursor
	s.high = cursor
	return nil
}

// Cursor returns the trace cursor: the index of the next record to apply.
func (s *System[XLEN]) Cursor() int {
	return s.cnt
}

// TraceLen returns the length of the trace queue.
func (s *System[XLEN]) TraceLen() int {
	return len(s.trc)
}

// Adapter returns the architecture adapter the system was built with.
func (s *System[XLEN]) Adapter() arch.Adapter {
	return s.adapter
}

// Core returns the core with the given index, or nil.
func (s *System[XLEN]) Core(index int) *Core[XLEN] {
	if index < 0 || index >= len(s.Cores) {
		return nil
	}
	return s.Cores[index]
}

// Current returns the debugger selected core.
func (s *System[XLEN]) Current() *Core[XLEN] {
	return s.Cores[s.cur]
}

// CurrentIndex returns the index of the debugger selected core.
func (s *System[XLEN]) CurrentIndex() int {
	return s.cur
}

// Select makes core index the debugger selected core.
func (s *System[XLEN]) Select(index int) error {
	if index < 0 || index >= len(s.Cores) {
		return ErrUnknownThread
	}
	s.cur = index
	return nil
}

// MemRead routes a debugger memory read through the selected core.
func (s *System[XLEN]) MemRead(addr XLEN, size int) ([]byte, error) {
	return s.Current().MemRead(addr, size)
}

// MemWrite routes a debugger memory write through the selected core.
func (s *System[XLEN]) MemWrite(addr XLEN, data []byte) error {
	return s.Current().MemWrite(addr, data)
}

// Time returns the logical simulation time.
func (s *System[XLEN]) Time() uint64 {
	return s.time
}

func (s *System[XLEN]) SetTime(t uint64) {
	s.time = t
}

// LastStop returns the most recent stop state, reported by '?'.
func (s *System[XLEN]) LastStop() Stop[XLEN] {
	return s.last
}

// Interrupt records an asynchronous attention from the debugger.
func (s *System[XLEN]) Interrupt() Stop[XLEN] {
	s.last = Stop[XLEN]{Signal: SIGINT, Reason: ReasonNone, Core: s.cur}
	return s.last
}
