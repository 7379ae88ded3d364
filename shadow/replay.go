package shadow

// pollInterval bounds how many retired instructions a continue may
// consume between interrupt polls.
const pollInterval = 1024

// StepForward applies up to n records and reports why the replay stopped.
func (s *System[XLEN]) StepForward(n int) (Stop[XLEN], error) {
	return s.forward(n, nil)
}

// ContinueForward applies records until a point fires, the trace ends, or
// poll reports an interrupt.
func (s *System[XLEN]) ContinueForward(poll func() bool) (Stop[XLEN], error) {
	return s.forward(-1, poll)
}

// StepReverse unapplies up to n records.
func (s *System[XLEN]) StepReverse(n int) (Stop[XLEN], error) {
	return s.reverse(n, nil)
}

// ContinueReverse unapplies records until a point fires, the cursor
// reaches the beginning, or poll reports an interrupt.
func (s *System[XLEN]) ContinueReverse(poll func() bool) (Stop[XLEN], error) {
	return s.reverse(-1, poll)
}

func (s *System[XLEN]) forward(n int, poll func() bool) (Stop[XLEN], error) {
	var polled int
	for n != 0 && s.cnt < len(s.trc) {
		ret := &s.trc[s.cnt]
		core := s.Core(int(ret.Hart))
		if core == nil {
			return s.last, ErrUnknownThread
		}
		undo, err := core.Apply(ret)
		if err != nil {
			return s.last, err
		}
		s.undo[s.cnt] = undo
		if s.cnt == s.high {
			s.high++
			if s.Observer != nil {
				if err := s.Observer(ret); err != nil {
					return s.last, err
				}
			}
		}
		s.cnt++
		if stop, ok := s.match(ret); ok {
			s.last = stop
			return stop, nil
		}
		if n > 0 {
			n--
		}
		if polled++; poll != nil && polled%pollInterval == 0 && poll() {
			s.last = Stop[XLEN]{Signal: SIGINT, Reason: ReasonNone, Core: int(ret.Hart)}
			return s.last, nil
		}
	}
	if s.cnt == len(s.trc) {
		s.last = Stop[XLEN]{Signal: SIGTRAP, Reason: ReasonReplayEnd, Core: s.cur}
	} else {
		s.last = Stop[XLEN]{Signal: SIGTRAP, Reason: ReasonNone, Core: s.cur}
	}
	return s.last, nil
}

func (s *System[XLEN]) reverse(n int, poll func() bool) (Stop[XLEN], error) {
	var polled int
	for n != 0 && s.cnt > s.base {
		ret := &s.trc[s.cnt-1]
		core := s.Core(int(ret.Hart))
		if core == nil {
			return s.last, ErrUnknownThread
		}
		if err := core.Unapply(ret, s.undo[s.cnt-1]); err != nil {
			return s.last, err
		}
		s.cnt--
		if stop, ok := s.match(ret); ok {
			s.last = stop
			return stop, nil
		}
		if n > 0 {
			n--
		}
		if polled++; poll != nil && polled%pollInterval == 0 && poll() {
			s.last = Stop[XLEN]{Signal: SIGINT, Reason: ReasonNone, Core: int(ret.Hart)}
			return s.last, nil
		}
	}
	if s.cnt == s.base {
		s.last = Stop[XLEN]{Signal: SIGTRAP, Reason: ReasonReplayBegin, Core: s.cur}
	} else {
		s.last = Stop[XLEN]{Signal: SIGTRAP, Reason: ReasonNone, Core: s.cur}
	}
	return s.last, nil
}

// match asks the owning core's points first, then the system wide set.
func (s *System[XLEN]) match(ret *Retired[XLEN]) (Stop[XLEN], bool) {
	var soft func([]byte) bool
	if s.adapter != nil {
		soft = s.adapter.IsSoftBreak
	}
	core := s.Core(int(ret.Hart))
	if stop, ok := core.Points.Match(ret, soft); ok {
		stop.Core = int(ret.Hart)
		return stop, true
	}
	if stop, ok := s.Points.Match(ret, nil); ok {
		stop.Core = int(ret.Hart)
		return stop, true
	}
	return Stop[XLEN]{}, false
}
