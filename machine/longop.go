package machine

// LongOperation is a cooperative task that occupies the top of the
// machine's long-op stack until it finishes. invoke is called at most
// once per step(); returning true pops it.
//
// Grounded on spec.md §4.9/§5's long-operation model and
// _examples/DaveTCode-zmachine-golang/zmachine/screen.go's
// StateChangeRequest-driven wait states, generalized into the boxed
// single-method object the REDESIGN FLAGS section calls for (a decorator
// wraps the inner op and runs its own post-action once the inner op is
// done).
type LongOperation interface {
	Invoke(m *Machine) bool
}

// LongOpStack is a stack of LongOperation, the top of which step()
// consults each tick.
type LongOpStack struct {
	ops []LongOperation
}

func (s *LongOpStack) push(op LongOperation) {
	s.ops = append(s.ops, op)
}

func (s *LongOpStack) pop() (LongOperation, bool) {
	if len(s.ops) == 0 {
		return nil, false
	}
	n := len(s.ops)
	op := s.ops[n-1]
	s.ops = s.ops[:n-1]
	return op, true
}

func (s *LongOpStack) top() (LongOperation, bool) {
	if len(s.ops) == 0 {
		return nil, false
	}
	return s.ops[len(s.ops)-1], true
}

// Len reports the current long-op stack depth.
func (s *LongOpStack) Len() int { return len(s.ops) }

// postHookOp decorates an inner LongOperation: the inner op runs to
// completion (each Invoke call delegates to it) and, the tick it
// finishes, post runs once before postHookOp itself reports done.
type postHookOp struct {
	inner LongOperation
	post  func(m *Machine)
	done  bool
}

func (p *postHookOp) Invoke(m *Machine) bool {
	if p.done {
		return true
	}
	if p.inner.Invoke(m) {
		p.post(m)
		p.done = true
	}
	return p.done
}

// NewPageAfterLongop wraps op so that, once it finishes, the machine's
// text surface is told to start a fresh page (the teacher's text-box
// clear-and-restart behaviour after a pause completes).
func NewPageAfterLongop(op LongOperation) LongOperation {
	return &postHookOp{inner: op, post: func(m *Machine) {
		if m.text != nil {
			m.text.NewPage()
		}
	}}
}

// HardBrakeAfterLongop wraps op so that, once it finishes, any
// in-progress text reveal is snapped to its final state rather than left
// mid-reveal (used when a pause is interrupted by an explicit clear).
func HardBrakeAfterLongop(op LongOperation) LongOperation {
	return &postHookOp{inner: op, post: func(m *Machine) {
		if m.text != nil {
			m.text.HardBrake()
		}
	}}
}
