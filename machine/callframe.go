package machine

import (
	"github.com/ssakurai/rlvm/memory"
	"github.com/ssakurai/rlvm/scriptor"
)

// FrameKind distinguishes how a CallFrame was pushed, mirroring spec.md
// §3's CallFrame.kind. GosubWith frames additionally carry the evaluated
// argument list so the subroutine's first receiving opcode can read it
// back.
type FrameKind int

const (
	// Root is the initial frame created when a scenario starts running.
	Root FrameKind = iota
	// Farcall is a cross-scenario call (goto_entry into a new scenario).
	Farcall
	// Gosub is a within-scenario subroutine call.
	Gosub
	// GosubWith is a Gosub that captured evaluated call arguments.
	GosubWith
)

// CallFrame is one entry of the machine's call stack: a cursor into a
// scenario's element sequence, a local-memory snapshot taken on push, and
// how the frame came to exist. Grounded on
// _examples/DaveTCode-zmachine-golang/zmachine/callstack.go's
// CallStackFrame, generalized from a raw program counter to a scriptor
// cursor since RLVM addresses elements, not machine words.
type CallFrame struct {
	Kind    FrameKind
	Cursor  scriptor.ScriptLocation
	Locals  *memory.Bank[int32]
	GosubArgs []int32
}

// CallStack is a stack of CallFrame, the same push/pop/peek shape as the
// teacher's CallStack, adapted from a slice of CallStackFrame to a slice
// of CallFrame.
type CallStack struct {
	frames []CallFrame
}

func (s *CallStack) push(f CallFrame) {
	s.frames = append(s.frames, f)
}

func (s *CallStack) pop() (CallFrame, bool) {
	if len(s.frames) == 0 {
		return CallFrame{}, false
	}
	n := len(s.frames)
	f := s.frames[n-1]
	s.frames = s.frames[:n-1]
	return f, true
}

func (s *CallStack) peek() (*CallFrame, bool) {
	if len(s.frames) == 0 {
		return nil, false
	}
	return &s.frames[len(s.frames)-1], true
}

// Len reports the current call-stack depth, used to check the
// call_stack.len()+long_op_stack.len() invariant in tests.
func (s *CallStack) Len() int { return len(s.frames) }
