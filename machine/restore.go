package machine

import (
	"github.com/ssakurai/rlvm/memory"
	"github.com/ssakurai/rlvm/rlerr"
)

// ResetCallStack discards every frame, so a restore can rebuild the
// stack from scratch instead of pushing on top of whatever Start left
// behind.
func (m *Machine) ResetCallStack() {
	m.CallStack.frames = nil
	m.Halted = false
}

// PushRestoredFrame resolves location within scenarioNumber and pushes a
// frame of the given kind, carrying locals and (for a GosubWith frame)
// its captured arguments — the public counterpart to Start/Gosub/
// Farcall/gosubWith for a caller (savestate's Load path) that is
// rebuilding the call stack from a Snapshot rather than a running
// Step() loop.
func (m *Machine) PushRestoredFrame(scenarioNumber int, location uint32, kind FrameKind, locals *memory.Bank[int32], gosubArgs []int32) error {
	cur, err := m.script.Load(scenarioNumber, location)
	if err != nil {
		return rlerr.Wrap(rlerr.RuntimeError, err, "restoring frame at scenario %d location %d", scenarioNumber, location)
	}
	m.CallStack.push(CallFrame{Kind: kind, Cursor: cur, Locals: locals, GosubArgs: gosubArgs})
	return nil
}

// RestoreMemory replaces the machine's memory catalogue wholesale, the
// way a save/restore operation does.
func (m *Machine) RestoreMemory(mem *memory.Memory) {
	m.Memory = mem
}

// Frames returns a copy of the live call stack, outermost frame first —
// the save-path counterpart to PushRestoredFrame, letting a caller turn
// the running machine's stack into savestate.Frame values without
// reaching into CallStack's unexported slice itself.
func (m *Machine) Frames() []CallFrame {
	return append([]CallFrame(nil), m.CallStack.frames...)
}
