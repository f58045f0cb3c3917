// Package machine is the scheduler: it owns the call stack, the
// long-operation stack, typed memory, and the store register, and
// dispatches one Instruction at a time by driving a scriptor.Scriptor
// and an OpcodeRegistry. Grounded on
// _examples/DaveTCode-zmachine-golang/zmachine/zmachine.go's
// ZMachine/StepMachine, generalized from a byte-addressed opcode decode
// loop to the element-addressed, Instruction-driven dispatch spec.md
// §4.9 describes.
package machine

import (
	"log"

	"github.com/ssakurai/rlvm/bytecode"
	"github.com/ssakurai/rlvm/expr"
	"github.com/ssakurai/rlvm/memory"
	"github.com/ssakurai/rlvm/rlerr"
	"github.com/ssakurai/rlvm/scriptor"
)

// KidokuBits is the per-scenario "read marker" bitset spec.md's GLOSSARY
// describes, keyed sparsely since only a small fraction of markers are
// ever hit in one playthrough.
type KidokuBits struct {
	marked map[int]bool
}

func newKidokuBits() *KidokuBits {
	return &KidokuBits{marked: make(map[int]bool)}
}

// Mark records that marker n has been seen.
func (k *KidokuBits) Mark(n int) { k.marked[n] = true }

// IsMarked reports whether marker n has ever been seen.
func (k *KidokuBits) IsMarked(n int) bool { return k.marked[n] }

// FatalErrorReporter receives the one fatal error that halts a Machine,
// per spec.md §7's "surfaced to the host via ReportFatalError(message,
// detail)".
type FatalErrorReporter interface {
	ReportFatalError(message string, detail error)
}

// Machine is the scenario-runtime scheduler: spec.md §3's Machine state,
// plus the collaborators step() needs to act on it.
type Machine struct {
	CallStack   CallStack
	LongOps     LongOpStack
	Memory      *memory.Memory
	StoreReg    int32
	Kidoku      *KidokuBits
	LineNumber  int
	Halted      bool

	script   *scriptor.Scriptor
	registry *OpcodeRegistry
	text     TextSurface
	reporter FatalErrorReporter

	// UndefinedIsFatal flips spec.md §7's "soft by default" undefined-
	// opcode handling to fatal; false (log-and-advance) unless the host
	// opts in.
	UndefinedIsFatal bool

	warned map[string]bool
}

// New builds a Machine that resolves instructions via script and
// dispatches Command elements via registry. text may be nil if the host
// doesn't need Textout forwarding (e.g. headless scripting/tests).
func New(script *scriptor.Scriptor, registry *OpcodeRegistry, text TextSurface, reporter FatalErrorReporter) *Machine {
	return &Machine{
		Memory:   memory.New(),
		Kidoku:   newKidokuBits(),
		script:   script,
		registry: registry,
		text:     text,
		reporter: reporter,
		warned:   make(map[string]bool),
	}
}

func (m *Machine) warnOnce(key, format string, args ...any) {
	if m.warned[key] {
		return
	}
	m.warned[key] = true
	log.Printf(format, args...)
}

func (m *Machine) fail(err error) {
	m.Halted = true
	if m.reporter != nil {
		m.reporter.ReportFatalError(err.Error(), err)
	} else {
		log.Printf("fatal: %v", err)
	}
}

// env builds the expression-evaluation context for the current tick:
// the machine's memory plus a pointer at the store register so
// assignments to it are observed immediately.
func (m *Machine) env() *expr.Env {
	return &expr.Env{Mem: m.Memory, Store: &m.StoreReg}
}

// Start pushes the Root frame at scenarioNumber's entrypoint entry.
func (m *Machine) Start(scenarioNumber int, entry int) error {
	cur, err := m.script.LoadEntry(scenarioNumber, entry)
	if err != nil {
		return err
	}
	m.CallStack.push(CallFrame{Kind: Root, Cursor: cur, Locals: m.Memory.CloneLocal()})
	return nil
}

// step runs one logical tick: either it lets the top long operation do
// one unit of work, or it resolves the current cursor and dispatches
// exactly one instruction. Matches spec.md §4.9/§5's single-progress-
// step contract.
func (m *Machine) Step() {
	if m.Halted {
		return
	}

	if op, ok := m.LongOps.top(); ok {
		if op.Invoke(m) {
			m.LongOps.pop()
		}
		return
	}

	frame, ok := m.CallStack.peek()
	if !ok {
		m.Halted = true
		return
	}

	instr, err := m.script.Resolve(frame.Cursor)
	if err != nil {
		m.fail(rlerr.Wrap(rlerr.RuntimeError, err, "resolving cursor"))
		return
	}

	m.dispatch(instr)
}

func (m *Machine) dispatch(instr scriptor.Instruction) {
	switch v := instr.(type) {
	case scriptor.Nop:
		m.advance()
	case scriptor.Kidoku:
		m.Kidoku.Mark(v.N)
		m.advance()
	case scriptor.Line:
		m.LineNumber = v.N
		m.advance()
	case scriptor.Expression:
		if _, err := expr.EvalInt(v.Node, m.env()); err != nil {
			m.fail(rlerr.Wrap(rlerr.RuntimeError, err, "evaluating expression"))
			return
		}
		m.advance()
	case scriptor.Textout:
		if m.text != nil {
			m.PushLongOp(NewTextoutLongOp(v.Text, m.text, len(v.Text)))
		}
		m.advance()
	case scriptor.Command:
		m.dispatchCommand(v.Element)
	case scriptor.End:
		m.Halted = true
	default:
		m.fail(rlerr.New(rlerr.RuntimeError, "unhandled instruction %T", instr))
	}
}

// dispatchCommand handles the control-flow element subtypes natively —
// Goto/GotoIf/GotoOn/GotoCase/GosubWith extend CommandElement in the
// original implementation's class hierarchy (see parser.cpp) rather than
// going through a module opcode lookup — and routes plain FunctionElement
// calls and SelectElement menus through the opcode registry.
func (m *Machine) dispatchCommand(el bytecode.Element) {
	switch e := el.(type) {
	case bytecode.GotoElement:
		if err := m.gotoLoc(uint32(e.Target)); err != nil {
			m.fail(err)
		}
	case bytecode.GotoIfElement:
		cond, err := expr.EvalInt(e.Cond, m.env())
		if err != nil {
			m.fail(rlerr.Wrap(rlerr.RuntimeError, err, "evaluating gotoif condition"))
			return
		}
		if cond != 0 {
			if err := m.gotoLoc(uint32(e.Target)); err != nil {
				m.fail(err)
			}
		} else {
			m.advance()
		}
	case bytecode.GotoOnElement:
		cond, err := expr.EvalInt(e.Cond, m.env())
		if err != nil {
			m.fail(rlerr.Wrap(rlerr.RuntimeError, err, "evaluating gotoon condition"))
			return
		}
		if int(cond) < 0 || int(cond) >= len(e.Targets) {
			m.advance()
			return
		}
		if err := m.gotoLoc(uint32(e.Targets[cond])); err != nil {
			m.fail(err)
		}
	case bytecode.GotoCaseElement:
		cond, err := expr.EvalInt(e.Cond, m.env())
		if err != nil {
			m.fail(rlerr.Wrap(rlerr.RuntimeError, err, "evaluating gotocase condition"))
			return
		}
		target, matched, err := m.matchGotoCase(e, cond)
		if err != nil {
			m.fail(err)
			return
		}
		if matched {
			if err := m.gotoLoc(uint32(target)); err != nil {
				m.fail(err)
			}
		} else {
			m.advance()
		}
	case bytecode.GosubWithElement:
		args := make([]int32, len(e.Params))
		for i, p := range e.Params {
			v, err := expr.EvalInt(p, m.env())
			if err != nil {
				m.fail(rlerr.Wrap(rlerr.RuntimeError, err, "evaluating gosub_with argument %d", i))
				return
			}
			args[i] = v
		}
		if err := m.gosubWith(uint32(e.Target), args); err != nil {
			m.fail(err)
		}
	case bytecode.FunctionElement, bytecode.SelectElement:
		info, _ := commandInfoOf(el)
		key := keyOf(info)
		fn, err := m.registry.Lookup(key)
		if err != nil {
			if m.UndefinedIsFatal {
				m.fail(err)
				return
			}
			m.warnOnce(key.String(), "%v", err)
			m.advance()
			return
		}
		depthBefore := m.CallStack.Len()
		if err := fn(m, el); err != nil {
			m.fail(rlerr.Wrap(rlerr.RuntimeError, err, "opcode %s", key))
			return
		}
		// An opcode that pushed a frame (gosub/farcall) leaves the new
		// frame positioned at its own entry — advancing here would skip
		// its first instruction. One that returned already repositioned
		// the restored caller frame itself. Only a same-depth call (the
		// common case: mutate memory, maybe push a long op) needs this
		// generic post-advance.
		if !m.Halted && m.CallStack.Len() == depthBefore {
			m.advance()
		}
	default:
		m.fail(rlerr.New(rlerr.RuntimeError, "unhandled command element %T", el))
	}
}

func (m *Machine) matchGotoCase(e bytecode.GotoCaseElement, cond int32) (int, bool, error) {
	var defaultTarget int
	hasDefault := false
	for i, c := range e.Cases {
		if c == nil {
			defaultTarget = e.Targets[i]
			hasDefault = true
			continue
		}
		v, err := expr.EvalInt(c, m.env())
		if err != nil {
			return 0, false, rlerr.Wrap(rlerr.RuntimeError, err, "evaluating gotocase option %d", i)
		}
		if v == cond {
			return e.Targets[i], true, nil
		}
	}
	if hasDefault {
		return defaultTarget, true, nil
	}
	return 0, false, nil
}

// advance moves the current frame's cursor to the next element. Running
// off the end of a scenario without having hit its End sentinel is a
// malformed-scenario condition, not a control-flow path the machine
// handles implicitly — the next Step() will surface it as an
// OutOfRange error when it tries to resolve the exhausted cursor.
func (m *Machine) advance() {
	frame, ok := m.CallStack.peek()
	if !ok {
		m.Halted = true
		return
	}
	frame.Cursor = m.script.Next(frame.Cursor)
}

// gotoLoc replaces the top frame's cursor with the element starting at
// loc, within the frame's current scenario.
func (m *Machine) gotoLoc(loc uint32) error {
	frame, ok := m.CallStack.peek()
	if !ok {
		return rlerr.New(rlerr.RuntimeError, "goto with empty call stack")
	}
	cur, err := m.script.Load(frame.Cursor.ScenarioNumber, loc)
	if err != nil {
		return err
	}
	frame.Cursor = cur
	return nil
}

// GotoEntry replaces the top frame's cursor with scenarioNumber's entry
// point, staying within the same frame (a within-scenario jump to a
// labelled location, as opposed to Farcall which pushes a new frame).
func (m *Machine) GotoEntry(scenarioNumber int, entry int) error {
	frame, ok := m.CallStack.peek()
	if !ok {
		return rlerr.New(rlerr.RuntimeError, "goto_entry with empty call stack")
	}
	cur, err := m.script.LoadEntry(scenarioNumber, entry)
	if err != nil {
		return err
	}
	frame.Cursor = cur
	return nil
}

// Farcall pushes a new frame at another scenario's entrypoint; local
// memory is snapshot-copied onto the new frame per spec.md §4.9.
func (m *Machine) Farcall(scenarioNumber int, entry int) error {
	cur, err := m.script.LoadEntry(scenarioNumber, entry)
	if err != nil {
		return err
	}
	m.CallStack.push(CallFrame{Kind: Farcall, Cursor: cur, Locals: m.Memory.CloneLocal()})
	return nil
}

// Gosub pushes a new frame at loc within the current scenario.
func (m *Machine) Gosub(loc uint32) error {
	frame, ok := m.CallStack.peek()
	if !ok {
		return rlerr.New(rlerr.RuntimeError, "gosub with empty call stack")
	}
	cur, err := m.script.Load(frame.Cursor.ScenarioNumber, loc)
	if err != nil {
		return err
	}
	m.CallStack.push(CallFrame{Kind: Gosub, Cursor: cur, Locals: m.Memory.CloneLocal()})
	return nil
}

func (m *Machine) gosubWith(loc uint32, args []int32) error {
	frame, ok := m.CallStack.peek()
	if !ok {
		return rlerr.New(rlerr.RuntimeError, "gosub_with with empty call stack")
	}
	cur, err := m.script.Load(frame.Cursor.ScenarioNumber, loc)
	if err != nil {
		return err
	}
	m.CallStack.push(CallFrame{Kind: GosubWith, Cursor: cur, Locals: m.Memory.CloneLocal(), GosubArgs: args})
	return nil
}

// ReturnFromGosub pops the current frame, restoring the caller's cursor
// and local memory.
func (m *Machine) ReturnFromGosub() error {
	return m.returnFromGosub()
}

func (m *Machine) returnFromGosub() error {
	if m.CallStack.Len() <= 1 {
		return rlerr.New(rlerr.RuntimeError, "return with only the root frame on the call stack")
	}
	_, _ = m.CallStack.pop()
	frame, _ := m.CallStack.peek()
	m.Memory.RestoreLocal(frame.Locals)
	frame.Cursor = m.script.Next(frame.Cursor)
	return nil
}

// ReturnFromFarcall pops the current frame; identical mechanics to
// ReturnFromGosub, kept as a distinct operation per spec.md §4.9 since
// the two frame kinds are semantically different call sites even though
// the pop/restore mechanics coincide.
func (m *Machine) ReturnFromFarcall() error {
	return m.returnFromGosub()
}

// PushLongOp schedules a cooperative task.
func (m *Machine) PushLongOp(op LongOperation) {
	m.LongOps.push(op)
}
