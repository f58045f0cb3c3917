package machine

import (
	"testing"

	"github.com/ssakurai/rlvm/bytecode"
	"github.com/ssakurai/rlvm/rlerr"
	"github.com/ssakurai/rlvm/scenario"
	"github.com/ssakurai/rlvm/scriptor"
)

func u16le(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func i32le(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

func buildHeader() []byte {
	var b []byte
	b = append(b, u16le(0x8358)...)
	b = append(b, 0) // use_xor_2
	b = append(b, i32le(0)...)
	b = append(b, i32le(0)...)
	b = append(b, 0, 0, 0) // savepoint flags
	b = append(b, u16le(0)...) // text_encoding
	b = append(b, u16le(0)...) // no dramatis personae
	return b
}

// scriptBuilder lays out element bytes sequentially while tracking each
// element's absolute on-disk location (header length + bytes emitted so
// far), the same quantity bytecode.GotoElement.Target and friends name.
type scriptBuilder struct {
	base uint32
	buf  []byte
}

func newScriptBuilder(headerLen int) *scriptBuilder {
	return &scriptBuilder{base: uint32(headerLen)}
}

func (s *scriptBuilder) loc() uint32 { return s.base + uint32(len(s.buf)) }

func (s *scriptBuilder) comma() uint32 {
	loc := s.loc()
	s.buf = append(s.buf, 0)
	return loc
}

// function appends a plain FunctionElement: an 8-byte opcode header with
// no parenthesized argument list.
func (s *scriptBuilder) function(typ, mod, opLo, opHi, overload byte) uint32 {
	loc := s.loc()
	s.buf = append(s.buf, '#', typ, mod, opLo, opHi, 0, 0, overload)
	return loc
}

// gotoEl appends a GotoElement targeting target. type=0, module=1 (with
// op_lo=op_hi=0) is one of parser.go's closed-table Goto keys (0x00010000).
func (s *scriptBuilder) gotoEl(target int32) uint32 {
	loc := s.loc()
	s.buf = append(s.buf, '#', 0, 1, 0, 0, 0, 0, 0)
	s.buf = append(s.buf, i32le(target)...)
	return loc
}

type fakeSource struct {
	scenarios map[int][]byte
}

func (f *fakeSource) GetScenario(number int) (*scenario.Scenario, error) {
	data, ok := f.scenarios[number]
	if !ok {
		return nil, rlerr.New(rlerr.NotFound, "scenario %d not found", number)
	}
	return scenario.Parse(data, number, nil)
}

func newTestMachine(t *testing.T, data []byte, registry *OpcodeRegistry) (*Machine, *scriptor.Scriptor) {
	t.Helper()
	src := &fakeSource{scenarios: map[int][]byte{0: data}}
	s, err := scriptor.New(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if registry == nil {
		registry = NewOpcodeRegistry()
	}
	m := New(s, registry, nil, nil)
	// Tests build scenarios with no explicit entrypoint metadata, so
	// start the root frame at the scenario's first element directly
	// rather than through Start (which resolves an entrypoint index).
	cur, err := s.LoadFirst(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.CallStack.push(CallFrame{Kind: Root, Cursor: cur, Locals: m.Memory.CloneLocal()})
	return m, s
}

func TestMachineDispatchesRegisteredOpcodeAndAdvances(t *testing.T) {
	header := buildHeader()
	sb := newScriptBuilder(len(header))
	sb.comma()
	sb.function(10, 20, 5, 0, 0)
	sb.comma()
	data := append(header, sb.buf...)

	var called bool
	registry := NewOpcodeRegistry()
	registry.Register(OpcodeKey{Type: 10, Module: 20, Opcode: 5, Overload: 0}, "test_op", func(m *Machine, el bytecode.Element) error {
		called = true
		return nil
	})

	m, _ := newTestMachine(t, data, registry)
	for i := 0; i < 3; i++ {
		m.Step()
	}
	if !called {
		t.Fatal("registered opcode was never invoked")
	}
	if m.Halted {
		t.Fatal("machine halted unexpectedly")
	}
}

func TestMachineGotoSkipsInterveningElement(t *testing.T) {
	header := buildHeader()
	sb := newScriptBuilder(len(header))
	sb.comma()

	gotoLoc := sb.loc()
	landLoc := gotoLoc + 12 + 8 // goto element length + skipped function length
	sb.gotoEl(int32(landLoc))

	skippedLoc := sb.loc()
	if skippedLoc != gotoLoc+12 {
		t.Fatalf("test setup: skipped function at %d, want %d", skippedLoc, gotoLoc+12)
	}
	sb.function(10, 20, 5, 0, 0) // should never run

	landMarker := sb.comma()
	if landMarker != landLoc {
		t.Fatalf("test setup: land marker at %d, want %d", landMarker, landLoc)
	}
	sb.comma()
	data := append(header, sb.buf...)

	var skippedRan bool
	registry := NewOpcodeRegistry()
	registry.Register(OpcodeKey{Type: 10, Module: 20, Opcode: 5, Overload: 0}, "should_not_run", func(m *Machine, el bytecode.Element) error {
		skippedRan = true
		return nil
	})

	m, _ := newTestMachine(t, data, registry)
	for i := 0; i < 4; i++ {
		m.Step()
		if m.Halted {
			t.Fatalf("machine halted unexpectedly at step %d", i)
		}
	}
	if skippedRan {
		t.Fatal("goto failed to skip the intervening function element")
	}
}

func TestMachineUndefinedOpcodeIsSoftByDefault(t *testing.T) {
	header := buildHeader()
	sb := newScriptBuilder(len(header))
	sb.comma()
	sb.function(1, 2, 3, 0, 0) // never registered
	sb.comma()
	data := append(header, sb.buf...)

	m, _ := newTestMachine(t, data, nil)
	for i := 0; i < 3; i++ {
		m.Step()
		if m.Halted {
			t.Fatalf("machine halted on undefined opcode at step %d, want soft-skip", i)
		}
	}
}

type fatalCapture struct {
	message string
	hit     bool
}

func (f *fatalCapture) ReportFatalError(message string, detail error) {
	f.hit = true
	f.message = message
}

func TestMachineUndefinedOpcodeFatalWhenConfigured(t *testing.T) {
	header := buildHeader()
	sb := newScriptBuilder(len(header))
	sb.comma()
	sb.function(1, 2, 3, 0, 0)
	data := append(header, sb.buf...)

	src := &fakeSource{scenarios: map[int][]byte{0: data}}
	s, err := scriptor.New(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reporter := &fatalCapture{}
	m := New(s, NewOpcodeRegistry(), nil, reporter)
	m.UndefinedIsFatal = true
	cur, err := s.LoadFirst(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.CallStack.push(CallFrame{Kind: Root, Cursor: cur, Locals: m.Memory.CloneLocal()})

	m.Step() // comma
	m.Step() // undefined function -> fatal
	if !m.Halted {
		t.Fatal("machine did not halt on fatal undefined opcode")
	}
	if !reporter.hit {
		t.Fatal("FatalErrorReporter was never invoked")
	}
}

func TestMachineGosubPushesFrameAndReturnRestoresCursor(t *testing.T) {
	header := buildHeader()
	sb := newScriptBuilder(len(header))

	sb.comma()                      // root start
	sb.function(1, 1, 1, 0, 0)      // "call" opcode
	afterCall := sb.comma()         // should run only after the subroutine returns
	sb.comma()                      // trailing pad so HasNext holds past afterCall

	subLoc := sb.loc()
	sb.comma()                 // subroutine's single body instruction
	sb.function(1, 1, 2, 0, 0) // "return" opcode

	data := append(header, sb.buf...)

	registry := NewOpcodeRegistry()
	registry.Register(OpcodeKey{Type: 1, Module: 1, Opcode: 1, Overload: 0}, "call", func(m *Machine, el bytecode.Element) error {
		return m.Gosub(subLoc)
	})
	registry.Register(OpcodeKey{Type: 1, Module: 1, Opcode: 2, Overload: 0}, "return", func(m *Machine, el bytecode.Element) error {
		return m.ReturnFromGosub()
	})

	m, s := newTestMachine(t, data, registry)

	m.Step() // root comma
	m.Step() // call opcode -> pushes subroutine frame, positioned at subLoc
	if m.CallStack.Len() != 2 {
		t.Fatalf("CallStack.Len() = %d after gosub, want 2", m.CallStack.Len())
	}
	frame, _ := m.CallStack.peek()
	loc, err := s.LocationNumber(frame.Cursor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != subLoc {
		t.Fatalf("subroutine frame cursor = %d, want %d (did gosub skip to the wrong element?)", loc, subLoc)
	}

	m.Step() // subroutine body comma
	m.Step() // return opcode -> pops frame, restores caller cursor past call site

	if m.CallStack.Len() != 1 {
		t.Fatalf("CallStack.Len() = %d after return, want 1", m.CallStack.Len())
	}
	frame, _ = m.CallStack.peek()
	loc, err = s.LocationNumber(frame.Cursor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != afterCall {
		t.Fatalf("caller cursor after return = %d, want %d (the element right after the call site)", loc, afterCall)
	}
}

func TestMachineInvariantCallStackPlusLongOpsChangesByAtMostOnePerTick(t *testing.T) {
	header := buildHeader()
	sb := newScriptBuilder(len(header))
	sb.comma()
	sb.function(10, 20, 5, 0, 0)
	sb.comma()
	data := append(header, sb.buf...)

	registry := NewOpcodeRegistry()
	registry.Register(OpcodeKey{Type: 10, Module: 20, Opcode: 5, Overload: 0}, "noop", func(m *Machine, el bytecode.Element) error {
		return nil
	})

	m, _ := newTestMachine(t, data, registry)
	prev := m.CallStack.Len() + m.LongOps.Len()
	for i := 0; i < 3; i++ {
		m.Step()
		cur := m.CallStack.Len() + m.LongOps.Len()
		delta := cur - prev
		if delta < -1 || delta > 1 {
			t.Fatalf("step %d: call_stack+long_op depth changed by %d, want at most 1", i, delta)
		}
		prev = cur
	}
}
