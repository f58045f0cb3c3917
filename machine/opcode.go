package machine

import (
	"fmt"

	"github.com/ssakurai/rlvm/bytecode"
	"github.com/ssakurai/rlvm/rlerr"
)

// OpcodeKey identifies a module call the way spec.md §4.9 describes:
// type, module, opcode number, and the overload byte that disambiguates
// calls sharing the same (type, module, opcode) triple.
type OpcodeKey struct {
	Type     int
	Module   int
	Opcode   int
	Overload int
}

func (k OpcodeKey) String() string {
	return fmt.Sprintf("op<%d:%d:%d, %d>", k.Type, k.Module, k.Opcode, k.Overload)
}

func keyOf(info bytecode.CommandInfo) OpcodeKey {
	return OpcodeKey{Type: info.Modtype(), Module: info.Module(), Opcode: info.Opcode(), Overload: info.Overload()}
}

// commandInfoOf extracts the opcode header from the two command element
// kinds the registry dispatches (a plain module call and a select menu);
// Goto/GotoIf/GotoOn/GotoCase/GosubWith are handled natively by the
// machine instead (see dispatchCommand) and never reach here.
func commandInfoOf(el bytecode.Element) (bytecode.CommandInfo, bool) {
	switch e := el.(type) {
	case bytecode.FunctionElement:
		return e.Info, true
	case bytecode.SelectElement:
		return e.Info, true
	default:
		return bytecode.CommandInfo{}, false
	}
}

// OpcodeFunc is one module opcode's implementation. It receives the raw
// element (a FunctionElement for an ordinary call, a SelectElement for a
// menu) so it can pull out whichever payload its own opcode triple
// expects. It may mutate memory, push a long operation, change the
// cursor, or halt the machine — any of which step() observes after the
// call returns.
type OpcodeFunc func(m *Machine, el bytecode.Element) error

// OpcodeRegistry maps opcode triples (plus overload) to implementations,
// the way spec.md §4.9's "look up opcode (type, module, op, overload) in
// the opcode registry" describes. Individual module bodies are excluded
// by spec.md's Non-goals; this is the seam they plug into.
//
// Grounded on _examples/DaveTCode-zmachine-golang/zmachine/opcode.go's
// Opcode/operandCount dispatch shape, generalized from a positional
// switch over a fixed instruction set to an open table keyed by the
// triple the bytecode itself carries, since RLVM's opcode space is a
// per-title module registry rather than a fixed machine ISA.
type OpcodeRegistry struct {
	funcs map[OpcodeKey]OpcodeFunc
	names map[OpcodeKey]string
}

// NewOpcodeRegistry builds an empty registry; callers register module
// opcodes via Register before running any scenario.
func NewOpcodeRegistry() *OpcodeRegistry {
	return &OpcodeRegistry{funcs: make(map[OpcodeKey]OpcodeFunc), names: make(map[OpcodeKey]string)}
}

// Register installs fn under key, recording name for Undefined-error
// reporting. Intended to be called once, at initialisation, per
// spec.md §5's "opcode registry is set up once ... and treated as
// read-only thereafter".
func (r *OpcodeRegistry) Register(key OpcodeKey, name string, fn OpcodeFunc) {
	r.funcs[key] = fn
	r.names[key] = name
}

// Lookup returns the function registered for key, or a Undefined-kind
// error naming the opcode the way spec.md §7 requires:
// "Undefined: name(opcode<t:m:o, ov>)".
func (r *OpcodeRegistry) Lookup(key OpcodeKey) (OpcodeFunc, error) {
	fn, ok := r.funcs[key]
	if !ok {
		name := r.names[key]
		if name == "" {
			name = "unknown"
		}
		return nil, rlerr.New(rlerr.Undefined, "%s(opcode<%d:%d:%d, %d>)", name, key.Type, key.Module, key.Opcode, key.Overload)
	}
	return fn, nil
}
