package console

import (
	"github.com/ssakurai/rlvm/bytecode"
	"github.com/ssakurai/rlvm/expr"
	"github.com/ssakurai/rlvm/machine"
	"github.com/ssakurai/rlvm/rlerr"
)

// selectOpcodes are the (type 0, module 2) opcode numbers bytecode's
// parser recognises as Select commands (parser.go's parseCommand switch
// on opcodeKey: 0x00020000, 1, 2, 3, 0x00020010). Select is part of the
// bytecode's own closed control-flow table rather than an ordinary
// per-title module call, so its behaviour is a built-in the host
// installs once - the same way Goto/GotoIf/.../GosubWith are handled
// natively by the machine instead of going through a module lookup.
var selectOpcodes = []int{0, 1, 2, 3, 0x10}

// ChoicePrompter presents a Select menu's already-filtered options and
// returns the index of the chosen one within that filtered slice.
type ChoicePrompter interface {
	PromptChoice(params []bytecode.SelectParam) (int, error)
}

// RegisterSelect installs the built-in Select opcode under every
// opcode number bytecode's parser recognises for it.
//
// spec.md §9 leaves the meaning of a SelectCondition's Effect and
// EffectArgument as an open question (the parser only promises to
// preserve the raw bytes for later replay). RegisterSelect resolves
// that gap the way this release decides it: every Condition is a plain
// visibility gate - an option is offered only when all of its
// Conditions evaluate non-zero - and Effect/EffectArgument are left
// unread. A title that relies on them for anything beyond show/hide
// will need a follow-up once a concrete example surfaces.
func RegisterSelect(registry *machine.OpcodeRegistry, prompter ChoicePrompter) {
	fn := func(m *machine.Machine, el bytecode.Element) error {
		sel, ok := el.(bytecode.SelectElement)
		if !ok {
			return rlerr.New(rlerr.RuntimeError, "select opcode invoked with non-Select element %T", el)
		}

		env := &expr.Env{Mem: m.Memory, Store: &m.StoreReg}
		var shown []bytecode.SelectParam
		var originalIndex []int
		for i, p := range sel.Params {
			ok, err := paramVisible(p, env)
			if err != nil {
				return err
			}
			if ok {
				shown = append(shown, p)
				originalIndex = append(originalIndex, i)
			}
		}

		choice, err := prompter.PromptChoice(shown)
		if err != nil {
			return err
		}
		if choice < 0 || choice >= len(originalIndex) {
			return rlerr.New(rlerr.OutOfRange, "select: chosen index %d out of range", choice)
		}
		m.StoreReg = int32(originalIndex[choice])
		return nil
	}

	for _, op := range selectOpcodes {
		registry.Register(machine.OpcodeKey{Type: 0, Module: 2, Opcode: op, Overload: 0}, "select", fn)
	}
}

func paramVisible(p bytecode.SelectParam, env *expr.Env) (bool, error) {
	for _, c := range p.Conditions {
		if c.Condition == nil {
			continue
		}
		v, err := expr.EvalInt(c.Condition, env)
		if err != nil {
			return false, err
		}
		if v == 0 {
			return false, nil
		}
	}
	return true, nil
}
