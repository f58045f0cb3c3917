package expr

import (
	"github.com/ssakurai/rlvm/memory"
	"github.com/ssakurai/rlvm/rlerr"
)

// Env is the evaluation context: the memory banks plus the machine's
// single integer accumulator (the store register).
type Env struct {
	Mem   *memory.Memory
	Store *int32
}

// EvalInt evaluates n as an integer, performing the memory write a
// top-level assignment node implies.
func EvalInt(n Node, env *Env) (int32, error) {
	switch v := n.(type) {
	case IntConstantNode:
		return v.Value, nil
	case StoreRegisterNode:
		return *env.Store, nil
	case MemoryReferenceNode:
		idx, err := EvalInt(v.Index, env)
		if err != nil {
			return 0, err
		}
		if !memory.IsIntBank(v.Tag) {
			return 0, rlerr.New(rlerr.TypeMismatch, "memory reference tag %#x is not an integer bank", byte(v.Tag))
		}
		return env.Mem.GetInt(v.Tag, int(idx))
	case UnaryNode:
		sub, err := EvalInt(v.Sub, env)
		if err != nil {
			return 0, err
		}
		return -sub, nil
	case SimpleAssignNode:
		if err := writeMemory(env, v.Tag, v.Index, v.Value); err != nil {
			return 0, err
		}
		return v.Value, nil
	case BinaryNode:
		return evalBinary(v, env)
	case ComplexNode:
		if len(v.Children) == 0 {
			return 0, rlerr.New(rlerr.RuntimeError, "empty complex expression has no integer value")
		}
		return EvalInt(v.Children[len(v.Children)-1], env)
	default:
		return 0, rlerr.New(rlerr.RuntimeError, "node %T has no integer value", n)
	}
}

func evalBinary(v BinaryNode, env *Env) (int32, error) {
	if v.Op.IsAssignClass() {
		ref, err := resolveAssignTarget(v.LHS, env)
		if err != nil {
			return 0, err
		}
		rhs, err := EvalInt(v.RHS, env)
		if err != nil {
			return 0, err
		}

		newValue := rhs
		if arith, ok := v.Op.ArithmeticFor(); ok {
			current, err := ref.read(env)
			if err != nil {
				return 0, err
			}
			newValue = PerformBinaryOperationOn(arith, current, rhs)
		}

		if err := ref.write(env, newValue); err != nil {
			return 0, err
		}
		return newValue, nil
	}

	lhs, err := EvalInt(v.LHS, env)
	if err != nil {
		return 0, err
	}
	rhs, err := EvalInt(v.RHS, env)
	if err != nil {
		return 0, err
	}
	return PerformBinaryOperationOn(v.Op, lhs, rhs), nil
}

// assignTarget is a memory location or the store register, resolved once
// (including evaluating any computed index) before a compound assignment
// reads the current value and writes the new one.
type assignTarget struct {
	isStore bool
	tag     memory.BankTag
	index   int
}

func (t assignTarget) read(env *Env) (int32, error) {
	if t.isStore {
		return *env.Store, nil
	}
	return env.Mem.GetInt(t.tag, t.index)
}

func (t assignTarget) write(env *Env, v int32) error {
	if t.isStore {
		*env.Store = v
		return nil
	}
	return writeMemory(env, t.tag, t.index, v)
}

func resolveAssignTarget(lhs Node, env *Env) (assignTarget, error) {
	switch v := lhs.(type) {
	case StoreRegisterNode:
		return assignTarget{isStore: true}, nil
	case MemoryReferenceNode:
		idx, err := EvalInt(v.Index, env)
		if err != nil {
			return assignTarget{}, err
		}
		return assignTarget{tag: v.Tag, index: int(idx)}, nil
	default:
		return assignTarget{}, rlerr.New(rlerr.RuntimeError, "node %T is not a valid assignment target", lhs)
	}
}

func writeMemory(env *Env, tag memory.BankTag, index int, v int32) error {
	if !memory.IsIntBank(tag) {
		return rlerr.New(rlerr.TypeMismatch, "assignment target tag %#x is not an integer bank", byte(tag))
	}
	return env.Mem.SetInt(tag, index, v)
}

// EvalStr evaluates n as a string.
func EvalStr(n Node, env *Env) (string, error) {
	switch v := n.(type) {
	case StringConstantNode:
		return v.Value, nil
	case MemoryReferenceNode:
		idx, err := EvalInt(v.Index, env)
		if err != nil {
			return "", err
		}
		return env.Mem.GetStr(v.Tag, int(idx))
	default:
		return "", rlerr.New(rlerr.RuntimeError, "node %T has no string value", n)
	}
}
