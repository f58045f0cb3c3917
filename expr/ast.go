package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ssakurai/rlvm/memory"
)

// Node is the sum type of the expression AST. Each concrete type below
// implements Node and exposes itself as one of the alternatives spec.md
// §3 names: StoreRegister, IntConstant, StringConstant, MemoryReference,
// Unary, Binary, Complex, Special.
type Node interface {
	// DebugString renders the node the way the original disassembler
	// would, e.g. "intD[342 + intD[250]] -= intL[2]".
	DebugString() string
}

// StoreRegisterNode addresses the machine's single integer accumulator.
type StoreRegisterNode struct{}

func (StoreRegisterNode) DebugString() string { return "<store>" }

// IntConstantNode is a literal 32-bit integer.
type IntConstantNode struct{ Value int32 }

func (n IntConstantNode) DebugString() string { return strconv.Itoa(int(n.Value)) }

// StringConstantNode is a literal string.
type StringConstantNode struct{ Value string }

func (n StringConstantNode) DebugString() string { return strconv.Quote(n.Value) }

// MemoryReferenceNode addresses a memory location: bank tag plus an index
// expression (itself an arbitrary Node, since indices can be computed).
type MemoryReferenceNode struct {
	Tag   memory.BankTag
	Index Node
}

func (n MemoryReferenceNode) DebugString() string {
	return fmt.Sprintf("%s[%s]", bankName(n.Tag), n.Index.DebugString())
}

// UnaryNode applies a unary operator (only Sub — unary minus — appears in
// practice) to a sub-expression.
type UnaryNode struct {
	Op  Op
	Sub Node
}

func (n UnaryNode) DebugString() string { return "-" + n.Sub.DebugString() }

// BinaryNode applies a binary operator to two sub-expressions, including
// the assignment/in-place-update operator class.
type BinaryNode struct {
	Op       Op
	LHS, RHS Node
}

func (n BinaryNode) DebugString() string {
	return fmt.Sprintf("%s %s %s", n.LHS.DebugString(), n.Op, n.RHS.DebugString())
}

// ComplexNode is an ordered tuple of sub-expressions with no operator
// between them (a parameter list, e.g. for a gosub_with call).
type ComplexNode struct {
	Children []Node
}

func (n ComplexNode) DebugString() string {
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.DebugString()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// SpecialNode is a tagged variant carrying a 16- or 32-bit overload tag
// plus children, used by opcodes with option-set-shaped parameters
// (e.g. Select conditions).
type SpecialNode struct {
	Tag      uint32
	Children []Node
}

func (n SpecialNode) DebugString() string {
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.DebugString()
	}
	return fmt.Sprintf("<special %#x>(%s)", n.Tag, strings.Join(parts, ", "))
}

// SimpleAssignNode is the fast-path node BinaryExpressionEx::Create folds
// a plain-assign-of-a-constant-to-a-direct-memory-reference into, instead
// of allocating a full BinaryNode(Assign, MemoryReference, IntConstant).
type SimpleAssignNode struct {
	Tag   memory.BankTag
	Index int
	Value int32
}

func (n SimpleAssignNode) DebugString() string {
	return fmt.Sprintf("%s[%d] = %d", bankName(n.Tag), n.Index, n.Value)
}

func bankName(tag memory.BankTag) string {
	switch tag {
	case memory.TagA:
		return "intA"
	case memory.TagB, memory.TagBInt:
		return "intB"
	case memory.TagC:
		return "intC"
	case memory.TagD:
		return "intD"
	case memory.TagE:
		return "intE"
	case memory.TagF:
		return "intF"
	case memory.TagG:
		return "intG"
	case memory.TagZ:
		return "intZ"
	case memory.TagL:
		return "intL"
	case memory.TagB1:
		return "intB1"
	case memory.TagB2:
		return "intB2"
	case memory.TagB4:
		return "intB4"
	case memory.TagB8:
		return "intB8"
	case memory.TagB16:
		return "intB16"
	case memory.TagS:
		return "strS"
	case memory.TagM:
		return "strM"
	case memory.TagGlobalStr:
		return "strK"
	default:
		return fmt.Sprintf("bank(%#x)", byte(tag))
	}
}
