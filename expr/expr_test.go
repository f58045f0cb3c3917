package expr

import (
	"testing"

	"github.com/ssakurai/rlvm/memory"
)

func le32(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

// buildAssignBytes constructs the exact wire encoding of
// `intD[342+intD[250]] -= intL[2]`.
func buildAssignBytes() []byte {
	var b []byte
	// LHS: intD[ 342 + intD[250] ]
	b = append(b, '$', byte(memory.TagD), '[')
	b = append(b, '$', 0xFF)
	b = append(b, le32(342)...)
	b = append(b, '\\', 0x00) // +
	b = append(b, '$', byte(memory.TagD), '[')
	b = append(b, '$', 0xFF)
	b = append(b, le32(250)...)
	b = append(b, ']')
	b = append(b, ']')
	// assignment operator -=  (SubAssign = 21 = 0x15)
	b = append(b, '\\', byte(SubAssign))
	// RHS: intL[2]
	b = append(b, '$', byte(memory.TagL), '[')
	b = append(b, '$', 0xFF)
	b = append(b, le32(2)...)
	b = append(b, ']')
	return b
}

func TestParseAssignmentScenario6(t *testing.T) {
	data := buildAssignBytes()
	p := NewParser(data)
	node, err := p.ParseAssignment()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "intD[342 + intD[250]] -= intL[2]"
	if got := node.DebugString(); got != want {
		t.Fatalf("DebugString() = %q, want %q", got, want)
	}
	if p.Pos() != len(data) {
		t.Fatalf("consumed %d bytes, want %d", p.Pos(), len(data))
	}
}

func TestEvalAssignmentScenario6(t *testing.T) {
	data := buildAssignBytes()
	p := NewParser(data)
	node, err := p.ParseAssignment()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mem := memory.New()
	_ = mem.SetInt(memory.TagD, 250, 8)
	_ = mem.SetInt(memory.TagD, 350, 100) // 342 + intD[250] == 342+8 == 350
	_ = mem.SetInt(memory.TagL, 2, 5)

	var store int32
	env := &Env{Mem: mem, Store: &store}
	if _, err := EvalInt(node, env); err != nil {
		t.Fatalf("unexpected eval error: %v", err)
	}

	v, err := mem.GetInt(memory.TagD, 350)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 95 {
		t.Fatalf("intD[350] = %d, want 95 (100-5)", v)
	}
}

func TestEvalSideEffectFreeWithoutAssignment(t *testing.T) {
	// 3 + 4 * 2, no assignment operators anywhere.
	var data []byte
	data = append(data, '$', 0xFF)
	data = append(data, le32(3)...)
	data = append(data, '\\', byte(Add))
	data = append(data, '$', 0xFF)
	data = append(data, le32(4)...)
	data = append(data, '\\', byte(Mul))
	data = append(data, '$', 0xFF)
	data = append(data, le32(2)...)

	p := NewParser(data)
	node, err := p.ParseExpression()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mem := memory.New()
	before := mem.Snapshot()
	var store int32
	env := &Env{Mem: mem, Store: &store}

	v, err := EvalInt(node, env)
	if err != nil {
		t.Fatalf("unexpected eval error: %v", err)
	}
	if v != 11 {
		t.Fatalf("3+4*2 = %d, want 11", v)
	}

	after := mem.Snapshot()
	for i := 0; i < 10; i++ {
		bv, _ := before.A.Get(i)
		av, _ := after.A.Get(i)
		if bv != av {
			t.Fatalf("evaluation without assignment mutated memory at A[%d]", i)
		}
	}
}

func TestParseAssignmentConstantFoldsHiPrecBeforeLowPrec(t *testing.T) {
	// 2 + 3 * 4 must fold to 14, honoring * before +, via constant folding
	// in makeBinary at each reduction step.
	var data []byte
	data = append(data, '$', 0xFF)
	data = append(data, le32(2)...)
	data = append(data, '\\', byte(Add))
	data = append(data, '$', 0xFF)
	data = append(data, le32(3)...)
	data = append(data, '\\', byte(Mul))
	data = append(data, '$', 0xFF)
	data = append(data, le32(4)...)

	p := NewParser(data)
	node, err := p.ParseExpression()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ic, ok := node.(IntConstantNode)
	if !ok {
		t.Fatalf("expected constant folding to IntConstantNode, got %T", node)
	}
	if ic.Value != 14 {
		t.Fatalf("folded value = %d, want 14", ic.Value)
	}
}

func TestDivAndModByZeroReturnDividend(t *testing.T) {
	if got := PerformBinaryOperationOn(Div, 7, 0); got != 7 {
		t.Fatalf("7/0 = %d, want 7", got)
	}
	if got := PerformBinaryOperationOn(Mod, 7, 0); got != 7 {
		t.Fatalf("7%%0 = %d, want 7", got)
	}
}

func TestSimpleAssignFastPath(t *testing.T) {
	// intA[5] = 9, a direct (constant-index) assignment of a constant,
	// should fold into a SimpleAssignNode rather than a BinaryNode.
	var data []byte
	data = append(data, '$', byte(memory.TagA), '[')
	data = append(data, '$', 0xFF)
	data = append(data, le32(5)...)
	data = append(data, ']')
	data = append(data, '\\', byte(Assign))
	data = append(data, '$', 0xFF)
	data = append(data, le32(9)...)

	p := NewParser(data)
	node, err := p.ParseAssignment()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sa, ok := node.(SimpleAssignNode)
	if !ok {
		t.Fatalf("expected SimpleAssignNode, got %T", node)
	}
	if sa.Tag != memory.TagA || sa.Index != 5 || sa.Value != 9 {
		t.Fatalf("got %+v, want {Tag:TagA Index:5 Value:9}", sa)
	}
}
