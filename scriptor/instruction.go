package scriptor

import (
	"github.com/ssakurai/rlvm/bytecode"
	"github.com/ssakurai/rlvm/expr"
)

// Instruction is the closed variant Resolve flattens a bytecode.Element
// into, matching spec.md §4.7's `{Kidoku(n), Line(n), Command(&cmd),
// Expression(&expr), Textout(string), End(tail), Nop}` exactly.
type Instruction interface {
	isInstruction()
}

// Nop is a no-op tick: a Comma element, or a Meta element the machine
// doesn't otherwise act on.
type Nop struct{}

// Kidoku marks a read-progress bit; N is the raw kidoku table value.
type Kidoku struct{ N int }

// Line records the current source line number.
type Line struct{ N int }

// Expression is a standalone assignment or side-effecting expression.
type Expression struct{ Node expr.Node }

// Command is any opcode-header element — a general module call or one of
// the specialised control-flow forms (Goto/GotoIf/GotoOn/GotoCase/
// GosubWith/Select). The machine type-switches on Element's concrete Go
// type to tell which.
type Command struct{ Element bytecode.Element }

// Textout is decoded display text bound for the external text surface.
type Textout struct{ Text string }

// End is the scenario's SeenEnd sentinel: the machine halts on sight of it.
type End struct{ Tail string }

func (Nop) isInstruction()        {}
func (Kidoku) isInstruction()     {}
func (Line) isInstruction()       {}
func (Expression) isInstruction() {}
func (Command) isInstruction()    {}
func (Textout) isInstruction()    {}
func (End) isInstruction()        {}
