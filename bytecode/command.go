package bytecode

import (
	"fmt"
	"strings"

	"github.com/ssakurai/rlvm/expr"
)

// CommandInfo is the 8-byte opcode header every `#`-tagged element starts
// with: `#`, modtype, module, opcode-lo, opcode-hi, argc-lo, argc-hi,
// overload.
type CommandInfo struct {
	Raw [8]byte
}

func (c CommandInfo) Modtype() int { return int(c.Raw[1]) }
func (c CommandInfo) Module() int  { return int(c.Raw[2]) }
func (c CommandInfo) Opcode() int  { return int(c.Raw[3]) | int(c.Raw[4])<<8 }
func (c CommandInfo) Argc() int    { return int(c.Raw[5]) | int(c.Raw[6])<<8 }
func (c CommandInfo) Overload() int { return int(c.Raw[7]) }

func (c CommandInfo) String() string {
	return fmt.Sprintf("op<%d:%03d:%05d, %d>", c.Modtype(), c.Module(), c.Opcode(), c.Overload())
}

// FunctionElement is a generic command call: opcode header plus an
// optional parenthesized, comma-free parameter list, each parameter parsed
// via expr.Parser.ParseData.
type FunctionElement struct {
	Info   CommandInfo
	Params []expr.Node
	bytes  int
}

func (FunctionElement) Kind() Kind    { return KindFunction }
func (f FunctionElement) Length() int { return f.bytes }

func (f FunctionElement) DebugString() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.DebugString()
	}
	return fmt.Sprintf("%s(%s)", f.Info, strings.Join(parts, ", "))
}

// GotoElement is an unconditional jump: opcode header plus a 4-byte target
// id, always 12 bytes total.
type GotoElement struct {
	Info   CommandInfo
	Target int
}

func (GotoElement) Kind() Kind    { return KindGoto }
func (GotoElement) Length() int   { return 12 }
func (g GotoElement) DebugString() string {
	return fmt.Sprintf("%s @%d", g.Info, g.Target)
}

// GotoIfElement is a conditional jump: opcode header, `(cond)`, target id.
type GotoIfElement struct {
	Info   CommandInfo
	Cond   expr.Node
	Target int
	bytes  int
}

func (GotoIfElement) Kind() Kind    { return KindGotoIf }
func (g GotoIfElement) Length() int { return g.bytes }

func (g GotoIfElement) DebugString() string {
	return fmt.Sprintf("%s (%s) @%d", g.Info, g.Cond.DebugString(), g.Target)
}

// GotoOnElement is a computed multi-way jump: opcode header, condition,
// `{ id id ... }` target table indexed by the condition's value.
type GotoOnElement struct {
	Info    CommandInfo
	Cond    expr.Node
	Targets []int
	bytes   int
}

func (GotoOnElement) Kind() Kind    { return KindGotoOn }
func (g GotoOnElement) Length() int { return g.bytes }

func (g GotoOnElement) DebugString() string {
	parts := make([]string, len(g.Targets))
	for i, t := range g.Targets {
		parts[i] = fmt.Sprintf("@%d", t)
	}
	return fmt.Sprintf("%s (%s) {%s}", g.Info, g.Cond.DebugString(), strings.Join(parts, " "))
}

// GotoCaseElement is a switch-style jump: condition, then `(case) id`
// pairs, one pair's case possibly empty (the default/else arm).
type GotoCaseElement struct {
	Info    CommandInfo
	Cond    expr.Node
	Cases   []expr.Node // nil entry == empty "()" (default arm)
	Targets []int
	bytes   int
}

func (GotoCaseElement) Kind() Kind    { return KindGotoCase }
func (g GotoCaseElement) Length() int { return g.bytes }

func (g GotoCaseElement) DebugString() string {
	parts := make([]string, len(g.Targets))
	for i, t := range g.Targets {
		c := ""
		if g.Cases[i] != nil {
			c = g.Cases[i].DebugString()
		}
		parts[i] = fmt.Sprintf("[%s]@%d", c, t)
	}
	return fmt.Sprintf("%s (%s) {%s}", g.Info, g.Cond.DebugString(), strings.Join(parts, " "))
}

// GosubWithElement is a call-with-arguments: opcode header, optional
// parenthesized argument list, then the 4-byte subroutine target id.
type GosubWithElement struct {
	Info   CommandInfo
	Params []expr.Node
	Target int
	bytes  int
}

func (GosubWithElement) Kind() Kind    { return KindGosubWith }
func (g GosubWithElement) Length() int { return g.bytes }

func (g GosubWithElement) DebugString() string {
	parts := make([]string, len(g.Params))
	for i, p := range g.Params {
		parts[i] = p.DebugString()
	}
	return fmt.Sprintf("%s(%s) @%d", g.Info, strings.Join(parts, ", "), g.Target)
}

// SelectCondition is one parenthesized effect clause attached to a select
// option (e.g. a visibility/colour/cursor override).
type SelectCondition struct {
	Condition     expr.Node
	Effect        byte
	EffectArgument expr.Node // nil when the effect takes no argument
}

// SelectParam is one option: its optional condition clauses, display text,
// and source line number.
type SelectParam struct {
	Conditions []SelectCondition
	Text       string
	Line       int
}

// SelectElement is a branch menu: opcode header, optional window
// expression, then `argc()` option records inside `{ }` — plus, in at
// least one shipping title, extra zero-length padding records beyond
// argc() that must be tolerated (see DESIGN.md's Open Question entry).
type SelectElement struct {
	Info        CommandInfo
	WindowExpr  expr.Node // nil when absent (defaults to -1 at evaluation time)
	FirstLine   int
	Params      []SelectParam
	UselessJunk int
	bytes       int
}

func (SelectElement) Kind() Kind    { return KindSelect }
func (s SelectElement) Length() int { return s.bytes }

func (s SelectElement) DebugString() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = fmt.Sprintf("%q", p.Text)
	}
	return fmt.Sprintf("%s select {%s}", s.Info, strings.Join(parts, ", "))
}
