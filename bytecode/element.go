// Package bytecode implements the tagged-variant bytecode element model and
// its parser: the decoded form of a scenario's script section, one element
// per Comma/Meta/Textout/Expression/Command (and the latter's specialised
// control-flow subforms).
package bytecode

import (
	"fmt"

	"github.com/ssakurai/rlvm/expr"
)

// Kind discriminates the concrete element type without a reflective type
// switch — the tagged-variant shape spec.md §9 asks for in place of the
// source's BytecodeElement RTTI hierarchy.
type Kind int

const (
	KindComma Kind = iota
	KindMeta
	KindTextout
	KindExpression
	KindFunction
	KindGoto
	KindGotoIf
	KindGotoOn
	KindGotoCase
	KindGosubWith
	KindSelect
)

func (k Kind) String() string {
	switch k {
	case KindComma:
		return "Comma"
	case KindMeta:
		return "Meta"
	case KindTextout:
		return "Textout"
	case KindExpression:
		return "Expression"
	case KindFunction:
		return "Function"
	case KindGoto:
		return "Goto"
	case KindGotoIf:
		return "GotoIf"
	case KindGotoOn:
		return "GotoOn"
	case KindGotoCase:
		return "GotoCase"
	case KindGosubWith:
		return "GosubWith"
	case KindSelect:
		return "Select"
	default:
		return "???"
	}
}

// Element is the sum type every parsed bytecode instruction implements.
type Element interface {
	Kind() Kind
	// Length is the number of bytes this element occupies on disk — the
	// invariant spec.md §8 pins down (`parse` must consume exactly this
	// many bytes when re-fed its own output range).
	Length() int
	DebugString() string
}

// CommaElement is the bare `,`/NUL separator element.
type CommaElement struct{}

func (CommaElement) Kind() Kind        { return KindComma }
func (CommaElement) Length() int       { return 1 }
func (CommaElement) DebugString() string { return "," }

// MetaKind distinguishes the three `MetaElement` uses: a `\n`-tagged line
// marker, a `@`/`!`-tagged kidoku marker, or (when the kidoku table marks
// that slot specially) a scenario entrypoint marker.
type MetaKind int

const (
	MetaLine MetaKind = iota
	MetaKidoku
	MetaEntrypoint
)

// MetaElement carries a 16-bit value and, for MetaEntrypoint, the resolved
// entrypoint index.
type MetaElement struct {
	Type            MetaKind
	Value           int
	EntrypointIndex int
}

func (MetaElement) Kind() Kind  { return KindMeta }
func (MetaElement) Length() int { return 3 }

func (m MetaElement) DebugString() string {
	switch m.Type {
	case MetaLine:
		return fmt.Sprintf("#line %d", m.Value)
	case MetaEntrypoint:
		return fmt.Sprintf("#entrypoint %d", m.Value)
	default:
		return fmt.Sprintf("{- Kidoku %d -}", m.Value)
	}
}

// TextoutElement is a run of raw display text — possibly containing
// ShiftJIS two-byte sequences and quoted-escape runs — stored verbatim, as
// spec.md §9's "codepage handling is kept outside the core" note requires.
type TextoutElement struct {
	Raw []byte
}

func (TextoutElement) Kind() Kind    { return KindTextout }
func (t TextoutElement) Length() int { return len(t.Raw) }

func (t TextoutElement) DebugString() string {
	return fmt.Sprintf("%q", decodeTextoutEscapes(t.Raw))
}

// Text decodes the element's raw bytes the way TextoutElement::GetText
// does: quote delimiters and escapes removed, ShiftJIS lead/trail byte
// pairs passed through untouched. Unlike DebugString, the result is not
// quoted — it's the text the scenario actually displays.
func (t TextoutElement) Text() string {
	return decodeTextoutEscapes(t.Raw)
}

// decodeTextoutEscapes mirrors TextoutElement::GetText: drops quote
// delimiters and un-escapes `\"` inside a quoted run, passing ShiftJIS lead
// bytes through along with their trailing byte untouched.
func decodeTextoutEscapes(raw []byte) string {
	var out []byte
	quoted := false
	i := 0
	for i < len(raw) {
		c := raw[i]
		if c == '"' {
			i++
			quoted = !quoted
			continue
		}
		if quoted && c == '\\' && i+1 < len(raw) {
			i++
			if raw[i] == '"' {
				out = append(out, '"')
				i++
			} else {
				out = append(out, '\\')
			}
			continue
		}
		if (c >= 0x81 && c <= 0x9f) || (c >= 0xe0 && c <= 0xef) {
			if i+1 < len(raw) {
				out = append(out, c, raw[i+1])
			} else {
				out = append(out, c)
			}
			i += 2
			continue
		}
		out = append(out, c)
		i++
	}
	return string(out)
}

// ExpressionElement is a standalone `$`-tagged assignment statement.
type ExpressionElement struct {
	Node  expr.Node
	bytes int
}

func (ExpressionElement) Kind() Kind    { return KindExpression }
func (e ExpressionElement) Length() int { return e.bytes }
func (e ExpressionElement) DebugString() string { return e.Node.DebugString() }
