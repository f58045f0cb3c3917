package expr

import (
	"strings"

	"github.com/ssakurai/rlvm/memory"
	"github.com/ssakurai/rlvm/rlerr"
)

// Parser is a recursive-descent parser over the bytecode expression
// encoding: a prefix/marker byte language, not a tokenized text format.
// It tracks a cursor into a shared byte slice so Parse* methods can
// recurse the way the original GetExpression* family does.
type Parser struct {
	data []byte
	pos  int
}

// NewParser wraps data for expression parsing starting at offset 0.
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// Pos returns the current read offset.
func (p *Parser) Pos() int { return p.pos }

func (p *Parser) byteAt(off int) byte {
	if p.pos+off >= len(p.data) {
		return 0
	}
	return p.data[p.pos+off]
}

func (p *Parser) cur() byte { return p.byteAt(0) }

func (p *Parser) advance(n int) { p.pos += n }

// ParseToken parses `0xFF int32`, `0xC8`, or a `<tag>[expr]` memory
// reference — the leaf productions reachable only after a `$` marker.
func (p *Parser) ParseToken() (Node, error) {
	b0 := p.cur()
	if b0 == 0xff {
		p.advance(1)
		if p.pos+4 > len(p.data) {
			return nil, rlerr.New(rlerr.Truncated, "int constant truncated")
		}
		v := int32(uint32(p.data[p.pos]) | uint32(p.data[p.pos+1])<<8 |
			uint32(p.data[p.pos+2])<<16 | uint32(p.data[p.pos+3])<<24)
		p.advance(4)
		return IntConstantNode{Value: v}, nil
	}
	if b0 == 0xc8 {
		p.advance(1)
		return StoreRegisterNode{}, nil
	}
	if b0 != 0xc8 && b0 != 0xff && p.byteAt(1) == '[' {
		tag := memory.BankTag(b0)
		p.advance(2)
		loc, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if p.cur() != ']' {
			return nil, rlerr.New(rlerr.BadFormat, "expected ']' in memory reference, got %#x", p.cur())
		}
		p.advance(1)
		return MemoryReferenceNode{Tag: tag, Index: loc}, nil
	}
	if p.pos >= len(p.data) {
		return nil, rlerr.New(rlerr.Truncated, "unexpected end of buffer in ParseToken")
	}
	return nil, rlerr.New(rlerr.BadFormat, "unknown token type %#x", b0)
}

// ParseTerm parses a term: `$`-prefixed token, a `\00`/`\01` escape
// (no-op / unary minus), or a parenthesized boolean expression.
func (p *Parser) ParseTerm() (Node, error) {
	switch {
	case p.cur() == '$':
		p.advance(1)
		return p.ParseToken()
	case p.cur() == '\\' && p.byteAt(1) == 0x00:
		p.advance(2)
		return p.ParseTerm()
	case p.cur() == '\\' && p.byteAt(1) == 0x01:
		p.advance(2)
		sub, err := p.ParseTerm()
		if err != nil {
			return nil, err
		}
		return UnaryNode{Op: Sub, Sub: sub}, nil
	case p.cur() == '(':
		p.advance(1)
		inner, err := p.ParseBoolean()
		if err != nil {
			return nil, err
		}
		if p.cur() != ')' {
			return nil, rlerr.New(rlerr.BadFormat, "expected ')' in term, got %#x", p.cur())
		}
		p.advance(1)
		return inner, nil
	case p.pos >= len(p.data):
		return nil, rlerr.New(rlerr.Truncated, "unexpected end of buffer in ParseTerm")
	default:
		return nil, rlerr.New(rlerr.BadFormat, "unknown token type %#x in ParseTerm", p.cur())
	}
}

func (p *Parser) arithmeticHiPrec(tok Node) (Node, error) {
	for p.cur() == '\\' && p.byteAt(1) >= 0x02 && p.byteAt(1) <= 0x09 {
		op := Op(p.byteAt(1))
		p.advance(2)
		rhs, err := p.ParseTerm()
		if err != nil {
			return nil, err
		}
		tok = makeBinary(op, tok, rhs)
	}
	return tok, nil
}

// ParseArithmetic parses the low/high precedence arithmetic chain.
func (p *Parser) ParseArithmetic() (Node, error) {
	term, err := p.ParseTerm()
	if err != nil {
		return nil, err
	}
	tok, err := p.arithmeticHiPrec(term)
	if err != nil {
		return nil, err
	}
	for p.cur() == '\\' && (p.byteAt(1) == 0x00 || p.byteAt(1) == 0x01) {
		op := Op(p.byteAt(1))
		p.advance(2)
		other, err := p.ParseTerm()
		if err != nil {
			return nil, err
		}
		rhs, err := p.arithmeticHiPrec(other)
		if err != nil {
			return nil, err
		}
		tok = makeBinary(op, tok, rhs)
	}
	return tok, nil
}

// ParseCondition parses the comparison-operator chain (`\op` in
// 0x28..0x2d).
func (p *Parser) ParseCondition() (Node, error) {
	tok, err := p.ParseArithmetic()
	if err != nil {
		return nil, err
	}
	for p.cur() == '\\' && p.byteAt(1) >= 0x28 && p.byteAt(1) <= 0x2d {
		op := Op(p.byteAt(1))
		p.advance(2)
		rhs, err := p.ParseArithmetic()
		if err != nil {
			return nil, err
		}
		tok = makeBinary(op, tok, rhs)
	}
	return tok, nil
}

func (p *Parser) booleanAnd() (Node, error) {
	tok, err := p.ParseCondition()
	if err != nil {
		return nil, err
	}
	for p.cur() == '\\' && p.byteAt(1) == '<' {
		p.advance(2)
		rhs, err := p.ParseCondition()
		if err != nil {
			return nil, err
		}
		tok = makeBinary(LogicalAnd, tok, rhs)
	}
	return tok, nil
}

// ParseBoolean parses the full `&&`/`||` chain — the top of the
// expression grammar.
func (p *Parser) ParseBoolean() (Node, error) {
	tok, err := p.booleanAnd()
	if err != nil {
		return nil, err
	}
	for p.cur() == '\\' && p.byteAt(1) == '=' {
		p.advance(2)
		inner, err := p.ParseCondition()
		if err != nil {
			return nil, err
		}
		rhs, err := p.andChainFrom(inner)
		if err != nil {
			return nil, err
		}
		tok = makeBinary(LogicalOr, tok, rhs)
	}
	return tok, nil
}

func (p *Parser) andChainFrom(tok Node) (Node, error) {
	for p.cur() == '\\' && p.byteAt(1) == '<' {
		p.advance(2)
		rhs, err := p.ParseCondition()
		if err != nil {
			return nil, err
		}
		tok = makeBinary(LogicalAnd, tok, rhs)
	}
	return tok, nil
}

// ParseExpression is the grammar's entry point for a side-effect-free
// expression (ParseBoolean, by another name, matching the original's
// GetExpression = GetExpressionBoolean alias).
func (p *Parser) ParseExpression() (Node, error) {
	return p.ParseBoolean()
}

// ParseAssignment parses `term <op in 0x14..0x24> expr`, the production
// used for standalone `$`-tagged Expression bytecode elements.
func (p *Parser) ParseAssignment() (Node, error) {
	lhs, err := p.ParseTerm()
	if err != nil {
		return nil, err
	}
	op := Op(p.byteAt(1))
	p.advance(2)
	rhs, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if op < 0x14 || op > 0x24 {
		return nil, rlerr.New(rlerr.BadFormat, "undefined assignment operator %#x", byte(op))
	}
	return makeBinary(op, lhs, rhs), nil
}

// makeBinary applies the same fast paths the original engine's
// BinaryExpressionEx::Create does: fold two integer constants, or
// recognise a plain assignment of a constant into a simple (constant
// index) memory reference.
func makeBinary(op Op, l, r Node) Node {
	if rc, ok := r.(IntConstantNode); ok {
		if lc, ok := l.(IntConstantNode); ok {
			return IntConstantNode{Value: PerformBinaryOperationOn(op, lc.Value, rc.Value)}
		}
		if op == Assign {
			if ref, ok := l.(MemoryReferenceNode); ok {
				if idx, ok := ref.Index.(IntConstantNode); ok {
					return SimpleAssignNode{Tag: ref.Tag, Index: int(idx.Value), Value: rc.Value}
				}
			}
		}
	}
	return BinaryNode{Op: op, LHS: l, RHS: r}
}

// ParseString parses a (possibly quoted) string parameter, unescaping
// `\"` the way GetString does.
func (p *Parser) ParseString() (Node, error) {
	length := p.nextStringLength()
	if p.pos+length > len(p.data) {
		return nil, rlerr.New(rlerr.Truncated, "string parameter truncated")
	}
	raw := p.data[p.pos : p.pos+length]
	var s string
	if len(raw) > 0 && raw[0] == '"' {
		end := len(raw)
		if end > 0 && raw[end-1] == '"' {
			end--
		}
		s = string(raw[1:end])
	} else {
		s = string(raw)
	}
	p.advance(length)
	s = strings.ReplaceAll(s, `\"`, `"`)
	return StringConstantNode{Value: s}, nil
}

// nextStringLength mirrors NextString: scans a (possibly quoted) run of
// printable/ShiftJIS-lead-byte/word characters without allocating.
func (p *Parser) nextStringLength() int {
	start := p.pos
	i := p.pos
	quoted := false
	for {
		if i >= len(p.data) {
			break
		}
		c := p.data[i]
		if quoted {
			unescapedQuote := c == '"' && (i == start || p.data[i-1] != '\\')
			quoted = !unescapedQuote
			if !quoted {
				i++
				break
			}
		} else {
			unescapedQuote := c == '"' && (i == start || p.data[i-1] != '\\')
			quoted = unescapedQuote
			if !isStringByte(c) {
				break
			}
		}
		if (c >= 0x81 && c <= 0x9f) || (c >= 0xe0 && c <= 0xef) {
			i += 2
		} else {
			i++
		}
	}
	if i > start && i <= len(p.data) && p.data[i-1] == 'a' && i < len(p.data) && (p.data[i] == 0 || p.data[i] == 1) {
		i--
	}
	return i - start
}

func isStringByte(c byte) bool {
	return (c >= 0x81 && c <= 0x9f) || (c >= 0xe0 && c <= 0xef) ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == ' ' || c == '?' || c == '_' || c == '"' || c == '\\'
}

// ParseData parses a single bytecode parameter: a string, an expression,
// or a complex/special tagged tuple of sub-parameters.
func (p *Parser) ParseData() (Node, error) {
	c := p.cur()
	switch {
	case c == ',':
		p.advance(1)
		return p.ParseData()
	case c == '\n':
		p.advance(3)
		return p.ParseData()
	case looksLikeDataString(p.data, p.pos):
		return p.parseDataString()
	case c == 'a' || c == '(':
		return p.parseComplexOrSpecial()
	default:
		return p.ParseExpression()
	}
}

func looksLikeDataString(data []byte, pos int) bool {
	if pos >= len(data) {
		return false
	}
	c := data[pos]
	if (c >= 0x81 && c <= 0x9f) || (c >= 0xe0 && c <= 0xef) ||
		(c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == ' ' || c == '?' || c == '_' || c == '"' {
		return true
	}
	return strings.HasPrefix(string(data[pos:]), "###PRINT(")
}

func (p *Parser) parseDataString() (Node, error) {
	return p.ParseString()
}

func (p *Parser) parseComplexOrSpecial() (Node, error) {
	if p.cur() == 'a' {
		p.advance(1)
		tag := uint32(p.cur())
		p.advance(1)
		if p.cur() == 'a' {
			p.advance(1)
			second := uint32(p.cur())
			p.advance(1)
			tag = (second << 16) | tag
		}
		if p.cur() != '(' {
			child, err := p.ParseData()
			if err != nil {
				return nil, err
			}
			return SpecialNode{Tag: tag, Children: []Node{child}}, nil
		}
		p.advance(1)
		var children []Node
		for p.cur() != ')' {
			child, err := p.ParseData()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		p.advance(1)
		return SpecialNode{Tag: tag, Children: children}, nil
	}

	// plain '(' ... ')' complex tuple
	p.advance(1)
	var children []Node
	for p.cur() != ')' {
		child, err := p.ParseData()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	p.advance(1)
	return ComplexNode{Children: children}, nil
}

// ParseComplexParam parses a parameter that is either a plain expression
// or a parenthesized tuple of Data parameters (used for gosub_with-style
// argument lists).
func (p *Parser) ParseComplexParam() (Node, error) {
	switch p.cur() {
	case ',':
		p.advance(1)
		return p.ParseData()
	case '(':
		p.advance(1)
		var children []Node
		for p.cur() != ')' {
			child, err := p.ParseData()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		p.advance(1)
		return ComplexNode{Children: children}, nil
	default:
		return p.ParseExpression()
	}
}
