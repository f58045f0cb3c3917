package gameexe

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/ssakurai/rlvm/rlerr"
)

// Gameexe maps each dotted key to one vector of Tokens, parsed from a
// line-oriented INI-like configuration file. Keys keep the order in which
// they were first stored. A key holds a single vector: a later line (or
// Set) with the same key replaces the earlier value instead of adding a
// second entry, and the key keeps its original position in that order.
type Gameexe struct {
	order  []string
	values map[string][]Token
}

// New returns an empty Gameexe, useful for tests and for programmatic
// overrides layered on top of a parsed file.
func New() *Gameexe {
	return &Gameexe{values: make(map[string][]Token)}
}

// Parse reads a Gameexe file from r.
func Parse(r io.Reader) (*Gameexe, error) {
	g := New()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if err := g.parseLine(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, rlerr.Wrap(rlerr.BadFormat, err, "reading gameexe")
	}
	return g, nil
}

func (g *Gameexe) parseLine(line string) error {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || !strings.Contains(trimmed, "=") {
		return nil
	}

	if strings.HasPrefix(trimmed, "#") {
		rest := trimmed[1:]
		eq := strings.IndexByte(rest, '=')
		if eq < 0 {
			return nil
		}
		key := strings.TrimSpace(rest[:eq])
		tokens := tokenizeStrictValues(rest[eq+1:])
		g.Set(key, tokens)
		return nil
	}

	eq := strings.IndexByte(trimmed, '=')
	key := strings.TrimSpace(trimmed[:eq])
	value := strings.TrimSpace(trimmed[eq+1:])
	g.Set(key, []Token{parseLenientValue(value)})
	return nil
}

func parseLenientValue(value string) Token {
	if strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") && len(value) >= 2 {
		return NewStrToken(unescapeQuoted(value[1 : len(value)-1]))
	}
	if n, err := strconv.ParseInt(value, 10, 32); err == nil {
		return NewIntToken(int32(n))
	}
	return NewStrToken(value)
}

func unescapeQuoted(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '"' {
			sb.WriteByte('"')
			i++
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// tokenizeStrictValues implements the `#KEY = v1, v2, ...` value grammar,
// including the fragile quirk (preserved from the original DSTRACK data)
// where a '-' directly following a digit in an unquoted token acts as a
// value separator rather than the sign of the next number.
func tokenizeStrictValues(s string) []Token {
	var tokens []Token
	i, n := 0, len(s)
	for i < n {
		for i < n && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}
		if s[i] == '"' {
			i++
			var sb strings.Builder
			for i < n && s[i] != '"' {
				if s[i] == '\\' && i+1 < n && s[i+1] == '"' {
					sb.WriteByte('"')
					i += 2
					continue
				}
				sb.WriteByte(s[i])
				i++
			}
			if i < n {
				i++ // consume closing quote
			}
			tokens = append(tokens, NewStrToken(sb.String()))
			// skip to next comma, if any
			for i < n && s[i] != ',' {
				i++
			}
			if i < n {
				i++
			}
			continue
		}

		text, next := scanUnquotedToken(s, i)
		i = next
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if v, err := strconv.ParseInt(text, 10, 32); err == nil {
			tokens = append(tokens, NewIntToken(int32(v)))
		} else {
			tokens = append(tokens, NewStrToken(text))
		}
	}
	return tokens
}

func scanUnquotedToken(s string, start int) (text string, next int) {
	i, n := start, len(s)
	for i < n {
		c := s[i]
		if c == ',' {
			return s[start:i], i + 1
		}
		if c == '-' && i > start && isDigitByte(s[i-1]) {
			return s[start:i], i + 1
		}
		i++
	}
	return s[start:i], i
}

func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }

// Set replaces the stored vector for key with tokens — writing through a
// key-view replaces whatever was previously stored there.
func (g *Gameexe) Set(key string, tokens []Token) {
	if _, ok := g.values[key]; !ok {
		g.order = append(g.order, key)
	}
	g.values[key] = tokens
}

// SetInt is a convenience wrapper for programmatic single-value writes.
func (g *Gameexe) SetInt(key string, v int32) {
	g.Set(key, []Token{NewIntToken(v)})
}

// Filter yields views for every stored key with the given dotted prefix,
// in original insertion order.
func (g *Gameexe) Filter(prefix string) []*View {
	var out []*View
	for _, key := range g.order {
		if strings.HasPrefix(key, prefix) {
			out = append(out, &View{g: g, key: key})
		}
	}
	return out
}

// GetView composes a dotted key from parts and returns a chainable
// accessor over its stored tokens.
func (g *Gameexe) GetView(parts ...string) *View {
	return &View{g: g, key: strings.Join(parts, ".")}
}

// Exists reports whether key has any stored tokens.
func (g *Gameexe) Exists(key string) bool {
	_, ok := g.values[key]
	return ok
}
