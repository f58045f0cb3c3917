package gameexe

import "github.com/ssakurai/rlvm/rlerr"

// View is a chainable accessor over the tokens stored at one dotted key.
type View struct {
	g   *Gameexe
	key string
}

// Key returns the dotted key this view addresses.
func (v *View) Key() string { return v.key }

func (v *View) tokens() ([]Token, error) {
	t, ok := v.g.values[v.key]
	if !ok {
		return nil, rlerr.New(rlerr.NotFound, "gameexe key %q not found", v.key)
	}
	return t, nil
}

// AsInt returns the first token as an int, failing with TypeMismatch if it
// holds a string.
func (v *View) AsInt() (int32, error) {
	toks, err := v.tokens()
	if err != nil {
		return 0, err
	}
	if len(toks) == 0 || !toks[0].IsInt() {
		return 0, rlerr.New(rlerr.TypeMismatch, "gameexe key %q is not an int", v.key)
	}
	return toks[0].ToInt(), nil
}

// AsStr returns the first token as a string, failing with TypeMismatch if
// it holds an int.
func (v *View) AsStr() (string, error) {
	toks, err := v.tokens()
	if err != nil {
		return "", err
	}
	if len(toks) == 0 || !toks[0].IsStr() {
		return "", rlerr.New(rlerr.TypeMismatch, "gameexe key %q is not a string", v.key)
	}
	return toks[0].ToStr(), nil
}

// AsIntVec returns every stored token coerced to int (ToInt, so strings
// yield their surrogate id).
func (v *View) AsIntVec() ([]int32, error) {
	toks, err := v.tokens()
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(toks))
	for i, t := range toks {
		out[i] = t.ToInt()
	}
	return out, nil
}

// At returns the token at position n.
func (v *View) At(n int) (Token, error) {
	toks, err := v.tokens()
	if err != nil {
		return Token{}, err
	}
	if n < 0 || n >= len(toks) {
		return Token{}, rlerr.New(rlerr.OutOfRange, "gameexe key %q has no token at index %d", v.key, n)
	}
	return toks[n], nil
}

// Size returns the number of tokens stored at this key, or 0 if missing.
func (v *View) Size() int {
	return len(v.g.values[v.key])
}

// Exists reports whether this key has any stored tokens.
func (v *View) Exists() bool {
	return v.g.Exists(v.key)
}
