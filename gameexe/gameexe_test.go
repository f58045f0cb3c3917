package gameexe

import (
	"strings"
	"testing"
)

func TestGameexeChaining(t *testing.T) {
	src := "#IMAGINE.ONE=1\n#IMAGINE.TWO=2\n#IMAGINE.THREE=3\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := g.GetView("IMAGINE", "ONE").AsInt()
	if err != nil || v != 1 {
		t.Fatalf("got (%v,%v), want (1,nil)", v, err)
	}

	g.SetInt("IMAGINE.FOUR", 10)
	v2, err := g.GetView("IMAGINE", "FOUR").AsInt()
	if err != nil || v2 != 10 {
		t.Fatalf("got (%v,%v), want (10,nil)", v2, err)
	}
}

func TestGameexeMissingKey(t *testing.T) {
	g := New()
	if _, err := g.GetView("NOPE").AsInt(); err == nil {
		t.Fatal("expected NotFound error")
	}
}

func TestGameexeTypeMismatch(t *testing.T) {
	g, err := Parse(strings.NewReader("#WINDOW.TITLE=\"hello\"\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.GetView("WINDOW", "TITLE").AsInt(); err == nil {
		t.Fatal("expected TypeMismatch error")
	}
}

func TestGameexeQuotedListAndEscapes(t *testing.T) {
	g, err := Parse(strings.NewReader(`#NAMES=1, "Say \"hi\"", 3` + "\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := g.GetView("NAMES")
	a, _ := v.At(0)
	b, _ := v.At(1)
	c, _ := v.At(2)
	if a.ToInt() != 1 || b.ToStr() != `Say "hi"` || c.ToInt() != 3 {
		t.Fatalf("got %v %v %v", a, b, c)
	}
}

func TestGameexeDashSeparatorQuirk(t *testing.T) {
	// "5-3" with no comma: the dash separates two numbers rather than
	// signing the second, so this must parse as two int tokens 5 and 3.
	g, err := Parse(strings.NewReader("#DSTRACK=5-3\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vec, err := g.GetView("DSTRACK").AsIntVec()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 || vec[0] != 5 || vec[1] != 3 {
		t.Fatalf("got %v, want [5 3]", vec)
	}
}

func TestGameexeFilterPreservesOrder(t *testing.T) {
	g, err := Parse(strings.NewReader("#WINDOW.001=1\n#WINDOW.000=2\n#OTHER=3\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	views := g.Filter("WINDOW.")
	if len(views) != 2 {
		t.Fatalf("got %d views, want 2", len(views))
	}
	if views[0].Key() != "WINDOW.001" || views[1].Key() != "WINDOW.000" {
		t.Fatalf("got keys %q %q, want insertion order", views[0].Key(), views[1].Key())
	}
}

func TestGameexeLenientForm(t *testing.T) {
	g, err := Parse(strings.NewReader("background = forest.g00\ncount = 42\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := g.GetView("background").AsStr()
	if err != nil || s != "forest.g00" {
		t.Fatalf("got (%v,%v), want (forest.g00,nil)", s, err)
	}
	n, err := g.GetView("count").AsInt()
	if err != nil || n != 42 {
		t.Fatalf("got (%v,%v), want (42,nil)", n, err)
	}
}
