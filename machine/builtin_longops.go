package machine

import "time"

// Pause waits for user input or, in automode, a timeout — spec.md §4.9's
// first built-in long operation. Grounded in spirit on
// _examples/DaveTCode-zmachine-golang/zmachine/screen.go's
// StateChangeRequest{WaitForInput, WaitForCharacter}, generalized from a
// channel-signalled wait state into a polled Invoke so it fits the
// single-method LongOperation shape.
type Pause struct {
	Input    InputSource
	Auto     bool
	Deadline time.Time
	now      func() time.Time // overridable for tests; defaults to time.Now
}

// NewPause builds a Pause that waits indefinitely for input unless auto
// is set, in which case it also completes once deadline passes.
func NewPause(input InputSource, auto bool, deadline time.Time) *Pause {
	return &Pause{Input: input, Auto: auto, Deadline: deadline, now: time.Now}
}

func (p *Pause) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p *Pause) Invoke(m *Machine) bool {
	if p.Input != nil && p.Input.PollInput() {
		return true
	}
	if p.Auto && !p.clock().Before(p.Deadline) {
		return true
	}
	return false
}

// Rect is the plain rectangle Zoom interpolates between, kept free of any
// graphics-library type since the rendering backend is a Non-goal.
type Rect struct {
	X0, Y0, X1, Y1 int
}

func lerpInt(a, b int, t float64) int {
	return a + int(float64(b-a)*t)
}

// Zoom time-drives a rectangle from Start to End over Duration, calling
// OnFrame with the interpolated rectangle every Invoke, per spec.md
// §4.9's "time-driven rectangle interpolation".
type Zoom struct {
	Start, End Rect
	Duration   time.Duration
	OnFrame    func(Rect)

	startTime time.Time
	started   bool
	now       func() time.Time
}

func NewZoom(start, end Rect, duration time.Duration, onFrame func(Rect)) *Zoom {
	return &Zoom{Start: start, End: end, Duration: duration, OnFrame: onFrame, now: time.Now}
}

func (z *Zoom) clock() time.Time {
	if z.now != nil {
		return z.now()
	}
	return time.Now()
}

func (z *Zoom) Invoke(m *Machine) bool {
	if !z.started {
		z.startTime = z.clock()
		z.started = true
	}
	elapsed := z.clock().Sub(z.startTime)
	if elapsed >= z.Duration || z.Duration <= 0 {
		if z.OnFrame != nil {
			z.OnFrame(z.End)
		}
		return true
	}
	t := float64(elapsed) / float64(z.Duration)
	if z.OnFrame != nil {
		z.OnFrame(Rect{
			X0: lerpInt(z.Start.X0, z.End.X0, t),
			Y0: lerpInt(z.Start.Y0, z.End.Y0, t),
			X1: lerpInt(z.Start.X1, z.End.X1, t),
			Y1: lerpInt(z.Start.Y1, z.End.Y1, t),
		})
	}
	return false
}

// TextoutLongOp reveals Text on Surface a few characters at a time,
// spec.md §4.9's "multi-frame text reveal" — the long operation a
// Textout instruction pushes instead of writing its whole string in one
// step() tick.
type TextoutLongOp struct {
	Text         string
	Surface      TextSurface
	CharsPerTick int

	runes    []rune
	revealed int
}

func NewTextoutLongOp(text string, surface TextSurface, charsPerTick int) *TextoutLongOp {
	if charsPerTick <= 0 {
		charsPerTick = 1
	}
	return &TextoutLongOp{Text: text, Surface: surface, CharsPerTick: charsPerTick, runes: []rune(text)}
}

func (t *TextoutLongOp) Invoke(m *Machine) bool {
	if t.revealed >= len(t.runes) {
		return true
	}
	end := t.revealed + t.CharsPerTick
	if end > len(t.runes) {
		end = len(t.runes)
	}
	if t.Surface != nil {
		t.Surface.Write(string(t.runes[t.revealed:end]))
	}
	t.revealed = end
	return t.revealed >= len(t.runes)
}
