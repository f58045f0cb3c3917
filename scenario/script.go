package scenario

import "github.com/ssakurai/rlvm/bytecode"

// Script is the parsed body of a scenario: every element keyed by its
// on-disk location, in parse (insertion) order, plus the entrypoint index
// that maps a numbered entry to the location of its marker element.
//
// spec.md §3 calls element_map an "ordered map<location:u32,
// BytecodeElement>" — Go has no such container, so Script keeps both a
// lookup map and the insertion-ordered key slice next to it.
type Script struct {
	order       []uint32
	index       map[uint32]int // location -> position in order
	elements    map[uint32]bytecode.Element
	Entrypoints map[int]uint32
}

func newScript() *Script {
	return &Script{
		index:       make(map[uint32]int),
		elements:    make(map[uint32]bytecode.Element),
		Entrypoints: make(map[int]uint32),
	}
}

func (s *Script) insert(loc uint32, el bytecode.Element) {
	if _, exists := s.index[loc]; exists {
		s.elements[loc] = el
		return
	}
	s.index[loc] = len(s.order)
	s.order = append(s.order, loc)
	s.elements[loc] = el
}

// At returns the element starting exactly at loc.
func (s *Script) At(loc uint32) (bytecode.Element, bool) {
	el, ok := s.elements[loc]
	return el, ok
}

// Next returns the location immediately following loc in parse order.
func (s *Script) Next(loc uint32) (uint32, bool) {
	i, ok := s.index[loc]
	if !ok || i+1 >= len(s.order) {
		return 0, false
	}
	return s.order[i+1], true
}

// HasNext reports whether Next(loc) would succeed.
func (s *Script) HasNext(loc uint32) bool {
	_, ok := s.Next(loc)
	return ok
}

// FirstLocation returns the location of the first parsed element, if any.
func (s *Script) FirstLocation() (uint32, bool) {
	if len(s.order) == 0 {
		return 0, false
	}
	return s.order[0], true
}

// Entrypoint resolves a numbered entrypoint to its element's location.
func (s *Script) Entrypoint(index int) (uint32, bool) {
	loc, ok := s.Entrypoints[index]
	return loc, ok
}

// Len reports how many elements were parsed.
func (s *Script) Len() int { return len(s.order) }

// OffsetOf returns the insertion-order position of the element starting
// exactly at loc — the form scriptor.ScriptLocation cursors store instead
// of a raw byte location, matching original_source/.../scriptor.cpp's
// Load (a std::lower_bound exact-match lookup into the elements vector).
func (s *Script) OffsetOf(loc uint32) (int, bool) {
	i, ok := s.index[loc]
	return i, ok
}

// LocationAt returns the raw on-disk location of the element at the given
// insertion-order position.
func (s *Script) LocationAt(offset int) (uint32, bool) {
	if offset < 0 || offset >= len(s.order) {
		return 0, false
	}
	return s.order[offset], true
}
