package scriptor

import (
	"testing"

	"github.com/ssakurai/rlvm/rlerr"
	"github.com/ssakurai/rlvm/scenario"
)

func u16le(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func i32le(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

func buildHeader(savepointMessage, savepointSelcom, savepointSeentop byte, textEncoding uint16) []byte {
	var b []byte
	b = append(b, u16le(0x8358)...)
	b = append(b, 0) // use_xor_2
	b = append(b, i32le(0)...)
	b = append(b, i32le(0)...)
	b = append(b, savepointMessage, savepointSelcom, savepointSeentop)
	b = append(b, u16le(textEncoding)...)
	b = append(b, u16le(0)...) // no dramatis personae
	return b
}

// fakeSource decodes scenarios from a fixed in-memory table, standing in
// for archive.Archive in these tests.
type fakeSource struct {
	scenarios map[int][]byte // raw payload: header + script bytes
}

func (f *fakeSource) GetScenario(number int) (*scenario.Scenario, error) {
	data, ok := f.scenarios[number]
	if !ok {
		return nil, rlerr.New(rlerr.NotFound, "scenario %d not found", number)
	}
	return scenario.Parse(data, number, nil)
}

// buildMultiElementScenario lays out four elements of different kinds —
// a Comma, a Line meta, a textout run, and a trailing Comma — so the
// scenario has more than one distinct on-disk location to traverse, in
// the spirit of spec.md §8 scenario 5 (locations {1, 77, 177, 300}; this
// implementation's header is longer than 1 byte, so the exact offsets
// differ, but the traversal invariant under test — visit every element in
// address order, no skips, no repeats — is identical).
func buildMultiElementScenario() []byte {
	header := buildHeader(0, 0, 0, 0)
	var script []byte
	script = append(script, 0) // Comma
	script = append(script, '\n')
	script = append(script, u16le(42)...) // Line 42
	script = append(script, []byte("hello")...)
	script = append(script, 0) // Comma terminates textout, then is itself an element
	return append(header, script...)
}

func TestScriptorTraversalVisitsElementsInOrderNoSkipsNoRepeats(t *testing.T) {
	data := buildMultiElementScenario()
	src := &fakeSource{scenarios: map[int][]byte{5: data}}
	s, err := New(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cur, err := s.LoadFirst(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var visited []uint32
	for s.HasNext(cur) {
		loc, err := s.LocationNumber(cur)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := s.Resolve(cur); err != nil {
			t.Fatalf("unexpected error resolving %d: %v", loc, err)
		}
		visited = append(visited, loc)
		cur = s.Next(cur)
	}

	if len(visited) != 4 {
		t.Fatalf("visited %d elements, want 4: %v", len(visited), visited)
	}
	for i := 1; i < len(visited); i++ {
		if visited[i] <= visited[i-1] {
			t.Fatalf("locations not strictly increasing: %v", visited)
		}
	}
	seen := make(map[uint32]bool)
	for _, loc := range visited {
		if seen[loc] {
			t.Fatalf("location %d visited twice: %v", loc, visited)
		}
		seen[loc] = true
	}
}

func TestScriptorResolveKindsMatchElements(t *testing.T) {
	data := buildMultiElementScenario()
	src := &fakeSource{scenarios: map[int][]byte{5: data}}
	s, err := New(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cur, err := s.LoadFirst(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var kinds []Instruction
	for s.HasNext(cur) {
		instr, err := s.Resolve(cur)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		kinds = append(kinds, instr)
		cur = s.Next(cur)
	}
	if len(kinds) != 4 {
		t.Fatalf("got %d instructions, want 4", len(kinds))
	}
	if _, ok := kinds[0].(Nop); !ok {
		t.Fatalf("kinds[0] = %T, want Nop", kinds[0])
	}
	line, ok := kinds[1].(Line)
	if !ok || line.N != 42 {
		t.Fatalf("kinds[1] = %#v, want Line{42}", kinds[1])
	}
	to, ok := kinds[2].(Textout)
	if !ok || to.Text != "hello" {
		t.Fatalf("kinds[2] = %#v, want Textout{hello}", kinds[2])
	}
	if _, ok := kinds[3].(Nop); !ok {
		t.Fatalf("kinds[3] = %T, want Nop", kinds[3])
	}
}

func TestScriptorLoadUnknownLocationFails(t *testing.T) {
	data := buildMultiElementScenario()
	src := &fakeSource{scenarios: map[int][]byte{5: data}}
	s, err := New(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Load(5, 999999); err == nil {
		t.Fatal("expected error loading a location with no element")
	}
}

func TestScenarioConfigTriStateResolution(t *testing.T) {
	data := append(buildHeader(1, 2, 0, 932), 0) // message=true, selcom=false, seentop=default
	src := &fakeSource{scenarios: map[int][]byte{7: data}}
	s, err := New(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.SetDefaultScenarioConfig(ScenarioConfig{EnableSeentopSavepoint: true})

	cfg, err := s.GetScenarioConfig(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.EnableMessageSavepoint {
		t.Fatal("EnableMessageSavepoint = false, want true (header value 1)")
	}
	if cfg.EnableSelcomSavepoint {
		t.Fatal("EnableSelcomSavepoint = true, want false (header value 2)")
	}
	if !cfg.EnableSeentopSavepoint {
		t.Fatal("EnableSeentopSavepoint = false, want true (deferred to default)")
	}
	if cfg.TextEncoding != 932 {
		t.Fatalf("TextEncoding = %d, want 932", cfg.TextEncoding)
	}
}
