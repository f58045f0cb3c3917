// Package scriptor is the facade the machine drives: a bounded cache of
// decoded Scenarios, location cursors over them, and the flattening of a
// raw bytecode.Element into the closed Instruction variant the machine's
// step() dispatches on.
package scriptor

import (
	"github.com/hashicorp/golang-lru/v2"

	"github.com/ssakurai/rlvm/bytecode"
	"github.com/ssakurai/rlvm/rlerr"
	"github.com/ssakurai/rlvm/scenario"
)

// scenarioCacheSize matches spec.md §4.7's "typical size 64".
const scenarioCacheSize = 64

// ScenarioSource loads a Scenario by its number, decoding it from the
// archive on a cache miss. archive.Archive implements this.
type ScenarioSource interface {
	GetScenario(number int) (*scenario.Scenario, error)
}

// ScriptLocation is a cursor: a scenario number plus the position of an
// element within that scenario's insertion-ordered element list — not a
// raw byte location. Grounded on original_source/.../scriptor.cpp's
// ScriptLocation (scenario_number, location_offset), where location_offset
// already means "index into the elements vector", not a byte offset.
type ScriptLocation struct {
	ScenarioNumber int
	offset         int
}

// ScenarioConfig resolves a scenario header's tri-state savepoint flags
// against an interpreter-wide default, per spec.md §4.7 and
// original_source/.../scriptor.cpp's GetScenarioConfig.
type ScenarioConfig struct {
	TextEncoding            int
	EnableMessageSavepoint  bool
	EnableSelcomSavepoint   bool
	EnableSeentopSavepoint  bool
}

// Scriptor owns the decoded-scenario cache and all cursor operations.
type Scriptor struct {
	source  ScenarioSource
	cache   *lru.Cache[int, *scenario.Scenario]
	def     ScenarioConfig
}

// New builds a Scriptor backed by source, with a bounded LRU cache of
// decoded scenarios (spec.md §4.7's "typical size 64").
func New(source ScenarioSource) (*Scriptor, error) {
	cache, err := lru.New[int, *scenario.Scenario](scenarioCacheSize)
	if err != nil {
		return nil, rlerr.Wrap(rlerr.BadFormat, err, "scriptor: building scenario cache")
	}
	return &Scriptor{source: source, cache: cache}, nil
}

func (s *Scriptor) scenarioFor(number int) (*scenario.Scenario, error) {
	if sc, ok := s.cache.Get(number); ok {
		return sc, nil
	}
	sc, err := s.source.GetScenario(number)
	if err != nil {
		return nil, err
	}
	s.cache.Add(number, sc)
	return sc, nil
}

// Load positions a cursor at the element starting exactly at loc, failing
// if no element starts there.
func (s *Scriptor) Load(scenarioNumber int, loc uint32) (ScriptLocation, error) {
	sc, err := s.scenarioFor(scenarioNumber)
	if err != nil {
		return ScriptLocation{}, err
	}
	offset, ok := sc.Script.OffsetOf(loc)
	if !ok {
		return ScriptLocation{}, rlerr.New(rlerr.NotFound, "location %d not found in scenario %d", loc, scenarioNumber)
	}
	return ScriptLocation{ScenarioNumber: scenarioNumber, offset: offset}, nil
}

// LoadFirst positions a cursor at a scenario's first element.
func (s *Scriptor) LoadFirst(scenarioNumber int) (ScriptLocation, error) {
	if _, err := s.scenarioFor(scenarioNumber); err != nil {
		return ScriptLocation{}, err
	}
	return ScriptLocation{ScenarioNumber: scenarioNumber, offset: 0}, nil
}

// LoadEntry resolves an entrypoint index to its element's location via the
// scenario's entrypoint map, then positions a cursor there.
func (s *Scriptor) LoadEntry(scenarioNumber int, entry int) (ScriptLocation, error) {
	sc, err := s.scenarioFor(scenarioNumber)
	if err != nil {
		return ScriptLocation{}, err
	}
	loc, err := sc.FindEntrypoint(entry)
	if err != nil {
		return ScriptLocation{}, err
	}
	return s.Load(scenarioNumber, loc)
}

// Next advances cursor to the following element by insertion order.
func (s *Scriptor) Next(cur ScriptLocation) ScriptLocation {
	cur.offset++
	return cur
}

// HasNext reports whether cur currently names a valid element. (Matches
// original_source/.../scriptor.cpp's HasNext, which really asks "is this
// offset still in range" rather than "is there one after this" — the
// machine calls it right after Next() to decide whether to keep going.)
func (s *Scriptor) HasNext(cur ScriptLocation) bool {
	sc, err := s.scenarioFor(cur.ScenarioNumber)
	if err != nil {
		return false
	}
	return cur.offset < sc.Script.Len()
}

// LocationNumber returns the on-disk location number cur refers to, for
// save-state capture (a save records an absolute location, not an opaque
// cache-dependent cursor index).
func (s *Scriptor) LocationNumber(cur ScriptLocation) (uint32, error) {
	sc, err := s.scenarioFor(cur.ScenarioNumber)
	if err != nil {
		return 0, err
	}
	loc, ok := sc.Script.LocationAt(cur.offset)
	if !ok {
		return 0, rlerr.New(rlerr.OutOfRange, "cursor offset %d out of range in scenario %d", cur.offset, cur.ScenarioNumber)
	}
	return loc, nil
}

// SetDefaultScenarioConfig installs the interpreter-wide savepoint default
// every scenario's tri-state flags fall back to when unset.
func (s *Scriptor) SetDefaultScenarioConfig(cfg ScenarioConfig) {
	s.def = cfg
}

func valueOr(value int, def bool) bool {
	switch value {
	case 1:
		return true
	case 2:
		return false
	default:
		return def
	}
}

// GetScenarioConfig resolves a scenario's tri-state savepoint header
// fields against the interpreter default.
func (s *Scriptor) GetScenarioConfig(scenarioNumber int) (ScenarioConfig, error) {
	sc, err := s.scenarioFor(scenarioNumber)
	if err != nil {
		return ScenarioConfig{}, err
	}
	return ScenarioConfig{
		TextEncoding:           sc.Encoding(),
		EnableMessageSavepoint: valueOr(sc.SavepointMessage(), s.def.EnableMessageSavepoint),
		EnableSelcomSavepoint:  valueOr(sc.SavepointSelcom(), s.def.EnableSelcomSavepoint),
		EnableSeentopSavepoint: valueOr(sc.SavepointSeentop(), s.def.EnableSeentopSavepoint),
	}, nil
}

// seenEnd is the CP932-encoded sentinel "SeenEnd" every compiled scenario
// is terminated with, garbage following. A Textout whose raw bytes start
// with this exact sequence is reported as End rather than Textout.
var seenEnd = []byte{0x82, 0x72, 0x82, 0x85, 0x82, 0x85, 0x82, 0x8e, 0x82, 0x64, 0x82, 0x8e, 0x82, 0x84}

// Resolve flattens the element at cur into the closed Instruction variant
// the machine dispatches on.
func (s *Scriptor) Resolve(cur ScriptLocation) (Instruction, error) {
	sc, err := s.scenarioFor(cur.ScenarioNumber)
	if err != nil {
		return nil, err
	}
	loc, ok := sc.Script.LocationAt(cur.offset)
	if !ok {
		return nil, rlerr.New(rlerr.OutOfRange, "cursor offset %d out of range in scenario %d", cur.offset, cur.ScenarioNumber)
	}
	el, ok := sc.Script.At(loc)
	if !ok {
		return nil, rlerr.New(rlerr.OutOfRange, "no element at location %d in scenario %d", loc, cur.ScenarioNumber)
	}

	switch e := el.(type) {
	case bytecode.CommaElement:
		return Nop{}, nil
	case bytecode.MetaElement:
		switch e.Type {
		case bytecode.MetaLine:
			return Line{N: e.Value}, nil
		case bytecode.MetaKidoku:
			return Kidoku{N: e.Value}, nil
		default:
			return Nop{}, nil
		}
	case bytecode.ExpressionElement:
		return Expression{Node: e.Node}, nil
	case bytecode.TextoutElement:
		text := e.Text()
		if hasSeenEndPrefix(e.Raw) {
			return End{Tail: text}, nil
		}
		return Textout{Text: text}, nil
	default:
		return Command{Element: el}, nil
	}
}

func hasSeenEndPrefix(raw []byte) bool {
	if len(raw) < len(seenEnd) {
		return false
	}
	for i, b := range seenEnd {
		if raw[i] != b {
			return false
		}
	}
	return true
}
