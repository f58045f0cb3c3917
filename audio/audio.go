// Package audio materialises named music and sound-effect records from a
// parsed Gameexe, per spec.md §2's "Audio/voice table" leaf component.
// Playback itself is an excluded collaborator (Non-goal: producing
// sound); this package only builds the lookup table opcodes consult.
package audio

import (
	"strings"

	"github.com/ssakurai/rlvm/gameexe"
)

// Track is one named background-music record.
type Track struct {
	Name    string
	File    string
	Loop    bool
	Channel int32
}

// Effect is one named sound-effect record.
type Effect struct {
	Name string
	File string
}

// Table is the materialised music/SE lookup the machine's sound opcodes
// consult by name.
type Table struct {
	tracks  map[string]Track
	effects map[string]Effect
}

// Build reads every #MUSIC.<name>.* and #SE.<name>.* entry out of exe.
// Each record's FILE sub-key names the asset stem a caller resolves
// through assets.Index; LOOP/CHANNEL are optional and default to
// false/0 when absent, matching spec.md's tri-state convention for
// Gameexe fields that a game may simply omit.
//
// Key layout (MUSIC.<name>.FILE/LOOP/CHANNEL, SE.<name>.FILE) is not
// shown in any surviving original_source/ file — archive.cpp and the
// Gameexe-driven sound table builder are both absent from this corpus,
// the same gap noted for scenario.Header and archive's TOC layout — so
// this is an invented-but-documented convention following the dotted
// "#SECTION.key.field" shape every other Gameexe section in spec.md §3
// uses (e.g. WINDOW.000.ATTR_MOD), not a ported one. Nothing in
// spec.md's own invariants depends on these exact sub-key names.
func Build(exe *gameexe.Gameexe) *Table {
	t := &Table{tracks: make(map[string]Track), effects: make(map[string]Effect)}

	for name := range sectionNames(exe, "MUSIC") {
		file, err := exe.GetView("MUSIC", name, "FILE").AsStr()
		if err != nil {
			continue
		}
		loop, _ := exe.GetView("MUSIC", name, "LOOP").AsInt()
		channel, _ := exe.GetView("MUSIC", name, "CHANNEL").AsInt()
		t.tracks[name] = Track{Name: name, File: file, Loop: loop != 0, Channel: channel}
	}

	for name := range sectionNames(exe, "SE") {
		file, err := exe.GetView("SE", name, "FILE").AsStr()
		if err != nil {
			continue
		}
		t.effects[name] = Effect{Name: name, File: file}
	}

	return t
}

// sectionNames scans every key under "<section>." and returns the set of
// distinct second path components (the record name) each one carries.
// Gameexe itself, not a single teacher/original_source file, grounds
// this: Filter's prefix-range scan plus GetView's dotted-key composition
// are exactly the primitives this section-name extraction is built from.
func sectionNames(exe *gameexe.Gameexe, section string) map[string]bool {
	out := make(map[string]bool)
	for _, v := range exe.Filter(section + ".") {
		parts := strings.SplitN(strings.TrimPrefix(v.Key(), section+"."), ".", 2)
		if len(parts) < 1 || parts[0] == "" {
			continue
		}
		out[parts[0]] = true
	}
	return out
}

// Track looks up a music record by name.
func (t *Table) Track(name string) (Track, bool) {
	tr, ok := t.tracks[name]
	return tr, ok
}

// Effect looks up a sound-effect record by name.
func (t *Table) Effect(name string) (Effect, bool) {
	e, ok := t.effects[name]
	return e, ok
}
