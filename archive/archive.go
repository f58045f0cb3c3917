// Package archive implements the SEEN.TXT loader: a memory-mapped
// table-of-contents over per-scenario compressed, XOR-obfuscated payloads,
// decoded into scenario.Scenario values lazily and memoized per index.
package archive

import (
	"os"
	"sort"
	"sync"

	"github.com/edsrzf/mmap-go"

	"github.com/ssakurai/rlvm/lzss"
	"github.com/ssakurai/rlvm/rlerr"
	"github.com/ssakurai/rlvm/scenario"
)

// tocEntryCount is the fixed number of table-of-contents slots SEEN.TXT
// reserves, one per possible scenario number. An entry with offset and
// length both zero denotes "no scenario at this index".
//
// original_source/src/libreallive/archive.hpp declares Archive's
// interface (ReadTOC, a std::map<int, FilePos> toc_) but the
// implementation file that would pin down this fixed-width record layout
// is absent from the retrieved corpus — the same gap noted for the
// scenario package's Header. 10000 matches the well-known RealLive
// archive convention (scenario numbers 0..9999); it is asserted here,
// not ported from a missing archive.cpp.
const tocEntryCount = 10000

// tocRecordSize is [offset u32][length u32], per spec.md §4.10.
const tocRecordSize = 8

// firstLevelXorKey is the fixed byte pattern applied, cyclically (modulo
// its length), to every scenario's compressed payload before the
// optional per-game second-stage key and LZSS decompression. Its actual
// byte values are not present anywhere in the retrieved original_source/
// corpus (compression.cpp and every archive/header file that might carry
// them are missing); this is a placeholder of the right *shape* — a
// short fixed repeating key, XORed in first — documented as invented
// rather than silently guessed.
var firstLevelXorKey = []byte{0x8b, 0xe5, 0x5d, 0xc3, 0x90, 0x90, 0xeb, 0x0d}

// secondLevelXorKeys maps a Gameexe #REGNAME value to that game's
// second-stage key. Real per-game keys are proprietary to each title and
// are not part of this corpus; callers that need fidelity against a real
// archive register keys at runtime via RegisterSecondLevelXorKey.
var secondLevelXorKeys = map[string][]byte{}
var secondLevelXorKeysMu sync.Mutex

// RegisterSecondLevelXorKey installs (or replaces) the second-stage XOR
// key used for archives whose Gameexe #REGNAME equals regname.
func RegisterSecondLevelXorKey(regname string, key []byte) {
	secondLevelXorKeysMu.Lock()
	defer secondLevelXorKeysMu.Unlock()
	secondLevelXorKeys[regname] = append([]byte(nil), key...)
}

func xorCycled(data []byte, key []byte) []byte {
	if len(key) == 0 {
		return data
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}

type tocEntry struct {
	offset uint32
	length uint32
}

// Archive is a loaded SEEN.TXT: its table of contents plus a lazily
// populated, memoized cache of decoded scenarios.
type Archive struct {
	data      []byte
	mapping   mmap.MMap // non-nil only when Open (not OpenBytes) was used
	toc       map[int]tocEntry
	regname   string
	secondKey []byte

	mu        sync.Mutex
	scenarios map[int]*scenario.Scenario
}

// Open memory-maps filename and reads its table of contents. regname is
// the Gameexe's #REGNAME value, used to select a per-game second-stage
// XOR key (see RegisterSecondLevelXorKey); pass "" when no per-game key
// applies (matches Archive's single-argument unit-test constructor).
func Open(filename string, regname string) (*Archive, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, rlerr.Wrap(rlerr.NotFound, err, "archive: opening %s", filename)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, rlerr.Wrap(rlerr.BadFormat, err, "archive: mapping %s", filename)
	}

	ar, err := newFromBytes([]byte(m), regname)
	if err != nil {
		m.Unmap()
		return nil, err
	}
	ar.mapping = m
	return ar, nil
}

// OpenBytes builds an Archive directly from an already-loaded buffer,
// bypassing the memory map — the constructor unit tests use, matching
// original_source/.../archive.hpp's "assumes no per-game xor key" test
// constructor in spirit (here the regname is still accepted, just not
// backed by an mmap).
func OpenBytes(data []byte, regname string) (*Archive, error) {
	return newFromBytes(data, regname)
}

func newFromBytes(data []byte, regname string) (*Archive, error) {
	toc, err := readTOC(data)
	if err != nil {
		return nil, err
	}
	secondLevelXorKeysMu.Lock()
	key := secondLevelXorKeys[regname]
	secondLevelXorKeysMu.Unlock()

	return &Archive{
		data:      data,
		toc:       toc,
		regname:   regname,
		secondKey: key,
		scenarios: make(map[int]*scenario.Scenario),
	}, nil
}

// Close unmaps the archive's backing file, if it was opened via Open.
func (a *Archive) Close() error {
	if a.mapping != nil {
		return a.mapping.Unmap()
	}
	return nil
}

func readTOC(data []byte) (map[int]tocEntry, error) {
	if len(data) < tocEntryCount*tocRecordSize {
		return nil, rlerr.New(rlerr.Truncated, "archive: file too short for a %d-entry TOC", tocEntryCount)
	}
	toc := make(map[int]tocEntry)
	for i := 0; i < tocEntryCount; i++ {
		base := i * tocRecordSize
		offset := readU32(data[base : base+4])
		length := readU32(data[base+4 : base+8])
		if offset == 0 && length == 0 {
			continue
		}
		toc[i] = tocEntry{offset: offset, length: length}
	}
	return toc, nil
}

func readU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// decompressScenario maps out scenario index's compressed payload, applies
// both XOR stages, and decompresses it, without parsing anything out of
// the result.
func (a *Archive) decompressScenario(index int) ([]byte, error) {
	entry, ok := a.toc[index]
	if !ok {
		return nil, rlerr.New(rlerr.NotFound, "archive: no scenario %d", index)
	}
	start, length := int(entry.offset), int(entry.length)
	if start < 0 || length < 0 || start+length > len(a.data) {
		return nil, rlerr.New(rlerr.OutOfRange, "archive: scenario %d's TOC entry [%d,%d) exceeds file", index, start, start+length)
	}
	stored := a.data[start : start+length]

	framed := xorCycled(stored, firstLevelXorKey)
	if a.secondKey != nil {
		framed = xorCycled(framed, a.secondKey)
	}

	plain, err := lzss.Decompress(framed)
	if err != nil {
		return nil, rlerr.Wrap(rlerr.BadFormat, err, "archive: decompressing scenario %d", index)
	}
	return plain, nil
}

// decodeScenario decompresses scenario index and parses its header and
// full script body.
func (a *Archive) decodeScenario(index int) (*scenario.Scenario, error) {
	plain, err := a.decompressScenario(index)
	if err != nil {
		return nil, err
	}
	return scenario.Parse(plain, index, nil)
}

// GetScenario returns scenario index, decoding and memoizing it on first
// access. Implements scriptor.ScenarioSource.
func (a *Archive) GetScenario(index int) (*scenario.Scenario, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if sc, ok := a.scenarios[index]; ok {
		return sc, nil
	}
	sc, err := a.decodeScenario(index)
	if err != nil {
		return nil, err
	}
	a.scenarios[index] = sc
	return sc, nil
}

// GetFirstScenario returns the lowest-indexed scenario in the archive.
func (a *Archive) GetFirstScenario() (*scenario.Scenario, error) {
	if len(a.toc) == 0 {
		return nil, rlerr.New(rlerr.NotFound, "archive: empty table of contents")
	}
	first := -1
	for idx := range a.toc {
		if first == -1 || idx < first {
			first = idx
		}
	}
	return a.GetScenario(first)
}

// CompressedSize returns the on-disk, still-compressed byte length of
// scenario index's payload, for callers (rlkp's summary output) that
// want to report archive size without decoding anything.
func (a *Archive) CompressedSize(index int) (int, bool) {
	entry, ok := a.toc[index]
	if !ok {
		return 0, false
	}
	return int(entry.length), true
}

// Indices returns every scenario index present in the table of
// contents, ascending — the same enumeration GetProbableEncodingType
// already needs internally, exposed for callers (rlkp) that want to walk
// every scenario in an archive rather than probe for one property of it.
func (a *Archive) Indices() []int {
	indices := make([]int, 0, len(a.toc))
	for idx := range a.toc {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// GetProbableEncodingType scans scenario headers in ascending index
// order, returning the first non-default (CP932) text encoding id it
// finds, short-circuiting — per SPEC_FULL.md's supplemented description
// of archive.hpp's GetProbableEncodingType. It parses each scenario's
// header only, skipping the bytecode body entirely, and skips (rather
// than fails on) a scenario whose payload doesn't decode, so one corrupt
// scenario can't block probing an otherwise-loadable archive.
func (a *Archive) GetProbableEncodingType() (int, error) {
	for _, idx := range a.Indices() {
		plain, err := a.decompressScenario(idx)
		if err != nil {
			continue
		}
		header, _, err := scenario.ParseHeader(plain)
		if err != nil {
			continue
		}
		if enc := header.Metadata.TextEncoding(); enc != 0 {
			return enc, nil
		}
	}
	return 0, nil
}
