package archive

import (
	"testing"

	"github.com/ssakurai/rlvm/rlerr"
)

func i32le(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}
func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
func u16le(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }

// buildLZSSLiteral frames plain as an all-literal LZSS byte stream: every
// flag bit set, so the payload round-trips through lzss.Decompress
// unchanged. Mirrors spec.md §8 scenario 1's literal-frame shape.
func buildLZSSLiteral(plain []byte) []byte {
	var body []byte
	i := 0
	for i < len(plain) {
		groupLen := len(plain) - i
		if groupLen > 8 {
			groupLen = 8
		}
		var flag byte
		for b := 0; b < groupLen; b++ {
			flag |= 1 << uint(b)
		}
		body = append(body, flag)
		body = append(body, plain[i:i+groupLen]...)
		i += groupLen
	}
	archiveSize := 8 + len(body)
	out := append(i32le(int32(archiveSize)), i32le(int32(len(plain)))...)
	return append(out, body...)
}

func minimalHeader(textEncoding uint16) []byte {
	var b []byte
	b = append(b, u16le(0x8358)...)
	b = append(b, 0) // use_xor_2
	b = append(b, i32le(0)...)
	b = append(b, i32le(0)...)
	b = append(b, 0, 0, 0) // savepoint flags
	b = append(b, u16le(textEncoding)...)
	b = append(b, u16le(0)...) // no dramatis personae
	return b
}

// buildArchive lays out a TOC of tocEntryCount fixed-width records
// followed by each scenario's first-stage-XORed, LZSS-framed payload.
func buildArchive(t *testing.T, scenarios map[int][]byte) []byte {
	t.Helper()
	toc := make([]byte, tocEntryCount*tocRecordSize)
	var body []byte
	bodyBase := len(toc)

	for idx := 0; idx < tocEntryCount; idx++ {
		plain, ok := scenarios[idx]
		if !ok {
			continue
		}
		framed := buildLZSSLiteral(plain)
		obfuscated := xorCycled(framed, firstLevelXorKey)
		offset := bodyBase + len(body)
		copy(toc[idx*8:idx*8+4], u32le(uint32(offset)))
		copy(toc[idx*8+4:idx*8+8], u32le(uint32(len(obfuscated))))
		body = append(body, obfuscated...)
	}
	return append(toc, body...)
}

func TestArchiveGetScenarioDecodesAndMemoizes(t *testing.T) {
	plain := append(minimalHeader(0), 0) // header + single Comma
	data := buildArchive(t, map[int][]byte{3: plain})

	ar, err := OpenBytes(data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sc, err := ar.GetScenario(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.SceneNumber() != 3 {
		t.Fatalf("SceneNumber() = %d, want 3", sc.SceneNumber())
	}
	if sc.Script.Len() != 1 {
		t.Fatalf("Script.Len() = %d, want 1", sc.Script.Len())
	}

	sc2, err := ar.GetScenario(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc2 != sc {
		t.Fatal("GetScenario did not return the memoized pointer on second call")
	}
}

func TestArchiveGetScenarioMissingIndexFails(t *testing.T) {
	data := buildArchive(t, map[int][]byte{0: append(minimalHeader(0), 0)})
	ar, err := OpenBytes(data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ar.GetScenario(42); !rlerr.Is(err, rlerr.NotFound) {
		t.Fatalf("expected NotFound error, got %v", err)
	}
}

func TestArchiveGetFirstScenarioReturnsLowestIndex(t *testing.T) {
	data := buildArchive(t, map[int][]byte{
		9: append(minimalHeader(0), 0),
		2: append(minimalHeader(0), 0),
		5: append(minimalHeader(0), 0),
	})
	ar, err := OpenBytes(data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sc, err := ar.GetFirstScenario()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.SceneNumber() != 2 {
		t.Fatalf("SceneNumber() = %d, want 2", sc.SceneNumber())
	}
}

func TestArchiveProbableEncodingShortCircuitsOnFirstNonDefault(t *testing.T) {
	data := buildArchive(t, map[int][]byte{
		0: append(minimalHeader(0), 0),   // default CP932 (0)
		1: append(minimalHeader(936), 0), // non-default
		2: append(minimalHeader(1252), 0),
	})
	ar, err := OpenBytes(data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	enc, err := ar.GetProbableEncodingType()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc != 936 {
		t.Fatalf("GetProbableEncodingType() = %d, want 936 (first non-default, ascending scan)", enc)
	}
}

func TestArchiveIndicesAndCompressedSize(t *testing.T) {
	data := buildArchive(t, map[int][]byte{
		9: append(minimalHeader(0), 0),
		2: append(minimalHeader(0), 0),
		5: append(minimalHeader(0), 0),
	})
	ar, err := OpenBytes(data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := ar.Indices()
	want := []int{2, 5, 9}
	if len(got) != len(want) {
		t.Fatalf("Indices() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Indices() = %v, want %v", got, want)
		}
	}

	size, ok := ar.CompressedSize(2)
	if !ok || size <= 0 {
		t.Fatalf("CompressedSize(2) = (%d, %v), want a positive size", size, ok)
	}
	if _, ok := ar.CompressedSize(42); ok {
		t.Fatal("CompressedSize(42) reported ok for a scenario not in the archive")
	}
}

func TestArchiveSecondLevelXorKeyAppliedByRegname(t *testing.T) {
	plain := append(minimalHeader(0), 0)
	framed := buildLZSSLiteral(plain)

	RegisterSecondLevelXorKey("test-game", []byte{0x42, 0x17})
	obf := xorCycled(xorCycled(framed, firstLevelXorKey), []byte{0x42, 0x17})

	toc := make([]byte, tocEntryCount*tocRecordSize)
	copy(toc[0:4], u32le(uint32(len(toc))))
	copy(toc[4:8], u32le(uint32(len(obf))))
	data := append(toc, obf...)

	ar, err := OpenBytes(data, "test-game")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sc, err := ar.GetScenario(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Script.Len() != 1 {
		t.Fatalf("Script.Len() = %d, want 1", sc.Script.Len())
	}
}
