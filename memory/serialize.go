package memory

import (
	"encoding/binary"

	"github.com/ssakurai/rlvm/rlerr"
)

// SerializeInt writes b's size and run list as a length-prefixed binary
// blob: u32 size, u32 run count, then (u32 start, u32 end, i32 value) per
// run — the same manual byte-offset bookkeeping the teacher's savestate
// serializer uses, rather than reflection-based encoding.
func SerializeInt(b *Bank[int32]) []byte {
	runs := b.Runs()
	out := make([]byte, 0, 8+len(runs)*12)
	out = binary.BigEndian.AppendUint32(out, uint32(b.Size()))
	out = binary.BigEndian.AppendUint32(out, uint32(len(runs)))
	for _, r := range runs {
		out = binary.BigEndian.AppendUint32(out, uint32(r.Start))
		out = binary.BigEndian.AppendUint32(out, uint32(r.End))
		out = binary.BigEndian.AppendUint32(out, uint32(r.Value))
	}
	return out
}

// DeserializeInt parses the format SerializeInt writes, returning the
// bank and the number of bytes consumed.
func DeserializeInt(data []byte) (*Bank[int32], int, error) {
	if len(data) < 8 {
		return nil, 0, rlerr.New(rlerr.Truncated, "int bank header truncated")
	}
	size := int(binary.BigEndian.Uint32(data[0:4]))
	count := int(binary.BigEndian.Uint32(data[4:8]))
	pos := 8
	runs := make([]struct {
		Start, End int
		Value      int32
	}, count)
	for i := 0; i < count; i++ {
		if pos+12 > len(data) {
			return nil, 0, rlerr.New(rlerr.Truncated, "int bank run %d truncated", i)
		}
		runs[i].Start = int(binary.BigEndian.Uint32(data[pos : pos+4]))
		runs[i].End = int(binary.BigEndian.Uint32(data[pos+4 : pos+8]))
		runs[i].Value = int32(binary.BigEndian.Uint32(data[pos+8 : pos+12]))
		pos += 12
	}
	b := NewBank[int32](0, 0)
	b.LoadRuns(size, runs)
	return b, pos, nil
}

// SerializeStr writes b's size and run list the same way SerializeInt
// does, with each value as a length-prefixed UTF-8 string instead of a
// fixed-width integer.
func SerializeStr(b *Bank[string]) []byte {
	runs := b.Runs()
	out := make([]byte, 0, 8+len(runs)*9)
	out = binary.BigEndian.AppendUint32(out, uint32(b.Size()))
	out = binary.BigEndian.AppendUint32(out, uint32(len(runs)))
	for _, r := range runs {
		out = binary.BigEndian.AppendUint32(out, uint32(r.Start))
		out = binary.BigEndian.AppendUint32(out, uint32(r.End))
		out = binary.BigEndian.AppendUint32(out, uint32(len(r.Value)))
		out = append(out, r.Value...)
	}
	return out
}

// intBankOrder/strBankOrder fix the field order SerializeMemory and
// DeserializeMemory walk Memory's banks in; both sides must agree on it.
func intBankOrder(m *Memory) []*Bank[int32] {
	return []*Bank[int32]{m.A, m.B, m.C, m.D, m.E, m.F, m.G, m.Z, m.L}
}

func strBankOrder(m *Memory) []*Bank[string] {
	return []*Bank[string]{m.S, m.M, m.GlobalStr}
}

// SerializeMemory writes every bank of m, in a fixed order, as a flat
// concatenation of SerializeInt/SerializeStr blobs — the save component
// spec.md §6 names as the core's own persisted state, laid out the same
// field-by-field, manually-offset way the teacher's savestate serializer
// lays out a SaveState (magic, static memory, frame count, frames).
func SerializeMemory(m *Memory) []byte {
	var out []byte
	for _, b := range intBankOrder(m) {
		out = append(out, SerializeInt(b)...)
	}
	for _, b := range strBankOrder(m) {
		out = append(out, SerializeStr(b)...)
	}
	return out
}

// DeserializeMemory parses the format SerializeMemory writes.
func DeserializeMemory(data []byte) (*Memory, error) {
	m := New()
	pos := 0

	intBanks := intBankOrder(m)
	for i := range intBanks {
		b, n, err := DeserializeInt(data[pos:])
		if err != nil {
			return nil, rlerr.Wrap(rlerr.Truncated, err, "int bank %d", i)
		}
		*intBanks[i] = *b
		pos += n
	}

	strBanks := strBankOrder(m)
	for i := range strBanks {
		b, n, err := DeserializeStr(data[pos:])
		if err != nil {
			return nil, rlerr.Wrap(rlerr.Truncated, err, "string bank %d", i)
		}
		*strBanks[i] = *b
		pos += n
	}

	return m, nil
}

// DeserializeStr parses the format SerializeStr writes, returning the
// bank and the number of bytes consumed.
func DeserializeStr(data []byte) (*Bank[string], int, error) {
	if len(data) < 8 {
		return nil, 0, rlerr.New(rlerr.Truncated, "string bank header truncated")
	}
	size := int(binary.BigEndian.Uint32(data[0:4]))
	count := int(binary.BigEndian.Uint32(data[4:8]))
	pos := 8
	runs := make([]struct {
		Start, End int
		Value      string
	}, count)
	for i := 0; i < count; i++ {
		if pos+12 > len(data) {
			return nil, 0, rlerr.New(rlerr.Truncated, "string bank run %d truncated", i)
		}
		runs[i].Start = int(binary.BigEndian.Uint32(data[pos : pos+4]))
		runs[i].End = int(binary.BigEndian.Uint32(data[pos+4 : pos+8]))
		strLen := int(binary.BigEndian.Uint32(data[pos+8 : pos+12]))
		pos += 12
		if pos+strLen > len(data) {
			return nil, 0, rlerr.New(rlerr.Truncated, "string bank run %d value truncated", i)
		}
		runs[i].Value = string(data[pos : pos+strLen])
		pos += strLen
	}
	b := NewBank[string](0, "")
	b.LoadRuns(size, runs)
	return b, pos, nil
}
