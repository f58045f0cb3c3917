package memory

import "github.com/ssakurai/rlvm/rlerr"

// BankTag identifies (kind x bitwidth x scope) for a memory reference, the
// same small integer an expr.MemoryReference node carries.
type BankTag byte

const (
	TagA BankTag = 0x00
	TagB BankTag = 0x01
	TagC BankTag = 0x02
	TagD BankTag = 0x03
	TagE BankTag = 0x04
	TagF BankTag = 0x05
	TagG BankTag = 0x06
	TagZ BankTag = 0x07
	TagL BankTag = 0x08

	// TagBInt is the full 32-bit view over bank B.
	TagBInt BankTag = 0x0b
	// TagB1/2/4/8/16 are narrower bit-width sub-views over the same
	// storage as TagBInt.
	TagB1  BankTag = 0x0c
	TagB2  BankTag = 0x0d
	TagB4  BankTag = 0x0e
	TagB8  BankTag = 0x0f
	TagB16 BankTag = 0x10

	TagS         BankTag = 0x20
	TagM         BankTag = 0x21
	TagGlobalStr BankTag = 0x22
)

var intBankTags = map[BankTag]bool{
	TagA: true, TagB: true, TagC: true, TagD: true, TagE: true,
	TagF: true, TagG: true, TagZ: true, TagL: true, TagBInt: true,
	TagB1: true, TagB2: true, TagB4: true, TagB8: true, TagB16: true,
}

func bitWidthOf(tag BankTag) int {
	switch tag {
	case TagBInt:
		return 32
	case TagB16:
		return 16
	case TagB8:
		return 8
	case TagB4:
		return 4
	case TagB2:
		return 2
	case TagB1:
		return 1
	default:
		return 0
	}
}

// Memory is the machine's full bank catalogue: the integer banks A-G plus
// local L and Z, the bit-width sub-views of B, and the string banks S, M
// (scenario-local) and the global string bank.
type Memory struct {
	A, B, C, D, E, F, G, Z *Bank[int32]
	L                      *Bank[int32] // local-to-frame; replaced wholesale on call/return
	S, M                   *Bank[string]
	GlobalStr              *Bank[string]
}

// defaultBankSize is generous enough for any real scenario's addressable
// range; banks still grow on demand via Resize.
const defaultBankSize = 2000

// New builds a Memory with every bank pre-sized to defaultBankSize.
func New() *Memory {
	return &Memory{
		A: NewBank[int32](defaultBankSize, 0),
		B: NewBank[int32](defaultBankSize, 0),
		C: NewBank[int32](defaultBankSize, 0),
		D: NewBank[int32](defaultBankSize, 0),
		E: NewBank[int32](defaultBankSize, 0),
		F: NewBank[int32](defaultBankSize, 0),
		G: NewBank[int32](defaultBankSize, 0),
		Z: NewBank[int32](defaultBankSize, 0),
		L: NewBank[int32](defaultBankSize, 0),

		S:         NewBank[string](defaultBankSize, ""),
		M:         NewBank[string](defaultBankSize, ""),
		GlobalStr: NewBank[string](defaultBankSize, ""),
	}
}

func (m *Memory) intBank(tag BankTag) (*Bank[int32], error) {
	switch tag {
	case TagA:
		return m.A, nil
	case TagB, TagBInt, TagB1, TagB2, TagB4, TagB8, TagB16:
		return m.B, nil
	case TagC:
		return m.C, nil
	case TagD:
		return m.D, nil
	case TagE:
		return m.E, nil
	case TagF:
		return m.F, nil
	case TagG:
		return m.G, nil
	case TagZ:
		return m.Z, nil
	case TagL:
		return m.L, nil
	default:
		return nil, rlerr.New(rlerr.OutOfRange, "bank tag %#x is not an integer bank", byte(tag))
	}
}

func (m *Memory) strBank(tag BankTag) (*Bank[string], error) {
	switch tag {
	case TagS:
		return m.S, nil
	case TagM:
		return m.M, nil
	case TagGlobalStr:
		return m.GlobalStr, nil
	default:
		return nil, rlerr.New(rlerr.OutOfRange, "bank tag %#x is not a string bank", byte(tag))
	}
}

// GetInt reads an integer memory location, applying the bit-width mask
// when tag addresses one of B's narrower sub-views.
func (m *Memory) GetInt(tag BankTag, index int) (int32, error) {
	width := bitWidthOf(tag)
	if width != 0 && width != 32 {
		perWord := 32 / width
		word, shift := index/perWord, uint(index%perWord)*uint(width)
		raw, err := m.B.Get(word)
		if err != nil {
			return 0, err
		}
		mask := int32(1)<<uint(width) - 1
		return (raw >> shift) & mask, nil
	}

	bank, err := m.intBank(tag)
	if err != nil {
		return 0, err
	}
	return bank.Get(index)
}

// SetInt writes an integer memory location, read-modify-writing the
// underlying 32-bit B word when tag addresses a narrower sub-view.
func (m *Memory) SetInt(tag BankTag, index int, v int32) error {
	width := bitWidthOf(tag)
	if width != 0 && width != 32 {
		perWord := 32 / width
		word, shift := index/perWord, uint(index%perWord)*uint(width)
		raw, err := m.B.Get(word)
		if err != nil {
			return err
		}
		mask := int32(1)<<uint(width) - 1
		raw = (raw &^ (mask << shift)) | ((v & mask) << shift)
		return m.B.Set(word, raw)
	}

	bank, err := m.intBank(tag)
	if err != nil {
		return err
	}
	return bank.Set(index, v)
}

// GetStr reads a string memory location.
func (m *Memory) GetStr(tag BankTag, index int) (string, error) {
	bank, err := m.strBank(tag)
	if err != nil {
		return "", err
	}
	return bank.Get(index)
}

// SetStr writes a string memory location.
func (m *Memory) SetStr(tag BankTag, index int, v string) error {
	bank, err := m.strBank(tag)
	if err != nil {
		return err
	}
	return bank.Set(index, v)
}

// IsIntBank reports whether tag identifies one of the integer banks
// (including B's bit-width sub-views).
func IsIntBank(tag BankTag) bool { return intBankTags[tag] }

// Snapshot deep-clones every bank — cheap, since Bank.Clone is O(runs).
func (m *Memory) Snapshot() *Memory {
	return &Memory{
		A: m.A.Clone(), B: m.B.Clone(), C: m.C.Clone(), D: m.D.Clone(),
		E: m.E.Clone(), F: m.F.Clone(), G: m.G.Clone(), Z: m.Z.Clone(), L: m.L.Clone(),
		S: m.S.Clone(), M: m.M.Clone(), GlobalStr: m.GlobalStr.Clone(),
	}
}

// CloneLocal returns a standalone copy of just the local bank L, the
// snapshot a CallFrame carries.
func (m *Memory) CloneLocal() *Bank[int32] {
	return m.L.Clone()
}

// RestoreLocal replaces L wholesale, the way a frame pop/push swaps in a
// captured local-memory snapshot.
func (m *Memory) RestoreLocal(l *Bank[int32]) {
	m.L = l
}
