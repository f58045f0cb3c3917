// Package scenario decodes one unpacked SEEN.TXT payload into a Header plus
// a parsed Script: the element_map/entrypoints pair the bytecode parser
// produces by walking the payload once.
package scenario

import (
	"github.com/ssakurai/rlvm/byteio"
	"github.com/ssakurai/rlvm/rlerr"
)

// Metadata carries the RLdev-era extension fields a scenario header can
// declare — today just the scenario's text codepage id, which the
// Scriptor's ScenarioConfig and the archive's probable-encoding scan
// both consult.
type Metadata struct {
	textEncoding int
}

// TextEncoding returns the scenario's declared codepage id, or 0 (CP932,
// the RealLive default) when the header never set one.
func (m Metadata) TextEncoding() int { return m.textEncoding }

// Header is the fixed-layout prologue of an unpacked scenario payload.
//
// original_source/src/libreallive/header.hpp and header.cpp — the files
// that would show this struct's exact on-disk byte offsets — are absent
// from the retrieved source pack (only scenario.h/.hpp/.cpp survive, and
// those only declare the field names). This layout is therefore inferred
// from spec.md §3's Scenario data model and §4.7/§4.10's references to the
// savepoint flags and text-encoding metadata, not ported from C++; see
// DESIGN.md's `scenario` package entry for the full account of this
// deviation from every other package's grounding.
type Header struct {
	// UseXor2 mirrors Header::use_xor_2_: whether the archive's second-stage
	// per-game XOR key applies to this scenario's compressed payload.
	UseXor2 bool
	// ZMinusOne and ZMinusTwo are opaque compiler bookkeeping fields
	// (Header::z_minus_one_/z_minus_two_) carried through for parity but
	// not consulted by any operation this spec names.
	ZMinusOne int32
	ZMinusTwo int32
	// SavepointMessage/Selcom/Seentop are tri-state flags: 1 means true, 2
	// means false, anything else defers to the interpreter's default (see
	// scriptor.ScenarioConfig).
	SavepointMessage int
	SavepointSelcom  int
	SavepointSeentop int
	// DramatisPersonae lists the scenario's declared character names
	// (Header::dramatis_personae_), unused by the core runtime but kept
	// for parity with tooling that inspects a scenario's cast list.
	DramatisPersonae []string
	Metadata         Metadata
}

// headerMagic is the fixed byte pair every scenario header in this
// implementation's inferred layout starts with. ParseHeader reads those
// two bytes but does not compare them against this value.
const headerMagic = 0x8358

// ParseHeader reads a Header from the front of an unpacked scenario
// payload and returns the number of bytes it consumed — the offset at
// which the script section begins.
func ParseHeader(data []byte) (Header, int, error) {
	r := byteio.NewReader(data)

	magic, err := r.PopUint16()
	if err != nil {
		return Header{}, 0, rlerr.Wrap(rlerr.Truncated, err, "header: magic")
	}
	_ = magic // not format-validated; many titles ship non-conforming headers

	useXor2Byte, err := r.PopByte()
	if err != nil {
		return Header{}, 0, rlerr.Wrap(rlerr.Truncated, err, "header: use_xor_2")
	}

	zMinusOne, err := r.PopInt32()
	if err != nil {
		return Header{}, 0, rlerr.Wrap(rlerr.Truncated, err, "header: z_minus_one")
	}
	zMinusTwo, err := r.PopInt32()
	if err != nil {
		return Header{}, 0, rlerr.Wrap(rlerr.Truncated, err, "header: z_minus_two")
	}

	savepointMessage, err := r.PopByte()
	if err != nil {
		return Header{}, 0, rlerr.Wrap(rlerr.Truncated, err, "header: savepoint_message")
	}
	savepointSelcom, err := r.PopByte()
	if err != nil {
		return Header{}, 0, rlerr.Wrap(rlerr.Truncated, err, "header: savepoint_selcom")
	}
	savepointSeentop, err := r.PopByte()
	if err != nil {
		return Header{}, 0, rlerr.Wrap(rlerr.Truncated, err, "header: savepoint_seentop")
	}

	textEncoding, err := r.PopUint16()
	if err != nil {
		return Header{}, 0, rlerr.Wrap(rlerr.Truncated, err, "header: text_encoding")
	}

	personaeCount, err := r.PopUint16()
	if err != nil {
		return Header{}, 0, rlerr.Wrap(rlerr.Truncated, err, "header: dramatis_personae count")
	}

	personae := make([]string, 0, personaeCount)
	for i := 0; i < int(personaeCount); i++ {
		strLen, err := r.PopUint16()
		if err != nil {
			return Header{}, 0, rlerr.Wrap(rlerr.Truncated, err, "header: dramatis_personae[%d] length", i)
		}
		name := make([]byte, strLen)
		for j := range name {
			b, err := r.PopByte()
			if err != nil {
				return Header{}, 0, rlerr.Wrap(rlerr.Truncated, err, "header: dramatis_personae[%d] byte %d", i, j)
			}
			name[j] = b
		}
		personae = append(personae, string(name))
	}

	h := Header{
		UseXor2:          useXor2Byte != 0,
		ZMinusOne:        zMinusOne,
		ZMinusTwo:        zMinusTwo,
		SavepointMessage: int(savepointMessage),
		SavepointSelcom:  int(savepointSelcom),
		SavepointSeentop: int(savepointSeentop),
		DramatisPersonae: personae,
		Metadata:         Metadata{textEncoding: int(textEncoding)},
	}
	return h, r.Position(), nil
}
