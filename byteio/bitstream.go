package byteio

import "github.com/ssakurai/rlvm/rlerr"

// BitStream reads up to 64 bits at a time from a byte buffer, LSB first
// within each byte and across the stream.
type BitStream struct {
	data   []byte
	length int // total bits available
	pos    int // current bit position
}

// NewBitStream wraps data for LSB-first bit reads.
func NewBitStream(data []byte) *BitStream {
	return &BitStream{data: data, length: len(data) * 8}
}

// Position returns the current bit offset.
func (b *BitStream) Position() int { return b.pos }

// Length returns the total number of bits in the buffer.
func (b *BitStream) Length() int { return b.length }

// Readbits returns the next bitwidth bits without advancing the cursor.
func (b *BitStream) Readbits(bitwidth int) (uint64, error) {
	if bitwidth < 0 || bitwidth > 64 {
		return 0, rlerr.New(rlerr.InvalidWidth, "bit width %d must be between 0 and 64", bitwidth)
	}
	var result uint64
	for i := 0; i < bitwidth; i++ {
		idx := b.pos + i
		if idx >= b.length {
			break
		}
		byteIdx := idx / 8
		bitIdx := uint(idx % 8)
		bit := uint64((b.data[byteIdx] >> bitIdx) & 1)
		result |= bit << uint(i)
	}
	return result, nil
}

// Popbits reads and advances past bitwidth bits.
func (b *BitStream) Popbits(bitwidth int) (uint64, error) {
	v, err := b.Readbits(bitwidth)
	if err != nil {
		return 0, err
	}
	b.Proceed(bitwidth)
	return v, nil
}

// Proceed advances the cursor by bitcount bits, clamped to Length.
func (b *BitStream) Proceed(bitcount int) {
	b.pos += bitcount
	if b.pos > b.length {
		b.pos = b.length
	}
}
