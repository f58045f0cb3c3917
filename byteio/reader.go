// Package byteio implements the bounded little-endian byte reader and the
// LSB-first bit stream that sit underneath the LZSS codec and the
// bytecode parser.
package byteio

import "github.com/ssakurai/rlvm/rlerr"

// Reader is a bounds-checked cursor over a byte slice, reading 1..8 byte
// little-endian unsigned integers.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for bounded little-endian reads starting at offset 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total number of bytes in the underlying buffer.
func (r *Reader) Len() int { return len(r.data) }

// Position returns the current read offset.
func (r *Reader) Position() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Seek repositions the cursor to an absolute offset.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return rlerr.New(rlerr.OutOfRange, "seek to %d out of bounds [0,%d]", pos, len(r.data))
	}
	r.pos = pos
	return nil
}

// ReadAs reads n (1..8) little-endian bytes at the current position without
// advancing the cursor.
func (r *Reader) ReadAs(n int) (uint64, error) {
	if n < 1 || n > 8 {
		return 0, rlerr.New(rlerr.InvalidWidth, "byte width %d out of range 1..8", n)
	}
	if r.pos+n > len(r.data) {
		return 0, rlerr.New(rlerr.OutOfRange, "read of %d bytes at %d exceeds buffer of %d", n, r.pos, len(r.data))
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(r.data[r.pos+i]) << (8 * uint(i))
	}
	return v, nil
}

// PopAs reads n (1..8) little-endian bytes and advances the cursor by n.
func (r *Reader) PopAs(n int) (uint64, error) {
	v, err := r.ReadAs(n)
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

// PopByte pops a single raw byte.
func (r *Reader) PopByte() (byte, error) {
	v, err := r.PopAs(1)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// PopInt32 pops a 4-byte little-endian signed integer.
func (r *Reader) PopInt32() (int32, error) {
	v, err := r.PopAs(4)
	if err != nil {
		return 0, err
	}
	return int32(uint32(v)), nil
}

// PopUint32 pops a 4-byte little-endian unsigned integer.
func (r *Reader) PopUint32() (uint32, error) {
	v, err := r.PopAs(4)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// PopUint16 pops a 2-byte little-endian unsigned integer.
func (r *Reader) PopUint16() (uint16, error) {
	v, err := r.PopAs(2)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
