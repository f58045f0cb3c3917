// Package lzss decompresses the two LZSS framings RLVM encounters: the
// byte-oriented variant used for scenario payloads and the 32-bit-per-pixel
// variant used for some asset types.
package lzss

import (
	"github.com/ssakurai/rlvm/byteio"
	"github.com/ssakurai/rlvm/rlerr"
)

// Decompress decodes the byte-oriented LZSS framing: a little-endian
// [archive_size][original_size] header followed by flag-byte-driven
// literal/back-reference chunks.
func Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 8 {
		return nil, rlerr.New(rlerr.BadFormat, "data too small to contain a valid LZSS header")
	}

	r := byteio.NewReader(data)
	arcSize, _ := r.PopInt32()
	origSize, _ := r.PopUint32()

	if int(arcSize) != len(data) {
		return nil, rlerr.New(rlerr.BadFormat, "archive size %d does not match input length %d", arcSize, len(data))
	}

	result := make([]byte, 0, origSize)

	shouldRepeat := true
	for shouldRepeat && uint32(len(result)) < origSize {
		flags, err := r.PopByte()
		if err != nil {
			return nil, rlerr.Wrap(rlerr.Truncated, err, "ran out of input reading flag byte")
		}

		for bit := 0; bit < 8; bit++ {
			if uint32(len(result)) >= origSize {
				shouldRepeat = false
				break
			}

			if flags&1 != 0 {
				b, err := r.PopByte()
				if err != nil {
					return nil, rlerr.Wrap(rlerr.Truncated, err, "ran out of input reading literal")
				}
				result = append(result, b)
			} else {
				chunk, err := r.PopUint16()
				if err != nil {
					return nil, rlerr.Wrap(rlerr.Truncated, err, "ran out of input reading back-reference")
				}
				chunkSize := int(2 + (chunk & 0xF))
				chunkOffset := len(result) - int(chunk>>4)
				if chunkOffset < 0 {
					return nil, rlerr.New(rlerr.BadFormat, "back-reference offset %d precedes start of output", chunkOffset)
				}
				for i := 0; i < chunkSize; i++ {
					result = append(result, result[chunkOffset+i])
				}
			}

			flags >>= 1
		}
	}

	if uint32(len(result)) != origSize {
		return nil, rlerr.New(rlerr.Truncated, "decompressed size %d does not match declared original size %d", len(result), origSize)
	}
	return result, nil
}

// Decompress32 decodes the 32-bit-per-pixel LZSS framing used for some
// asset payloads: 4-byte literals (3 data bytes plus a constant 0xFF) and
// back-references measured in 4-byte chunks.
func Decompress32(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 8 {
		return nil, rlerr.New(rlerr.BadFormat, "data too small to contain a valid LZSS32 header")
	}

	r := byteio.NewReader(data)
	arcSize, _ := r.PopInt32()
	origSize, _ := r.PopInt32()

	if int(arcSize) != len(data) {
		return nil, rlerr.New(rlerr.BadFormat, "archive size %d does not match input length %d", arcSize, len(data))
	}

	result := make([]byte, 0, arcSize)

	shouldRepeat := true
	for shouldRepeat && int32(len(result)) < origSize {
		flags, err := r.PopByte()
		if err != nil {
			return nil, rlerr.Wrap(rlerr.Truncated, err, "ran out of input reading flag byte")
		}

		for bit := 0; bit < 8; bit++ {
			if int32(len(result)) >= origSize {
				shouldRepeat = false
				break
			}

			if flags&1 != 0 {
				for i := 0; i < 3; i++ {
					b, err := r.PopByte()
					if err != nil {
						return nil, rlerr.Wrap(rlerr.Truncated, err, "ran out of input reading literal")
					}
					result = append(result, b)
				}
				result = append(result, 0xFF)
			} else {
				chunk, err := r.PopUint16()
				if err != nil {
					return nil, rlerr.Wrap(rlerr.Truncated, err, "ran out of input reading back-reference")
				}
				chunkSize := (1 + int(chunk&0xF)) * 4
				chunkOffset := len(result) - int((chunk>>2)&^uint16(0b11))
				if chunkOffset < 0 {
					return nil, rlerr.New(rlerr.BadFormat, "back-reference offset %d precedes start of output", chunkOffset)
				}
				for i := 0; i < chunkSize; i++ {
					result = append(result, result[chunkOffset+i])
				}
			}

			flags >>= 1
		}
	}

	if int32(len(result)) != origSize {
		return nil, rlerr.New(rlerr.Truncated, "decompressed size %d does not match declared original size %d", len(result), origSize)
	}
	return result, nil
}
