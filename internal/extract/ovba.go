package extract

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const chunkSize = 4096

// ErrNotCompressed is returned when data does not start with a compressed
// container signature.
var ErrNotCompressed = errors.New("not a compressed container")

// Decompress expands a compressed container as stored in VBA project
// streams: a 0x01 signature followed by chunks of literal bytes and
// back-reference copy tokens.
func Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 || data[0] != 0x01 {
		return nil, ErrNotCompressed
	}

	out := make([]byte, 0, len(data)*2)
	pos := 1
	for pos+2 <= len(data) {
		header := binary.LittleEndian.Uint16(data[pos:])
		chunkEnd := pos + int(header&0x0FFF) + 3
		if chunkEnd > len(data) {
			chunkEnd = len(data)
		}
		pos += 2

		if header&0x8000 == 0 {
			end := pos + chunkSize
			if end > len(data) {
				end = len(data)
			}
			out = append(out, data[pos:end]...)
			pos = end
			continue
		}

		chunkStart := len(out)
		for pos < chunkEnd {
			flags := data[pos]
			pos++
			for bit := 0; bit < 8 && pos < chunkEnd; bit++ {
				if flags&(1<<bit) == 0 {
					out = append(out, data[pos])
					pos++
					continue
				}
				if pos+2 > chunkEnd {
					return out, fmt.Errorf("truncated copy token at offset %d", pos)
				}
				token := binary.LittleEndian.Uint16(data[pos:])
				pos += 2

				length, offset := unpackCopyToken(token, len(out)-chunkStart)
				src := len(out) - offset
				if src < chunkStart {
					return out, fmt.Errorf("copy token offset %d out of range at %d", offset, pos-2)
				}
				for i := 0; i < length; i++ {
					out = append(out, out[src+i])
				}
			}
		}
		pos = chunkEnd
	}
	return out, nil
}

// unpackCopyToken splits a copy token. The number of offset bits grows
// with the amount of data already decompressed in the chunk.
func unpackCopyToken(token uint16, decompressed int) (length, offset int) {
	bitCount := 4
	for (1 << bitCount) < decompressed {
		bitCount++
	}
	if bitCount > 12 {
		bitCount = 12
	}
	lengthMask := uint16(0xFFFF) >> bitCount
	length = int(token&lengthMask) + 3
	offset = int(token>>(16-bitCount)) + 1
	return length, offset
}
