package extract

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compressLiteral builds a valid compressed container that stores src as
// literal tokens only. Flag bytes take room, so each chunk carries less
// than a full chunk of source.
func compressLiteral(src []byte) []byte {
	const piece = 3584
	out := []byte{0x01}
	for start := 0; start < len(src); start += piece {
		end := min(start+piece, len(src))
		var chunk []byte
		for i := start; i < end; i += 8 {
			chunk = append(chunk, 0x00)
			chunk = append(chunk, src[i:min(i+8, end)]...)
		}
		header := uint16(len(chunk)+2-3) | 0xB000
		out = binary.LittleEndian.AppendUint16(out, header)
		out = append(out, chunk...)
	}
	return out
}

func TestDecompress(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name: "literals only",
			input: []byte{
				0x01, 0x19, 0xB0,
				0x00, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68,
				0x00, 0x69, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F, 0x70,
				0x00, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x2E,
			},
			expected: "abcdefghijklmnopqrstuv.",
		},
		{
			name:     "overlapping copy token",
			input:    []byte{0x01, 0x05, 0xB0, 0x08, 0x61, 0x62, 0x63, 0x03, 0x20},
			expected: "abcabcabc",
		},
		{
			name:     "round trip of literal encoding",
			input:    compressLiteral([]byte("Attribute VB_Name = \"Module1\"\r\nSub Hello()\r\nEnd Sub\r\n")),
			expected: "Attribute VB_Name = \"Module1\"\r\nSub Hello()\r\nEnd Sub\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Decompress(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestDecompress_RawChunk(t *testing.T) {
	raw := bytes.Repeat([]byte("x"), chunkSize)
	input := append([]byte{0x01, 0xFF, 0x3F}, raw...)

	out, err := Decompress(input)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestDecompress_MultipleChunks(t *testing.T) {
	src := bytes.Repeat([]byte("Dim x As Long\n"), 400)
	out, err := Decompress(compressLiteral(src))
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestDecompress_Errors(t *testing.T) {
	_, err := Decompress(nil)
	assert.ErrorIs(t, err, ErrNotCompressed)

	_, err = Decompress([]byte{0x02, 0x00})
	assert.ErrorIs(t, err, ErrNotCompressed)

	// A copy token cannot reference data before the chunk start.
	_, err = Decompress([]byte{0x01, 0x02, 0xB0, 0x01, 0x00, 0x00})
	assert.Error(t, err)
}

func TestUnpackCopyToken(t *testing.T) {
	length, offset := unpackCopyToken(0x2003, 3)
	assert.Equal(t, 6, length)
	assert.Equal(t, 3, offset)

	// 17 bytes in: five offset bits, eleven length bits.
	length, offset = unpackCopyToken(0x0805, 17)
	assert.Equal(t, 8, length)
	assert.Equal(t, 2, offset)
}
