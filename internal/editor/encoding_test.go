package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"latex-refiner/internal/types"
)

func TestDecode(t *testing.T) {
	const text = "第一章 Alan Turing\n"

	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)
	utf16le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)
	utf16be, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		enc  Encoding
	}{
		{"utf8", []byte(text), EncodingUTF8},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, text...), EncodingUTF8BOM},
		{"utf16le", utf16le, EncodingUTF16LE},
		{"utf16be", utf16be, EncodingUTF16BE},
		{"gbk", gbk, EncodingGBK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.enc, DetectEncoding(tt.data))
			got, enc, err := Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.enc, enc)
			assert.Equal(t, text, got)
		})
	}
}

func TestDecode_Unknown(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF}
	assert.Equal(t, EncodingUnknown, DetectEncoding(data))

	_, _, err := Decode(data)
	require.Error(t, err)
	assert.Equal(t, types.ErrEncoding, types.CodeOf(err))
}

func TestEncode(t *testing.T) {
	const text = "第一章\n"

	out, err := Encode(text, EncodingGBK)
	require.NoError(t, err)
	back, enc, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, EncodingGBK, enc)
	assert.Equal(t, text, back)

	// the byte order mark is not written back
	out, err = Encode(text, EncodingUTF8BOM)
	require.NoError(t, err)
	assert.Equal(t, []byte(text), out)
}
