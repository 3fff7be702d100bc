package editor

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"latex-refiner/internal/logger"
	"latex-refiner/internal/types"
)

// Encoding names a detected source encoding.
type Encoding string

const (
	EncodingUTF8    Encoding = "UTF-8"
	EncodingUTF8BOM Encoding = "UTF-8-BOM"
	EncodingGBK     Encoding = "GBK"
	EncodingUTF16LE Encoding = "UTF-16LE"
	EncodingUTF16BE Encoding = "UTF-16BE"
	EncodingUnknown Encoding = "UNKNOWN"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectEncoding inspects raw file contents.
func DetectEncoding(data []byte) Encoding {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return EncodingUTF8BOM
	case bytes.HasPrefix(data, bomUTF16LE):
		return EncodingUTF16LE
	case bytes.HasPrefix(data, bomUTF16BE):
		return EncodingUTF16BE
	case utf8.Valid(data):
		return EncodingUTF8
	case isValidGBK(data):
		return EncodingGBK
	}
	return EncodingUnknown
}

// isValidGBK checks if data decodes as GBK without replacement characters.
func isValidGBK(data []byte) bool {
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err != nil {
		return false
	}
	return utf8.Valid(decoded) && !bytes.ContainsRune(decoded, utf8.RuneError)
}

// Decode converts file contents to UTF-8 text and reports what it found.
// Any byte order mark is consumed.
func Decode(data []byte) (string, Encoding, error) {
	enc := DetectEncoding(data)
	logger.Debug("detected file encoding", logger.String("encoding", string(enc)))

	switch enc {
	case EncodingUTF8:
		return string(data), enc, nil
	case EncodingUTF8BOM, EncodingUTF16LE, EncodingUTF16BE:
		// BOMOverride picks the decoder from the mark and strips it
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", enc, types.NewAppErrorWithDetails(types.ErrEncoding, "failed to decode", string(enc), err)
		}
		return string(out), enc, nil
	case EncodingGBK:
		out, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
		if err != nil {
			return "", enc, types.NewAppErrorWithDetails(types.ErrEncoding, "failed to decode", string(enc), err)
		}
		return string(out), enc, nil
	}
	return "", enc, types.NewAppError(types.ErrEncoding, "unrecognised file encoding", nil)
}

// Encode converts text back for writing. GBK files stay GBK; everything
// else is written as UTF-8 without a byte order mark.
func Encode(text string, enc Encoding) ([]byte, error) {
	if enc != EncodingGBK {
		return []byte(text), nil
	}
	out, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrEncoding, "failed to encode", string(enc), err)
	}
	return out, nil
}
