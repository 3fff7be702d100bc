package layout

import (
	"path"
	"strings"
	"unicode"
)

// MapName derives a subject name from a portrait filename by dropping the
// extension and splitting lower-to-upper case transitions:
// "ArthurSamuel.jpg" becomes "Arthur Samuel". A stem without transitions is
// returned unchanged.
func MapName(filename string) string {
	stem := strings.TrimSuffix(filename, path.Ext(filename))

	var sb strings.Builder
	sb.Grow(len(stem) + 4)
	prevLower := false
	for _, r := range stem {
		if prevLower && unicode.IsUpper(r) {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
		prevLower = unicode.IsLower(r)
	}
	return sb.String()
}
