package fixer

import (
	"regexp"
	"strings"

	"latex-refiner/internal/layout"
)

// PortraitCaptions drops the text caption that follows a portrait image
// inside a margin note, e.g.
//
//	\automarginnote{\includegraphics[width=\linewidth]{Portraits/Ch/X.jpg} \\ \centering \footnotesize X (1901–1990)}
//
// becomes
//
//	\automarginnote{\includegraphics[width=\linewidth]{Portraits/Ch/X.jpg}}
//
// The portrait images already carry the name and dates.
func PortraitCaptions(marker, root string) Pass {
	re := regexp.MustCompile(`(\\` + regexp.QuoteMeta(marker) + `\{\\includegraphics\[[^\]]+\]\{` +
		regexp.QuoteMeta(strings.TrimSuffix(root, "/")) + `/[^}]+\})\s*\\\\\s*[^{}]+(\})`)

	return Pass{
		Name: "portrait_captions",
		Apply: func(doc layout.Document) (layout.Document, int) {
			out := make(layout.Document, len(doc))
			total := 0
			for i, line := range doc {
				if n := len(re.FindAllStringIndex(line, -1)); n > 0 {
					line = re.ReplaceAllString(line, "${1}${2}")
					total += n
				}
				out[i] = line
			}
			return out, total
		},
	}
}

// MarkerBraces closes a margin note whose own '{' is never matched on its
// line. Only the braces opened inside the note are closed; groups opened
// before the note and continued on later lines are left alone. The closing
// braces go before any trailing comment.
func MarkerBraces(marker string) Pass {
	needle := `\` + marker + `{`

	return Pass{
		Name: "marker_braces",
		Apply: func(doc layout.Document) (layout.Document, int) {
			out := make(layout.Document, len(doc))
			total := 0
			for i, line := range doc {
				if n := missingNoteBraces(stripComment(line), needle); n > 0 {
					code := stripComment(line)
					line = strings.TrimRight(code, " \t") + strings.Repeat("}", n) + line[len(code):]
					total += n
				}
				out[i] = line
			}
			return out, total
		},
	}
}

// missingNoteBraces returns how many '}' the first unterminated note in code
// needs. An unterminated note runs to the end of the line, so at most one
// note per line can be open.
func missingNoteBraces(code, needle string) int {
	pos := 0
	for {
		i := strings.Index(code[pos:], needle)
		if i < 0 {
			return 0
		}
		open := pos + i + len(needle) - 1
		end := layout.MatchBrace(code, open)
		if end < 0 {
			opens, closes := countBraces(code[open:])
			return opens - closes
		}
		pos = end + 1
	}
}

// stripComment removes an unescaped % comment from a line.
func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '%':
			return line[:i]
		}
	}
	return line
}
