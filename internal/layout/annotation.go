package layout

import (
	"strings"
)

// Annotation is a portrait margin note, identified by its image filename.
type Annotation struct {
	SubjectName     string
	SourceFilename  string
	RenderedCommand string
}

// Extraction records one annotation fragment removed from the document.
type Extraction struct {
	Annotation Annotation
	// Line is the 0-based line the fragment was removed from.
	Line int
	// Column is the byte offset of the fragment in the line as it stood
	// when the fragment was removed.
	Column int
}

// Extract removes every portrait annotation from doc. The returned document
// is a new slice; doc is not modified. Fragments whose body looks like a
// portrait but does not match the path convention stay in place and are
// reported as ExtractionMismatch issues.
func (r *Refiner) Extract(doc Document) (Document, []Extraction, []Issue) {
	out := make(Document, len(doc))
	var extractions []Extraction
	var issues []Issue
	for i, line := range doc {
		stripped, ex, is := r.extractLine(line, i)
		out[i] = stripped
		extractions = append(extractions, ex...)
		issues = append(issues, is...)
	}
	return out, extractions, issues
}

// extractLine removes the matching annotation fragments of one line, left to right.
func (r *Refiner) extractLine(line string, lineIdx int) (string, []Extraction, []Issue) {
	var extractions []Extraction
	var issues []Issue

	pos := 0
	for pos < len(line) {
		i := strings.Index(line[pos:], r.markerOpen)
		if i < 0 {
			break
		}
		start := pos + i
		open := start + len(r.markerOpen) - 1
		end := MatchBrace(line, open)
		if end < 0 {
			if r.looksLikePortrait(line[open+1:]) {
				issues = append(issues, Issue{
					Kind:   IssueExtractionMismatch,
					Line:   lineIdx,
					Detail: "unbalanced braces in " + r.markerOpen + "...",
				})
			}
			break
		}

		body := line[open+1 : end]
		m := r.portraitRe.FindStringSubmatch(body)
		if m == nil {
			if r.looksLikePortrait(body) {
				issues = append(issues, Issue{
					Kind:   IssueExtractionMismatch,
					Line:   lineIdx,
					Detail: "image path does not match " + r.opts.PortraitRoot + "/<chapter>/<file>",
				})
			}
			pos = end + 1
			continue
		}

		filename := m[1]
		extractions = append(extractions, Extraction{
			Annotation: Annotation{
				SubjectName:     r.subjectName(filename),
				SourceFilename:  filename,
				RenderedCommand: line[start : end+1],
			},
			Line:   lineIdx,
			Column: start,
		})
		line = line[:start] + line[end+1:]
		pos = start
	}

	return line, extractions, issues
}

func (r *Refiner) looksLikePortrait(body string) bool {
	return strings.Contains(body, `\includegraphics`) || strings.Contains(body, r.opts.PortraitRoot+"/")
}

func (r *Refiner) subjectName(filename string) string {
	if name, ok := r.opts.SubjectNames[filename]; ok && name != "" {
		return name
	}
	return MapName(filename)
}

// MatchBrace returns the index of the brace closing the one at s[open],
// or -1. Backslash escapes (\{, \}, \\) are skipped.
func MatchBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
