package fixer

import (
	"regexp"
	"strings"

	"latex-refiner/internal/layout"
)

const clearpage = `\clearpage`

var (
	repeatedClearpageRe = regexp.MustCompile(`(?:\\clearpage[ \t]*){2,}`)
	// \clearpage glued to a following word becomes a different control sequence
	gluedClearpageRe = regexp.MustCompile(`\\clearpage([A-Za-z])`)
)

// ClearpageAfterFigures inserts \clearpage after every n-th \end{figure}
// unless one already follows. n <= 0 disables the pass.
func ClearpageAfterFigures(n int) Pass {
	return Pass{
		Name: "clearpage_after_figures",
		Apply: func(doc layout.Document) (layout.Document, int) {
			if n <= 0 {
				return doc.Clone(), 0
			}
			out := make(layout.Document, 0, len(doc))
			seen, total := 0, 0
			for i, line := range doc {
				out = append(out, line)
				k := strings.Count(line, `\end{figure}`) + strings.Count(line, `\end{figure*}`)
				if k == 0 {
					continue
				}
				before := seen
				seen += k
				if seen/n == before/n {
					continue
				}
				if followedByClearpage(doc, i) {
					continue
				}
				out = append(out, clearpage)
				total++
			}
			return out, total
		},
	}
}

// followedByClearpage reports whether the last \end{figure} on line i is
// already followed by \clearpage, on the same line or the next non-blank one.
func followedByClearpage(doc layout.Document, i int) bool {
	line := doc[i]
	end := strings.LastIndex(line, `\end{figure`)
	if strings.Contains(line[end:], clearpage) {
		return true
	}
	for j := i + 1; j < len(doc); j++ {
		next := strings.TrimSpace(doc[j])
		if next == "" {
			continue
		}
		return strings.HasPrefix(next, clearpage)
	}
	return false
}

// DedupeClearpage collapses runs of \clearpage into one and splits a
// \clearpage that was glued to the following word.
func DedupeClearpage() Pass {
	return Pass{
		Name: "dedupe_clearpage",
		Apply: func(doc layout.Document) (layout.Document, int) {
			out := make(layout.Document, 0, len(doc))
			total := 0
			for _, line := range doc {
				if gluedClearpageRe.MatchString(line) {
					parts := strings.Split(gluedClearpageRe.ReplaceAllString(line, clearpage+"\n$1"), "\n")
					total += len(parts) - 1
					for _, p := range parts[:len(parts)-1] {
						out = appendClearpageLine(out, p, &total)
					}
					line = parts[len(parts)-1]
				}
				out = appendClearpageLine(out, line, &total)
			}
			return out, total
		},
	}
}

func appendClearpageLine(out layout.Document, line string, total *int) layout.Document {
	if n := len(repeatedClearpageRe.FindAllStringIndex(line, -1)); n > 0 {
		line = repeatedClearpageRe.ReplaceAllStringFunc(line, func(m string) string {
			if strings.HasSuffix(m, " ") || strings.HasSuffix(m, "\t") {
				return clearpage + " "
			}
			return clearpage
		})
		*total += n
	}
	if strings.TrimSpace(line) == clearpage && len(out) > 0 &&
		strings.HasSuffix(strings.TrimSpace(out[len(out)-1]), clearpage) {
		*total++
		return out
	}
	return append(out, line)
}

// FinalClearpage makes sure the chapter ends with \clearpage.
func FinalClearpage() Pass {
	return Pass{
		Name: "final_clearpage",
		Apply: func(doc layout.Document) (layout.Document, int) {
			out := doc.Clone()
			for i := len(out) - 1; i >= 0; i-- {
				last := strings.TrimSpace(out[i])
				if last == "" {
					continue
				}
				if strings.Contains(last, clearpage) {
					return out, 0
				}
				break
			}
			return append(out, "", clearpage), 1
		},
	}
}
