package fixer

import (
	"regexp"
	"strings"

	"latex-refiner/internal/layout"
)

var (
	// \end{figure} \citep{...} on the same line. \citet is part of a
	// sentence and is never matched.
	trailingCiteRe = regexp.MustCompile(`(\\end\{figure\*?\})[ \t]*(?:\\citep?\{[^{}]+\}[ \t]*)+`)
	// a line that starts with citations, used when \end{figure} closed the previous line
	leadingCiteRe = regexp.MustCompile(`^[ \t]*(?:\\citep?\{[^{}]+\}[ \t]*)+`)
	endFigureRe   = regexp.MustCompile(`\\end\{figure\*?\}[ \t]*$`)

	floatSpecRe = regexp.MustCompile(`(\\begin\{figure\*?\})\[(!?)h\]`)
)

// FigureCitations removes stray parenthetical \cite/\citep commands that
// follow \end{figure}, either on the same line or opening the next one.
// These are left behind when a caption citation is split from its float.
// Textual \citet citations are kept.
func FigureCitations() Pass {
	return Pass{
		Name: "figure_citations",
		Apply: func(doc layout.Document) (layout.Document, int) {
			out := make(layout.Document, len(doc))
			total := 0
			for i, line := range doc {
				if n := len(trailingCiteRe.FindAllStringIndex(line, -1)); n > 0 {
					line = trailingCiteRe.ReplaceAllString(line, "$1")
					total += n
				}
				if i > 0 && endFigureRe.MatchString(out[i-1]) {
					if loc := leadingCiteRe.FindStringIndex(line); loc != nil {
						line = strings.TrimLeft(line[loc[1]:], " \t")
						total++
					}
				}
				out[i] = line
			}
			return out, total
		},
	}
}

// FloatSpecifiers widens "here only" figure placement to [htbp] so LaTeX
// can move floats that would otherwise overflow the page.
func FloatSpecifiers() Pass {
	return Pass{
		Name: "float_specifiers",
		Apply: func(doc layout.Document) (layout.Document, int) {
			out := make(layout.Document, len(doc))
			total := 0
			for i, line := range doc {
				if n := len(floatSpecRe.FindAllStringIndex(line, -1)); n > 0 {
					line = floatSpecRe.ReplaceAllString(line, "$1[${2}htbp]")
					total += n
				}
				out[i] = line
			}
			return out, total
		},
	}
}
