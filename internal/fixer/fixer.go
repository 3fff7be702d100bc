// Package fixer holds the line-level structural repairs applied to a
// chapter before and after portrait placement.
//
// Each Pass is a pure function over a layout.Document that reports how many
// edits it made. Passes are composed with Run in a fixed order.
package fixer

import (
	"latex-refiner/internal/layout"
	"latex-refiner/internal/logger"
)

// Pass is a named document rewrite.
type Pass struct {
	Name  string
	Apply func(doc layout.Document) (layout.Document, int)
}

// Run applies passes in order and returns the final document together
// with the edit count of every pass that changed something.
func Run(doc layout.Document, passes ...Pass) (layout.Document, map[string]int) {
	counts := make(map[string]int)
	for _, p := range passes {
		var n int
		doc, n = p.Apply(doc)
		if n > 0 {
			counts[p.Name] += n
			logger.Debug("fix pass applied", logger.String("pass", p.Name), logger.Int("edits", n))
		}
	}
	return doc, counts
}

// countBraces counts unescaped '{' and '}' in s.
func countBraces(s string) (opens, closes int) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			opens++
		case '}':
			closes++
		}
	}
	return opens, closes
}
