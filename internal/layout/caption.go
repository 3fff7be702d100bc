package layout

import "strings"

// normalizeLine rewrites the configured width marker and strips inline
// "Figure N: ..." captions. It returns the counts of each edit.
func (r *Refiner) normalizeLine(line string) (string, int, int) {
	widths := 0
	if r.opts.WidthFrom != "" && r.opts.WidthFrom != r.opts.WidthTo {
		widths = strings.Count(line, r.opts.WidthFrom)
		if widths > 0 {
			line = strings.ReplaceAll(line, r.opts.WidthFrom, r.opts.WidthTo)
		}
	}

	captions := 0
	if r.captionRe != nil {
		captions = len(r.captionRe.FindAllStringIndex(line, -1))
		if captions > 0 {
			line = r.captionRe.ReplaceAllLiteralString(line, "")
		}
	}

	return line, captions, widths
}
