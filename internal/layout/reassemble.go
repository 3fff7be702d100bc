package layout

import "strings"

// Reassemble appends each placement's rendered command to the end of its
// line, in placement order. Lines that receive a command, and lines listed
// in touched, lose their trailing whitespace.
func Reassemble(doc Document, placements []Placement, touched map[int]bool) Document {
	byLine := make(map[int][]string, len(placements))
	for _, p := range placements {
		byLine[p.Line] = append(byLine[p.Line], p.Annotation.RenderedCommand)
	}

	out := make(Document, len(doc))
	for i, line := range doc {
		cmds := byLine[i]
		if len(cmds) == 0 && !touched[i] {
			out[i] = line
			continue
		}
		line = strings.TrimRight(line, " \t")
		if len(cmds) > 0 {
			line += strings.Join(cmds, "")
		}
		out[i] = line
	}
	return out
}
