// Package layout re-places portrait margin notes in a LaTeX chapter.
//
// A run strips every portrait annotation from the document, finds the lines
// that mention each annotation's subject, and puts each annotation back
// exactly once, greedily choosing the mention farthest from annotations
// already placed. Caption and width normalisation run in the same pass.
package layout

// Document is a chapter source as an ordered list of lines without terminators.
type Document []string

// Clone returns a copy that can be mutated independently.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	copy(out, d)
	return out
}
