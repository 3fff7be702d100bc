package layout

import "strings"

// Candidate is a distinct annotation together with the lines it may go to.
type Candidate struct {
	Annotation Annotation
	// Mentions are ascending, distinct line indices.
	Mentions []int
	// Origin is the line the canonical fragment was extracted from.
	Origin int
	// Fallback is set when Mentions is just Origin because the subject's
	// name occurs nowhere in the stripped document.
	Fallback bool
}

// FindMentions returns every line index whose text contains name
// (case-sensitive, literal). An empty name mentions nothing.
func FindMentions(doc Document, name string) []int {
	if name == "" {
		return nil
	}
	var mentions []int
	for i, line := range doc {
		if strings.Contains(line, name) {
			mentions = append(mentions, i)
		}
	}
	return mentions
}

// locateCandidates collapses extractions to one candidate per filename,
// keeping the first occurrence as canonical, and attaches mentions.
func locateCandidates(doc Document, extractions []Extraction) ([]Candidate, []Issue) {
	var candidates []Candidate
	var issues []Issue
	seen := make(map[string]bool, len(extractions))

	for _, ex := range extractions {
		fname := ex.Annotation.SourceFilename
		if seen[fname] {
			continue
		}
		seen[fname] = true

		c := Candidate{
			Annotation: ex.Annotation,
			Origin:     ex.Line,
			Mentions:   FindMentions(doc, ex.Annotation.SubjectName),
		}
		if len(c.Mentions) == 0 {
			if ex.Line < 0 || ex.Line >= len(doc) {
				issues = append(issues, Issue{
					Kind:     IssueNoPlacementSlot,
					Line:     ex.Line,
					Filename: fname,
					Detail:   "no mention of " + ex.Annotation.SubjectName + " and no valid original line",
				})
				continue
			}
			c.Mentions = []int{ex.Line}
			c.Fallback = true
		}
		candidates = append(candidates, c)
	}

	return candidates, issues
}
