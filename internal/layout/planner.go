package layout

import (
	"fmt"
	"math"
	"sort"
)

// Unbounded is the distance reported for the first placement of a run.
const Unbounded = math.MaxInt

// Placement assigns one annotation to one line.
type Placement struct {
	Annotation Annotation
	Line       int
	// Distance to the nearest earlier placement, or Unbounded.
	Distance   int
	Candidates []int
	Fallback   bool
}

// PlanPlacements assigns every candidate exactly one line.
//
// Candidates are visited in order of their first mention (stable, so ties
// keep the input order). Each takes the mention farthest from the lines
// already used, the earliest line winning ties. Choices are never revisited,
// so the result is a greedy approximation of maximum spacing. A candidate
// whose only option is an already used line still lands there; that is
// reported as a Collision issue.
func PlanPlacements(candidates []Candidate) ([]Placement, []Issue) {
	ordered := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Mentions) > 0 {
			ordered = append(ordered, c)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Mentions[0] < ordered[j].Mentions[0]
	})

	placements := make([]Placement, 0, len(ordered))
	var issues []Issue
	used := make(map[int]int)
	var placedLines []int

	for _, c := range ordered {
		bestLine, bestDist := -1, -1
		for _, m := range c.Mentions {
			d := nearest(m, placedLines)
			if d > bestDist || (d == bestDist && m < bestLine) {
				bestLine, bestDist = m, d
			}
		}

		if n := used[bestLine]; n > 0 {
			issues = append(issues, Issue{
				Kind:     IssueCollision,
				Line:     bestLine,
				Filename: c.Annotation.SourceFilename,
				Detail:   fmt.Sprintf("line already holds %d annotation(s)", n),
			})
		}

		placements = append(placements, Placement{
			Annotation: c.Annotation,
			Line:       bestLine,
			Distance:   bestDist,
			Candidates: c.Mentions,
			Fallback:   c.Fallback,
		})
		used[bestLine]++
		placedLines = append(placedLines, bestLine)
	}

	return placements, issues
}

// nearest returns the smallest |m - p| over placed, or Unbounded when empty.
func nearest(m int, placed []int) int {
	best := Unbounded
	for _, p := range placed {
		d := m - p
		if d < 0 {
			d = -d
		}
		if d < best {
			best = d
		}
	}
	return best
}
