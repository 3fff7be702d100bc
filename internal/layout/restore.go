package layout

import (
	"strings"

	"latex-refiner/internal/logger"
)

// Person is a subject that should carry a portrait in the chapter.
type Person struct {
	Name  string `yaml:"name" json:"name"`
	File  string `yaml:"file" json:"file"`
	Dates string `yaml:"dates,omitempty" json:"dates,omitempty"`
}

// PortraitFiles returns the distinct portrait filenames referenced anywhere in doc.
func (r *Refiner) PortraitFiles(doc Document) map[string]bool {
	files := make(map[string]bool)
	for _, line := range doc {
		for _, m := range r.pathRe.FindAllStringSubmatch(line, -1) {
			files[m[1]] = true
		}
	}
	return files
}

// RenderAnnotation builds the margin-note markup for a portrait file.
func (r *Refiner) RenderAnnotation(chapter, file string) string {
	root := strings.TrimSuffix(r.opts.PortraitRoot, "/")
	return `\` + r.opts.MarkerCommand + `{\includegraphics[width=\linewidth]{` + root + "/" + chapter + "/" + file + `}}`
}

// RestoreMissing appends an annotation for each person whose portrait is not
// referenced in doc. The annotation goes on the first line outside a figure
// environment that mentions the person. People without such a line are
// reported as Unrestored. It returns the new document and the number of
// portraits added.
func (r *Refiner) RestoreMissing(doc Document, chapter string, people []Person) (Document, int, []Issue) {
	present := r.PortraitFiles(doc)
	out := doc.Clone()
	inFigure := figureMask(out)

	var issues []Issue
	restored := 0
	for _, p := range people {
		if p.File == "" || present[p.File] {
			continue
		}
		name := p.Name
		if name == "" {
			name = MapName(p.File)
		}

		line := -1
		for i, text := range out {
			if !inFigure[i] && strings.Contains(text, name) {
				line = i
				break
			}
		}
		if line < 0 {
			issues = append(issues, Issue{
				Kind:     IssueUnrestored,
				Line:     -1,
				Filename: p.File,
				Detail:   "no mention of " + name + " outside figures",
			})
			logger.Warn("portrait not restored", logger.String("file", p.File), logger.String("name", name))
			continue
		}

		out[line] = strings.TrimRight(out[line], " \t") + r.RenderAnnotation(chapter, p.File)
		present[p.File] = true
		restored++
		logger.Info("portrait restored", logger.String("file", p.File), logger.Int("line", line+1))
	}

	return out, restored, issues
}

// figureMask marks lines between \begin{figure...} and \end{figure...}, inclusive.
func figureMask(doc Document) []bool {
	mask := make([]bool, len(doc))
	depth := 0
	for i, line := range doc {
		opens := strings.Count(line, `\begin{figure`)
		if opens > 0 {
			depth += opens
		}
		if depth > 0 {
			mask[i] = true
		}
		depth -= strings.Count(line, `\end{figure`)
		if depth < 0 {
			depth = 0
		}
	}
	return mask
}
