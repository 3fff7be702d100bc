package layout

import (
	"fmt"
	"regexp"
	"strings"

	"latex-refiner/internal/logger"
	"latex-refiner/internal/types"
)

// Options configures how annotations and captions are recognised.
type Options struct {
	// MarkerCommand is the margin-note command name without backslash.
	MarkerCommand string
	// PortraitRoot is the first path segment of portrait images.
	PortraitRoot string
	// ImageExtensions are accepted portrait extensions, without dot.
	ImageExtensions []string
	// CaptionPattern is a regexp for inline captions to strip. Empty disables.
	CaptionPattern string
	// WidthFrom is rewritten to WidthTo. Empty disables.
	WidthFrom string
	WidthTo   string
	// SubjectNames overrides MapName for specific filenames.
	SubjectNames map[string]string
}

// DefaultOptions returns the conventions used by the chapter sources.
func DefaultOptions() Options {
	return Options{
		MarkerCommand:   "automarginnote",
		PortraitRoot:    "Portraits",
		ImageExtensions: []string{"jpg", "png"},
		CaptionPattern:  `\\textit\{Figure\s*\d+:[^}]*\}`,
		WidthFrom:       `width=0.9\linewidth`,
		WidthTo:         `width=1.0\linewidth`,
	}
}

// IssueKind names a recoverable problem found during a run.
type IssueKind string

const (
	IssueExtractionMismatch IssueKind = "ExtractionMismatch"
	IssueNoPlacementSlot    IssueKind = "NoPlacementSlot"
	IssueCollision          IssueKind = "Collision"
	IssueUnrestored         IssueKind = "Unrestored"
)

// Issue is a recoverable problem. Line is 0-based.
type Issue struct {
	Kind     IssueKind
	Line     int
	Filename string
	Detail   string
}

func (i Issue) String() string {
	s := string(i.Kind)
	if i.Line >= 0 {
		s += fmt.Sprintf(" at line %d", i.Line+1)
	}
	if i.Filename != "" {
		s += " (" + i.Filename + ")"
	}
	if i.Detail != "" {
		s += ": " + i.Detail
	}
	return s
}

// Err converts the issue into an AppError.
func (i Issue) Err() error {
	code := types.ErrInternal
	switch i.Kind {
	case IssueExtractionMismatch:
		code = types.ErrExtractionMismatch
	case IssueNoPlacementSlot, IssueCollision, IssueUnrestored:
		code = types.ErrNoPlacementSlot
	}
	return types.NewAppErrorWithDetails(code, string(i.Kind), i.String(), nil)
}

// Result is the outcome of one Refine call.
type Result struct {
	Document        Document
	Placements      []Placement
	Issues          []Issue
	Extracted       int
	CaptionsRemoved int
	WidthsFixed     int
}

// Dropped returns the filenames reported as NoPlacementSlot.
func (r *Result) Dropped() []string {
	var out []string
	for _, is := range r.Issues {
		if is.Kind == IssueNoPlacementSlot {
			out = append(out, is.Filename)
		}
	}
	return out
}

// Refiner runs the extraction, placement and reassembly passes.
type Refiner struct {
	opts       Options
	markerOpen string
	portraitRe *regexp.Regexp
	pathRe     *regexp.Regexp
	captionRe  *regexp.Regexp
}

// NewRefiner validates opts and compiles its patterns.
func NewRefiner(opts Options) (*Refiner, error) {
	if strings.TrimSpace(opts.MarkerCommand) == "" {
		return nil, types.NewAppError(types.ErrConfig, "marker command is empty", nil)
	}
	if strings.TrimSpace(opts.PortraitRoot) == "" {
		return nil, types.NewAppError(types.ErrConfig, "portrait root is empty", nil)
	}
	if len(opts.ImageExtensions) == 0 {
		return nil, types.NewAppError(types.ErrConfig, "no image extensions configured", nil)
	}

	exts := make([]string, len(opts.ImageExtensions))
	for i, e := range opts.ImageExtensions {
		exts[i] = regexp.QuoteMeta(strings.TrimPrefix(e, "."))
	}
	extAlt := strings.Join(exts, "|")
	root := regexp.QuoteMeta(strings.TrimSuffix(opts.PortraitRoot, "/"))

	r := &Refiner{
		opts:       opts,
		markerOpen: `\` + opts.MarkerCommand + `{`,
		portraitRe: regexp.MustCompile(`\\includegraphics\s*(?:\[[^\]]*\])?\s*\{` + root + `/[^{}]+/([^/{}]+\.(?:` + extAlt + `))\}`),
		pathRe:     regexp.MustCompile(root + `/[^{}\s]+/([^/{}\s]+\.(?:` + extAlt + `))`),
	}

	if opts.CaptionPattern != "" {
		re, err := regexp.Compile(opts.CaptionPattern)
		if err != nil {
			return nil, types.NewAppError(types.ErrConfig, "invalid caption pattern", err)
		}
		r.captionRe = re
	}

	return r, nil
}

// Options returns the options the refiner was built with.
func (r *Refiner) Options() Options {
	return r.opts
}

// Refine re-places every portrait annotation in doc and normalises captions
// and widths. doc is not modified.
func (r *Refiner) Refine(doc Document) *Result {
	res := &Result{}

	stripped := make(Document, len(doc))
	touched := make(map[int]bool)
	var extractions []Extraction

	for i, line := range doc {
		line, captions, widths := r.normalizeLine(line)
		if captions > 0 {
			logger.Debug("removed inline caption", logger.Int("line", i+1), logger.Int("count", captions))
			touched[i] = true
		}
		res.CaptionsRemoved += captions
		res.WidthsFixed += widths

		line, ex, issues := r.extractLine(line, i)
		if len(ex) > 0 {
			touched[i] = true
		}
		stripped[i] = line
		extractions = append(extractions, ex...)
		res.Issues = append(res.Issues, issues...)
	}
	res.Extracted = len(extractions)

	candidates, issues := locateCandidates(stripped, extractions)
	res.Issues = append(res.Issues, issues...)

	placements, issues := PlanPlacements(candidates)
	res.Issues = append(res.Issues, issues...)
	res.Placements = placements

	for _, p := range placements {
		logger.Debug("placed annotation",
			logger.String("file", p.Annotation.SourceFilename),
			logger.Int("line", p.Line+1),
			logger.Int("candidates", len(p.Candidates)),
			logger.Bool("fallback", p.Fallback))
	}
	for _, is := range res.Issues {
		logger.Warn("layout issue",
			logger.String("kind", string(is.Kind)),
			logger.Int("line", is.Line+1),
			logger.String("file", is.Filename),
			logger.String("detail", is.Detail))
	}

	res.Document = Reassemble(stripped, placements, touched)

	logger.Info("layout refined",
		logger.Int("extracted", res.Extracted),
		logger.Int("placed", len(res.Placements)),
		logger.Int("captionsRemoved", res.CaptionsRemoved),
		logger.Int("widthsFixed", res.WidthsFixed),
		logger.Int("issues", len(res.Issues)))

	return res
}

// Refine runs a Refiner built from DefaultOptions.
func Refine(doc Document) Document {
	r, err := NewRefiner(DefaultOptions())
	if err != nil {
		panic(err)
	}
	return r.Refine(doc).Document
}
