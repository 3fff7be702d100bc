package fixer

// Options toggles the individual passes.
type Options struct {
	PortraitCaptions bool `yaml:"portrait_captions"`
	MarkerBraces     bool `yaml:"marker_braces"`
	FigureCitations  bool `yaml:"figure_citations"`
	FloatSpecifiers  bool `yaml:"float_specifiers"`
	ClearpageEvery   int  `yaml:"clearpage_every"`
	DedupeClearpage  bool `yaml:"dedupe_clearpage"`
	FinalClearpage   bool `yaml:"ensure_final_clearpage"`
}

// DefaultOptions enables every structural repair. Caption stripping
// removes author text and clearpage insertion changes pagination, so
// both stay off until asked for.
func DefaultOptions() Options {
	return Options{
		PortraitCaptions: false,
		MarkerBraces:     true,
		FigureCitations:  true,
		FloatSpecifiers:  true,
		ClearpageEvery:   0,
		DedupeClearpage:  true,
		FinalClearpage:   true,
	}
}

// Before returns the passes that run ahead of placement. Brace repair has
// to precede extraction or the unbalanced note is left in place.
func Before(opts Options, marker, root string) []Pass {
	var passes []Pass
	if opts.PortraitCaptions {
		passes = append(passes, PortraitCaptions(marker, root))
	}
	if opts.MarkerBraces {
		passes = append(passes, MarkerBraces(marker))
	}
	if opts.FigureCitations {
		passes = append(passes, FigureCitations())
	}
	if opts.FloatSpecifiers {
		passes = append(passes, FloatSpecifiers())
	}
	return passes
}

// After returns the passes that run once placement is done.
func After(opts Options) []Pass {
	var passes []Pass
	if opts.ClearpageEvery > 0 {
		passes = append(passes, ClearpageAfterFigures(opts.ClearpageEvery))
	}
	if opts.DedupeClearpage {
		passes = append(passes, DedupeClearpage())
	}
	if opts.FinalClearpage {
		passes = append(passes, FinalClearpage())
	}
	return passes
}
