// Package metrics counts refinement activity with Prometheus collectors.
//
// The refiner is a batch tool, so nothing is served over HTTP; a run's
// registry is written to a node_exporter textfile instead.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"latex-refiner/internal/layout"
	"latex-refiner/internal/types"
)

// Success labels for metrics
const (
	SuccessTrue  = "true"
	SuccessFalse = "false"
)

// File outcomes for the result label.
const (
	ResultWritten   = "written"
	ResultUnchanged = "unchanged"
	ResultDryRun    = "dry_run"
	ResultFailed    = "failed"
)

// Metrics holds one run's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	FilesTotal           *prometheus.CounterVec
	FileDuration         *prometheus.HistogramVec
	AnnotationsExtracted prometheus.Counter
	PlacementsTotal      *prometheus.CounterVec
	PlacementDistance    prometheus.Histogram
	IssuesTotal          *prometheus.CounterVec
	FixesTotal           *prometheus.CounterVec
	ErrorsTotal          *prometheus.CounterVec
}

// New registers a fresh set of collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "latex_refiner_files_total",
			Help: "Chapter files processed, by outcome",
		}, []string{"result"}),

		FileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "latex_refiner_file_duration_seconds",
			Help:    "Time spent refining one chapter file",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"success"}),

		AnnotationsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Name: "latex_refiner_annotations_extracted_total",
			Help: "Portrait annotations pulled out of chapters",
		}),

		PlacementsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "latex_refiner_placements_total",
			Help: "Annotations placed, by whether a mention or the original line was used",
		}, []string{"kind"}),

		PlacementDistance: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "latex_refiner_placement_distance_lines",
			Help:    "Distance in lines from each placement to its nearest earlier placement",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
		}),

		IssuesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "latex_refiner_issues_total",
			Help: "Recoverable problems reported during refinement",
		}, []string{"kind"}),

		FixesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "latex_refiner_fixes_total",
			Help: "Edits made by structural fix passes",
		}, []string{"pass"}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "latex_refiner_errors_total",
			Help: "Files that failed, by error code",
		}, []string{"code"}),
	}
}

// RecordFile records the outcome of one chapter.
func (m *Metrics) RecordFile(duration time.Duration, result string, err error) {
	successLabel := SuccessTrue
	if err != nil {
		successLabel = SuccessFalse
		result = ResultFailed
		m.ErrorsTotal.WithLabelValues(string(types.CodeOf(err))).Inc()
	}
	m.FilesTotal.WithLabelValues(result).Inc()
	m.FileDuration.WithLabelValues(successLabel).Observe(duration.Seconds())
}

// RecordReport records what a refine pass did.
func (m *Metrics) RecordReport(res *layout.Result) {
	if res == nil {
		return
	}
	m.AnnotationsExtracted.Add(float64(res.Extracted))
	for _, p := range res.Placements {
		kind := "mention"
		if p.Fallback {
			kind = "fallback"
		}
		m.PlacementsTotal.WithLabelValues(kind).Inc()
		if p.Distance != layout.Unbounded {
			m.PlacementDistance.Observe(float64(p.Distance))
		}
	}
	for _, is := range res.Issues {
		m.IssuesTotal.WithLabelValues(string(is.Kind)).Inc()
	}
}

// RecordFixes adds per-pass edit counts.
func (m *Metrics) RecordFixes(counts map[string]int) {
	for pass, n := range counts {
		m.FixesTotal.WithLabelValues(pass).Add(float64(n))
	}
}

// WriteTextfile writes the registry in text exposition format. The write
// goes through a temp file and rename, so a scraper never sees half a file.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return types.NewAppErrorWithDetails(types.ErrWriteFailure, "failed to write metrics textfile", path, err)
	}
	return nil
}
