// Package workflow runs the full refine pipeline over chapter files:
// read, decode, restore, fix, place, fix again, validate, back up and
// write back atomically.
package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"latex-refiner/internal/config"
	"latex-refiner/internal/editor"
	"latex-refiner/internal/fixer"
	"latex-refiner/internal/layout"
	"latex-refiner/internal/logger"
	"latex-refiner/internal/metrics"
	"latex-refiner/internal/types"
)

// Refiner applies the configured pipeline to chapter files.
type Refiner struct {
	cfg       *config.Config
	layout    *layout.Refiner
	before    []fixer.Pass
	after     []fixer.Pass
	validator *editor.Validator
	backups   *editor.BackupManager
	metrics   *metrics.Metrics

	dryRun bool
	backup bool
}

// Option customises a Refiner.
type Option func(*Refiner)

// WithDryRun stops before any file is touched.
func WithDryRun(dryRun bool) Option {
	return func(r *Refiner) { r.dryRun = dryRun }
}

// WithBackups overrides backup.enabled.
func WithBackups(enabled bool) Option {
	return func(r *Refiner) { r.backup = enabled }
}

// WithMetrics records every file into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Refiner) { r.metrics = m }
}

// New builds a Refiner from cfg.
func New(cfg *config.Config, opts ...Option) (*Refiner, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	lr, err := layout.NewRefiner(cfg.LayoutOptions())
	if err != nil {
		return nil, err
	}

	r := &Refiner{
		cfg:       cfg,
		layout:    lr,
		before:    fixer.Before(cfg.Fixes, cfg.Layout.MarkerCommand, cfg.Layout.PortraitRoot),
		after:     fixer.After(cfg.Fixes),
		validator: editor.NewValidator(),
		backups:   editor.NewBackupManager(cfg.Backup.Dir),
		backup:    cfg.Backup.Enabled,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// FileResult describes what happened to one chapter.
type FileResult struct {
	Path       string
	Report     *layout.Result
	Restored   int
	FixCounts  map[string]int
	Validation *editor.ValidationResult
	BackupPath string
	Changed    bool
	Written    bool
	Duration   time.Duration

	// Output is the refined chapter; Format is the source's line format.
	Output layout.Document
	Format editor.LineFormat

	// Err is set by RefineFiles when this file failed.
	Err error
}

// RefineDocument runs the in-memory pipeline on doc. chapter names the
// portrait sub-directory used for restored annotations.
func (r *Refiner) RefineDocument(doc layout.Document, chapter string) *FileResult {
	res := &FileResult{FixCounts: make(map[string]int)}

	var restoreIssues []layout.Issue
	if len(r.cfg.People) > 0 {
		doc, res.Restored, restoreIssues = r.layout.RestoreMissing(doc, chapter, r.cfg.People)
		for _, is := range restoreIssues {
			logger.Warn("portrait not restored",
				logger.String("file", is.Filename),
				logger.String("detail", is.Detail))
		}
	}

	doc, counts := fixer.Run(doc, r.before...)
	mergeCounts(res.FixCounts, counts)

	res.Report = r.layout.Refine(doc)
	res.Report.Issues = append(restoreIssues, res.Report.Issues...)

	doc, counts = fixer.Run(res.Report.Document, r.after...)
	mergeCounts(res.FixCounts, counts)

	res.Output = doc
	res.Validation = r.validator.Check(doc)
	return res
}

// RefineFile refines the chapter at path. Unless the Refiner is in dry-run
// mode, a changed chapter is backed up and atomically replaced.
func (r *Refiner) RefineFile(ctx context.Context, path string) (res *FileResult, err error) {
	start := time.Now()
	defer func() {
		if res != nil {
			res.Duration = time.Since(start)
		}
		if r.metrics != nil {
			r.metrics.RecordFile(time.Since(start), outcome(res, r.dryRun), err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("refining chapter", logger.String("path", path))

	src, err := editor.ReadSource(path)
	if err != nil {
		logger.Error("failed to read chapter", err, logger.String("path", path))
		return nil, err
	}

	res = r.RefineDocument(src.Document, r.cfg.ChapterFor(path))
	res.Path = path
	res.Format = src.Format
	res.Changed = !slices.Equal(res.Output, src.Document)

	if r.metrics != nil {
		r.metrics.RecordReport(res.Report)
		r.metrics.RecordFixes(res.FixCounts)
	}

	if !res.Validation.Valid {
		for _, e := range res.Validation.Errors {
			logger.Warn("validation error", logger.String("path", path), logger.String("error", e.String()))
		}
		if r.cfg.Strict {
			return res, res.Validation.Err()
		}
	}

	if r.dryRun || !res.Changed {
		logger.Info("chapter not written",
			logger.String("path", path),
			logger.Bool("dryRun", r.dryRun),
			logger.Bool("changed", res.Changed))
		return res, nil
	}

	if r.backup {
		res.BackupPath, err = r.backups.CreateBackup(path)
		if err != nil {
			return res, err
		}
		if r.cfg.Backup.Keep > 0 {
			if _, err := r.backups.CleanupBackups(path, r.cfg.Backup.Keep); err != nil {
				logger.Warn("backup cleanup failed", logger.Err(err), logger.String("path", path))
			}
		}
	}

	if err := src.Save(res.Output); err != nil {
		logger.Error("failed to write chapter", err, logger.String("path", path))
		return res, err
	}
	res.Written = true

	logger.Info("chapter written",
		logger.String("path", path),
		logger.Int("placed", len(res.Report.Placements)),
		logger.Int("issues", len(res.Report.Issues)))
	return res, nil
}

// RefineFiles refines paths with at most limit files in flight. Results
// keep the order of paths. A write failure cancels files not yet started
// and is returned; other per-file errors are only recorded in FileResult.Err.
func (r *Refiner) RefineFiles(ctx context.Context, paths []string, limit int) ([]*FileResult, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]*FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			res, err := r.RefineFile(gctx, path)
			if res == nil {
				res = &FileResult{Path: path}
			}
			res.Err = err
			results[i] = res

			if types.IsCode(err, types.ErrWriteFailure) {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

func outcome(res *FileResult, dryRun bool) string {
	switch {
	case res == nil:
		return metrics.ResultFailed
	case res.Written:
		return metrics.ResultWritten
	case dryRun && res.Changed:
		return metrics.ResultDryRun
	}
	return metrics.ResultUnchanged
}

func mergeCounts(dst, src map[string]int) {
	for k, v := range src {
		dst[k] += v
	}
}

// FormatResult formats a FileResult as a human-readable string
func FormatResult(res *FileResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Refine Result: %s\n", res.Path))
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")

	switch {
	case res.Err != nil:
		sb.WriteString(fmt.Sprintf("✗ FAILED: %v\n\n", res.Err))
	case res.Written:
		sb.WriteString("✓ Written\n\n")
	case res.Changed:
		sb.WriteString("✓ Changes pending (not written)\n\n")
	default:
		sb.WriteString("✓ No changes\n\n")
	}

	if rep := res.Report; rep != nil {
		sb.WriteString(fmt.Sprintf("Annotations: %d extracted, %d placed", rep.Extracted, len(rep.Placements)))
		if res.Restored > 0 {
			sb.WriteString(fmt.Sprintf(", %d restored", res.Restored))
		}
		sb.WriteString("\n")
		if rep.CaptionsRemoved > 0 || rep.WidthsFixed > 0 {
			sb.WriteString(fmt.Sprintf("Captions removed: %d, widths fixed: %d\n", rep.CaptionsRemoved, rep.WidthsFixed))
		}
		for _, p := range rep.Placements {
			where := "mention"
			if p.Fallback {
				where = "original line"
			}
			sb.WriteString(fmt.Sprintf("  %-28s line %d (%s)\n", p.Annotation.SourceFilename, p.Line+1, where))
		}
		sb.WriteString("\n")

		if len(rep.Issues) > 0 {
			sb.WriteString(fmt.Sprintf("Issues (%d):\n", len(rep.Issues)))
			for i, is := range rep.Issues {
				sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, is))
			}
			sb.WriteString("\n")
		}
	}

	if len(res.FixCounts) > 0 {
		names := make([]string, 0, len(res.FixCounts))
		for name := range res.FixCounts {
			names = append(names, name)
		}
		slices.Sort(names)
		sb.WriteString("Fixes Applied:\n")
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("  %s: %d\n", name, res.FixCounts[name]))
		}
		sb.WriteString("\n")
	}

	if res.BackupPath != "" {
		sb.WriteString(fmt.Sprintf("Backup: %s\n\n", res.BackupPath))
	}

	if v := res.Validation; v != nil {
		sb.WriteString("Validation Result:\n")
		if v.Valid {
			sb.WriteString("  ✓ Valid\n")
		} else {
			sb.WriteString(fmt.Sprintf("  ✗ Invalid (%d errors, %d warnings)\n", len(v.Errors), len(v.Warnings)))
		}
	}

	return sb.String()
}
