// latex-refine re-spaces portrait margin notes in book chapters and applies
// the structural clean-ups that go with them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"gopkg.in/yaml.v3"

	"latex-refiner/internal/config"
	"latex-refiner/internal/editor"
	"latex-refiner/internal/layout"
	"latex-refiner/internal/logger"
	"latex-refiner/internal/metrics"
	"latex-refiner/internal/types"
	"latex-refiner/internal/workflow"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitUsage
	}

	switch args[0] {
	case "refine":
		return runRefine(args[1:], stdout, stderr)
	case "validate":
		return runValidate(args[1:], stdout, stderr)
	case "names":
		return runNames(args[1:], stdout, stderr)
	case "backup":
		return runBackup(args[1:], stdout, stderr)
	case "config":
		return runConfig(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return exitUsage
	}
}

func printUsage(w io.Writer) {
	usage := `latex-refine - portrait margin-note refiner for LaTeX chapters

Usage:
  latex-refine <command> [arguments]

Commands:
  refine      Re-place portrait annotations and apply structural fixes
  validate    Check brace balance and environment pairing
  names       Show the subject name derived from portrait filenames
  backup      Backup management
  config      Write or show the configuration

Refine:
  latex-refine refine [--config f] [--dry-run] [--no-backup] [--jobs n]
                      [--metrics-file f] [--stdout] [-v] <file>...

Validate:
  latex-refine validate [--config f] <file>...

Names:
  latex-refine names [--config f] <filename>...

Backup Commands:
  latex-refine backup create [--config f] <file>
  latex-refine backup restore [--config f] <backup-file> <original-file>
  latex-refine backup list [--config f] <file>
  latex-refine backup cleanup [--config f] [--keep n] <file>

Config Commands:
  latex-refine config init [path]
  latex-refine config show [--config f]

Examples:
  latex-refine refine --dry-run Chapter-Introduction.tex
  latex-refine refine --jobs 4 chapters/*.tex
  latex-refine names GeoffreyHinton.jpg
`
	fmt.Fprint(w, usage)
}

// setup loads configuration and starts the global logger. A non-zero code
// means the caller should stop.
func setup(configPath string, verbose bool, stderr io.Writer) (*config.Config, int) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, exitCode(err)
	}

	lc := cfg.LoggerConfig()
	lc.Output = stderr
	if verbose {
		lc.Level = logger.LevelDebug
	}
	if err := logger.Init(lc); err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialise logging: %v\n", err)
		return nil, exitUsage
	}
	return cfg, exitOK
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "configuration file (default ./"+config.DefaultConfigFileName+" when present)")
	return fs, configPath
}

func runRefine(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("refine", stderr)
	dryRun := fs.Bool("dry-run", false, "report what would change without writing")
	noBackup := fs.Bool("no-backup", false, "do not back up files before writing")
	jobs := fs.Int("jobs", 0, "files refined in parallel (default from config)")
	metricsFile := fs.String("metrics-file", "", "write Prometheus metrics to this textfile")
	toStdout := fs.Bool("stdout", false, "print the refined chapter instead of writing it (single file)")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	paths := fs.Args()
	if len(paths) == 0 {
		fmt.Fprintln(stderr, "Usage: latex-refine refine [flags] <file>...")
		return exitUsage
	}
	if *toStdout && len(paths) != 1 {
		fmt.Fprintln(stderr, "Error: --stdout takes exactly one file")
		return exitUsage
	}

	cfg, code := setup(*configPath, *verbose, stderr)
	if code != exitOK {
		return code
	}
	defer logger.Close()

	if *metricsFile != "" {
		cfg.Metrics.Textfile = *metricsFile
	}
	if *jobs > 0 {
		cfg.Jobs = *jobs
	}

	opts := []workflow.Option{workflow.WithDryRun(*dryRun || *toStdout)}
	if *noBackup {
		opts = append(opts, workflow.WithBackups(false))
	}
	var m *metrics.Metrics
	if cfg.Metrics.Textfile != "" {
		m = metrics.New()
		opts = append(opts, workflow.WithMetrics(m))
	}

	r, err := workflow.New(cfg, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, runErr := r.RefineFiles(ctx, paths, cfg.Jobs)

	report := stdout
	if *toStdout {
		report = stderr
	}

	code = exitOK
	for _, res := range results {
		fmt.Fprintln(report, workflow.FormatResult(res))
		if res.Err != nil {
			code = exitFailure
		}
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", runErr)
		code = exitFailure
	}

	if *toStdout && results[0].Err == nil {
		fmt.Fprint(stdout, editor.JoinLines(results[0].Output, results[0].Format))
	}

	if m != nil {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			code = exitFailure
		}
	}
	return code
}

func runValidate(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("validate", stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "Usage: latex-refine validate <file>...")
		return exitUsage
	}

	if _, code := setup(*configPath, false, stderr); code != exitOK {
		return code
	}
	defer logger.Close()

	v := editor.NewValidator()
	code := exitOK
	for _, path := range fs.Args() {
		res, err := v.ValidateFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			code = exitFailure
			continue
		}
		fmt.Fprintln(stdout, editor.FormatReport(path, res))
		if !res.Valid {
			code = exitFailure
		}
	}
	return code
}

func runNames(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("names", stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "Usage: latex-refine names <filename>...")
		return exitUsage
	}

	cfg, code := setup(*configPath, false, stderr)
	if code != exitOK {
		return code
	}
	defer logger.Close()

	overrides := cfg.LayoutOptions().SubjectNames
	for _, file := range fs.Args() {
		name, ok := overrides[file]
		if !ok {
			name = layout.MapName(file)
		}
		fmt.Fprintf(stdout, "%s\t%s\n", file, name)
	}
	return exitOK
}

func runBackup(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: latex-refine backup <create|restore|list|cleanup> [arguments]")
		return exitUsage
	}

	action := args[0]
	fs, configPath := newFlagSet("backup "+action, stderr)
	keep := fs.Int("keep", -1, "backups to keep (default from config)")
	if err := fs.Parse(args[1:]); err != nil {
		return exitUsage
	}
	rest := fs.Args()

	cfg, code := setup(*configPath, false, stderr)
	if code != exitOK {
		return code
	}
	defer logger.Close()

	mgr := editor.NewBackupManager(cfg.Backup.Dir)

	fail := func(err error) int {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}

	switch action {
	case "create":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "Usage: latex-refine backup create <file>")
			return exitUsage
		}
		path, err := mgr.CreateBackup(rest[0])
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(stdout, "✓ Backup created: %s\n", path)

	case "restore":
		if len(rest) != 2 {
			fmt.Fprintln(stderr, "Usage: latex-refine backup restore <backup-file> <original-file>")
			return exitUsage
		}
		if err := mgr.Restore(rest[0], rest[1]); err != nil {
			return fail(err)
		}
		fmt.Fprintf(stdout, "✓ Restored %s from %s\n", rest[1], rest[0])

	case "list":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "Usage: latex-refine backup list <file>")
			return exitUsage
		}
		backups, err := mgr.ListBackups(rest[0])
		if err != nil {
			return fail(err)
		}
		if len(backups) == 0 {
			fmt.Fprintln(stdout, "No backups found")
			return exitOK
		}
		fmt.Fprintf(stdout, "Backups (%d):\n", len(backups))
		for i, b := range backups {
			fmt.Fprintf(stdout, "  %d. %s\n", i+1, b)
		}

	case "cleanup":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "Usage: latex-refine backup cleanup [--keep n] <file>")
			return exitUsage
		}
		n := cfg.Backup.Keep
		if *keep >= 0 {
			n = *keep
		}
		removed, err := mgr.CleanupBackups(rest[0], n)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(stdout, "✓ Removed %d backup(s), kept up to %d\n", removed, n)

	default:
		fmt.Fprintf(stderr, "Unknown backup command: %s\n", action)
		return exitUsage
	}
	return exitOK
}

func runConfig(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: latex-refine config <init|show> [arguments]")
		return exitUsage
	}

	switch args[0] {
	case "init":
		path := config.DefaultConfigFileName
		if len(args) > 1 {
			path = args[1]
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(stderr, "Error: %s already exists\n", path)
			return exitFailure
		} else if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		if err := config.Save(config.Default(), path); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "✓ Wrote default configuration to %s\n", path)
		return exitOK

	case "show":
		fs, configPath := newFlagSet("config show", stderr)
		if err := fs.Parse(args[1:]); err != nil {
			return exitUsage
		}
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		defer enc.Close()
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		return exitOK

	default:
		fmt.Fprintf(stderr, "Unknown config command: %s\n", args[0])
		return exitUsage
	}
}

// exitCode maps an error to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case types.IsCode(err, types.ErrConfig), types.IsCode(err, types.ErrInvalidInput):
		return exitUsage
	}
	return exitFailure
}
