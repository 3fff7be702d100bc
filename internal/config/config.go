// Package config provides configuration management for the chapter refiner.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"latex-refiner/internal/fixer"
	"latex-refiner/internal/layout"
	"latex-refiner/internal/logger"
	"latex-refiner/internal/types"
)

const (
	// DefaultConfigFileName is looked up in the working directory when no
	// explicit path is given.
	DefaultConfigFileName = "latex-refiner.yaml"
	// DefaultBackupKeep is how many backups per chapter survive cleanup.
	DefaultBackupKeep = 5
	// DefaultJobs bounds how many chapters are refined at once.
	DefaultJobs = 4

	envPrefix = "LATEX_REFINER_"
)

// Config is the full refiner configuration.
type Config struct {
	Layout  LayoutConfig    `yaml:"layout"`
	Fixes   fixer.Options   `yaml:"fixes"`
	People  []layout.Person `yaml:"people,omitempty"`
	Backup  BackupConfig    `yaml:"backup"`
	Log     LogConfig       `yaml:"log"`
	Metrics MetricsConfig   `yaml:"metrics"`
	// Strict refuses to write a chapter that fails structural validation.
	Strict bool `yaml:"strict"`
	Jobs   int  `yaml:"jobs"`
}

// LayoutConfig mirrors layout.Options.
type LayoutConfig struct {
	MarkerCommand   string   `yaml:"marker_command"`
	PortraitRoot    string   `yaml:"portrait_root"`
	ImageExtensions []string `yaml:"image_extensions"`
	CaptionPattern  string   `yaml:"caption_pattern"`
	WidthFrom       string   `yaml:"width_from"`
	WidthTo         string   `yaml:"width_to"`
	// Chapter is the portrait sub-directory used when restoring; empty
	// means the input file's stem.
	Chapter string `yaml:"chapter,omitempty"`
}

type BackupConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir,omitempty"`
	Keep    int    `yaml:"keep"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file,omitempty"`
	Console bool   `yaml:"console"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns a Config with default values
func Default() *Config {
	lo := layout.DefaultOptions()
	return &Config{
		Layout: LayoutConfig{
			MarkerCommand:   lo.MarkerCommand,
			PortraitRoot:    lo.PortraitRoot,
			ImageExtensions: lo.ImageExtensions,
			CaptionPattern:  lo.CaptionPattern,
			WidthFrom:       lo.WidthFrom,
			WidthTo:         lo.WidthTo,
		},
		Fixes: fixer.DefaultOptions(),
		Backup: BackupConfig{
			Enabled: true,
			Keep:    DefaultBackupKeep,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Jobs: DefaultJobs,
	}
}

// Load reads the configuration at path on top of the defaults, applies
// LATEX_REFINER_* environment overrides and validates the result.
//
// An empty path looks for DefaultConfigFileName in the working directory
// and silently falls back to defaults when it is absent. An explicit path
// must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, types.NewAppErrorWithDetails(types.ErrConfig, "failed to parse config", path, err)
		}
		logger.Debug("configuration loaded", logger.String("path", path))
	case os.IsNotExist(err) && !explicit:
		logger.Debug("no config file, using defaults", logger.String("path", path))
	default:
		return nil, types.NewAppErrorWithDetails(types.ErrConfig, "failed to read config file", path, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv(envPrefix + "LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := os.Getenv(envPrefix + "LOG_FILE"); val != "" {
		cfg.Log.File = val
	}
	if val := os.Getenv(envPrefix + "BACKUP_DIR"); val != "" {
		cfg.Backup.Dir = val
	}
	if val := os.Getenv(envPrefix + "METRICS_FILE"); val != "" {
		cfg.Metrics.Textfile = val
	}
	if val := os.Getenv(envPrefix + "STRICT"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return types.NewAppErrorWithDetails(types.ErrConfig, "invalid "+envPrefix+"STRICT", val, err)
		}
		cfg.Strict = b
	}
	if val := os.Getenv(envPrefix + "JOBS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return types.NewAppErrorWithDetails(types.ErrConfig, "invalid "+envPrefix+"JOBS", val, err)
		}
		cfg.Jobs = n
	}
	return nil
}

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	invalid := func(format string, args ...any) error {
		return types.NewAppError(types.ErrConfig, fmt.Sprintf(format, args...), nil)
	}

	if strings.TrimSpace(cfg.Layout.MarkerCommand) == "" {
		return invalid("layout.marker_command is required")
	}
	if strings.ContainsAny(cfg.Layout.MarkerCommand, `\{} `) {
		return invalid("layout.marker_command must be a bare command name: %q", cfg.Layout.MarkerCommand)
	}
	if strings.TrimSpace(cfg.Layout.PortraitRoot) == "" {
		return invalid("layout.portrait_root is required")
	}
	if len(cfg.Layout.ImageExtensions) == 0 {
		return invalid("layout.image_extensions must not be empty")
	}
	if cfg.Layout.CaptionPattern != "" {
		if _, err := regexp.Compile(cfg.Layout.CaptionPattern); err != nil {
			return types.NewAppErrorWithDetails(types.ErrConfig, "layout.caption_pattern is not a valid regexp", cfg.Layout.CaptionPattern, err)
		}
	}
	if cfg.Fixes.ClearpageEvery < 0 {
		return invalid("fixes.clearpage_every must not be negative: %d", cfg.Fixes.ClearpageEvery)
	}
	if cfg.Backup.Keep < 0 {
		return invalid("backup.keep must not be negative: %d", cfg.Backup.Keep)
	}
	if cfg.Jobs < 0 {
		return invalid("jobs must not be negative: %d", cfg.Jobs)
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return types.NewAppError(types.ErrConfig, "log.level is invalid", err)
	}
	for i, p := range cfg.People {
		if strings.TrimSpace(p.File) == "" {
			return invalid("people[%d].file is required", i)
		}
	}
	return nil
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return types.NewAppErrorWithDetails(types.ErrConfig, "failed to write config file", path, err)
	}

	logger.Info("configuration saved", logger.String("path", path))
	return nil
}

// LayoutOptions converts the layout section. People with an explicit name
// override the name derived from their portrait filename.
func (c *Config) LayoutOptions() layout.Options {
	opts := layout.Options{
		MarkerCommand:   c.Layout.MarkerCommand,
		PortraitRoot:    c.Layout.PortraitRoot,
		ImageExtensions: c.Layout.ImageExtensions,
		CaptionPattern:  c.Layout.CaptionPattern,
		WidthFrom:       c.Layout.WidthFrom,
		WidthTo:         c.Layout.WidthTo,
	}
	for _, p := range c.People {
		if p.Name == "" || p.Name == layout.MapName(p.File) {
			continue
		}
		if opts.SubjectNames == nil {
			opts.SubjectNames = make(map[string]string)
		}
		opts.SubjectNames[p.File] = p.Name
	}
	return opts
}

// LoggerConfig converts the log section.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level, _ = logger.ParseLevel(c.Log.Level)
	lc.LogFilePath = c.Log.File
	lc.EnableConsole = c.Log.Console
	return lc
}

// ChapterFor returns the portrait directory name for a chapter file.
func (c *Config) ChapterFor(path string) string {
	if c.Layout.Chapter != "" {
		return c.Layout.Chapter
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
