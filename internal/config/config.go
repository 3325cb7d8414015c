// Package config loads the application configuration: an optional YAML file
// with environment-variable overrides, producing an explicit value object
// that is passed into components rather than read from process-wide state.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all motordata configuration.
type Config struct {
	PostHog PostHogConfig `yaml:"posthog"`
	Output  OutputConfig  `yaml:"output"`
	Bulk    BulkConfig    `yaml:"bulk"`
	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`
}

// PostHogConfig holds remote-store connection settings.
type PostHogConfig struct {
	InstanceURL    string `yaml:"instance_url"`
	ProjectID      string `yaml:"project_id"`
	APIKey         string `yaml:"api_key"`
	PersonID       string `yaml:"person_id"`   // default person when the flag is omitted
	SessionID      string `yaml:"session_id"`  // default session filter, empty = none
	PageLimit      int    `yaml:"page_limit"`  // per-page result limit
	MaxPages       int    `yaml:"max_pages"`   // pagination hard cap
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the HTTP timeout as a duration.
func (p PostHogConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// OutputConfig holds local file destinations.
type OutputConfig struct {
	MasterCSV string `yaml:"master_csv"`
	SeriesDir string `yaml:"series_dir"`
}

// BulkConfig controls bulk downloads. The property-count band is the
// quality filter: events outside it are skipped. MaxProperties 0 disables
// the upper bound.
type BulkConfig struct {
	MinProperties int `yaml:"min_properties"`
	MaxProperties int `yaml:"max_properties"`
	Workers       int `yaml:"workers"`
}

// ArchiveConfig controls the raw-event SQLite archive.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PostHog: PostHogConfig{
			InstanceURL:    "https://us.posthog.com",
			PageLimit:      200,
			MaxPages:       5,
			TimeoutSeconds: 30,
		},
		Output: OutputConfig{
			MasterCSV: "csv_outputs/motor_data_master.csv",
			SeriesDir: "histogram_outputs",
		},
		Bulk: BulkConfig{
			MinProperties: 160,
			MaxProperties: 170,
			Workers:       4,
		},
		Archive: ArchiveConfig{
			Path: "csv_outputs/motor_data_archive.db",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is empty, "motordata.yaml" is used when present and skipped when
// not), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	optional := path == ""
	if path == "" {
		path = "motordata.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && optional:
		// No config file; defaults plus env are enough.
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv layers environment-variable overrides on top.
func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	set(&cfg.PostHog.InstanceURL, "POSTHOG_INSTANCE_URL")
	set(&cfg.PostHog.ProjectID, "POSTHOG_PROJECT_ID")
	set(&cfg.PostHog.APIKey, "POSTHOG_API_KEY")
	set(&cfg.PostHog.PersonID, "MOTORDATA_PERSON_ID")
	set(&cfg.PostHog.SessionID, "MOTORDATA_SESSION_ID")
	setInt(&cfg.PostHog.PageLimit, "MOTORDATA_PAGE_LIMIT")
	set(&cfg.Output.MasterCSV, "MOTORDATA_MASTER_CSV")
	set(&cfg.Output.SeriesDir, "MOTORDATA_SERIES_DIR")
	set(&cfg.Logging.Level, "MOTORDATA_LOG_LEVEL")
	set(&cfg.Archive.Path, "MOTORDATA_ARCHIVE_PATH")
	if v := os.Getenv("MOTORDATA_ARCHIVE"); v != "" {
		cfg.Archive.Enabled = v == "1" || v == "true"
	}
}

// Validate checks the settings remote operations depend on.
func (c Config) Validate() error {
	if c.PostHog.APIKey == "" {
		return fmt.Errorf("config: posthog api_key is required (POSTHOG_API_KEY)")
	}
	if c.PostHog.ProjectID == "" {
		return fmt.Errorf("config: posthog project_id is required (POSTHOG_PROJECT_ID)")
	}
	if c.Bulk.MaxProperties != 0 && c.Bulk.MaxProperties < c.Bulk.MinProperties {
		return fmt.Errorf("config: bulk max_properties %d below min_properties %d",
			c.Bulk.MaxProperties, c.Bulk.MinProperties)
	}
	return nil
}
