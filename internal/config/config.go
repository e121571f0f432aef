// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Defaults applied when neither the config file nor flags set a value.
const (
	DefaultMaxPerRun       = 10
	DefaultDelayMinSeconds = 30
	DefaultDelayMaxSeconds = 120
	DefaultOverfetch       = 5
	DefaultScreenshotsDir  = "data/screenshots"
	DefaultProfilePath     = "data/profile.json"
)

// Config is the application configuration, loadable from a JSON file.
// All fields are optional; missing values use defaults or come from
// environment variables / CLI flags.
type Config struct {
	// Behavior
	ReviewMode      bool `json:"review_mode"`                 // Pause every successful fill for human confirmation before submit
	MaxPerRun       int  `json:"max_per_run,omitempty"`       // Submitted-application cap per session
	DelayMinSeconds int  `json:"delay_min_seconds,omitempty"` // Lower bound of the randomized inter-job delay
	DelayMaxSeconds int  `json:"delay_max_seconds,omitempty"` // Upper bound of the randomized inter-job delay
	OverfetchFactor int  `json:"overfetch_factor,omitempty"`  // Candidate overfetch multiplier for post-filtering

	// Browser
	Headless        bool   `json:"headless"`
	ScreenshotsDir  string `json:"screenshots_dir,omitempty"`
	SaveScreenshots bool   `json:"save_screenshots"`

	// Profile
	ProfilePath string `json:"profile_path,omitempty"`

	// Discovery sources
	GreenhouseBoards []string `json:"greenhouse_boards,omitempty"` // Board tokens, e.g. "acme"
	LeverCompanies   []string `json:"lever_companies,omitempty"`   // Company slugs, e.g. "acme"

	// Integrations
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL; empty uses the in-memory store
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	NtfyTopic   string `json:"ntfy_topic,omitempty"`   // ntfy.sh topic for push notifications

	Verbose bool `json:"verbose,omitempty"`
}

// Default returns a config with all defaults applied. Review mode and
// headless browsing are on by default: an unattended first run should
// never submit without confirmation.
func Default() Config {
	return Config{
		ReviewMode:      true,
		MaxPerRun:       DefaultMaxPerRun,
		DelayMinSeconds: DefaultDelayMinSeconds,
		DelayMaxSeconds: DefaultDelayMaxSeconds,
		OverfetchFactor: DefaultOverfetch,
		Headless:        true,
		SaveScreenshots: true,
		ScreenshotsDir:  DefaultScreenshotsDir,
		ProfilePath:     DefaultProfilePath,
	}
}

// Load reads configuration from a JSON file and fills unset values
// from defaults and the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg.ApplyEnv()
	cfg.fillDefaults()
	return &cfg, nil
}

// ApplyEnv fills integration settings from environment variables when
// the config file left them empty.
func (c *Config) ApplyEnv() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.NtfyTopic == "" {
		c.NtfyTopic = os.Getenv("NTFY_TOPIC")
	}
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.MaxPerRun == 0 {
		c.MaxPerRun = d.MaxPerRun
	}
	if c.DelayMinSeconds == 0 {
		c.DelayMinSeconds = d.DelayMinSeconds
	}
	if c.DelayMaxSeconds == 0 {
		c.DelayMaxSeconds = d.DelayMaxSeconds
	}
	if c.OverfetchFactor == 0 {
		c.OverfetchFactor = d.OverfetchFactor
	}
	if c.ScreenshotsDir == "" {
		c.ScreenshotsDir = d.ScreenshotsDir
	}
	if c.ProfilePath == "" {
		c.ProfilePath = d.ProfilePath
	}
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.MaxPerRun < 0 {
		return fmt.Errorf("config error: 'max_per_run' must be non-negative")
	}
	if c.DelayMinSeconds < 0 || c.DelayMaxSeconds < 0 {
		return fmt.Errorf("config error: delay bounds must be non-negative")
	}
	if c.DelayMaxSeconds < c.DelayMinSeconds {
		return fmt.Errorf("config error: 'delay_max_seconds' must be >= 'delay_min_seconds'")
	}
	if c.OverfetchFactor < 1 {
		return fmt.Errorf("config error: 'overfetch_factor' must be at least 1")
	}
	return nil
}
