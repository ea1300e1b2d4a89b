// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Defaults applied when neither the config file nor flags set a value.
const (
	DefaultRoot          = "jobs"
	DefaultWatchSchedule = "@every 30m"
	DefaultExpireDays    = 45
)

// Config represents the CLI configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Paths
	Root      string `json:"root,omitempty"`       // Record store root directory
	ResumeRef string `json:"resume_ref,omitempty"` // Default-resume reference directory

	// External endpoints
	APIKey     string `json:"api_key,omitempty"`     // Gemini API key
	UploadURL  string `json:"upload_url,omitempty"`  // Best-effort package upload endpoint
	WebhookURL string `json:"webhook_url,omitempty"` // Notification webhook endpoint

	// Policy knobs
	Attempts       int `json:"attempts,omitempty"`        // Total attempts per event, including the first
	RetryDelaySecs int `json:"retry_delay_s,omitempty"`   // Fixed pause between attempts
	TimeoutSecs    int `json:"event_timeout_s,omitempty"` // Wall-clock bound per event execution

	// Watch mode
	WatchSchedule string `json:"watch_schedule,omitempty"` // Cron spec for periodic processing
	ExpireDays    int    `json:"expire_days,omitempty"`    // Queued postings older than this expire

	// Behavior
	Verbose  bool   `json:"verbose,omitempty"`   // Print detailed debug information
	TestMode bool   `json:"test_mode,omitempty"` // Externally-bound events produce local stubs
	Env      string `json:"env,omitempty"`       // dev or prod, selects the log handler
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
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
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// FromEnv fills API-key style fields from the environment when unset.
func (c *Config) FromEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.UploadURL == "" {
		c.UploadURL = os.Getenv("UPLOAD_URL")
	}
	if c.WebhookURL == "" {
		c.WebhookURL = os.Getenv("NOTIFY_WEBHOOK_URL")
	}
	if c.Env == "" {
		c.Env = os.Getenv("APP_ENV")
	}
	if c.ExpireDays == 0 {
		if v, err := strconv.Atoi(os.Getenv("EXPIRE_DAYS")); err == nil {
			c.ExpireDays = v
		}
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Attempts < 0 {
		return fmt.Errorf("config error: 'attempts' must be non-negative")
	}
	if c.RetryDelaySecs < 0 {
		return fmt.Errorf("config error: 'retry_delay_s' must be non-negative")
	}
	if c.TimeoutSecs < 0 {
		return fmt.Errorf("config error: 'event_timeout_s' must be non-negative")
	}
	if c.ExpireDays < 0 {
		return fmt.Errorf("config error: 'expire_days' must be non-negative")
	}
	if c.ResumeRef != "" {
		if _, err := os.Stat(c.ResumeRef); os.IsNotExist(err) {
			return fmt.Errorf("config error: resume reference directory not found: %s", c.ResumeRef)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Root == "" {
		result.Root = defaults.Root
	}
	if result.ResumeRef == "" {
		result.ResumeRef = defaults.ResumeRef
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.UploadURL == "" {
		result.UploadURL = defaults.UploadURL
	}
	if result.WebhookURL == "" {
		result.WebhookURL = defaults.WebhookURL
	}
	if result.WatchSchedule == "" {
		result.WatchSchedule = defaults.WatchSchedule
	}
	if result.Env == "" {
		result.Env = defaults.Env
	}
	if result.Attempts == 0 {
		result.Attempts = defaults.Attempts
	}
	if result.RetryDelaySecs == 0 {
		result.RetryDelaySecs = defaults.RetryDelaySecs
	}
	if result.TimeoutSecs == 0 {
		result.TimeoutSecs = defaults.TimeoutSecs
	}
	if result.ExpireDays == 0 {
		result.ExpireDays = defaults.ExpireDays
	}

	if result.Root == "" {
		result.Root = DefaultRoot
	}
	if result.WatchSchedule == "" {
		result.WatchSchedule = DefaultWatchSchedule
	}
	if result.ExpireDays == 0 {
		result.ExpireDays = DefaultExpireDays
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
