// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Poll    PollConfig    `yaml:"poll"`
	Ntfy    NtfyConfig    `yaml:"ntfy"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`

	// DryRun logs openings instead of pushing them; no topic is needed.
	DryRun bool `yaml:"dry_run"`
}

// APIConfig defines registrar API settings.
type APIConfig struct {
	ConsumerKey    string          `yaml:"consumer_key"`
	ConsumerSecret string          `yaml:"consumer_secret"`
	TokenURL       string          `yaml:"token_url"`
	BaseURL        string          `yaml:"base_url"`
	Term           string          `yaml:"term"` // empty means auto-detect latest
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines registrar API rate limiting settings.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// PollConfig defines poll cadence and notification debounce.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MinRenotify time.Duration `yaml:"min_renotify"`
}

// NtfyConfig defines the push relay target.
type NtfyConfig struct {
	BaseURL string `yaml:"base_url"`
	Topic   string `yaml:"topic"`
}

// ServerConfig defines the metrics/health HTTP server settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and applying defaults. Validation is separate so callers can
// overlay flags and environment values first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Default returns a config with all defaults applied and nothing else set.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	applyAPIDefaults(&cfg.API)
	applyPollDefaults(&cfg.Poll)
	applyNtfyDefaults(&cfg.Ntfy)
	applyServerDefaults(&cfg.Server)
	applyLoggingDefaults(&cfg.Logging)
}

func applyAPIDefaults(a *APIConfig) {
	if a.TokenURL == "" {
		a.TokenURL = "https://api.princeton.edu:443/token"
	}
	if a.BaseURL == "" {
		a.BaseURL = "https://api.princeton.edu:443/student-app/1.0.3"
	}
	if a.RateLimit.PerSecond == 0 {
		a.RateLimit.PerSecond = 2.0
	}
	if a.RateLimit.Burst == 0 {
		a.RateLimit.Burst = 5
	}
	if a.RateLimit.DailyLimit == 0 {
		a.RateLimit.DailyLimit = 5000
	}
}

func applyPollDefaults(p *PollConfig) {
	if p.Interval == 0 {
		p.Interval = 30 * time.Second
	}
	if p.MinRenotify == 0 {
		p.MinRenotify = 2 * time.Minute
	}
}

func applyNtfyDefaults(n *NtfyConfig) {
	if n.BaseURL == "" {
		n.BaseURL = "https://ntfy.sh"
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

// Validate checks that everything required to start watching is present.
func (cfg *Config) Validate() error {
	var errs []error

	if cfg.API.ConsumerKey == "" {
		errs = append(errs, fmt.Errorf("api.consumer_key is required (or CONSUMER_KEY env)"))
	}
	if cfg.API.ConsumerSecret == "" {
		errs = append(errs, fmt.Errorf("api.consumer_secret is required (or CONSUMER_SECRET env)"))
	}
	if cfg.Ntfy.Topic == "" && !cfg.DryRun {
		errs = append(errs, fmt.Errorf("ntfy.topic is required (or --topic / NTFY_TOPIC env)"))
	}
	if cfg.Poll.Interval < time.Second {
		errs = append(errs, fmt.Errorf("poll.interval must be at least 1s"))
	}

	return errors.Join(errs...)
}
