package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid minimal config",
			yaml: `
api:
  consumer_key: key123
  consumer_secret: secret456
ntfy:
  topic: my-seats
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "key123", cfg.API.ConsumerKey)
				assert.Equal(t, "secret456", cfg.API.ConsumerSecret)
				assert.Equal(t, "my-seats", cfg.Ntfy.Topic)
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: `
api:
  consumer_key: k
  consumer_secret: s
ntfy:
  topic: t
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "https://api.princeton.edu:443/token", cfg.API.TokenURL)
				assert.Equal(t, "https://api.princeton.edu:443/student-app/1.0.3", cfg.API.BaseURL)
				assert.Equal(t, 2.0, cfg.API.RateLimit.PerSecond)
				assert.Equal(t, 5, cfg.API.RateLimit.Burst)
				assert.Equal(t, int64(5000), cfg.API.RateLimit.DailyLimit)
				assert.Equal(t, 30*time.Second, cfg.Poll.Interval)
				assert.Equal(t, 2*time.Minute, cfg.Poll.MinRenotify)
				assert.Equal(t, "https://ntfy.sh", cfg.Ntfy.BaseURL)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "env var substitution",
			yaml: `
api:
  consumer_key: "${TEST_CONSUMER_KEY}"
  consumer_secret: s
ntfy:
  topic: t
`,
			envVars: map[string]string{
				"TEST_CONSUMER_KEY": "from-env",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "from-env", cfg.API.ConsumerKey)
			},
		},
		{
			name: "custom poll settings",
			yaml: `
api:
  consumer_key: k
  consumer_secret: s
poll:
  interval: 10s
  min_renotify: 5m
ntfy:
  topic: t
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, 10*time.Second, cfg.Poll.Interval)
				assert.Equal(t, 5*time.Minute, cfg.Poll.MinRenotify)
			},
		},
		{
			name:    "invalid YAML",
			yaml:    "api: [unclosed",
			wantErr: "parsing config YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load(writeConfig(t, tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			tt.checkFunc(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr []string
	}{
		{
			name:   "complete config passes",
			mutate: func(_ *Config) {},
		},
		{
			name: "missing consumer key",
			mutate: func(cfg *Config) {
				cfg.API.ConsumerKey = ""
			},
			wantErr: []string{"api.consumer_key"},
		},
		{
			name: "missing everything",
			mutate: func(cfg *Config) {
				cfg.API.ConsumerKey = ""
				cfg.API.ConsumerSecret = ""
				cfg.Ntfy.Topic = ""
			},
			wantErr: []string{"api.consumer_key", "api.consumer_secret", "ntfy.topic"},
		},
		{
			name: "dry run does not require a topic",
			mutate: func(cfg *Config) {
				cfg.Ntfy.Topic = ""
				cfg.DryRun = true
			},
		},
		{
			name: "sub-second interval rejected",
			mutate: func(cfg *Config) {
				cfg.Poll.Interval = 100 * time.Millisecond
			},
			wantErr: []string{"poll.interval"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			cfg.API.ConsumerKey = "k"
			cfg.API.ConsumerSecret = "s"
			cfg.Ntfy.Topic = "t"
			tt.mutate(cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
