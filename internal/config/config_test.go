package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watchpost.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WATCHPOST_API_KEY", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Listen)
	assert.Equal(t, "watchpost.db", cfg.DBPath)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 20*time.Second, cfg.OfflineAfter.Duration)
	assert.True(t, cfg.Thresholds.Enabled)
	assert.Equal(t, 80.0, cfg.Thresholds.CPU)
	assert.Equal(t, 5.0, cfg.Thresholds.ResendDelta)
	assert.Empty(t, cfg.Notifications)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("WATCHPOST_API_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/watchpost.yml")
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
db_path: /var/lib/watchpost/data.db
api_key: file-secret
log_level: debug
log_format: json
offline_after: 45s
thresholds:
  enabled: true
  cpu: 90
  memory: 85
  disk: 95
  resend_delta: 10
notifications:
  - type: ntfy
    url: https://ntfy.sh
    topic: ops-alerts
  - type: webhook
    url: https://hooks.example.com/watchpost
    method: PUT
    headers:
      Authorization: Bearer abc
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "/var/lib/watchpost/data.db", cfg.DBPath)
	assert.Equal(t, "file-secret", cfg.APIKey)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 45*time.Second, cfg.OfflineAfter.Duration)
	assert.Equal(t, 90.0, cfg.Thresholds.CPU)
	assert.Equal(t, 10.0, cfg.Thresholds.ResendDelta)

	require.Len(t, cfg.Notifications, 2)
	assert.Equal(t, "ntfy", cfg.Notifications[0].Type)
	assert.Equal(t, "ops-alerts", cfg.Notifications[0].Topic)
	assert.Equal(t, "PUT", cfg.Notifications[1].Method)
	assert.Equal(t, "Bearer abc", cfg.Notifications[1].Headers["Authorization"])
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_WP_SECRET", "expanded-secret")
	path := writeConfig(t, "api_key: ${TEST_WP_SECRET}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-secret", cfg.APIKey)
}

func TestLoad_EnvVarExpansionUnset(t *testing.T) {
	path := writeConfig(t, "api_key: ${TEST_WP_DEFINITELY_UNSET}\n")

	// Expands to empty, which then fails validation.
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "api_key: file-secret\nlisten: \":9000\"\n")

	t.Setenv("WATCHPOST_LISTEN", ":7070")
	t.Setenv("WATCHPOST_API_KEY", "env-secret")
	t.Setenv("WATCHPOST_LOG_FORMAT", "json")
	t.Setenv("WATCHPOST_OFFLINE_AFTER", "1m")
	t.Setenv("WATCHPOST_THRESHOLDS_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Listen, "env beats file")
	assert.Equal(t, "env-secret", cfg.APIKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, time.Minute, cfg.OfflineAfter.Duration)
	assert.False(t, cfg.Thresholds.Enabled)
}

func TestLoad_NtfyFromEnv(t *testing.T) {
	t.Setenv("WATCHPOST_API_KEY", "secret")
	t.Setenv("WATCHPOST_NTFY_URL", "https://ntfy.sh")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Len(t, cfg.Notifications, 1)
	assert.Equal(t, "ntfy", cfg.Notifications[0].Type)
	assert.Equal(t, "watchpost-alerts", cfg.Notifications[0].Topic, "topic falls back to the default")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaults()
		cfg.APIKey = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"zero offline window", func(c *Config) { c.OfflineAfter = Duration{} }, "offline_after"},
		{"cpu threshold too high", func(c *Config) { c.Thresholds.CPU = 150 }, "thresholds.cpu"},
		{"disk threshold zero", func(c *Config) { c.Thresholds.Disk = 0 }, "thresholds.disk"},
		{"negative resend delta", func(c *Config) { c.Thresholds.ResendDelta = -1 }, "resend_delta"},
		{"thresholds ignored when disabled", func(c *Config) {
			c.Thresholds.Enabled = false
			c.Thresholds.CPU = 150
		}, ""},
		{"ntfy without topic", func(c *Config) {
			c.Notifications = []NotificationConfig{{Type: "ntfy", URL: "https://ntfy.sh"}}
		}, "topic"},
		{"webhook without url", func(c *Config) {
			c.Notifications = []NotificationConfig{{Type: "webhook"}}
		}, "url"},
		{"unknown notification type", func(c *Config) {
			c.Notifications = []NotificationConfig{{Type: "pager", URL: "https://x"}}
		}, "unknown type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`1h30m`), &d))
	assert.Equal(t, 90*time.Minute, d.Duration)

	assert.Error(t, yaml.Unmarshal([]byte(`not-a-duration`), &d))
}
