// Package config handles loading and validating Watchpost configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ErrConfigFileNotFound is returned by Load when the specified config file does not exist.
var ErrConfigFileNotFound = errors.New("config file not found")

// Config is the top-level Watchpost configuration.
type Config struct {
	Listen        string               `yaml:"listen"`
	DBPath        string               `yaml:"db_path"`
	APIKey        string               `yaml:"api_key"`
	LogLevel      string               `yaml:"log_level"`
	LogFormat     string               `yaml:"log_format"`
	OfflineAfter  Duration             `yaml:"offline_after"`
	Thresholds    ThresholdsConfig     `yaml:"thresholds"`
	Notifications []NotificationConfig `yaml:"notifications"`
}

// ThresholdsConfig controls server-side resource alerting on ingested
// samples. Percent values; a sample at or above the threshold is "high".
type ThresholdsConfig struct {
	Enabled     bool    `yaml:"enabled"`
	CPU         float64 `yaml:"cpu"`
	Memory      float64 `yaml:"memory"`
	Disk        float64 `yaml:"disk"`
	ResendDelta float64 `yaml:"resend_delta"` // re-alert when still high and moved this much
}

// NotificationConfig describes a notification target.
type NotificationConfig struct {
	Type    string            `yaml:"type"` // "ntfy" or "webhook"
	URL     string            `yaml:"url"`
	Topic   string            `yaml:"topic,omitempty"`   // ntfy only
	Method  string            `yaml:"method,omitempty"`  // webhook only
	Headers map[string]string `yaml:"headers,omitempty"` // webhook only
}

// Duration wraps time.Duration with YAML string parsing support.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Load reads configuration from a YAML file. If no path is given, it falls
// back to environment variables. If a path is given and the file does not
// exist, ErrConfigFileNotFound is returned.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(expandEnvVars(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required (agents authenticate with it)")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("log_format must be one of: text, json")
	}
	if c.OfflineAfter.Duration <= 0 {
		return fmt.Errorf("offline_after must be > 0")
	}
	if c.Thresholds.Enabled {
		for _, th := range []struct {
			name  string
			value float64
		}{
			{"thresholds.cpu", c.Thresholds.CPU},
			{"thresholds.memory", c.Thresholds.Memory},
			{"thresholds.disk", c.Thresholds.Disk},
		} {
			if th.value <= 0 || th.value > 100 {
				return fmt.Errorf("%s must be in (0, 100]", th.name)
			}
		}
		if c.Thresholds.ResendDelta < 0 {
			return fmt.Errorf("thresholds.resend_delta must be >= 0")
		}
	}
	for i, n := range c.Notifications {
		switch n.Type {
		case "ntfy":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for ntfy", i)
			}
			if n.Topic == "" {
				return fmt.Errorf("notifications[%d]: topic is required for ntfy", i)
			}
		case "webhook":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for webhook", i)
			}
		default:
			return fmt.Errorf("notifications[%d]: unknown type %q (expected ntfy or webhook)", i, n.Type)
		}
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Listen:       ":8000",
		DBPath:       "watchpost.db",
		LogLevel:     "info",
		LogFormat:    "text",
		OfflineAfter: Duration{20 * time.Second},
		Thresholds: ThresholdsConfig{
			Enabled:     true,
			CPU:         80,
			Memory:      80,
			Disk:        80,
			ResendDelta: 5,
		},
	}
}

// expandEnvVars replaces ${VAR_NAME} placeholders in raw YAML with the
// corresponding environment variable values. Unset variables are replaced
// with an empty string, which will then fail validation with a clear error.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		key := string(match[2 : len(match)-1]) // strip ${ and }
		return []byte(os.Getenv(key))
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WATCHPOST_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("WATCHPOST_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("WATCHPOST_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("WATCHPOST_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WATCHPOST_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("WATCHPOST_OFFLINE_AFTER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.OfflineAfter = Duration{d}
		}
	}
	if v := os.Getenv("WATCHPOST_THRESHOLDS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Thresholds.Enabled = b
		}
	}

	// Single ntfy target from env vars (only if no YAML notifications configured).
	if len(cfg.Notifications) == 0 {
		if ntfyURL := os.Getenv("WATCHPOST_NTFY_URL"); ntfyURL != "" {
			topic := os.Getenv("WATCHPOST_NTFY_TOPIC")
			if topic == "" {
				topic = "watchpost-alerts"
			}
			cfg.Notifications = append(cfg.Notifications, NotificationConfig{
				Type:  "ntfy",
				URL:   ntfyURL,
				Topic: topic,
			})
		}
	}
}
