// Package config loads the activityboard configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nomis52/activityboard/logging"
)

const (
	defaultListenAddr = ":8080"

	// Default monitoring settings
	defaultMetricsPrefix    = "activityboard"
	defaultJobName          = "activityboard"
	defaultCapacitySchedule = "*/5 * * * *"

	defaultMessageTTL = 5 * time.Second

	minSessionSecretLen = 16
	redacted            = "REDACTED"
)

// Config represents the complete application configuration
type Config struct {
	Listener   ListenerConfig   `yaml:"listener"`
	API        APIConfig        `yaml:"api"`
	Logging    logging.Config   `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Security   SecurityConfig   `yaml:"security"`
	UI         UIConfig         `yaml:"ui"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	// The listen address, defaults to :8080
	Addr string `yaml:"addr"`
	// TLSCert and TLSKey enable HTTPS when both are set. The files are
	// re-read when they change on disk.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
}

// TLSEnabled reports whether a certificate pair is configured.
func (l ListenerConfig) TLSEnabled() bool {
	return l.TLSCert != "" && l.TLSKey != ""
}

// APIConfig points at the activities backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout bounds each backend call. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// MonitoringConfig holds metrics and monitoring settings
type MonitoringConfig struct {
	// VictoriaMetricsURL switches metrics to remote write push. When empty,
	// metrics are served on /metrics instead.
	VictoriaMetricsURL string `yaml:"victoriametrics_url"`
	MetricsPrefix      string `yaml:"metrics_prefix"`
	JobName            string `yaml:"jobname"`
	Instance           string `yaml:"instance"`
	// CapacitySchedule is the 5 field cron spec of the capacity report.
	CapacitySchedule string `yaml:"capacity_schedule"`
	// HistoryDir keeps capacity reports on disk. Empty keeps them in memory.
	HistoryDir  string `yaml:"history_dir"`
	HistorySize int    `yaml:"history_size"`
}

// SecurityConfig holds the session and CSRF settings.
type SecurityConfig struct {
	// SessionSecret is the root secret the cookie and CSRF keys are derived from.
	SessionSecret string `yaml:"session_secret"`
	// SecureCookies marks cookies Secure. Always on when TLS is enabled.
	SecureCookies bool `yaml:"secure_cookies"`
	// TrustedOrigins are extra hosts allowed to submit forms, e.g. behind a proxy.
	TrustedOrigins []string `yaml:"trusted_origins"`
}

// UIConfig holds page settings.
type UIConfig struct {
	// MessageTTL is how long status messages stay visible.
	MessageTTL time.Duration `yaml:"message_ttl"`
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API base_url must include scheme and host")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("API timeout must not be negative")
	}
	if (c.Listener.TLSCert == "") != (c.Listener.TLSKey == "") {
		return fmt.Errorf("listener tls_cert and tls_key must be set together")
	}
	if len(c.Security.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("security session_secret must be at least %d characters", minSessionSecretLen)
	}
	if c.Monitoring.VictoriaMetricsURL != "" {
		if _, err := url.ParseRequestURI(c.Monitoring.VictoriaMetricsURL); err != nil {
			return fmt.Errorf("invalid VictoriaMetrics URL: %w", err)
		}
	}
	if c.Monitoring.HistorySize < 0 {
		return fmt.Errorf("monitoring history_size must not be negative")
	}
	if c.UI.MessageTTL <= 0 {
		return fmt.Errorf("ui message_ttl must be positive")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultListenAddr
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Monitoring.Instance == "" {
		if host, err := os.Hostname(); err == nil {
			c.Monitoring.Instance = host
		}
	}
	if c.Monitoring.CapacitySchedule == "" {
		c.Monitoring.CapacitySchedule = defaultCapacitySchedule
	}
	if c.UI.MessageTTL == 0 {
		c.UI.MessageTTL = defaultMessageTTL
	}
	if c.Listener.TLSEnabled() {
		c.Security.SecureCookies = true
	}
	// Logging defaults are applied by logging.New.
}

// Redacted returns a copy of the config that is safe to expose.
func (c Config) Redacted() Config {
	if c.Security.SessionSecret != "" {
		c.Security.SessionSecret = redacted
	}
	c.Security.TrustedOrigins = append([]string(nil), c.Security.TrustedOrigins...)
	c.API.BaseURL = redactURL(c.API.BaseURL)
	c.Monitoring.VictoriaMetricsURL = redactURL(c.Monitoring.VictoriaMetricsURL)
	return c
}

// redactURL hides the password of a URL with user info.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

// LoadConfig reads the YAML config file at the given path and returns a Config struct
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode YAML config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
