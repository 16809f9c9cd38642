// Package config loads the caseflow configuration file. The file is
// YAML, defaults to ~/.caseflow/config.yaml, and credentials are never
// stored in it - only the names of the environment variables that carry
// them.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults applied to fields the file leaves unset.
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelayMs  = 2000
	DefaultUsernameEnv   = "CASEFLOW_PORTAL_USER"
	DefaultPasswordEnv   = "CASEFLOW_PORTAL_PASSWORD"
)

// PortalConfig locates the portal and shapes the browser session.
type PortalConfig struct {
	// BaseURL is the root URL of the case-management portal.
	BaseURL string `yaml:"base_url"`

	// Headless runs the browser without a window. Defaults to true.
	Headless *bool `yaml:"headless"`

	// TimeoutMs is the per-action browser timeout in milliseconds.
	TimeoutMs float64 `yaml:"timeout_ms"`

	// UsernameEnv and PasswordEnv name the environment variables
	// holding the portal credentials.
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`
}

// RetryConfig bounds retries of transient portal failures.
type RetryConfig struct {
	Attempts int `yaml:"attempts"`
	DelayMs  int `yaml:"delay_ms"`
}

// AuditConfig locates the append-only audit database.
type AuditConfig struct {
	// Path of the SQLite file; empty uses ~/.caseflow/audit.db.
	Path string `yaml:"path"`
}

// QueueConfig connects the candidate queue and statistics source.
type QueueConfig struct {
	// DSN is the Postgres connection string. Empty disables the
	// database-backed queue.
	DSN string `yaml:"dsn"`
}

// RewriteConfig controls the update-text rewriter.
type RewriteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

// Config is the full caseflow configuration.
type Config struct {
	Portal  PortalConfig  `yaml:"portal"`
	Retry   RetryConfig   `yaml:"retry"`
	Audit   AuditConfig   `yaml:"audit"`
	Queue   QueueConfig   `yaml:"queue"`
	Rewrite RewriteConfig `yaml:"rewrite"`

	// AutoConfirm submits the portal's confirmation dialog without a
	// manual click when posting updates.
	AutoConfirm bool `yaml:"auto_confirm"`
}

// DefaultPath returns ~/.caseflow/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, ".caseflow", "config.yaml"), nil
}

// Load reads and validates the configuration at path. An empty path
// uses DefaultPath; a missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Retry.Attempts <= 0 {
		c.Retry.Attempts = DefaultRetryAttempts
	}
	if c.Retry.DelayMs <= 0 {
		c.Retry.DelayMs = DefaultRetryDelayMs
	}
	if c.Portal.UsernameEnv == "" {
		c.Portal.UsernameEnv = DefaultUsernameEnv
	}
	if c.Portal.PasswordEnv == "" {
		c.Portal.PasswordEnv = DefaultPasswordEnv
	}
	if c.Portal.Headless == nil {
		headless := true
		c.Portal.Headless = &headless
	}
}

func (c *Config) validate() error {
	if c.Retry.Attempts > 10 {
		return fmt.Errorf("config: retry attempts %d exceeds limit of 10", c.Retry.Attempts)
	}
	return nil
}

// Credentials reads the portal credentials from the configured
// environment variables.
func (c *Config) Credentials() (username, password string, err error) {
	username = os.Getenv(c.Portal.UsernameEnv)
	password = os.Getenv(c.Portal.PasswordEnv)
	if username == "" || password == "" {
		return "", "", fmt.Errorf("config: portal credentials missing (set %s and %s)",
			c.Portal.UsernameEnv, c.Portal.PasswordEnv)
	}
	return username, password, nil
}
