package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)

		assert.Equal(t, DefaultRetryAttempts, cfg.Retry.Attempts)
		assert.Equal(t, DefaultRetryDelayMs, cfg.Retry.DelayMs)
		assert.Equal(t, DefaultUsernameEnv, cfg.Portal.UsernameEnv)
		require.NotNil(t, cfg.Portal.Headless)
		assert.True(t, *cfg.Portal.Headless)
		assert.False(t, cfg.AutoConfirm)
	})

	t.Run("parses a full file", func(t *testing.T) {
		path := writeConfig(t, `
portal:
  base_url: https://portal.example.test
  headless: false
  timeout_ms: 45000
retry:
  attempts: 5
  delay_ms: 500
audit:
  path: /var/lib/caseflow/audit.db
queue:
  dsn: postgres://worker@db/caseflow
rewrite:
  enabled: true
  model: gpt-4o
auto_confirm: true
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "https://portal.example.test", cfg.Portal.BaseURL)
		require.NotNil(t, cfg.Portal.Headless)
		assert.False(t, *cfg.Portal.Headless)
		assert.Equal(t, float64(45000), cfg.Portal.TimeoutMs)
		assert.Equal(t, 5, cfg.Retry.Attempts)
		assert.Equal(t, 500, cfg.Retry.DelayMs)
		assert.Equal(t, "/var/lib/caseflow/audit.db", cfg.Audit.Path)
		assert.Equal(t, "postgres://worker@db/caseflow", cfg.Queue.DSN)
		assert.True(t, cfg.Rewrite.Enabled)
		assert.Equal(t, "gpt-4o", cfg.Rewrite.Model)
		assert.True(t, cfg.AutoConfirm)
	})

	t.Run("rejects malformed YAML", func(t *testing.T) {
		path := writeConfig(t, "portal: [not: a: mapping")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("rejects excessive retry budget", func(t *testing.T) {
		path := writeConfig(t, "retry:\n  attempts: 25\n")
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestCredentials(t *testing.T) {
	t.Run("reads from configured env vars", func(t *testing.T) {
		cfg := &Config{}
		cfg.Portal.UsernameEnv = "TEST_CF_USER"
		cfg.Portal.PasswordEnv = "TEST_CF_PASS"
		t.Setenv("TEST_CF_USER", "worker7")
		t.Setenv("TEST_CF_PASS", "hunter2")

		user, pass, err := cfg.Credentials()
		require.NoError(t, err)
		assert.Equal(t, "worker7", user)
		assert.Equal(t, "hunter2", pass)
	})

	t.Run("fails when unset", func(t *testing.T) {
		cfg := &Config{}
		cfg.Portal.UsernameEnv = "TEST_CF_MISSING_USER"
		cfg.Portal.PasswordEnv = "TEST_CF_MISSING_PASS"

		_, _, err := cfg.Credentials()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TEST_CF_MISSING_USER")
	})
}
