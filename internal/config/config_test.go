package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Codes, cfg.Codes)
	assert.Equal(t, 30, cfg.SLA.Campaign["critical"])
	assert.Equal(t, 7, cfg.SLA.Scan["critical"])
	assert.Equal(t, []string{"CRITICAL", "HIGH", "MEDIUM"}, cfg.Scan.DefaultSeverities)
	assert.Equal(t, 10*time.Minute, cfg.Generation.StaleAfter)
}

func TestLoad_YAMLOverridesOnlyGivenFields(t *testing.T) {
	path := writeConfig(t, `
database: /tmp/plans.db
codes:
  prefix: REM
sla:
  scan:
    high: 10
generation:
  stale_after: 2m
retry:
  attempts: 3
  base_delay: 20ms
log:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/plans.db", cfg.Database)
	assert.Equal(t, "REM", cfg.Codes.Prefix)
	assert.Equal(t, 3, cfg.Codes.Width)
	assert.Equal(t, 10, cfg.SLA.Scan["high"])
	assert.Equal(t, 7, cfg.SLA.Scan["critical"])
	assert.Equal(t, 2*time.Minute, cfg.Generation.StaleAfter)
	assert.Equal(t, 3, cfg.RetryPolicy().Attempts)
	assert.Equal(t, 20*time.Millisecond, cfg.RetryPolicy().BaseDelay)
	assert.Equal(t, "json", cfg.Log.Format)

	sla, err := cfg.ClassifierSLA()
	require.NoError(t, err)
	assert.Equal(t, 10, sla.Scan[domain.SeverityHigh])
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeConfig(t, "database: /tmp/from-file.db\n")
	t.Setenv("REMEDIATE_DB", "/tmp/from-env.db")
	t.Setenv("REMEDIATE_CODE_PREFIX", "FIX")
	t.Setenv("REMEDIATE_HTTP_ADDR", ":9090")
	t.Setenv("REMEDIATE_INBOX_DIR", "/tmp/inbox")
	t.Setenv("REMEDIATE_INBOX_WORKERS", "4")
	t.Setenv("REMEDIATE_LOG_LEVEL", "debug")
	t.Setenv("REMEDIATE_STALE_AFTER", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env.db", cfg.Database)
	assert.Equal(t, "FIX", cfg.Codes.Prefix)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "/tmp/inbox", cfg.Inbox.Dir)
	assert.Equal(t, 4, cfg.Inbox.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.Generation.StaleAfter)
}

func TestLoad_ConfigPathFromEnvironment(t *testing.T) {
	path := writeConfig(t, "http:\n  addr: \":7000\"\n")
	t.Setenv("REMEDIATE_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTP.Addr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "codes: [unclosed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"empty prefix", func(c *Config) { c.Codes.Prefix = "" }},
		{"zero width", func(c *Config) { c.Codes.Width = 0 }},
		{"campaign sla with scan severity", func(c *Config) { c.SLA.Campaign["high"] = 10 }},
		{"non-positive window", func(c *Config) { c.SLA.Scan["low"] = 0 }},
		{"unknown scan filter", func(c *Config) { c.Scan.DefaultSeverities = []string{"SEVERE"} }},
		{"negative stale after", func(c *Config) { c.Generation.StaleAfter = -time.Second }},
		{"no retries", func(c *Config) { c.Retry.Attempts = 0 }},
		{"no workers", func(c *Config) { c.Inbox.Workers = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "plan_id", "p1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"plan_id":"p1"`)
}
