// Package config loads remediate settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alexanderramin/remediate/internal/classify"
	"github.com/alexanderramin/remediate/internal/codes"
	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/normalize"
)

type CodesConfig struct {
	Prefix string `yaml:"prefix"`
	Width  int    `yaml:"width"`
}

// SLAConfig maps severity names to remediation windows in days.
type SLAConfig struct {
	Campaign map[string]int `yaml:"campaign"`
	Scan     map[string]int `yaml:"scan"`
}

type ScanConfig struct {
	DefaultSeverities []string `yaml:"default_severities"`
	ReferenceBaseURL  string   `yaml:"reference_base_url"`
}

type GenerationConfig struct {
	StaleAfter time.Duration `yaml:"stale_after"`
}

type RetryConfig struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type InboxConfig struct {
	Dir      string        `yaml:"dir"`
	Workers  int           `yaml:"workers"`
	Debounce time.Duration `yaml:"debounce"`
	// PollInterval switches the watcher to polling when positive, for
	// filesystems without change notifications.
	PollInterval time.Duration `yaml:"poll_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Database   string           `yaml:"database"`
	Codes      CodesConfig      `yaml:"codes"`
	SLA        SLAConfig        `yaml:"sla"`
	Scan       ScanConfig       `yaml:"scan"`
	Generation GenerationConfig `yaml:"generation"`
	Retry      RetryConfig      `yaml:"retry"`
	HTTP       HTTPConfig       `yaml:"http"`
	Inbox      InboxConfig      `yaml:"inbox"`
	Log        LogConfig        `yaml:"log"`
}

// Dir returns ~/.remediate, or the working directory when the home
// directory cannot be determined.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".remediate")
}

func DefaultConfig() *Config {
	sla := classify.DefaultSLA()
	scan := normalize.DefaultOptions()
	retry := db.DefaultRetryPolicy()
	dir := Dir()
	return &Config{
		Database: filepath.Join(dir, "remediate.db"),
		Codes:    CodesConfig{Prefix: codes.DefaultPrefix, Width: codes.DefaultWidth},
		SLA: SLAConfig{
			Campaign: severityTable(sla.Campaign),
			Scan:     severityTable(sla.Scan),
		},
		Scan: ScanConfig{
			DefaultSeverities: scan.DefaultScanSeverities,
			ReferenceBaseURL:  scan.ReferenceBaseURL,
		},
		Generation: GenerationConfig{StaleAfter: 10 * time.Minute},
		Retry:      RetryConfig{Attempts: retry.Attempts, BaseDelay: retry.BaseDelay, MaxDelay: retry.MaxDelay},
		HTTP:       HTTPConfig{Addr: "127.0.0.1:8080"},
		Inbox: InboxConfig{
			Dir:      filepath.Join(dir, "inbox"),
			Workers:  2,
			Debounce: 250 * time.Millisecond,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func severityTable(in map[domain.Severity]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}

// Load reads the YAML file at path on top of the defaults, then applies
// REMEDIATE_* environment overrides. An empty path falls back to
// $REMEDIATE_CONFIG and then ~/.remediate/config.yaml. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("REMEDIATE_CONFIG")
	}
	if path == "" {
		path = filepath.Join(Dir(), "config.yaml")
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REMEDIATE_DB"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("REMEDIATE_CODE_PREFIX"); v != "" {
		cfg.Codes.Prefix = v
	}
	if v := os.Getenv("REMEDIATE_CODE_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Codes.Width = n
		}
	}
	if v := os.Getenv("REMEDIATE_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("REMEDIATE_INBOX_DIR"); v != "" {
		cfg.Inbox.Dir = v
	}
	if v := os.Getenv("REMEDIATE_INBOX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Inbox.Workers = n
		}
	}
	if v := os.Getenv("REMEDIATE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("REMEDIATE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("REMEDIATE_STALE_AFTER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Generation.StaleAfter = d
		}
	}
}

// Validate rejects settings the rest of the program cannot run with.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("config: database path is required")
	}
	if c.Codes.Prefix == "" || strings.ContainsAny(c.Codes.Prefix, " /") {
		return fmt.Errorf("config: invalid code prefix %q", c.Codes.Prefix)
	}
	if c.Codes.Width < 1 {
		return fmt.Errorf("config: code width must be at least 1")
	}
	if _, err := c.ClassifierSLA(); err != nil {
		return err
	}
	for _, s := range c.Scan.DefaultSeverities {
		if _, ok := domain.CanonicalScanSeverity(s); !ok {
			return fmt.Errorf("config: unknown scan severity %q", s)
		}
	}
	if c.Generation.StaleAfter < 0 {
		return fmt.Errorf("config: generation.stale_after must not be negative")
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("config: retry.attempts must be at least 1")
	}
	if c.Inbox.Workers < 1 {
		return fmt.Errorf("config: inbox.workers must be at least 1")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ClassifierSLA converts the SLA tables, checking severity names against
// the vocabulary of each origin kind.
func (c *Config) ClassifierSLA() (classify.SLA, error) {
	sla := classify.SLA{Campaign: map[domain.Severity]int{}, Scan: map[domain.Severity]int{}}
	convert := func(kind domain.OriginKind, in map[string]int, out map[domain.Severity]int) error {
		for name, days := range in {
			sev, ok := domain.ParseSeverity(kind, name)
			if !ok {
				return fmt.Errorf("config: sla.%s: unknown severity %q", kind, name)
			}
			out[sev] = days
		}
		return nil
	}
	if err := convert(domain.OriginCampaign, c.SLA.Campaign, sla.Campaign); err != nil {
		return classify.SLA{}, err
	}
	if err := convert(domain.OriginScan, c.SLA.Scan, sla.Scan); err != nil {
		return classify.SLA{}, err
	}
	if err := sla.Validate(); err != nil {
		return classify.SLA{}, fmt.Errorf("config: %w", err)
	}
	return sla, nil
}

func (c *Config) NormalizeOptions() normalize.Options {
	return normalize.Options{
		DefaultScanSeverities: append([]string(nil), c.Scan.DefaultSeverities...),
		ReferenceBaseURL:      c.Scan.ReferenceBaseURL,
	}
}

func (c *Config) RetryPolicy() db.RetryPolicy {
	return db.RetryPolicy{Attempts: c.Retry.Attempts, BaseDelay: c.Retry.BaseDelay, MaxDelay: c.Retry.MaxDelay}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", s)
	}
	return level, nil
}

// NewLogger builds the process logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
