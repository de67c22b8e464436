package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/cyberlab/internal/classify"
	"github.com/ppiankov/cyberlab/internal/model"
)

// ServerConfig sets the listen addresses of the transports.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCPort int    `yaml:"grpc_port"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SessionConfig bounds per-user lab sessions.
type SessionConfig struct {
	LogCap        int           `yaml:"log_cap"`
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SubmitRate    float64       `yaml:"submit_rate"`
	SubmitBurst   int           `yaml:"submit_burst"`
}

// FixturesConfig holds the lab values that are configuration, not input.
type FixturesConfig struct {
	LabOrigin      string   `yaml:"lab_origin"`
	TrustedOrigin  string   `yaml:"trusted_origin"`
	FrameAncestors []string `yaml:"frame_ancestors"`
	JWTSecret      string   `yaml:"jwt_secret"`
	UploadMaxBytes int64    `yaml:"upload_max_bytes"`
	RedirectHost   string   `yaml:"redirect_host"`
}

// Config is the complete service configuration.
type Config struct {
	Server       ServerConfig             `yaml:"server"`
	Log          LogConfig                `yaml:"log"`
	Session      SessionConfig            `yaml:"session"`
	DefaultDelay time.Duration            `yaml:"default_delay"`
	Delays       map[string]time.Duration `yaml:"delays"`
	ScannerTick  time.Duration            `yaml:"scanner_tick"`
	Fixtures     FixturesConfig           `yaml:"fixtures"`
	CatalogPath  string                   `yaml:"catalog"`
	AuditLog     string                   `yaml:"audit_log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	env := classify.DefaultEnv()
	return &Config{
		Server: ServerConfig{
			HTTPAddr: "127.0.0.1:8380",
			GRPCPort: 8381,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Session: SessionConfig{
			LogCap:        10,
			IdleTTL:       30 * time.Minute,
			SweepInterval: time.Minute,
			SubmitRate:    2,
			SubmitBurst:   5,
		},
		DefaultDelay: 800 * time.Millisecond,
		Delays: map[string]time.Duration{
			string(model.SQLi):    1200 * time.Millisecond,
			string(model.Scanner): 3 * time.Second,
		},
		ScannerTick: 150 * time.Millisecond,
		Fixtures: FixturesConfig{
			LabOrigin:      env.LabOrigin,
			TrustedOrigin:  env.TrustedOrigin,
			FrameAncestors: env.FrameAncestors,
			JWTSecret:      env.JWTSecret,
			UploadMaxBytes: env.UploadMaxBytes,
			RedirectHost:   env.RedirectHost,
		},
	}
}

// DefaultPath returns ~/.cyberlab/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cyberlab", "config.yaml")
}

// Load reads configuration from a YAML file layered over Default.
// Empty path falls back to DefaultPath. Missing file returns defaults.
// Invalid YAML or values return an error.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads configuration and returns the SHA-256 of the raw
// file bytes. When no file exists the hash is of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}

	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
		data = b
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	cfg := Default()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, hash, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	for name := range c.Delays {
		if _, err := model.ParseCategory(name); err != nil {
			return fmt.Errorf("config delays: %w", err)
		}
	}
	for name, d := range c.Delays {
		if d < 0 {
			return fmt.Errorf("config delays: %s is negative", name)
		}
	}
	if c.DefaultDelay < 0 {
		return fmt.Errorf("config default_delay is negative")
	}
	if c.Session.LogCap < 0 {
		return fmt.Errorf("config session.log_cap is negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("config log.format %q: want console or json", c.Log.Format)
	}
	if strings.TrimSpace(c.Fixtures.JWTSecret) == "" {
		return fmt.Errorf("config fixtures.jwt_secret is empty")
	}
	return nil
}

// Env converts the fixture section into classifier input.
func (c *Config) Env() classify.Env {
	return classify.Env{
		LabOrigin:      c.Fixtures.LabOrigin,
		TrustedOrigin:  c.Fixtures.TrustedOrigin,
		FrameAncestors: append([]string(nil), c.Fixtures.FrameAncestors...),
		JWTSecret:      c.Fixtures.JWTSecret,
		UploadMaxBytes: c.Fixtures.UploadMaxBytes,
		RedirectHost:   c.Fixtures.RedirectHost,
	}
}

// DelayFor returns the simulated latency for a lab.
func (c *Config) DelayFor(cat model.Category) time.Duration {
	if d, ok := c.Delays[string(cat)]; ok {
		return d
	}
	return c.DefaultDelay
}

// SubmitLimit returns the per-session submit rate for x/time/rate.
func (c *Config) SubmitLimit() rate.Limit {
	return rate.Limit(c.Session.SubmitRate)
}
