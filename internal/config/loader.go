package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"lgprobe/internal/payload"
)

// Config holds runtime parameters for the service and the CLI.
// Zero values mean "unspecified" and are replaced by Defaults.
// Durations are strings in time.ParseDuration form ("10s", "250ms").
type Config struct {
	Addr         string            `json:"addr" yaml:"addr" toml:"addr"`
	CatalogURL   string            `json:"catalog_url" yaml:"catalog_url" toml:"catalog_url"`
	CatalogFile  string            `json:"catalog_file" yaml:"catalog_file" toml:"catalog_file"`
	GracePeriod  string            `json:"grace_period" yaml:"grace_period" toml:"grace_period"`
	ReapInterval string            `json:"reap_interval" yaml:"reap_interval" toml:"reap_interval"`
	ChunkSize    int               `json:"chunk_size" yaml:"chunk_size" toml:"chunk_size"`
	UserAgent    string            `json:"user_agent" yaml:"user_agent" toml:"user_agent"`
	DialTimeout  string            `json:"dial_timeout" yaml:"dial_timeout" toml:"dial_timeout"`
	CORSEnabled  bool              `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins  []string          `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	LogLevel     string            `json:"log_level" yaml:"log_level" toml:"log_level"`
	Payloads     []payload.Payload `json:"payloads" yaml:"payloads" toml:"payloads"`
}

// Default values applied by Defaults.
const (
	DefaultAddr         = ":8080"
	DefaultGracePeriod  = "10s"
	DefaultReapInterval = "1s"
	DefaultChunkSize    = 32 * 1024
	DefaultUserAgent    = "lgprobe/1.0"
	DefaultDialTimeout  = "10s"
	DefaultLogLevel     = "info"
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Defaults returns a copy of c with every unspecified field filled in.
func (c Config) Defaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.GracePeriod == "" {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.ReapInterval == "" {
		c.ReapInterval = DefaultReapInterval
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.DialTimeout == "" {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.CORSEnabled && len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	return c
}

// Durations parses the duration fields.
type Durations struct {
	GracePeriod  time.Duration
	ReapInterval time.Duration
	DialTimeout  time.Duration
}

// ParseDurations validates and parses the duration fields of c. Empty fields
// parse as zero.
func (c Config) ParseDurations() (Durations, error) {
	var d Durations
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"grace_period", c.GracePeriod, &d.GracePeriod},
		{"reap_interval", c.ReapInterval, &d.ReapInterval},
		{"dial_timeout", c.DialTimeout, &d.DialTimeout},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := time.ParseDuration(f.raw)
		if err != nil {
			return d, fmt.Errorf("%s: %w", f.name, err)
		}
		if v < 0 {
			return d, fmt.Errorf("%s: must not be negative", f.name)
		}
		*f.dst = v
	}
	return d, nil
}

// ApplyEnv overlays LGPROBE_ADDR and LGPROBE_LOG_LEVEL when set.
func (c Config) ApplyEnv(getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("LGPROBE_ADDR"); v != "" {
		c.Addr = v
	}
	if v := getenv("LGPROBE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return c
}
