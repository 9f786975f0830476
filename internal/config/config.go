package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string `yaml:"env"`       // "dev" | "prod"
	DBPath   string `yaml:"db_path"`   // e.g. "./data/qrscan.db"
	LogLevel string `yaml:"log_level"` // debug | info | warn | error

	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"` // empty disables the health server

	// Scanning
	DefaultFacing   string `yaml:"default_facing"` // "environment" | "user"
	FrameIntervalMS int    `yaml:"frame_interval_ms"`

	// History retention
	HistoryRetentionDays int `yaml:"history_retention_days"` // 0 = keep forever
	PruneIntervalHours   int `yaml:"prune_interval_hours"`   // how often the pruner runs (default 6)

	GeneratorSize int `yaml:"generator_size"`
}

func Default() *Config {
	return &Config{
		Env:      "dev",
		DBPath:   "./data/qrscan.db",
		LogLevel: "info",

		HTTPAddr: "127.0.0.1:8080",
		GRPCAddr: "127.0.0.1:9090",

		DefaultFacing:   "environment",
		FrameIntervalMS: 300,

		HistoryRetentionDays: 0,
		PruneIntervalHours:   6,

		GeneratorSize: 256,
	}
}

// Load starts from Default, applies the YAML file at path if there is one,
// then environment overrides.  An empty path or a missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.Env = strings.ToLower(getenvDefault("QRSCAN_ENV", c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.Env = "dev"
	}

	c.DBPath = getenvDefault("QRSCAN_DB_PATH", c.DBPath)
	c.LogLevel = strings.ToLower(getenvDefault("QRSCAN_LOG_LEVEL", c.LogLevel))
	c.HTTPAddr = getenvDefault("QRSCAN_HTTP_ADDR", c.HTTPAddr)

	// Set-but-empty disables gRPC.
	if v, ok := os.LookupEnv("QRSCAN_GRPC_ADDR"); ok {
		c.GRPCAddr = strings.TrimSpace(v)
	}

	c.DefaultFacing = strings.ToLower(getenvDefault("QRSCAN_DEFAULT_FACING", c.DefaultFacing))
	c.FrameIntervalMS = getenvInt("QRSCAN_FRAME_INTERVAL_MS", c.FrameIntervalMS)
	c.HistoryRetentionDays = getenvInt("QRSCAN_HISTORY_RETENTION_DAYS", c.HistoryRetentionDays)
	c.PruneIntervalHours = getenvInt("QRSCAN_PRUNE_INTERVAL_HOURS", c.PruneIntervalHours)
	c.GeneratorSize = getenvInt("QRSCAN_GENERATOR_SIZE", c.GeneratorSize)
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate rejects values the services would refuse later anyway.
func (c *Config) Validate() error {
	var errs []error

	if c.DefaultFacing != "environment" && c.DefaultFacing != "user" {
		errs = append(errs, fmt.Errorf("default_facing %q: want environment or user", c.DefaultFacing))
	}
	if c.GeneratorSize < 128 || c.GeneratorSize > 512 {
		errs = append(errs, fmt.Errorf("generator_size %d: want 128..512", c.GeneratorSize))
	}
	if c.FrameIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("frame_interval_ms %d: must be positive", c.FrameIntervalMS))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}

	validLevel := false
	for _, l := range validLogLevels {
		if c.LogLevel == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		errs = append(errs, fmt.Errorf("log_level %q (valid: %v)", c.LogLevel, validLogLevels))
	}

	return errors.Join(errs...)
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
