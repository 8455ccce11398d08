// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/muxfs/lib/mux"
)

// EnvironmentVariable names the config file for Load.
const EnvironmentVariable = "MUXFS_CONFIG"

// Config is the complete muxfs configuration.
type Config struct {
	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string `yaml:"mountpoint"`

	// AllowOther lets users other than the mounting user open mux
	// points. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool `yaml:"allow_other"`

	// PipeBufferSize is the capacity in bytes requested for each
	// reader's pipe. Zero keeps the kernel default (64 KiB).
	PipeBufferSize int `yaml:"pipe_buffer_size"`

	// Limits are the registry capacities.
	Limits LimitsConfig `yaml:"limits"`

	// StatusSocket is the Unix socket path for the status service.
	// Empty disables it.
	StatusSocket string `yaml:"status_socket"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

// LimitsConfig holds the static registry capacities.
type LimitsConfig struct {
	MaxPoints     int `yaml:"max_points"`
	MaxReaders    int `yaml:"max_readers"`
	MaxPathLength int `yaml:"max_path_length"`
}

// Mux converts the capacities to mux.Limits.
func (l LimitsConfig) Mux() mux.Limits {
	return mux.Limits{
		MaxPoints:     l.MaxPoints,
		MaxReaders:    l.MaxReaders,
		MaxPathLength: l.MaxPathLength,
	}
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	limits := mux.DefaultLimits()
	return &Config{
		Mountpoint: "",
		Limits: LimitsConfig{
			MaxPoints:     limits.MaxPoints,
			MaxReaders:    limits.MaxReaders,
			MaxPathLength: limits.MaxPathLength,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads the file named by MUXFS_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your muxfs.yaml, or use --config", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path on top of Default and
// expands variables in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Mountpoint = expandVars(c.Mountpoint, vars)
	c.StatusSocket = expandVars(c.StatusSocket, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Mountpoint == "" {
		errs = append(errs, fmt.Errorf("mountpoint is required"))
	} else if !filepath.IsAbs(c.Mountpoint) {
		errs = append(errs, fmt.Errorf("mountpoint must be absolute: %s", c.Mountpoint))
	}

	if err := c.Limits.Mux().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("limits: %w", err))
	}

	if c.PipeBufferSize < 0 {
		errs = append(errs, fmt.Errorf("pipe_buffer_size must not be negative, got %d", c.PipeBufferSize))
	}

	if c.StatusSocket != "" && !filepath.IsAbs(c.StatusSocket) {
		errs = append(errs, fmt.Errorf("status_socket must be absolute: %s", c.StatusSocket))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn, or error, got %q", l.Level)
	}
}

// NewLogger builds the process logger writing to stderr.
func (l LogConfig) NewLogger() (*slog.Logger, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, options)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, options)), nil
}
