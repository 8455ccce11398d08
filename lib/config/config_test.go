// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "muxfs.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Limits.MaxPoints != 8 || cfg.Limits.MaxReaders != 8 || cfg.Limits.MaxPathLength != 32 {
		t.Errorf("default limits = %+v, want 8/8/32", cfg.Limits)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("default log = %+v", cfg.Log)
	}
	if cfg.StatusSocket != "" {
		t.Errorf("status socket enabled by default: %s", cfg.StatusSocket)
	}
}

func TestLoadRequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when MUXFS_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "MUXFS_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadFromEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, `
mountpoint: /mnt/mux
allow_other: true
pipe_buffer_size: 131072
limits:
  max_points: 16
  max_readers: 4
status_socket: /run/muxfs/status.sock
log:
  level: debug
  format: json
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mountpoint != "/mnt/mux" || !cfg.AllowOther || cfg.PipeBufferSize != 131072 {
		t.Errorf("loaded %+v", cfg)
	}
	if cfg.Limits.MaxPoints != 16 || cfg.Limits.MaxReaders != 4 {
		t.Errorf("limits = %+v, want 16 points and 4 readers", cfg.Limits)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Limits.MaxPathLength != 32 {
		t.Errorf("max_path_length = %d, want default 32", cfg.Limits.MaxPathLength)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFileExpandsVariables(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("MUXFS_TEST_RUNTIME", "")

	path := writeConfig(t, `
mountpoint: ${HOME}/mux
status_socket: ${MUXFS_TEST_RUNTIME:-/run/user/1000}/muxfs.sock
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Mountpoint != "/home/tester/mux" {
		t.Errorf("mountpoint = %s", cfg.Mountpoint)
	}
	if cfg.StatusSocket != "/run/user/1000/muxfs.sock" {
		t.Errorf("status_socket = %s", cfg.StatusSocket)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile of missing file succeeded")
	}
	if _, err := LoadFile(writeConfig(t, "limits: [not, a, map]")); err == nil {
		t.Error("LoadFile of malformed YAML succeeded")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing mountpoint", func(c *Config) { c.Mountpoint = "" }, "mountpoint is required"},
		{"relative mountpoint", func(c *Config) { c.Mountpoint = "mnt" }, "mountpoint must be absolute"},
		{"zero readers", func(c *Config) { c.Limits.MaxReaders = 0 }, "max_readers"},
		{"negative pipe size", func(c *Config) { c.PipeBufferSize = -1 }, "pipe_buffer_size"},
		{"relative socket", func(c *Config) { c.StatusSocket = "status.sock" }, "status_socket must be absolute"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Mountpoint = "/mnt/mux"
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	for input, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := LogConfig{Level: input}.SlogLevel()
		if err != nil || got != want {
			t.Errorf("SlogLevel(%q) = (%v, %v), want %v", input, got, err, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("info enabled on a warn logger")
	}
	if _, err := (LogConfig{Level: "verbose"}).NewLogger(); err == nil {
		t.Error("NewLogger with bad level succeeded")
	}
}
