package main

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/wippyai/bzfile/filehost"
)

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	cfg, err := loadConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.Host.Debug {
		t.Fatalf("expected debug enabled")
	}
	if cfg.Host.RawDump {
		t.Fatalf("expected raw dump disabled")
	}
	if cfg.Host.Root != "/srv/game" {
		t.Fatalf("unexpected root: %q", cfg.Host.Root)
	}
	if cfg.Host.WorkingDirectory != "/srv/game/bin/win64" {
		t.Fatalf("unexpected working directory: %q", cfg.Host.WorkingDirectory)
	}
	if cfg.Host.WorkshopAppID != 4000 {
		t.Fatalf("unexpected workshop app id: %d", cfg.Host.WorkshopAppID)
	}
	if cfg.Runtime.MemoryLimitPages != 256 {
		t.Fatalf("unexpected memory limit: %d", cfg.Runtime.MemoryLimitPages)
	}
	if cfg.LogLevel != zapcore.DebugLevel {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel)
	}

	rc := cfg.runtimeConfig()
	if rc.Host == nil || !rc.Host.Debug || rc.MemoryLimitPages != 256 {
		t.Fatalf("runtime config not linked: %+v", rc)
	}
}

func TestLoadConfigKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.toml")
	if err := os.WriteFile(path, []byte("raw_dump = true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.Host.RawDump {
		t.Fatalf("expected raw dump enabled")
	}
	if cfg.Host.Debug {
		t.Fatalf("expected debug default false")
	}
	if cfg.Host.WorkshopAppID != filehost.DefaultWorkshopAppID {
		t.Fatalf("unexpected workshop app id: %d", cfg.Host.WorkshopAppID)
	}
	if cfg.LogLevel != zapcore.WarnLevel {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"bad level", "log_level = \"loud\"\n"},
		{"unknown key", "verbose = true\n"},
		{"bad syntax", "debug = \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := loadConfig(path); err == nil {
				t.Fatalf("expected error for %q", tt.content)
			}
		})
	}

	if _, err := loadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Host.WorkshopAppID != filehost.DefaultWorkshopAppID {
		t.Fatalf("unexpected defaults: %+v", cfg.Host)
	}
}
