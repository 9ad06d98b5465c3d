package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/bzfile/filehost"
	"github.com/wippyai/bzfile/runtime"
)

type fileConfig struct {
	Debug            bool   `toml:"debug"`
	RawDump          bool   `toml:"raw_dump"`
	Root             string `toml:"root"`
	WorkingDirectory string `toml:"working_directory"`
	WorkshopAppID    uint32 `toml:"workshop_app_id"`
	MemoryLimitPages uint32 `toml:"memory_limit_pages"`
	LogLevel         string `toml:"log_level"`
}

type cliConfig struct {
	Runtime  runtime.Config
	Host     filehost.Config
	LogLevel zapcore.Level
}

func defaultConfig() cliConfig {
	return cliConfig{
		Host:     *filehost.DefaultConfig(),
		LogLevel: zapcore.WarnLevel,
	}
}

func loadConfig(path string) (cliConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load bzfile config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cliConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	if meta.IsDefined("debug") {
		cfg.Host.Debug = raw.Debug
	}
	if meta.IsDefined("raw_dump") {
		cfg.Host.RawDump = raw.RawDump
	}
	if meta.IsDefined("root") {
		cfg.Host.Root = strings.TrimSpace(raw.Root)
	}
	if meta.IsDefined("working_directory") {
		cfg.Host.WorkingDirectory = strings.TrimSpace(raw.WorkingDirectory)
	}
	if meta.IsDefined("workshop_app_id") {
		cfg.Host.WorkshopAppID = raw.WorkshopAppID
	}
	if meta.IsDefined("memory_limit_pages") {
		cfg.Runtime.MemoryLimitPages = raw.MemoryLimitPages
	}
	if meta.IsDefined("log_level") {
		lvl, err := zapcore.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return cliConfig{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = lvl
	}

	return cfg, nil
}

// runtimeConfig links the host settings into the runtime settings.
func (c cliConfig) runtimeConfig() *runtime.Config {
	rc := c.Runtime
	host := c.Host
	rc.Host = &host
	return &rc
}
