// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/stagecraft/internal/pipeline"
	"github.com/marcelocantos/stagecraft/internal/printer"
	"github.com/marcelocantos/stagecraft/internal/stage"
	"github.com/marcelocantos/stagecraft/internal/stage/script"
)

// Config holds the global stagecraft configuration.
type Config struct {
	Shell   ShellConfig   `yaml:"shell"`
	Printer PrinterConfig `yaml:"printer"`
	Plugins PluginsConfig `yaml:"plugins"`
	Audit   AuditConfig   `yaml:"audit"`
	Log     LogConfig     `yaml:"log"`
}

// ShellConfig controls how pipelines are executed.
type ShellConfig struct {
	Path     string `yaml:"path"`
	Preamble string `yaml:"preamble"`
	// Timeout bounds each run; empty means none.
	Timeout string `yaml:"timeout"`
}

// TimeoutDuration returns the configured timeout, or 0 for none. LoadFrom
// rejects values that do not parse.
func (s *ShellConfig) TimeoutDuration() time.Duration {
	d, err := s.validTimeout()
	if err != nil {
		return 0
	}
	return d
}

func (s *ShellConfig) validTimeout() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("shell timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("shell timeout: %q is not positive", s.Timeout)
	}
	return d, nil
}

// PrinterConfig controls text rendering of edited pipelines.
type PrinterConfig struct {
	QuoteDot bool `yaml:"quote_dot"`
}

// PluginsConfig locates Starlark stage plugins.
type PluginsConfig struct {
	Dir string `yaml:"dir"`
}

// AuditConfig controls audit log settings.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// LogConfig sets the minimum log level (debug, info, warn, error).
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Shell: ShellConfig{
			Path: pipeline.DefaultShell,
		},
		Printer: PrinterConfig{
			QuoteDot: printer.DefaultOptions().QuoteDot,
		},
		Plugins: PluginsConfig{
			Dir: filepath.Join(home, ".config", "stagecraft", "plugins"),
		},
		Audit: AuditConfig{
			Path: filepath.Join(home, ".local", "share", "stagecraft", "audit.jsonl"),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config from the standard location
// (~/.config/stagecraft/config.yaml). If the file doesn't exist, returns the
// default config.
func Load() (*Config, error) {
	if _, err := os.UserHomeDir(); err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if _, err := cfg.Level(); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if _, err := cfg.Shell.validTimeout(); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Shell.Path = expandHome(cfg.Shell.Path)
	cfg.Plugins.Dir = expandHome(cfg.Plugins.Dir)
	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	return cfg, nil
}

// expandHome replaces a leading "~" with the home directory.
func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[1:])
	}
	return p
}

// Level returns the configured log level.
func (c *Config) Level() (zapcore.Level, error) {
	if c.Log.Level == "" {
		return zapcore.InfoLevel, nil
	}
	l, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// PrinterOptions returns the serializer options.
func (c *Config) PrinterOptions() printer.Options {
	return printer.Options{QuoteDot: c.Printer.QuoteDot}
}

// ProcessShell returns the process shell described by the config.
func (c *Config) ProcessShell() *pipeline.ProcessShell {
	return &pipeline.ProcessShell{Path: c.Shell.Path, Preamble: c.Shell.Preamble}
}

// Executor returns an executor running through ProcessShell.
func (c *Config) Executor(logger *zap.Logger) *pipeline.Executor {
	return &pipeline.Executor{
		Shell:   c.ProcessShell(),
		Printer: printer.New(c.PrinterOptions(), logger),
		Logger:  logger,
		Timeout: c.Shell.TimeoutDuration(),
	}
}

// ApplyPlugins loads the Starlark plugins in Plugins.Dir and registers
// them on reg, overriding built-ins of the same name. Plugins that fail to
// load are logged and skipped. It returns the number registered.
func (c *Config) ApplyPlugins(reg *stage.Registry, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.Plugins.Dir == "" {
		return 0
	}
	plugins, err := script.Load(c.Plugins.Dir, logger)
	if err != nil {
		logger.Warn("some plugins failed to load", zap.String("dir", c.Plugins.Dir), zap.Error(err))
	}
	script.Register(reg, plugins)
	for _, p := range plugins {
		logger.Debug("plugin loaded", zap.String("command", p.CommandName()), zap.String("file", p.File()))
	}
	return len(plugins)
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "stagecraft", "config.yaml")
}
