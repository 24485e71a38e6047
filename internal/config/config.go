// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

// Package config loads and validates LiftLog configuration.
//
// Configuration is layered with Koanf v2: struct defaults, then an optional
// YAML config file, then environment variables. Precedence: ENV > file >
// defaults.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config is the root configuration for the LiftLog service.
type Config struct {
	Store   StoreConfig   `koanf:"store"`
	Backup  BackupConfig  `koanf:"backup"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
}

// StoreConfig locates the embedded workout store.
type StoreConfig struct {
	// Path is the primary store file. Auxiliary -wal/-shm files live
	// alongside it.
	Path string `koanf:"path"`
}

// BackupConfig controls the backup/export-import subsystem.
type BackupConfig struct {
	// Enabled turns the subsystem on.
	Enabled bool `koanf:"enabled"`

	// Dir is the flat directory holding backup archives.
	Dir string `koanf:"dir"`

	// Frequency of automatic backups: daily, weekly, monthly or manual.
	// Manual disables automatic backups entirely.
	Frequency string `koanf:"frequency"`

	// TickInterval is how often the scheduler re-evaluates whether an
	// automatic backup is due. Due-ness itself is decided by the retention
	// policy, so ticks are cheap.
	TickInterval time.Duration `koanf:"tick_interval"`

	// VerifyAfterRestore opens the restored store read-only and runs an
	// integrity check before reporting success.
	VerifyAfterRestore bool `koanf:"verify_after_restore"`
}

// ServerConfig configures the HTTP control API.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitReqs requests per RateLimitWindow per client IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// validFrequencies are the accepted backup.frequency values.
var validFrequencies = map[string]bool{
	"daily":   true,
	"weekly":  true,
	"monthly": true,
	"manual":  true,
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}

	if err := c.Backup.validate(); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got: %s", c.Server.Timeout)
	}

	return nil
}

func (b *BackupConfig) validate() error {
	if !b.Enabled {
		return nil // No validation needed if backups are disabled
	}

	if b.Dir == "" {
		return fmt.Errorf("backup.dir is required when backups are enabled")
	}
	if !filepath.IsAbs(b.Dir) {
		return fmt.Errorf("backup.dir must be an absolute path, got: %s", b.Dir)
	}
	if !validFrequencies[b.Frequency] {
		return fmt.Errorf("backup.frequency must be one of: daily, weekly, monthly, manual")
	}
	if b.TickInterval < time.Minute {
		return fmt.Errorf("backup.tick_interval must be at least 1 minute, got: %s", b.TickInterval)
	}

	return nil
}
