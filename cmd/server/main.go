// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

// Package main is the entry point for the LiftLog backup server.
//
// LiftLog stores workouts in an embedded SQLite database. This server
// owns the database's backup lifecycle: scheduled and manual backups
// into a flat archive directory, retention pruning, export and import
// of portable archives, and snapshot-then-replace restores.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and config file (Koanf v2)
//  2. Workout store: SQLite in WAL mode
//  3. Backup service: catalog, retention policy, restore coordinator
//  4. Supervision tree: backup scheduler and HTTP control API
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (STORE_*, BACKUP_*, SERVER_*, LOG_*)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// server drains in-flight requests and the scheduler finishes its
// current tick. A restore leaves the process running but the store
// must not be reopened until restart; the restore response says so
// explicitly.
//
// # Example Usage
//
//	export STORE_PATH=/data/liftlog.db
//	export BACKUP_DIR=/data/backups
//	export BACKUP_FREQUENCY=daily
//	./liftlog-server
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/liftlogapp/liftlog/internal/api"
	"github.com/liftlogapp/liftlog/internal/backup"
	"github.com/liftlogapp/liftlog/internal/config"
	"github.com/liftlogapp/liftlog/internal/logging"
	"github.com/liftlogapp/liftlog/internal/store"
	"github.com/liftlogapp/liftlog/internal/supervisor"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("store_path", cfg.Store.Path).
		Str("backup_dir", cfg.Backup.Dir).
		Str("frequency", cfg.Backup.Frequency).
		Bool("backup_enabled", cfg.Backup.Enabled).
		Msg("Starting LiftLog backup server")

	frequency, err := backup.ParseFrequency(cfg.Backup.Frequency)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid backup frequency")
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open workout store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing workout store")
		}
	}()
	logging.Info().Msg("Workout store opened")

	locator := store.NewLocator(cfg.Store.Path)
	service := backup.NewService(backup.Config{
		Dir:                cfg.Backup.Dir,
		Frequency:          frequency,
		VerifyAfterRestore: cfg.Backup.VerifyAfterRestore,
		ProducerVersion:    version,
	}, locator, db)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	if cfg.Backup.Enabled {
		tree.AddMaintenanceService(backup.NewScheduler(service, cfg.Backup.TickInterval))
	} else {
		logging.Info().Msg("Automatic backups disabled")
	}

	handler := api.NewHandler(service, db, version)
	router := api.NewRouter(handler, cfg.Server)
	tree.AddAPIService(api.NewServer(cfg.Server, router.Setup()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}
