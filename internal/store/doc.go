// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

// Package store owns the embedded SQLite workout store.
//
// The store is a single logical unit made of the primary database file plus
// any auxiliary files SQLite keeps alongside it (-wal, -shm). Those files
// must always travel together: the Locator enumerates the full set so the
// backup subsystem never copies a partial store.
//
// The DB type wraps a modernc.org/sqlite connection in WAL mode and exposes
// the small surface the backup subsystem needs: the on-disk path, a WAL
// checkpoint for consistent copies, record counts for backup metadata, and
// Close.
package store
