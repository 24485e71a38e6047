// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

// Package backup implements scheduled and manual backups of the workout
// store, export and import of standalone archives, retention pruning,
// and snapshot-then-replace restores.
//
// The package is organized around a small set of collaborators:
//
//   - Catalog lists, resolves, and deletes archives in the backup
//     directory. It is a pure view over the filesystem; archive files
//     themselves are the source of truth, so the catalog never caches.
//   - Policy decides when an automatic backup is due and which archives
//     have aged out of their retention window.
//   - Coordinator performs restores: it validates the archive in full,
//     snapshots the current store set aside, and only then replaces it.
//   - Service is the façade the API and scheduler talk to. It owns the
//     single-flight export and import flags and the persisted schedule
//     state.
//
// Backups and restores are whole-file operations on the store set (the
// primary database plus its write-ahead log and shared-memory
// siblings). The store must be checkpointed before export so the
// primary file is self-contained.
package backup
