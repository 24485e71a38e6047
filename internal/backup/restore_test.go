// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package backup

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/liftlogapp/liftlog/internal/archive"
	"github.com/liftlogapp/liftlog/internal/store"
)

// buildStoreArchive packs the given files into a valid archive blob.
func buildStoreArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	meta := archive.Metadata{
		FormatVersion:   archive.FormatVersion,
		CreatedAt:       time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		ProducerVersion: "test",
	}
	entries := make([]archive.Entry, 0, len(files))
	for _, name := range []string{"liftlog.db", "liftlog.db-wal", "liftlog.db-shm"} {
		if contents, ok := files[name]; ok {
			entries = append(entries, archive.Entry{Name: name, Data: []byte(contents)})
		}
	}

	var buf bytes.Buffer
	if err := archive.Write(&buf, meta, entries); err != nil {
		t.Fatalf("buildStoreArchive: %v", err)
	}
	return buf.Bytes()
}

func TestRestoreSnapshotsBeforeReplacing(t *testing.T) {
	env := newTestEnv(t)
	data := buildStoreArchive(t, map[string]string{
		"liftlog.db":     "restored primary",
		"liftlog.db-wal": "restored wal",
	})

	outcome, err := env.service.coordinator.Restore(context.Background(), data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !outcome.RequiresRestart {
		t.Error("RequiresRestart = false")
	}

	wantPrefix := filepath.Join(env.backupDir, snapshotDirName) + string(filepath.Separator)
	if len(outcome.SnapshotDir) <= len(wantPrefix) || outcome.SnapshotDir[:len(wantPrefix)] != wantPrefix {
		t.Errorf("SnapshotDir = %q, want a fresh directory under %q", outcome.SnapshotDir, wantPrefix)
	}

	// Snapshot holds the full pre-restore set.
	for name, want := range map[string]string{
		"liftlog.db":     "primary contents",
		"liftlog.db-wal": "wal contents",
		"liftlog.db-shm": "shm contents",
	} {
		got, err := os.ReadFile(filepath.Join(outcome.SnapshotDir, name))
		if err != nil {
			t.Errorf("snapshot missing %s: %v", name, err)
			continue
		}
		if string(got) != want {
			t.Errorf("snapshot %s = %q, want %q", name, got, want)
		}
	}

	// Store dir now holds exactly the archive contents. The old shm
	// sibling must be gone: a stale one would corrupt the restored
	// primary on next open.
	got, err := os.ReadFile(filepath.Join(env.storeDir, "liftlog.db"))
	if err != nil || string(got) != "restored primary" {
		t.Errorf("restored primary = %q, %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(env.storeDir, "liftlog.db-shm")); !os.IsNotExist(err) {
		t.Error("stale shm file survived restore")
	}
}

// hostileArchive hand-encodes an archive holding a valid metadata entry
// plus one entry with an arbitrary name, bypassing the writer's name
// validation.
func hostileArchive(t *testing.T, entryName string, data []byte) []byte {
	t.Helper()

	metaJSON, err := json.Marshal(archive.Metadata{
		FormatVersion: archive.FormatVersion,
		CreatedAt:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	buf.WriteString(archive.Magic)
	writeLE := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	writeLE(uint32(2))
	for _, e := range []archive.Entry{
		{Name: archive.MetadataEntryName, Data: metaJSON},
		{Name: entryName, Data: data},
	} {
		writeLE(uint32(len(e.Name)))
		buf.WriteString(e.Name)
		writeLE(uint64(len(e.Data)))
		buf.Write(e.Data)
	}
	return buf.Bytes()
}

func TestRestoreRejectsTraversalEntryNames(t *testing.T) {
	env := newTestEnv(t)
	data := hostileArchive(t, "../../evil.txt", []byte("pwned"))

	var fe *archive.FormatError
	_, err := env.service.coordinator.Restore(context.Background(), data)
	if !errors.As(err, &fe) {
		t.Fatalf("Restore = %v, want FormatError", err)
	}

	// Nothing may land above the store directory.
	if _, err := os.Stat(filepath.Join(env.storeDir, "..", "..", "evil.txt")); !os.IsNotExist(err) {
		t.Error("archive entry escaped the store directory")
	}
	got, err := os.ReadFile(filepath.Join(env.storeDir, "liftlog.db"))
	if err != nil || string(got) != "primary contents" {
		t.Errorf("store primary = %q, %v; want untouched", got, err)
	}
	if _, err := os.Stat(filepath.Join(env.backupDir, snapshotDirName)); !os.IsNotExist(err) {
		t.Error("snapshot directory created for a rejected archive")
	}
}

func TestRestorePathRejectsEscapes(t *testing.T) {
	dir := t.TempDir()

	if _, err := restorePath(dir, filepath.Join("..", "evil")); err == nil {
		t.Error("restorePath accepted a traversal name")
	}

	got, err := restorePath(dir, "liftlog.db")
	if err != nil {
		t.Fatalf("restorePath: %v", err)
	}
	if got != filepath.Join(dir, "liftlog.db") {
		t.Errorf("restorePath = %q, want %q", got, filepath.Join(dir, "liftlog.db"))
	}
}

func TestRestoreRejectsCorruptArchiveUntouched(t *testing.T) {
	env := newTestEnv(t)

	var fe *archive.FormatError
	_, err := env.service.coordinator.Restore(context.Background(), []byte("not an archive at all"))
	if !errors.As(err, &fe) {
		t.Fatalf("Restore garbage = %v, want FormatError", err)
	}

	// Store untouched, no snapshot directory created.
	got, err := os.ReadFile(filepath.Join(env.storeDir, "liftlog.db"))
	if err != nil || string(got) != "primary contents" {
		t.Errorf("store primary = %q, %v; want untouched", got, err)
	}
	if _, err := os.Stat(filepath.Join(env.backupDir, snapshotDirName)); !os.IsNotExist(err) {
		t.Error("snapshot directory created for a rejected archive")
	}
}

func TestRestoreRejectsEmptyArchive(t *testing.T) {
	env := newTestEnv(t)
	data := buildStoreArchive(t, nil)

	if _, err := env.service.coordinator.Restore(context.Background(), data); err == nil {
		t.Error("Restore accepted an archive with no store files")
	}
}

func TestRestoreOntoMissingStoreSkipsSnapshot(t *testing.T) {
	backupDir := t.TempDir()
	storeDir := t.TempDir()
	locator := store.NewLocator(filepath.Join(storeDir, "liftlog.db"))
	coord := NewCoordinator(locator, backupDir, false)

	data := buildStoreArchive(t, map[string]string{"liftlog.db": "fresh install"})
	outcome, err := coord.Restore(context.Background(), data)
	if err != nil {
		t.Fatalf("Restore onto empty store dir: %v", err)
	}
	if outcome.SnapshotDir != "" {
		t.Errorf("SnapshotDir = %q, want empty when no store existed", outcome.SnapshotDir)
	}

	got, err := os.ReadFile(filepath.Join(storeDir, "liftlog.db"))
	if err != nil || string(got) != "fresh install" {
		t.Errorf("restored primary = %q, %v", got, err)
	}
}

func TestRestoreSnapshotDirsNeverReused(t *testing.T) {
	env := newTestEnv(t)
	data := buildStoreArchive(t, map[string]string{
		"liftlog.db":     "restored primary",
		"liftlog.db-wal": "restored wal",
		"liftlog.db-shm": "restored shm",
	})

	// Two restores within the same clock second.
	first, err := env.service.coordinator.Restore(context.Background(), data)
	if err != nil {
		t.Fatalf("first Restore: %v", err)
	}
	second, err := env.service.coordinator.Restore(context.Background(), data)
	if err != nil {
		t.Fatalf("second Restore: %v", err)
	}

	if first.SnapshotDir == second.SnapshotDir {
		t.Errorf("snapshot directory %q reused across restores", first.SnapshotDir)
	}
	for _, dir := range []string{first.SnapshotDir, second.SnapshotDir} {
		if _, err := os.Stat(filepath.Join(dir, "liftlog.db")); err != nil {
			t.Errorf("snapshot %s missing primary: %v", dir, err)
		}
	}
}

func TestRestoreLeavesNoStagingResidue(t *testing.T) {
	env := newTestEnv(t)
	data := buildStoreArchive(t, map[string]string{"liftlog.db": "restored primary"})

	if _, err := env.service.coordinator.Restore(context.Background(), data); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	entries, err := os.ReadDir(env.storeDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			t.Errorf("staging residue left in store dir: %s", entry.Name())
		}
	}
}
