// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/liftlogapp/liftlog/internal/archive"
	"github.com/liftlogapp/liftlog/internal/logging"
	"github.com/liftlogapp/liftlog/internal/store"
)

// snapshotDirName is the subdirectory of the backup directory holding
// pre-restore snapshots, one timestamped directory per restore.
const snapshotDirName = "pre-restore"

// Coordinator performs snapshot-then-replace restores of the workout
// store. Each restore validates the archive in full, copies the
// current store file set into a fresh snapshot directory, stages the
// archive contents next to the store, and finishes with a rename pass.
type Coordinator struct {
	locator   *store.Locator
	backupDir string

	// verifyAfterRestore runs an integrity check on the restored
	// primary file and reports failures as warnings, not errors. The
	// snapshot still exists either way.
	verifyAfterRestore bool

	now func() time.Time
}

// NewCoordinator returns a restore coordinator for the given store.
func NewCoordinator(locator *store.Locator, backupDir string, verifyAfterRestore bool) *Coordinator {
	return &Coordinator{
		locator:            locator,
		backupDir:          backupDir,
		verifyAfterRestore: verifyAfterRestore,
		now:                time.Now,
	}
}

// Restore replaces the live store with the contents of archiveData.
// On success the caller must restart the process before reopening the
// store; the coordinator never reopens it.
//
// Failure before the rename pass leaves the live store untouched.
func (c *Coordinator) Restore(ctx context.Context, archiveData []byte) (RestoreOutcome, error) {
	// Validate everything before touching the live store.
	_, files, err := archive.Read(archiveData)
	if err != nil {
		return RestoreOutcome{}, err
	}
	if len(files) == 0 {
		return RestoreOutcome{}, fmt.Errorf("%w: archive contains no store files", archive.ErrTruncated)
	}

	snapshotDir, err := c.snapshotCurrentStore()
	if err != nil {
		return RestoreOutcome{}, err
	}

	if err := c.replaceStore(files); err != nil {
		return RestoreOutcome{}, err
	}

	outcome := RestoreOutcome{
		RequiresRestart: true,
		SnapshotDir:     snapshotDir,
	}
	if c.verifyAfterRestore {
		outcome.Warnings = c.verifyRestored(ctx)
	}

	logging.Info().
		Str("snapshot_dir", snapshotDir).
		Int("file_count", len(files)).
		Msg("Store restored, restart required")
	return outcome, nil
}

// snapshotCurrentStore copies the live store file set into a fresh,
// never-before-used directory under <backupDir>/pre-restore. Restoring
// onto a machine with no store yet is legal and skips the snapshot.
func (c *Coordinator) snapshotCurrentStore() (string, error) {
	files, err := c.locator.FileSet()
	if errors.Is(err, store.ErrStoreNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	dir, err := c.freshSnapshotDir()
	if err != nil {
		return "", err
	}

	for _, f := range files {
		if err := copyFile(f.Path, filepath.Join(dir, f.Name)); err != nil {
			return "", fmt.Errorf("failed to snapshot %s: %w", f.Name, err)
		}
	}
	return dir, nil
}

// freshSnapshotDir creates a new timestamped snapshot directory,
// suffixing the name if a restore already ran within the same second.
func (c *Coordinator) freshSnapshotDir() (string, error) {
	base := filepath.Join(c.backupDir, snapshotDirName)
	stamp := c.now().UTC().Format(backupTimeLayout)

	for attempt := 0; attempt < 100; attempt++ {
		name := stamp
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d", stamp, attempt)
		}
		dir := filepath.Join(base, name)
		err := os.MkdirAll(base, 0o755)
		if err != nil {
			return "", classifyFSError("create snapshot directory", err)
		}
		err = os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", classifyFSError("create snapshot directory", err)
		}
	}
	return "", fmt.Errorf("%w: could not allocate snapshot directory under %s", ErrIO, base)
}

// replaceStore stages the archive files next to the store directory,
// removes the old store set, and renames the staged files into place.
// Staging on the same filesystem keeps the final pass to cheap renames
// so the window for a mixed old/new state is as small as possible.
func (c *Coordinator) replaceStore(files []archive.Entry) error {
	storeDir := c.locator.Dir()
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		return classifyFSError("create store directory", err)
	}

	staging, err := os.MkdirTemp(storeDir, ".restore-*")
	if err != nil {
		return classifyFSError("create staging directory", err)
	}
	defer os.RemoveAll(staging)

	for _, f := range files {
		dest, err := restorePath(staging, f.Name)
		if err != nil {
			return err
		}
		if err := writeFileSynced(dest, f.Data); err != nil {
			return fmt.Errorf("failed to stage %s: %w", f.Name, err)
		}
	}

	// Drop the old set first. A leftover write-ahead log from the old
	// store would corrupt the restored primary on next open.
	if old, err := c.locator.FileSet(); err == nil {
		for _, f := range old {
			if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
				return classifyFSError("remove old store file", err)
			}
		}
	} else if !errors.Is(err, store.ErrStoreNotFound) {
		return err
	}

	for _, f := range files {
		dest, err := restorePath(storeDir, f.Name)
		if err != nil {
			return err
		}
		if err := os.Rename(filepath.Join(staging, f.Name), dest); err != nil {
			return classifyFSError("place restored store file", err)
		}
	}
	return nil
}

// restorePath joins an archive entry name onto dir, rejecting names
// that would resolve outside it (G305). The archive reader refuses
// such names too; the paths are rebuilt here, so the check repeats.
func restorePath(dir, name string) (string, error) {
	dest := filepath.Join(dir, name)
	if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid file path in archive: %s", name)
	}
	return dest, nil
}

// verifyRestored runs a read-only integrity check on the restored
// primary file.
func (c *Coordinator) verifyRestored(ctx context.Context) []string {
	if err := store.Verify(ctx, c.locator.PrimaryPath()); err != nil {
		logging.Warn().Err(err).Msg("Post-restore verification failed")
		return []string{fmt.Sprintf("restored store failed verification: %v", err)}
	}
	return nil
}

// copyFile copies src to dst, creating parent directories and syncing
// the destination before returning.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return classifyFSError("read "+filepath.Base(src), err)
	}
	return writeFileSynced(dst, data)
}

// writeFileSynced writes data to path and fsyncs it.
func writeFileSynced(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return classifyFSError("create directory", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return classifyFSError("open "+filepath.Base(path), err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return classifyFSError("write "+filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return classifyFSError("sync "+filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return classifyFSError("close "+filepath.Base(path), err)
	}
	return nil
}
