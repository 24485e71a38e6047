// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/liftlogapp/liftlog/internal/archive"
)

const (
	// backupTimeLayout is the sortable timestamp embedded in archive
	// filenames.
	backupTimeLayout = "20060102-150405"

	// manualPrefix marks user-triggered backups. Its absence marks
	// automatic ones.
	manualPrefix = "manual_"
)

// Catalog lists, resolves, and deletes archives in one flat backup
// directory. Listing only reads directory metadata; archives are never
// opened.
type Catalog struct {
	dir string
}

// NewCatalog returns a catalog over the given backup directory.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// Dir returns the backup directory path.
func (c *Catalog) Dir() string {
	return c.dir
}

// FileName builds the archive filename for a backup taken at t.
func FileName(manual bool, t time.Time) string {
	name := "backup_" + t.UTC().Format(backupTimeLayout) + archive.Extension
	if manual {
		name = manualPrefix + name
	}
	return name
}

// List returns all backup records sorted newest first. A missing
// backup directory yields an empty list, not an error.
func (c *Catalog) List() ([]Record, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, classifyFSError("list backup directory", err)
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), archive.Extension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		records = append(records, recordFromFile(c.dir, entry.Name(), info.Size(), info.ModTime()))
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// recordFromFile derives a Record from a directory entry. The creation
// time comes from the filename timestamp; the file's modification time
// is the fallback for names that do not follow the convention.
func recordFromFile(dir, name string, size int64, modTime time.Time) Record {
	rec := Record{
		Name:      name,
		Path:      filepath.Join(dir, name),
		SizeBytes: size,
		Manual:    strings.HasPrefix(name, manualPrefix),
	}

	stamp := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(name, manualPrefix), "backup_"), archive.Extension)
	if t, err := time.Parse(backupTimeLayout, stamp); err == nil {
		rec.CreatedAt = t.UTC()
	} else {
		rec.CreatedAt = modTime.UTC()
	}
	return rec
}

// Resolve returns the record for a named backup, or ErrBackupNotFound.
func (c *Catalog) Resolve(name string) (Record, error) {
	if err := validateBackupName(name); err != nil {
		return Record{}, err
	}
	path := filepath.Join(c.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, fmt.Errorf("%w: %s", ErrBackupNotFound, name)
		}
		return Record{}, classifyFSError("stat backup", err)
	}
	if info.IsDir() {
		return Record{}, fmt.Errorf("%w: %s", ErrBackupNotFound, name)
	}
	return recordFromFile(c.dir, name, info.Size(), info.ModTime()), nil
}

// Delete removes a named backup from the directory.
func (c *Catalog) Delete(name string) error {
	rec, err := c.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(rec.Path); err != nil {
		return classifyFSError("delete backup", err)
	}
	return nil
}

// Newest returns the most recent backup, or false if the directory
// holds none.
func (c *Catalog) Newest() (Record, bool, error) {
	records, err := c.List()
	if err != nil {
		return Record{}, false, err
	}
	if len(records) == 0 {
		return Record{}, false, nil
	}
	return records[0], true, nil
}

// validateBackupName rejects names that escape the backup directory or
// do not look like archive files.
func validateBackupName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid backup name %q", ErrBackupNotFound, name)
	}
	if !strings.HasSuffix(name, archive.Extension) {
		return fmt.Errorf("%w: %q is not a backup archive", ErrBackupNotFound, name)
	}
	return nil
}
