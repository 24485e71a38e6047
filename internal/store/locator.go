// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrStoreNotFound is returned when the primary store file does not exist at
// the configured location.
var ErrStoreNotFound = errors.New("store not found")

// File is one member of a store file set.
type File struct {
	// Name is the bare filename, e.g. "liftlog.db-wal".
	Name string

	// Path is the absolute location on disk.
	Path string

	// Size is the file size in bytes at enumeration time.
	Size int64
}

// Locator resolves the files that constitute one logical store: the primary
// database file plus every sibling sharing its base name. Locator is
// read-only; it never creates or modifies anything.
type Locator struct {
	primaryPath string
}

// NewLocator creates a locator for the store whose primary file is at
// primaryPath.
func NewLocator(primaryPath string) *Locator {
	return &Locator{primaryPath: primaryPath}
}

// PrimaryPath returns the canonical path of the primary store file.
func (l *Locator) PrimaryPath() string {
	return l.primaryPath
}

// Dir returns the directory holding the store files.
func (l *Locator) Dir() string {
	return filepath.Dir(l.primaryPath)
}

// FileSet enumerates the store file set: the primary file first, then its
// auxiliary siblings in lexical order. Returns ErrStoreNotFound if the
// primary file does not exist.
func (l *Locator) FileSet() ([]File, error) {
	primaryInfo, err := os.Stat(l.primaryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no primary store file at %s", ErrStoreNotFound, l.primaryPath)
		}
		return nil, fmt.Errorf("failed to stat store file %s: %w", l.primaryPath, err)
	}

	primaryName := filepath.Base(l.primaryPath)
	set := []File{{Name: primaryName, Path: l.primaryPath, Size: primaryInfo.Size()}}

	siblings, err := l.auxiliaryFiles(primaryName)
	if err != nil {
		return nil, err
	}

	return append(set, siblings...), nil
}

// auxiliaryFiles lists sibling files whose names extend the primary file's
// name (the -wal and -shm files SQLite keeps in WAL mode).
func (l *Locator) auxiliaryFiles(primaryName string) ([]File, error) {
	entries, err := os.ReadDir(l.Dir())
	if err != nil {
		return nil, fmt.Errorf("failed to list store directory %s: %w", l.Dir(), err)
	}

	var aux []File
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == primaryName || !strings.HasPrefix(name, primaryName) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat store file %s: %w", name, err)
		}
		aux = append(aux, File{
			Name: name,
			Path: filepath.Join(l.Dir(), name),
			Size: info.Size(),
		})
	}

	sort.Slice(aux, func(i, j int) bool { return aux[i].Name < aux[j].Name })
	return aux, nil
}
