// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Write serializes the metadata record and file entries into the container
// format. The metadata entry is written first, then the files in the order
// given. The output round-trips exactly through Read.
func Write(w io.Writer, meta Metadata, files []Entry) error {
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal archive metadata: %w", err)
	}

	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(Magic); err != nil {
		return fmt.Errorf("failed to write magic: %w", err)
	}

	count := uint32(len(files) + 1) //nolint:gosec // Entry counts are small
	if err := binary.Write(bw, binary.LittleEndian, count); err != nil {
		return fmt.Errorf("failed to write entry count: %w", err)
	}

	if err := writeEntry(bw, Entry{Name: MetadataEntryName, Data: metaJSON}); err != nil {
		return err
	}
	for _, f := range files {
		if !validEntryName(f.Name) {
			return fmt.Errorf("invalid entry name %q", f.Name)
		}
		if err := writeEntry(bw, f); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// writeEntry writes a single name-length, name, data-length, data record.
func writeEntry(w io.Writer, e Entry) error {
	name := []byte(e.Name)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(name))); err != nil { //nolint:gosec // Entry names are short
		return fmt.Errorf("failed to write name length for %s: %w", e.Name, err)
	}
	if _, err := w.Write(name); err != nil {
		return fmt.Errorf("failed to write name for %s: %w", e.Name, err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(e.Data))); err != nil {
		return fmt.Errorf("failed to write data length for %s: %w", e.Name, err)
	}
	if _, err := w.Write(e.Data); err != nil {
		return fmt.Errorf("failed to write data for %s: %w", e.Name, err)
	}
	return nil
}

// WriteFile writes the archive to destPath. The archive is built in a
// temporary file in the destination directory and renamed into place, so
// destPath never holds a partial archive.
func WriteFile(destPath string, meta Metadata, files []Entry) (err error) {
	dir := filepath.Dir(destPath)
	tmp, err := os.CreateTemp(dir, ".llbk-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary archive: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup on error
		}
	}()

	if err = Write(tmp, meta, files); err != nil {
		tmp.Close() //nolint:errcheck // Best effort cleanup on error
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // Best effort cleanup on error
		return fmt.Errorf("failed to sync archive: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}

	if err = os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to place archive at %s: %w", destPath, err)
	}
	return nil
}
