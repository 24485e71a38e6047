// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package archive

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// minEntrySize is the wire size of an entry with an empty name and no
// data: a uint32 name length plus a uint64 data length.
const minEntrySize = 12

// Read parses and validates an archive buffer, returning the metadata record
// and the store file entries (metadata.json excluded). Structural validation
// runs to completion before any entry content is interpreted, so a corrupted
// archive is rejected without partial results.
func Read(data []byte) (Metadata, []Entry, error) {
	var meta Metadata

	entries, err := parseEntries(data)
	if err != nil {
		return meta, nil, err
	}

	metaEntry, files := splitMetadataEntry(entries)
	if metaEntry == nil {
		return meta, nil, formatErr(ErrBadHeader, int64(len(Magic)), "missing metadata entry")
	}

	if err := json.Unmarshal(metaEntry.Data, &meta); err != nil {
		return Metadata{}, nil, formatErr(ErrBadHeader, 0, fmt.Sprintf("invalid metadata entry: %v", err))
	}
	if meta.FormatVersion != FormatVersion {
		return Metadata{}, nil, formatErr(ErrIncompatibleVersion, 0,
			fmt.Sprintf("archive version %q, reader supports %q", meta.FormatVersion, FormatVersion))
	}

	return meta, files, nil
}

// ReadFile reads and validates the archive at path.
func ReadFile(path string) (Metadata, []Entry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is chosen by the caller
	if err != nil {
		return Metadata{}, nil, err
	}
	return Read(data)
}

// parseEntries walks the buffer and checks every declared length against the
// remaining bytes. Declared lengths exceeding the buffer are corruption, not
// undefined behavior.
func parseEntries(data []byte) ([]Entry, error) {
	if len(data) < len(Magic) {
		return nil, formatErr(ErrBadHeader, 0, "buffer shorter than magic tag")
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, formatErr(ErrBadHeader, 0, "magic tag mismatch")
	}

	off := int64(len(Magic))
	remaining := data[off:]

	if len(remaining) < 4 {
		return nil, formatErr(ErrTruncated, off, "missing entry count")
	}
	count := binary.LittleEndian.Uint32(remaining)
	remaining = remaining[4:]
	off += 4

	// Every entry carries at least its two length fields, so the declared
	// count is bounded by the bytes actually present. Checked before the
	// count sizes any allocation.
	if uint64(count)*minEntrySize > uint64(len(remaining)) {
		return nil, formatErr(ErrTruncated, off-4,
			fmt.Sprintf("declared entry count %d exceeds remaining %d bytes", count, len(remaining)))
	}

	entries := make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		entry, n, err := parseEntry(remaining, off)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		remaining = remaining[n:]
		off += n
	}

	return entries, nil
}

// parseEntry decodes one entry from buf, returning the entry and the number
// of bytes consumed. off is the absolute offset of buf for error reporting.
func parseEntry(buf []byte, off int64) (Entry, int64, error) {
	if len(buf) < 4 {
		return Entry{}, 0, formatErr(ErrTruncated, off, "missing name length")
	}
	nameLen := uint64(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]

	if nameLen > uint64(len(buf)) {
		return Entry{}, 0, formatErr(ErrTruncated, off,
			fmt.Sprintf("declared name length %d exceeds remaining %d bytes", nameLen, len(buf)))
	}
	name := string(buf[:nameLen])
	buf = buf[nameLen:]

	if !validEntryName(name) {
		return Entry{}, 0, formatErr(ErrBadHeader, off, fmt.Sprintf("unsafe entry name %q", name))
	}

	if len(buf) < 8 {
		return Entry{}, 0, formatErr(ErrTruncated, off, "missing data length")
	}
	dataLen := binary.LittleEndian.Uint64(buf)
	buf = buf[8:]

	if dataLen > uint64(len(buf)) {
		return Entry{}, 0, formatErr(ErrTruncated, off,
			fmt.Sprintf("declared data length %d exceeds remaining %d bytes", dataLen, len(buf)))
	}

	consumed := int64(4) + int64(nameLen) + 8 + int64(dataLen) //nolint:gosec // Bounds checked above
	return Entry{Name: name, Data: buf[:dataLen]}, consumed, nil
}

// validEntryName reports whether name is a plain file name. Archives
// carry flat store file sets; a separator or relative component in an
// entry name would steer a restore outside its target directory.
func validEntryName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// splitMetadataEntry separates the metadata entry from the store files.
func splitMetadataEntry(entries []Entry) (*Entry, []Entry) {
	var meta *Entry
	files := make([]Entry, 0, len(entries))
	for i := range entries {
		if entries[i].Name == MetadataEntryName && meta == nil {
			meta = &entries[i]
			continue
		}
		files = append(files, entries[i])
	}
	return meta, files
}
