// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func testMetadata() Metadata {
	return Metadata{
		FormatVersion:   FormatVersion,
		CreatedAt:       time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC),
		ProducerVersion: "1.4.0",
	}
}

func testFiles() []Entry {
	return []Entry{
		{Name: "liftlog.db", Data: []byte("primary store content")},
		{Name: "liftlog.db-wal", Data: []byte("wal content")},
		{Name: "liftlog.db-shm", Data: []byte{}},
	}
}

// buildArchive writes a valid archive to a buffer for reader tests.
func buildArchive(t *testing.T, meta Metadata, files []Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, meta, files); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	meta := testMetadata()
	files := testFiles()
	data := buildArchive(t, meta, files)

	gotMeta, gotFiles, err := Read(data)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if gotMeta.FormatVersion != meta.FormatVersion {
		t.Errorf("format version = %q, want %q", gotMeta.FormatVersion, meta.FormatVersion)
	}
	if !gotMeta.CreatedAt.Equal(meta.CreatedAt) {
		t.Errorf("created at = %v, want %v", gotMeta.CreatedAt, meta.CreatedAt)
	}
	if gotMeta.ProducerVersion != meta.ProducerVersion {
		t.Errorf("producer version = %q, want %q", gotMeta.ProducerVersion, meta.ProducerVersion)
	}

	if len(gotFiles) != len(files) {
		t.Fatalf("got %d files, want %d", len(gotFiles), len(files))
	}
	for i, f := range files {
		if gotFiles[i].Name != f.Name {
			t.Errorf("file %d name = %q, want %q", i, gotFiles[i].Name, f.Name)
		}
		if !bytes.Equal(gotFiles[i].Data, f.Data) {
			t.Errorf("file %d content mismatch", i)
		}
	}
}

func TestWriteDeterministic(t *testing.T) {
	meta := testMetadata()
	files := testFiles()

	first := buildArchive(t, meta, files)
	second := buildArchive(t, meta, files)

	if !bytes.Equal(first, second) {
		t.Error("expected identical inputs to produce identical archives")
	}
}

func TestReadRejectsTruncationAtEveryOffset(t *testing.T) {
	data := buildArchive(t, testMetadata(), testFiles())

	for cut := 0; cut < len(data); cut++ {
		_, _, err := Read(data[:cut])
		if err == nil {
			t.Fatalf("expected error for archive truncated at %d bytes", cut)
		}
		if !errors.Is(err, ErrTruncated) && !errors.Is(err, ErrBadHeader) {
			t.Fatalf("truncation at %d: got %v, want ErrTruncated or ErrBadHeader", cut, err)
		}
		// Cuts inside the magic tag are header errors, later cuts are
		// truncation errors.
		if cut >= len(Magic) && !errors.Is(err, ErrTruncated) {
			t.Fatalf("truncation at %d: got %v, want ErrTruncated", cut, err)
		}
	}
}

func TestReadRejectsCorruptedMagic(t *testing.T) {
	data := buildArchive(t, testMetadata(), testFiles())

	for i := 0; i < len(Magic); i++ {
		corrupted := bytes.Clone(data)
		corrupted[i] ^= 0xff

		_, _, err := Read(corrupted)
		if !errors.Is(err, ErrBadHeader) {
			t.Errorf("corrupt magic byte %d: got %v, want ErrBadHeader", i, err)
		}
	}
}

func TestReadRejectsVersionMismatch(t *testing.T) {
	meta := testMetadata()
	meta.FormatVersion = "2"
	data := buildArchive(t, meta, testFiles())

	_, _, err := Read(data)
	if !errors.Is(err, ErrIncompatibleVersion) {
		t.Fatalf("got %v, want ErrIncompatibleVersion", err)
	}

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatal("expected *FormatError")
	}
	if !strings.Contains(formatErr.Detail, `"2"`) {
		t.Errorf("expected offending version in detail, got %q", formatErr.Detail)
	}
}

func TestReadRejectsMissingMetadataEntry(t *testing.T) {
	// Hand-build an archive whose only entry is a store file.
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.Write([]byte{1, 0, 0, 0}) // entryCount = 1
	name := []byte("liftlog.db")
	buf.Write([]byte{byte(len(name)), 0, 0, 0})
	buf.Write(name)
	buf.Write([]byte{4, 0, 0, 0, 0, 0, 0, 0})
	buf.Write([]byte("data"))

	_, _, err := Read(buf.Bytes())
	if !errors.Is(err, ErrBadHeader) {
		t.Fatalf("got %v, want ErrBadHeader for missing metadata entry", err)
	}
}

func TestReadRejectsOverdeclaredEntryCount(t *testing.T) {
	t.Run("inflated count on a real archive", func(t *testing.T) {
		data := buildArchive(t, testMetadata(), testFiles())

		// Inflate the declared entry count far past the actual entries.
		corrupted := bytes.Clone(data)
		corrupted[len(Magic)] = 0xff
		corrupted[len(Magic)+1] = 0xff

		_, _, err := Read(corrupted)
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("got %v, want ErrTruncated", err)
		}
	})

	t.Run("max count on a minimal buffer", func(t *testing.T) {
		// 16 bytes: the magic tag plus a count of 0xFFFFFFFF and not a
		// single entry byte. Must be rejected as truncation before the
		// declared count sizes any allocation.
		buf := append([]byte(Magic), 0xff, 0xff, 0xff, 0xff)

		_, _, err := Read(buf)
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("got %v, want ErrTruncated", err)
		}
	})
}

// rawArchive hand-builds an archive whose entries carry the given names,
// bypassing the writer's name validation.
func rawArchive(t *testing.T, names ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString(Magic)
	mustWriteLE(t, &buf, uint32(len(names)))
	for _, name := range names {
		mustWriteLE(t, &buf, uint32(len(name)))
		buf.WriteString(name)
		mustWriteLE(t, &buf, uint64(4))
		buf.WriteString("data")
	}
	return buf.Bytes()
}

func mustWriteLE(t *testing.T, buf *bytes.Buffer, v any) {
	t.Helper()
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		t.Fatalf("binary.Write: %v", err)
	}
}

func TestReadRejectsUnsafeEntryNames(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"parent traversal", "../../evil.txt"},
		{"nested path", "sub/liftlog.db"},
		{"absolute path", "/etc/passwd"},
		{"backslash traversal", `..\evil.txt`},
		{"empty name", ""},
		{"dot", "."},
		{"dot dot", ".."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Read(rawArchive(t, tc.entry))
			if !errors.Is(err, ErrBadHeader) {
				t.Fatalf("entry %q: got %v, want ErrBadHeader", tc.entry, err)
			}
		})
	}
}

func TestWriteRejectsUnsafeEntryNames(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, testMetadata(), []Entry{{Name: "../../evil.txt", Data: []byte("x")}})
	if err == nil {
		t.Fatal("Write accepted an entry name with a path traversal")
	}
}

func TestReadRejectsGarbageMetadataJSON(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.Write([]byte{1, 0, 0, 0})
	name := []byte(MetadataEntryName)
	buf.Write([]byte{byte(len(name)), 0, 0, 0})
	buf.Write(name)
	buf.Write([]byte{3, 0, 0, 0, 0, 0, 0, 0})
	buf.Write([]byte("{{{"))

	_, _, err := Read(buf.Bytes())
	if !errors.Is(err, ErrBadHeader) {
		t.Fatalf("got %v, want ErrBadHeader for unparseable metadata", err)
	}
}

func TestReadEmptyFileSet(t *testing.T) {
	data := buildArchive(t, testMetadata(), nil)

	meta, files, err := Read(data)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if meta.FormatVersion != FormatVersion {
		t.Errorf("format version = %q, want %q", meta.FormatVersion, FormatVersion)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %d", len(files))
	}
}

func TestMetadataEntryIsJSON(t *testing.T) {
	data := buildArchive(t, testMetadata(), testFiles())

	entries, err := parseEntries(data)
	if err != nil {
		t.Fatalf("parseEntries failed: %v", err)
	}
	if entries[0].Name != MetadataEntryName {
		t.Fatalf("first entry = %q, want %q", entries[0].Name, MetadataEntryName)
	}

	var meta Metadata
	if err := json.Unmarshal(entries[0].Data, &meta); err != nil {
		t.Fatalf("metadata entry is not valid JSON: %v", err)
	}
}

func TestWriteFileAtomicPlacement(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "backup_20260829-103000"+Extension)

	if err := WriteFile(dest, testMetadata(), testFiles()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// No temp files may remain alongside the archive.
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(dirEntries) != 1 {
		t.Fatalf("expected exactly the archive in %s, found %d entries", dir, len(dirEntries))
	}

	meta, files, err := ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if meta.ProducerVersion != "1.4.0" {
		t.Errorf("producer version = %q, want %q", meta.ProducerVersion, "1.4.0")
	}
	if len(files) != 3 {
		t.Errorf("got %d files, want 3", len(files))
	}
}

func TestWriteFileFailsIntoMissingDirectory(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "missing", "backup"+Extension)

	if err := WriteFile(dest, testMetadata(), testFiles()); err == nil {
		t.Fatal("expected error writing into missing directory")
	}
}

func TestMagicIsTwelveBytes(t *testing.T) {
	if len(Magic) != 12 {
		t.Fatalf("magic tag must be 12 bytes, got %d", len(Magic))
	}
}
