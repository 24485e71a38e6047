// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package archive

import (
	"errors"
	"fmt"
	"time"
)

// Magic identifies the container format and its major version. Exactly 12
// bytes; bumping the format means changing this tag.
const Magic = "LIFTLOGBK_V1"

// FormatVersion is the metadata version string this reader and writer
// support. Readers reject any other value outright.
const FormatVersion = "1"

// Extension is the file extension for backup archives, distinct from the
// raw store format.
const Extension = ".llbk"

// MetadataEntryName is the archive entry holding the metadata record.
const MetadataEntryName = "metadata.json"

// Metadata is the record stored in the metadata.json entry.
type Metadata struct {
	// FormatVersion must exactly match FormatVersion or the archive is
	// rejected.
	FormatVersion string `json:"format_version"`

	// CreatedAt is when the archive was produced.
	CreatedAt time.Time `json:"created_at"`

	// ProducerVersion is the application version that wrote the archive.
	// Informational only.
	ProducerVersion string `json:"producer_version"`
}

// Entry is one named blob in the container.
type Entry struct {
	Name string
	Data []byte
}

// Sentinel errors for the three structural failure classes. Wrapped by
// *FormatError; match with errors.Is.
var (
	ErrBadHeader           = errors.New("bad archive header")
	ErrTruncated           = errors.New("archive truncated")
	ErrIncompatibleVersion = errors.New("incompatible archive version")
)

// FormatError describes a structurally invalid archive. It wraps one of the
// sentinel errors above and records where in the buffer the problem was
// detected.
type FormatError struct {
	Kind   error
	Offset int64
	Detail string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v at offset %d", e.Kind, e.Offset)
	}
	return fmt.Sprintf("%v at offset %d: %s", e.Kind, e.Offset, e.Detail)
}

// Unwrap returns the sentinel for errors.Is matching.
func (e *FormatError) Unwrap() error {
	return e.Kind
}

func formatErr(kind error, offset int64, detail string) error {
	return &FormatError{Kind: kind, Offset: offset, Detail: detail}
}
