// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

// Package archive implements the LiftLog backup container format.
//
// A backup archive bundles the workout store's file set and a metadata
// record into one portable file with the .llbk extension.
//
// # Byte Layout
//
// All integers are little-endian, fixed width:
//
//	magic:        12 bytes, "LIFTLOGBK_V1"
//	entryCount:   uint32
//	repeat entryCount times:
//	  nameLength: uint32
//	  name:       nameLength bytes, UTF-8
//	  dataLength: uint64
//	  data:       dataLength bytes
//
// The first entry is always metadata.json, a JSON document with
// format_version, created_at and producer_version fields. The remaining
// entries are the store files in locator enumeration order.
//
// # Validation
//
// The reader validates strictly before materializing anything:
//
//  1. The buffer is at least as long as the magic tag and the tag matches
//     exactly (ErrBadHeader otherwise).
//  2. Every declared length stays within the remaining buffer
//     (ErrTruncated otherwise).
//  3. metadata.json is present and its format_version matches
//     FormatVersion exactly (ErrIncompatibleVersion otherwise).
//
// A corrupted archive is therefore always rejected before any data could
// reach disk. There is no cross-version compatibility: any version mismatch
// is fatal.
//
// # Writing
//
// WriteFile writes to a temporary file in the destination directory and
// renames it into place, so a failed export never leaves a partial archive
// at the final path. Given identical inputs the produced byte stream is
// deterministic and round-trips exactly through Read.
package archive
