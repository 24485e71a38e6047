// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// Frequency is the automatic backup cadence.
type Frequency string

const (
	// FrequencyDaily triggers a backup on the first opportunity of each
	// calendar day.
	FrequencyDaily Frequency = "daily"

	// FrequencyWeekly triggers a backup once the last one is older than
	// a week.
	FrequencyWeekly Frequency = "weekly"

	// FrequencyMonthly triggers a backup once the last one is older
	// than a month.
	FrequencyMonthly Frequency = "monthly"

	// FrequencyManual disables automatic backups entirely. User-created
	// backups are still pruned by retention.
	FrequencyManual Frequency = "manual"
)

// ParseFrequency converts a configuration string into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case FrequencyDaily:
		return FrequencyDaily, nil
	case FrequencyWeekly:
		return FrequencyWeekly, nil
	case FrequencyMonthly:
		return FrequencyMonthly, nil
	case FrequencyManual:
		return FrequencyManual, nil
	default:
		return "", fmt.Errorf("unknown backup frequency %q", s)
	}
}

// Record describes one archive in the backup directory. It is derived
// entirely from filesystem attributes and the filename convention, so
// listing backups never opens or parses archive contents.
type Record struct {
	// Name is the archive filename within the backup directory.
	Name string `json:"name"`

	// Path is the absolute path of the archive file.
	Path string `json:"path"`

	// CreatedAt is the creation time encoded in the filename.
	CreatedAt time.Time `json:"created_at"`

	// SizeBytes is the archive file size.
	SizeBytes int64 `json:"size_bytes"`

	// Manual marks a user-triggered backup ("manual_" filename prefix).
	Manual bool `json:"manual"`
}

// RestoreOutcome reports the result of a successful restore.
type RestoreOutcome struct {
	// RequiresRestart is always true on success: the live store handle
	// cannot be swapped underneath the running process, so the caller
	// must restart before reopening the store.
	RequiresRestart bool `json:"requires_restart"`

	// SnapshotDir is the directory holding the pre-restore copy of the
	// store file set.
	SnapshotDir string `json:"snapshot_dir"`

	// Warnings holds non-fatal findings from post-restore verification.
	Warnings []string `json:"warnings,omitempty"`
}

// Stats summarizes the backup subsystem for the control API.
type Stats struct {
	BackupCount    int        `json:"backup_count"`
	ManualCount    int        `json:"manual_count"`
	AutomaticCount int        `json:"automatic_count"`
	TotalSizeBytes int64      `json:"total_size_bytes"`
	NewestBackupAt *time.Time `json:"newest_backup_at,omitempty"`
	OldestBackupAt *time.Time `json:"oldest_backup_at,omitempty"`
	LastBackupAt   *time.Time `json:"last_backup_at,omitempty"`
	Frequency      Frequency  `json:"frequency"`
	ExportActive   bool       `json:"export_active"`
	ImportActive   bool       `json:"import_active"`
}

var (
	// ErrAlreadyInProgress is returned when an export or import is
	// requested while one of the same kind is still running.
	ErrAlreadyInProgress = errors.New("operation already in progress")

	// ErrAccess wraps permission failures on user-supplied paths.
	ErrAccess = errors.New("access denied")

	// ErrIO wraps filesystem failures during copy or write.
	ErrIO = errors.New("i/o failure")

	// ErrBackupNotFound is returned when a named backup does not exist
	// in the backup directory.
	ErrBackupNotFound = errors.New("backup not found")
)

// classifyFSError wraps a filesystem error with the matching sentinel
// so callers can distinguish permission problems from transient I/O.
func classifyFSError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s: %v", ErrAccess, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrIO, op, err)
}
