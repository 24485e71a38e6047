// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

// stateFileName holds the persisted schedule state inside the backup
// directory.
const stateFileName = "state.json"

// scheduleState is the retention policy state persisted across runs.
// LastBackupAt is written only after an archive has been durably
// placed in the backup directory.
type scheduleState struct {
	Frequency    Frequency  `json:"frequency"`
	LastBackupAt *time.Time `json:"last_backup_at,omitempty"`
}

// loadScheduleState reads state.json from the backup directory. A
// missing or unreadable file yields a zero state: the next tick then
// treats the schedule as first-run and backs up immediately, which is
// the safe direction to fail in.
func loadScheduleState(dir string) scheduleState {
	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		return scheduleState{}
	}
	var st scheduleState
	if err := json.Unmarshal(data, &st); err != nil {
		return scheduleState{}
	}
	return st
}

// saveScheduleState writes state.json atomically via a temp file and
// rename.
func saveScheduleState(dir string, st scheduleState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schedule state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return classifyFSError("create state file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return classifyFSError("write state file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return classifyFSError("sync state file", err)
	}
	if err := tmp.Close(); err != nil {
		return classifyFSError("close state file", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, stateFileName)); err != nil {
		return classifyFSError("place state file", err)
	}
	return nil
}
