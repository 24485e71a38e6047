// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package backup

import (
	"time"

	"github.com/liftlogapp/liftlog/internal/logging"
	"github.com/liftlogapp/liftlog/internal/metrics"
)

// retention windows per frequency class. Manual backups are never
// triggered automatically but still age out after thirty days.
const (
	dailyKeepWindow   = 7 * 24 * time.Hour
	weeklyKeepWindow  = 28 * 24 * time.Hour
	manualKeepWindow  = 30 * 24 * time.Hour
	monthlyKeepWindow = 365 * 24 * time.Hour
)

// Policy decides when an automatic backup is due and which archives
// have aged out of their retention window.
type Policy struct {
	Frequency Frequency
}

// NewPolicy returns a retention policy for the given cadence.
func NewPolicy(frequency Frequency) Policy {
	return Policy{Frequency: frequency}
}

// IsBackupDue reports whether an automatic backup should run now. A
// nil lastBackupAt means no backup has ever succeeded, which is always
// due (except under the manual frequency, which never triggers).
func (p Policy) IsBackupDue(lastBackupAt *time.Time, now time.Time) bool {
	if p.Frequency == FrequencyManual {
		return false
	}
	if lastBackupAt == nil {
		return true
	}

	last := lastBackupAt.UTC()
	now = now.UTC()

	switch p.Frequency {
	case FrequencyDaily:
		ly, lm, ld := last.Date()
		ny, nm, nd := now.Date()
		return ly != ny || lm != nm || ld != nd
	case FrequencyWeekly:
		return last.Before(now.AddDate(0, 0, -7))
	case FrequencyMonthly:
		return last.Before(now.AddDate(0, -1, 0))
	default:
		return false
	}
}

// Expired reports whether a backup created at createdAt has outlived
// its keep window. Manual backups use their own window regardless of
// the configured frequency.
func (p Policy) Expired(rec Record, now time.Time) bool {
	window := p.keepWindow()
	if rec.Manual {
		window = manualKeepWindow
	}
	return now.Sub(rec.CreatedAt) > window
}

func (p Policy) keepWindow() time.Duration {
	switch p.Frequency {
	case FrequencyWeekly:
		return weeklyKeepWindow
	case FrequencyMonthly:
		return monthlyKeepWindow
	case FrequencyManual:
		return manualKeepWindow
	default:
		return dailyKeepWindow
	}
}

// Prune deletes expired backups from the catalog. The single most
// recent backup is never deleted, even when nominally expired, so at
// least one recovery point always exists. Returns the number of
// archives removed.
func (p Policy) Prune(catalog *Catalog, now time.Time) (int, error) {
	records, err := catalog.List()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	deleted := 0
	// records is sorted newest first; index 0 is the retention floor.
	for _, rec := range records[1:] {
		if !p.Expired(rec, now) {
			continue
		}
		if err := catalog.Delete(rec.Name); err != nil {
			logging.Warn().Err(err).Str("backup", rec.Name).Msg("Failed to prune expired backup")
			continue
		}
		metrics.BackupsPrunedTotal.Inc()
		deleted++
	}

	if deleted > 0 {
		logging.Info().
			Int("deleted_count", deleted).
			Str("frequency", string(p.Frequency)).
			Msg("Retention policy applied")
	}
	return deleted, nil
}
