// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/liftlogapp/liftlog/internal/archive"
	"github.com/liftlogapp/liftlog/internal/logging"
	"github.com/liftlogapp/liftlog/internal/metrics"
	"github.com/liftlogapp/liftlog/internal/store"
)

// Config holds the service's runtime settings.
type Config struct {
	// Dir is the flat backup directory.
	Dir string

	// Frequency is the automatic backup cadence.
	Frequency Frequency

	// VerifyAfterRestore enables a read-only integrity check on the
	// restored store.
	VerifyAfterRestore bool

	// ProducerVersion is recorded in archive metadata, informational
	// only.
	ProducerVersion string
}

// Checkpointer flushes pending store writes into the primary file so
// an exported copy is self-contained. *store.DB satisfies it.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// Service is the façade for manual export, manual import, manual and
// scheduled backups, and retention pruning. Exports and imports are
// each single-flight: a second concurrent attempt of the same kind
// fails fast with ErrAlreadyInProgress.
type Service struct {
	cfg         Config
	locator     *store.Locator
	db          Checkpointer
	catalog     *Catalog
	policy      Policy
	coordinator *Coordinator

	exportInProgress atomic.Bool
	importInProgress atomic.Bool

	stateMu sync.Mutex
	state   scheduleState

	now func() time.Time
}

// NewService wires the backup subsystem together. db may be nil when
// no live store handle exists (restore-only invocations).
func NewService(cfg Config, locator *store.Locator, db Checkpointer) *Service {
	s := &Service{
		cfg:         cfg,
		locator:     locator,
		db:          db,
		catalog:     NewCatalog(cfg.Dir),
		policy:      NewPolicy(cfg.Frequency),
		coordinator: NewCoordinator(locator, cfg.Dir, cfg.VerifyAfterRestore),
		now:         time.Now,
	}
	s.state = loadScheduleState(cfg.Dir)
	s.state.Frequency = cfg.Frequency
	return s
}

// Catalog returns the service's backup catalog.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// CreateBackup exports the store into the backup directory and returns
// the new record. manual controls the filename prefix and whether the
// schedule's last-backup time advances.
func (s *Service) CreateBackup(ctx context.Context, manual bool) (Record, error) {
	if !s.exportInProgress.CompareAndSwap(false, true) {
		return Record{}, fmt.Errorf("%w: export", ErrAlreadyInProgress)
	}
	defer s.exportInProgress.Store(false)

	start := s.now()
	rec, err := s.writeArchive(ctx, manual, start)
	metrics.RecordBackup(manual, err, time.Since(start), rec.SizeBytes)
	if err != nil {
		return Record{}, err
	}

	// The schedule only advances after the archive is durably placed,
	// so a crash mid-export can never record a backup that does not
	// exist.
	if !manual {
		s.recordAutomaticBackup(rec.CreatedAt)
	}

	logging.Info().
		Str("backup", rec.Name).
		Int64("size_bytes", rec.SizeBytes).
		Bool("manual", manual).
		Msg("Backup created")
	return rec, nil
}

// writeArchive builds the archive for the current store file set and
// places it in the backup directory.
func (s *Service) writeArchive(ctx context.Context, manual bool, now time.Time) (Record, error) {
	meta, files, err := s.collectStore(ctx, now)
	if err != nil {
		return Record{}, err
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return Record{}, classifyFSError("create backup directory", err)
	}

	name := FileName(manual, now)
	if err := archive.WriteFile(filepath.Join(s.cfg.Dir, name), meta, files); err != nil {
		return Record{}, err
	}
	return s.catalog.Resolve(name)
}

// collectStore checkpoints the live store and reads its file set into
// archive entries.
func (s *Service) collectStore(ctx context.Context, now time.Time) (archive.Metadata, []archive.Entry, error) {
	if s.db != nil {
		if err := s.db.Checkpoint(ctx); err != nil {
			return archive.Metadata{}, nil, fmt.Errorf("failed to checkpoint store before export: %w", err)
		}
	}

	storeFiles, err := s.locator.FileSet()
	if err != nil {
		return archive.Metadata{}, nil, err
	}

	files := make([]archive.Entry, 0, len(storeFiles))
	for _, f := range storeFiles {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return archive.Metadata{}, nil, classifyFSError("read store file "+f.Name, err)
		}
		files = append(files, archive.Entry{Name: f.Name, Data: data})
	}

	meta := archive.Metadata{
		FormatVersion:   archive.FormatVersion,
		CreatedAt:       now.UTC(),
		ProducerVersion: s.cfg.ProducerVersion,
	}
	return meta, files, nil
}

// ExportTo writes an archive of the current store to a user-chosen
// path. The destination keeps whatever name the user picked.
func (s *Service) ExportTo(ctx context.Context, destPath string) error {
	if !s.exportInProgress.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: export", ErrAlreadyInProgress)
	}
	defer s.exportInProgress.Store(false)

	meta, files, err := s.collectStore(ctx, s.now())
	if err != nil {
		return err
	}
	if err := archive.WriteFile(destPath, meta, files); err != nil {
		return err
	}

	logging.Info().Str("path", destPath).Msg("Store exported")
	return nil
}

// ImportArchive restores the store from a user-chosen archive file.
func (s *Service) ImportArchive(ctx context.Context, srcPath string) (RestoreOutcome, error) {
	if !s.importInProgress.CompareAndSwap(false, true) {
		return RestoreOutcome{}, fmt.Errorf("%w: import", ErrAlreadyInProgress)
	}
	defer s.importInProgress.Store(false)

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return RestoreOutcome{}, classifyFSError("read archive", err)
	}
	return s.restore(ctx, data)
}

// RestoreBackup restores the store from a named backup in the catalog.
func (s *Service) RestoreBackup(ctx context.Context, name string) (RestoreOutcome, error) {
	if !s.importInProgress.CompareAndSwap(false, true) {
		return RestoreOutcome{}, fmt.Errorf("%w: import", ErrAlreadyInProgress)
	}
	defer s.importInProgress.Store(false)

	rec, err := s.catalog.Resolve(name)
	if err != nil {
		return RestoreOutcome{}, err
	}
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return RestoreOutcome{}, classifyFSError("read backup", err)
	}
	return s.restore(ctx, data)
}

func (s *Service) restore(ctx context.Context, data []byte) (RestoreOutcome, error) {
	outcome, err := s.coordinator.Restore(ctx, data)
	metrics.RecordRestore(err)
	return outcome, err
}

// ListBackups returns the catalog contents, newest first.
func (s *Service) ListBackups() ([]Record, error) {
	return s.catalog.List()
}

// DeleteBackup removes a named backup.
func (s *Service) DeleteBackup(name string) error {
	if err := s.catalog.Delete(name); err != nil {
		return err
	}
	logging.Info().Str("backup", name).Msg("Backup deleted")
	return nil
}

// PerformAutomaticBackupIfNeeded is called on each scheduler tick. It
// consults the retention policy, runs a backup when due, and prunes
// expired archives. Failures are logged and swallowed: a background
// backup must never surface a user-facing error, the next tick simply
// retries.
func (s *Service) PerformAutomaticBackupIfNeeded(ctx context.Context) {
	s.stateMu.Lock()
	last := s.state.LastBackupAt
	s.stateMu.Unlock()

	now := s.now()
	if s.policy.IsBackupDue(last, now) {
		if _, err := s.CreateBackup(ctx, false); err != nil {
			logging.Warn().Err(err).Msg("Automatic backup failed")
		}
	}

	// Pruning runs on every tick, not only after a due backup. Under
	// the manual frequency no backup is ever due, yet manual archives
	// still age out of their keep window.
	if _, err := s.policy.Prune(s.catalog, now); err != nil {
		logging.Warn().Err(err).Msg("Retention pruning failed")
	}
}

// recordAutomaticBackup advances and persists the schedule state.
func (s *Service) recordAutomaticBackup(at time.Time) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	t := at.UTC()
	s.state.LastBackupAt = &t
	if err := saveScheduleState(s.cfg.Dir, s.state); err != nil {
		logging.Warn().Err(err).Msg("Failed to persist backup schedule state")
	}
}

// Stats summarizes the subsystem for the control API.
func (s *Service) Stats() (Stats, error) {
	records, err := s.catalog.List()
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		BackupCount:  len(records),
		Frequency:    s.cfg.Frequency,
		ExportActive: s.exportInProgress.Load(),
		ImportActive: s.importInProgress.Load(),
	}
	for _, rec := range records {
		st.TotalSizeBytes += rec.SizeBytes
		if rec.Manual {
			st.ManualCount++
		} else {
			st.AutomaticCount++
		}
	}
	if len(records) > 0 {
		newest := records[0].CreatedAt
		oldest := records[len(records)-1].CreatedAt
		st.NewestBackupAt = &newest
		st.OldestBackupAt = &oldest
	}

	s.stateMu.Lock()
	st.LastBackupAt = s.state.LastBackupAt
	s.stateMu.Unlock()

	return st, nil
}
