// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package backup

import (
	"context"
	"time"

	"github.com/liftlogapp/liftlog/internal/logging"
)

// Scheduler drives automatic backups. It implements suture.Service
// and is run under the application's supervision tree; each tick asks
// the service whether a backup is due and lets it do the rest.
type Scheduler struct {
	service      *Service
	tickInterval time.Duration
}

// NewScheduler returns a scheduler ticking at the given interval.
func NewScheduler(service *Service, tickInterval time.Duration) *Scheduler {
	return &Scheduler{
		service:      service,
		tickInterval: tickInterval,
	}
}

// Serve runs the scheduler loop until the context is canceled. The
// first check runs immediately so a long-overdue backup does not wait
// a full tick after startup.
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().
		Dur("tick_interval", s.tickInterval).
		Str("frequency", string(s.service.policy.Frequency)).
		Msg("Backup scheduler started")

	s.service.PerformAutomaticBackupIfNeeded(ctx)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Backup scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.service.PerformAutomaticBackupIfNeeded(ctx)
		}
	}
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "backup-scheduler"
}
