// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

// Package metrics provides Prometheus instrumentation for the backup
// subsystem and the HTTP control API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backup Metrics

	// BackupsTotal counts finished backup attempts by trigger and result.
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liftlog_backups_total",
			Help: "Total number of backup attempts",
		},
		[]string{"trigger", "result"}, // trigger: manual|automatic, result: success|failure
	)

	// BackupDuration observes how long archive creation takes.
	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "liftlog_backup_duration_seconds",
			Help:    "Duration of backup archive creation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// BackupSizeBytes is the size of the most recent archive.
	BackupSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "liftlog_backup_size_bytes",
			Help: "Size of the most recently written backup archive in bytes",
		},
	)

	// BackupsPrunedTotal counts archives removed by the retention policy.
	BackupsPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "liftlog_backups_pruned_total",
			Help: "Total number of backup archives deleted by retention",
		},
	)

	// RestoresTotal counts restore attempts by result.
	RestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liftlog_restores_total",
			Help: "Total number of restore attempts",
		},
		[]string{"result"},
	)

	// LastBackupTimestamp is the unix time of the last successful backup.
	LastBackupTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "liftlog_last_backup_timestamp_seconds",
			Help: "Unix timestamp of the last successful backup",
		},
	)

	// API Metrics

	// APIRequestsTotal counts HTTP requests by method, path and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liftlog_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration observes HTTP handler latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "liftlog_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RecordBackup records a finished backup attempt.
func RecordBackup(manual bool, err error, duration time.Duration, sizeBytes int64) {
	trigger := "automatic"
	if manual {
		trigger = "manual"
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	BackupsTotal.WithLabelValues(trigger, result).Inc()
	BackupDuration.Observe(duration.Seconds())
	if err == nil {
		BackupSizeBytes.Set(float64(sizeBytes))
		LastBackupTimestamp.SetToCurrentTime()
	}
}

// RecordRestore records a finished restore attempt.
func RecordRestore(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	RestoresTotal.WithLabelValues(result).Inc()
}

// RecordAPIRequest records a finished HTTP request.
func RecordAPIRequest(method, path string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
