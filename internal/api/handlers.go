// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package api

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/liftlogapp/liftlog/internal/backup"
	"github.com/liftlogapp/liftlog/internal/logging"
)

// maxImportSize caps uploaded archives at 1 GiB; a workout store is
// orders of magnitude smaller.
const maxImportSize = 1 << 30

// Pinger reports store liveness for the health endpoint. *store.DB
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the backup control endpoints.
type Handler struct {
	service *backup.Service
	db      Pinger
	version string
	started time.Time
}

// NewHandler returns a handler over the given backup service. db may
// be nil when no live store handle exists.
func NewHandler(service *backup.Service, db Pinger, version string) *Handler {
	return &Handler{
		service: service,
		db:      db,
		version: version,
		started: time.Now(),
	}
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	StoreOK       bool    `json:"store_ok"`
}

// Health reports process and store liveness.
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: time.Since(h.started).Seconds(),
		StoreOK:       true,
	}
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.StoreOK = false
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respondSuccess(w, status, resp)
}

// CreateBackupRequest is the request body for creating a backup.
type CreateBackupRequest struct {
	Manual bool `json:"manual"`
}

// CreateBackup exports the store into the backup directory.
// POST /api/v1/backups
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	req := CreateBackupRequest{Manual: true}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON", err)
			return
		}
	}

	rec, err := h.service.CreateBackup(r.Context(), req.Manual)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, rec)
}

// ListBackups returns the catalog contents, newest first.
// GET /api/v1/backups
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListBackups()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if records == nil {
		records = []backup.Record{}
	}
	respondSuccess(w, http.StatusOK, records)
}

// BackupStats summarizes the backup subsystem.
// GET /api/v1/backups/stats
func (h *Handler) BackupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, stats)
}

// DeleteBackup removes a named backup.
// DELETE /api/v1/backups/{name}
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.service.DeleteBackup(name); err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"deleted": name})
}

// DownloadBackup streams a named archive to the client.
// GET /api/v1/backups/{name}/download
func (h *Handler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rec, err := h.service.Catalog().Resolve(name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+rec.Name+`"`)
	http.ServeFile(w, r, rec.Path)
}

// RestoreBackup replaces the live store from a named backup. A 200
// response means the store was replaced and the process must restart
// before it serves workout data again.
// POST /api/v1/backups/{name}/restore
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	outcome, err := h.service.RestoreBackup(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, outcome)
}

// ExportArchive builds an archive of the current store and streams it
// to the client.
// GET /api/v1/export
func (h *Handler) ExportArchive(w http.ResponseWriter, r *http.Request) {
	tmpDir, err := os.MkdirTemp("", "liftlog-export-*")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "IO_ERROR", "Could not allocate export scratch space", err)
		return
	}
	defer os.RemoveAll(tmpDir)

	name := backup.FileName(true, time.Now())
	path := filepath.Join(tmpDir, name)
	if err := h.service.ExportTo(r.Context(), path); err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

// ImportArchive restores the store from an uploaded archive.
// POST /api/v1/import
func (h *Handler) ImportArchive(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportSize)
	defer body.Close()

	tmp, err := os.CreateTemp("", "liftlog-import-*.llbk")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "IO_ERROR", "Could not allocate import scratch space", err)
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		respondError(w, http.StatusBadRequest, "UPLOAD_FAILED", "Failed to read uploaded archive", err)
		return
	}
	if err := tmp.Close(); err != nil {
		respondError(w, http.StatusInternalServerError, "IO_ERROR", "Failed to store uploaded archive", err)
		return
	}

	outcome, err := h.service.ImportArchive(r.Context(), tmpPath)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().Msg("Archive imported via API")
	respondSuccess(w, http.StatusOK, outcome)
}
