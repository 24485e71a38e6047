// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package api

import (
	"errors"
	"net/http"

	"github.com/liftlogapp/liftlog/internal/archive"
	"github.com/liftlogapp/liftlog/internal/backup"
	"github.com/liftlogapp/liftlog/internal/store"
)

// respondServiceError translates backup subsystem errors into HTTP
// responses. Manual operations surface their errors verbatim with a
// displayable message.
func respondServiceError(w http.ResponseWriter, err error) {
	var formatErr *archive.FormatError

	switch {
	case errors.Is(err, backup.ErrAlreadyInProgress):
		respondError(w, http.StatusConflict, "ALREADY_IN_PROGRESS", "Another operation of this kind is still running", err)
	case errors.Is(err, backup.ErrBackupNotFound):
		respondError(w, http.StatusNotFound, "BACKUP_NOT_FOUND", "No such backup", err)
	case errors.Is(err, store.ErrStoreNotFound):
		respondError(w, http.StatusNotFound, "STORE_NOT_FOUND", "No workout store exists at the configured location", err)
	case errors.As(err, &formatErr):
		respondError(w, http.StatusUnprocessableEntity, "INVALID_ARCHIVE", formatErr.Error(), err)
	case errors.Is(err, archive.ErrBadHeader), errors.Is(err, archive.ErrTruncated), errors.Is(err, archive.ErrIncompatibleVersion):
		respondError(w, http.StatusUnprocessableEntity, "INVALID_ARCHIVE", err.Error(), err)
	case errors.Is(err, backup.ErrAccess):
		respondError(w, http.StatusForbidden, "ACCESS_DENIED", err.Error(), err)
	case errors.Is(err, backup.ErrIO):
		respondError(w, http.StatusInternalServerError, "IO_ERROR", err.Error(), err)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
	}
}
