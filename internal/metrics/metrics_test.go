// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBackupSuccess(t *testing.T) {
	before := testutil.ToFloat64(BackupsTotal.WithLabelValues("manual", "success"))

	RecordBackup(true, nil, 120*time.Millisecond, 4096)

	after := testutil.ToFloat64(BackupsTotal.WithLabelValues("manual", "success"))
	if after != before+1 {
		t.Errorf("manual success count = %v, want %v", after, before+1)
	}
	if got := testutil.ToFloat64(BackupSizeBytes); got != 4096 {
		t.Errorf("BackupSizeBytes = %v, want 4096", got)
	}
	if got := testutil.ToFloat64(LastBackupTimestamp); got == 0 {
		t.Error("LastBackupTimestamp not set after successful backup")
	}
}

func TestRecordBackupFailureLeavesGauges(t *testing.T) {
	RecordBackup(true, nil, time.Millisecond, 1000)
	size := testutil.ToFloat64(BackupSizeBytes)

	before := testutil.ToFloat64(BackupsTotal.WithLabelValues("automatic", "failure"))
	RecordBackup(false, errors.New("disk full"), time.Millisecond, 0)
	after := testutil.ToFloat64(BackupsTotal.WithLabelValues("automatic", "failure"))

	if after != before+1 {
		t.Errorf("automatic failure count = %v, want %v", after, before+1)
	}
	if got := testutil.ToFloat64(BackupSizeBytes); got != size {
		t.Errorf("BackupSizeBytes changed on failure: %v, want %v", got, size)
	}
}

func TestRecordRestore(t *testing.T) {
	before := testutil.ToFloat64(RestoresTotal.WithLabelValues("failure"))
	RecordRestore(errors.New("bad archive"))
	after := testutil.ToFloat64(RestoresTotal.WithLabelValues("failure"))
	if after != before+1 {
		t.Errorf("restore failure count = %v, want %v", after, before+1)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/backups", "200"))
	RecordAPIRequest("GET", "/api/v1/backups", 200, 5*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/backups", "200"))
	if after != before+1 {
		t.Errorf("api request count = %v, want %v", after, before+1)
	}
}
