package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportStatus_Valid(t *testing.T) {
	valid := []ExportStatus{
		ExportStatusPending,
		ExportStatusProcessing,
		ExportStatusGenerating,
		ExportStatusCompleted,
		ExportStatusError,
	}
	for _, s := range valid {
		assert.True(t, s.Valid(), "expected %q to be valid", s)
	}

	assert.False(t, ExportStatus("").Valid())
	assert.False(t, ExportStatus("done").Valid())
}

func TestExportStatus_Terminal(t *testing.T) {
	assert.True(t, ExportStatusCompleted.Terminal())
	assert.True(t, ExportStatusError.Terminal())
	assert.False(t, ExportStatusPending.Terminal())
	assert.False(t, ExportStatusProcessing.Terminal())
	assert.False(t, ExportStatusGenerating.Terminal())
}

func TestExportStatus_UnmarshalText(t *testing.T) {
	var s ExportStatus
	require.NoError(t, s.UnmarshalText([]byte("  Processing ")))
	assert.Equal(t, ExportStatusProcessing, s)

	err := s.UnmarshalText([]byte("finished"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ExportStatus")
}

func TestExportStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from ExportStatus
		to   ExportStatus
		want bool
	}{
		{"pending to processing", ExportStatusPending, ExportStatusProcessing, true},
		{"processing to generating", ExportStatusProcessing, ExportStatusGenerating, true},
		{"generating to completed", ExportStatusGenerating, ExportStatusCompleted, true},
		{"pending to error", ExportStatusPending, ExportStatusError, true},
		{"processing to error", ExportStatusProcessing, ExportStatusError, true},
		{"generating to error", ExportStatusGenerating, ExportStatusError, true},
		{"no skipping to completed", ExportStatusPending, ExportStatusCompleted, false},
		{"no skipping to generating", ExportStatusPending, ExportStatusGenerating, false},
		{"no backward move", ExportStatusGenerating, ExportStatusProcessing, false},
		{"completed is final", ExportStatusCompleted, ExportStatusError, false},
		{"error is final", ExportStatusError, ExportStatusProcessing, false},
		{"invalid source", ExportStatus("bogus"), ExportStatusProcessing, false},
		{"invalid target", ExportStatusPending, ExportStatus("bogus"), false},
		{"no self transition", ExportStatusProcessing, ExportStatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewExportJob(t *testing.T) {
	now := time.Now()
	job := NewExportJob("job-1", now)

	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, ExportStatusPending, job.Status)
	assert.Equal(t, now, job.CreatedAt)
	assert.Zero(t, job.Total)
	assert.Zero(t, job.Current)
	assert.Nil(t, job.ArchiveBuffer)
}

func TestExportJob_Progress(t *testing.T) {
	job := NewExportJob("job-1", time.Now())
	assert.Equal(t, 0, job.Progress(), "zero total yields zero progress")

	job.Total = 4
	job.Current = 1
	assert.Equal(t, 25, job.Progress())

	job.Current = 4
	assert.Equal(t, 100, job.Progress())

	// Never exceeds 100 even if counters drift
	job.Current = 5
	assert.Equal(t, 100, job.Progress())
}

func TestExportJob_Snapshot_CopiesErrors(t *testing.T) {
	job := NewExportJob("job-1", time.Now())
	job.Status = ExportStatusProcessing
	job.Total = 2
	job.Current = 1
	job.Errors = []ExportError{{RecordID: "t1", RecordName: "Thesis One", Message: "boom"}}

	snap := job.Snapshot("/download")
	require.Len(t, snap.Errors, 1)

	// Mutating the job after the snapshot must not leak into the copy
	job.Errors[0].Message = "changed"
	assert.Equal(t, "boom", snap.Errors[0].Message)
}

func TestExportJob_Snapshot_DownloadURLOnlyWhenCompleted(t *testing.T) {
	job := NewExportJob("job-1", time.Now())
	job.Status = ExportStatusProcessing

	snap := job.Snapshot("/api/export/jobs/job-1/download")
	assert.Nil(t, snap.DownloadURL)

	job.Status = ExportStatusCompleted
	snap = job.Snapshot("/api/export/jobs/job-1/download")
	require.NotNil(t, snap.DownloadURL)
	assert.Equal(t, "/api/export/jobs/job-1/download", *snap.DownloadURL)
}

func TestExportSnapshot_JSONShape(t *testing.T) {
	job := NewExportJob("job-1", time.Now())
	job.Status = ExportStatusError
	job.ErrorMessage = "no eligible records"

	data, err := json.Marshal(job.Snapshot(""))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "job-1", decoded["job_id"])
	assert.Equal(t, "error", decoded["status"])
	assert.Equal(t, "no eligible records", decoded["error_message"])
	// download_url is always present so clients can bind to it
	_, present := decoded["download_url"]
	assert.True(t, present)
	// final is omitted on poll snapshots
	_, present = decoded["final"]
	assert.False(t, present)
}
