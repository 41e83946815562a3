package model

import (
	"fmt"
	"strings"
	"time"
)

// ExportStatus represents the current phase of a bulk export job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ExportStatus string

const (
	// ExportStatusPending indicates the job is registered but not yet running.
	ExportStatusPending ExportStatus = "pending"
	// ExportStatusProcessing indicates the job is fetching thesis files.
	ExportStatusProcessing ExportStatus = "processing"
	// ExportStatusGenerating indicates all records were visited and the archive is being finalized.
	ExportStatusGenerating ExportStatus = "generating"
	// ExportStatusCompleted indicates the archive is ready for download.
	ExportStatusCompleted ExportStatus = "completed"
	// ExportStatusError indicates the job failed and will never produce an archive.
	ExportStatusError ExportStatus = "error"
)

// Valid returns true if the ExportStatus is one of the known states.
func (s ExportStatus) Valid() bool {
	switch s {
	case ExportStatusPending, ExportStatusProcessing, ExportStatusGenerating,
		ExportStatusCompleted, ExportStatusError:
		return true
	}
	return false
}

// Terminal returns true once no further mutation of the job may occur.
func (s ExportStatus) Terminal() bool {
	return s == ExportStatusCompleted || s == ExportStatusError
}

// UnmarshalText implements encoding.TextUnmarshaler for ExportStatus.
func (s *ExportStatus) UnmarshalText(text []byte) error {
	v := ExportStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid ExportStatus: %q", string(text))
	}
	*s = v
	return nil
}

// rank orders states along the export state machine. Error is reachable from
// every non-terminal state, so it ranks alongside completed.
func (s ExportStatus) rank() int {
	switch s {
	case ExportStatusPending:
		return 0
	case ExportStatusProcessing:
		return 1
	case ExportStatusGenerating:
		return 2
	case ExportStatusCompleted, ExportStatusError:
		return 3
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next is a forward move in
// the state machine. Transitions never move backward and terminal states
// accept no successor.
func (s ExportStatus) CanTransitionTo(next ExportStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == ExportStatusError {
		return true
	}
	return next.rank() == s.rank()+1
}

// ExportError is one structured per-record failure recorded during a job.
type ExportError struct {
	RecordID   string `json:"record_id"`
	RecordName string `json:"record_name"`
	Message    string `json:"message"`
}

// ExportJob is the mutable state record of one bulk export job. It is owned
// by the registry; all access outside the running job goroutine goes through
// registry methods that hold the registry lock.
type ExportJob struct {
	ID                string
	Status            ExportStatus
	Total             int
	Current           int
	SuccessCount      int
	ErrorCount        int
	Errors            []ExportError
	CurrentRecordName string
	// ErrorMessage holds the fatal failure reason when Status == error.
	ErrorMessage string
	// ArchiveBuffer is set exactly once, when Status reaches completed.
	ArchiveBuffer []byte
	CreatedAt     time.Time
}

// NewExportJob returns a fresh pending job record.
func NewExportJob(id string, now time.Time) *ExportJob {
	return &ExportJob{
		ID:        id,
		Status:    ExportStatusPending,
		CreatedAt: now,
	}
}

// Progress returns the completion percentage in [0, 100].
func (j *ExportJob) Progress() int {
	if j.Total <= 0 {
		return 0
	}
	pct := j.Current * 100 / j.Total
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ExportSnapshot is a read-only point-in-time projection of an ExportJob.
// DownloadURL is non-nil iff the job completed. Final marks the closing frame
// of a push stream and is never set on poll responses.
type ExportSnapshot struct {
	JobID             string        `json:"job_id"`
	Status            ExportStatus  `json:"status"`
	Progress          int           `json:"progress"`
	Total             int           `json:"total"`
	Current           int           `json:"current"`
	SuccessCount      int           `json:"success_count"`
	ErrorCount        int           `json:"error_count"`
	Errors            []ExportError `json:"errors"`
	CurrentRecordName string        `json:"current_record_name,omitempty"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	DownloadURL       *string       `json:"download_url"`
	Final             bool          `json:"final,omitempty"`
}

// Snapshot copies the observable fields of the job. The archive buffer is
// deliberately excluded; it is served only through the result endpoint.
func (j *ExportJob) Snapshot(downloadURL string) ExportSnapshot {
	snap := ExportSnapshot{
		JobID:             j.ID,
		Status:            j.Status,
		Progress:          j.Progress(),
		Total:             j.Total,
		Current:           j.Current,
		SuccessCount:      j.SuccessCount,
		ErrorCount:        j.ErrorCount,
		Errors:            make([]ExportError, len(j.Errors)),
		CurrentRecordName: j.CurrentRecordName,
		ErrorMessage:      j.ErrorMessage,
	}
	copy(snap.Errors, j.Errors)
	if j.Status == ExportStatusCompleted && downloadURL != "" {
		u := downloadURL
		snap.DownloadURL = &u
	}
	return snap
}
