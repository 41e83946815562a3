// Package httpx provides HTTP handlers and utilities for the thesis export API.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/titulapp/thesis-api/internal/domain/model"
	apperrors "github.com/titulapp/thesis-api/internal/errors"
	"github.com/titulapp/thesis-api/internal/service"
)

const defaultStreamInterval = 500 * time.Millisecond

// ExportHandlers provides HTTP handlers for bulk export operations.
type ExportHandlers struct {
	Svc *service.ExportService
	// StreamInterval is the emission period of the progress push stream.
	// Defaults to 500ms when zero.
	StreamInterval time.Duration
}

// StartExport handles HTTP requests to launch a new bulk export job. The job
// runs in the background; the response carries only the job id.
func (h *ExportHandlers) StartExport(w http.ResponseWriter, r *http.Request) {
	jobID, err := h.Svc.Start(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "start_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// GetProgress handles HTTP requests for a point-in-time job snapshot.
func (h *ExportHandlers) GetProgress(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	snap, err := h.Svc.Snapshot(jobID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "get_progress_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, snap)
}

// GetResult handles HTTP requests to download the finished archive.
func (h *ExportHandlers) GetResult(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	buf, err := h.Svc.GetResult(jobID)
	if err != nil {
		h.writeResultError(w, jobID, err)
		return
	}

	filename := fmt.Sprintf("theses_export_%s.zip", jobID)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, werr := w.Write(buf); werr != nil {
		// Client disconnects while streaming are not recoverable here.
		return
	}
}

// writeResultError maps result-retrieval failures onto the documented status
// codes. NotReady responses additionally carry the current status and progress.
func (h *ExportHandlers) writeResultError(w http.ResponseWriter, jobID string, err error) {
	switch {
	case apperrors.IsNotFound(err):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: err})
	case apperrors.IsNotReady(err):
		body := map[string]any{"error": "not_ready", "message": err.Error()}
		if snap, serr := h.Svc.Snapshot(jobID); serr == nil {
			body["status"] = snap.Status
			body["progress"] = snap.Progress
		}
		WriteJSON(w, http.StatusBadRequest, body)
	case apperrors.IsUnavailable(err):
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "archive_unavailable", Err: err})
	default:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "get_result_failed", Err: err})
	}
}

// StreamProgress handles the SSE push stream of job snapshots. One snapshot
// is emitted immediately; afterwards a snapshot is emitted on the configured
// interval whenever status, progress or current changed. Terminal snapshots
// are always emitted and followed by exactly one final-marked snapshot, after
// which the server closes the stream.
func (h *ExportHandlers) StreamProgress(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "streaming_unsupported",
			Err:     errors.New("response writer does not support streaming"),
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	stream := &progressStream{w: w, flusher: flusher}

	snap, err := h.Svc.Snapshot(jobID)
	if err != nil {
		stream.sendError("job not found")
		return
	}
	stream.send(snap)
	if snap.Status.Terminal() {
		stream.sendFinal(snap)
		return
	}

	interval := h.StreamInterval
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := snap
	for {
		select {
		case <-r.Context().Done():
			// Client went away; stop emitting. The job itself keeps running.
			return
		case <-ticker.C:
			cur, err := h.Svc.Snapshot(jobID)
			if err != nil {
				// Swept mid-stream.
				stream.sendError("job not found")
				return
			}
			if cur.Status.Terminal() {
				stream.send(cur)
				stream.sendFinal(cur)
				return
			}
			if cur.Status != last.Status || cur.Progress != last.Progress || cur.Current != last.Current {
				stream.send(cur)
				last = cur
			}
		}
	}
}

// progressStream writes server-sent events for one subscriber connection.
type progressStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *progressStream) send(snap model.ExportSnapshot) {
	writeSSEData(s.w, snap)
	s.flusher.Flush()
}

func (s *progressStream) sendFinal(snap model.ExportSnapshot) {
	snap.Final = true
	writeSSEData(s.w, snap)
	s.flusher.Flush()
}

func (s *progressStream) sendError(message string) {
	fmt.Fprintf(s.w, "event: error\ndata: {\"error\": %q}\n\n", message)
	s.flusher.Flush()
}
