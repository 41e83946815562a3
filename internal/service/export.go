// Package service contains the business logic of the thesis export pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/titulapp/thesis-api/internal/archive"
	"github.com/titulapp/thesis-api/internal/core"
	"github.com/titulapp/thesis-api/internal/domain/model"
	apperrors "github.com/titulapp/thesis-api/internal/errors"
	"github.com/titulapp/thesis-api/internal/observability/statsd"
)

// ErrJobEvicted is returned inside the runner when the sweep removed the
// job's registry entry mid-flight. The runner aborts instead of mutating an
// orphaned record.
var ErrJobEvicted = errors.New("export job evicted from registry")

const (
	defaultFetchTimeout = 60 * time.Second
	// downloadPathFormat is where a completed archive can be fetched.
	downloadPathFormat = "/api/export/jobs/%s/download"
)

// ExportServiceOptions groups dependencies for ExportService.
type ExportServiceOptions struct {
	Registry *ExportRegistry   // Required: shared job registry
	Lister   core.RecordLister // Required: thesis enumeration
	Gateway  core.FileGateway  // Required: remote storage provider
	Logger   *slog.Logger      // Optional: structured logger
	Metrics  statsd.Sink       // Optional: metrics sink
	// FetchTimeout bounds each per-record gateway interaction so one
	// unresponsive fetch cannot stall the whole job. Defaults to 60s.
	FetchTimeout time.Duration
}

// ExportService drives bulk export jobs end to end.
//
// This service manages:
// - Job creation and fire-and-forget runner launch
// - The sequential per-record fetch loop with legacy-URL fallback
// - Archive assembly and finalization
// - Poll snapshots and result retrieval.
type ExportService struct {
	registry     *ExportRegistry
	lister       core.RecordLister
	gateway      core.FileGateway
	logger       *slog.Logger
	metrics      statsd.Sink
	fetchTimeout time.Duration
}

// NewExportService constructs a new ExportService.
func NewExportService(opts ExportServiceOptions) (*ExportService, error) {
	if opts.Registry == nil {
		return nil, errors.New("ExportRegistry is required")
	}
	if opts.Lister == nil {
		return nil, errors.New("RecordLister is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("FileGateway is required")
	}

	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "export_service")
		logger.Debug("ExportService initialized", "fetch_timeout", timeout)
	}

	return &ExportService{
		registry:     opts.Registry,
		lister:       opts.Lister,
		gateway:      opts.Gateway,
		logger:       logger,
		metrics:      opts.Metrics,
		fetchTimeout: timeout,
	}, nil
}

// MustNewExportService constructs a new ExportService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewExportService(opts ExportServiceOptions) *ExportService {
	svc, err := NewExportService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create ExportService: %v", err))
	}
	return svc
}

// Start registers a fresh job and launches its runner in the background. The
// caller gets the job id immediately; the runner's only obligation is to
// eventually drive the record to a terminal state, which the recover boundary
// in runGuarded enforces even for bugs.
func (s *ExportService) Start(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if _, err := s.registry.Create(id); err != nil {
		return "", fmt.Errorf("register export job: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "export job started", "job_id", id)
	}
	s.emitJobMetric("started")

	// The runner outlives the triggering request.
	go s.runGuarded(context.WithoutCancel(ctx), id)

	return id, nil
}

// runGuarded is the top-level boundary around one job run. Anything escaping
// the run, including panics, lands the job in the error state rather than
// leaving it stuck in processing forever.
func (s *ExportService) runGuarded(ctx context.Context, id string) {
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("unexpected failure: %v", rec)
			s.failJob(ctx, id, msg)
		}
	}()

	if err := s.run(ctx, id); err != nil {
		if errors.Is(err, ErrJobEvicted) {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "export job evicted mid-run, aborting", "job_id", id)
			}
			return
		}
		s.failJob(ctx, id, err.Error())
	}
}

// run executes the export algorithm for one job. Per-record failures are
// absorbed into the job's error list; only job-fatal conditions return an
// error.
func (s *ExportService) run(ctx context.Context, id string) error {
	if !s.registry.Transition(id, model.ExportStatusProcessing) {
		return ErrJobEvicted
	}

	records, err := s.lister.ListWithStorageHandle(ctx)
	if err != nil {
		return fmt.Errorf("list eligible records: %w", err)
	}
	if len(records) == 0 {
		s.failJob(ctx, id, "no eligible records")
		return nil
	}

	if !s.registry.Update(id, func(j *model.ExportJob) { j.Total = len(records) }) {
		return ErrJobEvicted
	}

	builder := archive.NewBuilder()
	for _, rec := range records {
		if err := s.processRecord(ctx, id, rec, builder); err != nil {
			return err
		}
	}

	if !s.registry.Update(id, func(j *model.ExportJob) { j.CurrentRecordName = "" }) {
		return ErrJobEvicted
	}
	if !s.registry.Transition(id, model.ExportStatusGenerating) {
		return ErrJobEvicted
	}

	if builder.Len() == 0 {
		s.failJob(ctx, id, "no files could be downloaded")
		return nil
	}

	buf, err := builder.Finalize()
	if err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	if !s.registry.Complete(id, buf) {
		return ErrJobEvicted
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "export job completed",
			"job_id", id,
			"records", len(records),
			"archive_bytes", len(buf),
		)
	}
	s.emitJobMetric("completed")
	return nil
}

// processRecord fetches one thesis file and folds the outcome into the job
// state and the archive. A failed record never aborts the loop.
func (s *ExportService) processRecord(
	ctx context.Context,
	id string,
	rec model.ThesisRecord,
	builder *archive.Builder,
) error {
	if !s.registry.Update(id, func(j *model.ExportJob) {
		j.Current++
		j.CurrentRecordName = rec.Name
	}) {
		return ErrJobEvicted
	}

	data, fetchErr := s.fetchRecord(ctx, rec)
	if fetchErr == nil {
		fetchErr = builder.Add(archive.EntryName(rec.ID, rec.Name), data)
	}

	if fetchErr != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "record fetch failed",
				"job_id", id,
				"record_id", rec.ID,
				"record_name", rec.Name,
				"error", fetchErr,
			)
		}
		if logErr := builder.AddErrorLog(rec.ID, rec.Name, fetchErr.Error()); logErr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "error log entry failed", "job_id", id, "error", logErr)
		}
		if !s.registry.Update(id, func(j *model.ExportJob) {
			j.ErrorCount++
			j.Errors = append(j.Errors, model.ExportError{
				RecordID:   rec.ID,
				RecordName: rec.Name,
				Message:    fetchErr.Error(),
			})
		}) {
			return ErrJobEvicted
		}
		s.emitRecordMetric("error")
		return nil
	}

	if !s.registry.Update(id, func(j *model.ExportJob) { j.SuccessCount++ }) {
		return ErrJobEvicted
	}
	s.emitRecordMetric("success")
	return nil
}

// fetchRecord attempts the primary gateway path and falls back to the
// record's legacy direct URL. Empty payloads count as failures.
func (s *ExportService) fetchRecord(ctx context.Context, rec model.ThesisRecord) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	data, primaryErr := s.fetchPrimary(fetchCtx, rec)
	if primaryErr == nil && len(data) > 0 {
		return data, nil
	}
	if primaryErr == nil {
		primaryErr = errors.New("downloaded file is empty")
	}

	if !rec.HasLegacyURL() {
		return nil, primaryErr
	}

	data, legacyErr := s.gateway.FetchBytes(fetchCtx, *rec.LegacyURL)
	if legacyErr != nil {
		return nil, fmt.Errorf("primary: %v; legacy: %w", primaryErr, legacyErr)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("primary: %v; legacy: downloaded file is empty", primaryErr)
	}
	return data, nil
}

func (s *ExportService) fetchPrimary(ctx context.Context, rec model.ThesisRecord) ([]byte, error) {
	link, err := s.gateway.ResolveDownloadLink(ctx, rec.StorageHandle)
	if err != nil {
		return nil, err
	}
	return s.gateway.FetchBytes(ctx, link)
}

// failJob moves the job to the terminal error state and emits metrics. An
// already-swept job is logged and dropped.
func (s *ExportService) failJob(ctx context.Context, id, message string) {
	if !s.registry.Fail(id, message) {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "cannot fail export job (evicted or terminal)", "job_id", id)
		}
		return
	}
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "export job failed", "job_id", id, "error", message)
	}
	s.emitJobMetric("error")
}

// Snapshot returns a poll projection of the job, or NotFound.
func (s *ExportService) Snapshot(jobID string) (model.ExportSnapshot, error) {
	snap, ok := s.registry.Snapshot(jobID, fmt.Sprintf(downloadPathFormat, jobID))
	if !ok {
		return model.ExportSnapshot{}, apperrors.NotFoundf("export job %s not found", jobID)
	}
	return snap, nil
}

// GetResult returns the finished archive. Repeated calls on a completed job
// return the same buffer; reading never consumes it.
func (s *ExportService) GetResult(jobID string) ([]byte, error) {
	buf, status, progress, ok := s.registry.Result(jobID)
	if !ok {
		return nil, apperrors.NotFoundf("export job %s not found", jobID)
	}
	if status != model.ExportStatusCompleted {
		return nil, apperrors.NotReadyf("export job is %s (%d%%)", status, progress)
	}
	if len(buf) == 0 {
		// Should be unreachable given the registry invariants.
		return nil, apperrors.Unavailable("archive buffer missing for completed job")
	}
	return buf, nil
}

func (s *ExportService) emitJobMetric(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Count("export.jobs", 1, map[string]string{"result": result})
}

func (s *ExportService) emitRecordMetric(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Count("export.records", 1, map[string]string{"result": result})
}
