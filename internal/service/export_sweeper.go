package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/titulapp/thesis-api/config"
	"github.com/titulapp/thesis-api/internal/observability/statsd"
)

// ExportSweeperServiceOptions groups dependencies for ExportSweeperService.
type ExportSweeperServiceOptions struct {
	Registry *ExportRegistry     // Required: shared job registry
	Config   config.ExportConfig // Required: retention and sweep interval
	Logger   *slog.Logger        // Optional: structured logger
	Metrics  statsd.Sink         // Optional: metrics sink (StatsD-compatible)
}

// ExportSweeperService removes stale export job records from the registry.
// Records are swept on age alone, regardless of status; a runner whose entry
// is swept notices on its next registry access and aborts.
type ExportSweeperService struct {
	registry *ExportRegistry
	config   config.ExportConfig
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewExportSweeperService constructs a new ExportSweeperService.
func NewExportSweeperService(opts ExportSweeperServiceOptions) (*ExportSweeperService, error) {
	if opts.Registry == nil {
		return nil, errors.New("ExportRegistry is required")
	}
	if opts.Config.SweepInterval <= 0 {
		return nil, errors.New("SweepInterval must be positive")
	}
	if opts.Config.Retention <= 0 {
		return nil, errors.New("Retention must be positive")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "export_sweeper")
		logger.Debug("ExportSweeperService initialized",
			"interval", opts.Config.SweepInterval,
			"retention", opts.Config.Retention,
		)
	}

	return &ExportSweeperService{
		registry: opts.Registry,
		config:   opts.Config,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// MustNewExportSweeperService constructs a new ExportSweeperService and
// panics on error.
func MustNewExportSweeperService(opts ExportSweeperServiceOptions) *ExportSweeperService {
	svc, err := NewExportSweeperService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create ExportSweeperService: %v", err))
	}
	return svc
}

// Run starts the sweep loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ExportSweeperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting export sweeper", "interval", s.config.SweepInterval)
	}

	// Jitter prevents synchronized sweeps when multiple instances restart together.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "export sweeper stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// sweepOnce runs one sweep pass and reports the outcome.
func (s *ExportSweeperService) sweepOnce(ctx context.Context) {
	start := time.Now()
	removed := s.registry.Sweep(s.config.Retention)
	elapsed := time.Since(start)

	if removed > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "swept stale export jobs",
			"count", removed,
			"retention", s.config.Retention,
			"remaining", s.registry.Len(),
		)
	}

	if s.metrics != nil {
		result := "noop"
		if removed > 0 {
			result = "success"
		}
		tags := map[string]string{"result": result}
		s.metrics.Count("export.sweep", 1, tags)
		if removed > 0 {
			s.metrics.Count("export.sweep_removed", int64(removed), nil)
		}
		s.metrics.Timing("export.sweep_duration", elapsed, tags)
	}
}

// waitWithJitter delays startup by up to 10% of the sweep interval.
func (s *ExportSweeperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.SweepInterval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}
