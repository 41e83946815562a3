package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/titulapp/thesis-api/config"
	"github.com/titulapp/thesis-api/internal/adapters/filegateway"
	"github.com/titulapp/thesis-api/internal/core"
	"github.com/titulapp/thesis-api/internal/data"
	"github.com/titulapp/thesis-api/internal/observability/statsd"
	"github.com/titulapp/thesis-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Export        *service.ExportService
	Sweeper       *service.ExportSweeperService
	Registry      *service.ExportRegistry
	Theses        *data.ThesisRepo
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// newLinkCache wraps the redis client into a link cache when redis is
// configured. A nil cache means download links are resolved on every fetch.
func newLinkCache(client redis.UniversalClient) core.LinkCache {
	if client == nil {
		return nil
	}
	return data.NewRedisLinkCache(client)
}

// NewServices wires repositories, the file gateway and the export services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, errors.New("service dependencies are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	observability := buildObservability(logger, appCfg.Observability)

	thesisRepo := data.NewThesisRepo(deps.DB)

	gateway, err := filegateway.New(filegateway.Options{
		BaseURL:   appCfg.Storage.BaseURL,
		AppKey:    appCfg.Storage.AppKey,
		Logger:    logger,
		LinkCache: newLinkCache(deps.RedisClient),
		LinkTTL:   appCfg.Storage.LinkTTL,
		LinkExpr:  appCfg.Storage.LinkExpr,
		UserAgent: appCfg.Storage.UserAgent,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	registry := service.NewExportRegistry()

	exportSvc := service.MustNewExportService(service.ExportServiceOptions{
		Registry:     registry,
		Lister:       thesisRepo,
		Gateway:      gateway,
		Logger:       logger,
		Metrics:      metricsOrNil(observability.MetricsSink),
		FetchTimeout: appCfg.Export.FetchTimeout,
	})

	sweeper := service.MustNewExportSweeperService(service.ExportSweeperServiceOptions{
		Registry: registry,
		Config:   appCfg.Export,
		Logger:   logger,
		Metrics:  metricsOrNil(observability.MetricsSink),
	})

	return ServiceContainer{
		Export:        exportSvc,
		Sweeper:       sweeper,
		Registry:      registry,
		Theses:        thesisRepo,
		Observability: observability,
	}, nil
}

// metricsOrNil avoids handing services a typed-nil sink.
//
//nolint:ireturn // services take the statsd.Sink interface.
func metricsOrNil(client *statsd.Client) statsd.Sink {
	if client == nil {
		return nil
	}
	return client
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
const shutdownWaitTimeout = 15 * time.Second

// RunServicesWithShutdown starts the HTTP server and the registry sweeper and
// manages their lifecycle. Blocks until a shutdown signal is received or a
// background service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, groupCtx := errgroup.WithContext(serviceCtx)
	group.Go(func() error {
		return cfg.Services.Sweeper.Run(groupCtx)
	})

	server := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		logger.Info("shutting down services...")
	case <-groupCtx.Done():
		logger.Error("background service failed", "error", context.Cause(groupCtx))
	}

	cancel()
	return gracefulStop(cfg, server, group, logger)
}

// gracefulStop stops the HTTP server, waits for the sweeper and closes the
// metrics sink.
func gracefulStop(
	cfg *ServiceOrchestrationConfig,
	server *http.Server,
	group *errgroup.Group,
	logger *slog.Logger,
) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
	defer cancel()

	shutdownErr := ShutdownHTTPServer(ShutdownConfig{
		Context: shutdownCtx,
		Server:  server,
		Logger:  logger,
	})

	waitErr := group.Wait()
	if waitErr != nil {
		logger.Error("background service error", "error", waitErr)
	}

	if sink := cfg.Services.Observability.MetricsSink; sink != nil {
		if err := sink.Close(); err != nil {
			logger.Warn("failed to close metrics sink", "error", err)
		}
	}

	return errors.Join(shutdownErr, waitErr)
}
