package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shoaibzaak/visa-docverify/internal/config"
	"github.com/Shoaibzaak/visa-docverify/internal/core/ports"
	"github.com/Shoaibzaak/visa-docverify/internal/core/usecase"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/fraudapi"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/imageinfo"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/queue/nats"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/resilience"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/storage/localfs"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/storage/s3"
	"github.com/Shoaibzaak/visa-docverify/internal/observability/metrics"
)

const serviceName = "docverify"

type App struct {
	Config config.Config
	Logger *slog.Logger

	Registry    *usecase.DocumentRegistry
	Intake      *usecase.IntakeUseCase
	Coordinator *usecase.AnalysisCoordinator
	Notices     *usecase.NoticeBoard
	Executor    *resilience.Executor
	Metrics     *metrics.HTTPServerMetrics

	// Events is nil when NATS_URL is empty.
	Events *nats.Publisher
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	storage, err := newBlobStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init preview storage: %w", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	analysisMetrics := metrics.NewAnalysisMetrics(serviceName, httpMetrics.Registry())

	executor := resilience.NewExecutor(analyzerResilience(cfg), logger)
	analyzer := fraudapi.New(cfg.FraudAPIURL, fraudapi.Options{
		AnalyzePath: cfg.FraudAPIPath,
		Timeout:     cfg.FraudAPITimeout,
		Executor:    executor,
	})

	var (
		events    *nats.Publisher
		publisher ports.AnalysisEventPublisher
	)
	if cfg.NATSURL != "" {
		events, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.PublishConfig(), logger),
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init analysis events: %w", err)
		}
		publisher = events
	}

	registry := usecase.NewDocumentRegistry(storage,
		usecase.WithImageInspector(imageinfo.New()),
		usecase.WithRegistryLogger(logger),
	)
	notices := usecase.NewNoticeBoard(cfg.ValidationNoticeTTL)
	intake := usecase.NewIntakeUseCase(usecase.NewFileValidator(), registry, notices, analysisMetrics, logger)
	coordinator := usecase.NewAnalysisCoordinator(registry, analyzer, usecase.CoordinatorOptions{
		MaxConcurrency: cfg.AnalysisMaxConcurrency,
		Publisher:      publisher,
		Recorder:       analysisMetrics,
		Logger:         logger,
	})

	return &App{
		Config:      cfg,
		Logger:      logger,
		Registry:    registry,
		Intake:      intake,
		Coordinator: coordinator,
		Notices:     notices,
		Executor:    executor,
		Metrics:     httpMetrics,
		Events:      events,
	}, nil
}

// Close waits for background analyses, then releases every preview and the
// event connection.
func (a *App) Close(ctx context.Context) error {
	err := a.Coordinator.Shutdown(ctx)
	a.Registry.Close(context.WithoutCancel(ctx))
	if a.Events != nil {
		a.Events.Close()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("analyses still running at shutdown: %w", err)
	}
	return err
}

func newBlobStorage(ctx context.Context, cfg config.Config) (ports.BlobStorage, error) {
	switch cfg.StorageBackend {
	case "", "localfs":
		return localfs.New(cfg.StoragePath)
	case "s3":
		return s3.New(ctx, s3.Options{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func analyzerResilience(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.BreakerEnabled = cfg.BreakerEnabled
	if cfg.BreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.BreakerMinRequests)
	}
	out.BreakerFailureRatio = cfg.BreakerFailureRatio
	out.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	return out
}
