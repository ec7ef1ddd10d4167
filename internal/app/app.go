package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"CatalogNotifier/internal/channel"
	"CatalogNotifier/internal/config"
	"CatalogNotifier/internal/dispatch"
	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/infrastructure/kafkabus"
	"CatalogNotifier/internal/infrastructure/mail"
	"CatalogNotifier/internal/infrastructure/natsbus"
	"CatalogNotifier/internal/infrastructure/scheduler"
	"CatalogNotifier/internal/infrastructure/storage"
	"CatalogNotifier/internal/infrastructure/telegram"
	"CatalogNotifier/internal/logging"
	"CatalogNotifier/internal/metrics"
	"CatalogNotifier/internal/ports"
	"CatalogNotifier/internal/render"
	"CatalogNotifier/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	channel   ports.MessageChannel
	registry  *prometheus.Registry
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	cron      *scheduler.CronScheduler
}

// New connects to the database, builds the configured channel and wires the pipeline.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, dialect, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ch, err := Channels(ctx, baseLogger).Build(cfg.Channel.Kind, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.NewPrometheus(registry, "")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	dispatcher := dispatch.New(dispatch.Deps{
		Directory: storage.NewCustomerDirectory(db, dialect, storage.ContactFieldFor(cfg.Channel.Kind)),
		Channel:   ch,
		Renderer:  render.NewHTMLRenderer(cfg.Notification.Subject),
		Metrics:   collector,
		Workers:   cfg.Pipeline.DispatchWorkers,
		Logger:    baseLogger.With("component", "dispatcher"),
	})

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Catalog:               storage.NewCatalogRepository(db, dialect),
		Subscriptions:         storage.NewSubscriptionRepository(db, dialect),
		Dispatcher:            dispatcher,
		Metrics:               collector,
		Logger:                baseLogger.With("component", "pipeline"),
		CatalogPageSize:       cfg.Pipeline.CatalogPageSize,
		SubscriptionBatchSize: cfg.Pipeline.SubscriptionBatchSize,
		PreloadSubscriptions:  cfg.Pipeline.PreloadSubscriptions,
		Location:              cfg.Scheduler.Location(),
	})

	cron := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger)

	baseLogger.Info("application configured", "config", cfg.String())

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		channel:   ch,
		registry:  registry,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(cron, pipeline, baseLogger.With("component", "scheduler")),
		cron:      cron,
	}, nil
}

// Channels returns the registry of every supported message channel.
func Channels(ctx context.Context, logger *slog.Logger) *channel.Registry {
	r := channel.NewRegistry()
	r.Register("smtp", func(cfg config.Config) (ports.MessageChannel, error) {
		return mail.NewChannel(cfg.SMTP)
	})
	r.Register("telegram", func(cfg config.Config) (ports.MessageChannel, error) {
		return telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.APIURL, nil), nil
	})
	r.Register("nats", func(cfg config.Config) (ports.MessageChannel, error) {
		return natsbus.NewChannel(ctx, cfg.NATS)
	})
	r.Register("kafka", func(cfg config.Config) (ports.MessageChannel, error) {
		return kafkabus.NewChannel(cfg.Kafka)
	})
	r.Register("log", func(config.Config) (ports.MessageChannel, error) {
		return channel.NewLogChannel(logger.With("component", "channel.log")), nil
	})
	return r
}

// RunOnce executes a single run for day, or for today when day is zero.
func (a *Application) RunOnce(ctx context.Context, day time.Time) (domain.RunReport, error) {
	if day.IsZero() {
		return a.pipeline.RunDailyMatch(ctx)
	}
	return a.pipeline.RunForDate(ctx, day)
}

// Serve runs the scheduler and the metrics endpoint until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	var srv *http.Server
	serveErr := make(chan error, 1)

	if a.cfg.Metrics.Address != "" {
		ln, err := net.Listen("tcp", a.cfg.Metrics.Address)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, a.pipeline.State().String())
		})
		srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		a.logger.Info("metrics endpoint listening", "address", ln.Addr().String())
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	if err := a.scheduler.Start(ctx); err != nil {
		if srv != nil {
			_ = srv.Close()
		}
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "next", a.cron.Next())

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		runErr = fmt.Errorf("metrics endpoint: %w", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics shutdown", "error", err)
		}
	}
	a.logger.Info("stopped")
	return runErr
}

// Close releases the channel and database handles.
func (a *Application) Close() error {
	var errs []error
	if closer, ok := a.channel.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

// Migrate applies the schema to the configured database.
func Migrate(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, dialect, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := storage.ApplySchema(ctx, db, dialect); err != nil {
		return err
	}
	if logger != nil {
		logger.Info("schema applied", "driver", dialect.Driver)
	}
	return nil
}
