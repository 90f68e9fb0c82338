package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"attendance-service/common/logger"
	"attendance-service/common/metrics"
	"attendance-service/common/telemetry"
	"attendance-service/internal/attendance"
	"attendance-service/internal/config"
	"attendance-service/internal/db"
	"attendance-service/internal/grpcserver"
	"attendance-service/internal/health"
	"attendance-service/internal/holiday"
	"attendance-service/internal/kafka"
	"attendance-service/internal/messaging"
	svcmetrics "attendance-service/internal/metrics"
	"attendance-service/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
)

// publisher is an attendance.Publisher that owns a broker connection.
type publisher interface {
	attendance.Publisher
	io.Closer
}

type App struct {
	config    *config.Config
	router    chi.Router
	server    *http.Server
	grpc      *grpcserver.Server
	db        *bun.DB
	publisher publisher
	telemetry *telemetry.Telemetry
	logger    *slog.Logger
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := logger.NewWithServiceContext(ServiceName, Version, logger.Options{Level: cfg.LogLevel})
	slog.SetDefault(slogLogger)
	slogLogger.InfoContext(ctx, "initializing application", "env", cfg.Env, "commit", GitCommit, "built", BuildTime)

	tel, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		Env:            cfg.Env,
		Endpoint:       cfg.Telemetry.Endpoint,
		Interval:       time.Duration(cfg.Telemetry.IntervalSeconds) * time.Second,
	}, cfg.Telemetry.Enabled, slogLogger)
	if err != nil {
		return nil, err
	}

	domainMetrics, err := svcmetrics.New(otel.Meter(ServiceName))
	if err != nil {
		return nil, abortInit(ctx, tel, slogLogger, fmt.Errorf("failed to initialize domain metrics: %w", err))
	}

	database, err := db.New(ctx, cfg.Database)
	if err != nil {
		return nil, abortInit(ctx, tel, slogLogger, err)
	}
	if err := tel.Metrics.Database.RegisterDB(database.DB, otel.Meter(ServiceName)); err != nil {
		slogLogger.WarnContext(ctx, "failed to register pool metrics", "error", err)
	}
	if err := db.RunMigrations(ctx, database, (*attendance.Attendance)(nil), (*holiday.Holiday)(nil)); err != nil {
		database.Close()
		return nil, abortInit(ctx, tel, slogLogger, err)
	}

	pub, err := newPublisher(cfg.Events, slogLogger, tel.Metrics)
	if err != nil {
		// Events are best effort; the API keeps serving without them.
		slogLogger.WarnContext(ctx, "event publisher unavailable, events disabled", "driver", cfg.Events.Driver, "error", err)
		pub = nil
	}

	app := &App{
		config:    cfg,
		router:    chi.NewRouter(),
		db:        database,
		publisher: pub,
		telemetry: tel,
		logger:    slogLogger,
	}

	app.router.Use(chimiddleware.RequestID)
	app.router.Use(chimiddleware.Recoverer)
	app.router.Use(middleware.RequestLogger(slogLogger))
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	healthHandler := health.NewHandler(database, slogLogger, tel.Metrics)
	healthHandler.RegisterRoutes(app.router)

	exposeDetails := !cfg.IsProduction()

	attendanceRepo := attendance.NewRepository(database, tel.Metrics)
	attendanceService := attendance.NewService(attendanceRepo, pub, slogLogger, domainMetrics)
	attendanceHandler := attendance.NewHandler(attendanceService, slogLogger, exposeDetails)

	holidayRepo := holiday.NewRepository(database, tel.Metrics)
	holidayService := holiday.NewService(holidayRepo, slogLogger, domainMetrics)
	holidayHandler := holiday.NewHandler(holidayService, slogLogger, exposeDetails)

	app.router.Route("/api", func(r chi.Router) {
		attendanceHandler.RegisterRoutes(r)
		holidayHandler.RegisterRoutes(r)
	})

	if cfg.Grpc.Port != "" {
		app.grpc = grpcserver.New(healthHandler.Check, 0, slogLogger)
	}

	slogLogger.InfoContext(ctx, "application initialized successfully")
	return app, nil
}

// abortInit releases telemetry when New fails after it was set up and
// returns err unchanged.
func abortInit(ctx context.Context, tel *telemetry.Telemetry, logger *slog.Logger, err error) error {
	if shutdownErr := tel.Shutdown(ctx, logger); shutdownErr != nil {
		logger.WarnContext(ctx, "failed to release telemetry", "error", shutdownErr)
	}
	return err
}

// newPublisher returns nil, nil when events are switched off.
func newPublisher(cfg config.EventsConfig, logger *slog.Logger, m *metrics.Metrics) (publisher, error) {
	switch cfg.Driver {
	case "nats":
		return messaging.NewProducer(cfg.NATS.URL, cfg.NATS.Subject, logger, m)
	case "kafka":
		return kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger, m)
	default:
		logger.Info("attendance events disabled")
		return nil, nil
	}
}

// Run serves HTTP (and gRPC when configured) until one of them fails or
// Shutdown is called.
func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  seconds(a.config.Server.ReadTimeout, 15),
		WriteTimeout: seconds(a.config.Server.WriteTimeout, 15),
		IdleTimeout:  seconds(a.config.Server.IdleTimeout, 60),
	}

	errCh := make(chan error, 2)

	if a.grpc != nil {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.config.Grpc.Port))
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		go func() {
			errCh <- a.grpc.Serve(lis)
		}()
	}

	go func() {
		a.logger.Info("server starting", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	return <-errCh
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfoContext(ctx, "shutting down servers")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.grpc != nil {
		a.grpc.Stop()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher close: %w", err))
		}
	}
	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
		errs = append(errs, err)
	}
	db.Close(a.db)

	return errors.Join(errs...)
}

func seconds(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}
