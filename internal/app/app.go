package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"marketlens/internal/config"
	"marketlens/internal/dataprocessing"
	apperrors "marketlens/internal/errors"
	"marketlens/internal/exporter"
	"marketlens/internal/files"
	"marketlens/internal/infrastructure"
	customMiddleware "marketlens/internal/middleware"
	"marketlens/internal/services"
	"marketlens/internal/session"
	handlers "marketlens/internal/transport/http"
	"marketlens/internal/validation"
	ws "marketlens/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Services      *ServiceContainer
	WebSocketHub  *ws.Hub
	OTelProviders *infrastructure.OTelProviders
	ErrorHandler  *apperrors.ErrorHandler
	Metrics       *infrastructure.BusinessMetrics

	validator *customMiddleware.ValidationMiddleware
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Session *session.Session
	Dataset *services.DatasetService
	Health  *services.HealthService
}

// NewApplication loads configuration, initializes the process logger and
// builds the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// relative log files live in the logs directory
	if cfg.Logging.FilePath != "" && !filepath.IsAbs(cfg.Logging.FilePath) {
		paths, err := config.ResolvePaths(cfg.Paths)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve paths: %w", err)
		}
		cfg.Logging.FilePath = paths.GetLogPath(filepath.Base(cfg.Logging.FilePath))
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds an application from an explicit configuration. It does not
// start listening; see Start.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apperrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	hub := ws.NewHub(a.Logger, metrics)
	hub.Start()
	a.WebSocketHub = hub

	sess := session.New()
	fileValidator := validation.NewFileValidator(a.Logger, a.Config.Ingestion.MaxDocumentBytes)

	dataset := services.NewDatasetService(services.DatasetDeps{
		Session: sess,
		Pipeline: dataprocessing.PipelineConfig{
			MaxDepth:   a.Config.Ingestion.MaxDepth,
			YieldEvery: a.Config.Ingestion.YieldEvery,
			Lenient:    a.Config.Ingestion.Lenient,
		},
		Discovery:  files.NewDiscovery(a.Paths, fileValidator, a.Logger),
		Validator:  fileValidator,
		Summarizer: dataprocessing.NewSummarizer(a.Logger, dataprocessing.SummarizerConfig{}),
		Exporter:   exporter.NewRecordExporter(a.Paths, a.Logger),
		Publisher:  hub,
		Metrics:    metrics,
	}, a.Logger)
	hub.SetDatasetSource(dataset.CurrentID)

	health := services.NewHealthService(config.AppVersion, a.Paths, sess, hub, a.Logger)

	// JSON uploads carry whole documents, so the body limit follows the
	// document limit.
	maxBody := customMiddleware.DefaultMaxBodySize
	if limit := fileValidator.MaxBytes() * 3; limit > maxBody {
		maxBody = limit
	}
	a.validator = customMiddleware.NewValidationMiddleware(a.Logger, a.ErrorHandler, maxBody)

	a.Services = &ServiceContainer{
		Session: sess,
		Dataset: dataset,
		Health:  health,
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// These don't wrap the ResponseWriter, so they are safe for /ws.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	wsHandler := ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.allowedOrigins(), a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Handle("/ws", wsHandler)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apperrors.RecoveryMiddleware(a.ErrorHandler))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		r.Use(customMiddleware.Compress(5))
		r.Use(a.validator.ValidateRequest)
		r.Use(customMiddleware.AuditLog(a.Logger))

		a.setupAPIRoutes(r)
	})

	// Registered last so chi copies them into every mounted subrouter.
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)
		r.Get("/stats", healthHandler.Stats)

		datasetHandler := handlers.NewDatasetHandler(a.Services.Dataset, a.validator, a.Logger, a.ErrorHandler)
		r.Mount("/dataset", datasetHandler.Routes())

		queryHandler := handlers.NewQueryHandler(a.Services.Dataset, a.validator, a.Logger, a.ErrorHandler)
		r.Mount("/query", queryHandler.Routes())
	})
}

// allowedOrigins is the origin list shared by CORS and the websocket
// upgrader. Nil accepts any origin.
func (a *Application) allowedOrigins() []string {
	if !a.Config.Security.EnableCORS {
		return nil
	}
	return a.Config.Security.AllowedOrigins
}

// getCORSConfig returns CORS configuration
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: a.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}

	a.Logger.Info("CORS configured",
		slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// LoadInitialDataset ingests the data directory when configured to. A
// failure is logged and the application keeps running without a dataset.
func (a *Application) LoadInitialDataset(ctx context.Context) {
	if !a.Config.Ingestion.LoadOnStart {
		return
	}

	ds, err := a.Services.Dataset.IngestDirectory(ctx, services.IngestOptions{})
	if err != nil {
		a.Logger.WarnContext(ctx, "Initial dataset not loaded",
			slog.String("data_dir", a.Paths.DataDir),
			slog.String("error", err.Error()))
		return
	}

	a.Logger.InfoContext(ctx, "Initial dataset loaded",
		slog.String("dataset_id", ds.ID),
		slog.Int("records", ds.Value.Len()),
		slog.Any("years", ds.YearAxis.Years))
}

// Start loads the initial dataset and starts serving. Serve errors cancel
// the application context through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.LoadInitialDataset(ctx)

	listener, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	go func() {
		if err := a.Server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", listener.Addr().String()))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	return a.Stop(context.Background())
}

// performStartupHealthCheck verifies the working directories are writable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	checker := validation.NewFileValidator(a.Logger, 0)

	directories := map[string]string{
		"Data":    a.Paths.DataDir,
		"Exports": a.Paths.ExportsDir,
		"Logs":    a.Paths.LogsDir,
	}

	var warnings []string
	for name, dir := range directories {
		if err := checker.ValidateOutputDirectory(dir); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		}
	}

	if !config.FileExists(a.Paths.ValueFile) {
		a.Logger.InfoContext(ctx, "Value document not found",
			slog.String("path", a.Paths.ValueFile))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
