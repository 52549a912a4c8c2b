package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"marketlens/internal/config"
)

// MeterName is the instrumentation scope of every tracer and meter.
const MeterName = "marketlens"

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// NewOTelConfig maps the telemetry section of the application config.
func NewOTelConfig(cfg config.TelemetryConfig) *OTelConfig {
	return &OTelConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: config.AppVersion,
		Environment:    cfg.Environment,
		TraceExporter:  cfg.TraceExporter,
		MetricExporter: cfg.MetricExporter,
		SampleRatio:    cfg.SampleRatio,
	}
}

// DefaultOTelConfig returns the configuration derived from config.Default.
func DefaultOTelConfig() *OTelConfig {
	return NewOTelConfig(config.Default().Telemetry)
}

// InitializeOTel installs the tracer and meter providers selected by cfg as
// the OpenTelemetry globals. A disabled exporter leaves the no-op global in
// place, so instrumented code never needs to check.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{Logger: logger}

	if err := initializeTracing(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	return providers, nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.DebugContext(ctx, "tracing initialized",
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	// Each provider owns its registry so repeated initialisation never
	// collides on the process-wide default.
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetMeterProvider(mp)

	providers.Logger.DebugContext(ctx, "metrics initialized")
	return nil
}

// Shutdown flushes and stops the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// BusinessMetrics contains application-specific metrics
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	IngestionRunsTotal metric.Int64Counter
	IngestionDuration  metric.Float64Histogram
	IngestionRecords   metric.Int64Histogram
	IngestionWarnings  metric.Int64Counter

	QueriesTotal    metric.Int64Counter
	QueryDuration   metric.Float64Histogram
	QueryResultSize metric.Int64Histogram

	WebSocketConnections metric.Int64UpDownCounter
	SystemErrors         metric.Int64Counter
}

// CreateBusinessMetrics registers the application instruments on meter. A
// nil meter resolves to the global one.
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	var (
		m   BusinessMetrics
		err error
	)
	register := func(fn func() error) {
		if err == nil {
			err = fn()
		}
	}

	register(func() (e error) {
		m.HTTPRequestsTotal, e = meter.Int64Counter("http_requests_total",
			metric.WithDescription("Total number of HTTP requests"),
			metric.WithUnit("{request}"))
		return
	})
	register(func() (e error) {
		m.HTTPRequestDuration, e = meter.Float64Histogram("http_request_duration_seconds",
			metric.WithDescription("HTTP request duration in seconds"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10))
		return
	})
	register(func() (e error) {
		m.HTTPActiveRequests, e = meter.Int64UpDownCounter("http_active_requests",
			metric.WithDescription("Number of active HTTP requests"),
			metric.WithUnit("{request}"))
		return
	})
	register(func() (e error) {
		m.IngestionRunsTotal, e = meter.Int64Counter("ingestion_runs_total",
			metric.WithDescription("Total number of ingestion runs"),
			metric.WithUnit("{run}"))
		return
	})
	register(func() (e error) {
		m.IngestionDuration, e = meter.Float64Histogram("ingestion_duration_seconds",
			metric.WithDescription("Ingestion pipeline duration in seconds"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60))
		return
	})
	register(func() (e error) {
		m.IngestionRecords, e = meter.Int64Histogram("ingestion_records",
			metric.WithDescription("Records produced per ingestion run"),
			metric.WithUnit("{record}"))
		return
	})
	register(func() (e error) {
		m.IngestionWarnings, e = meter.Int64Counter("ingestion_warnings_total",
			metric.WithDescription("Soft failures reported by ingestion runs"),
			metric.WithUnit("{warning}"))
		return
	})
	register(func() (e error) {
		m.QueriesTotal, e = meter.Int64Counter("queries_total",
			metric.WithDescription("Total number of dataset queries"),
			metric.WithUnit("{query}"))
		return
	})
	register(func() (e error) {
		m.QueryDuration, e = meter.Float64Histogram("query_duration_seconds",
			metric.WithDescription("Query duration in seconds"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1))
		return
	})
	register(func() (e error) {
		m.QueryResultSize, e = meter.Int64Histogram("query_result_records",
			metric.WithDescription("Records returned per query"),
			metric.WithUnit("{record}"))
		return
	})
	register(func() (e error) {
		m.WebSocketConnections, e = meter.Int64UpDownCounter("websocket_connections",
			metric.WithDescription("Number of connected WebSocket clients"),
			metric.WithUnit("{connection}"))
		return
	})
	register(func() (e error) {
		m.SystemErrors, e = meter.Int64Counter("system_errors_total",
			metric.WithDescription("Total number of system errors"),
			metric.WithUnit("{error}"))
		return
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return &m, nil
}

// RecordIngestionMetrics records the outcome of one ingestion run.
func RecordIngestionMetrics(ctx context.Context, metrics *BusinessMetrics, source string, duration time.Duration, records, warnings int, err error) {
	if metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
		metrics.SystemErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", "ingestion")))
	}
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	)

	metrics.IngestionRunsTotal.Add(ctx, 1, attrs)
	metrics.IngestionDuration.Record(ctx, duration.Seconds(), attrs)
	if err == nil {
		metrics.IngestionRecords.Record(ctx, int64(records), attrs)
	}
	if warnings > 0 {
		metrics.IngestionWarnings.Add(ctx, int64(warnings), attrs)
	}
}

// RecordQueryMetrics records one query against the active dataset.
func RecordQueryMetrics(ctx context.Context, metrics *BusinessMetrics, metricName string, duration time.Duration, results int, err error) {
	if metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("metric", metricName),
		attribute.String("status", status),
	)

	metrics.QueriesTotal.Add(ctx, 1, attrs)
	metrics.QueryDuration.Record(ctx, duration.Seconds(), attrs)
	if err == nil {
		metrics.QueryResultSize.Record(ctx, int64(results), attrs)
	}
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// AddSpanEvent adds an event to the current span
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
