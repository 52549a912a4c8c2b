package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"marketlens/internal/dataprocessing"
	"marketlens/internal/errors"
	"marketlens/internal/exporter"
	"marketlens/internal/files"
	"marketlens/internal/infrastructure"
	"marketlens/internal/query"
	"marketlens/internal/session"
	"marketlens/internal/validation"
	v1 "marketlens/pkg/contracts/api/v1"
	"marketlens/pkg/contracts/domain"
	"marketlens/pkg/contracts/events"
)

// Ingestion sources reported in events and metrics.
const (
	SourceDirectory = "directory"
	SourceUpload    = "upload"
)

// Publisher receives dataset lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, msg events.Message)
}

// DatasetDeps are the collaborators of a DatasetService. Session is
// required; the rest fall back to working defaults when nil.
type DatasetDeps struct {
	Session    *session.Session
	Pipeline   dataprocessing.PipelineConfig
	Discovery  *files.Discovery
	Validator  *validation.FileValidator
	Summarizer *dataprocessing.Summarizer
	Exporter   *exporter.RecordExporter
	Publisher  Publisher
	Metrics    *infrastructure.BusinessMetrics
}

// QueryResult is the answer to one filtered query.
type QueryResult struct {
	DatasetID      string                  `json:"dataset_id"`
	Metric         domain.Metric           `json:"metric"`
	Filter         domain.FilterSpec       `json:"filter"`
	EffectiveLevel int                     `json:"effective_level"`
	YearAxis       domain.YearAxis         `json:"year_axis"`
	Summary        *dataprocessing.Summary `json:"summary"`
}

// IngestOptions tunes one directory ingestion.
type IngestOptions struct {
	// Dir overrides the configured data directory.
	Dir string
	// Lenient overrides the configured decoding mode.
	Lenient *bool
}

// DatasetService owns ingestion into the session and queries against it.
type DatasetService struct {
	session    *session.Session
	pipeline   dataprocessing.PipelineConfig
	discovery  *files.Discovery
	validator  *validation.FileValidator
	summarizer *dataprocessing.Summarizer
	exporter   *exporter.RecordExporter
	publisher  Publisher
	metrics    *infrastructure.BusinessMetrics
	tracer     trace.Tracer
	base       *slog.Logger
	logger     *slog.Logger

	// ingestMu serializes ingestion runs; queries never take it.
	ingestMu sync.Mutex
}

// NewDatasetService creates the service.
func NewDatasetService(deps DatasetDeps, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Session == nil {
		deps.Session = session.New()
	}
	if deps.Validator == nil {
		deps.Validator = validation.NewFileValidator(logger, 0)
	}
	if deps.Summarizer == nil {
		deps.Summarizer = dataprocessing.NewSummarizer(logger, dataprocessing.SummarizerConfig{})
	}
	if deps.Exporter == nil {
		deps.Exporter = exporter.NewRecordExporter(nil, logger)
	}

	return &DatasetService{
		session:    deps.Session,
		pipeline:   deps.Pipeline,
		discovery:  deps.Discovery,
		validator:  deps.Validator,
		summarizer: deps.Summarizer,
		exporter:   deps.Exporter,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		tracer:     otel.Tracer(infrastructure.MeterName),
		base:       logger,
		logger:     logger.With(slog.String("component", "dataset_service")),
	}
}

// Session exposes the session the service swaps datasets into.
func (s *DatasetService) Session() *session.Session {
	return s.session
}

// IngestDirectory discovers the documents on disk and ingests them.
func (s *DatasetService) IngestDirectory(ctx context.Context, opts IngestOptions) (*domain.Dataset, error) {
	if s.discovery == nil {
		return nil, errors.NewConfigError("document discovery is not configured", nil)
	}

	_, docs, err := s.discovery.DiscoverAndLoad(ctx, opts.Dir)
	if err != nil {
		s.fail(ctx, SourceDirectory, err)
		return nil, err
	}
	return s.ingest(ctx, SourceDirectory, docs, opts.Lenient)
}

// IngestUpload ingests documents posted by a client.
func (s *DatasetService) IngestUpload(ctx context.Context, req v1.UploadRequest) (*domain.Dataset, error) {
	if len(req.Value) == 0 || string(req.Value) == "null" {
		return nil, errors.NewAppValidationError(ErrEmptyUpload.Error()).WithContext("field", "value")
	}

	docs := dataprocessing.Documents{
		Value: dataprocessing.Source{Name: "value", Data: req.Value},
	}
	if present(req.Volume) {
		docs.Volume = &dataprocessing.Source{Name: "volume", Data: req.Volume}
	}
	if present(req.Structure) {
		docs.Structure = &dataprocessing.Source{Name: "structure", Data: req.Structure}
	}

	for _, src := range []*dataprocessing.Source{&docs.Value, docs.Volume, docs.Structure} {
		if src == nil {
			continue
		}
		if err := s.validator.ValidateSize(src.Name, int64(len(src.Data))); err != nil {
			s.fail(ctx, SourceUpload, err)
			return nil, err
		}
	}

	return s.ingest(ctx, SourceUpload, docs, req.Lenient)
}

func present(raw []byte) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func (s *DatasetService) ingest(ctx context.Context, source string, docs dataprocessing.Documents, lenient *bool) (*domain.Dataset, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	ctx, span := s.tracer.Start(ctx, "dataset.ingest",
		trace.WithAttributes(
			attribute.String("ingest.source", source),
			attribute.Int("ingest.value_bytes", len(docs.Value.Data)),
			attribute.Bool("ingest.has_volume", docs.Volume.Present()),
			attribute.Bool("ingest.has_structure", docs.Structure.Present()),
		))
	defer span.End()

	cfg := s.pipeline
	if lenient != nil {
		cfg.Lenient = *lenient
	}

	start := time.Now()
	ds, err := dataprocessing.NewPipeline(s.base, cfg).Run(ctx, docs)
	duration := time.Since(start)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		infrastructure.RecordIngestionMetrics(ctx, s.metrics, source, duration, 0, 0, err)
		s.fail(ctx, source, err)
		return nil, err
	}

	prev := s.session.Replace(ds)
	infrastructure.RecordIngestionMetrics(ctx, s.metrics, source, duration, ds.Report.Records, len(ds.Report.Warnings), nil)
	infrastructure.AddSpanEvent(ctx, "dataset.replaced",
		attribute.String("dataset.id", ds.ID),
		attribute.Int("dataset.records", ds.Report.Records))

	replaced := events.DatasetReplaced{
		DatasetID:     ds.ID,
		Source:        source,
		ValueRecords:  ds.Value.Len(),
		VolumeRecords: ds.Volume.Len(),
		Years:         ds.YearAxis.Years,
		Warnings:      ds.Report.Warnings,
	}
	if prev != nil {
		replaced.PreviousID = prev.ID
	}
	s.publish(ctx, events.MessageTypeDatasetReplaced, replaced)

	s.logger.InfoContext(ctx, "active dataset replaced",
		slog.String("dataset_id", ds.ID),
		slog.String("previous_id", replaced.PreviousID),
		slog.String("source", source),
		slog.Uint64("session_version", s.session.Version()))
	return ds, nil
}

// fail logs and announces an ingestion that left the session untouched.
func (s *DatasetService) fail(ctx context.Context, source string, err error) {
	code := errors.ErrIngestionFailed.ErrorCode
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		code = errors.FromAppError(appErr).ErrorCode
	}

	s.logger.ErrorContext(ctx, "ingestion failed",
		slog.String("source", source),
		slog.String("code", code),
		slog.String("error", err.Error()))

	s.publish(ctx, events.MessageTypeDatasetFailed, events.DatasetFailed{
		Source:  source,
		Code:    code,
		Message: err.Error(),
	})
}

func (s *DatasetService) publish(ctx context.Context, t events.MessageType, data interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, events.NewMessage(t, infrastructure.GetTraceID(ctx), data))
}

// Current returns the active dataset or ErrNoDataset.
func (s *DatasetService) Current(ctx context.Context) (*domain.Dataset, error) {
	ds := s.session.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}
	return ds, nil
}

// CurrentID returns the active dataset ID, empty when none is loaded.
func (s *DatasetService) CurrentID() string {
	if ds := s.session.Current(); ds != nil {
		return ds.ID
	}
	return ""
}

// Dimensions returns everything a query against the active dataset can
// filter by.
func (s *DatasetService) Dimensions(ctx context.Context) (*v1.DimensionsResponse, error) {
	ds, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return &v1.DimensionsResponse{
		DatasetID:  ds.ID,
		YearAxis:   ds.YearAxis,
		Dimensions: ds.Dimensions,
	}, nil
}

// SegmentDimension returns the catalogue of one segment type.
func (s *DatasetService) SegmentDimension(ctx context.Context, segmentType string) (*domain.SegmentDimension, error) {
	ds, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	dim := ds.Dimensions.Segment(segmentType)
	if dim == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSegmentType, segmentType)
	}
	return dim, nil
}

// Query filters the active dataset and summarises the result. An unknown
// segment type yields an empty result, not an error.
func (s *DatasetService) Query(ctx context.Context, req v1.QueryRequest) (*QueryResult, error) {
	metric := req.Metric
	if metric == "" {
		metric = domain.MetricValue
	}

	ctx, span := s.tracer.Start(ctx, "dataset.query",
		trace.WithAttributes(
			attribute.String("query.metric", string(metric)),
			attribute.String("query.segment_type", req.Filter.SegmentType),
			attribute.Int("query.segments", len(req.Filter.SelectedSegments())),
		))
	defer span.End()

	start := time.Now()
	result, err := s.query(ctx, metric, req)
	results := 0
	if result != nil {
		results = result.Summary.Count
	}
	infrastructure.RecordQueryMetrics(ctx, s.metrics, string(metric), time.Since(start), results, err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("query.results", results),
		attribute.Int("query.level", result.EffectiveLevel))
	s.logger.DebugContext(ctx, "query answered",
		slog.String("dataset_id", result.DatasetID),
		slog.String("segment_type", req.Filter.SegmentType),
		slog.Int("level", result.EffectiveLevel),
		slog.Int("results", results))
	return result, nil
}

func (s *DatasetService) query(ctx context.Context, metric domain.Metric, req v1.QueryRequest) (*QueryResult, error) {
	ds, recs, err := s.records(ctx, metric)
	if err != nil {
		return nil, err
	}

	filtered := query.Filter(recs.Records, req.Filter)
	summary, err := s.summarizer.Summarize(ctx, filtered, recs.YearAxis, req.Year)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		DatasetID:      ds.ID,
		Metric:         metric,
		Filter:         req.Filter,
		EffectiveLevel: query.ResolveLevel(recs.Records, req.Filter),
		YearAxis:       recs.YearAxis,
		Summary:        summary,
	}, nil
}

func (s *DatasetService) records(ctx context.Context, metric domain.Metric) (*domain.Dataset, *domain.RecordSet, error) {
	ds, err := s.Current(ctx)
	if err != nil {
		return nil, nil, err
	}
	recs := ds.Records(metric)
	if recs == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMetricUnavailable, metric)
	}
	return ds, recs, nil
}

// Export writes the filtered records of req to out and returns the format
// used. Market shares are taken in req.Year, or the base year when zero.
func (s *DatasetService) Export(ctx context.Context, req v1.ExportRequest, out io.Writer) (exporter.Format, error) {
	format, recs, years, err := s.exportInput(ctx, req)
	if err != nil {
		return "", err
	}
	if err := s.exporter.Export(ctx, out, format, recs, years); err != nil {
		return "", err
	}
	return format, nil
}

// ExportFile writes the filtered records of req into the exports directory
// and returns the file path.
func (s *DatasetService) ExportFile(ctx context.Context, req v1.ExportRequest) (string, error) {
	format, recs, years, err := s.exportInput(ctx, req)
	if err != nil {
		return "", err
	}
	name := req.FileName
	if name == "" {
		name = ExportFileName(req.Metric, format)
	}
	return s.exporter.ExportFile(ctx, name, format, recs, years)
}

func (s *DatasetService) exportInput(ctx context.Context, req v1.ExportRequest) (exporter.Format, []domain.Record, []int, error) {
	format, err := exporter.ParseFormat(req.Format)
	if err != nil {
		return "", nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
	metric := req.Metric
	if metric == "" {
		metric = domain.MetricValue
	}
	_, recs, err := s.records(ctx, metric)
	if err != nil {
		return "", nil, nil, err
	}
	summary, err := s.summarizer.Summarize(ctx, query.Filter(recs.Records, req.Filter), recs.YearAxis, req.Year)
	if err != nil {
		return "", nil, nil, err
	}
	return format, summary.Records, recs.YearAxis.Years, nil
}

// ExportFileName is the default download name of an export.
func ExportFileName(metric domain.Metric, format exporter.Format) string {
	if metric == "" {
		metric = domain.MetricValue
	}
	return fmt.Sprintf("marketlens_%s_%s%s", metric, time.Now().UTC().Format("20060102_150405"), format.Extension())
}
