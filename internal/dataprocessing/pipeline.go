package dataprocessing

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"marketlens/internal/aggregation"
	"marketlens/internal/errors"
	"marketlens/internal/hierarchy"
	"marketlens/internal/records"
	"marketlens/pkg/contracts/domain"
)

// Fatal ingestion causes. Callers match them with errors.Is through the
// returned *errors.AppError.
var (
	ErrNoYears          = records.ErrNoYears
	ErrNoGeography      = records.ErrNoGeography
	ErrMissingValueData = stderrors.New("value document is empty")
)

// Source is one input document.
type Source struct {
	Name string
	Data []byte
}

// Present reports whether the source carries any data.
func (s *Source) Present() bool {
	return s != nil && len(s.Data) > 0
}

// Documents groups the inputs of one ingestion run. Value is required;
// Volume and Structure are optional companions.
type Documents struct {
	Value     Source
	Volume    *Source
	Structure *Source
}

// PipelineConfig tunes traversal and decoding.
type PipelineConfig struct {
	MaxDepth   int
	YieldEvery int
	Lenient    bool
}

// Pipeline turns raw documents into an immutable Dataset:
// decode → aggregate → flatten.
type Pipeline struct {
	cfg    PipelineConfig
	base   *slog.Logger
	logger *slog.Logger
}

// NewPipeline creates a pipeline. Zero config values select the defaults.
func NewPipeline(logger *slog.Logger, cfg PipelineConfig) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = hierarchy.DefaultMaxDepth
	}
	if cfg.YieldEvery <= 0 {
		cfg.YieldEvery = records.DefaultYieldEvery
	}
	return &Pipeline{
		cfg:    cfg,
		base:   logger,
		logger: logger.With(slog.String("component", "ingestion_pipeline")),
	}
}

// parsed holds the decoded documents of a run.
type parsed struct {
	value     *hierarchy.Document
	volume    *hierarchy.Document
	structure *hierarchy.Document
	warnings  []string
}

// Run ingests docs. A failure of the value document is fatal; companion
// documents that cannot be read are skipped with a warning.
func (p *Pipeline) Run(ctx context.Context, docs Documents) (*domain.Dataset, error) {
	start := time.Now()

	if !docs.Value.Present() {
		return nil, errors.NewIngestionError("value document is required", ErrMissingValueData)
	}

	in, err := p.parse(ctx, docs)
	if err != nil {
		return nil, err
	}

	report := domain.IngestReport{Warnings: in.warnings}
	for _, doc := range []*hierarchy.Document{in.value, in.volume, in.structure} {
		if doc == nil {
			continue
		}
		report.Documents = append(report.Documents, doc.Name)
		report.InvalidValues += doc.InvalidValues
	}

	valueSet, dims, err := p.build(ctx, in.value, in.structure, &report)
	if err != nil {
		return nil, errors.NewIngestionError("dataset could not be built", err).
			WithContext("document", in.value.Name)
	}

	ds := &domain.Dataset{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Value:      valueSet,
		Dimensions: dims,
		YearAxis:   valueSet.YearAxis,
	}

	if in.volume != nil {
		volumeSet, _, verr := p.build(ctx, in.volume, in.structure, &report)
		if verr != nil {
			msg := fmt.Sprintf("volume document skipped: %v", verr)
			report.Warnings = append(report.Warnings, msg)
			p.logger.WarnContext(ctx, "volume document skipped",
				slog.String("document", in.volume.Name),
				slog.String("error", verr.Error()))
		} else {
			ds.Volume = volumeSet
		}
	}

	ds.Report = report
	ds.Duration = time.Since(start)

	p.logger.InfoContext(ctx, "dataset ingested",
		slog.String("dataset_id", ds.ID),
		slog.Int("records", report.Records),
		slog.Int("paths", report.Paths),
		slog.Int("warnings", len(report.Warnings)),
		slog.Bool("volume", ds.Volume != nil),
		slog.Duration("duration", ds.Duration))

	return ds, nil
}

// parse decodes all present documents concurrently.
func (p *Pipeline) parse(ctx context.Context, docs Documents) (*parsed, error) {
	var (
		out                  parsed
		volumeErr, structErr error
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := hierarchy.Parse(docs.Value.Data, p.parseOptions(docs.Value.Name))
		if err != nil {
			return errors.NewParsingError("value document is malformed", err).
				WithContext("document", docs.Value.Name)
		}
		out.value = doc
		return nil
	})
	if docs.Volume.Present() {
		g.Go(func() error {
			out.volume, volumeErr = hierarchy.Parse(docs.Volume.Data, p.parseOptions(docs.Volume.Name))
			return nil
		})
	}
	if docs.Structure.Present() {
		g.Go(func() error {
			out.structure, structErr = hierarchy.Parse(docs.Structure.Data, p.parseOptions(docs.Structure.Name))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.logger.ErrorContext(ctx, "value document rejected", slog.String("error", err.Error()))
		return nil, err
	}

	for _, soft := range []struct {
		src *Source
		err error
	}{{docs.Volume, volumeErr}, {docs.Structure, structErr}} {
		if soft.err == nil {
			continue
		}
		out.warnings = append(out.warnings, fmt.Sprintf("%s skipped: %v", soft.src.Name, soft.err))
		p.logger.WarnContext(ctx, "companion document skipped",
			slog.String("document", soft.src.Name),
			slog.String("error", soft.err.Error()))
	}

	for _, doc := range []*hierarchy.Document{out.value, out.volume, out.structure} {
		if doc != nil && doc.Strategy != hierarchy.StrategyStrict {
			p.logger.WarnContext(ctx, "document decoded leniently",
				slog.String("document", doc.Name),
				slog.String("strategy", doc.Strategy))
		}
	}
	return &out, nil
}

func (p *Pipeline) parseOptions(name string) hierarchy.ParseOptions {
	return hierarchy.ParseOptions{Name: name, Lenient: p.cfg.Lenient}
}

// build aggregates a private copy of raw and flattens it into records.
func (p *Pipeline) build(ctx context.Context, raw, structure *hierarchy.Document, report *domain.IngestReport) (*domain.RecordSet, domain.Dimensions, error) {
	agg := raw.Clone()
	calc := aggregation.NewCalculator(p.base, p.cfg.MaxDepth).AggregateDocument(agg)

	builder := records.NewBuilder(p.base, records.Config{
		MaxDepth:   p.cfg.MaxDepth,
		YieldEvery: p.cfg.YieldEvery,
	})
	result, err := builder.Build(ctx, records.Sources{Aggregated: agg, Raw: raw, Structure: structure})
	if err != nil {
		return nil, domain.Dimensions{}, err
	}

	report.Paths += result.Stats.Paths
	report.Records += result.Stats.Records
	report.Cycles += calc.Cycles + result.Stats.Cycles
	report.DepthExceeded += calc.DepthExceeded + result.Stats.DepthExceeded
	report.MarkerConflicts += result.Stats.MarkerConflicts

	set := result.RecordSet
	return &set, result.Dimensions, nil
}
