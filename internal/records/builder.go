// Package records flattens decoded hierarchies into immutable Records and
// the dimension metadata used to build filter options.
package records

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sort"

	"marketlens/internal/hierarchy"
	"marketlens/pkg/contracts/domain"
)

var (
	// ErrNoGeography is returned when no source document names a geography.
	ErrNoGeography = errors.New("no geography found in any source document")
	// ErrNoYears is returned when no source document carries a year key.
	ErrNoYears = errors.New("no year found in any source document")
)

// DefaultYieldEvery is how many paths are processed between scheduler yields.
const DefaultYieldEvery = 500

// Sources are the candidate documents of one build, in precedence order for
// numeric data: Aggregated, then Raw. Structure drives the catalogue.
type Sources struct {
	Aggregated *hierarchy.Document
	Raw        *hierarchy.Document
	Structure  *hierarchy.Document
}

func (s Sources) candidates() []*hierarchy.Document {
	var out []*hierarchy.Document
	for _, d := range []*hierarchy.Document{s.Aggregated, s.Structure, s.Raw} {
		if d != nil && d.Root != nil {
			out = append(out, d)
		}
	}
	return out
}

func (s Sources) numeric() []*hierarchy.Document {
	var out []*hierarchy.Document
	for _, d := range []*hierarchy.Document{s.Aggregated, s.Raw} {
		if d != nil && d.Root != nil {
			out = append(out, d)
		}
	}
	return out
}

// Config tunes a Builder.
type Config struct {
	MaxDepth   int
	YieldEvery int
}

// Stats reports soft anomalies and volumes of one build.
type Stats struct {
	Paths           int
	Records         int
	MarkerConflicts int
	Cycles          int
	DepthExceeded   int
}

// Result is the output of Build.
type Result struct {
	RecordSet  domain.RecordSet
	Dimensions domain.Dimensions
	Stats      Stats
}

// Builder turns source documents into Records.
type Builder struct {
	cfg    Config
	base   *slog.Logger
	logger *slog.Logger
}

// NewBuilder creates a builder with defaults applied to cfg.
func NewBuilder(logger *slog.Logger, cfg Config) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = hierarchy.DefaultMaxDepth
	}
	if cfg.YieldEvery <= 0 {
		cfg.YieldEvery = DefaultYieldEvery
	}
	return &Builder{
		cfg:    cfg,
		base:   logger,
		logger: logger.With(slog.String("component", "record_builder")),
	}
}

// Build produces Records for every geography x segment-type combination
// found in src. It fails only when no geography or no year exists; other
// anomalies are logged and skipped.
func (b *Builder) Build(ctx context.Context, src Sources) (*Result, error) {
	candidates := src.candidates()
	walker := hierarchy.NewWalker(b.base, b.cfg.MaxDepth)

	geographies := unionLabels(candidates, func(d *hierarchy.Document) []string {
		return d.Geographies()
	})
	if len(geographies) == 0 {
		return nil, ErrNoGeography
	}

	// geography and segment type sit above the bounded segment depth
	years := discoverYears(hierarchy.NewWalker(b.base, b.cfg.MaxDepth+2), candidates)
	if len(years) == 0 {
		return nil, ErrNoYears
	}
	axis := domain.NewYearAxis(years)

	result := &Result{
		RecordSet:  domain.RecordSet{YearAxis: axis, Records: []domain.Record{}},
		Dimensions: domain.Dimensions{Geographies: geographies, Segments: make(map[string]*domain.SegmentDimension)},
	}
	structure := hierarchy.NewWalker(b.base, b.cfg.MaxDepth)
	dims := make(map[string]*dimension)
	var segmentTypes []string
	processed := 0

	for _, geo := range geographies {
		types := unionLabels(candidates, func(d *hierarchy.Document) []string {
			return d.SegmentTypes(geo)
		})

		for _, segType := range types {
			dim, ok := dims[segType]
			if !ok {
				dim = newDimension(segType)
				dims[segType] = dim
				segmentTypes = append(segmentTypes, segType)
			}
			prefix := hierarchy.Path{geo, segType}

			entries := b.numericEntries(walker, src, geo, segType)
			for _, root := range catalogueRoots(src, geo, segType) {
				dim.addSubtree(structure, root, prefix)
			}

			if len(entries) == 0 {
				b.logger.DebugContext(ctx, "no numeric data for combination",
					slog.String("geography", geo),
					slog.String("segment_type", segType))
				continue
			}

			parents := descendantIndex(entries)
			for _, e := range entries {
				rec, conflict := newRecord(e, parents, axis)
				if conflict {
					result.Stats.MarkerConflicts++
					b.logger.WarnContext(ctx, "aggregated marker without descendants",
						slog.String("path", e.Path.String()))
				}
				result.RecordSet.Records = append(result.RecordSet.Records, rec)

				processed++
				if processed%b.cfg.YieldEvery == 0 {
					runtime.Gosched()
				}
			}
		}
	}

	for _, segType := range segmentTypes {
		result.Dimensions.Segments[segType] = dims[segType].build()
	}
	result.Dimensions.SegmentTypes = segmentTypes
	if result.Dimensions.SegmentTypes == nil {
		result.Dimensions.SegmentTypes = []string{}
	}

	ws := walker.Stats()
	result.Stats.Paths = processed
	result.Stats.Records = len(result.RecordSet.Records)
	result.Stats.Cycles = ws.Cycles
	result.Stats.DepthExceeded = ws.DepthExceeded

	b.logger.InfoContext(ctx, "records built",
		slog.Int("records", result.Stats.Records),
		slog.Int("geographies", len(geographies)),
		slog.Int("segment_types", len(segmentTypes)),
		slog.Int("year_min", axis.Min),
		slog.Int("year_max", axis.Max))

	return result, nil
}

// numericEntries returns the data entries of the first numeric source that
// has any for the combination.
func (b *Builder) numericEntries(w *hierarchy.Walker, src Sources, geo, segType string) []hierarchy.Entry {
	prefix := hierarchy.Path{geo, segType}
	for _, doc := range src.numeric() {
		root := doc.Subtree(geo, segType)
		if root == nil {
			continue
		}
		var entries []hierarchy.Entry
		for e := range w.Walk(root, prefix) {
			entries = append(entries, e)
		}
		if len(entries) > 0 {
			return entries
		}
	}
	return nil
}

// catalogueRoots returns the combination's subtree in every source. The
// structure document comes first so its ordering wins; numeric sources add
// segments it does not list.
func catalogueRoots(src Sources, geo, segType string) []*hierarchy.Node {
	var roots []*hierarchy.Node
	for _, doc := range []*hierarchy.Document{src.Structure, src.Aggregated, src.Raw} {
		if root := doc.Subtree(geo, segType); root != nil {
			roots = append(roots, root)
		}
	}
	return roots
}

// descendantIndex marks every path that is a strict prefix of another
// extracted path.
func descendantIndex(entries []hierarchy.Entry) map[string]struct{} {
	parents := make(map[string]struct{})
	for _, e := range entries {
		for i := 2; i < len(e.Path); i++ {
			parents[e.Path[:i].Key()] = struct{}{}
		}
	}
	return parents
}

// newRecord builds the Record of one entry. conflict reports an explicit
// aggregated marker on a path without extracted descendants.
func newRecord(e hierarchy.Entry, parents map[string]struct{}, axis domain.YearAxis) (domain.Record, bool) {
	_, hasDescendants := parents[e.Path.Key()]
	suffix := []string(e.Path[2:])

	aggregated := hasDescendants
	if e.Data.Aggregated != nil {
		aggregated = *e.Data.Aggregated
	}
	level := len(suffix) + 1
	if e.Data.Level != nil {
		level = *e.Data.Level
	}

	series := make(map[int]float64, len(axis.Years))
	for _, y := range axis.Years {
		if v, ok := e.Data.Years[y]; ok && v.Valid {
			series[y] = v.Number
		} else {
			series[y] = 0
		}
	}

	cagr := 0.0
	if e.Data.Growth.Valid {
		cagr = e.Data.Growth.Number
	}

	rec := domain.Record{
		Geography:        e.Path[0],
		SegmentType:      e.Path[1],
		Segment:          segmentLabel(suffix, level),
		SegmentHierarchy: domain.NewSegmentHierarchy(suffix),
		TimeSeries:       series,
		CAGR:             cagr,
		AggregationLevel: &level,
		IsAggregated:     aggregated,
	}
	return rec, aggregated && !hasDescendants
}

// segmentLabel picks the label at the record's level cut.
func segmentLabel(suffix []string, level int) string {
	if level <= 1 || len(suffix) == 0 {
		return domain.AllSegments
	}
	if idx := level - 2; idx < len(suffix) {
		return suffix[idx]
	}
	return suffix[len(suffix)-1]
}

// discoverYears scans every node of every candidate for year keys.
func discoverYears(w *hierarchy.Walker, docs []*hierarchy.Document) []int {
	seen := make(map[int]struct{})
	for _, doc := range docs {
		for e := range w.Walk(doc.Root, nil) {
			for y := range e.Data.Years {
				seen[y] = struct{}{}
			}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// unionLabels merges label lists across documents, keeping first-seen order.
func unionLabels(docs []*hierarchy.Document, labels func(*hierarchy.Document) []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, d := range docs {
		for _, l := range labels(d) {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}
