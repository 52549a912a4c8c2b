// Command marketlens ingests market documents, applies one filter and
// prints the result. It optionally exports the filtered records.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"marketlens/internal/config"
	"marketlens/internal/dataprocessing"
	"marketlens/internal/exporter"
	"marketlens/internal/files"
	"marketlens/internal/infrastructure"
	"marketlens/internal/services"
	"marketlens/internal/session"
	"marketlens/internal/validation"
	"marketlens/pkg/contracts"
	v1 "marketlens/pkg/contracts/api/v1"
	"marketlens/pkg/contracts/domain"
)

// maxLevel is the deepest aggregation level a filter may pin.
const maxLevel = domain.HierarchySlots + 1

// options are the parsed command-line flags.
type options struct {
	dir          string
	segmentType  string
	segments     []string
	geographies  []string
	level        int
	businessType string
	metric       string
	year         int
	strict       bool
	format       string
	out          string
	asJSON       bool
	verbose      bool
	version      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "marketlens:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("marketlens", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	var segments, geographies string
	fs.StringVar(&opts.dir, "dir", "", "directory holding the documents (defaults to the configured data directory)")
	fs.StringVar(&opts.segmentType, "segment-type", "", "segment type to query, e.g. \"By Product\" (required)")
	fs.StringVar(&segments, "segments", "", "comma-separated segments to select")
	fs.StringVar(&geographies, "geographies", "", "comma-separated geographies to keep")
	fs.IntVar(&opts.level, "level", 0, "aggregation level to pin (1-6, 0 leaves it unpinned)")
	fs.StringVar(&opts.businessType, "business-type", "", "B2B or B2C")
	fs.StringVar(&opts.metric, "metric", string(domain.MetricValue), "value or volume")
	fs.IntVar(&opts.year, "year", 0, "year for market shares (defaults to the base year)")
	fs.BoolVar(&opts.strict, "strict", false, "reject documents that need repair instead of decoding leniently")
	fs.StringVar(&opts.format, "format", "", "export format: csv or xlsx")
	fs.StringVar(&opts.out, "out", "", "export file path; a bare name lands in the exports directory")
	fs.BoolVar(&opts.asJSON, "json", false, "print the query result as JSON")
	fs.BoolVar(&opts.verbose, "v", false, "log ingestion details to stderr")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.version {
		return &opts, nil
	}
	if opts.segmentType == "" {
		fs.Usage()
		return nil, errors.New("-segment-type is required")
	}
	if opts.level < 0 || opts.level > maxLevel {
		return nil, fmt.Errorf("-level must be between 0 and %d", maxLevel)
	}

	opts.segments = splitList(segments)
	opts.geographies = splitList(geographies)
	return &opts, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (o *options) request() v1.QueryRequest {
	filter := domain.FilterSpec{
		SegmentType:  o.segmentType,
		Segments:     o.segments,
		Geographies:  o.geographies,
		BusinessType: strings.ToUpper(o.businessType),
	}
	if o.level > 0 {
		filter.AggregationLevel = domain.IntPtr(o.level)
	}
	return v1.QueryRequest{
		Filter: filter,
		Metric: domain.Metric(strings.ToLower(o.metric)),
		Year:   o.year,
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger := infrastructure.NewLogger(config.LoggingConfig{Level: level, Format: "text"}, stderr)
	ctx = infrastructure.EnsureTraceID(ctx)

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return err
	}

	svc := newService(cfg, paths, logger)

	ingestOpts := services.IngestOptions{Dir: opts.dir}
	if opts.strict {
		ingestOpts.Lenient = boolPtr(false)
	}
	ds, err := svc.IngestDirectory(ctx, ingestOpts)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	req := opts.request()
	result, err := svc.Query(ctx, req)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printReport(stdout, ds)
		printResult(stdout, result)
	}

	if opts.out != "" || opts.format != "" {
		path, err := export(ctx, svc, paths, req, opts)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(stderr, "exported %d records to %s\n", result.Summary.Count, path)
	}
	return nil
}

func boolPtr(b bool) *bool {
	return &b
}

func newService(cfg *config.Config, paths *config.Paths, logger *slog.Logger) *services.DatasetService {
	fileValidator := validation.NewFileValidator(logger, cfg.Ingestion.MaxDocumentBytes)
	return services.NewDatasetService(services.DatasetDeps{
		Session: session.New(),
		Pipeline: dataprocessing.PipelineConfig{
			MaxDepth:   cfg.Ingestion.MaxDepth,
			YieldEvery: cfg.Ingestion.YieldEvery,
			Lenient:    cfg.Ingestion.Lenient,
		},
		Discovery: files.NewDiscovery(paths, fileValidator, logger),
		Validator: fileValidator,
		Exporter:  exporter.NewRecordExporter(paths, logger),
	}, logger)
}

// export writes to opts.out, or to a generated name in the exports
// directory. The format defaults to the extension of opts.out.
func export(ctx context.Context, svc *services.DatasetService, paths *config.Paths, req v1.QueryRequest, opts *options) (string, error) {
	format := opts.format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(opts.out), ".")
	}
	f, err := exporter.ParseFormat(format)
	if err != nil {
		return "", err
	}

	exportReq := v1.ExportRequest{QueryRequest: req, Format: string(f)}
	if opts.out == "" {
		return svc.ExportFile(ctx, exportReq)
	}

	path := opts.out
	if !filepath.IsAbs(path) && filepath.Base(path) == path {
		path = paths.GetExportPath(path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := svc.Export(ctx, exportReq, file); err != nil {
		file.Close()
		os.Remove(path)
		return "", err
	}
	return path, file.Close()
}

func printReport(w io.Writer, ds *domain.Dataset) {
	r := ds.Report
	fmt.Fprintf(w, "Dataset %s\n", ds.ID)
	fmt.Fprintf(w, "  documents:  %s\n", strings.Join(r.Documents, ", "))
	fmt.Fprintf(w, "  years:      %s\n", joinInts(ds.YearAxis.Years))
	fmt.Fprintf(w, "  records:    %d value, %d volume\n", ds.Value.Len(), ds.Volume.Len())
	fmt.Fprintf(w, "  anomalies:  %d cycles, %d too deep, %d invalid values, %d marker conflicts\n",
		r.Cycles, r.DepthExceeded, r.InvalidValues, r.MarkerConflicts)
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "  warning:    %s\n", warning)
	}
	fmt.Fprintln(w)
}

func printResult(w io.Writer, result *services.QueryResult) {
	s := result.Summary
	level := "unpinned"
	if result.EffectiveLevel > 0 {
		level = strconv.Itoa(result.EffectiveLevel)
	}
	fmt.Fprintf(w, "%s of %q, level %s: %d records, total %s in %d\n\n",
		result.Metric, result.Filter.SegmentType, level, s.Count, formatNumber(s.Total), s.Year)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GEOGRAPHY\tSEGMENT\tLEVEL\tAGGREGATED\t"+strconv.Itoa(s.Year)+"\tSHARE\tCAGR")
	for _, r := range s.Records {
		lvl := "-"
		if r.HasLevel() {
			lvl = strconv.Itoa(r.Level())
		}
		share := "-"
		if r.MarketShare != nil {
			share = formatNumber(*r.MarketShare) + "%"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
			r.Geography, r.Segment, lvl, r.IsAggregated, formatNumber(r.Value(s.Year)), share, formatNumber(r.CAGR))
	}
	tw.Flush()

	if len(s.ByGeography) > 1 {
		fmt.Fprintln(w)
		for _, g := range s.ByGeography {
			fmt.Fprintf(w, "  %s: %s\n", g.Geography, formatNumber(g.Total))
		}
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
