package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"marketlens/internal/config"
	"marketlens/internal/errors"
	"marketlens/pkg/contracts/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DefaultSheet names the worksheet of XLSX exports.
const DefaultSheet = "Records"

// ParseFormat accepts "csv" or "xlsx" in any case; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", errors.NewAppValidationError(fmt.Sprintf("unsupported export format %q", s))
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Table is a record list laid out as rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// RecordTable lays out recs with one column per year of years.
func RecordTable(recs []domain.Record, years []int) Table {
	headers := []string{"Geography", "Segment Type", "Segment"}
	for i := 1; i <= domain.HierarchySlots; i++ {
		headers = append(headers, "Level "+strconv.Itoa(i))
	}
	headers = append(headers, "Aggregation Level", "Aggregated", "CAGR", "Market Share")
	for _, y := range years {
		headers = append(headers, strconv.Itoa(y))
	}

	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		slots := r.SegmentHierarchy.Slots()
		row := []string{r.Geography, r.SegmentType, r.Segment}
		row = append(row, slots[:]...)

		level := ""
		if r.HasLevel() {
			level = formatInt(r.Level())
		}
		share := ""
		if r.MarketShare != nil {
			share = formatFloat(*r.MarketShare)
		}
		row = append(row, level, formatBool(r.IsAggregated), formatFloat(r.CAGR), share)

		for _, y := range years {
			row = append(row, formatFloat(r.Value(y)))
		}
		rows = append(rows, row)
	}
	return Table{Headers: headers, Rows: rows}
}

// RecordExporter writes filtered records as CSV or XLSX.
type RecordExporter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewRecordExporter creates an exporter. paths may be nil when only
// streaming exports are used.
func NewRecordExporter(paths *config.Paths, logger *slog.Logger) *RecordExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordExporter{paths: paths, logger: logger.With(slog.String("component", "record_exporter"))}
}

// Export writes recs to out in format.
func (e *RecordExporter) Export(ctx context.Context, out io.Writer, format Format, recs []domain.Record, years []int) error {
	table := RecordTable(recs, years)

	var err error
	switch format {
	case FormatXLSX:
		err = writeXLSX(out, DefaultSheet, table)
	case FormatCSV:
		err = EncodeCSV(out, table.Headers, table.Rows, true)
	default:
		return errors.NewAppValidationError(fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return errors.NewStorageError("export failed", err).WithContext("format", string(format))
	}

	e.logger.InfoContext(ctx, "records exported",
		slog.String("format", string(format)),
		slog.Int("records", len(recs)),
		slog.Int("years", len(years)))
	return nil
}

// ExportFile writes recs to name, resolved against the exports directory
// when relative, and returns the full path.
func (e *RecordExporter) ExportFile(ctx context.Context, name string, format Format, recs []domain.Record, years []int) (string, error) {
	path := name
	if !filepath.IsAbs(path) && e.paths != nil {
		path = e.paths.GetExportPath(name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.NewStorageError("failed to create export directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", errors.NewStorageError("failed to create export file", err)
	}
	if err := e.Export(ctx, file, format, recs, years); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", errors.NewStorageError("failed to close export file", err)
	}
	return path, nil
}

// writeXLSX writes table into a single-sheet workbook. Numeric columns are
// stored as numbers.
func writeXLSX(out io.Writer, sheet string, table Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(table.Headers))
	for i, h := range table.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, row := range table.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	_, err = f.WriteTo(out)
	return err
}

func cellValue(v string) interface{} {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
