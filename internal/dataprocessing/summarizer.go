package dataprocessing

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"marketlens/internal/errors"
	"marketlens/pkg/contracts/domain"
)

// Summarizer derives chart-ready figures from a filtered record list.
// It never mutates its input: records in a Summary are copies.
type Summarizer struct {
	logger         *slog.Logger
	sharePrecision int32
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	SharePrecision int32 // decimal places kept for market share percentages
}

// GeographyTotal is the selected year's total for one geography.
type GeographyTotal struct {
	Geography string   `json:"geography"`
	Total     float64  `json:"total"`
	Share     *float64 `json:"share,omitempty"`
}

// Summary is the aggregate view of one query result.
type Summary struct {
	Year         int              `json:"year"`
	Count        int              `json:"count"`
	Total        float64          `json:"total"`
	TotalsByYear map[int]float64  `json:"totals_by_year"`
	ByGeography  []GeographyTotal `json:"by_geography"`
	Records      []domain.Record  `json:"records"`
}

// NewSummarizer creates a summarizer with the given configuration.
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.SharePrecision <= 0 {
		config.SharePrecision = 2
	}
	return &Summarizer{
		logger:         logger.With(slog.String("component", "summarizer")),
		sharePrecision: config.SharePrecision,
	}
}

// Summarize totals recs per year and computes each record's market share of
// the chosen year. year 0 selects the axis base year.
func (s *Summarizer) Summarize(ctx context.Context, recs []domain.Record, axis domain.YearAxis, year int) (*Summary, error) {
	if year == 0 {
		year = axis.Base
	}
	if len(axis.Years) > 0 && !axis.Contains(year) {
		return nil, errors.NewQueryError("year outside the dataset range", nil).
			WithContext("year", year).
			WithContext("min", axis.Min).
			WithContext("max", axis.Max)
	}

	summary := &Summary{
		Year:         year,
		Count:        len(recs),
		TotalsByYear: make(map[int]float64, len(axis.Years)),
		ByGeography:  []GeographyTotal{},
		Records:      make([]domain.Record, len(recs)),
	}

	yearTotals := make(map[int]decimal.Decimal, len(axis.Years))
	geoTotals := make(map[string]decimal.Decimal)
	var geoOrder []string

	for _, r := range recs {
		for y, v := range r.TimeSeries {
			yearTotals[y] = yearTotals[y].Add(decimal.NewFromFloat(v))
		}
		if _, ok := geoTotals[r.Geography]; !ok {
			geoOrder = append(geoOrder, r.Geography)
		}
		geoTotals[r.Geography] = geoTotals[r.Geography].Add(decimal.NewFromFloat(r.Value(year)))
	}

	total := yearTotals[year]
	for y, t := range yearTotals {
		summary.TotalsByYear[y] = t.InexactFloat64()
	}
	summary.Total = total.InexactFloat64()

	for i, r := range recs {
		summary.Records[i] = copyRecord(r)
		summary.Records[i].MarketShare = s.share(decimal.NewFromFloat(r.Value(year)), total)
	}
	for _, geo := range geoOrder {
		summary.ByGeography = append(summary.ByGeography, GeographyTotal{
			Geography: geo,
			Total:     geoTotals[geo].InexactFloat64(),
			Share:     s.share(geoTotals[geo], total),
		})
	}

	s.logger.DebugContext(ctx, "summary generated",
		slog.Int("records", summary.Count),
		slog.Int("year", year),
		slog.Float64("total", summary.Total))

	return summary, nil
}

// share returns part/total as a rounded percentage, nil when total is zero.
func (s *Summarizer) share(part, total decimal.Decimal) *float64 {
	if total.IsZero() {
		return nil
	}
	pct := part.Div(total).Mul(decimal.NewFromInt(100)).Round(s.sharePrecision).InexactFloat64()
	return &pct
}

func copyRecord(r domain.Record) domain.Record {
	out := r
	out.TimeSeries = make(map[int]float64, len(r.TimeSeries))
	for y, v := range r.TimeSeries {
		out.TimeSeries[y] = v
	}
	if r.AggregationLevel != nil {
		out.AggregationLevel = domain.IntPtr(*r.AggregationLevel)
	}
	out.MarketShare = nil
	return out
}
