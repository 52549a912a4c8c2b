package domain

import (
	"time"
)

// Metric selects which record set of a dataset a query runs against.
type Metric string

const (
	MetricValue  Metric = "value"
	MetricVolume Metric = "volume"
)

// YearAxis is the discovered, ascending set of years across a document.
type YearAxis struct {
	Years []int `json:"years"`
	Min   int   `json:"min"`
	Max   int   `json:"max"`
	Base  int   `json:"base"`
}

// NewYearAxis builds an axis from an ascending, de-duplicated year list.
// Base is the midpoint of the range.
func NewYearAxis(years []int) YearAxis {
	if len(years) == 0 {
		return YearAxis{}
	}
	lo, hi := years[0], years[len(years)-1]
	return YearAxis{
		Years: years,
		Min:   lo,
		Max:   hi,
		Base:  lo + (hi-lo)/2,
	}
}

// Contains reports whether year is part of the axis.
func (a YearAxis) Contains(year int) bool {
	for _, y := range a.Years {
		if y == year {
			return true
		}
	}
	return false
}

// RecordSet is the immutable result of building one source document.
type RecordSet struct {
	Records  []Record `json:"records"`
	YearAxis YearAxis `json:"year_axis"`
}

// Len returns the record count; safe on nil.
func (s *RecordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// SegmentDimension is the option catalogue of one segment type.
type SegmentDimension struct {
	SegmentType string              `json:"segment_type"`
	Items       []string            `json:"items"`
	Hierarchy   map[string][]string `json:"hierarchy"`
	B2B         *BusinessSplit      `json:"b2b,omitempty"`
	B2C         *BusinessSplit      `json:"b2c,omitempty"`
}

// BusinessSplit is the catalogue scoped to one business-type branch.
type BusinessSplit struct {
	Items     []string            `json:"items"`
	Hierarchy map[string][]string `json:"hierarchy"`
}

// HasBusinessSplit reports whether the segment type is split into B2B/B2C.
func (d *SegmentDimension) HasBusinessSplit() bool {
	return d != nil && (d.B2B != nil || d.B2C != nil)
}

// Dimensions is the metadata describing what a dataset can be filtered by.
type Dimensions struct {
	Geographies  []string                     `json:"geographies"`
	SegmentTypes []string                     `json:"segment_types"`
	Segments     map[string]*SegmentDimension `json:"segments"`
}

// Segment returns the dimension of segmentType, or nil.
func (d Dimensions) Segment(segmentType string) *SegmentDimension {
	if d.Segments == nil {
		return nil
	}
	return d.Segments[segmentType]
}

// IngestReport counts what an ingestion run did, including soft anomalies.
type IngestReport struct {
	Documents       []string `json:"documents"`
	Paths           int      `json:"paths"`
	Records         int      `json:"records"`
	Cycles          int      `json:"cycles"`
	DepthExceeded   int      `json:"depth_exceeded"`
	InvalidValues   int      `json:"invalid_values"`
	MarkerConflicts int      `json:"marker_conflicts"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Dataset is one complete, immutable ingestion result.
type Dataset struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	Value      *RecordSet    `json:"value"`
	Volume     *RecordSet    `json:"volume,omitempty"`
	Dimensions Dimensions    `json:"dimensions"`
	YearAxis   YearAxis      `json:"year_axis"`
	Report     IngestReport  `json:"report"`
	Duration   time.Duration `json:"duration"`
}

// Records returns the record set for metric, or nil when absent.
func (d *Dataset) Records(metric Metric) *RecordSet {
	if d == nil {
		return nil
	}
	switch metric {
	case MetricVolume:
		return d.Volume
	case MetricValue, "":
		return d.Value
	default:
		return nil
	}
}
