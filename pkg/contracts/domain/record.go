package domain

// AllSegments is the segment label carried by level-1 (total) records.
const AllSegments = "All Segments"

// Business type labels recognised as the first hierarchy level of a segment type.
const (
	BusinessTypeB2B = "B2B"
	BusinessTypeB2C = "B2C"
)

// HierarchySlots is the number of lineage slots carried by a Record.
const HierarchySlots = 5

// Record is one flattened row of the market hierarchy. Records are built once
// per ingestion run and must be treated as read-only afterwards.
type Record struct {
	Geography        string           `json:"geography"`
	SegmentType      string           `json:"segment_type"`
	Segment          string           `json:"segment"`
	SegmentHierarchy SegmentHierarchy `json:"segment_hierarchy"`
	TimeSeries       map[int]float64  `json:"time_series"`
	CAGR             float64          `json:"cagr"`
	AggregationLevel *int             `json:"aggregation_level"`
	IsAggregated     bool             `json:"is_aggregated"`
	MarketShare      *float64         `json:"market_share,omitempty"`
}

// Level returns the aggregation level, or 0 when the record has none.
func (r Record) Level() int {
	if r.AggregationLevel == nil {
		return 0
	}
	return *r.AggregationLevel
}

// HasLevel reports whether the record carries an aggregation level.
func (r Record) HasLevel() bool {
	return r.AggregationLevel != nil
}

// Value returns the time-series value for year, or 0 when absent.
func (r Record) Value(year int) float64 {
	return r.TimeSeries[year]
}

// SegmentHierarchy holds the ordered lineage labels beneath the segment type.
// Unused slots are empty strings.
type SegmentHierarchy struct {
	Level1 string `json:"level_1"`
	Level2 string `json:"level_2"`
	Level3 string `json:"level_3"`
	Level4 string `json:"level_4"`
	Level5 string `json:"level_5"`
}

// NewSegmentHierarchy fills the slots from labels, truncating past the fifth.
func NewSegmentHierarchy(labels []string) SegmentHierarchy {
	var slots [HierarchySlots]string
	copy(slots[:], labels)
	return SegmentHierarchy{
		Level1: slots[0],
		Level2: slots[1],
		Level3: slots[2],
		Level4: slots[3],
		Level5: slots[4],
	}
}

// Slots returns the hierarchy as a fixed array, level_1 first.
func (h SegmentHierarchy) Slots() [HierarchySlots]string {
	return [HierarchySlots]string{h.Level1, h.Level2, h.Level3, h.Level4, h.Level5}
}

// Slot returns the zero-based slot i, or "" when i is out of range.
func (h SegmentHierarchy) Slot(i int) string {
	if i < 0 || i >= HierarchySlots {
		return ""
	}
	return h.Slots()[i]
}

// Depth is the number of leading non-empty slots.
func (h SegmentHierarchy) Depth() int {
	depth := 0
	for _, s := range h.Slots() {
		if s == "" {
			break
		}
		depth++
	}
	return depth
}

// Contains reports whether any slot equals label.
func (h SegmentHierarchy) Contains(label string) bool {
	if label == "" {
		return false
	}
	for _, s := range h.Slots() {
		if s == label {
			return true
		}
	}
	return false
}

// IsBusinessType reports whether label is B2B or B2C.
func IsBusinessType(label string) bool {
	return label == BusinessTypeB2B || label == BusinessTypeB2C
}
