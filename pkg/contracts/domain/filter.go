package domain

// SegmentRef names a segment within a specific segment type.
type SegmentRef struct {
	Type    string `json:"type" validate:"required"`
	Segment string `json:"segment" validate:"required"`
}

// FilterSpec is the complete, explicit selection applied to a record set.
type FilterSpec struct {
	Geographies      []string     `json:"geographies,omitempty" validate:"omitempty,dive,required"`
	SegmentType      string       `json:"segmentType" validate:"required"`
	Segments         []string     `json:"segments,omitempty" validate:"omitempty,dive,required"`
	AdvancedSegments []SegmentRef `json:"advancedSegments,omitempty" validate:"omitempty,dive"`
	AggregationLevel *int         `json:"aggregationLevel,omitempty" validate:"omitempty,min=1,max=6"`
	BusinessType     string       `json:"businessType,omitempty" validate:"omitempty,oneof=B2B B2C"`
}

// SelectedSegments returns the segment labels selected for the active segment
// type. AdvancedSegments take precedence over Segments when non-empty.
func (f FilterSpec) SelectedSegments() []string {
	if len(f.AdvancedSegments) > 0 {
		var out []string
		for _, ref := range f.AdvancedSegments {
			if ref.Type == f.SegmentType {
				out = append(out, ref.Segment)
			}
		}
		return out
	}
	return f.Segments
}

// PinnedLevel returns the caller-pinned aggregation level, or 0.
func (f FilterSpec) PinnedLevel() int {
	if f.AggregationLevel == nil {
		return 0
	}
	return *f.AggregationLevel
}

// IntPtr is a small helper for building optional levels.
func IntPtr(v int) *int {
	return &v
}
