package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSegmentHierarchy(t *testing.T) {
	tests := []struct {
		name      string
		labels    []string
		wantSlots [HierarchySlots]string
		wantDepth int
	}{
		{
			name:      "empty",
			labels:    nil,
			wantSlots: [HierarchySlots]string{},
			wantDepth: 0,
		},
		{
			name:      "two levels",
			labels:    []string{"Product A", "Sub A1"},
			wantSlots: [HierarchySlots]string{"Product A", "Sub A1", "", "", ""},
			wantDepth: 2,
		},
		{
			name:      "truncated past five",
			labels:    []string{"a", "b", "c", "d", "e", "f"},
			wantSlots: [HierarchySlots]string{"a", "b", "c", "d", "e"},
			wantDepth: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSegmentHierarchy(tt.labels)
			assert.Equal(t, tt.wantSlots, h.Slots())
			assert.Equal(t, tt.wantDepth, h.Depth())
		})
	}
}

func TestSegmentHierarchySlot(t *testing.T) {
	h := NewSegmentHierarchy([]string{"B2B", "Product A"})

	assert.Equal(t, "B2B", h.Slot(0))
	assert.Equal(t, "Product A", h.Slot(1))
	assert.Equal(t, "", h.Slot(2))
	assert.Equal(t, "", h.Slot(-1))
	assert.Equal(t, "", h.Slot(HierarchySlots))
	assert.True(t, h.Contains("Product A"))
	assert.False(t, h.Contains(""))
}

func TestFilterSpecSelectedSegments(t *testing.T) {
	tests := []struct {
		name string
		spec FilterSpec
		want []string
	}{
		{
			name: "plain segments",
			spec: FilterSpec{SegmentType: "By Product", Segments: []string{"Product A"}},
			want: []string{"Product A"},
		},
		{
			name: "advanced segments take precedence",
			spec: FilterSpec{
				SegmentType: "By Product",
				Segments:    []string{"Product A"},
				AdvancedSegments: []SegmentRef{
					{Type: "By Product", Segment: "Product B"},
					{Type: "By Region", Segment: "North"},
				},
			},
			want: []string{"Product B"},
		},
		{
			name: "advanced segments of another type select nothing",
			spec: FilterSpec{
				SegmentType:      "By Product",
				AdvancedSegments: []SegmentRef{{Type: "By Region", Segment: "North"}},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.SelectedSegments())
		})
	}
}

func TestNewYearAxis(t *testing.T) {
	axis := NewYearAxis([]int{2020, 2021, 2022, 2023, 2024, 2025})
	assert.Equal(t, 2020, axis.Min)
	assert.Equal(t, 2025, axis.Max)
	assert.Equal(t, 2022, axis.Base)
	assert.True(t, axis.Contains(2023))
	assert.False(t, axis.Contains(2030))

	assert.Equal(t, YearAxis{}, NewYearAxis(nil))
}

func TestDatasetRecords(t *testing.T) {
	value := &RecordSet{Records: []Record{{Geography: "Global"}}}
	ds := &Dataset{Value: value}

	assert.Same(t, value, ds.Records(MetricValue))
	assert.Same(t, value, ds.Records(""))
	assert.Nil(t, ds.Records(MetricVolume))
	assert.Nil(t, ds.Records("price"))

	var nilDS *Dataset
	assert.Nil(t, nilDS.Records(MetricValue))
}
