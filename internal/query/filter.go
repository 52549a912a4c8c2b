// Package query filters flat market records without double counting.
//
// Filter is pure: it never mutates its input, performs no I/O, and returns
// the surviving records in input order.
package query

import (
	"strings"

	"marketlens/pkg/contracts/domain"
)

// selection is the resolved view of a FilterSpec for one run.
type selection struct {
	spec        domain.FilterSpec
	geographies map[string]struct{}
	segments    map[string]struct{}
	level       int
}

func newSelection(records []domain.Record, spec domain.FilterSpec) selection {
	sel := selection{spec: spec}

	if len(spec.Geographies) > 0 {
		sel.geographies = make(map[string]struct{}, len(spec.Geographies))
		for _, g := range spec.Geographies {
			sel.geographies[g] = struct{}{}
		}
	}

	if selected := spec.SelectedSegments(); len(selected) > 0 {
		sel.segments = make(map[string]struct{}, len(selected))
		for _, s := range selected {
			sel.segments[s] = struct{}{}
		}
	}

	sel.level = ResolveLevel(records, spec)
	return sel
}

func (s selection) pinned() bool {
	return s.level > 0
}

func (s selection) hasSegments() bool {
	return len(s.segments) > 0
}

func (s selection) selected(label string) bool {
	_, ok := s.segments[label]
	return ok
}

// ResolveLevel returns the effective aggregation level of spec: the pinned
// level when the caller set one; otherwise, when segments are selected and
// their own records share exactly one level, that level. 0 means unpinned.
func ResolveLevel(records []domain.Record, spec domain.FilterSpec) int {
	if lvl := spec.PinnedLevel(); lvl > 0 {
		return lvl
	}
	selected := spec.SelectedSegments()
	if len(selected) == 0 {
		return 0
	}

	wanted := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		wanted[s] = struct{}{}
	}

	level := 0
	for _, r := range records {
		if r.SegmentType != spec.SegmentType || !r.HasLevel() {
			continue
		}
		if _, ok := wanted[r.Segment]; !ok {
			continue
		}
		switch {
		case level == 0:
			level = r.Level()
		case level != r.Level():
			return 0
		}
	}
	return level
}

// Filter returns the records matching spec, in input order.
func Filter(records []domain.Record, spec domain.FilterSpec) []domain.Record {
	sel := newSelection(records, spec)

	out := make([]domain.Record, 0)
	for _, r := range records {
		if sel.matches(r) {
			out = append(out, r)
		}
	}

	if !sel.pinned() && sel.hasSegments() {
		out = dropCovered(out)
	}
	return out
}

// matches applies the gates in order.
func (s selection) matches(r domain.Record) bool {
	return s.geographyGate(r) &&
		s.levelGate(r) &&
		s.doubleCountGate(r) &&
		r.SegmentType == s.spec.SegmentType &&
		s.businessTypeGate(r) &&
		s.segmentGate(r)
}

func (s selection) geographyGate(r domain.Record) bool {
	if s.geographies == nil {
		return true
	}
	_, ok := s.geographies[r.Geography]
	return ok
}

// levelGate keeps records at the effective level. A leaf without a recorded
// level surfaces when its lineage reaches that level.
func (s selection) levelGate(r domain.Record) bool {
	if !s.pinned() {
		return true
	}
	if r.HasLevel() {
		return r.Level() == s.level
	}
	return !r.IsAggregated && r.SegmentHierarchy.Slot(s.level-1) != ""
}

// doubleCountGate applies only when no level is in force: aggregated records
// survive only as explicit selections.
func (s selection) doubleCountGate(r domain.Record) bool {
	if s.pinned() || !r.IsAggregated {
		return true
	}
	if !s.hasSegments() {
		return false
	}
	return r.SegmentType == s.spec.SegmentType && s.selected(r.Segment)
}

// businessTypeGate is enforced only for records under a B2B/B2C branch.
func (s selection) businessTypeGate(r domain.Record) bool {
	if s.spec.BusinessType == "" {
		return true
	}
	first := r.SegmentHierarchy.Level1
	if !domain.IsBusinessType(first) {
		return true
	}
	return first == s.spec.BusinessType
}

func (s selection) segmentGate(r domain.Record) bool {
	if !s.hasSegments() || s.level == 1 {
		return true
	}
	if s.selected(r.Segment) {
		return true
	}
	if s.pinned() {
		return s.selected(r.SegmentHierarchy.Slot(s.level - 1))
	}
	for _, slot := range r.SegmentHierarchy.Slots() {
		if slot != "" && s.selected(slot) {
			return true
		}
	}
	return false
}

// dropCovered removes leaves lying beneath an aggregated record that is
// already part of the result, so mixed-level selections never count a
// subtree twice.
func dropCovered(records []domain.Record) []domain.Record {
	covered := make(map[string]struct{})
	for _, r := range records {
		if r.IsAggregated {
			covered[lineageKey(r, r.SegmentHierarchy.Depth())] = struct{}{}
		}
	}
	if len(covered) == 0 {
		return records
	}

	out := records[:0:0]
	for _, r := range records {
		if !r.IsAggregated && isCovered(r, covered) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isCovered(r domain.Record, covered map[string]struct{}) bool {
	depth := r.SegmentHierarchy.Depth()
	for d := 0; d < depth; d++ {
		if _, ok := covered[lineageKey(r, d)]; ok {
			return true
		}
	}
	return false
}

func lineageKey(r domain.Record, depth int) string {
	slots := r.SegmentHierarchy.Slots()
	parts := append([]string{r.Geography, r.SegmentType}, slots[:depth]...)
	return strings.Join(parts, "\x1f")
}
