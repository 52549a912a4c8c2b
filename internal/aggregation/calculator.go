// Package aggregation rolls year values and growth rates up a hierarchy.
package aggregation

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"marketlens/internal/hierarchy"
)

// Stats reports what one aggregation pass did.
type Stats struct {
	Parents       int
	Leaves        int
	Cycles        int
	DepthExceeded int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Parents += other.Parents
	s.Leaves += other.Leaves
	s.Cycles += other.Cycles
	s.DepthExceeded += other.DepthExceeded
}

// Calculator computes parent totals bottom-up. It mutates the nodes it is
// given; callers aggregate a clone when the raw input must be kept.
type Calculator struct {
	maxDepth int
	logger   *slog.Logger
}

// NewCalculator creates a calculator. maxDepth <= 0 uses the walker default.
func NewCalculator(logger *slog.Logger, maxDepth int) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxDepth <= 0 {
		maxDepth = hierarchy.DefaultMaxDepth
	}
	return &Calculator{
		maxDepth: maxDepth,
		logger:   logger.With(slog.String("component", "aggregation_calculator")),
	}
}

// AggregateDocument aggregates every geography/segment-type subtree of doc.
func (c *Calculator) AggregateDocument(doc *hierarchy.Document) Stats {
	var total Stats
	if doc == nil || doc.Root == nil {
		return total
	}
	for _, geo := range doc.Root.Children() {
		for _, segType := range geo.Children() {
			total.Add(c.Aggregate(segType))
		}
	}
	return total
}

type workItem struct {
	node     *hierarchy.Node
	depth    int
	expanded bool
}

// Aggregate runs a post-order pass over the subtree rooted at a segment-type
// node. Every parent receives the per-year sums of its children, the mean of
// their growth rates, and aggregation markers; leaves are marked with their
// level. The root sits at level 1.
func (c *Calculator) Aggregate(root *hierarchy.Node) Stats {
	var stats Stats
	if root == nil {
		return stats
	}

	visited := make(map[*hierarchy.Node]struct{})
	done := make(map[*hierarchy.Node]struct{})
	stack := []workItem{{node: root}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.expanded {
			c.rollUp(item.node, item.depth, done)
			done[item.node] = struct{}{}
			stats.Parents++
			continue
		}

		if _, seen := visited[item.node]; seen {
			stats.Cycles++
			c.logger.Warn("cycle detected during aggregation, skipping branch",
				slog.String("label", item.node.Label),
				slog.Int("depth", item.depth))
			continue
		}
		if item.depth > c.maxDepth {
			stats.DepthExceeded++
			c.logger.Warn("maximum depth exceeded during aggregation, skipping branch",
				slog.String("label", item.node.Label),
				slog.Int("max_depth", c.maxDepth))
			continue
		}
		visited[item.node] = struct{}{}

		children := item.node.Children()
		if len(children) == 0 {
			markLevel(item.node, false, item.depth)
			done[item.node] = struct{}{}
			stats.Leaves++
			continue
		}

		item.expanded = true
		stack = append(stack, item)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, workItem{node: children[i], depth: item.depth + 1})
		}
	}

	return stats
}

// rollUp writes child totals onto parent. Children skipped by cycle or depth
// guards contribute nothing.
func (c *Calculator) rollUp(parent *hierarchy.Node, depth int, done map[*hierarchy.Node]struct{}) {
	sums := make(map[int]float64)
	var rates []decimal.Decimal

	for _, child := range parent.Children() {
		if _, ok := done[child]; !ok {
			continue
		}
		for year, v := range child.Data.Years {
			if v.Valid {
				sums[year] += v.Number
			} else if _, ok := sums[year]; !ok {
				sums[year] = 0
			}
		}
		if child.Data.Growth.Valid {
			rates = append(rates, decimal.NewFromFloat(child.Data.Growth.Number))
		}
	}

	for year, sum := range sums {
		parent.Data.Set(year, hierarchy.Number(sum))
	}

	switch {
	case len(rates) > 0:
		parent.Data.Growth = hierarchy.Rate(MeanRate(rates))
	case !parent.Data.Growth.Present:
		parent.Data.Growth = hierarchy.NullRate()
	}

	markLevel(parent, true, depth)
}

// MeanRate formats the arithmetic mean of rates as a one-decimal percent
// string such as "15.0%".
func MeanRate(rates []decimal.Decimal) string {
	if len(rates) == 0 {
		return ""
	}
	sum := decimal.Zero
	for _, r := range rates {
		sum = sum.Add(r)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(rates))))
	return mean.StringFixed(1) + "%"
}

func markLevel(n *hierarchy.Node, aggregated bool, depth int) {
	level := depth + 1
	n.Data.Aggregated = &aggregated
	n.Data.Level = &level
}
