package records

import (
	"marketlens/internal/hierarchy"
	"marketlens/pkg/contracts/domain"
)

// catalogue accumulates ordered, de-duplicated segment options and
// parent->children edges for one segment type.
type catalogue struct {
	items     []string
	seen      map[string]struct{}
	hierarchy map[string][]string
	edges     map[[2]string]struct{}
}

func newCatalogue() *catalogue {
	return &catalogue{
		seen:      make(map[string]struct{}),
		hierarchy: make(map[string][]string),
		edges:     make(map[[2]string]struct{}),
	}
}

func (c *catalogue) addItem(label string) {
	if _, ok := c.seen[label]; ok {
		return
	}
	c.seen[label] = struct{}{}
	c.items = append(c.items, label)
}

func (c *catalogue) addEdge(parent, child string) {
	key := [2]string{parent, child}
	if _, ok := c.edges[key]; ok {
		return
	}
	c.edges[key] = struct{}{}
	c.hierarchy[parent] = append(c.hierarchy[parent], child)
}

// addChain records labels as a lineage below root.
func (c *catalogue) addChain(root string, labels []string) {
	parent := root
	for _, l := range labels {
		c.addItem(l)
		c.addEdge(parent, l)
		parent = l
	}
}

func (c *catalogue) empty() bool {
	return len(c.items) == 0
}

// dimension collects the catalogue of one segment type, with business-type
// branches tracked separately.
type dimension struct {
	segmentType string
	all         *catalogue
	branches    map[string]*catalogue
	split       bool
	splitKnown  bool
}

func newDimension(segmentType string) *dimension {
	return &dimension{
		segmentType: segmentType,
		all:         newCatalogue(),
		branches:    make(map[string]*catalogue),
	}
}

// addSubtree records every terminal lineage of one geography's subtree.
func (d *dimension) addSubtree(w *hierarchy.Walker, root *hierarchy.Node, prefix hierarchy.Path) {
	if root == nil {
		return
	}
	if len(root.Children()) > 0 {
		split := isBusinessSplit(root.Labels())
		if !d.splitKnown {
			d.split, d.splitKnown = split, true
		} else {
			d.split = d.split && split
		}
	}

	for entry := range w.WalkStructure(root, prefix) {
		suffix := entry.Path[len(prefix):]
		if len(suffix) == 0 {
			continue
		}
		d.all.addChain(d.segmentType, suffix)

		if domain.IsBusinessType(suffix[0]) {
			branch, ok := d.branches[suffix[0]]
			if !ok {
				branch = newCatalogue()
				d.branches[suffix[0]] = branch
			}
			branch.addChain(suffix[0], suffix[1:])
		}
	}
}

func (d *dimension) build() *domain.SegmentDimension {
	out := &domain.SegmentDimension{
		SegmentType: d.segmentType,
		Items:       d.all.items,
		Hierarchy:   d.all.hierarchy,
	}
	if out.Items == nil {
		out.Items = []string{}
	}
	if !d.split {
		return out
	}
	if b, ok := d.branches[domain.BusinessTypeB2B]; ok {
		out.B2B = &domain.BusinessSplit{Items: nonNil(b.items), Hierarchy: b.hierarchy}
	}
	if b, ok := d.branches[domain.BusinessTypeB2C]; ok {
		out.B2C = &domain.BusinessSplit{Items: nonNil(b.items), Hierarchy: b.hierarchy}
	}
	return out
}

// isBusinessSplit reports whether the first level consists only of B2B/B2C.
func isBusinessSplit(labels []string) bool {
	if len(labels) == 0 {
		return false
	}
	for _, l := range labels {
		if !domain.IsBusinessType(l) {
			return false
		}
	}
	return true
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
