package hierarchy

import (
	"strings"
)

// Path is the ordered label sequence from geography down to a node.
type Path []string

// String renders the path for logs.
func (p Path) String() string {
	return strings.Join(p, " / ")
}

// Key is a collision-safe map key for the path.
func (p Path) Key() string {
	return strings.Join(p, "\x1f")
}

// Child returns a new path extended by label. The receiver is not modified.
func (p Path) Child(label string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = label
	return out
}

// Clone returns a copy of the path.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// HasPrefix reports whether prefix is a leading part of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Last returns the deepest label, or "".
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Kind is the tagged variant of a node, derived from decoded content.
type Kind int

const (
	// KindLeaf has no children.
	KindLeaf Kind = iota
	// KindBranch has children and no data of its own.
	KindBranch
	// KindAggregatedBranch has children and carries (usually pre-summed) data.
	KindAggregatedBranch
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindBranch:
		return "branch"
	case KindAggregatedBranch:
		return "aggregated_branch"
	default:
		return "unknown"
	}
}

// Node is one decoded hierarchy node. Children keep document order.
type Node struct {
	Label    string
	Data     YearData
	children []*Node
	index    map[string]int
}

// NewNode creates an empty node.
func NewNode(label string) *Node {
	return &Node{Label: label}
}

// Kind reports the variant of n.
func (n *Node) Kind() Kind {
	switch {
	case len(n.children) == 0:
		return KindLeaf
	case n.Data.HasData():
		return KindAggregatedBranch
	default:
		return KindBranch
	}
}

// Children returns the child nodes in document order.
func (n *Node) Children() []*Node {
	return n.children
}

// Child returns the child labelled label, or nil.
func (n *Node) Child(label string) *Node {
	if i, ok := n.index[label]; ok {
		return n.children[i]
	}
	return nil
}

// AddChild appends c, replacing an existing child with the same label in place.
func (n *Node) AddChild(c *Node) *Node {
	if n.index == nil {
		n.index = make(map[string]int)
	}
	if i, ok := n.index[c.Label]; ok {
		n.children[i] = c
		return c
	}
	n.index[c.Label] = len(n.children)
	n.children = append(n.children, c)
	return c
}

// Labels returns the child labels in document order.
func (n *Node) Labels() []string {
	labels := make([]string, len(n.children))
	for i, c := range n.children {
		labels[i] = c.Label
	}
	return labels
}

// Lookup follows labels down from n and returns the node, or nil.
func (n *Node) Lookup(labels ...string) *Node {
	cur := n
	for _, l := range labels {
		if cur == nil {
			return nil
		}
		cur = cur.Child(l)
	}
	return cur
}

// Clone deep-copies the tree under n. Shared or cyclic references are
// preserved as such in the copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	copies := make(map[*Node]*Node)
	type pending struct{ src, dst *Node }

	root := &Node{Label: n.Label, Data: n.Data.Clone()}
	copies[n] = root
	queue := []pending{{n, root}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, c := range p.src.children {
			if dup, ok := copies[c]; ok {
				p.dst.AddChild(dup)
				continue
			}
			dup := &Node{Label: c.Label, Data: c.Data.Clone()}
			copies[c] = dup
			p.dst.AddChild(dup)
			queue = append(queue, pending{c, dup})
		}
	}
	return root
}
