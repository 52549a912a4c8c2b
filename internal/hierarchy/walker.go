package hierarchy

import (
	"iter"
	"log/slog"
)

// DefaultMaxDepth bounds how far below the starting node a walk descends.
const DefaultMaxDepth = 20

// Entry is one yielded node.
type Entry struct {
	Path  Path
	Node  *Node
	Data  YearData
	Depth int
}

// WalkStats counts skipped branches across the walks of one Walker.
type WalkStats struct {
	Visited       int
	Cycles        int
	DepthExceeded int
}

// Walker traverses node trees with an explicit stack. A Walker accumulates
// stats and is not safe for concurrent use.
type Walker struct {
	maxDepth int
	logger   *slog.Logger
	stats    WalkStats
}

// NewWalker creates a walker. maxDepth <= 0 uses DefaultMaxDepth.
func NewWalker(logger *slog.Logger, maxDepth int) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Walker{
		maxDepth: maxDepth,
		logger:   logger.With(slog.String("component", "hierarchy_walker")),
	}
}

// Stats returns the counters accumulated so far.
func (w *Walker) Stats() WalkStats {
	return w.stats
}

// MaxDepth returns the configured depth bound.
func (w *Walker) MaxDepth() int {
	return w.maxDepth
}

// Walk yields every node under root (root included) that carries year
// fields or a growth rate, and keeps descending below it. prefix is the path
// of root itself.
func (w *Walker) Walk(root *Node, prefix Path) iter.Seq[Entry] {
	return w.walk(root, prefix, false)
}

// WalkStructure yields every terminal path under root, including empty
// leaves, ignoring numeric content.
func (w *Walker) WalkStructure(root *Node, prefix Path) iter.Seq[Entry] {
	return w.walk(root, prefix, true)
}

type frame struct {
	node  *Node
	path  Path
	depth int
}

func (w *Walker) walk(root *Node, prefix Path, terminalsOnly bool) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if root == nil {
			return
		}
		visited := make(map[*Node]struct{})
		stack := []frame{{node: root, path: prefix.Clone()}}

		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if _, seen := visited[f.node]; seen {
				w.stats.Cycles++
				w.logger.Warn("cycle detected, skipping branch",
					slog.String("path", f.path.String()))
				continue
			}
			if f.depth > w.maxDepth {
				w.stats.DepthExceeded++
				w.logger.Warn("maximum depth exceeded, skipping branch",
					slog.String("path", f.path.String()),
					slog.Int("max_depth", w.maxDepth))
				continue
			}
			visited[f.node] = struct{}{}
			w.stats.Visited++

			children := f.node.Children()
			emit := f.node.Data.HasData()
			if terminalsOnly {
				emit = len(children) == 0
			}
			if emit {
				entry := Entry{Path: f.path, Node: f.node, Data: f.node.Data, Depth: f.depth}
				if !yield(entry) {
					return
				}
			}

			for i := len(children) - 1; i >= 0; i-- {
				c := children[i]
				stack = append(stack, frame{node: c, path: f.path.Child(c.Label), depth: f.depth + 1})
			}
		}
	}
}
