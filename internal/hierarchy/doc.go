// Package hierarchy decodes nested market-research documents into a typed
// node tree and walks it.
//
// # Document Shape
//
// Documents are nested JSON objects keyed by labels:
//
//	geography -> segment type -> segment -> ... -> {"2023": 10, "CAGR": "5%"}
//
// Keys are classified exactly once, at decode time:
//
//	- four-digit keys are year values (numbers, numeric strings or null)
//	- "CAGR" is the growth rate (number, percent string or null)
//	- "_aggregated" and "_level" are aggregation markers
//	- any other key holding an object is a child segment
//
// Structure documents may list leaf segments as string arrays:
//
//	{"Global": {"By Product": {"Product A": ["Sub A1", "Sub A2"]}}}
//
// # Walking
//
// Walker yields every node carrying data, parents before children, in
// document order. WalkStructure yields every terminal path instead. Both
// bound the depth and skip cyclic branches with a logged warning.
//
//	w := hierarchy.NewWalker(logger, hierarchy.DefaultMaxDepth)
//	for entry := range w.Walk(node, hierarchy.Path{"Global", "By Product"}) {
//	    fmt.Println(entry.Path, entry.Data.YearKeys())
//	}
package hierarchy
