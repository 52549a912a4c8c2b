package hierarchy

import (
	"sort"
	"strconv"
	"strings"
)

// Reserved keys recognised inside a node.
const (
	GrowthKey     = "CAGR"
	AggregatedKey = "_aggregated"
	LevelKey      = "_level"
)

// Value is one year entry. Null and non-numeric entries are kept as invalid.
type Value struct {
	Number float64
	Valid  bool
}

// Number builds a valid Value.
func Number(v float64) Value {
	return Value{Number: v, Valid: true}
}

// Growth is the growth-rate field of a node.
type Growth struct {
	Number  float64
	Text    string
	Valid   bool
	Present bool
	Null    bool
}

// Rate builds a present, valid growth rate from its display text.
func Rate(text string) Growth {
	n, ok := ParseRate(text)
	return Growth{Number: n, Text: text, Valid: ok, Present: true}
}

// NullRate is an explicitly null growth rate.
func NullRate() Growth {
	return Growth{Present: true, Null: true}
}

// YearData is everything a node carries besides its children.
type YearData struct {
	Years      map[int]Value
	Growth     Growth
	Aggregated *bool
	Level      *int
}

// HasYears reports whether any year key is present.
func (d YearData) HasYears() bool {
	return len(d.Years) > 0
}

// HasData reports whether the node carries year fields or a growth rate.
func (d YearData) HasData() bool {
	return d.HasYears() || d.Growth.Present
}

// YearKeys returns the year keys in ascending order.
func (d YearData) YearKeys() []int {
	keys := make([]int, 0, len(d.Years))
	for y := range d.Years {
		keys = append(keys, y)
	}
	sort.Ints(keys)
	return keys
}

// Set stores a year value, allocating the map on first use.
func (d *YearData) Set(year int, v Value) {
	if d.Years == nil {
		d.Years = make(map[int]Value)
	}
	d.Years[year] = v
}

// Clone returns a deep copy.
func (d YearData) Clone() YearData {
	out := YearData{Growth: d.Growth}
	if d.Years != nil {
		out.Years = make(map[int]Value, len(d.Years))
		for k, v := range d.Years {
			out.Years[k] = v
		}
	}
	if d.Aggregated != nil {
		b := *d.Aggregated
		out.Aggregated = &b
	}
	if d.Level != nil {
		l := *d.Level
		out.Level = &l
	}
	return out
}

// YearKey reports whether key is a four-digit year and returns it.
func YearKey(key string) (int, bool) {
	if len(key) != 4 {
		return 0, false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return 0, false
		}
	}
	year, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	return year, true
}

// IsGrowthKey reports whether key names the growth-rate field.
func IsGrowthKey(key string) bool {
	return strings.EqualFold(key, GrowthKey)
}

// IsStructural reports whether key can name a child segment.
func IsStructural(key string) bool {
	if key == "" || strings.HasPrefix(key, "_") || IsGrowthKey(key) {
		return false
	}
	_, isYear := YearKey(key)
	return !isYear
}

// ParseNumber parses a numeric string, tolerating surrounding spaces and
// thousands separators.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseRate parses a growth rate such as "12.5%" or "12.5".
func ParseRate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	return ParseNumber(s)
}
