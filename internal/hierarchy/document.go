package hierarchy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// ErrInvalidDocument is returned when a document cannot be decoded into a
// hierarchy by any of the enabled strategies.
var ErrInvalidDocument = errors.New("invalid hierarchy document")

// Decode strategies, reported on the document.
const (
	StrategyStrict = "strict"
	StrategyRepair = "repair"
	StrategyHJSON  = "hjson"
)

// ParseOptions controls document decoding.
type ParseOptions struct {
	// Name labels the document in logs and reports.
	Name string
	// Lenient enables the hjson and repair fallbacks after strict decoding fails.
	Lenient bool
}

// Document is a decoded hierarchy. Root's children are geographies.
type Document struct {
	Name          string
	Root          *Node
	Strategy      string
	InvalidValues int
}

// Geographies returns the geography labels in document order.
func (d *Document) Geographies() []string {
	if d == nil || d.Root == nil {
		return nil
	}
	return d.Root.Labels()
}

// SegmentTypes returns the segment-type labels of geography.
func (d *Document) SegmentTypes(geography string) []string {
	if d == nil || d.Root == nil {
		return nil
	}
	geo := d.Root.Child(geography)
	if geo == nil {
		return nil
	}
	return geo.Labels()
}

// Subtree returns the geography/segment-type node, or nil.
func (d *Document) Subtree(geography, segmentType string) *Node {
	if d == nil || d.Root == nil {
		return nil
	}
	return d.Root.Lookup(geography, segmentType)
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Root = d.Root.Clone()
	return &out
}

// Parse decodes data into a Document. Strict JSON is tried first; with
// opts.Lenient the input is then read as hjson and finally repaired. The
// hjson path keeps key order; json-repair rebuilds objects from maps, so a
// repaired document lists its keys sorted.
func Parse(data []byte, opts ParseOptions) (*Document, error) {
	doc, err := decodeStrict(data)
	if err == nil {
		return named(doc, opts.Name, StrategyStrict), nil
	}
	if !opts.Lenient {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, opts.Name, err)
	}

	var ordered hjson.OrderedMap
	if herr := hjson.Unmarshal(data, &ordered); herr == nil {
		if normalized, merr := json.Marshal(&ordered); merr == nil {
			if doc, derr := decodeStrict(normalized); derr == nil {
				return named(doc, opts.Name, StrategyHJSON), nil
			}
		}
	}

	repaired, rerr := jsonrepair.RepairJSON(string(data))
	if rerr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, opts.Name, err)
	}
	doc, derr := decodeStrict([]byte(repaired))
	if derr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, opts.Name, derr)
	}
	return named(doc, opts.Name, StrategyRepair), nil
}

func named(doc *Document, name, strategy string) *Document {
	doc.Name = name
	doc.Strategy = strategy
	return doc
}

// decodeStrict reads a JSON object token by token so child order follows
// the document.
func decodeStrict(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("top-level value must be an object, got %v", tok)
	}

	doc := &Document{Root: NewNode("")}
	if err := decodeObject(dec, doc.Root, doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level object")
	}
	return doc, nil
}

// decodeObject consumes the members of an object whose '{' was already read.
func decodeObject(dec *json.Decoder, node *Node, doc *Document) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}

		tok, err = dec.Token()
		if err != nil {
			return err
		}

		switch {
		case isYear(key):
			year, _ := YearKey(key)
			v, err := yearValue(dec, tok)
			if err != nil {
				return err
			}
			if !v.Valid && tok != nil {
				doc.InvalidValues++
			}
			node.Data.Set(year, v)

		case IsGrowthKey(key):
			g, err := growthValue(dec, tok)
			if err != nil {
				return err
			}
			node.Data.Growth = g

		case key == AggregatedKey:
			if b, ok := tok.(bool); ok {
				node.Data.Aggregated = &b
			} else if err := skipValue(dec, tok); err != nil {
				return err
			}

		case key == LevelKey:
			if n, ok := tok.(json.Number); ok {
				if l, err := n.Int64(); err == nil {
					level := int(l)
					node.Data.Level = &level
				}
			} else if err := skipValue(dec, tok); err != nil {
				return err
			}

		case !IsStructural(key):
			if err := skipValue(dec, tok); err != nil {
				return err
			}

		default:
			if err := decodeChild(dec, node, key, tok, doc); err != nil {
				return err
			}
		}
	}

	// closing '}'
	_, err := dec.Token()
	return err
}

func decodeChild(dec *json.Decoder, parent *Node, key string, tok json.Token, doc *Document) error {
	delim, ok := tok.(json.Delim)
	if !ok {
		// scalar annotations such as units are not segments
		return nil
	}
	switch delim {
	case '{':
		child := parent.AddChild(NewNode(key))
		return decodeObject(dec, child, doc)
	case '[':
		child := parent.AddChild(NewNode(key))
		for dec.More() {
			el, err := dec.Token()
			if err != nil {
				return err
			}
			if label, ok := el.(string); ok && label != "" {
				child.AddChild(NewNode(label))
				continue
			}
			if err := skipValue(dec, el); err != nil {
				return err
			}
		}
		_, err := dec.Token()
		return err
	}
	return fmt.Errorf("unexpected delimiter %v", delim)
}

func isYear(key string) bool {
	_, ok := YearKey(key)
	return ok
}

func yearValue(dec *json.Decoder, tok json.Token) (Value, error) {
	switch v := tok.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Value{}, nil
		}
		return Number(f), nil
	case string:
		if f, ok := ParseNumber(v); ok {
			return Number(f), nil
		}
		return Value{}, nil
	case nil, bool:
		return Value{}, nil
	default:
		return Value{}, skipValue(dec, tok)
	}
}

func growthValue(dec *json.Decoder, tok json.Token) (Growth, error) {
	switch v := tok.(type) {
	case json.Number:
		f, err := v.Float64()
		return Growth{Number: f, Text: v.String(), Valid: err == nil, Present: true}, nil
	case string:
		return Rate(v), nil
	case nil:
		return NullRate(), nil
	case bool:
		return Growth{Present: true}, nil
	default:
		return Growth{Present: true}, skipValue(dec, tok)
	}
}

// skipValue discards the remainder of a value whose first token is tok.
func skipValue(dec *json.Decoder, tok json.Token) error {
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		t, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := t.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
