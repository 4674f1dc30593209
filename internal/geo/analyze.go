package geo

import (
	"bytes"
	"encoding/json"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// TypeCount is the number of features of one geometry type.
type TypeCount struct {
	Type  string `json:"type" yaml:"type"`
	Count int    `json:"count" yaml:"count"`
}

// Summary lists feature counts per geometry type in first-seen order.
type Summary []TypeCount

// TypeStats is the count and accumulated length for one geometry type.
type TypeStats struct {
	Type        string `json:"-" yaml:"-"`
	Kind        Kind   `json:"-" yaml:"-"`
	Count       int    `json:"count" yaml:"count"`
	TotalLength int64  `json:"total_length" yaml:"total_length"`
}

// LengthApplicable reports whether TotalLength was measured for this type.
// A zero length on a Point row means "not applicable", not "measured 0".
func (s TypeStats) LengthApplicable() bool {
	return s.Kind.Measurable()
}

// Stats lists per type counts and lengths in first-seen order.
type Stats []TypeStats

// Summarize counts features by geometry type. Features without geometry
// are skipped.
func Summarize(features []Feature) Summary {
	var s Summary
	index := make(map[string]int)

	for _, f := range features {
		if !f.HasGeometry() {
			continue
		}
		i, ok := index[f.Type]
		if !ok {
			i = len(s)
			index[f.Type] = i
			s = append(s, TypeCount{Type: f.Type})
		}
		s[i].Count++
	}

	return s
}

// Detail counts features by geometry type and sums the length of every
// LineString, every line of a MultiLineString and every ring of a Polygon.
// Holes are added to the polygon total, not subtracted.
func Detail(features []Feature) Stats {
	var s Stats
	index := make(map[string]int)

	for _, f := range features {
		if !f.HasGeometry() {
			continue
		}
		i, ok := index[f.Type]
		if !ok {
			i = len(s)
			index[f.Type] = i
			s = append(s, TypeStats{Type: f.Type, Kind: f.Kind})
		}
		s[i].Count++
		s[i].TotalLength += FeatureLength(f)
	}

	return s
}

// FeatureLength returns the length contribution of a single feature.
func FeatureLength(f Feature) int64 {
	if !f.Kind.Measurable() {
		return 0
	}

	var length int64
	switch g := f.Geometry.(type) {
	case orb.LineString:
		length = LineLength(g)
	case orb.MultiLineString:
		for _, ls := range g {
			length += LineLength(ls)
		}
	case orb.Polygon:
		for _, ring := range g {
			length += LineLength(orb.LineString(ring))
		}
	}

	return length
}

// Count returns the number of features of the given type.
func (s Summary) Count(typ string) int {
	for _, c := range s {
		if c.Type == typ {
			return c.Count
		}
	}
	return 0
}

// Map returns the summary as a plain mapping.
func (s Summary) Map() map[string]int {
	m := make(map[string]int, len(s))
	for _, c := range s {
		m[c.Type] = c.Count
	}
	return m
}

// Get returns the stats row of the given type.
func (s Stats) Get(typ string) (TypeStats, bool) {
	for _, st := range s {
		if st.Type == typ {
			return st, true
		}
	}
	return TypeStats{}, false
}

// MarshalJSON encodes the summary as an object keyed by type, keeping order.
func (s Summary) MarshalJSON() ([]byte, error) {
	return orderedJSON(len(s), func(i int) (string, any) { return s[i].Type, s[i].Count })
}

// MarshalYAML encodes the summary as an ordered mapping.
func (s Summary) MarshalYAML() (any, error) {
	return orderedYAML(len(s), func(i int) (string, any) { return s[i].Type, s[i].Count })
}

type statsRow struct {
	Count            int    `json:"count" yaml:"count"`
	TotalLength      int64  `json:"total_length" yaml:"total_length"`
	LengthApplicable bool   `json:"length_applicable" yaml:"length_applicable"`
	Display          string `json:"display" yaml:"display"`
}

func (s Stats) row(i int) (string, any) {
	st := s[i]
	return st.Type, statsRow{
		Count:            st.Count,
		TotalLength:      st.TotalLength,
		LengthApplicable: st.LengthApplicable(),
		Display:          FormatLength(st),
	}
}

// MarshalJSON encodes the stats as an object keyed by type, keeping order.
func (s Stats) MarshalJSON() ([]byte, error) {
	return orderedJSON(len(s), s.row)
}

// MarshalYAML encodes the stats as an ordered mapping.
func (s Stats) MarshalYAML() (any, error) {
	return orderedYAML(len(s), s.row)
}

func orderedJSON(n int, entry func(int) (string, any)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, val := entry(i)
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func orderedYAML(n int, entry func(int) (string, any)) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i < n; i++ {
		key, val := entry(i)
		var v yaml.Node
		if err := v.Encode(val); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&v)
	}
	return node, nil
}
