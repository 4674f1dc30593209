// Package geo handles GeoJSON features and the geometry analysis over them.
package geo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrInvalidCollection is returned when a document is neither a
// FeatureCollection, a Feature nor a bare geometry.
var ErrInvalidCollection = errors.New("invalid geojson document")

// Feature is a single geographic feature.
// Type keeps the literal geometry tag so unrecognised kinds can still be
// reported; Geometry is nil for those.
type Feature struct {
	Geometry   orb.Geometry
	Properties geojson.Properties
	Type       string
	Kind       Kind
}

// NewFeature wraps an orb geometry.
func NewFeature(g orb.Geometry, props geojson.Properties) Feature {
	f := Feature{Geometry: g, Properties: props}
	if g != nil {
		f.Type = g.GeoJSONType()
		f.Kind = ParseKind(f.Type)
	}
	return f
}

// HasGeometry reports whether the feature carries any geometry tag.
func (f Feature) HasGeometry() bool {
	return f.Type != ""
}

// Bound returns the feature extent; empty for features without coordinates.
func (f Feature) Bound() orb.Bound {
	if f.Geometry == nil {
		return orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{-1, -1}}
	}
	return f.Geometry.Bound()
}

// ToCollection builds a FeatureCollection for rendering. Features without a
// known geometry are left out; the ID of every emitted feature is its index
// in the source slice.
func ToCollection(features []Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, f := range features {
		if f.Geometry == nil {
			continue
		}
		gf := geojson.NewFeature(f.Geometry)
		gf.ID = i
		if f.Properties != nil {
			gf.Properties = f.Properties.Clone()
		}
		fc.Append(gf)
	}
	return fc
}

type rawDocument struct {
	Type       string             `json:"type"`
	Features   []json.RawMessage  `json:"features"`
	Geometry   json.RawMessage    `json:"geometry"`
	Properties geojson.Properties `json:"properties"`
}

type rawType struct {
	Type string `json:"type"`
}

// DecodeCollection parses a GeoJSON document. FeatureCollection, Feature
// and bare geometry documents are accepted. Unknown geometry types and
// malformed coordinates never fail the document.
func DecodeCollection(data []byte) ([]Feature, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCollection, err)
	}

	switch doc.Type {
	case "FeatureCollection":
		features := make([]Feature, 0, len(doc.Features))
		for i, raw := range doc.Features {
			var rf rawDocument
			if err := json.Unmarshal(raw, &rf); err != nil {
				return nil, fmt.Errorf("%w: feature %d: %w", ErrInvalidCollection, i, err)
			}
			features = append(features, decodeFeature(rf.Geometry, rf.Properties))
		}
		return features, nil

	case "Feature":
		return []Feature{decodeFeature(doc.Geometry, doc.Properties)}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidCollection)

	default:
		if ParseKind(doc.Type) == KindUnknown {
			return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidCollection, doc.Type)
		}
		return []Feature{decodeFeature(data, nil)}, nil
	}
}

func decodeFeature(rawGeom json.RawMessage, props geojson.Properties) Feature {
	f := Feature{Properties: props}

	rawGeom = bytes.TrimSpace(rawGeom)
	if len(rawGeom) == 0 || bytes.Equal(rawGeom, []byte("null")) {
		return f
	}

	var t rawType
	if err := json.Unmarshal(rawGeom, &t); err != nil {
		return f
	}
	f.Type = t.Type
	f.Kind = ParseKind(t.Type)
	if f.Kind == KindUnknown {
		return f
	}

	g, err := geojson.UnmarshalGeometry(rawGeom)
	if err != nil || g.Geometry() == nil {
		f.Geometry = emptyGeometry(f.Kind)
		return f
	}
	f.Geometry = g.Geometry()

	return f
}

func emptyGeometry(k Kind) orb.Geometry {
	switch k {
	case KindMultiPoint:
		return orb.MultiPoint{}
	case KindLineString:
		return orb.LineString{}
	case KindMultiLineString:
		return orb.MultiLineString{}
	case KindPolygon:
		return orb.Polygon{}
	case KindMultiPolygon:
		return orb.MultiPolygon{}
	case KindGeometryCollection:
		return orb.Collection{}
	default:
		return nil
	}
}
