// Package dataset holds the analysed contents of one uploaded file.
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/woozymasta/kmlview/internal/geo"
	"github.com/woozymasta/kmlview/internal/kml"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/rtree"
)

var (
	// ErrNoFeatures is returned when a file contains nothing to display.
	ErrNoFeatures = errors.New("no geometries found")
	// ErrUnsupportedFormat is returned when the file is neither KML nor GeoJSON.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Format is the source markup of a dataset.
type Format string

// Supported source formats.
const (
	FormatKML     Format = "kml"
	FormatGeoJSON Format = "geojson"
)

// Dataset is the immutable result of loading and analysing one file.
type Dataset struct {
	LoadedAt time.Time
	index    rtree.RTreeG[int]
	Name     string
	Format   Format
	Features []geo.Feature
	Summary  geo.Summary
	Stats    geo.Stats
	Bound    orb.Bound
}

// DetectFormat picks the format by file extension, falling back to the
// first non-blank byte of the content.
func DetectFormat(name string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".kml":
		return FormatKML, nil
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	}

	trimmed := bytes.TrimSpace(data)
	trimmed = bytes.TrimPrefix(trimmed, []byte("\xef\xbb\xbf"))
	if len(trimmed) > 0 {
		switch trimmed[0] {
		case '<':
			return FormatKML, nil
		case '{':
			return FormatGeoJSON, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// Load parses a KML or GeoJSON file and computes both summary views.
func Load(name string, data []byte) (*Dataset, error) {
	format, err := DetectFormat(name, data)
	if err != nil {
		return nil, err
	}

	var features []geo.Feature
	switch format {
	case FormatKML:
		features, err = kml.Convert(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
	case FormatGeoJSON:
		features, err = geo.DecodeCollection(data)
		if err != nil {
			return nil, err
		}
	}

	return New(name, format, features)
}

// New analyses already decoded features.
func New(name string, format Format, features []geo.Feature) (*Dataset, error) {
	ds := &Dataset{
		Name:     name,
		Format:   format,
		Features: features,
		Summary:  geo.Summarize(features),
		Stats:    geo.Detail(features),
		LoadedAt: time.Now(),
	}
	if len(ds.Summary) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFeatures, name)
	}

	first := true
	for i, f := range features {
		b := f.Bound()
		if b.IsEmpty() {
			continue
		}
		ds.index.Insert(b.Min, b.Max, i)
		if first {
			ds.Bound = b
			first = false
		} else {
			ds.Bound = ds.Bound.Union(b)
		}
	}

	log.Debug().
		Str("file", name).
		Str("format", string(format)).
		Int("features", len(features)).
		Int("types", len(ds.Summary)).
		Msg("Dataset loaded")

	return ds, nil
}

// HasBound reports whether any feature carried coordinates.
func (ds *Dataset) HasBound() bool {
	return ds.index.Len() > 0
}

// Query returns the indices of features whose extent intersects b, ascending.
func (ds *Dataset) Query(b orb.Bound) []int {
	var out []int
	ds.index.Search(b.Min, b.Max, func(_, _ [2]float64, i int) bool {
		out = append(out, i)
		return true
	})
	slices.Sort(out)
	return out
}

// FeatureCollection returns the renderable features as GeoJSON.
func (ds *Dataset) FeatureCollection() *geojson.FeatureCollection {
	return geo.ToCollection(ds.Features)
}

// Subset returns the renderable features at the given indices.
func (ds *Dataset) Subset(indices []int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	all := ds.FeatureCollection()
	byID := make(map[int]*geojson.Feature, len(all.Features))
	for _, f := range all.Features {
		byID[f.ID.(int)] = f
	}
	for _, i := range indices {
		if f, ok := byID[i]; ok {
			fc.Append(f)
		}
	}
	return fc
}
