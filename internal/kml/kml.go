// Package kml converts KML documents into GeoJSON features.
package kml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/woozymasta/kmlview/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrParse wraps every failure to read the KML markup.
var ErrParse = errors.New("kml: parse error")

// Convert reads a KML document and returns one feature per Placemark,
// in document order, regardless of Document/Folder nesting.
// Placemarks without geometry produce features without a type.
// Geometries with empty coordinates keep their type and count with zero
// length; a Point without coordinates has a type but a nil geometry.
func Convert(r io.Reader) ([]geo.Feature, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader
	var features []geo.Feature

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}

		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "Placemark" {
			continue
		}

		f, err := decodePlacemark(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: placemark %d: %w", ErrParse, len(features), err)
		}
		features = append(features, f)
	}

	return features, nil
}

// charsetReader decodes documents declaring a non UTF-8 encoding,
// such as ISO-8859-1 or windows-1252.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

type extendedData struct {
	Data []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value"`
	} `xml:"Data"`
	SchemaData []struct {
		SimpleData []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:",chardata"`
		} `xml:"SimpleData"`
	} `xml:"SchemaData"`
}

func (ed extendedData) apply(props geojson.Properties) {
	for _, d := range ed.Data {
		if d.Name != "" {
			props[d.Name] = strings.TrimSpace(d.Value)
		}
	}
	for _, sd := range ed.SchemaData {
		for _, d := range sd.SimpleData {
			if d.Name != "" {
				props[d.Name] = strings.TrimSpace(d.Value)
			}
		}
	}
}

// decodePlacemark consumes tokens up to and including the closing Placemark tag.
func decodePlacemark(dec *xml.Decoder) (geo.Feature, error) {
	props := geojson.Properties{}
	var geoms []orb.Geometry

	for {
		tok, err := dec.Token()
		if err != nil {
			return geo.Feature{}, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch name := el.Name.Local; {
			case name == "name" || name == "description" || name == "styleUrl" || name == "visibility":
				var v string
				if err := dec.DecodeElement(&v, &el); err != nil {
					return geo.Feature{}, err
				}
				props[name] = strings.TrimSpace(v)

			case name == "ExtendedData":
				var ed extendedData
				if err := dec.DecodeElement(&ed, &el); err != nil {
					return geo.Feature{}, err
				}
				ed.apply(props)

			case isGeometry(name):
				gs, err := decodeGeometry(dec, el)
				if err != nil {
					return geo.Feature{}, err
				}
				geoms = append(geoms, gs...)

			default:
				if err := dec.Skip(); err != nil {
					return geo.Feature{}, err
				}
			}

		case xml.EndElement:
			return newFeature(geoms, props), nil
		}
	}
}

// newFeature assembles the decoded geometries of one Placemark.
// A nil entry stands for a Point without coordinates.
func newFeature(geoms []orb.Geometry, props geojson.Properties) geo.Feature {
	switch len(geoms) {
	case 0:
		return geo.Feature{Properties: props}
	case 1:
		if geoms[0] == nil {
			return geo.Feature{Properties: props, Type: geo.KindPoint.String(), Kind: geo.KindPoint}
		}
		return geo.NewFeature(geoms[0], props)
	}

	c := make(orb.Collection, 0, len(geoms))
	for _, g := range geoms {
		if g != nil {
			c = append(c, g)
		}
	}
	return geo.NewFeature(c, props)
}

func isGeometry(name string) bool {
	switch name {
	case "Point", "LineString", "LinearRing", "Polygon", "MultiGeometry", "Track", "MultiTrack":
		return true
	default:
		return false
	}
}

type coordsElem struct {
	Coordinates string `xml:"coordinates"`
}

type polygonElem struct {
	Outer []coordsElem `xml:"outerBoundaryIs>LinearRing"`
	Inner []coordsElem `xml:"innerBoundaryIs>LinearRing"`
}

type trackElem struct {
	Coords []string `xml:"coord"`
}

type multiTrackElem struct {
	Tracks []trackElem `xml:"Track"`
}

// decodeGeometry reads one geometry element. MultiGeometry is flattened into
// its children. Geometries without coordinates are returned empty, a Point
// as a nil entry.
func decodeGeometry(dec *xml.Decoder, start xml.StartElement) ([]orb.Geometry, error) {
	switch start.Name.Local {
	case "Point":
		var c coordsElem
		if err := dec.DecodeElement(&c, &start); err != nil {
			return nil, err
		}
		pts := parseCoordinates(c.Coordinates)
		if len(pts) == 0 {
			return []orb.Geometry{nil}, nil
		}
		return []orb.Geometry{pts[0]}, nil

	case "LineString", "LinearRing":
		var c coordsElem
		if err := dec.DecodeElement(&c, &start); err != nil {
			return nil, err
		}
		return []orb.Geometry{orb.LineString(parseCoordinates(c.Coordinates))}, nil

	case "Polygon":
		var p polygonElem
		if err := dec.DecodeElement(&p, &start); err != nil {
			return nil, err
		}
		if len(p.Outer) == 0 {
			return []orb.Geometry{orb.Polygon{}}, nil
		}
		outer := parseCoordinates(p.Outer[0].Coordinates)
		if len(outer) == 0 {
			return []orb.Geometry{orb.Polygon{}}, nil
		}

		poly := make(orb.Polygon, 0, 1+len(p.Inner))
		poly = append(poly, orb.Ring(outer))
		for _, ring := range p.Inner {
			if pts := parseCoordinates(ring.Coordinates); len(pts) > 0 {
				poly = append(poly, orb.Ring(pts))
			}
		}
		return []orb.Geometry{poly}, nil

	case "Track":
		var t trackElem
		if err := dec.DecodeElement(&t, &start); err != nil {
			return nil, err
		}
		return []orb.Geometry{t.lineString()}, nil

	case "MultiTrack":
		var mt multiTrackElem
		if err := dec.DecodeElement(&mt, &start); err != nil {
			return nil, err
		}
		var mls orb.MultiLineString
		for _, t := range mt.Tracks {
			if ls := t.lineString(); len(ls) > 0 {
				mls = append(mls, ls)
			}
		}
		switch len(mls) {
		case 0:
			return []orb.Geometry{orb.MultiLineString{}}, nil
		case 1:
			return []orb.Geometry{mls[0]}, nil
		default:
			return []orb.Geometry{mls}, nil
		}

	case "MultiGeometry":
		var out []orb.Geometry
		for {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			switch el := tok.(type) {
			case xml.StartElement:
				if !isGeometry(el.Name.Local) {
					if err := dec.Skip(); err != nil {
						return nil, err
					}
					continue
				}
				gs, err := decodeGeometry(dec, el)
				if err != nil {
					return nil, err
				}
				out = append(out, gs...)
			case xml.EndElement:
				return out, nil
			}
		}
	}

	return nil, dec.Skip()
}

// lineString converts gx:coord values ("lon lat [alt]") into a line.
func (t trackElem) lineString() orb.LineString {
	ls := make(orb.LineString, 0, len(t.Coords))
	for _, c := range t.Coords {
		vals := strings.Fields(c)
		if len(vals) < 2 {
			continue
		}
		if pt, ok := parsePoint(vals[0], vals[1]); ok {
			ls = append(ls, pt)
		}
	}
	return ls
}

// parseCoordinates reads whitespace separated "lon,lat[,alt]" tuples.
// Altitude is dropped; tuples that do not parse are skipped.
func parseCoordinates(s string) []orb.Point {
	pts := []orb.Point{}
	for _, tuple := range strings.Fields(s) {
		vals := strings.Split(tuple, ",")
		if len(vals) < 2 {
			continue
		}
		if pt, ok := parsePoint(vals[0], vals[1]); ok {
			pts = append(pts, pt)
		}
	}
	return pts
}

func parsePoint(lonStr, latStr string) (orb.Point, bool) {
	lon, err1 := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err1 != nil || err2 != nil {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}
