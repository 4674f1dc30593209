package geo

// Kind enumerates the GeoJSON geometry types.
type Kind int

// Known geometry kinds. KindUnknown covers any literal type tag outside RFC 7946.
const (
	KindUnknown Kind = iota
	KindPoint
	KindMultiPoint
	KindLineString
	KindMultiLineString
	KindPolygon
	KindMultiPolygon
	KindGeometryCollection
)

var kindNames = [...]string{
	KindUnknown:            "Unknown",
	KindPoint:              "Point",
	KindMultiPoint:         "MultiPoint",
	KindLineString:         "LineString",
	KindMultiLineString:    "MultiLineString",
	KindPolygon:            "Polygon",
	KindMultiPolygon:       "MultiPolygon",
	KindGeometryCollection: "GeometryCollection",
}

// ParseKind maps a GeoJSON type tag to its Kind.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if k != int(KindUnknown) && name == s {
			return Kind(k)
		}
	}
	return KindUnknown
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Measurable reports whether features of this kind accumulate a length.
func (k Kind) Measurable() bool {
	switch k {
	case KindLineString, KindMultiLineString, KindPolygon:
		return true
	default:
		return false
	}
}
