package codec

import "github.com/neo4j/neo4j-go-driver/v5/neo4j"

// crsEntry describes one entry of the fixed SRID→CRS table used to render
// points. The href values are decorative metadata carried over verbatim
// from the upstream API for bit-exact client compatibility (see the point
// renderer open question).
type crsEntry struct {
	name string
	href string
}

// crsTable maps the four SRIDs Cypher's spatial type system recognizes to
// their CRS name and spatialreference.org link.
var crsTable = map[uint32]crsEntry{
	4326: {name: "wgs-84", href: "http://spatialreference.org/ref/epsg/4326/"},
	4979: {name: "wgs-84-3d", href: "http://spatialreference.org/ref/epsg/4979/"},
	7203: {name: "cartesian", href: "http://spatialreference.org/ref/sr-org/7203/"},
	9157: {name: "cartesian-3d", href: "http://spatialreference.org/ref/sr-org/9157/"},
}

// pointJSON is the rendered shape of a point value.
type pointJSON struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	CRS         crsJSON   `json:"crs"`
}

type crsJSON struct {
	SRID int    `json:"srid"`
	Name string `json:"name"`
	Type string `json:"type"`
	Href string `json:"href,omitempty"`
}

func renderPoint2D(p neo4j.Point2D) pointJSON {
	return pointJSON{
		Type:        "Point",
		Coordinates: []float64{p.X, p.Y},
		CRS:         renderCRS(p.SpatialRefId),
	}
}

func renderPoint3D(p neo4j.Point3D) pointJSON {
	return pointJSON{
		Type:        "Point",
		Coordinates: []float64{p.X, p.Y, p.Z},
		CRS:         renderCRS(p.SpatialRefId),
	}
}

func renderCRS(srid uint32) crsJSON {
	entry, known := crsTable[srid]
	if !known {
		return crsJSON{SRID: int(srid), Name: "", Type: "link"}
	}
	return crsJSON{SRID: int(srid), Name: entry.name, Type: "link", Href: entry.href}
}
