/*
Package route reads the static tour definition: a GeoJSON FeatureCollection
with one Polygon feature for the tour boundary and one Point feature per experience.

An experience's anchor lives under properties.anchor:

	{
	  "type": "Feature",
	  "geometry": {"type": "Point", "coordinates": [-76.943, 38.9126]},
	  "properties": {
	    "id": "lotus",
	    "title": "Lotus Bloom",
	    "anchor": {
	      "coordinates": [-76.943, 38.9126],
	      "elevation": 0.5,
	      "orientation": 90,
	      "scale": 1.2,
	      "geofence": {"shape": "circle", "radius": 20, "directionSensitive": true,
	                   "entryMessages": {"north": "...", "default": "..."}}
	    }
	  }
	}

Anchor coordinates default to the feature's geometry.
Orientation is in degrees, either a yaw or an [x, y, z] triple.
*/
package route

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/studio0rpiment/wayside/conceptual"
	"github.com/studio0rpiment/wayside/types/world"
	"github.com/tidwall/gjson"
)

var ErrNoFeatures = errors.New("route: no experience features")
var ErrNoBoundary = errors.New("route: no boundary polygon")

// Feature is one experience declared by the route.
// Anchor is nil when the feature declares no anchor data.
type Feature struct {
	ID     conceptual.ExperienceID
	Title  string
	Anchor *AnchorData
}

type AnchorData struct {
	GPS       orb.Point
	Elevation float64

	// Orientation is an XYZ rotation in degrees.
	Orientation world.Euler

	// Scale is nil when unspecified.
	Scale *float64

	Geofence GeofenceData
}

// GeofenceData is the geofence as declared; zero values mean unspecified.
type GeofenceData struct {
	Shape              string
	Radius             *float64
	DirectionSensitive bool
	EntryMessages      map[string]string
}

// Copy returns a deep copy of the feature.
func (f Feature) Copy() Feature {
	if f.Anchor == nil {
		return f
	}
	a := *f.Anchor
	if a.Scale != nil {
		s := *a.Scale
		a.Scale = &s
	}
	if a.Geofence.Radius != nil {
		r := *a.Geofence.Radius
		a.Geofence.Radius = &r
	}
	if a.Geofence.EntryMessages != nil {
		m := make(map[string]string, len(a.Geofence.EntryMessages))
		for k, v := range a.Geofence.EntryMessages {
			m[k] = v
		}
		a.Geofence.EntryMessages = m
	}
	f.Anchor = &a
	return f
}

// Route is a parsed tour definition.
type Route struct {
	Boundary orb.Ring
	Features []Feature
}

// Parse returns the experience features of a route FeatureCollection, in order.
// Non-Point features are not experiences and are ignored.
func Parse(data []byte) ([]Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("route: decode feature collection: %w", err)
	}
	raws := gjson.GetBytes(data, "features").Array()
	if len(raws) != len(fc.Features) {
		return nil, fmt.Errorf("route: feature count mismatch (%d != %d)", len(raws), len(fc.Features))
	}

	out := make([]Feature, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		props := raws[i].Get("properties")
		feat := Feature{
			ID:    featureID(f, props),
			Title: props.Get("title").String(),
		}
		if a := props.Get("anchor"); a.IsObject() {
			feat.Anchor = parseAnchor(a, pt)
		}
		out = append(out, feat)
	}
	if len(out) == 0 {
		return nil, ErrNoFeatures
	}
	return out, nil
}

func featureID(f *geojson.Feature, props gjson.Result) conceptual.ExperienceID {
	if id := props.Get("id"); id.Exists() {
		return conceptual.ExperienceID(id.String())
	}
	if s, ok := f.ID.(string); ok {
		return conceptual.ExperienceID(s)
	}
	return ""
}

func parseAnchor(a gjson.Result, geometry orb.Point) *AnchorData {
	out := &AnchorData{GPS: geometry}
	if c := a.Get("coordinates"); c.IsArray() {
		arr := c.Array()
		if len(arr) >= 2 {
			out.GPS = orb.Point{arr[0].Float(), arr[1].Float()}
		}
	}
	out.Elevation = a.Get("elevation").Float()

	switch o := a.Get("orientation"); {
	case o.IsArray():
		arr := o.Array()
		for len(arr) < 3 {
			arr = append(arr, gjson.Result{})
		}
		out.Orientation = world.Euler{X: arr[0].Float(), Y: arr[1].Float(), Z: arr[2].Float()}
	case o.Exists():
		out.Orientation = world.Euler{Y: o.Float()}
	}

	if s := a.Get("scale"); s.Exists() {
		v := s.Float()
		out.Scale = &v
	}

	g := a.Get("geofence")
	out.Geofence.Shape = g.Get("shape").String()
	if r := g.Get("radius"); r.Exists() {
		v := r.Float()
		out.Geofence.Radius = &v
	}
	out.Geofence.DirectionSensitive = g.Get("directionSensitive").Bool()
	if m := g.Get("entryMessages"); m.IsObject() {
		out.Geofence.EntryMessages = map[string]string{}
		m.ForEach(func(key, value gjson.Result) bool {
			out.Geofence.EntryMessages[key.String()] = value.String()
			return true
		})
	}
	return out
}

// Boundary returns the outer ring of the first Polygon feature.
func Boundary(data []byte) (orb.Ring, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("route: decode feature collection: %w", err)
	}
	for _, f := range fc.Features {
		if poly, ok := f.Geometry.(orb.Polygon); ok && len(poly) > 0 {
			return poly[0], nil
		}
	}
	return nil, ErrNoBoundary
}

// LoadFile reads and parses a route file.
func LoadFile(path string) (*Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("route: read %s: %w", path, err)
	}
	boundary, err := Boundary(data)
	if err != nil {
		return nil, err
	}
	features, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return &Route{Boundary: boundary, Features: features}, nil
}
