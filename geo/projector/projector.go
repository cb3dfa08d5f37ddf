/*
Package projector converts between GPS coordinates and local world meters.

It is an equirectangular (flat-earth) approximation about a fixed origin:

	x =  Δlon · R · cos(originLat)
	z = -Δlat · R
	y =  elevation - originElevation

It is accurate over a single park, sub-kilometer extents. There is no allowance
for Earth curvature beyond the cosine-latitude correction, and none is intended.
*/
package projector

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/common"
	"github.com/studio0rpiment/wayside/params"
	"github.com/studio0rpiment/wayside/types/world"
)

// Projector maps between GPS and world coordinates about one origin.
// The origin is fixed at construction for the life of the Projector.
type Projector struct {
	origin          orb.Point
	originElevation float64
	radius          float64
	cosLat          float64
	bound           orb.Bound
}

// New returns a Projector centered on the centroid of the tour boundary.
func New(boundary orb.Ring, config *params.GeoConfig) *Projector {
	p := NewWithOrigin(Centroid(boundary), config)
	if len(boundary) > 0 {
		p.bound = boundary.Bound()
	}
	return p
}

// NewWithOrigin returns a Projector about an explicit origin.
// Its bounds are the origin alone until a boundary is given.
func NewWithOrigin(origin orb.Point, config *params.GeoConfig) *Projector {
	if config == nil {
		config = params.DefaultGeoConfig
	}
	return &Projector{
		origin:          origin,
		originElevation: config.ReferenceElevation,
		radius:          config.EarthRadius,
		cosLat:          math.Cos(common.DegreesToRadians(origin.Lat())),
		bound:           origin.Bound(),
	}
}

// Centroid is the arithmetic mean of the ring's vertices.
// A closing vertex that repeats the first is not counted.
func Centroid(ring orb.Ring) orb.Point {
	n := len(ring)
	if n == 0 {
		return orb.Point{}
	}
	if n > 1 && ring[0].Equal(ring[n-1]) {
		n--
	}
	var lon, lat float64
	for _, pt := range ring[:n] {
		lon += pt.Lon()
		lat += pt.Lat()
	}
	return orb.Point{lon / float64(n), lat / float64(n)}
}

func (p *Projector) Origin() orb.Point {
	return p.origin
}

func (p *Projector) OriginElevation() float64 {
	return p.originElevation
}

func (p *Projector) Bound() orb.Bound {
	return p.bound
}

// GPSToWorld projects a GPS point at an elevation into world meters.
func (p *Projector) GPSToWorld(gps orb.Point, elevation float64) world.Vector {
	dLat := common.DegreesToRadians(gps.Lat() - p.origin.Lat())
	dLon := common.DegreesToRadians(gps.Lon() - p.origin.Lon())
	return world.Vector{
		X: dLon * p.radius * p.cosLat,
		Y: elevation - p.originElevation,
		Z: -dLat * p.radius,
	}
}

// WorldToGPS is the algebraic inverse of GPSToWorld.
func (p *Projector) WorldToGPS(v world.Vector) (gps orb.Point, elevation float64) {
	dLat := -v.Z / p.radius
	dLon := v.X / (p.radius * p.cosLat)
	gps = orb.Point{
		p.origin.Lon() + common.RadiansToDegrees(dLon),
		p.origin.Lat() + common.RadiansToDegrees(dLat),
	}
	return gps, v.Y + p.originElevation
}

// GroundDistance is the horizontal flat-earth distance between two GPS points.
func (p *Projector) GroundDistance(a, b orb.Point) float64 {
	wa := p.GPSToWorld(a, 0)
	wb := p.GPSToWorld(b, 0)
	return wa.Sub(wb).Norm()
}

// IsWithinBounds tests the point against the tour boundary's bounding box.
func (p *Projector) IsWithinBounds(gps orb.Point) bool {
	return p.bound.Contains(gps)
}
