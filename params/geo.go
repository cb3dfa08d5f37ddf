package params

import "github.com/studio0rpiment/wayside/common"

type GeoConfig struct {
	// EarthRadius is used by the equirectangular projection.
	EarthRadius float64

	// ReferenceElevation is the elevation of the world origin, in meters.
	// World Y is elevation minus this value.
	ReferenceElevation float64
}

var DefaultGeoConfig = &GeoConfig{
	EarthRadius:        common.EarthRadiusEquatorial,
	ReferenceElevation: 0,
}
