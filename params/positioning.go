package params

import (
	"math"

	"github.com/studio0rpiment/wayside/conceptual"
	"github.com/studio0rpiment/wayside/types/world"
)

type PositioningConfig struct {
	// GlobalElevationOffset is added to every resolved Y.
	GlobalElevationOffset float64

	// GlobalDebugPosition is where override content is placed relative to the user
	// (or absolutely, if no user position is known). Default is 5 m ahead (-Z).
	GlobalDebugPosition world.Vector

	// FlipYaw adds a half turn to every resolved yaw.
	FlipYaw bool

	// InRangeDistance is the default maxDistance for InRange.
	InRangeDistance float64

	// AllInRangeDistance is the default maxDistance for AllInRange.
	AllInRangeDistance float64

	// CacheSize bounds the number of experiences with a memoized placement.
	CacheSize int
}

func DefaultPositioningConfig() *PositioningConfig {
	return &PositioningConfig{
		GlobalElevationOffset: -1.5,
		GlobalDebugPosition:   world.Vector{X: 0, Y: 0, Z: -5},
		FlipYaw:               false,
		InRangeDistance:       50,
		AllInRangeDistance:    100,
		CacheSize:             256,
	}
}

type RegistryConfig struct {
	// DefaultGeofenceRadius applies when route data declares none.
	DefaultGeofenceRadius float64

	// RotationCorrections are fixed per-experience Euler offsets (radians),
	// added to the orientation declared in route data.
	RotationCorrections map[conceptual.ExperienceID]world.Euler
}

// UpAxisCorrection turns Z-up models into the Y-up world.
var UpAxisCorrection = world.Euler{X: -math.Pi / 2}

// ViewingTiltCorrection leans flat content back toward a standing viewer.
var ViewingTiltCorrection = world.Euler{X: 25 * math.Pi / 180}

func DefaultRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		DefaultGeofenceRadius: 15,
		RotationCorrections: map[conceptual.ExperienceID]world.Euler{
			"2030-2105":  UpAxisCorrection,
			"volunteers": UpAxisCorrection,
			"helen_s":    UpAxisCorrection,
			"mac":        ViewingTiltCorrection,
			"lotus":      ViewingTiltCorrection,
		},
	}
}
