package resolver

import (
	"github.com/mitchellh/hashstructure/v2"
	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/conceptual"
	"github.com/studio0rpiment/wayside/types/anchor"
	"github.com/studio0rpiment/wayside/types/world"
)

// cacheKey is every input a placement depends on.
// Unset manual values are keyed by their effective defaults.
type cacheKey struct {
	ID conceptual.ExperienceID

	UserKind  string
	User      world.Vector
	UserGPS   orb.Point
	Universal bool

	DebugEnabled     bool
	UseDebugOverride bool
	ManualElevation  float64
	ManualScale      float64
	HasForce         bool
	ForcePosition    world.Vector

	GlobalElevationOffset float64
	GlobalDebugPosition   world.Vector

	Anchor anchor.Anchor
}

const (
	userKindUnknown = ""
	userKindGPS     = "gps"
	userKindWorld   = "world"
)

func (k cacheKey) hash() (uint64, error) {
	return hashstructure.Hash(k, hashstructure.FormatV2, nil)
}

type cacheEntry struct {
	key      uint64
	debug    bool
	position ResolvedPosition
}
