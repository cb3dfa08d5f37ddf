package resolver

import (
	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/conceptual"
	"github.com/studio0rpiment/wayside/types/anchor"
	"github.com/studio0rpiment/wayside/types/world"
)

// UserInput is what is known about the user's position.
// World takes precedence over GPS. Universal requests location-independent
// placement in front of the user.
type UserInput struct {
	GPS       *orb.Point    `json:"gps,omitempty"`
	World     *world.Vector `json:"world,omitempty"`
	Universal bool          `json:"universal,omitempty"`
}

// Options are per-call placement overrides. Nil fields are unset.
type Options struct {
	UseDebugOverride      bool          `json:"useDebugOverride,omitempty"`
	ManualElevationOffset *float64      `json:"manualElevationOffset,omitempty"`
	ManualScale           *float64      `json:"manualScale,omitempty"`
	ForcePosition         *world.Vector `json:"forcePosition,omitempty"`
}

// ResolvedPosition is where an experience should be placed right now.
type ResolvedPosition struct {
	ExperienceID   conceptual.ExperienceID `json:"experienceId"`
	WorldPosition  world.Vector            `json:"worldPosition"`
	RelativeToUser world.Vector            `json:"relativeToUser"`
	Rotation       world.Euler             `json:"rotation"`
	Scale          float64                 `json:"scale"`
	UsingOverride  bool                    `json:"usingOverride"`

	// DistanceFromUser is nil when the user position is unknown.
	DistanceFromUser *float64 `json:"distanceFromUser"`

	SourceAnchor      anchor.Anchor `json:"sourceAnchor"`
	UserWorldPosition *world.Vector `json:"userWorldPosition,omitempty"`
	UserGPSPosition   *orb.Point    `json:"userGpsPosition,omitempty"`
}

// Clone returns a copy sharing no pointers with p.
func (p ResolvedPosition) Clone() ResolvedPosition {
	cp := p
	cp.SourceAnchor = p.SourceAnchor.Copy()
	if p.DistanceFromUser != nil {
		d := *p.DistanceFromUser
		cp.DistanceFromUser = &d
	}
	if p.UserWorldPosition != nil {
		v := *p.UserWorldPosition
		cp.UserWorldPosition = &v
	}
	if p.UserGPSPosition != nil {
		g := *p.UserGPSPosition
		cp.UserGPSPosition = &g
	}
	return cp
}

// Transformable is a renderable node the resolver can place.
type Transformable interface {
	SetPosition(v world.Vector)
	SetRotation(e world.Euler)
	SetScale(s float64)
}

// ApplyTo writes a resolved placement onto node.
// With useRelative the user-relative position is written, otherwise the world position.
func ApplyTo(node Transformable, rp ResolvedPosition, useRelative bool) {
	if useRelative {
		node.SetPosition(rp.RelativeToUser)
	} else {
		node.SetPosition(rp.WorldPosition)
	}
	node.SetRotation(rp.Rotation)
	node.SetScale(rp.Scale)
}
