/*
Package anchor defines the record that pins one experience to the ground.
*/
package anchor

import (
	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/conceptual"
	"github.com/studio0rpiment/wayside/types/world"
)

type Shape string

const (
	ShapeCircle  Shape = "circle"
	ShapeHexagon Shape = "hexagon"
)

func (s Shape) IsValid() bool {
	return s == ShapeCircle || s == ShapeHexagon
}

// Geofence is the proximity trigger around an anchor.
type Geofence struct {
	Shape              Shape             `json:"shape"`
	Radius             float64           `json:"radius"`
	DirectionSensitive bool              `json:"directionSensitive"`
	EntryMessages      map[string]string `json:"entryMessages,omitempty"`
}

// Anchor is a named, GPS-located pose for one experience.
// WorldPosition is always the projection of GPS at ElevationOffset;
// the registry replaces the three together.
type Anchor struct {
	ID                conceptual.ExperienceID `json:"id"`
	Title             string                  `json:"title,omitempty"`
	GPS               orb.Point               `json:"gpsCoordinates"`
	OriginalGPS       orb.Point               `json:"originalGps"`
	WorldPosition     world.Vector            `json:"worldPosition"`
	ElevationOffset   float64                 `json:"elevationOffset"`
	Rotation          world.Euler             `json:"rotation"`
	Scale             float64                 `json:"scale"`
	Geofence          Geofence                `json:"geofence"`
	CorrectionApplied bool                    `json:"correctionApplied"`
}

// Copy returns a deep copy, safe to hand out of the registry.
func (a *Anchor) Copy() Anchor {
	cp := *a
	if a.Geofence.EntryMessages != nil {
		cp.Geofence.EntryMessages = make(map[string]string, len(a.Geofence.EntryMessages))
		for k, v := range a.Geofence.EntryMessages {
			cp.Geofence.EntryMessages[k] = v
		}
	}
	return cp
}

// Diff reports how far a correction moved an anchor.
type Diff struct {
	ID          conceptual.ExperienceID `json:"id"`
	Original    orb.Point               `json:"original"`
	Corrected   orb.Point               `json:"corrected"`
	DeltaMeters float64                 `json:"deltaMeters"`
}
