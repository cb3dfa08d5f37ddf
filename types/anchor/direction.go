package anchor

import (
	"math"

	"github.com/studio0rpiment/wayside/types/world"
)

// Entry message keys.
const (
	EntryNorth   = "north"
	EntryEast    = "east"
	EntrySouth   = "south"
	EntryWest    = "west"
	EntryDefault = "default"
)

// ApproachDirection names the side of the anchor the user stands on,
// given the user's offset from the anchor in world meters.
func ApproachDirection(offset world.Vector) string {
	if offset.X == 0 && offset.Z == 0 {
		return EntryDefault
	}
	// North is -Z.
	if math.Abs(offset.Z) >= math.Abs(offset.X) {
		if offset.Z < 0 {
			return EntryNorth
		}
		return EntrySouth
	}
	if offset.X > 0 {
		return EntryEast
	}
	return EntryWest
}

// EntryMessageFor returns the message for a user at offset from the anchor.
// Direction-insensitive geofences, and directions without a message,
// fall back to the default message.
func (g Geofence) EntryMessageFor(offset world.Vector) (string, bool) {
	if len(g.EntryMessages) == 0 {
		return "", false
	}
	if g.DirectionSensitive {
		if msg, ok := g.EntryMessages[ApproachDirection(offset)]; ok {
			return msg, true
		}
	}
	msg, ok := g.EntryMessages[EntryDefault]
	return msg, ok
}
