/*
Package world holds the local, flat coordinate system content is placed in.

Units are meters. The system is right-handed with Y up; north is -Z and east is +X.
The origin is the tour's reference point at its reference elevation.
*/
package world

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Vector is a position or offset in world meters.
type Vector = r3.Vector

// Vec is shorthand for a Vector literal.
func Vec(x, y, z float64) Vector {
	return Vector{X: x, Y: y, Z: z}
}

// IsFinite is false if any component is NaN or infinite.
func IsFinite(v Vector) bool {
	return !(math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) ||
		math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) || math.IsInf(v.Z, 0))
}

// Euler is an XYZ rotation in radians.
type Euler struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add composes two rotations by summing their angles.
// This is only meaningful for the small fixed corrections it is used for.
func (e Euler) Add(o Euler) Euler {
	return Euler{X: e.X + o.X, Y: e.Y + o.Y, Z: e.Z + o.Z}
}

func (e Euler) IsFinite() bool {
	return IsFinite(Vector{X: e.X, Y: e.Y, Z: e.Z})
}

func (e Euler) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", e.X, e.Y, e.Z)
}
