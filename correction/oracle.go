/*
Package correction holds GPS corrections for anchors, learned from earlier
visits, and the oracle contract the anchor registry consults at load.
*/
package correction

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/common"
	"github.com/studio0rpiment/wayside/conceptual"
)

// Oracle nudges an anchor's nominal GPS.
// It must be safe to call for ids it knows nothing about:
// those return the input unchanged and false.
type Oracle interface {
	ApplyCorrection(id conceptual.ExperienceID, nominal orb.Point) (orb.Point, bool)
	SetEnabled(enabled bool)
	Enabled() bool
	TrainedCount() int
	AvailableExperiences() []conceptual.ExperienceID
	Info(id conceptual.ExperienceID) Info
}

// Correction is a trained replacement for an anchor's nominal GPS.
type Correction struct {
	GPS        orb.Point `json:"gps"`
	Confidence float64   `json:"confidence"`
	Samples    int       `json:"samples"`
	TrainedAt  time.Time `json:"trainedAt"`
}

func (c Correction) isValid(minConfidence float64) bool {
	return common.IsFinite(c.GPS.Lon(), c.GPS.Lat(), c.Confidence) &&
		c.Samples > 0 && c.Confidence >= minConfidence
}

// Info describes what the oracle knows about one experience.
type Info struct {
	Available  bool        `json:"available"`
	Enabled    bool        `json:"enabled"`
	Valid      bool        `json:"valid"`
	Correction *Correction `json:"correction,omitempty"`
}

// Nop is an oracle with nothing trained.
type Nop struct{}

func (Nop) ApplyCorrection(_ conceptual.ExperienceID, nominal orb.Point) (orb.Point, bool) {
	return nominal, false
}
func (Nop) SetEnabled(bool) {}
func (Nop) Enabled() bool { return false }
func (Nop) TrainedCount() int { return 0 }
func (Nop) AvailableExperiences() []conceptual.ExperienceID { return nil }
func (Nop) Info(conceptual.ExperienceID) Info { return Info{} }
