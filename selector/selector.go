/*
Package selector picks the one GPS position that stands for the user.

It prefers a smoothed, averaged position over the latest raw fix whenever the
average is good enough, trading a little latency for stable placement.
*/
package selector

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/params"
)

// Fix is one GPS reading from the device.
type Fix struct {
	Point     orb.Point `json:"point"`
	Accuracy  float64   `json:"accuracy"`
	Elevation float64   `json:"elevation"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Time      time.Time `json:"time"`
}

// Averaged is a smoothed position over recent fixes.
type Averaged struct {
	Point    orb.Point `json:"point"`
	Accuracy float64   `json:"accuracy"`
	Stable   bool      `json:"stable"`
	Samples  int       `json:"samples"`
}

type Source int

const (
	SourceNone Source = iota
	SourceAveragedStable
	SourceAveragedPrecise
	SourceAveragedAcceptable
	SourceRaw
)

func (s Source) String() string {
	switch s {
	case SourceAveragedStable:
		return "averaged_stable"
	case SourceAveragedPrecise:
		return "averaged_precise"
	case SourceAveragedAcceptable:
		return "averaged_acceptable"
	case SourceRaw:
		return "raw"
	}
	return "none"
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(text []byte) error {
	for _, v := range []Source{SourceAveragedStable, SourceAveragedPrecise, SourceAveragedAcceptable, SourceRaw} {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	*s = SourceNone
	return nil
}

type Selection struct {
	Point    orb.Point `json:"point"`
	Accuracy float64   `json:"accuracy"`
	Source   Source    `json:"source"`
}

// Select returns the first of, in order:
// a stable average within StableAccuracy, an average within PreciseAccuracy,
// an average within AcceptableAccuracy, the raw fix.
// It is false when there is neither.
func Select(raw *Fix, avg *Averaged, config *params.SelectorConfig) (Selection, bool) {
	if config == nil {
		config = params.DefaultSelectorConfig
	}
	if avg != nil {
		sel := Selection{Point: avg.Point, Accuracy: avg.Accuracy}
		switch {
		case avg.Stable && avg.Accuracy <= config.StableAccuracy:
			sel.Source = SourceAveragedStable
			return sel, true
		case avg.Accuracy <= config.PreciseAccuracy:
			sel.Source = SourceAveragedPrecise
			return sel, true
		case avg.Accuracy <= config.AcceptableAccuracy:
			sel.Source = SourceAveragedAcceptable
			return sel, true
		}
	}
	if raw != nil {
		return Selection{Point: raw.Point, Accuracy: raw.Accuracy, Source: SourceRaw}, true
	}
	return Selection{}, false
}
