package params

import (
	"time"

	"github.com/studio0rpiment/wayside/common"
)

type SelectorConfig struct {
	// StableAccuracy is the accuracy an averaged position must reach,
	// along with being stable, to be preferred outright.
	StableAccuracy float64
	// PreciseAccuracy admits an averaged position regardless of stability.
	PreciseAccuracy float64
	// AcceptableAccuracy is the loosest band for an averaged position.
	// Beyond it the raw fix is used.
	AcceptableAccuracy float64
}

var DefaultSelectorConfig = &SelectorConfig{
	StableAccuracy:     10,
	PreciseAccuracy:    15,
	AcceptableAccuracy: 25,
}

type AveragerConfig struct {
	// Window is the number of recent fixes kept for averaging.
	Window int

	// MaxAge drops fixes older than this from the window.
	MaxAge time.Duration

	// MinSamples is the fewest fixes that can be called stable.
	MinSamples int

	// StableSpread is the standard deviation, in meters, of window
	// positions about their mean under which the average is stable.
	StableSpread float64

	// AccuracyThreshold discards fixes reporting worse accuracy.
	AccuracyThreshold float64

	// Speed and Acceleration are the Kalman process noise for a walker.
	Speed        float64
	Acceleration float64
}

var DefaultAveragerConfig = &AveragerConfig{
	Window:            10,
	MaxAge:            30 * time.Second,
	MinSamples:        3,
	StableSpread:      3.0,
	AccuracyThreshold: 100.0,
	Speed:             common.SpeedOfWalkingMean,
	Acceleration:      common.AccelerationOfWalking,
}
