package selector

import (
	"github.com/studio0rpiment/wayside/common"
	"github.com/studio0rpiment/wayside/params"
)

// FilterPoorAccuracy filters out fixes with missing or poor accuracies.
func FilterPoorAccuracy(f Fix, config *params.AveragerConfig) bool {
	return f.Accuracy > 0 && f.Accuracy <= config.AccuracyThreshold
}

// FilterWildElevation filters out fixes with unreasonable elevations.
func FilterWildElevation(f Fix) bool {
	deepestDive := -100.0
	return f.Elevation > common.ElevationOfDeadSea+deepestDive &&
		f.Elevation < common.ElevationOfEverest
}

// FilterNonFinite filters out fixes with NaN or infinite values.
func FilterNonFinite(f Fix) bool {
	return common.IsFinite(f.Point.Lon(), f.Point.Lat(), f.Accuracy, f.Elevation)
}

// Usable is true for fixes worth averaging.
func Usable(f Fix, config *params.AveragerConfig) bool {
	return FilterNonFinite(f) && FilterPoorAccuracy(f, config) && FilterWildElevation(f)
}
