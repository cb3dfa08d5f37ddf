package selector

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	rkalman "github.com/regnull/kalman"
	"github.com/studio0rpiment/wayside/common"
	"github.com/studio0rpiment/wayside/params"
)

// Averager smooths a stream of fixes.
// Usable fixes feed a bounded window and a Kalman filter;
// the window gives accuracy and stability, the filter the position.
type Averager struct {
	mu       sync.Mutex
	config   *params.AveragerConfig
	window   *common.RingBuffer[Fix]
	filter   *rkalman.GeoFilter
	estimate orb.Point
	last     time.Time
	raw      *Fix
	now      func() time.Time
	logger   *slog.Logger
}

func NewAverager(config *params.AveragerConfig) *Averager {
	if config == nil {
		config = params.DefaultAveragerConfig
	}
	return &Averager{
		config: config,
		window: common.NewRingBuffer[Fix](config.Window),
		now:    time.Now,
		logger: slog.With("c", "averager"),
	}
}

func newKalmanFilter(latitude, speed, acceleration float64) (*rkalman.GeoFilter, error) {
	return rkalman.NewGeoFilter(&rkalman.GeoProcessNoise{
		// Measurements are all within one park; curvature is disregarded.
		BaseLat: latitude,
		// How far the walker moves, m/s.
		DistancePerSecond: speed,
		// How much the walker's speed changes, m/s^2.
		SpeedPerSecond: acceleration,
	})
}

// Add records a fix. It returns false if the fix was too poor to average;
// it is still kept as the raw fix if its coordinates are finite.
func (a *Averager) Add(f Fix) bool {
	if f.Time.IsZero() {
		f.Time = a.now()
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if common.IsFinite(f.Point.Lon(), f.Point.Lat()) {
		raw := f
		a.raw = &raw
	}
	if !Usable(f, a.config) {
		a.logger.Debug("Discarding fix", "point", f.Point, "accuracy", f.Accuracy, "elevation", f.Elevation)
		return false
	}

	a.window.DropWhile(func(old Fix) bool {
		return f.Time.Sub(old.Time) > a.config.MaxAge
	})
	a.window.Add(f)

	span := f.Time.Sub(a.last)
	if a.filter == nil || span > a.config.MaxAge || span < 0 {
		a.resetFilter(f)
		return true
	}
	err := a.filter.Observe(span.Seconds(), &rkalman.GeoObserved{
		Lat:                f.Point.Lat(),
		Lng:                f.Point.Lon(),
		Altitude:           f.Elevation,
		Speed:              math.Max(0, f.Speed),
		SpeedAccuracy:      0.2,
		Direction:          math.Max(0, f.Heading),
		DirectionAccuracy:  0,
		HorizontalAccuracy: math.Max(1, f.Accuracy),
		VerticalAccuracy:   2.0,
	})
	if err != nil {
		a.logger.Error("Kalman.Observe failed", "error", err)
		a.resetFilter(f)
		return true
	}
	if est := a.filter.Estimate(); est != nil && common.IsFinite(est.Lng, est.Lat) {
		a.estimate = orb.Point{est.Lng, est.Lat}
	}
	a.last = f.Time
	return true
}

func (a *Averager) resetFilter(f Fix) {
	filter, err := newKalmanFilter(f.Point.Lat(), a.config.Speed, a.config.Acceleration)
	if err != nil {
		a.logger.Error("Failed to initialize Kalman filter", "error", err)
		filter = nil
	}
	a.filter = filter
	a.estimate = f.Point
	a.last = f.Time
}

// Raw returns the last fix received, whatever its quality.
func (a *Averager) Raw() (Fix, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.raw == nil {
		return Fix{}, false
	}
	return *a.raw, true
}

// Averaged returns the smoothed position.
// It is false until a usable fix arrives, and again once every fix is older than MaxAge.
func (a *Averager) Averaged() (Averaged, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	a.window.DropWhile(func(old Fix) bool {
		return now.Sub(old.Time) > a.config.MaxAge
	})
	fixes := a.window.Get()
	if len(fixes) == 0 {
		return Averaged{}, false
	}
	lons := make(stats.Float64Data, len(fixes))
	lats := make(stats.Float64Data, len(fixes))
	accuracies := make(stats.Float64Data, len(fixes))
	for i, f := range fixes {
		lons[i] = f.Point.Lon()
		lats[i] = f.Point.Lat()
		accuracies[i] = f.Accuracy
	}
	accuracy, _ := stats.Mean(accuracies)

	point := a.estimate
	if a.filter == nil {
		lon, _ := stats.Mean(lons)
		lat, _ := stats.Mean(lats)
		point = orb.Point{lon, lat}
	}

	return Averaged{
		Point:    point,
		Accuracy: accuracy,
		Stable:   len(fixes) >= a.config.MinSamples && spread(fixes) <= a.config.StableSpread,
		Samples:  len(fixes),
	}, true
}

// spread is the standard deviation, in meters, of the fixes about their mean.
func spread(fixes []Fix) float64 {
	lons := make(stats.Float64Data, len(fixes))
	lats := make(stats.Float64Data, len(fixes))
	for i, f := range fixes {
		lons[i] = f.Point.Lon()
		lats[i] = f.Point.Lat()
	}
	meanLon, _ := stats.Mean(lons)
	meanLat, _ := stats.Mean(lats)

	east := make(stats.Float64Data, len(fixes))
	north := make(stats.Float64Data, len(fixes))
	for i, f := range fixes {
		east[i] = math.Copysign(geo.Distance(orb.Point{meanLon, meanLat}, orb.Point{f.Point.Lon(), meanLat}), f.Point.Lon()-meanLon)
		north[i] = math.Copysign(geo.Distance(orb.Point{meanLon, meanLat}, orb.Point{meanLon, f.Point.Lat()}), f.Point.Lat()-meanLat)
	}
	sdEast, _ := stats.StandardDeviation(east)
	sdNorth, _ := stats.StandardDeviation(north)
	return math.Hypot(sdEast, sdNorth)
}

// Select applies Select to the averager's current state.
func (a *Averager) Select(config *params.SelectorConfig) (Selection, bool) {
	var raw *Fix
	if r, ok := a.Raw(); ok {
		raw = &r
	}
	var avg *Averaged
	if v, ok := a.Averaged(); ok {
		avg = &v
	}
	return Select(raw, avg, config)
}

// Reset forgets every fix.
func (a *Averager) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.window.Reset()
	a.filter = nil
	a.estimate = orb.Point{}
	a.last = time.Time{}
	a.raw = nil
}
