package influxdb

import (
	"errors"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/studio0rpiment/wayside/params"
	"github.com/studio0rpiment/wayside/resolver"
	"github.com/studio0rpiment/wayside/selector"
)

var ErrDisabled = errors.New("influxdb export not configured")

// PlacementPoints builds one 'placement' point per resolved position.
func PlacementPoints(at time.Time, user selector.Selection, placements []resolver.ResolvedPosition) []*write.Point {
	out := make([]*write.Point, 0, len(placements))
	for _, rp := range placements {
		p := influxdb2.NewPointWithMeasurement("placement").
			SetTime(at).
			AddTag("experience", rp.ExperienceID.String()).
			AddTag("source", user.Source.String()).
			AddField("x", rp.WorldPosition.X).
			AddField("y", rp.WorldPosition.Y).
			AddField("z", rp.WorldPosition.Z).
			AddField("scale", rp.Scale).
			AddField("user_latitude", user.Point.Lat()).
			AddField("user_longitude", user.Point.Lon()).
			AddField("accuracy", user.Accuracy)

		if rp.UsingOverride {
			p.AddTag("override", "true")
		} else {
			p.AddTag("override", "false")
		}
		if rp.DistanceFromUser != nil {
			p.AddField("distance", *rp.DistanceFromUser)
		}
		if rp.SourceAnchor.CorrectionApplied {
			p.AddField("corrected", 1)
		}
		out = append(out, p)
	}
	return out
}

// ExportPlacements posts placements to an InfluxDB Write API.
// The last error encountered is returned.
func ExportPlacements(config *params.InfluxConfig, at time.Time, user selector.Selection, placements []resolver.ResolvedPosition) error {
	if !config.Enabled() {
		return ErrDisabled
	}
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Millisecond)
	client := influxdb2.NewClientWithOptions(config.URL, config.Token, opts)
	writeAPI := client.WriteAPI(config.Org, config.Bucket)

	// Must be read before writing; the writer blocks until errors are drained.
	errorsCh := writeAPI.Errors()
	var err error
	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		for e := range errorsCh {
			if e != nil {
				err = e
			}
		}
	}()

	for _, p := range PlacementPoints(at, user, placements) {
		writeAPI.WritePoint(p)
	}
	writeAPI.Flush()
	client.Close()
	wait.Wait()
	return err
}
