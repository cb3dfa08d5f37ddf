/*
Package registry owns the authoritative set of anchors, one per experience.

Anchors are built from route features, nudged by an optional correction oracle,
and projected into world space. They are mutated only through Registry methods;
everything handed out is a copy.
*/
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/common"
	"github.com/studio0rpiment/wayside/conceptual"
	"github.com/studio0rpiment/wayside/correction"
	"github.com/studio0rpiment/wayside/events"
	"github.com/studio0rpiment/wayside/geo/projector"
	"github.com/studio0rpiment/wayside/params"
	"github.com/studio0rpiment/wayside/route"
	"github.com/studio0rpiment/wayside/types/anchor"
	"github.com/studio0rpiment/wayside/types/world"
)

type Registry struct {
	mu        sync.RWMutex
	anchors   map[conceptual.ExperienceID]*anchor.Anchor
	order     []conceptual.ExperienceID
	canonical map[conceptual.ExperienceID]route.Feature
	source    route.Source

	proj   *projector.Projector
	oracle correction.Oracle
	config *params.RegistryConfig

	feed     events.AnchorFeed
	debugSub event.Subscription
	logger   *slog.Logger
}

// New returns an empty registry. A nil oracle means no corrections,
// a nil config the defaults. If debug is given the registry subscribes to it,
// republishing flag changes on its own feed.
func New(proj *projector.Projector, oracle correction.Oracle, config *params.RegistryConfig, debug *events.DebugMode) *Registry {
	if oracle == nil {
		oracle = correction.Nop{}
	}
	if config == nil {
		config = params.DefaultRegistryConfig()
	}
	r := &Registry{
		anchors:   make(map[conceptual.ExperienceID]*anchor.Anchor),
		canonical: make(map[conceptual.ExperienceID]route.Feature),
		proj:      proj,
		oracle:    oracle,
		config:    config,
		logger:    slog.With("c", "registry"),
	}
	if debug != nil {
		ch := make(chan bool, 1)
		r.debugSub = debug.Subscribe(ch)
		go r.listenDebug(ch, r.debugSub)
	}
	return r
}

func (r *Registry) listenDebug(ch <-chan bool, sub event.Subscription) {
	for {
		select {
		case enabled := <-ch:
			r.logger.Info("Debug mode changed", "enabled", enabled)
			r.feed.Send(events.AnchorEvent{Kind: events.DebugChanged})
		case <-sub.Err():
			return
		}
	}
}

// Close stops listening to the debug flag.
func (r *Registry) Close() {
	if r.debugSub != nil {
		r.debugSub.Unsubscribe()
	}
}

// Subscribe registers ch for anchor change events.
func (r *Registry) Subscribe(ch chan<- events.AnchorEvent) event.Subscription {
	return r.feed.Subscribe(ch)
}

// Load clears the registry and rebuilds it from features,
// which become the canonical source for later resets.
// It returns the number of anchors loaded.
func (r *Registry) Load(features []route.Feature) int {
	src := make(route.StaticSource, len(features))
	for i, f := range features {
		src[i] = f.Copy()
	}
	n, _ := r.LoadSource(src)
	return n
}

// LoadSource clears the registry and rebuilds it from src.
// On a source error the registry is left as it was.
func (r *Registry) LoadSource(src route.Source) (int, error) {
	features, err := src.Features()
	if err != nil {
		return 0, fmt.Errorf("registry: read source: %w", err)
	}
	r.mu.Lock()
	r.source = src
	n := r.rebuild(features)
	r.mu.Unlock()

	r.logger.Info("Loaded anchors", "count", n, "features", len(features),
		"corrections", r.oracle.Enabled())
	r.feed.Send(events.AnchorEvent{Kind: events.AnchorsLoaded})
	return n, nil
}

// rebuild must be called with the lock held.
func (r *Registry) rebuild(features []route.Feature) int {
	r.anchors = make(map[conceptual.ExperienceID]*anchor.Anchor, len(features))
	r.canonical = make(map[conceptual.ExperienceID]route.Feature, len(features))
	r.order = make([]conceptual.ExperienceID, 0, len(features))

	for _, f := range features {
		a, err := r.build(f)
		if err != nil {
			r.logger.Warn("Skipping route feature", "id", f.ID, "error", err)
			continue
		}
		if _, dupe := r.anchors[a.ID]; dupe {
			r.logger.Warn("Skipping duplicate route feature", "id", f.ID)
			continue
		}
		r.anchors[a.ID] = a
		r.canonical[a.ID] = f.Copy()
		r.order = append(r.order, a.ID)
	}
	return len(r.order)
}

func (r *Registry) build(f route.Feature) (*anchor.Anchor, error) {
	if err := validate(f); err != nil {
		return nil, err
	}
	data := f.Anchor

	gps, corrected := r.oracle.ApplyCorrection(f.ID, data.GPS)
	if corrected && !common.IsFinite(gps.Lon(), gps.Lat()) {
		r.logger.Warn("Ignoring non-finite correction", "id", f.ID, "gps", gps)
		gps, corrected = data.GPS, false
	}

	scale := 1.0
	if data.Scale != nil {
		scale = *data.Scale
	}

	fence := anchor.Geofence{
		Shape:              anchor.Shape(data.Geofence.Shape),
		Radius:             r.config.DefaultGeofenceRadius,
		DirectionSensitive: data.Geofence.DirectionSensitive,
	}
	if fence.Shape == "" {
		fence.Shape = anchor.ShapeCircle
	}
	if data.Geofence.Radius != nil {
		fence.Radius = *data.Geofence.Radius
	}
	if len(data.Geofence.EntryMessages) > 0 {
		fence.EntryMessages = make(map[string]string, len(data.Geofence.EntryMessages))
		for k, v := range data.Geofence.EntryMessages {
			fence.EntryMessages[k] = v
		}
	}

	rotation := world.Euler{
		X: common.DegreesToRadians(data.Orientation.X),
		Y: common.DegreesToRadians(data.Orientation.Y),
		Z: common.DegreesToRadians(data.Orientation.Z),
	}
	if fix, ok := r.config.RotationCorrections[f.ID]; ok {
		rotation = rotation.Add(fix)
	}

	return &anchor.Anchor{
		ID:                f.ID,
		Title:             f.Title,
		GPS:               gps,
		OriginalGPS:       data.GPS,
		WorldPosition:     r.proj.GPSToWorld(gps, data.Elevation),
		ElevationOffset:   data.Elevation,
		Rotation:          rotation,
		Scale:             scale,
		Geofence:          fence,
		CorrectionApplied: corrected,
	}, nil
}

func validate(f route.Feature) error {
	if f.ID.IsEmpty() {
		return fmt.Errorf("missing id")
	}
	a := f.Anchor
	if a == nil {
		return fmt.Errorf("no anchor data")
	}
	if !common.IsFinite(a.GPS.Lon(), a.GPS.Lat()) {
		return fmt.Errorf("non-finite coordinates %v", a.GPS)
	}
	if !common.IsFinite(a.Elevation) {
		return fmt.Errorf("non-finite elevation %v", a.Elevation)
	}
	if !a.Orientation.IsFinite() {
		return fmt.Errorf("non-finite orientation %v", a.Orientation)
	}
	if a.Scale != nil && (!common.IsFinite(*a.Scale) || *a.Scale <= 0) {
		return fmt.Errorf("invalid scale %v", *a.Scale)
	}
	if s := a.Geofence.Shape; s != "" && !anchor.Shape(s).IsValid() {
		return fmt.Errorf("unknown geofence shape %q", s)
	}
	if rad := a.Geofence.Radius; rad != nil && (!common.IsFinite(*rad) || *rad < 0) {
		return fmt.Errorf("invalid geofence radius %v", *rad)
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Get returns a copy of the anchor.
func (r *Registry) Get(id conceptual.ExperienceID) (anchor.Anchor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.anchors[id]
	if !ok {
		return anchor.Anchor{}, false
	}
	return a.Copy(), true
}

// All returns copies of every anchor in load order.
func (r *Registry) All() []anchor.Anchor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]anchor.Anchor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.anchors[id].Copy())
	}
	return out
}

// IDs returns experience ids in load order.
func (r *Registry) IDs() []conceptual.ExperienceID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]conceptual.ExperienceID(nil), r.order...)
}

// UpdateGPS moves an anchor. A nil elevation keeps the current one.
// It is false, and nothing changes, for unknown ids and non-finite input.
// A manual move supersedes any oracle correction.
func (r *Registry) UpdateGPS(id conceptual.ExperienceID, gps orb.Point, elevation *float64) bool {
	r.mu.Lock()
	a, ok := r.anchors[id]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("Update of unknown anchor", "id", id)
		return false
	}
	elev := a.ElevationOffset
	if elevation != nil {
		elev = *elevation
	}
	if !common.IsFinite(gps.Lon(), gps.Lat(), elev) {
		r.mu.Unlock()
		r.logger.Warn("Rejected non-finite anchor update", "id", id, "gps", gps, "elevation", elev)
		return false
	}
	r.place(a, gps, elev)
	a.CorrectionApplied = false
	r.mu.Unlock()

	r.feed.Send(events.AnchorEvent{Kind: events.AnchorUpdated, ID: id})
	return true
}

// place replaces the position fields together.
func (r *Registry) place(a *anchor.Anchor, gps orb.Point, elevation float64) {
	a.GPS = gps
	a.ElevationOffset = elevation
	a.WorldPosition = r.proj.GPSToWorld(gps, elevation)
}

// ResetOne restores an anchor's position to its route record,
// dropping any correction or manual move.
func (r *Registry) ResetOne(id conceptual.ExperienceID) bool {
	r.mu.Lock()
	a, ok := r.anchors[id]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("Reset of unknown anchor", "id", id)
		return false
	}
	rec := r.canonical[id]
	r.place(a, rec.Anchor.GPS, rec.Anchor.Elevation)
	a.CorrectionApplied = false
	r.mu.Unlock()

	r.feed.Send(events.AnchorEvent{Kind: events.AnchorReset, ID: id})
	return true
}

// ResetAll reloads every anchor from the source, applying the oracle
// as currently enabled. Before any load it does nothing.
func (r *Registry) ResetAll() error {
	r.mu.RLock()
	src := r.source
	r.mu.RUnlock()
	if src == nil {
		return nil
	}
	features, err := src.Features()
	if err != nil {
		return fmt.Errorf("registry: reset: %w", err)
	}
	r.mu.Lock()
	n := r.rebuild(features)
	r.mu.Unlock()

	r.logger.Info("Reset all anchors", "count", n)
	r.feed.Send(events.AnchorEvent{Kind: events.AnchorsReset})
	return nil
}

// ToggleCorrections enables or disables the oracle and reloads every anchor.
func (r *Registry) ToggleCorrections(enabled bool) error {
	r.oracle.SetEnabled(enabled)
	r.logger.Info("Toggled corrections", "enabled", enabled)
	if err := r.ResetAll(); err != nil {
		return err
	}
	r.feed.Send(events.AnchorEvent{Kind: events.CorrectionToggled})
	return nil
}

func (r *Registry) Oracle() correction.Oracle {
	return r.oracle
}

// InGeofence reports whether userWorld is within the anchor's geofence radius.
func (r *Registry) InGeofence(id conceptual.ExperienceID, userWorld world.Vector) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.anchors[id]
	if !ok {
		return false
	}
	return a.WorldPosition.Distance(userWorld) <= a.Geofence.Radius
}

// EntryMessage returns the geofence message for a user at userWorld.
func (r *Registry) EntryMessage(id conceptual.ExperienceID, userWorld world.Vector) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.anchors[id]
	if !ok {
		return "", false
	}
	return a.Geofence.EntryMessageFor(userWorld.Sub(a.WorldPosition))
}

// DiffFromOriginal reports how far the anchor sits from its route coordinates,
// in flat-earth meters.
func (r *Registry) DiffFromOriginal(id conceptual.ExperienceID) (anchor.Diff, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.anchors[id]
	if !ok {
		return anchor.Diff{}, false
	}
	return anchor.Diff{
		ID:          id,
		Original:    a.OriginalGPS,
		Corrected:   a.GPS,
		DeltaMeters: r.proj.GroundDistance(a.OriginalGPS, a.GPS),
	}, true
}
