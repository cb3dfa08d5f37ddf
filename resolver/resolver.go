/*
Package resolver decides where each experience should be placed right now.

A Resolver merges the anchor registry, the user's position, process-wide
tunables, the debug flag, and per-call options into a ResolvedPosition.
Placements are memoized per experience and served verbatim while every
input they depend on is unchanged.

One Resolver is meant to be constructed and shared by every consumer;
independent instances would disagree on tunables and cache state.
*/
package resolver

import (
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/common"
	"github.com/studio0rpiment/wayside/conceptual"
	"github.com/studio0rpiment/wayside/events"
	"github.com/studio0rpiment/wayside/geo/projector"
	"github.com/studio0rpiment/wayside/params"
	"github.com/studio0rpiment/wayside/registry"
	"github.com/studio0rpiment/wayside/types/world"
)

type Resolver struct {
	mu sync.Mutex

	config   *params.PositioningConfig
	proj     *projector.Projector
	registry *registry.Registry
	debug    *events.DebugMode
	debugSub event.Subscription

	cache *lru.Cache[conceptual.ExperienceID, cacheEntry]

	elevationOffset float64
	debugPosition   world.Vector

	reg        metrics.Registry
	calculated metrics.Counter
	cacheHits  metrics.Counter
	notFound   metrics.Counter

	logger *slog.Logger
}

// New returns a Resolver over reg. A nil config means the defaults;
// a nil debug is a flag that is always off.
func New(proj *projector.Projector, reg *registry.Registry, debug *events.DebugMode, config *params.PositioningConfig) *Resolver {
	if config == nil {
		config = params.DefaultPositioningConfig()
	}
	if debug == nil {
		debug = events.NewDebugMode(false)
	}
	size := config.CacheSize
	if size <= 0 {
		size = params.DefaultPositioningConfig().CacheSize
	}
	cache, err := lru.New[conceptual.ExperienceID, cacheEntry](size)
	if err != nil {
		panic(err)
	}

	r := &Resolver{
		config:          config,
		proj:            proj,
		registry:        reg,
		debug:           debug,
		cache:           cache,
		elevationOffset: config.GlobalElevationOffset,
		debugPosition:   config.GlobalDebugPosition,
		reg:             metrics.NewRegistry(),
		calculated:      metrics.NewCounter(),
		cacheHits:       metrics.NewCounter(),
		notFound:        metrics.NewCounter(),
		logger:          slog.With("c", "resolver"),
	}
	for name, c := range map[string]metrics.Counter{
		"calculated": r.calculated,
		"cache/hit":  r.cacheHits,
		"notfound":   r.notFound,
	} {
		if err := r.reg.Register(name, c); err != nil {
			panic(err)
		}
	}

	ch := make(chan bool, 1)
	r.debugSub = debug.Subscribe(ch)
	go r.listenDebug(ch, r.debugSub)
	return r
}

func (r *Resolver) listenDebug(ch <-chan bool, sub event.Subscription) {
	for {
		select {
		case enabled := <-ch:
			r.mu.Lock()
			n := r.dropDebugStale(enabled)
			r.mu.Unlock()
			r.logger.Debug("Dropped placements on debug change", "enabled", enabled, "dropped", n)
		case <-sub.Err():
			return
		}
	}
}

// dropDebugStale removes placements made under the other debug flag value.
// Placements made since the change are kept.
func (r *Resolver) dropDebugStale(enabled bool) int {
	n := 0
	for _, id := range r.cache.Keys() {
		if e, ok := r.cache.Peek(id); ok && e.debug != enabled {
			r.cache.Remove(id)
			n++
		}
	}
	return n
}

// Close stops listening to the debug flag.
func (r *Resolver) Close() {
	r.debugSub.Unsubscribe()
}

func (r *Resolver) Projector() *projector.Projector { return r.proj }
func (r *Resolver) Registry() *registry.Registry { return r.registry }
func (r *Resolver) Debug() *events.DebugMode { return r.debug }

// Resolve places one experience. It is false for unknown experiences.
func (r *Resolver) Resolve(id conceptual.ExperienceID, user UserInput, opts Options) (ResolvedPosition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(id, user, opts)
}

// resolve must be called with the lock held.
func (r *Resolver) resolve(id conceptual.ExperienceID, user UserInput, opts Options) (ResolvedPosition, bool) {
	a, ok := r.registry.Get(id)
	if !ok {
		r.cache.Remove(id)
		r.notFound.Inc(1)
		r.logger.Warn("Experience not found", "id", id)
		return ResolvedPosition{}, false
	}

	userWorld, userGPS, kind := r.userPosition(user)
	manualElevation := 0.0
	if opts.ManualElevationOffset != nil && common.IsFinite(*opts.ManualElevationOffset) {
		manualElevation = *opts.ManualElevationOffset
	}
	manualScale := 1.0
	if opts.ManualScale != nil && common.IsFinite(*opts.ManualScale) {
		manualScale = *opts.ManualScale
	}
	force := opts.ForcePosition
	if force != nil && !world.IsFinite(*force) {
		force = nil
	}

	key := cacheKey{
		ID:                    id,
		UserKind:              kind,
		Universal:             user.Universal,
		DebugEnabled:          r.debug.Enabled(),
		UseDebugOverride:      opts.UseDebugOverride,
		ManualElevation:       manualElevation,
		ManualScale:           manualScale,
		HasForce:              force != nil,
		GlobalElevationOffset: r.elevationOffset,
		GlobalDebugPosition:   r.debugPosition,
		Anchor:                a,
	}
	switch kind {
	case userKindWorld:
		key.User = *userWorld
	case userKindGPS:
		key.User = world.Vec(userGPS.Lon(), userGPS.Lat(), 0)
	}
	if userGPS != nil {
		key.UserGPS = *userGPS
	}
	if force != nil {
		key.ForcePosition = *force
	}
	hash, hashErr := key.hash()
	if hashErr == nil {
		if e, ok := r.cache.Get(id); ok {
			if e.key == hash {
				r.cacheHits.Inc(1)
				return e.position.Clone(), true
			}
			r.cache.Remove(id)
		}
	} else {
		r.logger.Error("Failed to hash placement key", "id", id, "error", hashErr)
		r.cache.Remove(id)
	}

	override := key.DebugEnabled || opts.UseDebugOverride || user.Universal
	var pos world.Vector
	switch {
	case !override:
		pos = a.WorldPosition
	case force != nil:
		pos = *force
	case userWorld != nil:
		pos = userWorld.Add(r.debugPosition)
	default:
		pos = r.debugPosition
	}
	pos.Y += r.elevationOffset + manualElevation

	rp := ResolvedPosition{
		ExperienceID:   id,
		WorldPosition:  pos,
		RelativeToUser: pos,
		Rotation:       a.Rotation,
		Scale:          a.Scale * manualScale,
		UsingOverride:  override,
		SourceAnchor:   a,
	}
	if r.config.FlipYaw {
		rp.Rotation.Y += math.Pi
	}
	if userWorld != nil {
		uw := *userWorld
		rp.UserWorldPosition = &uw
		rp.RelativeToUser = pos.Sub(uw)
		d := pos.Distance(uw)
		rp.DistanceFromUser = &d
	}
	if userGPS != nil {
		g := *userGPS
		rp.UserGPSPosition = &g
	}

	r.calculated.Inc(1)
	r.logger.Debug("Calculated placement", "id", id, "override", override,
		"x", pos.X, "y", pos.Y, "z", pos.Z)

	if hashErr == nil {
		r.cache.Add(id, cacheEntry{key: hash, debug: key.DebugEnabled, position: rp.Clone()})
	}
	return rp, true
}

// userPosition picks the user's world position from the input.
// Non-finite input is treated as unknown.
func (r *Resolver) userPosition(user UserInput) (*world.Vector, *orb.Point, string) {
	var gps *orb.Point
	if user.GPS != nil && common.IsFinite(user.GPS.Lon(), user.GPS.Lat()) {
		g := *user.GPS
		gps = &g
	}
	if user.World != nil && world.IsFinite(*user.World) {
		v := *user.World
		return &v, gps, userKindWorld
	}
	if gps != nil {
		v := r.proj.GPSToWorld(*gps, 0)
		return &v, gps, userKindGPS
	}
	return nil, nil, userKindUnknown
}

// InRange reports whether the experience resolves within maxDistance of the user.
// A maxDistance <= 0 means the configured default.
// It is false when the user position is unknown.
func (r *Resolver) InRange(id conceptual.ExperienceID, user UserInput, maxDistance float64) bool {
	if maxDistance <= 0 {
		maxDistance = r.config.InRangeDistance
	}
	rp, ok := r.Resolve(id, user, Options{})
	if !ok || rp.DistanceFromUser == nil {
		return false
	}
	return *rp.DistanceFromUser <= maxDistance
}

// AllInRange resolves every anchor and returns those within maxDistance,
// nearest first. A maxDistance <= 0 means the configured default.
func (r *Resolver) AllInRange(user UserInput, maxDistance float64) []ResolvedPosition {
	if maxDistance <= 0 {
		maxDistance = r.config.AllInRangeDistance
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []ResolvedPosition{}
	for _, id := range r.registry.IDs() {
		rp, ok := r.resolve(id, user, Options{})
		if !ok || rp.DistanceFromUser == nil || *rp.DistanceFromUser > maxDistance {
			continue
		}
		out = append(out, rp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].DistanceFromUser < *out[j].DistanceFromUser
	})
	return out
}

func (r *Resolver) GlobalElevationOffset() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elevationOffset
}

func (r *Resolver) SetGlobalElevationOffset(v float64) {
	if !common.IsFinite(v) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elevationOffset = v
	r.cache.Purge()
	r.logger.Info("Set global elevation offset", "offset", v)
}

// AdjustGlobalElevationOffset adds delta to the offset and returns the result.
func (r *Resolver) AdjustGlobalElevationOffset(delta float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if common.IsFinite(delta) {
		r.elevationOffset += delta
		r.cache.Purge()
		r.logger.Info("Adjusted global elevation offset", "delta", delta, "offset", r.elevationOffset)
	}
	return r.elevationOffset
}

func (r *Resolver) GlobalDebugPosition() world.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.debugPosition
}

func (r *Resolver) SetGlobalDebugPosition(v world.Vector) {
	if !world.IsFinite(v) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debugPosition = v
	r.cache.Purge()
	r.logger.Info("Set global debug position", "position", v)
}

// ResetAdjustments restores the tunables to their configured values,
// then reloads every anchor. No resolve observes one without the other.
func (r *Resolver) ResetAdjustments() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elevationOffset = r.config.GlobalElevationOffset
	r.debugPosition = r.config.GlobalDebugPosition
	err := r.registry.ResetAll()
	r.cache.Purge()
	r.logger.Info("Reset adjustments", "offset", r.elevationOffset, "debug", r.debugPosition)
	return err
}

// Counts is a snapshot of the resolver's counters.
type Counts struct {
	Calculated int64 `json:"calculated"`
	CacheHits  int64 `json:"cacheHits"`
	NotFound   int64 `json:"notFound"`
}

func (r *Resolver) Counts() Counts {
	return Counts{
		Calculated: r.calculated.Snapshot().Count(),
		CacheHits:  r.cacheHits.Snapshot().Count(),
		NotFound:   r.notFound.Snapshot().Count(),
	}
}

// Metrics is the resolver's own metrics registry.
func (r *Resolver) Metrics() metrics.Registry {
	return r.reg
}
