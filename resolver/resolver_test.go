package resolver

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/conceptual"
	"github.com/studio0rpiment/wayside/events"
	"github.com/studio0rpiment/wayside/geo/projector"
	"github.com/studio0rpiment/wayside/params"
	"github.com/studio0rpiment/wayside/registry"
	"github.com/studio0rpiment/wayside/route"
	"github.com/studio0rpiment/wayside/types/world"
)

var origin = orb.Point{-76.943, 38.9125}

func ptr(f float64) *float64 { return &f }

func features() []route.Feature {
	return []route.Feature{
		{ID: "demo", Anchor: &route.AnchorData{GPS: orb.Point{-76.9430, 38.9126}, Scale: ptr(1)}},
		{ID: "east", Anchor: &route.AnchorData{GPS: orb.Point{-76.9427, 38.9125}, Scale: ptr(2)}},
		{ID: "far", Anchor: &route.AnchorData{GPS: orb.Point{-76.9455, 38.9145}}},
	}
}

type fixture struct {
	debug    *events.DebugMode
	registry *registry.Registry
	resolver *Resolver
}

func newFixture(t *testing.T, config *params.PositioningConfig) *fixture {
	t.Helper()
	proj := projector.NewWithOrigin(origin, nil)
	debug := events.NewDebugMode(false)
	reg := registry.New(proj, nil, nil, debug)
	reg.Load(features())
	res := New(proj, reg, debug, config)
	t.Cleanup(func() {
		res.Close()
		reg.Close()
	})
	return &fixture{debug: debug, registry: reg, resolver: res}
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func atOrigin() UserInput {
	p := origin
	return UserInput{GPS: &p}
}

func TestResolve_Example(t *testing.T) {
	f := newFixture(t, nil)
	rp, ok := f.resolver.Resolve("demo", atOrigin(), Options{})
	if !ok {
		t.Fatal("demo not resolved")
	}
	a := rp.SourceAnchor
	if !near(a.WorldPosition.X, 0, 1e-9) || !near(a.WorldPosition.Y, 0, 1e-9) || !near(a.WorldPosition.Z, -11.13, 0.01) {
		t.Errorf("anchor world position: %v", a.WorldPosition)
	}
	if !near(rp.RelativeToUser.Y, -1.5, 1e-9) {
		t.Errorf("relative y: want -1.5, got %v", rp.RelativeToUser.Y)
	}
	if rp.DistanceFromUser == nil {
		t.Fatal("distance should be known")
	}
	want := math.Hypot(a.WorldPosition.Z, 1.5)
	if !near(*rp.DistanceFromUser, want, 1e-9) || !near(*rp.DistanceFromUser, 11.23, 0.01) {
		t.Errorf("distance: want %.4f, got %.4f", want, *rp.DistanceFromUser)
	}
	if rp.UsingOverride {
		t.Error("no override expected")
	}
	if rp.Scale != 1 || rp.Rotation != (world.Euler{}) {
		t.Errorf("scale/rotation: %v %v", rp.Scale, rp.Rotation)
	}
	if rp.UserGPSPosition == nil || *rp.UserGPSPosition != origin {
		t.Errorf("user gps: %v", rp.UserGPSPosition)
	}
}

func TestResolve_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	if _, ok := f.resolver.Resolve("nope", atOrigin(), Options{}); ok {
		t.Error("unknown id should not resolve")
	}
	if c := f.resolver.Counts(); c.NotFound != 1 || c.Calculated != 0 {
		t.Errorf("counts: %+v", c)
	}
}

func TestResolve_BeforeLoad(t *testing.T) {
	proj := projector.NewWithOrigin(origin, nil)
	res := New(proj, registry.New(proj, nil, nil, nil), nil, nil)
	defer res.Close()
	if _, ok := res.Resolve("demo", atOrigin(), Options{}); ok {
		t.Error("nothing loaded, nothing resolves")
	}
	if got := res.AllInRange(atOrigin(), 0); len(got) != 0 {
		t.Errorf("want none in range, got %d", len(got))
	}
}

func TestResolve_UnknownUser(t *testing.T) {
	f := newFixture(t, nil)
	rp, ok := f.resolver.Resolve("demo", UserInput{}, Options{})
	if !ok {
		t.Fatal("should resolve without a user")
	}
	if rp.DistanceFromUser != nil || rp.UserWorldPosition != nil {
		t.Error("distance and user position should be unknown")
	}
	if rp.RelativeToUser != rp.WorldPosition {
		t.Errorf("relative should equal world when user unknown: %v %v", rp.RelativeToUser, rp.WorldPosition)
	}

	// Non-finite input is unknown too.
	bad := orb.Point{math.NaN(), 0}
	rp, _ = f.resolver.Resolve("demo", UserInput{GPS: &bad}, Options{})
	if rp.DistanceFromUser != nil {
		t.Error("NaN gps should be treated as unknown")
	}
}

func TestResolve_WorldInputWins(t *testing.T) {
	f := newFixture(t, nil)
	p := orb.Point{-76.9430, 38.9126}
	w := world.Vec(0, 0, 0)
	rp, _ := f.resolver.Resolve("demo", UserInput{GPS: &p, World: &w}, Options{})
	if *rp.UserWorldPosition != w {
		t.Errorf("world input should take precedence, got %v", *rp.UserWorldPosition)
	}
}

func TestResolve_CacheKeysEchoedGPS(t *testing.T) {
	f := newFixture(t, nil)
	w := world.Vec(0, 0, 0)
	first := orb.Point{-76.943, 38.9125}
	second := orb.Point{-76.95, 38.92}

	f.resolver.Resolve("demo", UserInput{GPS: &first, World: &w}, Options{})
	rp, _ := f.resolver.Resolve("demo", UserInput{GPS: &second, World: &w}, Options{})
	if rp.UserGPSPosition == nil || *rp.UserGPSPosition != second {
		t.Fatalf("want user gps %v, got %v", second, rp.UserGPSPosition)
	}
	if c := f.resolver.Counts(); c.Calculated != 2 || c.CacheHits != 0 {
		t.Errorf("a new gps should recalculate: %+v", c)
	}
}

func TestResolve_DebugPrecedence(t *testing.T) {
	f := newFixture(t, nil)
	user := world.Vec(3, 0, 7)
	f.debug.Set(true)

	for _, id := range []conceptual.ExperienceID{"demo", "east", "far"} {
		rp, _ := f.resolver.Resolve(id, UserInput{World: &user}, Options{})
		want := user.Add(world.Vec(0, -1.5, -5))
		if rp.WorldPosition != want || !rp.UsingOverride {
			t.Errorf("%s: want %v, got %v (override %v)", id, want, rp.WorldPosition, rp.UsingOverride)
		}
		if !near(*rp.DistanceFromUser, math.Hypot(5, 1.5), 1e-9) {
			t.Errorf("%s: distance %v", id, *rp.DistanceFromUser)
		}
	}
}

func TestResolve_OverrideBranch(t *testing.T) {
	f := newFixture(t, nil)
	user := world.Vec(1, 0, 1)
	force := world.Vec(10, 10, 10)

	rp, _ := f.resolver.Resolve("demo", UserInput{World: &user}, Options{UseDebugOverride: true, ForcePosition: &force})
	if rp.WorldPosition != world.Vec(10, 8.5, 10) {
		t.Errorf("force position: %v", rp.WorldPosition)
	}

	rp, _ = f.resolver.Resolve("demo", UserInput{Universal: true}, Options{})
	if rp.WorldPosition != world.Vec(0, -1.5, -5) || !rp.UsingOverride {
		t.Errorf("universal without user: %v", rp.WorldPosition)
	}

	// Force is ignored outside the override branch.
	rp, _ = f.resolver.Resolve("demo", UserInput{World: &user}, Options{ForcePosition: &force})
	if rp.UsingOverride || rp.WorldPosition.Z > -11 {
		t.Errorf("force without override: %v", rp.WorldPosition)
	}
}

func TestResolve_ElevationAdditivity(t *testing.T) {
	f := newFixture(t, nil)
	user := world.Vec(0, 0, 0)
	demo, _ := f.registry.Get("demo")

	cases := []struct {
		name     string
		in       UserInput
		opts     Options
		baseY    float64
		override bool
	}{
		{"anchor", UserInput{World: &user}, Options{ManualElevationOffset: ptr(0.75)}, demo.WorldPosition.Y, false},
		{"override", UserInput{World: &user}, Options{UseDebugOverride: true, ManualElevationOffset: ptr(0.75)}, 0, true},
		{"universal", UserInput{World: &user, Universal: true}, Options{ManualElevationOffset: ptr(0.75)}, 0, true},
	}
	for _, c := range cases {
		rp, _ := f.resolver.Resolve("demo", c.in, c.opts)
		want := c.baseY - 1.5 + 0.75
		if !near(rp.WorldPosition.Y, want, 1e-12) || rp.UsingOverride != c.override {
			t.Errorf("%s: want y=%v override=%v, got y=%v override=%v", c.name, want, c.override, rp.WorldPosition.Y, rp.UsingOverride)
		}
	}
}

func TestResolve_Scale(t *testing.T) {
	f := newFixture(t, nil)
	rp, _ := f.resolver.Resolve("east", UserInput{}, Options{ManualScale: ptr(1.5)})
	if rp.Scale != 3 {
		t.Errorf("scale: want 3, got %v", rp.Scale)
	}
}

func TestResolve_FlipYaw(t *testing.T) {
	config := params.DefaultPositioningConfig()
	config.FlipYaw = true
	f := newFixture(t, config)
	rp, _ := f.resolver.Resolve("demo", UserInput{}, Options{})
	if rp.Rotation.Y != math.Pi {
		t.Errorf("flip yaw: want pi, got %v", rp.Rotation.Y)
	}
	if rp.SourceAnchor.Rotation.Y != 0 {
		t.Error("stored rotation must not change")
	}
}

func TestResolve_Cache(t *testing.T) {
	f := newFixture(t, nil)
	r := f.resolver

	a, _ := r.Resolve("demo", atOrigin(), Options{})
	b, _ := r.Resolve("demo", atOrigin(), Options{})
	if c := r.Counts(); c.Calculated != 1 || c.CacheHits != 1 {
		t.Fatalf("want 1 calculated and 1 hit, got %+v", c)
	}
	if *a.DistanceFromUser != *b.DistanceFromUser || a.WorldPosition != b.WorldPosition {
		t.Error("cached value differs")
	}
	// Callers get their own copy.
	*a.DistanceFromUser = -1
	c, _ := r.Resolve("demo", atOrigin(), Options{})
	if *c.DistanceFromUser == -1 {
		t.Error("cached value was mutated through a returned pointer")
	}

	// Another id has its own entry.
	r.Resolve("east", atOrigin(), Options{})
	r.Resolve("east", atOrigin(), Options{})
	if c := r.Counts(); c.Calculated != 2 || c.CacheHits != 3 {
		t.Fatalf("after east: %+v", c)
	}

	// Changing demo's input recalculates demo only.
	elsewhere := world.Vec(1, 0, 0)
	r.Resolve("demo", UserInput{World: &elsewhere}, Options{})
	r.Resolve("east", atOrigin(), Options{})
	if c := r.Counts(); c.Calculated != 3 || c.CacheHits != 4 {
		t.Fatalf("after demo input change: %+v", c)
	}

	// A nil manual offset and an explicit zero are the same placement.
	r.Resolve("east", atOrigin(), Options{ManualElevationOffset: ptr(0), ManualScale: ptr(1)})
	if c := r.Counts(); c.Calculated != 3 {
		t.Fatalf("explicit defaults should hit: %+v", c)
	}
}

func TestResolve_CacheInvalidation(t *testing.T) {
	f := newFixture(t, nil)
	r := f.resolver
	calculated := func() int64 { return r.Counts().Calculated }

	r.Resolve("demo", atOrigin(), Options{})
	n := calculated()

	steps := []struct {
		name   string
		mutate func()
	}{
		{"debug on", func() { f.debug.Set(true) }},
		{"debug off", func() { f.debug.Set(false) }},
		{"use override", nil},
		{"elevation offset", func() { r.SetGlobalElevationOffset(-2) }},
		{"elevation adjust", func() { r.AdjustGlobalElevationOffset(0.5) }},
		{"debug position", func() { r.SetGlobalDebugPosition(world.Vec(0, 0, -3)) }},
		{"anchor update", func() { f.registry.UpdateGPS("demo", orb.Point{-76.9430, 38.9127}, nil) }},
		{"anchor reset", func() { f.registry.ResetOne("demo") }},
	}
	for _, s := range steps {
		opts := Options{}
		if s.mutate != nil {
			s.mutate()
		} else {
			opts.UseDebugOverride = true
		}
		r.Resolve("demo", atOrigin(), opts)
		if got := calculated(); got != n+1 {
			t.Errorf("%s: expected recalculation (calculated %d -> %d)", s.name, n, got)
		}
		n = calculated()
	}
}

func TestResolve_DebugToggleServesFresh(t *testing.T) {
	f := newFixture(t, nil)
	user := world.Vec(0, 0, 0)
	before, _ := f.resolver.Resolve("demo", UserInput{World: &user}, Options{})

	f.debug.Set(true)
	after, _ := f.resolver.Resolve("demo", UserInput{World: &user}, Options{})
	if !after.UsingOverride || after.WorldPosition == before.WorldPosition {
		t.Errorf("toggle must not serve the stale placement: %+v", after)
	}
	again, _ := f.resolver.Resolve("demo", UserInput{World: &user}, Options{})
	if again.WorldPosition != after.WorldPosition {
		t.Error("placements differ under the same flag")
	}
}

func TestInRange(t *testing.T) {
	f := newFixture(t, nil)
	if !f.resolver.InRange("demo", atOrigin(), 0) {
		t.Error("demo is ~11 m away, within the default 50 m")
	}
	if f.resolver.InRange("demo", atOrigin(), 5) {
		t.Error("demo is not within 5 m")
	}
	if f.resolver.InRange("far", atOrigin(), 0) {
		t.Error("far is ~300 m away")
	}
	if f.resolver.InRange("demo", UserInput{}, 0) {
		t.Error("unknown user is never in range")
	}
	if f.resolver.InRange("nope", atOrigin(), 0) {
		t.Error("unknown id is never in range")
	}
}

func TestAllInRange(t *testing.T) {
	f := newFixture(t, nil)
	got := f.resolver.AllInRange(atOrigin(), 0)
	if len(got) != 2 {
		t.Fatalf("want demo and east within 100 m, got %d", len(got))
	}
	// east is ~26 m, demo ~11 m.
	if got[0].ExperienceID != "demo" || got[1].ExperienceID != "east" {
		t.Errorf("order: %s, %s", got[0].ExperienceID, got[1].ExperienceID)
	}
	if *got[0].DistanceFromUser > *got[1].DistanceFromUser {
		t.Error("not sorted ascending")
	}
	if all := f.resolver.AllInRange(atOrigin(), 1000); len(all) != 3 {
		t.Errorf("want all 3 within 1 km, got %d", len(all))
	}
}

func TestResetAdjustments(t *testing.T) {
	f := newFixture(t, nil)
	r := f.resolver
	r.SetGlobalElevationOffset(4)
	r.SetGlobalDebugPosition(world.Vec(1, 2, 3))
	f.registry.UpdateGPS("demo", origin, nil)

	if err := r.ResetAdjustments(); err != nil {
		t.Fatal(err)
	}
	if r.GlobalElevationOffset() != -1.5 {
		t.Errorf("offset: %v", r.GlobalElevationOffset())
	}
	if r.GlobalDebugPosition() != world.Vec(0, 0, -5) {
		t.Errorf("debug position: %v", r.GlobalDebugPosition())
	}
	if a, _ := f.registry.Get("demo"); a.GPS != (orb.Point{-76.9430, 38.9126}) {
		t.Errorf("anchor should be reset, got %v", a.GPS)
	}
}

func TestTunables_RejectNonFinite(t *testing.T) {
	f := newFixture(t, nil)
	f.resolver.SetGlobalElevationOffset(math.NaN())
	f.resolver.AdjustGlobalElevationOffset(math.Inf(1))
	f.resolver.SetGlobalDebugPosition(world.Vec(math.NaN(), 0, 0))
	if f.resolver.GlobalElevationOffset() != -1.5 || f.resolver.GlobalDebugPosition() != world.Vec(0, 0, -5) {
		t.Error("non-finite tunables should be ignored")
	}
}

type node struct {
	pos   world.Vector
	rot   world.Euler
	scale float64
}

func (n *node) SetPosition(v world.Vector) { n.pos = v }
func (n *node) SetRotation(e world.Euler) { n.rot = e }
func (n *node) SetScale(s float64) { n.scale = s }

func TestApplyTo(t *testing.T) {
	f := newFixture(t, nil)
	user := world.Vec(2, 0, 2)
	rp, _ := f.resolver.Resolve("east", UserInput{World: &user}, Options{})

	n := &node{}
	ApplyTo(n, rp, true)
	if n.pos != rp.RelativeToUser || n.scale != 2 || n.rot != rp.Rotation {
		t.Errorf("relative: %+v", n)
	}
	ApplyTo(n, rp, false)
	if n.pos != rp.WorldPosition {
		t.Errorf("world: %+v", n)
	}
}

func TestMetricsRegistry(t *testing.T) {
	f := newFixture(t, nil)
	f.resolver.Resolve("demo", UserInput{}, Options{})
	names := map[string]bool{}
	f.resolver.Metrics().Each(func(name string, _ interface{}) {
		names[name] = true
	})
	for _, n := range []string{"calculated", "cache/hit", "notfound"} {
		if !names[n] {
			t.Errorf("missing metric %s", n)
		}
	}
}
