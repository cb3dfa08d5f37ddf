package webd

import (
	"testing"

	"github.com/studio0rpiment/wayside/correction"
	"github.com/studio0rpiment/wayside/events"
	"github.com/studio0rpiment/wayside/geo/projector"
	"github.com/studio0rpiment/wayside/params"
	"github.com/studio0rpiment/wayside/registry"
	"github.com/studio0rpiment/wayside/resolver"
	"github.com/studio0rpiment/wayside/route"
)

const testRoutePath = "../../route/testdata/kenilworth.geojson"

// newTestWebDaemon creates a WebDaemon over the test route.
// If oracle is nil, corrections are unavailable.
func newTestWebDaemon(t *testing.T, token string, oracle correction.Oracle) *WebDaemon {
	t.Helper()
	rt, err := route.LoadFile(testRoutePath)
	if err != nil {
		t.Fatal(err)
	}
	proj := projector.New(rt.Boundary, nil)
	debug := events.NewDebugMode(false)
	reg := registry.New(proj, oracle, nil, debug)
	if _, err := reg.LoadSource(route.FileSource{Path: testRoutePath}); err != nil {
		t.Fatal(err)
	}
	res := resolver.New(proj, reg, debug, nil)

	config := params.DefaultTestWebDaemonConfig()
	config.Token = token
	config.RoutePath = testRoutePath
	d := NewWebDaemon(config, res, nil, nil)
	t.Cleanup(func() {
		d.Close()
		res.Close()
		reg.Close()
	})
	return d
}
