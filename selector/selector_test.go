package selector

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestSelect_Priority(t *testing.T) {
	raw := &Fix{Point: orb.Point{-76.9431, 38.9124}, Accuracy: 4}
	avgPt := orb.Point{-76.9430, 38.9125}

	cases := []struct {
		name   string
		raw    *Fix
		avg    *Averaged
		want   Source
		wantOK bool
	}{
		{"stable 8m beats raw", raw, &Averaged{Point: avgPt, Accuracy: 8, Stable: true}, SourceAveragedStable, true},
		{"unstable 8m is precise", raw, &Averaged{Point: avgPt, Accuracy: 8}, SourceAveragedPrecise, true},
		{"stable 12m is precise", raw, &Averaged{Point: avgPt, Accuracy: 12, Stable: true}, SourceAveragedPrecise, true},
		{"20m is acceptable", raw, &Averaged{Point: avgPt, Accuracy: 20}, SourceAveragedAcceptable, true},
		{"25m is acceptable", raw, &Averaged{Point: avgPt, Accuracy: 25}, SourceAveragedAcceptable, true},
		{"30m falls back to raw", raw, &Averaged{Point: avgPt, Accuracy: 30, Stable: true}, SourceRaw, true},
		{"only raw", raw, nil, SourceRaw, true},
		{"30m average without raw", nil, &Averaged{Point: avgPt, Accuracy: 30}, SourceNone, false},
		{"nothing", nil, nil, SourceNone, false},
	}
	for _, c := range cases {
		got, ok := Select(c.raw, c.avg, nil)
		if ok != c.wantOK || got.Source != c.want {
			t.Errorf("%s: want %v %v, got %v %v", c.name, c.want, c.wantOK, got.Source, ok)
			continue
		}
		switch c.want {
		case SourceRaw:
			if got.Point != raw.Point {
				t.Errorf("%s: want raw point", c.name)
			}
		case SourceNone:
		default:
			if got.Point != avgPt {
				t.Errorf("%s: want averaged point", c.name)
			}
		}
	}
}

func TestSource_String(t *testing.T) {
	b, _ := SourceAveragedStable.MarshalText()
	if string(b) != "averaged_stable" || SourceNone.String() != "none" {
		t.Errorf("got %s, %s", b, SourceNone)
	}
}
