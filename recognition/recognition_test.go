package recognition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/params"
)

func fixed(label string, confidence float64) Recognizer {
	return RecognizerFunc(func(ctx context.Context, frame []byte) (*Result, error) {
		return &Result{Label: label, Confidence: confidence, Timestamp: time.Now()}, nil
	})
}

var gps = orb.Point{-76.943, 38.9125}

func TestRefiner_Accepts(t *testing.T) {
	r := NewRefiner(fixed("boardwalk_end", 0.9), nil)
	acc, err := r.Observe(context.Background(), nil)
	if err != nil || acc == nil {
		t.Fatalf("want accepted, got %v %v", acc, err)
	}
	want := params.DefaultRecognitionConfig().LabelCorrections["boardwalk_end"]
	got, ok := r.Adjust(gps)
	if !ok || got != (orb.Point{gps.Lon() + want.Lon, gps.Lat() + want.Lat}) {
		t.Errorf("adjust: %v %v", got, ok)
	}
	r.Clear()
	if _, ok := r.Adjust(gps); ok {
		t.Error("cleared refiner should not adjust")
	}
}

func TestRefiner_NoSignal(t *testing.T) {
	cases := map[string]Recognizer{
		"low confidence": fixed("boardwalk_end", 0.69),
		"unknown label":  fixed("parking_lot", 0.99),
		"nothing": RecognizerFunc(func(ctx context.Context, frame []byte) (*Result, error) {
			return nil, nil
		}),
	}
	for name, rec := range cases {
		r := NewRefiner(rec, nil)
		acc, err := r.Observe(context.Background(), nil)
		if err != nil || acc != nil {
			t.Errorf("%s: want no signal, got %v %v", name, acc, err)
		}
		if got, ok := r.Adjust(gps); ok || got != gps {
			t.Errorf("%s: gps should pass through", name)
		}
	}
}

func TestRefiner_Error(t *testing.T) {
	boom := errors.New("model not loaded")
	r := NewRefiner(RecognizerFunc(func(ctx context.Context, frame []byte) (*Result, error) {
		return nil, boom
	}), nil)
	if _, err := r.Observe(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("want %v, got %v", boom, err)
	}
}

func TestRefiner_Expires(t *testing.T) {
	config := params.DefaultRecognitionConfig()
	config.TTL = 20 * time.Millisecond
	r := NewRefiner(fixed("visitor_center", 0.8), config)
	if _, err := r.Observe(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Current(); !ok {
		t.Fatal("want current recognition")
	}
	time.Sleep(50 * time.Millisecond)
	if _, ok := r.Adjust(gps); ok {
		t.Error("expired recognition should not adjust")
	}
}

func TestRefiner_LastResultWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := RecognizerFunc(func(ctx context.Context, frame []byte) (*Result, error) {
		if string(frame) == "slow" {
			close(started)
			<-release
			return &Result{Label: "lily_pond_north", Confidence: 0.95}, nil
		}
		return &Result{Label: "boardwalk_end", Confidence: 0.95}, nil
	})
	r := NewRefiner(slow, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := r.Observe(context.Background(), []byte("slow"))
		errc <- err
	}()
	<-started
	if _, err := r.Observe(context.Background(), []byte("fast")); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-errc; !errors.Is(err, ErrSuperseded) {
		t.Errorf("slow frame: want ErrSuperseded, got %v", err)
	}
	cur, ok := r.Current()
	if !ok || cur.Label != "boardwalk_end" {
		t.Errorf("newest frame should win, got %+v", cur)
	}
}

func TestReported(t *testing.T) {
	r := NewRefiner(Reported, nil)

	acc, err := r.Observe(context.Background(), []byte(`{"label":"visitor_center","confidence":0.8}`))
	if err != nil || acc == nil {
		t.Fatalf("want accepted, got %v %v", acc, err)
	}
	if acc.Timestamp.IsZero() {
		t.Error("missing timestamp should be filled in")
	}

	for _, frame := range []string{"", `{"confidence":0.9}`} {
		acc, err := r.Observe(context.Background(), []byte(frame))
		if err != nil || acc != nil {
			t.Errorf("%q: want no signal, got %v %v", frame, acc, err)
		}
	}
	if _, err := r.Observe(context.Background(), []byte("not json")); err == nil {
		t.Error("want a decode error")
	}
}
