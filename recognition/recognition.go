/*
Package recognition turns scene recognition into a GPS nudge.

A Recognizer labels camera frames with a known location. The Refiner accepts
confident results for labels it has a correction for, and for a short while
afterwards shifts GPS input by that correction. Downstream code only ever sees
adjusted GPS.
*/
package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/params"
)

// ErrSuperseded is returned by Observe when a later Observe started
// before this one finished. Its result is discarded.
var ErrSuperseded = errors.New("recognition superseded by a newer frame")

// Result is what a Recognizer saw in a frame.
type Result struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Recognizer labels a frame. A nil result with a nil error means nothing was recognized.
type Recognizer interface {
	Recognize(ctx context.Context, frame []byte) (*Result, error)
}

// RecognizerFunc adapts a function to a Recognizer.
type RecognizerFunc func(ctx context.Context, frame []byte) (*Result, error)

func (f RecognizerFunc) Recognize(ctx context.Context, frame []byte) (*Result, error) {
	return f(ctx, frame)
}

// Reported is a Recognizer for frames that are already recognized on the device:
// each frame is a JSON encoded Result. An empty frame, or one without a label,
// recognized nothing.
var Reported Recognizer = RecognizerFunc(func(ctx context.Context, frame []byte) (*Result, error) {
	if len(frame) == 0 {
		return nil, nil
	}
	res := &Result{}
	if err := json.Unmarshal(frame, res); err != nil {
		return nil, fmt.Errorf("decode reported recognition: %w", err)
	}
	if res.Label == "" {
		return nil, nil
	}
	if res.Timestamp.IsZero() {
		res.Timestamp = time.Now()
	}
	return res, nil
})

// Accepted is a recognition in effect.
type Accepted struct {
	Result
	Delta params.GPSDelta `json:"delta"`
}

const currentKey = "current"

type Refiner struct {
	recognizer Recognizer
	config     *params.RecognitionConfig

	mu      sync.Mutex
	seq     uint64
	current *ttlcache.Cache[string, Accepted]

	logger *slog.Logger
}

func NewRefiner(recognizer Recognizer, config *params.RecognitionConfig) *Refiner {
	if config == nil {
		config = params.DefaultRecognitionConfig()
	}
	return &Refiner{
		recognizer: recognizer,
		config:     config,
		current: ttlcache.New[string, Accepted](
			ttlcache.WithTTL[string, Accepted](config.TTL),
			ttlcache.WithDisableTouchOnHit[string, Accepted](),
		),
		logger: slog.With("c", "recognition"),
	}
}

// Observe recognizes a frame. It returns the accepted result, or nil when the
// frame gave no usable signal: nothing recognized, low confidence, or a label
// without a correction. Only the most recently started Observe may take effect.
func (r *Refiner) Observe(ctx context.Context, frame []byte) (*Accepted, error) {
	r.mu.Lock()
	r.seq++
	n := r.seq
	r.mu.Unlock()

	res, err := r.recognizer.Recognize(ctx, frame)

	r.mu.Lock()
	defer r.mu.Unlock()
	if n != r.seq {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	if res.Confidence < r.config.ConfidenceThreshold {
		r.logger.Debug("Low confidence recognition", "label", res.Label, "confidence", res.Confidence)
		return nil, nil
	}
	delta, ok := r.config.LabelCorrections[res.Label]
	if !ok {
		r.logger.Debug("No correction for label", "label", res.Label)
		return nil, nil
	}
	acc := Accepted{Result: *res, Delta: delta}
	r.current.Set(currentKey, acc, ttlcache.DefaultTTL)
	r.logger.Info("Accepted recognition", "label", res.Label, "confidence", res.Confidence)
	return &acc, nil
}

// Current returns the recognition in effect, if it has not expired.
func (r *Refiner) Current() (Accepted, bool) {
	item := r.current.Get(currentKey)
	if item == nil {
		return Accepted{}, false
	}
	return item.Value(), true
}

// Adjust shifts gps by the current correction, if any.
func (r *Refiner) Adjust(gps orb.Point) (orb.Point, bool) {
	acc, ok := r.Current()
	if !ok {
		return gps, false
	}
	return orb.Point{gps.Lon() + acc.Delta.Lon, gps.Lat() + acc.Delta.Lat}, true
}

// Clear drops the current correction.
func (r *Refiner) Clear() {
	r.current.DeleteAll()
}
