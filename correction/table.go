package correction

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/conceptual"
	"github.com/studio0rpiment/wayside/params"
)

// Table is an in-memory Oracle, optionally written through to a Store.
type Table struct {
	mu          sync.RWMutex
	config      *params.CorrectionConfig
	enabled     bool
	corrections map[conceptual.ExperienceID]Correction
	store       *Store
	logger      *slog.Logger
}

func NewTable(config *params.CorrectionConfig) *Table {
	if config == nil {
		config = params.DefaultCorrectionConfig
	}
	return &Table{
		config:      config,
		enabled:     config.Enabled,
		corrections: make(map[conceptual.ExperienceID]Correction),
		logger:      slog.With("c", "correction"),
	}
}

// LoadFrom replaces the table's corrections with the store's,
// and writes future training through to it.
func (t *Table) LoadFrom(store *Store) error {
	all, err := store.All()
	if err != nil {
		return fmt.Errorf("load corrections: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.corrections = all
	t.store = store
	t.logger.Info("Loaded corrections", "count", len(all))
	return nil
}

// Set installs a correction directly.
func (t *Table) Set(id conceptual.ExperienceID, c Correction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.corrections[id] = c
	if t.store != nil {
		return t.store.Put(id, c)
	}
	return nil
}

// Train folds an observed GPS position for the experience into its correction.
// The corrected position is the running mean of all observations.
func (t *Table) Train(id conceptual.ExperienceID, observed orb.Point, confidence float64) (Correction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.corrections[id]
	n := float64(c.Samples)
	c.GPS = orb.Point{
		(c.GPS.Lon()*n + observed.Lon()) / (n + 1),
		(c.GPS.Lat()*n + observed.Lat()) / (n + 1),
	}
	c.Confidence = confidence
	c.Samples++
	c.TrainedAt = time.Now()
	t.corrections[id] = c

	if t.store != nil {
		if err := t.store.Put(id, c); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (t *Table) ApplyCorrection(id conceptual.ExperienceID, nominal orb.Point) (orb.Point, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.enabled {
		return nominal, false
	}
	c, ok := t.corrections[id]
	if !ok || !c.isValid(t.config.MinConfidence) {
		return nominal, false
	}
	return c.GPS, true
}

func (t *Table) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

func (t *Table) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func (t *Table) TrainedCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.corrections)
}

// AvailableExperiences lists trained ids, sorted.
func (t *Table) AvailableExperiences() []conceptual.ExperienceID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]conceptual.ExperienceID, 0, len(t.corrections))
	for id := range t.corrections {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *Table) Info(id conceptual.ExperienceID) Info {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info := Info{Enabled: t.enabled}
	c, ok := t.corrections[id]
	if !ok {
		return info
	}
	info.Available = true
	info.Valid = c.isValid(t.config.MinConfidence)
	info.Correction = &c
	return info
}
