package events

import (
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/studio0rpiment/wayside/conceptual"
)

// DebugMode is the process-wide placement override flag.
// Subscribers are sent the new value on every change.
// A Set to the current value is not a change and sends nothing.
type DebugMode struct {
	mu      sync.RWMutex
	enabled bool

	// sendMu orders sends so subscribers see changes in the order they were made.
	sendMu sync.Mutex
	feed   event.FeedOf[bool]
}

func NewDebugMode(initial bool) *DebugMode {
	return &DebugMode{enabled: initial}
}

func (d *DebugMode) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// Set updates the flag and reports whether it changed.
// Send blocks until every subscriber has received the value,
// so a subscriber must keep draining its channel.
func (d *DebugMode) Set(enabled bool) bool {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()

	d.mu.Lock()
	changed := d.enabled != enabled
	d.enabled = enabled
	d.mu.Unlock()

	if changed {
		d.feed.Send(enabled)
	}
	return changed
}

// Toggle flips the flag and returns the new value.
func (d *DebugMode) Toggle() bool {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()

	d.mu.Lock()
	d.enabled = !d.enabled
	v := d.enabled
	d.mu.Unlock()

	d.feed.Send(v)
	return v
}

func (d *DebugMode) Subscribe(ch chan<- bool) event.Subscription {
	return d.feed.Subscribe(ch)
}

type AnchorEventKind string

const (
	AnchorsLoaded     AnchorEventKind = "loaded"
	AnchorUpdated     AnchorEventKind = "updated"
	AnchorReset       AnchorEventKind = "reset"
	AnchorsReset      AnchorEventKind = "reset_all"
	CorrectionToggled AnchorEventKind = "corrections"
	DebugChanged      AnchorEventKind = "debug"
)

// AnchorEvent describes a registry mutation.
// ID is empty for events that affect every anchor.
type AnchorEvent struct {
	Kind AnchorEventKind         `json:"kind"`
	ID   conceptual.ExperienceID `json:"id,omitempty"`
}

// AnchorFeed carries registry mutations to listeners (eg. websocket clients).
type AnchorFeed = event.FeedOf[AnchorEvent]
