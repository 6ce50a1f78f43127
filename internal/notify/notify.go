// Package notify delivers reservation events to drivers, lot owners and
// the public map.  Delivery is best effort: a failed delivery is logged by
// the caller and never undoes the state change that produced the event.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// MapChannel is the broadcast channel every client listens to.
const MapChannel = "map"

// DriverChannel is the per-driver channel.
func DriverChannel(driverID uint64) string { return fmt.Sprintf("user:%d", driverID) }

// OwnerChannel is the per-lot channel owners subscribe to.
func OwnerChannel(lotID uint64) string { return fmt.Sprintf("owner:%d", lotID) }

// Event is one notification.
type Event struct {
	Channel string      `json:"channel"`
	Name    string      `json:"event"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// Sink accepts events for delivery.
type Sink interface {
	Notify(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

// Notify implements Sink.
func (f SinkFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Nop discards every event.
var Nop Sink = SinkFunc(func(context.Context, Event) error { return nil })

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

// Notify implements Sink.  Every sink is tried even if an earlier one fails.
func (m Multi) Notify(ctx context.Context, ev Event) error {
	var err error
	for _, s := range m {
		if s == nil {
			continue
		}
		err = multierr.Append(err, s.Notify(ctx, ev))
	}
	return err
}

// Recorder keeps every event in memory.  Useful for tests and debugging.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify implements Sink.
func (r *Recorder) Notify(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
