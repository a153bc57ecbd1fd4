// Package telemetry provides perf timing, transition events, window stats,
// bookmarks, snapshots and CSV output for the visualizer.
package telemetry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType identifies transition events.
type EventType uint8

const (
	EventAccepted EventType = iota
	EventRetargeted
	EventRejected
	EventSettled
	EventRebuild
)

// String returns the event name used in logs and CSV.
func (t EventType) String() string {
	switch t {
	case EventAccepted:
		return "accepted"
	case EventRetargeted:
		return "retargeted"
	case EventRejected:
		return "rejected"
	case EventSettled:
		return "settled"
	case EventRebuild:
		return "rebuild"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Event represents a single transition event.
type Event struct {
	Type         EventType
	Tick         int32
	TransitionID uuid.UUID // uuid.Nil for rejected and rebuild events
	Source       string    // scene name, "physics", "payload" or "snapshot"

	// Optional fields depending on event type
	Count        int     // target particle count
	Capacity     int     // pool capacity after the event
	PrevCapacity int     // rebuild only
	Progress     float64 // morph progress when the event fired
	Immediate    bool

	// Settled only: frames and time charged while in flight
	Frames int
	Cost   time.Duration
}

// NewAcceptedEvent creates an event for a transition accepted from STABLE
// (or any immediate transition).
func NewAcceptedEvent(tick int32, id uuid.UUID, source string, count, capacity int, immediate bool) Event {
	return Event{
		Type:         EventAccepted,
		Tick:         tick,
		TransitionID: id,
		Source:       source,
		Count:        count,
		Capacity:     capacity,
		Immediate:    immediate,
	}
}

// NewRetargetedEvent creates an event for a target swapped mid-flight.
func NewRetargetedEvent(tick int32, id uuid.UUID, source string, count, capacity int, progress float64) Event {
	return Event{
		Type:         EventRetargeted,
		Tick:         tick,
		TransitionID: id,
		Source:       source,
		Count:        count,
		Capacity:     capacity,
		Progress:     progress,
	}
}

// NewRejectedEvent creates an event for a transition refused mid-flight.
func NewRejectedEvent(tick int32, source string, count int, progress float64) Event {
	return Event{
		Type:     EventRejected,
		Tick:     tick,
		Source:   source,
		Count:    count,
		Progress: progress,
	}
}

// NewSettledEvent creates an event for the engine returning to STABLE.
func NewSettledEvent(tick int32, id uuid.UUID, count int) Event {
	return Event{
		Type:         EventSettled,
		Tick:         tick,
		TransitionID: id,
		Count:        count,
		Progress:     1,
	}
}

// WithCost attaches the frame cost of the settling transition.
func (e Event) WithCost(c TransitionCost) Event {
	e.Frames = c.Frames
	e.Cost = c.Total
	return e
}

// NewRebuildEvent creates an event for a pool capacity rebuild.
func NewRebuildEvent(tick int32, prevCapacity, capacity int) Event {
	return Event{
		Type:         EventRebuild,
		Tick:         tick,
		Capacity:     capacity,
		PrevCapacity: prevCapacity,
	}
}

// LogEvent logs the event using slog.
func (e Event) LogEvent() {
	attrs := []any{
		"type", e.Type.String(),
		"tick", e.Tick,
	}
	if e.TransitionID != uuid.Nil {
		attrs = append(attrs, "transition", e.TransitionID.String())
	}
	if e.Source != "" {
		attrs = append(attrs, "source", e.Source)
	}
	switch e.Type {
	case EventRebuild:
		attrs = append(attrs, "prev_capacity", e.PrevCapacity, "capacity", e.Capacity)
	default:
		attrs = append(attrs, "count", e.Count, "progress", e.Progress)
		if e.Immediate {
			attrs = append(attrs, "immediate", true)
		}
		if e.Frames > 0 {
			attrs = append(attrs, "frames", e.Frames, "cost_us", e.Cost.Microseconds())
		}
	}
	slog.Info("transition", attrs...)
}

// EventCSV is a flat struct for CSV export of events.
type EventCSV struct {
	Tick         int32   `csv:"tick"`
	Type         string  `csv:"type"`
	TransitionID string  `csv:"transition_id"`
	Source       string  `csv:"source"`
	Count        int     `csv:"count"`
	Capacity     int     `csv:"capacity"`
	PrevCapacity int     `csv:"prev_capacity"`
	Progress     float64 `csv:"progress"`
	Immediate    bool    `csv:"immediate"`
	Frames       int     `csv:"frames"`
	CostUS       int64   `csv:"cost_us"`
}

// ToCSV converts an Event to its CSV row.
func (e Event) ToCSV() EventCSV {
	id := ""
	if e.TransitionID != uuid.Nil {
		id = e.TransitionID.String()
	}
	return EventCSV{
		Tick:         e.Tick,
		Type:         e.Type.String(),
		TransitionID: id,
		Source:       e.Source,
		Count:        e.Count,
		Capacity:     e.Capacity,
		PrevCapacity: e.PrevCapacity,
		Progress:     e.Progress,
		Immediate:    e.Immediate,
		Frames:       e.Frames,
		CostUS:       e.Cost.Microseconds(),
	}
}
