// Package engine implements the detection engine's state machine: the
// trigger/validation protocol over the four event detectors, the pending
// buffer and backtracking/reprocessing loop, and the output row assembler.
// The engine is generic over the caller's source record type so it never
// inspects anything beyond the five fields it needs to preprocess.
package engine

import (
	"time"

	"github.com/dropzone-telemetry/skyjump/internal/events"
)

// InputFields is the fixed projection every source record must produce:
// the five fields the preprocessor reads, independent of whatever else the
// caller's record type carries.
type InputFields struct {
	Time          time.Time
	Altitude      float64
	NorthSpeed    float64
	EastSpeed     float64
	VerticalSpeed float64 // positive = descending
}

// HasInputFields is implemented by a caller's source record type so the
// engine can preprocess it without knowing anything else about its shape.
// The engine carries the source value itself through unchanged into each
// Output row.
type HasInputFields interface {
	InputFields() InputFields
}

// Output is the per-sample result: the derived flight phase, the four
// optional events by value, and the caller's own source record carried
// through unchanged.
type Output[S HasInputFields] struct {
	Phase    events.FlightPhase
	Takeoff  *events.FlightEvent
	Freefall *events.FlightEvent
	Canopy   *events.FlightEvent
	Landing  *events.FlightEvent
	Source   S
}

// streamPhase is the engine's StreamPhase sum type: Streaming (the zero
// value) or Validation(remaining, eventType).
type streamPhase struct {
	validating bool
	remaining  int
	eventType  events.EventType
}
