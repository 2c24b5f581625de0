// Package events holds the detection engine's domain types: the four event
// types, the flight-phase enumeration derived from them, the per-event
// sliding-window state, and the trigger/constraint/validation detectors.
package events

import "github.com/dropzone-telemetry/skyjump/internal/windows"

// EventType identifies one of the four flight events. The order of the
// iota constants is also the priority order the streaming state machine
// considers candidates in.
type EventType int

const (
	Takeoff EventType = iota
	Freefall
	Canopy
	Landing
)

// Order is the fixed priority order candidate events are considered in.
var Order = [...]EventType{Takeoff, Freefall, Canopy, Landing}

func (t EventType) String() string {
	switch t {
	case Takeoff:
		return "takeoff"
	case Freefall:
		return "freefall"
	case Canopy:
		return "canopy"
	case Landing:
		return "landing"
	default:
		return "unknown"
	}
}

// FlightPhase is the ordered phase enumeration a jump passes through:
// BeforeTakeoff < Climbing < InFreefall < UnderCanopy < Landed.
type FlightPhase int

const (
	BeforeTakeoff FlightPhase = iota
	Climbing
	InFreefall
	UnderCanopy
	Landed
)

func (p FlightPhase) String() string {
	switch p {
	case BeforeTakeoff:
		return "before_takeoff"
	case Climbing:
		return "climbing"
	case InFreefall:
		return "freefall"
	case UnderCanopy:
		return "under_canopy"
	case Landed:
		return "landed"
	default:
		return "unknown"
	}
}

// FlightEvent is an instantaneous transition attached at the sample index
// and altitude where it physically occurred.
type FlightEvent struct {
	Index    uint64
	Altitude float64
}

// VerticalSpeedSample is the element type of the per-event backtrack
// window.
type VerticalSpeedSample struct {
	Index                uint64
	ClippedVerticalSpeed float64
	CorrectedAltitude    float64
}

// DetectedEvents holds the four independent optional event slots. A nil
// pointer means the event has not yet been detected.
type DetectedEvents struct {
	Takeoff  *FlightEvent
	Freefall *FlightEvent
	Canopy   *FlightEvent
	Landing  *FlightEvent
}

// Get returns the slot for the given event type.
func (d DetectedEvents) Get(t EventType) *FlightEvent {
	switch t {
	case Takeoff:
		return d.Takeoff
	case Freefall:
		return d.Freefall
	case Canopy:
		return d.Canopy
	case Landing:
		return d.Landing
	default:
		return nil
	}
}

// WithSet returns a copy of d with t's slot set to fe. It never mutates d,
// so buffered snapshots keep their own independent DetectedEvents value.
func (d DetectedEvents) WithSet(t EventType, fe FlightEvent) DetectedEvents {
	out := d
	switch t {
	case Takeoff:
		out.Takeoff = &fe
	case Freefall:
		out.Freefall = &fe
	case Canopy:
		out.Canopy = &fe
	case Landing:
		out.Landing = &fe
	}
	return out
}

// Phase derives the FlightPhase from which events are set: the highest
// phase whose immediately preceding event is set, independent of earlier
// events. This lets a recording that starts mid-air (no Takeoff detected)
// jump straight from BeforeTakeoff to InFreefall once Freefall is set.
func (d DetectedEvents) Phase() FlightPhase {
	switch {
	case d.Landing != nil:
		return Landed
	case d.Canopy != nil:
		return UnderCanopy
	case d.Freefall != nil:
		return InFreefall
	case d.Takeoff != nil:
		return Climbing
	default:
		return BeforeTakeoff
	}
}

// NextEligible returns the first event type, in priority order, whose slot
// is still unset. It is used to size the pending buffer while streaming:
// the buffer is trimmed down to this event's backtrack window size. If
// every event is already detected, Landing is returned since it is the
// last event in the order and bounds the buffer just as well.
func (d DetectedEvents) NextEligible() EventType {
	for _, t := range Order {
		if d.Get(t) == nil {
			return t
		}
	}
	return Landing
}

// EventState is the per-event sliding-window state: a smoothing window of
// clipped vertical speeds, a backtrack window of VerticalSpeedSamples, and
// a stability window (meaningfully used only by Landing) of clipped
// vertical speeds.
type EventState struct {
	Smoothing *windows.Window[float64]
	Backtrack *windows.Window[VerticalSpeedSample]
	Stability *windows.Window[float64]
}

// NewEventState builds an EventState with the given per-window capacities.
func NewEventState(smoothingCap, backtrackCap, stabilityCap int) *EventState {
	return &EventState{
		Smoothing: windows.New[float64](smoothingCap),
		Backtrack: windows.New[VerticalSpeedSample](backtrackCap),
		Stability: windows.New[float64](stabilityCap),
	}
}

// Update pushes the current sample into all three windows.
func (es *EventState) Update(clippedVerticalSpeed float64, vss VerticalSpeedSample) {
	es.Smoothing.Push(clippedVerticalSpeed)
	es.Stability.Push(clippedVerticalSpeed)
	es.Backtrack.Push(vss)
}

// Clone returns an independent deep copy, used to freeze an EventState into
// a buffered snapshot for later backtracking.
func (es *EventState) Clone() *EventState {
	return &EventState{
		Smoothing: es.Smoothing.Clone(),
		Backtrack: es.Backtrack.Clone(),
		Stability: es.Stability.Clone(),
	}
}

// MedianSmoothing is a convenience used by both detectors and the engine.
func (es *EventState) MedianSmoothing() float64 {
	return windows.Median(es.Smoothing.Values())
}

// Stable reports whether the stability window satisfies Landing's
// stability predicate: full, low-variance, and low-mean.
func (es *EventState) Stable(stabilityWindowSize int, stddevThreshold, meanAbsMax float64) bool {
	if es.Stability.Len() < stabilityWindowSize {
		return false
	}
	values := es.Stability.Values()
	if windows.StdDev(values) >= stddevThreshold {
		return false
	}
	mean := windows.Mean(values)
	if mean < 0 {
		mean = -mean
	}
	return mean < meanAbsMax
}
