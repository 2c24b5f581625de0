package engine

import (
	"github.com/dropzone-telemetry/skyjump/internal/events"
	"github.com/dropzone-telemetry/skyjump/internal/kinematics"
)

// snapshot is a ProcessingState: everything the pending buffer needs to
// hold onto so that a later successful validation can reconstruct output
// rows and resume streaming from the exact historical windows at the
// inflection's successor, never an anachronistic "future" window.
type snapshot[S HasInputFields] struct {
	Index    uint64
	Source   S
	Kin      kinematics.Kinematics
	Detected events.DetectedEvents

	// States holds one frozen EventState clone per EventType, indexed by
	// EventType, as they stood immediately after this sample was pushed.
	States [numEventTypes]*events.EventState

	// PrevMedians holds, per EventType, the smoothing-window median
	// immediately before this sample was pushed — the trigger predicates'
	// acceleration term needs this exact historical value on replay.
	PrevMedians [numEventTypes]float64
}

const numEventTypes = 4
