package engine

import (
	"fmt"
	"io"
	"log"

	"github.com/dropzone-telemetry/skyjump/internal/events"
	"github.com/dropzone-telemetry/skyjump/internal/flightconfig"
	"github.com/dropzone-telemetry/skyjump/internal/flightlog"
	"github.com/dropzone-telemetry/skyjump/internal/inflection"
	"github.com/dropzone-telemetry/skyjump/internal/kinematics"
)

// Engine is the single-threaded cooperative state machine: a pure
// (state, input) -> (state', outputs) step threaded through one
// ProcessingState. There is no shared mutable state across Step calls
// beyond the engine's own fields.
type Engine[S HasInputFields] struct {
	cfg flightconfig.Config

	detectors [numEventTypes]events.Detector
	states    [numEventTypes]*events.EventState

	detected events.DetectedEvents
	phase    streamPhase
	buffer   []snapshot[S]

	index   uint64
	prevRaw *kinematics.Previous

	logger *log.Logger
	debug  bool
}

// Option configures an Engine at construction.
type Option[S HasInputFields] func(*Engine[S])

// WithLogger injects a logger for debug tracing. The engine never reaches
// for a global logger.
func WithLogger[S HasInputFields](logger *log.Logger) Option[S] {
	return func(e *Engine[S]) { e.logger = logger }
}

// WithDebug enables per-sample debug tracing through the injected logger.
func WithDebug[S HasInputFields](debug bool) Option[S] {
	return func(e *Engine[S]) { e.debug = debug }
}

// New builds an Engine from a validated configuration.
func New[S HasInputFields](cfg flightconfig.Config, opts ...Option[S]) (*Engine[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine[S]{cfg: cfg}

	e.detectors[events.Takeoff] = events.NewTakeoffDetector(events.TakeoffConfig{
		SpeedThreshold:       cfg.Takeoff.SpeedThreshold,
		ClimbRate:            cfg.Takeoff.ClimbRate,
		MaxAltitude:          cfg.Takeoff.MaxAltitude,
		SmoothingWindowSize:  cfg.Takeoff.SmoothingWindowSize,
		BacktrackWindowSize:  cfg.Takeoff.BacktrackWindowSize,
		ValidationWindowSize: cfg.Takeoff.ValidationWindowSize,
	})
	e.detectors[events.Freefall] = events.NewFreefallDetector(events.FreefallConfig{
		VerticalSpeedThreshold:  cfg.Freefall.VerticalSpeedThreshold,
		AccelerationThreshold:   cfg.Freefall.AccelerationThreshold,
		AccelerationMinVelocity: cfg.Freefall.AccelerationMinVelocity,
		MinAltitudeAbove:        cfg.Freefall.MinAltitudeAbove,
		MinAltitudeAbsolute:     cfg.Freefall.MinAltitudeAbsolute,
		SmoothingWindowSize:     cfg.Freefall.SmoothingWindowSize,
		BacktrackWindowSize:     cfg.Freefall.BacktrackWindowSize,
		ValidationWindowSize:    cfg.Freefall.ValidationWindowSize,
	})
	e.detectors[events.Canopy] = events.NewCanopyDetector(events.CanopyConfig{
		VerticalSpeedMax:     cfg.Canopy.VerticalSpeedMax,
		SmoothingWindowSize:  cfg.Canopy.SmoothingWindowSize,
		BacktrackWindowSize:  cfg.Canopy.BacktrackWindowSize,
		ValidationWindowSize: cfg.Canopy.ValidationWindowSize,
	})
	e.detectors[events.Landing] = events.NewLandingDetector(events.LandingConfig{
		SpeedMax:             cfg.Landing.SpeedMax,
		StabilityThreshold:   cfg.Landing.StabilityThreshold,
		MeanVerticalSpeedMax: cfg.Landing.MeanVerticalSpeedMax,
		AltitudeTolerance:    cfg.Landing.AltitudeTolerance,
		StabilityWindowSize:  cfg.Landing.StabilityWindowSize,
		SmoothingWindowSize:  cfg.Landing.SmoothingWindowSize,
		BacktrackWindowSize:  cfg.Landing.BacktrackWindowSize,
		ValidationWindowSize: cfg.Landing.ValidationWindowSize,
	})

	for _, et := range events.Order {
		d := e.detectors[et]
		e.states[et] = events.NewEventState(d.SmoothingWindowSize(), d.BacktrackWindowSize(), d.StabilityWindowSize())
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard, "", 0)
	}

	return e, nil
}

// Step preprocesses source, advances every per-event window, and runs the
// state machine, returning zero or more Output rows in strict input order.
// An error means source was structurally invalid (non-monotonic timestamp
// or a non-finite field); the caller halts the stream for this session.
func (e *Engine[S]) Step(source S) ([]Output[S], error) {
	fields := source.InputFields()
	raw := kinematics.Raw{
		Time:          fields.Time,
		Altitude:      fields.Altitude,
		NorthSpeed:    fields.NorthSpeed,
		EastSpeed:     fields.EastSpeed,
		VerticalSpeed: fields.VerticalSpeed,
	}

	kin, err := kinematics.Preprocess(raw, e.prevRaw, kinematics.GlobalConfig{AccelerationClip: e.cfg.Global.AccelerationClip})
	if err != nil {
		flightlog.Debugf(e.logger, e.debug, "index %d rejected: %v", e.index, err)
		return nil, err
	}
	e.prevRaw = &kinematics.Previous{Time: fields.Time, Kinematics: kin}

	vss := events.VerticalSpeedSample{
		Index:                e.index,
		ClippedVerticalSpeed: kin.ClippedVerticalSpeed,
		CorrectedAltitude:    kin.CorrectedAltitude,
	}

	var prevMedians [numEventTypes]float64
	for _, et := range events.Order {
		prevMedians[et] = e.states[et].MedianSmoothing()
		e.states[et].Update(kin.ClippedVerticalSpeed, vss)
	}

	var frozen [numEventTypes]*events.EventState
	for _, et := range events.Order {
		frozen[et] = e.states[et].Clone()
	}

	snap := snapshot[S]{
		Index:       e.index,
		Source:      source,
		Kin:         kin,
		Detected:    e.detected,
		States:      frozen,
		PrevMedians: prevMedians,
	}
	e.index++

	return e.dispatch(snap), nil
}

// Flush drains the pending buffer at end of input. A sample stream ending
// mid-Validation is treated as a validation failure: the buffer is
// released unchanged.
func (e *Engine[S]) Flush() []Output[S] {
	if e.phase.validating {
		return e.resolveFailure(e.phase.eventType)
	}
	outputs := make([]Output[S], 0, len(e.buffer))
	for _, s := range e.buffer {
		outputs = append(outputs, e.assemble(s, s.Detected))
	}
	e.buffer = nil
	return outputs
}

func (e *Engine[S]) dispatch(snap snapshot[S]) []Output[S] {
	if e.phase.validating {
		return e.stepValidation(snap)
	}
	return e.stepStreaming(snap)
}

func (e *Engine[S]) stepStreaming(snap snapshot[S]) []Output[S] {
	for _, et := range events.Order {
		d := e.detectors[et]
		ctx := events.Context{Index: snap.Index, Kin: snap.Kin, PrevMedian: snap.PrevMedians[et]}
		if d.Trigger(snap.States[et], ctx) && d.Constraints(snap.States[et], e.detected, ctx) {
			e.buffer = append(e.buffer, snap)
			e.phase = streamPhase{validating: true, remaining: d.ValidationWindowSize(), eventType: et}
			flightlog.Debugf(e.logger, e.debug, "index %d: %s candidate triggered, entering validation", snap.Index, et)
			return nil
		}
	}

	e.buffer = append(e.buffer, snap)

	nextEligible := e.detected.NextEligible()
	backtrackSize := e.detectors[nextEligible].BacktrackWindowSize()

	var outputs []Output[S]
	for len(e.buffer) > backtrackSize {
		oldest := e.buffer[0]
		e.buffer = e.buffer[1:]
		outputs = append(outputs, e.assemble(oldest, oldest.Detected))
	}
	return outputs
}

func (e *Engine[S]) stepValidation(snap snapshot[S]) []Output[S] {
	et := e.phase.eventType
	e.buffer = append(e.buffer, snap)
	e.phase.remaining--
	if e.phase.remaining > 0 {
		return nil
	}

	ctx := events.Context{Index: snap.Index, Kin: snap.Kin, PrevMedian: snap.PrevMedians[et]}
	if e.detectors[et].Validate(snap.States[et], ctx) {
		flightlog.Debugf(e.logger, e.debug, "index %d: %s validated", snap.Index, et)
		return e.resolveSuccess(et)
	}
	flightlog.Debugf(e.logger, e.debug, "index %d: %s validation failed, releasing buffer", snap.Index, et)
	return e.resolveFailure(et)
}

// resolveSuccess runs the inflection finder against the state the trigger
// fired on, attaches the event at its true historical index across the
// buffered rows up to the resume state, and reprocesses the rows after it
// through the normal streaming rules.
func (e *Engine[S]) resolveSuccess(et events.EventType) []Output[S] {
	// The trigger sample is followed by exactly ValidationWindowSize samples;
	// rows before it are pending streaming rows, not the trigger.
	triggerState := e.buffer[len(e.buffer)-1-e.detectors[et].ValidationWindowSize()]
	isRising := e.detectors[et].IsRising()
	backtrack := triggerState.States[et].Backtrack.Values()

	fe := events.FlightEvent{Index: triggerState.Index, Altitude: triggerState.Kin.CorrectedAltitude}
	if sample, ok := inflection.Find(backtrack, isRising, e.cfg.Global.InflectionMinSpeedDelta); ok {
		fe = events.FlightEvent{Index: sample.Index, Altitude: sample.CorrectedAltitude}
	}

	resumeIdx := len(e.buffer) - 1
	for i, s := range e.buffer {
		if s.Index > fe.Index {
			resumeIdx = i
			break
		}
	}

	outputs := make([]Output[S], 0, len(e.buffer))
	for _, s := range e.buffer[:resumeIdx+1] {
		det := s.Detected
		if s.Index >= fe.Index {
			det = det.WithSet(et, fe)
		}
		outputs = append(outputs, e.assemble(s, det))
	}

	resumeState := e.buffer[resumeIdx]
	remaining := append([]snapshot[S]{}, e.buffer[resumeIdx+1:]...)

	e.detected = resumeState.Detected.WithSet(et, fe)
	e.buffer = nil
	e.phase = streamPhase{}

	for _, s := range remaining {
		s.Detected = e.detected
		outputs = append(outputs, e.dispatch(s)...)
	}
	return outputs
}

// resolveFailure releases the buffer unchanged, the rejected trigger sample
// included. No released row is re-examined for et; streaming resumes with
// the next new sample.
func (e *Engine[S]) resolveFailure(et events.EventType) []Output[S] {
	outputs := make([]Output[S], 0, len(e.buffer))
	for _, s := range e.buffer {
		outputs = append(outputs, e.assemble(s, s.Detected))
	}

	resumeIdx := len(e.buffer) - 1
	if len(e.buffer) > 1 {
		resumeIdx = 1
	}
	e.detected = e.buffer[resumeIdx].Detected
	e.buffer = nil
	e.phase = streamPhase{}
	return outputs
}

func (e *Engine[S]) assemble(s snapshot[S], det events.DetectedEvents) Output[S] {
	return Output[S]{
		Phase:    det.Phase(),
		Takeoff:  det.Takeoff,
		Freefall: det.Freefall,
		Canopy:   det.Canopy,
		Landing:  det.Landing,
		Source:   s.Source,
	}
}
