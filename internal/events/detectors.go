package events

import (
	"github.com/dropzone-telemetry/skyjump/internal/kinematics"
	"github.com/dropzone-telemetry/skyjump/internal/windows"
)

// Context is the per-sample information a detector's predicates need:
// the current index, the current Kinematics, and (for Freefall's
// acceleration trigger) the smoothing-window median immediately before the
// current sample was pushed.
type Context struct {
	Index      uint64
	Kin        kinematics.Kinematics
	PrevMedian float64
}

// Detector exposes the three pure predicates assigned to each event type,
// plus the window sizing and backtrack direction the engine and
// inflection finder need.
type Detector interface {
	Type() EventType

	// Trigger reports whether the candidate-detection condition holds.
	Trigger(es *EventState, ctx Context) bool
	// Constraints reports whether the event is eligible to be attached:
	// ordering against other events, and any altitude gate.
	Constraints(es *EventState, detected DetectedEvents, ctx Context) bool
	// Validate re-checks a relaxed form of Trigger at the end of the
	// validation look-ahead window.
	Validate(es *EventState, ctx Context) bool

	SmoothingWindowSize() int
	BacktrackWindowSize() int
	ValidationWindowSize() int
	StabilityWindowSize() int // only Landing uses this meaningfully; 0 otherwise

	// IsRising tells the inflection finder which direction of speed change
	// marks this event's true transition.
	IsRising() bool
}

// TakeoffConfig is the "takeoff" group of the configuration record.
type TakeoffConfig struct {
	SpeedThreshold       float64
	ClimbRate            float64 // negative
	MaxAltitude          float64
	SmoothingWindowSize  int
	BacktrackWindowSize  int
	ValidationWindowSize int
}

type takeoffDetector struct{ cfg TakeoffConfig }

// NewTakeoffDetector builds the Takeoff detector from its configuration group.
func NewTakeoffDetector(cfg TakeoffConfig) Detector { return takeoffDetector{cfg} }

func (d takeoffDetector) Type() EventType { return Takeoff }

func (d takeoffDetector) Trigger(es *EventState, ctx Context) bool {
	return ctx.Kin.HorizontalSpeed > d.cfg.SpeedThreshold && es.MedianSmoothing() < d.cfg.ClimbRate
}

func (d takeoffDetector) Constraints(es *EventState, detected DetectedEvents, ctx Context) bool {
	if detected.Takeoff != nil {
		return false
	}
	return ctx.Kin.CorrectedAltitude < d.cfg.MaxAltitude
}

func (d takeoffDetector) Validate(es *EventState, ctx Context) bool {
	return es.MedianSmoothing() < d.cfg.ClimbRate
}

func (d takeoffDetector) SmoothingWindowSize() int  { return d.cfg.SmoothingWindowSize }
func (d takeoffDetector) BacktrackWindowSize() int  { return d.cfg.BacktrackWindowSize }
func (d takeoffDetector) ValidationWindowSize() int { return d.cfg.ValidationWindowSize }
func (d takeoffDetector) StabilityWindowSize() int  { return 0 }
func (d takeoffDetector) IsRising() bool            { return true }

// FreefallConfig is the "freefall" group of the configuration record.
type FreefallConfig struct {
	VerticalSpeedThreshold  float64
	AccelerationThreshold   float64
	AccelerationMinVelocity float64
	MinAltitudeAbove        float64
	MinAltitudeAbsolute     float64
	SmoothingWindowSize     int
	BacktrackWindowSize     int
	ValidationWindowSize    int
}

type freefallDetector struct{ cfg FreefallConfig }

// NewFreefallDetector builds the Freefall detector from its configuration group.
func NewFreefallDetector(cfg FreefallConfig) Detector { return freefallDetector{cfg} }

func (d freefallDetector) Type() EventType { return Freefall }

func (d freefallDetector) Trigger(es *EventState, ctx Context) bool {
	median := es.MedianSmoothing()
	if median > d.cfg.VerticalSpeedThreshold {
		return true
	}
	accel := windows.Acceleration(median, ctx.PrevMedian, ctx.Kin.DeltaTime)
	return accel > d.cfg.AccelerationThreshold && median > d.cfg.AccelerationMinVelocity
}

func (d freefallDetector) Constraints(es *EventState, detected DetectedEvents, ctx Context) bool {
	if detected.Freefall != nil {
		return false
	}
	if detected.Takeoff != nil && ctx.Index <= detected.Takeoff.Index {
		return false
	}
	aboveTakeoff := detected.Takeoff != nil && ctx.Kin.CorrectedAltitude > detected.Takeoff.Altitude+d.cfg.MinAltitudeAbove
	aboveAbsolute := ctx.Kin.CorrectedAltitude > d.cfg.MinAltitudeAbsolute
	return aboveTakeoff || aboveAbsolute
}

func (d freefallDetector) Validate(es *EventState, ctx Context) bool {
	// Hop-and-pop preserved fraction: 0.8x the trigger threshold is the only
	// mechanism that lets very short freefalls validate before Canopy
	// conditions start to dominate the smoothing window.
	return es.MedianSmoothing() > 0.8*d.cfg.VerticalSpeedThreshold
}

func (d freefallDetector) SmoothingWindowSize() int  { return d.cfg.SmoothingWindowSize }
func (d freefallDetector) BacktrackWindowSize() int  { return d.cfg.BacktrackWindowSize }
func (d freefallDetector) ValidationWindowSize() int { return d.cfg.ValidationWindowSize }
func (d freefallDetector) StabilityWindowSize() int  { return 0 }
func (d freefallDetector) IsRising() bool            { return true }

// CanopyConfig is the "canopy" group of the configuration record.
type CanopyConfig struct {
	VerticalSpeedMax     float64
	SmoothingWindowSize  int
	BacktrackWindowSize  int
	ValidationWindowSize int
}

type canopyDetector struct{ cfg CanopyConfig }

// NewCanopyDetector builds the Canopy detector from its configuration group.
func NewCanopyDetector(cfg CanopyConfig) Detector { return canopyDetector{cfg} }

func (d canopyDetector) Type() EventType { return Canopy }

func (d canopyDetector) Trigger(es *EventState, ctx Context) bool {
	median := es.MedianSmoothing()
	return median > 0 && median < d.cfg.VerticalSpeedMax
}

func (d canopyDetector) Constraints(es *EventState, detected DetectedEvents, ctx Context) bool {
	if detected.Canopy != nil {
		return false
	}
	if detected.Freefall == nil {
		return false
	}
	if ctx.Index <= detected.Freefall.Index {
		return false
	}
	if ctx.Kin.CorrectedAltitude >= detected.Freefall.Altitude {
		return false
	}
	if detected.Takeoff != nil && ctx.Kin.CorrectedAltitude <= detected.Takeoff.Altitude {
		return false
	}
	return true
}

func (d canopyDetector) Validate(es *EventState, ctx Context) bool {
	median := es.MedianSmoothing()
	return median > 0 && median < 1.5*d.cfg.VerticalSpeedMax
}

func (d canopyDetector) SmoothingWindowSize() int  { return d.cfg.SmoothingWindowSize }
func (d canopyDetector) BacktrackWindowSize() int  { return d.cfg.BacktrackWindowSize }
func (d canopyDetector) ValidationWindowSize() int { return d.cfg.ValidationWindowSize }
func (d canopyDetector) StabilityWindowSize() int  { return 0 }
func (d canopyDetector) IsRising() bool            { return false }

// LandingConfig is the "landing" group of the configuration record.
type LandingConfig struct {
	SpeedMax             float64
	StabilityThreshold   float64
	MeanVerticalSpeedMax float64
	AltitudeTolerance    float64 // reserved; not enforced by any predicate below (open question, not resolved by observable behavior)
	StabilityWindowSize  int
	SmoothingWindowSize  int
	BacktrackWindowSize  int
	ValidationWindowSize int
}

type landingDetector struct{ cfg LandingConfig }

// NewLandingDetector builds the Landing detector from its configuration group.
func NewLandingDetector(cfg LandingConfig) Detector { return landingDetector{cfg} }

func (d landingDetector) Type() EventType { return Landing }

func (d landingDetector) Trigger(es *EventState, ctx Context) bool {
	if ctx.Kin.TotalSpeed >= d.cfg.SpeedMax {
		return false
	}
	return es.Stable(d.cfg.StabilityWindowSize, d.cfg.StabilityThreshold, d.cfg.MeanVerticalSpeedMax)
}

func (d landingDetector) Constraints(es *EventState, detected DetectedEvents, ctx Context) bool {
	if detected.Landing != nil {
		return false
	}
	if detected.Canopy == nil && detected.Takeoff == nil {
		return false
	}
	if detected.Canopy != nil {
		if ctx.Index <= detected.Canopy.Index {
			return false
		}
		if ctx.Kin.CorrectedAltitude >= detected.Canopy.Altitude {
			return false
		}
	}
	return true
}

func (d landingDetector) Validate(es *EventState, ctx Context) bool {
	if ctx.Kin.TotalSpeed >= 2*d.cfg.SpeedMax {
		return false
	}
	return es.Stable(d.cfg.StabilityWindowSize, d.cfg.StabilityThreshold, d.cfg.MeanVerticalSpeedMax)
}

func (d landingDetector) SmoothingWindowSize() int  { return d.cfg.SmoothingWindowSize }
func (d landingDetector) BacktrackWindowSize() int  { return d.cfg.BacktrackWindowSize }
func (d landingDetector) ValidationWindowSize() int { return d.cfg.ValidationWindowSize }
func (d landingDetector) StabilityWindowSize() int  { return d.cfg.StabilityWindowSize }
func (d landingDetector) IsRising() bool            { return false }
