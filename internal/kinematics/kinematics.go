// Package kinematics implements the preprocessing stage shared by every
// input source: physical-acceleration clipping, altitude correction from
// clipped vertical speed, and the derived speeds every later stage reads.
package kinematics

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultDeltaTime is used for the first sample in a stream, when there is
// no previous timestamp to difference against.
const DefaultDeltaTime = 0.2

// ErrInvalidInput is returned when a sample is structurally unusable: a
// non-monotonic timestamp or a non-finite numeric field. These are reported
// to the caller, not recovered from; the caller halts the stream.
var ErrInvalidInput = errors.New("kinematics: invalid input sample")

// Raw holds the fields the preprocessor reads from an input sample. It is
// deliberately source-agnostic: the engine projects its generic Source type
// onto Raw via the HasInputFields interface before calling Preprocess.
type Raw struct {
	Time          time.Time
	Altitude      float64
	NorthSpeed    float64
	EastSpeed     float64
	VerticalSpeed float64 // positive = descending
}

// GlobalConfig carries the subset of the flight configuration's "global"
// group the preprocessor needs.
type GlobalConfig struct {
	AccelerationClip float64 // m/s^2, physical ceiling on speed change per second
}

// Kinematics is the derived, per-sample record: raw and clipped speeds,
// corrected altitude, and the composite speeds every detector reads.
type Kinematics struct {
	RawVerticalSpeed float64
	RawNorthSpeed    float64
	RawEastSpeed     float64

	ClippedVerticalSpeed float64
	ClippedNorthSpeed    float64
	ClippedEastSpeed     float64
	VerticalClipped      bool // true if ClippedVerticalSpeed differs from raw this sample

	CorrectedAltitude float64

	HorizontalSpeed float64 // sqrt(n^2+e^2), from clipped components
	TotalSpeed      float64 // sqrt(n^2+e^2+v^2), from clipped components

	DeltaTime float64 // seconds since the previous sample
}

// Previous is the subset of state Preprocess needs from the prior step: the
// prior raw sample's timestamp and the prior step's clipped/corrected
// results. Both are nil for the first sample in a stream.
type Previous struct {
	Time       time.Time
	Kinematics Kinematics
}

// Preprocess computes the Kinematics for cur given the previous raw sample
// time and the previous step's Kinematics (nil for the first sample).
func Preprocess(cur Raw, prev *Previous, cfg GlobalConfig) (Kinematics, error) {
	if err := validateFinite(cur); err != nil {
		return Kinematics{}, err
	}

	var dt float64
	if prev == nil {
		dt = DefaultDeltaTime
	} else {
		dt = cur.Time.Sub(prev.Time).Seconds()
		if dt <= 0 {
			return Kinematics{}, fmt.Errorf("%w: non-monotonic timestamp (dt=%.6fs)", ErrInvalidInput, dt)
		}
	}

	var prevClippedV, prevClippedN, prevClippedE, prevAltitude float64
	if prev == nil {
		prevClippedV, prevClippedN, prevClippedE = cur.VerticalSpeed, cur.NorthSpeed, cur.EastSpeed
		prevAltitude = cur.Altitude
	} else {
		prevClippedV = prev.Kinematics.ClippedVerticalSpeed
		prevClippedN = prev.Kinematics.ClippedNorthSpeed
		prevClippedE = prev.Kinematics.ClippedEastSpeed
		prevAltitude = prev.Kinematics.CorrectedAltitude
	}

	maxDelta := cfg.AccelerationClip * dt
	clippedV, vClipped := clip(cur.VerticalSpeed, prevClippedV, maxDelta)
	clippedN, _ := clip(cur.NorthSpeed, prevClippedN, maxDelta)
	clippedE, _ := clip(cur.EastSpeed, prevClippedE, maxDelta)

	correctedAltitude := cur.Altitude
	if vClipped {
		// GPS altitude spikes are strongly correlated with velocity spikes;
		// integrating the clipped velocity prevents altitude discontinuities.
		correctedAltitude = prevAltitude - clippedV*dt
	}

	horizontal := math.Hypot(clippedN, clippedE)
	total := math.Sqrt(clippedN*clippedN + clippedE*clippedE + clippedV*clippedV)

	return Kinematics{
		RawVerticalSpeed:     cur.VerticalSpeed,
		RawNorthSpeed:        cur.NorthSpeed,
		RawEastSpeed:         cur.EastSpeed,
		ClippedVerticalSpeed: clippedV,
		ClippedNorthSpeed:    clippedN,
		ClippedEastSpeed:     clippedE,
		VerticalClipped:      vClipped,
		CorrectedAltitude:    correctedAltitude,
		HorizontalSpeed:      horizontal,
		TotalSpeed:           total,
		DeltaTime:            dt,
	}, nil
}

// clip enforces |current-previous| <= maxDelta, returning the clamped value
// and whether clamping occurred.
func clip(current, previous, maxDelta float64) (float64, bool) {
	delta := current - previous
	if delta > maxDelta {
		return previous + maxDelta, true
	}
	if delta < -maxDelta {
		return previous - maxDelta, true
	}
	return current, false
}

func validateFinite(r Raw) error {
	vals := []float64{r.Altitude, r.NorthSpeed, r.EastSpeed, r.VerticalSpeed}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite field value %v", ErrInvalidInput, v)
		}
	}
	return nil
}
