package flighttestutil

import (
	"time"

	"github.com/dropzone-telemetry/skyjump/internal/engine"
)

// Sample is a minimal source record satisfying engine.HasInputFields, used
// to drive the engine with literal synthetic flight profiles.
type Sample struct {
	T                          time.Time
	Alt, North, East, Vertical float64
}

// InputFields implements engine.HasInputFields.
func (s Sample) InputFields() engine.InputFields {
	return engine.InputFields{
		Time:          s.T,
		Altitude:      s.Alt,
		NorthSpeed:    s.North,
		EastSpeed:     s.East,
		VerticalSpeed: s.Vertical,
	}
}

// segment is a constant-or-ramped stretch of a profile: vertical and
// horizontal speed ramp linearly across the segment, and altitude ramps
// linearly from AltStart to AltEnd independent of the speed values, so a
// scenario's altitude constraints can be pinned exactly regardless of how
// its speed ramp is shaped.
type segment struct {
	Samples                    int
	VerticalStart, VerticalEnd float64
	NorthSpeed, EastSpeed      float64
	AltStart, AltEnd           float64
}

func buildProfile(dt time.Duration, segs []segment) []Sample {
	var out []Sample
	t := time.Unix(0, 0)
	for _, seg := range segs {
		for i := 0; i < seg.Samples; i++ {
			frac := 0.0
			if seg.Samples > 1 {
				frac = float64(i) / float64(seg.Samples-1)
			}
			v := seg.VerticalStart + frac*(seg.VerticalEnd-seg.VerticalStart)
			alt := seg.AltStart + frac*(seg.AltEnd-seg.AltStart)
			out = append(out, Sample{T: t, Alt: alt, North: seg.NorthSpeed, East: seg.EastSpeed, Vertical: v})
			t = t.Add(dt)
		}
	}
	return out
}

// sampleRate5Hz is the fixed 5 Hz cadence the literal scenarios assume.
const sampleRate5Hz = 200 * time.Millisecond

// GenerateCleanJump builds the "clean jump" scenario: 60 s climb
// (0->3000 m), 50 s freefall (3000 m down to canopy deployment altitude),
// 120 s under canopy (down to 120 m), 20 s stable on the ground at 115 m.
func GenerateCleanJump() []Sample {
	return buildProfile(sampleRate5Hz, []segment{
		{Samples: 300, VerticalStart: -3, VerticalEnd: -3, NorthSpeed: 30, AltStart: 0, AltEnd: 3000},
		{Samples: 20, VerticalStart: 5, VerticalEnd: 55, AltStart: 3000, AltEnd: 2900},
		{Samples: 230, VerticalStart: 55, VerticalEnd: 55, AltStart: 2900, AltEnd: 1200},
		{Samples: 600, VerticalStart: 6, VerticalEnd: 6, NorthSpeed: 8, AltStart: 1200, AltEnd: 120},
		{Samples: 100, VerticalStart: 0.2, VerticalEnd: 0.2, NorthSpeed: 0.2, AltStart: 115, AltEnd: 115},
	})
}

// GenerateSpikeOnly builds a flat, motionless trace at constant altitude
// with a 3-sample GPS spike injected at indices 400-402.
func GenerateSpikeOnly() []Sample {
	const n = 500
	out := make([]Sample, n)
	t := time.Unix(0, 0)
	for i := 0; i < n; i++ {
		v := 0.0
		if i >= 400 && i <= 402 {
			v = 150
		}
		out[i] = Sample{T: t, Alt: 120, Vertical: v}
		t = t.Add(sampleRate5Hz)
	}
	return out
}

// GenerateMissingTakeoff builds a recording that starts mid-flight already
// in freefall: no takeoff is ever recorded.
func GenerateMissingTakeoff() []Sample {
	return buildProfile(sampleRate5Hz, []segment{
		{Samples: 300, VerticalStart: 55, VerticalEnd: 55, AltStart: 2500, AltEnd: 1300},
		{Samples: 400, VerticalStart: 6, VerticalEnd: 6, NorthSpeed: 8, AltStart: 1300, AltEnd: 120},
		{Samples: 100, VerticalStart: 0.2, VerticalEnd: 0.2, NorthSpeed: 0.2, AltStart: 115, AltEnd: 115},
	})
}

// GenerateHopAndPop builds a short freefall (exit around index 200, canopy
// deployment around index 215) that a naive trigger-index reading would
// mis-time without the inflection finder.
func GenerateHopAndPop() []Sample {
	return buildProfile(sampleRate5Hz, []segment{
		{Samples: 200, VerticalStart: -3, VerticalEnd: -3, NorthSpeed: 30, AltStart: 0, AltEnd: 3000},
		{Samples: 10, VerticalStart: 5, VerticalEnd: 30, AltStart: 3000, AltEnd: 2970},
		{Samples: 5, VerticalStart: 30, VerticalEnd: 30, AltStart: 2970, AltEnd: 2950},
		{Samples: 200, VerticalStart: 8, VerticalEnd: 8, NorthSpeed: 8, AltStart: 2950, AltEnd: 600},
		{Samples: 30, VerticalStart: 0.2, VerticalEnd: 0.2, NorthSpeed: 0.2, AltStart: 595, AltEnd: 595},
	})
}

// GeneratePlaneLandingNoJump builds a ferry-flight profile: climb, long
// cruise, gentle descent, and landing, with no freefall or canopy ever
// recorded.
func GeneratePlaneLandingNoJump() []Sample {
	return buildProfile(sampleRate5Hz, []segment{
		{Samples: 300, VerticalStart: -3, VerticalEnd: -3, NorthSpeed: 30, AltStart: 0, AltEnd: 900},
		{Samples: 3000, VerticalStart: 0, VerticalEnd: 0, NorthSpeed: 60, AltStart: 900, AltEnd: 900},
		{Samples: 300, VerticalStart: 2, VerticalEnd: 2, NorthSpeed: 40, AltStart: 900, AltEnd: 115},
		{Samples: 100, VerticalStart: 0.2, VerticalEnd: 0.2, NorthSpeed: 0.2, AltStart: 115, AltEnd: 115},
	})
}

// GenerateBacktrackCorrectness builds a flat lead-in at the sequence's own
// starting speed, followed by the literal vertical-speed sequence
// [5,5,5,8,15,22,28,35,42,50,55,55,...] starting at index 100. The flat
// lead-in keeps the pre-ramp history out of the inflection finder's way,
// so the backtrack window's only rising pair is inside the ramp itself.
func GenerateBacktrackCorrectness() []Sample {
	const leadSamples = 100
	const startAlt = 3000.0

	seq := []float64{5, 5, 5, 8, 15, 22, 28, 35, 42, 50, 55, 55, 55, 55, 55, 55, 55, 55, 55, 55}

	var out []Sample
	t := time.Unix(0, 0)
	alt := startAlt
	for i := 0; i < leadSamples; i++ {
		out = append(out, Sample{T: t, Alt: alt, Vertical: 5})
		alt -= 5 * sampleRate5Hz.Seconds()
		t = t.Add(sampleRate5Hz)
	}
	for _, v := range seq {
		out = append(out, Sample{T: t, Alt: alt, Vertical: v})
		alt -= v * sampleRate5Hz.Seconds()
		t = t.Add(sampleRate5Hz)
	}
	for i := 0; i < 60; i++ {
		out = append(out, Sample{T: t, Alt: alt, Vertical: 55})
		alt -= 55 * sampleRate5Hz.Seconds()
		t = t.Add(sampleRate5Hz)
	}
	return out
}
