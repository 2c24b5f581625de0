package kinematics

import (
	"math"
	"testing"
	"time"
)

func mkRaw(t0 time.Time, offset time.Duration, alt, n, e, v float64) Raw {
	return Raw{Time: t0.Add(offset), Altitude: alt, NorthSpeed: n, EastSpeed: e, VerticalSpeed: v}
}

func TestPreprocessFirstSampleDefaultsDeltaTime(t *testing.T) {
	t0 := time.Now()
	k, err := Preprocess(mkRaw(t0, 0, 1000, 10, 0, -3), nil, GlobalConfig{AccelerationClip: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.DeltaTime != DefaultDeltaTime {
		t.Errorf("DeltaTime = %v, want %v", k.DeltaTime, DefaultDeltaTime)
	}
	if k.ClippedVerticalSpeed != -3 || k.VerticalClipped {
		t.Errorf("first sample should pass through unclipped, got %v clipped=%v", k.ClippedVerticalSpeed, k.VerticalClipped)
	}
	if k.CorrectedAltitude != 1000 {
		t.Errorf("first sample altitude should be reported value, got %v", k.CorrectedAltitude)
	}
}

func TestPreprocessClipsSpike(t *testing.T) {
	t0 := time.Now()
	cfg := GlobalConfig{AccelerationClip: 20}
	k0, err := Preprocess(mkRaw(t0, 0, 1000, 0, 0, 5), nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	prev := &Previous{Time: t0, Kinematics: k0}

	// dt=0.2s, accelerationClip=20 => maxDelta=4. Raw jumps from 5 to 150: way
	// past the physical ceiling, so it should clip to 5+4=9, and altitude
	// should be integrated from the clipped speed, not the raw spike.
	k1, err := Preprocess(mkRaw(t0, 200*time.Millisecond, 2000 /* spiked */, 0, 0, 150), prev, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !k1.VerticalClipped {
		t.Fatal("expected vertical speed to be clipped")
	}
	if math.Abs(k1.ClippedVerticalSpeed-9) > 1e-9 {
		t.Errorf("ClippedVerticalSpeed = %v, want 9", k1.ClippedVerticalSpeed)
	}
	wantAlt := 1000 - 9*0.2
	if math.Abs(k1.CorrectedAltitude-wantAlt) > 1e-9 {
		t.Errorf("CorrectedAltitude = %v, want %v", k1.CorrectedAltitude, wantAlt)
	}
}

func TestPreprocessPassesThroughWithinCeiling(t *testing.T) {
	t0 := time.Now()
	cfg := GlobalConfig{AccelerationClip: 20}
	k0, err := Preprocess(mkRaw(t0, 0, 1000, 0, 0, 0), nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	prev := &Previous{Time: t0, Kinematics: k0}
	k1, err := Preprocess(mkRaw(t0, 200*time.Millisecond, 999, 0, 0, 2), prev, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if k1.VerticalClipped {
		t.Error("small change should not be clipped")
	}
	if k1.CorrectedAltitude != 999 {
		t.Errorf("unclipped altitude should pass through, got %v", k1.CorrectedAltitude)
	}
}

func TestPreprocessHorizontalAndTotalSpeed(t *testing.T) {
	k, err := Preprocess(mkRaw(time.Now(), 0, 1000, 3, 4, 0), nil, GlobalConfig{AccelerationClip: 20})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(k.HorizontalSpeed-5) > 1e-9 {
		t.Errorf("HorizontalSpeed = %v, want 5", k.HorizontalSpeed)
	}
	if math.Abs(k.TotalSpeed-5) > 1e-9 {
		t.Errorf("TotalSpeed = %v, want 5", k.TotalSpeed)
	}
}

func TestPreprocessRejectsNonMonotonicTime(t *testing.T) {
	t0 := time.Now()
	k0, err := Preprocess(mkRaw(t0, time.Second, 1000, 0, 0, 0), nil, GlobalConfig{AccelerationClip: 20})
	if err != nil {
		t.Fatal(err)
	}
	prev := &Previous{Time: t0.Add(time.Second), Kinematics: k0}
	_, err = Preprocess(mkRaw(t0, 0, 1000, 0, 0, 0), prev, GlobalConfig{AccelerationClip: 20})
	if err == nil {
		t.Fatal("expected error for non-monotonic timestamp")
	}
}

func TestPreprocessRejectsNonFiniteInput(t *testing.T) {
	_, err := Preprocess(mkRaw(time.Now(), 0, math.NaN(), 0, 0, 0), nil, GlobalConfig{AccelerationClip: 20})
	if err == nil {
		t.Fatal("expected error for NaN altitude")
	}
	_, err = Preprocess(mkRaw(time.Now(), 0, 1000, math.Inf(1), 0, 0), nil, GlobalConfig{AccelerationClip: 20})
	if err == nil {
		t.Fatal("expected error for +Inf north speed")
	}
}
