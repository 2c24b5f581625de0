package engine_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropzone-telemetry/skyjump/internal/engine"
	"github.com/dropzone-telemetry/skyjump/internal/events"
	"github.com/dropzone-telemetry/skyjump/internal/flightconfig"
	"github.com/dropzone-telemetry/skyjump/internal/flighttestutil"
)

func runProfile(t *testing.T, samples []flighttestutil.Sample) []engine.Output[flighttestutil.Sample] {
	t.Helper()
	eng, err := engine.New[flighttestutil.Sample](flightconfig.DefaultConfig())
	require.NoError(t, err)

	var outputs []engine.Output[flighttestutil.Sample]
	for _, s := range samples {
		rows, err := eng.Step(s)
		require.NoError(t, err)
		outputs = append(outputs, rows...)
	}
	outputs = append(outputs, eng.Flush()...)
	return outputs
}

func firstIndexWhere(outputs []engine.Output[flighttestutil.Sample], get func(engine.Output[flighttestutil.Sample]) *events.FlightEvent) (int, bool) {
	for i, o := range outputs {
		if get(o) != nil {
			return i, true
		}
	}
	return 0, false
}

func getTakeoff(o engine.Output[flighttestutil.Sample]) *events.FlightEvent  { return o.Takeoff }
func getFreefall(o engine.Output[flighttestutil.Sample]) *events.FlightEvent { return o.Freefall }
func getCanopy(o engine.Output[flighttestutil.Sample]) *events.FlightEvent   { return o.Canopy }
func getLanding(o engine.Output[flighttestutil.Sample]) *events.FlightEvent  { return o.Landing }

func TestOutputLengthEqualsInputLength(t *testing.T) {
	samples := flighttestutil.GenerateCleanJump()
	outputs := runProfile(t, samples)
	assert.Equal(t, len(samples), len(outputs))
}

func TestPhaseIsMonotonicNonDecreasing(t *testing.T) {
	for _, samples := range [][]flighttestutil.Sample{
		flighttestutil.GenerateCleanJump(),
		flighttestutil.GenerateMissingTakeoff(),
		flighttestutil.GenerateHopAndPop(),
		flighttestutil.GeneratePlaneLandingNoJump(),
	} {
		outputs := runProfile(t, samples)
		for i := 1; i < len(outputs); i++ {
			if outputs[i].Phase < outputs[i-1].Phase {
				t.Fatalf("phase decreased at row %d: %v -> %v", i, outputs[i-1].Phase, outputs[i].Phase)
			}
		}
	}
}

func TestEventAttachedAtItsOwnIndex(t *testing.T) {
	outputs := runProfile(t, flighttestutil.GenerateCleanJump())
	last := outputs[len(outputs)-1]

	for _, get := range []func(engine.Output[flighttestutil.Sample]) *events.FlightEvent{getTakeoff, getFreefall, getCanopy, getLanding} {
		fe := get(last)
		if fe == nil {
			continue
		}
		if get(outputs[fe.Index]) == nil {
			t.Fatalf("event at index %d not attached at its own output row", fe.Index)
		}
		if fe.Index > 0 && get(outputs[fe.Index-1]) != nil {
			t.Fatalf("event at index %d already present one row earlier", fe.Index)
		}
	}
}

func TestEventOnceSetStaysSetInLaterRows(t *testing.T) {
	outputs := runProfile(t, flighttestutil.GenerateCleanJump())

	for _, get := range []func(engine.Output[flighttestutil.Sample]) *events.FlightEvent{getTakeoff, getFreefall, getCanopy, getLanding} {
		firstIdx, ok := firstIndexWhere(outputs, get)
		if !ok {
			continue
		}
		want := get(outputs[firstIdx])
		for i := firstIdx + 1; i < len(outputs); i++ {
			got := get(outputs[i])
			if got == nil || *got != *want {
				t.Fatalf("event regressed or changed at row %d", i)
			}
		}
	}
}

func TestCleanJumpReachesLandedWithEventsInOrder(t *testing.T) {
	outputs := runProfile(t, flighttestutil.GenerateCleanJump())

	last := outputs[len(outputs)-1]
	require.Equal(t, events.Landed, last.Phase)
	require.NotNil(t, last.Takeoff)
	require.NotNil(t, last.Freefall)
	require.NotNil(t, last.Canopy)
	require.NotNil(t, last.Landing)

	assert.LessOrEqual(t, last.Takeoff.Index, last.Freefall.Index)
	assert.LessOrEqual(t, last.Freefall.Index, last.Canopy.Index)
	assert.LessOrEqual(t, last.Canopy.Index, last.Landing.Index)

	// Climb occupies rows [0,300), freefall ramp+hold [300,550), canopy
	// [550,1150), stable ground [1150,1250). The inflection finder returns
	// the earlier sample of the first rising pair, so freefall attributes to
	// the last climb row, 299 (-3 m/s -> 1 m/s after clipping at row 300).
	assert.Less(t, int(last.Takeoff.Index), 300)
	assert.True(t, int(last.Freefall.Index) >= 299 && int(last.Freefall.Index) < 550)
	assert.True(t, int(last.Canopy.Index) >= 550 && int(last.Canopy.Index) < 1150)
	assert.GreaterOrEqual(t, int(last.Landing.Index), 1150)
}

func TestSpikeOnlyFileDetectsNoEvents(t *testing.T) {
	outputs := runProfile(t, flighttestutil.GenerateSpikeOnly())

	for i, o := range outputs {
		if o.Phase != events.BeforeTakeoff {
			t.Fatalf("row %d: phase = %v, want BeforeTakeoff", i, o.Phase)
		}
		if o.Takeoff != nil || o.Freefall != nil || o.Canopy != nil || o.Landing != nil {
			t.Fatalf("row %d: expected no events detected on a spike-only file", i)
		}
	}
}

func TestMissingTakeoffJumpsStraightToFreefall(t *testing.T) {
	outputs := runProfile(t, flighttestutil.GenerateMissingTakeoff())
	last := outputs[len(outputs)-1]

	assert.Nil(t, last.Takeoff)
	require.NotNil(t, last.Freefall)
	require.NotNil(t, last.Canopy)

	firstFreefall, ok := firstIndexWhere(outputs, getFreefall)
	require.True(t, ok)
	for i := 0; i < firstFreefall; i++ {
		assert.Equal(t, events.BeforeTakeoff, outputs[i].Phase)
	}
	assert.Equal(t, events.InFreefall, outputs[firstFreefall].Phase)
}

func TestHopAndPopOrdersCanopyAfterFreefall(t *testing.T) {
	outputs := runProfile(t, flighttestutil.GenerateHopAndPop())
	last := outputs[len(outputs)-1]

	require.NotNil(t, last.Freefall)
	require.NotNil(t, last.Canopy)
	assert.Less(t, int(last.Freefall.Index), int(last.Canopy.Index))

	assert.InDelta(t, 200, last.Freefall.Index, 5)
	assert.InDelta(t, 215, last.Canopy.Index, 10)
}

func TestPlaneLandingWithoutJumpNeverSetsFreefallOrCanopy(t *testing.T) {
	outputs := runProfile(t, flighttestutil.GeneratePlaneLandingNoJump())
	last := outputs[len(outputs)-1]

	require.NotNil(t, last.Takeoff)
	assert.Nil(t, last.Freefall)
	assert.Nil(t, last.Canopy)
	require.NotNil(t, last.Landing)
	assert.Equal(t, events.Landed, last.Phase)
}

func TestBacktrackFindsFirstRisingSample(t *testing.T) {
	outputs := runProfile(t, flighttestutil.GenerateBacktrackCorrectness())
	last := outputs[len(outputs)-1]

	require.NotNil(t, last.Freefall)
	// The ramp sequence starts at index 100 with [5,5,5,8,...]: the first
	// adjacent pair whose delta exceeds the default 1.0 m/s threshold is
	// index 102 (5) -> index 103 (8). The inflection finder returns the
	// earlier sample of that pair, so freefall attributes to index 102.
	assert.Equal(t, uint64(102), last.Freefall.Index)
}

func TestEngineIsDeterministic(t *testing.T) {
	samples := flighttestutil.GenerateCleanJump()
	first := runProfile(t, samples)
	second := runProfile(t, samples)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("running the same input twice produced different output (-first +second):\n%s", diff)
	}
}

func TestInvalidInputHaltsTheStream(t *testing.T) {
	eng, err := engine.New[flighttestutil.Sample](flightconfig.DefaultConfig())
	require.NoError(t, err)

	samples := flighttestutil.GenerateSpikeOnly()[:5]
	for _, s := range samples {
		_, err := eng.Step(s)
		require.NoError(t, err)
	}

	bad := samples[len(samples)-1]
	bad.T = samples[0].T // non-monotonic: goes backwards in time
	_, err = eng.Step(bad)
	assert.Error(t, err)
}
