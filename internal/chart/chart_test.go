package chart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropzone-telemetry/skyjump/internal/chart"
	"github.com/dropzone-telemetry/skyjump/internal/engine"
	"github.com/dropzone-telemetry/skyjump/internal/flightconfig"
	"github.com/dropzone-telemetry/skyjump/internal/flighttestutil"
)

func TestRenderFlightProfileProducesHTML(t *testing.T) {
	eng, err := engine.New[flighttestutil.Sample](flightconfig.DefaultConfig())
	require.NoError(t, err)

	var outputs []engine.Output[flighttestutil.Sample]
	for _, s := range flighttestutil.GenerateCleanJump() {
		rows, err := eng.Step(s)
		require.NoError(t, err)
		outputs = append(outputs, rows...)
	}
	outputs = append(outputs, eng.Flush()...)

	html, err := chart.RenderFlightProfile("clean jump", outputs)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<html")
	assert.Contains(t, string(html), "clean jump")
}

func TestRenderFlightProfileHandlesEmptyInput(t *testing.T) {
	html, err := chart.RenderFlightProfile[flighttestutil.Sample]("empty", nil)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<html")
}

