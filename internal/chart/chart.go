// Package chart renders a completed detection run as an HTML page: build
// series, set global options, render to a buffer. It consumes
// engine.Output rows only and never reaches into detector or window
// internals.
package chart

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/dropzone-telemetry/skyjump/internal/engine"
	"github.com/dropzone-telemetry/skyjump/internal/events"
)

// RenderFlightProfile builds an altitude/vertical-speed line chart with
// event markers and returns the rendered HTML page.
func RenderFlightProfile[S engine.HasInputFields](title string, outputs []engine.Output[S]) ([]byte, error) {
	x := make([]string, len(outputs))
	altitude := make([]opts.LineData, len(outputs))
	vspeed := make([]opts.LineData, len(outputs))

	for i, o := range outputs {
		x[i] = fmt.Sprintf("%d", i)
		fields := o.Source.InputFields()
		altitude[i] = opts.LineData{Value: fields.Altitude}
		vspeed[i] = opts.LineData{Value: fields.VerticalSpeed}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d samples", len(outputs))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "sample index"}),
	)
	line.SetXAxis(x).
		AddSeries("altitude (m)", altitude).
		AddSeries("vertical speed (m/s)", vspeed, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 0}))

	markers := []struct {
		label string
		get   func(engine.Output[S]) *events.FlightEvent
	}{
		{"takeoff", func(o engine.Output[S]) *events.FlightEvent { return o.Takeoff }},
		{"freefall", func(o engine.Output[S]) *events.FlightEvent { return o.Freefall }},
		{"canopy", func(o engine.Output[S]) *events.FlightEvent { return o.Canopy }},
		{"landing", func(o engine.Output[S]) *events.FlightEvent { return o.Landing }},
	}
	for _, m := range markers {
		idx, ok := eventIndex(outputs, m.get)
		addEventMarker(line, m.label, len(outputs), idx, ok)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, fmt.Errorf("chart: render flight profile: %w", err)
	}
	return buf.Bytes(), nil
}

func eventIndex[S engine.HasInputFields](outputs []engine.Output[S], get func(engine.Output[S]) *events.FlightEvent) (int, bool) {
	for i, o := range outputs {
		if fe := get(o); fe != nil {
			return i, true
		}
	}
	return 0, false
}

func addEventMarker(line *charts.Line, label string, n int, idx int, ok bool) {
	series := make([]opts.LineData, n)
	for i := range series {
		series[i] = opts.LineData{Value: nil}
	}
	if ok {
		series[idx] = opts.LineData{Value: 1}
	}
	line.AddSeries(label, series, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
}
