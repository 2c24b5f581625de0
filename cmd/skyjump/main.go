// Command skyjump drives the flight-event detection engine from a live
// serial telemetry port, logging each event as it is assembled and
// writing an HTML flight profile chart when the stream ends.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dropzone-telemetry/skyjump/internal/chart"
	"github.com/dropzone-telemetry/skyjump/internal/engine"
	"github.com/dropzone-telemetry/skyjump/internal/events"
	"github.com/dropzone-telemetry/skyjump/internal/flightconfig"
	"github.com/dropzone-telemetry/skyjump/internal/flightlog"
	"github.com/dropzone-telemetry/skyjump/internal/ingest"
	"github.com/dropzone-telemetry/skyjump/internal/session"
)

var (
	port       = flag.String("port", "/dev/ttyUSB0", "Serial port the altimeter is attached to")
	configFile = flag.String("config", "", "Path to a JSON configuration overlay file")
	debugMode  = flag.Bool("debug", false, "Enable per-sample debug tracing")
	chartPath  = flag.String("chart", "flight.html", "Path to write the flight-profile chart when the stream ends")
)

func main() {
	flag.Parse()

	logger := log.New(os.Stderr, "skyjump: ", log.LstdFlags)
	runID := session.New()
	logger.Printf("starting run %s", runID)

	cfg := flightconfig.DefaultConfig()
	if *configFile != "" {
		loaded, err := flightconfig.LoadConfig(*configFile)
		if err != nil {
			logger.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	eng, err := engine.New[ingest.Reading](cfg,
		engine.WithLogger[ingest.Reading](logger),
		engine.WithDebug[ingest.Reading](*debugMode),
	)
	if err != nil {
		logger.Fatalf("building engine: %v", err)
	}

	serialPort, err := ingest.OpenSerialPort(*port)
	if err != nil {
		logger.Fatalf("opening serial port %s: %v", *port, err)
	}
	source := ingest.NewSource(serialPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		for err := range source.Errs() {
			flightlog.Debugf(logger, *debugMode, "discarding malformed telemetry line: %v", err)
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- source.Run(ctx) }()

	start := time.Now()
	var outputs []engine.Output[ingest.Reading]
	var lastPhase events.FlightPhase

readings:
	for {
		select {
		case reading, ok := <-source.Readings():
			if !ok {
				break readings
			}
			rows, err := eng.Step(reading)
			if err != nil {
				logger.Printf("halting stream: %v", err)
				break readings
			}
			outputs = append(outputs, rows...)
			for _, row := range rows {
				lastPhase = logPhaseChange(logger, lastPhase, row)
			}
		case <-ctx.Done():
			break readings
		}
	}

	for _, row := range eng.Flush() {
		outputs = append(outputs, row)
		lastPhase = logPhaseChange(logger, lastPhase, row)
	}

	if err := <-runErr; err != nil {
		logger.Printf("serial monitor exited with error: %v", err)
	}

	var final engine.Output[ingest.Reading]
	if len(outputs) > 0 {
		final = outputs[len(outputs)-1]
	}
	logger.Printf("run %s finished: %d samples, final phase %s (takeoff=%v freefall=%v canopy=%v landing=%v), %s elapsed",
		runID, len(outputs), final.Phase, final.Takeoff, final.Freefall, final.Canopy, final.Landing, time.Since(start).Round(time.Millisecond))

	if len(outputs) == 0 {
		return
	}
	html, err := chart.RenderFlightProfile(fmt.Sprintf("run %s", runID), outputs)
	if err != nil {
		logger.Printf("rendering chart: %v", err)
		return
	}
	if err := os.WriteFile(*chartPath, html, 0o644); err != nil {
		logger.Printf("writing chart to %s: %v", *chartPath, err)
		return
	}
	logger.Printf("wrote flight profile chart to %s", *chartPath)
}

// logPhaseChange logs once when a row's phase advances past last, and
// returns the row's phase for the caller to carry forward.
func logPhaseChange(logger *log.Logger, last events.FlightPhase, row engine.Output[ingest.Reading]) events.FlightPhase {
	if row.Phase == last {
		return row.Phase
	}
	logger.Printf("phase -> %s (takeoff=%v freefall=%v canopy=%v landing=%v)",
		row.Phase, row.Takeoff, row.Freefall, row.Canopy, row.Landing)
	return row.Phase
}
