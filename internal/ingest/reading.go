package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dropzone-telemetry/skyjump/internal/engine"
)

// Reading is one parsed telemetry line from the wearable altimeter:
// unix-nanosecond timestamp, GPS altitude in meters, north/east ground
// speed components, and vertical speed, comma-separated.
type Reading struct {
	Time                  time.Time
	Altitude              float64
	NorthSpeed, EastSpeed float64
	VerticalSpeed         float64
}

// InputFields implements engine.HasInputFields.
func (r Reading) InputFields() engine.InputFields {
	return engine.InputFields{
		Time:          r.Time,
		Altitude:      r.Altitude,
		NorthSpeed:    r.NorthSpeed,
		EastSpeed:     r.EastSpeed,
		VerticalSpeed: r.VerticalSpeed,
	}
}

// ParseLine decodes one "timestamp_ns,altitude,north,east,vertical" line.
func ParseLine(line string) (Reading, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 5 {
		return Reading{}, fmt.Errorf("ingest: expected 5 comma-separated fields, got %d", len(fields))
	}

	nanos, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("ingest: bad timestamp %q: %w", fields[0], err)
	}

	values := make([]float64, 4)
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Reading{}, fmt.Errorf("ingest: bad field %q: %w", f, err)
		}
		values[i] = v
	}

	return Reading{
		Time:          time.Unix(0, nanos),
		Altitude:      values[0],
		NorthSpeed:    values[1],
		EastSpeed:     values[2],
		VerticalSpeed: values[3],
	}, nil
}

// Source reads telemetry lines from a Port and turns each into a
// Reading, dropping malformed lines rather than halting the stream.
type Source struct {
	port     Port
	readings chan Reading
	errs     chan error
}

// NewSource wraps an open Port for line-by-line decoding.
func NewSource(port Port) *Source {
	return &Source{
		port:     port,
		readings: make(chan Reading),
		errs:     make(chan error, 1),
	}
}

// Run starts the port's Monitor loop and decodes each line it emits,
// forwarding valid Readings on the channel returned by Readings. It
// blocks until ctx is cancelled or the port's Monitor returns.
func (s *Source) Run(ctx context.Context) error {
	monitorErr := make(chan error, 1)
	go func() { monitorErr <- s.port.Monitor(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return <-monitorErr
		case err := <-monitorErr:
			close(s.readings)
			return err
		case line := <-s.port.Events():
			reading, err := ParseLine(line)
			if err != nil {
				select {
				case s.errs <- err:
				default:
				}
				continue
			}
			select {
			case s.readings <- reading:
			case <-ctx.Done():
				return <-monitorErr
			}
		}
	}
}

// Readings returns the channel of successfully decoded telemetry.
func (s *Source) Readings() <-chan Reading { return s.readings }

// Errs returns a best-effort channel of decode errors for malformed
// lines; it is not guaranteed to report every error if the consumer
// falls behind, since it never blocks Run.
func (s *Source) Errs() <-chan error { return s.errs }
