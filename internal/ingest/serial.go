// Package ingest adapts a live serial telemetry stream from a wearable
// altimeter into the engine's HasInputFields boundary. It knows how to
// open a port, perform the device's wake handshake, and frame/unframe its
// checksummed telemetry sentences; it knows nothing about windows,
// detectors, or phases.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Port abstracts a serial connection so tests can substitute an
// in-memory reader without touching a real device. Events carries
// already-unframed telemetry payloads (five-field CSV, see ParseLine),
// not raw wire sentences.
type Port interface {
	Events() <-chan string
	Monitor(ctx context.Context) error
	SendCommand(command string)
	Close() error
}

// MockPort replays a canned byte stream as decoded telemetry lines, for
// tests and offline replay of a captured session. It bypasses framing
// entirely, since a capture is normally saved post-decode.
type MockPort struct {
	Data       io.Reader
	EventsChan chan string
}

func (m *MockPort) Events() <-chan string { return m.EventsChan }

func (m *MockPort) SendCommand(command string) {
	log.Printf("ingest: mock port discarding command %q", command)
}

func (m *MockPort) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(m.Data)
	for scan.Scan() {
		select {
		case m.EventsChan <- scan.Text():
		case <-ctx.Done():
			return nil
		}
	}
	<-ctx.Done()
	return scan.Err()
}

func (m *MockPort) Close() error { return nil }

// Altimeter sentence framing: telemetry sentences are "$<payload>*<XX>"
// where XX is the uppercase hex of the XOR of every payload byte, the same
// checksum convention as the GPS/NMEA sentences the device firmware's
// serial output was patterned after. Device status lines (heartbeat,
// battery level, barometric self-test) arrive with a "!" prefix and are
// never telemetry; they're logged and dropped, never forwarded.
const (
	telemetryPrefix = '$'
	statusPrefix    = '!'
	readyBanner     = "SKYALT-READY"
)

func checksum(payload string) byte {
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	return sum
}

// unframe strips and verifies the checksum off a "$payload*XX" sentence.
// It returns ok=false for anything that isn't a well-formed telemetry
// sentence, including a checksum mismatch from a corrupted wire byte.
func unframe(line string) (payload string, ok bool) {
	if len(line) == 0 || line[0] != telemetryPrefix {
		return "", false
	}
	star := strings.LastIndexByte(line, '*')
	if star < 0 || star+3 > len(line) {
		return "", false
	}
	payload = line[1:star]
	want, err := strconv.ParseUint(line[star+1:star+3], 16, 8)
	if err != nil {
		return "", false
	}
	if checksum(payload) != byte(want) {
		return "", false
	}
	return payload, true
}

// Altimeter command vocabulary. Commands are framed the same way as
// telemetry but with the status prefix, so the device can tell a command
// echo apart from a data sentence on its own wire.
const (
	cmdZero      = "ZERO"
	cmdUnitsM    = "UNIT:M"
	cmdUnitsFt   = "UNIT:FT"
	cmdRateFmt   = "RATE:%d"
	wakeSequence = "WAKE\r\n"
)

func commandFrame(body string) string {
	return fmt.Sprintf("%c%s*%02X\r\n", statusPrefix, body, checksum(body))
}

// SerialPort is a live go.bug.st/serial connection to the altimeter.
type SerialPort struct {
	serial.Port
	events   chan string
	commands chan string
}

const handshakeTimeout = 2 * time.Second

// OpenSerialPort opens portName at the altimeter's fixed telemetry rate and
// performs its wake handshake: the device sleeps until it sees a wake
// sequence on the wire, and confirms with a readyBanner status line
// before it starts streaming telemetry. A device that never wakes within
// handshakeTimeout fails the open rather than returning a port that will
// silently never produce telemetry. The read timeout set for the
// handshake is left in place for steady-state Monitor reads too, since
// the altimeter's report rate is well inside it.
func OpenSerialPort(portName string) (*SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: 1,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(handshakeTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("ingest: set read timeout on %s: %w", portName, err)
	}
	if err := wake(port); err != nil {
		port.Close()
		return nil, fmt.Errorf("ingest: altimeter handshake on %s: %w", portName, err)
	}

	return &SerialPort{
		Port:     port,
		events:   make(chan string),
		commands: make(chan string),
	}, nil
}

func wake(port serial.Port) error {
	if _, err := port.Write([]byte(wakeSequence)); err != nil {
		return fmt.Errorf("write wake sequence: %w", err)
	}
	scan := bufio.NewScanner(port)
	for scan.Scan() {
		line := scan.Text()
		if strings.TrimSpace(strings.TrimPrefix(line, string(statusPrefix))) == readyBanner {
			return nil
		}
	}
	if err := scan.Err(); err != nil {
		return fmt.Errorf("waiting for %s: %w", readyBanner, err)
	}
	return fmt.Errorf("no %s banner before timeout", readyBanner)
}

// Events returns the channel of decoded telemetry payloads read from the
// port, with framing and checksum already stripped and verified.
func (p *SerialPort) Events() <-chan string { return p.events }

// SendCommand queues a raw command body for the next Monitor iteration to
// frame and write to the port. Prefer the Zero/SetUnits*/SetRate helpers
// for the device's known command vocabulary.
func (p *SerialPort) SendCommand(command string) {
	p.commands <- command
}

// Zero recalibrates the altimeter's zero altitude to the current pressure
// reading, the way a jumper would zero it standing on the ground before
// boarding.
func (p *SerialPort) Zero() { p.SendCommand(cmdZero) }

// SetUnitsMetric switches the device's onboard display to meters; it has
// no effect on the wire payload, which is always metric.
func (p *SerialPort) SetUnitsMetric() { p.SendCommand(cmdUnitsM) }

// SetUnitsImperial switches the device's onboard display to feet.
func (p *SerialPort) SetUnitsImperial() { p.SendCommand(cmdUnitsFt) }

// SetRate requests a telemetry report rate in Hz. The device clamps
// out-of-range requests in firmware; this adapter doesn't validate the
// value before sending it.
func (p *SerialPort) SetRate(hz int) { p.SendCommand(fmt.Sprintf(cmdRateFmt, hz)) }

func (p *SerialPort) writeCommand(command string) error {
	if _, err := p.Port.Write([]byte(commandFrame(command))); err != nil {
		log.Printf("ingest: error writing command to port: %v", err)
		return err
	}
	return nil
}

// Monitor reads sentences from the port and forwards verified telemetry
// payloads on Events until ctx is cancelled or the port returns an error.
// Status lines (heartbeat, battery, self-test) and sentences that fail
// checksum verification are logged and dropped rather than forwarded, so
// a corrupted wire byte can't masquerade as a malformed reading further
// down the pipeline.
func (p *SerialPort) Monitor(ctx context.Context) error {
	defer p.Close()
	scan := bufio.NewScanner(p.Port)

	for {
		select {
		case <-ctx.Done():
			return nil
		case command := <-p.commands:
			if err := p.writeCommand(command); err != nil {
				log.Printf("ingest: dropped command after write error: %v", err)
			}
		default:
			if !scan.Scan() {
				if ctx.Err() != nil {
					return nil
				}
				return scan.Err()
			}
			line := scan.Text()

			if len(line) > 0 && line[0] == statusPrefix {
				log.Printf("ingest: altimeter status %q", line)
				continue
			}

			payload, ok := unframe(line)
			if !ok {
				log.Printf("ingest: dropping unverifiable sentence %q", line)
				continue
			}

			select {
			case p.events <- payload:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (p *SerialPort) Close() error {
	return p.Port.Close()
}
