package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.bug.st/serial"
)

// mockSerialPort is a minimal serial.Port double, grounded on the teacher's
// own MockSerialPort in serial_test.go: enough methods to satisfy the
// interface, with readData/writtenData/readError as the only knobs these
// tests need.
type mockSerialPort struct {
	readData    []byte
	writtenData []byte
	readError   error
	closed      bool
}

func (m *mockSerialPort) Break(time.Duration) error                            { return nil }
func (m *mockSerialPort) Drain() error                                         { return nil }
func (m *mockSerialPort) GetModemStatusBits() (*serial.ModemStatusBits, error) { return nil, nil }
func (m *mockSerialPort) ResetInputBuffer() error                              { return nil }
func (m *mockSerialPort) ResetOutputBuffer() error                             { return nil }
func (m *mockSerialPort) SetDTR(dtr bool) error                                { return nil }
func (m *mockSerialPort) SetMode(mode *serial.Mode) error                      { return nil }
func (m *mockSerialPort) SetReadTimeout(t time.Duration) error                 { return nil }
func (m *mockSerialPort) SetRTS(rts bool) error                                { return nil }

func (m *mockSerialPort) Read(p []byte) (int, error) {
	if m.readError != nil {
		return 0, m.readError
	}
	if len(m.readData) == 0 {
		time.Sleep(10 * time.Millisecond)
		return 0, nil
	}
	n := copy(p, m.readData)
	m.readData = m.readData[n:]
	return n, nil
}

func (m *mockSerialPort) Write(p []byte) (int, error) {
	m.writtenData = append(m.writtenData, p...)
	return len(p), nil
}

func (m *mockSerialPort) Close() error {
	m.closed = true
	return nil
}

func TestChecksumRoundTrip(t *testing.T) {
	payload := "1000000000,3000.5,30,0,-3"
	sentence := fmt.Sprintf("$%s*%02X", payload, checksum(payload))

	got, ok := unframe(sentence)
	if !ok {
		t.Fatalf("unframe(%q) rejected a well-formed sentence", sentence)
	}
	if got != payload {
		t.Errorf("unframe(%q) = %q, want %q", sentence, got, payload)
	}
}

func TestUnframeRejectsBadChecksum(t *testing.T) {
	if _, ok := unframe("$1000000000,3000.5,30,0,-3*00"); ok {
		t.Error("unframe accepted a sentence with a wrong checksum")
	}
}

func TestUnframeRejectsNonTelemetryLines(t *testing.T) {
	cases := []string{"!HB,batt=91", "", "3000.5,30,0,-3*AA", "$no-checksum-here"}
	for _, line := range cases {
		if _, ok := unframe(line); ok {
			t.Errorf("unframe(%q) should not be accepted as telemetry", line)
		}
	}
}

func TestMonitorForwardsOnlyVerifiedTelemetry(t *testing.T) {
	good := fmt.Sprintf("$%s*%02X", "1000000000,3000,30,0,-3", checksum("1000000000,3000,30,0,-3"))
	mock := &mockSerialPort{
		readData: []byte("!HB,batt=91\r\n" + good + "\r\n$corrupted*00\r\n"),
	}
	port := &SerialPort{Port: mock, events: make(chan string, 10), commands: make(chan string, 10)}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- port.Monitor(ctx) }()

	select {
	case event := <-port.events:
		if event != "1000000000,3000,30,0,-3" {
			t.Errorf("Events() = %q, want decoded telemetry payload", event)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the verified telemetry sentence")
	}

	select {
	case event := <-port.events:
		t.Fatalf("unexpected second event %q: heartbeat and corrupted sentences must not forward", event)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Monitor returned %v, want nil after cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Monitor to stop")
	}
	if !mock.closed {
		t.Error("Monitor did not close the port on exit")
	}
}

func TestSendCommandHelpersFrameTheCommandBody(t *testing.T) {
	mock := &mockSerialPort{}
	port := &SerialPort{Port: mock, events: make(chan string, 10), commands: make(chan string, 10)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- port.Monitor(ctx) }()

	port.Zero()
	time.Sleep(50 * time.Millisecond)

	want := commandFrame(cmdZero)
	if string(mock.writtenData) != want {
		t.Errorf("Zero() wrote %q, want %q", mock.writtenData, want)
	}
}

func TestMonitorScanError(t *testing.T) {
	mock := &mockSerialPort{readError: errors.New("read error")}
	port := &SerialPort{Port: mock, events: make(chan string, 10), commands: make(chan string, 10)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := port.Monitor(ctx); err == nil {
		t.Fatal("expected an error from Monitor when the port read fails")
	}
}
