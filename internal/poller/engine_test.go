// internal/poller/engine_test.go
package poller

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 3 * time.Second

type fakePh struct {
	mu    sync.Mutex
	temp  float64
	ph    float64
	err   error
	calls int
}

func (f *fakePh) ReadAll() (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.temp, f.ph, nil
}

func (f *fakePh) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSpectral struct {
	mu          sync.Mutex
	values      []uint16
	status      uint16
	readErr     error
	writeErr    error
	ledWrites   []uint16
	relayWrites []uint16
}

func (f *fakeSpectral) WriteLed(value uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.ledWrites = append(f.ledWrites, value)
	return nil
}

func (f *fakeSpectral) WriteRelay(value uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.relayWrites = append(f.relayWrites, value)
	return nil
}

func (f *fakeSpectral) ReadSpectral() ([]uint16, uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, 0, f.readErr
	}
	out := make([]uint16, len(f.values))
	copy(out, f.values)
	return out, f.status, nil
}

func (f *fakeSpectral) ledWritesSnapshot() []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint16, len(f.ledWrites))
	copy(out, f.ledWrites)
	return out
}

func (f *fakeSpectral) relayWritesSnapshot() []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint16, len(f.relayWrites))
	copy(out, f.relayWrites)
	return out
}

func newTestEngine(t *testing.T, ph *fakePh, sp *fakeSpectral) *Engine {
	t.Helper()
	e, err := New(
		Config{ReactorName: "reactor-1", PollIntervalMs: 100, MaxAttempts: 3},
		func() (*Devices, error) {
			return &Devices{Ph: ph, Spectral: sp}, nil
		},
	)
	require.NoError(t, err)
	return e
}

func waitReading(t *testing.T, e *Engine) Reading {
	t.Helper()
	select {
	case r := <-e.Readings():
		return r
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for reading")
		return Reading{}
	}
}

func waitError(t *testing.T, e *Engine) string {
	t.Helper()
	select {
	case msg := <-e.Errors():
		return msg
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for error event")
		return ""
	}
}

func stopAndWait(t *testing.T, e *Engine) {
	t.Helper()
	e.Stop()
	select {
	case <-e.Done():
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for worker to exit")
	}
}

func TestNew_Validation(t *testing.T) {
	open := func() (*Devices, error) { return &Devices{}, nil }

	_, err := New(Config{ReactorName: "", MaxAttempts: 3}, open)
	assert.Error(t, err)

	_, err = New(Config{ReactorName: "r", MaxAttempts: 0}, open)
	assert.Error(t, err)

	_, err = New(Config{ReactorName: "r", MaxAttempts: 1}, nil)
	assert.Error(t, err)

	e, err := New(Config{ReactorName: "r", PollIntervalMs: 10, MaxAttempts: 1}, open)
	require.NoError(t, err)
	_, _, intervalMs := e.snapshotShared()
	assert.Equal(t, MinPollIntervalMs, intervalMs)
}

func TestEngine_EmitsReading(t *testing.T) {
	ph := &fakePh{temp: 21.4, ph: 6.8}
	sp := &fakeSpectral{values: []uint16{10, 20, 30, 40, 50, 60, 70, 80, 90}}
	e := newTestEngine(t, ph, sp)

	require.NoError(t, e.Start())
	defer stopAndWait(t, e)

	r := waitReading(t, e)
	assert.Equal(t, "reactor-1", r.ReactorName)
	assert.False(t, r.Timestamp.IsZero())
	assert.InDelta(t, 21.4, r.TemperatureC, 1e-9)
	assert.InDelta(t, 6.8, r.PH, 1e-9)
	assert.Equal(t, []uint16{10, 20, 30, 40, 50, 60, 70, 80, 90}, r.Light)
	assert.Equal(t, uint16(0), r.Relay)
	assert.Equal(t, uint16(0), r.Led)
	assert.Equal(t, uint16(0), r.Status)

	select {
	case msg := <-e.Errors():
		t.Fatalf("unexpected error event: %s", msg)
	default:
	}

	// Unknown actuator state forces one write of each on the first cycle.
	assert.Equal(t, []uint16{0}, sp.ledWritesSnapshot())
	assert.Equal(t, []uint16{0}, sp.relayWritesSnapshot())
}

func TestEngine_RetryExhaustionSkipsReading(t *testing.T) {
	ph := &fakePh{err: errors.New("no response from slave")}
	sp := &fakeSpectral{values: []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9}}
	e := newTestEngine(t, ph, sp)

	require.NoError(t, e.Start())
	defer stopAndWait(t, e)

	// Three per-attempt events, then one cycle-level event.
	for i := 1; i <= 3; i++ {
		msg := waitError(t, e)
		assert.Contains(t, msg, "read pH/temperature failed")
		assert.Contains(t, msg, "attempt")
	}
	msg := waitError(t, e)
	assert.True(t, strings.HasPrefix(msg, "modbus poll cycle failed:"), "got %q", msg)
	assert.Contains(t, msg, "read pH/temperature failed after 3 attempts")

	select {
	case r := <-e.Readings():
		t.Fatalf("no reading expected, got %+v", r)
	default:
	}

	// The loop is self-healing: the next cycle retries the pH read.
	deadline := time.Now().Add(waitTimeout)
	for ph.callCount() < 4 {
		if time.Now().After(deadline) {
			t.Fatalf("next cycle never attempted, calls=%d", ph.callCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEngine_LedTargetAppliedOnceNextCycle(t *testing.T) {
	ph := &fakePh{temp: 20.0, ph: 7.0}
	sp := &fakeSpectral{values: []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9}}
	e := newTestEngine(t, ph, sp)

	require.NoError(t, e.Start())
	defer stopAndWait(t, e)

	waitReading(t, e)
	e.SetLedTarget(true)

	deadline := time.Now().Add(waitTimeout)
	for len(sp.ledWritesSnapshot()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("LED target never applied, writes=%v", sp.ledWritesSnapshot())
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, []uint16{0, 1}, sp.ledWritesSnapshot())

	// A few more cycles must not re-apply an unchanged target.
	for i := 0; i < 3; i++ {
		waitReading(t, e)
	}
	assert.Equal(t, []uint16{0, 1}, sp.ledWritesSnapshot())
	assert.Equal(t, []uint16{0}, sp.relayWritesSnapshot())

	// The applied state shows up in subsequent readings.
	r := waitReading(t, e)
	assert.Equal(t, uint16(1), r.Led)
}

func TestEngine_NonzeroStatusWordStillEmitsReading(t *testing.T) {
	ph := &fakePh{temp: 20.0, ph: 7.0}
	sp := &fakeSpectral{values: []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9}, status: 7}
	e := newTestEngine(t, ph, sp)

	require.NoError(t, e.Start())
	defer stopAndWait(t, e)

	r := waitReading(t, e)
	assert.Equal(t, uint16(7), r.Status)

	msg := waitError(t, e)
	assert.Equal(t, "spectral status word: 7", msg)
}

func TestEngine_StartupFailureIsFatal(t *testing.T) {
	e, err := New(
		Config{ReactorName: "reactor-1", PollIntervalMs: 100, MaxAttempts: 3},
		func() (*Devices, error) {
			return nil, errors.New("open /dev/ttyUSB0: no such device")
		},
	)
	require.NoError(t, err)

	require.NoError(t, e.Start())

	msg := waitError(t, e)
	assert.Contains(t, msg, "failed to open modbus devices")

	select {
	case <-e.Done():
	case <-time.After(waitTimeout):
		t.Fatal("worker should exit after startup failure")
	}

	select {
	case r := <-e.Readings():
		t.Fatalf("no reading expected, got %+v", r)
	default:
	}
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	ph := &fakePh{temp: 20.0, ph: 7.0}
	sp := &fakeSpectral{values: []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9}}
	e := newTestEngine(t, ph, sp)

	// Safe before start.
	e.Stop()

	require.NoError(t, e.Start())
	waitReading(t, e)

	stopAndWait(t, e)
	e.Stop()
	e.Stop()
}

func TestEngine_RestartWaitsForPreviousWorker(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0
	release := make(chan struct{})

	open := func() (*Devices, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		// Park the worker inside session setup until the test releases it.
		<-release

		return &Devices{
			Ph:       &fakePh{temp: 20.0, ph: 7.0},
			Spectral: &fakeSpectral{values: []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9}},
			Close: func() error {
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			},
		}, nil
	}

	e, err := New(Config{ReactorName: "reactor-1", PollIntervalMs: 100, MaxAttempts: 3}, open)
	require.NoError(t, err)

	// Worker 1 is parked in the opener; stop it and restart immediately.
	require.NoError(t, e.Start())
	e.Stop()

	started := make(chan error, 1)
	go func() { started <- e.Start() }()

	// The restart must not proceed while worker 1 still holds the link.
	select {
	case err := <-started:
		t.Fatalf("Start returned before previous worker exited: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("restart never completed")
	}

	// The second session is live and still refuses another Start.
	waitReading(t, e)
	assert.Error(t, e.Start())

	mu.Lock()
	assert.Equal(t, 1, maxActive, "two workers owned the serial link at once")
	mu.Unlock()

	// Stop still works for the restarted session: the first worker's exit
	// must not have clobbered its state.
	stopAndWait(t, e)
}

func TestEngine_StartTwiceRejected(t *testing.T) {
	ph := &fakePh{temp: 20.0, ph: 7.0}
	sp := &fakeSpectral{values: []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9}}
	e := newTestEngine(t, ph, sp)

	require.NoError(t, e.Start())
	defer stopAndWait(t, e)

	assert.Error(t, e.Start())
}

func TestEngine_SettersAtomicSnapshot(t *testing.T) {
	ph := &fakePh{}
	sp := &fakeSpectral{}
	e := newTestEngine(t, ph, sp)

	e.SetLedTarget(true)
	e.SetRelayTarget(true)
	e.SetPollInterval(250)

	led, relay, intervalMs := e.snapshotShared()
	assert.Equal(t, uint16(1), led)
	assert.Equal(t, uint16(1), relay)
	assert.Equal(t, 250, intervalMs)

	e.SetPollInterval(10)
	_, _, intervalMs = e.snapshotShared()
	assert.Equal(t, MinPollIntervalMs, intervalMs)
}
