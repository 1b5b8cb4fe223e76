// internal/poller/engine.go
package poller

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	// MinPollIntervalMs is the floor for the poll interval; setters clamp
	// lower values up to it.
	MinPollIntervalMs = 100

	// eventBufferSize sizes the reading and error channels. The worker
	// never blocks on a slow consumer; it drops with a log line instead.
	eventBufferSize = 64
)

// Config is the immutable part of an engine's setup.
type Config struct {
	ReactorName string
	// PollIntervalMs is the initial inter-cycle delay; adjustable later
	// via SetPollInterval.
	PollIntervalMs int
	// MaxAttempts bounds the retries for each Modbus operation in a cycle.
	MaxAttempts int
}

// Engine polls one reactor's two slave devices in a dedicated worker
// goroutine: applies pending actuator targets, reads both devices, and
// publishes one Reading per fully successful cycle.
//
// All failures are retried per operation, then reported as error events;
// the loop is self-healing and resumes on the next cycle. Only a failure
// to open the devices at start is fatal to the session.
type Engine struct {
	cfg  Config
	open Opener

	// mu guards the operator-settable state below. The worker snapshots
	// all of it in one critical section per cycle, so a caller can never
	// be observed half-applied.
	mu          sync.Mutex
	ledTarget   uint16
	relayTarget uint16
	intervalMs  int

	readings chan Reading
	errorsCh chan string

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// actuatorState caches the last values confirmed written to hardware.
// Worker-private; nil means unknown (nothing written yet this session).
type actuatorState struct {
	led   *uint16
	relay *uint16
}

// New creates an engine with immutable config and a device opener.
func New(cfg Config, open Opener) (*Engine, error) {
	if cfg.ReactorName == "" {
		return nil, errors.New("poller: reactor name required")
	}
	if cfg.MaxAttempts < 1 {
		return nil, errors.New("poller: max attempts must be >= 1")
	}
	if open == nil {
		return nil, errors.New("poller: device opener required")
	}
	if cfg.PollIntervalMs < MinPollIntervalMs {
		cfg.PollIntervalMs = MinPollIntervalMs
	}

	return &Engine{
		cfg:        cfg,
		open:       open,
		intervalMs: cfg.PollIntervalMs,
		readings:   make(chan Reading, eventBufferSize),
		errorsCh:   make(chan string, eventBufferSize),
	}, nil
}

// Readings returns the channel carrying one snapshot per successful cycle,
// in strict cycle order.
func (e *Engine) Readings() <-chan Reading { return e.readings }

// Errors returns the channel carrying operator-facing error messages:
// per-attempt retry failures, cycle failures, nonzero status words, and
// startup failure.
func (e *Engine) Errors() <-chan string { return e.errorsCh }

// Done is closed when the worker has exited, whether after Stop or after
// a fatal startup failure.
func (e *Engine) Done() <-chan struct{} {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.done == nil {
		// Never started: report as already finished.
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return e.done
}

// Start launches the polling worker. The device connections are opened
// inside the worker; if opening fails, one fatal error event is emitted
// and the worker exits without entering the loop.
//
// After a Stop, Start blocks until the previous worker has fully exited
// and released the serial link: at no point do two workers own the link.
func (e *Engine) Start() error {
	e.runMu.Lock()
	if e.running {
		e.runMu.Unlock()
		return errors.New("poller: already running")
	}
	prev := e.done
	e.runMu.Unlock()

	if prev != nil {
		<-prev
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	// Re-check: another Start may have won the race while we waited.
	if e.running {
		return errors.New("poller: already running")
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.done = make(chan struct{})

	go e.run(e.stopCh, e.done)
	return nil
}

// Stop requests the worker to exit at the end of the current cycle.
// Cooperative: an in-flight retry sequence always completes first.
// Idempotent and safe to call when not running.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	close(e.stopCh)
}

// SetLedTarget requests a new LED state, applied no later than the next
// cycle. Callable from any goroutine.
func (e *Engine) SetLedTarget(on bool) {
	e.mu.Lock()
	e.ledTarget = boolToReg(on)
	e.mu.Unlock()
}

// SetRelayTarget requests a new relay state, applied no later than the
// next cycle. Callable from any goroutine.
func (e *Engine) SetRelayTarget(on bool) {
	e.mu.Lock()
	e.relayTarget = boolToReg(on)
	e.mu.Unlock()
}

// SetPollInterval updates the inter-cycle delay while running. Values
// below MinPollIntervalMs are clamped up.
func (e *Engine) SetPollInterval(intervalMs int) {
	if intervalMs < MinPollIntervalMs {
		intervalMs = MinPollIntervalMs
	}
	e.mu.Lock()
	e.intervalMs = intervalMs
	e.mu.Unlock()
}

// snapshotShared reads targets and interval as one atomic group.
func (e *Engine) snapshotShared() (ledTarget, relayTarget uint16, intervalMs int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledTarget, e.relayTarget, e.intervalMs
}

// run is the worker entry point. One goroutine per reactor; it owns the
// serial link exclusively for the session.
func (e *Engine) run(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		// Back to idle whether we were stopped or died at startup, so an
		// explicit restart is possible. Guarded against a newer session:
		// only the worker still registered under runMu may flip the flag.
		e.runMu.Lock()
		if e.stopCh == stopCh {
			e.running = false
		}
		e.runMu.Unlock()
	}()

	devs, err := e.open()
	if err != nil {
		e.emitError(fmt.Sprintf("failed to open modbus devices: %v", err))
		return
	}
	if devs.Close != nil {
		defer func() {
			if err := devs.Close(); err != nil {
				log.Printf("poller %s: closing devices: %v", e.cfg.ReactorName, err)
			}
		}()
	}

	state := &actuatorState{}

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		ledTarget, relayTarget, intervalMs := e.snapshotShared()
		e.cycle(devs, state, ledTarget, relayTarget)

		select {
		case <-stopCh:
			return
		case <-time.After(time.Duration(intervalMs) * time.Millisecond):
		}
	}
}

// cycle performs one poll cycle: writes before reads, so the actuator
// state is reflected in the Reading about to be taken. Any exhausted
// retry aborts the remaining steps of this cycle; the next cycle starts
// clean.
func (e *Engine) cycle(devs *Devices, state *actuatorState, ledTarget, relayTarget uint16) {
	if state.led == nil || *state.led != ledTarget {
		if err := e.withRetries("write LED", func() error {
			return devs.Spectral.WriteLed(ledTarget)
		}); err != nil {
			e.emitError(fmt.Sprintf("modbus poll cycle failed: %v", err))
			return
		}
		v := ledTarget
		state.led = &v
	}

	if state.relay == nil || *state.relay != relayTarget {
		if err := e.withRetries("write relay", func() error {
			return devs.Spectral.WriteRelay(relayTarget)
		}); err != nil {
			e.emitError(fmt.Sprintf("modbus poll cycle failed: %v", err))
			return
		}
		v := relayTarget
		state.relay = &v
	}

	var tempC, ph float64
	if err := e.withRetries("read pH/temperature", func() error {
		var err error
		tempC, ph, err = devs.Ph.ReadAll()
		return err
	}); err != nil {
		e.emitError(fmt.Sprintf("modbus poll cycle failed: %v", err))
		return
	}

	var light []uint16
	var statusWord uint16
	if err := e.withRetries("read spectral", func() error {
		var err error
		light, statusWord, err = devs.Spectral.ReadSpectral()
		return err
	}); err != nil {
		e.emitError(fmt.Sprintf("modbus poll cycle failed: %v", err))
		return
	}

	e.emitReading(Reading{
		ReactorName:  e.cfg.ReactorName,
		Timestamp:    time.Now(),
		TemperatureC: tempC,
		PH:           ph,
		Light:        light,
		Relay:        *state.relay,
		Led:          *state.led,
		Status:       statusWord,
	})

	if statusWord != 0 {
		e.emitError(fmt.Sprintf("spectral status word: %d", statusWord))
	}
}

func (e *Engine) emitReading(r Reading) {
	select {
	case e.readings <- r:
	default:
		log.Printf("poller %s: readings channel full, dropping snapshot", e.cfg.ReactorName)
	}
}

func (e *Engine) emitError(msg string) {
	select {
	case e.errorsCh <- msg:
	default:
		log.Printf("poller %s: errors channel full, dropping: %s", e.cfg.ReactorName, msg)
	}
}

func boolToReg(on bool) uint16 {
	if on {
		return 1
	}
	return 0
}
