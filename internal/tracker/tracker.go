// Package tracker drives an eye tracker Host PC over its line-oriented link:
// connection and configuration, recording control, calibration, the sample
// and event pumps, and end-of-session EDF transfer.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gazelink/gazelink/internal/audio"
	"github.com/gazelink/gazelink/internal/buffer"
	"github.com/gazelink/gazelink/internal/db"
	"github.com/gazelink/gazelink/internal/display"
	"github.com/gazelink/gazelink/internal/edf"
	"github.com/gazelink/gazelink/internal/linkmux"
	"github.com/gazelink/gazelink/internal/monitoring"
	"github.com/gazelink/gazelink/internal/settings"
	"github.com/gazelink/gazelink/internal/timeutil"
)

// DefaultSampleBufferLen is the ring buffer capacity used when Options does
// not set one.
const DefaultSampleBufferLen = 1024

// Options carries the optional collaborators for a Tracker. Zero value is
// usable: real clock, silent beeper, no store, link and display built from
// settings on Connect.
type Options struct {
	// RecordRawData enables raw pupil/CR data over the link.
	RecordRawData bool

	// SampleBufferLen is the sample ring capacity. Zero means
	// DefaultSampleBufferLen.
	SampleBufferLen int

	// Store, when set, records samples, events, and messages per session.
	Store *db.DB

	// Clock substitutes a mock clock in tests.
	Clock timeutil.Clock

	// Player produces the calibration beeps. Nil is silent.
	Player audio.Player

	// Mux overrides the link built from settings. Tests inject mocks here.
	Mux linkmux.Muxer

	// Display overrides the backend built from settings.
	Display display.Backend
}

// Tracker is the tracker-side session: one link, one display, one EDF file.
// Two-phase: New validates and wires nothing, Connect performs all I/O.
type Tracker struct {
	settings settings.Settings
	opts     Options
	clock    timeutil.Clock
	beeper   *audio.Beeper
	store    *db.DB

	mu        sync.Mutex
	mux       linkmux.Muxer
	display   display.Backend
	dummy     bool
	connected bool
	recording bool
	cleaned   bool
	sessionID string
	edfName   string

	ring     *buffer.Ring[edf.Sample]
	handlers []func(edf.Event)

	pumpCancel context.CancelFunc
	pumpDone   chan struct{}
	monCancel  context.CancelFunc
}

// New validates the settings and prepares a Tracker. No I/O happens until
// Connect.
func New(s settings.Settings, opts Options) (*Tracker, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	bufLen := opts.SampleBufferLen
	if bufLen <= 0 {
		bufLen = DefaultSampleBufferLen
	}

	return &Tracker{
		settings: s,
		opts:     opts,
		clock:    clock,
		beeper:   audio.NewBeeper(opts.Player),
		store:    opts.Store,
		edfName:  s.EDFName(),
		ring:     buffer.NewRing[edf.Sample](bufLen),
	}, nil
}

// Settings returns the settings the tracker was built with.
func (t *Tracker) Settings() settings.Settings { return t.settings }

// EDFName returns the host-side data file name.
func (t *Tracker) EDFName() string { return t.edfName }

// DummyMode reports whether the tracker runs without hardware.
func (t *Tracker) DummyMode() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dummy
}

// IsConnected reports whether Connect succeeded and EndExperiment has not
// run yet.
func (t *Tracker) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// SessionID returns the store session id, empty without a store.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// Connect dials the Host PC (or enters dummy mode), opens the EDF file,
// selects the tracked eye, pushes the configuration constants, and brings up
// the display backend and the sample pump.
func (t *Tracker) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		monitoring.Logf("tracker: already connected")
		return nil
	}
	t.mu.Unlock()

	mux, dummy, err := t.dial()
	if err != nil {
		return err
	}

	monCtx, monCancel := context.WithCancel(context.Background())
	go func() {
		if err := mux.Monitor(monCtx); err != nil && monCtx.Err() == nil {
			monitoring.Logf("tracker: link monitor stopped: %v", err)
		}
	}()

	t.mu.Lock()
	t.mux = mux
	t.dummy = dummy
	t.monCancel = monCancel
	t.mu.Unlock()

	// Safety: the host may still be recording from a crashed session.
	if !dummy {
		_ = t.SendCommand("stop_recording")
	}
	if err := t.SendCommand("set_idle_mode"); err != nil {
		return t.connectFailed(err)
	}

	if err := t.SendCommand("open_data_file " + t.edfName); err != nil {
		return t.connectFailed(err)
	}
	monitoring.Logf("tracker: data file opened: %s", t.edfName)

	if err := t.selectEye(t.settings.EyeTracked); err != nil {
		return t.connectFailed(err)
	}
	if err := t.setAllConstants(); err != nil {
		return t.connectFailed(err)
	}
	if err := t.setupRawDataRecording(t.opts.RecordRawData); err != nil {
		return t.connectFailed(err)
	}

	disp := t.opts.Display
	if disp == nil {
		disp, err = display.New(t.settings)
		if err != nil {
			return t.connectFailed(err)
		}
	}
	if err := disp.Init(); err != nil {
		return t.connectFailed(fmt.Errorf("failed to initialise display: %w", err))
	}
	t.mu.Lock()
	t.display = disp
	t.mu.Unlock()
	mode := "real tracker"
	if dummy {
		mode = "dummy mode"
	}
	monitoring.Logf("tracker: %s display ready (%s)", t.settings.Backend, mode)

	var sessionID string
	if t.store != nil {
		sessionID, err = t.store.BeginSession(t.edfName, t.settings.HostAddr)
		if err != nil {
			return t.connectFailed(err)
		}
	}

	pumpCtx, pumpCancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	t.mu.Lock()
	t.sessionID = sessionID
	t.pumpCancel = pumpCancel
	t.pumpDone = done
	t.connected = true
	t.mu.Unlock()

	go t.pump(pumpCtx, done)

	monitoring.Logf("tracker: connected and configured")
	return nil
}

func (t *Tracker) dial() (linkmux.Muxer, bool, error) {
	if t.opts.Mux != nil {
		return t.opts.Mux, t.settings.DummyMode(), nil
	}
	if t.settings.DummyMode() {
		monitoring.Logf("tracker: dummy mode, no hardware")
		return linkmux.NewDummyLinkMux(), true, nil
	}

	monitoring.Logf("tracker: connecting to host at %s", t.settings.HostAddr)
	mux, err := linkmux.NewTCPLinkMux(t.settings.HostAddr, linkmux.PortOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("could not connect to tracker host at %s (check the Host PC is powered on and reachable): %w",
			t.settings.HostAddr, err)
	}
	return mux, false, nil
}

func (t *Tracker) connectFailed(err error) error {
	t.mu.Lock()
	mux := t.mux
	monCancel := t.monCancel
	disp := t.display
	t.mux = nil
	t.monCancel = nil
	t.display = nil
	t.mu.Unlock()

	if monCancel != nil {
		monCancel()
	}
	if mux != nil {
		mux.Close()
	}
	if disp != nil {
		disp.Close()
	}
	return err
}

// SendCommand writes one configuration command to the host. Commands are not
// recorded in the data file.
func (t *Tracker) SendCommand(command string) error {
	mux, err := t.muxOrErr()
	if err != nil {
		return err
	}
	return mux.SendCommand(command)
}

// SendMessage writes a timestamped annotation into the data file.
func (t *Tracker) SendMessage(message string) error {
	mux, err := t.muxOrErr()
	if err != nil {
		return err
	}
	if t.store != nil && t.sessionID != "" {
		if err := t.store.RecordMessage(t.sessionID, t.nowMS(), message); err != nil {
			monitoring.Logf("tracker: failed to store message: %v", err)
		}
	}
	return mux.SendCommand("data_message " + message)
}

// Subscribe taps the raw line stream from the link, for live monitoring.
// Callers must Unsubscribe with the returned id when done.
func (t *Tracker) Subscribe() (string, <-chan string, error) {
	mux, err := t.muxOrErr()
	if err != nil {
		return "", nil, err
	}
	id, ch := mux.Subscribe()
	return id, ch, nil
}

// Unsubscribe releases a Subscribe tap.
func (t *Tracker) Unsubscribe(id string) {
	t.mu.Lock()
	mux := t.mux
	t.mu.Unlock()
	if mux != nil {
		mux.Unsubscribe(id)
	}
}

func (t *Tracker) muxOrErr() (linkmux.Muxer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mux == nil {
		return nil, fmt.Errorf("tracker not connected: call Connect first")
	}
	return t.mux, nil
}

func (t *Tracker) nowMS() int64 {
	return t.clock.Now().UnixMilli()
}

// OnEvent registers a handler for parsed link events. Handlers run on the
// pump goroutine and must not block. Register before Connect.
func (t *Tracker) OnEvent(fn func(edf.Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, fn)
}

// NewestSample returns the most recent gaze sample seen on the link.
func (t *Tracker) NewestSample() (edf.Sample, bool) {
	return t.ring.Newest()
}

// Samples returns the buffered samples, oldest first.
func (t *Tracker) Samples() []edf.Sample {
	return t.ring.Snapshot()
}

// EndExperiment stops recording, closes the display, transfers the EDF file,
// and disconnects. Safe to call more than once and from signal handlers;
// each cleanup step runs even when an earlier one fails.
func (t *Tracker) EndExperiment(ctx context.Context) error {
	t.mu.Lock()
	if t.cleaned || !t.connected {
		t.mu.Unlock()
		return nil
	}
	t.cleaned = true
	t.mu.Unlock()

	monitoring.Logf("tracker: experiment cleanup and data file transfer")

	var firstErr error
	if err := t.StopRecording(); err != nil {
		firstErr = err
	}

	t.mu.Lock()
	pumpCancel := t.pumpCancel
	pumpDone := t.pumpDone
	disp := t.display
	t.mu.Unlock()

	if pumpCancel != nil {
		pumpCancel()
		select {
		case <-pumpDone:
		case <-time.After(2 * time.Second):
			monitoring.Logf("tracker: sample pump did not stop in time")
		}
	}

	if disp != nil {
		disp.Close()
		monitoring.Logf("tracker: display closed")
	}

	if err := t.ReceiveDataFile(ctx); err != nil {
		monitoring.Logf("tracker: data file transfer failed: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if t.store != nil && t.sessionID != "" {
		if err := t.store.EndSession(t.sessionID); err != nil {
			monitoring.Logf("tracker: failed to close session: %v", err)
		}
	}

	t.mu.Lock()
	mux := t.mux
	monCancel := t.monCancel
	t.mux = nil
	t.connected = false
	t.mu.Unlock()

	if monCancel != nil {
		monCancel()
	}
	if mux != nil {
		if err := mux.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	monitoring.Logf("tracker: experiment cleanup complete")
	return firstErr
}
