package tracker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gazelink/gazelink/internal/calibration"
	"github.com/gazelink/gazelink/internal/display"
	"github.com/gazelink/gazelink/internal/settings"
)

// pressKeys feeds a key into the headless display every millisecond until
// the returned stop function is called. The sequencer consumes one per
// target, so a steady stream drives the whole procedure.
func pressKeys(disp *display.Headless, key display.Key) (stop func()) {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			disp.SendEvent(display.Event{Type: display.EventKey, Key: key})
			time.Sleep(time.Millisecond)
		}
	}()
	return func() { close(done) }
}

// feedGazeSample pushes one sample through the link and waits for the pump,
// so the validation pass has a gaze position to measure.
func feedGazeSample(t *testing.T, h *harness) {
	t.Helper()
	h.port.AddReadData([]byte("1000 512.5 384.2 900.0\n"))
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := h.tracker.NewestSample(); ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("sample never reached the ring buffer")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCalibrateRunsBothPasses(t *testing.T) {
	h := newHarness(t, func(s *settings.Settings) { s.CalTargets = 3 }, Options{})
	feedGazeSample(t, h)

	n := len(h.commands())
	stop := pressKeys(h.disp, display.KeyEnter)
	defer stop()

	result, err := h.tracker.Calibrate(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if result == nil {
		t.Fatal("Calibrate returned no result")
	}
	if len(result.Targets) != 3 {
		t.Errorf("validation scored %d targets, want 3", len(result.Targets))
	}
	if result.ThresholdDeg != calibration.DefaultThresholdDeg {
		t.Errorf("ThresholdDeg = %v, want %v", result.ThresholdDeg, calibration.DefaultThresholdDeg)
	}

	cmds := h.commandsSince(n)
	if cmds[0] != "calibration_type = HV3" {
		t.Errorf("first command = %q, want calibration_type = HV3", cmds[0])
	}
	if cmds[1] != "automatic_calibration_pacing = 1000" {
		t.Errorf("second command = %q, want pacing", cmds[1])
	}
	if cmds[2] != "sticky_mode_data_enable DATA = 1 1 0 0" {
		t.Errorf("third command = %q, want sticky data enable", cmds[2])
	}

	var accepts int
	for _, c := range cmds {
		if strings.HasPrefix(c, "accept_target_fixation ") {
			accepts++
		}
	}
	if accepts != 6 {
		t.Errorf("accepted %d target fixations, want 6 (3 calibration + 3 validation)", accepts)
	}

	// The sticky data enable must be torn down with real mode transitions.
	teardown := []string{"sticky_mode_data_enable", "set_idle_mode", "setup_menu_mode", "set_idle_mode"}
	i := 0
	for _, c := range cmds {
		if i < len(teardown) && c == teardown[i] {
			i++
		}
	}
	if i != len(teardown) {
		t.Errorf("sticky teardown sequence missing from %q", cmds)
	}

	var targets int
	for _, op := range h.disp.Ops() {
		if op.Kind == "target" {
			targets++
		}
	}
	if targets != 6 {
		t.Errorf("display drew %d targets, want 6", targets)
	}
}

func TestCalibrateRawDataEnable(t *testing.T) {
	h := newHarness(t, func(s *settings.Settings) { s.CalTargets = 3 }, Options{RecordRawData: true})
	feedGazeSample(t, h)

	n := len(h.commands())
	stop := pressKeys(h.disp, display.KeyEnter)
	defer stop()

	if _, err := h.tracker.Calibrate(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	cmds := h.commandsSince(n)
	found := false
	for _, c := range cmds {
		if c == "sticky_mode_data_enable DATA = 1 1 1 1" {
			found = true
		}
	}
	if !found {
		t.Errorf("raw sticky data enable missing from %q", cmds)
	}
}

func TestCalibrateAbort(t *testing.T) {
	h := newHarness(t, func(s *settings.Settings) { s.CalTargets = 3 }, Options{})

	stop := pressKeys(h.disp, display.KeyEscape)
	defer stop()

	if _, err := h.tracker.Calibrate(context.Background(), false); err == nil {
		t.Error("aborted calibration did not return an error")
	}
}

func TestCalibrateNotConnected(t *testing.T) {
	tr, err := New(settings.Default(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Calibrate(context.Background(), false); err == nil {
		t.Error("Calibrate before Connect did not fail")
	}
}

func TestCalibrateDummyMode(t *testing.T) {
	s := settings.Default()
	s.Backend = settings.BackendHeadless
	s.HostAddr = "dummy"

	disp := display.NewHeadless(s)
	tr, err := New(s, Options{Display: disp})
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer tr.EndExperiment(context.Background())

	result, err := tr.Calibrate(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if result != nil {
		t.Errorf("dummy calibration produced a result: %+v", result)
	}

	found := false
	for _, op := range disp.Ops() {
		if op.Kind == "text" && strings.Contains(op.Text, "dummy mode") {
			found = true
		}
	}
	if !found {
		t.Error("dummy-mode note not drawn on the display")
	}
}

func TestMapKeyEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   display.Event
		want calibration.Input
		ok   bool
	}{
		{"enter accepts", display.Event{Type: display.EventKey, Key: display.KeyEnter}, calibration.InputAccept, true},
		{"space accepts", display.Event{Type: display.EventKey, Key: display.KeyRune, Rune: ' '}, calibration.InputAccept, true},
		{"backspace redoes", display.Event{Type: display.EventKey, Key: display.KeyBackspace}, calibration.InputRedo, true},
		{"r redoes", display.Event{Type: display.EventKey, Key: display.KeyRune, Rune: 'r'}, calibration.InputRedo, true},
		{"escape aborts", display.Event{Type: display.EventKey, Key: display.KeyEscape}, calibration.InputAbort, true},
		{"q aborts", display.Event{Type: display.EventKey, Key: display.KeyRune, Rune: 'q'}, calibration.InputAbort, true},
		{"ctrl-c aborts", display.Event{Type: display.EventKey, Key: display.KeyCtrlC}, calibration.InputAbort, true},
		{"other rune ignored", display.Event{Type: display.EventKey, Key: display.KeyRune, Rune: 'x'}, 0, false},
		{"resize ignored", display.Event{Type: display.EventResize}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mapKeyEvent(tt.ev)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("mapKeyEvent(%+v) = (%v, %v), want (%v, %v)", tt.ev, got, ok, tt.want, tt.ok)
			}
		})
	}
}
