package tracker

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"time"

	"github.com/gazelink/gazelink/internal/calibration"
	"github.com/gazelink/gazelink/internal/display"
	"github.com/gazelink/gazelink/internal/edf"
	"github.com/gazelink/gazelink/internal/monitoring"
)

// calibrationSettleDelay follows each mode-change command in the sticky-mode
// teardown; the host needs an actual mode transition to drop sticky data
// enable, otherwise junk samples bleed into the next trial.
const calibrationSettleDelay = 100 * time.Millisecond

// Calibrate runs the calibration target sequence on the display, then a
// validation pass scoring gaze against the validation grid. recordSamples
// keeps samples flowing into the data file across the whole procedure.
//
// In dummy mode the display shows a note and no result is produced.
func (t *Tracker) Calibrate(ctx context.Context, recordSamples bool) (*calibration.Result, error) {
	t.mu.Lock()
	connected, dummy, disp := t.connected, t.dummy, t.display
	t.mu.Unlock()

	if !connected {
		return nil, fmt.Errorf("tracker not connected: call Connect first")
	}

	if dummy {
		monitoring.Logf("tracker: dummy mode, skipping calibration")
		if disp != nil {
			disp.Clear(rgbColor(t.settings.CalBackgroundColor))
			w, h := disp.Size()
			disp.DrawText(w/2-100, h/2, "Calibration skipped (dummy mode)")
			disp.Flip()
		}
		return nil, nil
	}

	model := calibration.ModelName(t.settings.CalTargets)
	if err := t.SendCommand("calibration_type = " + model); err != nil {
		return nil, err
	}
	if err := t.SendCommand(fmt.Sprintf("automatic_calibration_pacing = %d", t.settings.PacingIntervalMS)); err != nil {
		return nil, err
	}

	if recordSamples {
		cmd := "sticky_mode_data_enable DATA = 1 1 0 0"
		if t.opts.RecordRawData {
			cmd = "sticky_mode_data_enable DATA = 1 1 1 1"
		}
		if err := t.SendCommand(cmd); err != nil {
			return nil, err
		}
	}

	target, err := calibration.RenderTarget(t.settings)
	if err != nil {
		return nil, err
	}

	// Calibration pass: present the grid, report each accepted fixation to
	// the host.
	calPoints, err := calibration.Layout(
		t.settings.CalTargets,
		t.settings.ScreenRes[0], t.settings.ScreenRes[1],
		t.settings.CalAreaProportion, t.settings.CalCornerScaling,
	)
	if err != nil {
		return nil, err
	}
	if _, err := t.runTargetSequence(ctx, disp, calPoints, target, false); err != nil {
		return nil, err
	}

	// Validation pass: same procedure on the validation grid, scoring the
	// gaze offset at each accepted target.
	valPoints, err := calibration.Layout(
		t.settings.CalTargets,
		t.settings.ScreenRes[0], t.settings.ScreenRes[1],
		t.settings.ValAreaProportion, t.settings.ValCornerScaling,
	)
	if err != nil {
		return nil, err
	}
	measurements, err := t.runTargetSequence(ctx, disp, valPoints, target, true)
	if err != nil {
		return nil, err
	}

	if recordSamples {
		// A bare sticky_mode_data_enable only takes effect on a real mode
		// change; set_idle_mode alone is a no-op when the host is already
		// offline.
		for _, cmd := range []string{"sticky_mode_data_enable", "set_idle_mode", "setup_menu_mode", "set_idle_mode"} {
			if err := t.SendCommand(cmd); err != nil {
				return nil, err
			}
			if cmd != "sticky_mode_data_enable" {
				t.clock.Sleep(calibrationSettleDelay)
			}
		}
	}

	result, err := calibration.Validate(measurements, t.settings.Geometry(), calibration.DefaultThresholdDeg)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("tracker: validation mean error %.2f deg (max %.2f), passed=%v",
		result.MeanErrorDeg, result.MaxErrorDeg, result.Passed)
	return &result, nil
}

// runTargetSequence presents points in randomised centre-first order and
// returns the gaze measurement captured at each accepted target when collect
// is set.
func (t *Tracker) runTargetSequence(
	ctx context.Context,
	disp display.Backend,
	points []calibration.Point,
	target image.Image,
	collect bool,
) ([]calibration.Measurement, error) {
	rng := rand.New(rand.NewSource(t.clock.Now().UnixNano()))
	ordered := calibration.Sequence(points, rng)
	bg := rgbColor(t.settings.CalBackgroundColor)

	var measurements []calibration.Measurement
	cb := calibration.Callbacks{
		ShowTarget: func(_ int, p calibration.Point) {
			disp.Clear(bg)
			disp.DrawTarget(p.X, p.Y, target)
			disp.Flip()
		},
		HideTarget: func() {
			disp.Clear(bg)
			disp.Flip()
		},
		OnAccept: func(_ int, p calibration.Point) {
			if err := t.SendCommand(fmt.Sprintf("accept_target_fixation %s %s", ftoa(p.X), ftoa(p.Y))); err != nil {
				monitoring.Logf("tracker: accept command failed: %v", err)
			}
			if !collect {
				return
			}
			sample, ok := t.NewestSample()
			if !ok {
				return
			}
			x, y, ok := gazePosition(sample)
			if !ok {
				return
			}
			measurements = append(measurements, calibration.Measurement{Target: p, GazeX: x, GazeY: y})
		},
		TargetBeep: func() { t.beeper.Target() },
		DoneBeep:   func() { t.beeper.Done() },
		ErrorBeep:  func() { t.beeper.Error() },
	}

	seq, err := calibration.NewSequencer(ordered, time.Duration(t.settings.PacingIntervalMS)*time.Millisecond, t.clock, cb)
	if err != nil {
		return nil, err
	}

	inputCtx, cancelInputs := context.WithCancel(ctx)
	defer cancelInputs()
	inputs := make(chan calibration.Input)
	go forwardInputs(inputCtx, disp.Events(), inputs)

	if err := seq.Run(ctx, inputs); err != nil {
		return nil, err
	}
	return measurements, nil
}

// forwardInputs maps display key events onto sequencer inputs until the
// context ends or the event stream closes.
func forwardInputs(ctx context.Context, events <-chan display.Event, inputs chan<- calibration.Input) {
	defer close(inputs)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			in, ok := mapKeyEvent(ev)
			if !ok {
				continue
			}
			select {
			case inputs <- in:
			case <-ctx.Done():
				return
			}
		}
	}
}

// mapKeyEvent translates subject/operator keys: enter or space accepts,
// backspace or r redoes, escape, q, or Ctrl+C aborts.
func mapKeyEvent(ev display.Event) (calibration.Input, bool) {
	if ev.Type != display.EventKey {
		return 0, false
	}
	switch ev.Key {
	case display.KeyEnter:
		return calibration.InputAccept, true
	case display.KeyBackspace:
		return calibration.InputRedo, true
	case display.KeyEscape, display.KeyCtrlC:
		return calibration.InputAbort, true
	case display.KeyRune:
		switch ev.Rune {
		case ' ':
			return calibration.InputAccept, true
		case 'r':
			return calibration.InputRedo, true
		case 'q':
			return calibration.InputAbort, true
		}
	}
	return 0, false
}

// gazePosition picks a usable gaze position from a sample, averaging the
// eyes when both are valid.
func gazePosition(s edf.Sample) (x, y float64, ok bool) {
	switch {
	case s.Left.Valid && s.Right.Valid:
		return (s.Left.X + s.Right.X) / 2, (s.Left.Y + s.Right.Y) / 2, true
	case s.Left.Valid:
		return s.Left.X, s.Left.Y, true
	case s.Right.Valid:
		return s.Right.X, s.Right.Y, true
	}
	return 0, 0, false
}

func rgbColor(c [3]int) color.RGBA {
	return color.RGBA{uint8(c[0]), uint8(c[1]), uint8(c[2]), 255}
}
