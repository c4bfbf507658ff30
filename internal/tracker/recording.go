package tracker

import (
	"fmt"
	"time"

	"github.com/gazelink/gazelink/internal/monitoring"
)

// modeSettleDelay gives the host time to finish a mode transition.
const modeSettleDelay = 50 * time.Millisecond

// StartRecording starts writing samples and events on the host. sendlink
// additionally streams them over the link. The heuristic filter is re-sent
// on every start because the host resets it when recording stops.
func (t *Tracker) StartRecording(sendlink bool) error {
	t.mu.Lock()
	if t.recording {
		t.mu.Unlock()
		monitoring.Logf("tracker: recording already started")
		return nil
	}
	t.mu.Unlock()

	if t.settings.SetHeuristicFilter {
		cmd := fmt.Sprintf("heuristic_filter %d %d", t.settings.HeuristicFilter[0], t.settings.HeuristicFilter[1])
		if err := t.SendCommand(cmd); err != nil {
			return err
		}
	}

	if err := t.SendCommand("set_idle_mode"); err != nil {
		return err
	}
	t.clock.Sleep(modeSettleDelay)

	if t.opts.RecordRawData {
		sendlink = true
	}

	fileSamples := boolFlag(t.settings.RecordSamplesToFile)
	fileEvents := boolFlag(t.settings.RecordEventsToFile)
	linkSamples, linkEvents := 0, 0
	if sendlink {
		linkSamples = boolFlag(t.settings.RecordSamplesOverLink)
		linkEvents = boolFlag(t.settings.RecordEventsOverLink)
	}

	cmd := fmt.Sprintf("start_recording %d %d %d %d", fileSamples, fileEvents, linkSamples, linkEvents)
	if err := t.SendCommand(cmd); err != nil {
		return err
	}

	t.mu.Lock()
	t.recording = true
	t.mu.Unlock()
	monitoring.Logf("tracker: recording started")
	return nil
}

// StopRecording stops the host recording. A no-op when not recording.
func (t *Tracker) StopRecording() error {
	t.mu.Lock()
	if !t.recording {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	if err := t.SendCommand("stop_recording"); err != nil {
		return err
	}

	t.mu.Lock()
	t.recording = false
	t.mu.Unlock()
	monitoring.Logf("tracker: recording stopped")
	return nil
}

// IsRecording reports whether StartRecording is active.
func (t *Tracker) IsRecording() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recording
}

// SetStatusMessage shows a message on the host operator screen while
// recording. Messages longer than 80 characters are rejected by the host.
func (t *Tracker) SetStatusMessage(message string) error {
	return t.SendCommand(fmt.Sprintf("record_status_message '%s'", message))
}

// SetTrialID marks the start of a trial in the data file.
func (t *Tracker) SetTrialID(id int) error {
	return t.SendMessage(fmt.Sprintf("TRIALID %d", id))
}

// SetTrialResult marks the end of a trial in the data file and clears the
// host operator screen to the given colour index.
func (t *Tracker) SetTrialResult(result, screenColor int) error {
	if err := t.SendMessage(fmt.Sprintf("TRIAL_RESULT %d", result)); err != nil {
		return err
	}
	return t.SendCommand(fmt.Sprintf("clear_screen %d", screenColor))
}

// DrawTextOnHost draws a line of text near the top of the host operator
// screen.
func (t *Tracker) DrawTextOnHost(msg string) error {
	x := t.settings.ScreenRes[0] / 2
	return t.SendCommand(fmt.Sprintf("draw_text %d 50 \"%s\"", x, msg))
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}
