package tracker

import (
	"context"

	"github.com/gazelink/gazelink/internal/edf"
	"github.com/gazelink/gazelink/internal/linkmux"
	"github.com/gazelink/gazelink/internal/monitoring"
)

// pump reads lines from the link subscription, parses samples into the ring
// buffer and events to the registered handlers, and mirrors both into the
// session store when one is attached.
func (t *Tracker) pump(ctx context.Context, done chan struct{}) {
	defer close(done)

	t.mu.Lock()
	mux := t.mux
	t.mu.Unlock()
	if mux == nil {
		return
	}

	id, lines := mux.Subscribe()
	defer mux.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			t.handleLine(line)
		}
	}
}

func (t *Tracker) handleLine(line string) {
	switch linkmux.Classify(line) {
	case linkmux.LineKindSample:
		sample, ok := edf.ParseSample(line)
		if !ok {
			return
		}
		t.ring.Push(sample)
		if t.store != nil && t.sessionID != "" {
			if err := t.store.RecordSample(t.sessionID, sample); err != nil {
				monitoring.Logf("tracker: failed to store sample: %v", err)
			}
		}

	case linkmux.LineKindEvent, linkmux.LineKindMessage:
		event, ok := edf.ParseEvent(line)
		if !ok {
			return
		}
		if t.store != nil && t.sessionID != "" {
			var err error
			if event.Type == edf.Message {
				err = t.store.RecordMessage(t.sessionID, event.StartMS, event.Text)
			} else {
				err = t.store.RecordEvent(t.sessionID, event)
			}
			if err != nil {
				monitoring.Logf("tracker: failed to store event: %v", err)
			}
		}

		t.mu.Lock()
		handlers := t.handlers
		t.mu.Unlock()
		for _, fn := range handlers {
			fn(event)
		}
	}
}
