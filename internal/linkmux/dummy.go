package linkmux

import (
	"context"
	"sync"

	"github.com/gazelink/gazelink/internal/monitoring"
)

// DummyLinkMux is a no-op Muxer used when no tracker hardware is present
// (dummy mode). Commands are accepted and logged, no lines ever arrive, and
// subscriber channels are deterministically closed on Unsubscribe or Close so
// readers unblock predictably during shutdown.
type DummyLinkMux struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	closing     bool
	commands    []string
}

// NewDummyLinkMux returns a Muxer for dummy mode.
func NewDummyLinkMux() *DummyLinkMux {
	return &DummyLinkMux{
		subscribers: make(map[string]chan string),
	}
}

func (d *DummyLinkMux) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)

	d.mu.Lock()
	if d.closing {
		// Already closing; hand back a closed channel so callers don't block.
		close(ch)
		d.mu.Unlock()
		return id, ch
	}
	d.subscribers[id] = ch
	d.mu.Unlock()
	return id, ch
}

func (d *DummyLinkMux) Unsubscribe(id string) {
	d.mu.Lock()
	if ch, ok := d.subscribers[id]; ok {
		close(ch)
		delete(d.subscribers, id)
	}
	d.mu.Unlock()
}

func (d *DummyLinkMux) SendCommand(command string) error {
	d.mu.Lock()
	d.commands = append(d.commands, command)
	d.mu.Unlock()
	monitoring.Logf("dummy link: command %q", command)
	return nil
}

// Commands returns the commands sent so far. Useful for tests and for
// inspecting what a dummy-mode run would have configured.
func (d *DummyLinkMux) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.commands))
	copy(out, d.commands)
	return out
}

func (d *DummyLinkMux) Monitor(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (d *DummyLinkMux) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return nil
	}
	d.closing = true
	for id, ch := range d.subscribers {
		close(ch)
		delete(d.subscribers, id)
	}
	return nil
}
