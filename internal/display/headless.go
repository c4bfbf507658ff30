package display

import (
	"image"
	"image/color"
	"sync"

	"github.com/gazelink/gazelink/internal/settings"
)

// Op is one recorded draw call.
type Op struct {
	Kind string // "clear", "target", "text", "flip"

	Bg    color.RGBA
	X, Y  float64
	Image image.Image
	Text  string
}

// Headless records draw calls without rendering anything. Dummy mode and
// tests use it; tests can also inject input events with SendEvent.
type Headless struct {
	resX, resY int

	mu     sync.Mutex
	ops    []Op
	events chan Event
	closed bool
}

// NewHeadless creates a headless backend.
func NewHeadless(s settings.Settings) *Headless {
	return &Headless{
		resX:   s.ScreenRes[0],
		resY:   s.ScreenRes[1],
		events: make(chan Event, 16),
	}
}

func (h *Headless) Init() error {
	return nil
}

func (h *Headless) Size() (int, int) {
	return h.resX, h.resY
}

func (h *Headless) Clear(bg color.RGBA) {
	h.record(Op{Kind: "clear", Bg: bg})
}

func (h *Headless) DrawTarget(x, y float64, img image.Image) {
	h.record(Op{Kind: "target", X: x, Y: y, Image: img})
}

func (h *Headless) DrawText(x, y int, text string) {
	h.record(Op{Kind: "text", X: float64(x), Y: float64(y), Text: text})
}

func (h *Headless) Flip() error {
	h.record(Op{Kind: "flip"})
	return nil
}

func (h *Headless) Events() <-chan Event {
	return h.events
}

func (h *Headless) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.events)
}

// SendEvent injects an input event, as if the subject had pressed a key.
// It reports false once the backend is closed or the event buffer is full.
func (h *Headless) SendEvent(ev Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	select {
	case h.events <- ev:
		return true
	default:
		return false
	}
}

// Ops returns a copy of the recorded draw calls.
func (h *Headless) Ops() []Op {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Op, len(h.ops))
	copy(out, h.ops)
	return out
}

// Reset clears the recorded draw calls.
func (h *Headless) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = nil
}

func (h *Headless) record(op Op) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = append(h.ops, op)
}
