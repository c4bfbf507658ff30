// Package display abstracts the subject-facing screen behind interchangeable
// backends. The terminal backend gives an operator preview in a cell grid,
// the framebuffer backend renders stimulus-grade raster frames, and the
// headless backend records draw calls for dummy mode and tests.
package display

import (
	"fmt"
	"image"
	"image/color"
	"sort"
	"sync"

	"github.com/gazelink/gazelink/internal/settings"
)

// EventType identifies the kind of input event a backend delivers.
type EventType int

const (
	EventNone EventType = iota
	EventKey
	EventResize
	EventClosed
)

// Key identifies the special keys the calibration loop reacts to. Printable
// input arrives as KeyRune with the Rune field set.
type Key int

const (
	KeyNone Key = iota
	KeyRune
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyCtrlC
)

// Event is an input event from the display.
type Event struct {
	Type EventType

	Key  Key
	Rune rune

	// Resize event fields, in backend-native units.
	Width, Height int
}

// Backend is a rendering surface plus its input event stream. Coordinates
// are tracker screen pixels; each backend maps them to its own geometry.
type Backend interface {
	// Init prepares the surface. It must be called before any drawing.
	Init() error
	// Size returns the surface size in tracker screen pixels.
	Size() (int, int)
	// Clear fills the surface with the background colour.
	Clear(bg color.RGBA)
	// DrawTarget draws the target image centred at the given position.
	DrawTarget(x, y float64, img image.Image)
	// DrawText writes an instruction line at the given position.
	DrawText(x, y int, text string)
	// Flip makes everything drawn since the last Flip visible.
	Flip() error
	// Events returns the input stream. The channel is closed by Close.
	Events() <-chan Event
	// Close releases the surface.
	Close()
}

// Constructor builds a backend from tracker settings.
type Constructor func(s settings.Settings) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register adds a backend constructor under a name. Later registrations
// replace earlier ones.
func Register(name string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = c
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the backend named in the settings.
func New(s settings.Settings) (Backend, error) {
	registryMu.RLock()
	c, ok := registry[s.Backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown display backend %q: must be one of %v", s.Backend, Backends())
	}
	return c(s)
}

func init() {
	Register(settings.BackendTerminal, func(s settings.Settings) (Backend, error) {
		return NewTerminal(s)
	})
	Register(settings.BackendFramebuffer, func(s settings.Settings) (Backend, error) {
		return NewFramebuffer(s)
	})
	Register(settings.BackendHeadless, func(s settings.Settings) (Backend, error) {
		return NewHeadless(s), nil
	})
}
