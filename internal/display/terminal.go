package display

import (
	"image"
	"image/color"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/gazelink/gazelink/internal/settings"
)

// Terminal renders an operator preview into a terminal cell grid using
// tcell. Target positions given in screen pixels are scaled down to cells,
// so the preview shows where the subject display would place them.
type Terminal struct {
	screen tcell.Screen
	resX   int
	resY   int

	mu     sync.Mutex
	bg     tcell.Style
	events chan Event
	done   chan struct{}
	closed bool
}

// NewTerminal creates a terminal backend on the current tty.
func NewTerminal(s settings.Settings) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return newTerminalWithScreen(screen, s), nil
}

// newTerminalWithScreen lets tests substitute a tcell simulation screen.
func newTerminalWithScreen(screen tcell.Screen, s settings.Settings) *Terminal {
	return &Terminal{
		screen: screen,
		resX:   s.ScreenRes[0],
		resY:   s.ScreenRes[1],
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

func (t *Terminal) Init() error {
	if err := t.screen.Init(); err != nil {
		return err
	}
	t.screen.HideCursor()
	go t.pollEvents()
	return nil
}

func (t *Terminal) Size() (int, int) {
	return t.resX, t.resY
}

func (t *Terminal) Clear(bg color.RGBA) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bg = tcell.StyleDefault.Background(tcell.NewRGBColor(int32(bg.R), int32(bg.G), int32(bg.B)))
	t.screen.Fill(' ', t.bg)
}

// DrawTarget marks the target cell and a one-cell crosshair around it.
func (t *Terminal) DrawTarget(x, y float64, img image.Image) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cx, cy := t.toCell(x, y)
	style := t.bg.Foreground(tcell.ColorWhite).Bold(true)
	t.screen.SetContent(cx, cy, 'O', nil, style)
	t.screen.SetContent(cx-1, cy, '-', nil, style)
	t.screen.SetContent(cx+1, cy, '-', nil, style)
	t.screen.SetContent(cx, cy-1, '|', nil, style)
	t.screen.SetContent(cx, cy+1, '|', nil, style)
}

func (t *Terminal) DrawText(x, y int, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cx, cy := t.toCell(float64(x), float64(y))
	style := t.bg.Foreground(tcell.ColorWhite)
	for i, r := range text {
		t.screen.SetContent(cx+i, cy, r, nil, style)
	}
}

func (t *Terminal) Flip() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.screen.Show()
	return nil
}

func (t *Terminal) Events() <-chan Event {
	return t.events
}

func (t *Terminal) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	close(t.done)
	// Fini unblocks the PollEvent goroutine, which closes the event channel.
	t.screen.Fini()
}

// toCell maps tracker screen pixels to terminal cells.
func (t *Terminal) toCell(x, y float64) (int, int) {
	cols, rows := t.screen.Size()
	if cols == 0 || rows == 0 || t.resX == 0 || t.resY == 0 {
		return 0, 0
	}
	cx := int(x / float64(t.resX) * float64(cols))
	cy := int(y / float64(t.resY) * float64(rows))
	return clampInt(cx, 0, cols-1), clampInt(cy, 0, rows-1)
}

func (t *Terminal) pollEvents() {
	defer close(t.events)
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		out, ok := convertEvent(ev)
		if !ok {
			continue
		}
		select {
		case t.events <- out:
		case <-t.done:
			return
		}
	}
}

func convertEvent(ev tcell.Event) (Event, bool) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEnter:
			return Event{Type: EventKey, Key: KeyEnter}, true
		case tcell.KeyEscape:
			return Event{Type: EventKey, Key: KeyEscape}, true
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			return Event{Type: EventKey, Key: KeyBackspace}, true
		case tcell.KeyCtrlC:
			return Event{Type: EventKey, Key: KeyCtrlC}, true
		case tcell.KeyRune:
			return Event{Type: EventKey, Key: KeyRune, Rune: ev.Rune()}, true
		}
		return Event{}, false
	case *tcell.EventResize:
		w, h := ev.Size()
		return Event{Type: EventResize, Width: w, Height: h}, true
	}
	return Event{}, false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
