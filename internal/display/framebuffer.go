package display

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gazelink/gazelink/internal/settings"
)

// Framebuffer renders into an in-memory RGBA image at the configured screen
// resolution. Each Flip snapshots the frame; when a frame directory is
// configured the snapshot is also written as a numbered PNG.
type Framebuffer struct {
	resX, resY int
	frameDir   string

	mu       sync.Mutex
	img      *image.RGBA
	frameNum int
	events   chan Event
	closed   bool
}

// NewFramebuffer creates a framebuffer backend.
func NewFramebuffer(s settings.Settings) (*Framebuffer, error) {
	if s.ScreenRes[0] <= 0 || s.ScreenRes[1] <= 0 {
		return nil, fmt.Errorf("invalid screen resolution %dx%d", s.ScreenRes[0], s.ScreenRes[1])
	}
	return &Framebuffer{
		resX:     s.ScreenRes[0],
		resY:     s.ScreenRes[1],
		frameDir: s.FrameDir,
		events:   make(chan Event),
	}, nil
}

func (f *Framebuffer) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.img = image.NewRGBA(image.Rect(0, 0, f.resX, f.resY))
	if f.frameDir != "" {
		if err := os.MkdirAll(f.frameDir, 0o755); err != nil {
			return fmt.Errorf("failed to create frame directory: %w", err)
		}
	}
	return nil
}

func (f *Framebuffer) Size() (int, int) {
	return f.resX, f.resY
}

func (f *Framebuffer) Clear(bg color.RGBA) {
	f.mu.Lock()
	defer f.mu.Unlock()
	draw.Draw(f.img, f.img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
}

func (f *Framebuffer) DrawTarget(x, y float64, img image.Image) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if img == nil {
		return
	}
	b := img.Bounds()
	r := image.Rect(0, 0, b.Dx(), b.Dy()).
		Add(image.Pt(int(x)-b.Dx()/2, int(y)-b.Dy()/2))
	draw.Draw(f.img, r, img, b.Min, draw.Over)
}

func (f *Framebuffer) DrawText(x, y int, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &font.Drawer{
		Dst:  f.img,
		Src:  image.NewUniform(color.RGBA{255, 255, 255, 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// Flip snapshots the current frame and, with a frame directory configured,
// writes it as frame-NNNN.png.
func (f *Framebuffer) Flip() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.frameNum++
	if f.frameDir == "" {
		return nil
	}

	path := filepath.Join(f.frameDir, fmt.Sprintf("frame-%04d.png", f.frameNum))
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	defer out.Close()
	if err := png.Encode(out, f.img); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return nil
}

// Events returns an empty stream; the framebuffer has no input source.
func (f *Framebuffer) Events() <-chan Event {
	return f.events
}

func (f *Framebuffer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.events)
}

// Frame returns the current frame contents. The caller must not draw while
// holding the returned image.
func (f *Framebuffer) Frame() *image.RGBA {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.img
}

// FrameCount reports how many frames have been flipped.
func (f *Framebuffer) FrameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frameNum
}
