package calibration

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/gazelink/gazelink/internal/settings"
)

// RenderTarget produces the calibration target image for the configured
// target type. Fixation-style targets (A/B/C combinations) are sized in
// degrees of visual angle and converted to pixels with the rig geometry;
// circle targets are sized directly in pixels; image targets are loaded from
// disk.
func RenderTarget(s settings.Settings) (image.Image, error) {
	switch s.TargetType {
	case settings.TargetImage:
		return loadTargetImage(s.TargetImagePath)
	case settings.TargetCircle:
		return renderCircleTarget(s), nil
	default:
		return renderFixationTarget(s)
	}
}

func loadTargetImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open target image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode target image %s: %w", path, err)
	}
	return img, nil
}

func renderCircleTarget(s settings.Settings) image.Image {
	size := s.CircleOuterRadiusPx*2 + 2
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size) / 2
	fillCircle(img, c, c, float64(s.CircleOuterRadiusPx), rgbColor(s.CircleOuterColor))
	fillCircle(img, c, c, float64(s.CircleInnerRadiusPx), rgbColor(s.CircleInnerColor))
	return img
}

// renderFixationTarget draws the composite fixation target: "B" is an outer
// disc, "C" a cross over it, "A" a centre dot. Which parts appear depends on
// the configured target type (e.g. "ABC", "AB", "C").
func renderFixationTarget(s settings.Settings) (image.Image, error) {
	geom := s.Geometry()

	outerPx := geom.DegToPixels(s.FixationOuterDiameterDeg)
	centerPx := geom.DegToPixels(s.FixationCenterDiameterDeg)
	crossPx := geom.DegToPixels(s.FixationCrossWidthDeg)
	if outerPx < 1 {
		return nil, fmt.Errorf("fixation target smaller than one pixel on this geometry")
	}

	size := int(math.Ceil(outerPx)) + 2
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size) / 2

	parts := s.TargetType // one or more of 'A', 'B', 'C'
	if has(parts, 'B') {
		fillCircle(img, c, c, outerPx/2, rgbaColor(s.FixationOuterColor))
	}
	if has(parts, 'C') {
		fillCross(img, c, c, outerPx, crossPx, rgbaColor(s.FixationCrossColor))
	}
	if has(parts, 'A') {
		fillCircle(img, c, c, math.Max(centerPx/2, 1), rgbaColor(s.FixationCenterColor))
	}

	return img, nil
}

func has(parts string, p rune) bool {
	for _, r := range parts {
		if r == p {
			return true
		}
	}
	return false
}

func rgbColor(c settings.RGB) color.RGBA {
	return color.RGBA{uint8(c[0]), uint8(c[1]), uint8(c[2]), 255}
}

func rgbaColor(c settings.RGBA) color.RGBA {
	return color.RGBA{uint8(c[0]), uint8(c[1]), uint8(c[2]), uint8(c[3])}
}

func fillCircle(img *image.RGBA, cx, cy, radius float64, c color.RGBA) {
	b := img.Bounds()
	r2 := radius * radius
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= r2 {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func fillCross(img *image.RGBA, cx, cy, span, width float64, c color.RGBA) {
	b := img.Bounds()
	half := span / 2
	halfW := width / 2
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			horizontal := math.Abs(dy) <= halfW && math.Abs(dx) <= half
			vertical := math.Abs(dx) <= halfW && math.Abs(dy) <= half
			if horizontal || vertical {
				img.SetRGBA(x, y, c)
			}
		}
	}
}
