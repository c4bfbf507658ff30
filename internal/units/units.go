// Package units converts between the coordinate systems the tracker deals in:
// screen pixels, physical millimetres, and degrees of visual angle.
package units

import "math"

// Geometry describes the physical viewing setup. Distances are millimetres,
// resolution is pixels.
type Geometry struct {
	ResX     int
	ResY     int
	WidthMM  float64
	HeightMM float64
	// DistanceMM is the eye-to-screen-centre distance.
	DistanceMM float64
}

// PixelsPerMM returns the horizontal pixel density of the display.
func (g Geometry) PixelsPerMM() float64 {
	if g.WidthMM <= 0 {
		return 0
	}
	return float64(g.ResX) / g.WidthMM
}

// DegToMM converts a size in degrees of visual angle to millimetres on
// screen, using the small-stimulus tangent model around the screen centre.
func (g Geometry) DegToMM(deg float64) float64 {
	return 2 * g.DistanceMM * math.Tan(deg*math.Pi/360)
}

// MMToDeg converts a size in millimetres on screen to degrees of visual angle.
func (g Geometry) MMToDeg(mm float64) float64 {
	return 360 / math.Pi * math.Atan(mm/(2*g.DistanceMM))
}

// DegToPixels converts a size in degrees of visual angle to pixels.
func (g Geometry) DegToPixels(deg float64) float64 {
	return g.DegToMM(deg) * g.PixelsPerMM()
}

// PixelsToDeg converts a size in pixels to degrees of visual angle.
func (g Geometry) PixelsToDeg(px float64) float64 {
	ppmm := g.PixelsPerMM()
	if ppmm == 0 {
		return 0
	}
	return g.MMToDeg(px / ppmm)
}

// OffsetDeg returns the angular distance between two screen points given in
// pixel coordinates. Used to express validation error in degrees.
func (g Geometry) OffsetDeg(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return g.PixelsToDeg(math.Hypot(dx, dy))
}
