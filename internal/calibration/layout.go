// Package calibration implements the target layout math, the pacing state
// machine that walks a subject through the target sequence, and the
// validation pass that scores gaze accuracy against known positions.
package calibration

import (
	"fmt"
	"math/rand"
)

// Point is a target position in screen pixel coordinates (top-left origin).
type Point struct {
	X float64
	Y float64
	// Corner marks the four outermost grid positions, which corner scaling
	// applies to.
	Corner bool
}

// Layout computes the target grid for an HV<count> calibration model.
//
// The grid spans areaProportion ([width, height] fractions) of a width x
// height pixel screen, centred. cornerScaling moves the four corner targets
// along the line to the screen centre: 1 leaves them on the grid, <1 pulls
// them inward, >1 pushes them toward the edge.
//
// Supported counts are 3, 5, 9, and 13:
//
//	HV3:  centre plus top and bottom mid points
//	HV5:  centre plus the four edge mid points
//	HV9:  3x3 grid
//	HV13: 3x3 grid plus four inner diagonal points
func Layout(count, width, height int, areaProportion [2]float64, cornerScaling float64) ([]Point, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("screen size must be positive, got %dx%d", width, height)
	}
	if areaProportion[0] <= 0 || areaProportion[0] > 1 || areaProportion[1] <= 0 || areaProportion[1] > 1 {
		return nil, fmt.Errorf("area proportion values must be in (0, 1], got %v", areaProportion)
	}

	cx := float64(width) / 2
	cy := float64(height) / 2
	dx := float64(width) * areaProportion[0] / 2
	dy := float64(height) * areaProportion[1] / 2

	centre := Point{X: cx, Y: cy}
	top := Point{X: cx, Y: cy - dy}
	bottom := Point{X: cx, Y: cy + dy}
	left := Point{X: cx - dx, Y: cy}
	right := Point{X: cx + dx, Y: cy}

	corner := func(sx, sy float64) Point {
		return Point{
			X:      cx + sx*dx*cornerScaling,
			Y:      cy + sy*dy*cornerScaling,
			Corner: true,
		}
	}
	inner := func(sx, sy float64) Point {
		return Point{X: cx + sx*dx/2, Y: cy + sy*dy/2}
	}

	switch count {
	case 3:
		return []Point{centre, top, bottom}, nil
	case 5:
		return []Point{centre, top, bottom, left, right}, nil
	case 9:
		return []Point{
			centre, top, bottom, left, right,
			corner(-1, -1), corner(1, -1), corner(-1, 1), corner(1, 1),
		}, nil
	case 13:
		return []Point{
			centre, top, bottom, left, right,
			corner(-1, -1), corner(1, -1), corner(-1, 1), corner(1, 1),
			inner(-1, -1), inner(1, -1), inner(-1, 1), inner(1, 1),
		}, nil
	}
	return nil, fmt.Errorf("unsupported target count %d: must be 3, 5, 9, or 13", count)
}

// ModelName returns the tracker calibration type string for a target count,
// e.g. "HV9".
func ModelName(count int) string {
	return fmt.Sprintf("HV%d", count)
}

// Sequence returns the presentation order for a layout: the centre target
// first, the remaining targets shuffled with rng. A nil rng keeps the layout
// order.
func Sequence(points []Point, rng *rand.Rand) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	if rng == nil || len(out) < 3 {
		return out
	}
	rest := out[1:]
	rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	return out
}
