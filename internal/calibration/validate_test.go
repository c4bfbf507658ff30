package calibration

import (
	"math"
	"testing"

	"github.com/gazelink/gazelink/internal/units"
)

// testGeom is a 1000px-wide, 1000mm-wide screen at 1000mm viewing distance,
// so one pixel is one millimetre and the deg/px conversion is easy to check
// by hand.
var testGeom = units.Geometry{
	ResX: 1000, ResY: 1000,
	WidthMM: 1000, HeightMM: 1000,
	DistanceMM: 1000,
}

func TestValidateScoring(t *testing.T) {
	// 2*atan(10/(2*1000)) in degrees, the angle subtended by a 10px offset.
	wantDeg := 2 * math.Atan(5.0/1000) * 180 / math.Pi

	measurements := []Measurement{
		{Target: Point{X: 500, Y: 500}, GazeX: 510, GazeY: 500}, // 10px off
		{Target: Point{X: 100, Y: 100}, GazeX: 100, GazeY: 100}, // perfect
		{Target: Point{X: 900, Y: 900}, GazeX: 900, GazeY: 880}, // 20px off
	}

	res, err := Validate(measurements, testGeom, DefaultThresholdDeg)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Targets) != 3 {
		t.Fatalf("got %d target errors, want 3", len(res.Targets))
	}
	if got := res.Targets[0].ErrorPx; math.Abs(got-10) > 1e-9 {
		t.Errorf("ErrorPx[0] = %v, want 10", got)
	}
	if got := res.Targets[0].ErrorDeg; math.Abs(got-wantDeg) > 1e-9 {
		t.Errorf("ErrorDeg[0] = %v, want %v", got, wantDeg)
	}
	if res.Targets[1].ErrorDeg != 0 {
		t.Errorf("ErrorDeg[1] = %v, want 0", res.Targets[1].ErrorDeg)
	}

	if res.WorstIndex != 2 {
		t.Errorf("WorstIndex = %d, want 2", res.WorstIndex)
	}
	if res.MaxErrorDeg != res.Targets[2].ErrorDeg {
		t.Errorf("MaxErrorDeg = %v, want %v", res.MaxErrorDeg, res.Targets[2].ErrorDeg)
	}

	wantMean := (res.Targets[0].ErrorDeg + res.Targets[2].ErrorDeg) / 3
	if math.Abs(res.MeanErrorDeg-wantMean) > 1e-9 {
		t.Errorf("MeanErrorDeg = %v, want %v", res.MeanErrorDeg, wantMean)
	}
	if res.StdErrorDeg <= 0 {
		t.Errorf("StdErrorDeg = %v, want > 0", res.StdErrorDeg)
	}

	// A 20px worst case is about a degree of error on this rig; the mean is
	// well under the default threshold.
	if !res.Passed {
		t.Errorf("Passed = false with mean %v deg", res.MeanErrorDeg)
	}
}

func TestValidateFailsOverThreshold(t *testing.T) {
	measurements := []Measurement{
		{Target: Point{X: 500, Y: 500}, GazeX: 600, GazeY: 500}, // ~5.7 deg off
	}
	res, err := Validate(measurements, testGeom, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Passed {
		t.Errorf("Passed = true with mean %v deg over threshold %v", res.MeanErrorDeg, res.ThresholdDeg)
	}
}

func TestValidateDefaultThreshold(t *testing.T) {
	measurements := []Measurement{
		{Target: Point{X: 500, Y: 500}, GazeX: 500, GazeY: 500},
	}
	res, err := Validate(measurements, testGeom, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.ThresholdDeg != DefaultThresholdDeg {
		t.Errorf("ThresholdDeg = %v, want %v", res.ThresholdDeg, DefaultThresholdDeg)
	}
	if res.StdErrorDeg != 0 {
		t.Errorf("StdErrorDeg = %v for a single measurement, want 0", res.StdErrorDeg)
	}
}

func TestValidateEmpty(t *testing.T) {
	if _, err := Validate(nil, testGeom, 1.0); err == nil {
		t.Error("expected error for empty measurement set")
	}
}
