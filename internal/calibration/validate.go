package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/gazelink/gazelink/internal/units"
)

// Measurement pairs a presented target with the gaze position the tracker
// reported while the subject fixated it.
type Measurement struct {
	Target Point
	GazeX  float64
	GazeY  float64
}

// TargetError is the validation error for one target.
type TargetError struct {
	Target   Point
	GazeX    float64
	GazeY    float64
	ErrorPx  float64
	ErrorDeg float64
}

// Result summarises a validation pass.
type Result struct {
	Targets []TargetError

	MeanErrorDeg float64
	MaxErrorDeg  float64
	StdErrorDeg  float64

	// WorstIndex is the index into Targets with the largest error.
	WorstIndex int

	// ThresholdDeg is the acceptance limit the result was scored against.
	ThresholdDeg float64
	Passed       bool
}

// DefaultThresholdDeg is the usual acceptance limit for average validation
// error: above one degree the calibration should be redone.
const DefaultThresholdDeg = 1.0

// Validate scores gaze measurements against their targets. The error for each
// target is the Euclidean gaze offset converted to degrees of visual angle
// with the rig geometry; the pass criterion is mean error under thresholdDeg.
func Validate(measurements []Measurement, geom units.Geometry, thresholdDeg float64) (Result, error) {
	if len(measurements) == 0 {
		return Result{}, fmt.Errorf("no validation measurements")
	}
	if thresholdDeg <= 0 {
		thresholdDeg = DefaultThresholdDeg
	}

	res := Result{
		Targets:      make([]TargetError, 0, len(measurements)),
		ThresholdDeg: thresholdDeg,
	}

	errsDeg := make([]float64, 0, len(measurements))
	for i, m := range measurements {
		px := math.Hypot(m.GazeX-m.Target.X, m.GazeY-m.Target.Y)
		deg := geom.OffsetDeg(m.Target.X, m.Target.Y, m.GazeX, m.GazeY)
		res.Targets = append(res.Targets, TargetError{
			Target:   m.Target,
			GazeX:    m.GazeX,
			GazeY:    m.GazeY,
			ErrorPx:  px,
			ErrorDeg: deg,
		})
		errsDeg = append(errsDeg, deg)
		if deg > res.MaxErrorDeg {
			res.MaxErrorDeg = deg
			res.WorstIndex = i
		}
	}

	res.MeanErrorDeg = stat.Mean(errsDeg, nil)
	if len(errsDeg) > 1 {
		res.StdErrorDeg = stat.StdDev(errsDeg, nil)
	}
	res.Passed = res.MeanErrorDeg <= thresholdDeg

	return res, nil
}
