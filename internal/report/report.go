// Package report renders HTML charts of calibration accuracy and recorded
// gaze data using go-echarts. Reports are standalone files: open them in a
// browser, no server required.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gazelink/gazelink/internal/calibration"
	"github.com/gazelink/gazelink/internal/edf"
	"github.com/gazelink/gazelink/internal/settings"
)

// WriteValidation renders a scatter chart of validation targets against the
// measured gaze positions, annotated with the error statistics.
func WriteValidation(w io.Writer, result calibration.Result, s settings.Settings) error {
	if len(result.Targets) == 0 {
		return fmt.Errorf("no validation targets to plot")
	}

	// Screen coordinates grow downward; flip y so the chart reads like the
	// physical display.
	resY := float64(s.ScreenRes[1])
	targets := make([]opts.ScatterData, 0, len(result.Targets))
	gaze := make([]opts.ScatterData, 0, len(result.Targets))
	for _, te := range result.Targets {
		targets = append(targets, opts.ScatterData{Value: []interface{}{te.Target.X, resY - te.Target.Y}})
		gaze = append(gaze, opts.ScatterData{Value: []interface{}{te.GazeX, resY - te.GazeY, te.ErrorDeg}})
	}

	verdict := "FAILED"
	if result.Passed {
		verdict = "passed"
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Validation Accuracy",
			Width:     "900px",
			Height:    "720px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Validation Accuracy",
			Subtitle: fmt.Sprintf("mean %.2f deg, max %.2f deg (threshold %.2f), %s",
				result.MeanErrorDeg, result.MaxErrorDeg, result.ThresholdDeg, verdict),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: s.ScreenRes[0], Name: "x (px)"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: s.ScreenRes[1], Name: "y (px)"}),
	)

	scatter.AddSeries("target", targets, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
	scatter.AddSeries("gaze", gaze, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))

	return scatter.Render(w)
}

// SaveValidation writes the validation chart to an HTML file.
func SaveValidation(path string, result calibration.Result, s settings.Settings) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()
	return WriteValidation(f, result, s)
}

// WriteGazeTrace renders recorded samples as a scatter over the screen,
// coloured by time so the scan path reads oldest to newest. Binocular samples
// plot both eyes.
func WriteGazeTrace(w io.Writer, samples []edf.Sample, s settings.Settings) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to plot")
	}

	resY := float64(s.ScreenRes[1])
	var data []opts.ScatterData
	var minT, maxT int64
	minT, maxT = samples[0].TimeMS, samples[0].TimeMS
	for _, sm := range samples {
		if sm.TimeMS < minT {
			minT = sm.TimeMS
		}
		if sm.TimeMS > maxT {
			maxT = sm.TimeMS
		}
		if sm.Left.Valid {
			data = append(data, opts.ScatterData{Value: []interface{}{sm.Left.X, resY - sm.Left.Y, sm.TimeMS}})
		}
		if sm.Right.Valid {
			data = append(data, opts.ScatterData{Value: []interface{}{sm.Right.X, resY - sm.Right.Y, sm.TimeMS}})
		}
	}
	if len(data) == 0 {
		return fmt.Errorf("no valid gaze positions in %d samples", len(samples))
	}
	if maxT == minT {
		maxT = minT + 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Gaze Trace",
			Width:     "900px",
			Height:    "720px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Gaze Trace",
			Subtitle: fmt.Sprintf("%d samples over %d ms", len(samples), maxT-minT),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: s.ScreenRes[0], Name: "x (px)"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: s.ScreenRes[1], Name: "y (px)"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minT),
			Max:        float32(maxT),
			Dimension:  "2",
			InRange: &opts.VisualMapInRange{
				Color: []string{"#440154", "#31688e", "#35b779", "#fde725"},
			},
		}),
	)

	scatter.AddSeries("gaze", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter.Render(w)
}
