// Package settings defines the tracker configuration and its validation
// rules. A Settings value describes one recording rig: data file naming,
// sampling, calibration layout and target appearance, screen geometry in
// millimetres, display backend, and host connection parameters.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gazelink/gazelink/internal/units"
)

// Target type names accepted by TargetType.
const (
	TargetABC    = "ABC"
	TargetAB     = "AB"
	TargetA      = "A"
	TargetB      = "B"
	TargetC      = "C"
	TargetCircle = "CIRCLE"
	TargetImage  = "IMAGE"
)

// Eye selection values.
const (
	EyeLeft  = "Left"
	EyeRight = "Right"
	EyeBoth  = "Both"
)

// Pupil processing modes.
const (
	PupilCentroid = "CENTROID"
	PupilEllipse  = "ELLIPSE"
	PupilArea     = "AREA"
	PupilDiameter = "DIAMETER"
)

// RGB is an opaque 8-bit colour.
type RGB [3]int

// RGBA is an 8-bit colour with alpha.
type RGBA [4]int

// Settings carries the full tracker configuration. Construct with Default()
// and override fields, or load from a JSON file with LoadFile. Call Validate
// before handing a Settings to the tracker.
type Settings struct {
	// File settings. Filename is the EDF file stem (no extension); Filepath
	// is where the transferred file lands, empty meaning current directory.
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`

	// SampleRate in Hz.
	SampleRate int `json:"sample_rate"`

	// Calibration settings. CornerScaling moves corner targets relative to
	// the screen edge (1 = default, <1 closer to centre). AreaProportion is
	// the [width, height] fraction of the screen the target grid spans.
	CalTargets        int        `json:"cal_targets"`
	PacingIntervalMS  int        `json:"pacing_interval_ms"`
	CalCornerScaling  float64    `json:"calibration_corner_scaling"`
	ValCornerScaling  float64    `json:"validation_corner_scaling"`
	CalAreaProportion [2]float64 `json:"calibration_area_proportion"`
	ValAreaProportion [2]float64 `json:"validation_area_proportion"`

	// Target appearance.
	TargetType         string `json:"target_type"`
	TargetImagePath    string `json:"target_image_path,omitempty"`
	CalBackgroundColor RGB    `json:"cal_background_color"`

	FixationCenterDiameterDeg float64 `json:"fixation_center_diameter"`
	FixationOuterDiameterDeg  float64 `json:"fixation_outer_diameter"`
	FixationCrossWidthDeg     float64 `json:"fixation_cross_width"`
	FixationCenterColor       RGBA    `json:"fixation_center_color"`
	FixationOuterColor        RGBA    `json:"fixation_outer_color"`
	FixationCrossColor        RGBA    `json:"fixation_cross_color"`

	CircleOuterRadiusPx int `json:"circle_outer_radius"`
	CircleInnerRadiusPx int `json:"circle_inner_radius"`
	CircleOuterColor    RGB `json:"circle_outer_color"`
	CircleInnerColor    RGB `json:"circle_inner_color"`

	// Screen geometry. Resolution in pixels, physical sizes in millimetres.
	ScreenRes              [2]int      `json:"screen_res"`
	ScreenWidthMM          float64     `json:"screen_width"`
	ScreenHeightMM         float64     `json:"screen_height"`
	CameraDistanceMM       float64     `json:"camera_to_screen_distance"`
	ViewingDistTopBottomMM *[2]float64 `json:"viewing_dist_top_bottom,omitempty"`
	RemoteLensMM           *float64    `json:"remote_lens,omitempty"`

	// Display settings. FrameDir is where the framebuffer backend writes
	// PNG frames; empty keeps frames in memory only.
	Backend      string `json:"backend"`
	Fullscreen   bool   `json:"fullscreen"`
	DisplayIndex int    `json:"display_index"`
	FrameDir     string `json:"frame_dir,omitempty"`

	// Tracking settings. HeuristicFilter is [link, file], each 0=off,
	// 1=normal, 2=extra; it must be re-sent every time recording starts.
	PupilTrackingMode  string `json:"pupil_tracking_mode"`
	PupilSizeMode      string `json:"pupil_size_mode"`
	HeuristicFilter    [2]int `json:"heuristic_filter"`
	SetHeuristicFilter bool   `json:"set_heuristic_filter"`

	// Data filter settings: which events and sample fields the host keeps in
	// the file and sends over the link.
	FileEventFilter string `json:"file_event_filter"`
	LinkEventFilter string `json:"link_event_filter"`
	LinkSampleData  string `json:"link_sample_data"`
	FileSampleData  string `json:"file_sample_data"`

	// Recording settings.
	RecordSamplesToFile   bool `json:"record_samples_to_file"`
	RecordEventsToFile    bool `json:"record_events_to_file"`
	RecordSamplesOverLink bool `json:"record_samples_over_link"`
	RecordEventsOverLink  bool `json:"record_events_over_link"`

	// Hardware settings. HostAddr is the Host PC link address; "dummy" (or
	// empty) selects dummy mode with no hardware.
	EnableSearchLimits string `json:"enable_search_limits"`
	IlluminationPower  int    `json:"illumination_power"`
	HostAddr           string `json:"host_addr"`
	ELConfiguration    string `json:"el_configuration"`
	EyeTracked         string `json:"eye_tracked"`
}

var validSampleRates = map[int]bool{250: true, 500: true, 1000: true, 2000: true}
var validCalTargets = map[int]bool{3: true, 5: true, 9: true, 13: true}
var validTargetTypes = map[string]bool{
	TargetABC: true, TargetAB: true, TargetA: true, TargetB: true,
	TargetC: true, TargetCircle: true, TargetImage: true,
}
var validConfigurations = map[string]bool{
	"MTABLER": true, "BTABLER": true, "RTABLER": true, "RBTABLER": true,
	"AMTABLER": true, "ARTABLER": true, "BTOWER": true,
}

// Display backend names.
const (
	BackendTerminal    = "terminal"
	BackendFramebuffer = "framebuffer"
	BackendHeadless    = "headless"
)

// ValidBackends lists the display backend names Validate accepts. The display
// package registers the same set.
var ValidBackends = []string{BackendTerminal, BackendFramebuffer, BackendHeadless}

// Validate checks every field against its allowed range and returns the first
// violation found.
func (s *Settings) Validate() error {
	if !validSampleRates[s.SampleRate] {
		return fmt.Errorf("invalid sample rate %d: must be one of 250, 500, 1000, 2000", s.SampleRate)
	}
	if !validCalTargets[s.CalTargets] {
		return fmt.Errorf("invalid calibration target count %d: must be one of 3, 5, 9, 13", s.CalTargets)
	}
	if s.ScreenRes[0] <= 0 || s.ScreenRes[1] <= 0 {
		return fmt.Errorf("screen resolution must be positive, got %dx%d", s.ScreenRes[0], s.ScreenRes[1])
	}
	if s.ScreenWidthMM <= 0 {
		return fmt.Errorf("screen width must be positive, got %v", s.ScreenWidthMM)
	}
	if s.ScreenHeightMM <= 0 {
		return fmt.Errorf("screen height must be positive, got %v", s.ScreenHeightMM)
	}
	if s.CameraDistanceMM <= 0 {
		return fmt.Errorf("camera to screen distance must be positive, got %v", s.CameraDistanceMM)
	}
	if v := s.ViewingDistTopBottomMM; v != nil {
		if v[0] <= 0 || v[1] <= 0 {
			return fmt.Errorf("viewing distances must be positive, got %v", *v)
		}
	}
	if err := validProportion("calibration area proportion", s.CalAreaProportion); err != nil {
		return err
	}
	if err := validProportion("validation area proportion", s.ValAreaProportion); err != nil {
		return err
	}
	switch s.EyeTracked {
	case EyeLeft, EyeRight, EyeBoth:
	default:
		return fmt.Errorf("invalid eye %q: must be %q, %q, or %q", s.EyeTracked, EyeLeft, EyeRight, EyeBoth)
	}
	switch s.PupilTrackingMode {
	case PupilCentroid, PupilEllipse:
	default:
		return fmt.Errorf("invalid pupil tracking mode %q: must be %q or %q", s.PupilTrackingMode, PupilCentroid, PupilEllipse)
	}
	switch s.PupilSizeMode {
	case PupilArea, PupilDiameter:
	default:
		return fmt.Errorf("invalid pupil size mode %q: must be %q or %q", s.PupilSizeMode, PupilArea, PupilDiameter)
	}
	for _, v := range s.HeuristicFilter {
		if v < 0 || v > 2 {
			return fmt.Errorf("heuristic filter values must be 0-2, got %v", s.HeuristicFilter)
		}
	}
	if s.IlluminationPower < 1 || s.IlluminationPower > 3 {
		return fmt.Errorf("invalid illumination power %d: must be 1 (100%%), 2 (75%%), or 3 (50%%)", s.IlluminationPower)
	}
	if !validTargetTypes[s.TargetType] {
		return fmt.Errorf("invalid target type %q: must be one of ABC, AB, A, B, C, CIRCLE, IMAGE", s.TargetType)
	}
	if s.TargetType == TargetImage && s.TargetImagePath == "" {
		return fmt.Errorf("target image path must be provided when target type is %q", TargetImage)
	}
	if !validConfigurations[s.ELConfiguration] {
		return fmt.Errorf("invalid tracker configuration %q", s.ELConfiguration)
	}
	for _, c := range []struct {
		name  string
		color RGBA
	}{
		{"fixation center color", s.FixationCenterColor},
		{"fixation outer color", s.FixationOuterColor},
		{"fixation cross color", s.FixationCrossColor},
	} {
		if err := validChannels(c.name, c.color[:]); err != nil {
			return err
		}
	}
	for _, c := range []struct {
		name  string
		color RGB
	}{
		{"circle outer color", s.CircleOuterColor},
		{"circle inner color", s.CircleInnerColor},
		{"calibration background color", s.CalBackgroundColor},
	} {
		if err := validChannels(c.name, c.color[:]); err != nil {
			return err
		}
	}
	if s.FixationCenterDiameterDeg <= 0 || s.FixationOuterDiameterDeg <= 0 || s.FixationCrossWidthDeg <= 0 {
		return fmt.Errorf("fixation target dimensions must be positive")
	}
	if s.CircleOuterRadiusPx <= 0 || s.CircleInnerRadiusPx <= 0 {
		return fmt.Errorf("circle target radii must be positive")
	}
	if s.CircleInnerRadiusPx >= s.CircleOuterRadiusPx {
		return fmt.Errorf("circle inner radius (%d) must be less than outer radius (%d)",
			s.CircleInnerRadiusPx, s.CircleOuterRadiusPx)
	}
	if s.RemoteLensMM != nil && *s.RemoteLensMM <= 0 {
		return fmt.Errorf("remote lens focal length must be positive, got %v", *s.RemoteLensMM)
	}
	if !validBackend(s.Backend) {
		return fmt.Errorf("invalid backend %q: must be one of %s", s.Backend, strings.Join(ValidBackends, ", "))
	}
	if s.DisplayIndex < 0 {
		return fmt.Errorf("display index must not be negative, got %d", s.DisplayIndex)
	}
	return nil
}

func validProportion(name string, p [2]float64) error {
	if p[0] <= 0 || p[0] > 1 || p[1] <= 0 || p[1] > 1 {
		return fmt.Errorf("%s values must be in (0, 1], got %v", name, p)
	}
	return nil
}

func validChannels(name string, channels []int) error {
	for _, v := range channels {
		if v < 0 || v > 255 {
			return fmt.Errorf("%s values must be 0-255, got %v", name, channels)
		}
	}
	return nil
}

func validBackend(name string) bool {
	for _, b := range ValidBackends {
		if name == b {
			return true
		}
	}
	return false
}

// DummyMode reports whether the configuration selects dummy mode (no tracker
// hardware): an empty or "dummy" host address.
func (s *Settings) DummyMode() bool {
	return s.HostAddr == "" || strings.EqualFold(s.HostAddr, "dummy")
}

// EDFName returns the data file name the host opens for this session.
func (s *Settings) EDFName() string {
	return s.Filename + ".edf"
}

// Geometry returns the physical viewing geometry for unit conversions.
func (s *Settings) Geometry() units.Geometry {
	return units.Geometry{
		ResX:       s.ScreenRes[0],
		ResY:       s.ScreenRes[1],
		WidthMM:    s.ScreenWidthMM,
		HeightMM:   s.ScreenHeightMM,
		DistanceMM: s.CameraDistanceMM,
	}
}

// SaveFile writes the settings as indented JSON, creating parent directories
// as needed.
func (s *Settings) SaveFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// LoadFile reads settings from a JSON file. Fields absent from the file keep
// their Default() values. The result is validated before being returned.
func LoadFile(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("configuration file not found: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}
