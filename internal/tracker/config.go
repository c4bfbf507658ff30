package tracker

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// selectEye enables binocular tracking or picks the active eye.
func (t *Tracker) selectEye(eyeTracked string) error {
	if strings.Contains(strings.ToUpper(eyeTracked), "BOTH") {
		return t.SendCommand("binocular_enabled = YES")
	}
	if err := t.SendCommand("binocular_enabled = NO"); err != nil {
		return err
	}
	return t.SendCommand("active_eye = " + strings.ToUpper(eyeTracked))
}

// setAllConstants pushes the full configuration block, overriding the host's
// final.ini defaults with the session settings.
func (t *Tracker) setAllConstants() error {
	s := t.settings
	resX, resY := s.ScreenRes[0], s.ScreenRes[1]

	if err := t.SendCommand("elcl_tt_power " + strconv.Itoa(s.IlluminationPower)); err != nil {
		return err
	}

	// Display coords annotation for analysis tools goes into the data file.
	if err := t.SendMessage(fmt.Sprintf("DISPLAY_COORDS 0 0 %d %d", resX-1, resY-1)); err != nil {
		return err
	}

	cmds := []string{
		fmt.Sprintf("screen_pixel_coords 0 0 %d %d", resX-1, resY-1),
		t.screenPhysCoordsCommand(false),
	}

	if s.ViewingDistTopBottomMM != nil {
		cmds = append(cmds, fmt.Sprintf("screen_distance %s %s",
			ntoa(s.ViewingDistTopBottomMM[0]), ntoa(s.ViewingDistTopBottomMM[1])))
	}
	if s.RemoteLensMM != nil {
		cmds = append(cmds, "camera_lens_focal_length = "+ntoa(*s.RemoteLensMM))
	}

	cmds = append(cmds,
		"file_event_filter = "+s.FileEventFilter,
		"link_event_filter = "+s.LinkEventFilter,
		"link_sample_data = "+s.LinkSampleData,
		"file_sample_data = "+s.FileSampleData,
		fmt.Sprintf("screen_distance = %s %s", ftoa(s.CameraDistanceMM), ftoa(s.CameraDistanceMM)),
		t.screenPhysCoordsCommand(true),
		"sample_rate = "+strconv.Itoa(s.SampleRate),
		"pupil_size_diameter = "+s.PupilSizeMode,
		"calibration_corner_scaling = "+ntoa(s.CalCornerScaling),
		"validation_corner_scaling = "+ntoa(s.ValCornerScaling),
		fmt.Sprintf("calibration_area_proportion = %s %s", ftoa(s.CalAreaProportion[0]), ftoa(s.CalAreaProportion[1])),
		fmt.Sprintf("validation_area_proportion = %s %s", ftoa(s.ValAreaProportion[0]), ftoa(s.ValAreaProportion[1])),
		fmt.Sprintf("heuristic_filter %d %d", s.HeuristicFilter[0], s.HeuristicFilter[1]),
	)

	if strings.Contains(s.PupilTrackingMode, "CENTROID") {
		cmds = append(cmds, "use_ellipse_fitter = NO")
	} else {
		cmds = append(cmds, "use_ellipse_fitter = YES")
	}

	for _, cmd := range cmds {
		if err := t.SendCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

// screenPhysCoordsCommand describes the physical screen extent in mm,
// centred on the display, top positive.
func (t *Tracker) screenPhysCoordsCommand(useEquals bool) string {
	left := -t.settings.ScreenWidthMM / 2
	top := t.settings.ScreenHeightMM / 2
	right := t.settings.ScreenWidthMM / 2
	bottom := -t.settings.ScreenHeightMM / 2
	sep := " "
	if useEquals {
		sep = " = "
	}
	return fmt.Sprintf("screen_phys_coords%s%s %s %s %s", sep, ftoa(left), ftoa(top), ftoa(right), ftoa(bottom))
}

// SetPupilOnlyMode switches the host to pupil-only tracking, with no corneal
// reflection.
func (t *Tracker) SetPupilOnlyMode() error {
	cmds := []string{
		"force_corneal_reflection = OFF",
		"allow_pupil_without_cr = ON",
		"elcl_hold_if_no_corneal = OFF",
		"elcl_search_if_no_corneal = OFF",
		"elcl_use_pcr_matching = OFF",
		"corneal_mode = NO",
	}
	for _, cmd := range cmds {
		if err := t.SendCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

const fullSampleData = "LEFT,RIGHT,GAZE,GAZERES,AREA,HREF,PUPIL,STATUS,INPUT,HMARKER,HTARGET"

// setupRawDataRecording configures raw pupil/CR data: over the link only,
// never into the file.
func (t *Tracker) setupRawDataRecording(enable bool) error {
	var cmds []string
	if enable {
		cmds = []string{
			"file_sample_raw_pcr = 0",
			"link_sample_raw_pcr = 1",
			"raw_pcr_dual_corneal = 1",
			"inputword_is_window = ON",
			"file_sample_data = " + fullSampleData,
			"link_sample_data = " + fullSampleData,
		}
	} else {
		cmds = []string{
			"file_sample_raw_pcr = 0",
			"link_sample_raw_pcr = 0",
			"raw_pcr_dual_corneal = 0",
			"file_sample_data = " + fullSampleData,
			"link_sample_data = " + fullSampleData,
		}
	}
	for _, cmd := range cmds {
		if err := t.SendCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

// ftoa renders a measured or computed value the way the host expects it:
// integral values keep a trailing ".0".
func ftoa(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ntoa renders a count-like setting. These are whole numbers in normal use,
// so integral values drop the decimal point.
func ntoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
