package settings

// Default values for a new Settings. These mirror the configuration shipped
// for an EyeLink 1000 on a 1280x1024 panel; override per rig after calling
// Default().
const (
	DefaultFilename   = "test"
	DefaultSampleRate = 1000 // lower rates are filtered/downsampled versions

	DefaultCalTargets       = 9 // 9 is standard; 13 for widescreens
	DefaultPacingIntervalMS = 1000

	DefaultTargetType = TargetABC

	DefaultCircleOuterRadiusPx = 15
	DefaultCircleInnerRadiusPx = 5

	// "A", "B", and "C" component sizes in degrees of visual angle.
	DefaultFixationCenterDiameterDeg = 0.1
	DefaultFixationOuterDiameterDeg  = 0.6
	DefaultFixationCrossWidthDeg     = 0.17

	DefaultScreenWidthMM    = 376.0
	DefaultScreenHeightMM   = 301.0
	DefaultCameraDistanceMM = 490.0

	DefaultIlluminationPower = 2 // 1=100%, 2=75%, 3=50%
	DefaultHostAddr          = "100.1.1.1:589"
	DefaultELConfiguration   = "BTABLER"
	DefaultEyeTracked        = EyeBoth

	DefaultBackend = BackendTerminal
)

// Default returns a Settings populated with the stock configuration.
func Default() Settings {
	return Settings{
		Filename: DefaultFilename,
		Filepath: "",

		SampleRate: DefaultSampleRate,

		CalTargets:        DefaultCalTargets,
		PacingIntervalMS:  DefaultPacingIntervalMS,
		CalCornerScaling:  1,
		ValCornerScaling:  1,
		CalAreaProportion: [2]float64{0.9, 0.9},
		ValAreaProportion: [2]float64{0.9, 0.9},

		TargetType:         DefaultTargetType,
		CalBackgroundColor: RGB{128, 128, 128},

		FixationCenterDiameterDeg: DefaultFixationCenterDiameterDeg,
		FixationOuterDiameterDeg:  DefaultFixationOuterDiameterDeg,
		FixationCrossWidthDeg:     DefaultFixationCrossWidthDeg,
		FixationCenterColor:       RGBA{0, 0, 0, 255},
		FixationOuterColor:        RGBA{0, 0, 0, 255},
		FixationCrossColor:        RGBA{255, 255, 255, 255},

		CircleOuterRadiusPx: DefaultCircleOuterRadiusPx,
		CircleInnerRadiusPx: DefaultCircleInnerRadiusPx,
		CircleOuterColor:    RGB{0, 0, 0},
		CircleInnerColor:    RGB{128, 128, 128},

		ScreenRes:              [2]int{1280, 1024},
		ScreenWidthMM:          DefaultScreenWidthMM,
		ScreenHeightMM:         DefaultScreenHeightMM,
		CameraDistanceMM:       DefaultCameraDistanceMM,
		ViewingDistTopBottomMM: &[2]float64{960, 1000},
		RemoteLensMM:           floatPtr(25),

		Backend:      DefaultBackend,
		Fullscreen:   true,
		DisplayIndex: 0,

		PupilTrackingMode:  PupilCentroid,
		PupilSizeMode:      PupilArea,
		HeuristicFilter:    [2]int{0, 0}, // EyeLink II/1000 factory default is [1, 2]
		SetHeuristicFilter: true,

		FileEventFilter: "LEFT,RIGHT,MESSAGE,BUTTON,INPUT",
		LinkEventFilter: "LEFT,RIGHT,FIXATION,SACCADE,BLINK,MESSAGE,BUTTON,INPUT",
		LinkSampleData:  "LEFT,RIGHT,GAZE,GAZERES,AREA,STATUS,HTARGET",
		FileSampleData:  "LEFT,RIGHT,GAZE,GAZERES,AREA,HREF,PUPIL,STATUS,INPUT,HMARKER,HTARGET",

		RecordSamplesToFile:   true,
		RecordEventsToFile:    true,
		RecordSamplesOverLink: true,
		RecordEventsOverLink:  true,

		EnableSearchLimits: "OFF",
		IlluminationPower:  DefaultIlluminationPower,
		HostAddr:           DefaultHostAddr,
		ELConfiguration:    DefaultELConfiguration,
		EyeTracked:         DefaultEyeTracked,
	}
}

func floatPtr(v float64) *float64 { return &v }
