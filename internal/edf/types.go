// Package edf parses the line-oriented data the tracker host emits over the
// link: gaze samples plus fixation, saccade, blink, and message events in the
// EyeLink ASC conventions.
package edf

// Eye identifies which eye a record belongs to.
type Eye int

const (
	Left Eye = iota
	Right
)

// String returns the single-letter eye tag used on the wire.
func (e Eye) String() string {
	if e == Right {
		return "R"
	}
	return "L"
}

// GazePoint is one eye's position and pupil size within a sample. Valid is
// false when the host flagged the data missing (track loss or blink).
type GazePoint struct {
	X     float64
	Y     float64
	Pupil float64
	Valid bool
}

// Sample is one gaze sample. Monocular samples carry data in Left only;
// Binocular reports whether Right is populated.
type Sample struct {
	TimeMS    int64
	Left      GazePoint
	Right     GazePoint
	Binocular bool
}

// EventType enumerates the parsed link event kinds.
type EventType int

const (
	FixationStart EventType = iota
	FixationEnd
	SaccadeStart
	SaccadeEnd
	BlinkStart
	BlinkEnd
	Message
)

var eventTypeNames = map[EventType]string{
	FixationStart: "fixation_start",
	FixationEnd:   "fixation_end",
	SaccadeStart:  "saccade_start",
	SaccadeEnd:    "saccade_end",
	BlinkStart:    "blink_start",
	BlinkEnd:      "blink_end",
	Message:       "message",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Event is a parsed link event. End events populate the timing and position
// fields; start events carry only StartMS. Saccade ends add the start/end
// positions, amplitude in degrees, and peak velocity in deg/s. Message events
// carry the annotation text.
type Event struct {
	Type    EventType
	Eye     Eye
	StartMS int64
	EndMS   int64
	DurMS   int64

	// Fixation end: average gaze position and pupil size.
	X     float64
	Y     float64
	Pupil float64

	// Saccade end.
	StartX       float64
	StartY       float64
	EndX         float64
	EndY         float64
	AmplitudeDeg float64
	PeakVelocity float64

	// Message annotation text.
	Text string
}
