package edf

import (
	"strconv"
	"strings"
)

// missingValue is the sentinel the host writes for unavailable gaze data.
const missingValue = -32768

// ParseSample parses a sample line: a millisecond timestamp followed by
// x, y, pupil for one eye (monocular) or both eyes (binocular). Missing
// fields are written as "." and leave the GazePoint invalid. Trailing
// status flags after the numeric fields are ignored.
func ParseSample(line string) (Sample, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return Sample{}, false
	}
	t, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Sample{}, false
	}

	s := Sample{TimeMS: t}
	left, ok := parseGaze(fields[1:4])
	if !ok {
		return Sample{}, false
	}
	s.Left = left

	if len(fields) >= 7 {
		if right, ok := parseGaze(fields[4:7]); ok {
			s.Right = right
			s.Binocular = true
		}
	}
	return s, true
}

func parseGaze(fields []string) (GazePoint, bool) {
	var p GazePoint
	vals := make([]float64, 3)
	for i, f := range fields {
		if f == "." {
			return GazePoint{}, true // missing data, valid sample line
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return GazePoint{}, false
		}
		vals[i] = v
	}
	if vals[0] == missingValue || vals[1] == missingValue {
		return GazePoint{}, true
	}
	p.X, p.Y, p.Pupil = vals[0], vals[1], vals[2]
	p.Valid = true
	return p, true
}

// ParseEvent parses an event line (SFIX/EFIX, SSACC/ESACC, SBLINK/EBLINK,
// MSG). It returns false for anything else, including sample lines.
func ParseEvent(line string) (Event, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Event{}, false
	}

	switch fields[0] {
	case "MSG":
		// MSG <time> <text...>
		t, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Event{}, false
		}
		return Event{
			Type:    Message,
			StartMS: t,
			Text:    strings.Join(fields[2:], " "),
		}, true

	case "SFIX", "SSACC", "SBLINK":
		if len(fields) < 3 {
			return Event{}, false
		}
		eye, ok := parseEye(fields[1])
		if !ok {
			return Event{}, false
		}
		t, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return Event{}, false
		}
		var typ EventType
		switch fields[0] {
		case "SFIX":
			typ = FixationStart
		case "SSACC":
			typ = SaccadeStart
		default:
			typ = BlinkStart
		}
		return Event{Type: typ, Eye: eye, StartMS: t}, true

	case "EFIX":
		// EFIX <eye> <start> <end> <dur> <x> <y> <pupil>
		if len(fields) < 8 {
			return Event{}, false
		}
		ev, ok := parseTimedEvent(FixationEnd, fields)
		if !ok {
			return Event{}, false
		}
		vals, ok := parseFloats(fields[5:8])
		if !ok {
			return Event{}, false
		}
		ev.X, ev.Y, ev.Pupil = vals[0], vals[1], vals[2]
		return ev, true

	case "ESACC":
		// ESACC <eye> <start> <end> <dur> <sx> <sy> <ex> <ey> <ampl> <pv>
		if len(fields) < 11 {
			return Event{}, false
		}
		ev, ok := parseTimedEvent(SaccadeEnd, fields)
		if !ok {
			return Event{}, false
		}
		vals, ok := parseFloats(fields[5:11])
		if !ok {
			return Event{}, false
		}
		ev.StartX, ev.StartY = vals[0], vals[1]
		ev.EndX, ev.EndY = vals[2], vals[3]
		ev.AmplitudeDeg, ev.PeakVelocity = vals[4], vals[5]
		return ev, true

	case "EBLINK":
		// EBLINK <eye> <start> <end> <dur>
		if len(fields) < 5 {
			return Event{}, false
		}
		return parseTimedEventOK(BlinkEnd, fields)
	}

	return Event{}, false
}

func parseEye(s string) (Eye, bool) {
	switch s {
	case "L":
		return Left, true
	case "R":
		return Right, true
	}
	return Left, false
}

// parseTimedEvent fills the common <eye> <start> <end> <dur> header fields.
func parseTimedEvent(typ EventType, fields []string) (Event, bool) {
	eye, ok := parseEye(fields[1])
	if !ok {
		return Event{}, false
	}
	times := make([]int64, 3)
	for i, f := range fields[2:5] {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return Event{}, false
		}
		times[i] = v
	}
	return Event{
		Type:    typ,
		Eye:     eye,
		StartMS: times[0],
		EndMS:   times[1],
		DurMS:   times[2],
	}, true
}

func parseTimedEventOK(typ EventType, fields []string) (Event, bool) {
	ev, ok := parseTimedEvent(typ, fields)
	if !ok {
		return Event{}, false
	}
	return ev, true
}

func parseFloats(fields []string) ([]float64, bool) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		if f == "." {
			out[i] = 0
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
