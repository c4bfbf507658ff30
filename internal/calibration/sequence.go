package calibration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gazelink/gazelink/internal/timeutil"
)

// State enumerates the sequencer states.
type State int

const (
	StateIdle State = iota
	StateShowingTarget
	StateAwaitingFixation
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateShowingTarget:
		return "showing_target"
	case StateAwaitingFixation:
		return "awaiting_fixation"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Input is a subject/operator action fed to the sequencer.
type Input int

const (
	// InputAccept confirms fixation on the current target.
	InputAccept Input = iota
	// InputRedo re-presents the current target.
	InputRedo
	// InputAbort cancels the whole sequence.
	InputAbort
)

// Callbacks are the sequencer's side-effect hooks. Any may be nil.
type Callbacks struct {
	// ShowTarget is invoked when a target should be drawn.
	ShowTarget func(index int, p Point)
	// HideTarget is invoked when the current target should be removed.
	HideTarget func()
	// OnAccept is invoked when fixation on a target is confirmed, after
	// HideTarget.
	OnAccept func(index int, p Point)
	// TargetBeep, DoneBeep, and ErrorBeep mirror the audible feedback the
	// subject hears.
	TargetBeep func()
	DoneBeep   func()
	ErrorBeep  func()
}

// Sequencer walks a target sequence with automatic pacing: each target is
// shown, then accepted automatically after the pacing interval unless the
// operator intervenes with a redo or abort.
type Sequencer struct {
	points []Point
	pacing time.Duration
	clock  timeutil.Clock
	cb     Callbacks

	mu       sync.Mutex
	state    State
	index    int
	accepted []Point
}

// NewSequencer creates a sequencer over the given presentation order.
func NewSequencer(points []Point, pacing time.Duration, clock timeutil.Clock, cb Callbacks) (*Sequencer, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no targets to present")
	}
	if pacing <= 0 {
		return nil, fmt.Errorf("pacing interval must be positive, got %v", pacing)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Sequencer{
		points: points,
		pacing: pacing,
		clock:  clock,
		cb:     cb,
		state:  StateIdle,
	}, nil
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sequencer) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Current returns the target being presented. ok is false outside an active
// presentation.
func (s *Sequencer) Current() (index int, p Point, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateShowingTarget && s.state != StateAwaitingFixation || s.index >= len(s.points) {
		return 0, Point{}, false
	}
	return s.index, s.points[s.index], true
}

// Accepted returns the targets confirmed so far, in presentation order.
func (s *Sequencer) Accepted() []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Point, len(s.accepted))
	copy(out, s.accepted)
	return out
}

// Run presents every target. Inputs arriving on the inputs channel override
// the pacing timer; a nil channel gives fully automatic pacing. Run returns
// nil after the last target is accepted, or an error when aborted or
// cancelled.
func (s *Sequencer) Run(ctx context.Context, inputs <-chan Input) error {
	s.mu.Lock()
	s.state = StateShowingTarget
	s.index = 0
	s.accepted = s.accepted[:0]
	s.mu.Unlock()

	for i := 0; i < len(s.points); {
		p := s.points[i]
		if s.cb.ShowTarget != nil {
			s.cb.ShowTarget(i, p)
		}
		if s.cb.TargetBeep != nil {
			s.cb.TargetBeep()
		}
		s.setState(StateAwaitingFixation)

		action, err := s.awaitFixation(ctx, inputs)
		if err != nil {
			s.setState(StateAborted)
			if s.cb.ErrorBeep != nil {
				s.cb.ErrorBeep()
			}
			return err
		}

		if s.cb.HideTarget != nil {
			s.cb.HideTarget()
		}

		accepted := action == InputAccept
		s.mu.Lock()
		if accepted {
			s.accepted = append(s.accepted, p)
		}
		s.state = StateShowingTarget
		s.mu.Unlock()
		if accepted {
			if s.cb.OnAccept != nil {
				s.cb.OnAccept(i, p)
			}
			i++
			s.mu.Lock()
			s.index = i
			s.mu.Unlock()
		}
	}

	s.setState(StateDone)
	if s.cb.DoneBeep != nil {
		s.cb.DoneBeep()
	}
	return nil
}

// awaitFixation waits for an input or the pacing deadline, whichever comes
// first. The pacing timer acts as an automatic accept.
func (s *Sequencer) awaitFixation(ctx context.Context, inputs <-chan Input) (Input, error) {
	deadline := s.clock.After(s.pacing)
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-deadline:
			return InputAccept, nil
		case in, ok := <-inputs:
			if !ok {
				// Input source gone; fall back to automatic pacing.
				inputs = nil
				continue
			}
			if in == InputAbort {
				return 0, fmt.Errorf("calibration aborted")
			}
			return in, nil
		}
	}
}
