package simulator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/verte-zerg/blastrain/internal/model"
)

// Errors returned by Apply. Validation errors are meant for the user;
// precondition errors are expected to be ignored by callers.
var (
	ErrDelayOutOfRange  = errors.New("delay out of range")
	ErrUnknownDetonator = errors.New("unknown detonator")
	ErrInvalidDelays    = errors.New("invalid delays")
	ErrLocked           = errors.New("delays are locked")
	ErrNotIdle          = errors.New("system is not idle")
	ErrNotArmed         = errors.New("system is not armed")
	ErrNotFiring        = errors.New("no fire sequence in progress")
	ErrStaleRun         = errors.New("stale fire run")
	ErrSequencePending  = errors.New("fire sequence not finished")
)

// Event is an input to the state machine.
type Event interface {
	isEvent()
}

// SetDelay changes one detonator's delay.
type SetDelay struct {
	ID    int
	Value int
}

// Arm locks the delays and arms every detonator.
type Arm struct{}

// Fire starts a fire sequence.
type Fire struct{}

// Step fires the next detonator of run Run.
type Step struct {
	Run int
}

// Evaluate scores the finished sequence of run Run.
type Evaluate struct {
	Run int
}

// Reset returns the machine to its initial state.
type Reset struct{}

func (SetDelay) isEvent() {}
func (Arm) isEvent()      {}
func (Fire) isEvent()     {}
func (Step) isEvent()     {}
func (Evaluate) isEvent() {}
func (Reset) isEvent()    {}

// Machine applies events to simulator states using a scorer for failed
// sequences.
type Machine struct {
	scorer Scorer
}

// NewMachine returns a Machine. A nil scorer selects InversionScorer.
func NewMachine(scorer Scorer) *Machine {
	if scorer == nil {
		scorer = InversionScorer{}
	}
	return &Machine{scorer: scorer}
}

// Apply returns the state after ev. On error the returned state equals s.
func (m *Machine) Apply(s State, ev Event) (State, error) {
	switch ev := ev.(type) {
	case SetDelay:
		return setDelay(s, ev.ID, ev.Value)
	case Arm:
		return arm(s)
	case Fire:
		return fire(s)
	case Step:
		return step(s, ev.Run)
	case Evaluate:
		return m.evaluate(s, ev.Run)
	case Reset:
		return reset(s), nil
	default:
		return s, fmt.Errorf("unsupported event %T", ev)
	}
}

func setDelay(s State, id, value int) (State, error) {
	if !s.Editable() {
		return s, ErrLocked
	}
	idx := s.indexOf(id)
	if idx < 0 {
		return s, fmt.Errorf("%w: %d", ErrUnknownDetonator, id)
	}
	if value < MinDelay || value > MaxDelay {
		return s, fmt.Errorf("%w: %d", ErrDelayOutOfRange, value)
	}
	s.Detonators[idx].Delay = value
	return s, nil
}

func arm(s State) (State, error) {
	if s.Phase != PhaseIdle {
		return s, ErrNotIdle
	}
	for _, det := range s.Detonators {
		if det.Delay < MinDelay || det.Delay > MaxDelay {
			return s, fmt.Errorf("%w: detonator %d", ErrInvalidDelays, det.ID)
		}
	}
	s = s.withStatus(model.StatusArmed)
	s.Phase = PhaseArmed
	return s, nil
}

func fire(s State) (State, error) {
	if s.Phase != PhaseArmed {
		return s, ErrNotArmed
	}
	dets := s.Detonators
	sorted := dets[:]
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Delay < sorted[j].Delay
	})
	order := make([]int, len(sorted))
	for i, det := range sorted {
		order[i] = det.ID
	}
	s.Order = order
	s.Next = 0
	s.Run++
	s.Phase = PhaseFiring
	return s, nil
}

func step(s State, run int) (State, error) {
	if s.Phase != PhaseFiring {
		return s, ErrNotFiring
	}
	if run != s.Run {
		return s, ErrStaleRun
	}
	if s.Next >= len(s.Order) {
		return s, nil
	}
	idx := s.indexOf(s.Order[s.Next])
	s.Detonators[idx].Status = model.StatusFired
	s.Next++
	return s, nil
}

func (m *Machine) evaluate(s State, run int) (State, error) {
	if s.Phase != PhaseFiring {
		return s, ErrNotFiring
	}
	if run != s.Run {
		return s, ErrStaleRun
	}
	if s.Next < len(s.Order) {
		return s, ErrSequencePending
	}
	delays := s.Delays()
	score, passed := 100, true
	if !IsNonDecreasing(delays) {
		score, passed = m.scorer.Score(delays), false
	}
	s.Outcome = &Outcome{
		Score:      score,
		Passed:     passed,
		Delays:     delays,
		FiredOrder: s.FiredOrder(),
		MaxDelay:   s.MaxDelay(),
	}
	s.Phase = PhaseComplete
	return s, nil
}

func reset(s State) State {
	next := NewState()
	next.Run = s.Run + 1
	return next
}

// Done reports whether every detonator of the current run has fired.
func (s State) Done() bool {
	return s.Phase == PhaseFiring && s.Next >= len(s.Order)
}
