// Package simulator implements the detonator delay/firing state machine.
package simulator

import (
	"time"

	"github.com/verte-zerg/blastrain/internal/model"
)

// Limits and timing of the simulator.
const (
	DetonatorCount = 4
	MinDelay       = 0
	MaxDelay       = 9999

	// StepInterval is the fixed pause before each detonator fires. The
	// configured delay only decides the order.
	StepInterval = 500 * time.Millisecond
	// SettleInterval is the pause after the last detonator before scoring.
	SettleInterval = 1000 * time.Millisecond
)

// Phase is the machine-level state.
type Phase int

// Phases of one arm/fire/reset cycle.
const (
	PhaseIdle Phase = iota
	PhaseArmed
	PhaseFiring
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseArmed:
		return "armed"
	case PhaseFiring:
		return "firing"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Outcome is the evaluated result of a fire sequence.
type Outcome struct {
	Score      int
	Passed     bool
	Delays     []int
	FiredOrder []int
	MaxDelay   int
}

// Attempt builds the write-once attempt record for the outcome.
func (o Outcome) Attempt(id, username string, completedAt time.Time) model.AttemptResult {
	return model.AttemptResult{
		ID:          id,
		Username:    username,
		TestType:    model.TestTypeDetonatorSimulator,
		Score:       o.Score,
		Passed:      o.Passed,
		MaxDelay:    o.MaxDelay,
		Delays:      append([]int(nil), o.Delays...),
		CompletedAt: completedAt,
	}
}

// State is the full simulator state. It is a value: transitions return a new
// State and never modify the receiver's detonators.
type State struct {
	Detonators [DetonatorCount]model.Detonator
	Phase      Phase

	// Order lists detonator ids in firing order; Next indexes the next one.
	Order []int
	Next  int

	// Run identifies the current fire run. It changes on every fire and reset
	// so that ticks scheduled for an older run can be recognised.
	Run int

	Outcome *Outcome
}

// NewState returns four idle detonators with zero delay.
func NewState() State {
	var s State
	for i := range s.Detonators {
		s.Detonators[i] = model.Detonator{ID: i + 1, Delay: 0, Status: model.StatusIdle}
	}
	s.Phase = PhaseIdle
	return s
}

// Delays returns the configured delays indexed by detonator id order.
func (s State) Delays() []int {
	out := make([]int, len(s.Detonators))
	for i, det := range s.Detonators {
		out[i] = det.Delay
	}
	return out
}

// MaxDelay returns the largest configured delay.
func (s State) MaxDelay() int {
	maxDelay := 0
	for _, det := range s.Detonators {
		if det.Delay > maxDelay {
			maxDelay = det.Delay
		}
	}
	return maxDelay
}

// CountStatus returns how many detonators currently have the given status.
func (s State) CountStatus(status model.DetonatorStatus) int {
	n := 0
	for _, det := range s.Detonators {
		if det.Status == status {
			n++
		}
	}
	return n
}

// Editable reports whether delays may be changed.
func (s State) Editable() bool {
	return s.Phase == PhaseIdle
}

// FiredOrder returns the ids fired so far in this run.
func (s State) FiredOrder() []int {
	if s.Next == 0 {
		return nil
	}
	return append([]int(nil), s.Order[:s.Next]...)
}

func (s State) indexOf(id int) int {
	for i, det := range s.Detonators {
		if det.ID == id {
			return i
		}
	}
	return -1
}

func (s State) withStatus(status model.DetonatorStatus) State {
	for i := range s.Detonators {
		s.Detonators[i].Status = status
	}
	return s
}
