package simulator

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Runner drives a full fire sequence against a clock. It is the headless
// counterpart of the TUI, which schedules the same events with ticks.
type Runner struct {
	machine *Machine
	clock   clockwork.Clock
	step    time.Duration
	settle  time.Duration
}

// NewRunner returns a Runner using the standard step and settle intervals.
// A nil clock uses the real clock.
func NewRunner(machine *Machine, clock clockwork.Clock) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{
		machine: machine,
		clock:   clock,
		step:    StepInterval,
		settle:  SettleInterval,
	}
}

// WithIntervals returns a copy of the runner using custom intervals.
func (r *Runner) WithIntervals(step, settle time.Duration) *Runner {
	cp := *r
	cp.step = step
	cp.settle = settle
	return &cp
}

// Fire runs an armed state to completion. onFire, if set, is called after
// each detonator is marked fired. When ctx is cancelled the partially fired
// state is returned with ctx.Err().
func (r *Runner) Fire(ctx context.Context, s State, onFire func(id int, s State)) (State, error) {
	s, err := r.machine.Apply(s, Fire{})
	if err != nil {
		return s, err
	}
	run := s.Run
	log.Debug().Int("run", run).Ints("order", s.Order).Msg("fire sequence started")

	for !s.Done() {
		if err := r.wait(ctx, r.step); err != nil {
			log.Debug().Int("run", run).Int("fired", s.Next).Msg("fire sequence cancelled")
			return s, err
		}
		s, err = r.machine.Apply(s, Step{Run: run})
		if err != nil {
			return s, err
		}
		id := s.Order[s.Next-1]
		log.Debug().Int("run", run).Int("detonator", id).Msg("detonator fired")
		if onFire != nil {
			onFire(id, s)
		}
	}

	if err := r.wait(ctx, r.settle); err != nil {
		return s, err
	}
	return r.machine.Apply(s, Evaluate{Run: run})
}

func (r *Runner) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := r.clock.NewTimer(d)
	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		if !timer.Stop() {
			select {
			case <-timer.Chan():
			default:
			}
		}
		return ctx.Err()
	}
}
