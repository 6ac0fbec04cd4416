// Package scenario replays a scripted sequence of calls against the
// simulation on virtual time.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"go-elevator-fleet/internal/config"
	"go-elevator-fleet/pkg/clock"
	"go-elevator-fleet/pkg/elevator"

	"gopkg.in/yaml.v3"
)

// MaxSettle bounds how long Run waits, after the last step, for the fleet to
// go idle when the scenario has no explicit horizon.
const MaxSettle = time.Hour

// Scenario is a timed script of inputs.
type Scenario struct {
	Name       string                  `yaml:"name"`
	Simulation config.SimulationConfig `yaml:"simulation"`
	Until      float64                 `yaml:"until"` // seconds, not before the last step; 0 runs until every car is idle
	Steps      []Step                  `yaml:"steps"`
}

// Step is one input applied at At seconds. Exactly one action must be set.
type Step struct {
	At     float64     `yaml:"at"`
	Call   *CallStep   `yaml:"call,omitempty"`
	Inside *InsideStep `yaml:"inside,omitempty"`
	Reset  bool        `yaml:"reset,omitempty"`
}

// CallStep places a hall call.
type CallStep struct {
	Floor int    `yaml:"floor"`
	Dir   string `yaml:"dir"`
}

// InsideStep presses a floor button inside a car.
type InsideStep struct {
	Car   int `yaml:"car"`
	Floor int `yaml:"floor"`
}

func (s Step) offset() time.Duration {
	return config.Seconds(s.At)
}

func (s Step) String() string {
	switch {
	case s.Call != nil:
		return fmt.Sprintf("call %d:%s", s.Call.Floor, s.Call.Dir)
	case s.Inside != nil:
		return fmt.Sprintf("inside car %d -> %d", s.Inside.Car, s.Inside.Floor)
	case s.Reset:
		return "reset"
	}
	return "noop"
}

// StepError records an input the simulation rejected.
type StepError struct {
	Index int
	At    time.Duration
	Step  string
	Err   error
}

func (e StepError) Error() string {
	return fmt.Sprintf("step %d (%s at %s): %v", e.Index, e.Step, e.At, e.Err)
}

// Result is the outcome of a replay.
type Result struct {
	Name     string
	Start    time.Time // virtual time of the first step
	Final    elevator.Snapshot
	Trace    []elevator.Event
	Rejected []StepError
	Elapsed  time.Duration
	Dropped  uint64
}

// Load decodes a scenario. Unset simulation fields keep their defaults.
func Load(r io.Reader) (*Scenario, error) {
	sc := &Scenario{Simulation: config.Default().Simulation}
	if err := yaml.NewDecoder(r).Decode(sc); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(sc.Steps, func(i, j int) bool { return sc.Steps[i].At < sc.Steps[j].At })
	return sc, nil
}

// Validate checks the script's shape; call contents are checked by the
// simulation at replay time.
func (sc *Scenario) Validate() error {
	if err := sc.Simulation.Elevator().Validate(); err != nil {
		return err
	}
	if sc.Until < 0 {
		return errors.New("until must not be negative")
	}
	for i, s := range sc.Steps {
		if s.At < 0 {
			return fmt.Errorf("step %d: negative time %v", i, s.At)
		}
		if sc.Until > 0 && s.At > sc.Until {
			return fmt.Errorf("step %d: at %v is after until %v", i, s.At, sc.Until)
		}
		actions := 0
		if s.Call != nil {
			actions++
		}
		if s.Inside != nil {
			actions++
		}
		if s.Reset {
			actions++
		}
		if actions != 1 {
			return fmt.Errorf("step %d: exactly one of call, inside, reset is required", i)
		}
	}
	return nil
}

// Run replays sc on a manual clock and returns the final state.
func Run(ctx context.Context, sc *Scenario, logger *slog.Logger) (*Result, error) {
	epoch := time.Unix(0, 0).UTC()
	m := clock.NewManual(epoch)
	sim, err := elevator.New(sc.Simulation.Elevator(),
		elevator.WithClock(m),
		elevator.WithLogger(logger),
		elevator.WithEventBuffer(4096),
	)
	if err != nil {
		return nil, err
	}
	defer sim.Close()

	res := &Result{Name: sc.Name, Start: epoch}
	drain := func() {
		for {
			select {
			case ev := <-sim.Events():
				res.Trace = append(res.Trace, ev)
			default:
				return
			}
		}
	}
	advanceTo := func(at time.Duration) {
		if d := at - m.Now().Sub(epoch); d > 0 {
			m.Advance(d)
		}
		drain()
	}

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		advanceTo(step.offset())

		var stepErr error
		switch {
		case step.Call != nil:
			dir, err := elevator.ParseDirection(step.Call.Dir)
			if err != nil {
				stepErr = err
				break
			}
			stepErr = sim.PlaceExternalCall(step.Call.Floor, dir)
		case step.Inside != nil:
			stepErr = sim.RequestFromInside(step.Inside.Car, step.Inside.Floor)
		case step.Reset:
			stepErr = sim.Reset()
		}
		if stepErr != nil {
			res.Rejected = append(res.Rejected, StepError{Index: i, At: step.offset(), Step: step.String(), Err: stepErr})
		}
		drain()
	}

	if sc.Until > 0 {
		advanceTo(config.Seconds(sc.Until))
	} else {
		settleStart := m.Now()
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			next, ok := m.NextDeadline()
			if !ok || next.Sub(settleStart) > MaxSettle {
				break
			}
			advanceTo(next.Sub(epoch))
		}
	}

	res.Final = sim.Snapshot()
	res.Elapsed = m.Now().Sub(epoch)
	res.Dropped = sim.DroppedEventCount()
	return res, nil
}
