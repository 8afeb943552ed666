// Package env wraps the simulation core as a reinforcement-learning
// environment: observations are signal phase plus queue pressure,
// actions are signal toggles, episodes end on collision or generation
// exhaustion.
package env

import (
	"fmt"
	"log/slog"

	"github.com/openjunction/trafficsim/internal/sim"
)

// State is the observation handed to the agent after each step.
type State struct {
	SignalPhase      int   // active phase index of the primary signal
	GroupCounts      []int // vehicles queued per signal road group
	JunctionOccupied bool  // some active road crosses another active road
}

// Config shapes the reward signal and the step length.
type Config struct {
	StepTicks        int     // ticks per environment step (the n passed to Run)
	QueuePenalty     float64 // per-vehicle-on-map penalty each step
	CollisionPenalty float64 // one-time penalty when a step ends in a crash
}

// DefaultConfig returns the standard environment parameters.
func DefaultConfig() Config {
	return Config{
		StepTicks:        200,
		QueuePenalty:     0.01,
		CollisionPenalty: 100,
	}
}

// Builder constructs a fresh simulation with its network for a new
// episode. A build error means the episode never starts.
type Builder func() (*sim.Simulation, error)

// Environment drives a Simulation through reset/step transitions.
type Environment struct {
	cfg   Config
	build Builder
	sim   *sim.Simulation
	log   *slog.Logger
}

// New creates an environment. A nil logger falls back to slog.Default.
func New(build Builder, cfg Config, logger *slog.Logger) *Environment {
	if logger == nil {
		logger = slog.Default()
	}
	return &Environment{
		cfg:   cfg,
		build: build,
		log:   logger,
	}
}

// Sim exposes the current episode's simulation. Baseline policies read
// signal timing through it.
func (e *Environment) Sim() *sim.Simulation {
	return e.sim
}

// Reset discards the previous episode and returns the initial state.
// On a build error the previous simulation stays in place untouched.
func (e *Environment) Reset() (State, error) {
	s, err := e.build()
	if err != nil {
		return State{}, fmt.Errorf("failed to build simulation: %w", err)
	}
	e.sim = s
	return e.observe(), nil
}

// Step applies an action (toggle signals or hold), advances the
// simulation and returns the next state, the reward, whether the
// episode reached a terminal state, and whether it was truncated by
// the display closing.
func (e *Environment) Step(action bool) (State, float64, bool, bool) {
	e.sim.Run(action, e.cfg.StepTicks)

	state := e.observe()
	reward := -e.cfg.QueuePenalty * float64(e.sim.VehiclesOnMap())
	if e.sim.CollisionDetected() {
		reward -= e.cfg.CollisionPenalty
	}

	done := e.sim.Completed()
	truncated := e.sim.DisplayClosed()
	if done {
		e.log.Debug("episode finished",
			"t", e.sim.T(),
			"collision", e.sim.CollisionDetected(),
			"avgWait", e.sim.AverageWaitTime(),
		)
	}
	return state, reward, done, truncated
}

// observe builds the agent-visible state from the primary signal's
// perspective. Without a signal the phase is 0 and counts are empty.
func (e *Environment) observe() State {
	state := State{}
	// Intersections() is already reduced to the active-road set.
	state.JunctionOccupied = len(e.sim.Intersections()) > 0

	signals := e.sim.Signals()
	if len(signals) == 0 {
		return state
	}

	primary := signals[0]
	state.SignalPhase = primary.CurrentPhase()
	groups := primary.RoadGroups()
	state.GroupCounts = make([]int, len(groups))
	for gi, group := range groups {
		for _, road := range group {
			state.GroupCounts[gi] += road.Vehicles().Len()
		}
	}
	return state
}
