package env

import "github.com/openjunction/trafficsim/internal/sim"

// PolicyFunc decides whether to toggle the signal given the current
// simulation and observed state. Baselines pace themselves through the
// signal's PrevUpdateTime.
type PolicyFunc func(s *sim.Simulation, state State) bool

// minToggleInterval is the seconds of simulated time a baseline policy
// waits between signal toggles.
const minToggleInterval = 15.0

// FixedCycle toggles whenever enough time elapsed since the previous
// toggle, regardless of traffic.
func FixedCycle(s *sim.Simulation, state State) bool {
	signal := s.Signals()[0]
	if s.T()-signal.PrevUpdateTime < minToggleInterval {
		return false
	}
	signal.PrevUpdateTime = s.T()
	return true
}

// LongestQueueFirst toggles when the red groups hold more vehicles than
// the green ones, paced by the same minimum interval.
func LongestQueueFirst(s *sim.Simulation, state State) bool {
	signal := s.Signals()[0]
	if s.T()-signal.PrevUpdateTime < minToggleInterval {
		return false
	}
	if len(state.GroupCounts) < 2 {
		return false
	}

	toggle := false
	if signal.GreenFor(0) && state.GroupCounts[0] < state.GroupCounts[1] {
		toggle = true
	} else if !signal.GreenFor(0) && state.GroupCounts[0] > state.GroupCounts[1] {
		toggle = true
	}
	if toggle {
		signal.PrevUpdateTime = s.T()
	}
	return toggle
}

// Policies maps the baseline names used on the command line to their
// implementations.
var Policies = map[string]PolicyFunc{
	"fc":  FixedCycle,
	"lqf": LongestQueueFirst,
}
