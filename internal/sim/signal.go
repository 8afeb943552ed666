package sim

// Phase is the permitted-direction state of one signal position: a
// green/red flag per road group.
type Phase []bool

// DefaultCycle is the standard two-phase alternating cycle for two
// road groups.
func DefaultCycle() []Phase {
	return []Phase{{false, true}, {true, false}}
}

// TrafficSignal controls groups of roads together. Phase state mutates
// only through Update, which the owning simulation invokes explicitly;
// the tick loop itself never touches it.
type TrafficSignal struct {
	roadGroups [][]*Road
	cycle      []Phase
	cycleIndex int
	updates    int

	SlowDistance float64
	SlowFactor   float64
	StopDistance float64

	// PrevUpdateTime is the simulation time of the last Update call.
	// Baseline policies use it to pace their toggles.
	PrevUpdateTime float64
}

func newTrafficSignal(groups [][]*Road, cycle []Phase, slowDistance, slowFactor, stopDistance float64) *TrafficSignal {
	if len(cycle) == 0 {
		cycle = DefaultCycle()
	}
	s := &TrafficSignal{
		roadGroups:   groups,
		cycle:        cycle,
		SlowDistance: slowDistance,
		SlowFactor:   slowFactor,
		StopDistance: stopDistance,
	}
	for gi, group := range groups {
		for _, r := range group {
			r.setSignal(s, gi)
		}
	}
	return s
}

// Update advances the phase cycle exactly once and records when it
// happened.
func (s *TrafficSignal) Update(t float64) {
	s.cycleIndex = (s.cycleIndex + 1) % len(s.cycle)
	s.updates++
	s.PrevUpdateTime = t
}

// UpdateCount returns how many times the phase has advanced.
func (s *TrafficSignal) UpdateCount() int {
	return s.updates
}

// GreenFor reports whether the given road group currently has green.
func (s *TrafficSignal) GreenFor(group int) bool {
	return s.cycle[s.cycleIndex][group]
}

// CurrentPhase returns the index of the active phase in the cycle.
func (s *TrafficSignal) CurrentPhase() int {
	return s.cycleIndex
}

// RoadGroups returns the roads controlled by this signal, by group.
func (s *TrafficSignal) RoadGroups() [][]*Road {
	return s.roadGroups
}
