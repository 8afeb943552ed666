package sim

import "testing"

func TestDefaultCycle(t *testing.T) {
	cycle := DefaultCycle()
	if len(cycle) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(cycle))
	}
	if cycle[0][0] || !cycle[0][1] {
		t.Errorf("unexpected phase 0: %v", cycle[0])
	}
	if !cycle[1][0] || cycle[1][1] {
		t.Errorf("unexpected phase 1: %v", cycle[1])
	}
}

func TestTrafficSignal_NilCycleUsesDefault(t *testing.T) {
	a := testRoad(0, 100)
	b := testRoad(1, 100)
	s := newTrafficSignal([][]*Road{{a}, {b}}, nil, 50, 0.4, 15)

	if s.GreenFor(0) {
		t.Error("expected group 0 red in the initial phase")
	}
	if !s.GreenFor(1) {
		t.Error("expected group 1 green in the initial phase")
	}
}

func TestTrafficSignal_UpdateAdvancesAndWraps(t *testing.T) {
	a := testRoad(0, 100)
	b := testRoad(1, 100)
	s := newTrafficSignal([][]*Road{{a}, {b}}, nil, 50, 0.4, 15)

	s.Update(1.5)
	if s.CurrentPhase() != 1 {
		t.Errorf("expected phase 1, got %d", s.CurrentPhase())
	}
	if !s.GreenFor(0) || s.GreenFor(1) {
		t.Error("expected groups swapped after update")
	}
	if s.PrevUpdateTime != 1.5 {
		t.Errorf("expected PrevUpdateTime 1.5, got %f", s.PrevUpdateTime)
	}

	s.Update(3.0)
	if s.CurrentPhase() != 0 {
		t.Errorf("expected wrap to phase 0, got %d", s.CurrentPhase())
	}
	if s.UpdateCount() != 2 {
		t.Errorf("expected 2 updates, got %d", s.UpdateCount())
	}
}

func TestTrafficSignal_AttachesToRoads(t *testing.T) {
	a := testRoad(0, 100)
	b := testRoad(1, 100)
	s := newTrafficSignal([][]*Road{{a}, {b}}, nil, 50, 0.4, 15)

	if a.signal != s || a.signalGroup != 0 {
		t.Error("road a not attached to group 0")
	}
	if b.signal != s || b.signalGroup != 1 {
		t.Error("road b not attached to group 1")
	}

	groups := s.RoadGroups()
	if len(groups) != 2 || groups[0][0] != a || groups[1][0] != b {
		t.Error("unexpected road groups")
	}
}
