package sim

import (
	"math/rand/v2"
	"testing"
)

func testGenerator(rate float64, road *Road, seed uint64) *VehicleGenerator {
	paths := []WeightedPath{{Weight: 1, Path: []int{road.Index()}}}
	inbound := map[int]*Road{road.Index(): road}
	return newVehicleGenerator(rate, paths, inbound, 0, rand.New(rand.NewPCG(seed, seed+1)))
}

func TestGenerator_PrepicksUpcomingVehicle(t *testing.T) {
	road := testRoad(0, 100)
	g := testGenerator(60, road, 1)

	if g.upcoming == nil {
		t.Fatal("expected upcoming vehicle at construction")
	}
	if g.upcoming.Path[0] != 0 {
		t.Errorf("expected path starting at road 0, got %v", g.upcoming.Path)
	}
}

func TestGenerator_RespectsInterArrivalInterval(t *testing.T) {
	road := testRoad(0, 100)
	g := testGenerator(60, road, 1) // 60/min = 1 per second

	// t=0 satisfies t-lastSpawn >= 1? lastSpawn=0, so no spawn before 1s.
	if _, spawned := g.Update(0.5, 0); spawned {
		t.Error("expected no spawn before the interval elapsed")
	}

	index, spawned := g.Update(1.0, 0)
	if !spawned {
		t.Fatal("expected spawn at the interval boundary")
	}
	if index != 0 {
		t.Errorf("expected spawn on road 0, got %d", index)
	}
	if road.Vehicles().Len() != 1 {
		t.Errorf("expected 1 vehicle on road, got %d", road.Vehicles().Len())
	}

	if _, spawned := g.Update(1.5, 1); spawned {
		t.Error("expected no spawn until another interval elapsed")
	}
}

func TestGenerator_SpawnSetsSpawnTime(t *testing.T) {
	road := testRoad(0, 100)
	g := testGenerator(60, road, 1)

	g.Update(2.0, 0)
	v, ok := road.Vehicles().Peek()
	if !ok {
		t.Fatal("expected spawned vehicle")
	}
	if v.SpawnTime != 2.0 {
		t.Errorf("expected spawn time 2.0, got %f", v.SpawnTime)
	}
}

func TestGenerator_BlocksWhenEntryOccupied(t *testing.T) {
	road := testRoad(0, 100)
	g := testGenerator(60, road, 1)

	// Newest vehicle still inside the entry zone (MinGap+Length = 8).
	blocker := NewVehicle([]int{0}, 0)
	blocker.X = 5
	road.Vehicles().Push(blocker)

	if _, spawned := g.Update(10, 1); spawned {
		t.Error("expected spawn blocked by occupied entry zone")
	}

	blocker.X = 9
	if _, spawned := g.Update(11, 1); !spawned {
		t.Error("expected spawn once the entry zone cleared")
	}
}

func TestGenerator_QuietAtGenerationCap(t *testing.T) {
	road := testRoad(0, 100)
	paths := []WeightedPath{{Weight: 1, Path: []int{0}}}
	inbound := map[int]*Road{0: road}
	g := newVehicleGenerator(60, paths, inbound, 2, rand.New(rand.NewPCG(1, 2)))

	if _, spawned := g.Update(5, 2); spawned {
		t.Error("expected no spawn at the generation cap")
	}
	if _, spawned := g.Update(6, 1); !spawned {
		t.Error("expected spawn below the cap")
	}
}

func TestGenerator_WeightedPickCoversAllPaths(t *testing.T) {
	a := testRoad(0, 100)
	b := testRoad(1, 100)
	paths := []WeightedPath{
		{Weight: 1, Path: []int{0}},
		{Weight: 3, Path: []int{1}},
	}
	inbound := map[int]*Road{0: a, 1: b}
	g := newVehicleGenerator(10, paths, inbound, 0, rand.New(rand.NewPCG(7, 8)))

	counts := map[int]int{}
	for i := 0; i < 1000; i++ {
		v := g.pick(0)
		counts[v.Path[0]]++
	}
	if counts[0] == 0 || counts[1] == 0 {
		t.Errorf("expected both paths selected, got %v", counts)
	}
	if counts[1] <= counts[0] {
		t.Errorf("expected the heavier path picked more often, got %v", counts)
	}
}

func TestGenerator_DeterministicWithSameSeed(t *testing.T) {
	pickSequence := func(seed uint64) []int {
		a := testRoad(0, 100)
		b := testRoad(1, 100)
		paths := []WeightedPath{
			{Weight: 1, Path: []int{0}},
			{Weight: 1, Path: []int{1}},
		}
		g := newVehicleGenerator(10, paths, map[int]*Road{0: a, 1: b}, 0,
			rand.New(rand.NewPCG(seed, seed+1)))
		out := make([]int, 0, 50)
		for i := 0; i < 50; i++ {
			out = append(out, g.pick(0).Path[0])
		}
		return out
	}

	first := pickSequence(42)
	second := pickSequence(42)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sequences diverged at %d: %d vs %d", i, first[i], second[i])
		}
	}
}
