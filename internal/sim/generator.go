package sim

import (
	"math/rand/v2"
)

// WeightedPath is one spawn option for a generator: a fixed ordered
// sequence of road indices with a selection weight.
type WeightedPath struct {
	Weight int
	Path   []int
}

// VehicleGenerator stochastically injects vehicles onto its inbound
// roads. The arrival process is an opaque state machine: a pre-picked
// upcoming vehicle, a minimum inter-arrival interval derived from the
// configured rate, and a room check on the receiving road.
type VehicleGenerator struct {
	rate    float64 // vehicles per minute
	paths   []WeightedPath
	inbound map[int]*Road
	limit   int // generation cap shared with the simulation, 0 = unlimited
	rng     *rand.Rand

	lastSpawn float64
	upcoming  *Vehicle
}

func newVehicleGenerator(rate float64, paths []WeightedPath, inbound map[int]*Road, limit int, rng *rand.Rand) *VehicleGenerator {
	g := &VehicleGenerator{
		rate:    rate,
		paths:   paths,
		inbound: inbound,
		limit:   limit,
		rng:     rng,
	}
	g.upcoming = g.pick(0)
	return g
}

// pick draws the next vehicle's path by weighted random selection.
func (g *VehicleGenerator) pick(t float64) *Vehicle {
	total := 0
	for _, p := range g.paths {
		total += p.Weight
	}
	n := g.rng.IntN(total) + 1
	for _, p := range g.paths {
		n -= p.Weight
		if n <= 0 {
			return NewVehicle(p.Path, t)
		}
	}
	return NewVehicle(g.paths[len(g.paths)-1].Path, t)
}

// Update decides whether a vehicle spawns this tick. It returns the
// index of the road that received the vehicle and true on a spawn.
// generated is the total vehicle count across all generators; at or
// past the cap the generator goes quiet.
func (g *VehicleGenerator) Update(t float64, generated int) (int, bool) {
	if g.limit > 0 && generated >= g.limit {
		return 0, false
	}

	if t-g.lastSpawn < 60.0/g.rate {
		return 0, false
	}

	road := g.inbound[g.upcoming.Path[0]]
	if last, ok := road.Vehicles().Last(); ok {
		// No room until the newest vehicle has cleared the entry zone.
		if last.X < g.upcoming.MinGap+g.upcoming.Length {
			return 0, false
		}
	}

	g.upcoming.SpawnTime = t
	road.Vehicles().Push(g.upcoming)
	g.lastSpawn = t
	g.upcoming = g.pick(t)
	return road.Index(), true
}
