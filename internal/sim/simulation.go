package sim

import (
	"log/slog"
	"math/rand/v2"

	"github.com/openjunction/trafficsim/internal/geo"
	"github.com/openjunction/trafficsim/pkg/core"
)

// Display is an optional rendering collaborator. It is notified once
// per tick and may report that the user closed it, which is the only
// external cancellation signal and is checked only at tick boundaries.
type Display interface {
	Update()
	Closed() bool
}

// TripSink receives one record per vehicle that completes its journey.
// Implemented by storage adapters; the core never blocks on it.
type TripSink interface {
	RecordTrip(trip core.Trip)
}

// Config holds the simulation parameters.
type Config struct {
	Dt              float64 // fixed tick duration, seconds
	CollisionRadius float64 // world-space distance treated as a crash
	ActionTicks     int     // tick budget run after a signal toggle
	GenerationLimit int     // vehicle generation cap, 0 = unlimited
	Seed            uint64  // RNG seed for vehicle generation
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		Dt:              1.0 / 60.0,
		CollisionRadius: 2.0,
		ActionTicks:     200,
		GenerationLimit: 0,
		Seed:            1,
	}
}

// CollisionPair describes two vehicles found within collision radius.
type CollisionPair struct {
	RoadA, RoadB         int
	PositionA, PositionB core.Position2D
	Distance             float64
}

// Simulation owns all roads, generators and traffic signals and drives
// the fixed-timestep update loop. A single instance holds all mutable
// state; nothing here is safe for concurrent use, and nothing needs to
// be: a tick is sequential and deterministic given its RNG draws.
type Simulation struct {
	cfg  Config
	t    float64
	tick uint64

	roads      []*Road
	generators []*VehicleGenerator
	signals    []*TrafficSignal

	collisionDetected bool
	vehiclesGenerated int
	vehiclesOnMap     int

	// activeRoads is exactly the set of roads with a non-empty queue,
	// re-established incrementally every tick. It bounds per-tick work:
	// the full road slice is never scanned during an update.
	activeRoads map[int]struct{}

	// intersections is the static may-cross topology between road
	// indices, fixed at network-build time.
	intersections map[int]map[int]struct{}

	waitTimes []float64

	rng     *rand.Rand
	display Display
	sink    TripSink
	log     *slog.Logger
	metrics counters
}

// New creates an empty simulation. A nil logger falls back to
// slog.Default.
func New(cfg Config, logger *slog.Logger) *Simulation {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulation{
		cfg:           cfg,
		activeRoads:   make(map[int]struct{}),
		intersections: make(map[int]map[int]struct{}),
		rng:           rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		log:           logger,
		metrics:       newCounters(),
	}
}

// T returns the elapsed simulation time in seconds.
func (s *Simulation) T() float64 { return s.t }

// Dt returns the fixed tick duration.
func (s *Simulation) Dt() float64 { return s.cfg.Dt }

// Ticks returns the number of completed ticks.
func (s *Simulation) Ticks() uint64 { return s.tick }

// Roads returns the road arena, indexed by road identity.
func (s *Simulation) Roads() []*Road { return s.roads }

// Signals returns the registered traffic signals in creation order.
func (s *Simulation) Signals() []*TrafficSignal { return s.signals }

// CollisionDetected reports whether a collision terminated this run.
// The flag is sticky: once set it never resets within a run.
func (s *Simulation) CollisionDetected() bool { return s.collisionDetected }

// VehiclesGenerated returns the total vehicles injected so far.
func (s *Simulation) VehiclesGenerated() int { return s.vehiclesGenerated }

// VehiclesOnMap returns the vehicles currently on the road network.
func (s *Simulation) VehiclesOnMap() int { return s.vehiclesOnMap }

// TripsCompleted returns the number of completed-journey samples.
func (s *Simulation) TripsCompleted() int { return len(s.waitTimes) }

// SetDisplay attaches an optional display collaborator.
func (s *Simulation) SetDisplay(d Display) { s.display = d }

// SetTripSink attaches an optional completed-trip recorder.
func (s *Simulation) SetTripSink(sink TripSink) { s.sink = sink }

// Completed reports whether a terminal state is reached: a collision
// was detected, or the generation limit is exhausted and the map is
// empty.
func (s *Simulation) Completed() bool {
	reachedLimit := s.cfg.GenerationLimit > 0 &&
		s.vehiclesGenerated == s.cfg.GenerationLimit &&
		s.vehiclesOnMap == 0
	return s.collisionDetected || reachedLimit
}

// NonEmptyRoads returns a copy of the active-road set.
func (s *Simulation) NonEmptyRoads() map[int]struct{} {
	out := make(map[int]struct{}, len(s.activeRoads))
	for i := range s.activeRoads {
		out[i] = struct{}{}
	}
	return out
}

// Intersections returns the static topology reduced to active roads.
func (s *Simulation) Intersections() map[int]map[int]struct{} {
	return ActiveIntersections(s.intersections, s.activeRoads)
}

// AllIntersections returns a copy of the full static crossing topology,
// independent of road occupancy. Network builders verify their wiring
// through it.
func (s *Simulation) AllIntersections() map[int]map[int]struct{} {
	out := make(map[int]map[int]struct{}, len(s.intersections))
	for road, crossing := range s.intersections {
		set := make(map[int]struct{}, len(crossing))
		for other := range crossing {
			set[other] = struct{}{}
		}
		out[road] = set
	}
	return out
}

// AverageWaitTime returns the mean wait time over vehicles that
// completed their journey. Zero when no vehicle has completed yet.
func (s *Simulation) AverageWaitTime() float64 {
	if len(s.waitTimes) == 0 {
		return 0
	}
	total := 0.0
	for _, w := range s.waitTimes {
		total += w
	}
	return total / float64(len(s.waitTimes))
}

// AddRoad registers a road from start to end and returns its index.
func (s *Simulation) AddRoad(start, end core.Position2D) int {
	index := len(s.roads)
	s.roads = append(s.roads, newRoad(index, geo.Segment{Start: start, End: end}))
	return index
}

// AddRoads registers a connected chain of roads along a polyline, one
// road per consecutive point pair, and returns the created indices in
// order. A polyline with fewer than two points creates nothing.
func (s *Simulation) AddRoads(line core.Polyline) []int {
	segments := geo.SegmentsFromPolyline(line)
	indices := make([]int, 0, len(segments))
	for _, seg := range segments {
		indices = append(indices, s.AddRoad(seg.Start, seg.End))
	}
	return indices
}

// AddGenerator registers a vehicle generator. Each path's first road
// index must reference an existing road; a bad index panics, network
// construction errors are programmer errors.
func (s *Simulation) AddGenerator(rate float64, paths []WeightedPath) {
	inbound := make(map[int]*Road, len(paths))
	for _, p := range paths {
		road := s.roads[p.Path[0]]
		inbound[road.Index()] = road
	}
	seed := s.rng.Uint64()
	gen := newVehicleGenerator(rate, paths, inbound, s.cfg.GenerationLimit, rand.New(rand.NewPCG(seed, seed<<1|1)))
	s.generators = append(s.generators, gen)
}

// AddTrafficSignal registers a signal over the given road-index groups.
// A nil cycle uses the default two-phase alternating cycle.
func (s *Simulation) AddTrafficSignal(roadGroups [][]int, cycle []Phase, slowDistance, slowFactor, stopDistance float64) {
	groups := make([][]*Road, len(roadGroups))
	for gi, indices := range roadGroups {
		groups[gi] = make([]*Road, len(indices))
		for ri, index := range indices {
			groups[gi][ri] = s.roads[index]
		}
	}
	s.signals = append(s.signals, newTrafficSignal(groups, cycle, slowDistance, slowFactor, stopDistance))
}

// AddIntersections merges explicit crossing relations into the static
// topology. The relation is symmetric; both directions are recorded.
func (s *Simulation) AddIntersections(crossings map[int][]int) {
	for road, others := range crossings {
		for _, other := range others {
			s.addIntersection(road, other)
		}
	}
}

func (s *Simulation) addIntersection(a, b int) {
	if s.intersections[a] == nil {
		s.intersections[a] = make(map[int]struct{})
	}
	if s.intersections[b] == nil {
		s.intersections[b] = make(map[int]struct{})
	}
	s.intersections[a][b] = struct{}{}
	s.intersections[b][a] = struct{}{}
}

// ComputeIntersections derives the static topology from road geometry:
// every pair of roads whose segments cross somewhere other than a
// shared endpoint is recorded as a potential conflict.
func (s *Simulation) ComputeIntersections() error {
	for i := 0; i < len(s.roads); i++ {
		for j := i + 1; j < len(s.roads); j++ {
			crosses, err := geo.Crosses(s.roads[i].Geometry(), s.roads[j].Geometry())
			if err != nil {
				return err
			}
			if crosses {
				s.addIntersection(i, j)
			}
		}
	}
	return nil
}

// ToggleSignals advances every registered signal's phase once.
func (s *Simulation) ToggleSignals() {
	for _, signal := range s.signals {
		signal.Update(s.t)
	}
}

// Update performs one tick in strict order: motion on active roads,
// vehicle generation up to the cap, lead-vehicle hand-off/removal with
// active-set maintenance, collision detection over active intersecting
// pairs, clock advance, display notification. On a detected collision
// the tick ends immediately; the run is terminal.
func (s *Simulation) Update() {
	// 1. Advance motion on active roads only.
	for i := range s.activeRoads {
		s.roads[i].Update(s.cfg.Dt, s.t)
	}

	// 2. Vehicle generation, hard-stopped at the cap.
	for _, gen := range s.generators {
		if s.cfg.GenerationLimit > 0 && s.vehiclesGenerated == s.cfg.GenerationLimit {
			break
		}
		if roadIndex, spawned := gen.Update(s.t, s.vehiclesGenerated); spawned {
			s.vehiclesGenerated++
			s.vehiclesOnMap++
			s.activeRoads[roadIndex] = struct{}{}
			count(s.metrics.generated, 1)
		}
	}

	// 3. Boundary crossing: only the lead vehicle of each active road
	// can cross, by the non-overtaking invariant.
	newActive := make(map[int]struct{})
	emptied := make(map[int]struct{})
	for i := range s.activeRoads {
		road := s.roads[i]
		lead, ok := road.vehicles.Peek()
		if !ok || lead.X < road.length {
			continue
		}
		road.vehicles.Pop()
		if lead.PathIndex+1 < len(lead.Path) {
			// Hand-off: ownership moves to the next road in the path,
			// position resets to its start.
			lead.PathIndex++
			lead.X = 0
			next := lead.Path[lead.PathIndex]
			s.roads[next].vehicles.Push(lead)
			newActive[next] = struct{}{}
		} else {
			// Path exhausted: the vehicle leaves the map and
			// contributes a wait-time sample.
			s.vehiclesOnMap--
			wait := lead.TotalWaitingTime(s.t)
			s.waitTimes = append(s.waitTimes, wait)
			count(s.metrics.trips, 1)
			if s.sink != nil {
				s.sink.RecordTrip(core.Trip{
					SpawnedAt:   lead.SpawnTime,
					CompletedAt: s.t,
					WaitTime:    wait,
					PathLength:  len(lead.Path),
					OriginRoad:  lead.Path[0],
				})
			}
		}
		if road.vehicles.Empty() {
			emptied[i] = struct{}{}
		}
	}
	for i := range emptied {
		delete(s.activeRoads, i)
	}
	for i := range newActive {
		s.activeRoads[i] = struct{}{}
	}

	// 4. Collision detection over the post-motion, post-hand-off state.
	if pairs := s.DetectCollisions(false); len(pairs) > 0 {
		s.collisionDetected = true
		count(s.metrics.collisions, 1)
		s.log.Warn("collision detected, terminating run",
			"t", s.t,
			"roadA", pairs[0].RoadA,
			"roadB", pairs[0].RoadB,
			"distance", pairs[0].Distance,
		)
		return
	}

	// 5. Clock advance.
	s.t += s.cfg.Dt
	s.tick++
	count(s.metrics.ticks, 1)

	// 6. Display notification.
	if s.display != nil {
		s.display.Update()
	}
}

// DetectCollisions scans vehicles on active intersecting road pairs for
// world-space proximity below the collision radius. With findAll false
// the scan short-circuits on the first hit, which is all episode
// termination needs; findAll true returns every distinct pair for
// diagnostics.
func (s *Simulation) DetectCollisions(findAll bool) []CollisionPair {
	var pairs []CollisionPair
	var seen map[[2]int]struct{}
	if findAll {
		seen = make(map[[2]int]struct{})
	}

	for roadIndex, crossing := range s.Intersections() {
		road := s.roads[roadIndex]
		for _, v := range road.vehicles.Items() {
			pos := road.PositionAt(v.X)
			for otherIndex := range crossing {
				other := s.roads[otherIndex]
				for _, w := range other.vehicles.Items() {
					otherPos := other.PositionAt(w.X)
					d := pos.DistanceTo(otherPos)
					if d >= s.cfg.CollisionRadius {
						continue
					}
					if findAll {
						key := [2]int{min(roadIndex, otherIndex), max(roadIndex, otherIndex)}
						if _, dup := seen[key]; dup {
							continue
						}
						seen[key] = struct{}{}
					}
					pairs = append(pairs, CollisionPair{
						RoadA:     roadIndex,
						RoadB:     otherIndex,
						PositionA: pos,
						PositionB: otherPos,
						Distance:  d,
					})
					if !findAll {
						return pairs
					}
				}
			}
		}
	}
	return pairs
}

// DisplayClosed reports whether an attached display was closed by the
// user. Always false without a display.
func (s *Simulation) DisplayClosed() bool {
	return s.display != nil && s.display.Closed()
}

// loop performs up to n updates, stopping early on completion or
// display close.
func (s *Simulation) loop(n int) {
	for i := 0; i < n; i++ {
		s.Update()
		if s.Completed() || s.DisplayClosed() {
			return
		}
	}
}

// Run is the transition function the RL wrapper calls once per
// environment step. A truthy action toggles the signals, runs the
// configured post-action tick budget, then toggles back before the
// plain n-tick run. Short-circuits as soon as the run completes or the
// display closes.
func (s *Simulation) Run(action bool, n int) {
	if action {
		s.ToggleSignals()
		s.loop(s.cfg.ActionTicks)
		if s.Completed() || s.DisplayClosed() {
			return
		}
		s.ToggleSignals()
	}
	s.loop(n)
}
