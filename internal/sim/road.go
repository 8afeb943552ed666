package sim

import (
	"github.com/openjunction/trafficsim/internal/geo"
	"github.com/openjunction/trafficsim/internal/queue"
	"github.com/openjunction/trafficsim/pkg/core"
)

// Road is an ordered queue of vehicles traveling along a fixed straight
// segment. The front of the queue is the lead vehicle, nearest the
// road's terminal end. Identity is the immutable index assigned at
// creation; geometry is fixed at construction.
type Road struct {
	index    int
	geometry geo.Segment
	length   float64
	vehicles *queue.Queue[*Vehicle]

	signal      *TrafficSignal
	signalGroup int
}

func newRoad(index int, segment geo.Segment) *Road {
	return &Road{
		index:    index,
		geometry: segment,
		length:   segment.Length(),
		vehicles: queue.New[*Vehicle](),
	}
}

// Index returns the road's stable identity.
func (r *Road) Index() int {
	return r.index
}

// Length returns the road length in meters.
func (r *Road) Length() float64 {
	return r.length
}

// Geometry returns the road's world-space segment.
func (r *Road) Geometry() geo.Segment {
	return r.geometry
}

// Vehicles exposes the road's ordered vehicle queue.
func (r *Road) Vehicles() *queue.Queue[*Vehicle] {
	return r.vehicles
}

// PositionAt projects a longitudinal offset to world coordinates.
func (r *Road) PositionAt(x float64) core.Position2D {
	return r.geometry.PositionAt(x)
}

func (r *Road) setSignal(s *TrafficSignal, group int) {
	r.signal = s
	r.signalGroup = group
}

// Update advances every vehicle on the road by dt, each following the
// vehicle ahead of it, then applies the attached signal's slow/stop
// zones to the lead vehicle when the light is red.
func (r *Road) Update(dt, t float64) {
	items := r.vehicles.Items()
	if len(items) == 0 {
		return
	}

	items[0].Update(dt, nil)
	for i := 1; i < len(items); i++ {
		items[i].Update(dt, items[i-1])
	}

	if r.signal == nil {
		return
	}

	lead := items[0]
	if r.signal.GreenFor(r.signalGroup) {
		lead.Go()
		for _, v := range items {
			v.Unslow()
		}
		return
	}

	if lead.X >= r.length-r.signal.SlowDistance {
		lead.SlowTo(r.signal.SlowFactor * lead.MaxSpeed)
	}
	// Stop only inside the near half of the stop zone so a vehicle that
	// already passed the line keeps clearing the junction.
	if lead.X >= r.length-r.signal.StopDistance &&
		lead.X <= r.length-r.signal.StopDistance/2 {
		lead.Stop()
	}
}
