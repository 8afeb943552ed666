package sim

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/openjunction/trafficsim/internal/sim"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// counters holds the simulation's OTel instruments. They resolve
// against the global meter provider, which is a no-op unless the
// application registered one.
type counters struct {
	ticks      metric.Int64Counter
	generated  metric.Int64Counter
	trips      metric.Int64Counter
	collisions metric.Int64Counter
}

func newCounters() counters {
	m := meter()
	var c counters
	c.ticks, _ = m.Int64Counter("sim.ticks",
		metric.WithDescription("Simulation ticks executed"))
	c.generated, _ = m.Int64Counter("sim.vehicles.generated",
		metric.WithDescription("Vehicles injected onto the map"))
	c.trips, _ = m.Int64Counter("sim.trips.completed",
		metric.WithDescription("Vehicles that reached the end of their path"))
	c.collisions, _ = m.Int64Counter("sim.collisions",
		metric.WithDescription("Collision events terminating an episode"))
	return c
}

func count(c metric.Int64Counter, n int64) {
	if c != nil {
		c.Add(context.Background(), n)
	}
}
