// Package network builds road networks onto a simulation: a built-in
// two-way intersection preset and a JSON file loader for custom
// topologies.
package network

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openjunction/trafficsim/internal/geo"
	"github.com/openjunction/trafficsim/internal/sim"
	"github.com/openjunction/trafficsim/pkg/core"
)

// Params configures the two-way intersection preset.
type Params struct {
	ArmLength    float64 // meters from the map edge to the junction center
	VehicleRate  float64 // vehicles per minute per generator
	SlowDistance float64
	SlowFactor   float64
	StopDistance float64
	Cycle        []sim.Phase // nil = default two-phase cycle
}

// DefaultParams returns the standard preset parameters.
func DefaultParams() Params {
	return Params{
		ArmLength:    100,
		VehicleRate:  30,
		SlowDistance: 50,
		SlowFactor:   0.4,
		StopDistance: 15,
	}
}

// Road indices produced by TwoWayIntersection, in creation order.
const (
	WestInbound = iota
	SouthInbound
	EastInbound
	NorthInbound
	EastOutbound
	NorthOutbound
	WestOutbound
	SouthOutbound
)

// TwoWayIntersection builds a single four-arm junction: one inbound and
// one outbound road per arm meeting at the origin, straight-through
// traffic in all four directions, one signal alternating the west-east
// and south-north groups, and the crossing relation between the two
// axes.
func TwoWayIntersection(s *sim.Simulation, p Params) {
	arm := p.ArmLength
	pt := func(x, y float64) core.Position2D { return core.Position2D{X: x, Y: y} }

	s.AddRoad(pt(-arm, 0), pt(0, 0)) // WestInbound
	s.AddRoad(pt(0, -arm), pt(0, 0)) // SouthInbound
	s.AddRoad(pt(arm, 0), pt(0, 0))  // EastInbound
	s.AddRoad(pt(0, arm), pt(0, 0))  // NorthInbound
	s.AddRoad(pt(0, 0), pt(arm, 0))  // EastOutbound
	s.AddRoad(pt(0, 0), pt(0, arm))  // NorthOutbound
	s.AddRoad(pt(0, 0), pt(-arm, 0)) // WestOutbound
	s.AddRoad(pt(0, 0), pt(0, -arm)) // SouthOutbound

	s.AddGenerator(p.VehicleRate, []sim.WeightedPath{
		{Weight: 1, Path: []int{WestInbound, EastOutbound}},
		{Weight: 1, Path: []int{EastInbound, WestOutbound}},
	})
	s.AddGenerator(p.VehicleRate, []sim.WeightedPath{
		{Weight: 1, Path: []int{SouthInbound, NorthOutbound}},
		{Weight: 1, Path: []int{NorthInbound, SouthOutbound}},
	})

	s.AddTrafficSignal(
		[][]int{{WestInbound, EastInbound}, {SouthInbound, NorthInbound}},
		p.Cycle,
		p.SlowDistance, p.SlowFactor, p.StopDistance,
	)

	// All west-east roads conflict with all south-north roads: every
	// movement passes through the shared junction center.
	horizontal := []int{WestInbound, EastInbound, EastOutbound, WestOutbound}
	vertical := []int{SouthInbound, NorthInbound, NorthOutbound, SouthOutbound}
	crossings := make(map[int][]int, len(horizontal))
	for _, h := range horizontal {
		crossings[h] = vertical
	}
	s.AddIntersections(crossings)
}

// Spec is the on-disk JSON description of a custom network. Each road
// entry is a polyline "[[x,y],[x,y],...]"; an entry with more than two
// points becomes a chain of connected straight roads.
type Spec struct {
	Name          string            `json:"name"`
	CRS           string            `json:"crs"` // "" or "EPSG:3857" = meters, "EPSG:4326" = lon/lat
	Roads         []json.RawMessage `json:"roads"`
	Generators    []GeneratorSpec   `json:"generators"`
	Signals       []SignalSpec      `json:"signals"`
	Intersections [][2]int          `json:"intersections"`
	AutoIntersect bool              `json:"autoIntersect"`
}

// GeneratorSpec describes one vehicle generator.
type GeneratorSpec struct {
	Rate  float64    `json:"rate"`
	Paths []PathSpec `json:"paths"`
}

// PathSpec is a weighted road-index sequence.
type PathSpec struct {
	Weight int   `json:"weight"`
	Roads  []int `json:"roads"`
}

// SignalSpec describes one traffic signal over road-index groups.
type SignalSpec struct {
	Groups       [][]int `json:"groups"`
	SlowDistance float64 `json:"slowDistance"`
	SlowFactor   float64 `json:"slowFactor"`
	StopDistance float64 `json:"stopDistance"`
}

// LoadSpec reads and parses a network spec file.
func LoadSpec(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("failed to read network spec: %w", err)
	}
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return Spec{}, fmt.Errorf("failed to parse network spec: %w", err)
	}
	return spec, nil
}

// Build constructs the network described by spec onto the simulation.
// Road indices inside the spec must reference road entries the spec
// itself declares; out-of-range indices and malformed polylines are
// rejected before anything is built. A multi-point road expands into a
// chain of connected segments: a generator path runs the whole chain,
// a signal attaches to the chain's last segment, and a declared
// crossing covers every segment pair.
func Build(s *sim.Simulation, spec Spec) error {
	if err := validate(spec); err != nil {
		return err
	}

	project := strings.EqualFold(spec.CRS, "EPSG:4326")
	lines := make([]core.Polyline, len(spec.Roads))
	for i, raw := range spec.Roads {
		line, err := geo.ParsePolyline(string(raw))
		if err != nil {
			return fmt.Errorf("network spec %q: road %d: %w", spec.Name, i, err)
		}
		if project {
			for j, p := range line {
				line[j] = geo.ProjectLonLat(p.X, p.Y)
			}
		}
		lines[i] = line
	}

	// chains maps a spec road entry to the sim road indices it produced.
	chains := make([][]int, len(lines))
	for i, line := range lines {
		chains[i] = s.AddRoads(line)
	}

	for _, gen := range spec.Generators {
		paths := make([]sim.WeightedPath, len(gen.Paths))
		for i, p := range gen.Paths {
			var path []int
			for _, r := range p.Roads {
				path = append(path, chains[r]...)
			}
			paths[i] = sim.WeightedPath{Weight: p.Weight, Path: path}
		}
		s.AddGenerator(gen.Rate, paths)
	}

	for _, signal := range spec.Signals {
		groups := make([][]int, len(signal.Groups))
		for gi, group := range signal.Groups {
			for _, r := range group {
				// Slow and stop zones live at the road's end, so the
				// signal meters the final segment of the chain.
				chain := chains[r]
				groups[gi] = append(groups[gi], chain[len(chain)-1])
			}
		}
		s.AddTrafficSignal(groups, nil,
			signal.SlowDistance, signal.SlowFactor, signal.StopDistance)
	}

	if spec.AutoIntersect {
		if err := s.ComputeIntersections(); err != nil {
			return fmt.Errorf("failed to derive intersections: %w", err)
		}
	}
	for _, pair := range spec.Intersections {
		for _, a := range chains[pair[0]] {
			s.AddIntersections(map[int][]int{a: chains[pair[1]]})
		}
	}
	return nil
}

// validate checks every road index referenced by the spec.
func validate(spec Spec) error {
	n := len(spec.Roads)
	check := func(index int, where string) error {
		if index < 0 || index >= n {
			return fmt.Errorf("network spec %q: road index %d out of range in %s (have %d roads)",
				spec.Name, index, where, n)
		}
		return nil
	}

	for _, gen := range spec.Generators {
		for _, p := range gen.Paths {
			if len(p.Roads) == 0 {
				return fmt.Errorf("network spec %q: empty generator path", spec.Name)
			}
			for _, r := range p.Roads {
				if err := check(r, "generator path"); err != nil {
					return err
				}
			}
		}
	}
	for _, signal := range spec.Signals {
		for _, group := range signal.Groups {
			for _, r := range group {
				if err := check(r, "signal group"); err != nil {
					return err
				}
			}
		}
	}
	for _, pair := range spec.Intersections {
		if err := check(pair[0], "intersections"); err != nil {
			return err
		}
		if err := check(pair[1], "intersections"); err != nil {
			return err
		}
	}
	return nil
}
