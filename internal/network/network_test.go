package network

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openjunction/trafficsim/internal/sim"
)

func newSim(t *testing.T) *sim.Simulation {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.Seed = 1
	return sim.New(cfg, nil)
}

func rawRoads(lines ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(lines))
	for i, l := range lines {
		out[i] = json.RawMessage(l)
	}
	return out
}

func TestTwoWayIntersection_Layout(t *testing.T) {
	s := newSim(t)
	TwoWayIntersection(s, DefaultParams())

	roads := s.Roads()
	if len(roads) != 8 {
		t.Fatalf("expected 8 roads, got %d", len(roads))
	}
	for i, r := range roads {
		if r.Index() != i {
			t.Errorf("road %d has index %d", i, r.Index())
		}
		if r.Length() != 100 {
			t.Errorf("road %d: expected length 100, got %f", i, r.Length())
		}
	}

	// Inbound arms end at the junction center, outbound arms start there.
	if g := roads[WestInbound].Geometry(); g.End.X != 0 || g.End.Y != 0 {
		t.Errorf("west inbound must end at the origin, got %+v", g.End)
	}
	if g := roads[EastOutbound].Geometry(); g.Start.X != 0 || g.Start.Y != 0 {
		t.Errorf("east outbound must start at the origin, got %+v", g.Start)
	}

	signals := s.Signals()
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	groups := signals[0].RoadGroups()
	if len(groups) != 2 {
		t.Fatalf("expected 2 signal groups, got %d", len(groups))
	}
	if groups[0][0].Index() != WestInbound || groups[0][1].Index() != EastInbound {
		t.Errorf("unexpected west-east group: %d, %d", groups[0][0].Index(), groups[0][1].Index())
	}
	if groups[1][0].Index() != SouthInbound || groups[1][1].Index() != NorthInbound {
		t.Errorf("unexpected south-north group: %d, %d", groups[1][0].Index(), groups[1][1].Index())
	}

	if len(s.NonEmptyRoads()) != 0 {
		t.Error("expected no vehicles right after building")
	}
}

func TestTwoWayIntersection_CrossingsLinkAxes(t *testing.T) {
	s := newSim(t)
	TwoWayIntersection(s, DefaultParams())

	crossings := s.AllIntersections()
	if _, ok := crossings[WestInbound][SouthInbound]; !ok {
		t.Error("west inbound must conflict with south inbound")
	}
	if _, ok := crossings[SouthInbound][WestInbound]; !ok {
		t.Error("crossing relation must be symmetric")
	}
	if _, ok := crossings[WestInbound][EastInbound]; ok {
		t.Error("roads on the same axis must not conflict")
	}
}

func TestTwoWayIntersection_ArmLengthOverride(t *testing.T) {
	s := newSim(t)
	p := DefaultParams()
	p.ArmLength = 250
	TwoWayIntersection(s, p)

	for i, r := range s.Roads() {
		if r.Length() != 250 {
			t.Errorf("road %d: expected length 250, got %f", i, r.Length())
		}
	}
}

func TestLoadSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "net.json")
	data := `{
		"name": "t-junction",
		"roads": [[[0,0],[100,0]],[[50,-50],[50,0]]],
		"generators": [{"rate": 20, "paths": [{"weight": 1, "roads": [0]}]}],
		"signals": [{"groups": [[1]], "slowDistance": 40, "slowFactor": 0.5, "stopDistance": 10}],
		"intersections": [[0,1]]
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	spec, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "t-junction", spec.Name)
	require.Len(t, spec.Roads, 2)
	assert.JSONEq(t, "[[0,0],[100,0]]", string(spec.Roads[0]))
	require.Len(t, spec.Generators, 1)
	assert.Equal(t, 20.0, spec.Generators[0].Rate)
	require.Len(t, spec.Signals, 1)
	assert.Equal(t, 40.0, spec.Signals[0].SlowDistance)
	require.Len(t, spec.Intersections, 1)
}

func TestLoadSpec_MissingFile(t *testing.T) {
	_, err := LoadSpec("/nonexistent/net.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read network spec")
}

func TestLoadSpec_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := LoadSpec(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse network spec")
}

func TestBuild(t *testing.T) {
	s := newSim(t)
	spec := Spec{
		Name:  "line",
		Roads: rawRoads("[[0,0],[100,0]]", "[[100,0],[200,0]]"),
		Generators: []GeneratorSpec{
			{Rate: 10, Paths: []PathSpec{{Weight: 1, Roads: []int{0, 1}}}},
		},
		Signals: []SignalSpec{
			{Groups: [][]int{{0}}, SlowDistance: 50, SlowFactor: 0.4, StopDistance: 15},
		},
	}

	require.NoError(t, Build(s, spec))
	require.Len(t, s.Roads(), 2)
	assert.Equal(t, 100.0, s.Roads()[0].Length())
	require.Len(t, s.Signals(), 1)
	assert.Equal(t, 0, s.Signals()[0].RoadGroups()[0][0].Index())
}

func TestBuild_ExplicitIntersections(t *testing.T) {
	s := newSim(t)
	spec := Spec{
		Roads:         rawRoads("[[-10,0],[10,0]]", "[[0,-10],[0,10]]"),
		Intersections: [][2]int{{0, 1}},
	}

	require.NoError(t, Build(s, spec))
	_, ok := s.AllIntersections()[0][1]
	assert.True(t, ok, "declared crossing must be registered")
	_, ok = s.AllIntersections()[1][0]
	assert.True(t, ok, "crossing relation must be symmetric")
}

func TestBuild_AutoIntersect(t *testing.T) {
	s := newSim(t)
	spec := Spec{
		Roads: rawRoads(
			"[[-10,0],[10,0]]",
			"[[0,-10],[0,10]]",
			"[[20,20],[30,20]]",
		),
		AutoIntersect: true,
	}

	require.NoError(t, Build(s, spec))
	_, ok := s.AllIntersections()[0][1]
	assert.True(t, ok, "crossing roads must be detected")
	assert.Empty(t, s.AllIntersections()[2], "disjoint road has no crossings")
}

func TestBuild_PolylineRoadExpandsToChain(t *testing.T) {
	s := newSim(t)
	spec := Spec{
		Name:  "bend",
		Roads: rawRoads("[[0,0],[100,0],[100,50]]"),
		Generators: []GeneratorSpec{
			{Rate: 10, Paths: []PathSpec{{Weight: 1, Roads: []int{0}}}},
		},
		Signals: []SignalSpec{
			{Groups: [][]int{{0}}, SlowDistance: 50, SlowFactor: 0.4, StopDistance: 15},
		},
	}

	require.NoError(t, Build(s, spec))
	require.Len(t, s.Roads(), 2)
	assert.Equal(t, 100.0, s.Roads()[0].Length())
	assert.Equal(t, 50.0, s.Roads()[1].Length())
	// The chain is connected: segment 1 starts where segment 0 ends.
	assert.Equal(t, s.Roads()[0].Geometry().End, s.Roads()[1].Geometry().Start)
	// The signal meters the end of the chain, not its first segment.
	require.Len(t, s.Signals(), 1)
	assert.Equal(t, 1, s.Signals()[0].RoadGroups()[0][0].Index())
}

func TestBuild_RejectsBadPolyline(t *testing.T) {
	s := newSim(t)
	spec := Spec{Name: "bad", Roads: rawRoads("[[0,0]]")}

	err := Build(s, spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 points")
	assert.Empty(t, s.Roads(), "nothing may be built when a road is malformed")
}

func TestBuild_ProjectsLonLat(t *testing.T) {
	s := newSim(t)
	// Roughly 111 km of longitude at the equator.
	spec := Spec{
		CRS:   "EPSG:4326",
		Roads: rawRoads("[[0,0],[1,0]]"),
	}

	require.NoError(t, Build(s, spec))
	length := s.Roads()[0].Length()
	assert.InDelta(t, 111320, length, 500)
}

func TestBuild_RejectsBadIndices(t *testing.T) {
	roads := rawRoads("[[0,0],[100,0]]")

	cases := []struct {
		name string
		spec Spec
		want string
	}{
		{
			name: "generator path out of range",
			spec: Spec{Roads: roads, Generators: []GeneratorSpec{
				{Rate: 10, Paths: []PathSpec{{Weight: 1, Roads: []int{0, 5}}}},
			}},
			want: "generator path",
		},
		{
			name: "empty generator path",
			spec: Spec{Roads: roads, Generators: []GeneratorSpec{
				{Rate: 10, Paths: []PathSpec{{Weight: 1}}},
			}},
			want: "empty generator path",
		},
		{
			name: "signal group out of range",
			spec: Spec{Roads: roads, Signals: []SignalSpec{
				{Groups: [][]int{{-1}}},
			}},
			want: "signal group",
		},
		{
			name: "intersection out of range",
			spec: Spec{Roads: roads, Intersections: [][2]int{{0, 3}}},
			want: "intersections",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newSim(t)
			err := Build(s, tc.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.Empty(t, s.Roads(), "nothing may be built when validation fails")
		})
	}
}
