package geo

import (
	"errors"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/openjunction/trafficsim/pkg/core"
)

// ROAD GEOMETRY
// Road segments live on a flat plane in meters. Networks defined in
// lon/lat are projected to EPSG:3857 once at build time, so all runtime
// distance checks are plain Euclidean math.

// ErrDegenerateSegment is returned when a segment's endpoints coincide.
var ErrDegenerateSegment = errors.New("segment endpoints coincide")

// Segment is a directed straight road segment from Start to End.
type Segment struct {
	Start core.Position2D
	End   core.Position2D
}

// Length returns the segment length in meters.
func (s Segment) Length() float64 {
	return s.Start.DistanceTo(s.End)
}

// Unit returns the segment's unit direction vector components (cos, sin).
func (s Segment) Unit() (float64, float64, error) {
	l := s.Length()
	if l == 0 {
		return 0, 0, ErrDegenerateSegment
	}
	return (s.End.X - s.Start.X) / l, (s.End.Y - s.Start.Y) / l, nil
}

// PositionAt returns the world coordinate at longitudinal offset x along
// the segment. Offsets past either end extrapolate linearly; the caller
// decides what out-of-bounds means.
func (s Segment) PositionAt(x float64) core.Position2D {
	cos, sin, err := s.Unit()
	if err != nil {
		return s.Start
	}
	return core.Position2D{
		X: s.Start.X + cos*x,
		Y: s.Start.Y + sin*x,
	}
}

// LineString returns the segment as a simplefeatures geometry.
func (s Segment) LineString() (geom.LineString, error) {
	seq := geom.NewSequence([]float64{s.Start.X, s.Start.Y, s.End.X, s.End.Y}, geom.DimXY)
	return geom.NewLineString(seq)
}

// Crosses reports whether two segments conflict in world space: their
// interiors intersect. Segments that only touch at shared endpoints are
// connected roads (a hand-off point), not a crossing.
func Crosses(a, b Segment) (bool, error) {
	la, err := a.LineString()
	if err != nil {
		return false, err
	}
	lb, err := b.LineString()
	if err != nil {
		return false, err
	}
	ga := la.AsGeometry()
	gb := lb.AsGeometry()
	if !geom.Intersects(ga, gb) {
		return false, nil
	}
	matrix, err := geom.Relate(ga, gb)
	if err != nil {
		return false, err
	}
	// DE-9IM position 0 is interior/interior.
	return matrix[0] != 'F', nil
}

// ProjectLonLat converts an EPSG:4326 lon/lat pair to EPSG:3857 meters.
func ProjectLonLat(lon, lat float64) core.Position2D {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(lon, lat, 0)
	return core.Position2D{X: x, Y: y}
}
