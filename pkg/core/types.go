// pkg/core/types.go
package core

import "math"

// Position2D represents a 2D world coordinate in meters (EPSG:3857 plane).
type Position2D struct {
	X float64 `json:"x"` // easting
	Y float64 `json:"y"` // northing
}

// DistanceTo returns the Euclidean distance to another position.
func (p Position2D) DistanceTo(other Position2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Hypot(dx, dy)
}

// Polyline is an ordered sequence of 2D positions.
type Polyline []Position2D
