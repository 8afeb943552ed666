// pkg/core/episode.go
package core

import "time"

// Episode represents one simulation run from reset to a terminal state.
// ID is assigned by the storage backend on StartEpisode.
type Episode struct {
	ID                uint
	StartedAt         time.Time
	EndedAt           time.Time
	Seed              uint64
	Policy            string // "fc", "lqf", "rl", ...
	Ticks             uint64
	SimTime           float64 // seconds of simulated time
	VehiclesGenerated int
	TripsCompleted    int
	Collision         bool
	AverageWaitTime   float64
	NetworkName       string
	ConfigSnapshot    []byte // JSON of the simulation parameters
}

// Trip records one vehicle that reached the end of its path.
// EpisodeID references the owning Episode's ID.
type Trip struct {
	ID          uint
	EpisodeID   uint
	SpawnedAt   float64 // sim time the vehicle entered the map
	CompletedAt float64 // sim time the vehicle left the map
	WaitTime    float64 // CompletedAt - SpawnedAt
	PathLength  int     // number of road segments traversed
	OriginRoad  int     // road index the vehicle spawned on
}
