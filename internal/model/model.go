// Package model holds the GORM-mapped database records for episode
// recording, plus conversions from the plain pkg/core types.
package model

import (
	"time"

	"gorm.io/datatypes"

	"github.com/openjunction/trafficsim/pkg/core"
)

// Episode is one simulation run from reset to a terminal state.
type Episode struct {
	ID                uint `gorm:"primarykey"`
	StartedAt         time.Time
	EndedAt           time.Time
	Seed              uint64
	Policy            string `gorm:"size:16"`
	Ticks             uint64
	SimTime           float64
	VehiclesGenerated int
	TripsCompleted    int
	Collision         bool
	AverageWaitTime   float64
	NetworkName       string         `gorm:"size:64"`
	ConfigSnapshot    datatypes.JSON `gorm:"type:json"`

	Trips []Trip
}

// Trip is one completed vehicle journey within an episode.
type Trip struct {
	ID          uint `gorm:"primarykey"`
	EpisodeID   uint `gorm:"index"`
	SpawnedAt   float64
	CompletedAt float64
	WaitTime    float64
	PathLength  int
	OriginRoad  int
}

// EpisodeFromCore converts a core episode to its database record.
func EpisodeFromCore(e *core.Episode) Episode {
	return Episode{
		ID:                e.ID,
		StartedAt:         e.StartedAt,
		EndedAt:           e.EndedAt,
		Seed:              e.Seed,
		Policy:            e.Policy,
		Ticks:             e.Ticks,
		SimTime:           e.SimTime,
		VehiclesGenerated: e.VehiclesGenerated,
		TripsCompleted:    e.TripsCompleted,
		Collision:         e.Collision,
		AverageWaitTime:   e.AverageWaitTime,
		NetworkName:       e.NetworkName,
		ConfigSnapshot:    datatypes.JSON(e.ConfigSnapshot),
	}
}

// TripFromCore converts a core trip to its database record.
func TripFromCore(t *core.Trip, episodeID uint) Trip {
	return Trip{
		EpisodeID:   episodeID,
		SpawnedAt:   t.SpawnedAt,
		CompletedAt: t.CompletedAt,
		WaitTime:    t.WaitTime,
		PathLength:  t.PathLength,
		OriginRoad:  t.OriginRoad,
	}
}
