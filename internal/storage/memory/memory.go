// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/openjunction/trafficsim/internal/config"
	"github.com/openjunction/trafficsim/pkg/core"
)

// EpisodeRecord groups an episode with all its completed trips
type EpisodeRecord struct {
	Episode core.Episode
	Trips   []core.Trip
}

// Backend stores episode data in memory and exports to JSON
type Backend struct {
	cfg config.MemoryConfig

	current *EpisodeRecord

	idCounter        uint
	exportedFilePath string
	mu               sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartEpisode begins recording a new episode
func (b *Backend) StartEpisode(e *core.Episode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	e.ID = b.idCounter

	b.current = &EpisodeRecord{Episode: *e}
	return nil
}

// RecordTrip appends a completed trip to the current episode
func (b *Backend) RecordTrip(t *core.Trip) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return ErrNoEpisode
	}
	trip := *t
	trip.EpisodeID = b.current.Episode.ID
	b.current.Trips = append(b.current.Trips, trip)
	return nil
}

// EndEpisode finalizes and exports the episode data
func (b *Backend) EndEpisode(e *core.Episode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return ErrNoEpisode
	}
	b.current.Episode = *e

	return b.exportJSON()
}

// Current returns the in-flight episode record, for inspection in tests.
func (b *Backend) Current() *EpisodeRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// ExportedFilePath returns the path of the last exported episode file.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exportedFilePath
}
