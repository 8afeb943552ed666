// Package gormstorage implements the storage.Backend interface on top
// of a GORM database handle. The SQLite and Postgres backends wrap it
// via composition; the only driver-specific concern is producing the
// *gorm.DB.
package gormstorage

import (
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/openjunction/trafficsim/internal/logging"
	"github.com/openjunction/trafficsim/internal/model"
	"github.com/openjunction/trafficsim/internal/queue"
	"github.com/openjunction/trafficsim/pkg/core"
)

// tripFlushBatch is how many buffered trips trigger a write.
const tripFlushBatch = 100

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend buffers trip records in a queue and writes them in batches.
type Backend struct {
	db  *gorm.DB
	log *logging.SlogManager

	episodeID uint
	trips     *queue.Queue[model.Trip]

	lastWriteNanos atomic.Int64
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		db:    deps.DB,
		log:   deps.LogManager,
		trips: queue.New[model.Trip](),
	}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(&model.Episode{}, &model.Trip{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close flushes pending trips and closes the underlying connection.
func (b *Backend) Close() error {
	if err := b.flush(); err != nil {
		return err
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// StartEpisode creates the episode row and assigns its ID.
func (b *Backend) StartEpisode(e *core.Episode) error {
	record := model.EpisodeFromCore(e)
	record.ID = 0
	if err := b.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to create episode: %w", err)
	}
	e.ID = record.ID
	b.episodeID = record.ID
	b.trips.Clear()
	return nil
}

// RecordTrip buffers a completed trip for batch insertion.
func (b *Backend) RecordTrip(t *core.Trip) error {
	b.trips.Push(model.TripFromCore(t, b.episodeID))
	if b.trips.Len() >= tripFlushBatch {
		return b.flush()
	}
	return nil
}

// EndEpisode flushes remaining trips and stores the final summary.
func (b *Backend) EndEpisode(e *core.Episode) error {
	if err := b.flush(); err != nil {
		return err
	}
	record := model.EpisodeFromCore(e)
	if err := b.db.Save(&record).Error; err != nil {
		return fmt.Errorf("failed to update episode %d: %w", e.ID, err)
	}
	return nil
}

// GetLastDBWriteDuration returns the duration of the last batch write.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWriteNanos.Load())
}

func (b *Backend) flush() error {
	items := b.trips.GetAndEmpty()
	if len(items) == 0 {
		return nil
	}
	start := time.Now()
	if err := b.db.CreateInBatches(items, tripFlushBatch).Error; err != nil {
		return fmt.Errorf("failed to write %d trips: %w", len(items), err)
	}
	b.lastWriteNanos.Store(int64(time.Since(start)))
	if b.log != nil {
		b.log.Logger().Debug("Flushed trip batch",
			"count", len(items), "duration", time.Since(start))
	}
	return nil
}
