// internal/storage/storage.go
package storage

import "github.com/openjunction/trafficsim/pkg/core"

// Backend is the interface all episode storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Episode management. StartEpisode assigns an ID to the passed pointer.
	StartEpisode(e *core.Episode) error
	EndEpisode(e *core.Episode) error

	// Trip recording
	RecordTrip(t *core.Trip) error
}

// Exportable is an optional interface for backends that produce a file
// per episode suitable for offline analysis.
type Exportable interface {
	ExportedFilePath() string
}
