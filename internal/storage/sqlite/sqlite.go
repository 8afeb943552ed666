// Package sqlitestorage implements the storage.Backend interface using
// a SQLite database file. It wraps the GORM backend via composition;
// SQLite needs no driver-specific behavior beyond connection creation,
// which the factory handles.
package sqlitestorage

import (
	gormstorage "github.com/openjunction/trafficsim/internal/storage/gorm"
)

// Backend wraps the GORM backend for SQLite.
type Backend struct {
	*gormstorage.Backend
}

// New creates a new SQLite storage backend.
func New(deps gormstorage.Dependencies) *Backend {
	return &Backend{Backend: gormstorage.New(deps)}
}
