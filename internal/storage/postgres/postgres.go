// Package postgres implements the storage.Backend interface using
// GORM/PostgreSQL, wrapping the shared GORM backend via composition.
package postgres

import (
	gormstorage "github.com/openjunction/trafficsim/internal/storage/gorm"
)

// Backend wraps the GORM backend for Postgres.
type Backend struct {
	*gormstorage.Backend
}

// New creates a new Postgres storage backend.
func New(deps gormstorage.Dependencies) *Backend {
	return &Backend{Backend: gormstorage.New(deps)}
}
