// Package storage defines the append-only detection store and the
// backends that implement it.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"plant_identifier/internal/models"
)

// ErrNotFound is returned when no detection or thumbnail exists for an id.
var ErrNotFound = errors.New("not found")

// Store persists detections. Records are written once; there is no update
// or delete. List returns records newest first without image bytes.
type Store interface {
	Put(ctx context.Context, d *models.Detection) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Detection, error)
	List(ctx context.Context, limit int) ([]models.Detection, error)

	// Thumbnails are derived data kept apart from the record. Writing a
	// thumbnail that already exists is a no-op.
	PutThumbnail(ctx context.Context, id uuid.UUID, data []byte) error
	GetThumbnail(ctx context.Context, id uuid.UUID) ([]byte, error)

	Close() error
}

// AssignID gives d a fresh id when it has none and returns it.
func AssignID(d *models.Detection) uuid.UUID {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return d.ID
}
