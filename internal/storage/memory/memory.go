// Package memory is a process-local storage.Store for tests and demos.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"plant_identifier/internal/models"
	"plant_identifier/internal/storage"
)

var _ storage.Store = (*Storage)(nil)

type Storage struct {
	mu         sync.RWMutex
	detections map[uuid.UUID]models.Detection
	thumbnails map[uuid.UUID][]byte
}

func New() *Storage {
	return &Storage{
		detections: make(map[uuid.UUID]models.Detection),
		thumbnails: make(map[uuid.UUID][]byte),
	}
}

func (s *Storage) Close() error { return nil }

func (s *Storage) Put(_ context.Context, d *models.Detection) (uuid.UUID, error) {
	const op = "memory.Put"

	s.mu.Lock()
	defer s.mu.Unlock()

	id := storage.AssignID(d)
	if _, ok := s.detections[id]; ok {
		return uuid.Nil, fmt.Errorf("%s: duplicate id %s", op, id)
	}
	rec := *d
	rec.ImageData = bytes.Clone(d.ImageData)
	s.detections[id] = rec
	return id, nil
}

func (s *Storage) Get(_ context.Context, id uuid.UUID) (*models.Detection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.detections[id]
	if !ok {
		return nil, fmt.Errorf("memory.Get: %w", storage.ErrNotFound)
	}
	rec.ImageData = bytes.Clone(rec.ImageData)
	return &rec, nil
}

func (s *Storage) List(_ context.Context, limit int) ([]models.Detection, error) {
	s.mu.RLock()
	out := make([]models.Detection, 0, len(s.detections))
	for _, rec := range s.detections {
		rec.ImageData = nil
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].DetectedAt.After(out[j].DetectedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) PutThumbnail(_ context.Context, id uuid.UUID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.thumbnails[id]; !ok {
		s.thumbnails[id] = bytes.Clone(data)
	}
	return nil
}

func (s *Storage) GetThumbnail(_ context.Context, id uuid.UUID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.thumbnails[id]
	if !ok {
		return nil, fmt.Errorf("memory.GetThumbnail: %w", storage.ErrNotFound)
	}
	return bytes.Clone(data), nil
}
