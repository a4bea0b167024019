// Package storagetest holds behaviour tests shared by every storage.Store backend.
package storagetest

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plant_identifier/internal/models"
	"plant_identifier/internal/storage"
)

// NewDetection returns a complete record detected at the given time.
func NewDetection(at time.Time) *models.Detection {
	return &models.Detection{
		OriginalImageName: "fig.jpg",
		ImageData:         []byte{0xFF, 0xD8, 0x00, 0x01, 0xFE, 0xFF, 0xD9},
		MimeType:          "image/jpeg",
		DetectedAt:        at.UTC(),
		RawText:           "1. Scientific name: Ficus benjamina\n2. Common name: Weeping fig\n",
		ScientificName:    "Ficus benjamina",
		CommonName:        "Weeping fig",
	}
}

// Run exercises newStore against the storage.Store contract.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("PutGetRoundTrip", func(t *testing.T) { testPutGet(t, newStore(t)) })
	t.Run("GetUnknown", func(t *testing.T) { testGetUnknown(t, newStore(t)) })
	t.Run("ListOrder", func(t *testing.T) { testListOrder(t, newStore(t)) })
	t.Run("ListLimit", func(t *testing.T) { testListLimit(t, newStore(t)) })
	t.Run("ConcurrentPut", func(t *testing.T) { testConcurrentPut(t, newStore(t)) })
	t.Run("Thumbnails", func(t *testing.T) { testThumbnails(t, newStore(t)) })
}

func testPutGet(t *testing.T, s storage.Store) {
	ctx := context.Background()
	d := NewDetection(time.Date(2025, 3, 1, 10, 0, 0, 123456789, time.UTC))
	// Bytes that a lossy text encoding would mangle.
	d.ImageData = []byte{0x00, 0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0xFF, 0x00}
	d.RawText = "  Scientific name:\tFicus benjamina  \r\n\nünïcode 🌿\n"

	id, err := s.Put(ctx, d)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, id, d.ID)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.True(t, bytes.Equal(d.ImageData, got.ImageData), "image bytes must be preserved exactly")
	assert.Equal(t, d.RawText, got.RawText)
	assert.Equal(t, d.MimeType, got.MimeType)
	assert.Equal(t, d.OriginalImageName, got.OriginalImageName)
	assert.Equal(t, d.ScientificName, got.ScientificName)
	assert.Equal(t, d.CommonName, got.CommonName)
	assert.True(t, d.DetectedAt.Equal(got.DetectedAt), "detectedAt %v != %v", d.DetectedAt, got.DetectedAt)
}

func testGetUnknown(t *testing.T, s storage.Store) {
	_, err := s.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testListOrder(t *testing.T, s storage.Store) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// Inserted out of order on purpose.
	for _, offset := range []int{3, 1, 4, 0, 2} {
		_, err := s.Put(ctx, NewDetection(base.Add(time.Duration(offset)*time.Minute)))
		require.NoError(t, err)
	}

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 5)

	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].DetectedAt.After(list[i-1].DetectedAt),
			"item %d (%v) is newer than item %d (%v)", i, list[i].DetectedAt, i-1, list[i-1].DetectedAt)
	}
	for _, d := range list {
		assert.Nil(t, d.ImageData, "list must not carry image bytes")
	}
}

func testListLimit(t *testing.T, s storage.Store) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := s.Put(ctx, NewDetection(base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	list, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].DetectedAt.Equal(base.Add(3*time.Second)))
}

func testConcurrentPut(t *testing.T, s storage.Store) {
	ctx := context.Background()
	const n = 16

	ids := make([]uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.Put(ctx, NewDetection(time.Now()))
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[uuid.UUID]bool, n)
	for _, id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		_, err := s.Get(ctx, id)
		assert.NoError(t, err)
	}
}

func testThumbnails(t *testing.T, s storage.Store) {
	ctx := context.Background()
	id, err := s.Put(ctx, NewDetection(time.Now()))
	require.NoError(t, err)

	_, err = s.GetThumbnail(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.PutThumbnail(ctx, id, []byte("first")))
	require.NoError(t, s.PutThumbnail(ctx, id, []byte("second")))

	got, err := s.GetThumbnail(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}
