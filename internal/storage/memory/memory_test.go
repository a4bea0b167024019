package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plant_identifier/internal/storage"
	"plant_identifier/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestPut_CopiesImageBytes(t *testing.T) {
	s := New()
	d := storagetest.NewDetection(time.Now())

	id, err := s.Put(context.Background(), d)
	require.NoError(t, err)
	d.ImageData[0] = 0x00

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), got.ImageData[0])
}

func TestPut_DuplicateID(t *testing.T) {
	s := New()
	d := storagetest.NewDetection(time.Now())
	_, err := s.Put(context.Background(), d)
	require.NoError(t, err)

	dup := storagetest.NewDetection(time.Now())
	dup.ID = d.ID
	_, err = s.Put(context.Background(), dup)
	assert.Error(t, err)
}
