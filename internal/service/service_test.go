package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"plant_identifier/internal/extract"
	"plant_identifier/internal/models"
	"plant_identifier/internal/storage"
	"plant_identifier/internal/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const figText = "1. Scientific name: Ficus benjamina\n2. Common name: Weeping fig\n3. Family: Moraceae"

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}

type stubIdentifier struct {
	text  string
	err   error
	calls atomic.Int32
	wait  bool // block until ctx is done
}

func (s *stubIdentifier) Identify(ctx context.Context, _ []byte, _ string) (string, error) {
	s.calls.Add(1)
	if s.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return s.text, s.err
}

type recordingPublisher struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (p *recordingPublisher) PublishDetection(_ context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return p.err
}

type failingStore struct {
	*memory.Storage
}

func (failingStore) Put(context.Context, *models.Detection) (uuid.UUID, error) {
	return uuid.Nil, errors.New("disk full")
}

func (failingStore) List(context.Context, int) ([]models.Detection, error) {
	return nil, errors.New("connection refused")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, id *stubIdentifier, store storage.Store, pub Publisher) *Service {
	t.Helper()
	return New(Config{MaxUploadBytes: 1024, UpstreamTimeout: time.Second}, id, store, pub, discardLogger())
}

func pngUpload() Upload {
	return Upload{Data: pngBytes, MimeType: "image/png", Filename: "fig.png"}
}

func TestIdentify_StoresExtractedFields(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	svc := newTestService(t, &stubIdentifier{text: figText}, store, pub)

	res, err := svc.Identify(context.Background(), pngUpload())
	require.NoError(t, err)

	want := extract.Parse(figText)
	assert.Equal(t, "Ficus benjamina", res.ScientificName)
	assert.Equal(t, "Weeping fig", res.CommonName)
	assert.Equal(t, figText, res.PlantInfo)
	assert.Equal(t, "/api/images/"+res.ID, res.ImageURL)

	id, err := uuid.Parse(res.ID)
	require.NoError(t, err)
	rec, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, want.ScientificName, rec.ScientificName)
	assert.Equal(t, want.CommonName, rec.CommonName)
	assert.Equal(t, figText, rec.RawText)
	assert.Equal(t, pngBytes, rec.ImageData)
	assert.Equal(t, "image/png", rec.MimeType)
	assert.Equal(t, "fig.png", rec.OriginalImageName)

	assert.Equal(t, []uuid.UUID{id}, pub.ids)
}

func TestIdentify_NoLabelsStillPersists(t *testing.T) {
	store := memory.New()
	text := "A green plant with glossy leaves, likely a houseplant."
	svc := newTestService(t, &stubIdentifier{text: text}, store, nil)

	res, err := svc.Identify(context.Background(), pngUpload())
	require.NoError(t, err)
	assert.Empty(t, res.ScientificName)
	assert.Empty(t, res.CommonName)

	d, err := svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, text, d.RawText)
}

func TestIdentify_Validation(t *testing.T) {
	tests := []struct {
		name   string
		upload Upload
	}{
		{"empty data", Upload{MimeType: "image/png", Filename: "a.png"}},
		{"non-image mime", Upload{Data: []byte("%PDF-1.4"), MimeType: "application/pdf", Filename: "a.pdf"}},
		{"missing mime", Upload{Data: pngBytes, Filename: "a.png"}},
		{"oversized", Upload{Data: make([]byte, 1025), MimeType: "image/jpeg", Filename: "big.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			ident := &stubIdentifier{text: figText}
			svc := newTestService(t, ident, store, nil)

			_, err := svc.Identify(context.Background(), tt.upload)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, int32(0), ident.calls.Load())

			list, err := store.List(context.Background(), 0)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestIdentify_UpstreamError(t *testing.T) {
	store := memory.New()
	upstream := errors.New("429 resource exhausted")
	svc := newTestService(t, &stubIdentifier{err: upstream}, store, nil)

	_, err := svc.Identify(context.Background(), pngUpload())
	require.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, upstream)

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Contains(t, svcErr.Message(), "429 resource exhausted")

	list, _ := store.List(context.Background(), 0)
	assert.Empty(t, list)
}

func TestIdentify_EmptyUpstreamText(t *testing.T) {
	svc := newTestService(t, &stubIdentifier{text: "  \n"}, memory.New(), nil)

	_, err := svc.Identify(context.Background(), pngUpload())
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestIdentify_UpstreamTimeout(t *testing.T) {
	svc := New(Config{UpstreamTimeout: 20 * time.Millisecond}, &stubIdentifier{wait: true}, memory.New(), nil, discardLogger())

	_, err := svc.Identify(context.Background(), pngUpload())
	require.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIdentify_IgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newTestService(t, &stubIdentifier{text: figText}, memory.New(), nil)
	res, err := svc.Identify(ctx, pngUpload())
	require.NoError(t, err)
	assert.Equal(t, "Ficus benjamina", res.ScientificName)
}

func TestIdentify_StorageError(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, &stubIdentifier{text: figText}, failingStore{memory.New()}, pub)

	_, err := svc.Identify(context.Background(), pngUpload())
	require.ErrorIs(t, err, ErrStorage)
	assert.Empty(t, pub.ids)
}

func TestIdentify_PublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(t, &stubIdentifier{text: figText}, memory.New(), pub)

	res, err := svc.Identify(context.Background(), pngUpload())
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Len(t, pub.ids, 1)
}

func TestIdentify_ConcurrentCallsGetDistinctIDs(t *testing.T) {
	svc := newTestService(t, &stubIdentifier{text: figText}, memory.New(), nil)
	const n = 20

	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Identify(context.Background(), pngUpload())
			if assert.NoError(t, err) {
				ids[i] = res.ID
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		_, err := svc.Get(context.Background(), id)
		assert.NoError(t, err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	svc := newTestService(t, &stubIdentifier{text: figText}, memory.New(), nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, offset := range []int{2, 0, 3, 1} {
		at := base.Add(time.Duration(offset) * time.Hour)
		svc.now = func() time.Time { return at }
		_, err := svc.Identify(context.Background(), pngUpload())
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 4)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].DetectedAt.After(list[i-1].DetectedAt))
	}
	assert.True(t, list[0].DetectedAt.Equal(base.Add(3*time.Hour)))
	assert.Equal(t, "/api/images/"+list[0].ID, list[0].ImageURL)
	assert.Equal(t, "/api/images/"+list[0].ID+"/thumbnail", list[0].ThumbnailURL)
}

func TestList_Empty(t *testing.T) {
	svc := newTestService(t, &stubIdentifier{}, memory.New(), nil)
	list, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestList_StorageError(t *testing.T) {
	svc := newTestService(t, &stubIdentifier{}, failingStore{memory.New()}, nil)
	_, err := svc.List(context.Background(), 0)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(t, &stubIdentifier{}, memory.New(), nil)

	_, err := svc.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImage(t *testing.T) {
	svc := newTestService(t, &stubIdentifier{text: figText}, memory.New(), nil)
	res, err := svc.Identify(context.Background(), pngUpload())
	require.NoError(t, err)

	data, mime, err := svc.Image(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, "image/png", mime)

	_, _, err = svc.Image(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestThumbnail_FallsBackToOriginal(t *testing.T) {
	store := memory.New()
	svc := newTestService(t, &stubIdentifier{text: figText}, store, nil)
	res, err := svc.Identify(context.Background(), pngUpload())
	require.NoError(t, err)

	data, mime, err := svc.Thumbnail(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, "image/png", mime)

	require.NoError(t, store.PutThumbnail(context.Background(), uuid.MustParse(res.ID), []byte("jpeg")))
	data, mime, err = svc.Thumbnail(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
	assert.Equal(t, "image/jpeg", mime)

	_, _, err = svc.Thumbnail(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDetail_OmitsImageBytes(t *testing.T) {
	svc := newTestService(t, &stubIdentifier{text: figText}, memory.New(), nil)
	res, err := svc.Identify(context.Background(), pngUpload())
	require.NoError(t, err)

	d, err := svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, len(pngBytes), d.ImageSize)
	assert.Equal(t, res.ImageURL, d.ImageURL)
	assert.Equal(t, "image/png", d.MimeType)
}
