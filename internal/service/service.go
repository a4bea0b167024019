// Package service orchestrates plant identification: it validates uploads,
// calls the identification service, extracts names from the answer and
// persists the resulting detection.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"plant_identifier/internal/extract"
	"plant_identifier/internal/identify"
	"plant_identifier/internal/metrics"
	"plant_identifier/internal/models"
	"plant_identifier/internal/storage"
)

const (
	DefaultMaxUploadBytes  = 10 << 20
	DefaultUpstreamTimeout = 30 * time.Second

	thumbnailMimeType = "image/jpeg"
	publishTimeout    = 5 * time.Second
)

// Publisher announces newly stored detections.
type Publisher interface {
	PublishDetection(ctx context.Context, id uuid.UUID) error
}

type Config struct {
	MaxUploadBytes  int64
	UpstreamTimeout time.Duration
}

// Upload is one image received from a client.
type Upload struct {
	Data     []byte
	MimeType string
	Filename string
}

type Service struct {
	cfg        Config
	identifier identify.Identifier
	store      storage.Store
	events     Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// New builds a Service. events may be nil when no event bus is configured.
func New(cfg Config, identifier identify.Identifier, store storage.Store, events Publisher, logger *slog.Logger) *Service {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:        cfg,
		identifier: identifier,
		store:      store,
		events:     events,
		logger:     logger.With("component", "service"),
		now:        time.Now,
	}
}

// Identify runs one upload through identification, extraction and storage.
// Once the upload is valid the work is detached from ctx cancellation and
// bounded only by the upstream timeout.
func (s *Service) Identify(ctx context.Context, up Upload) (*models.Result, error) {
	const op = "service.Identify"

	if err := s.validate(up); err != nil {
		metrics.RecordIdentification(metrics.ResultValidation)
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	rawText, err := s.callUpstream(ctx, up)
	if err != nil {
		metrics.RecordIdentification(metrics.ResultUpstream)
		s.logger.Warn("identification failed", "filename", up.Filename, "error", err)
		return nil, upstreamError(op, err)
	}

	fields := extract.Parse(rawText)
	metrics.RecordExtraction(fields.ScientificName, fields.CommonName)

	d := &models.Detection{
		ID:                uuid.New(),
		OriginalImageName: up.Filename,
		ImageData:         up.Data,
		MimeType:          up.MimeType,
		DetectedAt:        s.now().UTC(),
		RawText:           rawText,
		ScientificName:    fields.ScientificName,
		CommonName:        fields.CommonName,
	}
	id, err := s.store.Put(ctx, d)
	if err != nil {
		metrics.RecordIdentification(metrics.ResultStorage)
		s.logger.Error("failed to store detection", "id", d.ID, "error", err)
		return nil, storageError(op, "failed to save detection", err)
	}
	metrics.RecordIdentification(metrics.ResultSuccess)
	s.logger.Info("detection stored",
		"id", id,
		"scientific_name", fields.ScientificName,
		"common_name", fields.CommonName,
		"image_bytes", len(up.Data))

	s.publish(ctx, id)

	return &models.Result{
		ID:             id.String(),
		PlantInfo:      rawText,
		ScientificName: fields.ScientificName,
		CommonName:     fields.CommonName,
		ImageURL:       models.ImageURL(id),
	}, nil
}

func (s *Service) validate(up Upload) error {
	const op = "service.validate"

	if len(up.Data) == 0 {
		return validationError(op, "no image provided")
	}
	if !strings.HasPrefix(strings.ToLower(up.MimeType), "image/") {
		return validationError(op, "file must be an image")
	}
	if int64(len(up.Data)) > s.cfg.MaxUploadBytes {
		return validationError(op, fmt.Sprintf("image exceeds the maximum size of %d bytes", s.cfg.MaxUploadBytes))
	}
	return nil
}

func (s *Service) callUpstream(ctx context.Context, up Upload) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.identifier.Identify(ctx, up.Data, up.MimeType)
	metrics.ObserveUpstream(time.Since(start))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("timed out after %s: %w", s.cfg.UpstreamTimeout, err)
		}
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", identify.ErrEmptyResponse
	}
	return text, nil
}

func (s *Service) publish(ctx context.Context, id uuid.UUID) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := s.events.PublishDetection(ctx, id); err != nil {
		metrics.EventPublishFailures.Inc()
		s.logger.Warn("failed to publish detection event", "id", id, "error", err)
	}
}

// List returns summaries newest first. limit <= 0 returns everything.
func (s *Service) List(ctx context.Context, limit int) ([]models.Summary, error) {
	const op = "service.List"

	records, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, storageError(op, "failed to list detections", err)
	}
	out := make([]models.Summary, 0, len(records))
	for i := range records {
		out = append(out, records[i].Summary())
	}
	return out, nil
}

// Get returns the full record for id, with the image replaced by its URL.
func (s *Service) Get(ctx context.Context, id string) (*models.Detail, error) {
	const op = "service.Get"

	d, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	detail := d.Detail()
	return &detail, nil
}

// Image returns the stored image bytes and their mime type.
func (s *Service) Image(ctx context.Context, id string) ([]byte, string, error) {
	const op = "service.Image"

	d, err := s.load(ctx, op, id)
	if err != nil {
		return nil, "", err
	}
	if len(d.ImageData) == 0 {
		return nil, "", notFoundError(op, "image")
	}
	return d.ImageData, d.MimeType, nil
}

// Thumbnail returns the generated thumbnail, or the original image while
// none has been generated yet.
func (s *Service) Thumbnail(ctx context.Context, id string) ([]byte, string, error) {
	const op = "service.Thumbnail"

	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, "", notFoundError(op, "detection")
	}
	data, err := s.store.GetThumbnail(ctx, uid)
	switch {
	case err == nil:
		return data, thumbnailMimeType, nil
	case errors.Is(err, storage.ErrNotFound):
		return s.Image(ctx, id)
	default:
		return nil, "", storageError(op, "failed to load thumbnail", err)
	}
}

func (s *Service) load(ctx context.Context, op, id string) (*models.Detection, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, notFoundError(op, "detection")
	}
	d, err := s.store.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFoundError(op, "detection")
		}
		return nil, storageError(op, "failed to load detection", err)
	}
	return d, nil
}
