package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"plant_identifier/internal/metrics"
	"plant_identifier/internal/storage"
)

const readRetryDelay = time.Second

type Worker struct {
	store  storage.Store
	gen    *Generator
	logger *slog.Logger
}

func NewWorker(store storage.Store, gen *Generator, logger *slog.Logger) *Worker {
	return &Worker{store: store, gen: gen, logger: logger.With("component", "thumbnail")}
}

// Run consumes detection events until ctx is cancelled. Failures on a single
// message are logged and the message is skipped.
func (w *Worker) Run(ctx context.Context, r MessageReader) error {
	defer r.Close()

	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("error reading message", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readRetryDelay):
			}
			continue
		}

		id, err := uuid.Parse(string(msg.Value))
		if err != nil {
			w.logger.Warn("skipping message with invalid detection id", "value", string(msg.Value))
			continue
		}
		if err := w.Process(ctx, id); err != nil {
			w.logger.Error("error generating thumbnail", "id", id, "error", err)
		}
	}
}

// Process creates and stores the thumbnail for one detection. It is a no-op
// when the thumbnail already exists.
func (w *Worker) Process(ctx context.Context, id uuid.UUID) error {
	const op = "thumbnail.Process"

	if _, err := w.store.GetThumbnail(ctx, id); err == nil {
		metrics.ThumbnailsTotal.WithLabelValues("exists").Inc()
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		metrics.ThumbnailsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	d, err := w.store.Get(ctx, id)
	if err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	thumb, err := w.gen.Generate(d.ImageData)
	if err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("undecodable").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := w.store.PutThumbnail(ctx, id, thumb); err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.ThumbnailsTotal.WithLabelValues("created").Inc()
	w.logger.Debug("thumbnail stored", "id", id, "bytes", len(thumb))
	return nil
}
