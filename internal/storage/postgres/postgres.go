// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"plant_identifier/internal/models"
	"plant_identifier/internal/storage"
)

var _ storage.Store = (*Storage)(nil)

type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewStorage(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	const op = "postgres.NewStorage"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db, logger); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{pool: pool, db: db}, nil
}

func (s *Storage) Close() error {
	err := s.db.Close()
	s.pool.Close()
	return err
}

func (s *Storage) Put(ctx context.Context, d *models.Detection) (uuid.UUID, error) {
	const op = "postgres.Put"

	id := storage.AssignID(d)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO detections (id, original_image_name, image_data, mime_type, detected_at, raw_text, scientific_name, common_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, d.OriginalImageName, d.ImageData, d.MimeType, d.DetectedAt, d.RawText, d.ScientificName, d.CommonName)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

func (s *Storage) Get(ctx context.Context, id uuid.UUID) (*models.Detection, error) {
	const op = "postgres.Get"

	var d models.Detection
	err := s.pool.QueryRow(ctx,
		`SELECT id, original_image_name, image_data, mime_type, detected_at, raw_text, scientific_name, common_name
		 FROM detections WHERE id = $1`,
		id).Scan(&d.ID, &d.OriginalImageName, &d.ImageData, &d.MimeType, &d.DetectedAt,
		&d.RawText, &d.ScientificName, &d.CommonName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &d, nil
}

func (s *Storage) List(ctx context.Context, limit int) ([]models.Detection, error) {
	const op = "postgres.List"

	// LIMIT NULL returns every row.
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, original_image_name, mime_type, detected_at, raw_text, scientific_name, common_name
		 FROM detections ORDER BY detected_at DESC, id LIMIT $1`, lim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.Detection
	for rows.Next() {
		var d models.Detection
		if err := rows.Scan(&d.ID, &d.OriginalImageName, &d.MimeType, &d.DetectedAt,
			&d.RawText, &d.ScientificName, &d.CommonName); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Storage) PutThumbnail(ctx context.Context, id uuid.UUID, data []byte) error {
	const op = "postgres.PutThumbnail"

	_, err := s.pool.Exec(ctx,
		`INSERT INTO detection_thumbnails (detection_id, image_data) VALUES ($1, $2)
		 ON CONFLICT (detection_id) DO NOTHING`, id, data)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) GetThumbnail(ctx context.Context, id uuid.UUID) ([]byte, error) {
	const op = "postgres.GetThumbnail"

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT image_data FROM detection_thumbnails WHERE detection_id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}
