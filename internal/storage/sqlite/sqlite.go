package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"plant_identifier/internal/models"
	"plant_identifier/internal/storage"
)

// ensure Storage implements storage.Store
var _ storage.Store = (*Storage)(nil)

type Storage struct {
	db *sql.DB
}

// detected_at holds Unix nanoseconds so ordering is exact.
const schema = `
CREATE TABLE IF NOT EXISTS detections (
	id TEXT PRIMARY KEY,
	original_image_name TEXT NOT NULL DEFAULT '',
	image_data BLOB NOT NULL,
	mime_type TEXT NOT NULL,
	detected_at INTEGER NOT NULL,
	raw_text TEXT NOT NULL,
	scientific_name TEXT NOT NULL DEFAULT '',
	common_name TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS detections_detected_at_idx ON detections (detected_at DESC, id);
CREATE TABLE IF NOT EXISTS detection_thumbnails (
	detection_id TEXT PRIMARY KEY,
	image_data BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// New opens (or creates) the SQLite database at dsn.
func New(dsn string) (*Storage, error) {
	const op = "sqlite.New"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent inserts.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Put(ctx context.Context, d *models.Detection) (uuid.UUID, error) {
	const op = "sqlite.Put"

	id := storage.AssignID(d)
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO detections (
		id, original_image_name, image_data, mime_type, detected_at, raw_text, scientific_name, common_name
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(),
		d.OriginalImageName,
		d.ImageData,
		d.MimeType,
		d.DetectedAt.UnixNano(),
		d.RawText,
		d.ScientificName,
		d.CommonName,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

func (s *Storage) Get(ctx context.Context, id uuid.UUID) (*models.Detection, error) {
	const op = "sqlite.Get"

	row := s.db.QueryRowContext(ctx, `
	SELECT id, original_image_name, image_data, mime_type, detected_at, raw_text, scientific_name, common_name
	FROM detections WHERE id = ?`, id.String())

	var (
		d      models.Detection
		rawID  string
		detect int64
	)
	err := row.Scan(&rawID, &d.OriginalImageName, &d.ImageData, &d.MimeType, &detect,
		&d.RawText, &d.ScientificName, &d.CommonName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if d.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d.DetectedAt = time.Unix(0, detect).UTC()
	return &d, nil
}

func (s *Storage) List(ctx context.Context, limit int) ([]models.Detection, error) {
	const op = "sqlite.List"

	query := `SELECT id, original_image_name, mime_type, detected_at, raw_text, scientific_name, common_name
	FROM detections ORDER BY detected_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.Detection
	for rows.Next() {
		var (
			d      models.Detection
			rawID  string
			detect int64
		)
		if err := rows.Scan(&rawID, &d.OriginalImageName, &d.MimeType, &detect,
			&d.RawText, &d.ScientificName, &d.CommonName); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if d.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.DetectedAt = time.Unix(0, detect).UTC()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Storage) PutThumbnail(ctx context.Context, id uuid.UUID, data []byte) error {
	const op = "sqlite.PutThumbnail"

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO detection_thumbnails (detection_id, image_data, created_at) VALUES (?, ?, ?)`,
		id.String(), data, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) GetThumbnail(ctx context.Context, id uuid.UUID) ([]byte, error) {
	const op = "sqlite.GetThumbnail"

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT image_data FROM detection_thumbnails WHERE detection_id = ?`, id.String()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}
