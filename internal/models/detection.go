// internal/models/detection.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Detection is one completed upload-to-identification cycle. Records are
// written once and never modified.
type Detection struct {
	ID                uuid.UUID `db:"id"`
	OriginalImageName string    `db:"original_image_name"`
	ImageData         []byte    `db:"image_data"` // nil in list results
	MimeType          string    `db:"mime_type"`
	DetectedAt        time.Time `db:"detected_at"`
	RawText           string    `db:"raw_text"`
	ScientificName    string    `db:"scientific_name"`
	CommonName        string    `db:"common_name"`
}

// Result is returned from a successful identification.
type Result struct {
	ID             string `json:"id"`
	PlantInfo      string `json:"plantInfo"`
	ScientificName string `json:"scientificName"`
	CommonName     string `json:"commonName"`
	ImageURL       string `json:"imageUrl"`
}

// Summary is the history-listing view of a detection.
type Summary struct {
	ID                string    `json:"id"`
	OriginalImageName string    `json:"originalImageName"`
	DetectedAt        time.Time `json:"detectedAt"`
	ScientificName    string    `json:"scientificName"`
	CommonName        string    `json:"commonName"`
	ImageURL          string    `json:"imageUrl"`
	ThumbnailURL      string    `json:"thumbnailUrl"`
}

// Detail is the full record with the image replaced by its access URL.
type Detail struct {
	Summary
	RawText   string `json:"rawText"`
	MimeType  string `json:"mimeType"`
	ImageSize int    `json:"imageSize"`
}

func ImageURL(id uuid.UUID) string {
	return "/api/images/" + id.String()
}

func ThumbnailURL(id uuid.UUID) string {
	return ImageURL(id) + "/thumbnail"
}

func (d *Detection) Summary() Summary {
	return Summary{
		ID:                d.ID.String(),
		OriginalImageName: d.OriginalImageName,
		DetectedAt:        d.DetectedAt,
		ScientificName:    d.ScientificName,
		CommonName:        d.CommonName,
		ImageURL:          ImageURL(d.ID),
		ThumbnailURL:      ThumbnailURL(d.ID),
	}
}

func (d *Detection) Detail() Detail {
	return Detail{
		Summary:   d.Summary(),
		RawText:   d.RawText,
		MimeType:  d.MimeType,
		ImageSize: len(d.ImageData),
	}
}
