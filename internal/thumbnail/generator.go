// Package thumbnail derives small preview images for the detection history.
// Generation is driven by detection-created events on Kafka.
package thumbnail

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 80

type Generator struct {
	size int
}

func NewGenerator(size int) *Generator {
	return &Generator{size: size}
}

// Generate decodes data (JPEG, PNG, GIF, BMP, TIFF or WebP), crops it to a
// size x size square and encodes the result as JPEG.
func (g *Generator) Generate(data []byte) ([]byte, error) {
	const op = "thumbnail.Generate"

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	thumb := imaging.Thumbnail(src, g.size, g.size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}
