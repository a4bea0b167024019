package identify

import (
	"context"
	"errors"
)

// Prompt is sent alongside every image.
const Prompt = `Identify the plant in this image. Provide the following information:
1. Scientific name
2. Common name
3. Family
4. Brief description
5. Growing conditions
6. Care tips

Format each item on its own line as "<number>. <label>: <value>".`

// ErrEmptyResponse is returned when the service answers without any text.
var ErrEmptyResponse = errors.New("identification response contains no text")

// Identifier maps an image to a free-text description.
// Implementations must be safe for concurrent use.
type Identifier interface {
	Identify(ctx context.Context, image []byte, mimeType string) (string, error)
}
