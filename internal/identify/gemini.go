package identify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini opens a client for the Gemini API. The caller must Close it.
func NewGemini(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Gemini, error) {
	const op = "identify.NewGemini"

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: api key is empty", op)
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Gemini{client: cl, model: strings.TrimSpace(model)}, nil
}

func (g *Gemini) Name() string  { return "gemini" }
func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Close() error {
	return g.client.Close()
}

// Identify sends the image with the fixed Prompt in a single request.
func (g *Gemini) Identify(ctx context.Context, image []byte, mimeType string) (string, error) {
	const op = "identify.Gemini.Identify"

	m := g.client.GenerativeModel(g.model)
	if m == nil {
		return "", fmt.Errorf("%s: model %q is nil", op, g.model)
	}

	resp, err := m.GenerateContent(ctx,
		genai.Text(Prompt),
		genai.Blob{MIMEType: mimeType, Data: image},
	)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", fmt.Errorf("%s: response blocked: %v", op, blocked)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	text, err := collectText(resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return text, nil
}

// collectText joins the text parts of the first candidate in order, one per line.
func collectText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("response has no candidates")
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 {
		return "", errors.New("candidate has no content parts")
	}

	var texts []string
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			texts = append(texts, string(t))
		}
	}
	if len(texts) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.Join(texts, "\n"), nil
}
