package identify

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectText_JoinsPartsInOrder(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("1. Scientific name: Ficus benjamina"),
				genai.Blob{MIMEType: "image/png", Data: []byte{1}},
				genai.Text("2. Common name: Weeping fig"),
			}},
		}},
	}

	text, err := collectText(resp)
	require.NoError(t, err)
	assert.Equal(t, "1. Scientific name: Ficus benjamina\n2. Common name: Weeping fig", text)
}

func TestCollectText_MissingStructure(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil response", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}},
		{"no parts", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}}},
		{"no text parts", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := collectText(tt.resp)
			assert.Error(t, err)
		})
	}
}

func TestNewGemini_EmptyKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "  ", "gemini-1.5-flash")
	assert.Error(t, err)
}
