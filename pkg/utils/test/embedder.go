package testutils

import (
	"context"
	"fmt"

	"github.com/mnemohq/mnemo/pkg/record"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// FailAll causes every Embed call to fail
	FailAll bool

	// Calls accumulates every text passed to Embed
	Calls []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.Calls = append(m.Calls, text)

	if m.FailAll {
		return nil, fmt.Errorf("mock embedder unavailable")
	}
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *MockEmbedder) Config() record.EmbeddingConfig {
	return record.EmbeddingConfig{
		Provider:   "mock",
		Model:      "mock-embed",
		Dimensions: 3,
	}
}

func (m *MockEmbedder) Close() error {
	return nil
}
