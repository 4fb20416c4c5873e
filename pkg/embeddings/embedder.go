// Package embeddings
package embeddings

import (
	"context"

	"github.com/mnemohq/mnemo/pkg/record"
)

// Embedder provides text embedding capabilities. Vectors produced by
// embedders with different configs live in different embedding spaces
// and must never be compared.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Config identifies the embedding space this embedder produces.
	Config() record.EmbeddingConfig

	// Close releases any resources held by the embedder.
	Close() error
}
