package vector

import "errors"

var (
	// ErrNotFound is returned when a document is not found in the vector index.
	ErrNotFound = errors.New("document not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector index connection fails.
	ErrConnection = errors.New("vector index connection failed")

	// ErrFilter is returned when a query filter is missing its tenant or
	// embedding-space scope.
	ErrFilter = errors.New("incomplete vector query filter")
)
