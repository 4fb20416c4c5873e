// Package vector provides interfaces and implementations for the derived
// vector index used by hybrid retrieval. The store remains the source of
// truth for embeddings; drivers here only serve nearest-neighbor queries.
package vector

import "context"

// Document is one embedded field of one memory record. A record with
// several embeddable fields contributes several documents.
type Document struct {
	// ID uniquely identifies the document, conventionally the record id
	// and field joined by ':'.
	ID string

	// RecordID is the memory record this document belongs to.
	RecordID string

	// OrganizationID and UserID scope the document to its tenant. Every
	// query must carry a matching filter.
	OrganizationID string
	UserID         string

	// Provider and Model identify the embedding space. Vectors from
	// different spaces are never comparable.
	Provider string
	Model    string

	// Field names the payload field the embedding was computed from.
	Field string

	// Embedding is the vector representation.
	Embedding []float32
}

// Filter restricts a query to one tenant and one embedding space. All
// members are required; drivers reject incomplete filters.
type Filter struct {
	OrganizationID string
	UserID         string
	Provider       string
	Model          string
}

// Complete reports whether every filter member is set.
func (f Filter) Complete() bool {
	return f.OrganizationID != "" && f.UserID != "" && f.Provider != "" && f.Model != ""
}

// QueryResult is a search result with its similarity score.
type QueryResult struct {
	Document

	// Score is a similarity in (0, 1], higher is more similar.
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings. An existing document
	// with the same ID is replaced.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK documents most similar to the embedding,
	// within the filter's tenant and embedding space.
	Query(ctx context.Context, embedding []float32, topK int, f Filter) ([]QueryResult, error)

	// Get retrieves documents by their IDs.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// DeleteByRecord removes every document derived from the given
	// records, used when records are soft-deleted or re-embedded.
	DeleteByRecord(ctx context.Context, recordIDs []string) error

	// Close releases any resources held by the driver.
	Close() error
}
