// Package record defines the memory record model: a tagged union over the
// six memory variants, plus the tree-path and revision value types shared
// by all of them.
//
// A record is owned by exactly one user and one organization (denormalized
// so the isolation guard can check scope without joins). Mutable fields are
// versioned through an append-only revision history, and each record may
// carry embeddings over specific textual attributes together with the
// config describing which provider/model produced them.
package record

import (
	"time"
)

// Variant discriminates the six memory kinds.
type Variant string

const (
	VariantEpisodic   Variant = "episodic"
	VariantSemantic   Variant = "semantic"
	VariantProcedural Variant = "procedural"
	VariantResource   Variant = "resource"
	VariantVault      Variant = "vault"
	VariantCore       Variant = "core"
)

// Variants lists every known variant in a stable order.
func Variants() []Variant {
	return []Variant{
		VariantEpisodic,
		VariantSemantic,
		VariantProcedural,
		VariantResource,
		VariantVault,
		VariantCore,
	}
}

// Known reports whether v names one of the six memory variants.
func (v Variant) Known() bool {
	switch v {
	case VariantEpisodic, VariantSemantic, VariantProcedural,
		VariantResource, VariantVault, VariantCore:
		return true
	}
	return false
}

// Payload is the variant-specific portion of a memory record.
type Payload interface {
	// Variant returns the discriminant for this payload.
	Variant() Variant

	// SearchText returns the concatenation of the payload's primary
	// textual fields, used to build the lexical index. An empty string
	// excludes the record from lexical search entirely.
	SearchText() string

	// EmbedFields returns the named textual attributes that receive
	// embeddings, keyed by attribute name.
	EmbedFields() map[string]string

	// missing returns the names of required fields that are unset.
	missing() []string
}

// Record is a single memory record: shared fields plus one variant payload.
type Record struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Variant        Variant   `json:"variant"`
	Payload        Payload   `json:"payload"`
	TreePath       TreePath  `json:"tree_path,omitempty"`
	Revisions      []Revision `json:"last_modify,omitempty"`

	// Metadata is an open key-value map for caller-specific extension
	// without schema change.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Embeddings holds zero or more vectors over the payload's textual
	// attributes. Nil when embedding was unavailable at write time; the
	// reconciliation worker fills it in later.
	Embeddings      []Embedding      `json:"embeddings,omitempty"`
	EmbeddingConfig *EmbeddingConfig `json:"embedding_config,omitempty"`

	// IdempotencyKey is an optional caller-supplied key making retried
	// creates idempotent.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LastRevision returns the most recent revision note, or a zero Revision
// when the record has never been mutated.
func (r *Record) LastRevision() Revision {
	if len(r.Revisions) == 0 {
		return Revision{}
	}
	return r.Revisions[len(r.Revisions)-1]
}

// HasEmbedding reports whether the record carries at least one vector.
func (r *Record) HasEmbedding() bool {
	return len(r.Embeddings) > 0
}
