// Package store defines the persistence driver for the memory system.
//
// The Driver is the only write and read path for tenant, record, agent and
// file data. Every method takes an explicit tenant.Context and is scoped by
// it; the isolation guard inside each implementation rejects out-of-scope
// access fail-closed, returning the same NotFoundError shape whether a row
// is missing or belongs to another tenant.
package store

import (
	"context"

	"github.com/mnemohq/mnemo/pkg/agent"
	"github.com/mnemohq/mnemo/pkg/file"
	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

// ReadOptions control visibility on read paths.
type ReadOptions struct {
	// IncludeDeleted also returns soft-deleted rows. Administrative
	// tooling only; normal reads leave it false.
	IncludeDeleted bool

	// RevealSecrets returns vault secret values in plaintext. Requires
	// the caller to hold elevated scope; without it vault reads return
	// record.MaskedSecret placeholders.
	RevealSecrets bool
}

// ListQuery bounds and filters a record listing.
type ListQuery struct {
	Variant        record.Variant  // zero value lists all variants
	PathPrefix     record.TreePath // non-empty restricts to a subtree
	IncludeDeleted bool
	RevealSecrets  bool
	Limit          int
	Offset         int
}

// RecordUpdate carries the partial fields of an update. Nil/zero members
// are left untouched. The revision note accompanying the update is a
// separate required argument.
type RecordUpdate struct {
	Payload         record.Payload
	TreePath        *record.TreePath
	Metadata        map[string]any
	Embeddings      []record.Embedding
	EmbeddingConfig *record.EmbeddingConfig
}

// LexicalHit is one lexical full-text match with its raw relevance score
// (higher is better). Normalization happens in the retrieval engine.
type LexicalHit struct {
	Record *record.Record
	Score  float64
}

// RegistryStore persists the tenant/identity registry.
type RegistryStore interface {
	CreateOrganization(ctx context.Context, name string) (*tenant.Organization, error)
	GetOrganization(ctx context.Context, id string) (*tenant.Organization, error)
	SoftDeleteOrganization(ctx context.Context, id string) error

	CreateUser(ctx context.Context, orgID, name, timezone string) (*tenant.User, error)
	GetUser(ctx context.Context, tc tenant.Context) (*tenant.User, error)

	PutProfileSettings(ctx context.Context, tc tenant.Context, settings *tenant.ProfileSettings) error
	GetProfileSettings(ctx context.Context, tc tenant.Context) (*tenant.ProfileSettings, error)

	// ResolveTenant verifies that the context names an existing,
	// non-deleted organization (and user, when user-scoped). Returns
	// tenant.ErrTenantNotFound otherwise.
	ResolveTenant(ctx context.Context, tc tenant.Context) error
}

// RecordStore persists memory records.
type RecordStore interface {
	// CreateRecord validates and persists a record under the tenant
	// context. The record's ID, tree path and audit fields are assigned
	// by the store. When the record carries an idempotency key already
	// seen for this tenant, the original record is returned unchanged.
	CreateRecord(ctx context.Context, tc tenant.Context, rec *record.Record) (*record.Record, error)

	// UpdateRecord applies a partial update. The revision note is
	// mandatory and is appended to the record's revision history.
	UpdateRecord(ctx context.Context, tc tenant.Context, id string, upd RecordUpdate, rev record.Revision) (*record.Record, error)

	GetRecord(ctx context.Context, tc tenant.Context, id string, opts ReadOptions) (*record.Record, error)
	SoftDeleteRecord(ctx context.Context, tc tenant.Context, id string) error
	ListRecords(ctx context.Context, tc tenant.Context, q ListQuery) ([]*record.Record, error)

	// SearchLexical runs the full-text side of hybrid retrieval: records
	// whose searchable text matches the tokenized query, ranked by text
	// relevance. Records with no searchable text never appear.
	SearchLexical(ctx context.Context, tc tenant.Context, query string, variants []record.Variant, limit int) ([]LexicalHit, error)

	// EmbeddingConfigCounts returns how many records each embedding
	// config covers within the tenant, for majority-provider resolution.
	EmbeddingConfigCounts(ctx context.Context, tc tenant.Context) (map[record.EmbeddingConfig]int, error)

	// ListMissingEmbeddings returns non-deleted records persisted with a
	// null embedding, for the reconciliation worker. Administrative:
	// spans all tenants.
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*record.Record, error)
}

// AgentStore persists agents, their shared blocks, messages, steps, tools
// and sandbox descriptors.
type AgentStore interface {
	CreateAgent(ctx context.Context, tc tenant.Context, a *agent.Agent) (*agent.Agent, error)
	GetAgent(ctx context.Context, tc tenant.Context, id string) (*agent.Agent, error)

	CreateBlock(ctx context.Context, tc tenant.Context, b *agent.Block) (*agent.Block, error)
	BindBlock(ctx context.Context, tc tenant.Context, binding agent.BlockBinding) error
	ListAgentBlocks(ctx context.Context, tc tenant.Context, agentID string) ([]*agent.Block, error)

	AppendMessage(ctx context.Context, tc tenant.Context, m *agent.Message) (*agent.Message, error)
	ListMessages(ctx context.Context, tc tenant.Context, agentID string, limit int) ([]*agent.Message, error)
	CreateStep(ctx context.Context, tc tenant.Context, s *agent.Step) (*agent.Step, error)

	RegisterTool(ctx context.Context, tc tenant.Context, t *agent.Tool) (*agent.Tool, error)
	PutSandboxConfig(ctx context.Context, tc tenant.Context, sc *agent.SandboxConfig) (*agent.SandboxConfig, error)
	PutEnvVar(ctx context.Context, tc tenant.Context, v *agent.EnvVar) (*agent.EnvVar, error)
}

// FileStore persists file references and their cloud mappings.
type FileStore interface {
	CreateFile(ctx context.Context, tc tenant.Context, f *file.File) (*file.File, error)
	GetFile(ctx context.Context, tc tenant.Context, id string) (*file.File, error)

	// MapToCloud records a cloud mapping for a local file, deactivating
	// any previous mapping so at most one active mapping exists per
	// local file.
	MapToCloud(ctx context.Context, tc tenant.Context, m *file.CloudMapping) (*file.CloudMapping, error)
	ActiveMapping(ctx context.Context, tc tenant.Context, localFileID string) (*file.CloudMapping, error)
}

// Driver is the full persistence surface consumed by the orchestration
// layer. No operation is exposed without a tenant context.
type Driver interface {
	RegistryStore
	RecordStore
	AgentStore
	FileStore

	// Close releases the underlying connection.
	Close() error
}
