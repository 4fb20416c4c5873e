// Package memory provides the orchestration layer over the record store,
// the embedder, the derived vector index and the event stream.
//
// The store is the source of truth: a record and its embeddings persist
// together in one transaction. The vector index is derived state, updated
// after the durable write; records whose embedding could not be computed
// at write time persist with a null embedding and are picked up by the
// reconciliation worker. Events are published after every durable write
// and never block it.
package memory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/embeddings"
	"github.com/mnemohq/mnemo/pkg/eventstream"
	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/store"
	"github.com/mnemohq/mnemo/pkg/tenant"
	"github.com/mnemohq/mnemo/pkg/vector"
)

// Service coordinates the write path of the memory system. The embedder
// and vector driver are optional; without them records persist with null
// embeddings and retrieval stays lexical.
type Service struct {
	store     store.Driver
	vectors   vector.Driver
	embedder  embeddings.Embedder
	publisher eventstream.Publisher
	logger    *zap.Logger
}

// NewService creates the orchestration service. publisher must not be
// nil; use the nop publisher when eventing is disabled.
func NewService(st store.Driver, vectors vector.Driver, embedder embeddings.Embedder, publisher eventstream.Publisher, logger *zap.Logger) *Service {
	return &Service{
		store:     st,
		vectors:   vectors,
		embedder:  embedder,
		publisher: publisher,
		logger:    logger,
	}
}

// Create validates, embeds and persists a new record, then updates the
// vector index and publishes the persistence event.
func (s *Service) Create(ctx context.Context, tc tenant.Context, rec *record.Record) (*record.Record, error) {
	if rec != nil && rec.Payload != nil {
		s.attachEmbeddings(ctx, rec)
	}

	stored, err := s.store.CreateRecord(ctx, tc, rec)
	if err != nil {
		return nil, err
	}

	s.indexRecord(ctx, stored)
	s.publish(ctx, stored, "", false)

	return stored, nil
}

// Update applies a partial update with its mandatory revision note. A
// payload change re-embeds the changed fields before the write so record
// and vectors stay in step.
func (s *Service) Update(ctx context.Context, tc tenant.Context, id string, upd store.RecordUpdate, rev record.Revision) (*record.Record, error) {
	if upd.Payload != nil && s.embedder != nil && len(upd.Embeddings) == 0 {
		embs, cfg := s.embedFields(ctx, upd.Payload.EmbedFields())
		if len(embs) > 0 {
			upd.Embeddings = embs
			upd.EmbeddingConfig = &cfg
		}
	}

	updated, err := s.store.UpdateRecord(ctx, tc, id, upd, rev)
	if err != nil {
		return nil, err
	}

	if upd.Payload != nil || len(upd.Embeddings) > 0 {
		s.reindexRecord(ctx, updated)
	}
	s.publish(ctx, updated, rev.Note, false)

	return updated, nil
}

// Get reads one record under the tenant scope.
func (s *Service) Get(ctx context.Context, tc tenant.Context, id string, opts store.ReadOptions) (*record.Record, error) {
	return s.store.GetRecord(ctx, tc, id, opts)
}

// List reads records under the tenant scope.
func (s *Service) List(ctx context.Context, tc tenant.Context, q store.ListQuery) ([]*record.Record, error) {
	return s.store.ListRecords(ctx, tc, q)
}

// Delete soft-deletes a record, prunes its derived vectors and publishes
// the deletion event.
func (s *Service) Delete(ctx context.Context, tc tenant.Context, id string) error {
	rec, err := s.store.GetRecord(ctx, tc, id, store.ReadOptions{})
	if err != nil {
		return err
	}

	if err := s.store.SoftDeleteRecord(ctx, tc, id); err != nil {
		return err
	}

	if s.vectors != nil {
		if err := s.vectors.DeleteByRecord(ctx, []string{id}); err != nil {
			s.logger.Warn("pruning vectors for deleted record failed",
				zap.String("record_id", id),
				zap.Error(err),
			)
		}
	}

	rec.IsDeleted = true
	s.publish(ctx, rec, "", true)

	return nil
}

// Reindex re-embeds one record and updates both the stored embeddings and
// the vector index. Used by the reconciliation worker for records that
// persisted with a null embedding.
func (s *Service) Reindex(ctx context.Context, rec *record.Record) error {
	if s.embedder == nil {
		return fmt.Errorf("no embedder configured")
	}
	if rec == nil || rec.Payload == nil {
		return fmt.Errorf("record has no payload")
	}

	embs, cfg := s.embedFields(ctx, rec.Payload.EmbedFields())
	if len(embs) == 0 {
		return fmt.Errorf("%w: record %s", vector.ErrEmbedding, rec.ID)
	}

	tc := tenant.Context{OrganizationID: rec.OrganizationID, UserID: rec.UserID}
	updated, err := s.store.UpdateRecord(ctx, tc, rec.ID, store.RecordUpdate{
		Embeddings:      embs,
		EmbeddingConfig: &cfg,
	}, record.NewRevision("reconciler", "backfill missing embeddings"))
	if err != nil {
		return fmt.Errorf("storing embeddings: %w", err)
	}

	s.reindexRecord(ctx, updated)

	return nil
}

// Close releases the service's backends.
func (s *Service) Close() error {
	var firstErr error
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			firstErr = err
		}
	}
	if s.vectors != nil {
		if err := s.vectors.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.embedder != nil {
		if err := s.embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// attachEmbeddings computes vectors for the record's embeddable fields.
// Failures degrade to a null embedding; the reconciliation worker retries
// later.
func (s *Service) attachEmbeddings(ctx context.Context, rec *record.Record) {
	if s.embedder == nil || len(rec.Embeddings) > 0 {
		return
	}

	embs, cfg := s.embedFields(ctx, rec.Payload.EmbedFields())
	if len(embs) == 0 {
		s.logger.Warn("embedding unavailable, persisting record without vectors",
			zap.String("variant", string(rec.Variant)),
		)
		return
	}

	rec.Embeddings = embs
	rec.EmbeddingConfig = &cfg
}

// embedFields embeds each named textual attribute. Partial failure drops
// the whole set so the stored embeddings are always complete.
func (s *Service) embedFields(ctx context.Context, fields map[string]string) ([]record.Embedding, record.EmbeddingConfig) {
	cfg := s.embedder.Config()

	var embs []record.Embedding
	for field, text := range fields {
		if text == "" {
			continue
		}
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			s.logger.Warn("embedding field failed",
				zap.String("field", field),
				zap.Error(err),
			)
			return nil, cfg
		}
		embs = append(embs, record.Embedding{Field: field, Vector: vec})
	}

	return embs, cfg
}

// indexRecord adds a record's stored embeddings to the vector index.
func (s *Service) indexRecord(ctx context.Context, rec *record.Record) {
	if s.vectors == nil || !rec.HasEmbedding() || rec.EmbeddingConfig == nil {
		return
	}

	if err := s.vectors.Add(ctx, documentsFor(rec)); err != nil {
		// The index is derived; the durable write already succeeded.
		s.logger.Error("indexing record vectors failed",
			zap.String("record_id", rec.ID),
			zap.Error(err),
		)
	}
}

// reindexRecord replaces a record's documents in the vector index.
func (s *Service) reindexRecord(ctx context.Context, rec *record.Record) {
	if s.vectors == nil {
		return
	}

	if err := s.vectors.DeleteByRecord(ctx, []string{rec.ID}); err != nil {
		s.logger.Warn("pruning stale vectors failed",
			zap.String("record_id", rec.ID),
			zap.Error(err),
		)
	}
	s.indexRecord(ctx, rec)
}

// documentsFor maps a record's embeddings to vector documents, one per
// embedded field, keyed record_id:field.
func documentsFor(rec *record.Record) []vector.Document {
	docs := make([]vector.Document, 0, len(rec.Embeddings))
	for _, emb := range rec.Embeddings {
		docs = append(docs, vector.Document{
			ID:             rec.ID + ":" + emb.Field,
			RecordID:       rec.ID,
			OrganizationID: rec.OrganizationID,
			UserID:         rec.UserID,
			Provider:       rec.EmbeddingConfig.Provider,
			Model:          rec.EmbeddingConfig.Model,
			Field:          emb.Field,
			Embedding:      emb.Vector,
		})
	}
	return docs
}

// publish emits the persistence event. Publish failures are logged and
// never surface to the caller.
func (s *Service) publish(ctx context.Context, rec *record.Record, revisionNote string, deleted bool) {
	if s.publisher == nil {
		return
	}

	event := eventstream.NewRecordPersistedEvent(rec, revisionNote, deleted)
	if err := s.publisher.PublishRecord(ctx, event); err != nil {
		s.logger.Warn("publishing record event failed",
			zap.String("record_id", rec.ID),
			zap.Error(err),
		)
	}
}
