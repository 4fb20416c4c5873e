package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/store"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

const recordColumns = `id, organization_id, user_id, variant, payload, tree_path,
	revisions, metadata, embeddings, embedding_config, idempotency_key,
	is_deleted, created_at, updated_at`

// CreateRecord implements store.RecordStore.
func (d *Driver) CreateRecord(ctx context.Context, tc tenant.Context, rec *record.Record) (*record.Record, error) {
	if err := d.requireTenant(ctx, tc, true); err != nil {
		return nil, err
	}
	if err := record.Validate(rec); err != nil {
		return nil, err
	}

	// Idempotent retry: a previously seen key returns the original
	// record unchanged.
	if rec.IdempotencyKey != "" {
		existing, err := d.recordByIdempotencyKey(ctx, tc, rec.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			d.logger.Debug("idempotent create replay",
				zap.String("record_id", existing.ID),
				zap.String("idempotency_key", rec.IdempotencyKey),
			)
			return existing, nil
		}
	}

	stored := *rec
	stored.ID = d.newID()
	stored.OrganizationID = tc.OrganizationID
	stored.UserID = tc.UserID
	stored.TreePath = record.AssignPath(stored.Variant, stored.TreePath)
	stored.IsDeleted = false
	stored.CreatedAt = nowUTC()
	stored.UpdatedAt = stored.CreatedAt

	payload, treePath, revisions, metadata, embeddings, embConfig, err := encodeRecord(&stored)
	if err != nil {
		return nil, err
	}

	searchText := stored.Payload.SearchText()
	var searchCol any
	if searchText != "" {
		searchCol = searchText
	}

	var idemCol any
	if stored.IdempotencyKey != "" {
		idemCol = stored.IdempotencyKey
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO memory_records
			(id, organization_id, user_id, variant, payload, tree_path, revisions,
			 metadata, embeddings, embedding_config, search_text, idempotency_key,
			 is_deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		stored.ID, stored.OrganizationID, stored.UserID, string(stored.Variant),
		payload, treePath, revisions, metadata, embeddings, embConfig,
		searchCol, idemCol,
		formatTime(stored.CreatedAt), formatTime(stored.UpdatedAt),
	)
	if err != nil {
		return nil, wrapConstraint(err, "memory_records")
	}

	d.logger.Debug("record created",
		zap.String("record_id", stored.ID),
		zap.String("variant", string(stored.Variant)),
		zap.String("organization_id", stored.OrganizationID),
	)

	return &stored, nil
}

// UpdateRecord implements store.RecordStore. The revision note is
// mandatory and appends to the record's history; storage never fabricates
// one.
func (d *Driver) UpdateRecord(ctx context.Context, tc tenant.Context, id string, upd store.RecordUpdate, rev record.Revision) (*record.Record, error) {
	if err := d.requireTenant(ctx, tc, true); err != nil {
		return nil, err
	}
	if err := record.ValidateRevision(rev); err != nil {
		return nil, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := d.getRecordTx(ctx, tx, tc, id, store.ReadOptions{RevealSecrets: true})
	if err != nil {
		return nil, err
	}

	if upd.Payload != nil {
		if upd.Payload.Variant() != current.Variant {
			return nil, &record.ValidationError{
				Variant: current.Variant,
				Reason:  fmt.Sprintf("cannot change variant to %s", upd.Payload.Variant()),
			}
		}
		current.Payload = upd.Payload
	}
	if upd.TreePath != nil {
		// Re-parenting is a metadata update; identity and history stay.
		current.TreePath = upd.TreePath.Clone()
	}
	if upd.Metadata != nil {
		current.Metadata = upd.Metadata
	}
	if upd.Embeddings != nil {
		current.Embeddings = upd.Embeddings
	}
	if upd.EmbeddingConfig != nil {
		current.EmbeddingConfig = upd.EmbeddingConfig
	}

	if err := record.Validate(current); err != nil {
		return nil, err
	}

	current.Revisions = append(current.Revisions, rev)
	current.UpdatedAt = nowUTC()

	payload, treePath, revisions, metadata, embeddings, embConfig, err := encodeRecord(current)
	if err != nil {
		return nil, err
	}

	searchText := current.Payload.SearchText()
	var searchCol any
	if searchText != "" {
		searchCol = searchText
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE memory_records SET
			payload = ?, tree_path = ?, revisions = ?, metadata = ?,
			embeddings = ?, embedding_config = ?, search_text = ?, updated_at = ?
		 WHERE id = ? AND organization_id = ? AND user_id = ?`,
		payload, treePath, revisions, metadata, embeddings, embConfig,
		searchCol, formatTime(current.UpdatedAt),
		id, tc.OrganizationID, tc.UserID,
	)
	if err != nil {
		return nil, wrapConstraint(err, "memory_records")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing update: %w", err)
	}

	return current, nil
}

// GetRecord implements store.RecordStore.
func (d *Driver) GetRecord(ctx context.Context, tc tenant.Context, id string, opts store.ReadOptions) (*record.Record, error) {
	if err := d.requireTenant(ctx, tc, true); err != nil {
		return nil, err
	}
	return d.getRecordTx(ctx, nil, tc, id, opts)
}

// getRecordTx runs the scoped lookup on tx when non-nil, else on the pool.
func (d *Driver) getRecordTx(ctx context.Context, tx *sql.Tx, tc tenant.Context, id string, opts store.ReadOptions) (*record.Record, error) {
	query := `SELECT ` + recordColumns + `
		 FROM memory_records
		 WHERE id = ? AND organization_id = ? AND user_id = ?`
	if !opts.IncludeDeleted {
		query += ` AND is_deleted = 0`
	}

	var q queryRower = d.db
	if tx != nil {
		q = tx
	}
	row := q.QueryRowContext(ctx, query, id, tc.OrganizationID, tc.UserID)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		d.auditIfCrossTenant(ctx, q, tc, "memory_records", "record", id)
		return nil, store.NotFoundError{Kind: "record", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying record: %w", err)
	}

	maskSecrets(rec, opts.RevealSecrets)
	return rec, nil
}

// SoftDeleteRecord implements store.RecordStore. The row is hidden from
// all default reads but retained for audit.
func (d *Driver) SoftDeleteRecord(ctx context.Context, tc tenant.Context, id string) error {
	if err := d.requireTenant(ctx, tc, true); err != nil {
		return err
	}

	res, err := d.db.ExecContext(ctx,
		`UPDATE memory_records SET is_deleted = 1, updated_at = ?
		 WHERE id = ? AND organization_id = ? AND user_id = ? AND is_deleted = 0`,
		formatTime(nowUTC()), id, tc.OrganizationID, tc.UserID,
	)
	if err != nil {
		return fmt.Errorf("soft-deleting record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		d.auditIfCrossTenant(ctx, d.db, tc, "memory_records", "record", id)
		return store.NotFoundError{Kind: "record", ID: id}
	}

	return nil
}

// ListRecords implements store.RecordStore.
func (d *Driver) ListRecords(ctx context.Context, tc tenant.Context, q store.ListQuery) ([]*record.Record, error) {
	if err := d.requireTenant(ctx, tc, true); err != nil {
		return nil, err
	}

	where := []string{"organization_id = ?", "user_id = ?"}
	args := []any{tc.OrganizationID, tc.UserID}

	if !q.IncludeDeleted {
		where = append(where, "is_deleted = 0")
	}
	if q.Variant != "" {
		where = append(where, "variant = ?")
		args = append(args, string(q.Variant))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(
		`SELECT %s FROM memory_records WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		recordColumns, strings.Join(where, " AND "),
	)
	args = append(args, limit, q.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		// Path filtering happens after decode; tree paths are advisory
		// browsing metadata, not an indexed key.
		if len(q.PathPrefix) > 0 && !rec.TreePath.HasPrefix(q.PathPrefix) {
			continue
		}

		maskSecrets(rec, q.RevealSecrets)
		out = append(out, rec)
	}

	return out, rows.Err()
}

// EmbeddingConfigCounts implements store.RecordStore.
func (d *Driver) EmbeddingConfigCounts(ctx context.Context, tc tenant.Context) (map[record.EmbeddingConfig]int, error) {
	if err := d.requireTenant(ctx, tc, true); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT embedding_config, COUNT(*)
		 FROM memory_records
		 WHERE organization_id = ? AND user_id = ? AND is_deleted = 0
			AND embedding_config IS NOT NULL
		 GROUP BY embedding_config`,
		tc.OrganizationID, tc.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("counting embedding configs: %w", err)
	}
	defer rows.Close()

	counts := make(map[record.EmbeddingConfig]int)
	for rows.Next() {
		var raw string
		var n int
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, err
		}

		var cfg record.EmbeddingConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			continue
		}
		counts[cfg] += n
	}

	return counts, rows.Err()
}

// ListMissingEmbeddings implements store.RecordStore. Administrative scan
// used by the reconciliation worker; spans all tenants.
func (d *Driver) ListMissingEmbeddings(ctx context.Context, limit int) ([]*record.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+recordColumns+`
		 FROM memory_records
		 WHERE is_deleted = 0 AND embeddings IS NULL AND search_text IS NOT NULL
		 ORDER BY created_at
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing records without embeddings: %w", err)
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// recordByIdempotencyKey returns the record previously created under the
// key, or nil when the key is unseen.
func (d *Driver) recordByIdempotencyKey(ctx context.Context, tc tenant.Context, key string) (*record.Record, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+`
		 FROM memory_records
		 WHERE organization_id = ? AND user_id = ? AND idempotency_key = ?`,
		tc.OrganizationID, tc.UserID, key,
	)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying idempotency key: %w", err)
	}

	maskSecrets(rec, false)
	return rec, nil
}

// encodeRecord serializes the JSON-typed columns. Nil-able columns come
// back as nil so SQL NULL semantics hold (embeddings in particular:
// NULL means "not yet embedded").
func encodeRecord(rec *record.Record) (payload, treePath, revisions, metadata, embeddings, embConfig any, err error) {
	p, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("encoding payload: %w", err)
	}
	payload = string(p)

	tp, err := json.Marshal(rec.TreePath)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("encoding tree path: %w", err)
	}
	treePath = string(tp)

	revs := rec.Revisions
	if revs == nil {
		revs = []record.Revision{}
	}
	rv, err := json.Marshal(revs)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("encoding revisions: %w", err)
	}
	revisions = string(rv)

	if rec.Metadata != nil {
		m, err := json.Marshal(rec.Metadata)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, fmt.Errorf("encoding metadata: %w", err)
		}
		metadata = string(m)
	}

	if len(rec.Embeddings) > 0 {
		e, err := json.Marshal(rec.Embeddings)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, fmt.Errorf("encoding embeddings: %w", err)
		}
		embeddings = string(e)
	}

	if rec.EmbeddingConfig != nil {
		c, err := json.Marshal(rec.EmbeddingConfig)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, fmt.Errorf("encoding embedding config: %w", err)
		}
		embConfig = string(c)
	}

	return payload, treePath, revisions, metadata, embeddings, embConfig, nil
}

// scanRecord decodes one row via the given scan function, which must
// target recordColumns in order.
func scanRecord(scan func(...any) error) (*record.Record, error) {
	var (
		rec                                  record.Record
		variant, payload, treePath, revisions string
		metadata, embeddings, embConfig      sql.NullString
		idemKey                              sql.NullString
		createdAt, updatedAt                 string
	)

	err := scan(
		&rec.ID, &rec.OrganizationID, &rec.UserID, &variant, &payload,
		&treePath, &revisions, &metadata, &embeddings, &embConfig,
		&idemKey, &rec.IsDeleted, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Variant = record.Variant(variant)

	pl, err := record.NewPayload(rec.Variant)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), pl); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", variant, err)
	}
	rec.Payload = pl

	if err := json.Unmarshal([]byte(treePath), &rec.TreePath); err != nil {
		return nil, fmt.Errorf("decoding tree path: %w", err)
	}
	if err := json.Unmarshal([]byte(revisions), &rec.Revisions); err != nil {
		return nil, fmt.Errorf("decoding revisions: %w", err)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	if embeddings.Valid && embeddings.String != "" {
		if err := json.Unmarshal([]byte(embeddings.String), &rec.Embeddings); err != nil {
			return nil, fmt.Errorf("decoding embeddings: %w", err)
		}
	}
	if embConfig.Valid && embConfig.String != "" {
		cfg := &record.EmbeddingConfig{}
		if err := json.Unmarshal([]byte(embConfig.String), cfg); err != nil {
			return nil, fmt.Errorf("decoding embedding config: %w", err)
		}
		rec.EmbeddingConfig = cfg
	}

	rec.IdempotencyKey = idemKey.String
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)

	return &rec, nil
}

// maskSecrets replaces vault secret values with the masked placeholder
// unless the caller explicitly requested plaintext with elevated scope.
func maskSecrets(rec *record.Record, reveal bool) {
	if reveal {
		return
	}
	if v, ok := rec.Payload.(*record.Vault); ok {
		rec.Payload = v.Mask()
	}
}
