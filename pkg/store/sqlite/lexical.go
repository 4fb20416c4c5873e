package sqlite

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/store"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

// SearchLexical implements store.RecordStore: bm25-ranked full-text
// matches over the FTS5 index, scoped to the tenant. Records with no
// searchable text are not in the index and therefore never appear;
// soft-deleted rows are filtered out.
func (d *Driver) SearchLexical(ctx context.Context, tc tenant.Context, query string, variants []record.Variant, limit int) ([]store.LexicalHit, error) {
	if err := d.requireTenant(ctx, tc, true); err != nil {
		return nil, err
	}

	expr := matchExpr(query)
	if expr == "" {
		return nil, nil
	}

	if limit <= 0 {
		limit = 10
	}

	where := []string{
		"memory_fts MATCH ?",
		"m.organization_id = ?",
		"m.user_id = ?",
		"m.is_deleted = 0",
		"m.search_text IS NOT NULL",
	}
	args := []any{expr, tc.OrganizationID, tc.UserID}

	if len(variants) > 0 {
		placeholders := make([]string, len(variants))
		for i, v := range variants {
			placeholders[i] = "?"
			args = append(args, string(v))
		}
		where = append(where, fmt.Sprintf("m.variant IN (%s)", strings.Join(placeholders, ",")))
	}

	// bm25 returns lower-is-better (negative) values; negate so callers
	// see higher-is-better scores.
	sqlQuery := fmt.Sprintf(`
		SELECT %s, -bm25(memory_fts) AS relevance
		FROM memory_fts
		INNER JOIN memory_records m ON m.rowid = memory_fts.rowid
		WHERE %s
		ORDER BY relevance DESC
		LIMIT ?`,
		prefixColumns("m", recordColumns), strings.Join(where, " AND "),
	)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var hits []store.LexicalHit
	for rows.Next() {
		var score float64
		rec, err := scanRecord(func(dest ...any) error {
			return rows.Scan(append(dest, &score)...)
		})
		if err != nil {
			return nil, fmt.Errorf("scanning lexical hit: %w", err)
		}

		maskSecrets(rec, false)
		hits = append(hits, store.LexicalHit{Record: rec, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	d.logger.Debug("lexical search",
		zap.String("organization_id", tc.OrganizationID),
		zap.Int("hits", len(hits)),
	)

	return hits, nil
}

// prefixColumns qualifies each column in a comma-separated list with a
// table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
