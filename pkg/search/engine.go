// Package search implements hybrid retrieval over the memory record
// store: a lexical full-text set and a vector similarity set, fused by
// weighted score.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/embeddings"
	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/store"
	"github.com/mnemohq/mnemo/pkg/tenant"
	"github.com/mnemohq/mnemo/pkg/vector"
)

const (
	// DefaultTopK bounds results when the caller passes no limit.
	DefaultTopK = 10

	// DefaultLexicalWeight and DefaultVectorWeight balance the two sets
	// evenly unless configured otherwise.
	DefaultLexicalWeight = 0.5
	DefaultVectorWeight  = 0.5

	// candidateFactor widens both candidate sets beyond topK so fusion
	// has overlap to work with.
	candidateFactor = 3
)

// Config tunes the fusion weights.
type Config struct {
	// LexicalWeight scales the normalized full-text score.
	LexicalWeight float64

	// VectorWeight scales the normalized similarity score.
	VectorWeight float64
}

// Result is one fused hit. A record present in only one set is scored by
// that set alone; its other normalized score stays zero.
type Result struct {
	Record *record.Record

	// Score is the fused relevance, higher is better.
	Score float64

	// LexicalScore and VectorScore are the per-set normalized scores
	// that produced the fusion.
	LexicalScore float64
	VectorScore  float64
}

// Engine runs hybrid retrieval. The embedder is optional; without one,
// searches are lexical only.
type Engine struct {
	records  store.RecordStore
	vectors  vector.Driver
	embedder embeddings.Embedder
	cfg      Config
	logger   *zap.Logger
}

// NewEngine creates a hybrid retrieval engine. vectors and embedder may
// both be nil for a lexical-only engine.
func NewEngine(records store.RecordStore, vectors vector.Driver, embedder embeddings.Embedder, cfg Config, logger *zap.Logger) *Engine {
	if cfg.LexicalWeight <= 0 && cfg.VectorWeight <= 0 {
		cfg.LexicalWeight = DefaultLexicalWeight
		cfg.VectorWeight = DefaultVectorWeight
	}

	return &Engine{
		records:  records,
		vectors:  vectors,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Search runs hybrid retrieval scoped to the tenant. An empty or
// whitespace query returns an empty result, never an error. Records
// persisted without embeddings participate only in the lexical set.
func (e *Engine) Search(ctx context.Context, tc tenant.Context, query string, variants []record.Variant, topK int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	fetchK := topK * candidateFactor

	lexHits, err := e.records.SearchLexical(ctx, tc, query, variants, fetchK)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	vecHits, err := e.vectorCandidates(ctx, tc, query, variants, fetchK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := fuse(lexHits, vecHits, e.cfg)

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.UpdatedAt.After(results[j].Record.UpdatedAt)
	})

	if len(results) > topK {
		results = results[:topK]
	}

	e.logger.Debug("hybrid search",
		zap.String("organization_id", tc.OrganizationID),
		zap.Int("lexical", len(lexHits)),
		zap.Int("vector", len(vecHits)),
		zap.Int("fused", len(results)),
	)

	return results, nil
}

// vectorHit is one vector candidate collapsed to its record.
type vectorHit struct {
	rec   *record.Record
	score float64
}

// vectorCandidates embeds the query and collects per-record best
// similarity, restricted to the engine's embedding space. Returns nil
// when the engine has no vector side.
func (e *Engine) vectorCandidates(ctx context.Context, tc tenant.Context, query string, variants []record.Variant, fetchK int) ([]vectorHit, error) {
	if e.vectors == nil || e.embedder == nil {
		return nil, nil
	}

	space := e.embedder.Config()
	e.warnMinoritySpace(ctx, tc, space)

	qvec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	docs, err := e.vectors.Query(ctx, qvec, fetchK, vector.Filter{
		OrganizationID: tc.OrganizationID,
		UserID:         tc.UserID,
		Provider:       space.Provider,
		Model:          space.Model,
	})
	if err != nil {
		return nil, err
	}

	// A record with several embedded fields surfaces once, at its best
	// field score.
	best := make(map[string]float64)
	order := make([]string, 0, len(docs))
	for _, doc := range docs {
		score := float64(doc.Score)
		if prev, ok := best[doc.RecordID]; ok {
			if score > prev {
				best[doc.RecordID] = score
			}
			continue
		}
		best[doc.RecordID] = score
		order = append(order, doc.RecordID)
	}

	wantVariant := make(map[record.Variant]bool, len(variants))
	for _, v := range variants {
		wantVariant[v] = true
	}

	hits := make([]vectorHit, 0, len(order))
	for _, id := range order {
		rec, err := e.records.GetRecord(ctx, tc, id, store.ReadOptions{})
		if err != nil {
			// Soft-deleted records linger in the index until the
			// reconciler prunes them; skip rather than fail.
			if store.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("hydrating record %s: %w", id, err)
		}

		if len(wantVariant) > 0 && !wantVariant[rec.Variant] {
			continue
		}

		hits = append(hits, vectorHit{rec: rec, score: best[id]})
	}

	return hits, nil
}

// warnMinoritySpace logs when the configured embedder is not the
// majority embedding space of the tenant's corpus. Records embedded in
// other spaces still appear, but only lexically.
func (e *Engine) warnMinoritySpace(ctx context.Context, tc tenant.Context, space record.EmbeddingConfig) {
	counts, err := e.records.EmbeddingConfigCounts(ctx, tc)
	if err != nil || len(counts) == 0 {
		return
	}

	var majority record.EmbeddingConfig
	var max int
	for cfg, n := range counts {
		if n > max {
			majority, max = cfg, n
		}
	}

	if !majority.Matches(space) {
		e.logger.Warn("query embedder differs from corpus majority embedding space",
			zap.String("organization_id", tc.OrganizationID),
			zap.String("query_provider", space.Provider),
			zap.String("query_model", space.Model),
			zap.String("majority_provider", majority.Provider),
			zap.String("majority_model", majority.Model),
		)
	}
}

// fuse normalizes each set to [0,1] independently and combines by
// weighted sum. Membership in a single set scores by that set alone.
func fuse(lexHits []store.LexicalHit, vecHits []vectorHit, cfg Config) []Result {
	lexNorm := normalizeLexical(lexHits)
	vecNorm := normalizeVector(vecHits)

	byID := make(map[string]*Result)
	var order []string

	for _, h := range lexHits {
		id := h.Record.ID
		if _, ok := byID[id]; !ok {
			byID[id] = &Result{Record: h.Record}
			order = append(order, id)
		}
		byID[id].LexicalScore = lexNorm[id]
	}
	for _, h := range vecHits {
		id := h.rec.ID
		if _, ok := byID[id]; !ok {
			byID[id] = &Result{Record: h.rec}
			order = append(order, id)
		}
		byID[id].VectorScore = vecNorm[id]
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		r := byID[id]
		inLex := lexNorm[id] > 0 || hasKey(lexNorm, id)
		inVec := vecNorm[id] > 0 || hasKey(vecNorm, id)

		switch {
		case inLex && inVec:
			r.Score = cfg.LexicalWeight*r.LexicalScore + cfg.VectorWeight*r.VectorScore
		case inLex:
			r.Score = r.LexicalScore
		default:
			r.Score = r.VectorScore
		}

		results = append(results, *r)
	}

	return results
}

func hasKey(m map[string]float64, k string) bool {
	_, ok := m[k]
	return ok
}

// normalizeLexical min-max normalizes raw lexical scores per set. A set
// with no spread maps every member to 1.
func normalizeLexical(hits []store.LexicalHit) map[string]float64 {
	if len(hits) == 0 {
		return nil
	}
	raw := make(map[string]float64, len(hits))
	for _, h := range hits {
		raw[h.Record.ID] = h.Score
	}
	return minMax(raw)
}

func normalizeVector(hits []vectorHit) map[string]float64 {
	if len(hits) == 0 {
		return nil
	}
	raw := make(map[string]float64, len(hits))
	for _, h := range hits {
		raw[h.rec.ID] = h.score
	}
	return minMax(raw)
}

func minMax(raw map[string]float64) map[string]float64 {
	min, max := 0.0, 0.0
	first := true
	for _, s := range raw {
		if first {
			min, max = s, s
			first = false
			continue
		}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	out := make(map[string]float64, len(raw))
	spread := max - min
	for id, s := range raw {
		if spread == 0 {
			out[id] = 1
			continue
		}
		out[id] = (s - min) / spread
	}
	return out
}
