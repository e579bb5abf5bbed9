// Package inmemory implements the hybrid search-index collaborator entirely
// in process: dense cosine similarity over embedded chunks blended with a
// BM25 keyword index. It backs tests and local runs without external
// services.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sweetpotato0/support-assistant/document"
	"github.com/sweetpotato0/support-assistant/vector"
)

// Config controls the fusion of dense and sparse signals.
type Config struct {
	VectorWeight  float32
	KeywordWeight float32
}

// Option customises the index config.
type Option func(*Config)

// WithWeights customises the contribution of vector vs. keyword search
// (defaults 0.7/0.3).
func WithWeights(vectorWeight, keywordWeight float32) Option {
	return func(cfg *Config) {
		if vectorWeight >= 0 && keywordWeight >= 0 {
			cfg.VectorWeight = vectorWeight
			cfg.KeywordWeight = keywordWeight
		}
	}
}

type entry struct {
	id  string
	doc document.Document
	vec []float32
}

// Index fuses semantic vector search with a lightweight BM25 index.
type Index struct {
	embedder vector.Embedder
	cfg      Config

	mu      sync.RWMutex
	entries []entry
	keyword *bm25Index
}

// New creates an in-memory hybrid index.
func New(emb vector.Embedder, opts ...Option) (*Index, error) {
	if emb == nil {
		return nil, errors.New("embedder is required")
	}
	cfg := Config{
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Index{
		embedder: emb,
		cfg:      cfg,
		keyword:  newBM25(),
	}, nil
}

// Add embeds and indexes the given documents.
func (ix *Index) Add(ctx context.Context, docs ...document.Document) error {
	for _, doc := range docs {
		if doc.Content == "" {
			return errors.New("document content cannot be empty")
		}
		vec, err := ix.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("embed document: %w", err)
		}

		ix.mu.Lock()
		id := fmt.Sprintf("doc_%d", len(ix.entries))
		ix.entries = append(ix.entries, entry{
			id:  id,
			doc: doc.Clone(),
			vec: vector.Normalize(vec),
		})
		ix.keyword.add(id, doc.Content)
		ix.mu.Unlock()
	}
	return nil
}

// Search implements retrieve.SearchIndex, blending cosine similarity with
// BM25 keyword scores.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]document.Document, error) {
	if k <= 0 {
		k = 10
	}
	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec = vector.Normalize(queryVec)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scores := make(map[string]float32, len(ix.entries))
	byID := make(map[string]document.Document, len(ix.entries))
	for _, ent := range ix.entries {
		byID[ent.id] = ent.doc
		if len(ent.vec) == len(queryVec) {
			scores[ent.id] += vector.CosineSimilarity(queryVec, ent.vec) * ix.cfg.VectorWeight
		}
	}
	for _, hit := range ix.keyword.search(query, len(ix.entries)) {
		scores[hit.ID] += hit.Score * ix.cfg.KeywordWeight
	}

	type scored struct {
		id    string
		score float32
	}
	ranked := make([]scored, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, scored{id: id, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score == ranked[j].score {
			return ranked[i].id < ranked[j].id
		}
		return ranked[i].score > ranked[j].score
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]document.Document, 0, k)
	for _, sc := range ranked[:k] {
		out = append(out, byID[sc.id].Clone())
	}
	return out, nil
}

// Count returns the number of indexed documents.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}
