package retrieve

import (
	"context"
	"fmt"
	"sort"

	"github.com/sweetpotato0/support-assistant/document"
)

// DefaultRerankTopK is how many documents survive reranking per query.
const DefaultRerankTopK = 4

// RelevanceScorer is the pairwise relevance-model collaborator. Higher
// scores mean more relevant; no fixed range is guaranteed.
type RelevanceScorer interface {
	Score(ctx context.Context, query, text string) (float64, error)
}

// BatchScorer is an optional upgrade interface for scorers that can rate all
// candidates of a query in one call. Results must be index-aligned with the
// input texts.
type BatchScorer interface {
	ScoreBatch(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Reranker reorders a candidate set by pairwise relevance and keeps the top.
type Reranker struct {
	scorer RelevanceScorer
	topK   int
}

// RerankerOption customizes the reranker.
type RerankerOption func(*Reranker)

// WithRerankTopK overrides how many documents survive reranking.
func WithRerankTopK(k int) RerankerOption {
	return func(r *Reranker) {
		if k > 0 {
			r.topK = k
		}
	}
}

// NewReranker creates a reranker around the given relevance scorer.
func NewReranker(scorer RelevanceScorer, opts ...RerankerOption) *Reranker {
	r := &Reranker{
		scorer: scorer,
		topK:   DefaultRerankTopK,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rerank scores every (query, content) pair, sorts descending by score with
// a stable sort (ties keep the candidates' original relative order), keeps
// the first topK, and writes the score into each kept document's
// relevance_score metadata. The returned score slice is index-aligned with
// the returned documents. Empty candidate sets return empty slices without
// invoking the relevance model.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []document.Document) ([]document.Document, []float64, error) {
	if len(candidates) == 0 {
		return []document.Document{}, []float64{}, nil
	}

	scores, err := r.scoreAll(ctx, query, candidates)
	if err != nil {
		return nil, nil, err
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	keep := r.topK
	if keep > len(order) {
		keep = len(order)
	}

	topDocs := make([]document.Document, 0, keep)
	topScores := make([]float64, 0, keep)
	for _, idx := range order[:keep] {
		doc := candidates[idx].Clone()
		doc.SetMeta(document.MetaRelevanceScore, scores[idx])
		topDocs = append(topDocs, doc)
		topScores = append(topScores, scores[idx])
	}
	return topDocs, topScores, nil
}

func (r *Reranker) scoreAll(ctx context.Context, query string, candidates []document.Document) ([]float64, error) {
	texts := make([]string, len(candidates))
	for i, doc := range candidates {
		texts[i] = doc.Content
	}

	if batch, ok := r.scorer.(BatchScorer); ok {
		scores, err := batch.ScoreBatch(ctx, query, texts)
		if err != nil {
			return nil, fmt.Errorf("rerank score batch: %w", err)
		}
		if len(scores) != len(texts) {
			return nil, fmt.Errorf("rerank score batch: expected %d scores, got %d", len(texts), len(scores))
		}
		return scores, nil
	}

	scores := make([]float64, len(texts))
	for i, text := range texts {
		score, err := r.scorer.Score(ctx, query, text)
		if err != nil {
			return nil, fmt.Errorf("rerank score pair %d: %w", i, err)
		}
		scores[i] = score
	}
	return scores, nil
}
