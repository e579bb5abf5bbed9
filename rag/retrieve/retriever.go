// Package retrieve implements per-query candidate retrieval, pairwise
// reranking, and retrieval-quality evaluation.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/support-assistant/document"
	"github.com/sweetpotato0/support-assistant/errors"
)

// DefaultInitialK is how many candidates the index is asked for per query.
const DefaultInitialK = 6

// SearchIndex is the vector-index collaborator. Implementations fuse dense
// semantic similarity and sparse lexical matching internally; the retriever
// only invokes them and returns the raw candidate list.
type SearchIndex interface {
	Search(ctx context.Context, query string, k int) ([]document.Document, error)
}

// Retriever fetches the initial candidate set for one query.
type Retriever struct {
	index    SearchIndex
	initialK int
}

// Option customizes the retriever.
type Option func(*Retriever)

// WithInitialK overrides how many candidates are pulled from the index.
func WithInitialK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.initialK = k
		}
	}
}

// NewRetriever creates a retriever over the given index.
func NewRetriever(index SearchIndex, opts ...Option) *Retriever {
	r := &Retriever{
		index:    index,
		initialK: DefaultInitialK,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to initialK best-matching documents for the query.
// A blank query is an input error and never reaches the index.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]document.Document, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("retrieve: %w", errors.ErrEmptyInput)
	}
	docs, err := r.index.Search(ctx, q, r.initialK)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}
	return docs, nil
}
