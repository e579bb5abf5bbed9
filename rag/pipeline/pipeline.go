// Package pipeline wires the ticket-resolution workflow together: query
// rewriting, per-query retrieval fan-out, cross-query aggregation, grounded
// generation, action inference, and the final safety gate.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/support-assistant/document"
	"github.com/sweetpotato0/support-assistant/errors"
	"github.com/sweetpotato0/support-assistant/pkg/logging"
	"github.com/sweetpotato0/support-assistant/pkg/telemetry"
	"github.com/sweetpotato0/support-assistant/rag/action"
	"github.com/sweetpotato0/support-assistant/rag/generate"
	"github.com/sweetpotato0/support-assistant/rag/references"
	"github.com/sweetpotato0/support-assistant/rag/retrieve"
	"github.com/sweetpotato0/support-assistant/rag/rewrite"
	"github.com/sweetpotato0/support-assistant/schema"
)

// DefaultFinalK is how many documents survive cross-query aggregation.
const DefaultFinalK = 4

// Resolution is the full pipeline result. Response is the externally valid
// contract; the remaining fields are internal diagnostics that must be
// stripped before crossing the external boundary.
type Resolution struct {
	Response schema.Response

	RewrittenQueries []string
	FinalDocuments   []document.Document
	Aggregate        retrieve.Assessment
	ActionDecision   action.Decision
}

// Resolver coordinates the ticket-resolution pipeline. All dependencies are
// constructed once and shared read-only across concurrent resolutions; no
// ticket-scoped state outlives a Resolve call.
type Resolver struct {
	rewriter   *rewrite.Rewriter
	retriever  *retrieve.Retriever
	reranker   *retrieve.Reranker
	generator  *generate.Generator
	classifier *action.Classifier

	finalK int
	fanOut bool
	logger *slog.Logger
	tracer trace.Tracer
}

// Option customizes the resolver.
type Option func(*Resolver)

// WithFinalK overrides how many documents survive global ranking.
func WithFinalK(k int) Option {
	return func(r *Resolver) {
		if k > 0 {
			r.finalK = k
		}
	}
}

// WithSequentialFanOut disables the concurrent per-query sub-pipeline;
// queries then run one at a time in order. Mainly useful for debugging.
func WithSequentialFanOut() Option {
	return func(r *Resolver) {
		r.fanOut = false
	}
}

// NewResolver creates a resolver from its stage components.
func NewResolver(
	rewriter *rewrite.Rewriter,
	retriever *retrieve.Retriever,
	reranker *retrieve.Reranker,
	generator *generate.Generator,
	classifier *action.Classifier,
	opts ...Option,
) *Resolver {
	r := &Resolver{
		rewriter:   rewriter,
		retriever:  retriever,
		reranker:   reranker,
		generator:  generator,
		classifier: classifier,
		finalK:     DefaultFinalK,
		fanOut:     true,
		logger:     logging.WithComponent("pipeline"),
		tracer:     otel.Tracer("support-assistant/pipeline"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// queryOutcome is one query's slice of the fan-out, kept index-aligned so
// aggregation preserves the original query order.
type queryOutcome struct {
	docs       []document.Document
	assessment retrieve.Assessment
	err        error
}

// Resolve runs the full pipeline for one ticket. Any collaborator failure is
// fatal for the ticket; there is no partial-result path and no retry.
func (r *Resolver) Resolve(ctx context.Context, ticketText string) (res *Resolution, err error) {
	ticket := strings.TrimSpace(ticketText)
	if ticket == "" {
		return nil, fmt.Errorf("resolve ticket: %w", errors.ErrEmptyInput)
	}

	ctx, span := r.tracer.Start(ctx, "resolve_ticket")
	defer func() { telemetry.End(span, err) }()

	queries, err := r.rewriter.Rewrite(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		// The rewriter produced nothing usable; fall back to the raw
		// ticket as the sole query.
		r.logger.Warn("query rewriter returned no queries, using ticket text")
		queries = []string{ticket}
	}
	span.SetAttributes(attribute.Int("queries", len(queries)))

	outcomes, err := r.runQueries(ctx, queries)
	if err != nil {
		return nil, err
	}

	finalDocs, aggregate := r.aggregate(outcomes)
	span.SetAttributes(
		attribute.Int("final_documents", len(finalDocs)),
		attribute.String("aggregate_quality", string(aggregate.Quality)),
	)

	answer, err := r.generator.Generate(ctx, ticket, finalDocs)
	if err != nil {
		return nil, err
	}

	decision, err := r.classifier.Infer(ctx, answer)
	if err != nil {
		return nil, err
	}

	actionRequired := decision.Action.Normalize()

	// Safety gate: weak retrieval evidence must not produce a confident
	// "nothing to do" verdict. The answer text itself is never blocked.
	if aggregate.Quality == retrieve.QualityPoor && actionRequired == schema.ActionNone {
		actionRequired = schema.ActionFollowUp
	}

	resp := schema.Response{
		Answer:         answer,
		References:     references.Select(finalDocs, references.DefaultTopK),
		ActionRequired: actionRequired,
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}

	r.logger.Info("ticket resolved",
		"queries", len(queries),
		"final_documents", len(finalDocs),
		"aggregate_quality", aggregate.Quality,
		"action_required", resp.ActionRequired,
		"action_confidence", decision.Confidence,
	)

	return &Resolution{
		Response:         resp,
		RewrittenQueries: queries,
		FinalDocuments:   finalDocs,
		Aggregate:        aggregate,
		ActionDecision:   decision,
	}, nil
}

// runQueries executes the retrieve → rerank → evaluate sub-pipeline for each
// query. The stages have no data dependency across queries, so they fan out
// concurrently by default; results stay index-aligned with the query list.
func (r *Resolver) runQueries(ctx context.Context, queries []string) ([]queryOutcome, error) {
	outcomes := make([]queryOutcome, len(queries))

	if !r.fanOut || len(queries) == 1 {
		for i, q := range queries {
			outcomes[i] = r.runQuery(ctx, q)
		}
	} else {
		var wg sync.WaitGroup
		for i, q := range queries {
			wg.Add(1)
			go func(idx int, query string) {
				defer wg.Done()
				outcomes[idx] = r.runQuery(ctx, query)
			}(i, q)
		}
		wg.Wait()
	}

	for i := range outcomes {
		if outcomes[i].err != nil {
			return nil, fmt.Errorf("query %d: %w", i, outcomes[i].err)
		}
	}
	return outcomes, nil
}

func (r *Resolver) runQuery(ctx context.Context, query string) queryOutcome {
	ctx, span := r.tracer.Start(ctx, "retrieve_query")
	var out queryOutcome
	defer func() { telemetry.End(span, out.err) }()

	candidates, err := r.retriever.Retrieve(ctx, query)
	if err != nil {
		out.err = err
		return out
	}

	docs, scores, err := r.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		out.err = err
		return out
	}

	out.docs = docs
	out.assessment = retrieve.Evaluate(scores, docs)
	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("kept", len(docs)),
		attribute.String("quality", string(out.assessment.Quality)),
	)
	return out
}

// aggregate merges all queries' kept documents and folds the per-query
// assessments into one verdict.
//
// Documents deduplicate by exact content equality with the last occurrence's
// metadata winning, so a later query's relevance score overwrites an earlier
// one for identical content. The pool is then sorted descending by relevance
// score (unscored documents sort last) and truncated to finalK.
//
// For the verdict: a good assessment always becomes the aggregate, last good
// winning. A partially_good assessment upgrades a poor aggregate (first one
// wins); poor never upgrades anything.
func (r *Resolver) aggregate(outcomes []queryOutcome) ([]document.Document, retrieve.Assessment) {
	type pooled struct {
		doc   document.Document
		order int
	}
	pool := make(map[string]pooled)
	next := 0

	best := retrieve.Assessment{Quality: retrieve.QualityPoor}
	for _, out := range outcomes {
		for _, doc := range out.docs {
			entry, ok := pool[doc.Content]
			if !ok {
				entry.order = next
				next++
			}
			entry.doc = doc
			pool[doc.Content] = entry
		}

		switch {
		case out.assessment.Quality == retrieve.QualityGood:
			best = out.assessment
		case best.Quality == retrieve.QualityPoor && out.assessment.Quality == retrieve.QualityPartiallyGood:
			best = out.assessment
		}
	}

	ranked := make([]pooled, 0, len(pool))
	for _, entry := range pool {
		ranked = append(ranked, entry)
	}
	// Unscored documents carry -Inf and sort last; equal scores keep
	// first-pooled order so the global ranking is deterministic.
	sort.SliceStable(ranked, func(a, b int) bool {
		sa, sb := ranked[a].doc.RelevanceScore(), ranked[b].doc.RelevanceScore()
		if sa == sb {
			return ranked[a].order < ranked[b].order
		}
		return sa > sb
	})

	limit := r.finalK
	if limit > len(ranked) {
		limit = len(ranked)
	}
	docs := make([]document.Document, 0, limit)
	for _, entry := range ranked[:limit] {
		docs = append(docs, entry.doc)
	}
	return docs, best
}
