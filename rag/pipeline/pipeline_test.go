package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sweetpotato0/support-assistant/document"
	apperrors "github.com/sweetpotato0/support-assistant/errors"
	"github.com/sweetpotato0/support-assistant/llm"
	"github.com/sweetpotato0/support-assistant/rag/action"
	"github.com/sweetpotato0/support-assistant/rag/generate"
	"github.com/sweetpotato0/support-assistant/rag/retrieve"
	"github.com/sweetpotato0/support-assistant/rag/rewrite"
	"github.com/sweetpotato0/support-assistant/schema"
)

// routedLLM answers the rewrite and generation prompts differently.
type routedLLM struct {
	queries string
	answer  string
}

func (r *routedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "query rewriting assistant") {
		return r.queries, nil
	}
	return r.answer, nil
}

// stubIndex serves fixed documents per query.
type stubIndex struct {
	results map[string][]document.Document
}

func (s *stubIndex) Search(ctx context.Context, query string, k int) ([]document.Document, error) {
	return s.results[query], nil
}

// queryScorer keys scores on (query, content) so the same content can score
// differently across queries.
type queryScorer struct {
	scores map[string]map[string]float64
}

func (s *queryScorer) Score(ctx context.Context, query, text string) (float64, error) {
	return s.scores[query][text], nil
}

// axisEmbedder puts unmapped texts (the classifier prototypes) on the y
// axis and mapped answers elsewhere.
type axisEmbedder struct {
	vectors map[string][]float32
}

func (a *axisEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := a.vectors[text]; ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}
	return []float32{0, 1, 0}, nil
}

func (a *axisEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := a.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (a *axisEmbedder) Dimension() int { return 3 }

func kbDoc(content, category, section, file string) document.Document {
	d := document.Document{Content: content}
	d.SetMeta(document.MetaCategory, category)
	d.SetMeta(document.MetaSection, section)
	d.SetMeta(document.MetaSourceFile, file)
	return d
}

func newTestResolver(t *testing.T, client llm.Client, index retrieve.SearchIndex, scorer retrieve.RelevanceScorer, answerVec []float32, answer string, opts ...Option) *Resolver {
	t.Helper()
	emb := &axisEmbedder{vectors: map[string][]float32{}}
	if answerVec != nil {
		emb.vectors[answer] = answerVec
	}
	classifier, err := action.NewClassifier(context.Background(), emb)
	if err != nil {
		t.Fatalf("NewClassifier error: %v", err)
	}
	return NewResolver(
		rewrite.New(client),
		retrieve.NewRetriever(index),
		retrieve.NewReranker(scorer),
		generate.New(client),
		classifier,
		opts...,
	)
}

func TestResolveEndToEnd(t *testing.T) {
	answer := "Reset your password via the emailed link."
	client := &routedLLM{
		queries: "password reset steps\naccount locked help",
		answer:  `{"answer": "` + answer + `"}`,
	}

	docA := kbDoc("Use the reset link.", "faqs", "Password Reset", "faqs/reset.md")
	docB := kbDoc("Check spam folder.", "faqs", "Email Delivery", "faqs/email.md")
	docC := kbDoc("Unlock via support page.", "runbooks", "Account Unlock", "runbooks/unlock.md")

	index := &stubIndex{results: map[string][]document.Document{
		"password reset steps": {docA, docB},
		"account locked help":  {docC, docA},
	}}
	scorer := &queryScorer{scores: map[string]map[string]float64{
		"password reset steps": {docA.Content: 4.8, docB.Content: 3.9},
		"account locked help":  {docC.Content: 4.9, docA.Content: 2.0},
	}}

	// The answer embeds orthogonally to every prototype, so no action
	// clears the threshold and the verdict normalizes to none.
	r := newTestResolver(t, client, index, scorer, []float32{0, 0, 1}, answer)

	res, err := r.Resolve(context.Background(), "I forgot my password and my account is locked")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	if res.Response.Answer != answer {
		t.Errorf("answer: got %q", res.Response.Answer)
	}
	if res.Response.ActionRequired != schema.ActionNone {
		t.Errorf("action: expected none, got %s", res.Response.ActionRequired)
	}
	if len(res.RewrittenQueries) != 2 {
		t.Fatalf("expected 2 queries, got %v", res.RewrittenQueries)
	}

	// Global ranking is by relevance score across queries; docA was seen
	// twice and the later query's score (2.0) wins the dedup.
	if len(res.FinalDocuments) != 3 {
		t.Fatalf("expected 3 final documents, got %d", len(res.FinalDocuments))
	}
	wantOrder := []string{docC.Content, docB.Content, docA.Content}
	for i, want := range wantOrder {
		if res.FinalDocuments[i].Content != want {
			t.Errorf("final doc %d: expected %q, got %q", i, want, res.FinalDocuments[i].Content)
		}
	}
	if got := res.FinalDocuments[2].RelevanceScore(); got != 2.0 {
		t.Errorf("deduplicated doc must carry the last seen score, got %v", got)
	}

	if res.Aggregate.Quality != retrieve.QualityGood {
		t.Errorf("aggregate quality: expected good, got %s", res.Aggregate.Quality)
	}

	wantRefs := []string{
		"runbooks: Account Unlock | file=runbooks/unlock.md",
		"faqs: Email Delivery | file=faqs/email.md",
		"faqs: Password Reset | file=faqs/reset.md",
	}
	if len(res.Response.References) != len(wantRefs) {
		t.Fatalf("references: got %v", res.Response.References)
	}
	for i, want := range wantRefs {
		if res.Response.References[i] != want {
			t.Errorf("reference %d: expected %q, got %q", i, want, res.Response.References[i])
		}
	}
}

func TestResolveSafetyOverride(t *testing.T) {
	answer := "I could not find anything relevant."
	client := &routedLLM{
		queries: "vague question",
		answer:  `{"answer": "` + answer + `"}`,
	}

	doc := kbDoc("Barely related text.", "faqs", "Misc", "faqs/misc.md")
	index := &stubIndex{results: map[string][]document.Document{
		"vague question": {doc},
	}}
	scorer := &queryScorer{scores: map[string]map[string]float64{
		"vague question": {doc.Content: 1.2},
	}}

	r := newTestResolver(t, client, index, scorer, []float32{0, 0, 1}, answer)

	res, err := r.Resolve(context.Background(), "something vague happened to my stuff")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.Aggregate.Quality != retrieve.QualityPoor {
		t.Fatalf("expected poor aggregate, got %s", res.Aggregate.Quality)
	}
	if res.Response.ActionRequired != schema.ActionFollowUp {
		t.Fatalf("poor retrieval with no action must become follow_up_required, got %s", res.Response.ActionRequired)
	}
}

func TestResolveEmptyRewriteFallsBackToTicket(t *testing.T) {
	answer := "Grounded answer."
	ticket := "my domain stopped resolving yesterday"
	client := &routedLLM{
		queries: "",
		answer:  `{"answer": "` + answer + `"}`,
	}

	doc := kbDoc("DNS propagation takes time.", "faqs", "DNS", "faqs/dns.md")
	index := &stubIndex{results: map[string][]document.Document{
		ticket: {doc},
	}}
	scorer := &queryScorer{scores: map[string]map[string]float64{
		ticket: {doc.Content: 4.6},
	}}

	r := newTestResolver(t, client, index, scorer, []float32{0, 0, 1}, answer)

	res, err := r.Resolve(context.Background(), ticket)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(res.RewrittenQueries) != 1 || res.RewrittenQueries[0] != ticket {
		t.Fatalf("expected fallback to ticket text, got %v", res.RewrittenQueries)
	}
	if len(res.FinalDocuments) != 1 {
		t.Fatalf("expected 1 final document, got %d", len(res.FinalDocuments))
	}
}

func TestResolveBlankTicket(t *testing.T) {
	r := newTestResolver(t, &routedLLM{}, &stubIndex{}, &queryScorer{}, nil, "")
	_, err := r.Resolve(context.Background(), "   ")
	if !errors.Is(err, apperrors.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestResolveGenerationFailureIsFatal(t *testing.T) {
	client := &routedLLM{
		queries: "q",
		answer:  "not json at all",
	}
	doc := kbDoc("content", "faqs", "S", "faqs/s.md")
	index := &stubIndex{results: map[string][]document.Document{"q": {doc}}}
	scorer := &queryScorer{scores: map[string]map[string]float64{"q": {doc.Content: 4.5}}}

	r := newTestResolver(t, client, index, scorer, nil, "")
	_, err := r.Resolve(context.Background(), "valid ticket text here")
	if !errors.Is(err, apperrors.ErrMalformedGeneration) {
		t.Fatalf("expected ErrMalformedGeneration, got %v", err)
	}
}

func TestAggregateQualityFolding(t *testing.T) {
	outcome := func(q retrieve.Quality, top float64) queryOutcome {
		return queryOutcome{assessment: retrieve.Assessment{Quality: q, TopScore: top}}
	}
	r := &Resolver{finalK: DefaultFinalK}

	// Last good wins.
	_, best := r.aggregate([]queryOutcome{
		outcome(retrieve.QualityGood, 4.5),
		outcome(retrieve.QualityPoor, 1.0),
		outcome(retrieve.QualityGood, 4.9),
	})
	if best.Quality != retrieve.QualityGood || best.TopScore != 4.9 {
		t.Errorf("expected last good (4.9), got %+v", best)
	}

	// Partially good upgrades poor once; the first one sticks.
	_, best = r.aggregate([]queryOutcome{
		outcome(retrieve.QualityPoor, 1.0),
		outcome(retrieve.QualityPartiallyGood, 3.5),
		outcome(retrieve.QualityPartiallyGood, 3.9),
	})
	if best.Quality != retrieve.QualityPartiallyGood || best.TopScore != 3.5 {
		t.Errorf("expected first partially_good (3.5), got %+v", best)
	}

	// Poor never upgrades anything.
	_, best = r.aggregate([]queryOutcome{
		outcome(retrieve.QualityPartiallyGood, 3.5),
		outcome(retrieve.QualityPoor, 0.5),
	})
	if best.Quality != retrieve.QualityPartiallyGood {
		t.Errorf("poor must not downgrade, got %+v", best)
	}
}

func TestAggregateRankingAndTruncation(t *testing.T) {
	scored := func(content string, score float64) document.Document {
		d := document.Document{Content: content}
		d.SetMeta(document.MetaRelevanceScore, score)
		return d
	}
	r := &Resolver{finalK: 2}

	docs, _ := r.aggregate([]queryOutcome{
		{docs: []document.Document{scored("a", 1.0), scored("b", 3.0)}},
		{docs: []document.Document{scored("c", 2.0), {Content: "unscored"}}},
	})
	if len(docs) != 2 {
		t.Fatalf("expected finalK=2 documents, got %d", len(docs))
	}
	if docs[0].Content != "b" || docs[1].Content != "c" {
		t.Errorf("expected [b c], got [%s %s]", docs[0].Content, docs[1].Content)
	}
}

func TestResolveSequentialFanOut(t *testing.T) {
	answer := "Sequential answer."
	client := &routedLLM{
		queries: "q1\nq2",
		answer:  `{"answer": "` + answer + `"}`,
	}
	doc1 := kbDoc("first", "faqs", "A", "faqs/a.md")
	doc2 := kbDoc("second", "faqs", "B", "faqs/b.md")
	index := &stubIndex{results: map[string][]document.Document{
		"q1": {doc1},
		"q2": {doc2},
	}}
	scorer := &queryScorer{scores: map[string]map[string]float64{
		"q1": {doc1.Content: 4.8},
		"q2": {doc2.Content: 3.2},
	}}

	r := newTestResolver(t, client, index, scorer, []float32{0, 0, 1}, answer, WithSequentialFanOut())
	res, err := r.Resolve(context.Background(), "two separate issues in one ticket")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(res.FinalDocuments) != 2 {
		t.Fatalf("expected both documents, got %d", len(res.FinalDocuments))
	}
	if res.FinalDocuments[0].Content != "first" {
		t.Errorf("expected higher-scored doc first, got %q", res.FinalDocuments[0].Content)
	}
}
