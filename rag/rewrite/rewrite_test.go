package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/sweetpotato0/support-assistant/errors"
	"github.com/sweetpotato0/support-assistant/llm"
)

func TestParseQueriesStripsBulletsAndNumbering(t *testing.T) {
	raw := "- domain suspension reasons\n" +
		"2) WHOIS verification steps\n" +
		"* billing dispute process\n" +
		"  3. refund eligibility  \n" +
		"plain query"

	got := ParseQueries(raw)
	want := []string{
		"domain suspension reasons",
		"WHOIS verification steps",
		"billing dispute process",
		"refund eligibility",
		"plain query",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d queries, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("query %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestParseQueriesDeduplicatesPreservingFirstSeen(t *testing.T) {
	raw := "reset password\nunlock account\nreset password\n- reset password"
	got := ParseQueries(raw)
	want := []string{"reset password", "unlock account"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("query %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestParseQueriesCapsAtMaxQueries(t *testing.T) {
	raw := "q1\nq2\nq3\nq4\nq5\nq6\nq7"
	got := ParseQueries(raw)
	if len(got) != MaxQueries {
		t.Fatalf("expected %d queries, got %d", MaxQueries, len(got))
	}
	if got[MaxQueries-1] != "q5" {
		t.Errorf("expected last query q5, got %q", got[MaxQueries-1])
	}
}

func TestParseQueriesDropsBlankAndMarkerOnlyLines(t *testing.T) {
	raw := "\n   \n-\n* \nreal query\n"
	got := ParseQueries(raw)
	if len(got) != 1 || got[0] != "real query" {
		t.Fatalf("expected [real query], got %v", got)
	}
}

func TestRewriteRejectsBlankTicket(t *testing.T) {
	r := New(llm.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		t.Fatal("llm must not be called for blank input")
		return "", nil
	}))

	_, err := r.Rewrite(context.Background(), "   \n\t ")
	if !errors.Is(err, apperrors.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestRewriteEmbedsTicketInPrompt(t *testing.T) {
	var seenPrompt string
	r := New(llm.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		seenPrompt = prompt
		return "domain suspension appeal", nil
	}))

	queries, err := r.Rewrite(context.Background(), "my domain got suspended, why?")
	if err != nil {
		t.Fatalf("Rewrite error: %v", err)
	}
	if !strings.Contains(seenPrompt, "my domain got suspended, why?") {
		t.Errorf("prompt does not contain ticket text")
	}
	if len(queries) != 1 || queries[0] != "domain suspension appeal" {
		t.Fatalf("unexpected queries: %v", queries)
	}
}

func TestRewritePropagatesBackendError(t *testing.T) {
	backendErr := errors.New("backend down")
	r := New(llm.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", backendErr
	}))

	_, err := r.Rewrite(context.Background(), "valid ticket text")
	if !errors.Is(err, backendErr) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
}
