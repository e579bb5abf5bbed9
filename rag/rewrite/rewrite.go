// Package rewrite turns raw support tickets into clean, retrieval-oriented
// search queries.
package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sweetpotato0/support-assistant/errors"
	"github.com/sweetpotato0/support-assistant/llm"
	"github.com/sweetpotato0/support-assistant/pkg/logging"
)

// MaxQueries caps how many rewritten queries a single ticket may produce.
const MaxQueries = 5

const rewritePrompt = `You are a query rewriting assistant for a customer support knowledge base.

Rewrite the ticket into clear, retrieval-friendly search queries.

Rules:
- Use neutral, professional language
- Use support terminology (domain suspension, WHOIS, abuse, billing, etc.)
- Split multi-issue tickets into multiple queries
- Do NOT answer
- Do NOT add facts
- Output one query per line, no bullets, no numbering

Ticket:
"""%s"""

Queries:
`

var listPrefix = regexp.MustCompile(`^\d+[.)]\s*`)

// Rewriter expands one ticket into at most MaxQueries search queries.
type Rewriter struct {
	llm    llm.Client
	logger *slog.Logger
}

// New creates a rewriter backed by the given generation client.
func New(client llm.Client) *Rewriter {
	return &Rewriter{
		llm:    client,
		logger: logging.WithComponent("query_rewriter"),
	}
}

// Rewrite asks the generation backend to rewrite the ticket and parses its
// raw output line by line. Queries are deduplicated by exact string equality
// preserving first-seen order. An empty result is not an error here; the
// orchestrator falls back to the original ticket text.
func (r *Rewriter) Rewrite(ctx context.Context, ticketText string) ([]string, error) {
	ticket := strings.TrimSpace(ticketText)
	if ticket == "" {
		return nil, fmt.Errorf("rewrite ticket: %w", errors.ErrEmptyInput)
	}

	raw, err := r.llm.Complete(ctx, fmt.Sprintf(rewritePrompt, ticket))
	if err != nil {
		return nil, fmt.Errorf("rewrite ticket: %w", err)
	}

	queries := ParseQueries(raw)
	r.logger.Debug("ticket rewritten", "queries", len(queries))
	return queries, nil
}

// ParseQueries extracts queries from raw model output: one query per line,
// trimmed, with leading bullet markers and numeric list prefixes stripped,
// blank lines dropped, duplicates removed, capped at MaxQueries.
func ParseQueries(raw string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, MaxQueries)
	for _, line := range strings.Split(raw, "\n") {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		s = strings.TrimSpace(strings.TrimLeft(s, "-•*"))
		s = strings.TrimSpace(listPrefix.ReplaceAllString(s, ""))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == MaxQueries {
			break
		}
	}
	return out
}
