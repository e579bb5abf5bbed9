// Package generate builds grounded answers from retrieved documents under a
// strict JSON output contract.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/support-assistant/document"
	"github.com/sweetpotato0/support-assistant/errors"
	"github.com/sweetpotato0/support-assistant/llm"
	"github.com/sweetpotato0/support-assistant/pkg/logging"
)

// NoContextFallback is the literal context used when no documents survived
// retrieval.
const NoContextFallback = "No relevant documentation found."

const generationPrompt = `You are a support assistant.

TASK:
- Generate a clear, accurate answer to the customer ticket.
- Use the provided documentation context.
- Do NOT cite references.
- Do NOT mention sources.
- Do NOT suggest internal escalation unless explicitly stated in docs.
- If you don't know strictly say that you don't know

Return STRICT JSON:

{
  "answer": "..."
}

Ticket:
%s

Context:
%s
`

// Tokenizer counts tokens for the context budget. Implementations live under
// contrib/tokenizer.
type Tokenizer interface {
	CountTokens(text string) int
}

// Generator invokes the generation backend and extracts the answer text.
type Generator struct {
	llm          llm.Client
	tokenizer    Tokenizer
	contextLimit int
	logger       *slog.Logger
}

// Option customizes the generator.
type Option func(*Generator)

// WithContextBudget caps the grounding context at the given token count.
// Documents that would push the context past the budget are dropped from the
// context block only; they still count as final documents elsewhere.
// Requires a tokenizer.
func WithContextBudget(tokenizer Tokenizer, maxTokens int) Option {
	return func(g *Generator) {
		if tokenizer != nil && maxTokens > 0 {
			g.tokenizer = tokenizer
			g.contextLimit = maxTokens
		}
	}
}

// New creates an answer generator backed by the given generation client.
func New(client llm.Client, opts ...Option) *Generator {
	g := &Generator{
		llm:    client,
		logger: logging.WithComponent("answer_generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type answerEnvelope struct {
	Answer *string `json:"answer"`
}

// Generate builds the grounding context from the final ranked documents,
// invokes the backend under the strict JSON contract, and extracts the
// answer. Structural parse failures and a missing answer key are distinct
// error outcomes; both fail the whole resolution.
func (g *Generator) Generate(ctx context.Context, ticketText string, docs []document.Document) (string, error) {
	ticket := strings.TrimSpace(ticketText)
	if ticket == "" {
		return "", fmt.Errorf("generate answer: %w", errors.ErrEmptyInput)
	}

	contextBlock := g.buildContext(docs)
	prompt := fmt.Sprintf(generationPrompt, ticket, contextBlock)

	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	var envelope answerEnvelope
	if err := json.Unmarshal([]byte(sanitizeJSON(raw)), &envelope); err != nil {
		g.logger.Warn("generation output rejected", "error", err)
		return "", fmt.Errorf("%w: %v", errors.ErrMalformedGeneration, err)
	}
	if envelope.Answer == nil {
		return "", errors.ErrMissingAnswer
	}

	return strings.TrimSpace(*envelope.Answer), nil
}

// buildContext joins each document's trimmed content with blank-line
// separators, applying the token budget when one is configured.
func (g *Generator) buildContext(docs []document.Document) string {
	parts := make([]string, 0, len(docs))
	total := 0
	for _, doc := range docs {
		content := strings.TrimSpace(doc.Content)
		if content == "" {
			continue
		}
		if g.tokenizer != nil {
			cost := g.tokenizer.CountTokens(content)
			if total+cost > g.contextLimit && total > 0 {
				g.logger.Debug("context budget reached, dropping document", "budget", g.contextLimit)
				break
			}
			total += cost
		}
		parts = append(parts, content)
	}
	if len(parts) == 0 {
		return NoContextFallback
	}
	return strings.Join(parts, "\n\n")
}

// sanitizeJSON strips markdown code fences some backends wrap around JSON
// despite the strict-output instruction.
func sanitizeJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = trimmed[3:]
		trimmed = strings.TrimPrefix(trimmed, "json")
		trimmed = strings.TrimPrefix(trimmed, "JSON")
		if idx := strings.Index(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	return strings.TrimSpace(trimmed)
}
