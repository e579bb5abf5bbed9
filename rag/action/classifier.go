// Package action infers follow-up or escalation actions by comparing answer
// embeddings against fixed action prototypes with semantic similarity.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/support-assistant/pkg/logging"
	"github.com/sweetpotato0/support-assistant/rag/retrieve"
	"github.com/sweetpotato0/support-assistant/schema"
	"github.com/sweetpotato0/support-assistant/vector"
)

// DefaultThreshold is the minimum similarity required to assign an action.
const DefaultThreshold = 0.5

// Decision is the classifier output. Action may be the internal
// schema.ActionUndecided sentinel; confidence is in [0,1] rounded to 3
// decimals.
type Decision struct {
	Action     schema.Action `json:"action"`
	Confidence float64       `json:"confidence"`
}

// Classifier matches answer text against precomputed prototype embeddings.
// It is immutable after construction and safe for concurrent use as long as
// the underlying embedder is.
type Classifier struct {
	embedder  vector.Embedder
	threshold float64
	cache     []labelVectors
	logger    *slog.Logger
}

type labelVectors struct {
	action  schema.Action
	vectors [][]float32
}

// Option customizes the classifier.
type Option func(*Classifier)

// WithThreshold overrides the minimum similarity for assigning an action.
// Zero disables the gate so every non-blank answer gets its best label;
// negative values are ignored.
func WithThreshold(threshold float64) Option {
	return func(c *Classifier) {
		if threshold >= 0 {
			c.threshold = threshold
		}
	}
}

// NewClassifier embeds every prototype phrase once and caches the normalized
// vectors for the process lifetime. Call it at startup, not per ticket.
func NewClassifier(ctx context.Context, embedder vector.Embedder, opts ...Option) (*Classifier, error) {
	c := &Classifier{
		embedder:  embedder,
		threshold: DefaultThreshold,
		logger:    logging.WithComponent("action_classifier"),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, entry := range prototypes {
		vectors, err := embedder.EmbedBatch(ctx, entry.phrases)
		if err != nil {
			return nil, fmt.Errorf("embed prototypes for %s: %w", entry.action, err)
		}
		if len(vectors) != len(entry.phrases) {
			return nil, fmt.Errorf("embed prototypes for %s: expected %d vectors, got %d", entry.action, len(entry.phrases), len(vectors))
		}
		for i := range vectors {
			vectors[i] = vector.Normalize(vectors[i])
		}
		c.cache = append(c.cache, labelVectors{action: entry.action, vectors: vectors})
	}

	c.logger.Info("action prototypes embedded", "labels", len(c.cache))
	return c, nil
}

// Infer embeds the answer text and selects the action label whose best
// prototype similarity is highest. Blank answers return the undecided
// sentinel with zero confidence without an embedding call, as does a best
// similarity below the threshold.
func (c *Classifier) Infer(ctx context.Context, answer string) (Decision, error) {
	if strings.TrimSpace(answer) == "" {
		return Decision{Action: schema.ActionUndecided, Confidence: 0.0}, nil
	}

	answerVec, err := c.embedder.Embed(ctx, answer)
	if err != nil {
		return Decision{}, fmt.Errorf("embed answer: %w", err)
	}
	answerVec = vector.Normalize(answerVec)

	best := schema.ActionUndecided
	bestScore := 0.0
	for _, label := range c.cache {
		for _, protoVec := range label.vectors {
			sim := float64(vector.Dot(protoVec, answerVec))
			if sim > bestScore {
				bestScore = sim
				best = label.action
			}
		}
	}

	confidence := retrieve.Round3(clamp01(bestScore))
	if bestScore < c.threshold {
		return Decision{Action: schema.ActionUndecided, Confidence: confidence}, nil
	}
	return Decision{Action: best, Confidence: confidence}, nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
