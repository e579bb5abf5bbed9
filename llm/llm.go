package llm

import "context"

// Client is the narrow generation capability the pipeline depends on.
// Implementations live under contrib/provider and wrap hosted or local
// model backends behind this single method.
type Client interface {
	// Complete sends one prompt and returns the raw model text. Prompts
	// that require structured output embed the output contract themselves;
	// honoring it is detected downstream, not enforced here.
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleteFunc adapts a plain function to the Client interface.
type CompleteFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements Client.
func (f CompleteFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
