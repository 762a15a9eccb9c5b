package llm

import (
	"context"
)

// systemPrompt frames every generation request; the user prompt carries the
// task-specific instructions.
const systemPrompt = "You are a careful assistant for regulatory research. Follow the instructions in the user message exactly and never invent citations."

// LLMClient is the generative capability. Implementations must honour
// context cancellation where their transport allows it.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type RerankerClient interface {
	Rank(ctx context.Context, query string, documents []string) ([]int, error)
}

// Generation is a completion together with the backend's own certainty
// estimate in [0,1].
type Generation struct {
	Text      string
	Certainty float64
}

// CertaintyGenerator is implemented by backends that expose token
// probabilities.
type CertaintyGenerator interface {
	GenerateWithCertainty(ctx context.Context, prompt string) (Generation, error)
}
