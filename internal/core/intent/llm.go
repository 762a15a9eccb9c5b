package intent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agenthands/lexgraph/internal/core/common"
	"github.com/agenthands/lexgraph/internal/core/model"
	"github.com/agenthands/lexgraph/internal/llm"
)

const DefaultClassifyPrompt = `Classify a question about regulations and legislation.

Categories:
- graph_relationship: asks which instruments cite, amend or implement a named act or regulation
- amendment: asks how or when a named instrument was amended
- definition: asks what a term means
- comparison: asks how two things differ
- procedural: asks how to do something
- factual: any other question answerable from the text of regulations
- unknown: not a question about regulations

Question: %s

Respond with JSON only:
{"category": "<category>", "entities": ["<named act, regulation or section>"], "relations": ["cites" | "amends" | "implements"], "confidence": <0..1>}`

// LLMClassifier asks a model about questions the rules leave unknown.
// Any model failure falls back to the rule result.
type LLMClassifier struct {
	Rules   Classifier
	LLM     llm.LLMClient
	Prompt  string
	Timeout time.Duration
	Log     zerolog.Logger
}

func NewLLMClassifier(client llm.LLMClient, prompt string, timeout time.Duration, log zerolog.Logger) *LLMClassifier {
	if prompt == "" {
		prompt = DefaultClassifyPrompt
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LLMClassifier{
		Rules:   NewRuleClassifier(),
		LLM:     client,
		Prompt:  prompt,
		Timeout: timeout,
		Log:     log,
	}
}

type classifyResponse struct {
	Category   string   `json:"category"`
	Entities   []string `json:"entities"`
	Relations  []string `json:"relations"`
	Confidence float64  `json:"confidence"`
}

func (c *LLMClassifier) Classify(ctx context.Context, question string) model.QueryIntent {
	ruled := c.Rules.Classify(ctx, question)
	if ruled.Category != model.IntentUnknown || c.LLM == nil || strings.TrimSpace(question) == "" {
		return ruled
	}

	gen, err := llm.GenerateWithin(ctx, c.LLM, c.Timeout, fmt.Sprintf(c.Prompt, question))
	if err != nil {
		c.Log.Warn().Err(err).Msg("llm classification failed, keeping rule result")
		return ruled
	}
	resp, err := common.ParseJSON[classifyResponse](gen.Text)
	if err != nil {
		c.Log.Warn().Err(err).Msg("unparseable classification")
		return ruled
	}
	category, err := model.ParseIntentCategory(resp.Category)
	if err != nil {
		c.Log.Warn().Err(err).Msg("unknown category from model")
		return ruled
	}

	out := model.QueryIntent{
		Category:   category,
		Entities:   ruled.Entities,
		Transitive: ruled.Transitive,
		Confidence: clamp(resp.Confidence, 0.5),
	}
	if len(resp.Entities) > 0 {
		out.Entities = nonEmpty(resp.Entities)
	}
	for _, r := range resp.Relations {
		if kind, err := model.ParseEdgeKind(r); err == nil && !containsKind(out.Relations, kind) {
			out.Relations = append(out.Relations, kind)
		}
	}
	switch category {
	case model.IntentGraphRelationship:
		if len(out.Entities) == 0 {
			// nothing to resolve; treat as a plain question
			out.Category = model.IntentFactual
			out.Relations = nil
		} else if len(out.Relations) == 0 {
			out.Relations = []model.EdgeKind{model.EdgeCites}
		}
	case model.IntentAmendment:
		out.Relations = []model.EdgeKind{model.EdgeAmends}
	default:
		out.Relations = nil
	}
	if out.Category != model.IntentUnknown && out.Confidence < MinConfidence {
		out.Confidence = MinConfidence
	}
	c.Log.Debug().Str("category", out.Category.String()).Msg("llm classification")
	return out
}

func clamp(v, fallback float64) float64 {
	if v <= 0 || v > 1 {
		return fallback
	}
	return v
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
