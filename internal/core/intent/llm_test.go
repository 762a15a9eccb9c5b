package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/agenthands/lexgraph/internal/core/model"
)

type MockLLM struct {
	Response string
	Err      error
	Prompts  []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func newLLMClassifier(m *MockLLM) *LLMClassifier {
	return NewLLMClassifier(m, "", time.Second, zerolog.Nop())
}

func TestLLMClassifier_RulesWinWhenConfident(t *testing.T) {
	m := &MockLLM{Response: `{"category": "comparison"}`}
	got := newLLMClassifier(m).Classify(context.Background(), "What regulations reference the Employment Insurance Act?")

	assert.Equal(t, model.IntentGraphRelationship, got.Category)
	assert.Empty(t, m.Prompts, "the model is only consulted for unknown questions")
}

func TestLLMClassifier_ResolvesUnknown(t *testing.T) {
	m := &MockLLM{Response: "Sure! ```json\n" +
		`{"category": "graph_relationship", "entities": ["Employment Insurance Act"], "relations": ["CITES"], "confidence": 0.7}` +
		"\n```"}
	got := newLLMClassifier(m).Classify(context.Background(), "employment insurance act citations")

	assert.Equal(t, model.IntentGraphRelationship, got.Category)
	assert.Equal(t, []string{"Employment Insurance Act"}, got.Entities)
	assert.Equal(t, []model.EdgeKind{model.EdgeCites}, got.Relations)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)
	assert.Contains(t, m.Prompts[0], "employment insurance act citations")
}

func TestLLMClassifier_GraphWithoutEntityBecomesFactual(t *testing.T) {
	m := &MockLLM{Response: `{"category": "graph_relationship", "entities": [], "relations": ["amends"]}`}
	got := newLLMClassifier(m).Classify(context.Background(), "amendment records overview")

	assert.Equal(t, model.IntentFactual, got.Category)
	assert.Empty(t, got.Relations)
	assert.GreaterOrEqual(t, got.Confidence, MinConfidence)
}

func TestLLMClassifier_FallsBackOnFailure(t *testing.T) {
	for name, m := range map[string]*MockLLM{
		"error":        {Err: errors.New("503")},
		"not json":     {Response: "I think it is a factual question."},
		"bad category": {Response: `{"category": "gossip"}`},
	} {
		t.Run(name, func(t *testing.T) {
			got := newLLMClassifier(m).Classify(context.Background(), "employment insurance")
			assert.Equal(t, model.IntentUnknown, got.Category)
			assert.NotNil(t, got.Entities)
		})
	}
}

func TestLLMClassifier_NoClient(t *testing.T) {
	c := NewLLMClassifier(nil, "", 0, zerolog.Nop())
	got := c.Classify(context.Background(), "employment insurance")
	assert.Equal(t, model.IntentUnknown, got.Category)
}
