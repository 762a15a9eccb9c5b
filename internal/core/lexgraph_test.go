package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lexgraph/internal/core/answer"
	"github.com/agenthands/lexgraph/internal/core/model"
)

func sourceIDs(a model.Answer) []string {
	out := make([]string, 0, len(a.Sources))
	for _, s := range a.Sources {
		out = append(out, s.ID)
	}
	return out
}

func TestAnswerQuestion_ReferencesToKnownAct(t *testing.T) {
	g, _ := newPipeline(t, &MockLLM{Response: "unused"})

	a, err := g.AnswerQuestion(context.Background(), "What regulations reference the Employment Insurance Act?")
	require.NoError(t, err)

	assert.Equal(t, model.IntentGraphRelationship, a.Intent.Category)
	assert.Equal(t, []string{"Employment Insurance Act"}, a.Intent.Entities)
	assert.GreaterOrEqual(t, a.ConfidenceScore, answer.HighConfidence)
	assert.Equal(t, answer.BandHigh, answer.BandOf(a.ConfidenceScore))
	assert.Contains(t, a.Answer, "reference")
	assert.Contains(t, a.Answer, "Employment Insurance Regulations")
	assert.Contains(t, a.Answer, "Canada Labour Code")
	assert.ElementsMatch(t, []string{"clc", "eir"}, sourceIDs(a))
	assert.False(t, a.Degraded)
}

func TestAnswerQuestion_UnknownActIsConfidentNegative(t *testing.T) {
	g, _ := newPipeline(t, &MockLLM{Response: "unused"})

	a, err := g.AnswerQuestion(context.Background(), "What laws reference the Imaginary Act of 2099?")
	require.NoError(t, err)

	assert.Equal(t, model.IntentGraphRelationship, a.Intent.Category)
	assert.Equal(t, answer.BandMedium, answer.BandOf(a.ConfidenceScore))
	assert.Contains(t, a.Answer, "couldn't find any")
	assert.Empty(t, a.Sources)
}

func TestAnswerQuestion_IsRepeatable(t *testing.T) {
	g, _ := newPipeline(t, &MockLLM{Response: "Benefits are payable for up to 45 weeks [1]."})
	q := "What regulations reference the Employment Insurance Act?"

	first, err := g.AnswerQuestion(context.Background(), q)
	require.NoError(t, err)
	second, err := g.AnswerQuestion(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first.Intent, second.Intent)
	assert.Equal(t, answer.BandOf(first.ConfidenceScore), answer.BandOf(second.ConfidenceScore))
	assert.Equal(t, first.Answer, second.Answer)
}

func TestAnswerQuestion_FactualUsesGenerator(t *testing.T) {
	client := &MockLLM{Response: "Benefits are payable for the number of weeks set out in Schedule I [1]."}
	g, _ := newPipeline(t, client)

	a, err := g.AnswerQuestion(context.Background(), "What is the maximum number of weeks of benefits?")
	require.NoError(t, err)

	assert.Equal(t, model.IntentFactual, a.Intent.Category)
	assert.Equal(t, client.Response, a.Answer)
	assert.False(t, a.Degraded)
	assert.Contains(t, sourceIDs(a), "eia-12")
	assert.Greater(t, a.ConfidenceScore, answer.LowConfidence)
	require.Len(t, client.Prompts, 1)
	assert.Contains(t, client.Prompts[0], "maximum number of weeks")
	assert.Contains(t, client.Prompts[0], "Schedule I")
}

func TestAnswerQuestion_NoGeneratorDegrades(t *testing.T) {
	g, _ := newPipeline(t, nil)

	a, err := g.AnswerQuestion(context.Background(), "What is the maximum number of weeks of benefits?")
	require.NoError(t, err)

	assert.True(t, a.Degraded)
	assert.NotEmpty(t, a.Sources)
	assert.LessOrEqual(t, a.ConfidenceScore, 0.7)
	assert.NotEmpty(t, a.Answer)
}

func TestAnswerQuestion_AmendmentCombinesGraphAndSearch(t *testing.T) {
	client := &MockLLM{Response: "The Act was amended by the Budget Implementation Act, 2023, No. 1 [1]."}
	g, _ := newPipeline(t, client)

	a, err := g.AnswerQuestion(context.Background(), "How was the Employment Insurance Act amended?")
	require.NoError(t, err)

	assert.Equal(t, model.IntentAmendment, a.Intent.Category)
	require.NotEmpty(t, a.Sources)
	assert.Equal(t, "bia", a.Sources[0].ID)
	assert.Equal(t, model.EdgeAmends, a.Sources[0].Relation)
	assert.Equal(t, client.Response, a.Answer)
}

func TestAnswerQuestion_MalformedInputAsksForClarification(t *testing.T) {
	g, _ := newPipeline(t, &MockLLM{Response: "unused"})
	long := strings.Repeat("benefits ", 300)

	for _, q := range []string{"", "   ", "?!?", "\xff\xfe", long} {
		a, err := g.AnswerQuestion(context.Background(), q)
		require.NoError(t, err, "question %q", q)
		assert.Equal(t, model.IntentUnknown, a.Intent.Category)
		assert.Equal(t, answer.BandLow, answer.BandOf(a.ConfidenceScore))
		assert.InDelta(t, 0.05, a.ConfidenceScore, 1e-9)
		assert.Empty(t, a.Sources)
		assert.NotEmpty(t, a.Answer)
	}
}

func TestAnswerQuestion_CaseFoldingWidthChangesStillAnswer(t *testing.T) {
	g, _ := newPipeline(t, &MockLLM{Response: "unused"})

	for _, q := range []string{"ȺȺȺȺȺȺȺȺȺȺȺȺ cite", "Which acts reference the İİİİ Act?"} {
		a, err := g.AnswerQuestion(context.Background(), q)
		require.NoError(t, err, "question %q", q)
		assert.NotEmpty(t, a.Answer, q)
	}

	a, err := g.AnswerQuestion(context.Background(), "Which acts reference the İİİİ Act?")
	require.NoError(t, err)
	assert.Equal(t, model.IntentGraphRelationship, a.Intent.Category)
	require.NotEmpty(t, a.Intent.Entities)
	assert.Equal(t, "İİİİ Act", a.Intent.Entities[0])
	assert.Contains(t, a.Answer, "couldn't find any")
}

func TestAnswerQuestion_CorruptedIndexFails(t *testing.T) {
	searcher := &stubSearcher{set: model.SearchResultSet{Err: fmt.Errorf("%w: fts shadow table missing", model.ErrIndexCorrupted)}}
	g := NewLexGraph(nil, searcher, nil, answer.NewSynthesizer(&MockLLM{Response: "unused"}))

	_, err := g.AnswerQuestion(context.Background(), "What is the maximum number of weeks of benefits?")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrIndexCorrupted)
	assert.Equal(t, 1, searcher.calls)
}

func TestAnswerQuestion_PanicBecomesError(t *testing.T) {
	g := NewLexGraph(panicClassifier{}, &stubSearcher{}, nil, nil)

	_, err := g.AnswerQuestion(context.Background(), "What is insurable employment?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal fault")
}

func TestAnswerQuestion_SearchDownStillAnswers(t *testing.T) {
	searcher := &stubSearcher{set: model.SearchResultSet{Hits: []model.SearchHit{}, Err: fmt.Errorf("%w: connection refused", model.ErrRetrievalUnavailable)}}
	g := NewLexGraph(nil, searcher, nil, answer.NewSynthesizer(&MockLLM{Response: "unused"}))

	a, err := g.AnswerQuestion(context.Background(), "What is the maximum number of weeks of benefits?")
	require.NoError(t, err)
	assert.True(t, a.Degraded)
	assert.Less(t, a.ConfidenceScore, answer.LowConfidence)
	assert.Empty(t, a.Sources)
}

func TestAnswerQuestion_MissingGraphStoreDegrades(t *testing.T) {
	g := NewLexGraph(nil, &stubSearcher{}, nil, nil)

	a, err := g.AnswerQuestion(context.Background(), "What regulations reference the Employment Insurance Act?")
	require.NoError(t, err)
	assert.Equal(t, model.IntentGraphRelationship, a.Intent.Category)
	assert.True(t, a.Degraded)
	assert.Equal(t, answer.BandLow, answer.BandOf(a.ConfidenceScore))
}

func TestAnswerQuestion_GraphStoreDownDegrades(t *testing.T) {
	graph := stubGraph{result: model.GraphQueryResult{
		Mention:    "Employment Insurance Act",
		Resolution: model.ResolutionNone,
		Relations:  []model.EdgeKind{model.EdgeCites},
		Err:        fmt.Errorf("%w: bolt connection reset", model.ErrRetrievalUnavailable),
	}}
	g := NewLexGraph(nil, &stubSearcher{}, graph, nil)

	a, err := g.AnswerQuestion(context.Background(), "What regulations reference the Employment Insurance Act?")
	require.NoError(t, err)
	assert.True(t, a.Degraded)
	assert.Contains(t, a.Answer, "unavailable")
}

func TestSearch_Passthrough(t *testing.T) {
	g, _ := newPipeline(t, nil)
	ctx := context.Background()

	set := g.Search(ctx, "employment insurance", model.ModeKeyword, 10)
	require.NoError(t, set.Err)
	assert.Greater(t, set.Total, 0)
	assert.NotEmpty(t, set.Hits)

	set = g.Search(ctx, "employment insurance", model.ModeHybrid, 0)
	require.NoError(t, set.Err)
	assert.Empty(t, set.Hits)
}

func TestSearch_SizeIsCapped(t *testing.T) {
	capture := &sizeRecorder{}
	g := NewLexGraph(nil, capture, nil, nil, WithSearchSize(5, 2))

	g.Search(context.Background(), "benefits", model.ModeHybrid, 50)
	assert.Equal(t, 2, capture.size)
}

func TestSearch_NoEngine(t *testing.T) {
	g := NewLexGraph(nil, nil, nil, nil)

	set := g.Search(context.Background(), "benefits", model.ModeKeyword, 5)
	assert.ErrorIs(t, set.Err, model.ErrRetrievalUnavailable)
	assert.Empty(t, set.Hits)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "classifying", StageClassifying.String())
	assert.Equal(t, "retrieving", StageRetrieving.String())
	assert.Equal(t, "synthesizing", StageSynthesizing.String())
	assert.Equal(t, "done", StageDone.String())
	assert.Equal(t, "stage(9)", Stage(9).String())
}

type sizeRecorder struct{ size int }

func (s *sizeRecorder) Search(ctx context.Context, query string, mode model.SearchMode, size int) model.SearchResultSet {
	s.size = size
	return model.SearchResultSet{}
}
