package core

import (
	"context"
	"hash/fnv"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/agenthands/lexgraph/internal/core/answer"
	"github.com/agenthands/lexgraph/internal/core/fusion"
	"github.com/agenthands/lexgraph/internal/core/graph"
	"github.com/agenthands/lexgraph/internal/core/intent"
	"github.com/agenthands/lexgraph/internal/core/model"
	"github.com/agenthands/lexgraph/internal/core/search"
	"github.com/agenthands/lexgraph/internal/llm"
	"github.com/agenthands/lexgraph/internal/storage"
)

type MockLLM struct {
	mu       sync.Mutex
	Response string
	Err      error
	Prompts  []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// hashEmbedder maps words onto a fixed number of buckets so documents that
// share vocabulary with the query score higher.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embed(text), nil
}

func embed(text string) []float32 {
	v := make([]float32, 64)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) < 3 {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%64]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm > 0 {
		for i := range v {
			v[i] = float32(float64(v[i]) / math.Sqrt(norm))
		}
	}
	return v
}

type panicClassifier struct{}

func (panicClassifier) Classify(context.Context, string) model.QueryIntent {
	panic("classifier exploded")
}

type stubSearcher struct {
	set   model.SearchResultSet
	calls int
}

func (s *stubSearcher) Search(ctx context.Context, query string, mode model.SearchMode, size int) model.SearchResultSet {
	s.calls++
	return s.set
}

type stubGraph struct {
	result model.GraphQueryResult
}

func (s stubGraph) Resolve(ctx context.Context, qi model.QueryIntent) model.GraphQueryResult {
	return s.result
}

var corpus = []model.DocumentSnapshot{
	{ID: "eia-12", Title: "Employment Insurance Act, s. 12", Citation: "S.C. 1996, c. 23, s. 12",
		LegislationName: "Employment Insurance Act", DocumentType: "statute", Jurisdiction: "federal",
		Content: "The maximum number of weeks for which benefits may be paid in a benefit period shall be determined in accordance with Schedule I."},
	{ID: "eia-7", Title: "Employment Insurance Act, s. 7", Citation: "S.C. 1996, c. 23, s. 7",
		LegislationName: "Employment Insurance Act", DocumentType: "statute", Jurisdiction: "federal",
		Content: "Unemployment benefits are payable to an insured person who qualifies under this section."},
	{ID: "eir-9", Title: "Employment Insurance Regulations, s. 9", Citation: "SOR/96-332, s. 9",
		LegislationName: "Employment Insurance Regulations", DocumentType: "regulation", Jurisdiction: "federal",
		Content: "Regulations made under the Employment Insurance Act respecting insurable employment and benefit periods."},
	{ID: "clc-1", Title: "Canada Labour Code, s. 1", Citation: "R.S.C. 1985, c. L-2",
		LegislationName: "Canada Labour Code", DocumentType: "statute", Jurisdiction: "federal",
		Content: "An Act to consolidate certain statutes respecting labour, including leave related to employment insurance."},
}

func seed(t *testing.T, s *storage.Store) {
	t.Helper()
	ctx := context.Background()
	for _, d := range corpus {
		require.NoError(t, s.UpsertDocument(ctx, d, embed(d.Title+" "+d.Content)))
	}
	nodes := []model.GraphNode{
		{ID: "eia", Title: "Employment Insurance Act", Citation: "S.C. 1996, c. 23", Kind: model.NodeRegulation},
		{ID: "eir", Title: "Employment Insurance Regulations", Citation: "SOR/96-332", Kind: model.NodeRegulation},
		{ID: "clc", Title: "Canada Labour Code", Citation: "R.S.C. 1985, c. L-2", Kind: model.NodeRegulation},
		{ID: "bia", Title: "Budget Implementation Act, 2023, No. 1", Citation: "S.C. 2023, c. 26", Kind: model.NodeRegulation},
	}
	for _, n := range nodes {
		require.NoError(t, s.UpsertNode(ctx, n, ""))
	}
	for _, e := range []model.GraphEdge{
		{SourceID: "eir", TargetID: "eia", Kind: model.EdgeCites},
		{SourceID: "eir", TargetID: "eia", Kind: model.EdgeImplements},
		{SourceID: "clc", TargetID: "eia", Kind: model.EdgeCites},
		{SourceID: "eia", TargetID: "clc", Kind: model.EdgeCites},
		{SourceID: "bia", TargetID: "eia", Kind: model.EdgeAmends},
	} {
		require.NoError(t, s.AddEdge(ctx, e))
	}
}

// newPipeline builds the full pipeline over a seeded SQLite database.
func newPipeline(t *testing.T, client llm.LLMClient) (*LexGraph, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "lexgraph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	seed(t, store)

	engine := search.NewEngine(store, store, hashEmbedder{}, fusion.NewWeightedStrategy(0.5, 0.5))
	graphEngine := graph.NewEngine(store)
	synth := answer.NewSynthesizer(client)
	return NewLexGraph(intent.NewRuleClassifier(), engine, graphEngine, synth), store
}
