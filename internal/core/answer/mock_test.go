package answer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agenthands/lexgraph/internal/core/model"
	"github.com/agenthands/lexgraph/internal/llm"
)

type MockLLM struct {
	mu       sync.Mutex
	Response string
	Err      error
	Delay    time.Duration
	Prompts  []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// MockCertainLLM also reports a certainty, like a logprob-capable backend.
type MockCertainLLM struct {
	MockLLM
	Certainty float64
}

func (m *MockCertainLLM) GenerateWithCertainty(ctx context.Context, prompt string) (llm.Generation, error) {
	text, err := m.Generate(ctx, prompt)
	return llm.Generation{Text: text, Certainty: m.Certainty}, err
}

type MockReranker struct {
	Order []int
	Err   error
	// Hang blocks Rank without watching ctx, like a wedged backend.
	Hang time.Duration
}

func (m *MockReranker) Rank(ctx context.Context, query string, docs []string) ([]int, error) {
	if m.Hang > 0 {
		time.Sleep(m.Hang)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Order, nil
}

var errBackendDown = errors.New("backend down")

var (
	eia = model.GraphNode{ID: "eia", Title: "Employment Insurance Act", Citation: "S.C. 1996, c. 23", Kind: model.NodeRegulation}
	eir = model.GraphNode{ID: "eir", Title: "Employment Insurance Regulations", Citation: "SOR/96-332", Kind: model.NodeRegulation}
	clc = model.GraphNode{ID: "clc", Title: "Canada Labour Code", Citation: "R.S.C. 1985, c. L-2", Kind: model.NodeRegulation}
	bia = model.GraphNode{ID: "bia", Title: "Budget Implementation Act, 2023, No. 1", Citation: "S.C. 2023, c. 26", Kind: model.NodeRegulation}
)

func graphIntent(entity string, kinds ...model.EdgeKind) model.QueryIntent {
	return model.QueryIntent{
		Category:   model.IntentGraphRelationship,
		Entities:   []string{entity},
		Relations:  kinds,
		Confidence: 0.9,
	}
}

func referencesResult(res model.Resolution, matches ...model.GraphNode) model.GraphQueryResult {
	r := model.GraphQueryResult{
		Mention:      "Employment Insurance Act",
		Subjects:     []model.GraphNode{eia},
		Resolution:   res,
		Relations:    []model.EdgeKind{model.EdgeCites},
		Hops:         1,
		MatchedEdges: []model.GraphEdge{},
		MatchedNodes: matches,
	}
	for _, n := range matches {
		r.MatchedEdges = append(r.MatchedEdges, model.GraphEdge{SourceID: n.ID, TargetID: "eia", Kind: model.EdgeCites})
	}
	return r
}

func hit(id, title string, kw, vec float64, content string) model.SearchHit {
	return model.SearchHit{
		ID:           id,
		Score:        (kw + vec) / 2,
		KeywordScore: kw,
		VectorScore:  vec,
		Source:       model.DocumentSnapshot{ID: id, Title: title, Content: content},
	}
}

func benefitHits() *model.SearchResultSet {
	return &model.SearchResultSet{Total: 12, Hits: []model.SearchHit{
		hit("d1", "Employment Insurance Act, s. 12", 8, 0.91, "The maximum number of weeks for which benefits may be paid in a benefit period is set out in Schedule I."),
		hit("d2", "Employment Insurance Regulations, s. 9", 6, 0.84, "A claimant may receive benefits for each week of unemployment in the benefit period."),
		hit("d3", "Employment Insurance Act, s. 10", 5, 0.80, "A benefit period begins on the later of the Sunday of the week in which the interruption of earnings occurs."),
	}}
}
