package graph

import (
	"context"
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/lexgraph/internal/core/model"
)

type MockDriver struct {
	Queries    []string
	LastParams map[string]any
	MockResult neo4j.EagerResult
	Err        error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	m.Queries = append(m.Queries, query)
	m.LastParams = params
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	return m.MockResult, nil
}

func (m *MockDriver) ExecuteRead(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	return m.ExecuteQuery(ctx, query, params)
}

func (m *MockDriver) BuildIndices(ctx context.Context) error { return nil }

func (m *MockDriver) Close(ctx context.Context) error { return nil }

// countingStore wraps a snapshot and counts store round trips.
type countingStore struct {
	inner     Store
	listCalls int
	edgeCalls int
	err       error
}

func (c *countingStore) ListNodes(ctx context.Context) ([]model.GraphNode, error) {
	c.listCalls++
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.ListNodes(ctx)
}

func (c *countingStore) EdgesInto(ctx context.Context, targetIDs []string, kinds []model.EdgeKind) ([]model.GraphEdge, error) {
	c.edgeCalls++
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.EdgesInto(ctx, targetIDs, kinds)
}

var errStoreDown = errors.New("connection refused")

func record(keys []string, values ...any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

// fixture is a small slice of federal employment law with a citation cycle
// between the act and the labour code.
func fixture() *countingStore {
	nodes := []model.GraphNode{
		{ID: "eia", Title: "Employment Insurance Act", Citation: "S.C. 1996, c. 23", Kind: model.NodeRegulation},
		{ID: "eir", Title: "Employment Insurance Regulations", Citation: "SOR/96-332", Kind: model.NodeRegulation},
		{ID: "clc", Title: "Canada Labour Code", Citation: "R.S.C. 1985, c. L-2", Kind: model.NodeRegulation},
		{ID: "bia", Title: "Budget Implementation Act, 2023, No. 1", Citation: "S.C. 2023, c. 26", Kind: model.NodeRegulation},
		{ID: "bir", Title: "Budget Transition Regulations", Citation: "SOR/2023-120", Kind: model.NodeRegulation},
		{ID: "iecp", Title: "Insurable Earnings and Collection of Premiums Regulations", Citation: "SOR/97-33", Kind: model.NodeRegulation},
		{ID: "eia-s7", Title: "Employment Insurance Act, s. 7", Citation: "S.C. 1996, c. 23, s. 7", Kind: model.NodeSection},
	}
	edges := []model.GraphEdge{
		{SourceID: "eir", TargetID: "eia", Kind: model.EdgeCites},
		{SourceID: "eir", TargetID: "eia", Kind: model.EdgeImplements},
		{SourceID: "clc", TargetID: "eia", Kind: model.EdgeCites},
		{SourceID: "eia", TargetID: "clc", Kind: model.EdgeCites},
		{SourceID: "bia", TargetID: "eia", Kind: model.EdgeAmends},
		{SourceID: "bir", TargetID: "bia", Kind: model.EdgeImplements},
		{SourceID: "iecp", TargetID: "eir", Kind: model.EdgeCites},
	}
	return &countingStore{inner: NewSnapshot(nodes, edges)}
}

func nodeIDs(nodes []model.GraphNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}
