package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/lexgraph/internal/core/model"
	"github.com/agenthands/lexgraph/internal/driver"
)

// CypherStore reads and writes the citation graph through a Cypher driver.
type CypherStore struct {
	Driver driver.GraphDriver
}

func NewCypherStore(d driver.GraphDriver) *CypherStore {
	return &CypherStore{Driver: d}
}

func (s *CypherStore) ListNodes(ctx context.Context) ([]model.GraphNode, error) {
	res, err := s.Driver.ExecuteRead(ctx, driver.ListNodesQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: list nodes: %w", model.ErrRetrievalUnavailable, err)
	}
	nodes := make([]model.GraphNode, 0, len(res.Records))
	for _, rec := range res.Records {
		nodes = append(nodes, model.GraphNode{
			ID:       recordString(rec, "id"),
			Title:    recordString(rec, "title"),
			Citation: recordString(rec, "citation"),
			Kind:     model.NodeKind(recordString(rec, "kind")),
		})
	}
	return nodes, nil
}

func (s *CypherStore) EdgesInto(ctx context.Context, targetIDs []string, kinds []model.EdgeKind) ([]model.GraphEdge, error) {
	if len(targetIDs) == 0 || len(kinds) == 0 {
		return nil, nil
	}
	relTypes := make([]string, len(kinds))
	for i, k := range kinds {
		relTypes[i] = k.RelType()
	}
	res, err := s.Driver.ExecuteRead(ctx, driver.EdgesIntoQuery, map[string]any{
		"target_ids": targetIDs,
		"rel_types":  relTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: edges into: %w", model.ErrRetrievalUnavailable, err)
	}
	edges := make([]model.GraphEdge, 0, len(res.Records))
	for _, rec := range res.Records {
		kind, err := model.ParseEdgeKind(recordString(rec, "rel_type"))
		if err != nil {
			continue
		}
		edges = append(edges, model.GraphEdge{
			SourceID: recordString(rec, "source_id"),
			TargetID: recordString(rec, "target_id"),
			Kind:     kind,
		})
	}
	return edges, nil
}

func (s *CypherStore) SaveNode(ctx context.Context, n model.GraphNode) error {
	query := driver.SaveRegulationQuery
	if n.Kind == model.NodeSection {
		query = driver.SaveSectionQuery
	}
	_, err := s.Driver.ExecuteQuery(ctx, query, map[string]any{
		"id":       n.ID,
		"title":    n.Title,
		"citation": n.Citation,
	})
	if err != nil {
		return fmt.Errorf("save node %s: %w", n.ID, err)
	}
	return nil
}

func (s *CypherStore) SaveEdge(ctx context.Context, e model.GraphEdge) error {
	kind, err := model.ParseEdgeKind(string(e.Kind))
	if err != nil {
		return err
	}
	query := fmt.Sprintf(driver.SaveEdgeQueryTemplate, kind.RelType())
	_, err = s.Driver.ExecuteQuery(ctx, query, map[string]any{
		"source_id": e.SourceID,
		"target_id": e.TargetID,
	})
	if err != nil {
		return fmt.Errorf("save edge %s -%s-> %s: %w", e.SourceID, kind, e.TargetID, err)
	}
	return nil
}

// DeleteNode detaches and removes the node, dropping its edges.
func (s *CypherStore) DeleteNode(ctx context.Context, id string) error {
	if _, err := s.Driver.ExecuteQuery(ctx, driver.DeleteNodeQuery, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("delete node %s: %w", id, err)
	}
	return nil
}

func recordString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
