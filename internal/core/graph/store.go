package graph

import (
	"context"

	"github.com/agenthands/lexgraph/internal/core/model"
)

// Store is the read side of a citation graph backend.
type Store interface {
	ListNodes(ctx context.Context) ([]model.GraphNode, error)
	// EdgesInto returns edges of the given kinds pointing at any of targetIDs.
	EdgesInto(ctx context.Context, targetIDs []string, kinds []model.EdgeKind) ([]model.GraphEdge, error)
}

// Snapshot is an immutable in-memory copy of a Store.
type Snapshot struct {
	nodes   []model.GraphNode
	inbound map[string][]model.GraphEdge
}

func NewSnapshot(nodes []model.GraphNode, edges []model.GraphEdge) *Snapshot {
	s := &Snapshot{
		nodes:   append([]model.GraphNode(nil), nodes...),
		inbound: make(map[string][]model.GraphEdge),
	}
	for _, e := range edges {
		s.inbound[e.TargetID] = append(s.inbound[e.TargetID], e)
	}
	return s
}

func (s *Snapshot) ListNodes(context.Context) ([]model.GraphNode, error) {
	return s.nodes, nil
}

func (s *Snapshot) EdgesInto(_ context.Context, targetIDs []string, kinds []model.EdgeKind) ([]model.GraphEdge, error) {
	want := make(map[model.EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []model.GraphEdge
	for _, id := range targetIDs {
		for _, e := range s.inbound[id] {
			if want[e.Kind] {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (s *Snapshot) Size() (nodes, edges int) {
	for _, es := range s.inbound {
		edges += len(es)
	}
	return len(s.nodes), edges
}
