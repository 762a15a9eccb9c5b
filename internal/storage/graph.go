package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/agenthands/lexgraph/internal/core/model"
)

// UpsertNode stores a regulation or section. parentID links a section to
// its regulation; deleting the parent cascades to the section.
func (s *Store) UpsertNode(ctx context.Context, node model.GraphNode, parentID string) error {
	kind := node.Kind
	if kind == "" {
		kind = model.NodeRegulation
	}
	var parent any
	if parentID != "" {
		parent = parentID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO graph_nodes (id, title, citation, kind, parent_id) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, citation = excluded.citation,
			kind = excluded.kind, parent_id = excluded.parent_id`,
		node.ID, node.Title, node.Citation, string(kind), parent,
	)
	if err != nil {
		return fmt.Errorf("upsert node %s: %w", node.ID, err)
	}
	return nil
}

func (s *Store) AddEdge(ctx context.Context, edge model.GraphEdge) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO graph_edges (source_id, target_id, kind) VALUES (?, ?, ?)`,
		edge.SourceID, edge.TargetID, string(edge.Kind),
	)
	if err != nil {
		return fmt.Errorf("add edge %s -%s-> %s: %w", edge.SourceID, edge.Kind, edge.TargetID, err)
	}
	return nil
}

// DeleteNode removes a node, its sections and every edge touching them.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM graph_nodes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete node %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListNodes(ctx context.Context) ([]model.GraphNode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, citation, kind FROM graph_nodes ORDER BY id`)
	if err != nil {
		return nil, classify("list nodes", err)
	}
	return scanNodes(rows)
}

// edgeBatchSize bounds the target ids bound in one query, well under
// SQLite's host parameter limit.
var edgeBatchSize = 500

// EdgesInto returns edges of the given kinds whose target is one of targetIDs.
func (s *Store) EdgesInto(ctx context.Context, targetIDs []string, kinds []model.EdgeKind) ([]model.GraphEdge, error) {
	if len(targetIDs) == 0 || len(kinds) == 0 {
		return nil, nil
	}
	kindNames := make([]string, len(kinds))
	for i, k := range kinds {
		kindNames[i] = string(k)
	}

	var edges []model.GraphEdge
	for start := 0; start < len(targetIDs); start += edgeBatchSize {
		batch := targetIDs[start:min(start+edgeBatchSize, len(targetIDs))]
		found, err := s.edgesIntoBatch(ctx, batch, kindNames)
		if err != nil {
			return nil, err
		}
		edges = append(edges, found...)
	}
	if len(targetIDs) > edgeBatchSize {
		sort.Slice(edges, func(i, j int) bool {
			a, b := edges[i], edges[j]
			if a.SourceID != b.SourceID {
				return a.SourceID < b.SourceID
			}
			if a.TargetID != b.TargetID {
				return a.TargetID < b.TargetID
			}
			return a.Kind < b.Kind
		})
	}
	return edges, nil
}

func (s *Store) edgesIntoBatch(ctx context.Context, targetIDs, kindNames []string) ([]model.GraphEdge, error) {
	args := append(stringArgs(targetIDs), stringArgs(kindNames)...)

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, target_id, kind FROM graph_edges
		 WHERE target_id IN (`+placeholders(len(targetIDs))+`)
		   AND kind IN (`+placeholders(len(kindNames))+`)
		 ORDER BY source_id, target_id, kind`,
		args...,
	)
	if err != nil {
		return nil, classify("edges into", err)
	}
	defer rows.Close()

	var edges []model.GraphEdge
	for rows.Next() {
		var e model.GraphEdge
		var kind string
		if err := rows.Scan(&e.SourceID, &e.TargetID, &kind); err != nil {
			return nil, classify("scan edge", err)
		}
		e.Kind = model.EdgeKind(kind)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("edge rows", err)
	}
	return edges, nil
}

func scanNodes(rows *sql.Rows) ([]model.GraphNode, error) {
	defer rows.Close()
	var nodes []model.GraphNode
	for rows.Next() {
		var n model.GraphNode
		var kind string
		if err := rows.Scan(&n.ID, &n.Title, &n.Citation, &kind); err != nil {
			return nil, classify("scan node", err)
		}
		n.Kind = model.NodeKind(kind)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("node rows", err)
	}
	return nodes, nil
}
