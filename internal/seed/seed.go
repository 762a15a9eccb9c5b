// Package seed loads a JSON fixture of documents and citation graph
// entries into the stores.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agenthands/lexgraph/internal/core/graph"
	"github.com/agenthands/lexgraph/internal/core/model"
	"github.com/agenthands/lexgraph/internal/llm"
	"github.com/agenthands/lexgraph/internal/storage"
)

type Node struct {
	model.GraphNode
	// ParentID links a section to its regulation.
	ParentID string `json:"parent_id,omitempty"`
}

type Fixture struct {
	Documents []model.DocumentSnapshot `json:"documents"`
	Nodes     []Node                   `json:"nodes"`
	Edges     []model.GraphEdge        `json:"edges"`
}

type DocumentWriter interface {
	UpsertDocument(ctx context.Context, doc model.DocumentSnapshot, embedding []float32) error
}

type GraphWriter interface {
	WriteNode(ctx context.Context, n model.GraphNode, parentID string) error
	WriteEdge(ctx context.Context, e model.GraphEdge) error
}

// SQLiteGraph writes the graph into the relational tables.
type SQLiteGraph struct{ Store *storage.Store }

func (g SQLiteGraph) WriteNode(ctx context.Context, n model.GraphNode, parentID string) error {
	return g.Store.UpsertNode(ctx, n, parentID)
}

func (g SQLiteGraph) WriteEdge(ctx context.Context, e model.GraphEdge) error {
	return g.Store.AddEdge(ctx, e)
}

// CypherGraph writes the graph into Memgraph. Section parents are not
// modelled there.
type CypherGraph struct{ Store *graph.CypherStore }

func (g CypherGraph) WriteNode(ctx context.Context, n model.GraphNode, _ string) error {
	return g.Store.SaveNode(ctx, n)
}

func (g CypherGraph) WriteEdge(ctx context.Context, e model.GraphEdge) error {
	return g.Store.SaveEdge(ctx, e)
}

func LoadFile(path string) (Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("failed to open fixture '%s': %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (Fixture, error) {
	var fx Fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fx); err != nil {
		return Fixture{}, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return fx, fx.validate()
}

func (fx Fixture) validate() error {
	ids := map[string]bool{}
	for i, n := range fx.Nodes {
		if n.ID == "" || n.Title == "" {
			return fmt.Errorf("node %d: id and title are required", i)
		}
		ids[n.ID] = true
	}
	for i, e := range fx.Edges {
		if _, err := model.ParseEdgeKind(string(e.Kind)); err != nil {
			return fmt.Errorf("edge %d: %w", i, err)
		}
		if !ids[e.SourceID] || !ids[e.TargetID] {
			return fmt.Errorf("edge %d: %s -> %s references an unknown node", i, e.SourceID, e.TargetID)
		}
	}
	return nil
}

type Stats struct {
	Documents int
	Embedded  int
	Nodes     int
	Edges     int
}

// Loader writes fixtures. Embedder may be nil, in which case documents are
// stored for keyword search only.
type Loader struct {
	Documents DocumentWriter
	Graphs    []GraphWriter
	Embedder  llm.EmbedderClient
	Log       zerolog.Logger
}

func (l *Loader) Load(ctx context.Context, fx Fixture) (Stats, error) {
	var st Stats
	if l.Documents != nil {
		for _, doc := range fx.Documents {
			if doc.ID == "" {
				doc.ID = uuid.NewString()
			}
			vec := l.embed(ctx, doc)
			if err := l.Documents.UpsertDocument(ctx, doc, vec); err != nil {
				return st, err
			}
			st.Documents++
			if vec != nil {
				st.Embedded++
			}
		}
	}

	for _, g := range l.Graphs {
		// parents before sections
		for _, pass := range []bool{false, true} {
			for _, n := range fx.Nodes {
				if (n.ParentID != "") != pass {
					continue
				}
				if err := g.WriteNode(ctx, n.GraphNode, n.ParentID); err != nil {
					return st, err
				}
			}
		}
		for _, e := range fx.Edges {
			kind, _ := model.ParseEdgeKind(string(e.Kind))
			e.Kind = kind
			if err := g.WriteEdge(ctx, e); err != nil {
				return st, err
			}
		}
	}
	if len(l.Graphs) > 0 {
		st.Nodes, st.Edges = len(fx.Nodes), len(fx.Edges)
	}

	l.Log.Info().
		Int("documents", st.Documents).
		Int("embedded", st.Embedded).
		Int("nodes", st.Nodes).
		Int("edges", st.Edges).
		Msg("fixture loaded")
	return st, nil
}

func (l *Loader) embed(ctx context.Context, doc model.DocumentSnapshot) []float32 {
	if l.Embedder == nil {
		return nil
	}
	vec, err := l.Embedder.Embed(ctx, doc.Title+"\n"+doc.Content)
	if err != nil {
		l.Log.Warn().Err(err).Str("document", doc.ID).Msg("embedding failed, storing without vector")
		return nil
	}
	return vec
}
