// Package graph answers structural questions over the citation and
// amendment graph: what cites, amends or implements a named instrument.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/agenthands/lexgraph/internal/core/model"
	"github.com/agenthands/lexgraph/internal/metrics"
)

// Options narrows a single relation query.
type Options struct {
	// AlsoKinds adds edge kinds to a references query, e.g. amendments.
	AlsoKinds []model.EdgeKind
	// MaxHops bounds the traversal; values below 1 mean direct edges only.
	MaxHops int
}

type Engine struct {
	store    Store
	snapshot atomic.Pointer[Snapshot]
	maxHops  int
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Engine)

// WithMaxHops sets the depth used for transitive intents.
func WithMaxHops(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.maxHops = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		maxHops: 3,
		log:     zerolog.Nop(),
		metrics: metrics.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Warm loads the whole graph into an in-memory snapshot that later queries
// read instead of the store, until Invalidate or the next Warm.
func (e *Engine) Warm(ctx context.Context) error {
	nodes, err := e.store.ListNodes(ctx)
	if err != nil {
		return fmt.Errorf("warm graph: %w", err)
	}
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	edges, err := e.store.EdgesInto(ctx, ids, model.EdgeKinds())
	if err != nil {
		return fmt.Errorf("warm graph: %w", err)
	}
	snap := NewSnapshot(nodes, edges)
	e.snapshot.Store(snap)
	n, m := snap.Size()
	e.log.Info().Int("nodes", n).Int("edges", m).Msg("graph snapshot loaded")
	return nil
}

// Invalidate drops the warmed snapshot so queries go back to the store.
func (e *Engine) Invalidate() {
	e.snapshot.Store(nil)
}

func (e *Engine) current() Store {
	if s := e.snapshot.Load(); s != nil {
		return s
	}
	return e.store
}

// Resolve answers a graph_relationship intent. Transitive intents walk up to
// the configured hop limit, everything else stops at direct edges.
func (e *Engine) Resolve(ctx context.Context, intent model.QueryIntent) model.GraphQueryResult {
	kinds := intent.Relations
	if len(kinds) == 0 {
		kinds = []model.EdgeKind{model.EdgeCites}
	}
	hops := 1
	if intent.Transitive {
		hops = e.maxHops
	}
	return e.traverse(ctx, intent.PrimaryEntity(), kinds, hops)
}

func (e *Engine) FindReferences(ctx context.Context, target string, opts Options) model.GraphQueryResult {
	kinds := append([]model.EdgeKind{model.EdgeCites}, opts.AlsoKinds...)
	return e.traverse(ctx, target, kinds, opts.MaxHops)
}

func (e *Engine) FindAmendments(ctx context.Context, target string, opts Options) model.GraphQueryResult {
	return e.traverse(ctx, target, []model.EdgeKind{model.EdgeAmends}, opts.MaxHops)
}

func (e *Engine) FindImplementations(ctx context.Context, target string, opts Options) model.GraphQueryResult {
	return e.traverse(ctx, target, []model.EdgeKind{model.EdgeImplements}, opts.MaxHops)
}

// ResolveChain follows one edge kind per hop, in order: ResolveChain(ctx, x,
// EdgeAmends, EdgeImplements) finds what implements something that amends x.
// MatchedNodes holds the last hop's sources; MatchedEdges holds the full path.
func (e *Engine) ResolveChain(ctx context.Context, target string, kinds ...model.EdgeKind) model.GraphQueryResult {
	if len(kinds) == 0 {
		kinds = []model.EdgeKind{model.EdgeCites}
	}
	result, nodes, subjects := e.begin(ctx, target, kinds, len(kinds))
	if result.Err != nil || len(subjects) == 0 {
		return e.finish(result)
	}

	store := e.current()
	visited := idSet(subjects)
	frontier := ids(subjects)
	for _, kind := range kinds {
		if len(frontier) == 0 {
			break
		}
		edges, next, err := hop(ctx, store, frontier, []model.EdgeKind{kind}, visited)
		if err != nil {
			result.Err = err
			return e.finish(result)
		}
		result.MatchedEdges = append(result.MatchedEdges, edges...)
		frontier = next
	}
	result.MatchedNodes = lookup(nodes, frontier)
	if len(frontier) == 0 {
		// a chain that breaks part way answers nothing
		result.MatchedEdges = nil
	}
	return e.finish(result)
}

func (e *Engine) traverse(ctx context.Context, target string, kinds []model.EdgeKind, maxHops int) model.GraphQueryResult {
	if maxHops < 1 {
		maxHops = 1
	}
	result, nodes, subjects := e.begin(ctx, target, kinds, maxHops)
	if result.Err != nil || len(subjects) == 0 {
		return e.finish(result)
	}

	store := e.current()
	visited := idSet(subjects)
	frontier := ids(subjects)
	var reached []string
	for depth := 0; depth < maxHops && len(frontier) > 0; depth++ {
		edges, next, err := hop(ctx, store, frontier, kinds, visited)
		if err != nil {
			result.Err = err
			return e.finish(result)
		}
		result.MatchedEdges = append(result.MatchedEdges, edges...)
		reached = append(reached, next...)
		frontier = next
	}
	result.MatchedNodes = lookup(nodes, reached)
	return e.finish(result)
}

// begin resolves the mention and fills the parts of the result that do not
// depend on traversal.
func (e *Engine) begin(ctx context.Context, target string, kinds []model.EdgeKind, hops int) (model.GraphQueryResult, map[string]model.GraphNode, []model.GraphNode) {
	result := model.GraphQueryResult{
		Mention:      strings.TrimSpace(target),
		Resolution:   model.ResolutionNone,
		Relations:    append([]model.EdgeKind(nil), kinds...),
		Hops:         hops,
		Subjects:     []model.GraphNode{},
		MatchedEdges: []model.GraphEdge{},
		MatchedNodes: []model.GraphNode{},
	}
	if err := ctx.Err(); err != nil {
		result.Err = fmt.Errorf("%w: %w", model.ErrRetrievalUnavailable, err)
		return result, nil, nil
	}

	all, err := e.current().ListNodes(ctx)
	if err != nil {
		result.Err = ensureUnavailable(err)
		return result, nil, nil
	}
	byID := make(map[string]model.GraphNode, len(all))
	for _, n := range all {
		byID[n.ID] = n
	}

	subjects, res := resolveEntity(target, all)
	result.Resolution = res
	if len(subjects) > 0 {
		result.Subjects = subjects
	}
	return result, byID, subjects
}

func (e *Engine) finish(r model.GraphQueryResult) model.GraphQueryResult {
	if r.MatchedEdges == nil {
		r.MatchedEdges = []model.GraphEdge{}
	}
	if r.MatchedNodes == nil {
		r.MatchedNodes = []model.GraphNode{}
	}
	relation := "none"
	if len(r.Relations) > 0 {
		relation = string(r.Relations[0])
	}
	e.metrics.RecordTraversal(relation, string(r.Resolution), len(r.MatchedEdges))

	ev := e.log.Debug()
	if r.Err != nil {
		ev = e.log.Warn().Err(r.Err)
	}
	ev.Str("mention", r.Mention).
		Str("resolution", string(r.Resolution)).
		Int("subjects", len(r.Subjects)).
		Int("edges", len(r.MatchedEdges)).
		Int("hops", r.Hops).
		Msg("graph query")
	return r
}

// hop expands one level of inbound edges. Sources already visited before
// this level are skipped; a source new at this level keeps all its edges.
func hop(ctx context.Context, store Store, frontier []string, kinds []model.EdgeKind, visited map[string]bool) ([]model.GraphEdge, []string, error) {
	edges, err := store.EdgesInto(ctx, frontier, kinds)
	if err != nil {
		return nil, nil, ensureUnavailable(err)
	}
	sort.Slice(edges, func(i, j int) bool { return edgeLess(edges[i], edges[j]) })

	var kept []model.GraphEdge
	var next []string
	seenEdge := map[model.GraphEdge]bool{}
	fresh := map[string]bool{}
	for _, edge := range edges {
		if visited[edge.SourceID] || seenEdge[edge] {
			continue
		}
		seenEdge[edge] = true
		kept = append(kept, edge)
		if !fresh[edge.SourceID] {
			fresh[edge.SourceID] = true
			next = append(next, edge.SourceID)
		}
	}
	for _, id := range next {
		visited[id] = true
	}
	return kept, next, nil
}

func edgeLess(a, b model.GraphEdge) bool {
	if a.SourceID != b.SourceID {
		return a.SourceID < b.SourceID
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.TargetID < b.TargetID
}

// lookup maps ids to nodes, keeping a bare placeholder for ids the node
// listing no longer has.
func lookup(byID map[string]model.GraphNode, idList []string) []model.GraphNode {
	out := make([]model.GraphNode, 0, len(idList))
	for _, id := range idList {
		n, ok := byID[id]
		if !ok {
			n = model.GraphNode{ID: id, Title: id, Kind: model.NodeRegulation}
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func ids(nodes []model.GraphNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func idSet(nodes []model.GraphNode) map[string]bool {
	set := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		set[n.ID] = true
	}
	return set
}

func ensureUnavailable(err error) error {
	if errors.Is(err, model.ErrRetrievalUnavailable) || errors.Is(err, model.ErrIndexCorrupted) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrRetrievalUnavailable, err)
}
