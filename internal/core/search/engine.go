// Package search runs keyword, vector and hybrid retrieval over the
// configured indexes.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/lexgraph/internal/core/fusion"
	"github.com/agenthands/lexgraph/internal/core/model"
	"github.com/agenthands/lexgraph/internal/llm"
	"github.com/agenthands/lexgraph/internal/metrics"
)

type KeywordIndex interface {
	KeywordSearch(ctx context.Context, query string, size int) (model.Page, error)
}

type VectorIndex interface {
	VectorSearch(ctx context.Context, vector []float32, size int) (model.Page, error)
}

type Engine struct {
	keyword    KeywordIndex
	vector     VectorIndex
	embedder   llm.EmbedderClient
	strategy   fusion.Strategy
	oversample int
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Engine)

func WithOversample(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.oversample = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine wires the indexes. vector and embedder may be nil, in which case
// vector search reports ErrRetrievalUnavailable and hybrid search degrades
// to keyword only.
func NewEngine(keyword KeywordIndex, vector VectorIndex, embedder llm.EmbedderClient, strategy fusion.Strategy, opts ...Option) *Engine {
	if strategy == nil {
		strategy = fusion.NewWeightedStrategy(0.5, 0.5)
	}
	e := &Engine{
		keyword:    keyword,
		vector:     vector,
		embedder:   embedder,
		strategy:   strategy,
		oversample: 3,
		log:        zerolog.Nop(),
		metrics:    metrics.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search dispatches on mode.
func (e *Engine) Search(ctx context.Context, query string, mode model.SearchMode, size int) model.SearchResultSet {
	switch mode {
	case model.ModeKeyword:
		return e.KeywordSearch(ctx, query, size)
	case model.ModeVector:
		return e.VectorSearch(ctx, query, size)
	default:
		return e.HybridSearch(ctx, query, size)
	}
}

func (e *Engine) KeywordSearch(ctx context.Context, query string, size int) model.SearchResultSet {
	if size <= 0 {
		return model.SearchResultSet{}
	}
	if e.keyword == nil {
		return failed(fmt.Errorf("%w: no keyword index configured", model.ErrRetrievalUnavailable))
	}
	start := time.Now()
	page, err := e.keyword.KeywordSearch(ctx, query, size)
	e.metrics.RecordRetrieval(string(model.ModeKeyword), time.Since(start), len(page.Hits), err)
	if err != nil {
		e.log.Warn().Err(err).Msg("keyword search failed")
		return failed(err)
	}
	return fromPage(page, size)
}

func (e *Engine) VectorSearch(ctx context.Context, query string, size int) model.SearchResultSet {
	if size <= 0 {
		return model.SearchResultSet{}
	}
	if e.vector == nil || e.embedder == nil {
		return failed(fmt.Errorf("%w: vector search is not configured", model.ErrRetrievalUnavailable))
	}
	if strings.TrimSpace(query) == "" {
		return model.SearchResultSet{}
	}

	start := time.Now()
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.metrics.RecordRetrieval(string(model.ModeVector), time.Since(start), 0, err)
		e.log.Warn().Err(err).Msg("query embedding failed")
		return failed(fmt.Errorf("%w: embed query: %w", model.ErrRetrievalUnavailable, err))
	}
	page, err := e.vector.VectorSearch(ctx, vec, size)
	e.metrics.RecordRetrieval(string(model.ModeVector), time.Since(start), len(page.Hits), err)
	if err != nil {
		e.log.Warn().Err(err).Msg("vector search failed")
		return failed(err)
	}
	return fromPage(page, size)
}

// HybridSearch runs both modalities concurrently on an oversampled
// candidate set and fuses them. Err is set only when both modalities fail.
func (e *Engine) HybridSearch(ctx context.Context, query string, size int) model.SearchResultSet {
	if size <= 0 {
		return model.SearchResultSet{}
	}
	superset := size * e.oversample

	var kwSet, vecSet model.SearchResultSet
	var g errgroup.Group
	g.Go(func() error {
		kwSet = e.KeywordSearch(ctx, query, superset)
		return nil
	})
	g.Go(func() error {
		vecSet = e.VectorSearch(ctx, query, superset)
		return nil
	})
	_ = g.Wait()

	if kwSet.Err != nil && vecSet.Err != nil {
		// a corrupted index outranks an unreachable one
		if errors.Is(kwSet.Err, model.ErrIndexCorrupted) {
			return failed(kwSet.Err)
		}
		if errors.Is(vecSet.Err, model.ErrIndexCorrupted) {
			return failed(vecSet.Err)
		}
		return failed(errors.Join(kwSet.Err, vecSet.Err))
	}
	if errors.Is(kwSet.Err, model.ErrIndexCorrupted) {
		return failed(kwSet.Err)
	}
	if errors.Is(vecSet.Err, model.ErrIndexCorrupted) {
		return failed(vecSet.Err)
	}
	if kwSet.Err != nil || vecSet.Err != nil {
		e.log.Debug().
			AnErr("keyword_err", kwSet.Err).
			AnErr("vector_err", vecSet.Err).
			Msg("hybrid search degraded to a single modality")
	}

	e.metrics.FusionInputs.WithLabelValues(string(model.ModeKeyword)).Observe(float64(len(kwSet.Hits)))
	e.metrics.FusionInputs.WithLabelValues(string(model.ModeVector)).Observe(float64(len(vecSet.Hits)))

	hits := e.strategy.Fuse(kwSet.Hits, vecSet.Hits, size)
	total := max(kwSet.Total, vecSet.Total, unique(kwSet.Hits, vecSet.Hits))

	e.log.Debug().
		Str("strategy", e.strategy.Name()).
		Int("keyword_hits", len(kwSet.Hits)).
		Int("vector_hits", len(vecSet.Hits)).
		Int("fused", len(hits)).
		Msg("hybrid search")
	return model.SearchResultSet{Total: total, Hits: hits}
}

func fromPage(p model.Page, size int) model.SearchResultSet {
	hits := p.Hits
	if len(hits) > size {
		hits = hits[:size]
	}
	if hits == nil {
		hits = []model.SearchHit{}
	}
	total := max(p.Total, len(hits))
	return model.SearchResultSet{Total: total, Hits: hits}
}

func failed(err error) model.SearchResultSet {
	return model.SearchResultSet{Total: 0, Hits: []model.SearchHit{}, Err: err}
}

func unique(lists ...[]model.SearchHit) int {
	seen := map[string]struct{}{}
	for _, l := range lists {
		for _, h := range l {
			seen[h.ID] = struct{}{}
		}
	}
	return len(seen)
}
