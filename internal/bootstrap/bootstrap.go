// Package bootstrap assembles the question answering pipeline from
// configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/agenthands/lexgraph/internal/cache"
	"github.com/agenthands/lexgraph/internal/config"
	"github.com/agenthands/lexgraph/internal/core"
	"github.com/agenthands/lexgraph/internal/core/answer"
	"github.com/agenthands/lexgraph/internal/core/fusion"
	"github.com/agenthands/lexgraph/internal/core/graph"
	"github.com/agenthands/lexgraph/internal/core/intent"
	"github.com/agenthands/lexgraph/internal/core/search"
	"github.com/agenthands/lexgraph/internal/driver"
	"github.com/agenthands/lexgraph/internal/index"
	"github.com/agenthands/lexgraph/internal/llm"
	"github.com/agenthands/lexgraph/internal/logger"
	"github.com/agenthands/lexgraph/internal/metrics"
	"github.com/agenthands/lexgraph/internal/storage"
)

// App owns every long-lived component. Close releases them in reverse
// order of construction.
type App struct {
	LexGraph *core.LexGraph
	Graph    *graph.Engine
	Search   *search.Engine
	// Store is nil unless a SQLite backend is configured.
	Store *storage.Store
	// Cypher is set when the graph lives in Memgraph.
	Cypher   *graph.CypherStore
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	closers []func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *App, err error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app := &App{Registry: reg, Metrics: metrics.New(reg)}
	defer func() {
		if err != nil {
			_ = app.Close(ctx)
		}
	}()

	client, embedder, err := llm.NewClient(ctx, cfg.LLM, logger.Component(log, "llm"))
	if err != nil {
		return nil, err
	}
	if closer, ok := client.(interface{ Close() error }); ok {
		app.onClose(func(context.Context) error { return closer.Close() })
	}

	if usesSQLite(cfg) {
		app.Store, err = storage.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		app.onClose(func(context.Context) error { return app.Store.Close() })
		log.Info().Str("path", cfg.SQLite.Path).Msg("opened sqlite store")
	}

	if embedder != nil {
		embedder, err = app.cacheEmbeddings(ctx, cfg, embedder, log)
		if err != nil {
			return nil, err
		}
	}

	app.Search, err = app.buildSearch(ctx, cfg, embedder, log)
	if err != nil {
		return nil, err
	}

	store, err := app.buildGraphStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	app.Graph = graph.NewEngine(store,
		graph.WithMaxHops(cfg.Graph.MaxHops),
		graph.WithLogger(logger.Component(log, "graph")),
		graph.WithMetrics(app.Metrics),
	)
	if cfg.Graph.WarmOnStart {
		if err := app.Graph.Warm(ctx); err != nil {
			log.Warn().Err(err).Msg("graph warm-up failed, reading the store per query")
		}
	}

	synth, err := buildSynthesizer(cfg, client, app.Metrics, log)
	if err != nil {
		return nil, err
	}

	var classifier intent.Classifier = intent.NewRuleClassifier()
	if cfg.Answer.LLMClassifier && client != nil {
		timeout, _ := cfg.Answer.Timeout()
		classifier = intent.NewLLMClassifier(client, cfg.Prompts.Classify, timeout, logger.Component(log, "intent"))
	}

	app.LexGraph = core.NewLexGraph(classifier, app.Search, app.Graph, synth,
		core.WithSearchSize(cfg.Search.DefaultSize, cfg.Search.MaxSize),
		core.WithMaxQuestionLength(cfg.Answer.MaxQuestionLength),
		core.WithLogger(logger.Component(log, "pipeline")),
		core.WithMetrics(app.Metrics),
	)
	return app, nil
}

func (a *App) onClose(f func(context.Context) error) {
	a.closers = append(a.closers, f)
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) cacheEmbeddings(ctx context.Context, cfg *config.Config, inner llm.EmbedderClient, log zerolog.Logger) (llm.EmbedderClient, error) {
	ttl, err := cfg.Cache.Expiry()
	if err != nil {
		return nil, err
	}
	var c cache.Cache
	switch strings.ToLower(cfg.Cache.Backend) {
	case "lru":
		c = cache.NewLRU(cfg.Cache.Capacity, ttl)
	case "redis":
		r, err := cache.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return r.Close() })
		c = r
	default:
		return inner, nil
	}
	return &llm.CachedEmbedder{
		Inner:   inner,
		Cache:   c,
		TTL:     ttl,
		Model:   cfg.LLM.Provider + "/" + cfg.LLM.EmbeddingModel,
		Log:     logger.Component(log, "embedding-cache"),
		Metrics: a.Metrics,
	}, nil
}

func (a *App) buildSearch(ctx context.Context, cfg *config.Config, embedder llm.EmbedderClient, log zerolog.Logger) (*search.Engine, error) {
	var elastic *index.ElasticIndex
	if oneOf("elasticsearch", cfg.Search.KeywordBackend, cfg.Search.VectorBackend) {
		es := cfg.Elasticsearch
		elastic = index.NewElasticIndex(es.URL, es.Index, es.Username, es.Password, es.VectorField)
	}

	var keyword search.KeywordIndex
	switch strings.ToLower(cfg.Search.KeywordBackend) {
	case "sqlite":
		keyword = a.Store
	case "elasticsearch":
		keyword = elastic
	default:
		return nil, fmt.Errorf("unsupported keyword backend %q", cfg.Search.KeywordBackend)
	}

	var vector search.VectorIndex
	switch strings.ToLower(cfg.Search.VectorBackend) {
	case "sqlite":
		vector = a.Store
	case "elasticsearch":
		vector = elastic
	case "milvus":
		m := cfg.Milvus
		mi, err := index.DialMilvus(ctx, m.Address, m.Username, m.Password, m.Database, m.Collection, m.VectorField)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return mi.Close() })
		vector = mi
	case "none":
	default:
		return nil, fmt.Errorf("unsupported vector backend %q", cfg.Search.VectorBackend)
	}
	if embedder == nil && vector != nil {
		log.Warn().Msg("no embedder configured, hybrid search runs on keywords only")
	}

	strategy, err := fusion.New(strings.ToLower(cfg.Search.Fusion), cfg.Search.KeywordWeight, cfg.Search.VectorWeight, cfg.Search.RRFK)
	if err != nil {
		return nil, err
	}
	return search.NewEngine(keyword, vector, embedder, strategy,
		search.WithOversample(cfg.Search.Oversample),
		search.WithLogger(logger.Component(log, "search")),
		search.WithMetrics(a.Metrics),
	), nil
}

func (a *App) buildGraphStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (graph.Store, error) {
	switch strings.ToLower(cfg.Graph.Backend) {
	case "sqlite":
		return a.Store, nil
	case "memgraph":
		m := cfg.Memgraph
		d, err := driver.NewMemgraphDriver(ctx, m.URI, m.User, m.Password, logger.Component(log, "memgraph"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to memgraph: %w", err)
		}
		a.onClose(d.Close)
		if cfg.Graph.BuildIndices {
			if err := d.BuildIndices(ctx); err != nil {
				return nil, err
			}
		}
		a.Cypher = graph.NewCypherStore(d)
		return a.Cypher, nil
	}
	return nil, fmt.Errorf("unsupported graph backend %q", cfg.Graph.Backend)
}

func buildSynthesizer(cfg *config.Config, client llm.LLMClient, m *metrics.Metrics, log zerolog.Logger) (*answer.Synthesizer, error) {
	timeout, err := cfg.Answer.Timeout()
	if err != nil {
		return nil, err
	}
	prompts := answer.Prompts{
		Factual:    cfg.Prompts.Factual,
		Definition: cfg.Prompts.Definition,
		Comparison: cfg.Prompts.Comparison,
		Procedural: cfg.Prompts.Procedural,
		Amendment:  cfg.Prompts.Amendment,
	}.Merge(answer.DefaultPrompts())

	var counter llm.TokenCounter = llm.ApproxCounter{}
	if cfg.Answer.Encoding != "" {
		if tc, err := llm.NewTiktokenCounter(cfg.Answer.Encoding); err != nil {
			log.Warn().Err(err).Str("encoding", cfg.Answer.Encoding).Msg("tokenizer unavailable, estimating token counts")
		} else {
			counter = tc
		}
	}

	opts := []answer.Option{
		answer.WithPrompts(prompts),
		answer.WithTokenCounter(counter),
		answer.WithContextBudget(cfg.Answer.ContextHits, cfg.Answer.ContextTokens),
		answer.WithTimeout(timeout),
		answer.WithLogger(logger.Component(log, "answer")),
		answer.WithMetrics(m),
	}
	if cfg.Answer.Rerank && client != nil {
		opts = append(opts, answer.WithReranker(llm.NewSimpleLLMReranker(client)))
	}
	return answer.NewSynthesizer(client, opts...), nil
}

func usesSQLite(cfg *config.Config) bool {
	return oneOf("sqlite", cfg.Search.KeywordBackend, cfg.Search.VectorBackend, cfg.Graph.Backend)
}

func oneOf(want string, values ...string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
