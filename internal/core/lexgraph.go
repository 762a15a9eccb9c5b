// Package core wires intent classification, retrieval and answer synthesis
// into the question answering pipeline.
package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agenthands/lexgraph/internal/core/answer"
	"github.com/agenthands/lexgraph/internal/core/intent"
	"github.com/agenthands/lexgraph/internal/core/model"
	"github.com/agenthands/lexgraph/internal/metrics"
)

type Searcher interface {
	Search(ctx context.Context, query string, mode model.SearchMode, size int) model.SearchResultSet
}

type GraphResolver interface {
	Resolve(ctx context.Context, intent model.QueryIntent) model.GraphQueryResult
}

type LexGraph struct {
	Classifier  intent.Classifier
	Searcher    Searcher
	Graph       GraphResolver
	Synthesizer *answer.Synthesizer

	searchMode        model.SearchMode
	searchSize        int
	maxSearchSize     int
	maxQuestionLength int
	log               zerolog.Logger
	metrics           *metrics.Metrics
}

type Option func(*LexGraph)

// WithSearchSize sets how many hits a question retrieves and the cap on
// direct search requests.
func WithSearchSize(size, maxSize int) Option {
	return func(g *LexGraph) {
		if size > 0 {
			g.searchSize = size
		}
		if maxSize > 0 {
			g.maxSearchSize = maxSize
		}
	}
}

func WithMaxQuestionLength(n int) Option {
	return func(g *LexGraph) {
		if n > 0 {
			g.maxQuestionLength = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *LexGraph) { g.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *LexGraph) { g.metrics = m }
}

func NewLexGraph(classifier intent.Classifier, searcher Searcher, graph GraphResolver, synth *answer.Synthesizer, opts ...Option) *LexGraph {
	if classifier == nil {
		classifier = intent.NewRuleClassifier()
	}
	if synth == nil {
		synth = answer.NewSynthesizer(nil)
	}
	g := &LexGraph{
		Classifier:        classifier,
		Searcher:          searcher,
		Graph:             graph,
		Synthesizer:       synth,
		searchMode:        model.ModeHybrid,
		searchSize:        10,
		maxSearchSize:     100,
		maxQuestionLength: 2000,
		log:               zerolog.Nop(),
		metrics:           metrics.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AnswerQuestion runs classifying, retrieving and synthesizing in order. It
// returns an error only for faults no answer can cover: a corrupted index or
// a panic inside the pipeline.
func (g *LexGraph) AnswerQuestion(ctx context.Context, question string) (a model.Answer, err error) {
	log := g.log.With().Str("request_id", uuid.NewString()).Logger()
	defer func() {
		if r := recover(); r != nil {
			g.metrics.PipelineFaults.Inc()
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("pipeline fault")
			a, err = model.Answer{}, fmt.Errorf("internal fault: %v", r)
		}
	}()

	if problem := g.validate(question); problem != "" {
		log.Info().Str("problem", problem).Msg("malformed question")
		a = g.Synthesizer.Clarify(model.QueryIntent{Category: model.IntentUnknown}, problem)
		g.metrics.RecordQuestion(a.Intent.Category.String(), string(answer.BandOf(a.ConfidenceScore)))
		return a, nil
	}
	question = strings.TrimSpace(question)

	done := g.enter(log, StageClassifying)
	qi := g.Classifier.Classify(ctx, question)
	done()
	log.Debug().
		Str("intent", qi.Category.String()).
		Strs("entities", qi.Entities).
		Float64("intent_confidence", qi.Confidence).
		Msg("classified")

	done = g.enter(log, StageRetrieving)
	ev, err := g.retrieve(ctx, question, qi)
	done()
	if err != nil {
		g.metrics.PipelineFaults.Inc()
		log.Error().Err(err).Msg("retrieval failed hard")
		return model.Answer{}, err
	}

	done = g.enter(log, StageSynthesizing)
	a = g.Synthesizer.Synthesize(ctx, question, qi, ev)
	done()

	band := answer.BandOf(a.ConfidenceScore)
	g.metrics.RecordQuestion(qi.Category.String(), string(band))
	log.Info().
		Str("stage", StageDone.String()).
		Str("intent", qi.Category.String()).
		Float64("confidence", a.ConfidenceScore).
		Str("band", string(band)).
		Int("sources", len(a.Sources)).
		Bool("degraded", a.Degraded).
		Msg("answered")
	return a, nil
}

// Search queries the document index directly. size is capped at the
// configured maximum; size <= 0 yields an empty result.
func (g *LexGraph) Search(ctx context.Context, query string, mode model.SearchMode, size int) model.SearchResultSet {
	if g.Searcher == nil {
		return model.SearchResultSet{Hits: []model.SearchHit{}, Err: fmt.Errorf("%w: no search engine configured", model.ErrRetrievalUnavailable)}
	}
	return g.Searcher.Search(ctx, query, mode, min(size, g.maxSearchSize))
}

// retrieve consults the sources each intent needs.
func (g *LexGraph) retrieve(ctx context.Context, question string, qi model.QueryIntent) (answer.Evidence, error) {
	var ev answer.Evidence
	switch qi.Category {
	case model.IntentGraphRelationship:
		r := g.resolveGraph(ctx, qi)
		ev.Graph = &r
	case model.IntentAmendment:
		if qi.PrimaryEntity() != "" {
			amend := qi
			amend.Relations = []model.EdgeKind{model.EdgeAmends}
			r := g.resolveGraph(ctx, amend)
			ev.Graph = &r
		}
		set := g.search(ctx, question)
		ev.Search = &set
	case model.IntentFactual, model.IntentDefinition, model.IntentComparison,
		model.IntentProcedural, model.IntentUnknown:
		set := g.search(ctx, question)
		ev.Search = &set
	default:
		return ev, fmt.Errorf("unroutable intent %s", qi.Category)
	}

	if ev.Search != nil && errors.Is(ev.Search.Err, model.ErrIndexCorrupted) {
		return ev, ev.Search.Err
	}
	if ev.Graph != nil && errors.Is(ev.Graph.Err, model.ErrIndexCorrupted) {
		return ev, ev.Graph.Err
	}
	return ev, nil
}

func (g *LexGraph) resolveGraph(ctx context.Context, qi model.QueryIntent) model.GraphQueryResult {
	if g.Graph == nil {
		return model.GraphQueryResult{
			Mention:    qi.PrimaryEntity(),
			Resolution: model.ResolutionNone,
			Relations:  qi.Relations,
			Err:        fmt.Errorf("%w: no graph store configured", model.ErrRetrievalUnavailable),
		}
	}
	return g.Graph.Resolve(ctx, qi)
}

func (g *LexGraph) search(ctx context.Context, question string) model.SearchResultSet {
	if g.Searcher == nil {
		return model.SearchResultSet{Hits: []model.SearchHit{}, Err: fmt.Errorf("%w: no search engine configured", model.ErrRetrievalUnavailable)}
	}
	return g.Searcher.Search(ctx, question, g.searchMode, g.searchSize)
}

func (g *LexGraph) validate(question string) string {
	q := strings.TrimSpace(question)
	switch {
	case q == "":
		return "the question is empty"
	case !utf8.ValidString(q):
		return "the question is not valid text"
	case utf8.RuneCountInString(q) > g.maxQuestionLength:
		return fmt.Sprintf("the question is longer than %d characters", g.maxQuestionLength)
	case strings.IndexFunc(q, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) < 0:
		return "the question contains no words"
	}
	return ""
}

func (g *LexGraph) enter(log zerolog.Logger, s Stage) func() {
	start := time.Now()
	log.Debug().Str("stage", s.String()).Msg("stage started")
	return func() {
		g.metrics.RecordStage(s.String(), time.Since(start))
	}
}
