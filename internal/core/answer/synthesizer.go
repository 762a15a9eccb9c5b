// Package answer turns retrieval and graph evidence into a cited answer
// with a calibrated confidence score.
package answer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/agenthands/lexgraph/internal/core/model"
	"github.com/agenthands/lexgraph/internal/llm"
	"github.com/agenthands/lexgraph/internal/metrics"
)

// Evidence is what retrieval produced for one question. Either part may be
// nil when the route did not consult that source.
type Evidence struct {
	Graph  *model.GraphQueryResult
	Search *model.SearchResultSet
}

type Synthesizer struct {
	llm           llm.LLMClient
	reranker      llm.RerankerClient
	counter       llm.TokenCounter
	prompts       Prompts
	contextHits   int
	contextTokens int
	timeout       time.Duration
	log           zerolog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Synthesizer)

func WithReranker(r llm.RerankerClient) Option {
	return func(s *Synthesizer) { s.reranker = r }
}

func WithTokenCounter(c llm.TokenCounter) Option {
	return func(s *Synthesizer) {
		if c != nil {
			s.counter = c
		}
	}
}

func WithPrompts(p Prompts) Option {
	return func(s *Synthesizer) { s.prompts = p.Merge(DefaultPrompts()) }
}

// WithContextBudget caps the passages and tokens sent to the generator.
func WithContextBudget(hits, tokens int) Option {
	return func(s *Synthesizer) {
		if hits > 0 {
			s.contextHits = hits
		}
		if tokens > 0 {
			s.contextTokens = tokens
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Synthesizer) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Synthesizer) { s.metrics = m }
}

// NewSynthesizer builds a synthesizer. A nil client makes every search
// answer a degraded, templated one.
func NewSynthesizer(client llm.LLMClient, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		llm:           client,
		counter:       llm.ApproxCounter{},
		prompts:       DefaultPrompts(),
		contextHits:   5,
		contextTokens: 3000,
		timeout:       20 * time.Second,
		log:           zerolog.Nop(),
		metrics:       metrics.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize picks the answering strategy from the intent and the evidence
// available, and always returns a well-formed answer.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, intent model.QueryIntent, ev Evidence) model.Answer {
	var a model.Answer
	switch {
	case intent.Category == model.IntentGraphRelationship && ev.Graph != nil:
		a = s.fromGraph(intent, *ev.Graph)
	case intent.Category == model.IntentAmendment:
		a = s.fromAmendments(ctx, question, intent, ev)
	default:
		a = s.fromSearch(ctx, question, intent, ev.Search, nil)
	}
	return gate(a)
}

// Clarify is the fixed answer for questions that cannot be processed.
func (s *Synthesizer) Clarify(intent model.QueryIntent, problem string) model.Answer {
	text := "I couldn't understand the question. Please ask about a specific act, regulation or provision, for example \"What regulations reference the Employment Insurance Act?\""
	if problem != "" {
		text = fmt.Sprintf("I couldn't process the question (%s). Please ask about a specific act, regulation or provision.", problem)
	}
	if intent.Entities == nil {
		intent.Entities = []string{}
	}
	return model.Answer{
		Intent:          intent,
		Answer:          text,
		ConfidenceScore: clarification,
		Sources:         []model.Source{},
	}
}

func (s *Synthesizer) fromAmendments(ctx context.Context, question string, intent model.QueryIntent, ev Evidence) model.Answer {
	var amending []model.GraphNode
	if ev.Graph != nil && ev.Graph.Err == nil {
		amending = ev.Graph.MatchedNodes
	}
	if ev.Search != nil && len(ev.Search.Hits) > 0 {
		return s.fromSearch(ctx, question, intent, ev.Search, amending)
	}
	if ev.Graph != nil {
		g := *ev.Graph
		if len(g.Relations) == 0 {
			g.Relations = []model.EdgeKind{model.EdgeAmends}
		}
		return s.fromGraph(intent, g)
	}
	return s.fromSearch(ctx, question, intent, ev.Search, nil)
}

// fromSearch answers from retrieved passages. extra are graph nodes that
// back the answer alongside the passages.
func (s *Synthesizer) fromSearch(ctx context.Context, question string, intent model.QueryIntent, set *model.SearchResultSet, extra []model.GraphNode) model.Answer {
	if set == nil || len(set.Hits) == 0 {
		return s.noInformation(intent, question, set)
	}

	hits := s.rerank(ctx, question, set.Hits)
	used, passages := s.assemble(hits, extra)
	sources := make([]model.Source, 0, len(extra)+len(used))
	for _, n := range extra {
		sources = append(sources, model.Source{ID: n.ID, Title: n.Title, Citation: n.Citation, Relation: model.EdgeAmends})
	}
	for _, h := range used {
		sources = append(sources, model.Source{ID: h.ID, Title: h.Source.Title, Citation: h.Source.Citation, Score: h.Score})
	}

	prompt := fmt.Sprintf(s.prompts.For(intent.Category), question, passages)
	gen, err := s.generate(ctx, prompt)
	if err != nil {
		s.log.Warn().Err(err).Msg("generation unavailable, answering from retrieved passages")
		return model.Answer{
			Intent:          intent,
			Answer:          degradedText(used, extra),
			ConfidenceScore: min(searchConfidence(used, len(extra), 0), degradedCap),
			Sources:         sources,
			Degraded:        true,
		}
	}

	conf := searchConfidence(used, len(extra), gen.Certainty)
	if negativeReply.MatchString(gen.Text) {
		conf = min(conf, negativeReplyCap)
	}
	return model.Answer{
		Intent:          intent,
		Answer:          strings.TrimSpace(gen.Text),
		ConfidenceScore: conf,
		Sources:         sources,
	}
}

func (s *Synthesizer) noInformation(intent model.QueryIntent, question string, set *model.SearchResultSet) model.Answer {
	topic := intent.PrimaryEntity()
	if topic == "" {
		topic = "this question"
	}
	text := fmt.Sprintf("The indexed documents do not contain information about %s.", topic)
	degraded := false
	if set != nil && set.Err != nil {
		text = fmt.Sprintf("I couldn't search the regulations index right now, so I have no information about %s.", topic)
		degraded = true
	}
	s.log.Debug().Str("question", question).Bool("degraded", degraded).Msg("no evidence found")
	return model.Answer{
		Intent:          intent,
		Answer:          text,
		ConfidenceScore: noInformation,
		Sources:         []model.Source{},
		Degraded:        degraded,
	}
}

func (s *Synthesizer) generate(ctx context.Context, prompt string) (llm.Generation, error) {
	if s.llm == nil {
		s.metrics.RecordGeneration("disabled", 0)
		return llm.Generation{}, fmt.Errorf("%w: no generator configured", model.ErrGenerationUnavailable)
	}
	start := time.Now()
	gen, err := llm.GenerateWithin(ctx, s.llm, s.timeout, prompt)
	switch {
	case errors.Is(err, llm.ErrGenerationTimeout):
		s.metrics.RecordGeneration("timeout", time.Since(start))
		return gen, fmt.Errorf("%w: %w", model.ErrGenerationUnavailable, err)
	case err != nil:
		s.metrics.RecordGeneration("error", time.Since(start))
		return gen, fmt.Errorf("%w: %w", model.ErrGenerationUnavailable, err)
	case strings.TrimSpace(gen.Text) == "":
		s.metrics.RecordGeneration("empty", time.Since(start))
		return gen, fmt.Errorf("%w: empty completion", model.ErrGenerationUnavailable)
	}
	s.metrics.RecordGeneration("ok", time.Since(start))
	return gen, nil
}

// rerank reorders the head of the hit list when a reranker is configured.
func (s *Synthesizer) rerank(ctx context.Context, question string, hits []model.SearchHit) []model.SearchHit {
	if s.reranker == nil || len(hits) < 2 {
		return hits
	}
	head := hits[:min(len(hits), s.contextHits*2)]
	docs := make([]string, len(head))
	for i, h := range head {
		docs[i] = h.Source.Title + "\n" + h.Source.Content
	}
	order, err := llm.RankWithin(ctx, s.reranker, s.timeout, question, docs)
	if err != nil {
		s.log.Warn().Err(err).Msg("rerank failed, keeping retrieval order")
		return hits
	}
	out := make([]model.SearchHit, 0, len(hits))
	for _, i := range order {
		if i >= 0 && i < len(head) {
			out = append(out, head[i])
		}
	}
	if len(out) != len(head) {
		return hits
	}
	return append(out, hits[len(head):]...)
}

// assemble numbers passages into a context block under the token budget.
func (s *Synthesizer) assemble(hits []model.SearchHit, extra []model.GraphNode) ([]model.SearchHit, string) {
	var b strings.Builder
	budget := s.contextTokens

	if len(extra) > 0 {
		var g strings.Builder
		g.WriteString("Amending instruments recorded in the citation graph:\n")
		for _, n := range extra {
			fmt.Fprintf(&g, "- %s\n", n.Label())
		}
		g.WriteString("\n")
		block := s.counter.Truncate(g.String(), budget)
		budget -= s.counter.Count(block)
		b.WriteString(block)
	}

	var used []model.SearchHit
	for _, h := range hits {
		if len(used) == s.contextHits || budget <= 0 {
			break
		}
		header := fmt.Sprintf("[%d] %s\n", len(used)+1, passageTitle(h.Source))
		cost := s.counter.Count(header)
		if cost >= budget {
			break
		}
		body := s.counter.Truncate(h.Source.Content, budget-cost)
		b.WriteString(header)
		b.WriteString(body)
		b.WriteString("\n\n")
		budget -= cost + s.counter.Count(body)
		used = append(used, h)
	}
	return used, strings.TrimSpace(b.String())
}

func passageTitle(d model.DocumentSnapshot) string {
	title := d.Title
	if title == "" {
		title = d.ID
	}
	if d.Citation != "" {
		title += " (" + d.Citation + ")"
	}
	if d.EffectiveDate != "" {
		title += ", in force " + d.EffectiveDate
	}
	return title
}

// degradedText lists the evidence directly when no generator answered.
func degradedText(used []model.SearchHit, extra []model.GraphNode) string {
	var b strings.Builder
	b.WriteString("A generated answer is not available right now. The most relevant material found is:\n")
	for _, n := range extra {
		fmt.Fprintf(&b, "- %s (amending instrument)\n", n.Label())
	}
	for i, h := range used {
		fmt.Fprintf(&b, "[%d] %s: %s\n", i+1, passageTitle(h.Source), snippet(h.Source.Content, 240))
	}
	return strings.TrimSpace(b.String())
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)[:limit]
	out := string(runes)
	if i := strings.LastIndex(out, " "); i > limit/2 {
		out = out[:i]
	}
	return out + "…"
}

var negativeReply = regexp.MustCompile(`(?i)(do(?:es)? not contain (?:any )?information|no information (?:about|on|regarding)|(?:is|are) not (?:mentioned|specified|addressed|covered) in|cannot (?:be )?(?:determined|answered) from|can(?:not|'t) (?:determine|answer|find)|couldn't find|unable to (?:find|determine|answer)|(?:insufficient|not enough) information)`)

// gate enforces that a high-confidence answer always cites something.
func gate(a model.Answer) model.Answer {
	if a.Sources == nil {
		a.Sources = []model.Source{}
	}
	if a.Intent.Entities == nil {
		a.Intent.Entities = []string{}
	}
	if a.ConfidenceScore >= HighConfidence && len(a.Sources) == 0 {
		a.ConfidenceScore = HighConfidence - 0.05
	}
	a.ConfidenceScore = clamp01(a.ConfidenceScore)
	return a
}
