// Package intent maps a raw question onto a model.QueryIntent.
package intent

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agenthands/lexgraph/internal/core/model"
)

// MinConfidence is the score a category needs to beat IntentUnknown.
const MinConfidence = 0.3

type Classifier interface {
	Classify(ctx context.Context, question string) model.QueryIntent
}

// RuleClassifier scores lexical cues. It is deterministic and never fails.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier { return &RuleClassifier{} }

func (RuleClassifier) Classify(_ context.Context, question string) model.QueryIntent {
	return Classify(question)
}

type relationCue struct {
	kind    model.EdgeKind
	pattern *regexp.Regexp
}

var (
	relationCues = []relationCue{
		{model.EdgeCites, regexp.MustCompile(`\b(referenc(?:e|es|ed|ing)|refers? to|referred to|cit(?:e|es|ed|ing)|mention(?:s|ed|ing)?)\b`)},
		{model.EdgeAmends, regexp.MustCompile(`\b(amend(?:s|ed|ing|ment|ments)?|modif(?:y|ies|ied))\b`)},
		{model.EdgeImplements, regexp.MustCompile(`\b(implement(?:s|ed|ing)?|made under|enacted under|give[s]? effect to)\b`)},
	}
	cueJoiner = regexp.MustCompile(`^\s*(?:,|or|and|and/or|,\s*or|,\s*and)\s*$`)

	listShape       = regexp.MustCompile(`^(?:what|which|list|find|show|name|give|identify|enumerate|are there|is there|do any|does any)\b`)
	questionShape   = regexp.MustCompile(`^(?:what|which|who|whom|whose|when|where|why|how|is|are|was|were|do|does|did|can|could|should|must|may|will|would|has|have|had|tell me|explain|describe)\b`)
	historyCue      = regexp.MustCompile(`^(?:how|when|why)\b|\b(?:what changed|what changes|changes? (?:to|made to|in)|history of|last amended|amendment history|since when)\b`)
	definitionCue   = regexp.MustCompile(`\b(?:define|defined|definition|meaning|means|what is meant by)\b|^what (?:is|are) (?:a|an) |^what does .+ mean\b`)
	comparisonCue   = regexp.MustCompile(`\b(?:compare|compared|comparison|difference|differences|differ|differs|versus|vs\.?|distinguish|contrast)\b|\bbetween .+ and `)
	proceduralCue   = regexp.MustCompile(`^how (?:do|can|should|would|does one|to)\b|\b(?:steps|procedure|process for|how to|apply for|file an?|submit|register for|appeal)\b`)
	transitiveCue   = regexp.MustCompile(`\b(?:directly or indirectly|indirectly|transitively|recursively|at any level|chain of)\b`)
)

type scored struct {
	category model.IntentCategory
	score    float64
}

// Classify applies the lexical rules to question.
func Classify(question string) model.QueryIntent {
	text := strings.TrimSpace(question)
	lower := foldCase(text)

	intent := model.QueryIntent{
		Category: model.IntentUnknown,
		Entities: []string{},
	}
	if lower == "" {
		return intent
	}

	relations, tailStart, tailEntity := findRelations(text, lower)
	entities := extractEntities(text)
	if tailEntity != "" {
		entities = prepend(tailEntity, entities)
	}
	intent.Entities = entities
	intent.Transitive = transitiveCue.MatchString(lower)

	candidates := []scored{}
	if len(relations) > 0 {
		switch {
		case relations[0] == model.EdgeAmends && historyCue.MatchString(lower):
			candidates = append(candidates, scored{model.IntentAmendment, 0.85})
		case tailEntity != "" && listShape.MatchString(lower):
			candidates = append(candidates, scored{model.IntentGraphRelationship, 0.9})
		case tailEntity != "" && isQuestion(lower):
			candidates = append(candidates, scored{model.IntentGraphRelationship, 0.7})
		case tailStart < 0 && relations[0] == model.EdgeAmends:
			// "was X amended", subject before the cue
			candidates = append(candidates, scored{model.IntentAmendment, 0.6})
		}
	}
	if definitionCue.MatchString(lower) {
		candidates = append(candidates, scored{model.IntentDefinition, 0.8})
	}
	if comparisonCue.MatchString(lower) {
		candidates = append(candidates, scored{model.IntentComparison, 0.8})
	}
	if proceduralCue.MatchString(lower) {
		candidates = append(candidates, scored{model.IntentProcedural, 0.75})
	}
	if isQuestion(lower) {
		candidates = append(candidates, scored{model.IntentFactual, 0.5})
	}

	best := scored{model.IntentUnknown, 0}
	for _, c := range candidates {
		if c.score > best.score {
			best = c
		}
	}
	if best.score < MinConfidence {
		intent.Confidence = best.score
		return intent
	}

	intent.Category = best.category
	intent.Confidence = best.score
	switch best.category {
	case model.IntentGraphRelationship:
		intent.Relations = relations
	case model.IntentAmendment:
		intent.Relations = []model.EdgeKind{model.EdgeAmends}
	}
	return intent
}

// foldCase lowercases s without changing its byte length, so offsets found
// in the folded text index the original. Runes whose lowercase form has a
// different UTF-8 width, and invalid bytes, are kept as they are.
func foldCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteByte(s[i])
			i++
			continue
		}
		if l := unicode.ToLower(r); utf8.RuneLen(l) == size {
			r = l
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

func isQuestion(lower string) bool {
	return questionShape.MatchString(lower) || strings.HasSuffix(lower, "?")
}

// findRelations returns the relation kinds named by the first run of cues
// ("reference or implement"), the byte offset where the object of that run
// starts (-1 when the cue ends the question) and the object itself.
func findRelations(text, lower string) ([]model.EdgeKind, int, string) {
	type hit struct {
		kind       model.EdgeKind
		start, end int
	}
	var hits []hit
	for _, cue := range relationCues {
		for _, loc := range cue.pattern.FindAllStringIndex(lower, -1) {
			hits = append(hits, hit{cue.kind, loc[0], loc[1]})
		}
	}
	if len(hits) == 0 {
		return nil, -1, ""
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	relations := []model.EdgeKind{hits[0].kind}
	end := hits[0].end
	for _, h := range hits[1:] {
		if h.start < end || !cueJoiner.MatchString(lower[end:h.start]) {
			break
		}
		if !containsKind(relations, h.kind) {
			relations = append(relations, h.kind)
		}
		end = h.end
	}

	tail := cleanMention(text[end:])
	if tail == "" {
		return relations, -1, ""
	}
	return relations, end, tail
}

func containsKind(kinds []model.EdgeKind, k model.EdgeKind) bool {
	for _, existing := range kinds {
		if existing == k {
			return true
		}
	}
	return false
}

func prepend(first string, rest []string) []string {
	out := []string{first}
	for _, r := range rest {
		if !strings.EqualFold(r, first) {
			out = append(out, r)
		}
	}
	return out
}
