package graph

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agenthands/lexgraph/internal/core/model"
)

const (
	minJaccard     = 0.6
	minContainment = 0.5
)

var (
	folder = cases.Fold()

	stopTokens = map[string]bool{
		"the": true, "of": true, "and": true, "a": true, "an": true, "to": true,
		"for": true, "on": true, "in": true, "respecting": true,
	}
	// generic tokens name the kind of instrument, not which one
	genericTokens = map[string]bool{
		"act": true, "acts": true, "regulation": true, "regulations": true, "code": true,
		"section": true, "s": true, "part": true, "rules": true, "order": true,
	}
)

// normalizeName folds case, strips accents and punctuation, and drops a
// leading article.
func normalizeName(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	s = folder.String(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) > 0 && fields[0] == "the" {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

func tokenSet(normalized string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range strings.Fields(normalized) {
		if !stopTokens[tok] {
			set[tok] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// containment is the share of the title's significant tokens covered by the
// mention, or 0 when the mention has a significant token the title lacks.
func containment(mention, title map[string]bool) float64 {
	var sigMention, sigTitle, covered int
	for t := range mention {
		if genericTokens[t] {
			continue
		}
		sigMention++
		if !title[t] {
			return 0
		}
	}
	for t := range title {
		if genericTokens[t] {
			continue
		}
		sigTitle++
		if mention[t] {
			covered++
		}
	}
	if sigMention == 0 || sigTitle == 0 {
		return 0
	}
	return float64(covered) / float64(sigTitle)
}

// resolveEntity maps a free-text mention onto graph nodes. Exact matches on
// title or citation win; otherwise the best-scoring fuzzy matches are kept.
func resolveEntity(mention string, nodes []model.GraphNode) ([]model.GraphNode, model.Resolution) {
	m := normalizeName(mention)
	if m == "" {
		return nil, model.ResolutionNone
	}

	var exact []model.GraphNode
	for _, n := range nodes {
		if normalizeName(n.Title) == m || (n.Citation != "" && normalizeName(n.Citation) == m) {
			exact = append(exact, n)
		}
	}
	if len(exact) > 0 {
		sortNodes(exact)
		return exact, model.ResolutionExact
	}

	mTokens := tokenSet(m)
	best := 0.0
	var fuzzy []model.GraphNode
	for _, n := range nodes {
		tTokens := tokenSet(normalizeName(n.Title))
		score := 0.0
		if j := jaccard(mTokens, tTokens); j >= minJaccard {
			score = j
		}
		if c := containment(mTokens, tTokens); c >= minContainment && c > score {
			score = c
		}
		switch {
		case score == 0:
		case score > best:
			best = score
			fuzzy = []model.GraphNode{n}
		case score == best:
			fuzzy = append(fuzzy, n)
		}
	}
	if len(fuzzy) == 0 {
		return nil, model.ResolutionNone
	}
	sortNodes(fuzzy)
	return fuzzy, model.ResolutionFuzzy
}

func sortNodes(nodes []model.GraphNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}
