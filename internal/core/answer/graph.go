package answer

import (
	"fmt"
	"strings"

	"github.com/agenthands/lexgraph/internal/core/model"
)

var relationVerbs = map[model.EdgeKind]string{
	model.EdgeCites:      "reference",
	model.EdgeAmends:     "amend",
	model.EdgeImplements: "implement",
}

var relationPast = map[model.EdgeKind]string{
	model.EdgeCites:      "cites",
	model.EdgeAmends:     "amends",
	model.EdgeImplements: "implements",
}

// relationPhrase renders the relations as a verb: "reference",
// "reference or implement".
func relationPhrase(kinds []model.EdgeKind) string {
	if len(kinds) == 0 {
		kinds = []model.EdgeKind{model.EdgeCites}
	}
	words := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if w, ok := relationVerbs[k]; ok {
			words = append(words, w)
		}
	}
	return strings.Join(words, " or ")
}

func subjectPhrase(r model.GraphQueryResult) string {
	switch {
	case len(r.Subjects) == 1:
		return withArticle(r.Subjects[0].Label())
	case len(r.Subjects) > 1:
		labels := make([]string, len(r.Subjects))
		for i, s := range r.Subjects {
			labels[i] = s.Label()
		}
		return strings.Join(labels, " or ")
	case r.Mention != "":
		return withArticle(r.Mention)
	}
	return "the named instrument"
}

func withArticle(name string) string {
	if strings.HasPrefix(strings.ToLower(name), "the ") {
		return name
	}
	return "the " + name
}

func (s *Synthesizer) fromGraph(intent model.QueryIntent, r model.GraphQueryResult) model.Answer {
	verb := relationPhrase(r.Relations)
	subject := subjectPhrase(r)

	if r.Err != nil {
		return model.Answer{
			Intent:          intent,
			Answer:          fmt.Sprintf("I couldn't check which regulations %s %s because the citation graph is unavailable right now.", verb, subject),
			ConfidenceScore: noInformation,
			Sources:         []model.Source{},
			Degraded:        true,
		}
	}

	if r.Empty() {
		if r.Resolution == model.ResolutionNone {
			text := fmt.Sprintf("I couldn't find any regulations that %s %s. No act or regulation by that name is recorded in the citation graph.", verb, subject)
			if r.Mention == "" {
				text = fmt.Sprintf("I couldn't find any regulations that %s the instrument in question, because the question does not name an act or regulation I could look up.", verb)
			}
			return model.Answer{
				Intent:          intent,
				Answer:          text,
				ConfidenceScore: unresolvedNegative,
				Sources:         []model.Source{},
			}
		}
		return model.Answer{
			Intent:          intent,
			Answer:          fmt.Sprintf("I couldn't find any regulations that %s %s. The citation graph records no such relationships for it.", verb, subject),
			ConfidenceScore: resolvedNegative,
			Sources:         subjectSources(r.Subjects),
		}
	}

	var b strings.Builder
	if r.Hops > 1 {
		verb = "directly or indirectly " + verb
	}
	fmt.Fprintf(&b, "The following regulations %s %s:\n", verb, subject)

	subjects := map[string]bool{}
	for _, n := range r.Subjects {
		subjects[n.ID] = true
	}
	sources := make([]model.Source, 0, len(r.MatchedNodes))
	for _, n := range r.MatchedNodes {
		kinds, via := s.describeNode(n.ID, r, subjects)
		fmt.Fprintf(&b, "- %s", n.Label())
		if len(r.Relations) > 1 {
			fmt.Fprintf(&b, " (%s)", strings.Join(kinds, ", "))
		}
		if via != "" {
			fmt.Fprintf(&b, ", via %s", via)
		}
		b.WriteString("\n")

		src := model.Source{ID: n.ID, Title: n.Title, Citation: n.Citation}
		if k, ok := firstKind(n.ID, r.MatchedEdges); ok {
			src.Relation = k
		}
		sources = append(sources, src)
	}
	if r.Resolution == model.ResolutionFuzzy && r.Mention != "" {
		fmt.Fprintf(&b, "\n%q was matched to %s.", r.Mention, strings.TrimPrefix(subject, "the "))
	}

	return model.Answer{
		Intent:          intent,
		Answer:          strings.TrimSpace(b.String()),
		ConfidenceScore: graphConfidence(r.Resolution, len(r.MatchedNodes)),
		Sources:         sources,
	}
}

// describeNode lists how id relates to what it points at, and names the
// intermediate instrument when it does not point at a subject directly.
func (s *Synthesizer) describeNode(id string, r model.GraphQueryResult, subjects map[string]bool) ([]string, string) {
	var kinds []string
	var via []string
	seenKind := map[model.EdgeKind]bool{}
	direct := false
	for _, e := range r.MatchedEdges {
		if e.SourceID != id {
			continue
		}
		if !seenKind[e.Kind] {
			seenKind[e.Kind] = true
			kinds = append(kinds, relationPast[e.Kind])
		}
		if subjects[e.TargetID] {
			direct = true
			continue
		}
		if n, ok := r.Node(e.TargetID); ok {
			via = append(via, n.Title)
		}
	}
	if direct || len(via) == 0 {
		return kinds, ""
	}
	return kinds, strings.Join(via, ", ")
}

func firstKind(id string, edges []model.GraphEdge) (model.EdgeKind, bool) {
	for _, e := range edges {
		if e.SourceID == id {
			return e.Kind, true
		}
	}
	return "", false
}

func subjectSources(nodes []model.GraphNode) []model.Source {
	out := make([]model.Source, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, model.Source{ID: n.ID, Title: n.Title, Citation: n.Citation})
	}
	return out
}
