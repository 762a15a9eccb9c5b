package answer

import "github.com/agenthands/lexgraph/internal/core/model"

// Prompts are fmt templates: %[1]s is the question, %[2]s the numbered
// context passages.
type Prompts struct {
	Factual    string
	Definition string
	Comparison string
	Procedural string
	Amendment  string
}

const sharedRules = `
Rules:
- Use only the context below. Cite passages by their [number].
- If the context does not contain the answer, reply exactly: "The provided documents do not contain information about this."
- Quote statutory wording where it matters; do not speculate.

Context:
%[2]s

Question: %[1]s
Answer:`

func DefaultPrompts() Prompts {
	return Prompts{
		Factual: `You answer questions about regulations and legislation.` + sharedRules,
		Definition: `You explain how regulations and legislation define terms. Give the definition as
the instrument states it, name the instrument and provision it comes from, and note any
alternative definitions in other instruments.` + sharedRules,
		Comparison: `You compare provisions of regulations and legislation. Set out what each
instrument provides, then the differences, point by point.` + sharedRules,
		Procedural: `You explain regulatory procedures. Answer with the steps in order, the
deadlines and forms involved, and the provision each step comes from.` + sharedRules,
		Amendment: `You explain how legislation was amended. List the amending instruments, what
each changed and when it took effect, in chronological order.` + sharedRules,
	}
}

// Merge fills empty fields from defaults.
func (p Prompts) Merge(defaults Prompts) Prompts {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return Prompts{
		Factual:    pick(p.Factual, defaults.Factual),
		Definition: pick(p.Definition, defaults.Definition),
		Comparison: pick(p.Comparison, defaults.Comparison),
		Procedural: pick(p.Procedural, defaults.Procedural),
		Amendment:  pick(p.Amendment, defaults.Amendment),
	}
}

func (p Prompts) For(c model.IntentCategory) string {
	switch c {
	case model.IntentDefinition:
		return p.Definition
	case model.IntentComparison:
		return p.Comparison
	case model.IntentProcedural:
		return p.Procedural
	case model.IntentAmendment:
		return p.Amendment
	case model.IntentFactual, model.IntentGraphRelationship, model.IntentUnknown:
		return p.Factual
	}
	return p.Factual
}
