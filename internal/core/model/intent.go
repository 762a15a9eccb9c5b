package model

import (
	"fmt"
	"strings"
)

// IntentCategory is closed: routing code switches over every value.
type IntentCategory int

const (
	IntentUnknown IntentCategory = iota
	IntentFactual
	IntentGraphRelationship
	IntentAmendment
	IntentDefinition
	IntentComparison
	IntentProcedural
)

var intentNames = map[IntentCategory]string{
	IntentUnknown:           "unknown",
	IntentFactual:           "factual",
	IntentGraphRelationship: "graph_relationship",
	IntentAmendment:         "amendment",
	IntentDefinition:        "definition",
	IntentComparison:        "comparison",
	IntentProcedural:        "procedural",
}

func IntentCategories() []IntentCategory {
	return []IntentCategory{
		IntentFactual, IntentGraphRelationship, IntentAmendment,
		IntentDefinition, IntentComparison, IntentProcedural, IntentUnknown,
	}
}

func (c IntentCategory) String() string {
	if name, ok := intentNames[c]; ok {
		return name
	}
	return fmt.Sprintf("intent(%d)", int(c))
}

func (c IntentCategory) MarshalText() ([]byte, error) {
	if _, ok := intentNames[c]; !ok {
		return nil, fmt.Errorf("invalid intent category %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *IntentCategory) UnmarshalText(b []byte) error {
	parsed, err := ParseIntentCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func ParseIntentCategory(s string) (IntentCategory, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range intentNames {
		if name == s {
			return c, nil
		}
	}
	return IntentUnknown, fmt.Errorf("unknown intent category %q", s)
}

type QueryIntent struct {
	Category IntentCategory `json:"category"`
	// Entities are the named regulations, acts or sections, in question order.
	Entities []string `json:"entities"`
	// Relations is set for graph questions; the first entry is the primary relation.
	Relations []EdgeKind `json:"relations,omitempty"`
	// Transitive opts into multi-hop traversal.
	Transitive bool    `json:"transitive,omitempty"`
	Confidence float64 `json:"confidence"`
}

func (q QueryIntent) PrimaryEntity() string {
	if len(q.Entities) == 0 {
		return ""
	}
	return q.Entities[0]
}

func (q QueryIntent) PrimaryRelation() EdgeKind {
	if len(q.Relations) == 0 {
		return EdgeCites
	}
	return q.Relations[0]
}
