package model

import (
	"fmt"
	"strings"
)

type EdgeKind string

const (
	EdgeCites      EdgeKind = "cites"
	EdgeAmends     EdgeKind = "amends"
	EdgeImplements EdgeKind = "implements"
)

var edgeKinds = []EdgeKind{EdgeCites, EdgeAmends, EdgeImplements}

func EdgeKinds() []EdgeKind {
	return append([]EdgeKind(nil), edgeKinds...)
}

// RelType is the relationship type used by Cypher stores.
func (k EdgeKind) RelType() string {
	return strings.ToUpper(string(k))
}

func ParseEdgeKind(s string) (EdgeKind, error) {
	for _, k := range edgeKinds {
		if strings.EqualFold(s, string(k)) || strings.EqualFold(s, k.RelType()) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown edge kind %q", s)
}

// GraphEdge points from the acting instrument to the one it acts on:
// SourceID cites, amends or implements TargetID.
type GraphEdge struct {
	SourceID string   `json:"source_id"`
	TargetID string   `json:"target_id"`
	Kind     EdgeKind `json:"kind"`
}

type Resolution string

const (
	ResolutionNone  Resolution = "none"
	ResolutionFuzzy Resolution = "fuzzy"
	ResolutionExact Resolution = "exact"
)

type GraphQueryResult struct {
	Mention      string      `json:"mention,omitempty"`
	Subjects     []GraphNode `json:"subjects"`
	Resolution   Resolution  `json:"resolution"`
	Relations    []EdgeKind  `json:"relations"`
	Hops         int         `json:"hops"`
	MatchedEdges []GraphEdge `json:"matched_edges"`
	MatchedNodes []GraphNode `json:"matched_nodes"`
	Err          error       `json:"-"`
}

func (r GraphQueryResult) Empty() bool {
	return len(r.MatchedEdges) == 0
}

// Node looks up a matched node or subject by id.
func (r GraphQueryResult) Node(id string) (GraphNode, bool) {
	for _, n := range r.MatchedNodes {
		if n.ID == id {
			return n, true
		}
	}
	for _, n := range r.Subjects {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}
