package model

type NodeKind string

const (
	NodeRegulation NodeKind = "regulation"
	NodeSection    NodeKind = "section"
)

// GraphNode is a regulation or a section of one in the citation graph.
type GraphNode struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Citation string   `json:"citation,omitempty"`
	Kind     NodeKind `json:"kind"`
}

// Label renders the node the way answers cite it.
func (n GraphNode) Label() string {
	if n.Citation == "" || n.Citation == n.Title {
		return n.Title
	}
	return n.Title + " (" + n.Citation + ")"
}
