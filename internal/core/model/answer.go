package model

type Source struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Citation string   `json:"citation,omitempty"`
	Relation EdgeKind `json:"relation,omitempty"`
	Score    float64  `json:"score,omitempty"`
}

type Answer struct {
	Intent          QueryIntent `json:"intent"`
	Answer          string      `json:"answer"`
	ConfidenceScore float64     `json:"confidence_score"`
	Sources         []Source    `json:"sources"`
	// Degraded marks answers assembled without the generative backend.
	Degraded bool `json:"degraded,omitempty"`
}
