package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

type DocumentSnapshot struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Content         string            `json:"content"`
	DocumentType    string            `json:"document_type,omitempty"`
	Jurisdiction    string            `json:"jurisdiction,omitempty"`
	Authority       string            `json:"authority,omitempty"`
	Citation        string            `json:"citation,omitempty"`
	LegislationName string            `json:"legislation_name,omitempty"`
	EffectiveDate   string            `json:"effective_date,omitempty"`
	Status          string            `json:"status,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

type SearchHit struct {
	ID           string           `json:"id"`
	Score        float64          `json:"score"`
	KeywordScore float64          `json:"keyword_score,omitempty"`
	VectorScore  float64          `json:"vector_score,omitempty"`
	Source       DocumentSnapshot `json:"source"`
}

// Page is what an index backend returns for one query.
type Page struct {
	Total int
	Hits  []SearchHit
}

type SearchResultSet struct {
	Total int         `json:"total"`
	Hits  []SearchHit `json:"hits"`
	Err   error       `json:"-"`
}

func (s SearchResultSet) MarshalJSON() ([]byte, error) {
	type alias struct {
		Total int         `json:"total"`
		Hits  []SearchHit `json:"hits"`
		Error string      `json:"error,omitempty"`
	}
	out := alias{Total: s.Total, Hits: s.Hits}
	if out.Hits == nil {
		out.Hits = []SearchHit{}
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return json.Marshal(out)
}

type SearchMode string

const (
	ModeKeyword SearchMode = "keyword"
	ModeVector  SearchMode = "vector"
	ModeHybrid  SearchMode = "hybrid"
)

func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeKeyword:
		return ModeKeyword, nil
	case ModeVector:
		return ModeVector, nil
	case ModeHybrid, "":
		return ModeHybrid, nil
	}
	return "", fmt.Errorf("unknown search mode %q", s)
}
