// Package index adapts external search services to the retrieval interfaces.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/tidwall/gjson"

	"github.com/agenthands/lexgraph/internal/core/model"
)

var keywordFields = []string{"title^2", "content", "citation^1.5", "legislation_name^1.5"}

// ElasticIndex queries an Elasticsearch index with multi_match for keyword
// search and kNN for vector search.
type ElasticIndex struct {
	Endpoint    string
	Index       string
	Username    string
	Password    string
	VectorField string
	Client      *http.Client
}

func NewElasticIndex(endpoint, index, username, password, vectorField string) *ElasticIndex {
	return &ElasticIndex{
		Endpoint:    endpoint,
		Index:       index,
		Username:    username,
		Password:    password,
		VectorField: vectorField,
		Client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (e *ElasticIndex) KeywordSearch(ctx context.Context, query string, size int) (model.Page, error) {
	if size <= 0 {
		return model.Page{}, nil
	}
	body := map[string]any{
		"size":             size,
		"track_total_hits": true,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": keywordFields,
			},
		},
	}
	e.excludeVector(body)
	return e.search(ctx, body, false)
}

// VectorSearch runs approximate kNN over VectorField. Elasticsearch reports
// cosine scores as (1+cos)/2; hits carry the raw cosine.
func (e *ElasticIndex) VectorSearch(ctx context.Context, vector []float32, size int) (model.Page, error) {
	if size <= 0 || len(vector) == 0 {
		return model.Page{}, nil
	}
	if e.VectorField == "" {
		return model.Page{}, fmt.Errorf("%w: elasticsearch vector_field is not configured", model.ErrRetrievalUnavailable)
	}
	body := map[string]any{
		"size": size,
		"knn": map[string]any{
			"field":          e.VectorField,
			"query_vector":   vector,
			"k":              size,
			"num_candidates": max(size*10, 100),
		},
	}
	e.excludeVector(body)
	return e.search(ctx, body, true)
}

func (e *ElasticIndex) excludeVector(body map[string]any) {
	if e.VectorField != "" {
		body["_source"] = map[string]any{"excludes": []string{e.VectorField}}
	}
}

func (e *ElasticIndex) search(ctx context.Context, body map[string]any, vector bool) (model.Page, error) {
	bs, err := json.Marshal(body)
	if err != nil {
		return model.Page{}, fmt.Errorf("encode elasticsearch query: %w", err)
	}
	u, err := url.Parse(e.Endpoint)
	if err != nil {
		return model.Page{}, fmt.Errorf("%w: bad elasticsearch url: %w", model.ErrRetrievalUnavailable, err)
	}
	u.Path = path.Join(u.Path, e.Index, "_search")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(bs))
	if err != nil {
		return model.Page{}, fmt.Errorf("%w: %w", model.ErrRetrievalUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.Username != "" {
		req.SetBasicAuth(e.Username, e.Password)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return model.Page{}, fmt.Errorf("%w: elasticsearch: %w", model.ErrRetrievalUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Page{}, fmt.Errorf("%w: read elasticsearch response: %w", model.ErrRetrievalUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := gjson.GetBytes(raw, "error.reason").String()
		return model.Page{}, fmt.Errorf("%w: elasticsearch status %d: %s", model.ErrRetrievalUnavailable, resp.StatusCode, reason)
	}
	return parseHits(raw, vector), nil
}

func parseHits(raw []byte, vector bool) model.Page {
	total := gjson.GetBytes(raw, "hits.total.value")
	if !total.Exists() {
		total = gjson.GetBytes(raw, "hits.total")
	}

	var hits []model.SearchHit
	gjson.GetBytes(raw, "hits.hits").ForEach(func(_, h gjson.Result) bool {
		src := h.Get("_source")
		doc := model.DocumentSnapshot{
			ID:              h.Get("_id").String(),
			Title:           src.Get("title").String(),
			Content:         src.Get("content").String(),
			DocumentType:    src.Get("document_type").String(),
			Jurisdiction:    src.Get("jurisdiction").String(),
			Authority:       src.Get("authority").String(),
			Citation:        src.Get("citation").String(),
			LegislationName: src.Get("legislation_name").String(),
			EffectiveDate:   src.Get("effective_date").String(),
			Status:          src.Get("status").String(),
		}
		if meta := src.Get("metadata"); meta.IsObject() {
			doc.Metadata = map[string]string{}
			meta.ForEach(func(k, v gjson.Result) bool {
				doc.Metadata[k.String()] = v.String()
				return true
			})
		}

		score := h.Get("_score").Float()
		hit := model.SearchHit{ID: doc.ID, Source: doc}
		if vector {
			hit.VectorScore = 2*score - 1
			hit.Score = hit.VectorScore
		} else {
			hit.KeywordScore = score
			hit.Score = score
		}
		hits = append(hits, hit)
		return true
	})

	return model.Page{Total: int(total.Int()), Hits: hits}
}
