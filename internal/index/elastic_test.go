package index

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lexgraph/internal/core/model"
)

const esResponse = `{
  "hits": {
    "total": {"value": 42, "relation": "eq"},
    "hits": [
      {"_id": "eia", "_score": 7.5, "_source": {"title": "Employment Insurance Act", "citation": "S.C. 1996, c. 23",
        "content": "An Act respecting employment insurance", "metadata": {"source": "justice"}}},
      {"_id": "eir", "_score": 3.0, "_source": {"title": "Employment Insurance Regulations"}}
    ]
  }
}`

func TestElasticIndex_KeywordSearch(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/regulations/_search", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "elastic", user)
		assert.Equal(t, "secret", pass)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(esResponse))
	}))
	defer srv.Close()

	idx := NewElasticIndex(srv.URL, "regulations", "elastic", "secret", "embedding")
	page, err := idx.KeywordSearch(context.Background(), "employment insurance", 2)
	require.NoError(t, err)

	assert.Equal(t, 42, page.Total)
	require.Len(t, page.Hits, 2)
	assert.Equal(t, "eia", page.Hits[0].ID)
	assert.Equal(t, 7.5, page.Hits[0].KeywordScore)
	assert.Equal(t, "S.C. 1996, c. 23", page.Hits[0].Source.Citation)
	assert.Equal(t, map[string]string{"source": "justice"}, page.Hits[0].Source.Metadata)

	assert.EqualValues(t, 2, got["size"])
	assert.Contains(t, got, "query")
	assert.Contains(t, got, "_source")
}

func TestElasticIndex_VectorSearchConvertsScores(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":1},"hits":[{"_id":"eia","_score":0.95,"_source":{"title":"EIA"}}]}}`))
	}))
	defer srv.Close()

	idx := NewElasticIndex(srv.URL, "regulations", "", "", "embedding")
	page, err := idx.VectorSearch(context.Background(), []float32{0.1, 0.2}, 3)
	require.NoError(t, err)

	require.Len(t, page.Hits, 1)
	assert.InDelta(t, 0.9, page.Hits[0].VectorScore, 1e-9)
	knn, ok := got["knn"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "embedding", knn["field"])
	assert.EqualValues(t, 3, knn["k"])
}

func TestElasticIndex_ServerErrorIsRetrievalUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"reason":"cluster red"}}`))
	}))
	defer srv.Close()

	idx := NewElasticIndex(srv.URL, "regulations", "", "", "")
	_, err := idx.KeywordSearch(context.Background(), "x", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrRetrievalUnavailable)
	assert.Contains(t, err.Error(), "cluster red")
}

func TestElasticIndex_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	idx := NewElasticIndex(url, "regulations", "", "", "")
	_, err := idx.KeywordSearch(context.Background(), "x", 5)
	assert.ErrorIs(t, err, model.ErrRetrievalUnavailable)
}

func TestElasticIndex_VectorWithoutField(t *testing.T) {
	idx := NewElasticIndex("http://localhost:1", "regulations", "", "", "")
	_, err := idx.VectorSearch(context.Background(), []float32{1}, 5)
	assert.ErrorIs(t, err, model.ErrRetrievalUnavailable)
}

func TestElasticIndex_ZeroSize(t *testing.T) {
	idx := NewElasticIndex("http://localhost:1", "regulations", "", "", "")
	page, err := idx.KeywordSearch(context.Background(), "x", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Hits)
}
