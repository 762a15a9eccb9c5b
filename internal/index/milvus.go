package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/agenthands/lexgraph/internal/core/model"
)

var milvusOutputFields = []string{
	"title", "content", "citation", "legislation_name", "document_type", "jurisdiction", "authority", "status",
}

type milvusSearcher interface {
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string,
		vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int,
		sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
}

// MilvusIndex serves vector search from a Milvus collection using COSINE.
// Milvus does not report a match count, so Total is the number of hits.
type MilvusIndex struct {
	client      milvusSearcher
	closer      func() error
	collection  string
	vectorField string
}

func NewMilvusIndex(c milvusSearcher, collection, vectorField string) *MilvusIndex {
	if vectorField == "" {
		vectorField = "embedding"
	}
	return &MilvusIndex{client: c, collection: collection, vectorField: vectorField}
}

func DialMilvus(ctx context.Context, address, username, password, database, collection, vectorField string) (*MilvusIndex, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address:  address,
		Username: username,
		Password: password,
		DBName:   database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus at %s: %w", address, err)
	}
	idx := NewMilvusIndex(c, collection, vectorField)
	idx.closer = c.Close
	return idx, nil
}

func (m *MilvusIndex) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}

func (m *MilvusIndex) VectorSearch(ctx context.Context, vector []float32, size int) (model.Page, error) {
	if size <= 0 || len(vector) == 0 {
		return model.Page{}, nil
	}
	sp, err := entity.NewIndexFlatSearchParam()
	if err != nil {
		return model.Page{}, fmt.Errorf("milvus search param: %w", err)
	}

	results, err := m.client.Search(ctx, m.collection, nil, "", milvusOutputFields,
		[]entity.Vector{entity.FloatVector(vector)}, m.vectorField, entity.COSINE, size, sp)
	if err != nil {
		return model.Page{}, fmt.Errorf("%w: milvus search: %w", model.ErrRetrievalUnavailable, err)
	}

	var hits []model.SearchHit
	for _, rs := range results {
		if rs.Err != nil {
			return model.Page{}, fmt.Errorf("%w: milvus result: %w", model.ErrRetrievalUnavailable, rs.Err)
		}
		for i := 0; i < rs.ResultCount; i++ {
			id, err := columnString(rs.IDs, i)
			if err != nil {
				continue
			}
			doc := model.DocumentSnapshot{
				ID:              id,
				Title:           fieldString(rs.Fields, "title", i),
				Content:         fieldString(rs.Fields, "content", i),
				Citation:        fieldString(rs.Fields, "citation", i),
				LegislationName: fieldString(rs.Fields, "legislation_name", i),
				DocumentType:    fieldString(rs.Fields, "document_type", i),
				Jurisdiction:    fieldString(rs.Fields, "jurisdiction", i),
				Authority:       fieldString(rs.Fields, "authority", i),
				Status:          fieldString(rs.Fields, "status", i),
			}
			var score float64
			if i < len(rs.Scores) {
				score = float64(rs.Scores[i])
			}
			hits = append(hits, model.SearchHit{ID: id, Score: score, VectorScore: score, Source: doc})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > size {
		hits = hits[:size]
	}
	return model.Page{Total: len(hits), Hits: hits}, nil
}

func fieldString(rs client.ResultSet, name string, i int) string {
	col := rs.GetColumn(name)
	if col == nil {
		return ""
	}
	s, err := columnString(col, i)
	if err != nil {
		return ""
	}
	return s
}

func columnString(col entity.Column, i int) (string, error) {
	if col == nil {
		return "", fmt.Errorf("nil column")
	}
	v, err := col.Get(i)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}
