package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/agenthands/lexgraph/internal/core/common"
	"github.com/agenthands/lexgraph/internal/core/model"
)

const documentColumns = `d.id, d.title, d.content, d.document_type, d.jurisdiction, d.authority,
	d.citation, d.legislation_name, d.effective_date, d.status, d.metadata`

// UpsertDocument stores a document and, when non-nil, its embedding.
func (s *Store) UpsertDocument(ctx context.Context, doc model.DocumentSnapshot, embedding []float32) error {
	meta := "{}"
	if len(doc.Metadata) > 0 {
		b, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		meta = string(b)
	}
	var blob any
	if len(embedding) > 0 {
		blob = common.EncodeVector(embedding)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, content, document_type, jurisdiction, authority,
			citation, legislation_name, effective_date, status, metadata, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, content = excluded.content,
			document_type = excluded.document_type, jurisdiction = excluded.jurisdiction,
			authority = excluded.authority, citation = excluded.citation,
			legislation_name = excluded.legislation_name, effective_date = excluded.effective_date,
			status = excluded.status, metadata = excluded.metadata,
			embedding = COALESCE(excluded.embedding, documents.embedding),
			updated_at = datetime('now')`,
		doc.ID, doc.Title, doc.Content, doc.DocumentType, doc.Jurisdiction, doc.Authority,
		doc.Citation, doc.LegislationName, doc.EffectiveDate, doc.Status, meta, blob,
	)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// KeywordSearch ranks documents with FTS5 bm25, weighting titles highest.
func (s *Store) KeywordSearch(ctx context.Context, query string, size int) (model.Page, error) {
	expr := ftsQuery(query)
	if expr == "" || size <= 0 {
		return model.Page{}, nil
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM documents_fts WHERE documents_fts MATCH ?`, expr,
	).Scan(&total)
	if err != nil {
		return model.Page{}, classify("keyword count", err)
	}
	if total == 0 {
		return model.Page{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+`, -bm25(documents_fts, 2.0, 1.0, 1.5, 1.5) AS score
		 FROM documents_fts
		 JOIN documents d ON d.rowid = documents_fts.rowid
		 WHERE documents_fts MATCH ?
		 ORDER BY score DESC, d.id
		 LIMIT ?`,
		expr, size,
	)
	if err != nil {
		return model.Page{}, classify("keyword search", err)
	}
	defer rows.Close()

	var hits []model.SearchHit
	for rows.Next() {
		var doc model.DocumentSnapshot
		var meta string
		var score float64
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.DocumentType, &doc.Jurisdiction,
			&doc.Authority, &doc.Citation, &doc.LegislationName, &doc.EffectiveDate, &doc.Status,
			&meta, &score); err != nil {
			return model.Page{}, classify("keyword scan", err)
		}
		doc.Metadata = decodeMetadata(meta)
		hits = append(hits, model.SearchHit{ID: doc.ID, Score: score, KeywordScore: score, Source: doc})
	}
	if err := rows.Err(); err != nil {
		return model.Page{}, classify("keyword rows", err)
	}
	return model.Page{Total: total, Hits: hits}, nil
}

// VectorSearch scores every stored embedding by cosine similarity. Total
// counts documents with positive similarity.
func (s *Store) VectorSearch(ctx context.Context, vector []float32, size int) (model.Page, error) {
	if len(vector) == 0 || size <= 0 {
		return model.Page{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+`, d.embedding FROM documents d WHERE d.embedding IS NOT NULL`)
	if err != nil {
		return model.Page{}, classify("vector search", err)
	}
	defer rows.Close()

	var hits []model.SearchHit
	for rows.Next() {
		var doc model.DocumentSnapshot
		var meta string
		var blob []byte
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.DocumentType, &doc.Jurisdiction,
			&doc.Authority, &doc.Citation, &doc.LegislationName, &doc.EffectiveDate, &doc.Status,
			&meta, &blob); err != nil {
			return model.Page{}, classify("vector scan", err)
		}
		emb, err := common.DecodeVector(blob)
		if err != nil || len(emb) != len(vector) {
			continue
		}
		sim := common.Cosine(vector, emb)
		if sim <= 0 {
			continue
		}
		doc.Metadata = decodeMetadata(meta)
		hits = append(hits, model.SearchHit{ID: doc.ID, Score: sim, VectorScore: sim, Source: doc})
	}
	if err := rows.Err(); err != nil {
		return model.Page{}, classify("vector rows", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	total := len(hits)
	if len(hits) > size {
		hits = hits[:size]
	}
	return model.Page{Total: total, Hits: hits}, nil
}

func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, classify("count documents", err)
	}
	return n, nil
}

func decodeMetadata(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "{}" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
