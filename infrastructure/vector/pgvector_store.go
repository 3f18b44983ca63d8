package vector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"
)

// PgVectorStore keeps vectors in postgres next to the relational data. The
// namespace is a column; every statement filters on it.
type PgVectorStore struct {
	db         *sql.DB
	dimensions int
}

func NewPgVectorStore(db *sql.DB, dimensions int) *PgVectorStore {
	return &PgVectorStore{db: db, dimensions: dimensions}
}

// EnsureSchema creates the extension and table sized to the embedder.
func (s *PgVectorStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memory_vectors (
			namespace TEXT NOT NULL,
			id TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			text TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (namespace, id)
		)`, s.dimensions),
		`CREATE INDEX IF NOT EXISTS idx_memory_vectors_hnsw ON memory_vectors USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to prepare pgvector schema")
		}
	}
	return nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, namespace string, docs []Document) error {
	now := time.Now().UnixMilli()
	for _, d := range docs {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO memory_vectors (namespace, id, embedding, text, title, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (namespace, id) DO UPDATE SET
				embedding = EXCLUDED.embedding,
				text = EXCLUDED.text,
				title = EXCLUDED.title,
				updated_at = EXCLUDED.updated_at`,
			namespace, d.ID, pgvector.NewVector(d.Vector), d.Text, d.Title, now,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to upsert vector %s", d.ID)
		}
	}
	return nil
}

func (s *PgVectorStore) Delete(ctx context.Context, namespace, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memory_vectors WHERE namespace = $1 AND id = $2`, namespace, id)
	return errors.Wrapf(err, "failed to delete vector %s", id)
}

// Query orders by cosine distance; `<=>` is 1 - cosine similarity.
func (s *PgVectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, title, 1 - (embedding <=> $1) AS score
		FROM memory_vectors
		WHERE namespace = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(vector), namespace, topK,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search vectors")
	}
	defer rows.Close()

	candidates := []Candidate{}
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Text, &c.Title, &c.Similarity); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector match")
		}
		candidates = append(candidates, c)
	}
	return candidates, errors.Wrap(rows.Err(), "failed to iterate vector matches")
}
