// Package pgvector implements the VectorIndex interface on a PostgreSQL
// table with a pgvector embedding column.
package pgvector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/campusrag/campusrag/helper"
	"github.com/campusrag/campusrag/model"
	"github.com/campusrag/campusrag/provider"
)

// Index wraps one chunks table as a logical index.
type Index struct {
	name  string
	table string
	db    *helper.Database
}

// NewIndex creates the index handler and ensures the backing table exists.
func NewIndex(name string, table string, db *helper.Database, embeddingDim int) (*Index, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if !validIdentifier(table) {
		return nil, helper.NewError("validate table name", fmt.Errorf("invalid table name %q", table))
	}

	index := &Index{
		name:  name,
		table: table,
		db:    db,
	}

	if err := index.createTable(embeddingDim); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized pgvector index", slog.String("index", name), slog.String("table", table))

	return index, nil
}

// Name returns the logical index identifier.
func (i *Index) Name() string { return i.name }

func (i *Index) createTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := i.db.Instance.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector;`)
	if err != nil {
		return helper.NewError("create vector extension", err)
	}

	_, err = i.db.Instance.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`, i.table, embeddingDim))
	if err != nil {
		return helper.NewError("create chunks table", err)
	}

	i.db.Logger.Info("Checked/created table", slog.String("table", i.table))

	return nil
}

// InsertChunk inserts or replaces one chunk with its embedding. Used by
// seeding tools and tests; the answer path never writes.
func (i *Index) InsertChunk(ctx context.Context, chunk model.DocumentChunk, embedding []float32) error {
	_, err := i.db.Instance.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content, embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata;`, i.table),
		chunk.ID,
		chunk.Text,
		pgvector.NewVector(embedding),
		chunk.Metadata,
	)
	if err != nil {
		return helper.NewError("insert chunk", err)
	}
	return nil
}

// Search returns the topK most similar chunks by cosine similarity,
// restricted by the metadata filter.
func (i *Index) Search(ctx context.Context, vector []float32, topK int, filter provider.SearchFilter) ([]model.DocumentChunk, error) {
	if topK <= 0 {
		topK = 5
	}

	where := make([]string, 0, len(filter))
	args := []interface{}{pgvector.NewVector(vector)}
	for key, values := range filter {
		args = append(args, key, pq.Array(values))
		where = append(where, fmt.Sprintf("metadata->>$%d = ANY($%d)", len(args)-1, len(args)))
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, topK)

	query := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d;`, i.table, whereClause, len(args))

	rows, err := i.db.Instance.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("select chunks by similarity", err)
	}
	defer rows.Close()

	var chunks []model.DocumentChunk
	for rows.Next() {
		chunk := model.DocumentChunk{SourceIndex: i.name}
		if err := rows.Scan(&chunk.ID, &chunk.Text, &chunk.Metadata, &chunk.Similarity); err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("iterate rows", err)
	}

	return chunks, nil
}

// validIdentifier guards the table name interpolated into SQL.
func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return s[0] >= 'a' && s[0] <= 'z'
}
