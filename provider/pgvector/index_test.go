package pgvector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusrag/campusrag/model"
	"github.com/campusrag/campusrag/provider"
)

func TestNewIndex(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewIndex", func(t *testing.T) {
		index, err := NewIndex("universities", "chunks_create", database, 3)
		assert.NoError(t, err, "Expected NewIndex to not return an error")
		require.NotNil(t, index, "Expected NewIndex to return a non-nil instance")
		assert.Equal(t, "universities", index.Name())
	})

	t.Run("Creating the same index twice is safe", func(t *testing.T) {
		_, err := NewIndex("universities", "chunks_create", database, 3)
		assert.NoError(t, err, "Expected table creation to be idempotent")
	})

	t.Run("Invalid call NewIndex with nil database", func(t *testing.T) {
		_, err := NewIndex("universities", "chunks_create", nil, 3)
		assert.Error(t, err, "Expected error when creating index with nil database")
		assert.Contains(t, err.Error(), "database connection is nil")
	})

	t.Run("Invalid call NewIndex with unsafe table name", func(t *testing.T) {
		_, err := NewIndex("universities", "chunks; DROP TABLE chunks", database, 3)
		assert.Error(t, err, "Expected error for a table name that is not a plain identifier")
	})
}

func TestInsertChunkAndSearch(t *testing.T) {
	ctx := context.Background()
	database := initDB(t)

	index, err := NewIndex("universities", "chunks_search", database, 3)
	require.NoError(t, err, "Expected NewIndex to not return an error")

	chunks := []model.DocumentChunk{
		{
			ID:       "ucla-cds-1",
			Text:     "UCLA acceptance rate 8.6%",
			Metadata: model.Metadata{"source": "UCLA_CDS_2023"},
		},
		{
			ID:       "stanford-cds-1",
			Text:     "Stanford acceptance rate 3.9%",
			Metadata: model.Metadata{"source": "Stanford_CDS_2023"},
		},
		{
			ID:       "mit-cds-1",
			Text:     "MIT acceptance rate 4.5%",
			Metadata: model.Metadata{"source": "MIT_CDS_2023"},
		},
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.7, 0.7, 0},
	}
	for i, chunk := range chunks {
		require.NoError(t, index.InsertChunk(ctx, chunk, embeddings[i]), "Expected InsertChunk to not return an error")
	}

	t.Run("Orders results by cosine similarity", func(t *testing.T) {
		results, err := index.Search(ctx, []float32{1, 0, 0}, 3, nil)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, "ucla-cds-1", results[0].ID)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-6, "Expected an identical vector to score 1.0")
		assert.Greater(t, results[0].Similarity, results[1].Similarity)
		assert.Greater(t, results[1].Similarity, results[2].Similarity)
		assert.Equal(t, "universities", results[0].SourceIndex)
		assert.Equal(t, "UCLA acceptance rate 8.6%", results[0].Text)
		assert.Equal(t, "UCLA_CDS_2023", results[0].Metadata.String("source"))
	})

	t.Run("Respects the topK limit", func(t *testing.T) {
		results, err := index.Search(ctx, []float32{1, 0, 0}, 2, nil)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("Metadata filter restricts results", func(t *testing.T) {
		results, err := index.Search(ctx, []float32{1, 0, 0}, 3, provider.SearchFilter{
			"source": {"Stanford_CDS_2023", "MIT_CDS_2023"},
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, chunk := range results {
			assert.NotEqual(t, "ucla-cds-1", chunk.ID)
		}
	})

	t.Run("Filter with no match returns empty", func(t *testing.T) {
		results, err := index.Search(ctx, []float32{1, 0, 0}, 3, provider.SearchFilter{
			"source": {"Nowhere_CDS_2023"},
		})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Re-inserting a chunk overwrites it", func(t *testing.T) {
		updated := chunks[0]
		updated.Text = "UCLA acceptance rate 9.0%"
		require.NoError(t, index.InsertChunk(ctx, updated, embeddings[0]))

		results, err := index.Search(ctx, []float32{1, 0, 0}, 3, provider.SearchFilter{
			"source": {"UCLA_CDS_2023"},
		})
		require.NoError(t, err)
		require.Len(t, results, 1, "Expected the upsert to replace the row, not duplicate it")
		assert.Equal(t, "UCLA acceptance rate 9.0%", results[0].Text)
	})
}
