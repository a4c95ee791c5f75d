package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusrag/campusrag/model"
	"github.com/campusrag/campusrag/provider"
)

type fakeEmbedder struct {
	err error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *fakeEmbedder) Dimension() int { return 3 }

type fakeIndex struct {
	name   string
	chunks []model.DocumentChunk
	err    error
}

func (i *fakeIndex) Name() string { return i.name }

func (i *fakeIndex) Search(ctx context.Context, vector []float32, topK int, filter provider.SearchFilter) ([]model.DocumentChunk, error) {
	if i.err != nil {
		return nil, i.err
	}
	if len(i.chunks) > topK {
		return i.chunks[:topK], nil
	}
	return i.chunks, nil
}

// blockedIndex waits for the context like a real client would.
type blockedIndex struct {
	name string
}

func (i *blockedIndex) Name() string { return i.name }

func (i *blockedIndex) Search(ctx context.Context, vector []float32, topK int, filter provider.SearchFilter) ([]model.DocumentChunk, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chunk(id string, index string, similarity float64) model.DocumentChunk {
	return model.DocumentChunk{ID: id, Text: "text " + id, SourceIndex: index, Similarity: similarity}
}

func profileOver(indexes ...string) model.RetrievalProfile {
	profile := model.ProfileFor(model.StyleComprehensive, indexes)
	profile.TopK = 4
	return profile
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()
	query, err := model.NewQuery("What is UCLA's acceptance rate?")
	require.NoError(t, err)

	t.Run("Merges and deduplicates across indexes", func(t *testing.T) {
		a := &fakeIndex{name: "a", chunks: []model.DocumentChunk{
			chunk("1", "a", 0.9),
			chunk("2", "a", 0.5),
		}}
		b := &fakeIndex{name: "b", chunks: []model.DocumentChunk{
			chunk("2", "b", 0.8), // duplicate id, higher score wins
			chunk("3", "b", 0.4),
		}}
		retriever := NewRetriever(&fakeEmbedder{}, []provider.VectorIndex{a, b}, discardLogger())

		result, err := retriever.Retrieve(ctx, query, profileOver("a", "b"))
		require.NoError(t, err)
		require.Equal(t, 3, result.Len())
		assert.Zero(t, result.FailedLookups)

		ids := []string{result.Chunks[0].ID, result.Chunks[1].ID, result.Chunks[2].ID}
		assert.Equal(t, []string{"1", "2", "3"}, ids, "expected rank order by score")
		assert.Equal(t, 0.8, result.Chunks[1].Similarity, "duplicate keeps the higher similarity")
		assert.Equal(t, "b", result.Chunks[1].SourceIndex)
	})

	t.Run("Truncates to top-k", func(t *testing.T) {
		a := &fakeIndex{name: "a", chunks: []model.DocumentChunk{
			chunk("1", "a", 0.9), chunk("2", "a", 0.8), chunk("3", "a", 0.7),
			chunk("4", "a", 0.6), chunk("5", "a", 0.5), chunk("6", "a", 0.4),
		}}
		retriever := NewRetriever(&fakeEmbedder{}, []provider.VectorIndex{a}, discardLogger())

		profile := profileOver("a")
		profile.TopK = 2
		result, err := retriever.Retrieve(ctx, query, profile)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Len())
	})

	t.Run("Partial index failure degrades", func(t *testing.T) {
		healthy := &fakeIndex{name: "a", chunks: []model.DocumentChunk{
			chunk("1", "a", 0.9), chunk("2", "a", 0.8),
		}}
		broken := &fakeIndex{name: "b", err: errors.New("connection refused")}
		retriever := NewRetriever(&fakeEmbedder{}, []provider.VectorIndex{healthy, broken}, discardLogger())

		profile := profileOver("a", "b")
		result, err := retriever.Retrieve(ctx, query, profile)
		require.NoError(t, err)
		assert.Equal(t, 1, result.FailedLookups)
		assert.LessOrEqual(t, result.Len(), profile.TopK)
		for _, c := range result.Chunks {
			assert.Equal(t, "a", c.SourceIndex)
		}
	})

	t.Run("All lookups failing is an error", func(t *testing.T) {
		a := &fakeIndex{name: "a", err: errors.New("down")}
		b := &fakeIndex{name: "b", err: errors.New("also down")}
		retriever := NewRetriever(&fakeEmbedder{}, []provider.VectorIndex{a, b}, discardLogger())

		_, err := retriever.Retrieve(ctx, query, profileOver("a", "b"))
		assert.ErrorIs(t, err, model.ErrRetrievalUnavailable)
	})

	t.Run("Empty merged set is success", func(t *testing.T) {
		a := &fakeIndex{name: "a"}
		retriever := NewRetriever(&fakeEmbedder{}, []provider.VectorIndex{a}, discardLogger())

		result, err := retriever.Retrieve(ctx, query, profileOver("a"))
		require.NoError(t, err)
		assert.True(t, result.Empty())
	})

	t.Run("Embedding failure propagates", func(t *testing.T) {
		retriever := NewRetriever(&fakeEmbedder{err: errors.New("quota exceeded")}, []provider.VectorIndex{&fakeIndex{name: "a"}}, discardLogger())

		_, err := retriever.Retrieve(ctx, query, profileOver("a"))
		var embErr *model.EmbeddingError
		assert.ErrorAs(t, err, &embErr)
	})

	t.Run("Deadline expiry propagates as cancellation, not outage", func(t *testing.T) {
		retriever := NewRetriever(&fakeEmbedder{}, []provider.VectorIndex{&blockedIndex{name: "a"}}, discardLogger())

		expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
		defer cancel()

		_, err := retriever.Retrieve(expired, query, profileOver("a"))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, model.ErrRetrievalUnavailable)
	})

	t.Run("Unknown index in selector counts as unavailable when alone", func(t *testing.T) {
		retriever := NewRetriever(&fakeEmbedder{}, []provider.VectorIndex{&fakeIndex{name: "a"}}, discardLogger())

		_, err := retriever.Retrieve(ctx, query, profileOver("ghost"))
		assert.ErrorIs(t, err, model.ErrRetrievalUnavailable)
	})
}

func TestRetrieveRecencyBlend(t *testing.T) {
	ctx := context.Background()
	query, err := model.NewQuery("latest admissions news")
	require.NoError(t, err)

	t.Run("Equal similarity ranks newer first at full weight", func(t *testing.T) {
		older := chunk("old", "news", 0.8)
		older.Metadata = model.Metadata{"timestamp": "2022-01-01T00:00:00Z"}
		newer := chunk("new", "news", 0.8)
		newer.Metadata = model.Metadata{"timestamp": "2024-01-01T00:00:00Z"}

		index := &fakeIndex{name: "news", chunks: []model.DocumentChunk{older, newer}}
		retriever := NewRetriever(&fakeEmbedder{}, []provider.VectorIndex{index}, discardLogger())

		profile := profileOver("news")
		profile.RecencyWeight = 1.0
		result, err := retriever.Retrieve(ctx, query, profile)
		require.NoError(t, err)
		require.Equal(t, 2, result.Len())
		assert.Equal(t, "new", result.Chunks[0].ID)
		assert.Equal(t, "old", result.Chunks[1].ID)
	})

	t.Run("Zero weight preserves similarity order", func(t *testing.T) {
		newerButWeaker := chunk("new", "news", 0.3)
		newerButWeaker.Metadata = model.Metadata{"timestamp": "2024-01-01T00:00:00Z"}
		olderButStronger := chunk("old", "news", 0.9)
		olderButStronger.Metadata = model.Metadata{"timestamp": "2020-01-01T00:00:00Z"}

		index := &fakeIndex{name: "news", chunks: []model.DocumentChunk{newerButWeaker, olderButStronger}}
		retriever := NewRetriever(&fakeEmbedder{}, []provider.VectorIndex{index}, discardLogger())

		profile := profileOver("news")
		profile.RecencyWeight = 0
		result, err := retriever.Retrieve(ctx, query, profile)
		require.NoError(t, err)
		assert.Equal(t, "old", result.Chunks[0].ID)
	})
}

func TestDedupe(t *testing.T) {
	t.Run("Idempotent", func(t *testing.T) {
		chunks := []model.DocumentChunk{
			chunk("1", "a", 0.9),
			chunk("2", "a", 0.5),
			chunk("2", "b", 0.8),
		}
		once := Dedupe(chunks)
		twice := Dedupe(once)
		assert.Equal(t, once, twice)
		assert.Len(t, once, 2)
	})

	t.Run("Merging a set with itself yields the same set", func(t *testing.T) {
		chunks := []model.DocumentChunk{chunk("1", "a", 0.9), chunk("2", "a", 0.5)}
		deduped := Dedupe(chunks)
		doubled := Dedupe(append(append([]model.DocumentChunk{}, deduped...), deduped...))
		assert.Equal(t, deduped, doubled)
	})

	t.Run("Keeps highest similarity per id", func(t *testing.T) {
		deduped := Dedupe([]model.DocumentChunk{chunk("1", "a", 0.2), chunk("1", "b", 0.7)})
		require.Len(t, deduped, 1)
		assert.Equal(t, 0.7, deduped[0].Similarity)
		assert.Equal(t, "b", deduped[0].SourceIndex)
	})
}
