// Package retrieval orchestrates embedding and index lookups into a ranked,
// deduplicated context set.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campusrag/campusrag/model"
	"github.com/campusrag/campusrag/provider"
)

// overfetchFactor controls how many candidates each index lookup requests
// relative to the profile top-k, so cross-index deduplication still leaves
// enough material.
const overfetchFactor = 3

// Retriever fans a query out across the configured indexes and merges the
// results into one context set.
type Retriever struct {
	embedder provider.Embedder
	indexes  map[string]provider.VectorIndex
	log      *slog.Logger
}

// NewRetriever creates a retriever over the given indexes.
func NewRetriever(embedder provider.Embedder, indexes []provider.VectorIndex, logger *slog.Logger) *Retriever {
	byName := make(map[string]provider.VectorIndex, len(indexes))
	for _, index := range indexes {
		byName[index.Name()] = index
	}
	return &Retriever{embedder: embedder, indexes: byName, log: logger}
}

// Retrieve embeds the query once, searches every index in the profile
// selector concurrently, and merges the results. A failing index drops out of
// the merge; only when every lookup fails does the whole retrieval fail.
func (r *Retriever) Retrieve(ctx context.Context, query model.Query, profile model.RetrievalProfile) (model.ContextSet, error) {
	vector, err := r.embedder.Embed(ctx, query.Text)
	if err != nil {
		return model.ContextSet{}, &model.EmbeddingError{Err: err}
	}

	selected := make([]provider.VectorIndex, 0, len(profile.Indexes))
	for _, name := range profile.Indexes {
		index, ok := r.indexes[name]
		if !ok {
			r.log.Warn("Profile references unknown index", slog.String("index", name))
			continue
		}
		selected = append(selected, index)
	}
	if len(selected) == 0 {
		return model.ContextSet{}, fmt.Errorf("%w: no configured index matches the profile selector", model.ErrRetrievalUnavailable)
	}

	fetchLimit := profile.TopK * overfetchFactor

	var mu sync.Mutex
	var merged []model.DocumentChunk
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	for _, index := range selected {
		g.Go(func() error {
			chunks, err := index.Search(gctx, vector, fetchLimit, profile.MetadataFilter)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				r.log.Warn("Index lookup failed",
					slog.String("index", index.Name()),
					slog.String("error", err.Error()),
				)
				return nil
			}
			merged = append(merged, chunks...)
			return nil
		})
	}
	// Lookups only report errors through the shared state, so this cannot
	// fail; Wait is the fan-in barrier.
	_ = g.Wait()

	if failed == len(selected) {
		// When the request deadline expired mid-fan-out every lookup fails
		// with the cancellation; report that, not an index outage.
		if err := ctx.Err(); err != nil {
			return model.ContextSet{}, err
		}
		return model.ContextSet{}, fmt.Errorf("%w: %d lookups failed", model.ErrRetrievalUnavailable, failed)
	}

	chunks := Dedupe(merged)
	if profile.RecencyWeight > 0 {
		blendRecency(chunks, profile.RecencyWeight)
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	if len(chunks) > profile.TopK {
		chunks = chunks[:profile.TopK]
	}

	return model.ContextSet{Chunks: chunks, FailedLookups: failed}, nil
}

// Dedupe removes duplicate chunk ids, keeping the highest similarity score
// for each id. The operation is idempotent. Every returned chunk has its
// Score initialized to its similarity.
func Dedupe(chunks []model.DocumentChunk) []model.DocumentChunk {
	byID := make(map[string]int, len(chunks))
	result := make([]model.DocumentChunk, 0, len(chunks))
	for _, chunk := range chunks {
		chunk.Score = chunk.Similarity
		if pos, seen := byID[chunk.ID]; seen {
			if chunk.Similarity > result[pos].Similarity {
				result[pos] = chunk
			}
			continue
		}
		byID[chunk.ID] = len(result)
		result = append(result, chunk)
	}
	return result
}

// blendRecency replaces each chunk score with
// (1-w)*similarity + w*normalizedRecency, where the newest timestamp in the
// set maps to 1.0 and older timestamps decay linearly to 0.0. Chunks without
// a parseable timestamp get recency 0.
func blendRecency(chunks []model.DocumentChunk, weight float64) {
	var newest, oldest time.Time
	timestamps := make([]time.Time, len(chunks))
	found := false
	for i, chunk := range chunks {
		t, ok := chunk.Metadata.Timestamp()
		if !ok {
			continue
		}
		timestamps[i] = t
		if !found {
			newest, oldest = t, t
			found = true
			continue
		}
		if t.After(newest) {
			newest = t
		}
		if t.Before(oldest) {
			oldest = t
		}
	}
	if !found {
		return
	}

	span := newest.Sub(oldest)
	for i := range chunks {
		recency := 0.0
		if !timestamps[i].IsZero() {
			if span == 0 {
				recency = 1.0
			} else {
				recency = float64(timestamps[i].Sub(oldest)) / float64(span)
			}
		}
		chunks[i].Score = (1-weight)*chunks[i].Similarity + weight*recency
	}
}
