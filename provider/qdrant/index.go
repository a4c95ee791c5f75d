// Package qdrant implements the VectorIndex interface on the Qdrant REST API.
// It assumes cosine distance and creates the collection if missing.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/campusrag/campusrag/model"
	"github.com/campusrag/campusrag/provider"
)

// Config configures one Qdrant-backed logical index.
type Config struct {
	// Name is the logical index identifier used in retrieval profiles.
	Name       string
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Index is a minimal REST client to one Qdrant collection.
type Index struct {
	name       string
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// NewIndex creates a new Qdrant index client.
func NewIndex(config Config) *Index {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	name := config.Name
	if name == "" {
		name = config.Collection
	}
	return &Index{
		name:       name,
		url:        config.URL,
		apiKey:     config.APIKey,
		collection: config.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Name returns the logical index identifier.
func (i *Index) Name() string { return i.name }

// EnsureCollection creates the collection if it does not exist. Qdrant
// returns 200 for an existing collection with the same schema.
func (i *Index) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return i.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", i.url, i.collection), body, nil)
}

// Upsert writes chunks and their vectors into the collection. Used by
// fixtures and operational seeding; the answer path never writes.
func (i *Index) Upsert(ctx context.Context, chunks []model.DocumentChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	points := make([]map[string]any, len(chunks))
	for idx := range chunks {
		// Point ids derive from the chunk id so re-seeding the same chunk
		// overwrites its point instead of duplicating it.
		points[idx] = map[string]any{
			"id":     uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunks[idx].ID)).String(),
			"vector": vectors[idx],
			"payload": map[string]any{
				"chunk_id": chunks[idx].ID,
				"text":     chunks[idx].Text,
				"metadata": chunks[idx].Metadata,
			},
		}
	}
	body := map[string]any{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", i.url, i.collection)
	return i.doJSON(ctx, http.MethodPut, url, body, nil)
}

// Search performs a similarity search bounded by topK and filter.
func (i *Index) Search(ctx context.Context, vector []float32, topK int, filter provider.SearchFilter) ([]model.DocumentChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if len(filter) > 0 {
		must := make([]map[string]any, 0, len(filter))
		for key, values := range filter {
			must = append(must, map[string]any{
				"key":   "metadata." + key,
				"match": map[string]any{"any": values},
			})
		}
		req["filter"] = map[string]any{"must": must}
	}

	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", i.url, i.collection)
	if err := i.doJSON(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, err
	}

	chunks := make([]model.DocumentChunk, 0, len(resp.Result))
	for _, hit := range resp.Result {
		chunk := model.DocumentChunk{
			SourceIndex: i.name,
			Similarity:  hit.Score,
			Metadata:    model.Metadata{},
		}
		if id, ok := hit.Payload["chunk_id"].(string); ok {
			chunk.ID = id
		} else {
			chunk.ID = fmt.Sprint(hit.ID)
		}
		if text, ok := hit.Payload["text"].(string); ok {
			chunk.Text = text
		}
		if meta, ok := hit.Payload["metadata"].(map[string]any); ok {
			chunk.Metadata = meta
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (i *Index) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if i.apiKey != "" {
		req.Header.Set("api-key", i.apiKey)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, url, resp.StatusCode, string(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
