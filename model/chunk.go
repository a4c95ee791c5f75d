package model

// DocumentChunk is a span of source text returned by a vector index lookup.
// Read-only downstream of the retriever.
type DocumentChunk struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	SourceIndex string   `json:"source_index"`
	Similarity  float64  `json:"similarity"`
	Metadata    Metadata `json:"metadata,omitempty"`
	// Score is the final rank score after merging and recency blending.
	// Equals Similarity when no recency weighting is applied.
	Score float64 `json:"score,omitempty"`
}

// ContextSet is the ordered, deduplicated collection of chunks produced by a
// single retriever invocation. It is owned by one request and never shared.
type ContextSet struct {
	Chunks []DocumentChunk `json:"chunks"`
	// FailedLookups counts index lookups that were dropped due to errors.
	FailedLookups int `json:"failed_lookups,omitempty"`
}

// Empty reports whether the set contains no chunks.
func (c ContextSet) Empty() bool {
	return len(c.Chunks) == 0
}

// Len returns the number of chunks in the set.
func (c ContextSet) Len() int {
	return len(c.Chunks)
}
