package model

import "strings"

// Query represents a single user question. It is created per request and
// never mutated after construction.
type Query struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewQuery creates a Query from raw text. The text must be non-empty after
// trimming whitespace.
func NewQuery(text string) (Query, error) {
	if strings.TrimSpace(text) == "" {
		return Query{}, ErrInvalidQuery
	}
	return Query{Text: strings.TrimSpace(text)}, nil
}

// Validate checks the query against the same rule as NewQuery. Useful for
// queries constructed directly from decoded requests.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrInvalidQuery
	}
	return nil
}
