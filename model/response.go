package model

// Citation binds an inline marker in generated text to the source chunk it
// was rendered from.
type Citation struct {
	Marker      string   `json:"marker"`
	ChunkID     string   `json:"chunk_id"`
	SourceIndex string   `json:"source_index"`
	Metadata    Metadata `json:"metadata,omitempty"`
}

// PromptRequest is a fully rendered generation request. The marker map
// records every citation marker embedded in the prompt so the formatter can
// validate the generated text against it.
type PromptRequest struct {
	System  string              `json:"system"`
	User    string              `json:"user"`
	Markers map[string]Citation `json:"markers"`
}

// AttributedResponse is the final pipeline output. Every citation marker
// present in Body resolves to an entry in Citations; the formatter enforces
// this by stripping unknown markers.
type AttributedResponse struct {
	Body      string              `json:"body"`
	Citations map[string]Citation `json:"citations"`
}
