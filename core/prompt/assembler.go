// Package prompt renders retrieval context and a query into a generation
// request with inline citation markers.
package prompt

import (
	"fmt"
	"strings"

	"github.com/campusrag/campusrag/model"
)

// Assembler renders profile-specific prompts. It performs no provider calls.
type Assembler struct{}

// NewAssembler creates an assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble renders the template selected by the profile style, embedding each
// context chunk under a unique citation marker bound 1:1 to the chunk id. An
// empty context selects the no-context template, which instructs the
// generator to state uncertainty rather than fabricate.
func (a *Assembler) Assemble(query model.Query, context model.ContextSet, profile model.RetrievalProfile) model.PromptRequest {
	if context.Empty() {
		return model.PromptRequest{
			System:  noContextSystem,
			User:    noContextUser + query.Text,
			Markers: map[string]model.Citation{},
		}
	}

	markers := make(map[string]model.Citation, context.Len())
	var body strings.Builder
	body.WriteString(contextHeader)

	for i, chunk := range context.Chunks {
		marker := fmt.Sprintf("[S%d]", i+1)
		markers[marker] = model.Citation{
			Marker:      marker,
			ChunkID:     chunk.ID,
			SourceIndex: chunk.SourceIndex,
			Metadata:    chunk.Metadata,
		}

		body.WriteString(fmt.Sprintf("Document %s", marker))
		if title := chunk.Metadata.String("title"); title != "" {
			body.WriteString(" — " + title)
		}
		body.WriteString("\n")
		if source := chunk.Metadata.String("source"); source != "" {
			body.WriteString("Source: " + source + "\n")
		}
		if url := chunk.Metadata.String("url"); url != "" {
			body.WriteString("Source URL: " + url + "\n")
		}
		if t, ok := chunk.Metadata.Timestamp(); ok {
			body.WriteString("Last Updated: " + t.Format("2006-01-02") + "\n")
		}
		body.WriteString("Content:\n" + chunk.Text + "\n\n")
	}

	body.WriteString(userFooter + query.Text)

	return model.PromptRequest{
		System:  systemFor(profile.Style),
		User:    body.String(),
		Markers: markers,
	}
}
