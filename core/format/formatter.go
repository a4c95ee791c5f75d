// Package format post-processes generated text into an attributed response.
package format

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/campusrag/campusrag/model"
)

// markerPattern matches anything shaped like a citation marker, valid or not.
var markerPattern = regexp.MustCompile(`\[S\d+\]`)

const (
	defaultMaxBullets  = 5
	defaultMinSections = 2
	headlineMaxLen     = 100
)

// Formatter validates citation markers and applies per-style structural
// constraints. Style enforcement is advisory: violations are logged and the
// text passes through, never rejected.
type Formatter struct {
	maxBullets  int
	minSections int
	log         *slog.Logger
}

// NewFormatter creates a formatter with default constraints.
func NewFormatter(logger *slog.Logger) *Formatter {
	return &Formatter{
		maxBullets:  defaultMaxBullets,
		minSections: defaultMinSections,
		log:         logger,
	}
}

// Format scans rawText for citation markers, strips any marker that does not
// resolve in the marker map, applies the profile's style constraints and
// returns the final response. The returned body never contains a marker
// absent from the citations mapping.
func (f *Formatter) Format(rawText string, markers map[string]model.Citation, profile model.RetrievalProfile) model.AttributedResponse {
	stripped := 0
	body := markerPattern.ReplaceAllStringFunc(rawText, func(marker string) string {
		if _, ok := markers[marker]; ok {
			return marker
		}
		stripped++
		return ""
	})
	if stripped > 0 {
		f.log.Warn("Stripped citation markers not present in the context",
			slog.Int("count", stripped),
			slog.String("style", string(profile.Style)),
		)
	}

	switch profile.Style {
	case model.StyleConcise:
		body = f.capBullets(body)
	case model.StyleComprehensive:
		f.checkSections(body)
	case model.StyleNarrative:
		body = ensureHeadline(body)
	}
	body = strings.TrimSpace(body)

	citations := make(map[string]model.Citation)
	for _, marker := range markerPattern.FindAllString(body, -1) {
		citations[marker] = markers[marker]
	}

	return model.AttributedResponse{Body: body, Citations: citations}
}

// capBullets truncates a bullet list to the configured maximum. Text without
// bullet lines passes through unmodified.
func (f *Formatter) capBullets(body string) string {
	lines := strings.Split(body, "\n")
	bullets := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "•") {
			bullets++
			if bullets > f.maxBullets {
				f.log.Warn("Concise answer exceeded bullet cap, truncating",
					slog.Int("cap", f.maxBullets),
				)
				return strings.Join(lines[:i], "\n")
			}
		}
	}
	return body
}

// checkSections logs when a comprehensive answer has fewer titled sections
// than expected. Advisory only.
func (f *Formatter) checkSections(body string) {
	sections := 0
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") ||
			(strings.HasPrefix(trimmed, "**") && strings.HasSuffix(trimmed, "**") && len(trimmed) > 4) {
			sections++
		}
	}
	if sections < f.minSections {
		f.log.Warn("Comprehensive answer below expected section count",
			slog.Int("sections", sections),
			slog.Int("expected", f.minSections),
		)
	}
}

// ensureHeadline makes the first non-empty line headline-like. When the text
// opens with a long or sentence-final line, a headline derived from it is
// prepended.
func ensureHeadline(body string) string {
	trimmed := strings.TrimLeft(body, "\n \t")
	firstLine := trimmed
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		firstLine = trimmed[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)
	if firstLine != "" && len(firstLine) <= headlineMaxLen && !strings.HasSuffix(firstLine, ".") {
		return trimmed
	}

	headline := markerPattern.ReplaceAllString(firstLine, "")
	if idx := strings.IndexAny(headline, ".!?"); idx > 0 {
		headline = headline[:idx]
	}
	headline = strings.TrimSpace(headline)
	if len(headline) > headlineMaxLen {
		if cut := strings.LastIndexByte(headline[:headlineMaxLen], ' '); cut > 0 {
			headline = headline[:cut]
		} else {
			headline = headline[:headlineMaxLen]
		}
	}
	if headline == "" {
		return trimmed
	}
	return headline + "\n\n" + trimmed
}
