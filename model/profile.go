package model

// ResponseStyle selects the pipeline variant a query is answered with.
type ResponseStyle string

const (
	// StyleConcise targets short factual answers (single statistic, deadline, yes/no).
	StyleConcise ResponseStyle = "concise"
	// StyleComprehensive targets structured analytical answers across sources.
	StyleComprehensive ResponseStyle = "comprehensive"
	// StyleNarrative targets journalistic synthesis of recent material.
	StyleNarrative ResponseStyle = "narrative"
)

// Valid reports whether s is one of the closed style set.
func (s ResponseStyle) Valid() bool {
	switch s {
	case StyleConcise, StyleComprehensive, StyleNarrative:
		return true
	}
	return false
}

// RetrievalProfile bundles the retrieval and formatting parameters selected
// for a query. Immutable once selected by the router.
type RetrievalProfile struct {
	TopK           int                 `json:"top_k"`
	Indexes        []string            `json:"indexes"`
	MetadataFilter map[string][]string `json:"metadata_filter,omitempty"`
	RecencyWeight  float64             `json:"recency_weight"`
	Style          ResponseStyle       `json:"style"`
}

// ProfileFor returns the default retrieval parameters for a style, querying
// the given logical indexes. Unknown styles get the comprehensive defaults.
func ProfileFor(style ResponseStyle, indexes []string) RetrievalProfile {
	switch style {
	case StyleConcise:
		return RetrievalProfile{
			TopK:          3,
			Indexes:       indexes,
			RecencyWeight: 0,
			Style:         StyleConcise,
		}
	case StyleNarrative:
		return RetrievalProfile{
			TopK:          6,
			Indexes:       indexes,
			RecencyWeight: 0.6,
			Style:         StyleNarrative,
		}
	default:
		return RetrievalProfile{
			TopK:          8,
			Indexes:       indexes,
			RecencyWeight: 0.15,
			Style:         StyleComprehensive,
		}
	}
}

// DefaultProfile is the fallback used when classification fails or is
// ambiguous. Classification failure must never abort a request.
func DefaultProfile(indexes []string) RetrievalProfile {
	return ProfileFor(StyleComprehensive, indexes)
}
