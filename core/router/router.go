// Package router classifies incoming queries into retrieval profiles.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/campusrag/campusrag/model"
	"github.com/campusrag/campusrag/provider"
)

// Classifier selects a retrieval profile for a query. Implementations must
// treat classification failure as a soft condition: for any well-formed query
// they return a profile, never an error.
type Classifier interface {
	Classify(ctx context.Context, query model.Query) (model.RetrievalProfile, error)
}

const classifierInstruction = `You are a query router for a college admissions assistant.
Classify the user query into EXACTLY ONE category. Analyze carefully and choose
the most specific matching category.

Categories (in order of precedence):
1. CONCISE
   - The query seeks a single fact, statistic or short answer
   - Examples: acceptance rates, deadlines, average test scores, tuition numbers
2. NARRATIVE
   - The query seeks recent opinion, news or developments
   - Keywords: news, latest, recent, this year, announced, trend
3. COMPREHENSIVE (default)
   - The query seeks comparative or strategic reasoning across sources
   - Use this when the query does not clearly match the categories above

Respond with a JSON object and nothing else:
{
  "classification": "<UPPERCASE_CATEGORY>"
}`

// LLMClassifier issues one generation call with a closed-set classification
// prompt and parses the categorical answer.
type LLMClassifier struct {
	generator provider.Generator
	indexes   []string
	log       *slog.Logger
}

// NewLLMClassifier creates a classifier backed by the generation provider.
func NewLLMClassifier(generator provider.Generator, indexes []string, logger *slog.Logger) *LLMClassifier {
	return &LLMClassifier{generator: generator, indexes: indexes, log: logger}
}

// Classify returns the profile for the model's category. Any provider or
// parse failure degrades to the default profile instead of failing the
// request.
func (c *LLMClassifier) Classify(ctx context.Context, query model.Query) (model.RetrievalProfile, error) {
	if err := query.Validate(); err != nil {
		return model.RetrievalProfile{}, err
	}

	answer, err := c.generator.Complete(ctx, classifierInstruction, "Classify the following query:\n"+query.Text)
	if err != nil {
		c.log.Warn("Classification call failed, using default profile", slog.String("error", err.Error()))
		return model.DefaultProfile(c.indexes), nil
	}

	style, ok := parseClassification(answer)
	if !ok {
		c.log.Warn("Unparseable classification, using default profile", slog.String("answer", answer))
		return model.DefaultProfile(c.indexes), nil
	}

	return model.ProfileFor(style, c.indexes), nil
}

// parseClassification extracts the category from the model answer. Tolerates
// surrounding prose and code fences; normalizes to uppercase.
func parseClassification(answer string) (model.ResponseStyle, bool) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end <= start {
		return "", false
	}

	var parsed struct {
		Classification string `json:"classification"`
	}
	if err := json.Unmarshal([]byte(answer[start:end+1]), &parsed); err != nil {
		return "", false
	}

	switch strings.ToUpper(strings.TrimSpace(parsed.Classification)) {
	case "CONCISE":
		return model.StyleConcise, true
	case "COMPREHENSIVE":
		return model.StyleComprehensive, true
	case "NARRATIVE":
		return model.StyleNarrative, true
	}
	return "", false
}

// RuleClassifier is a deterministic keyword classifier over the same closed
// category set. Used in tests and when no generation provider is configured.
type RuleClassifier struct {
	indexes []string
}

// NewRuleClassifier creates a deterministic classifier.
func NewRuleClassifier(indexes []string) *RuleClassifier {
	return &RuleClassifier{indexes: indexes}
}

var narrativeSignals = []string{
	"news", "latest", "recent", "recently", "this year", "today",
	"announced", "opinion", "trend", "happening",
}

var conciseSignals = []string{
	"acceptance rate", "deadline", "average", "how many", "how much",
	"tuition", "sat score", "act score", "gpa", "graduation rate",
}

var concisePrefixes = []string{
	"what is", "what's", "when is", "when does", "who is", "where is",
}

// Classify applies the precedence narrative > concise > comprehensive.
func (c *RuleClassifier) Classify(ctx context.Context, query model.Query) (model.RetrievalProfile, error) {
	if err := query.Validate(); err != nil {
		return model.RetrievalProfile{}, err
	}

	text := strings.ToLower(query.Text)
	for _, signal := range narrativeSignals {
		if strings.Contains(text, signal) {
			return model.ProfileFor(model.StyleNarrative, c.indexes), nil
		}
	}
	for _, signal := range conciseSignals {
		if strings.Contains(text, signal) {
			return model.ProfileFor(model.StyleConcise, c.indexes), nil
		}
	}
	for _, prefix := range concisePrefixes {
		if strings.HasPrefix(text, prefix) && len(strings.Fields(text)) <= 12 {
			return model.ProfileFor(model.StyleConcise, c.indexes), nil
		}
	}
	return model.ProfileFor(model.StyleComprehensive, c.indexes), nil
}
