// Package pipeline composes routing, retrieval, prompt assembly, generation
// and formatting into the single answer operation.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campusrag/campusrag/core/format"
	"github.com/campusrag/campusrag/core/prompt"
	"github.com/campusrag/campusrag/core/retrieval"
	"github.com/campusrag/campusrag/core/router"
	"github.com/campusrag/campusrag/model"
	"github.com/campusrag/campusrag/provider"
)

// Pipeline stage names used to tag errors.
const (
	StageRouter    = "router"
	StageRetriever = "retriever"
	StageAssembler = "assembler"
	StageGenerator = "generator"
	StageFormatter = "formatter"
)

// DefaultBudget is the overall wall-clock budget per request.
const DefaultBudget = 45 * time.Second

// Pipeline answers one query per invocation. Stateless across requests; the
// provider handles it holds are process-wide singletons.
type Pipeline struct {
	classifier router.Classifier
	retriever  *retrieval.Retriever
	assembler  *prompt.Assembler
	generator  provider.Generator
	formatter  *format.Formatter
	budget     time.Duration
	log        *slog.Logger
}

// New creates a pipeline. A budget of 0 selects DefaultBudget.
func New(
	classifier router.Classifier,
	retriever *retrieval.Retriever,
	assembler *prompt.Assembler,
	generator provider.Generator,
	formatter *format.Formatter,
	budget time.Duration,
	logger *slog.Logger,
) *Pipeline {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Pipeline{
		classifier: classifier,
		retriever:  retriever,
		assembler:  assembler,
		generator:  generator,
		formatter:  formatter,
		budget:     budget,
		log:        logger,
	}
}

// Answer runs the full pipeline for one query under a single wall-clock
// budget. On budget exhaustion outstanding provider calls are cancelled
// through the context and a generator-stage timeout error is returned.
func (p *Pipeline) Answer(ctx context.Context, query model.Query) (model.AttributedResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()

	requestID := uuid.NewString()[:8]
	log := p.log.With(slog.String("request_id", requestID))
	started := time.Now()

	profile, err := p.classifier.Classify(ctx, query)
	if err != nil {
		return model.AttributedResponse{}, &model.PipelineError{Stage: StageRouter, Err: err}
	}
	log.Info("Classified query",
		slog.String("style", string(profile.Style)),
		slog.Int("top_k", profile.TopK),
	)

	contextSet, err := p.retriever.Retrieve(ctx, query, profile)
	if err != nil {
		return model.AttributedResponse{}, &model.PipelineError{Stage: StageRetriever, Err: err}
	}
	log.Info("Retrieved context",
		slog.Int("chunks", contextSet.Len()),
		slog.Int("failed_lookups", contextSet.FailedLookups),
	)

	request := p.assembler.Assemble(query, contextSet, profile)

	rawText, err := p.generator.Complete(ctx, request.System, request.User)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = context.DeadlineExceeded
		}
		return model.AttributedResponse{}, &model.PipelineError{
			Stage: StageGenerator,
			Err:   &model.GenerationError{Err: err},
		}
	}

	response := p.formatter.Format(rawText, request.Markers, profile)
	log.Info("Answered query",
		slog.Int("citations", len(response.Citations)),
		slog.Duration("elapsed", time.Since(started)),
	)

	return response, nil
}
