// Package campusrag routes a question to a retrieval profile, gathers
// supporting context from vector indexes and generates a source-attributed
// answer.
package campusrag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/campusrag/campusrag/config"
	"github.com/campusrag/campusrag/core/format"
	"github.com/campusrag/campusrag/core/pipeline"
	"github.com/campusrag/campusrag/core/prompt"
	"github.com/campusrag/campusrag/core/retrieval"
	"github.com/campusrag/campusrag/core/router"
	"github.com/campusrag/campusrag/helper"
	"github.com/campusrag/campusrag/model"
	"github.com/campusrag/campusrag/provider"
	hugotprovider "github.com/campusrag/campusrag/provider/hugot"
	openaiprovider "github.com/campusrag/campusrag/provider/openai"
	"github.com/campusrag/campusrag/provider/pgvector"
	"github.com/campusrag/campusrag/provider/qdrant"
)

// Advisor owns the process-wide provider handles and the answer pipeline.
type Advisor struct {
	Embedder  provider.Embedder
	Generator provider.Generator
	Indexes   []provider.VectorIndex
	Pipeline  *pipeline.Pipeline
	// Logging
	log     *slog.Logger
	closers []io.Closer
}

// New constructs an Advisor from config, building all providers in order.
func New(cfg *config.AppConfig) (*Advisor, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	generator, err := newGenerator(cfg, logger)
	if err != nil {
		return nil, helper.NewError("create generator", err)
	}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return nil, helper.NewError("create embedder", err)
	}

	advisor := &Advisor{
		Embedder:  embedder,
		Generator: generator,
		log:       logger,
	}

	for _, indexCfg := range cfg.Indexes {
		index, err := advisor.newIndex(indexCfg, embedder.Dimension(), logger)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("create index %s", indexCfg.Name), err)
		}
		advisor.Indexes = append(advisor.Indexes, index)
	}
	if len(advisor.Indexes) == 0 {
		return nil, helper.NewError("create indexes", fmt.Errorf("at least one index must be configured"))
	}

	names := make([]string, 0, len(advisor.Indexes))
	for _, index := range advisor.Indexes {
		names = append(names, index.Name())
	}

	var classifier router.Classifier
	if generator != nil {
		classifier = router.NewLLMClassifier(generator, names, logger)
	} else {
		classifier = router.NewRuleClassifier(names)
	}

	budget := time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second
	advisor.Pipeline = pipeline.New(
		classifier,
		retrieval.NewRetriever(embedder, advisor.Indexes, logger),
		prompt.NewAssembler(),
		generator,
		format.NewFormatter(logger),
		budget,
		logger,
	)

	logger.Info("Initialized advisor", slog.Int("indexes", len(advisor.Indexes)))

	return advisor, nil
}

// NewWithProviders wires an Advisor from pre-built providers. Used by tests
// and embedders of the library.
func NewWithProviders(
	embedder provider.Embedder,
	indexes []provider.VectorIndex,
	generator provider.Generator,
	classifier router.Classifier,
	budget time.Duration,
	logger *slog.Logger,
) *Advisor {
	if logger == nil {
		logger = slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{}))
	}
	names := make([]string, 0, len(indexes))
	for _, index := range indexes {
		names = append(names, index.Name())
	}
	if classifier == nil {
		classifier = router.NewRuleClassifier(names)
	}
	return &Advisor{
		Embedder:  embedder,
		Generator: generator,
		Indexes:   indexes,
		log:       logger,
		Pipeline: pipeline.New(
			classifier,
			retrieval.NewRetriever(embedder, indexes, logger),
			prompt.NewAssembler(),
			generator,
			format.NewFormatter(logger),
			budget,
			logger,
		),
	}
}

// Answer runs the full pipeline for one query text.
func (a *Advisor) Answer(ctx context.Context, text string) (model.AttributedResponse, error) {
	query, err := model.NewQuery(text)
	if err != nil {
		return model.AttributedResponse{}, err
	}
	return a.Pipeline.Answer(ctx, query)
}

// Logger exposes the advisor's logger for the server shell.
func (a *Advisor) Logger() *slog.Logger {
	return a.log
}

// Close releases database handles.
func (a *Advisor) Close() error {
	var firstErr error
	for _, closer := range a.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func newGenerator(cfg *config.AppConfig, logger *slog.Logger) (provider.Generator, error) {
	apiKey := os.Getenv(cfg.Generator.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.Generator.APIKeyEnv)
	}
	return openaiprovider.NewClient(openaiprovider.Config{
		BaseURL:           cfg.Generator.BaseURL,
		APIKey:            apiKey,
		Model:             cfg.Generator.Model,
		Timeout:           time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
		MaxRetries:        cfg.Generator.MaxRetries,
		RequestsPerSecond: cfg.Generator.RequestsPerSecond,
	}, logger)
}

func newEmbedder(cfg *config.AppConfig, logger *slog.Logger) (provider.Embedder, error) {
	switch cfg.Embedder.Type {
	case "openai":
		apiKey := os.Getenv(cfg.Embedder.OpenAI.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("missing API key in env %s", cfg.Embedder.OpenAI.APIKeyEnv)
		}
		return openaiprovider.NewClient(openaiprovider.Config{
			BaseURL:        cfg.Embedder.OpenAI.BaseURL,
			APIKey:         apiKey,
			EmbeddingModel: cfg.Embedder.OpenAI.Model,
			Dimensions:     cfg.Embedder.OpenAI.Dimensions,
			Timeout:        time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		}, logger)
	case "hugot":
		return hugotprovider.NewEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}
}

func (a *Advisor) newIndex(indexCfg config.IndexConfig, embeddingDim int, logger *slog.Logger) (provider.VectorIndex, error) {
	switch indexCfg.Type {
	case "qdrant":
		if indexCfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant index %s has no qdrant section", indexCfg.Name)
		}
		index := qdrant.NewIndex(qdrant.Config{
			Name:       indexCfg.Name,
			URL:        indexCfg.Qdrant.URL,
			APIKey:     os.Getenv(indexCfg.Qdrant.APIKeyEnv),
			Collection: indexCfg.Qdrant.Collection,
			Timeout:    time.Duration(indexCfg.Qdrant.TimeoutSecs) * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := index.EnsureCollection(ctx, embeddingDim); err != nil {
			return nil, err
		}
		return index, nil
	case "pgvector":
		if indexCfg.Postgres == nil {
			return nil, fmt.Errorf("pgvector index %s has no postgres section", indexCfg.Name)
		}
		db, err := helper.NewDatabase(indexCfg.Name, &helper.DatabaseConfiguration{
			Host:     indexCfg.Postgres.Host,
			Port:     indexCfg.Postgres.Port,
			User:     indexCfg.Postgres.User,
			Password: os.Getenv(indexCfg.Postgres.PasswordEnv),
			Name:     indexCfg.Postgres.Database,
			SSLMode:  indexCfg.Postgres.SSLMode,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Instance)
		return pgvector.NewIndex(indexCfg.Name, indexCfg.Postgres.Table, db, embeddingDim)
	default:
		return nil, fmt.Errorf("unknown index type %q", indexCfg.Type)
	}
}
