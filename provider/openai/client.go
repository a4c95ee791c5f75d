// Package openai implements the Generator and Embedder interfaces on any
// OpenAI-compatible completion/embedding endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/campusrag/campusrag/helper"
)

// Config configures the client. APIKey is required; everything else has a
// usable default.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	EmbeddingModel    string
	Dimensions        int
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
}

// Client calls an OpenAI-compatible API for chat completions and embeddings.
// Transient failures (rate limiting, 5xx) are retried with exponential
// backoff; auth and other client errors are terminal and never retried.
type Client struct {
	api        *openai.Client
	model      string
	embModel   string
	dimensions int
	timeout    time.Duration
	maxRetries int
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewClient creates a new client from config.
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, helper.NewError("create openai client", errors.New("api key is empty"))
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = "text-embedding-3-small"
	}
	if config.Dimensions == 0 {
		config.Dimensions = 1536
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = 2
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Client{
		api:        openai.NewClientWithConfig(clientConfig),
		model:      config.Model,
		embModel:   config.EmbeddingModel,
		dimensions: config.Dimensions,
		timeout:    config.Timeout,
		maxRetries: config.MaxRetries,
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		log:        logger,
	}, nil
}

// Complete sends one chat completion request and returns the generated text.
func (c *Client) Complete(ctx context.Context, system string, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var text string
	operation := func() error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return classifyError(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("completion returned no choices"))
		}
		text = resp.Choices[0].Message.Content
		return nil
	}

	if err := backoff.Retry(operation, c.newBackOff(ctx)); err != nil {
		return "", helper.NewError("create chat completion", err)
	}
	return text, nil
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32
	operation := func() error {
		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(c.embModel),
		})
		if err != nil {
			return classifyError(err)
		}
		if len(resp.Data) == 0 {
			return backoff.Permanent(errors.New("embedding response is empty"))
		}
		embedding = resp.Data[0].Embedding
		return nil
	}

	if err := backoff.Retry(operation, c.newBackOff(ctx)); err != nil {
		return nil, helper.NewError("create embedding", err)
	}
	return embedding, nil
}

// Dimension returns the configured embedding dimensionality.
func (c *Client) Dimension() int {
	return c.dimensions
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)
}

// classifyError marks terminal API failures as permanent so backoff stops
// retrying them. Rate limits and server errors stay retryable.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
			return err
		}
		return backoff.Permanent(fmt.Errorf("api error (status %d): %w", apiErr.HTTPStatusCode, err))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500 {
			return err
		}
		return backoff.Permanent(err)
	}
	// Network-level errors are treated as transient.
	return err
}
