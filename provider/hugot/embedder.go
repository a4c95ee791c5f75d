// Package hugot provides a local, in-process embedder backed by an ONNX
// sentence transformer model. No external service is involved.
package hugot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

const (
	defaultModelName = "sentence-transformers/all-MiniLM-L6-v2"
	defaultModelDir  = "./models"
	// all-MiniLM-L6-v2 produces 384-dimensional embeddings.
	defaultDimension = 384
)

// Embedder runs a sentence transformer pipeline locally.
type Embedder struct {
	run       func(text string) ([]float32, error)
	dimension int
}

// NewEmbedder downloads the default model if needed and initializes the
// embedding pipeline with the Go backend.
func NewEmbedder() (*Embedder, error) {
	modelPath, err := prepareModel(defaultModelName, defaultModelDir)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	run := func(text string) ([]float32, error) {
		result, err := sentencePipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}
		return result.Embeddings[0], nil
	}

	return &Embedder{run: run, dimension: defaultDimension}, nil
}

// Embed generates an embedding for the text. The pipeline itself is not
// cancellable mid-run; the context is checked before starting.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.run(text)
}

// Dimension returns the embedding dimensionality.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// prepareModel downloads the model if it doesn't exist and returns the model path
func prepareModel(modelName string, modelDir string) (string, error) {
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := os.MkdirAll(modelDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create model directory: %w", err)
		}
		downloadOptions := hugot.NewDownloadOptions()
		downloadOptions.OnnxFilePath = "onnx/model.onnx"
		downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
		if err != nil {
			return "", fmt.Errorf("failed to download model: %w", err)
		}
		modelPath = downloadedPath
	}

	return modelPath, nil
}
