package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 45, cfg.Server.RequestTimeoutSecs)
		assert.Equal(t, "hugot", cfg.Embedder.Type)
		assert.Equal(t, "OPENAI_API_KEY", cfg.Generator.APIKeyEnv)
		assert.Empty(t, cfg.Indexes)
	})

	t.Run("Parses a full config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
generator:
  model: gpt-4o
  requests_per_second: 5
embedder:
  type: openai
  openai:
    model: text-embedding-3-large
    dimensions: 3072
indexes:
  - name: universities
    type: qdrant
    qdrant:
      url: http://localhost:6333
      collection: universities
  - type: pgvector
    postgres:
      host: localhost
      user: campusrag
      database: campusrag
      table: news_chunks
`), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset fields keep defaults")
		assert.Equal(t, "gpt-4o", cfg.Generator.Model)
		assert.Equal(t, 5.0, cfg.Generator.RequestsPerSecond)

		require.NotNil(t, cfg.Embedder.OpenAI)
		assert.Equal(t, "text-embedding-3-large", cfg.Embedder.OpenAI.Model)
		assert.Equal(t, 3072, cfg.Embedder.OpenAI.Dimensions)
		assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)

		require.Len(t, cfg.Indexes, 2)
		assert.Equal(t, "universities", cfg.Indexes[0].Name)
		assert.Equal(t, "QDRANT_API_KEY", cfg.Indexes[0].Qdrant.APIKeyEnv)
		assert.Equal(t, 15, cfg.Indexes[0].Qdrant.TimeoutSecs)
		assert.Equal(t, "news_chunks", cfg.Indexes[1].Name, "pgvector index name defaults to the table")
		assert.Equal(t, 5432, cfg.Indexes[1].Postgres.Port)
		assert.Equal(t, "POSTGRES_PASSWORD", cfg.Indexes[1].Postgres.PasswordEnv)
	})

	t.Run("Invalid yaml fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}
