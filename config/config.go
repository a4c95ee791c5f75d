// Package config loads the service configuration from a yaml file with
// sensible defaults. Credentials are taken from the environment, never from
// the file.
package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs"`
}

// GeneratorConfig configures the OpenAI-compatible generation provider.
type GeneratorConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// OpenAIEmbedderConfig configures the remote embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects the embedder implementation: "openai" or "hugot".
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantIndexConfig contains connection details for a Qdrant-backed index.
type QdrantIndexConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PostgresIndexConfig contains connection details for a pgvector-backed index.
type PostgresIndexConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	PasswordEnv string `yaml:"password_env"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"ssl_mode"`
	Table       string `yaml:"table"`
}

// IndexConfig configures one logical source index.
type IndexConfig struct {
	Name     string               `yaml:"name"`
	Type     string               `yaml:"type"`
	Qdrant   *QdrantIndexConfig   `yaml:"qdrant,omitempty"`
	Postgres *PostgresIndexConfig `yaml:"postgres,omitempty"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Generator GeneratorConfig `yaml:"generator"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Indexes   []IndexConfig   `yaml:"indexes"`
}

// Load reads a config from path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 45
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4o-mini"
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 30
	}
	if cfg.Generator.MaxRetries == 0 {
		cfg.Generator.MaxRetries = 2
	}
	if cfg.Generator.RequestsPerSecond == 0 {
		cfg.Generator.RequestsPerSecond = 2
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hugot"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.Dimensions == 0 {
			cfg.Embedder.OpenAI.Dimensions = 1536
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	for i := range cfg.Indexes {
		index := &cfg.Indexes[i]
		if index.Type == "qdrant" && index.Qdrant != nil {
			if index.Qdrant.APIKeyEnv == "" {
				index.Qdrant.APIKeyEnv = "QDRANT_API_KEY"
			}
			if index.Qdrant.TimeoutSecs == 0 {
				index.Qdrant.TimeoutSecs = 15
			}
			if index.Name == "" {
				index.Name = index.Qdrant.Collection
			}
		}
		if index.Type == "pgvector" && index.Postgres != nil {
			if index.Postgres.Port == 0 {
				index.Postgres.Port = 5432
			}
			if index.Postgres.PasswordEnv == "" {
				index.Postgres.PasswordEnv = "POSTGRES_PASSWORD"
			}
			if index.Postgres.Table == "" {
				index.Postgres.Table = "chunks"
			}
			if index.Name == "" {
				index.Name = index.Postgres.Table
			}
		}
	}
}
