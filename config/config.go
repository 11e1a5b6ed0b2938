// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config is the full configuration surface of the service. Values are read
// once in main and passed explicitly into constructors so components never
// reach into ambient process state.
type Config struct {
	Env      string `default:"development"`
	HTTPAddr string `split_words:"true" default:":8080"`
	DataDir  string `split_words:"true" default:"./kb_data"`

	PostgresDSN string `split_words:"true" default:"postgres://localhost:5432/livestock?sslmode=disable"`

	// RedisURL selects the Redis-backed session store. When empty the
	// server falls back to the in-process store.
	RedisURL   string `split_words:"true"`
	SessionTTL int    `split_words:"true" default:"86400"`

	OllamaHost    string `split_words:"true" default:"http://localhost:11434"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	LLM        LLMConfig
	Embeddings EmbeddingsConfig
	Agent      AgentConfig
	Ingest     IngestConfig
}

type LLMConfig struct {
	Provider string `default:"openai"`
	Model    string `default:"gpt-4o-mini"`
}

type EmbeddingsConfig struct {
	Provider  string `default:"openai"`
	Model     string `default:"text-embedding-ada-002"`
	Dimension int    `default:"1536"`
}

// AgentConfig carries the tunables of the decision pipeline. The threshold
// and top-k defaults were inherited from the corpus this service was tuned
// against; treat them as inputs, not algorithmic constants.
type AgentConfig struct {
	TopK                int     `split_words:"true" default:"5"`
	SimilarityThreshold float64 `split_words:"true" default:"0.4"`
	MaxRetries          int     `split_words:"true" default:"2"`
	HistoryWindow       int     `split_words:"true" default:"6"`

	// Bounded attempts for each external call (embedding, search, LLM).
	ExternalAttempts uint64 `split_words:"true" default:"3"`

	CriticTemperature float32 `split_words:"true" default:"0.0"`
	AnswerTemperature float32 `split_words:"true" default:"0.2"`
}

type IngestConfig struct {
	ChunkSize    int `split_words:"true" default:"800"`
	ChunkOverlap int `split_words:"true" default:"100"`
	BatchSize    int `split_words:"true" default:"16"`
}

// Load reads configuration from LIVESTOCK_-prefixed environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("livestock", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}
