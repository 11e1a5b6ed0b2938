// Package embeddings turns text into fixed-dimension vectors via an external
// provider.
package embeddings

import (
	"context"
	"fmt"

	"github.com/herdwise/livestock-agent/config"
)

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type embedderOptions struct {
	provider  string
	model     string
	dimension int

	ollamaHost    string
	openAIAPIKey  string
	openAIBaseURL string
}

func NewEmbedder(cfg config.Config) (Embedder, error) {
	opts := embedderOptions{
		provider:      cfg.Embeddings.Provider,
		model:         cfg.Embeddings.Model,
		dimension:     cfg.Embeddings.Dimension,
		ollamaHost:    cfg.OllamaHost,
		openAIAPIKey:  cfg.OpenAIAPIKey,
		openAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch opts.provider {
	case config.ProviderOllama:
		return newOllamaEmbedder(opts), nil
	case config.ProviderOpenAI:
		if opts.openAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return newOpenAIEmbedder(opts), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.provider)
	}
}
