// Package llm abstracts chat-completion providers behind a narrow client
// interface so the agent pipeline can be driven by deterministic fakes in
// tests.
package llm

import (
	"context"
	"fmt"

	"github.com/herdwise/livestock-agent/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Options tunes a single completion call. Temperature matters here: the
// critic runs near-deterministic while the answer generator is allowed some
// variation.
type Options struct {
	Temperature float32
	MaxTokens   int
}

type Client interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

type clientOptions struct {
	provider string
	model    string

	ollamaHost    string
	openAIAPIKey  string
	openAIBaseURL string
}

func NewClient(cfg config.Config) (Client, error) {
	opts := clientOptions{
		provider:      cfg.LLM.Provider,
		model:         cfg.LLM.Model,
		ollamaHost:    cfg.OllamaHost,
		openAIAPIKey:  cfg.OpenAIAPIKey,
		openAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch opts.provider {
	case config.ProviderOllama:
		return newOllamaClient(opts), nil
	case config.ProviderOpenAI:
		if opts.openAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return newOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.provider)
	}
}
