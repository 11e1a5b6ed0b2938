package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/herdwise/livestock-agent/llm"
	"github.com/herdwise/livestock-agent/retrieval"
	"github.com/herdwise/livestock-agent/retry"
	"github.com/herdwise/livestock-agent/session"
)

// Generator produces the final user-facing answer. When caveat is set (or
// the evidence is empty) the prompt forces an explicit disclosure of the
// evidentiary gap; animal-health advice must never fabricate certainty.
type Generator struct {
	llm         llm.Client
	attempts    uint64
	temperature float32
	logger      zerolog.Logger
}

func NewGenerator(client llm.Client, attempts uint64, temperature float32, logger zerolog.Logger) *Generator {
	return &Generator{
		llm:         client,
		attempts:    attempts,
		temperature: temperature,
		logger:      logger,
	}
}

func (g *Generator) Generate(ctx context.Context, query string, evidence retrieval.Evidence, verdict Verdict, history []session.Turn, caveat bool) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: answerSystemPrompt},
		{Role: llm.RoleUser, Content: answerUserPrompt(query, evidence, verdict, history, caveat)},
	}

	var answer string
	if err := retry.Do(ctx, g.attempts, func() error {
		var completeErr error
		answer, completeErr = g.llm.Complete(ctx, messages, llm.Options{Temperature: g.temperature})
		return completeErr
	}); err != nil {
		return "", fmt.Errorf("answer completion: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("answer completion returned empty text")
	}

	return answer, nil
}
