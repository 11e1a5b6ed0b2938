package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/herdwise/livestock-agent/llm"
	"github.com/herdwise/livestock-agent/retrieval"
	"github.com/herdwise/livestock-agent/retry"
	"github.com/herdwise/livestock-agent/session"
)

const unparseableVerdictAspect = "unparseable critic response"

// Critic judges whether retrieved evidence is adequate before an answer is
// generated. It runs at low temperature so identical inputs produce
// consistent verdicts.
type Critic struct {
	llm         llm.Client
	attempts    uint64
	temperature float32
	logger      zerolog.Logger
}

func NewCritic(client llm.Client, attempts uint64, temperature float32, logger zerolog.Logger) *Critic {
	return &Critic{
		llm:         client,
		attempts:    attempts,
		temperature: temperature,
		logger:      logger,
	}
}

// Evaluate returns an error only when the model stays unreachable after the
// retry budget. Malformed model output never surfaces as an error: it
// degrades to an insufficient verdict, failing toward more evidence rather
// than silently assuming adequacy.
func (c *Critic) Evaluate(ctx context.Context, query string, evidence retrieval.Evidence, history []session.Turn) (Verdict, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: criticSystemPrompt},
		{Role: llm.RoleUser, Content: criticUserPrompt(query, evidence, history)},
	}

	var raw string
	if err := retry.Do(ctx, c.attempts, func() error {
		var completeErr error
		raw, completeErr = c.llm.Complete(ctx, messages, llm.Options{Temperature: c.temperature})
		return completeErr
	}); err != nil {
		return Verdict{}, fmt.Errorf("critic completion: %w", err)
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("raw", truncate(raw, 200)).Msg("critic returned unparseable verdict")
		return Verdict{
			Sufficient:     false,
			Reasoning:      "critic response could not be parsed",
			MissingAspects: []string{unparseableVerdictAspect},
		}, nil
	}

	return verdict, nil
}

// parseVerdict extracts the JSON object from the model output, tolerating
// markdown code fences and prose around the object.
func parseVerdict(raw string) (Verdict, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return Verdict{}, fmt.Errorf("no JSON object in critic response")
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &verdict); err != nil {
		return Verdict{}, fmt.Errorf("decode critic verdict: %w", err)
	}

	return verdict, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
