package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/herdwise/livestock-agent/config"
	"github.com/herdwise/livestock-agent/llm"
	"github.com/herdwise/livestock-agent/retrieval"
	"github.com/herdwise/livestock-agent/session"
)

// EvidenceRetriever is the orchestrator's view of the retrieval step.
type EvidenceRetriever interface {
	Retrieve(ctx context.Context, query string, topK int, threshold float64) (retrieval.Evidence, error)
}

// Orchestrator drives one conversation turn through the state machine in
// state.go. It holds no per-turn state, so concurrent turns are safe as long
// as the injected collaborators are.
type Orchestrator struct {
	retriever  EvidenceRetriever
	critic     *Critic
	generator  *Generator
	classifier Classifier
	cfg        config.AgentConfig
	logger     zerolog.Logger
}

func NewOrchestrator(retriever EvidenceRetriever, llmClient llm.Client, classifier Classifier, cfg config.AgentConfig, logger zerolog.Logger) *Orchestrator {
	if classifier == nil {
		classifier = NewRuleClassifier()
	}

	return &Orchestrator{
		retriever:  retriever,
		critic:     NewCritic(llmClient, cfg.ExternalAttempts, cfg.CriticTemperature, logger),
		generator:  NewGenerator(llmClient, cfg.ExternalAttempts, cfg.AnswerTemperature, logger),
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// ProcessTurn runs a complete turn and returns the answer plus the turn pair
// to append to session history. Cancellation aborts with an error and no
// append pair; every other path terminates with a user-readable answer.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, userID, query string, history []session.Turn) (TurnResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return TurnResult{}, fmt.Errorf("query cannot be empty")
	}

	ts := &turnState{
		query:       query,
		searchQuery: query,
		history:     trimHistory(history, o.cfg.HistoryWindow),
	}

	logger := o.logger.With().Str("session_id", sessionID).Str("user_id", userID).Logger()

	state := StateStart
	for state != StateEnd {
		if err := ctx.Err(); err != nil {
			return TurnResult{}, fmt.Errorf("turn cancelled: %w", err)
		}

		if err := o.runState(ctx, state, ts, logger); err != nil {
			if ctx.Err() != nil {
				return TurnResult{}, fmt.Errorf("turn cancelled: %w", ctx.Err())
			}
			o.degrade(ts, err, logger)
			break
		}

		ts.final = state
		state = o.next(state, ts)
	}

	logger.Debug().
		Str("route", string(ts.route)).
		Str("final_state", ts.final.String()).
		Int("retries", ts.retries).
		Int("evidence", len(ts.evidence)).
		Msg("turn complete")

	now := time.Now().UTC()
	return TurnResult{
		Answer:     ts.answer,
		Route:      ts.route,
		FinalState: ts.final,
		Evidence:   ts.evidence,
		Append: []session.Turn{
			{Role: session.RoleUser, Content: query, Timestamp: now},
			{Role: session.RoleAssistant, Content: ts.answer, Timestamp: now},
		},
	}, nil
}

func (o *Orchestrator) runState(ctx context.Context, state State, ts *turnState, logger zerolog.Logger) error {
	switch state {
	case StateStart:
		return nil

	case StateRoute:
		ts.route = o.classifier.Classify(ts.query)
		logger.Debug().Str("route", string(ts.route)).Msg("query routed")
		return nil

	case StateDirect:
		ts.answer = directResponse(ts.route, ts.query)
		return nil

	case StateRetrieve:
		if ts.retrieved {
			ts.retries++
			ts.searchQuery = broadenQuery(ts.query, ts.verdict.MissingAspects)
			logger.Debug().Int("retry", ts.retries).Str("search_query", ts.searchQuery).Msg("broadened retrieval retry")
		}
		ts.retrieved = true

		evidence, err := o.retriever.Retrieve(ctx, ts.searchQuery, o.cfg.TopK, o.cfg.SimilarityThreshold)
		if err != nil {
			return err
		}
		ts.evidence = evidence
		return nil

	case StateCritique:
		verdict, err := o.critic.Evaluate(ctx, ts.query, ts.evidence, ts.history)
		if err != nil {
			return err
		}
		ts.verdict = verdict
		logger.Debug().Bool("sufficient", verdict.Sufficient).Strs("missing", verdict.MissingAspects).Msg("critic verdict")
		return nil

	case StateAnswer, StateAnswerWithCaveat:
		caveat := state == StateAnswerWithCaveat
		answer, err := o.generator.Generate(ctx, ts.query, ts.evidence, ts.verdict, ts.history, caveat)
		if err != nil {
			return err
		}
		ts.answer = answer
		return nil

	case StateFallback:
		return nil

	default:
		return fmt.Errorf("unexpected state %s", state)
	}
}

// degrade terminates the turn with a canned response instead of surfacing a
// raw internal error to the user.
func (o *Orchestrator) degrade(ts *turnState, err error, logger zerolog.Logger) {
	var unavailable *retrieval.UnavailableError
	switch {
	case errors.Is(err, retrieval.ErrIndexNotReady):
		logger.Warn().Msg("knowledge base index not built, short-circuiting turn")
		ts.answer = msgKnowledgeBaseUnavailable
	case errors.As(err, &unavailable):
		logger.Error().Err(err).Str("op", unavailable.Op).Msg("retrieval unavailable")
		ts.answer = msgFallback
	default:
		logger.Error().Err(err).Msg("turn failed after exhausted retries")
		ts.answer = msgFallback
	}
	ts.final = StateFallback
}

func trimHistory(history []session.Turn, window int) []session.Turn {
	if window <= 0 || len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}
