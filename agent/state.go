package agent

import (
	"github.com/herdwise/livestock-agent/retrieval"
	"github.com/herdwise/livestock-agent/session"
)

// State enumerates the stations of a conversation turn. Transitions are
// fixed by (*Orchestrator).next, so the legal graph is statically
// enumerable:
//
//	START → ROUTE → {DIRECT, RETRIEVE}
//	RETRIEVE → CRITIQUE
//	CRITIQUE → {ANSWER, RETRIEVE, ANSWER_WITH_CAVEAT}
//	DIRECT | ANSWER | ANSWER_WITH_CAVEAT | FALLBACK → END
//
// FALLBACK is the degraded terminal entered when an external dependency
// stays unreachable after its retry budget.
type State int

const (
	StateStart State = iota
	StateRoute
	StateDirect
	StateRetrieve
	StateCritique
	StateAnswer
	StateAnswerWithCaveat
	StateFallback
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateRoute:
		return "ROUTE"
	case StateDirect:
		return "DIRECT"
	case StateRetrieve:
		return "RETRIEVE"
	case StateCritique:
		return "CRITIQUE"
	case StateAnswer:
		return "ANSWER"
	case StateAnswerWithCaveat:
		return "ANSWER_WITH_CAVEAT"
	case StateFallback:
		return "FALLBACK"
	case StateEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// turnState is the transient per-turn scratchpad. It never outlives
// ProcessTurn and is never shared across turns or sessions.
type turnState struct {
	query       string
	searchQuery string
	history     []session.Turn

	route    Route
	evidence retrieval.Evidence
	verdict  Verdict

	// retries counts CRITIQUE→RETRIEVE re-entries; it only grows and is
	// bounded by AgentConfig.MaxRetries.
	retries   int
	retrieved bool

	answer string
	final  State
}

// next returns the successor of current given the data gathered so far. The
// RETRIEVE↔CRITIQUE cycle is the only loop and is cut off by the retry
// counter, so every walk of the table reaches StateEnd.
func (o *Orchestrator) next(current State, ts *turnState) State {
	switch current {
	case StateStart:
		return StateRoute
	case StateRoute:
		if ts.route == RouteInformational {
			return StateRetrieve
		}
		return StateDirect
	case StateRetrieve:
		return StateCritique
	case StateCritique:
		if ts.verdict.Sufficient {
			return StateAnswer
		}
		if ts.retries < o.cfg.MaxRetries {
			return StateRetrieve
		}
		return StateAnswerWithCaveat
	case StateDirect, StateAnswer, StateAnswerWithCaveat, StateFallback:
		return StateEnd
	default:
		return StateEnd
	}
}
