// Package agent implements the decision pipeline that answers livestock-care
// questions: route the query, retrieve evidence, judge its adequacy, and
// answer with citations or an explicit caveat.
package agent

import (
	"github.com/herdwise/livestock-agent/retrieval"
	"github.com/herdwise/livestock-agent/session"
)

// Route is the classification of an incoming query.
type Route string

const (
	// RouteGreeting answers with the standard greeting, no retrieval.
	RouteGreeting Route = "greeting"
	// RouteCourtesy covers thanks/goodbye style closers, no retrieval.
	RouteCourtesy Route = "courtesy"
	// RouteInformational runs the full retrieve-critique-answer pipeline.
	RouteInformational Route = "informational"
)

// Verdict is the critic's judgment of one retrieval attempt.
type Verdict struct {
	Sufficient     bool     `json:"sufficient"`
	Reasoning      string   `json:"reasoning"`
	MissingAspects []string `json:"missing_aspects"`
}

// TurnResult is what a completed turn hands back to the caller. Append holds
// the user/assistant pair the session store should persist; it is only
// produced for fully completed turns.
type TurnResult struct {
	Answer     string
	Route      Route
	FinalState State
	Evidence   retrieval.Evidence
	Append     []session.Turn
}
