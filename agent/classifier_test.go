package agent_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/herdwise/livestock-agent/agent"
)

func TestRuleClassifierRoutes(t *testing.T) {
	classifier := agent.NewRuleClassifier()

	cases := []struct {
		query string
		want  agent.Route
	}{
		{"hello", agent.RouteGreeting},
		{"Hi there", agent.RouteGreeting},
		{"Good morning!", agent.RouteGreeting},
		{"assalamualaikum", agent.RouteGreeting},
		{"thanks a lot", agent.RouteCourtesy},
		{"Thank you", agent.RouteCourtesy},
		{"bye", agent.RouteCourtesy},
		{"okay", agent.RouteCourtesy},
		{"How to treat cattle fever?", agent.RouteInformational},
		{"my goat is not eating", agent.RouteInformational},
		// Ambiguous input defaults to retrieval; answering animal-health
		// questions without evidence is the riskier mistake.
		{"what", agent.RouteInformational},
		{"", agent.RouteInformational},
	}

	for _, tc := range cases {
		require.Equalf(t, tc.want, classifier.Classify(tc.query), "query %q", tc.query)
	}
}
