package agent

import "strings"

// Classifier decides how a query is routed. The boundary between small talk
// and informational queries is a policy choice, so it stays pluggable; the
// rule-based default errs toward retrieval because skipping it risks
// unsupported animal-health advice.
type Classifier interface {
	Classify(query string) Route
}

type RuleClassifier struct {
	greetings  []string
	courtesies []string
}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		greetings: []string{
			"hi", "hello", "hey", "greetings",
			"good morning", "good afternoon", "good evening",
			"assalamualaikum",
		},
		courtesies: []string{
			"thanks", "thank you", "bye", "goodbye",
			"ok", "okay", "alright",
		},
	}
}

func (c *RuleClassifier) Classify(query string) Route {
	normalized := strings.ToLower(strings.TrimSpace(query))

	for _, prefix := range c.greetings {
		if strings.HasPrefix(normalized, prefix) {
			return RouteGreeting
		}
	}
	for _, prefix := range c.courtesies {
		if strings.HasPrefix(normalized, prefix) {
			return RouteCourtesy
		}
	}

	return RouteInformational
}

var _ Classifier = (*RuleClassifier)(nil)
