package agent

import (
	"fmt"
	"strings"

	"github.com/herdwise/livestock-agent/retrieval"
	"github.com/herdwise/livestock-agent/session"
)

const (
	msgGreeting = "Hello! I'm your livestock care assistant. I can help with animal health, " +
		"feeding, housing, and veterinary guidance for cattle, goats, chickens, and other farm " +
		"animals. How can I help you today?"

	msgThanks = "You're welcome! I'm happy to help with your livestock questions. Is there " +
		"anything else about animal care I can assist you with?"

	msgGoodbye = "Goodbye! Wishing you and your animals good health. Feel free to reach out " +
		"if you have more livestock questions."

	msgAcknowledge = "Got it. Please let me know how I can help with your livestock or animal " +
		"care questions."

	msgKnowledgeBaseUnavailable = "The livestock knowledge base is not available yet, so I " +
		"can't look up documented guidance right now. Please try again after the document " +
		"index has been built."

	msgFallback = "I'm unable to answer right now due to a temporary problem. Please try " +
		"again in a moment."
)

func directResponse(route Route, query string) string {
	if route == RouteGreeting {
		return msgGreeting
	}

	normalized := strings.ToLower(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(normalized, "thanks"), strings.HasPrefix(normalized, "thank you"):
		return msgThanks
	case strings.HasPrefix(normalized, "bye"), strings.HasPrefix(normalized, "goodbye"):
		return msgGoodbye
	default:
		return msgAcknowledge
	}
}

const criticSystemPrompt = "You are a veterinary expert evaluating whether retrieved livestock " +
	"and domestic-animal care information is adequate to answer a question safely."

func criticUserPrompt(query string, evidence retrieval.Evidence, history []session.Turn) string {
	var sb strings.Builder
	sb.WriteString("User's question:\n")
	sb.WriteString(query)
	sb.WriteString("\n\nRetrieved knowledge base information:\n")
	sb.WriteString(evidenceBlock(evidence))
	if historyText := historyBlock(history); historyText != "" {
		sb.WriteString("\nRecent conversation:\n")
		sb.WriteString(historyText)
	}
	sb.WriteString("\nAssess as a veterinary expert:\n")
	sb.WriteString("1. How relevant and accurate is the retrieved information for this question?\n")
	sb.WriteString("2. Are there gaps about animal care, treatment, or management?\n")
	sb.WriteString("3. Is it sufficient for a safe, responsible answer, including any warnings?\n")
	sb.WriteString("4. Is it specific enough to the animal type mentioned?\n")
	sb.WriteString("\nRespond with a single JSON object and nothing else, in this exact shape:\n")
	sb.WriteString(`{"sufficient": true|false, "reasoning": "<short assessment>", "missing_aspects": ["<gap>", ...]}`)
	sb.WriteString("\n")
	return sb.String()
}

const answerSystemPrompt = "You are a helpful livestock care assistant. You provide practical, " +
	"safe advice for farmers and livestock owners based on veterinary knowledge. Always " +
	"prioritize animal welfare and recommend professional veterinary care when needed."

func answerUserPrompt(query string, evidence retrieval.Evidence, verdict Verdict, history []session.Turn, caveat bool) string {
	var sb strings.Builder
	sb.WriteString("Instructions:\n")
	sb.WriteString("1. Use the retrieved knowledge base entries as your primary source.\n")
	sb.WriteString("2. Consider the veterinary evaluation below for safety and completeness.\n")
	sb.WriteString("3. Format the answer as clear, practical steps for livestock owners.\n")
	sb.WriteString("4. Include safety warnings when discussing treatments or medications.\n")
	sb.WriteString("5. Cite the source and page of every knowledge base entry you rely on.\n")
	if caveat || len(evidence) == 0 {
		sb.WriteString("6. The documented evidence for this question is insufficient. Say so ")
		sb.WriteString("explicitly, answer only what the evidence supports, do not invent ")
		sb.WriteString("specifics, and recommend consulting a local veterinarian.\n")
	}

	sb.WriteString("\nVeterinary evaluation:\n")
	if verdict.Reasoning != "" {
		sb.WriteString(verdict.Reasoning)
	} else {
		sb.WriteString("(none)")
	}
	if len(verdict.MissingAspects) > 0 {
		sb.WriteString("\nMissing aspects: ")
		sb.WriteString(strings.Join(verdict.MissingAspects, "; "))
	}

	sb.WriteString("\n\nRetrieved knowledge base entries:\n")
	sb.WriteString(evidenceBlock(evidence))

	if historyText := historyBlock(history); historyText != "" {
		sb.WriteString("\nConversation history:\n")
		sb.WriteString(historyText)
	}

	sb.WriteString("\nUser's question:\n")
	sb.WriteString(query)
	sb.WriteString("\n\nProvide your helpful, practical answer for livestock care:")
	return sb.String()
}

func evidenceBlock(evidence retrieval.Evidence) string {
	if len(evidence) == 0 {
		return "No relevant documents found in the knowledge base.\n"
	}

	var sb strings.Builder
	for i, item := range evidence {
		sb.WriteString(fmt.Sprintf("Entry %d (similarity %.2f):\n", i+1, item.Score))
		sb.WriteString(fmt.Sprintf("Source: %s\n", item.Source))
		if item.Header != "" {
			sb.WriteString(fmt.Sprintf("Topic: %s\n", item.Header))
		}
		if item.Page != "" {
			sb.WriteString(fmt.Sprintf("Page: %s\n", item.Page))
		}
		sb.WriteString("Content: ")
		sb.WriteString(item.Content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func historyBlock(history []session.Turn) string {
	if len(history) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, turn := range history {
		sb.WriteString(strings.ToUpper(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// broadenQuery folds the critic's reported gaps into the next retrieval
// attempt so the retry searches wider than the literal question.
func broadenQuery(query string, missing []string) string {
	aspects := make([]string, 0, len(missing))
	for _, aspect := range missing {
		trimmed := strings.TrimSpace(aspect)
		if trimmed != "" {
			aspects = append(aspects, trimmed)
		}
	}
	if len(aspects) == 0 {
		return query
	}
	return query + " (also covering: " + strings.Join(aspects, "; ") + ")"
}
