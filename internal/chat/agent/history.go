package agent

import (
	"strings"

	"sdr_assistant_backend/internal/conversation"
)

// RenderHistory formats turns as "User: ..." / "AI: ..." lines.
func RenderHistory(turns []conversation.Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = t.Sender.Label() + ": " + t.Text
	}
	return strings.Join(lines, "\n")
}

// splitForBudget keeps the longest suffix of turns that fits in budget
// tokens, but always at least the last exchange.
func splitForBudget(turns []conversation.Turn, budget int) (older, recent []conversation.Turn) {
	const minKeep = 2
	used := 0
	cut := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		cost := EstimateTokens(turns[i].Sender.Label()+": "+turns[i].Text) + 1
		if used+cost > budget && len(turns)-i > minKeep {
			break
		}
		used += cost
		cut = i
	}
	return turns[:cut], turns[cut:]
}

// condense is the model-free stand-in for a history summary: the user's
// earlier messages, shortened, up to maxTokens.
func condense(turns []conversation.Turn, maxTokens int) string {
	const perTurn = 160
	var parts []string
	used := 0
	for _, t := range turns {
		if t.Sender != conversation.SenderUser {
			continue
		}
		text := []rune(strings.TrimSpace(t.Text))
		if len(text) > perTurn {
			text = append(text[:perTurn], '…')
		}
		cost := EstimateTokens(string(text))
		if used+cost > maxTokens {
			break
		}
		used += cost
		parts = append(parts, string(text))
	}
	if len(parts) == 0 {
		return "The user and the AI exchanged several earlier messages."
	}
	return "Earlier the user said: " + strings.Join(parts, " / ")
}
