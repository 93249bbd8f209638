package agent

import (
	"context"
	"log/slog"
	"strings"

	"sdr_assistant_backend/internal/chat/domain"
	"sdr_assistant_backend/internal/conversation"
	"sdr_assistant_backend/platform/config"
	"sdr_assistant_backend/platform/logger"
)

const defaultHistoryBudget = 3000

// Compactor condenses older turns into a short summary.
type Compactor interface {
	Compact(ctx context.Context, turns []conversation.Turn) (string, error)
}

// Assembler renders the reply prompt.
type Assembler struct {
	profile   config.AgentProfile
	budget    int
	compactor Compactor
	log       *logger.Logger
}

// NewAssembler takes an optional compactor; without one, over-budget history
// is condensed without a model call.
func NewAssembler(profile config.AgentProfile, budget int, compactor Compactor, log *logger.Logger) *Assembler {
	if budget <= 0 {
		budget = defaultHistoryBudget
	}
	return &Assembler{profile: profile, budget: budget, compactor: compactor, log: log}
}

// Assemble fills the persona template and appends the retrieved context.
func (a *Assembler) Assemble(ctx context.Context, stage domain.Stage, history []conversation.Turn, message, retrieved string) string {
	prompt := fill(replyTemplate, map[string]string{
		"company": a.profile.CompanyDescription,
		"product": a.profile.ProductName,
		"stage":   itoa(int(stage)),
		"budget":  itoa(a.budget),
		"history": a.renderWithinBudget(ctx, history),
		"input":   message,
	})
	return prompt + contextHeader + retrieved
}

func (a *Assembler) renderWithinBudget(ctx context.Context, history []conversation.Turn) string {
	rendered := RenderHistory(history)
	if EstimateTokens(rendered) <= a.budget {
		return rendered
	}

	older, recent := splitForBudget(history, a.budget*3/4)
	if len(older) == 0 {
		return rendered
	}

	summary := ""
	if a.compactor != nil {
		s, err := a.compactor.Compact(ctx, older)
		if err != nil {
			a.log.ExternalCallFailed("llm", "compact_history", err)
		} else {
			summary = strings.TrimSpace(s)
		}
	}
	if summary == "" {
		summary = condense(older, a.budget/4)
	}

	a.log.Debug("history compacted",
		slog.Int("summarized_turns", len(older)),
		slog.Int("kept_turns", len(recent)),
	)
	return "Summary of earlier conversation: " + summary + "\n" + RenderHistory(recent)
}
