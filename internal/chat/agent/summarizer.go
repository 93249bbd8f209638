package agent

import (
	"context"
	"time"

	"sdr_assistant_backend/internal/chat/domain"
	"sdr_assistant_backend/internal/conversation"
	"sdr_assistant_backend/platform/logger"
)

// SummaryUnavailable is used when the lead summary cannot be generated.
const SummaryUnavailable = domain.SummaryUnavailable

// Summarizer writes the short lead summary sent with an escalation and
// compacts long histories for the reply prompt.
type Summarizer struct {
	llm     Completion
	timeout time.Duration
	log     *logger.Logger
}

func NewSummarizer(llm Completion, timeout time.Duration, log *logger.Logger) *Summarizer {
	return &Summarizer{llm: llm, timeout: timeout, log: log}
}

// Summarize never fails; it falls back to SummaryUnavailable.
func (s *Summarizer) Summarize(ctx context.Context, history []conversation.Turn, stage domain.Stage, intent domain.Intent) string {
	prompt := fill(summaryTemplate, map[string]string{
		"stage":   itoa(int(stage)),
		"intent":  string(intent),
		"history": RenderHistory(history),
	})
	out, err := s.llm.Complete(ctx, "lead_summary", prompt, s.timeout)
	if err != nil {
		s.log.ExternalCallFailed("llm", "lead_summary", err)
		return SummaryUnavailable
	}
	return out
}

// Compact summarizes turns that no longer fit the prompt's history budget.
func (s *Summarizer) Compact(ctx context.Context, turns []conversation.Turn) (string, error) {
	return s.llm.Complete(ctx, "compact_history", fill(compactionTemplate, map[string]string{
		"history": RenderHistory(turns),
	}), s.timeout)
}
