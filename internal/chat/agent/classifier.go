package agent

import (
	"context"
	"log/slog"
	"time"

	"sdr_assistant_backend/internal/chat/domain"
	"sdr_assistant_backend/internal/conversation"
	"sdr_assistant_backend/platform/logger"
)

// Completion is the model call the classifiers and assembler depend on.
type Completion interface {
	Complete(ctx context.Context, op, prompt string, timeout time.Duration) (string, error)
}

// StageClassifier asks the model where the conversation stands in the funnel.
type StageClassifier struct {
	llm     Completion
	timeout time.Duration
	log     *logger.Logger
}

func NewStageClassifier(llm Completion, timeout time.Duration, log *logger.Logger) *StageClassifier {
	return &StageClassifier{llm: llm, timeout: timeout, log: log}
}

// ClassifyStage returns StageIntroduction when the call fails or the answer
// is not a single in-range integer.
func (c *StageClassifier) ClassifyStage(ctx context.Context, history []conversation.Turn, message string) domain.Stage {
	prompt := fill(stageTemplate, map[string]string{
		"history": RenderHistory(history),
		"input":   message,
	})
	raw, err := c.llm.Complete(ctx, "classify_stage", prompt, c.timeout)
	if err != nil {
		c.log.ExternalCallFailed("llm", "classify_stage", err)
		return domain.StageIntroduction
	}
	stage, ok := domain.ParseStage(raw)
	if !ok {
		c.log.Warn("unparseable stage, using introduction", slog.String("raw", truncate(raw, 80)))
		return domain.StageIntroduction
	}
	return stage
}

// IntentClassifier labels the latest user message.
type IntentClassifier struct {
	llm     Completion
	timeout time.Duration
	log     *logger.Logger
}

func NewIntentClassifier(llm Completion, timeout time.Duration, log *logger.Logger) *IntentClassifier {
	return &IntentClassifier{llm: llm, timeout: timeout, log: log}
}

// ClassifyIntent returns IntentNeutral on failure or an answer outside the
// closed set.
func (c *IntentClassifier) ClassifyIntent(ctx context.Context, message string, history []conversation.Turn) domain.Intent {
	prompt := fill(intentTemplate, map[string]string{
		"history": RenderHistory(history),
		"input":   message,
	})
	raw, err := c.llm.Complete(ctx, "classify_intent", prompt, c.timeout)
	if err != nil {
		c.log.ExternalCallFailed("llm", "classify_intent", err)
		return domain.IntentNeutral
	}
	intent, ok := domain.ParseIntent(raw)
	if !ok {
		c.log.Warn("unrecognized intent, using neutral", slog.String("raw", truncate(raw, 80)))
		return domain.IntentNeutral
	}
	return intent
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
