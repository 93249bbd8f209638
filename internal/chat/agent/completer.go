// Package agent wraps the text-completion model with the prompts the chat
// pipeline needs: reply generation, stage and intent classification, lead
// summaries and history compaction.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"sdr_assistant_backend/platform/logger"
)

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Completer sends single-prompt requests to an ADK model.
type Completer struct {
	llm         model.LLM
	log         *logger.Logger
	temperature float32
}

func NewCompleter(llm model.LLM, log *logger.Logger) *Completer {
	return &Completer{llm: llm, log: log}
}

// Complete runs prompt as one user message, bounded by timeout when positive.
// op names the call in logs.
func (c *Completer) Complete(ctx context.Context, op, prompt string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	temperature := c.temperature
	req := &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		Config:   &genai.GenerateContentConfig{Temperature: &temperature},
	}

	started := time.Now()
	var (
		out   strings.Builder
		usage *genai.GenerateContentResponseUsageMetadata
	)
	for resp, err := range c.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part != nil {
				out.WriteString(part.Text)
			}
		}
		if resp.UsageMetadata != nil {
			usage = resp.UsageMetadata
		}
	}

	text := strings.TrimSpace(out.String())
	c.logUsage(op, prompt, text, usage, time.Since(started))
	if text == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyCompletion)
	}
	return text, nil
}

func (c *Completer) logUsage(op, prompt, reply string, usage *genai.GenerateContentResponseUsageMetadata, took time.Duration) {
	in, out := EstimateTokens(prompt), EstimateTokens(reply)
	if usage != nil {
		in, out = int(usage.PromptTokenCount), int(usage.CandidatesTokenCount)
	}
	c.log.Debug("llm call",
		slog.String("op", op),
		slog.String("model", c.llm.Name()),
		slog.Int("input_tokens", in),
		slog.Int("output_tokens", out),
		slog.Int64("latency_ms", took.Milliseconds()),
	)
}

// EstimateTokens approximates a token count at four characters per token.
func EstimateTokens(s string) int {
	n := len([]rune(s))
	return (n + 3) / 4
}
