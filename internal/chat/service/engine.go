// Package service runs the per-message chat pipeline and the escalation
// state machine.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sdr_assistant_backend/internal/chat/domain"
	"sdr_assistant_backend/internal/conversation"
	"sdr_assistant_backend/platform/keylock"
	"sdr_assistant_backend/platform/logger"
)

// Apology is returned when no reply could be generated.
const Apology = "Sorry, something went wrong. Please try again."

const lockKeyPrefix = "chat:"

type Retriever interface {
	Retrieve(ctx context.Context, query string) string
}

type StageClassifier interface {
	ClassifyStage(ctx context.Context, history []conversation.Turn, message string) domain.Stage
}

type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, message string, history []conversation.Turn) domain.Intent
}

type PromptAssembler interface {
	Assemble(ctx context.Context, stage domain.Stage, history []conversation.Turn, message, retrieved string) string
}

type Completion interface {
	Complete(ctx context.Context, op, prompt string, timeout time.Duration) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, history []conversation.Turn, stage domain.Stage, intent domain.Intent) string
}

// Escalation is what the notifier is told about a hand-off.
type Escalation struct {
	UserID  string
	Reason  domain.Reason
	Intent  domain.Intent
	Stage   domain.Stage
	Score   int
	Summary string
}

type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, e Escalation) error
}

// Config holds the pipeline thresholds and per-call timeouts.
type Config struct {
	Policy           domain.Policy
	LLMTimeout       time.Duration
	RetrievalTimeout time.Duration
	StoreTimeout     time.Duration
	NotifyTimeout    time.Duration
	SummaryTimeout   time.Duration
	LockTimeout      time.Duration
}

// Deps groups the engine's collaborators.
type Deps struct {
	Store     conversation.Store
	Locker    keylock.Locker
	Retriever Retriever
	Stages    StageClassifier
	Intents   IntentClassifier
	Assembler PromptAssembler
	LLM       Completion
	Summaries Summarizer
	Notifier  EscalationNotifier
}

// Result is the outcome of one submitted message.
type Result struct {
	Reply     string
	Escalated bool
	Stage     domain.Stage
	Intent    domain.Intent
}

type Engine struct {
	deps Deps
	cfg  Config
	log  *logger.Logger
	now  func() time.Time

	// notifications tracks in-flight best-effort notifications.
	notifications sync.WaitGroup
}

func New(deps Deps, cfg Config, log *logger.Logger) *Engine {
	if cfg.Policy.MinTurns <= 0 || cfg.Policy.MinStage == 0 {
		def := domain.DefaultPolicy()
		if cfg.Policy.MinTurns <= 0 {
			cfg.Policy.MinTurns = def.MinTurns
		}
		if cfg.Policy.MinStage == 0 {
			cfg.Policy.MinStage = def.MinStage
		}
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 2 * time.Minute
	}
	return &Engine{deps: deps, cfg: cfg, log: log, now: time.Now}
}

// SubmitMessage runs the pipeline for one user message. Collaborator failures
// never surface: they degrade to fallbacks, and a failed reply generation
// yields Apology with nothing persisted.
func (e *Engine) SubmitMessage(ctx context.Context, userID, text string) Result {
	log := e.log.WithContext(ctx).WithUserID(userID)

	lockCtx, cancel := context.WithTimeout(ctx, e.cfg.LockTimeout)
	unlock, err := e.deps.Locker.Lock(lockCtx, lockKeyPrefix+userID)
	cancel()
	if err != nil {
		log.Error("could not acquire conversation lock", "error", err)
		return Result{Reply: Apology}
	}
	defer unlock()

	history := e.loadHistory(ctx, log, userID)

	var (
		retrieved string
		stage     domain.Stage
		intent    domain.Intent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rctx, cancel := withTimeout(gctx, e.cfg.RetrievalTimeout)
		defer cancel()
		retrieved = e.deps.Retriever.Retrieve(rctx, text)
		return nil
	})
	g.Go(func() error {
		stage = e.deps.Stages.ClassifyStage(gctx, history, text)
		return nil
	})
	g.Go(func() error {
		intent = e.deps.Intents.ClassifyIntent(gctx, text, history)
		return nil
	})
	_ = g.Wait()

	prompt := e.deps.Assembler.Assemble(ctx, stage, history, text, retrieved)
	reply, err := e.deps.LLM.Complete(ctx, "reply", prompt, e.cfg.LLMTimeout)
	if err != nil {
		log.ExternalCallFailed("llm", "reply", err)
		return Result{Reply: Apology, Stage: stage, Intent: intent}
	}

	now := e.now()
	userTurn := conversation.NewTurn(conversation.SenderUser, text, now)
	agentTurn := conversation.NewTurn(conversation.SenderAgent, reply, now)
	if err := e.storeCall(ctx, func(sctx context.Context) error {
		return e.deps.Store.AppendExchange(sctx, userID, userTurn, agentTurn)
	}); err != nil {
		log.DatabaseError("append_exchange", err)
		return Result{Reply: reply, Stage: stage, Intent: intent}
	}

	log.ConversationEvent("message_processed", userID,
		slog.Int("stage", int(stage)),
		slog.String("intent", string(intent)),
		slog.Int("turns", len(history)+2),
	)

	res := Result{Reply: reply, Stage: stage, Intent: intent}
	full := append(append(make([]conversation.Turn, 0, len(history)+2), history...), userTurn, agentTurn)
	e.evaluateEscalation(ctx, log, userID, full, &res)
	return res
}

func (e *Engine) evaluateEscalation(ctx context.Context, log *logger.Logger, userID string, full []conversation.Turn, res *Result) {
	var escalated bool
	err := e.storeCall(ctx, func(sctx context.Context) error {
		var err error
		escalated, err = e.deps.Store.GetEscalated(sctx, userID)
		return err
	})
	if err != nil && !errors.Is(err, conversation.ErrNotFound) {
		log.DatabaseError("get_escalated", err)
		return
	}
	if escalated {
		res.Escalated = true
		return
	}

	decision := e.cfg.Policy.Decide(false, len(full), res.Stage, res.Intent)
	if !decision.ShouldEscalate {
		return
	}

	var won bool
	err = e.storeCall(ctx, func(sctx context.Context) error {
		var err error
		won, err = e.deps.Store.MarkEscalated(sctx, userID)
		return err
	})
	if err != nil {
		// Stay active; the next message re-evaluates.
		log.DatabaseError("mark_escalated", err)
		return
	}
	res.Escalated = true
	if !won {
		log.Info("conversation escalated by a concurrent request")
		return
	}

	res.Reply += decision.Reason.Notice()
	log.ConversationEvent("escalated", userID,
		slog.String("reason", string(decision.Reason)),
		slog.Int("stage", int(res.Stage)),
	)
	e.notify(ctx, userID, full, res.Stage, res.Intent, decision.Reason)
}

// notify runs in the background so a slow summary or mail provider never
// delays the reply. Failures are logged only.
func (e *Engine) notify(ctx context.Context, userID string, history []conversation.Turn, stage domain.Stage, intent domain.Intent, reason domain.Reason) {
	if e.deps.Notifier == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	e.notifications.Add(1)
	go func() {
		defer e.notifications.Done()
		summary := e.summarize(detached, history, stage, intent)

		nctx, cancel := withTimeout(detached, e.cfg.NotifyTimeout)
		defer cancel()
		err := e.deps.Notifier.NotifyEscalation(nctx, Escalation{
			UserID:  userID,
			Reason:  reason,
			Intent:  intent,
			Stage:   stage,
			Score:   domain.Score(stage, intent),
			Summary: summary,
		})
		if err != nil {
			e.log.WithUserID(userID).ExternalCallFailed("notifier", "escalation", err)
		}
	}()
}

func (e *Engine) summarize(ctx context.Context, history []conversation.Turn, stage domain.Stage, intent domain.Intent) string {
	if e.deps.Summaries == nil {
		return domain.SummaryUnavailable
	}
	sctx, cancel := withTimeout(ctx, e.cfg.SummaryTimeout)
	defer cancel()
	return e.deps.Summaries.Summarize(sctx, history, stage, intent)
}

// Wait blocks until background notifications have finished.
func (e *Engine) Wait() {
	e.notifications.Wait()
}

// History returns the last limit turns of a conversation, oldest first.
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]conversation.Turn, error) {
	var turns []conversation.Turn
	err := e.storeCall(ctx, func(sctx context.Context) error {
		var err error
		turns, err = e.deps.Store.GetLast(sctx, userID, limit)
		return err
	})
	return turns, err
}

// IsEscalated reports the escalation flag; unknown users are not escalated.
func (e *Engine) IsEscalated(ctx context.Context, userID string) (bool, error) {
	var escalated bool
	err := e.storeCall(ctx, func(sctx context.Context) error {
		var err error
		escalated, err = e.deps.Store.GetEscalated(sctx, userID)
		return err
	})
	if errors.Is(err, conversation.ErrNotFound) {
		return false, nil
	}
	return escalated, err
}

func (e *Engine) loadHistory(ctx context.Context, log *logger.Logger, userID string) []conversation.Turn {
	var history []conversation.Turn
	err := e.storeCall(ctx, func(sctx context.Context) error {
		var err error
		history, err = e.deps.Store.GetAll(sctx, userID)
		return err
	})
	if err != nil {
		log.DatabaseError("get_history", err)
		return nil
	}
	return history
}

func (e *Engine) storeCall(ctx context.Context, fn func(context.Context) error) error {
	sctx, cancel := withTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()
	return fn(sctx)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
