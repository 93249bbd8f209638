// Package chat provides the SDR conversation bounded context: the message
// pipeline, escalation and the chat HTTP routes.
package chat

import (
	"sdr_assistant_backend/internal/chat/agent"
	"sdr_assistant_backend/internal/chat/domain"
	"sdr_assistant_backend/internal/chat/handler"
	"sdr_assistant_backend/internal/chat/service"
	"sdr_assistant_backend/internal/conversation"
	apphttp "sdr_assistant_backend/internal/http"
	"sdr_assistant_backend/platform/config"
	"sdr_assistant_backend/platform/keylock"
	"sdr_assistant_backend/platform/logger"
	"sdr_assistant_backend/platform/validator"

	"google.golang.org/adk/model"
)

// ModuleDeps are the infrastructure pieces built by the composition root.
type ModuleDeps struct {
	Store     conversation.Store
	Locker    keylock.Locker
	Retriever service.Retriever
	LLM       model.LLM
	Notifier  service.EscalationNotifier
	Profile   config.AgentProfile
}

// Module is the chat bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	engine  *service.Engine
}

// NewModule builds the agent collaborators around one completer and wires
// them into the engine.
func NewModule(deps ModuleDeps, cfg config.PipelineConfig, val *validator.Validator, log *logger.Logger) *Module {
	completer := agent.NewCompleter(deps.LLM, log)
	summarizer := agent.NewSummarizer(completer, cfg.GetClassifierTimeout(), log)

	engine := service.New(service.Deps{
		Store:     deps.Store,
		Locker:    deps.Locker,
		Retriever: deps.Retriever,
		Stages:    agent.NewStageClassifier(completer, cfg.GetClassifierTimeout(), log),
		Intents:   agent.NewIntentClassifier(completer, cfg.GetClassifierTimeout(), log),
		Assembler: agent.NewAssembler(deps.Profile, cfg.GetHistoryTokenBudget(), summarizer, log),
		LLM:       completer,
		Summaries: summarizer,
		Notifier:  deps.Notifier,
	}, service.Config{
		Policy: domain.Policy{
			MinTurns: cfg.GetEscalationMinTurns(),
			MinStage: domain.Stage(cfg.GetEscalationMinStage()),
		},
		LLMTimeout:       cfg.GetLLMTimeout(),
		RetrievalTimeout: cfg.GetRetrievalTimeout(),
		StoreTimeout:     cfg.GetStoreTimeout(),
		NotifyTimeout:    cfg.GetNotifyTimeout(),
		SummaryTimeout:   cfg.GetClassifierTimeout(),
	}, log)

	return &Module{handler: handler.New(engine, val), engine: engine}
}

func (m *Module) Name() string {
	return "chat"
}

// Engine returns the pipeline for shutdown draining.
func (m *Module) Engine() *service.Engine {
	return m.engine
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	limiter := ctx.ChatRateLimiter
	group := ctx.V1.Group("/chat")
	if limiter != nil {
		m.handler.RegisterRoutes(group, limiter.RateLimit())
		return
	}
	m.handler.RegisterRoutes(group, nil)
}

var _ apphttp.Module = (*Module)(nil)
