// Package notification provides event handlers for sending notifications
// in response to domain events.
// This module subscribes to events and inverts the dependency: the chat module
// does not know about email providers or templates.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"sdr_assistant_backend/internal/chat/domain"
	"sdr_assistant_backend/internal/email"
	"sdr_assistant_backend/internal/events"
	"sdr_assistant_backend/platform/config"
	"sdr_assistant_backend/platform/logger"
)

// ErrNoEmailAddress is returned when the escalated user id is not a mailbox.
var ErrNoEmailAddress = errors.New("user id is not an email address")

// Module handles all notification-related event subscriptions.
type Module struct {
	sender  email.Sender
	profile config.AgentProfile
	log     *logger.Logger
}

func New(sender email.Sender, profile config.AgentProfile, log *logger.Logger) *Module {
	return &Module{sender: sender, profile: profile, log: log}
}

func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	// Chat domain events
	bus.Subscribe(events.ConversationEscalated{}.EventName(), m)

	// Knowledge domain events
	bus.Subscribe(events.LeadCorpusRebuilt{}.EventName(), m)
	bus.Subscribe(events.LeadCorpusRebuildFailed{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ConversationEscalated:
		return m.handleConversationEscalated(ctx, e)
	case events.LeadCorpusRebuilt:
		m.log.Info("lead corpus rebuilt",
			"jobId", e.JobID,
			"source", e.Source,
			"documents", e.Documents,
			"chunks", e.Chunks,
			"warnings", len(e.Warnings),
		)
		return nil
	case events.LeadCorpusRebuildFailed:
		m.log.Warn("lead corpus rebuild failed", "jobId", e.JobID, "source", e.Source, "error", e.Error)
		return nil
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleConversationEscalated(ctx context.Context, e events.ConversationEscalated) error {
	addr, err := mail.ParseAddress(e.UserID)
	if err != nil {
		m.log.Warn("escalation email skipped", "userId", e.UserID, "error", ErrNoEmailAddress)
		return fmt.Errorf("%w: %q", ErrNoEmailAddress, e.UserID)
	}

	msg, err := email.RenderEscalation(addr.Address, email.EscalationEmail{
		Subject:       m.profile.EmailSubject,
		ReasonPhrase:  domain.Reason(e.Reason).EmailPhrase(),
		Summary:       e.Summary,
		Score:         e.Score,
		FollowUpHours: m.profile.FollowUpHours,
		SupportEmail:  m.profile.SupportEmail,
		TeamName:      m.profile.TeamName,
	})
	if err != nil {
		return err
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		m.log.Error("failed to send escalation email",
			"userId", e.UserID,
			"reason", e.Reason,
			"error", err,
		)
		return err
	}
	m.log.Info("escalation email sent", "userId", e.UserID, "reason", e.Reason, "score", e.Score)
	return nil
}
