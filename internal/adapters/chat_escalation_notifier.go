// Package adapters contains anti-corruption adapters between modules.
package adapters

import (
	"context"

	"sdr_assistant_backend/internal/chat/service"
	"sdr_assistant_backend/internal/events"
)

// ChatEscalationNotifier turns an engine escalation into a domain event so the
// notification module can deliver it without chat importing email code.
type ChatEscalationNotifier struct {
	bus events.Bus
}

func NewChatEscalationNotifier(bus events.Bus) *ChatEscalationNotifier {
	return &ChatEscalationNotifier{bus: bus}
}

// NotifyEscalation publishes synchronously so delivery errors reach the
// engine's log.
func (n *ChatEscalationNotifier) NotifyEscalation(ctx context.Context, e service.Escalation) error {
	return n.bus.PublishSync(ctx, events.ConversationEscalated{
		BaseEvent: events.NewBaseEvent(),
		UserID:    e.UserID,
		Reason:    string(e.Reason),
		Intent:    string(e.Intent),
		Stage:     int(e.Stage),
		Score:     e.Score,
		Summary:   e.Summary,
	})
}

var _ service.EscalationNotifier = (*ChatEscalationNotifier)(nil)
