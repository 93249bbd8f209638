package adapters

import (
	"context"
	"errors"
	"testing"

	"sdr_assistant_backend/internal/chat/domain"
	"sdr_assistant_backend/internal/chat/service"
	"sdr_assistant_backend/internal/events"
	"sdr_assistant_backend/platform/logger"
)

func TestChatEscalationNotifierPublishesEvent(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("test"))
	var got events.ConversationEscalated
	bus.Subscribe(events.ConversationEscalated{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		got = e.(events.ConversationEscalated)
		return nil
	}))

	n := NewChatEscalationNotifier(bus)
	err := n.NotifyEscalation(context.Background(), service.Escalation{
		UserID:  "lead@example.com",
		Reason:  domain.ReasonFrustration,
		Intent:  domain.IntentFrustration,
		Stage:   domain.StageObjectionHandling,
		Score:   50,
		Summary: "Unhappy with onboarding.",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.UserID != "lead@example.com" || got.Reason != "frustration" || got.Stage != 6 || got.Score != 50 {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestChatEscalationNotifierReturnsHandlerError(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("test"))
	boom := errors.New("mail down")
	bus.Subscribe(events.ConversationEscalated{}.EventName(), events.HandlerFunc(func(context.Context, events.Event) error {
		return boom
	}))

	err := NewChatEscalationNotifier(bus).NotifyEscalation(context.Background(), service.Escalation{UserID: "x@example.com"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
}
