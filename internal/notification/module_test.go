package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sdr_assistant_backend/internal/email"
	"sdr_assistant_backend/internal/events"
	"sdr_assistant_backend/platform/config"
	"sdr_assistant_backend/platform/logger"

	"github.com/google/uuid"
)

type testSender struct {
	sent []email.Message
	err  error
}

func (s *testSender) Send(_ context.Context, msg email.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

const testLeadEmail = "lead@example.com"

func newTestModule(sender email.Sender) (*Module, *events.InMemoryBus) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	m := New(sender, config.DefaultAgentProfile(), log)
	m.RegisterHandlers(bus)
	return m, bus
}

func escalated(userID, reason string) events.ConversationEscalated {
	return events.ConversationEscalated{
		BaseEvent: events.NewBaseEvent(),
		UserID:    userID,
		Reason:    reason,
		Intent:    reason,
		Stage:     7,
		Score:     100,
		Summary:   "Wants a demo for 12 seats.",
	}
}

func TestConversationEscalatedSendsEmail(t *testing.T) {
	sender := &testSender{}
	_, bus := newTestModule(sender)

	if err := bus.PublishSync(context.Background(), escalated(testLeadEmail, "interest")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != testLeadEmail || msg.Subject != "Your Request for Human Assistance" {
		t.Fatalf("unexpected envelope %+v", msg)
	}
	for _, want := range []string{"strong interest in our product", "Wants a demo for 12 seats.", "📊 Lead Score: 100/100"} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("text body missing %q", want)
		}
	}
}

func TestConversationEscalatedFrustrationWording(t *testing.T) {
	sender := &testSender{}
	_, bus := newTestModule(sender)

	if err := bus.PublishSync(context.Background(), escalated(testLeadEmail, "frustration")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(sender.sent[0].Text, "more personalized assistance") {
		t.Fatalf("expected frustration wording, got %q", sender.sent[0].Text)
	}
}

func TestConversationEscalatedRequiresEmailUserID(t *testing.T) {
	sender := &testSender{}
	_, bus := newTestModule(sender)

	err := bus.PublishSync(context.Background(), escalated("user-42", "interest"))
	if !errors.Is(err, ErrNoEmailAddress) {
		t.Fatalf("expected ErrNoEmailAddress, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("expected no email")
	}
}

func TestSenderFailurePropagates(t *testing.T) {
	boom := errors.New("smtp down")
	_, bus := newTestModule(&testSender{err: boom})

	if err := bus.PublishSync(context.Background(), escalated(testLeadEmail, "interest")); !errors.Is(err, boom) {
		t.Fatalf("expected sender error, got %v", err)
	}
}

func TestKnowledgeEventsAreLoggedOnly(t *testing.T) {
	sender := &testSender{}
	m, _ := newTestModule(sender)

	if err := m.Handle(context.Background(), events.LeadCorpusRebuilt{BaseEvent: events.NewBaseEvent(), JobID: uuid.New(), Chunks: 3}); err != nil {
		t.Fatalf("rebuilt: %v", err)
	}
	if err := m.Handle(context.Background(), events.LeadCorpusRebuildFailed{BaseEvent: events.NewBaseEvent(), JobID: uuid.New(), Error: "x"}); err != nil {
		t.Fatalf("failed: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("expected no email for knowledge events")
	}
}
