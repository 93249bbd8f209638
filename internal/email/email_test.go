package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type emailConfig struct {
	enabled  bool
	provider string
	apiKey   string
	smtpHost string
}

func (c emailConfig) GetEmailEnabled() bool       { return c.enabled }
func (c emailConfig) GetEmailProvider() string    { return c.provider }
func (c emailConfig) GetBrevoAPIKey() string      { return c.apiKey }
func (c emailConfig) GetSMTPHost() string         { return c.smtpHost }
func (c emailConfig) GetSMTPPort() int            { return 587 }
func (c emailConfig) GetSMTPUsername() string     { return "" }
func (c emailConfig) GetSMTPPassword() string     { return "" }
func (c emailConfig) GetEmailFromName() string    { return "SDR Assistant" }
func (c emailConfig) GetEmailFromAddress() string { return "sdr@example.com" }

func sampleEscalation() EscalationEmail {
	return EscalationEmail{
		ReasonPhrase:  "you expressed strong interest in our product",
		Summary:       "Ana runs a 40-person sales team and wants pricing.",
		Score:         100,
		FollowUpHours: 24,
		SupportEmail:  "support@example.com",
		TeamName:      "The AI SDR Team",
	}
}

func TestRenderEscalationBodies(t *testing.T) {
	msg, err := RenderEscalation("ana@example.com", sampleEscalation())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.To != "ana@example.com" || msg.Subject != "Your Request for Human Assistance" {
		t.Fatalf("unexpected envelope %+v", msg)
	}
	for _, want := range []string{
		"because you expressed strong interest in our product",
		"within the next 24 hours",
		"🧠 Lead Summary:",
		"📊 Lead Score: 100/100",
		"support@example.com",
		"The AI SDR Team",
	} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("text body missing %q:\n%s", want, msg.Text)
		}
		if !strings.Contains(msg.HTML, want) {
			t.Fatalf("html body missing %q", want)
		}
	}
}

func TestRenderEscalationEscapesHTML(t *testing.T) {
	e := sampleEscalation()
	e.Summary = "<script>alert(1)</script>"
	msg, err := RenderEscalation("ana@example.com", e)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Fatal("expected summary to be escaped in the html body")
	}
}

func TestNewSenderSelectsProvider(t *testing.T) {
	s, err := NewSender(emailConfig{})
	if err != nil {
		t.Fatalf("disabled: %v", err)
	}
	if _, ok := s.(NoopSender); !ok {
		t.Fatalf("expected NoopSender, got %T", s)
	}

	s, err = NewSender(emailConfig{enabled: true, provider: "smtp", smtpHost: "mail.example.com"})
	if err != nil {
		t.Fatalf("smtp: %v", err)
	}
	if _, ok := s.(*SMTPSender); !ok {
		t.Fatalf("expected SMTPSender, got %T", s)
	}

	if _, err := NewSender(emailConfig{enabled: true, provider: "brevo"}); err == nil {
		t.Fatal("expected missing api key error")
	}
	if _, err := NewSender(emailConfig{enabled: true, provider: "pigeon"}); err == nil {
		t.Fatal("expected unknown provider error")
	}
}

func TestBrevoSenderPostsMessage(t *testing.T) {
	var got brevoEmailRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	b := NewBrevoSender("key-1", "sdr@example.com", "SDR Assistant")
	b.endpoint = srv.URL
	err := b.Send(context.Background(), Message{To: "ana@example.com", Subject: "Hi", HTML: "<p>x</p>", Text: "x"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if apiKey != "key-1" || got.Subject != "Hi" || got.TextContent != "x" || len(got.To) != 1 || got.To[0].Email != "ana@example.com" {
		t.Fatalf("unexpected request: key=%q %+v", apiKey, got)
	}
}

func TestBrevoSenderReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := NewBrevoSender("nope", "sdr@example.com", "SDR Assistant")
	b.endpoint = srv.URL
	if err := b.Send(context.Background(), Message{To: "ana@example.com", Subject: "Hi"}); err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestSMTPSenderRejectsBadRecipient(t *testing.T) {
	s := NewSMTPSender("mail.example.com", 587, "", "", "sdr@example.com", "SDR Assistant")
	if _, err := s.buildMsg(Message{To: "not an address", Subject: "Hi", HTML: "x"}); err == nil {
		t.Fatal("expected invalid recipient error")
	}
}
