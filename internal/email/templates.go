package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

type baseEmailData struct {
	Title   string
	Heading string
}

// EscalationEmail is the content of the hand-off notice sent to a user.
type EscalationEmail struct {
	Subject       string
	ReasonPhrase  string
	Summary       string
	Score         int
	FollowUpHours int
	SupportEmail  string
	TeamName      string
}

type escalationEmailData struct {
	baseEmailData
	EscalationEmail
}

// Message is a rendered email ready for any Sender.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// RenderEscalation renders the HTML and plain-text bodies of the escalation
// notice addressed to toEmail.
func RenderEscalation(toEmail string, e EscalationEmail) (Message, error) {
	if e.Subject == "" {
		e.Subject = subjectEscalationDefault
	}
	if e.FollowUpHours <= 0 {
		e.FollowUpHours = 24
	}
	data := escalationEmailData{
		baseEmailData:   baseEmailData{Title: e.Subject, Heading: e.Subject},
		EscalationEmail: e,
	}

	html, err := renderEmailTemplate("escalation.html", data)
	if err != nil {
		return Message{}, err
	}
	text, err := renderTextTemplate("escalation.txt", data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: toEmail, Subject: e.Subject, HTML: html, Text: text}, nil
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := htmltemplate.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderTextTemplate(name string, data any) (string, error) {
	tmpl, err := texttemplate.ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
