package transport

import "time"

const (
	MaxMessageRunes     = 4000
	DefaultHistoryLimit = 4
)

type ChatRequest struct {
	UserID  string `json:"userId" validate:"omitempty,max=320"`
	Message string `json:"message" validate:"required,notblank,max=16000"`
}

type ChatResponse struct {
	Reply     string `json:"reply"`
	Escalated bool   `json:"escalated"`
}

type HistoryRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=200"`
}

type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type HistoryResponse struct {
	Messages []Message `json:"messages"`
}

type StatusResponse struct {
	Escalated bool `json:"escalated"`
}
