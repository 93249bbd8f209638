// Package events defines the domain events exchanged between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"github.com/google/uuid"

	"sdr_assistant_backend/platform/events"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Chat Domain Events
// =============================================================================

// ConversationEscalated is published once, by the request that flipped the
// conversation's escalated flag.
type ConversationEscalated struct {
	BaseEvent
	UserID  string `json:"userId"`
	Reason  string `json:"reason"`
	Intent  string `json:"intent"`
	Stage   int    `json:"stage"`
	Score   int    `json:"score"`
	Summary string `json:"summary"`
}

func (e ConversationEscalated) EventName() string { return "chat.conversation.escalated" }

// =============================================================================
// Knowledge Domain Events
// =============================================================================

// LeadCorpusRebuilt is published after the lead index was replaced.
type LeadCorpusRebuilt struct {
	BaseEvent
	JobID     uuid.UUID `json:"jobId"`
	Source    string    `json:"source"`
	Documents int       `json:"documents"`
	Chunks    int       `json:"chunks"`
	Warnings  []string  `json:"warnings,omitempty"`
}

func (e LeadCorpusRebuilt) EventName() string { return "knowledge.leads.rebuilt" }

// LeadCorpusRebuildFailed is published when a rebuild job could not replace the index.
type LeadCorpusRebuildFailed struct {
	BaseEvent
	JobID  uuid.UUID `json:"jobId"`
	Source string    `json:"source"`
	Error  string    `json:"error"`
}

func (e LeadCorpusRebuildFailed) EventName() string { return "knowledge.leads.rebuild_failed" }
