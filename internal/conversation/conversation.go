// Package conversation persists chat turns and the escalation flag per user.
// The Store interface is the persistence boundary of the chat engine; the
// package ships Postgres, SQLite and in-memory implementations.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a turn.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "assistant"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAgent
}

// Label is the speaker prefix used when a turn is rendered into a prompt.
func (s Sender) Label() string {
	if s == SenderUser {
		return "User"
	}
	return "AI"
}

// ParseSender accepts the stored values plus the legacy "ai" spelling.
func ParseSender(raw string) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user":
		return SenderUser, nil
	case "assistant", "ai", "agent":
		return SenderAgent, nil
	default:
		return "", fmt.Errorf("unknown sender %q", raw)
	}
}

// Turn is one immutable message in a conversation.
type Turn struct {
	ID        uuid.UUID
	Sender    Sender
	Text      string
	CreatedAt time.Time
}

// NewTurn creates a turn stamped with at (UTC).
func NewTurn(sender Sender, text string, at time.Time) Turn {
	return Turn{
		ID:        uuid.New(),
		Sender:    sender,
		Text:      text,
		CreatedAt: at.UTC(),
	}
}

var (
	// ErrNotFound is returned for a user without a conversation record.
	ErrNotFound = errors.New("conversation not found")
	// ErrEscalationIrreversible is returned when a caller tries to clear a set escalation flag.
	ErrEscalationIrreversible = errors.New("conversation escalation cannot be reverted")
	// ErrInvalidTurn is returned for a turn with an unknown sender or a blank user id.
	ErrInvalidTurn = errors.New("invalid conversation turn")
)

// Store is the persistence boundary for conversations. Turns come back in
// chronological order (timestamp, then insertion order). Appending creates
// the conversation record on first use.
type Store interface {
	// Append stores a single turn.
	Append(ctx context.Context, userID string, turn Turn) error
	// AppendExchange stores a user turn and the agent reply atomically.
	AppendExchange(ctx context.Context, userID string, userTurn, agentTurn Turn) error
	// GetLast returns at most limit of the most recent turns, oldest first.
	GetLast(ctx context.Context, userID string, limit int) ([]Turn, error)
	// GetAll returns every turn of the conversation, oldest first. Unknown
	// users yield an empty slice.
	GetAll(ctx context.Context, userID string) ([]Turn, error)
	// GetEscalated returns the escalation flag or ErrNotFound.
	GetEscalated(ctx context.Context, userID string) (bool, error)
	// SetEscalated sets the flag. Setting true twice is a no-op; lowering a
	// set flag returns ErrEscalationIrreversible.
	SetEscalated(ctx context.Context, userID string, escalated bool) error
	// MarkEscalated flips the flag false -> true and reports whether this
	// call performed the transition.
	MarkEscalated(ctx context.Context, userID string) (bool, error)
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

func validateTurn(userID string, turn Turn) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidTurn)
	}
	if !turn.Sender.Valid() {
		return fmt.Errorf("%w: sender %q", ErrInvalidTurn, turn.Sender)
	}
	return nil
}

func normalizeTurn(turn Turn) Turn {
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	return turn
}
