package conversation

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps conversations in process memory. It backs tests and the
// STORE_DRIVER=memory development mode.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*memoryConversation
	seq   int64
}

type memoryConversation struct {
	turns     []memoryTurn
	escalated bool
}

type memoryTurn struct {
	Turn
	seq int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]*memoryConversation)}
}

func (s *MemoryStore) Append(ctx context.Context, userID string, turn Turn) error {
	if err := validateTurn(userID, turn); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(userID, normalizeTurn(turn))
	return nil
}

func (s *MemoryStore) AppendExchange(ctx context.Context, userID string, userTurn, agentTurn Turn) error {
	if err := validateTurn(userID, userTurn); err != nil {
		return err
	}
	if err := validateTurn(userID, agentTurn); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(userID, normalizeTurn(userTurn))
	s.appendLocked(userID, normalizeTurn(agentTurn))
	return nil
}

func (s *MemoryStore) appendLocked(userID string, turn Turn) {
	conv, ok := s.convs[userID]
	if !ok {
		conv = &memoryConversation{}
		s.convs[userID] = conv
	}
	s.seq++
	conv.turns = append(conv.turns, memoryTurn{Turn: turn, seq: s.seq})
	sort.SliceStable(conv.turns, func(i, j int) bool {
		a, b := conv.turns[i], conv.turns[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.seq < b.seq
	})
}

func (s *MemoryStore) GetLast(ctx context.Context, userID string, limit int) ([]Turn, error) {
	all, err := s.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *MemoryStore) GetAll(ctx context.Context, userID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[userID]
	if !ok {
		return []Turn{}, nil
	}
	out := make([]Turn, len(conv.turns))
	for i, t := range conv.turns {
		out[i] = t.Turn
	}
	return out, nil
}

func (s *MemoryStore) GetEscalated(ctx context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[userID]
	if !ok {
		return false, ErrNotFound
	}
	return conv.escalated, nil
}

func (s *MemoryStore) SetEscalated(ctx context.Context, userID string, escalated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[userID]
	if !ok {
		return ErrNotFound
	}
	if conv.escalated && !escalated {
		return ErrEscalationIrreversible
	}
	conv.escalated = escalated
	return nil
}

func (s *MemoryStore) MarkEscalated(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[userID]
	if !ok {
		return false, ErrNotFound
	}
	if conv.escalated {
		return false, nil
	}
	conv.escalated = true
	return true, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

var _ Store = (*MemoryStore)(nil)
