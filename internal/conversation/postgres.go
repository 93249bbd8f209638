package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on the conversations and
// conversation_turns tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over an open pool. Migrations are applied
// separately by db.RunMigrations.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const upsertConversationSQL = `
	INSERT INTO conversations (user_id) VALUES ($1)
	ON CONFLICT (user_id) DO UPDATE SET updated_at = now()`

const insertTurnSQL = `
	INSERT INTO conversation_turns (id, user_id, sender, content, created_at)
	VALUES ($1, $2, $3, $4, $5)`

func (s *PostgresStore) Append(ctx context.Context, userID string, turn Turn) error {
	if err := validateTurn(userID, turn); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return insertTurns(ctx, tx, userID, normalizeTurn(turn))
	})
}

func (s *PostgresStore) AppendExchange(ctx context.Context, userID string, userTurn, agentTurn Turn) error {
	if err := validateTurn(userID, userTurn); err != nil {
		return err
	}
	if err := validateTurn(userID, agentTurn); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return insertTurns(ctx, tx, userID, normalizeTurn(userTurn), normalizeTurn(agentTurn))
	})
}

func insertTurns(ctx context.Context, tx pgx.Tx, userID string, turns ...Turn) error {
	if _, err := tx.Exec(ctx, upsertConversationSQL, userID); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	for _, t := range turns {
		if _, err := tx.Exec(ctx, insertTurnSQL, t.ID, userID, string(t.Sender), t.Text, t.CreatedAt); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetLast(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		return s.GetAll(ctx, userID)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, sender, content, created_at FROM (
			SELECT id, sender, content, created_at, seq
			FROM conversation_turns
			WHERE user_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, seq ASC`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanTurns(rows)
}

func (s *PostgresStore) GetAll(ctx context.Context, userID string) ([]Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, sender, content, created_at
		FROM conversation_turns
		WHERE user_id = $1
		ORDER BY created_at ASC, seq ASC`, userID)
	if err != nil {
		return nil, err
	}
	return scanTurns(rows)
}

func scanTurns(rows pgx.Rows) ([]Turn, error) {
	defer rows.Close()
	turns := make([]Turn, 0)
	for rows.Next() {
		var (
			t      Turn
			sender string
		)
		if err := rows.Scan(&t.ID, &sender, &t.Text, &t.CreatedAt); err != nil {
			return nil, err
		}
		parsed, err := ParseSender(sender)
		if err != nil {
			return nil, err
		}
		t.Sender = parsed
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *PostgresStore) GetEscalated(ctx context.Context, userID string) (bool, error) {
	var escalated bool
	err := s.pool.QueryRow(ctx, `SELECT escalated FROM conversations WHERE user_id = $1`, userID).Scan(&escalated)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	return escalated, err
}

func (s *PostgresStore) SetEscalated(ctx context.Context, userID string, escalated bool) error {
	if escalated {
		if _, err := s.MarkEscalated(ctx, userID); err != nil {
			return err
		}
		return nil
	}

	current, err := s.GetEscalated(ctx, userID)
	if err != nil {
		return err
	}
	if current {
		return ErrEscalationIrreversible
	}
	return nil
}

func (s *PostgresStore) MarkEscalated(ctx context.Context, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations
		SET escalated = true, escalated_at = now(), updated_at = now()
		WHERE user_id = $1 AND escalated = false`, userID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Zero rows: either already escalated or no such conversation.
	if _, err := s.GetEscalated(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var _ Store = (*PostgresStore)(nil)
