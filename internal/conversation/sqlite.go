package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS conversations (
	user_id      TEXT PRIMARY KEY,
	escalated    INTEGER NOT NULL DEFAULT 0,
	escalated_at INTEGER,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS conversation_turns (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT    NOT NULL UNIQUE,
	user_id    TEXT    NOT NULL REFERENCES conversations (user_id) ON DELETE CASCADE,
	sender     TEXT    NOT NULL,
	content    TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversation_turns_user_order
	ON conversation_turns (user_id, created_at, seq);`

// SQLiteStore implements Store on a single SQLite file. Timestamps are
// stored as unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema. Use ":memory:" for an ephemeral store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// from being split across connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create conversation schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, userID string, turn Turn) error {
	if err := validateTurn(userID, turn); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.insertTurns(ctx, tx, userID, normalizeTurn(turn))
	})
}

func (s *SQLiteStore) AppendExchange(ctx context.Context, userID string, userTurn, agentTurn Turn) error {
	if err := validateTurn(userID, userTurn); err != nil {
		return err
	}
	if err := validateTurn(userID, agentTurn); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.insertTurns(ctx, tx, userID, normalizeTurn(userTurn), normalizeTurn(agentTurn))
	})
}

func (s *SQLiteStore) insertTurns(ctx context.Context, tx *sql.Tx, userID string, turns ...Turn) error {
	ts := time.Now().UTC().UnixNano()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (user_id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = excluded.updated_at`,
		userID, ts, ts); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	for _, t := range turns {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_turns (id, user_id, sender, content, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			t.ID.String(), userID, string(t.Sender), t.Text, t.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetLast(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		return s.GetAll(ctx, userID)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, content, created_at FROM (
			SELECT id, sender, content, created_at, seq
			FROM conversation_turns
			WHERE user_id = ?
			ORDER BY created_at DESC, seq DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, seq ASC`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanSQLiteTurns(rows)
}

func (s *SQLiteStore) GetAll(ctx context.Context, userID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, content, created_at
		FROM conversation_turns
		WHERE user_id = ?
		ORDER BY created_at ASC, seq ASC`, userID)
	if err != nil {
		return nil, err
	}
	return scanSQLiteTurns(rows)
}

func scanSQLiteTurns(rows *sql.Rows) ([]Turn, error) {
	defer rows.Close()
	turns := make([]Turn, 0)
	for rows.Next() {
		var (
			id, sender, content string
			createdAt           int64
		)
		if err := rows.Scan(&id, &sender, &content, &createdAt); err != nil {
			return nil, err
		}
		parsedID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("turn id %q: %w", id, err)
		}
		parsedSender, err := ParseSender(sender)
		if err != nil {
			return nil, err
		}
		turns = append(turns, Turn{
			ID:        parsedID,
			Sender:    parsedSender,
			Text:      content,
			CreatedAt: time.Unix(0, createdAt).UTC(),
		})
	}
	return turns, rows.Err()
}

func (s *SQLiteStore) GetEscalated(ctx context.Context, userID string) (bool, error) {
	var escalated bool
	err := s.db.QueryRowContext(ctx, `SELECT escalated FROM conversations WHERE user_id = ?`, userID).Scan(&escalated)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	return escalated, err
}

func (s *SQLiteStore) SetEscalated(ctx context.Context, userID string, escalated bool) error {
	if escalated {
		_, err := s.MarkEscalated(ctx, userID)
		return err
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

func (s *SQLiteStore) MarkEscalated(ctx context.Context, userID string) (bool, error) {
	ts := time.Now().UTC().UnixNano()
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET escalated = 1, escalated_at = ?, updated_at = ?
		WHERE user_id = ? AND escalated = 0`, ts, ts, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	if _, err := s.GetEscalated(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ Store = (*SQLiteStore)(nil)
