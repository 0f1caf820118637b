package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cropsage/cropsage/internal/advisor"
	"github.com/cropsage/cropsage/internal/log"
)

// DB is the subset of pgxpool.Pool the Postgres store uses. Defined here so
// tests can substitute a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore persists sessions in Postgres, one jsonb row per chat.
//
// PGStore is safe for concurrent use by multiple goroutines.
type PGStore struct {
	db     DB
	logger log.Logger
}

// NewPGStore creates a Postgres-backed store.
func NewPGStore(db DB, logger log.Logger) *PGStore {
	if logger == nil {
		logger = log.NewNop()
	}
	return &PGStore{db: db, logger: logger}
}

// Load returns the stored state for chatID. A missing row or an unparseable
// state column yields a fresh state.
func (s *PGStore) Load(ctx context.Context, chatID string) (*advisor.State, error) {
	if err := ValidateChatID(chatID); err != nil {
		return nil, err
	}

	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT state FROM sessions WHERE chat_id = $1`, chatID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return advisor.NewState(chatID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", chatID, err)
	}

	var state advisor.State
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("discarding corrupt session state", "chat_id", chatID, "error", err)
		return advisor.NewState(chatID), nil
	}
	// The row key is authoritative over whatever the blob says.
	state.ChatID = chatID
	return &state, nil
}

// Save upserts the state row for state.ChatID.
func (s *PGStore) Save(ctx context.Context, state *advisor.State) error {
	if err := ValidateChatID(state.ChatID); err != nil {
		return err
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", state.ChatID, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO sessions (chat_id, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (chat_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		state.ChatID, raw,
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", state.ChatID, err)
	}
	s.logger.Debug("saved session", "chat_id", state.ChatID, "turn", state.TurnCount)
	return nil
}

// Delete removes the session row for chatID. Deleting a missing session is
// not an error.
func (s *PGStore) Delete(ctx context.Context, chatID string) error {
	if err := ValidateChatID(chatID); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("deleting session %s: %w", chatID, err)
	}
	return nil
}

// List returns all stored sessions, most recently updated first.
func (s *PGStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.Query(ctx, `
		SELECT chat_id, COALESCE((state->>'turn_count')::int, 0), updated_at
		FROM sessions
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		if err := rows.Scan(&info.ChatID, &info.Turns, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return infos, nil
}
