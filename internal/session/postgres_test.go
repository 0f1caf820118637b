package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropsage/cropsage/internal/advisor"
	"github.com/cropsage/cropsage/internal/log"
)

func newPGStore(t *testing.T) (*PGStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPGStore(mock, log.NewNop()), mock
}

func TestPGStoreLoad(t *testing.T) {
	store, mock := newPGStore(t)

	state := advisor.NewState("chat-1")
	state.Context.Crop = "rice"
	state.TurnCount = 4
	raw, err := json.Marshal(state)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT state FROM sessions`).
		WithArgs("chat-1").
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(raw))

	got, err := store.Load(t.Context(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "rice", got.Context.Crop)
	assert.Equal(t, 4, got.TurnCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreLoadMissingReturnsFresh(t *testing.T) {
	store, mock := newPGStore(t)

	mock.ExpectQuery(`SELECT state FROM sessions`).
		WithArgs("chat-1").
		WillReturnError(pgx.ErrNoRows)

	got, err := store.Load(t.Context(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, advisor.NewState("chat-1"), got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreLoadCorruptReturnsFresh(t *testing.T) {
	store, mock := newPGStore(t)

	mock.ExpectQuery(`SELECT state FROM sessions`).
		WithArgs("chat-1").
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow([]byte("{broken")))

	got, err := store.Load(t.Context(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, advisor.NewState("chat-1"), got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreSave(t *testing.T) {
	store, mock := newPGStore(t)

	state := advisor.NewState("chat-1")
	state.TurnCount = 1
	raw, err := json.Marshal(state)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("chat-1", raw).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(t.Context(), state))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreDelete(t *testing.T) {
	store, mock := newPGStore(t)

	mock.ExpectExec(`DELETE FROM sessions`).
		WithArgs("chat-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, store.Delete(t.Context(), "chat-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreList(t *testing.T) {
	store, mock := newPGStore(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT chat_id`).
		WillReturnRows(pgxmock.NewRows([]string{"chat_id", "turns", "updated_at"}).
			AddRow("chat-b", 7, now).
			AddRow("chat-a", 2, now.Add(-time.Hour)))

	infos, err := store.List(t.Context())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "chat-b", infos[0].ChatID)
	assert.Equal(t, 7, infos[0].Turns)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreRejectsInvalidChatID(t *testing.T) {
	store, _ := newPGStore(t)

	_, err := store.Load(t.Context(), "")
	assert.ErrorIs(t, err, ErrInvalidChatID)
}
