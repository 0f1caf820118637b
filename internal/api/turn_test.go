package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropsage/cropsage/internal/advisor"
	"github.com/cropsage/cropsage/internal/session"
)

// fakeEngine replies with a canned message and optionally flags review.
type fakeEngine struct {
	reply       string
	flagReview  bool
	err         error
	turnsServed int
}

func (f *fakeEngine) RunTurn(ctx context.Context, s *advisor.State, userText string) error {
	if f.err != nil {
		return f.err
	}
	f.turnsServed++
	s.AddUser(userText)
	s.TurnCount++
	s.AddAssistant(f.reply)
	if f.flagReview {
		s.Advisory = &advisor.Advisory{
			Headline:         "Get a local expert to look at this",
			NeedsHumanReview: true,
		}
	}
	return nil
}

// memStore is an in-memory Store with injectable failures.
type memStore struct {
	states  map[string]*advisor.State
	loadErr error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]*advisor.State)}
}

func (m *memStore) Load(ctx context.Context, chatID string) (*advisor.State, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if s, ok := m.states[chatID]; ok {
		return s, nil
	}
	return advisor.NewState(chatID), nil
}

func (m *memStore) Save(ctx context.Context, state *advisor.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[state.ChatID] = state
	return nil
}

func (m *memStore) Delete(ctx context.Context, chatID string) error {
	delete(m.states, chatID)
	return nil
}

func (m *memStore) List(ctx context.Context) ([]session.Info, error) {
	var infos []session.Info
	for id, s := range m.states {
		infos = append(infos, session.Info{ChatID: id, Turns: s.TurnCount, UpdatedAt: time.Now()})
	}
	return infos, nil
}

func newTestServer(t *testing.T, engine TurnRunner, store session.Store) *httptest.Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{Engine: engine, Store: store})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postTurn(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/turn", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestTurnEndpoint(t *testing.T) {
	engine := &fakeEngine{reply: "Tell me your crop and location."}
	store := newMemStore()
	ts := newTestServer(t, engine, store)

	resp := postTurn(t, ts, `{"session_id":"chat-1","message":"hello"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body turnResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "chat-1", body.SessionID)
	assert.Equal(t, "Tell me your crop and location.", body.Reply)
	assert.Equal(t, 1, body.Turn)
	assert.False(t, body.NeedsHumanReview)

	// State was persisted.
	saved, err := store.Load(t.Context(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.TurnCount)
}

func TestTurnEndpointFlagsReview(t *testing.T) {
	engine := &fakeEngine{reply: "Please involve a local expert.", flagReview: true}
	ts := newTestServer(t, engine, newMemStore())

	resp := postTurn(t, ts, `{"session_id":"chat-1","message":"urgent, rapid spread"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body turnResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.NeedsHumanReview)
}

func TestTurnEndpointValidation(t *testing.T) {
	ts := newTestServer(t, &fakeEngine{reply: "ok"}, newMemStore())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"session_id":`},
		{"missing session id", `{"message":"hi"}`},
		{"bad session id", `{"session_id":"a/b","message":"hi"}`},
		{"empty message", `{"session_id":"chat-1","message":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postTurn(t, ts, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestTurnEndpointStorageFailure(t *testing.T) {
	store := newMemStore()
	store.saveErr = errors.New("disk full")
	ts := newTestServer(t, &fakeEngine{reply: "ok"}, store)

	resp := postTurn(t, ts, `{"session_id":"chat-1","message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestTurnEndpointEngineFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("model exploded")}
	ts := newTestServer(t, engine, newMemStore())

	resp := postTurn(t, ts, `{"session_id":"chat-1","message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestListAndDeleteSessions(t *testing.T) {
	store := newMemStore()
	ts := newTestServer(t, &fakeEngine{reply: "ok"}, store)

	postTurn(t, ts, `{"session_id":"chat-1","message":"hi"}`)
	postTurn(t, ts, `{"session_id":"chat-2","message":"hi"}`)

	resp, err := http.Get(ts.URL + "/api/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var infos []sessionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	assert.Len(t, infos, 2)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/chat-1", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	infos2, err := store.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, infos2, 1)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeEngine{reply: "ok"}, newMemStore())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
