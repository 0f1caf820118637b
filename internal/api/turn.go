package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cropsage/cropsage/internal/log"
	"github.com/cropsage/cropsage/internal/session"
)

// maxTurnBodyBytes bounds the request body for one turn.
const maxTurnBodyBytes = 64 * 1024

// turnHandler serves the conversation endpoints.
type turnHandler struct {
	engine TurnRunner
	store  session.Store
	locker *session.Locker
	logger log.Logger
}

// turnRequest is the POST /api/turn payload.
type turnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// turnResponse is the POST /api/turn reply.
type turnResponse struct {
	SessionID        string `json:"session_id"`
	Reply            string `json:"reply"`
	NeedsHumanReview bool   `json:"needs_human_review"`
	Turn             int    `json:"turn"`
}

// turn runs one conversation turn: load state, advance it, persist it,
// return the assistant reply.
func (h *turnHandler) turn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTurnBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", h.logger)
		return
	}
	if err := session.ValidateChatID(req.SessionID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid session_id", h.logger)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required", h.logger)
		return
	}

	unlock := h.locker.Lock(req.SessionID)
	defer unlock()

	ctx := r.Context()
	state, err := h.store.Load(ctx, req.SessionID)
	if err != nil {
		h.logger.Error("loading session", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "loading session failed", h.logger)
		return
	}

	if err := h.engine.RunTurn(ctx, state, req.Message); err != nil {
		h.logger.Error("running turn", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "turn failed", h.logger)
		return
	}

	if err := h.store.Save(ctx, state); err != nil {
		h.logger.Error("saving session", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "saving session failed", h.logger)
		return
	}

	resp := turnResponse{
		SessionID: state.ChatID,
		Reply:     state.LastAssistantMessage(),
		Turn:      state.TurnCount,
	}
	if state.Advisory != nil {
		resp.NeedsHumanReview = state.Advisory.NeedsHumanReview
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

// sessionInfo is one entry of the GET /api/sessions listing.
type sessionInfo struct {
	SessionID string    `json:"session_id"`
	Turns     int       `json:"turns"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *turnHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	infos, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("listing sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "listing sessions failed", h.logger)
		return
	}

	out := make([]sessionInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, sessionInfo{
			SessionID: info.ChatID,
			Turns:     info.Turns,
			UpdatedAt: info.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out, h.logger)
}

func (h *turnHandler) deleteSession(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")
	if err := session.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id", h.logger)
		return
	}

	unlock := h.locker.Lock(chatID)
	defer unlock()

	if err := h.store.Delete(r.Context(), chatID); err != nil {
		if errors.Is(err, session.ErrInvalidChatID) {
			writeError(w, http.StatusBadRequest, "invalid session id", h.logger)
			return
		}
		h.logger.Error("deleting session", "session_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "deleting session failed", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// health is the liveness probe.
func (h *turnHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}
