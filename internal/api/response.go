package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cropsage/cropsage/internal/log"
)

// errorBody is the uniform error payload.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response. The body is encoded to a buffer first so
// an encoding failure can still produce a proper 500.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("encoding JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common; not worth more than debug.
		logger.Debug("writing response body", "error", err)
	}
}

// writeError writes the uniform error payload.
func writeError(w http.ResponseWriter, status int, msg string, logger log.Logger) {
	writeJSON(w, status, errorBody{Error: msg}, logger)
}
