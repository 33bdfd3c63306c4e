package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DoyleJ11/party-lobby-backend/internal/engine"
	"github.com/DoyleJ11/party-lobby-backend/internal/room"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the engine's error taxonomy onto HTTP statuses:
// validation 400, unknown ids 404, capacity and phase conflicts 409.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, engine.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, room.ErrClosed):
		// The room shut down between resolving it and executing; to the
		// caller it simply no longer exists.
		writeJSON(w, http.StatusNotFound, errorBody{Error: "room not found"})
	case errors.Is(err, engine.ErrTeamFull),
		errors.Is(err, engine.ErrInvalidPhase),
		errors.Is(err, engine.ErrNotReady):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return false
	}
	return true
}
