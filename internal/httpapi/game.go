package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/party-lobby-backend/internal/engine"
	"github.com/DoyleJ11/party-lobby-backend/internal/types"
)

type gameActionRequest struct {
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode,omitempty"`
}

// phaseAction handles the three GM-driven transitions; they differ only
// in the command they issue.
func (a *api) phaseAction(cmdType engine.CommandType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gameActionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.PlayerID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Player ID is required"})
			return
		}

		rm := a.roomFor(req.RoomCode)
		if rm == nil {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "room not found"})
			return
		}

		res := exec(rm, engine.Command{Type: cmdType, PlayerID: req.PlayerID})
		if res.Err != nil {
			writeError(w, res.Err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"phase":   res.State.Phase,
			"state":   res.State,
		})
	}
}

func (a *api) beginSelection(w http.ResponseWriter, r *http.Request) {
	a.phaseAction(engine.CmdBeginSelection)(w, r)
}

func (a *api) readyCheck(w http.ResponseWriter, r *http.Request) {
	a.phaseAction(engine.CmdAdvanceToReadyCheck)(w, r)
}

func (a *api) startGame(w http.ResponseWriter, r *http.Request) {
	a.phaseAction(engine.CmdStartGame)(w, r)
}

func (a *api) gameState(w http.ResponseWriter, r *http.Request) {
	rm := a.roomFor(r.URL.Query().Get("roomCode"))
	if rm == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "room not found"})
		return
	}

	view, err := rm.CurrentView()
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "room not found"})
		return
	}

	ready, total := view.State.Readiness()
	writeJSON(w, http.StatusOK, map[string]any{
		"version":   view.Version,
		"state":     view.State,
		"readiness": types.Readiness{Ready: ready, Total: total},
	})
}
