package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/DoyleJ11/party-lobby-backend/internal/engine"
)

type createTeamRequest struct {
	Name     string `json:"name"`
	RoomCode string `json:"roomCode,omitempty"`
}

func (a *api) createTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rm := a.roomFor(req.RoomCode)
	if rm == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "room not found"})
		return
	}

	teamID := uuid.NewString()
	res := exec(rm, engine.Command{
		Type:     engine.CmdCreateTeam,
		TeamID:   teamID,
		TeamName: req.Name,
	})
	if res.Err != nil {
		writeError(w, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"team":    res.State.Teams[teamID],
	})
}

type assignTeamRequest struct {
	PlayerID string `json:"playerId"`
	TeamID   string `json:"teamId"`
	RoomCode string `json:"roomCode,omitempty"`
}

func (a *api) assignTeam(w http.ResponseWriter, r *http.Request) {
	var req assignTeamRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PlayerID == "" || req.TeamID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "playerId and teamId are required"})
		return
	}

	rm := a.roomFor(req.RoomCode)
	if rm == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "room not found"})
		return
	}

	res := exec(rm, engine.Command{
		Type:     engine.CmdAssignTeam,
		PlayerID: req.PlayerID,
		TeamID:   req.TeamID,
	})
	if res.Err != nil {
		writeError(w, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"team":    res.State.Teams[req.TeamID],
	})
}
