package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/party-lobby-backend/internal/engine"
	"github.com/DoyleJ11/party-lobby-backend/internal/hub"
	"github.com/DoyleJ11/party-lobby-backend/internal/room"
)

// roomFor resolves a room code from a request body field, falling back to
// the default room (which is created on demand).
func (a *api) roomFor(code string) *room.Room {
	reply := make(chan *room.Room, 1)
	if code == "" || code == DefaultRoomCode {
		a.hub.Inbox() <- hub.EnsureRoom{Code: DefaultRoomCode, State: engine.NewState(a.rules), Reply: reply}
	} else {
		a.hub.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
	}
	return <-reply
}

// exec runs a command on the room. A room that shut down mid-request
// (reset racing the handler) answers with room.ErrClosed; writeError turns
// that into the same 404 the caller would have gotten a moment later.
func exec(rm *room.Room, cmd engine.Command) room.Result {
	return rm.Do(cmd)
}

type joinRequest struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	RoomCode string `json:"roomCode,omitempty"`
}

func (a *api) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rm := a.roomFor(req.RoomCode)
	if rm == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "room not found"})
		return
	}

	playerID := uuid.NewString()
	res := exec(rm, engine.Command{
		Type:     engine.CmdJoinGame,
		PlayerID: playerID,
		Name:     req.Name,
		Role:     engine.Role(req.Role),
	})
	if res.Err != nil {
		writeError(w, res.Err)
		return
	}

	a.log.Info("player joined",
		zap.String("player", playerID),
		zap.String("room", rm.Code()),
		zap.String("role", req.Role))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"player":    res.State.Players[playerID],
		"gameState": res.State,
	})
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		playerID = r.Header.Get("X-Player-ID")
	}
	if playerID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Player ID is required"})
		return
	}

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

	player, ok := view.State.Players[playerID]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Player not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"player": player})
}

type selectCharacterRequest struct {
	PlayerID       string `json:"playerId"`
	Character      string `json:"character"`
	CharacterClass string `json:"characterClass"`
	RoomCode       string `json:"roomCode,omitempty"`
}

func (a *api) selectCharacter(w http.ResponseWriter, r *http.Request) {
	var req selectCharacterRequest
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

	res := exec(rm, engine.Command{
		Type:      engine.CmdSelectCharacter,
		PlayerID:  req.PlayerID,
		Character: req.Character,
		Class:     engine.Class(req.CharacterClass),
	})
	if res.Err != nil {
		writeError(w, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"player":  res.State.Players[req.PlayerID],
	})
}

type toggleReadyRequest struct {
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode,omitempty"`
}

func (a *api) toggleReady(w http.ResponseWriter, r *http.Request) {
	var req toggleReadyRequest
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

	res := exec(rm, engine.Command{Type: engine.CmdToggleReady, PlayerID: req.PlayerID})
	if res.Err != nil {
		writeError(w, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"player":  res.State.Players[req.PlayerID],
	})
}
