package httpapi

import (
	"crypto/rand"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/party-lobby-backend/internal/engine"
	"github.com/DoyleJ11/party-lobby-backend/internal/hub"
	"github.com/DoyleJ11/party-lobby-backend/internal/room"
	"github.com/DoyleJ11/party-lobby-backend/internal/types"
)

func GenerateCode(length int) (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func (a *api) createRoom(w http.ResponseWriter, _ *http.Request) {
	var code string
	for {
		c, err := GenerateCode(a.codeLen)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to generate code"})
			return
		}
		reply := make(chan *room.Room, 1)
		a.hub.Inbox() <- hub.GetRoom{Code: c, Reply: reply}
		if <-reply == nil {
			code = c
			break
		}
		a.log.Debug("collision on room code, regenerating")
	}

	reply := make(chan *room.Room, 1)
	a.hub.Inbox() <- hub.EnsureRoom{Code: code, State: engine.NewState(a.rules), Reply: reply}
	if <-reply == nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to create room"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"code": code})
}

func (a *api) roomState(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	reply := make(chan *room.Room, 1)
	a.hub.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
	rm := <-reply
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
		"code":      code,
		"version":   view.Version,
		"clients":   view.NumClients,
		"state":     view.State,
		"readiness": types.Readiness{Ready: ready, Total: total},
	})
}

// resetRoom wipes the room back to an empty lobby. Subscribers of the old
// room get their outboxes closed; clients are expected to reconnect.
func (a *api) resetRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	reply := make(chan *room.Room, 1)
	a.hub.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
	if <-reply == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "room not found"})
		return
	}

	resetReply := make(chan *room.Room, 1)
	a.hub.Inbox() <- hub.ResetRoom{Code: code, State: engine.NewState(a.rules), Reply: resetReply}
	if <-resetReply == nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to reset room"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "code": code})
}
