package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/party-lobby-backend/internal/engine"
	"github.com/DoyleJ11/party-lobby-backend/internal/hub"
	"github.com/DoyleJ11/party-lobby-backend/internal/room"
	"github.com/DoyleJ11/party-lobby-backend/internal/types"
)

// Handler upgrades GET /ws?code=...&player_id=... to a room subscription.
// The player must already be in the room; the id binds the connection, so
// a drop removes the player from the game and tells everyone else.
// outboxSize is the per-client snapshot buffer; a client that falls this
// far behind is dropped by the room.
func Handler(h *hub.Hub, outboxSize int, log *zap.Logger) http.HandlerFunc {
	if outboxSize <= 0 {
		outboxSize = 8
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		playerID := r.URL.Query().Get("player_id")
		if playerID == "" {
			http.Error(w, "missing player_id", http.StatusBadRequest)
			return
		}

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
		rm := <-reply
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan room.Snapshot, outboxSize)
		clientID := uuid.NewString()

		if err := rm.Attach(clientID, playerID, out); err != nil {
			_ = conn.Write(r.Context(), websocket.MessageText,
				[]byte(`{"type":"Error","error":"player not in room"}`))
			conn.Close(websocket.StatusPolicyViolation, "player not in room")
			return
		}
		defer rm.Detach(clientID, playerID)

		log.Info("socket subscribed",
			zap.String("room", code),
			zap.String("player", playerID))

		// connCtx ends the reader when the writer does: the room closing
		// the outbox (reset, shutdown, slow-client drop) must take the
		// whole connection down, not just the snapshot stream.
		connCtx, connCancel := context.WithCancel(r.Context())
		defer connCancel()

		// Writer goroutine
		go func() {
			defer connCancel()
			for snap := range out {
				payload, _ := json.Marshal(types.SnapshotMessage(snap.Version, snap.State))
				ctx, cancel := context.WithTimeout(connCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(connCtx, 60*time.Second)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (room.Unsubscribe in defer):
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"bad json"}`))
				continue
			}

			cmd, ok := toCommand(playerID, cm)
			if !ok {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"unknown type"}`))
				continue
			}

			if result := rm.Do(cmd); result.Err != nil {
				if errors.Is(result.Err, room.ErrClosed) {
					// Room went away mid-command; the closed outbox is
					// already tearing the connection down.
					return
				}
				msg, _ := json.Marshal(types.ServerMessage{Type: "Error", Error: result.Err.Error()})
				_ = conn.Write(r.Context(), websocket.MessageText, msg)
			}
		}
	}
}

func toCommand(playerID string, m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case "SelectCharacter":
		return engine.Command{Type: engine.CmdSelectCharacter, PlayerID: playerID, Character: m.Character, Class: engine.Class(m.Class)}, true
	case "ToggleReady":
		return engine.Command{Type: engine.CmdToggleReady, PlayerID: playerID}, true
	case "JoinTeam":
		return engine.Command{Type: engine.CmdAssignTeam, PlayerID: playerID, TeamID: m.TeamID}, true
	case "BeginSelection":
		return engine.Command{Type: engine.CmdBeginSelection, PlayerID: playerID}, true
	case "ReadyCheck":
		return engine.Command{Type: engine.CmdAdvanceToReadyCheck, PlayerID: playerID}, true
	case "StartGame":
		return engine.Command{Type: engine.CmdStartGame, PlayerID: playerID}, true
	default:
		return engine.Command{}, false
	}
}
