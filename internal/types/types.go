package types

import "github.com/DoyleJ11/party-lobby-backend/internal/engine"

// ClientMessage is what a connected player may send over the socket. The
// player identity is fixed at subscription time; messages only carry the
// action payload.
type ClientMessage struct {
	Type      string `json:"type"` // "SelectCharacter" | "ToggleReady" | "JoinTeam" | "BeginSelection" | "ReadyCheck" | "StartGame"
	Character string `json:"character,omitempty"`
	Class     string `json:"class,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
}

type Readiness struct {
	Ready int `json:"ready"`
	Total int `json:"total"`
}

type ServerMessage struct {
	Type      string        `json:"type"` // "StateSnapshot" | "Error"
	Version   int           `json:"version,omitempty"`
	State     *engine.State `json:"state,omitempty"`
	Readiness *Readiness    `json:"readiness,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func SnapshotMessage(version int, state engine.State) ServerMessage {
	ready, total := state.Readiness()
	return ServerMessage{
		Type:      "StateSnapshot",
		Version:   version,
		State:     &state,
		Readiness: &Readiness{Ready: ready, Total: total},
	}
}
