package engine

import (
	"errors"
	"fmt"
	"strings"
)

var ErrValidation = errors.New("invalid input")
var ErrNotFound = errors.New("not found")
var ErrTeamFull = errors.New("team is full")
var ErrInvalidPhase = errors.New("invalid phase")
var ErrNotReady = errors.New("players not ready")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Role string

const (
	RolePlayer Role = "player"
	RoleGM     Role = "gm"
)

type Phase string

const (
	PhaseLobby           Phase = "lobby"
	PhaseCharacterSelect Phase = "character_select"
	PhaseReadyCheck      Phase = "ready_check"
	PhaseInGame          Phase = "in_game"
)

type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	Ready     bool   `json:"ready"`
	Team      string `json:"team"`
	Character string `json:"character,omitempty"`
	Class     Class  `json:"class,omitempty"`
	Stats     *Stats `json:"stats,omitempty"`
}

type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type Rules struct {
	TeamCapacity int `json:"team_capacity"`
}

// State is the authoritative session state for one room. Apply never
// mutates its input; the returned state shares no mutable data with it.
type State struct {
	Phase   Phase              `json:"phase"`
	Players map[string]*Player `json:"players"`
	Teams   map[string]*Team   `json:"teams"`
	GM      string             `json:"gm,omitempty"`
	Rules   Rules              `json:"rules"`
}

type CommandType string

const (
	CmdJoinGame            CommandType = "JoinGame"
	CmdLeaveGame           CommandType = "LeaveGame"
	CmdSelectCharacter     CommandType = "SelectCharacter"
	CmdToggleReady         CommandType = "ToggleReady"
	CmdCreateTeam          CommandType = "CreateTeam"
	CmdAssignTeam          CommandType = "AssignTeam"
	CmdBeginSelection      CommandType = "BeginSelection"
	CmdAdvanceToReadyCheck CommandType = "AdvanceToReadyCheck"
	CmdStartGame           CommandType = "StartGame"
)

type Command struct {
	Type      CommandType
	PlayerID  string
	Name      string
	Role      Role
	Character string
	Class     Class
	TeamID    string
	TeamName  string
}

type EventType string

const (
	EvtPlayerJoined      EventType = "PlayerJoined"
	EvtPlayerLeft        EventType = "PlayerLeft"
	EvtCharacterSelected EventType = "CharacterSelected"
	EvtReadyToggled      EventType = "ReadyToggled"
	EvtTeamCreated       EventType = "TeamCreated"
	EvtTeamAssigned      EventType = "TeamAssigned"
	EvtPhaseChanged      EventType = "PhaseChanged"
)

type Event struct {
	Type     EventType
	PlayerID string
	TeamID   string
	Phase    Phase
}

// Apply executes a command against the state and returns the events it
// produced plus the successor state. On error the input state comes back
// untouched; a rejected command never leaves a partial mutation behind.
// After every accepted mutation the automatic phase transitions of
// autoAdvance are evaluated before returning.
func Apply(s State, cmd Command) ([]Event, State, error) {
	ns := s.clone()

	switch cmd.Type {
	case CmdJoinGame:
		name := strings.TrimSpace(cmd.Name)
		if name == "" {
			return nil, s, fmt.Errorf("%w: name is required", ErrValidation)
		}
		if cmd.Role != RolePlayer && cmd.Role != RoleGM {
			return nil, s, fmt.Errorf("%w: role must be %q or %q", ErrValidation, RolePlayer, RoleGM)
		}
		if cmd.PlayerID == "" {
			return nil, s, fmt.Errorf("%w: player id is required", ErrValidation)
		}
		if _, exists := ns.Players[cmd.PlayerID]; exists {
			return nil, s, fmt.Errorf("%w: player %s already joined", ErrValidation, cmd.PlayerID)
		}
		ns.Players[cmd.PlayerID] = &Player{
			ID:   cmd.PlayerID,
			Name: name,
			Role: cmd.Role,
		}
		// First gm in becomes the room's GM.
		if cmd.Role == RoleGM && ns.GM == "" {
			ns.GM = cmd.PlayerID
		}
		events := []Event{{Type: EvtPlayerJoined, PlayerID: cmd.PlayerID}}
		return ns.autoAdvance(events), ns, nil

	case CmdLeaveGame:
		p, ok := ns.Players[cmd.PlayerID]
		if !ok {
			return nil, s, fmt.Errorf("%w: player %s", ErrNotFound, cmd.PlayerID)
		}
		ns.detachFromTeam(p)
		delete(ns.Players, p.ID)
		if ns.GM == p.ID {
			ns.GM = ""
		}
		events := []Event{{Type: EvtPlayerLeft, PlayerID: cmd.PlayerID}}
		return ns.autoAdvance(events), ns, nil

	case CmdSelectCharacter:
		p, ok := ns.Players[cmd.PlayerID]
		if !ok {
			return nil, s, fmt.Errorf("%w: player %s", ErrNotFound, cmd.PlayerID)
		}
		if strings.TrimSpace(cmd.Character) == "" || cmd.Class == "" {
			return nil, s, fmt.Errorf("%w: character and class are required", ErrValidation)
		}
		p.Character = strings.TrimSpace(cmd.Character)
		p.Class = cmd.Class
		stats := StatsForClass(cmd.Class)
		p.Stats = &stats
		events := []Event{{Type: EvtCharacterSelected, PlayerID: p.ID}}
		return ns.autoAdvance(events), ns, nil

	case CmdToggleReady:
		p, ok := ns.Players[cmd.PlayerID]
		if !ok {
			return nil, s, fmt.Errorf("%w: player %s", ErrNotFound, cmd.PlayerID)
		}
		p.Ready = !p.Ready
		events := []Event{{Type: EvtReadyToggled, PlayerID: p.ID}}
		return ns.autoAdvance(events), ns, nil

	case CmdCreateTeam:
		name := strings.TrimSpace(cmd.TeamName)
		if name == "" {
			return nil, s, fmt.Errorf("%w: team name is required", ErrValidation)
		}
		if cmd.TeamID == "" {
			return nil, s, fmt.Errorf("%w: team id is required", ErrValidation)
		}
		if _, exists := ns.Teams[cmd.TeamID]; exists {
			return nil, s, fmt.Errorf("%w: team %s already exists", ErrValidation, cmd.TeamID)
		}
		ns.Teams[cmd.TeamID] = &Team{ID: cmd.TeamID, Name: name, Members: []string{}}
		events := []Event{{Type: EvtTeamCreated, TeamID: cmd.TeamID}}
		return ns.autoAdvance(events), ns, nil

	case CmdAssignTeam:
		p, ok := ns.Players[cmd.PlayerID]
		if !ok {
			return nil, s, fmt.Errorf("%w: player %s", ErrNotFound, cmd.PlayerID)
		}
		team, ok := ns.Teams[cmd.TeamID]
		if !ok {
			return nil, s, fmt.Errorf("%w: team %s", ErrNotFound, cmd.TeamID)
		}
		if p.Team == team.ID {
			// Re-assigning to the same team is a no-op, not an error.
			return ns.autoAdvance(nil), ns, nil
		}
		if len(team.Members) >= ns.Rules.TeamCapacity {
			return nil, s, fmt.Errorf("%w: team %s holds %d players", ErrTeamFull, team.ID, ns.Rules.TeamCapacity)
		}
		// Leaving the old team and joining the new one happen inside one
		// Apply, so no observer ever sees the player on two teams.
		ns.detachFromTeam(p)
		team.Members = append(team.Members, p.ID)
		p.Team = team.ID
		events := []Event{{Type: EvtTeamAssigned, PlayerID: p.ID, TeamID: team.ID}}
		return ns.autoAdvance(events), ns, nil

	case CmdBeginSelection:
		if err := ns.requireGM(cmd.PlayerID); err != nil {
			return nil, s, err
		}
		if ns.Phase != PhaseLobby {
			return nil, s, fmt.Errorf("%w: selection already begun (phase %s)", ErrInvalidPhase, ns.Phase)
		}
		ns.Phase = PhaseCharacterSelect
		events := []Event{{Type: EvtPhaseChanged, Phase: ns.Phase}}
		return ns.autoAdvance(events), ns, nil

	case CmdAdvanceToReadyCheck:
		if err := ns.requireGM(cmd.PlayerID); err != nil {
			return nil, s, err
		}
		if ns.Phase != PhaseCharacterSelect {
			return nil, s, fmt.Errorf("%w: cannot start ready check from phase %s", ErrInvalidPhase, ns.Phase)
		}
		ns.Phase = PhaseReadyCheck
		events := []Event{{Type: EvtPhaseChanged, Phase: ns.Phase}}
		return ns.autoAdvance(events), ns, nil

	case CmdStartGame:
		if err := ns.requireGM(cmd.PlayerID); err != nil {
			return nil, s, err
		}
		if ns.Phase != PhaseReadyCheck {
			return nil, s, fmt.Errorf("%w: cannot start game from phase %s", ErrInvalidPhase, ns.Phase)
		}
		if !ns.allReady() {
			ready, total := ns.Readiness()
			return nil, s, fmt.Errorf("%w: %d of %d ready", ErrNotReady, ready, total)
		}
		ns.Phase = PhaseInGame
		events := []Event{{Type: EvtPhaseChanged, Phase: ns.Phase}}
		return events, ns, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func (s *State) requireGM(playerID string) error {
	if s.GM == "" {
		return fmt.Errorf("%w: no gm in room", ErrInvalidPhase)
	}
	if playerID != s.GM {
		return fmt.Errorf("%w: only the gm may do this", ErrInvalidPhase)
	}
	return nil
}

// autoAdvance checks whether an automatic phase transition condition is
// now satisfied and performs it, appending the phase change to events.
// Phases only ever move forward; a reset back to the lobby is a room
// re-creation, not a transition.
func (s *State) autoAdvance(events []Event) []Event {
	switch s.Phase {
	case PhaseCharacterSelect:
		if s.allCharactersChosen() {
			s.Phase = PhaseReadyCheck
			events = append(events, Event{Type: EvtPhaseChanged, Phase: s.Phase})
			// Fall through: the room may already be fully ready.
			return s.autoAdvance(events)
		}
	case PhaseReadyCheck:
		if s.allReady() {
			s.Phase = PhaseInGame
			events = append(events, Event{Type: EvtPhaseChanged, Phase: s.Phase})
		}
	}
	return events
}

// allCharactersChosen reports whether every non-GM player has locked in a
// character and class. Empty rooms don't advance.
func (s *State) allCharactersChosen() bool {
	chosen := 0
	for _, p := range s.Players {
		if p.Role == RoleGM {
			continue
		}
		if p.Character == "" || p.Class == "" {
			return false
		}
		chosen++
	}
	return chosen > 0
}

func (s *State) allReady() bool {
	if len(s.Players) == 0 {
		return false
	}
	for _, p := range s.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}
