package engine

import "slices"

const DefaultTeamCapacity = 5

func NewEmptyState() State {
	return NewState(Rules{TeamCapacity: DefaultTeamCapacity})
}

func NewState(rules Rules) State {
	if rules.TeamCapacity <= 0 {
		rules.TeamCapacity = DefaultTeamCapacity
	}
	return State{
		Phase:   PhaseLobby,
		Players: map[string]*Player{},
		Teams:   map[string]*Team{},
		Rules:   rules,
	}
}

func (s State) clone() State {
	ns := State{
		Phase:   s.Phase,
		Players: make(map[string]*Player, len(s.Players)),
		Teams:   make(map[string]*Team, len(s.Teams)),
		GM:      s.GM,
		Rules:   s.Rules,
	}
	for id, p := range s.Players {
		cp := *p
		if p.Stats != nil {
			st := *p.Stats
			cp.Stats = &st
		}
		ns.Players[id] = &cp
	}
	for id, t := range s.Teams {
		ct := *t
		ct.Members = slices.Clone(t.Members)
		ns.Teams[id] = &ct
	}
	return ns
}

// detachFromTeam pulls a player out of their current team, dropping the
// team entirely once its last member leaves.
func (s *State) detachFromTeam(p *Player) {
	if p.Team == "" {
		return
	}
	if team, ok := s.Teams[p.Team]; ok {
		team.Members = slices.DeleteFunc(team.Members, func(id string) bool { return id == p.ID })
		if len(team.Members) == 0 {
			delete(s.Teams, team.ID)
		}
	}
	p.Team = ""
}

// Readiness recomputes the ready/total summary from the player mapping.
// It is derived on every call, never cached on the state.
func (s State) Readiness() (ready, total int) {
	for _, p := range s.Players {
		total++
		if p.Ready {
			ready++
		}
	}
	return ready, total
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
