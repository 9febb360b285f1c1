// Victory evaluation.
package engine

import (
	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
)

// VictoryResult names the winner. Team is set when a whole team won.
type VictoryResult struct {
	Winner units.PlayerID `json:"winner,omitempty" msgpack:"winner"`
	Team   int            `json:"team,omitempty" msgpack:"team"`
	Draw   bool           `json:"draw,omitempty" msgpack:"draw"`
}

// ForcedVictory is an administrative win.
type ForcedVictory struct {
	Player units.PlayerID `json:"player" msgpack:"player"`
	Team   int            `json:"team" msgpack:"team"`
}

// EvaluateVictory decides whether the game is over. A forced victory wins
// outright; otherwise the last side standing wins when victory checks are
// on, and a met end condition closes the game with whatever the tally says
// or a draw.
func (s *Session) EvaluateVictory() *VictoryResult {
	if s.Forced != nil {
		return &VictoryResult{Winner: s.Forced.Player, Team: s.Forced.Team}
	}
	tally, live := s.tally()
	var result *VictoryResult
	if s.Options.CheckVictory {
		result = tally
	}
	if s.endCondition != nil && s.endCondition.Met(s.roundEnv(live)) {
		if tally == nil {
			tally = &VictoryResult{Draw: true}
		}
		result = tally
	}
	return result
}

// tally counts live units per non-observer player and returns a result when
// one player or one team remains.
func (s *Session) tally() (*VictoryResult, map[int]int) {
	live := make(map[int]int)
	var alive []*Player
	for _, p := range s.Players {
		if p.Observer {
			continue
		}
		n := len(s.OwnedBy(p.ID))
		live[int(p.ID)] = n
		if n > 0 {
			alive = append(alive, p)
		}
	}
	switch len(alive) {
	case 0:
		return &VictoryResult{Draw: true}, live
	case 1:
		return &VictoryResult{Winner: alive[0].ID, Team: alive[0].Team}, live
	}
	team := alive[0].Team
	if team == 0 {
		return nil, live
	}
	for _, p := range alive[1:] {
		if p.Team != team {
			return nil, live
		}
	}
	return &VictoryResult{Team: team}, live
}

func (s *Session) roundEnv(live map[int]int) rules.RoundEnv {
	destroyed := 0
	for _, u := range s.Graveyard {
		if u.Destroyed {
			destroyed++
		}
	}
	return rules.RoundEnv{
		Round:     s.Round,
		Live:      live,
		Players:   len(live),
		Destroyed: destroyed,
	}
}
