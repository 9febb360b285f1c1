// Double-blind visibility.
package engine

import (
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

// CanSee reports whether a player receives updates about a unit. Without
// double-blind every player sees everything.
func (s *Session) CanSee(p units.PlayerID, u *units.Unit) bool {
	if !s.Options.DoubleBlind {
		return true
	}
	pl := s.Player(p)
	if pl == nil {
		return false
	}
	if pl.Observer || u.Owner == p {
		return true
	}
	if s.Options.TeamVision && pl.Team != 0 && s.teamOf(u.Owner) == pl.Team {
		return true
	}
	if !u.OnBoard() {
		return false
	}
	for _, spotter := range s.Units {
		if !s.spotsFor(p, pl.Team, spotter) {
			continue
		}
		if s.detects(spotter, u) {
			return true
		}
	}
	return false
}

// canSeeID also resolves graveyard units, which stay visible to their owner
// and allies.
func (s *Session) canSeeID(p units.PlayerID, id units.ID) bool {
	if u := s.Unit(id); u != nil {
		return s.CanSee(p, u)
	}
	for _, u := range s.Graveyard {
		if u.ID == id {
			return u.Owner == p || !s.Enemies(u.Owner, p)
		}
	}
	return false
}

func (s *Session) spotsFor(p units.PlayerID, team int, spotter *units.Unit) bool {
	if !spotter.Active() || !spotter.OnBoard() || spotter.TransportedByID != 0 {
		return false
	}
	if spotter.Owner == p {
		return true
	}
	return s.Options.TeamVision && team != 0 && s.teamOf(spotter.Owner) == team
}

// detects is a visual range and line of sight check.
func (s *Session) detects(spotter, target *units.Unit) bool {
	d := world.Distance(spotter.Pos(), target.Pos())
	if d > s.Options.VisualRange {
		return false
	}
	if d <= 1 {
		return true
	}
	return s.Board.LineOfSight(spotter.Pos(), target.Pos(), spotter.Height, target.Height).Clear
}
