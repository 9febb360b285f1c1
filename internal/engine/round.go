// Round boundaries: per-round resets and initiative at the start, the
// environment and victory check at the end.
package engine

import (
	"log/slog"
)

// startRound opens a round. The initiative phase right after the lounge
// exchange belongs to the deployment round 0; every later one begins a new
// round.
func (s *Session) startRound(prev Phase) {
	if prev != PhaseExchange {
		s.Round++
	}
	s.roundPlayed = false
	s.Reports = nil
	s.Pending = nil
	s.Attacks = nil
	for _, u := range s.Units {
		u.ResetRound()
		if u.Crits.CrewStunned > 0 {
			u.Crits.CrewStunned--
		}
		s.queueUnit(u)
	}
	for _, id := range s.Board.BuildingIDs() {
		s.Board.Buildings[id].StartRound()
	}
	s.rollInitiative()
	s.emit(Event{Type: EventInitiative, Data: s.Order})
	slog.Info("round started", "session", s.ID, "round", s.Round, "units", len(s.Units))
}

// endRound resolves heat, hazards, fire, collapses and wind, then checks
// for victory.
func (s *Session) endRound() {
	log := NewLog(s.Round, PhaseEnd)
	s.resolveHeat(log)
	s.resolveHazards(log)
	if s.Options.FireEnabled {
		s.resolveFire(log)
	}
	s.resolveCollapses(log)
	if s.Wind.Shift(s.dice) {
		log.Add(0, "the wind shifts: %s", s.Wind)
		s.emit(Event{Type: EventWind, Data: s.Wind})
	}
	s.wakePilots(log)
	s.commitLog(log)
	s.removeDoomed()

	if s.Victory == nil {
		s.Victory = s.EvaluateVictory()
	}
	if s.Victory != nil {
		s.emit(Event{Type: EventVictory, Data: s.Victory})
		slog.Info("game decided", "session", s.ID, "round", s.Round,
			"winner", s.Victory.Winner, "team", s.Victory.Team, "draw", s.Victory.Draw)
	}
	if s.OnRound != nil {
		s.OnRound(s.Round, s.Reports)
	}
}
