// Phase state machine: the fixed per-round phase sequence and its transitions.
package engine

import (
	"log/slog"
)

// Phase is one stage of a round.
type Phase uint8

const (
	PhaseLounge Phase = iota
	PhaseExchange
	PhaseDeployment
	PhaseInitiative
	PhaseMovement
	PhaseMovementReport
	PhaseFiring
	PhaseFiringReport
	PhasePhysical
	PhaseEnd
	PhaseVictory
)

var phaseNames = [...]string{
	"lounge", "exchange", "deployment", "initiative", "movement", "movement report",
	"firing", "firing report", "physical", "end", "victory",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// HasTurns reports phases driven by a turn queue.
func (p Phase) HasTurns() bool {
	switch p {
	case PhaseDeployment, PhaseMovement, PhaseFiring, PhasePhysical:
		return true
	}
	return false
}

// IsReport reports the phases that only show the previous phase's results.
func (p Phase) IsReport() bool {
	return p == PhaseMovementReport || p == PhaseFiringReport
}

// transition is one row of the phase table. next picks the following phase;
// immediate phases run their work on entry and never wait.
type transition struct {
	next      func(s *Session) Phase
	immediate bool
}

func always(p Phase) func(*Session) Phase {
	return func(*Session) Phase { return p }
}

var phaseTable = map[Phase]transition{
	PhaseLounge:   {next: always(PhaseExchange)},
	PhaseExchange: {next: always(PhaseInitiative)},
	PhaseDeployment: {next: func(s *Session) Phase {
		if s.Round == 0 {
			return PhaseInitiative
		}
		return PhaseMovement
	}},
	PhaseInitiative: {immediate: true, next: func(s *Session) Phase {
		if s.Round == 0 || s.hasUndeployed() {
			return PhaseDeployment
		}
		return PhaseMovement
	}},
	PhaseMovement:       {next: always(PhaseMovementReport)},
	PhaseMovementReport: {next: always(PhaseFiring)},
	PhaseFiring:         {next: always(PhaseFiringReport)},
	PhaseFiringReport:   {next: always(PhasePhysical)},
	PhasePhysical:       {next: always(PhaseEnd)},
	PhaseEnd: {immediate: true, next: func(s *Session) Phase {
		if s.Victory != nil {
			return PhaseVictory
		}
		return PhaseInitiative
	}},
	PhaseVictory: {next: always(PhaseLounge)},
}

// maxPhaseHops bounds how many phases one advance may pass through.
const maxPhaseHops = 24

// nextPhase applies the transition table.
func (s *Session) nextPhase(p Phase) Phase {
	return phaseTable[p].next(s)
}

// playable reports whether a phase should be entered rather than skipped.
func (s *Session) playable(p Phase) bool {
	switch {
	case p.HasTurns():
		return len(s.Turns) > 0
	case p == PhaseMovementReport:
		return s.hasReports(PhaseMovement)
	case p == PhaseFiringReport:
		return s.hasReports(PhaseFiring)
	}
	return true
}

// immediate reports whether the phase runs without waiting. An end phase
// after a round in which nothing could act waits for ready instead, so an
// empty roster cannot spin the round counter.
func (s *Session) immediate(p Phase) bool {
	if p == PhaseEnd && !s.roundPlayed && s.Victory == nil {
		return false
	}
	return phaseTable[p].immediate
}

// enterPhase moves the session into p, skipping unplayable phases and running
// immediate ones, until it reaches a phase that waits for players.
func (s *Session) enterPhase(p Phase) {
	for hop := 0; ; hop++ {
		if hop >= maxPhaseHops {
			slog.Warn("phase advance did not settle", "anomaly", true, "phase", p, "round", s.Round)
			return
		}
		s.preparePhase(p)
		if !s.playable(p) {
			slog.Debug("phase skipped", "phase", p, "round", s.Round)
			if p.HasTurns() {
				// Charges declared while moving resolve even when nobody
				// gets a physical turn.
				s.finishPhase(p)
			}
			p = s.nextPhase(p)
			continue
		}
		prev := s.Phase
		s.Phase = p
		s.resetReady()
		s.emit(Event{Type: EventPhase, Data: PhaseChange{From: prev, To: p}})
		slog.Info("phase changed", "round", s.Round, "phase", p)
		if s.OnPhase != nil {
			s.OnPhase(p)
		}
		if s.immediate(p) {
			s.executePhase(p, prev)
			p = s.nextPhase(p)
			continue
		}
		if p.HasTurns() {
			s.roundPlayed = true
			s.TurnIndex = 0
			s.emitTurns()
		}
		return
	}
}

// endPhase finishes the current phase and advances.
func (s *Session) endPhase() {
	p := s.Phase
	s.finishPhase(p)
	s.enterPhase(s.nextPhase(p))
}

// preparePhase resets per-phase state and rebuilds the turn queue. Running it
// twice without intervening orders yields the same queue.
func (s *Session) preparePhase(p Phase) {
	s.Turns = s.Turns[:0]
	s.TurnIndex = 0
	switch p {
	case PhaseLounge:
		return
	case PhaseDeployment, PhaseMovement, PhaseFiring, PhasePhysical:
		for _, u := range s.Units {
			u.ResetPhase()
		}
		s.Turns = s.generateTurns(p)
	}
}

// executePhase runs the work of an immediate phase.
func (s *Session) executePhase(p, prev Phase) {
	switch p {
	case PhaseInitiative:
		s.startRound(prev)
	case PhaseEnd:
		s.endRound()
	}
}

// finishPhase resolves everything a waiting phase accumulated.
func (s *Session) finishPhase(p Phase) {
	log := NewLog(s.Round, p)
	switch p {
	case PhaseLounge:
		s.startGame()
	case PhaseMovement:
		s.resolvePendingRolls(log)
	case PhaseFiring:
		s.resolveWeaponAttacks(log)
		s.resolvePendingRolls(log)
	case PhasePhysical:
		s.resolvePhysicalAttacks(log)
		s.resolvePendingRolls(log)
	case PhaseEnd:
		// Only reached when the end phase waited for ready.
		s.endRound()
	case PhaseVictory:
		s.resetToLounge()
	}
	s.commitLog(log)
	s.removeDoomed()
}
