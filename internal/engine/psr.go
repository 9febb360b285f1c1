// Piloting skill rolls and pilot injuries.
package engine

import (
	"slices"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
)

// PendingRoll is a piloting roll queued for the end of the phase.
// Cumulative modifiers apply to every other roll the unit makes that phase.
type PendingRoll struct {
	Unit       units.ID `json:"unit" msgpack:"unit"`
	Mod        int      `json:"mod" msgpack:"mod"`
	Reason     string   `json:"reason" msgpack:"reason"`
	Cumulative bool     `json:"cumulative,omitempty" msgpack:"cumulative"`
}

// heavyDamage is the damage in one phase that forces a piloting roll.
const heavyDamage = 20

// consciousnessTargets is the 2d6 needed to stay awake, by pilot damage.
var consciousnessTargets = [...]int{0, 3, 5, 7, 10, 11}

// addRoll queues a piloting roll. Only mechs make them.
func (s *Session) addRoll(u *units.Unit, mod int, reason string, cumulative bool) {
	if u.Kind != units.Mech {
		return
	}
	s.Pending = append(s.Pending, PendingRoll{Unit: u.ID, Mod: mod, Reason: reason, Cumulative: cumulative})
}

// pilotingTarget is the base piloting target with damage modifiers.
func (s *Session) pilotingTarget(u *units.Unit) rules.TargetRoll {
	t := rules.NewTarget(u.Piloting, "piloting")
	if u.Kind != units.Mech {
		return t
	}
	switch {
	case u.Unconscious:
		t.MarkImpossible("pilot unconscious")
	case u.Shutdown:
		t.MarkImpossible("shut down")
	case u.Crits.GyroHits >= 2:
		t.MarkImpossible("gyro destroyed")
	}
	t.Add(u.Crits.GyroHits*3, "gyro damage")
	for _, leg := range []units.LocationID{units.RightLeg, units.LeftLeg} {
		if u.Locations[leg].Destroyed {
			t.Add(5, "leg destroyed")
			continue
		}
		hip, upper, lower, foot := u.LegActuatorHits(leg)
		t.Add(hip*2, "hip")
		t.Add(upper+lower+foot, "leg actuators")
	}
	return t
}

// rollPiloting rolls against a target and reports the result.
func (s *Session) rollPiloting(u *units.Unit, t rules.TargetRoll, reason string, log *Log) bool {
	if !t.NeedsRoll() {
		ok := t.Succeeds(0)
		log.Add(u.ID, "%s piloting roll to %s: %s", u, reason, t)
		return ok
	}
	roll := s.roll2d6()
	ok := t.Succeeds(roll)
	outcome := "fails"
	if ok {
		outcome = "succeeds"
	}
	log.Add(u.ID, "%s needs %d to %s (%s), rolls %d: %s", u, t.Value(), reason, t.Desc(), roll, outcome)
	return ok
}

// checkWhileMoving makes an immediate piloting roll. Units other than mechs
// roll with their driving skill and never fall from the result.
func (s *Session) checkWhileMoving(u *units.Unit, mod int, reason string, log *Log) bool {
	t := s.pilotingTarget(u)
	t.Add(mod, reason)
	return s.rollPiloting(u, t, "avoid falling while "+reason, log)
}

// resolvePendingRolls makes the queued piloting rolls at phase end. A unit
// stops rolling at its first failure.
func (s *Session) resolvePendingRolls(log *Log) {
	for _, u := range s.Units {
		if u.Kind == units.Mech && u.Active() && u.DamageThisPhase >= heavyDamage {
			s.addRoll(u, 1, "heavy damage", true)
		}
	}
	byUnit := make(map[units.ID][]PendingRoll)
	for _, r := range s.Pending {
		byUnit[r.Unit] = append(byUnit[r.Unit], r)
	}
	s.Pending = nil
	for _, u := range s.Units {
		rolls := byUnit[u.ID]
		if len(rolls) == 0 || !u.Active() || !u.OnBoard() || u.Prone {
			continue
		}
		base := s.pilotingTarget(u)
		for _, r := range rolls {
			if r.Cumulative {
				base.Add(r.Mod, r.Reason)
			}
		}
		for _, r := range rolls {
			t := base
			t.Mods = slices.Clone(base.Mods)
			if !r.Cumulative {
				t.Add(r.Mod, r.Reason)
			}
			if !s.rollPiloting(u, t, "avoid falling ("+r.Reason+")", log) {
				s.fall(u, 0, log)
				break
			}
		}
	}
}

// pilotDamage injures a mech pilot and tests consciousness.
func (s *Session) pilotDamage(u *units.Unit, n int, reason string, log *Log) {
	if n <= 0 || u.Kind != units.Mech || !u.Active() {
		return
	}
	u.PilotDamage += n
	log.Add(u.ID, "the pilot of %s takes %d damage from %s (%d total)", u, n, reason, u.PilotDamage)
	s.queueUnit(u)
	if s.checkDestroyed(u, log) {
		return
	}
	if !u.Unconscious {
		s.consciousnessRoll(u, log)
	}
}

// consciousnessRoll keeps an injured pilot awake or knocks them out.
func (s *Session) consciousnessRoll(u *units.Unit, log *Log) bool {
	target := consciousnessTargets[min(u.PilotDamage, len(consciousnessTargets)-1)]
	roll := s.roll2d6()
	if roll >= target {
		log.Add(u.ID, "the pilot of %s stays conscious (needs %d, rolls %d)", u, target, roll)
		return true
	}
	u.Unconscious = true
	log.Add(u.ID, "the pilot of %s is knocked unconscious (needs %d, rolls %d)", u, target, roll)
	s.queueUnit(u)
	return false
}

// wakePilots gives unconscious pilots a chance to come round.
func (s *Session) wakePilots(log *Log) {
	for _, u := range s.Units {
		if !u.Unconscious || !u.Active() {
			continue
		}
		target := consciousnessTargets[min(u.PilotDamage, len(consciousnessTargets)-1)]
		roll := s.roll2d6()
		if roll >= target {
			u.Unconscious = false
			log.Add(u.ID, "the pilot of %s regains consciousness (needs %d, rolls %d)", u, target, roll)
			s.queueUnit(u)
		}
	}
}
