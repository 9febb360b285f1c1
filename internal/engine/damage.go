// Damage allocation: building shielding, armor, structure, transfer and the
// single destruction rule.
package engine

import (
	"log/slog"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
)

// damageOpts varies how a hit is applied.
type damageOpts struct {
	attack    bool // Buildings shield their occupants
	internal  bool // Skips armor, for ammunition explosions
	contained bool // Stops at the hit location (CASE)
}

// hitFor rolls a hit location on the side of u.
func (s *Session) hitFor(u *units.Unit, side units.Side) units.HitData {
	switch u.Kind {
	case units.BattleArmor:
		return u.TrooperLocation(s.d6())
	case units.Infantry:
		return u.HitLocation(side, 7)
	}
	return u.HitLocation(side, s.roll2d6())
}

// damageGroups applies total damage in clusters of size, each on its own
// hit location.
func (s *Session) damageGroups(u *units.Unit, side units.Side, total, size int, log *Log) int {
	dealt := 0
	for _, g := range rules.DamageGroups(total, size) {
		if !u.Active() {
			break
		}
		dealt += s.applyDamage(u, s.hitFor(u, side), g, damageOpts{}, log)
	}
	return dealt
}

// applyDamage resolves one hit and returns the armor and structure the unit
// lost. Damage that outlives the last location is lost.
func (s *Session) applyDamage(u *units.Unit, hit units.HitData, amount int, opts damageOpts, log *Log) int {
	if amount <= 0 || !u.Active() || hit.Location == units.NoLocation {
		return 0
	}
	if opts.attack && u.OnBoard() {
		if b := s.Board.BuildingAt(u.Pos()); b != nil && b.Absorption() > 0 {
			absorbed := min(b.Absorption(), amount)
			log.Add(u.ID, "%s shields %s from %d damage", b.Name, u, absorbed)
			s.damageBuilding(b, absorbed, log)
			amount -= absorbed
			if amount <= 0 {
				return 0
			}
		}
	}
	u.DamageThisPhase += amount
	defer s.queueUnit(u)

	switch u.Kind {
	case units.Infantry:
		loc := &u.Locations[units.Troopers]
		taken := min(amount, loc.IS)
		loc.IS -= taken
		log.Add(u.ID, "%s loses %d troopers, %d left", u, taken, loc.IS)
		s.checkDestroyed(u, log)
		return taken
	case units.BattleArmor:
		l := &u.Locations[hit.Location]
		a := min(l.Armor, amount)
		l.Armor -= a
		is := min(l.IS, amount-a)
		l.IS -= is
		log.Add(u.ID, "%s trooper %d takes %d damage", u, int(hit.Location)+1, a+is)
		if l.IS == 0 && !l.Destroyed {
			l.Destroyed = true
			log.Add(u.ID, "%s trooper %d is killed", u, int(hit.Location)+1)
		}
		s.checkDestroyed(u, log)
		return a + is
	}

	dealt := 0
	loc := hit.Location
	for amount > 0 && loc != units.NoLocation {
		l := &u.Locations[loc]
		if l.Destroyed {
			loc = u.Transfer(loc)
			continue
		}
		took := 0
		if !opts.internal {
			rear := hit.Rear && l.HasRear
			a := min(l.ArmorFor(rear), amount)
			if rear {
				l.RearArmor -= a
			} else {
				l.Armor -= a
			}
			amount -= a
			took += a
		}
		if amount > 0 {
			is := min(l.IS, amount)
			l.IS -= is
			amount -= is
			took += is
			if is > 0 {
				s.criticalChance(u, loc, log)
			}
			if l.IS == 0 {
				s.locationDestroyed(u, loc, log)
			}
		}
		dealt += took
		log.Add(u.ID, "%s takes %d damage to the %s", u, took, l.Name)
		if amount == 0 || opts.contained {
			break
		}
		loc = u.Transfer(loc)
	}
	if hit.Critical && u.Active() {
		log.Add(u.ID, "possible critical hit on %s", u)
		if u.Kind == units.Vehicle {
			s.vehicleCritical(u, hit.Location, log)
		} else if !u.Locations[hit.Location].Destroyed {
			s.criticalChance(u, hit.Location, log)
		}
	}
	if u.Kind == units.Mech && hit.Location == units.Head && dealt > 0 {
		s.pilotDamage(u, 1, "a head hit", log)
	}
	s.checkDestroyed(u, log)
	return dealt
}

// locationDestroyed wrecks a location and everything mounted in it.
func (s *Session) locationDestroyed(u *units.Unit, loc units.LocationID, log *Log) {
	l := &u.Locations[loc]
	if l.Destroyed {
		return
	}
	l.Destroyed = true
	l.Armor, l.RearArmor, l.IS = 0, 0, 0
	log.Add(u.ID, "%s's %s is destroyed", u, l.Name)
	for i := range u.Equipment {
		if u.Equipment[i].Location == loc {
			u.Equipment[i].Destroyed = true
		}
	}
	if u.Kind != units.Mech {
		return
	}
	switch loc {
	case units.RightTorso:
		s.locationDestroyed(u, units.RightArm, log)
	case units.LeftTorso:
		s.locationDestroyed(u, units.LeftArm, log)
	case units.RightLeg, units.LeftLeg:
		s.addRoll(u, 0, "leg destroyed", false)
	}
}

// checkDestroyed applies the destruction rule and marks the unit doomed.
// It reports whether the unit is out of play.
func (s *Session) checkDestroyed(u *units.Unit, log *Log) bool {
	if !u.Active() {
		return true
	}
	reason := destructionCause(u)
	if reason == "" {
		return false
	}
	u.Doomed = true
	log.Add(u.ID, "*** %s is destroyed: %s ***", u, reason)
	slog.Debug("unit destroyed", "unit", u.ID, "owner", u.Owner, "reason", reason, "round", s.Round)
	s.queueUnit(u)
	return true
}

// destructionCause returns why a unit is destroyed, or "" if it is not.
func destructionCause(u *units.Unit) string {
	switch u.Kind {
	case units.Mech:
		switch {
		case u.Locations[units.Head].Destroyed:
			return "head destroyed"
		case u.Locations[units.CenterTorso].Destroyed:
			return "center torso destroyed"
		case u.Crits.EngineHits >= 3:
			return "engine destroyed"
		case u.Crits.CockpitHit:
			return "cockpit destroyed"
		case u.PilotDamage >= 6:
			return "pilot killed"
		}
	case units.Vehicle:
		if u.Crits.CrewKilled {
			return "crew killed"
		}
		for _, l := range u.Locations {
			if l.Destroyed {
				return l.Name + " destroyed"
			}
		}
	case units.Infantry, units.BattleArmor:
		if u.Troopers() == 0 {
			return "wiped out"
		}
	}
	return ""
}
