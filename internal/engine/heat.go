// End of round heat and the environmental hazards units stand in.
package engine

import (
	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

// resolveHeat applies the round's heat to every mech on the board.
func (s *Session) resolveHeat(log *Log) {
	for _, u := range s.Units {
		if u.Kind == units.Mech && u.Active() && u.OnBoard() {
			s.applyHeat(u, log)
		}
	}
}

// applyHeat books heat gained and shed, then rolls for its effects in a
// fixed order: startup, ammunition explosion, shutdown, life support.
func (s *Session) applyHeat(u *units.Unit, log *Log) {
	h := s.Board.Get(u.Pos())
	gain := u.HeatBuildup + u.Crits.EngineHits*5
	if h.Burning() {
		gain += 2
	}
	if u.InfernoRounds > 0 {
		gain += 6
		u.InfernoRounds--
	}
	sink := u.HeatSinkCapacity()
	switch d := h.Depth(); {
	case d == 1:
		sink += 2
	case d >= 2:
		sink += 4
	}
	before := u.Heat
	u.Heat = max(u.Heat+gain-sink, 0)
	u.HeatBuildup = 0
	if u.Heat != before || gain > 0 {
		log.Add(u.ID, "%s gains %d heat and sheds %d, heat %d", u, gain, sink, u.Heat)
	}
	s.queueUnit(u)

	if u.Shutdown {
		target := rules.StartupTarget(u.Heat)
		if target == 0 {
			u.Shutdown = false
			log.Add(u.ID, "%s restarts automatically", u)
		} else if roll := s.roll2d6(); roll >= target {
			u.Shutdown = false
			log.Add(u.ID, "%s restarts (needs %d, rolls %d)", u, target, roll)
		} else {
			log.Add(u.ID, "%s stays shut down (needs %d, rolls %d)", u, target, roll)
		}
	}

	if target, ok := rules.AmmoExplosionAvoid(u.Heat); ok {
		if bin := mostDangerousBin(u); bin != nil {
			roll := s.roll2d6()
			if roll < target {
				log.Add(u.ID, "heat cooks off %s's ammunition (needs %d, rolls %d)", u, target, roll)
				s.explodeAmmo(u, bin, log)
				if !u.Active() {
					return
				}
			}
		}
	}

	if !u.Shutdown {
		if target, ok, automatic := rules.ShutdownAvoid(u.Heat); ok {
			shut := automatic
			if !automatic {
				roll := s.roll2d6()
				shut = roll < target
				log.Add(u.ID, "%s needs %d to avoid shutdown, rolls %d", u, target, roll)
			}
			if shut {
				u.Shutdown = true
				log.Add(u.ID, "%s shuts down", u)
				if !u.Prone {
					s.fall(u, 0, log)
				}
			}
		}
	}

	if u.Crits.LifeSupportHits > 0 && u.Active() {
		if target, ok := rules.LifeSupportAvoid(u.Heat); ok {
			if roll := s.roll2d6(); roll < target {
				s.pilotDamage(u, 1, "heat with damaged life support", log)
			}
		}
	}
}

// mostDangerousBin is the loaded bin that would do the most damage.
func mostDangerousBin(u *units.Unit) *units.Mounted {
	var best *units.Mounted
	bestDmg := 0
	for i := range u.Equipment {
		m := &u.Equipment[i]
		if m.Type != units.EquipAmmo || m.Destroyed || m.Shots == 0 {
			continue
		}
		spec, err := units.LookupAmmo(m.Name)
		if err != nil {
			continue
		}
		if dmg := m.Shots * spec.Damage; dmg > bestDmg {
			best, bestDmg = m, dmg
		}
	}
	return best
}

// resolveHazards burns units standing in fire and drowns pilots of
// submerged mechs without air.
func (s *Session) resolveHazards(log *Log) {
	for _, u := range s.Units {
		if !u.Active() || !u.OnBoard() || u.TransportedByID != 0 {
			continue
		}
		h := s.Board.Get(u.Pos())
		if h.Burning() {
			s.flamingDeath(u, h, log)
		}
		if u.Active() && s.submerged(u, h) &&
			(u.Locations[units.Head].Armor == 0 || u.Crits.LifeSupportHits > 0) {
			s.pilotDamage(u, 1, "suffocation", log)
		}
	}
}

func (s *Session) submerged(u *units.Unit, h *world.Hex) bool {
	if u.Kind != units.Mech {
		return false
	}
	d := h.Depth()
	return d >= 2 || d == 1 && u.Prone
}

// flamingDeath rolls for vehicles and infantry caught in a burning hex.
func (s *Session) flamingDeath(u *units.Unit, h *world.Hex, log *Log) {
	switch u.Kind {
	case units.Vehicle:
		target := 12
		if h.Level(world.Fire) == world.FireInferno {
			target = 10
		}
		roll := s.roll2d6()
		if roll >= target {
			u.Crits.CrewKilled = true
			log.Add(u.ID, "%s burns with its crew (needs %d, rolls %d)", u, target, roll)
			s.checkDestroyed(u, log)
		}
	case units.Infantry, units.BattleArmor:
		loss := s.d6()
		log.Add(u.ID, "the fire at %s burns %s for %d", h.Coords, u, loss)
		s.applyDamage(u, s.hitFor(u, units.Front), loss, damageOpts{}, log)
	}
}
