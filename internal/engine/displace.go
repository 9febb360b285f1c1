// Falls, skids and forced displacement.
package engine

import (
	"log/slog"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

// maxDisplacementDepth bounds chained displacements (a push into a unit
// that is pushed into another). Deeper chains are logged as anomalies and
// stop where they are.
const maxDisplacementDepth = 16

// fall knocks a unit down where it stands.
func (s *Session) fall(u *units.Unit, height int, log *Log) {
	s.knockDown(u, height, log)
}

// knockDown applies fall damage for a drop of height levels at the unit's
// current hex.
func (s *Session) knockDown(u *units.Unit, height int, log *Log) {
	dmg := rules.CeilDiv(u.Mass, 10) * (height + 1)
	if h := s.Board.Get(u.Pos()); h != nil && h.Depth() > 0 {
		dmg = rules.CeilDiv(dmg, 2)
	}
	s.fallWithDamage(u, dmg, height, log)
}

// fallSide maps the facing die of a fall to the side that hits the ground.
func fallSide(roll int) units.Side {
	switch roll {
	case 1:
		return units.Front
	case 2, 3:
		return units.Right
	case 4:
		return units.Rear
	}
	return units.Left
}

// fallWithDamage topples a mech: new facing, prone, damage in groups of
// five and a piloting roll to keep the pilot unhurt. Other kinds only take
// the damage.
func (s *Session) fallWithDamage(u *units.Unit, dmg, height int, log *Log) {
	if u.Kind != units.Mech {
		log.Add(u.ID, "%s crashes, taking %d damage", u, dmg)
		s.damageGroups(u, units.Front, dmg, 5, log)
		return
	}
	roll := s.d6()
	u.Facing = u.Facing.Rotate(roll - 1)
	side := fallSide(roll)
	u.Prone = true
	u.FellThisPhase = true
	log.Add(u.ID, "%s falls on its %s side, now facing %s, taking %d damage", u, side, u.Facing, dmg)
	s.damageGroups(u, side, dmg, 5, log)
	if sw := s.Unit(u.SwarmAttackerID); sw != nil {
		log.Add(sw.ID, "%s is thrown clear", sw)
		s.dislodge(u)
	}
	if !u.Active() {
		return
	}
	target := s.pilotingTarget(u)
	target.Add(height, "fall height")
	if !s.rollPiloting(u, target, "avoid pilot injury", log) {
		s.pilotDamage(u, 1, "the fall", log)
	}
	s.queueUnit(u)
}

// fallInto drops a unit height levels into dest. An occupant of dest is
// landed on with a 2d6 roll of 7 or more and pushed aside; otherwise the
// faller comes down beside it.
func (s *Session) fallInto(u *units.Unit, dest world.Coords, height int, dir world.Facing, depth int, log *Log) {
	if depth > maxDisplacementDepth {
		slog.Warn("fall displacement chain too deep", "anomaly", true, "unit", u.ID, "depth", depth)
		dest = u.Pos()
	}
	if dest != u.Pos() {
		if o := s.blocker(dest, u); o != nil && !u.IsInfantry() {
			roll := s.roll2d6()
			if roll >= 7 {
				log.Add(u.ID, "%s falls onto %s (rolls %d)", u, o, roll)
				s.damageGroups(o, units.Front, rules.CeilDiv(u.Mass, 10)*(height+1), 5, log)
				if o.Active() && !s.displace(o, dest.Translated(dir), dir, depth+1, log) {
					dest = s.landingHex(u, dest, dir)
				}
			} else {
				log.Add(u.ID, "%s tumbles past %s (rolls %d)", u, o, roll)
				dest = s.landingHex(u, dest, dir)
			}
		}
		s.moveUnit(u, dest)
	}
	s.knockDown(u, height, log)
}

// landingHex picks where a displaced unit ends up when dest is taken.
func (s *Session) landingHex(u *units.Unit, dest world.Coords, dir world.Facing) world.Coords {
	if c, ok := s.scatterHex(u, dest, dir); ok {
		return c
	}
	return u.Pos()
}

// scatterHex returns the first hex around from, trying dir, then one and
// two facings either side, then the reverse, that u could stand in.
func (s *Session) scatterHex(u *units.Unit, from world.Coords, dir world.Facing) (world.Coords, bool) {
	for _, d := range []int{0, 1, -1, 2, -2, 3} {
		c := from.Translated(dir.Rotate(d))
		h := s.Board.Get(c)
		if h == nil || prohibited(u, h) {
			continue
		}
		if !u.IsInfantry() && s.blocker(c, u) != nil {
			continue
		}
		return c, true
	}
	return from, false
}

// displace forces a unit one hex in direction dir. A non-infantry unit in
// the way is displaced further along the same line. It returns false when
// the unit could not move.
func (s *Session) displace(u *units.Unit, dest world.Coords, dir world.Facing, depth int, log *Log) bool {
	if depth > maxDisplacementDepth {
		slog.Warn("displacement chain too deep", "anomaly", true, "unit", u.ID, "depth", depth)
		return false
	}
	if !u.OnBoard() {
		return false
	}
	to := s.Board.Get(dest)
	if to == nil {
		if !s.Options.PushOffBoard {
			return false
		}
		log.Add(u.ID, "%s is forced off the board", u)
		s.retreat(u, "pushed off the board")
		return true
	}
	from := s.Board.Get(u.Pos())
	if to.Elevation-from.Elevation >= 2 {
		log.Add(u.ID, "%s is stopped by the rise at %s", u, dest)
		return false
	}
	if prohibited(u, to) {
		s.moveUnit(u, dest)
		u.Doomed = true
		log.Add(u.ID, "%s is forced into %s and destroyed", u, dest)
		return true
	}
	if drop := from.Elevation - to.Elevation; drop >= 2 {
		s.fallInto(u, dest, drop, dir, depth+1, log)
		return true
	}
	if o := s.blocker(dest, u); o != nil && !u.IsInfantry() {
		log.Add(o.ID, "%s is shoved aside by %s", o, u)
		if !s.displace(o, dest.Translated(dir), dir, depth+1, log) {
			return false
		}
	}
	s.moveUnit(u, dest)
	log.Add(u.ID, "%s is displaced to %s", u, dest)
	if d := to.Depth(); d > 0 {
		s.enterWater(u, d, log)
	}
	return true
}

// skid slides a unit along dir after a failed running turn, up to hexes
// hexes, then knocks it down.
func (s *Session) skid(u *units.Unit, dir world.Facing, hexes int, log *Log) {
	log.Add(u.ID, "%s skids %s", u, dir)
	skidded := 0
	for skidded < hexes && u.Active() && u.OnBoard() {
		cur := s.Board.Get(u.Pos())
		next := u.Pos().Translated(dir)
		h := s.Board.Get(next)
		if h == nil {
			if s.Options.PushOffBoard {
				log.Add(u.ID, "%s skids off the board", u)
				s.retreat(u, "skidded off the board")
				return
			}
			break
		}
		if h.Elevation > cur.Elevation {
			log.Add(u.ID, "%s is stopped by rising ground at %s", u, next)
			break
		}
		if drop := cur.Elevation - h.Elevation; drop >= 2 {
			u.Moved += skidded + 1
			s.fallInto(u, next, drop, dir, 0, log)
			return
		}
		if prohibited(u, h) {
			break
		}
		impact := chargeDamage(u.Mass, skidded+1)
		if b := s.Board.BuildingAt(next); b != nil {
			s.damageBuilding(b, impact, log)
			if b.CF > 0 {
				log.Add(u.ID, "%s slams into %s", u, b.Name)
				break
			}
		}
		for _, inf := range s.UnitsAt(next) {
			if inf.IsInfantry() && inf.SwarmTargetID == 0 {
				log.Add(inf.ID, "%s is run down by %s", inf, u)
				s.damageGroups(inf, attackSide(inf, u.Pos()), impact, 5, log)
			}
		}
		if o := s.blocker(next, u); o != nil {
			log.Add(u.ID, "%s skids into %s", u, o)
			s.damageGroups(o, attackSide(o, u.Pos()), impact, 5, log)
			if o.Active() {
				s.displace(o, next.Translated(dir), dir, 0, log)
			}
			s.damageGroups(u, units.Front, rules.CeilDiv(o.Mass, 10), 5, log)
			break
		}
		s.moveUnit(u, next)
		skidded++
		if d := h.Depth(); d > 0 {
			s.enterWater(u, d, log)
			break
		}
	}
	u.Moved += skidded
	if !u.Active() || !u.OnBoard() {
		return
	}
	s.fallWithDamage(u, rules.CeilDiv(u.Mass, 10)*rules.CeilDiv(skidded+1, 2), 0, log)
}
