// Physical attacks: punches, kicks, pushes, clubs, charges, death from
// above, brushing off swarmers and thrashing.
package engine

import (
	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

// chargeDamage is what a unit of mass tons deals after moving hexes.
func chargeDamage(mass, hexes int) int {
	return rules.CeilDiv(mass*hexes, 10)
}

// punchDamage is a punch halved for each damaged arm actuator.
func punchDamage(u *units.Unit, arm units.LocationID) int {
	dmg := rules.CeilDiv(u.Mass, 10)
	_, upper, lower, _ := u.ArmActuatorHits(arm)
	for i := 0; i < upper+lower; i++ {
		dmg = rules.CeilDiv(dmg, 2)
	}
	return dmg
}

// swing is a physical attack after its to-hit roll.
type swing struct {
	decl     AttackDeclaration
	attacker *units.Unit
	target   *units.Unit
	to       rules.TargetRoll
	roll     int
	hit      bool
}

// resolvePhysicalAttacks rolls every physical attack, then applies them in
// declaration order.
func (s *Session) resolvePhysicalAttacks(log *Log) {
	var swings []*swing
	for _, a := range s.Attacks {
		if !a.Kind.Physical() {
			continue
		}
		att, target := s.Unit(a.Attacker), s.Unit(a.Target.Unit)
		if att == nil || !att.Active() || !att.OnBoard() {
			continue
		}
		sw := &swing{decl: a, attacker: att, target: target, to: s.physicalToHit(a, att, target)}
		if sw.to.Kind == rules.Impossible {
			log.Add(att.ID, "%s cannot %s: %s", att, a.Kind, sw.to.Reason)
			continue
		}
		if sw.to.NeedsRoll() {
			sw.roll = s.roll2d6()
			log.Add(att.ID, "%s attempts to %s %s, needs %d (%s), rolls %d",
				att, a.Kind, target, sw.to.Value(), sw.to.Desc(), sw.roll)
		} else {
			log.Add(att.ID, "%s attempts to %s %s: %s", att, a.Kind, target, sw.to)
		}
		sw.hit = sw.to.Succeeds(sw.roll)
		swings = append(swings, sw)
	}
	s.Attacks = nil
	for _, sw := range swings {
		if sw.attacker.Active() && sw.target.Active() && sw.attacker.OnBoard() && sw.target.OnBoard() {
			s.resolveSwing(sw, log)
		}
	}
}

// physicalToHit builds the piloting-based target for a physical attack.
func (s *Session) physicalToHit(a AttackDeclaration, att, target *units.Unit) rules.TargetRoll {
	if target == nil || !target.Active() || !target.OnBoard() {
		return rules.ImpossibleRoll("target is gone")
	}
	d := distance(att, target)
	if d > 1 {
		return rules.ImpossibleRoll("target not adjacent")
	}
	if a.Kind != AttackThrash && a.Kind != AttackBrushOff && d == 0 {
		return rules.ImpossibleRoll("target in the same hex")
	}
	if att.Kind != units.Mech && a.Kind != AttackCharge {
		return rules.ImpossibleRoll("only mechs make physical attacks")
	}
	if att.Prone && a.Kind != AttackThrash {
		return rules.ImpossibleRoll("attacker prone")
	}
	t := rules.NewTarget(att.Piloting, "piloting")
	switch a.Kind {
	case AttackPunch, AttackBrushOff:
		if reason := armBlocked(att, a.Limb); reason != "" {
			return rules.ImpossibleRoll(reason)
		}
		if a.Kind == AttackPunch && target.IsInfantry() {
			return rules.ImpossibleRoll("infantry cannot be punched")
		}
		_, upper, lower, hand := att.ArmActuatorHits(a.Limb)
		t.Add(2*(upper+lower), "arm actuators")
		t.Add(hand, "hand actuator")
		if a.Kind == AttackBrushOff {
			t.Add(4, "brushing off")
		}
	case AttackKick:
		if att.Locations[a.Limb].Destroyed {
			return rules.ImpossibleRoll("leg destroyed")
		}
		hip, upper, lower, foot := att.LegActuatorHits(a.Limb)
		if hip > 0 {
			return rules.ImpossibleRoll("hip destroyed")
		}
		t.Add(-2, "kick")
		t.Add(2*(upper+lower), "leg actuators")
		t.Add(foot, "foot actuator")
	case AttackPush:
		for _, arm := range []units.LocationID{units.RightArm, units.LeftArm} {
			if reason := armBlocked(att, arm); reason != "" {
				return rules.ImpossibleRoll(reason)
			}
		}
		if target.Kind != units.Mech {
			return rules.ImpossibleRoll("only mechs can be pushed")
		}
		if world.DirectionTo(att.Pos(), target.Pos()) != att.Facing {
			return rules.ImpossibleRoll("target not straight ahead")
		}
		t.Add(-1, "push")
	case AttackClub:
		if !att.HasClub {
			return rules.ImpossibleRoll("no club")
		}
		for _, arm := range []units.LocationID{units.RightArm, units.LeftArm} {
			if reason := armBlocked(att, arm); reason != "" {
				return rules.ImpossibleRoll(reason)
			}
		}
	case AttackThrash:
		if !att.Prone {
			return rules.ImpossibleRoll("only prone mechs thrash")
		}
		if !target.IsInfantry() || d != 0 {
			return rules.ImpossibleRoll("thrashing hits infantry in the same hex")
		}
		t.MarkAutomatic("thrashing")
		return t
	}
	s.baseModifiers(&t, att, target)
	rules.ApplyModifiers(&t, s.modifiers, s.attackEnv(att, target, d, rules.RangeShort, "", a.Kind))
	return t
}

// armBlocked explains why an arm cannot strike, or returns "".
func armBlocked(u *units.Unit, arm units.LocationID) string {
	if arm != units.RightArm && arm != units.LeftArm {
		return "not an arm"
	}
	if u.Locations[arm].Destroyed {
		return "arm destroyed"
	}
	if shoulder, _, _, _ := u.ArmActuatorHits(arm); shoulder > 0 {
		return "shoulder destroyed"
	}
	if u.ArmFired(arm) {
		return "arm weapons fired this round"
	}
	return ""
}

// resolveSwing applies one physical attack.
func (s *Session) resolveSwing(sw *swing, log *Log) {
	att, target, a := sw.attacker, sw.target, sw.decl
	side := attackSide(target, att.Pos())
	dir := world.DirectionTo(att.Pos(), target.Pos())
	hit := func(h units.HitData, dmg int) {
		s.applyDamage(target, h, dmg, damageOpts{attack: true}, log)
	}
	switch a.Kind {
	case AttackPunch:
		if sw.hit {
			hit(target.PunchLocation(side, s.d6()), punchDamage(att, a.Limb))
		}

	case AttackKick:
		if sw.hit {
			hit(target.KickLocation(side, s.d6()), rules.CeilDiv(att.Mass, 5))
			s.addRoll(target, 0, "kicked", false)
		} else {
			s.addRoll(att, 0, "missed kick", false)
		}

	case AttackPush:
		if sw.hit {
			log.Add(att.ID, "%s shoves %s", att, target)
			s.displace(target, target.Pos().Translated(dir), dir, 0, log)
			s.addRoll(target, 0, "pushed", false)
		} else {
			s.addRoll(att, 0, "missed push", false)
		}

	case AttackClub:
		if sw.hit {
			hit(s.hitFor(target, side), rules.CeilDiv(att.Mass, 5))
		}

	case AttackCharge:
		s.resolveCharge(sw, side, dir, log)

	case AttackDFA:
		s.resolveDFA(sw, side, dir, log)

	case AttackBrushOff:
		if sw.hit {
			hit(s.hitFor(target, units.Front), punchDamage(att, a.Limb))
			log.Add(att.ID, "%s knocks %s loose", att, target)
			s.dislodge(att)
		} else {
			log.Add(att.ID, "%s strikes itself trying to reach %s", att, target)
			s.applyDamage(att, att.PunchLocation(units.Front, s.d6()), punchDamage(att, a.Limb), damageOpts{}, log)
		}

	case AttackThrash:
		s.damageGroups(target, units.Front, rules.CeilDiv(att.Mass, 3), 5, log)
		s.addRoll(att, 0, "thrashing", false)
	}
}

// resolveCharge rams the target. A hit pushes it back and the attacker
// follows; a miss sends the attacker past it.
func (s *Session) resolveCharge(sw *swing, side units.Side, dir world.Facing, log *Log) {
	att, target := sw.attacker, sw.target
	if !sw.hit {
		to := s.landingHex(att, target.Pos(), dir)
		if to != att.Pos() {
			s.moveUnit(att, to)
			log.Add(att.ID, "%s charges past %s to %s", att, target, to)
		}
		return
	}
	dmg := chargeDamage(att.Mass, att.Moved)
	recoil := rules.CeilDiv(target.Mass, 10)
	log.Add(att.ID, "%s slams into %s for %d damage", att, target, dmg)
	from := target.Pos()
	for _, g := range rules.DamageGroups(dmg, 5) {
		if target.Active() {
			s.applyDamage(target, s.hitFor(target, side), g, damageOpts{attack: true}, log)
		}
	}
	s.damageGroups(att, units.Front, recoil, 5, log)
	if target.Active() && target.OnBoard() && s.displace(target, from.Translated(dir), dir, 0, log) && att.Active() {
		s.moveUnit(att, from)
	}
	s.addRoll(att, 2, "charging", false)
	s.addRoll(target, 2, "charged", false)
}

// resolveDFA drops a jumping mech onto the target. On a miss it falls into
// the target hex from two levels up.
func (s *Session) resolveDFA(sw *swing, side units.Side, dir world.Facing, log *Log) {
	att, target := sw.attacker, sw.target
	from := target.Pos()
	if !sw.hit {
		log.Add(att.ID, "%s misses its death from above", att)
		s.fallInto(att, from, 2, dir, 0, log)
		return
	}
	dmg := rules.CeilDiv(att.Mass, 10) * 3
	log.Add(att.ID, "%s lands on %s for %d damage", att, target, dmg)
	for _, g := range rules.DamageGroups(dmg, 5) {
		if target.Active() {
			s.applyDamage(target, target.PunchLocation(side, s.d6()), g, damageOpts{attack: true}, log)
		}
	}
	for _, g := range rules.DamageGroups(rules.CeilDiv(att.Mass, 5), 5) {
		if att.Active() {
			s.applyDamage(att, att.KickLocation(units.Front, s.d6()), g, damageOpts{}, log)
		}
	}
	if target.Active() && target.OnBoard() && s.displace(target, from.Translated(dir), dir, 0, log) && att.Active() {
		s.moveUnit(att, from)
	}
	s.addRoll(att, 4, "death from above", false)
	s.addRoll(target, 2, "hit by death from above", false)
}
