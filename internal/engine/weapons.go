// Weapon fire: a to-hit pass over every declaration, then damage.
package engine

import (
	"math"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

// weaponShot is a declaration after its to-hit roll.
type weaponShot struct {
	decl     AttackDeclaration
	attacker *units.Unit
	target   *units.Unit // Nil for hex and building targets
	pos      world.Coords
	weapon   *units.Mounted
	spec     units.WeaponSpec
	ammo     *units.Mounted
	to       rules.TargetRoll
	roll     int
	hit      bool
	shots    int  // Rounds fired, more than one for rapid-fire weapons
	ams      bool // Engaged by anti-missile fire
}

func (w *weaponShot) inferno() bool {
	return w.ammo != nil && w.ammo.Inferno
}

// resolveWeaponAttacks runs every weapon and swarm declaration of the phase.
// All to-hit rolls come first, against the state at the start of
// resolution, so declaration order cannot change who can hit whom.
func (s *Session) resolveWeaponAttacks(log *Log) {
	var shots []*weaponShot
	rest := s.Attacks[:0:0]
	for _, a := range s.Attacks {
		if a.Kind != AttackWeapon && a.Kind != AttackSwarm {
			rest = append(rest, a)
			continue
		}
		if shot := s.prepareShot(a, log); shot != nil {
			shots = append(shots, shot)
		}
	}
	s.Attacks = rest
	for _, shot := range shots {
		s.resolveShot(shot, log)
	}
}

// prepareShot rolls to hit and commits heat and ammunition. It returns nil
// for attacks that cannot be made.
func (s *Session) prepareShot(a AttackDeclaration, log *Log) *weaponShot {
	att := s.Unit(a.Attacker)
	if att == nil || !att.Active() || !att.OnBoard() {
		return nil
	}
	pos, ok := s.targetPos(a.Target)
	if !ok {
		log.Add(att.ID, "%s has no target for its %s", att, a.Kind)
		return nil
	}
	shot := &weaponShot{decl: a, attacker: att, pos: pos, shots: 1}
	if a.Target.Type == TargetUnit {
		shot.target = s.Unit(a.Target.Unit)
	}
	name := "swarm attack"
	if a.Kind == AttackSwarm {
		shot.to = s.swarmToHit(att, shot.target)
	} else {
		m := &att.Equipment[a.Weapon]
		spec, known := m.Spec()
		if !m.Usable() || !known {
			log.Add(att.ID, "%s's %s cannot fire", att, m.Name)
			return nil
		}
		shot.weapon, shot.spec, name = m, spec, m.Name
		if spec.AmmoType != "" {
			if shot.ammo = att.AmmoFor(m, a.Ammo); shot.ammo == nil {
				log.Add(att.ID, "%s's %s is out of ammunition", att, m.Name)
				return nil
			}
		}
		shot.to = s.weaponToHit(att, shot.target, pos, m, spec)
	}
	if shot.to.Kind == rules.Impossible {
		log.Add(att.ID, "%s cannot use %s: %s", att, name, shot.to.Reason)
		return nil
	}
	if shot.to.NeedsRoll() {
		shot.roll = s.roll2d6()
	}
	shot.hit = shot.to.Succeeds(shot.roll)

	if m := shot.weapon; m != nil {
		if shot.spec.Class == units.ClassRapid {
			shot.shots = max(shot.spec.Rate, 1)
		}
		if shot.ammo != nil {
			shot.shots = min(shot.shots, shot.ammo.Shots)
			shot.ammo.Shots -= shot.shots
		}
		att.HeatBuildup += shot.spec.Heat * shot.shots
		if shot.spec.JamOn > 0 && shot.to.NeedsRoll() && shot.roll <= shot.spec.JamOn {
			m.Jammed = true
			shot.hit = false
			log.Add(att.ID, "%s's %s jams", att, m.Name)
		}
	}
	s.reportShot(shot, name, log)
	if shot.hit && shot.target != nil && shot.spec.Missile {
		s.engageAMS(shot, log)
	}
	return shot
}

func (s *Session) reportShot(shot *weaponShot, name string, log *Log) {
	outcome := "misses"
	if shot.hit {
		outcome = "hits"
	}
	what := shot.pos.String()
	if shot.target != nil {
		what = shot.target.String()
	}
	if !shot.to.NeedsRoll() {
		log.Add(shot.attacker.ID, "%s %s %s with %s (%s)", shot.attacker, outcome, what, name, shot.to)
		return
	}
	log.Add(shot.attacker.ID, "%s fires %s at %s, needs %d (%s), rolls %d: %s",
		shot.attacker, name, what, shot.to.Value(), shot.to.Desc(), shot.roll, outcome)
}

// engageAMS lets the first available anti-missile system covering the
// attacker thin out an incoming salvo.
func (s *Session) engageAMS(shot *weaponShot, log *Log) {
	target := shot.target
	for _, m := range target.AMSMounts() {
		if !inArc(target, m, shot.attacker.Pos()) {
			continue
		}
		if !target.ConsumeAMSAmmo() {
			return
		}
		m.UsedThisRound = true
		target.HeatBuildup++
		shot.ams = true
		log.Add(target.ID, "%s's anti-missile system engages the %s", target, shot.spec.Name)
		s.queueUnit(target)
		return
	}
}

// weaponToHit builds the target number for one weapon.
func (s *Session) weaponToHit(att, target *units.Unit, pos world.Coords, m *units.Mounted, spec units.WeaponSpec) rules.TargetRoll {
	if target != nil && !s.Options.FriendlyFire && !s.Enemies(att.Owner, target.Owner) {
		return rules.ImpossibleRoll("friendly fire")
	}
	t := rules.NewTarget(att.Gunnery, "gunnery")
	if target != nil && target.ID == att.SwarmTargetID {
		t.MarkAutomatic("swarming the target")
		return t
	}
	d := world.Distance(att.Pos(), pos)
	band := rules.Band(d, spec.Short, spec.Medium, spec.Long)
	if band == rules.RangeOut {
		return rules.ImpossibleRoll("out of range")
	}
	if !inArc(att, m, pos) {
		return rules.ImpossibleRoll("not in arc")
	}
	height := 0
	if target != nil {
		height = target.Height
	}
	los := s.Board.LineOfSight(att.Pos(), pos, att.Height, height)
	if !los.Clear {
		return rules.ImpossibleRoll("no line of sight")
	}
	s.baseModifiers(&t, att, target)
	t.Add(rules.RangeModifier(band), band.String()+" range")
	t.Add(rules.MinimumRangeModifier(d, spec.MinRange), "minimum range")
	t.Add(rules.HeatToHit(att.Heat), "heat")
	t.Add(los.Intervening, "intervening terrain")
	t.Add(att.Crits.SensorHits*2, "sensor damage")
	if att.Kind == units.Mech && (m.Location == units.RightArm || m.Location == units.LeftArm) {
		shoulder, upper, lower, _ := att.ArmActuatorHits(m.Location)
		if shoulder > 0 {
			t.Add(4, "shoulder")
		} else {
			t.Add(upper+lower, "arm actuators")
		}
	}
	t.Add(spec.ToHitMod, "weapon")
	rules.ApplyModifiers(&t, s.modifiers, s.attackEnv(att, target, d, band, spec.Name, AttackWeapon))
	return t
}

// swarmToHit is the target number for battle armor climbing onto a unit in
// their hex.
func (s *Session) swarmToHit(att, target *units.Unit) rules.TargetRoll {
	switch {
	case target == nil:
		return rules.ImpossibleRoll("no unit to swarm")
	case target.IsInfantry():
		return rules.ImpossibleRoll("infantry cannot be swarmed")
	case target.SwarmAttackerID != 0:
		return rules.ImpossibleRoll("target already swarmed")
	case att.SwarmTargetID != 0:
		return rules.ImpossibleRoll("already swarming")
	case att.Pos() != target.Pos():
		return rules.ImpossibleRoll("target not in the same hex")
	}
	t := rules.NewTarget(att.Gunnery, "gunnery")
	s.baseModifiers(&t, att, target)
	rules.ApplyModifiers(&t, s.modifiers, s.attackEnv(att, target, 0, rules.RangeShort, "", AttackSwarm))
	return t
}

// resolveShot applies a hit or the side effects of a miss.
func (s *Session) resolveShot(shot *weaponShot, log *Log) {
	att := shot.attacker
	if shot.decl.Kind == AttackSwarm {
		s.resolveSwarm(shot, log)
		return
	}
	if !shot.hit {
		if shot.inferno() {
			s.ignite(shot.pos, true, log)
		}
		if t := shot.target; t != nil && t.OnBoard() {
			if b := s.Board.BuildingAt(t.Pos()); b != nil {
				log.Add(att.ID, "the stray %s strikes %s", shot.spec.Name, b.Name)
				s.damageBuilding(b, shot.spec.Damage*shot.shots, log)
			}
		}
		return
	}

	switch shot.decl.Target.Type {
	case TargetHex:
		if shot.inferno() || shot.spec.Incendiary {
			s.ignite(shot.pos, shot.inferno(), log)
		}
	case TargetBuilding:
		if b := s.Board.Buildings[shot.decl.Target.Building]; b != nil {
			total := 0
			for _, g := range s.hitGroups(shot, log) {
				total += g
			}
			s.damageBuilding(b, total, log)
		}
	case TargetUnit:
		target := shot.target
		if target == nil || !target.Active() || !target.OnBoard() {
			return
		}
		if shot.inferno() && !target.IsInfantry() {
			s.infernoHit(target, log)
			return
		}
		side := attackSide(target, att.Pos())
		for _, g := range s.hitGroups(shot, log) {
			if !target.Active() {
				break
			}
			s.applyDamage(target, s.hitFor(target, side), g, damageOpts{attack: true}, log)
		}
	}
}

// infernoHit coats a mech in burning gel or sets a vehicle ablaze.
func (s *Session) infernoHit(u *units.Unit, log *Log) {
	switch u.Kind {
	case units.Mech:
		u.InfernoRounds = 3
		log.Add(u.ID, "%s is coated in burning inferno gel", u)
	case units.Vehicle:
		roll := s.roll2d6()
		if roll >= 10 {
			u.Crits.CrewKilled = true
			log.Add(u.ID, "%s is engulfed by inferno fire (rolls %d)", u, roll)
			s.checkDestroyed(u, log)
		} else {
			log.Add(u.ID, "%s shrugs off the inferno fire (rolls %d)", u, roll)
		}
	}
	s.queueUnit(u)
}

// hitGroups is the damage of a successful shot, split into hit location
// groups.
func (s *Session) hitGroups(shot *weaponShot, log *Log) []int {
	spec, att := shot.spec, shot.attacker
	switch spec.Class {
	case units.ClassCluster:
		var hits int
		switch {
		case spec.Streak && shot.ams:
			hits = rules.ClusterHits(spec.Rack, rules.StreakAMSRoll)
		case spec.Streak:
			hits = spec.Rack
		default:
			mod := 0
			if att.HasEquipment(units.EquipArtemis) && (shot.target == nil || !shot.target.HasEquipment(units.EquipECM)) {
				mod += rules.ArtemisBonus
			}
			if shot.ams {
				mod += rules.AMSReduction
			}
			roll := s.roll2d6()
			hits = rules.ClusterHits(spec.Rack, roll+mod)
			log.Add(att.ID, "cluster roll %d%+d: %d of %d hit", roll, mod, hits, spec.Rack)
		}
		return rules.DamageGroups(hits*spec.Damage, max(spec.GroupSize, 1)*spec.Damage)
	case units.ClassRapid:
		hits := 1
		if shot.shots > 1 {
			roll := s.roll2d6()
			hits = rules.ClusterHits(shot.shots, roll)
			log.Add(att.ID, "%d of %d shots hit (rolls %d)", hits, shot.shots, roll)
		}
		return rules.DamageGroups(hits*spec.Damage, spec.Damage)
	case units.ClassInfantry:
		total := int(math.Ceil(float64(att.Troopers()) * spec.DamagePerTrooper))
		return rules.DamageGroups(total, 2)
	case units.ClassSquad:
		roll := s.roll2d6()
		hits := rules.ClusterHits(att.Troopers(), roll)
		log.Add(att.ID, "%d of %d troopers hit (rolls %d)", hits, att.Troopers(), roll)
		return rules.DamageGroups(hits*spec.Damage, spec.Damage)
	}
	return []int{spec.Damage}
}

// resolveSwarm attaches battle armor to the unit they hit.
func (s *Session) resolveSwarm(shot *weaponShot, log *Log) {
	att, target := shot.attacker, shot.target
	if !shot.hit || target == nil || !target.Active() || !att.Active() {
		return
	}
	if target.SwarmAttackerID != 0 || att.Pos() != target.Pos() {
		log.Add(att.ID, "%s loses its grip on %s", att, target)
		return
	}
	att.SwarmTargetID = target.ID
	target.SwarmAttackerID = att.ID
	log.Add(att.ID, "%s swarms onto %s", att, target)
	s.queueUnit(att)
	s.queueUnit(target)
}
