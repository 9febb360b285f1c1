// Critical hits on mechs and vehicles.
package engine

import (
	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
)

// criticalChance rolls for critical hits after structure damage to a mech
// location. A 12 on a limb or the head blows it off.
func (s *Session) criticalChance(u *units.Unit, loc units.LocationID, log *Log) {
	if u.Kind != units.Mech {
		return
	}
	roll := s.roll2d6()
	if roll >= 12 && (units.IsLimb(loc) || loc == units.Head) {
		log.Add(u.ID, "critical roll %d: %s's %s is blown off", roll, u, u.Locations[loc].Name)
		s.locationDestroyed(u, loc, log)
		return
	}
	n := rules.CriticalCount(roll)
	if n == 0 {
		return
	}
	log.Add(u.ID, "critical roll %d: %d critical hits on %s", roll, n, u.Locations[loc].Name)
	for i := 0; i < n && u.Active() && !u.Locations[loc].Destroyed; i++ {
		s.hitSlot(u, loc, log)
	}
}

// hitSlot picks a random hittable slot in loc and applies its effect.
func (s *Session) hitSlot(u *units.Unit, loc units.LocationID, log *Log) {
	slots := u.Locations[loc].HittableSlots()
	if len(slots) == 0 {
		log.Add(u.ID, "no critical slots left in %s", u.Locations[loc].Name)
		return
	}
	idx := slots[((s.d6()-1)*6+s.d6()-1)%len(slots)]
	slot := &u.Locations[loc].Slots[idx]
	slot.Hit = true
	c := &u.Crits
	name := slot.Type.String()
	switch slot.Type {
	case units.SlotEngine:
		c.EngineHits++
	case units.SlotGyro:
		c.GyroHits++
		s.addRoll(u, 3, "gyro hit", false)
	case units.SlotCockpit:
		c.CockpitHit = true
	case units.SlotSensors:
		c.SensorHits++
	case units.SlotLifeSupport:
		c.LifeSupportHits++
	case units.SlotShoulder:
		c.ShoulderHits++
	case units.SlotUpperArm:
		c.UpperArmHits++
	case units.SlotLowerArm:
		c.LowerArmHits++
	case units.SlotHand:
		c.HandHits++
	case units.SlotHip:
		c.HipHits++
		s.addRoll(u, 2, "hip hit", false)
	case units.SlotUpperLeg:
		c.UpperLegHits++
		s.addRoll(u, 1, "leg actuator hit", false)
	case units.SlotLowerLeg:
		c.LowerLegHits++
		s.addRoll(u, 1, "leg actuator hit", false)
	case units.SlotFoot:
		c.FootHits++
		s.addRoll(u, 1, "leg actuator hit", false)
	case units.SlotHeatSink:
		c.HeatSinkHits++
	case units.SlotJumpJet:
		c.JumpJetHits++
	case units.SlotEquipment:
		m := &u.Equipment[slot.Equipment]
		name = m.Name
		if m.Type == units.EquipAmmo && m.Shots > 0 && !m.Destroyed {
			log.Add(u.ID, "critical hit on %s's %s", u, name)
			s.explodeAmmo(u, m, log)
			return
		}
		m.Destroyed = true
	}
	log.Add(u.ID, "critical hit on %s's %s", u, name)
	s.checkDestroyed(u, log)
}

// explodeAmmo detonates a bin. CASE keeps the blast in its location.
func (s *Session) explodeAmmo(u *units.Unit, bin *units.Mounted, log *Log) {
	spec, err := units.LookupAmmo(bin.Name)
	if err != nil {
		spec.Damage = 1
	}
	dmg := bin.Shots * spec.Damage
	bin.Shots = 0
	bin.Destroyed = true
	log.Add(u.ID, "%s's %s ammunition explodes for %d damage", u, bin.Name, dmg)
	contained := u.HasCASE(bin.Location)
	s.applyDamage(u, units.HitData{Location: bin.Location}, dmg, damageOpts{internal: true, contained: contained}, log)
	s.pilotDamage(u, 2, "ammunition explosion", log)
}

// vehicleCritical rolls on the vehicle critical table.
func (s *Session) vehicleCritical(u *units.Unit, loc units.LocationID, log *Log) {
	roll := s.roll2d6()
	c := &u.Crits
	switch {
	case roll <= 5:
		log.Add(u.ID, "vehicle critical roll %d: no effect", roll)
	case roll <= 7:
		c.MotiveHits++
		if u.WalkMP-c.MotiveHits <= 0 {
			u.Immobile = true
		}
		log.Add(u.ID, "vehicle critical roll %d: %s's motive system is damaged", roll, u)
	case roll <= 9:
		c.CrewStunned = 2
		log.Add(u.ID, "vehicle critical roll %d: %s's crew is stunned", roll, u)
	case roll == 10:
		if m := vehicleWeaponIn(u, loc); m != nil {
			m.Destroyed = true
			log.Add(u.ID, "vehicle critical roll %d: %s's %s is destroyed", roll, u, m.Name)
		} else {
			log.Add(u.ID, "vehicle critical roll %d: no weapon to hit", roll)
		}
	case roll == 11:
		c.TurretLock = true
		log.Add(u.ID, "vehicle critical roll %d: %s's turret locks", roll, u)
	default:
		c.CrewKilled = true
		log.Add(u.ID, "vehicle critical roll %d: %s's crew is killed", roll, u)
	}
	s.queueUnit(u)
	s.checkDestroyed(u, log)
}

// vehicleWeaponIn prefers an intact weapon in loc, then any intact weapon.
func vehicleWeaponIn(u *units.Unit, loc units.LocationID) *units.Mounted {
	var fallback *units.Mounted
	for i := range u.Equipment {
		m := &u.Equipment[i]
		if m.Type != units.EquipWeapon || m.Destroyed {
			continue
		}
		if m.Location == loc {
			return m
		}
		if fallback == nil {
			fallback = m
		}
	}
	return fallback
}
