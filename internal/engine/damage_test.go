package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

func TestDamageIsConservedThroughTransfer(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	u := place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 3, Y: 3}, world.North)
	arm := &u.Locations[units.RightArm]
	arm.Armor, arm.IS = 0, 0
	before := frontPoints(u)

	// One critical roll for the side torso structure, which finds nothing.
	dice := script(s, rolls(2)...)
	log := NewLog(1, PhaseFiring)
	dealt := s.applyDamage(u, units.HitData{Location: units.RightArm}, 40, damageOpts{}, log)

	assert.Equal(t, 40, dealt)
	assert.Equal(t, 40, before-frontPoints(u))
	assert.Zero(t, dice.Remaining())

	assert.True(t, u.Locations[units.RightArm].Destroyed)
	assert.True(t, u.Locations[units.RightTorso].Destroyed)
	assert.Zero(t, u.Locations[units.RightTorso].RearArmor)
	assert.Equal(t, 8, u.Locations[units.CenterTorso].Armor)
	assert.Equal(t, 16, u.Locations[units.CenterTorso].IS)
	assert.True(t, u.Equipment[0].Destroyed, "the AC/20 goes with its torso")
	assert.True(t, u.Equipment[1].Destroyed)
	assert.False(t, u.Doomed)
	assert.Equal(t, 40, u.DamageThisPhase)
}

func TestHeadDestructionDoomsTheMech(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	u := place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 3, Y: 3}, world.North)
	script(s, rolls(2)...)
	log := NewLog(1, PhaseFiring)

	dealt := s.applyDamage(u, units.HitData{Location: units.Head}, 15, damageOpts{}, log)
	assert.Equal(t, 10, dealt, "damage past the head is lost")
	assert.True(t, u.Doomed)
	assert.Equal(t, "head destroyed", destructionCause(u))
	assert.Equal(t, 1, u.PilotDamage)

	// A doomed unit takes no further damage.
	assert.Zero(t, s.applyDamage(u, units.HitData{Location: units.CenterTorso}, 5, damageOpts{}, log))

	s.removeDoomed()
	assert.Nil(t, s.Unit(u.ID))
	require.Len(t, s.Graveyard, 1)
	assert.True(t, s.Graveyard[0].Destroyed)
	assert.False(t, s.Graveyard[0].Doomed)
}

func TestInternalDamageSkipsArmor(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	u := place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 3, Y: 3}, world.North)
	script(s, rolls(2)...)
	log := NewLog(1, PhaseEnd)

	dealt := s.applyDamage(u, units.HitData{Location: units.LeftTorso}, 5, damageOpts{internal: true}, log)
	assert.Equal(t, 5, dealt)
	assert.Equal(t, 15, u.Locations[units.LeftTorso].Armor)
	assert.Equal(t, 7, u.Locations[units.LeftTorso].IS)
}

func TestBuildingShieldsOccupant(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	at := world.Coords{X: 4, Y: 4}
	b, err := s.Board.AddBuilding("Depot", world.Medium, 1, []world.Coords{at})
	require.NoError(t, err)
	u := place(t, s, 1, "Hunchback HBK-4G", at, world.North)
	log := NewLog(1, PhaseFiring)

	dealt := s.applyDamage(u, units.HitData{Location: units.CenterTorso}, 10, damageOpts{attack: true}, log)
	assert.Equal(t, 6, dealt)
	assert.Equal(t, 36, b.CF)
	assert.Equal(t, 15, u.Locations[units.CenterTorso].Armor)
	assert.Equal(t, 10, dealt+(b.MaxCF-b.CF), "the hit is split, not counted twice")

	// The second hit is shielded as much as the first.
	dealt = s.applyDamage(u, units.HitData{Location: units.CenterTorso}, 3, damageOpts{attack: true}, log)
	assert.Zero(t, dealt)
	assert.Equal(t, 33, b.CF)
	assert.Equal(t, 15, u.Locations[units.CenterTorso].Armor)

	// Falls and collapses are not attacks and pass straight through.
	s.applyDamage(u, units.HitData{Location: units.CenterTorso}, 5, damageOpts{}, log)
	assert.Equal(t, 33, b.CF)
	assert.Equal(t, 10, u.Locations[units.CenterTorso].Armor)
}

func TestInfantryCountsTroopers(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	u := place(t, s, 1, "Foot Rifle Platoon", world.Coords{X: 3, Y: 3}, world.North)
	log := NewLog(1, PhaseFiring)

	require.Equal(t, 28, u.Troopers())
	assert.Equal(t, 10, s.damageGroups(u, units.Front, 10, 5, log))
	assert.Equal(t, 18, u.Troopers())

	assert.Equal(t, 18, s.damageGroups(u, units.Front, 40, 5, log))
	assert.Zero(t, u.Troopers())
	assert.True(t, u.Doomed)
}

func TestDestructionCause(t *testing.T) {
	mech := func() *units.Unit {
		u, err := units.Spawn("Commando COM-2D", 1, 1)
		require.NoError(t, err)
		return u
	}
	tests := []struct {
		name   string
		breakf func(u *units.Unit)
		want   string
	}{
		{"intact", func(*units.Unit) {}, ""},
		{"center torso", func(u *units.Unit) { u.Locations[units.CenterTorso].Destroyed = true }, "center torso destroyed"},
		{"engine", func(u *units.Unit) { u.Crits.EngineHits = 3 }, "engine destroyed"},
		{"two engine hits", func(u *units.Unit) { u.Crits.EngineHits = 2 }, ""},
		{"cockpit", func(u *units.Unit) { u.Crits.CockpitHit = true }, "cockpit destroyed"},
		{"pilot", func(u *units.Unit) { u.PilotDamage = 6 }, "pilot killed"},
		{"both legs", func(u *units.Unit) {
			u.Locations[units.RightLeg].Destroyed = true
			u.Locations[units.LeftLeg].Destroyed = true
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := mech()
			tt.breakf(u)
			assert.Equal(t, tt.want, destructionCause(u))
		})
	}
}
