package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

func TestPhysicalDamageFormulas(t *testing.T) {
	assert.Equal(t, 20, chargeDamage(50, 4))
	assert.Equal(t, 1, chargeDamage(5, 1))

	u, err := units.Spawn("Hunchback HBK-4G", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, punchDamage(u, units.RightArm))
}

func TestKickHitsALeg(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	att := place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 2, Y: 2}, world.South)
	target := place(t, s, 2, "Commando COM-2D", world.Coords{X: 2, Y: 3}, world.North)
	leg := &target.Locations[units.RightLeg]

	// Piloting 5, kick -2: an 8 hits, then a 1 on the kick table.
	dice := script(s, append(rolls(8), 1)...)
	s.Attacks = []AttackDeclaration{{Kind: AttackKick, Attacker: att.ID, Target: UnitTarget(target.ID), Limb: units.RightLeg}}
	s.resolvePhysicalAttacks(NewLog(1, PhasePhysical))

	assert.Zero(t, dice.Remaining())
	assert.Equal(t, leg.MaxArmor-10, leg.Armor)
	assert.Empty(t, s.Attacks)
	require.Len(t, s.Pending, 1)
	assert.Equal(t, PendingRoll{Unit: target.ID, Reason: "kicked"}, s.Pending[0])
}

func TestMissedKickCostsTheKicker(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	att := place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 2, Y: 2}, world.South)
	target := place(t, s, 2, "Commando COM-2D", world.Coords{X: 2, Y: 3}, world.North)

	script(s, rolls(2)...)
	s.Attacks = []AttackDeclaration{{Kind: AttackKick, Attacker: att.ID, Target: UnitTarget(target.ID), Limb: units.LeftLeg}}
	s.resolvePhysicalAttacks(NewLog(1, PhasePhysical))

	require.Len(t, s.Pending, 1)
	assert.Equal(t, att.ID, s.Pending[0].Unit)
	assert.Equal(t, "missed kick", s.Pending[0].Reason)
}

func TestPunchAfterFiringTheArmIsImpossible(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	att := place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 2, Y: 2}, world.South)
	target := place(t, s, 2, "Commando COM-2D", world.Coords{X: 2, Y: 3}, world.North)
	att.Equipment[1].FiredThisRound = true

	punch := AttackDeclaration{Kind: AttackPunch, Attacker: att.ID, Target: UnitTarget(target.ID), Limb: units.RightArm}
	to := s.physicalToHit(punch, att, target)
	assert.Equal(t, rules.Impossible, to.Kind)

	punch.Limb = units.LeftArm
	att.Equipment[2].FiredThisRound = false
	to = s.physicalToHit(punch, att, target)
	assert.True(t, to.NeedsRoll())
	assert.Equal(t, 5, to.Value())

	script(s)
	s.Attacks = []AttackDeclaration{{Kind: AttackPunch, Attacker: att.ID, Target: UnitTarget(target.ID), Limb: units.RightArm}}
	s.resolvePhysicalAttacks(NewLog(1, PhasePhysical))
	assert.Empty(t, s.Pending)
}

func TestPhysicalNeedsAdjacency(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	att := place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 2, Y: 2}, world.South)
	far := place(t, s, 2, "Commando COM-2D", world.Coords{X: 2, Y: 5}, world.North)
	kick := AttackDeclaration{Kind: AttackKick, Attacker: att.ID, Target: UnitTarget(far.ID), Limb: units.RightLeg}
	assert.Equal(t, rules.Impossible, s.physicalToHit(kick, att, far).Kind)

	club := AttackDeclaration{Kind: AttackClub, Attacker: att.ID, Target: UnitTarget(far.ID)}
	far.SetPosition(world.Coords{X: 2, Y: 3})
	assert.Equal(t, rules.Impossible, s.physicalToHit(club, att, far).Kind, "no club mounted")
}

func TestPushDisplacesTarget(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	att := place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 2, Y: 2}, world.South)
	target := place(t, s, 2, "Commando COM-2D", world.Coords{X: 2, Y: 3}, world.North)

	script(s, rolls(9)...)
	s.Attacks = []AttackDeclaration{{Kind: AttackPush, Attacker: att.ID, Target: UnitTarget(target.ID)}}
	s.resolvePhysicalAttacks(NewLog(1, PhasePhysical))

	assert.Equal(t, world.Coords{X: 2, Y: 4}, target.Pos())
	assert.Equal(t, world.Coords{X: 2, Y: 2}, att.Pos())
	require.Len(t, s.Pending, 1)
	assert.Equal(t, "pushed", s.Pending[0].Reason)
}

func TestPhysicalEligibility(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	a := place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 2, Y: 2}, world.South)
	b := place(t, s, 2, "Commando COM-2D", world.Coords{X: 2, Y: 3}, world.North)
	far := place(t, s, 2, "Commando COM-2D", world.Coords{X: 6, Y: 6}, world.North)
	inf := place(t, s, 1, "Foot Rifle Platoon", world.Coords{X: 3, Y: 3}, world.North)

	assert.True(t, s.eligible(a, PhasePhysical))
	assert.True(t, s.eligible(b, PhasePhysical))
	assert.False(t, s.eligible(far, PhasePhysical), "nothing in reach")
	assert.False(t, s.eligible(inf, PhasePhysical), "only mechs strike")

	s.Attacks = []AttackDeclaration{{Kind: AttackCharge, Attacker: a.ID, Target: UnitTarget(b.ID)}}
	assert.False(t, s.eligible(a, PhasePhysical), "a charge is the unit's physical attack")

	s.Options.SkipIneligiblePhysical = false
	assert.True(t, s.eligible(far, PhasePhysical))
}

func TestChargeResolvesWhenPhysicalPhaseIsSkipped(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	att := place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 2, Y: 2}, world.South)
	target := place(t, s, 2, "Scorpion Light Tank", world.Coords{X: 2, Y: 3}, world.North)
	att.Moved = 2
	s.Attacks = []AttackDeclaration{{Kind: AttackCharge, Attacker: att.ID, Target: UnitTarget(target.ID), Ammo: -1}}

	// The charger has no physical turn and the tank never gets one, so the
	// phase is skipped; the charge must still be rolled.
	s.enterPhase(PhasePhysical)

	assert.Equal(t, PhaseEnd, s.Phase)
	assert.Empty(t, s.Attacks)
	var rolled bool
	for _, r := range s.Reports {
		if r.Phase == PhasePhysical && r.Unit == att.ID && strings.Contains(r.Text, "charge") {
			rolled = true
		}
	}
	assert.True(t, rolled, "no charge report in %v", s.Reports)
}

func TestDFAResolvesWhenPhysicalPhaseIsSkipped(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	att := place(t, s, 1, "Griffin GRF-1N", world.Coords{X: 2, Y: 2}, world.South)
	target := place(t, s, 2, "Scorpion Light Tank", world.Coords{X: 2, Y: 3}, world.North)
	s.Attacks = []AttackDeclaration{{Kind: AttackDFA, Attacker: att.ID, Target: UnitTarget(target.ID), Ammo: -1}}

	s.enterPhase(PhasePhysical)

	assert.Empty(t, s.Attacks)
	var rolled bool
	for _, r := range s.Reports {
		if r.Phase == PhasePhysical && r.Unit == att.ID {
			rolled = true
		}
	}
	assert.True(t, rolled)
}
