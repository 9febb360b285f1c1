package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/world"
)

func TestHeatShutdownIsAutomaticAtThirty(t *testing.T) {
	s := newTestSession(t, 6, 6, rules.DefaultOptions())
	u := laserMech(t, s, 1, world.Coords{X: 2, Y: 2})
	u.Prone = true
	u.Heat = 40

	script(s)
	s.applyHeat(u, NewLog(1, PhaseEnd))
	assert.Equal(t, 30, u.Heat)
	assert.True(t, u.Shutdown)
	assert.True(t, u.Prone)
}

func TestShutdownMechRestartsWhenCool(t *testing.T) {
	s := newTestSession(t, 6, 6, rules.DefaultOptions())
	u := laserMech(t, s, 1, world.Coords{X: 2, Y: 2})
	u.Shutdown = true
	u.Heat = 20

	script(s)
	s.applyHeat(u, NewLog(1, PhaseEnd))
	assert.Equal(t, 10, u.Heat)
	assert.False(t, u.Shutdown)
}

func TestHeatRollsInOrder(t *testing.T) {
	s := newTestSession(t, 6, 6, rules.DefaultOptions())
	u := place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 2, Y: 2}, world.North)
	u.Heat = 32

	// 19 heat after 13 sinks: the ammunition check needs 4, the shutdown
	// check needs 6.
	dice := script(s, rolls(4, 6)...)
	s.applyHeat(u, NewLog(1, PhaseEnd))
	assert.Zero(t, dice.Remaining())
	assert.Equal(t, 19, u.Heat)
	assert.False(t, u.Shutdown)
	assert.True(t, u.Active())
}

func TestTerrainHeat(t *testing.T) {
	s := newTestSession(t, 6, 6, rules.DefaultOptions())
	u := laserMech(t, s, 1, world.Coords{X: 2, Y: 2})
	h := s.Board.Get(u.Pos())
	h.Set(world.Woods, 1)
	h.Set(world.Fire, world.FireNormal)
	u.HeatBuildup = 10

	script(s)
	s.applyHeat(u, NewLog(1, PhaseEnd))
	assert.Equal(t, 2, u.Heat, "standing in fire adds two")
	assert.Zero(t, u.HeatBuildup)

	h.Remove(world.Fire)
	h.Remove(world.Woods)
	h.Set(world.Water, 1)
	u.HeatBuildup = 12
	s.applyHeat(u, NewLog(1, PhaseEnd))
	assert.Equal(t, 2, u.Heat, "water sheds two more")
}

func TestFireBurnsInfantry(t *testing.T) {
	s := newTestSession(t, 6, 6, rules.DefaultOptions())
	inf := place(t, s, 1, "Foot Rifle Platoon", world.Coords{X: 2, Y: 2}, world.North)
	h := s.Board.Get(inf.Pos())
	h.Set(world.Woods, 1)
	h.Set(world.Fire, world.FireNormal)

	script(s, 4)
	s.resolveHazards(NewLog(1, PhaseEnd))
	assert.Equal(t, 24, inf.Troopers())
}
