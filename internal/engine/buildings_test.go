package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

func TestBuildingCollapsesOncePerRound(t *testing.T) {
	s := newTestSession(t, 6, 6, rules.DefaultOptions())
	rec := newRecorder()
	s.SetTransport(rec)
	at := world.Coords{X: 2, Y: 2}
	b, err := s.Board.AddBuilding("Shed", world.Light, 1, []world.Coords{at})
	require.NoError(t, err)
	b.CF, b.PhaseCF = 10, 10
	log := NewLog(1, PhaseFiring)

	assert.Equal(t, 6, s.damageBuilding(b, 6, log))
	assert.Equal(t, 4, b.CF)
	assert.Equal(t, 4, s.damageBuilding(b, 6, log), "CF stops at zero")
	assert.Zero(t, b.CF)
	assert.Zero(t, s.damageBuilding(b, 6, log))
	require.NotNil(t, s.Board.BuildingAt(at), "a building at zero waits for the end of the round")

	s.resolveCollapses(log)
	s.resolveCollapses(log)
	s.flush()

	batches := rec.ofType(EventBuildings)
	require.Len(t, batches, 1)
	batch := batches[0].Data.(BuildingBatch)
	assert.Equal(t, []int{b.ID}, batch.Collapsed)
	assert.Equal(t, map[int]int{b.ID: 0}, batch.CF)

	h := s.Board.Get(at)
	assert.Nil(t, s.Board.BuildingAt(at))
	assert.True(t, h.Has(world.Rubble))
	assert.False(t, h.Has(world.BuildingTerrain))
	assert.True(t, b.Collapsed)
	assert.Len(t, rec.ofType(EventHexes), 1)
}

func TestCollapseBuriesInfantry(t *testing.T) {
	s := newTestSession(t, 6, 6, rules.DefaultOptions())
	at := world.Coords{X: 3, Y: 3}
	b, err := s.Board.AddBuilding("Barracks", world.Light, 1, []world.Coords{at})
	require.NoError(t, err)
	inf := place(t, s, 1, "Foot Rifle Platoon", at, world.North)
	b.PhaseCF, b.CF = 20, 0
	log := NewLog(1, PhaseEnd)

	s.resolveCollapses(log)
	assert.Equal(t, 22, inf.Troopers(), "infantry take triple collapse damage")
	assert.True(t, inf.Active())
}

func TestOverloadedBuildingCollapses(t *testing.T) {
	s := newTestSession(t, 6, 6, rules.DefaultOptions())
	at := world.Coords{X: 3, Y: 3}
	_, err := s.Board.AddBuilding("Tower", world.Medium, 2, []world.Coords{at})
	require.NoError(t, err)
	atlas := place(t, s, 1, "Atlas AS7-D", at, world.North)
	ct := &atlas.Locations[units.CenterTorso]

	// Two floors of a CF 40 building: 8 points in groups of 5 and 3.
	dice := script(s, rolls(7, 7)...)
	s.resolveCollapses(NewLog(1, PhaseEnd))

	assert.Nil(t, s.Board.BuildingAt(at))
	assert.Equal(t, ct.MaxArmor-8, ct.Armor)
	assert.Zero(t, dice.Remaining())
}

func TestBuildingStartRoundRecordsCF(t *testing.T) {
	s := newTestSession(t, 6, 6, rules.DefaultOptions())
	b, err := s.Board.AddBuilding("Hall", world.Heavy, 1, []world.Coords{{X: 1, Y: 1}})
	require.NoError(t, err)
	s.damageBuilding(b, 30, NewLog(1, PhaseFiring))
	assert.Equal(t, 90, b.PhaseCF)

	s.startRound(PhaseEnd)
	assert.Equal(t, 60, b.PhaseCF)
}
