package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ironhex/internal/engine"
	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/weather"
	"github.com/talgya/ironhex/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ironhex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSession(t *testing.T) *engine.Session {
	t.Helper()
	board := world.NewBoard(10, 10)
	board.Get(world.Coords{X: 4, Y: 4}).Set(world.Woods, 2)
	depot, err := board.AddBuilding("Depot", world.Medium, 2, []world.Coords{{X: 7, Y: 7}, {X: 7, Y: 8}})
	require.NoError(t, err)
	depot.CF -= 5

	s, err := engine.NewSession(engine.Config{
		Board:   board,
		Options: rules.DefaultOptions(),
		Wind:    weather.Wind{Direction: world.South, Strength: weather.ModerateGale},
		Seed:    42,
	})
	require.NoError(t, err)
	_, err = s.AddPlayer(1, "alice", 1)
	require.NoError(t, err)
	_, err = s.AddPlayer(2, "bob", 2)
	require.NoError(t, err)

	u, err := units.Spawn("Griffin GRF-1N", s.NextUnitID, 1)
	require.NoError(t, err)
	require.NoError(t, s.PlaceUnit(u, &world.Coords{X: 2, Y: 3}, world.SouthEast))
	_, err = s.AddUnit(2, "Commando COM-2D", 3)
	require.NoError(t, err)
	return s
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := sampleSession(t)
	data, err := Encode(s)
	require.NoError(t, err)

	got, err := Decode(data, nil, "")
	require.NoError(t, err)

	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.Phase, got.Phase)
	assert.Equal(t, s.Wind, got.Wind)
	assert.Equal(t, s.Options, got.Options)
	assert.Equal(t, s.NextUnitID, got.NextUnitID)
	require.Len(t, got.Players, 2)
	assert.Equal(t, 2, got.Players[1].Team)

	griffin := got.Unit(1)
	require.NotNil(t, griffin)
	assert.Equal(t, world.Coords{X: 2, Y: 3}, griffin.Pos())
	assert.Equal(t, world.SouthEast, griffin.Facing)
	commando := got.Unit(2)
	require.NotNil(t, commando)
	assert.False(t, commando.OnBoard())
	assert.Equal(t, 3, commando.DeployRound)

	assert.Equal(t, 2, got.Board.Get(world.Coords{X: 4, Y: 4}).Level(world.Woods))
	depot := got.Board.BuildingAt(world.Coords{X: 7, Y: 8})
	require.NotNil(t, depot)
	assert.Equal(t, world.Medium.DefaultCF()-5, depot.CF)
	assert.Equal(t, world.Medium.DefaultCF(), depot.MaxCF)
}

func TestEncodeIsStable(t *testing.T) {
	s := sampleSession(t)
	first, err := Encode(s)
	require.NoError(t, err)

	loaded, err := Decode(first, nil, "")
	require.NoError(t, err)
	second, err := Encode(loaded)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecodeRejectsCorruptPayloads(t *testing.T) {
	_, err := Decode([]byte("not a snapshot"), nil, "")
	assert.ErrorIs(t, err, ErrCorruptSnapshot)

	s := sampleSession(t)
	s.Unit(1).SwarmTargetID = 99
	data, err := Encode(s)
	require.NoError(t, err)
	_, err = Decode(data, nil, "")
	assert.ErrorIs(t, err, ErrCorruptSnapshot)

	s = sampleSession(t)
	s.Board.Hexes = s.Board.Hexes[:10]
	data, err = Encode(s)
	require.NoError(t, err)
	_, err = Decode(data, nil, "")
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestDecodeCompilesRules(t *testing.T) {
	data, err := Encode(sampleSession(t))
	require.NoError(t, err)

	_, err = Decode(data, []rules.ModifierSpec{{Name: "bad", When: "Range +", Value: 1}}, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorruptSnapshot)

	_, err = Decode(data, nil, "Round >= 3")
	assert.NoError(t, err)
}

func TestSaveLoadLatest(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Latest()
	assert.ErrorIs(t, err, ErrNotFound)

	s := sampleSession(t)
	first, err := db.Save(s)
	require.NoError(t, err)
	assert.Equal(t, s.ID, first.SessionID)
	assert.Equal(t, "lounge", first.Phase)
	assert.Positive(t, first.Size)

	second, err := db.Save(s)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	latest, err := db.Latest()
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	list, err := db.List(10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	loaded, err := db.Load(first.ID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
	assert.NotNil(t, loaded.Unit(1))

	_, err = db.Load("missing", nil, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportArchive(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.ArchiveReports("s1", nil))
	require.NoError(t, db.ArchiveReports("s1", []engine.Report{
		{Round: 1, Phase: engine.PhaseMovement, Unit: 3, Text: "walks"},
		{Round: 1, Phase: engine.PhaseFiring, Unit: 3, Text: "fires"},
	}))
	require.NoError(t, db.ArchiveReports("s2", []engine.Report{{Round: 1, Text: "elsewhere"}}))
	require.NoError(t, db.ArchiveReports("s1", []engine.Report{{Round: 2, Phase: engine.PhaseEnd, Text: "ends"}}))

	all, err := db.Reports("s1", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "walks", all[0].Text)
	assert.Equal(t, engine.PhaseMovement, all[0].Phase)
	assert.Equal(t, units.ID(3), all[0].Unit)
	assert.Equal(t, "ends", all[2].Text)

	last, err := db.Reports("s1", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "fires", last[0].Text)
	assert.Equal(t, "ends", last[1].Text)
}
