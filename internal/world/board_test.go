package world

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildingDamageClampsAtZero(t *testing.T) {
	b := NewBuilding(1, "depot", Light, []Coords{{1, 1}})
	b.CF, b.MaxCF = 10, 10

	taken, zero := b.Damage(6)
	assert.Equal(t, 6, taken)
	assert.False(t, zero)
	assert.Equal(t, 4, b.CF)

	taken, zero = b.Damage(6)
	assert.Equal(t, 4, taken)
	assert.True(t, zero)
	assert.Equal(t, 0, b.CF)

	taken, zero = b.Damage(6)
	assert.Equal(t, 0, taken)
	assert.False(t, zero, "zero is reported only once")
	assert.Equal(t, 0, b.CF)
}

func TestBuildingAbsorption(t *testing.T) {
	b := NewBuilding(1, "hall", Medium, []Coords{{1, 1}})
	assert.Equal(t, 4, b.Absorption())
	b.Damage(29)
	assert.Equal(t, 4, b.Absorption(), "damage this round does not thin the walls")
	b.StartRound()
	assert.Equal(t, 2, b.Absorption())
	b.Damage(11)
	assert.Equal(t, 0, b.Absorption())
}

func TestBoardCollapse(t *testing.T) {
	board := NewBoard(4, 4)
	bldg, err := board.AddBuilding("tower", Heavy, 3, []Coords{{1, 1}, {1, 2}})
	require.NoError(t, err)
	require.Equal(t, bldg, board.BuildingAt(Coords{1, 2}))
	assert.Equal(t, 3, board.Get(Coords{1, 1}).Level(BuildingTerrain))

	_, err = board.AddBuilding("overlap", Light, 1, []Coords{{1, 1}})
	assert.Error(t, err)

	board.Get(Coords{1, 1}).Set(Fire, FireNormal)
	gone := board.Collapse(bldg.ID)
	require.NotNil(t, gone)
	assert.True(t, gone.Collapsed)
	assert.Empty(t, board.Buildings)
	assert.Nil(t, board.BuildingAt(Coords{1, 1}))

	hex := board.Get(Coords{1, 1})
	assert.True(t, hex.Has(Rubble))
	assert.False(t, hex.Has(BuildingTerrain))
	assert.False(t, hex.Burning(), "normal fire needs fuel")

	assert.Nil(t, board.Collapse(bldg.ID), "collapse happens once")
}

func TestParseBoard(t *testing.T) {
	src := `size 4 3
# comment
hex 0101 0 "woods:2" ""
hex 0201 1 "water:1" ""
hex 0302 0 "building:2;bldg_elev:2;bldg_cf:30" ""
hex 0402 0 "building:2;bldg_elev:2" ""
hex 0103 0 "building:1" ""
end
`
	board, err := ParseBoard(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 4, board.Width)
	assert.Equal(t, 3, board.Height)
	assert.Equal(t, 2, board.Get(Coords{0, 0}).Level(Woods))
	assert.Equal(t, 1, board.Get(Coords{1, 0}).Depth())
	assert.Equal(t, 1, board.Get(Coords{1, 0}).Elevation)

	require.Len(t, board.Buildings, 2)
	medium := board.BuildingAt(Coords{2, 1})
	require.NotNil(t, medium)
	assert.Equal(t, Medium, medium.Category)
	assert.Len(t, medium.Hexes, 2)
	assert.Equal(t, 30, medium.CF)
	assert.Same(t, medium, board.BuildingAt(Coords{3, 1}))

	light := board.BuildingAt(Coords{0, 2})
	require.NotNil(t, light)
	assert.Equal(t, Light, light.Category)
	assert.Equal(t, 15, light.CF)
}

func TestParseBoardErrors(t *testing.T) {
	_, err := ParseBoard(strings.NewReader(`hex 0101 0 "" ""`))
	assert.Error(t, err)
	_, err = ParseBoard(strings.NewReader("size 2 2\nhex 0909 0 \"\" \"\"\n"))
	assert.Error(t, err)
	_, err = ParseBoard(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLineOfSight(t *testing.T) {
	board := NewBoard(3, 6)
	from, to := Coords{0, 0}, Coords{0, 3}

	los := board.LineOfSight(from, to, 1, 1)
	assert.True(t, los.Clear)
	assert.Zero(t, los.Intervening)

	board.Get(Coords{0, 1}).Set(Woods, 1)
	los = board.LineOfSight(from, to, 1, 1)
	assert.True(t, los.Clear)
	assert.Equal(t, 1, los.Intervening)

	board.Get(Coords{0, 2}).Set(Woods, 2)
	los = board.LineOfSight(from, to, 1, 1)
	assert.False(t, los.Clear)

	board = NewBoard(3, 6)
	board.Get(Coords{0, 2}).Elevation = 3
	assert.False(t, board.LineOfSight(from, to, 1, 1).Clear, "hill blocks")
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate(cfg)
	b := Generate(cfg)
	require.Equal(t, len(a.Hexes), len(b.Hexes))
	for i := range a.Hexes {
		assert.Equal(t, a.Hexes[i].Elevation, b.Hexes[i].Elevation)
		assert.Equal(t, a.Hexes[i].Terrain, b.Hexes[i].Terrain)
	}
	assert.Equal(t, len(a.Buildings), len(b.Buildings))
	for _, bldg := range a.Buildings {
		for _, c := range bldg.Hexes {
			assert.Equal(t, bldg.ID, a.Get(c).BuildingID)
		}
	}
}
