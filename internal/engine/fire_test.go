package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/weather"
	"github.com/talgya/ironhex/internal/world"
)

// forest covers the whole board in light woods.
func forest(s *Session) {
	s.Board.Each(func(h *world.Hex) { h.Set(world.Woods, 1) })
}

func TestMatureFireSpreadsDownwind(t *testing.T) {
	s := newTestSession(t, 7, 7, rules.DefaultOptions())
	forest(s)
	s.Wind = weather.Wind{Direction: world.South, Strength: weather.LightGale}
	center := world.Coords{X: 3, Y: 3}
	h := s.Board.Get(center)
	h.Set(world.Fire, world.FireNormal)
	h.FireTurn = 1

	// Downwind needs 9, each flank 11.
	dice := script(s, rolls(9, 10, 11)...)
	attempts := s.resolveFire(NewLog(1, PhaseEnd))
	assert.Zero(t, dice.Remaining())

	require.Len(t, attempts, 3)
	down := center.Translated(world.South)
	left := center.Translated(world.South.Rotate(-1))
	right := center.Translated(world.South.Rotate(1))
	assert.Equal(t, FireAttempt{From: center, To: down, Target: 9, Roll: 9, Ignited: true}, attempts[0])
	assert.Equal(t, FireAttempt{From: center, To: left, Target: 11, Roll: 10}, attempts[1])
	assert.Equal(t, FireAttempt{From: center, To: right, Target: 11, Roll: 11, Ignited: true}, attempts[2])

	assert.True(t, s.Board.Get(down).Burning())
	assert.False(t, s.Board.Get(left).Burning())
	assert.True(t, s.Board.Get(right).Burning())
	assert.Equal(t, 2, h.FireTurn)
	assert.Equal(t, 1, s.Board.Get(down).FireTurn, "new fires age with the rest")

	upwind := s.Board.Get(center.Translated(world.North))
	assert.False(t, upwind.Has(world.Smoke))
	assert.Equal(t, world.SmokeHeavy, s.Board.Get(left).Level(world.Smoke))
}

func TestNewFireDoesNotSpread(t *testing.T) {
	s := newTestSession(t, 7, 7, rules.DefaultOptions())
	forest(s)
	s.Wind = weather.Wind{Direction: world.South, Strength: weather.StrongGale}
	h := s.Board.Get(world.Coords{X: 3, Y: 3})
	h.Set(world.Fire, world.FireNormal)

	script(s)
	attempts := s.resolveFire(NewLog(1, PhaseEnd))
	assert.Empty(t, attempts)
	assert.Equal(t, 1, h.FireTurn)
}

func TestFireNeedsFuel(t *testing.T) {
	s := newTestSession(t, 5, 5, rules.DefaultOptions())
	log := NewLog(1, PhaseFiring)
	clear := world.Coords{X: 1, Y: 1}

	assert.False(t, s.ignite(clear, false, log), "clear ground does not burn")
	assert.True(t, s.ignite(clear, true, log), "inferno gel burns anywhere dry")
	assert.Equal(t, world.FireInferno, s.Board.Get(clear).Level(world.Fire))

	s.Board.Get(world.Coords{X: 2, Y: 2}).Set(world.Water, 1)
	assert.False(t, s.ignite(world.Coords{X: 2, Y: 2}, true, log))

	s.Options.FireEnabled = false
	s.Board.Get(world.Coords{X: 3, Y: 3}).Set(world.Woods, 1)
	assert.False(t, s.ignite(world.Coords{X: 3, Y: 3}, false, log))
}

func TestInfernoBurnsOut(t *testing.T) {
	s := newTestSession(t, 5, 5, rules.DefaultOptions())
	h := s.Board.Get(world.Coords{X: 2, Y: 2})
	h.Set(world.Fire, world.FireInferno)
	h.FireTurn = 3

	script(s)
	s.resolveFire(NewLog(3, PhaseEnd))
	assert.False(t, h.Burning())
}
