package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

func TestReindexRejectsBrokenState(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Session, a, b *units.Unit)
		want   string
	}{
		{"one-sided swarm", func(_ *Session, a, b *units.Unit) { a.SwarmTargetID = b.ID }, "swarm target"},
		{"missing carrier", func(_ *Session, a, _ *units.Unit) { a.TransportedByID = 99 }, "missing unit 99"},
		{"duplicate id", func(_ *Session, a, b *units.Unit) { b.ID = a.ID }, "duplicate unit id"},
		{"unknown owner", func(_ *Session, a, _ *units.Unit) { a.Owner = 7 }, "unknown owner"},
		{"turn index", func(s *Session, _, _ *units.Unit) { s.TurnIndex = 5 }, "turn index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, 6, 6, rules.DefaultOptions())
			a := place(t, s, 1, "Commando COM-2D", world.Coords{X: 1, Y: 1}, world.North)
			b := place(t, s, 2, "Commando COM-2D", world.Coords{X: 4, Y: 4}, world.North)
			tt.mutate(s, a, b)
			err := s.Reindex()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReindexRestoresCountersAndDice(t *testing.T) {
	s := newTestSession(t, 6, 6, rules.DefaultOptions())
	place(t, s, 1, "Commando COM-2D", world.Coords{X: 1, Y: 1}, world.North)
	dead := place(t, s, 2, "Commando COM-2D", world.Coords{X: 4, Y: 4}, world.North)
	s.Units = s.Units[:1]
	s.Graveyard = append(s.Graveyard, dead)
	s.NextUnitID = 1

	for range 5 {
		s.d6()
	}
	s.SyncDice()
	var before []int
	for range 8 {
		before = append(before, s.d6())
	}

	require.NoError(t, s.Reindex())
	assert.Equal(t, dead.ID+1, s.NextUnitID)
	assert.Nil(t, s.Unit(dead.ID))
	var after []int
	for range 8 {
		after = append(after, s.d6())
	}
	assert.Equal(t, before, after)
}

func TestDoubleBlindVisibility(t *testing.T) {
	opts := rules.DefaultOptions()
	opts.DoubleBlind = true
	s, err := NewSession(Config{Board: world.NewBoard(30, 6), Options: opts, Seed: 7})
	require.NoError(t, err)
	for _, p := range []struct {
		id   units.PlayerID
		team int
	}{{1, 1}, {2, 2}, {3, 1}, {4, 0}} {
		_, err := s.AddPlayer(p.id, "p", p.team)
		require.NoError(t, err)
	}
	s.Player(4).Observer = true

	mine := place(t, s, 1, "Commando COM-2D", world.Coords{X: 2, Y: 2}, world.North)
	far := place(t, s, 2, "Commando COM-2D", world.Coords{X: 26, Y: 2}, world.North)

	assert.True(t, s.CanSee(1, mine))
	assert.False(t, s.CanSee(1, far), "beyond visual range")
	assert.True(t, s.CanSee(2, far))
	assert.True(t, s.CanSee(3, mine), "teammates share vision")
	assert.True(t, s.CanSee(4, far), "observers see everything")
	assert.False(t, s.CanSee(9, far), "unknown players see nothing")

	far.SetPosition(world.Coords{X: 8, Y: 2})
	assert.True(t, s.CanSee(1, far))
	assert.True(t, s.CanSee(3, far), "spotted by a teammate")

	s.Options.TeamVision = false
	assert.False(t, s.CanSee(3, far))
	assert.False(t, s.CanSee(3, mine))
}

func TestUnitUpdatesFollowVisibility(t *testing.T) {
	opts := rules.DefaultOptions()
	opts.DoubleBlind = true
	s := newTestSession(t, 30, 6, opts)
	hidden := place(t, s, 2, "Commando COM-2D", world.Coords{X: 26, Y: 2}, world.North)
	place(t, s, 1, "Commando COM-2D", world.Coords{X: 2, Y: 2}, world.North)
	rec := newRecorder()
	s.SetTransport(rec)

	s.queueUnit(hidden)
	s.flush()
	assert.Empty(t, rec.broadcast)
	assert.Len(t, rec.unicast[2], 1)
	assert.Empty(t, rec.unicast[1])
}

func TestLoungeOnlyEditing(t *testing.T) {
	s := newTestSession(t, 6, 6, rules.DefaultOptions())
	u, err := s.AddUnit(1, "Commando COM-2D", 0)
	require.NoError(t, err)
	assert.False(t, u.Deployed)
	assert.Equal(t, units.ID(2), s.NextUnitID)

	_, err = s.AddUnit(9, "Commando COM-2D", 0)
	assert.Error(t, err)
	_, err = s.AddUnit(1, "No Such Design", 0)
	assert.Error(t, err)

	s.Phase = PhaseMovement
	_, err = s.AddUnit(1, "Commando COM-2D", 0)
	assert.ErrorIs(t, err, ErrWrongPhase)
	_, err = s.AddPlayer(3, "carol", 0)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestEnemies(t *testing.T) {
	s, err := NewSession(Config{Board: world.NewBoard(4, 4), Options: rules.DefaultOptions()})
	require.NoError(t, err)
	for _, p := range []struct {
		id   units.PlayerID
		team int
	}{{1, 1}, {2, 1}, {3, 2}, {4, 0}, {5, 0}} {
		_, err := s.AddPlayer(p.id, "p", p.team)
		require.NoError(t, err)
	}
	assert.False(t, s.Enemies(1, 1))
	assert.False(t, s.Enemies(1, 2))
	assert.True(t, s.Enemies(1, 3))
	assert.True(t, s.Enemies(4, 5), "players without a team fight everyone")
	assert.True(t, s.Enemies(1, 4))
}
