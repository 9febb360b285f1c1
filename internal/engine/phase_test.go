package engine

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

func phasesEntered(r *recorder) []Phase {
	var out []Phase
	for _, ev := range r.ofType(EventPhase) {
		out = append(out, ev.Data.(PhaseChange).To)
	}
	return out
}

func readyAll(t *testing.T, s *Session) {
	t.Helper()
	for _, p := range s.Players {
		require.NoError(t, s.Handle(Order{Kind: OrderReady, Player: p.ID}))
	}
}

func TestPhaseNames(t *testing.T) {
	assert.Equal(t, "movement report", PhaseMovementReport.String())
	assert.Equal(t, "unknown", Phase(99).String())
	assert.True(t, PhaseFiring.HasTurns())
	assert.False(t, PhaseEnd.HasTurns())
	assert.True(t, PhaseFiringReport.IsReport())
}

func TestFullRound(t *testing.T) {
	s := newTestSession(t, 8, 12, rules.DefaultOptions())
	rec := newRecorder()
	s.SetTransport(rec)

	mine := map[units.PlayerID]*units.Unit{}
	for _, p := range []units.PlayerID{1, 2} {
		u, err := s.AddUnit(p, "Hunchback HBK-4G", 0)
		require.NoError(t, err)
		mine[p] = u
	}

	readyAll(t, s) // lounge
	assert.Equal(t, PhaseExchange, s.Phase)
	readyAll(t, s) // exchange
	require.Equal(t, PhaseDeployment, s.Phase)
	assert.Equal(t, 0, s.Round, "deployment belongs to round 0")
	assert.Len(t, s.Turns, 2)

	spots := map[units.PlayerID]struct {
		at world.Coords
		f  world.Facing
	}{
		1: {world.Coords{X: 2, Y: 2}, world.South},
		2: {world.Coords{X: 2, Y: 10}, world.North},
	}
	for i := 0; i < 2; i++ {
		p := s.CurrentTurn().Player
		require.NoError(t, s.Handle(Order{Kind: OrderDeploy, Player: p, Unit: mine[p].ID,
			Position: spots[p].at, Facing: spots[p].f}))
	}
	require.Equal(t, PhaseMovement, s.Phase)
	assert.Equal(t, 1, s.Round)
	assert.Len(t, s.Turns, 2)

	for i := 0; i < 2; i++ {
		p := s.CurrentTurn().Player
		require.NoError(t, s.Handle(Order{Kind: OrderMove, Player: p, Unit: mine[p].ID,
			Move: MoveOrder{Mode: units.MoveWalk, Steps: []MoveStep{{Type: StepForward}}}}))
	}
	assert.Equal(t, world.Coords{X: 2, Y: 3}, mine[1].Pos())
	assert.Equal(t, world.Coords{X: 2, Y: 9}, mine[2].Pos())
	require.Equal(t, PhaseMovementReport, s.Phase)

	readyAll(t, s)
	require.Equal(t, PhaseFiring, s.Phase)
	for i := 0; i < 2; i++ {
		p := s.CurrentTurn().Player
		require.NoError(t, s.Handle(Order{Kind: OrderAttack, Player: p, Unit: mine[p].ID}))
	}

	// No shots means no firing report, no adjacent enemies means no physical
	// turns, and the end phase runs on its own.
	assert.Equal(t, PhaseMovement, s.Phase)
	assert.Equal(t, 2, s.Round)
	assert.Equal(t, []Phase{
		PhaseExchange, PhaseInitiative, PhaseDeployment, PhaseInitiative, PhaseMovement,
		PhaseMovementReport, PhaseFiring, PhaseEnd, PhaseInitiative, PhaseMovement,
	}, phasesEntered(rec))
}

func TestEmptyRosterWaitsInEndPhase(t *testing.T) {
	s := newTestSession(t, 4, 4, rules.DefaultOptions())
	readyAll(t, s)
	readyAll(t, s)

	require.Equal(t, PhaseEnd, s.Phase, "nothing to play must not spin the round counter")
	assert.Equal(t, 1, s.Round)

	readyAll(t, s)
	require.NotNil(t, s.Victory)
	assert.True(t, s.Victory.Draw)
	assert.Equal(t, PhaseVictory, s.Phase)

	readyAll(t, s)
	assert.Equal(t, PhaseLounge, s.Phase)
	assert.Nil(t, s.Victory)
	assert.Len(t, s.Players, 2)
}

func TestPreparePhaseIsIdempotent(t *testing.T) {
	s := newTestSession(t, 10, 10, rules.DefaultOptions())
	place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 1, Y: 1}, world.South)
	place(t, s, 1, "Commando COM-2D", world.Coords{X: 3, Y: 1}, world.South)
	place(t, s, 2, "Atlas AS7-D", world.Coords{X: 5, Y: 8}, world.North)
	place(t, s, 2, "Foot Rifle Platoon", world.Coords{X: 6, Y: 8}, world.North)
	s.rollInitiative()

	eligibleSet := func() []units.ID {
		var ids []units.ID
		for _, u := range s.Units {
			if s.eligible(u, PhaseMovement) {
				ids = append(ids, u.ID)
			}
		}
		return ids
	}

	startPhase(s, PhaseMovement)
	first, firstEligible := slices.Clone(s.Turns), eligibleSet()
	s.preparePhase(PhaseMovement)

	assert.Equal(t, first, s.Turns)
	assert.Equal(t, firstEligible, eligibleSet())
	assert.Len(t, first, 4)
}

func TestTurnQueueConsumedBeforePhaseEnds(t *testing.T) {
	s := newTestSession(t, 10, 10, rules.DefaultOptions())
	a := place(t, s, 1, "Hunchback HBK-4G", world.Coords{X: 1, Y: 1}, world.South)
	b := place(t, s, 1, "Commando COM-2D", world.Coords{X: 3, Y: 1}, world.South)
	c := place(t, s, 2, "Atlas AS7-D", world.Coords{X: 5, Y: 8}, world.North)
	startPhase(s, PhaseMovement)
	require.Len(t, s.Turns, 3)

	byOwner := map[units.PlayerID][]*units.Unit{1: {a, b}, 2: {c}}
	for i := 0; i < 3; i++ {
		require.Equal(t, PhaseMovement, s.Phase, "phase ended with turns left")
		p := s.CurrentTurn().Player
		u := byOwner[p][0]
		byOwner[p] = byOwner[p][1:]
		require.NoError(t, s.Handle(Order{Kind: OrderMove, Player: p, Unit: u.ID,
			Move: MoveOrder{Mode: units.MoveWalk, Steps: []MoveStep{{Type: StepTurnLeft}}}}))
	}
	assert.Equal(t, PhaseMovementReport, s.Phase)
	for _, u := range []*units.Unit{a, b, c} {
		assert.True(t, u.Done)
	}
}
