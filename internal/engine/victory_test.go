package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

func TestLastPlayerStandingWins(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	mine := place(t, s, 1, "Commando COM-2D", world.Coords{X: 1, Y: 1}, world.South)
	place(t, s, 2, "Commando COM-2D", world.Coords{X: 5, Y: 5}, world.North)
	assert.Nil(t, s.EvaluateVictory())

	mine.Doomed = true
	s.removeDoomed()
	v := s.EvaluateVictory()
	require.NotNil(t, v)
	assert.Equal(t, units.PlayerID(2), v.Winner)
	assert.False(t, v.Draw)
}

func TestTeamVictory(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	_, err := s.AddPlayer(3, "carol", 2)
	require.NoError(t, err)
	s.Player(1).Team, s.Player(2).Team = 1, 1
	place(t, s, 1, "Commando COM-2D", world.Coords{X: 1, Y: 1}, world.South)
	place(t, s, 2, "Commando COM-2D", world.Coords{X: 2, Y: 1}, world.South)
	foe := place(t, s, 3, "Commando COM-2D", world.Coords{X: 5, Y: 5}, world.North)
	assert.Nil(t, s.EvaluateVictory())

	foe.Doomed = true
	s.removeDoomed()
	assert.Equal(t, &VictoryResult{Team: 1}, s.EvaluateVictory())
}

func TestEverybodyDeadIsADraw(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	assert.Equal(t, &VictoryResult{Draw: true}, s.EvaluateVictory())
}

func TestObserversDoNotCount(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	s.Player(2).Observer = true
	place(t, s, 1, "Commando COM-2D", world.Coords{X: 1, Y: 1}, world.South)
	v := s.EvaluateVictory()
	require.NotNil(t, v)
	assert.Equal(t, units.PlayerID(1), v.Winner)
}

func TestEndCondition(t *testing.T) {
	opts := rules.DefaultOptions()
	opts.CheckVictory = false
	s := newTestSession(t, 8, 8, opts)
	require.NoError(t, s.ConfigureRules(nil, "Round >= 3"))
	place(t, s, 1, "Commando COM-2D", world.Coords{X: 1, Y: 1}, world.South)
	place(t, s, 2, "Commando COM-2D", world.Coords{X: 5, Y: 5}, world.North)

	s.Round = 2
	assert.Nil(t, s.EvaluateVictory())
	s.Round = 3
	assert.Equal(t, &VictoryResult{Draw: true}, s.EvaluateVictory())

	require.NoError(t, s.ConfigureRules(nil, "Live[1] == 0"))
	for _, u := range s.OwnedBy(1) {
		u.Doomed = true
	}
	s.removeDoomed()
	v := s.EvaluateVictory()
	require.NotNil(t, v)
	assert.Equal(t, units.PlayerID(2), v.Winner, "the tally decides a met end condition")
}

func TestCheckVictoryOff(t *testing.T) {
	opts := rules.DefaultOptions()
	opts.CheckVictory = false
	s := newTestSession(t, 8, 8, opts)
	place(t, s, 1, "Commando COM-2D", world.Coords{X: 1, Y: 1}, world.South)
	assert.Nil(t, s.EvaluateVictory())
}

func TestBadEndConditionRejected(t *testing.T) {
	s := newTestSession(t, 4, 4, rules.DefaultOptions())
	assert.Error(t, s.ConfigureRules(nil, "Round +"))
	assert.Error(t, s.ConfigureRules([]rules.ModifierSpec{{Name: "night", When: "Nope > 1", Value: 1}}, ""))
}

func TestEndPhaseDeclaresWinner(t *testing.T) {
	s := newTestSession(t, 8, 8, rules.DefaultOptions())
	rec := newRecorder()
	s.SetTransport(rec)
	mine := place(t, s, 1, "Commando COM-2D", world.Coords{X: 1, Y: 1}, world.South)
	place(t, s, 2, "Commando COM-2D", world.Coords{X: 5, Y: 5}, world.North)
	s.Round = 4
	mine.Doomed = true

	var rounds []int
	s.OnRound = func(round int, _ []Report) { rounds = append(rounds, round) }
	s.roundPlayed = true
	s.Phase = PhasePhysical
	s.enterPhase(PhaseEnd)
	s.flush()

	assert.Equal(t, PhaseVictory, s.Phase)
	require.NotNil(t, s.Victory)
	assert.Equal(t, units.PlayerID(2), s.Victory.Winner)
	assert.Equal(t, []int{4}, rounds)
	assert.Len(t, rec.ofType(EventVictory), 1)
}
