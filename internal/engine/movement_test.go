package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

func steps(types ...StepType) []MoveStep {
	out := make([]MoveStep, len(types))
	for i, st := range types {
		out[i] = MoveStep{Type: st}
	}
	return out
}

// moveFirst builds a movement-phase session where player 1's mech holds the
// first turn.
func moveFirst(t *testing.T, design string) (*Session, *units.Unit) {
	t.Helper()
	s := newTestSession(t, 8, 10, rules.DefaultOptions())
	u := place(t, s, 1, design, world.Coords{X: 2, Y: 2}, world.South)
	place(t, s, 2, "Commando COM-2D", world.Coords{X: 6, Y: 8}, world.North)
	startPhase(s, PhaseMovement)
	require.Equal(t, units.PlayerID(1), s.CurrentTurn().Player)
	return s, u
}

func TestWalkCostsMPAndHeat(t *testing.T) {
	s, u := moveFirst(t, "Hunchback HBK-4G")
	s.Board.Get(world.Coords{X: 2, Y: 4}).Set(world.Woods, 1)

	require.NoError(t, s.Handle(Order{Kind: OrderMove, Player: 1, Unit: u.ID,
		Move: MoveOrder{Mode: units.MoveWalk, Steps: steps(StepForward, StepForward, StepTurnLeft)}}))
	assert.Equal(t, world.Coords{X: 2, Y: 4}, u.Pos())
	assert.Equal(t, world.South.Rotate(-1), u.Facing)
	assert.Equal(t, 4, u.MPUsed, "one, two for light woods, one to turn")
	assert.Equal(t, 2, u.Moved)
	assert.Equal(t, units.MoveWalk, u.MoveType)
	assert.Equal(t, 1, u.HeatBuildup)
	assert.True(t, u.Done)
}

func TestRunAndJumpHeat(t *testing.T) {
	s, u := moveFirst(t, "Hunchback HBK-4G")
	require.NoError(t, s.Handle(Order{Kind: OrderMove, Player: 1, Unit: u.ID,
		Move: MoveOrder{Mode: units.MoveRun, Steps: steps(StepForward)}}))
	assert.Equal(t, 2, u.HeatBuildup)

	s, g := moveFirst(t, "Griffin GRF-1N")
	require.NoError(t, s.Handle(Order{Kind: OrderMove, Player: 1, Unit: g.ID,
		Move: MoveOrder{Mode: units.MoveJump, Steps: steps(StepForward, StepForward)}}))
	assert.Equal(t, world.Coords{X: 2, Y: 4}, g.Pos())
	assert.Equal(t, 3, g.HeatBuildup, "jumping costs at least three")
}

func TestJumpOverTerrainCostsOnePerHex(t *testing.T) {
	s, g := moveFirst(t, "Griffin GRF-1N")
	for y := 3; y <= 6; y++ {
		s.Board.Get(world.Coords{X: 2, Y: y}).Set(world.Woods, 2)
	}
	require.NoError(t, s.Handle(Order{Kind: OrderMove, Player: 1, Unit: g.ID,
		Move: MoveOrder{Mode: units.MoveJump, Steps: steps(StepForward, StepForward, StepForward, StepForward, StepForward)}}))
	assert.Equal(t, world.Coords{X: 2, Y: 7}, g.Pos())
	assert.Equal(t, 5, g.MPUsed)
	assert.Equal(t, 5, g.HeatBuildup)
}

func TestIllegalMoves(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Session, u *units.Unit)
		move  MoveOrder
	}{
		{"cliff", func(s *Session, _ *units.Unit) {
			s.Board.Get(world.Coords{X: 2, Y: 3}).Elevation = 3
		}, MoveOrder{Mode: units.MoveWalk, Steps: steps(StepForward)}},
		{"prone", func(_ *Session, u *units.Unit) { u.Prone = true }, MoveOrder{Mode: units.MoveWalk, Steps: steps(StepForward)}},
		{"backward run", nil, MoveOrder{Mode: units.MoveRun, Steps: steps(StepBackward)}},
		{"no jump jets", nil, MoveOrder{Mode: units.MoveJump, Steps: steps(StepForward)}},
		{"steps after going prone", nil, MoveOrder{Mode: units.MoveWalk, Steps: steps(StepGoProne, StepForward)}},
		{"flee from the middle", nil, MoveOrder{Mode: units.MoveWalk, Steps: steps(StepFlee)}},
		{"unknown step", nil, MoveOrder{Mode: units.MoveWalk, Steps: []MoveStep{{Type: StepType(99)}}}},
		{"charge without run-up", func(s *Session, _ *units.Unit) {
			place(t, s, 2, "Commando COM-2D", world.Coords{X: 2, Y: 3}, world.North)
		}, MoveOrder{Mode: units.MoveWalk, Steps: []MoveStep{{Type: StepCharge, Target: 3}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, u := moveFirst(t, "Hunchback HBK-4G")
			if tt.setup != nil {
				tt.setup(s, u)
			}
			err := s.Handle(Order{Kind: OrderMove, Player: 1, Unit: u.ID, Move: tt.move})
			require.Error(t, err)
			assert.Equal(t, world.Coords{X: 2, Y: 2}, u.Pos())
			assert.Zero(t, u.MPUsed)
			assert.False(t, u.Done)
		})
	}
}

func TestChargeIsDeclaredDuringMovement(t *testing.T) {
	s, u := moveFirst(t, "Hunchback HBK-4G")
	foe := place(t, s, 2, "Commando COM-2D", world.Coords{X: 2, Y: 4}, world.North)

	require.NoError(t, s.Handle(Order{Kind: OrderMove, Player: 1, Unit: u.ID,
		Move: MoveOrder{Mode: units.MoveWalk, Steps: []MoveStep{{Type: StepForward}, {Type: StepCharge, Target: foe.ID}}}}))
	require.Len(t, s.Attacks, 1)
	assert.Equal(t, AttackCharge, s.Attacks[0].Kind)
	assert.Equal(t, foe.ID, s.Attacks[0].Target.Unit)
	assert.Equal(t, world.Coords{X: 2, Y: 3}, u.Pos())
	assert.False(t, s.eligible(u, PhasePhysical))
}

func TestFallInRubbleGrantsAnExtraTurn(t *testing.T) {
	s, u := moveFirst(t, "Hunchback HBK-4G")
	s.Board.Get(world.Coords{X: 2, Y: 3}).Set(world.Rubble, 1)

	// A failed rubble check, the facing die, a center torso hit and a
	// passed pilot roll.
	script(s, append(append(rolls(2), 1), rolls(7, 8)...)...)
	require.NoError(t, s.Handle(Order{Kind: OrderMove, Player: 1, Unit: u.ID,
		Move: MoveOrder{Mode: units.MoveWalk, Steps: steps(StepForward, StepForward)}}))

	assert.Equal(t, world.Coords{X: 2, Y: 3}, u.Pos(), "the fall ends the move")
	assert.True(t, u.Prone)
	assert.Equal(t, 2, u.MPUsed)
	require.Equal(t, Turn{Kind: TurnSpecificUnit, Player: 1, Unit: u.ID}, *s.CurrentTurn())

	script(s, rolls(9)...)
	require.NoError(t, s.Handle(Order{Kind: OrderMove, Player: 1, Unit: u.ID,
		Move: MoveOrder{Mode: units.MoveWalk, Steps: steps(StepGetUp)}}))
	assert.False(t, u.Prone)
	assert.Equal(t, 4, u.MPUsed)
	assert.Equal(t, 1, u.HeatBuildup, "movement heat is booked once")
	assert.Equal(t, units.PlayerID(2), s.CurrentTurn().Player)
}

func TestMovementIsDeterministic(t *testing.T) {
	run := func() (*units.Unit, []Report) {
		s, u := moveFirst(t, "Hunchback HBK-4G")
		for y := 3; y <= 5; y++ {
			s.Board.Get(world.Coords{X: 2, Y: y}).Set(world.Rubble, 1)
		}
		require.NoError(t, s.Handle(Order{Kind: OrderMove, Player: 1, Unit: u.ID,
			Move: MoveOrder{Mode: units.MoveRun, Steps: steps(StepForward, StepForward, StepForward)}}))
		return u, s.Reports
	}
	u1, r1 := run()
	u2, r2 := run()
	assert.Equal(t, u1, u2)
	assert.Equal(t, r1, r2)
}

func TestLoadInfantry(t *testing.T) {
	s := newTestSession(t, 8, 10, rules.DefaultOptions())
	apc := place(t, s, 1, "Tracked APC", world.Coords{X: 2, Y: 2}, world.South)
	inf := place(t, s, 1, "Foot Rifle Platoon", world.Coords{X: 2, Y: 2}, world.South)
	place(t, s, 2, "Commando COM-2D", world.Coords{X: 6, Y: 8}, world.North)
	startPhase(s, PhaseMovement)

	require.NoError(t, s.Handle(Order{Kind: OrderMove, Player: 1, Unit: apc.ID,
		Move: MoveOrder{Mode: units.MoveWalk, Steps: []MoveStep{{Type: StepLoad, Target: inf.ID}, {Type: StepForward}}}}))
	assert.Equal(t, apc.ID, inf.TransportedByID)
	assert.False(t, inf.OnBoard())
	assert.Equal(t, []units.ID{inf.ID}, apc.Transports)
	assert.NoError(t, s.Reindex())
}

func TestBuildingWallsOnEveryCrossing(t *testing.T) {
	start, next := world.Coords{X: 2, Y: 2}, world.Coords{X: 2, Y: 3}
	tests := []struct {
		name      string
		buildings [][]world.Coords
	}{
		{"walking out", [][]world.Coords{{start}}},
		{"walking in", [][]world.Coords{{next}}},
		{"within one building", [][]world.Coords{{start, next}}},
		{"from one building into another", [][]world.Coords{{start}, {next}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, u := moveFirst(t, "Hunchback HBK-4G")
			var bs []*world.Building
			for _, hexes := range tt.buildings {
				b, err := s.Board.AddBuilding("Block", world.Heavy, 1, hexes)
				require.NoError(t, err)
				b.CF, b.PhaseCF = 60, 60
				bs = append(bs, b)
			}

			require.NoError(t, s.Handle(Order{Kind: OrderMove, Player: 1, Unit: u.ID,
				Move: MoveOrder{Mode: units.MoveWalk, Steps: steps(StepForward)}}))
			require.Equal(t, next, u.Pos())

			for i, b := range bs {
				assert.Equal(t, 60-rules.CeilDiv(u.Mass, 10), b.CF, "building %d is crossed exactly once", i)
			}
		})
	}
}
