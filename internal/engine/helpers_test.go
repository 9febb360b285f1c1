package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/ironhex/internal/entropy"
	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

// recorder is a Transport that keeps everything it is handed.
type recorder struct {
	broadcast []Event
	unicast   map[units.PlayerID][]Event
}

func newRecorder() *recorder {
	return &recorder{unicast: make(map[units.PlayerID][]Event)}
}

func (r *recorder) Unicast(p units.PlayerID, ev Event) {
	r.unicast[p] = append(r.unicast[p], ev)
}

func (r *recorder) Broadcast(ev Event) {
	r.broadcast = append(r.broadcast, ev)
}

func (r *recorder) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range r.broadcast {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// newTestSession builds a session on a clear board with two players.
func newTestSession(t *testing.T, w, h int, opts rules.Options) *Session {
	t.Helper()
	s, err := NewSession(Config{Board: world.NewBoard(w, h), Options: opts, Seed: 7})
	require.NoError(t, err)
	_, err = s.AddPlayer(1, "alice", 0)
	require.NoError(t, err)
	_, err = s.AddPlayer(2, "bob", 0)
	require.NoError(t, err)
	return s
}

// place spawns a design on the board.
func place(t *testing.T, s *Session, owner units.PlayerID, design string, at world.Coords, f world.Facing) *units.Unit {
	t.Helper()
	u, err := units.Spawn(design, s.NextUnitID, owner)
	require.NoError(t, err)
	require.NoError(t, s.PlaceUnit(u, &at, f))
	return u
}

// laserMech is a mech without ammunition, so heat tests roll no explosions.
func laserMech(t *testing.T, s *Session, owner units.PlayerID, at world.Coords) *units.Unit {
	t.Helper()
	u, err := units.NewMech(s.NextUnitID, owner, units.MechSpec{
		Name: "Test Laser", Mass: 50, Walk: 5,
		Mounts: []units.Mount{{Name: "Medium Laser", Location: units.RightArm}},
	})
	require.NoError(t, err)
	require.NoError(t, s.PlaceUnit(u, &at, world.North))
	return u
}

// script swaps the session dice for fixed faces. Running past the end of
// the script panics, which catches unexpected rolls.
func script(s *Session, faces ...int) *entropy.Scripted {
	r := entropy.NewScripted(faces...)
	s.SetDice(r)
	return r
}

// rolls turns 2d6 totals into die faces.
func rolls(totals ...int) []int {
	var faces []int
	for _, t := range totals {
		faces = append(faces, entropy.Pair(t)...)
	}
	return faces
}

// startPhase puts the session straight into a turn phase.
func startPhase(s *Session, p Phase) {
	s.Phase = p
	s.preparePhase(p)
	s.TurnIndex = 0
	s.flush()
}

// frontPoints sums front armor and structure over every location.
func frontPoints(u *units.Unit) int {
	total := 0
	for _, l := range u.Locations {
		total += l.Armor + l.IS
	}
	return total
}
