package entropy

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Roller is the dice source used by every resolver.
type Roller interface {
	// D6 returns a value in [1, 6].
	D6() int
}

// Roll2D6 sums two six-sided dice.
func Roll2D6(r Roller) int {
	return r.D6() + r.D6()
}

// RollND6 sums n six-sided dice.
func RollND6(r Roller, n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += r.D6()
	}
	return total
}

// Seeded is a deterministic PCG dice stream. The draw count is tracked so a
// restored session continues the same stream.
type Seeded struct {
	mu    sync.Mutex
	seed  uint64
	draws uint64
	rng   *rand.Rand
}

// NewSeeded creates a dice stream for a seed.
func NewSeeded(seed uint64) *Seeded {
	return &Seeded{seed: seed, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Restore recreates a stream and advances it past draws rolls.
func Restore(seed, draws uint64) *Seeded {
	s := NewSeeded(seed)
	for i := uint64(0); i < draws; i++ {
		s.rng.IntN(6)
	}
	s.draws = draws
	return s
}

// D6 implements Roller.
func (s *Seeded) D6() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws++
	return s.rng.IntN(6) + 1
}

// State returns the seed and the number of draws taken.
func (s *Seeded) State() (seed, draws uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed, s.draws
}

// Scripted replays fixed die faces, then falls back to another roller.
// It is meant for tests and replays.
type Scripted struct {
	faces    []int
	pos      int
	fallback Roller
}

// NewScripted creates a scripted roller. Faces outside [1, 6] panic on use.
func NewScripted(faces ...int) *Scripted {
	return &Scripted{faces: faces}
}

// Then sets the roller used once the script runs out.
func (s *Scripted) Then(r Roller) *Scripted {
	s.fallback = r
	return s
}

// Push appends faces to the script.
func (s *Scripted) Push(faces ...int) {
	s.faces = append(s.faces, faces...)
}

// Remaining reports unused scripted faces.
func (s *Scripted) Remaining() int {
	return len(s.faces) - s.pos
}

// D6 implements Roller.
func (s *Scripted) D6() int {
	if s.pos >= len(s.faces) {
		if s.fallback != nil {
			return s.fallback.D6()
		}
		panic(fmt.Sprintf("entropy: script exhausted after %d rolls", s.pos))
	}
	f := s.faces[s.pos]
	s.pos++
	if f < 1 || f > 6 {
		panic(fmt.Sprintf("entropy: scripted face %d out of range", f))
	}
	return f
}

// Pair returns two faces summing to a 2d6 total, for scripting 2d6 rolls.
func Pair(total int) []int {
	total = min(max(total, 2), 12)
	first := min(total-1, 6)
	return []int{first, total - first}
}
