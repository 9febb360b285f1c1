// Fire: ignition, wind-driven spread and smoke.
package engine

import (
	"github.com/talgya/ironhex/internal/weather"
	"github.com/talgya/ironhex/internal/world"
)

// Spread target numbers, by position relative to the wind.
const (
	spreadDownwind = 9
	spreadFlank    = 11
	spreadLeap     = 12 // Two hexes downwind in a strong gale
)

// FireAttempt records one spread roll.
type FireAttempt struct {
	From    world.Coords `json:"from"`
	To      world.Coords `json:"to"`
	Target  int          `json:"target"`
	Roll    int          `json:"roll"`
	Ignited bool         `json:"ignited"`
}

// ignite starts a fire in a hex. Normal fires need fuel; inferno gel burns
// anywhere but water. It reports whether the hex changed.
func (s *Session) ignite(c world.Coords, inferno bool, log *Log) bool {
	if !s.Options.FireEnabled {
		return false
	}
	h := s.Board.Get(c)
	if h == nil || h.Depth() > 0 {
		return false
	}
	level := world.FireNormal
	if inferno {
		level = world.FireInferno
	} else if !h.Ignitable() {
		return false
	}
	if h.Level(world.Fire) >= level {
		return false
	}
	s.setFire(h, level, log)
	s.emitHexes([]*world.Hex{h})
	return true
}

func (s *Session) setFire(h *world.Hex, level int, log *Log) {
	h.Set(world.Fire, level)
	h.FireTurn = 0
	if b := s.Board.BuildingAt(h.Coords); b != nil {
		b.Burning = true
		s.touched[b.ID] = true
	}
	log.Add(0, "fire breaks out at %s", h.Coords)
}

// resolveFire runs the end of round fire pass. Only fires that survived a
// full round spread; all fires then age and lay smoke downwind.
func (s *Session) resolveFire(log *Log) []FireAttempt {
	var attempts []FireAttempt
	changed := make(map[world.Coords]*world.Hex)

	var burning []*world.Hex
	s.Board.Each(func(h *world.Hex) {
		if h.Burning() {
			burning = append(burning, h)
		}
	})
	for _, h := range burning {
		if h.FireTurn < 1 {
			continue
		}
		if b := s.Board.BuildingAt(h.Coords); b != nil {
			s.damageBuilding(b, 2, log)
		}
		switch {
		case h.Level(world.Fire) == world.FireInferno && h.FireTurn >= 3:
			log.Add(0, "the inferno at %s burns out", h.Coords)
			h.Remove(world.Fire)
			h.FireTurn = 0
			changed[h.Coords] = h
			continue
		case h.Level(world.Fire) == world.FireNormal && !h.Ignitable():
			log.Add(0, "the fire at %s goes out", h.Coords)
			h.Remove(world.Fire)
			h.FireTurn = 0
			changed[h.Coords] = h
			continue
		}
		for _, a := range s.spreadFire(h, log) {
			attempts = append(attempts, a)
			if a.Ignited {
				changed[a.To] = s.Board.Get(a.To)
			}
		}
	}

	s.Board.Each(func(h *world.Hex) {
		if h.Has(world.Smoke) {
			h.Remove(world.Smoke)
			changed[h.Coords] = h
		}
	})
	s.Board.Each(func(h *world.Hex) {
		if !h.Burning() {
			return
		}
		h.FireTurn++
		level := world.SmokeLight
		if h.Has(world.Woods) || h.BuildingID != 0 {
			level = world.SmokeHeavy
		}
		for _, d := range []int{0, -1, 1} {
			t := s.Board.Get(h.Coords.Translated(s.Wind.Direction.Rotate(d)))
			if t == nil {
				continue
			}
			if t.Level(world.Smoke) < level {
				t.Set(world.Smoke, level)
			}
			changed[t.Coords] = t
		}
	})

	hexes := make([]*world.Hex, 0, len(changed))
	s.Board.Each(func(h *world.Hex) {
		if changed[h.Coords] != nil {
			hexes = append(hexes, h)
		}
	})
	s.emitHexes(hexes)
	return attempts
}

// spreadFire rolls for the hexes downwind of a mature fire.
func (s *Session) spreadFire(h *world.Hex, log *Log) []FireAttempt {
	dir := s.Wind.Direction
	type candidate struct {
		c      world.Coords
		target int
	}
	cands := []candidate{
		{h.Coords.Translated(dir), spreadDownwind},
		{h.Coords.Translated(dir.Rotate(-1)), spreadFlank},
		{h.Coords.Translated(dir.Rotate(1)), spreadFlank},
	}
	if s.Wind.Strength >= weather.StrongGale {
		cands = append(cands, candidate{h.Coords.TranslatedN(dir, 2), spreadLeap})
	}
	var out []FireAttempt
	for _, c := range cands {
		t := s.Board.Get(c.c)
		if t == nil || t.Burning() || !t.Ignitable() {
			continue
		}
		roll := s.roll2d6()
		a := FireAttempt{From: h.Coords, To: c.c, Target: c.target, Roll: roll, Ignited: roll >= c.target}
		if a.Ignited {
			s.setFire(t, world.FireNormal, log)
		}
		out = append(out, a)
	}
	return out
}
