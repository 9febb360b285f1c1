// Building damage and the once-per-round collapse batch.
package engine

import (
	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

// damageBuilding lowers a building's CF. CF never goes below zero and a
// building at zero waits for the collapse batch.
func (s *Session) damageBuilding(b *world.Building, amount int, log *Log) int {
	taken, zero := b.Damage(amount)
	if taken == 0 {
		return 0
	}
	s.touched[b.ID] = true
	log.Add(0, "%s takes %d damage, CF %d", b.Name, taken, b.CF)
	if zero {
		log.Add(0, "%s is ready to come down", b.Name)
	}
	return taken
}

// overloaded reports a multi-storey building hex carrying more tonnage than
// the building's CF.
func (s *Session) overloaded(b *world.Building) bool {
	for _, c := range b.Hexes {
		h := s.Board.Get(c)
		if h == nil || h.Level(world.BuildingTerrain) < 2 {
			continue
		}
		load := 0
		for _, u := range s.UnitsAt(c) {
			if !u.IsInfantry() {
				load += u.Mass
			}
		}
		if load > b.CF {
			return true
		}
	}
	return false
}

// resolveCollapses brings down every building at CF zero or overloaded,
// then sends the round's building changes as one batch.
func (s *Session) resolveCollapses(log *Log) {
	batch := BuildingBatch{CF: make(map[int]int)}
	for _, id := range s.Board.BuildingIDs() {
		b := s.Board.Buildings[id]
		if b.CF == 0 || s.overloaded(b) {
			s.collapse(b, log)
			batch.Collapsed = append(batch.Collapsed, id)
		}
	}
	for id := range s.touched {
		if b, ok := s.Board.Buildings[id]; ok {
			batch.CF[id] = b.CF
		} else {
			batch.CF[id] = 0
		}
	}
	if len(batch.CF) > 0 || len(batch.Collapsed) > 0 {
		s.emit(Event{Type: EventBuildings, Data: batch})
	}
	s.touched = make(map[int]bool)
}

// collapse drops a building on everything inside it and leaves rubble.
// Damage scales with the CF the building had when the round began.
func (s *Session) collapse(b *world.Building, log *Log) {
	log.Add(0, "%s collapses", b.Name)
	base := rules.CeilDiv(b.PhaseCF, 10)
	var hexes []*world.Hex
	for _, c := range b.Hexes {
		h := s.Board.Get(c)
		if h == nil {
			continue
		}
		hexes = append(hexes, h)
		floors := max(1, h.Level(world.BuildingTerrain))
		for _, u := range s.UnitsAt(c) {
			dmg := base * floors
			if u.IsInfantry() {
				dmg *= 3
			}
			log.Add(u.ID, "%s is buried under %s for %d damage", u, b.Name, dmg)
			for _, g := range rules.DamageGroups(dmg, 5) {
				if !u.Active() {
					break
				}
				s.applyDamage(u, s.hitFor(u, units.Front), g, damageOpts{}, log)
			}
		}
	}
	s.touched[b.ID] = true
	s.Board.Collapse(b.ID)
	s.emitHexes(hexes)
}
