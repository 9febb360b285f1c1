// Line of sight along straight hex lines.
package world

// LOS is the result of a line-of-sight check.
type LOS struct {
	Clear bool
	// Intervening is the sum of woods and smoke levels between the hexes.
	Intervening int
}

// maxIntervening is the woods/smoke total at which sight is blocked.
const maxIntervening = 3

// LineOfSight checks sight between two hexes. Heights are the number of
// levels the observer and target rise above their hex floor.
func (b *Board) LineOfSight(from, to Coords, fromHeight, toHeight int) LOS {
	fh, th := b.Get(from), b.Get(to)
	if fh == nil || th == nil {
		return LOS{}
	}
	eye := fh.Floor() + fromHeight
	top := th.Floor() + toHeight

	result := LOS{Clear: true}
	for _, c := range Line(from, to) {
		h := b.Get(c)
		if h == nil {
			continue
		}
		ground := h.Elevation
		if h.Has(BuildingTerrain) {
			ground += h.Level(BuildingTerrain)
		}
		if ground > eye && ground > top {
			return LOS{}
		}
		// Woods and smoke only matter when they rise into the sight line.
		if h.Elevation+2 > min(eye, top) {
			result.Intervening += h.Level(Woods) + h.Level(Smoke)
		}
	}
	if result.Intervening >= maxIntervening {
		return LOS{Intervening: result.Intervening}
	}
	return result
}
