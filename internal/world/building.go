// Buildings and their construction factor (CF).
package world

import "fmt"

// BuildingCategory is the construction class of a building.
type BuildingCategory uint8

const (
	Light BuildingCategory = iota + 1
	Medium
	Heavy
	Hardened
)

var categoryNames = map[BuildingCategory]string{
	Light:    "light",
	Medium:   "medium",
	Heavy:    "heavy",
	Hardened: "hardened",
}

func (c BuildingCategory) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return "unknown"
}

// DefaultCF returns the standard construction factor for a category.
func (c BuildingCategory) DefaultCF() int {
	switch c {
	case Light:
		return 15
	case Medium:
		return 40
	case Heavy:
		return 90
	case Hardened:
		return 120
	}
	return 0
}

// WallModifier is the piloting modifier for moving through the building's walls.
func (c BuildingCategory) WallModifier() int {
	switch c {
	case Medium:
		return 1
	case Heavy:
		return 2
	case Hardened:
		return 5
	}
	return 0
}

// Building is a structure occupying one or more hexes.
type Building struct {
	ID       int              `json:"id" msgpack:"id"`
	Name     string           `json:"name" msgpack:"name"`
	Category BuildingCategory `json:"category" msgpack:"category"`
	Hexes    []Coords         `json:"hexes" msgpack:"hexes"`

	// CF is the current construction factor, MaxCF the undamaged value and
	// PhaseCF the value at the start of the round (collapse damage and shielding).
	CF      int `json:"cf" msgpack:"cf"`
	MaxCF   int `json:"max_cf" msgpack:"max_cf"`
	PhaseCF int `json:"phase_cf" msgpack:"phase_cf"`

	Burning   bool `json:"burning" msgpack:"burning"`
	Collapsed bool `json:"collapsed" msgpack:"collapsed"`
}

// NewBuilding creates a building at full strength.
func NewBuilding(id int, name string, cat BuildingCategory, hexes []Coords) *Building {
	cf := cat.DefaultCF()
	return &Building{
		ID:       id,
		Name:     name,
		Category: cat,
		Hexes:    hexes,
		CF:       cf,
		MaxCF:    cf,
		PhaseCF:  cf,
	}
}

func (b *Building) String() string {
	return fmt.Sprintf("%s %s (CF %d/%d)", b.Category, b.Name, b.CF, b.MaxCF)
}

// Contains reports whether the building occupies the coordinate.
func (b *Building) Contains(c Coords) bool {
	for _, h := range b.Hexes {
		if h == c {
			return true
		}
	}
	return false
}

// Absorption is the damage the building soaks from each hit on a unit
// inside it. It follows the round-start CF so every hit of the round is
// shielded alike, whatever order they resolve in.
func (b *Building) Absorption() int {
	if b.Collapsed || b.CF <= 0 {
		return 0
	}
	return (b.PhaseCF + 9) / 10
}

// Damage lowers CF, clamping at zero. It returns the damage actually taken and
// whether this call brought the building to zero for the first time.
func (b *Building) Damage(amount int) (taken int, reachedZero bool) {
	if amount <= 0 || b.Collapsed || b.CF == 0 {
		return 0, false
	}
	taken = min(amount, b.CF)
	b.CF -= taken
	return taken, b.CF == 0
}

// StartRound records the round-start CF.
func (b *Building) StartRound() {
	b.PhaseCF = b.CF
}
