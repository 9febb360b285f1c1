package world

import (
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)

// Board holds the hex grid and the building catalog.
type Board struct {
	Width  int    `json:"width" msgpack:"width"`
	Height int    `json:"height" msgpack:"height"`
	Hexes  []*Hex `json:"hexes" msgpack:"hexes"` // column-major: X*Height + Y

	Buildings      map[int]*Building `json:"buildings" msgpack:"buildings"`
	NextBuildingID int               `json:"next_building_id" msgpack:"next_building_id"`
}

// NewBoard creates a flat, clear board.
func NewBoard(width, height int) *Board {
	b := &Board{
		Width:          width,
		Height:         height,
		Hexes:          make([]*Hex, width*height),
		Buildings:      make(map[int]*Building),
		NextBuildingID: 1,
	}
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			c := Coords{X: x, Y: y}
			b.Hexes[b.index(c)] = NewHex(c, 0)
		}
	}
	return b
}

func (b *Board) index(c Coords) int {
	return c.X*b.Height + c.Y
}

// Contains reports whether the coordinate is on the board.
func (b *Board) Contains(c Coords) bool {
	return c.X >= 0 && c.X < b.Width && c.Y >= 0 && c.Y < b.Height
}

// Get returns the hex at c, or nil when off the board.
func (b *Board) Get(c Coords) *Hex {
	if !b.Contains(c) {
		return nil
	}
	return b.Hexes[b.index(c)]
}

// OnEdge reports whether the coordinate lies on the board border.
func (b *Board) OnEdge(c Coords) bool {
	return b.Contains(c) && (c.X == 0 || c.Y == 0 || c.X == b.Width-1 || c.Y == b.Height-1)
}

// Each visits every hex in column-major order.
func (b *Board) Each(fn func(h *Hex)) {
	for _, h := range b.Hexes {
		fn(h)
	}
}

// AddBuilding registers a building over the given hexes and marks them.
func (b *Board) AddBuilding(name string, cat BuildingCategory, floors int, hexes []Coords) (*Building, error) {
	for _, c := range hexes {
		h := b.Get(c)
		if h == nil {
			return nil, fmt.Errorf("building %q: hex %s off board", name, c)
		}
		if h.BuildingID != 0 {
			return nil, fmt.Errorf("building %q: hex %s already holds building %d", name, c, h.BuildingID)
		}
	}
	bldg := NewBuilding(b.NextBuildingID, name, cat, hexes)
	b.NextBuildingID++
	b.Buildings[bldg.ID] = bldg
	for _, c := range hexes {
		h := b.Get(c)
		h.BuildingID = bldg.ID
		h.Set(BuildingTerrain, max(1, floors))
	}
	return bldg, nil
}

// BuildingAt returns the standing building occupying c, if any.
func (b *Board) BuildingAt(c Coords) *Building {
	h := b.Get(c)
	if h == nil || h.BuildingID == 0 {
		return nil
	}
	return b.Buildings[h.BuildingID]
}

// BuildingIDs returns catalog IDs in ascending order.
func (b *Board) BuildingIDs() []int {
	ids := maps.Keys(b.Buildings)
	slices.Sort(ids)
	return ids
}

// Collapse turns a building's hexes into rubble and removes it from the
// catalog. It returns nil if the building is unknown or already gone.
func (b *Board) Collapse(id int) *Building {
	bldg, ok := b.Buildings[id]
	if !ok || bldg.Collapsed {
		return nil
	}
	bldg.Collapsed = true
	bldg.CF = 0
	for _, c := range bldg.Hexes {
		h := b.Get(c)
		if h == nil {
			continue
		}
		h.Remove(BuildingTerrain)
		h.BuildingID = 0
		h.Set(Rubble, int(bldg.Category))
		// Normal fires need fuel; the rubble keeps an inferno only.
		if h.Level(Fire) == FireNormal && !h.Ignitable() {
			h.Remove(Fire)
			h.FireTurn = 0
		}
	}
	delete(b.Buildings, id)
	return bldg
}

func (b *Board) String() string {
	return fmt.Sprintf("Board(%dx%d, buildings=%d)", b.Width, b.Height, len(b.Buildings))
}
