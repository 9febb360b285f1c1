// Terrain features and the per-hex record that carries them.
package world

import (
	"sort"
	"strings"
)

// TerrainType identifies a terrain feature; each present feature carries a level.
type TerrainType uint8

const (
	Woods           TerrainType = iota + 1 // 1 light, 2 heavy
	Water                                  // level is depth
	Rough
	Rubble
	Pavement
	Road
	BuildingTerrain                        // level is floors above ground
	Fire                                   // 1 normal, 2 inferno
	Smoke                                  // 1 light, 2 heavy
)

// Fire and smoke levels.
const (
	FireNormal  = 1
	FireInferno = 2
	SmokeLight  = 1
	SmokeHeavy  = 2
)

var terrainNames = map[TerrainType]string{
	Woods:           "woods",
	Water:           "water",
	Rough:           "rough",
	Rubble:          "rubble",
	Pavement:        "pavement",
	Road:            "road",
	BuildingTerrain: "building",
	Fire:            "fire",
	Smoke:           "smoke",
}

func (t TerrainType) String() string {
	if s, ok := terrainNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseTerrainType maps a terrain name (case-insensitive) to its type.
func ParseTerrainType(name string) (TerrainType, bool) {
	name = strings.ToLower(name)
	for t, n := range terrainNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Hex is a single board tile.
type Hex struct {
	Coords    Coords              `json:"coords" msgpack:"coords"`
	Elevation int                 `json:"elevation" msgpack:"elevation"`
	Terrain   map[TerrainType]int `json:"terrain,omitempty" msgpack:"terrain"`

	// BuildingID links the hex to the board's building catalog; 0 means none.
	BuildingID int `json:"building_id,omitempty" msgpack:"building_id"`

	// FireTurn counts completed environment passes since ignition. A fire with
	// FireTurn 0 was lit this round and cannot spread yet.
	FireTurn int `json:"fire_turn,omitempty" msgpack:"fire_turn"`
}

// NewHex returns a clear hex at the given elevation.
func NewHex(c Coords, elevation int) *Hex {
	return &Hex{Coords: c, Elevation: elevation, Terrain: make(map[TerrainType]int)}
}

// Has reports whether the terrain feature is present.
func (h *Hex) Has(t TerrainType) bool {
	_, ok := h.Terrain[t]
	return ok
}

// Level returns the feature level, or 0 when absent.
func (h *Hex) Level(t TerrainType) int {
	return h.Terrain[t]
}

// Set adds or replaces a terrain feature.
func (h *Hex) Set(t TerrainType, level int) {
	if h.Terrain == nil {
		h.Terrain = make(map[TerrainType]int)
	}
	h.Terrain[t] = level
}

// Remove deletes a terrain feature.
func (h *Hex) Remove(t TerrainType) {
	delete(h.Terrain, t)
}

// Depth returns the water depth, or 0 on dry land.
func (h *Hex) Depth() int {
	return h.Terrain[Water]
}

// Floor returns the elevation of the lowest standing surface (the bottom of any water).
func (h *Hex) Floor() int {
	return h.Elevation - h.Depth()
}

// Burning reports whether the hex contains fire.
func (h *Hex) Burning() bool {
	return h.Has(Fire)
}

// Ignitable reports whether a normal fire can exist here.
func (h *Hex) Ignitable() bool {
	return h.Has(Woods) || h.BuildingID != 0
}

// Slick reports whether running turns here risk a skid.
func (h *Hex) Slick() bool {
	return h.Has(Pavement) || h.Has(Road)
}

// Features lists present terrain in a stable order.
func (h *Hex) Features() []TerrainType {
	out := make([]TerrainType, 0, len(h.Terrain))
	for t := range h.Terrain {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a deep copy for snapshots and outbound events.
func (h *Hex) Clone() *Hex {
	c := *h
	c.Terrain = make(map[TerrainType]int, len(h.Terrain))
	for t, l := range h.Terrain {
		c.Terrain[t] = l
	}
	return &c
}
