// Battlefield generation using layered simplex noise.
// Elevation, vegetation and roughness layers are sampled per hex and then
// quantized into board levels and terrain features.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds battlefield generation parameters.
type GenConfig struct {
	Width     int
	Height    int
	Seed      int64   // 0 = random
	WaterLvl  float64 // elevation below which hexes flood (0.0-1.0)
	HillLvl   float64 // elevation step size for one level
	WoodsLvl  float64 // vegetation threshold for light woods
	Buildings int     // number of building clusters to place
}

// DefaultGenConfig returns a standard two-map-sheet battlefield.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:     16,
		Height:    34,
		WaterLvl:  0.28,
		HillLvl:   0.18,
		WoodsLvl:  0.58,
		Buildings: 4,
	}
}

// SmallTestConfig returns a tiny board for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:     8,
		Height:    8,
		Seed:      42,
		WaterLvl:  0.25,
		HillLvl:   0.2,
		WoodsLvl:  0.6,
		Buildings: 1,
	}
}

// Generate creates a complete board with terrain and buildings.
func Generate(cfg GenConfig) *Board {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	woodNoise := opensimplex.NewNormalized(seed + 1)
	roughNoise := opensimplex.NewNormalized(seed + 2)

	b := NewBoard(cfg.Width, cfg.Height)
	for _, hex := range b.Hexes {
		x, y := hex.Coords.pixel()

		elev := octaveNoise(elevNoise, x, y, 4, 0.09, 0.5)
		veg := octaveNoise(woodNoise, x, y, 3, 0.15, 0.5)
		rough := octaveNoise(roughNoise, x, y, 2, 0.3, 0.5)

		switch {
		case elev < cfg.WaterLvl:
			// Deeper water toward the bottom of the noise range.
			depth := 1
			if elev < cfg.WaterLvl*0.6 {
				depth = 2
			}
			hex.Set(Water, depth)
		default:
			if cfg.HillLvl > 0 {
				hex.Elevation = int(math.Floor((elev - cfg.WaterLvl) / cfg.HillLvl))
			}
			switch {
			case veg > cfg.WoodsLvl+0.15:
				hex.Set(Woods, 2)
			case veg > cfg.WoodsLvl:
				hex.Set(Woods, 1)
			case rough > 0.72:
				hex.Set(Rough, 1)
			}
		}
	}

	smoothCliffs(b)
	rng := rand.New(rand.NewSource(seed + 200))
	for _, site := range PlaceBuildings(b, cfg.Buildings, rng) {
		hexes := []Coords{site.Coords}
		neighbors := site.Coords.Neighbors()
		for _, n := range neighbors[:site.Size-1] {
			if h := b.Get(n); h != nil && h.BuildingID == 0 && !h.Has(Water) && h.Elevation == b.Get(site.Coords).Elevation {
				hexes = append(hexes, n)
			}
		}
		for _, c := range hexes {
			h := b.Get(c)
			h.Remove(Woods)
			h.Remove(Rough)
			h.Set(Pavement, 1)
		}
		// Every hex was checked above, so AddBuilding cannot fail.
		_, _ = b.AddBuilding(site.Name, site.Category, site.Floors, hexes)
	}
	return b
}

// smoothCliffs limits neighboring elevation differences to two levels so
// generated boards stay walkable.
func smoothCliffs(b *Board) {
	for pass := 0; pass < 3; pass++ {
		for _, hex := range b.Hexes {
			for _, n := range hex.Coords.Neighbors() {
				nh := b.Get(n)
				if nh != nil && hex.Elevation-nh.Elevation > 2 {
					hex.Elevation = nh.Elevation + 2
				}
			}
		}
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainCounts returns a summary of terrain feature distribution.
func TerrainCounts(b *Board) map[TerrainType]int {
	counts := make(map[TerrainType]int)
	for _, hex := range b.Hexes {
		for t := range hex.Terrain {
			counts[t]++
		}
	}
	return counts
}
