// Building placement: scores flat dry hexes and seeds building clusters.
package world

import (
	"math/rand"
	"sort"
)

// BuildingSite holds the parameters for one generated building.
type BuildingSite struct {
	Coords   Coords
	Category BuildingCategory
	Floors   int
	Size     int // hexes in the cluster, 1-3
	Score    float64
	Name     string
}

// PlaceBuildings picks up to n sites sorted by desirability.
func PlaceBuildings(b *Board, n int, rng *rand.Rand) []BuildingSite {
	if n <= 0 {
		return nil
	}
	type scored struct {
		coords Coords
		score  float64
	}
	var candidates []scored
	for _, hex := range b.Hexes {
		s := siteScore(b, hex)
		if s > 0 {
			candidates = append(candidates, scored{hex.Coords, s})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var sites []BuildingSite
	minDist := 4
	for _, c := range candidates {
		if len(sites) >= n {
			break
		}
		if tooClose(c.coords, sites, minDist) {
			continue
		}
		cat := BuildingCategory(1 + rng.Intn(int(Hardened)))
		sites = append(sites, BuildingSite{
			Coords:   c.coords,
			Category: cat,
			Floors:   1 + rng.Intn(3),
			Size:     1 + rng.Intn(3),
			Score:    c.score,
		})
	}

	names := generateNames(rng, len(sites))
	for i := range sites {
		sites[i].Name = names[i]
	}
	return sites
}

// siteScore prefers open, level ground away from the deployment edges.
func siteScore(b *Board, hex *Hex) float64 {
	if hex.Has(Water) || hex.Has(Woods) || b.OnEdge(hex.Coords) {
		return 0
	}
	score := 3.0
	for _, n := range hex.Coords.Neighbors() {
		nh := b.Get(n)
		if nh == nil {
			continue
		}
		if nh.Elevation == hex.Elevation && !nh.Has(Water) {
			score += 0.5
		}
		if nh.Has(Woods) {
			score -= 0.2
		}
	}
	// Central rows make better objectives.
	mid := float64(b.Height) / 2
	score -= absf(float64(hex.Coords.Y)-mid) / mid
	return score
}

func tooClose(c Coords, existing []BuildingSite, minDist int) bool {
	for _, s := range existing {
		if Distance(c, s.Coords) < minDist {
			return true
		}
	}
	return false
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// generateNames produces procedural building names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Iron", "Ash", "Stone", "Cross", "Black", "Silver", "Red", "High",
		"Old", "Far", "Deep", "Gold", "Frost", "Storm", "Copper",
	}
	suffixes := []string{
		" Depot", " Works", " Tower", " Hall", " Barracks", " Hangar",
		" Mill", " Relay", " Yard", " Factory", " Silo", " Garage",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)
	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}
	return names
}
