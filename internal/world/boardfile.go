// Parser for the plain-text .board format:
//
//	size 16 17
//	hex 0101 0 "woods:1;fire:1" "grass"
//	hex 0205 1 "building:2;bldg_elev:2;bldg_cf:40" ""
//	end
package world

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

type pendingBuilding struct {
	category BuildingCategory
	floors   int
	cf       int
}

// ParseBoard reads a board definition. Adjacent building hexes of the same
// category are merged into one building.
func ParseBoard(r io.Reader) (*Board, error) {
	var board *Board
	bldgHexes := make(map[Coords]pendingBuilding)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line == "end" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "size":
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: size needs width and height", lineNo)
			}
			w, errW := strconv.Atoi(fields[1])
			h, errH := strconv.Atoi(fields[2])
			if errW != nil || errH != nil || w <= 0 || h <= 0 {
				return nil, fmt.Errorf("line %d: bad size %q", lineNo, line)
			}
			board = NewBoard(w, h)
		case "hex":
			if board == nil {
				return nil, fmt.Errorf("line %d: hex before size", lineNo)
			}
			if err := parseHexLine(board, fields, bldgHexes); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading board: %w", err)
	}
	if board == nil {
		return nil, fmt.Errorf("board has no size line")
	}
	if err := groupBuildings(board, bldgHexes); err != nil {
		return nil, err
	}
	return board, nil
}

func parseHexLine(board *Board, fields []string, bldgHexes map[Coords]pendingBuilding) error {
	if len(fields) < 3 || len(fields[1]) != 4 {
		return fmt.Errorf("malformed hex line")
	}
	col, errC := strconv.Atoi(fields[1][:2])
	row, errR := strconv.Atoi(fields[1][2:])
	elev, errE := strconv.Atoi(fields[2])
	if errC != nil || errR != nil || errE != nil {
		return fmt.Errorf("malformed hex %q", fields[1])
	}
	c := Coords{X: col - 1, Y: row - 1}
	hex := board.Get(c)
	if hex == nil {
		return fmt.Errorf("hex %s off board", fields[1])
	}
	hex.Elevation = elev
	if len(fields) < 4 {
		return nil
	}

	var pb pendingBuilding
	for _, feat := range strings.Split(strings.Trim(fields[3], "\""), ";") {
		parts := strings.Split(strings.TrimSpace(feat), ":")
		if parts[0] == "" {
			continue
		}
		level := 1
		if len(parts) > 1 {
			if v, err := strconv.Atoi(parts[1]); err == nil {
				level = v
			}
		}
		switch parts[0] {
		case "bldg_elev":
			pb.floors = level
		case "bldg_cf":
			pb.cf = level
		case "building":
			pb.category = BuildingCategory(min(max(level, 1), int(Hardened)))
		default:
			if t, ok := ParseTerrainType(parts[0]); ok {
				hex.Set(t, level)
			}
		}
	}
	if pb.category != 0 {
		bldgHexes[c] = pb
	}
	return nil
}

func groupBuildings(board *Board, bldgHexes map[Coords]pendingBuilding) error {
	// Walk in a stable order so building IDs do not depend on map iteration.
	coords := make([]Coords, 0, len(bldgHexes))
	for c := range bldgHexes {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Y < coords[j].Y
	})

	seen := make(map[Coords]bool)
	for _, start := range coords {
		if seen[start] {
			continue
		}
		pb := bldgHexes[start]
		group := []Coords{start}
		seen[start] = true
		for i := 0; i < len(group); i++ {
			for _, n := range group[i].Neighbors() {
				other, ok := bldgHexes[n]
				if !ok || seen[n] || other.category != pb.category {
					continue
				}
				seen[n] = true
				group = append(group, n)
			}
		}
		floors := max(pb.floors, 1)
		bldg, err := board.AddBuilding(fmt.Sprintf("building %s", start), pb.category, floors, group)
		if err != nil {
			return err
		}
		if pb.cf > 0 {
			bldg.CF, bldg.MaxCF, bldg.PhaseCF = pb.cf, pb.cf, pb.cf
		}
	}
	return nil
}
