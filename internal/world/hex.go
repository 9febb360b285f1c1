// Package world provides the battlefield: hex coordinates, terrain, buildings and the board.
// Coordinates are zero-based offset columns (X) and rows (Y) with odd columns shifted down.
package world

import (
	"fmt"
	"math"
)

// Coords is a position on the hex grid in offset coordinates.
type Coords struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

func (c Coords) String() string {
	return fmt.Sprintf("%02d%02d", c.X+1, c.Y+1)
}

// Facing is one of the six hexside directions, clockwise from north.
type Facing int

const (
	North Facing = iota
	NorthEast
	SouthEast
	South
	SouthWest
	NorthWest
)

var facingNames = [6]string{"N", "NE", "SE", "S", "SW", "NW"}

func (f Facing) String() string {
	return facingNames[f.Normalize()]
}

// Normalize folds any integer rotation into 0..5.
func (f Facing) Normalize() Facing {
	return Facing(((int(f) % 6) + 6) % 6)
}

// Rotate turns the facing by delta hexsides (positive is clockwise).
func (f Facing) Rotate(delta int) Facing {
	return Facing(int(f) + delta).Normalize()
}

// Opposite returns the facing pointing the other way.
func (f Facing) Opposite() Facing {
	return f.Rotate(3)
}

// offsetDeltas holds neighbor offsets for even and odd columns.
var offsetDeltas = [2][6]Coords{
	{{0, -1}, {1, -1}, {1, 0}, {0, 1}, {-1, 0}, {-1, -1}},
	{{0, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}},
}

// Translated returns the coordinate one hex away in the given direction.
func (c Coords) Translated(f Facing) Coords {
	d := offsetDeltas[c.X&1][f.Normalize()]
	return Coords{X: c.X + d.X, Y: c.Y + d.Y}
}

// TranslatedN steps n hexes in the given direction.
func (c Coords) TranslatedN(f Facing, n int) Coords {
	for i := 0; i < n; i++ {
		c = c.Translated(f)
	}
	return c
}

// Neighbors returns the six adjacent coordinates indexed by facing.
func (c Coords) Neighbors() [6]Coords {
	var result [6]Coords
	for f := North; f <= NorthWest; f++ {
		result[f] = c.Translated(f)
	}
	return result
}

// Cube is the cube-coordinate form used for distances and lines.
type Cube struct {
	Q, R, S int
}

// ToCube converts offset coordinates to cube coordinates.
func (c Coords) ToCube() Cube {
	q := c.X
	r := c.Y - (c.X-(c.X&1))/2
	return Cube{Q: q, R: r, S: -q - r}
}

// FromCube converts cube coordinates back to offset coordinates.
func FromCube(h Cube) Coords {
	return Coords{X: h.Q, Y: h.R + (h.Q-(h.Q&1))/2}
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b Coords) int {
	ac, bc := a.ToCube(), b.ToCube()
	return max(abs(ac.Q-bc.Q), abs(ac.R-bc.R), abs(ac.S-bc.S))
}

// pixel returns the flat-top center of a hex with y growing southward.
func (c Coords) pixel() (float64, float64) {
	h := c.ToCube()
	return 1.5 * float64(h.Q), math.Sqrt(3) * (float64(h.R) + float64(h.Q)/2)
}

// Degrees returns the bearing from a to b, clockwise from north, in [0, 360).
func Degrees(a, b Coords) float64 {
	ax, ay := a.pixel()
	bx, by := b.pixel()
	deg := math.Atan2(bx-ax, -(by-ay)) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// DirectionTo returns the hexside facing that best points from a to b.
// Identical coordinates report North.
func DirectionTo(a, b Coords) Facing {
	if a == b {
		return North
	}
	return Facing(int(math.Floor(Degrees(a, b)/60+0.5)) % 6)
}

// Line returns the hexes strictly between a and b along the straight line.
func Line(a, b Coords) []Coords {
	dist := Distance(a, b)
	if dist <= 1 {
		return nil
	}
	ac, bc := a.ToCube(), b.ToCube()
	result := make([]Coords, 0, dist-1)
	for i := 1; i < dist; i++ {
		t := float64(i) / float64(dist)
		// A small nudge keeps lines along hexsides from flipping between runs.
		q := lerp(float64(ac.Q), float64(bc.Q), t) + 1e-6
		r := lerp(float64(ac.R), float64(bc.R), t) + 1e-6
		s := lerp(float64(ac.S), float64(bc.S), t) - 2e-6
		result = append(result, FromCube(cubeRound(q, r, s)))
	}
	return result
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func cubeRound(q, r, s float64) Cube {
	rq, rr, rs := math.Round(q), math.Round(r), math.Round(s)
	dq, dr, ds := math.Abs(rq-q), math.Abs(rr-r), math.Abs(rs-s)
	switch {
	case dq > dr && dq > ds:
		rq = -rr - rs
	case dr > ds:
		rr = -rq - rs
	default:
		rs = -rq - rr
	}
	return Cube{Q: int(rq), R: int(rr), S: int(rs)}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
