// Attack declarations and the shared attack geometry.
package engine

import (
	"fmt"
	"math"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

// AttackKind is the closed set of attack variants.
type AttackKind uint8

const (
	AttackWeapon AttackKind = iota + 1
	AttackPunch
	AttackKick
	AttackPush
	AttackClub
	AttackCharge
	AttackDFA
	AttackBrushOff
	AttackThrash
	AttackSwarm
)

var attackNames = map[AttackKind]string{
	AttackWeapon:   "weapon",
	AttackPunch:    "punch",
	AttackKick:     "kick",
	AttackPush:     "push",
	AttackClub:     "club",
	AttackCharge:   "charge",
	AttackDFA:      "death from above",
	AttackBrushOff: "brush off",
	AttackThrash:   "thrash",
	AttackSwarm:    "swarm",
}

func (k AttackKind) String() string {
	if n, ok := attackNames[k]; ok {
		return n
	}
	return "unknown"
}

// Physical reports attacks resolved in the physical phase.
func (k AttackKind) Physical() bool {
	return k != AttackWeapon && k != AttackSwarm && k != 0
}

// TargetType says what an attack is aimed at.
type TargetType uint8

const (
	TargetUnit TargetType = iota + 1
	TargetHex
	TargetBuilding
)

// Target names a unit, a hex or a building.
type Target struct {
	Type     TargetType   `json:"type" msgpack:"type"`
	Unit     units.ID     `json:"unit,omitempty" msgpack:"unit"`
	Hex      world.Coords `json:"hex" msgpack:"hex"`
	Building int          `json:"building,omitempty" msgpack:"building"`
}

// UnitTarget is shorthand for targeting a unit.
func UnitTarget(id units.ID) Target {
	return Target{Type: TargetUnit, Unit: id}
}

// AttackDeclaration is one declared attack. Weapon and Ammo are equipment
// indexes; Limb is the arm or leg used by punches, kicks, clubs and
// brush-offs.
type AttackDeclaration struct {
	Kind     AttackKind       `json:"kind" msgpack:"kind"`
	Attacker units.ID         `json:"attacker" msgpack:"attacker"`
	Target   Target           `json:"target" msgpack:"target"`
	Weapon   int              `json:"weapon,omitempty" msgpack:"weapon"`
	Ammo     int              `json:"ammo,omitempty" msgpack:"ammo"` // Preferred bin, -1 for any
	Limb     units.LocationID `json:"limb,omitempty" msgpack:"limb"`
}

func (a AttackDeclaration) String() string {
	return fmt.Sprintf("%s by %d", a.Kind, a.Attacker)
}

// targetPos resolves where an attack lands.
func (s *Session) targetPos(t Target) (world.Coords, bool) {
	switch t.Type {
	case TargetUnit:
		if u := s.Unit(t.Unit); u != nil && u.OnBoard() {
			return u.Pos(), true
		}
	case TargetHex:
		return t.Hex, s.Board.Contains(t.Hex)
	case TargetBuilding:
		if b := s.Board.Buildings[t.Building]; b != nil && !b.Collapsed && len(b.Hexes) > 0 {
			return b.Hexes[0], true
		}
	}
	return world.Coords{}, false
}

// relativeBearing is the angle of from as seen from a unit at pos facing f,
// clockwise, in [0, 360).
func relativeBearing(pos world.Coords, f world.Facing, from world.Coords) float64 {
	deg := world.Degrees(pos, from) - float64(f)*60
	return math.Mod(deg+720, 360)
}

// attackSide is the side of the target an attack from pos strikes.
func attackSide(target *units.Unit, from world.Coords) units.Side {
	if target.Pos() == from {
		return units.Front
	}
	deg := relativeBearing(target.Pos(), target.Facing, from)
	switch {
	case deg <= 60 || deg >= 300:
		return units.Front
	case deg < 150:
		return units.Right
	case deg <= 210:
		return units.Rear
	}
	return units.Left
}

// inArc reports whether a weapon can bear on the target hex.
func inArc(u *units.Unit, m *units.Mounted, to world.Coords) bool {
	if u.IsInfantry() || u.Pos() == to {
		return true
	}
	deg := relativeBearing(u.Pos(), u.Facing, to)
	front := deg <= 90 || deg >= 270
	if u.Kind == units.Vehicle {
		switch m.Location {
		case units.VehicleTurret:
			return !u.Crits.TurretLock || front
		case units.VehicleRight:
			return deg >= 30 && deg <= 150
		case units.VehicleLeft:
			return deg >= 210 && deg <= 330
		case units.VehicleRear:
			return deg >= 90 && deg <= 270
		}
		return front
	}
	if m.Rear {
		return deg >= 90 && deg <= 270
	}
	return front
}

// baseModifiers adds the movement, terrain and target state modifiers every
// attack shares.
func (s *Session) baseModifiers(t *rules.TargetRoll, a, target *units.Unit) {
	t.Add(rules.AttackerMovementModifier(int(a.MoveType)), "attacker "+a.MoveType.String())
	if a.Kind == units.Mech && a.Prone {
		t.Add(2, "attacker prone")
	}
	if target == nil {
		t.Add(-4, "stationary target")
		return
	}
	t.Add(rules.TargetMovementModifier(target.Moved, target.MoveType == units.MoveJump), "target movement")
	if target.Prone {
		if distance(a, target) <= 1 {
			t.Add(-2, "prone adjacent")
		} else {
			t.Add(1, "prone target")
		}
	}
	if target.Immobile || target.Shutdown || target.Unconscious {
		t.Add(-4, "immobile target")
	}
	if h := s.Board.Get(target.Pos()); h != nil {
		t.Add(h.Level(world.Woods), "woods")
		t.Add(h.Level(world.Smoke), "smoke")
	}
}

// attackEnv exposes an attack to custom modifier rules.
func (s *Session) attackEnv(a, target *units.Unit, d int, band rules.RangeBand, weapon string, kind AttackKind) rules.AttackEnv {
	env := rules.AttackEnv{
		Round:        s.Round,
		Distance:     d,
		Range:        band.String(),
		Weapon:       weapon,
		AttackerKind: a.Kind.String(),
		AttackerMove: a.MoveType.String(),
		AttackerHeat: a.Heat,
		WindStrength: int(s.Wind.Strength),
	}
	if kind.Physical() {
		env.Physical = kind.String()
	}
	if target != nil {
		env.TargetKind = target.Kind.String()
		env.TargetMoved = target.Moved
		env.TargetProne = target.Prone
		if h := s.Board.Get(target.Pos()); h != nil {
			env.TargetInBldg = h.BuildingID != 0
			env.TargetWoods = h.Level(world.Woods)
		}
	}
	return env
}
