// Hit locations, hit tables and damage transfer.
package units

// LocationID indexes Unit.Locations. The meaning depends on the unit kind.
type LocationID int

// NoLocation marks "nowhere to transfer".
const NoLocation LocationID = -1

// Mech locations.
const (
	Head LocationID = iota
	CenterTorso
	RightTorso
	LeftTorso
	RightArm
	LeftArm
	RightLeg
	LeftLeg
)

// Vehicle locations.
const (
	VehicleFront LocationID = iota
	VehicleRight
	VehicleLeft
	VehicleRear
	VehicleTurret
)

// Troopers is the single location of a conventional infantry platoon.
const Troopers LocationID = 0

// Side is the arc of the target an attack strikes.
type Side uint8

const (
	Front Side = iota
	Left
	Right
	Rear
)

var sideNames = [...]string{"front", "left", "right", "rear"}

func (s Side) String() string {
	if int(s) < len(sideNames) {
		return sideNames[s]
	}
	return "unknown"
}

// Location is the armor, structure and slot state of one hit location.
type Location struct {
	Name      string `json:"name" msgpack:"name"`
	Armor     int    `json:"armor" msgpack:"armor"`
	RearArmor int    `json:"rear_armor" msgpack:"rear_armor"`
	IS        int    `json:"is" msgpack:"is"`
	MaxArmor  int    `json:"max_armor" msgpack:"max_armor"`
	MaxRear   int    `json:"max_rear" msgpack:"max_rear"`
	MaxIS     int    `json:"max_is" msgpack:"max_is"`
	HasRear   bool   `json:"has_rear" msgpack:"has_rear"`
	Destroyed bool   `json:"destroyed" msgpack:"destroyed"`
	Slots     []Slot `json:"slots,omitempty" msgpack:"slots"`
}

// ArmorFor returns the armor facing the given direction.
func (l *Location) ArmorFor(rear bool) int {
	if rear && l.HasRear {
		return l.RearArmor
	}
	return l.Armor
}

// HitData describes where damage lands.
type HitData struct {
	Location LocationID
	Rear     bool
	Side     Side
	// Critical is set on the table's through-armor critical result.
	Critical bool
}

// Transfer returns the location damage flows into once loc is destroyed.
func (u *Unit) Transfer(loc LocationID) LocationID {
	if u.Kind != Mech {
		return NoLocation
	}
	switch loc {
	case RightArm, RightLeg:
		return RightTorso
	case LeftArm, LeftLeg:
		return LeftTorso
	case RightTorso, LeftTorso:
		return CenterTorso
	}
	return NoLocation
}

// IsLimb reports arms and legs.
func IsLimb(loc LocationID) bool {
	return loc == RightArm || loc == LeftArm || loc == RightLeg || loc == LeftLeg
}

// IsLeg reports the two legs.
func IsLeg(loc LocationID) bool {
	return loc == RightLeg || loc == LeftLeg
}

// Mech hit tables indexed by 2d6 roll - 2.
var (
	mechFrontTable = [11]LocationID{CenterTorso, RightArm, RightArm, RightLeg, RightTorso, CenterTorso, LeftTorso, LeftLeg, LeftArm, LeftArm, Head}
	mechLeftTable  = [11]LocationID{LeftTorso, LeftLeg, LeftArm, LeftArm, LeftLeg, LeftTorso, CenterTorso, RightTorso, RightArm, RightLeg, Head}
	mechRightTable = [11]LocationID{RightTorso, RightLeg, RightArm, RightArm, RightLeg, RightTorso, CenterTorso, LeftTorso, LeftArm, LeftLeg, Head}
)

// Vehicle hit tables indexed by 2d6 roll - 2.
var (
	vehicleFrontTable = [11]LocationID{VehicleFront, VehicleFront, VehicleFront, VehicleRight, VehicleFront, VehicleFront, VehicleFront, VehicleLeft, VehicleTurret, VehicleTurret, VehicleTurret}
	vehicleRightTable = [11]LocationID{VehicleRight, VehicleRight, VehicleRight, VehicleFront, VehicleRight, VehicleRight, VehicleRight, VehicleRear, VehicleTurret, VehicleTurret, VehicleTurret}
	vehicleLeftTable  = [11]LocationID{VehicleLeft, VehicleLeft, VehicleLeft, VehicleRear, VehicleLeft, VehicleLeft, VehicleLeft, VehicleFront, VehicleTurret, VehicleTurret, VehicleTurret}
	vehicleRearTable  = [11]LocationID{VehicleRear, VehicleRear, VehicleRear, VehicleLeft, VehicleRear, VehicleRear, VehicleRear, VehicleRight, VehicleTurret, VehicleTurret, VehicleTurret}
)

// HitLocation maps a 2d6 roll to a location for the given attack side.
// Infantry ignore the roll; battle armor use Trooper instead.
func (u *Unit) HitLocation(side Side, roll int) HitData {
	idx := min(max(roll, 2), 12) - 2
	switch u.Kind {
	case Mech:
		hit := HitData{Side: side, Rear: side == Rear, Critical: roll == 2}
		switch side {
		case Left:
			hit.Location = mechLeftTable[idx]
		case Right:
			hit.Location = mechRightTable[idx]
		default:
			hit.Location = mechFrontTable[idx]
		}
		return hit
	case Vehicle:
		hit := HitData{Side: side, Critical: roll == 2 || roll == 12}
		switch side {
		case Left:
			hit.Location = vehicleLeftTable[idx]
		case Right:
			hit.Location = vehicleRightTable[idx]
		case Rear:
			hit.Location = vehicleRearTable[idx]
		default:
			hit.Location = vehicleFrontTable[idx]
		}
		if hit.Location == VehicleTurret && len(u.Locations) <= int(VehicleTurret) {
			hit.Location = sideLocation(side)
		}
		return hit
	}
	return HitData{Location: Troopers, Side: side}
}

func sideLocation(side Side) LocationID {
	switch side {
	case Left:
		return VehicleLeft
	case Right:
		return VehicleRight
	case Rear:
		return VehicleRear
	}
	return VehicleFront
}

// PunchLocation maps a 1d6 roll on the punch table.
func (u *Unit) PunchLocation(side Side, roll int) HitData {
	if u.Kind != Mech {
		return u.HitLocation(side, 7)
	}
	hit := HitData{Side: side, Rear: side == Rear}
	switch side {
	case Left:
		hit.Location = [6]LocationID{LeftTorso, LeftTorso, CenterTorso, LeftArm, LeftArm, Head}[clampDie(roll)]
	case Right:
		hit.Location = [6]LocationID{RightTorso, RightTorso, CenterTorso, RightArm, RightArm, Head}[clampDie(roll)]
	default:
		hit.Location = [6]LocationID{LeftArm, LeftTorso, CenterTorso, RightTorso, RightArm, Head}[clampDie(roll)]
	}
	return hit
}

// KickLocation maps a 1d6 roll on the kick table.
func (u *Unit) KickLocation(side Side, roll int) HitData {
	if u.Kind != Mech {
		return u.HitLocation(side, 7)
	}
	hit := HitData{Side: side, Rear: side == Rear}
	switch side {
	case Left:
		hit.Location = LeftLeg
	case Right:
		hit.Location = RightLeg
	default:
		if clampDie(roll) < 3 {
			hit.Location = RightLeg
		} else {
			hit.Location = LeftLeg
		}
	}
	return hit
}

func clampDie(roll int) int {
	return min(max(roll, 1), 6) - 1
}

// TrooperLocation picks the living battle armor trooper for a 1d6 roll,
// walking forward from the rolled slot.
func (u *Unit) TrooperLocation(roll int) HitData {
	n := len(u.Locations)
	if n == 0 {
		return HitData{Location: NoLocation}
	}
	start := (max(roll, 1) - 1) % n
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if !u.Locations[idx].Destroyed {
			return HitData{Location: LocationID(idx)}
		}
	}
	return HitData{Location: NoLocation}
}
