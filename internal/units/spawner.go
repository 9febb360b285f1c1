// Unit construction: standard structure tables, critical slot layouts and a
// small registry of ready-made designs.
package units

import (
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)

// Default crew skills.
const (
	DefaultGunnery  = 4
	DefaultPiloting = 5
)

// Mount places one weapon or item.
type Mount struct {
	Name     string
	Type     EquipType // Zero means EquipWeapon
	Location LocationID
	Rear     bool
}

// AmmoLoad places tons of ammunition in a location.
type AmmoLoad struct {
	Ammo     string
	Location LocationID
	Tons     int
}

// MechSpec describes a mech design.
type MechSpec struct {
	Name        string
	Mass        int
	Walk, Jump  int
	HeatSinks   int
	DoubleSinks bool
	ArmorRatio  float64 // Fraction of maximum armor, 0 means 0.85
	Club        bool    // Hatchet or similar melee weapon
	Mounts      []Mount
	Ammo        []AmmoLoad
}

// isTable is internal structure per tonnage: CT, side torso, arm, leg.
var isTable = map[int][4]int{
	20: {6, 5, 3, 4}, 25: {8, 6, 4, 6}, 30: {10, 7, 5, 7}, 35: {11, 8, 6, 8},
	40: {12, 10, 6, 10}, 45: {14, 11, 7, 11}, 50: {16, 12, 8, 12}, 55: {18, 13, 9, 13},
	60: {20, 14, 10, 14}, 65: {21, 15, 10, 15}, 70: {22, 15, 11, 15}, 75: {23, 16, 12, 16},
	80: {25, 17, 13, 17}, 85: {27, 18, 14, 18}, 90: {29, 19, 15, 19}, 95: {30, 20, 16, 20},
	100: {31, 21, 17, 21},
}

var mechLocationNames = [8]string{"head", "center torso", "right torso", "left torso", "right arm", "left arm", "right leg", "left leg"}

// NewMech builds a mech from a design.
func NewMech(id ID, owner PlayerID, spec MechSpec) (*Unit, error) {
	is, ok := isTable[spec.Mass]
	if !ok {
		return nil, fmt.Errorf("mech %q: no structure table for %d tons", spec.Name, spec.Mass)
	}
	ratio := spec.ArmorRatio
	if ratio == 0 {
		ratio = 0.85
	}

	u := &Unit{
		ID:          id,
		Owner:       owner,
		Name:        spec.Name,
		Kind:        Mech,
		Mass:        spec.Mass,
		Motive:      Legged,
		WalkMP:      spec.Walk,
		JumpMP:      spec.Jump,
		Height:      1,
		Gunnery:     DefaultGunnery,
		Piloting:    DefaultPiloting,
		HeatSinks:   max(spec.HeatSinks, 10),
		DoubleSinks: spec.DoubleSinks,
		HasClub:     spec.Club,
		Locations:   make([]Location, 8),
	}

	structure := [8]int{3, is[0], is[1], is[1], is[2], is[2], is[3], is[3]}
	for i := range u.Locations {
		loc := &u.Locations[i]
		loc.Name = mechLocationNames[i]
		loc.IS, loc.MaxIS = structure[i], structure[i]
		total := int(float64(structure[i]*2) * ratio)
		if LocationID(i) == Head {
			total = int(9 * ratio)
		}
		switch LocationID(i) {
		case CenterTorso, RightTorso, LeftTorso:
			loc.HasRear = true
			loc.RearArmor = total / 4
			loc.Armor = total - loc.RearArmor
		default:
			loc.Armor = total
		}
		loc.MaxArmor, loc.MaxRear = loc.Armor, loc.RearArmor
		loc.Slots = mechSlots(LocationID(i))
	}

	for _, m := range spec.Mounts {
		if err := u.mount(m); err != nil {
			return nil, fmt.Errorf("mech %q: %w", spec.Name, err)
		}
	}
	for _, a := range spec.Ammo {
		if err := u.loadAmmo(a); err != nil {
			return nil, fmt.Errorf("mech %q: %w", spec.Name, err)
		}
	}
	// Jump jets go into the legs, then the side torsos.
	for j := 0; j < spec.Jump; j++ {
		if !u.placeSlot(SlotJumpJet, -1, 1, RightLeg, LeftLeg, RightTorso, LeftTorso) {
			return nil, fmt.Errorf("mech %q: no room for jump jet %d", spec.Name, j+1)
		}
	}
	// Ten heat sinks live in the engine; the rest need slots.
	for h := 10; h < u.HeatSinks; h++ {
		if !u.placeSlot(SlotHeatSink, -1, 1, RightTorso, LeftTorso, RightArm, LeftArm, CenterTorso) {
			return nil, fmt.Errorf("mech %q: no room for heat sink %d", spec.Name, h+1)
		}
	}
	return u, nil
}

func mechSlots(loc LocationID) []Slot {
	var types []SlotType
	switch loc {
	case Head:
		types = []SlotType{SlotLifeSupport, SlotSensors, SlotCockpit, SlotEmpty, SlotSensors, SlotLifeSupport}
	case CenterTorso:
		types = []SlotType{SlotEngine, SlotEngine, SlotEngine, SlotGyro, SlotGyro, SlotGyro, SlotGyro, SlotEngine, SlotEngine, SlotEngine, SlotEmpty, SlotEmpty}
	case RightTorso, LeftTorso:
		types = make([]SlotType, 12)
	case RightArm, LeftArm:
		types = append([]SlotType{SlotShoulder, SlotUpperArm, SlotLowerArm, SlotHand}, make([]SlotType, 8)...)
	case RightLeg, LeftLeg:
		types = []SlotType{SlotHip, SlotUpperLeg, SlotLowerLeg, SlotFoot, SlotEmpty, SlotEmpty}
	}
	slots := make([]Slot, len(types))
	for i, t := range types {
		slots[i] = Slot{Type: t, Equipment: -1}
	}
	return slots
}

// placeSlot fills n consecutive empty slots in the first location with room.
func (u *Unit) placeSlot(t SlotType, equip, n int, locs ...LocationID) bool {
	for _, loc := range locs {
		slots := u.Locations[loc].Slots
		run := 0
		for i := range slots {
			if slots[i].Type != SlotEmpty {
				run = 0
				continue
			}
			run++
			if run == n {
				for j := i - n + 1; j <= i; j++ {
					slots[j] = Slot{Type: t, Equipment: equip}
				}
				return true
			}
		}
	}
	return false
}

func (u *Unit) mount(m Mount) error {
	typ := m.Type
	if typ == 0 {
		typ = EquipWeapon
	}
	size := 1
	if typ == EquipWeapon {
		spec, err := LookupWeapon(m.Name)
		if err != nil {
			return err
		}
		size = max(spec.Slots, 1)
	}
	idx := len(u.Equipment)
	u.Equipment = append(u.Equipment, Mounted{
		Index:    idx,
		Name:     m.Name,
		Type:     typ,
		Location: m.Location,
		Rear:     m.Rear,
	})
	if u.Kind != Mech {
		return nil
	}
	if !u.placeSlot(SlotEquipment, idx, size, m.Location) {
		return fmt.Errorf("no room for %s in %s", m.Name, u.Locations[m.Location].Name)
	}
	return nil
}

func (u *Unit) loadAmmo(a AmmoLoad) error {
	spec, err := LookupAmmo(a.Ammo)
	if err != nil {
		return err
	}
	for t := 0; t < max(a.Tons, 1); t++ {
		idx := len(u.Equipment)
		u.Equipment = append(u.Equipment, Mounted{
			Index:    idx,
			Name:     a.Ammo,
			Type:     EquipAmmo,
			Location: a.Location,
			AmmoType: spec.Type,
			Shots:    spec.Shots,
			Inferno:  spec.Inferno,
		})
		if u.Kind == Mech && !u.placeSlot(SlotEquipment, idx, 1, a.Location) {
			return fmt.Errorf("no room for %s ammo in %s", a.Ammo, u.Locations[a.Location].Name)
		}
	}
	return nil
}

// VehicleSpec describes a combat vehicle.
type VehicleSpec struct {
	Name   string
	Mass   int
	Walk   int
	Motive Motive
	Turret bool
	Armor  [5]int // Front, right, left, rear, turret
	Mounts []Mount
	Ammo   []AmmoLoad

	TroopSpace int // Infantry units carried
}

var vehicleLocationNames = [5]string{"front", "right side", "left side", "rear", "turret"}

// NewVehicle builds a vehicle from a design.
func NewVehicle(id ID, owner PlayerID, spec VehicleSpec) (*Unit, error) {
	n := 4
	if spec.Turret {
		n = 5
	}
	u := &Unit{
		ID:         id,
		Owner:      owner,
		Name:       spec.Name,
		Kind:       Vehicle,
		Mass:       spec.Mass,
		Motive:     spec.Motive,
		WalkMP:     spec.Walk,
		Gunnery:    DefaultGunnery,
		Piloting:   DefaultPiloting,
		TroopSpace: spec.TroopSpace,
		Locations:  make([]Location, n),
	}
	is := (spec.Mass + 9) / 10
	for i := range u.Locations {
		u.Locations[i] = Location{
			Name:     vehicleLocationNames[i],
			Armor:    spec.Armor[i],
			MaxArmor: spec.Armor[i],
			IS:       is,
			MaxIS:    is,
		}
	}
	for _, m := range spec.Mounts {
		if int(m.Location) >= n {
			return nil, fmt.Errorf("vehicle %q: %s mounted in missing location", spec.Name, m.Name)
		}
		if err := u.mount(m); err != nil {
			return nil, fmt.Errorf("vehicle %q: %w", spec.Name, err)
		}
	}
	for _, a := range spec.Ammo {
		if err := u.loadAmmo(a); err != nil {
			return nil, fmt.Errorf("vehicle %q: %w", spec.Name, err)
		}
	}
	return u, nil
}

// NewInfantry builds a conventional platoon.
func NewInfantry(id ID, owner PlayerID, name string, troopers, walk int, motive Motive, weapon string) (*Unit, error) {
	u := &Unit{
		ID:       id,
		Owner:    owner,
		Name:     name,
		Kind:     Infantry,
		Mass:     max(troopers/10, 1),
		Motive:   motive,
		WalkMP:   walk,
		Gunnery:  DefaultGunnery,
		Piloting: DefaultPiloting,
		Locations: []Location{{
			Name:  "troopers",
			IS:    troopers,
			MaxIS: troopers,
		}},
	}
	if motive == Jump {
		u.JumpMP = walk
	}
	if err := u.mount(Mount{Name: weapon, Location: Troopers}); err != nil {
		return nil, fmt.Errorf("infantry %q: %w", name, err)
	}
	return u, nil
}

// NewBattleArmor builds a battle armor squad.
func NewBattleArmor(id ID, owner PlayerID, name string, troopers, armor, walk, jump int, weapon string) (*Unit, error) {
	u := &Unit{
		ID:        id,
		Owner:     owner,
		Name:      name,
		Kind:      BattleArmor,
		Mass:      troopers,
		Motive:    Foot,
		WalkMP:    walk,
		JumpMP:    jump,
		Gunnery:   DefaultGunnery,
		Piloting:  DefaultPiloting,
		Locations: make([]Location, troopers),
	}
	for i := range u.Locations {
		u.Locations[i] = Location{
			Name:     fmt.Sprintf("trooper %d", i+1),
			Armor:    armor,
			MaxArmor: armor,
			IS:       1,
			MaxIS:    1,
		}
	}
	if err := u.mount(Mount{Name: weapon, Location: 0}); err != nil {
		return nil, fmt.Errorf("battle armor %q: %w", name, err)
	}
	return u, nil
}

// Factory builds a unit for an ID and owner.
type Factory func(id ID, owner PlayerID) (*Unit, error)

var registry = map[string]Factory{
	"Commando COM-2D": func(id ID, owner PlayerID) (*Unit, error) {
		return NewMech(id, owner, MechSpec{
			Name: "Commando COM-2D", Mass: 25, Walk: 6,
			Mounts: []Mount{{Name: "SRM 6", Location: RightArm}, {Name: "SRM 4", Location: CenterTorso}, {Name: "Medium Laser", Location: LeftArm}},
			Ammo:   []AmmoLoad{{Ammo: "SRM 6", Location: RightTorso, Tons: 1}, {Ammo: "SRM 4", Location: LeftTorso, Tons: 1}},
		})
	},
	"Hunchback HBK-4G": func(id ID, owner PlayerID) (*Unit, error) {
		return NewMech(id, owner, MechSpec{
			Name: "Hunchback HBK-4G", Mass: 50, Walk: 4, HeatSinks: 13,
			Mounts: []Mount{{Name: "AC/20", Location: RightTorso}, {Name: "Medium Laser", Location: RightArm}, {Name: "Medium Laser", Location: LeftArm}, {Name: "Small Laser", Location: Head}},
			Ammo:   []AmmoLoad{{Ammo: "AC/20", Location: LeftTorso, Tons: 2}},
		})
	},
	"Griffin GRF-1N": func(id ID, owner PlayerID) (*Unit, error) {
		return NewMech(id, owner, MechSpec{
			Name: "Griffin GRF-1N", Mass: 55, Walk: 5, Jump: 5, HeatSinks: 12,
			Mounts: []Mount{{Name: "PPC", Location: RightArm}, {Name: "LRM 10", Location: LeftTorso}},
			Ammo:   []AmmoLoad{{Ammo: "LRM 10", Location: LeftTorso, Tons: 2}},
		})
	},
	"Wolverine WVR-6R": func(id ID, owner PlayerID) (*Unit, error) {
		return NewMech(id, owner, MechSpec{
			Name: "Wolverine WVR-6R", Mass: 55, Walk: 5, Jump: 5, HeatSinks: 12,
			Mounts: []Mount{{Name: "Ultra AC/5", Location: RightArm}, {Name: "SRM 6", Location: LeftTorso}, {Name: "Medium Laser", Location: Head}},
			Ammo: []AmmoLoad{
				{Ammo: "UAC/5", Location: RightTorso, Tons: 1},
				{Ammo: "SRM 6", Location: LeftTorso, Tons: 1},
				{Ammo: "SRM 6 Inferno", Location: LeftTorso, Tons: 1},
			},
		})
	},
	"Atlas AS7-D": func(id ID, owner PlayerID) (*Unit, error) {
		return NewMech(id, owner, MechSpec{
			Name: "Atlas AS7-D", Mass: 100, Walk: 3, HeatSinks: 20,
			Mounts: []Mount{
				{Name: "AC/20", Location: RightTorso},
				{Name: "LRM 20", Location: LeftTorso},
				{Name: "SRM 6", Location: LeftTorso},
				{Name: "Medium Laser", Location: RightArm},
				{Name: "Medium Laser", Location: LeftArm},
				{Name: "Medium Laser", Location: CenterTorso, Rear: true},
				{Name: "AMS", Type: EquipAMS, Location: CenterTorso},
			},
			Ammo: []AmmoLoad{
				{Ammo: "AC/20", Location: RightTorso, Tons: 1},
				{Ammo: "LRM 20", Location: LeftTorso, Tons: 1},
				{Ammo: "SRM 6", Location: LeftTorso, Tons: 1},
				{Ammo: "AMS", Location: LeftArm, Tons: 1},
			},
		})
	},
	"Hatchetman HCT-3F": func(id ID, owner PlayerID) (*Unit, error) {
		return NewMech(id, owner, MechSpec{
			Name: "Hatchetman HCT-3F", Mass: 45, Walk: 4, Jump: 4, HeatSinks: 11, Club: true,
			Mounts: []Mount{{Name: "AC/10", Location: RightTorso}, {Name: "Medium Laser", Location: CenterTorso}, {Name: "Medium Laser", Location: LeftTorso}},
			Ammo:   []AmmoLoad{{Ammo: "AC/10", Location: RightTorso, Tons: 1}},
		})
	},
	"Scorpion Light Tank": func(id ID, owner PlayerID) (*Unit, error) {
		return NewVehicle(id, owner, VehicleSpec{
			Name: "Scorpion Light Tank", Mass: 25, Walk: 4, Motive: Tracked, Turret: true,
			Armor:  [5]int{8, 6, 6, 4, 8},
			Mounts: []Mount{{Name: "AC/5", Location: VehicleTurret}, {Name: "Machine Gun", Location: VehicleFront}},
			Ammo:   []AmmoLoad{{Ammo: "AC/5", Location: VehicleRear, Tons: 1}, {Ammo: "MG", Location: VehicleRear, Tons: 1}},
		})
	},
	"Demolisher Heavy Tank": func(id ID, owner PlayerID) (*Unit, error) {
		return NewVehicle(id, owner, VehicleSpec{
			Name: "Demolisher Heavy Tank", Mass: 80, Walk: 3, Motive: Tracked, Turret: true,
			Armor:  [5]int{40, 32, 32, 24, 32},
			Mounts: []Mount{{Name: "AC/20", Location: VehicleTurret}, {Name: "AC/20", Location: VehicleTurret}},
			Ammo:   []AmmoLoad{{Ammo: "AC/20", Location: VehicleRear, Tons: 2}},
		})
	},
	"Tracked APC": func(id ID, owner PlayerID) (*Unit, error) {
		return NewVehicle(id, owner, VehicleSpec{
			Name: "Tracked APC", Mass: 10, Walk: 4, Motive: Tracked, TroopSpace: 1,
			Armor:  [5]int{10, 8, 8, 6, 0},
			Mounts: []Mount{{Name: "Machine Gun", Location: VehicleFront}},
			Ammo:   []AmmoLoad{{Ammo: "MG", Location: VehicleRear, Tons: 1}},
		})
	},
	"Foot Rifle Platoon": func(id ID, owner PlayerID) (*Unit, error) {
		return NewInfantry(id, owner, "Foot Rifle Platoon", 28, 1, Foot, "Rifle")
	},
	"Jump SRM Platoon": func(id ID, owner PlayerID) (*Unit, error) {
		return NewInfantry(id, owner, "Jump SRM Platoon", 21, 3, Jump, "Infantry SRM")
	},
	"Standard Battle Armor": func(id ID, owner PlayerID) (*Unit, error) {
		return NewBattleArmor(id, owner, "Standard Battle Armor", 4, 7, 1, 3, "BA Small Laser")
	},
}

// Spawn builds a registered design.
func Spawn(design string, id ID, owner PlayerID) (*Unit, error) {
	f, ok := registry[design]
	if !ok {
		return nil, fmt.Errorf("unknown design %q", design)
	}
	return f(id, owner)
}

// Designs lists registered design names in sorted order.
func Designs() []string {
	names := maps.Keys(registry)
	slices.Sort(names)
	return names
}
