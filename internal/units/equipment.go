// Weapon and ammunition catalog plus mounted equipment state.
package units

import (
	"fmt"
	"sort"
)

// EquipType is the broad class of a mounted item.
type EquipType uint8

const (
	EquipWeapon EquipType = iota + 1
	EquipAmmo
	EquipAMS
	EquipECM
	EquipArtemis
	EquipCASE
)

// WeaponClass groups weapons for hit-count resolution.
type WeaponClass uint8

const (
	ClassDirect        WeaponClass = iota + 1 // One hit on success
	ClassCluster                              // Rolls the cluster table
	ClassRapid                                // Ultra/rotary autocannon: cluster on shots fired
	ClassInfantry                             // Scales with surviving troopers
	ClassSquad                                // Battle armor: cluster on active troopers
)

// WeaponSpec is a catalog entry.
type WeaponSpec struct {
	Name     string
	Class    WeaponClass
	Damage   int // Per missile or per shot
	Heat     int
	MinRange int
	Short    int
	Medium   int
	Long     int
	ToHitMod int

	Rack      int    // Missiles per salvo for cluster weapons
	GroupSize int    // Missiles grouped into one hit location
	AmmoType  string // Empty for energy weapons
	Slots     int

	Rate  int // Shots per attack for rapid-fire weapons
	JamOn int // Natural to-hit roll at or below which the weapon jams

	Streak     bool
	Incendiary bool
	Missile    bool

	// DamagePerTrooper scales infantry fire.
	DamagePerTrooper float64
}

// AmmoSpec is a catalog entry for one ton of ammunition.
type AmmoSpec struct {
	Type    string
	Shots   int
	Damage  int // Per shot when the bin explodes
	Inferno bool
}

var weaponCatalog = map[string]WeaponSpec{
	"Small Laser":    {Name: "Small Laser", Class: ClassDirect, Damage: 3, Heat: 1, Short: 1, Medium: 2, Long: 3, Slots: 1},
	"Medium Laser":   {Name: "Medium Laser", Class: ClassDirect, Damage: 5, Heat: 3, Short: 3, Medium: 6, Long: 9, Slots: 1},
	"Large Laser":    {Name: "Large Laser", Class: ClassDirect, Damage: 8, Heat: 8, Short: 5, Medium: 10, Long: 15, Slots: 2},
	"PPC":            {Name: "PPC", Class: ClassDirect, Damage: 10, Heat: 10, MinRange: 3, Short: 6, Medium: 12, Long: 18, Slots: 3},
	"Flamer":         {Name: "Flamer", Class: ClassDirect, Damage: 2, Heat: 3, Short: 1, Medium: 2, Long: 3, Slots: 1, Incendiary: true},
	"Machine Gun":    {Name: "Machine Gun", Class: ClassDirect, Damage: 2, Short: 1, Medium: 2, Long: 3, AmmoType: "MG", Slots: 1},
	"AC/5":           {Name: "AC/5", Class: ClassDirect, Damage: 5, Heat: 1, MinRange: 3, Short: 6, Medium: 12, Long: 18, AmmoType: "AC/5", Slots: 4},
	"AC/10":          {Name: "AC/10", Class: ClassDirect, Damage: 10, Heat: 3, Short: 5, Medium: 10, Long: 15, AmmoType: "AC/10", Slots: 7},
	"AC/20":          {Name: "AC/20", Class: ClassDirect, Damage: 20, Heat: 7, Short: 3, Medium: 6, Long: 9, AmmoType: "AC/20", Slots: 10},
	"LB 10-X AC":     {Name: "LB 10-X AC", Class: ClassCluster, Damage: 1, Heat: 2, Short: 6, Medium: 12, Long: 18, ToHitMod: -1, Rack: 10, GroupSize: 1, AmmoType: "LB 10-X", Slots: 6},
	"Ultra AC/5":     {Name: "Ultra AC/5", Class: ClassRapid, Damage: 5, Heat: 1, MinRange: 2, Short: 6, Medium: 13, Long: 20, AmmoType: "UAC/5", Slots: 5, Rate: 2, JamOn: 2},
	"Rotary AC/5":    {Name: "Rotary AC/5", Class: ClassRapid, Damage: 5, Heat: 1, Short: 5, Medium: 10, Long: 15, AmmoType: "RAC/5", Slots: 6, Rate: 6, JamOn: 4},
	"SRM 2":          {Name: "SRM 2", Class: ClassCluster, Damage: 2, Heat: 2, Short: 3, Medium: 6, Long: 9, Rack: 2, GroupSize: 1, AmmoType: "SRM 2", Slots: 1, Missile: true},
	"SRM 4":          {Name: "SRM 4", Class: ClassCluster, Damage: 2, Heat: 3, Short: 3, Medium: 6, Long: 9, Rack: 4, GroupSize: 1, AmmoType: "SRM 4", Slots: 1, Missile: true},
	"SRM 6":          {Name: "SRM 6", Class: ClassCluster, Damage: 2, Heat: 4, Short: 3, Medium: 6, Long: 9, Rack: 6, GroupSize: 1, AmmoType: "SRM 6", Slots: 2, Missile: true},
	"Streak SRM 2":   {Name: "Streak SRM 2", Class: ClassCluster, Damage: 2, Heat: 2, Short: 3, Medium: 6, Long: 9, Rack: 2, GroupSize: 1, AmmoType: "Streak SRM 2", Slots: 1, Missile: true, Streak: true},
	"LRM 5":          {Name: "LRM 5", Class: ClassCluster, Damage: 1, Heat: 2, MinRange: 6, Short: 7, Medium: 14, Long: 21, Rack: 5, GroupSize: 5, AmmoType: "LRM 5", Slots: 1, Missile: true},
	"LRM 10":         {Name: "LRM 10", Class: ClassCluster, Damage: 1, Heat: 4, MinRange: 6, Short: 7, Medium: 14, Long: 21, Rack: 10, GroupSize: 5, AmmoType: "LRM 10", Slots: 2, Missile: true},
	"LRM 15":         {Name: "LRM 15", Class: ClassCluster, Damage: 1, Heat: 5, MinRange: 6, Short: 7, Medium: 14, Long: 21, Rack: 15, GroupSize: 5, AmmoType: "LRM 15", Slots: 3, Missile: true},
	"LRM 20":         {Name: "LRM 20", Class: ClassCluster, Damage: 1, Heat: 6, MinRange: 6, Short: 7, Medium: 14, Long: 21, Rack: 20, GroupSize: 5, AmmoType: "LRM 20", Slots: 5, Missile: true},
	"Rifle":          {Name: "Rifle", Class: ClassInfantry, Damage: 1, Short: 1, Medium: 2, Long: 3, GroupSize: 2, DamagePerTrooper: 0.35},
	"Infantry SRM":   {Name: "Infantry SRM", Class: ClassInfantry, Damage: 1, Short: 1, Medium: 2, Long: 3, GroupSize: 2, DamagePerTrooper: 0.57},
	"BA Small Laser": {Name: "BA Small Laser", Class: ClassSquad, Damage: 3, Short: 1, Medium: 2, Long: 3, GroupSize: 1},
	"BA SRM 2":       {Name: "BA SRM 2", Class: ClassSquad, Damage: 4, Short: 3, Medium: 6, Long: 9, GroupSize: 1, Missile: true},
}

var ammoCatalog = map[string]AmmoSpec{
	"MG":            {Type: "MG", Shots: 200, Damage: 2},
	"AC/5":          {Type: "AC/5", Shots: 20, Damage: 5},
	"AC/10":         {Type: "AC/10", Shots: 10, Damage: 10},
	"AC/20":         {Type: "AC/20", Shots: 5, Damage: 20},
	"LB 10-X":       {Type: "LB 10-X", Shots: 10, Damage: 10},
	"UAC/5":         {Type: "UAC/5", Shots: 20, Damage: 5},
	"RAC/5":         {Type: "RAC/5", Shots: 20, Damage: 5},
	"SRM 2":         {Type: "SRM 2", Shots: 50, Damage: 4},
	"SRM 4":         {Type: "SRM 4", Shots: 25, Damage: 8},
	"SRM 6":         {Type: "SRM 6", Shots: 15, Damage: 12},
	"SRM 6 Inferno": {Type: "SRM 6", Shots: 15, Damage: 12, Inferno: true},
	"Streak SRM 2":  {Type: "Streak SRM 2", Shots: 50, Damage: 4},
	"LRM 5":         {Type: "LRM 5", Shots: 24, Damage: 5},
	"LRM 10":        {Type: "LRM 10", Shots: 12, Damage: 10},
	"LRM 15":        {Type: "LRM 15", Shots: 8, Damage: 15},
	"LRM 20":        {Type: "LRM 20", Shots: 6, Damage: 20},
	"AMS":           {Type: "AMS", Shots: 12, Damage: 2},
}

// LookupWeapon returns a catalog weapon by name.
func LookupWeapon(name string) (WeaponSpec, error) {
	w, ok := weaponCatalog[name]
	if !ok {
		return WeaponSpec{}, fmt.Errorf("unknown weapon %q", name)
	}
	return w, nil
}

// LookupAmmo returns a catalog ammunition entry by name.
func LookupAmmo(name string) (AmmoSpec, error) {
	a, ok := ammoCatalog[name]
	if !ok {
		return AmmoSpec{}, fmt.Errorf("unknown ammo %q", name)
	}
	return a, nil
}

// WeaponNames lists the catalog in sorted order.
func WeaponNames() []string {
	names := make([]string, 0, len(weaponCatalog))
	for n := range weaponCatalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Mounted is one piece of equipment installed on a unit.
type Mounted struct {
	Index    int        `json:"index" msgpack:"index"`
	Name     string     `json:"name" msgpack:"name"`
	Type     EquipType  `json:"type" msgpack:"type"`
	Location LocationID `json:"location" msgpack:"location"`
	Rear     bool       `json:"rear,omitempty" msgpack:"rear"`

	// Ammo bins
	AmmoType string `json:"ammo_type,omitempty" msgpack:"ammo_type"`
	Shots    int    `json:"shots,omitempty" msgpack:"shots"`
	Inferno  bool   `json:"inferno,omitempty" msgpack:"inferno"`

	Destroyed      bool `json:"destroyed,omitempty" msgpack:"destroyed"`
	Jammed         bool `json:"jammed,omitempty" msgpack:"jammed"`
	FiredThisRound bool `json:"fired,omitempty" msgpack:"fired"`
	UsedThisRound  bool `json:"used,omitempty" msgpack:"used"` // AMS engagement
}

// Spec resolves the catalog entry of a weapon mount.
func (m *Mounted) Spec() (WeaponSpec, bool) {
	w, ok := weaponCatalog[m.Name]
	return w, ok
}

// Usable reports whether the mount can act this round.
func (m *Mounted) Usable() bool {
	return !m.Destroyed && !m.Jammed
}

// AmmoFor finds the first non-empty, intact bin feeding the weapon. A
// preferred bin index is used when it matches.
func (u *Unit) AmmoFor(weapon *Mounted, preferred int) *Mounted {
	spec, ok := weapon.Spec()
	if !ok || spec.AmmoType == "" {
		return nil
	}
	if preferred >= 0 && preferred < len(u.Equipment) {
		bin := &u.Equipment[preferred]
		if bin.Type == EquipAmmo && bin.AmmoType == spec.AmmoType && bin.Shots > 0 && !bin.Destroyed {
			return bin
		}
	}
	for i := range u.Equipment {
		bin := &u.Equipment[i]
		if bin.Type == EquipAmmo && bin.AmmoType == spec.AmmoType && bin.Shots > 0 && !bin.Destroyed {
			return bin
		}
	}
	return nil
}

// AMSMounts returns intact anti-missile systems with ammunition available.
func (u *Unit) AMSMounts() []*Mounted {
	var out []*Mounted
	for i := range u.Equipment {
		m := &u.Equipment[i]
		if m.Type != EquipAMS || !m.Usable() || m.UsedThisRound {
			continue
		}
		if u.ammoOfType("AMS") == nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (u *Unit) ammoOfType(t string) *Mounted {
	for i := range u.Equipment {
		bin := &u.Equipment[i]
		if bin.Type == EquipAmmo && bin.AmmoType == t && bin.Shots > 0 && !bin.Destroyed {
			return bin
		}
	}
	return nil
}

// ConsumeAMSAmmo spends one AMS shot; false when none remain.
func (u *Unit) ConsumeAMSAmmo() bool {
	bin := u.ammoOfType("AMS")
	if bin == nil {
		return false
	}
	bin.Shots--
	return true
}

// HasEquipment reports an intact item of the given type.
func (u *Unit) HasEquipment(t EquipType) bool {
	for i := range u.Equipment {
		if u.Equipment[i].Type == t && !u.Equipment[i].Destroyed {
			return true
		}
	}
	return false
}

// HasCASE reports CASE protection in a location.
func (u *Unit) HasCASE(loc LocationID) bool {
	for i := range u.Equipment {
		m := &u.Equipment[i]
		if m.Type == EquipCASE && m.Location == loc && !m.Destroyed {
			return true
		}
	}
	return false
}

// ArmFired reports whether any weapon mounted in the arm fired this round.
func (u *Unit) ArmFired(arm LocationID) bool {
	for i := range u.Equipment {
		m := &u.Equipment[i]
		if m.Location == arm && m.Type == EquipWeapon && m.FiredThisRound {
			return true
		}
	}
	return false
}
