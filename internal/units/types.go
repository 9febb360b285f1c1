// Package units provides the combat unit data model: locations, armor,
// critical slots, weapons and ammunition.
package units

import (
	"fmt"

	"github.com/talgya/ironhex/internal/world"
)

// ID is a unique identifier for a unit. Zero means "no unit".
type ID int

// PlayerID identifies the owning player. Zero means "no player".
type PlayerID int

// Kind is the broad unit class.
type Kind uint8

const (
	Mech        Kind = iota + 1
	Vehicle          // Tracked, wheeled or hover tank
	Infantry         // Conventional platoon; strength is trooper count
	BattleArmor      // Powered armor squad; one location per trooper
)

var kindNames = map[Kind]string{
	Mech:        "mech",
	Vehicle:     "vehicle",
	Infantry:    "infantry",
	BattleArmor: "battle armor",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Motive is the vehicle movement system.
type Motive uint8

const (
	Legged Motive = iota
	Tracked
	Wheeled
	Hover
	Foot
	Jump // Jump-capable infantry
)

// MoveType records how a unit moved this round.
type MoveType uint8

const (
	MoveNone MoveType = iota
	MoveWalk
	MoveRun
	MoveJump
)

var moveNames = [...]string{"none", "walk", "run", "jump"}

func (m MoveType) String() string {
	if int(m) < len(moveNames) {
		return moveNames[m]
	}
	return "unknown"
}

// Unit is a single combat unit on (or off) the board.
type Unit struct {
	ID    ID       `json:"id" msgpack:"id"`
	Owner PlayerID `json:"owner" msgpack:"owner"`
	Name  string   `json:"name" msgpack:"name"`
	Kind  Kind     `json:"kind" msgpack:"kind"`
	Mass  int      `json:"mass" msgpack:"mass"` // Tons

	// Position is nil while the unit is off the board (undeployed or carried).
	Position *world.Coords `json:"position,omitempty" msgpack:"position"`
	Facing   world.Facing  `json:"facing" msgpack:"facing"`

	// Movement
	Motive   Motive   `json:"motive" msgpack:"motive"`
	WalkMP   int      `json:"walk_mp" msgpack:"walk_mp"`
	JumpMP   int      `json:"jump_mp" msgpack:"jump_mp"`
	Height   int      `json:"height" msgpack:"height"` // Levels above the hex floor when standing
	MoveType MoveType `json:"move_type" msgpack:"move_type"`
	MPUsed   int      `json:"mp_used" msgpack:"mp_used"`
	Moved    int      `json:"hexes_moved" msgpack:"hexes_moved"`

	// Crew
	Gunnery     int  `json:"gunnery" msgpack:"gunnery"`
	Piloting    int  `json:"piloting" msgpack:"piloting"`
	PilotDamage int  `json:"pilot_damage" msgpack:"pilot_damage"`
	Unconscious bool `json:"unconscious" msgpack:"unconscious"`

	// Heat
	Heat        int  `json:"heat" msgpack:"heat"`
	HeatBuildup int  `json:"heat_buildup" msgpack:"heat_buildup"` // Gained this round, applied at end of round
	HeatSinks   int  `json:"heat_sinks" msgpack:"heat_sinks"`
	DoubleSinks bool `json:"double_sinks" msgpack:"double_sinks"`

	// Structure and equipment
	Locations []Location `json:"locations" msgpack:"locations"`
	Equipment []Mounted  `json:"equipment" msgpack:"equipment"`
	Crits     CritState  `json:"crits" msgpack:"crits"`

	// Status
	Prone     bool `json:"prone" msgpack:"prone"`
	Shutdown  bool `json:"shutdown" msgpack:"shutdown"`
	Destroyed bool `json:"destroyed" msgpack:"destroyed"`
	Doomed    bool `json:"doomed" msgpack:"doomed"` // Destroyed during resolution, removed at phase end
	Immobile  bool `json:"immobile" msgpack:"immobile"`
	Done      bool `json:"done" msgpack:"done"` // Acted in the current phase
	Deployed  bool `json:"deployed" msgpack:"deployed"`

	DeployRound     int  `json:"deploy_round" msgpack:"deploy_round"`
	DamageThisPhase int  `json:"damage_this_phase" msgpack:"damage_this_phase"`
	FellThisPhase   bool `json:"fell_this_phase" msgpack:"fell_this_phase"`
	InfernoRounds   int  `json:"inferno_rounds" msgpack:"inferno_rounds"`
	HasClub         bool `json:"has_club" msgpack:"has_club"`

	// Weak relations by ID, resolved through the session.
	SwarmTargetID   ID   `json:"swarm_target_id,omitempty" msgpack:"swarm_target_id"`
	SwarmAttackerID ID   `json:"swarm_attacker_id,omitempty" msgpack:"swarm_attacker_id"`
	TransportedByID ID   `json:"transported_by_id,omitempty" msgpack:"transported_by_id"`
	Transports      []ID `json:"transports,omitempty" msgpack:"transports"`
	TroopSpace      int  `json:"troop_space" msgpack:"troop_space"` // Infantry units it can carry
}

func (u *Unit) String() string {
	return fmt.Sprintf("%s #%d", u.Name, u.ID)
}

// OnBoard reports whether the unit has a board position.
func (u *Unit) OnBoard() bool {
	return u.Position != nil
}

// Pos returns the board position; callers must check OnBoard first.
func (u *Unit) Pos() world.Coords {
	return *u.Position
}

// SetPosition places the unit on the board.
func (u *Unit) SetPosition(c world.Coords) {
	u.Position = &c
}

// ClearPosition removes the unit from the board.
func (u *Unit) ClearPosition() {
	u.Position = nil
}

// IsInfantry reports conventional infantry or battle armor.
func (u *Unit) IsInfantry() bool {
	return u.Kind == Infantry || u.Kind == BattleArmor
}

// Active reports whether the unit is still in play.
func (u *Unit) Active() bool {
	return !u.Destroyed && !u.Doomed
}

// CanAct reports whether the unit can take a turn this phase.
func (u *Unit) CanAct() bool {
	return u.Active() && !u.Shutdown && !u.Unconscious && u.TransportedByID == 0 && u.SwarmTargetID == 0
}

// RunMP is one and a half times walking MP, rounded up.
func (u *Unit) RunMP() int {
	walk := u.EffectiveWalkMP()
	return (walk*3 + 1) / 2
}

// EffectiveWalkMP applies heat and crit penalties.
func (u *Unit) EffectiveWalkMP() int {
	walk := u.WalkMP
	if u.Kind == Mech {
		walk -= u.Heat / 5
		walk -= u.legPenalty()
	}
	if u.Kind == Vehicle {
		walk -= u.Crits.MotiveHits
	}
	if u.Immobile {
		return 0
	}
	return max(walk, 0)
}

// EffectiveJumpMP subtracts destroyed jump jets.
func (u *Unit) EffectiveJumpMP() int {
	if u.Immobile {
		return 0
	}
	return max(u.JumpMP-u.Crits.JumpJetHits, 0)
}

// legPenalty is the MP lost to leg damage.
func (u *Unit) legPenalty() int {
	if u.Kind != Mech {
		return 0
	}
	penalty := u.Crits.FootHits + u.Crits.LowerLegHits + u.Crits.UpperLegHits
	if u.Crits.HipHits > 0 {
		penalty += u.WalkMP / 2
	}
	for _, loc := range []LocationID{RightLeg, LeftLeg} {
		if u.Locations[loc].Destroyed {
			return u.WalkMP - 1
		}
	}
	return penalty
}

// Troopers returns the surviving strength of infantry; zero for other kinds.
func (u *Unit) Troopers() int {
	switch u.Kind {
	case Infantry:
		return u.Locations[0].IS
	case BattleArmor:
		n := 0
		for _, loc := range u.Locations {
			if !loc.Destroyed {
				n++
			}
		}
		return n
	}
	return 0
}

// HeatSinkCapacity is the heat the unit sheds per round, before terrain bonuses.
func (u *Unit) HeatSinkCapacity() int {
	working := max(u.HeatSinks-u.Crits.HeatSinkHits, 0)
	if u.DoubleSinks {
		return working * 2
	}
	return working
}

// ResetRound clears per-round counters.
func (u *Unit) ResetRound() {
	u.MoveType = MoveNone
	u.MPUsed = 0
	u.Moved = 0
	u.HeatBuildup = 0
	u.FellThisPhase = false
	u.Done = false
	for i := range u.Equipment {
		u.Equipment[i].FiredThisRound = false
		u.Equipment[i].UsedThisRound = false
	}
}

// ResetPhase clears per-phase counters.
func (u *Unit) ResetPhase() {
	u.Done = false
	u.DamageThisPhase = 0
	u.FellThisPhase = false
}
