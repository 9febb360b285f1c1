// Critical slots and the counters critical hits drive.
package units

// SlotType is the content of one critical slot.
type SlotType uint8

const (
	SlotEmpty SlotType = iota
	SlotEngine
	SlotGyro
	SlotCockpit
	SlotSensors
	SlotLifeSupport
	SlotShoulder
	SlotUpperArm
	SlotLowerArm
	SlotHand
	SlotHip
	SlotUpperLeg
	SlotLowerLeg
	SlotFoot
	SlotHeatSink
	SlotJumpJet
	SlotEquipment // See Slot.Equipment
)

var slotNames = map[SlotType]string{
	SlotEmpty:       "empty",
	SlotEngine:      "engine",
	SlotGyro:        "gyro",
	SlotCockpit:     "cockpit",
	SlotSensors:     "sensors",
	SlotLifeSupport: "life support",
	SlotShoulder:    "shoulder",
	SlotUpperArm:    "upper arm actuator",
	SlotLowerArm:    "lower arm actuator",
	SlotHand:        "hand actuator",
	SlotHip:         "hip",
	SlotUpperLeg:    "upper leg actuator",
	SlotLowerLeg:    "lower leg actuator",
	SlotFoot:        "foot actuator",
	SlotHeatSink:    "heat sink",
	SlotJumpJet:     "jump jet",
	SlotEquipment:   "equipment",
}

func (s SlotType) String() string {
	if n, ok := slotNames[s]; ok {
		return n
	}
	return "unknown"
}

// Slot is one critical slot in a location.
type Slot struct {
	Type      SlotType `json:"type" msgpack:"type"`
	Equipment int      `json:"equipment" msgpack:"equipment"` // Index into Unit.Equipment, or -1
	Hit       bool     `json:"hit" msgpack:"hit"`
}

// Hittable reports whether a critical roll can land here.
func (s Slot) Hittable() bool {
	return s.Type != SlotEmpty && !s.Hit
}

// CritState aggregates the counters critical hits feed into.
type CritState struct {
	EngineHits      int  `json:"engine" msgpack:"engine"`
	GyroHits        int  `json:"gyro" msgpack:"gyro"`
	SensorHits      int  `json:"sensors" msgpack:"sensors"`
	LifeSupportHits int  `json:"life_support" msgpack:"life_support"`
	CockpitHit      bool `json:"cockpit" msgpack:"cockpit"`
	HeatSinkHits    int  `json:"heat_sinks" msgpack:"heat_sinks"`
	JumpJetHits     int  `json:"jump_jets" msgpack:"jump_jets"`

	ShoulderHits int `json:"shoulder" msgpack:"shoulder"`
	UpperArmHits int `json:"upper_arm" msgpack:"upper_arm"`
	LowerArmHits int `json:"lower_arm" msgpack:"lower_arm"`
	HandHits     int `json:"hand" msgpack:"hand"`
	HipHits      int `json:"hip" msgpack:"hip"`
	UpperLegHits int `json:"upper_leg" msgpack:"upper_leg"`
	LowerLegHits int `json:"lower_leg" msgpack:"lower_leg"`
	FootHits     int `json:"foot" msgpack:"foot"`

	// Vehicles
	MotiveHits  int  `json:"motive" msgpack:"motive"`
	TurretLock  bool `json:"turret_locked" msgpack:"turret_locked"`
	CrewStunned int  `json:"crew_stunned" msgpack:"crew_stunned"` // Rounds the crew cannot fire
	CrewKilled  bool `json:"crew_killed" msgpack:"crew_killed"`
}

// ArmActuatorHits counts damaged actuators in one arm.
func (u *Unit) ArmActuatorHits(arm LocationID) (shoulder, upper, lower, hand int) {
	for _, s := range u.Locations[arm].Slots {
		if !s.Hit {
			continue
		}
		switch s.Type {
		case SlotShoulder:
			shoulder++
		case SlotUpperArm:
			upper++
		case SlotLowerArm:
			lower++
		case SlotHand:
			hand++
		}
	}
	return
}

// LegActuatorHits counts damaged actuators in one leg.
func (u *Unit) LegActuatorHits(leg LocationID) (hip, upper, lower, foot int) {
	for _, s := range u.Locations[leg].Slots {
		if !s.Hit {
			continue
		}
		switch s.Type {
		case SlotHip:
			hip++
		case SlotUpperLeg:
			upper++
		case SlotLowerLeg:
			lower++
		case SlotFoot:
			foot++
		}
	}
	return
}

// HittableSlots returns indexes of slots a critical can land on.
func (l *Location) HittableSlots() []int {
	var out []int
	for i, s := range l.Slots {
		if s.Hittable() {
			out = append(out, i)
		}
	}
	return out
}
