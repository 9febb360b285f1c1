package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ironhex/internal/world"
)

func TestEveryDesignSpawns(t *testing.T) {
	for i, name := range Designs() {
		u, err := Spawn(name, ID(i+1), 1)
		require.NoError(t, err, name)
		assert.Equal(t, name, u.Name)
		assert.True(t, u.Active())
		assert.False(t, u.OnBoard())
	}
	_, err := Spawn("Nonexistent", 1, 1)
	assert.Error(t, err)
}

func TestNewMechStructure(t *testing.T) {
	u, err := Spawn("Hunchback HBK-4G", 1, 1)
	require.NoError(t, err)

	assert.Equal(t, Mech, u.Kind)
	assert.Equal(t, 16, u.Locations[CenterTorso].MaxIS)
	assert.Equal(t, 3, u.Locations[Head].MaxIS)
	assert.True(t, u.Locations[LeftTorso].HasRear)
	assert.False(t, u.Locations[LeftArm].HasRear)
	assert.Equal(t, 6, u.RunMP())
	assert.Equal(t, 13, u.HeatSinkCapacity())

	ac := u.Equipment[0]
	assert.Equal(t, "AC/20", ac.Name)
	bin := u.AmmoFor(&ac, -1)
	require.NotNil(t, bin)
	assert.Equal(t, 5, bin.Shots)

	equipSlots := 0
	for _, s := range u.Locations[RightTorso].Slots {
		if s.Type == SlotEquipment && s.Equipment == 0 {
			equipSlots++
		}
	}
	assert.Equal(t, 10, equipSlots)
}

func TestTransfer(t *testing.T) {
	u, err := Spawn("Atlas AS7-D", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, RightTorso, u.Transfer(RightArm))
	assert.Equal(t, LeftTorso, u.Transfer(LeftLeg))
	assert.Equal(t, CenterTorso, u.Transfer(LeftTorso))
	assert.Equal(t, NoLocation, u.Transfer(CenterTorso))
	assert.Equal(t, NoLocation, u.Transfer(Head))

	tank, err := Spawn("Scorpion Light Tank", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, NoLocation, tank.Transfer(VehicleFront))
}

func TestHitLocationTables(t *testing.T) {
	u, err := Spawn("Atlas AS7-D", 1, 1)
	require.NoError(t, err)

	hit := u.HitLocation(Front, 2)
	assert.Equal(t, CenterTorso, hit.Location)
	assert.True(t, hit.Critical)
	assert.Equal(t, Head, u.HitLocation(Front, 12).Location)
	assert.Equal(t, LeftTorso, u.HitLocation(Left, 7).Location)
	assert.Equal(t, RightTorso, u.HitLocation(Right, 7).Location)
	assert.True(t, u.HitLocation(Rear, 7).Rear)

	assert.Equal(t, Head, u.PunchLocation(Front, 6).Location)
	assert.Equal(t, RightLeg, u.KickLocation(Front, 1).Location)
	assert.Equal(t, LeftLeg, u.KickLocation(Front, 6).Location)

	light, err := Spawn("Commando COM-2D", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, LeftArm, light.PunchLocation(Front, 1).Location)
}

func TestVehicleWithoutTurret(t *testing.T) {
	u, err := NewVehicle(1, 1, VehicleSpec{Name: "APC", Mass: 10, Walk: 5, Motive: Wheeled, Armor: [5]int{5, 5, 5, 5}})
	require.NoError(t, err)
	assert.Len(t, u.Locations, 4)
	assert.Equal(t, VehicleFront, u.HitLocation(Front, 11).Location, "turret results fall back to the struck side")
	assert.Equal(t, VehicleRear, u.HitLocation(Rear, 12).Location)
}

func TestTroopers(t *testing.T) {
	inf, err := Spawn("Foot Rifle Platoon", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 28, inf.Troopers())
	assert.True(t, inf.IsInfantry())

	ba, err := Spawn("Standard Battle Armor", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, ba.Troopers())
	ba.Locations[0].Destroyed = true
	assert.Equal(t, 3, ba.Troopers())
	assert.Equal(t, LocationID(1), ba.TrooperLocation(1).Location)
}

func TestEffectiveMP(t *testing.T) {
	u, err := Spawn("Griffin GRF-1N", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, u.EffectiveWalkMP())
	assert.Equal(t, 8, u.RunMP())

	u.Heat = 10
	assert.Equal(t, 3, u.EffectiveWalkMP())
	assert.Equal(t, 5, u.RunMP())

	u.Heat = 0
	u.Crits.JumpJetHits = 2
	assert.Equal(t, 3, u.EffectiveJumpMP())

	u.Locations[LeftLeg].Destroyed = true
	assert.Equal(t, 1, u.EffectiveWalkMP())
}

func TestPositionHelpers(t *testing.T) {
	u := &Unit{ID: 1}
	assert.False(t, u.OnBoard())
	u.SetPosition(world.Coords{X: 2, Y: 3})
	require.True(t, u.OnBoard())
	assert.Equal(t, world.Coords{X: 2, Y: 3}, u.Pos())
	u.ClearPosition()
	assert.False(t, u.OnBoard())
}
