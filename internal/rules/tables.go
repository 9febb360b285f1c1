// Fixed rule tables: cluster hits, range bands, movement and heat modifiers.
package rules

// clusterRacks are the columns of the cluster hits table.
var clusterRacks = [13]int{2, 3, 4, 5, 6, 8, 9, 10, 12, 15, 20, 30, 40}

// clusterTable[roll-2][column] is the number of missiles or pellets that hit.
var clusterTable = [11][13]int{
	{1, 1, 1, 1, 2, 2, 2, 3, 4, 5, 6, 10, 12},    // 2
	{1, 1, 2, 2, 2, 2, 3, 3, 4, 5, 6, 10, 12},    // 3
	{1, 1, 2, 2, 3, 3, 4, 4, 5, 6, 9, 12, 18},    // 4
	{1, 2, 2, 3, 3, 4, 4, 6, 8, 9, 12, 18, 24},   // 5
	{1, 2, 3, 3, 4, 4, 5, 6, 8, 9, 12, 18, 24},   // 6
	{1, 2, 3, 3, 4, 4, 5, 6, 8, 9, 12, 18, 24},   // 7
	{2, 2, 3, 4, 4, 5, 5, 8, 10, 12, 16, 24, 32}, // 8
	{2, 3, 3, 4, 5, 5, 5, 8, 10, 12, 16, 24, 32}, // 9
	{2, 3, 4, 4, 5, 6, 7, 8, 10, 12, 16, 24, 32}, // 10
	{2, 3, 4, 5, 5, 8, 8, 10, 12, 15, 20, 30, 40}, // 11
	{2, 4, 4, 5, 6, 8, 9, 10, 12, 15, 20, 30, 40}, // 12
}

// ClusterHits looks up a rack size on the cluster table. The modified roll is
// clamped to [2, 12]; racks between columns use the next smaller column, and
// a rack of one always hits once.
func ClusterHits(rack, roll int) int {
	if rack <= 1 {
		return max(rack, 0)
	}
	col := 0
	for i, r := range clusterRacks {
		if r <= rack {
			col = i
		}
	}
	hits := clusterTable[Clamp(roll, 2, 12)-2][col]
	// Racks above 40 add whole 40 columns.
	if rack > 40 {
		return hits + ClusterHits(rack-40, roll)
	}
	return min(hits, rack)
}

// Cluster roll modifiers.
const (
	ArtemisBonus  = 2
	AMSReduction  = -4
	StreakAMSRoll = 7 // Streak hits become a roll of 7 when AMS engages
)

// RangeBand is the weapon range category.
type RangeBand uint8

const (
	RangeShort RangeBand = iota
	RangeMedium
	RangeLong
	RangeOut
)

var rangeNames = [...]string{"short", "medium", "long", "out of range"}

func (r RangeBand) String() string {
	if int(r) < len(rangeNames) {
		return rangeNames[r]
	}
	return "unknown"
}

// Band classifies a distance against short/medium/long brackets.
func Band(distance, short, medium, long int) RangeBand {
	switch {
	case distance <= short:
		return RangeShort
	case distance <= medium:
		return RangeMedium
	case distance <= long:
		return RangeLong
	}
	return RangeOut
}

// RangeModifier is the to-hit modifier for a band.
func RangeModifier(b RangeBand) int {
	switch b {
	case RangeMedium:
		return 2
	case RangeLong:
		return 4
	}
	return 0
}

// MinimumRangeModifier penalises shots inside a weapon's minimum range.
func MinimumRangeModifier(distance, minRange int) int {
	if minRange <= 0 || distance > minRange {
		return 0
	}
	return minRange - distance + 1
}

// TargetMovementModifier is the to-hit modifier for hexes the target moved.
func TargetMovementModifier(hexes int, jumped bool) int {
	var mod int
	switch {
	case hexes <= 2:
		mod = 0
	case hexes <= 4:
		mod = 1
	case hexes <= 6:
		mod = 2
	case hexes <= 9:
		mod = 3
	default:
		mod = 4
	}
	if jumped {
		mod++
	}
	return mod
}

// AttackerMovementModifier is the to-hit modifier for how the attacker moved:
// none 0, walk +1, run +2, jump +3.
func AttackerMovementModifier(moveType int) int {
	return Clamp(moveType, 0, 3)
}

// HeatToHit is the to-hit penalty from current heat.
func HeatToHit(heat int) int {
	switch {
	case heat >= 24:
		return 4
	case heat >= 17:
		return 3
	case heat >= 13:
		return 2
	case heat >= 8:
		return 1
	}
	return 0
}

// ShutdownAvoid returns the 2d6 roll needed to avoid shutdown. ok is false
// below the first threshold; automatic is true at 30 and above.
func ShutdownAvoid(heat int) (target int, ok bool, automatic bool) {
	switch {
	case heat >= 30:
		return 0, true, true
	case heat >= 26:
		return 10, true, false
	case heat >= 22:
		return 8, true, false
	case heat >= 18:
		return 6, true, false
	case heat >= 14:
		return 4, true, false
	}
	return 0, false, false
}

// AmmoExplosionAvoid returns the roll needed to avoid an ammunition explosion.
func AmmoExplosionAvoid(heat int) (target int, ok bool) {
	switch {
	case heat >= 28:
		return 8, true
	case heat >= 23:
		return 6, true
	case heat >= 19:
		return 4, true
	}
	return 0, false
}

// LifeSupportAvoid returns the roll a crew behind damaged life support needs
// to avoid injury.
func LifeSupportAvoid(heat int) (target int, ok bool) {
	switch {
	case heat >= 25:
		return 8, true
	case heat >= 15:
		return 6, true
	}
	return 0, false
}

// StartupTarget is the roll a shut down unit needs to restart.
func StartupTarget(heat int) int {
	target, ok, automatic := ShutdownAvoid(heat)
	if !ok {
		return 0
	}
	if automatic {
		return 13
	}
	return target
}

// CriticalCount maps a 2d6 critical chance roll to the number of critical
// hits. 12 on a limb or head is reported by the caller as a blown-off
// location.
func CriticalCount(roll int) int {
	switch {
	case roll >= 12:
		return 3
	case roll >= 10:
		return 2
	case roll >= 8:
		return 1
	}
	return 0
}

// DamageGroups splits damage into clusters of at most size points.
func DamageGroups(total, size int) []int {
	if total <= 0 {
		return nil
	}
	if size <= 0 {
		return []int{total}
	}
	groups := make([]int, 0, CeilDiv(total, size))
	for total > 0 {
		g := min(total, size)
		groups = append(groups, g)
		total -= g
	}
	return groups
}
