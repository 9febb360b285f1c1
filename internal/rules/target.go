// Package rules provides target numbers, game options and the fixed rule
// tables shared by the resolvers.
package rules

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

// RollKind distinguishes ordinary target numbers from the sentinels.
type RollKind uint8

const (
	Normal     RollKind = iota
	Impossible          // No roll is made; the action cannot succeed
	Automatic           // No roll is made; the action succeeds
)

// Modifier is one line of a target number breakdown.
type Modifier struct {
	Value int    `json:"value" msgpack:"value"`
	Desc  string `json:"desc" msgpack:"desc"`
}

// TargetRoll is the 2d6 value an action needs, with the reasons behind it.
// Impossible wins over Automatic when both are set.
type TargetRoll struct {
	Kind   RollKind   `json:"kind" msgpack:"kind"`
	Reason string     `json:"reason,omitempty" msgpack:"reason"` // For sentinels
	Mods   []Modifier `json:"mods,omitempty" msgpack:"mods"`
}

// NewTarget starts a target number from a base value.
func NewTarget(base int, desc string) TargetRoll {
	return TargetRoll{Mods: []Modifier{{Value: base, Desc: desc}}}
}

// ImpossibleRoll is a target that cannot be met.
func ImpossibleRoll(reason string) TargetRoll {
	return TargetRoll{Kind: Impossible, Reason: reason}
}

// AutomaticRoll is a target that needs no roll.
func AutomaticRoll(reason string) TargetRoll {
	return TargetRoll{Kind: Automatic, Reason: reason}
}

// Add appends a modifier. Zero modifiers are dropped.
func (t *TargetRoll) Add(value int, desc string) {
	if value == 0 {
		return
	}
	t.Mods = append(t.Mods, Modifier{Value: value, Desc: desc})
}

// Append merges another target's modifiers and sentinel into t.
func (t *TargetRoll) Append(o TargetRoll) {
	switch {
	case o.Kind == Impossible:
		t.MarkImpossible(o.Reason)
	case o.Kind == Automatic && t.Kind == Normal:
		t.Kind, t.Reason = Automatic, o.Reason
	}
	for _, m := range o.Mods {
		t.Add(m.Value, m.Desc)
	}
}

// MarkImpossible turns the target into the impossible sentinel.
func (t *TargetRoll) MarkImpossible(reason string) {
	if t.Kind == Impossible {
		return
	}
	t.Kind, t.Reason = Impossible, reason
}

// MarkAutomatic turns the target into the automatic sentinel unless it is
// already impossible.
func (t *TargetRoll) MarkAutomatic(reason string) {
	if t.Kind != Normal {
		return
	}
	t.Kind, t.Reason = Automatic, reason
}

// Value is the summed target number.
func (t TargetRoll) Value() int {
	total := 0
	for _, m := range t.Mods {
		total += m.Value
	}
	return total
}

// NeedsRoll reports whether dice decide the outcome.
func (t TargetRoll) NeedsRoll() bool {
	return t.Kind == Normal && t.Value() <= 12
}

// Succeeds reports whether a 2d6 result meets the target.
func (t TargetRoll) Succeeds(roll int) bool {
	switch t.Kind {
	case Impossible:
		return false
	case Automatic:
		return true
	}
	return roll >= t.Value()
}

// Desc is the modifier breakdown, e.g. "gunnery 4 + range 2 + woods 1".
func (t TargetRoll) Desc() string {
	if t.Kind != Normal {
		return t.Reason
	}
	parts := make([]string, 0, len(t.Mods))
	for i, m := range t.Mods {
		switch {
		case i == 0:
			parts = append(parts, fmt.Sprintf("%s %d", m.Desc, m.Value))
		case m.Value < 0:
			parts = append(parts, fmt.Sprintf("- %s %d", m.Desc, -m.Value))
		default:
			parts = append(parts, fmt.Sprintf("+ %s %d", m.Desc, m.Value))
		}
	}
	return strings.Join(parts, " ")
}

func (t TargetRoll) String() string {
	switch t.Kind {
	case Impossible:
		return "impossible (" + t.Reason + ")"
	case Automatic:
		return "automatic (" + t.Reason + ")"
	}
	return fmt.Sprintf("%d [%s]", t.Value(), t.Desc())
}

// Clamp bounds v to [lo, hi].
func Clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CeilDiv divides rounding up for non-negative operands.
func CeilDiv[T constraints.Integer](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
