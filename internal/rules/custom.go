package rules

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// AttackEnv is what custom to-hit modifier expressions can see.
type AttackEnv struct {
	Round        int    `expr:"Round"`
	Distance     int    `expr:"Distance"`
	Range        string `expr:"Range"` // short, medium, long
	Weapon       string `expr:"Weapon"`
	Physical     string `expr:"Physical"` // punch, kick... empty for weapon fire
	AttackerKind string `expr:"AttackerKind"`
	AttackerMove string `expr:"AttackerMove"`
	AttackerHeat int    `expr:"AttackerHeat"`
	TargetKind   string `expr:"TargetKind"`
	TargetMoved  int    `expr:"TargetMoved"`
	TargetProne  bool   `expr:"TargetProne"`
	TargetInBldg bool   `expr:"TargetInBuilding"`
	TargetWoods  int    `expr:"TargetWoods"`
	WindStrength int    `expr:"WindStrength"`
}

// ModifierSpec is a configured custom modifier.
type ModifierSpec struct {
	Name  string `json:"name" mapstructure:"name"`
	When  string `json:"when" mapstructure:"when"`
	Value int    `json:"value" mapstructure:"value"`
}

// ModifierRule is compiled once and evaluated per attack.
type ModifierRule struct {
	Name    string
	WhenSrc string
	Value   int
	program *vm.Program
}

// CompileModifiers compiles custom modifier conditions into expr bytecode.
func CompileModifiers(specs []ModifierSpec) ([]*ModifierRule, error) {
	out := make([]*ModifierRule, 0, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("modifier with condition %q has no name", s.When)
		}
		program, err := expr.Compile(s.When, expr.Env(AttackEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile modifier %q: %w", s.Name, err)
		}
		out = append(out, &ModifierRule{Name: s.Name, WhenSrc: s.When, Value: s.Value, program: program})
	}
	return out, nil
}

// ApplyModifiers adds every matching custom modifier to target. A rule that
// fails at runtime is logged and skipped.
func ApplyModifiers(target *TargetRoll, mods []*ModifierRule, env AttackEnv) {
	for _, m := range mods {
		result, err := vm.Run(m.program, env)
		if err != nil {
			slog.Warn("modifier condition error", "modifier", m.Name, "error", err)
			continue
		}
		if match, ok := result.(bool); ok && match {
			target.Add(m.Value, m.Name)
		}
	}
}

// RoundEnv is what the custom end condition can see.
type RoundEnv struct {
	Round     int         `expr:"Round"`
	Live      map[int]int `expr:"Live"` // Player ID -> live units
	Players   int         `expr:"Players"`
	Destroyed int         `expr:"Destroyed"`
}

// EndCondition is a compiled custom game-end rule.
type EndCondition struct {
	Src     string
	program *vm.Program
}

// CompileEndCondition compiles an end condition. An empty source yields nil.
func CompileEndCondition(src string) (*EndCondition, error) {
	if src == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.Env(RoundEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile end condition: %w", err)
	}
	return &EndCondition{Src: src, program: program}, nil
}

// Met reports whether the end condition holds. A nil condition is never met.
func (c *EndCondition) Met(env RoundEnv) bool {
	if c == nil {
		return false
	}
	result, err := vm.Run(c.program, env)
	if err != nil {
		slog.Warn("end condition error", "condition", c.Src, "error", err)
		return false
	}
	match, ok := result.(bool)
	return ok && match
}
