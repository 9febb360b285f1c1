// Movement: step validation, MP accounting and the per-step resolver.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

// StepType is one movement step.
type StepType uint8

const (
	StepForward StepType = iota + 1
	StepBackward
	StepTurnLeft
	StepTurnRight
	StepGetUp
	StepGoProne
	StepFlee
	StepEject
	StepUnjam
	StepCharge
	StepDFA
	StepLoad
	StepUnload
)

var stepNames = map[StepType]string{
	StepForward:   "forward",
	StepBackward:  "backward",
	StepTurnLeft:  "turn left",
	StepTurnRight: "turn right",
	StepGetUp:     "get up",
	StepGoProne:   "go prone",
	StepFlee:      "flee",
	StepEject:     "eject",
	StepUnjam:     "unjam",
	StepCharge:    "charge",
	StepDFA:       "death from above",
	StepLoad:      "load",
	StepUnload:    "unload",
}

func (t StepType) String() string {
	if n, ok := stepNames[t]; ok {
		return n
	}
	return "unknown"
}

// terminal steps end the move.
func (t StepType) terminal() bool {
	switch t {
	case StepGoProne, StepFlee, StepEject, StepUnjam, StepCharge, StepDFA:
		return true
	}
	return false
}

// MoveStep is one step of a move order. Target is the unit a charge, DFA,
// load or unload step refers to.
type MoveStep struct {
	Type   StepType `json:"type"`
	Target units.ID `json:"target,omitempty"`
}

// MoveOrder is a movement mode and its steps.
type MoveOrder struct {
	Mode  units.MoveType `json:"mode"`
	Steps []MoveStep     `json:"steps"`
}

// plannedStep is a validated step with its precomputed geometry.
type plannedStep struct {
	MoveStep
	from, to   world.Coords
	facing     world.Facing // After the step
	prevFacing world.Facing
	cost       int
}

type movePlan struct {
	mode  units.MoveType
	steps []plannedStep
	mp    int
}

// climbLimit is how many levels a unit may change per hex on the ground.
func climbLimit(u *units.Unit) int {
	if u.Kind == units.Mech {
		return 2
	}
	return 1
}

// prohibited reports terrain a unit may never occupy.
func prohibited(u *units.Unit, h *world.Hex) bool {
	switch u.Kind {
	case units.Infantry, units.BattleArmor:
		return h.Depth() > 0
	case units.Vehicle:
		switch u.Motive {
		case units.Hover:
			return h.Has(world.Woods)
		case units.Wheeled:
			return h.Depth() > 0 || h.Has(world.Woods) || h.Has(world.Rough) || h.Has(world.Rubble)
		default:
			return h.Depth() > 0 || h.Level(world.Woods) >= 2
		}
	}
	return false
}

// stepCost is the MP to walk from one hex into the next.
func stepCost(u *units.Unit, from, to *world.Hex) (int, error) {
	climb := to.Elevation - from.Elevation
	if climb > climbLimit(u) || -climb > climbLimit(u) {
		return 0, fmt.Errorf("elevation change of %d into %s", climb, to.Coords)
	}
	cost := 1 + max(climb, 0)
	if u.IsInfantry() {
		return cost, nil
	}
	switch to.Level(world.Woods) {
	case 1:
		cost++
	case 2:
		cost += 2
	}
	if to.Has(world.Rough) || to.Has(world.Rubble) {
		cost++
	}
	if u.Motive != units.Hover {
		switch d := to.Depth(); {
		case d == 1:
			cost++
		case d >= 2:
			cost += 3
		}
	}
	return cost, nil
}

// moveBudget is the MP a mode allows.
func moveBudget(u *units.Unit, mode units.MoveType) (int, error) {
	switch mode {
	case units.MoveNone:
		return 0, nil
	case units.MoveWalk:
		return u.EffectiveWalkMP(), nil
	case units.MoveRun:
		if u.IsInfantry() {
			return 0, fmt.Errorf("infantry cannot run")
		}
		return u.RunMP(), nil
	case units.MoveJump:
		if u.Prone {
			return 0, fmt.Errorf("prone units cannot jump")
		}
		if u.EffectiveJumpMP() == 0 {
			return 0, fmt.Errorf("%s has no jump capability", u)
		}
		return u.EffectiveJumpMP(), nil
	}
	return 0, fmt.Errorf("unknown movement mode %d", mode)
}

// planMove validates a move order against the current state without
// changing it.
func (s *Session) planMove(u *units.Unit, mo MoveOrder) (*movePlan, error) {
	if u.MoveType != units.MoveNone && mo.Mode != units.MoveNone && mo.Mode != u.MoveType {
		return nil, reject(ErrIllegalMove, "%s already moved this round by %s", u, u.MoveType)
	}
	budget, err := moveBudget(u, mo.Mode)
	if err != nil {
		return nil, reject(ErrIllegalMove, "%v", err)
	}
	remaining := budget - u.MPUsed

	plan := &movePlan{mode: mo.Mode}
	pos, facing, prone := u.Pos(), u.Facing, u.Prone
	hexes, loads := 0, 0
	for i, st := range mo.Steps {
		if i > 0 && mo.Steps[i-1].Type.terminal() {
			return nil, reject(ErrIllegalMove, "step %d follows a %s step", i, mo.Steps[i-1].Type)
		}
		ps := plannedStep{MoveStep: st, from: pos, prevFacing: facing}
		if mo.Mode == units.MoveNone {
			switch st.Type {
			case StepFlee, StepEject, StepUnjam, StepGoProne:
			default:
				return nil, reject(ErrIllegalMove, "%s step needs a movement mode", st.Type)
			}
		}
		switch st.Type {
		case StepTurnLeft, StepTurnRight:
			delta := 1
			if st.Type == StepTurnLeft {
				delta = -1
			}
			facing = facing.Rotate(delta)
			if mo.Mode != units.MoveJump {
				ps.cost = 1
			}

		case StepForward, StepBackward:
			if prone {
				return nil, reject(ErrIllegalMove, "%s must get up before moving", u)
			}
			dir := facing
			if st.Type == StepBackward {
				if mo.Mode != units.MoveWalk {
					return nil, reject(ErrIllegalMove, "backward steps only while walking")
				}
				dir = facing.Opposite()
			}
			next := pos.Translated(dir)
			to := s.Board.Get(next)
			if to == nil {
				return nil, reject(ErrIllegalMove, "step %d leaves the board at %s", i, next)
			}
			if mo.Mode == units.MoveJump {
				ps.cost = 1
			} else {
				cost, err := stepCost(u, s.Board.Get(pos), to)
				if err != nil {
					return nil, reject(ErrIllegalMove, "step %d: %v", i, err)
				}
				if prohibited(u, to) {
					return nil, reject(ErrIllegalMove, "%s cannot enter %s", u, next)
				}
				if o := s.blocker(next, u); o != nil && !u.IsInfantry() && s.Enemies(u.Owner, o.Owner) {
					return nil, reject(ErrIllegalMove, "%s blocks %s", o, next)
				}
				ps.cost = cost
			}
			pos = next
			hexes++

		case StepGetUp:
			if !prone || u.Kind != units.Mech {
				return nil, reject(ErrIllegalMove, "%s is not prone", u)
			}
			prone = false
			ps.cost = 2

		case StepGoProne:
			if prone || u.Kind != units.Mech {
				return nil, reject(ErrIllegalMove, "%s cannot go prone", u)
			}
			if mo.Mode != units.MoveNone {
				ps.cost = 1
			}

		case StepFlee:
			if !s.Board.OnEdge(pos) {
				return nil, reject(ErrIllegalMove, "%s can only flee from a board edge", u)
			}

		case StepEject:
			if u.Kind != units.Mech {
				return nil, reject(ErrIllegalMove, "only mech pilots eject")
			}

		case StepUnjam:
			if len(mo.Steps) != 1 || !hasJammed(u) {
				return nil, reject(ErrIllegalMove, "%s has nothing to unjam or moved", u)
			}

		case StepCharge, StepDFA:
			if err := s.checkRam(u, st, mo.Mode, pos, facing, hexes+u.Moved, prone); err != nil {
				return nil, err
			}

		case StepLoad:
			cargo := s.Unit(st.Target)
			switch {
			case u.Kind != units.Vehicle || len(u.Transports)+loads >= u.TroopSpace:
				return nil, reject(ErrIllegalMove, "%s has no room", u)
			case cargo == nil || !cargo.IsInfantry() || cargo.Owner != u.Owner:
				return nil, reject(ErrInvalidTarget, "unit %d cannot be loaded", st.Target)
			case !cargo.OnBoard() || cargo.Pos() != pos || cargo.Done || cargo.SwarmTargetID != 0:
				return nil, reject(ErrInvalidTarget, "%s is not ready to board at %s", cargo, pos)
			}
			loads++
			ps.cost = 1

		case StepUnload:
			cargo := s.Unit(st.Target)
			if cargo == nil || !containsID(u.Transports, cargo.ID) {
				return nil, reject(ErrInvalidTarget, "%s does not carry unit %d", u, st.Target)
			}
			if prohibited(cargo, s.Board.Get(pos)) {
				return nil, reject(ErrIllegalMove, "%s cannot unload into %s", cargo, pos)
			}
			ps.cost = 1

		default:
			return nil, reject(ErrMalformedOrder, "unknown step %d", st.Type)
		}
		plan.mp += ps.cost
		if plan.mp > remaining {
			return nil, reject(ErrIllegalMove, "move needs %d MP, %s has %d", plan.mp, u, remaining)
		}
		ps.to, ps.facing = pos, facing
		plan.steps = append(plan.steps, ps)
	}

	if pos != u.Pos() {
		to := s.Board.Get(pos)
		if prohibited(u, to) {
			return nil, reject(ErrIllegalMove, "%s cannot land in %s", u, pos)
		}
		if !u.IsInfantry() && s.blocker(pos, u) != nil {
			return nil, reject(ErrIllegalMove, "%s cannot end its move in occupied hex %s", u, pos)
		}
	}
	return plan, nil
}

// checkRam validates a charge or death from above declaration.
func (s *Session) checkRam(u *units.Unit, st MoveStep, mode units.MoveType, pos world.Coords, facing world.Facing, moved int, prone bool) error {
	target := s.Unit(st.Target)
	if target == nil || !target.OnBoard() || target.TransportedByID != 0 {
		return reject(ErrInvalidTarget, "unit %d is not on the board", st.Target)
	}
	if !s.Options.FriendlyFire && !s.Enemies(u.Owner, target.Owner) {
		return reject(ErrInvalidTarget, "friendly fire is disabled")
	}
	if world.Distance(pos, target.Pos()) != 1 {
		return reject(ErrInvalidTarget, "%s is not adjacent", target)
	}
	if prone || u.IsInfantry() {
		return reject(ErrIllegalMove, "%s cannot %s", u, st.Type)
	}
	if st.Type == StepCharge {
		if mode != units.MoveWalk && mode != units.MoveRun {
			return reject(ErrIllegalMove, "charges are made walking or running")
		}
		if world.DirectionTo(pos, target.Pos()) != facing {
			return reject(ErrInvalidTarget, "%s is not straight ahead", target)
		}
		if moved == 0 {
			return reject(ErrIllegalMove, "a charge needs a run-up")
		}
		return nil
	}
	if mode != units.MoveJump || u.Kind != units.Mech {
		return reject(ErrIllegalMove, "death from above needs a jumping mech")
	}
	return nil
}

func hasJammed(u *units.Unit) bool {
	for i := range u.Equipment {
		if u.Equipment[i].Jammed && !u.Equipment[i].Destroyed {
			return true
		}
	}
	return false
}

// applyMove runs a validated plan and hands the turn on.
func (s *Session) applyMove(u *units.Unit, plan *movePlan) {
	log := NewLog(s.Round, s.Phase)
	fell := s.executeMove(u, plan, log)
	s.commitLog(log)
	if fell && u.Active() && u.OnBoard() && !u.Shutdown && !u.Immobile &&
		plan.mode != units.MoveJump && u.MPUsed < u.RunMP() {
		s.grantExtraTurn(u)
	}
	s.grantMultiMove(u)
	s.advanceTurn(u)
}

// executeMove resolves steps in order. It returns true when the unit fell
// involuntarily, which truncates the rest of the move.
func (s *Session) executeMove(u *units.Unit, plan *movePlan, log *Log) bool {
	first := u.MPUsed == 0 && u.MoveType == units.MoveNone
	if plan.mode != units.MoveNone {
		u.MoveType = plan.mode
	}
	startHexes := u.Moved
	fell := false

	for _, st := range plan.steps {
		if fell || !u.Active() || !u.OnBoard() {
			break
		}
		u.MPUsed += st.cost
		switch st.Type {
		case StepGoProne:
			u.Prone = true
			log.Add(u.ID, "%s drops prone", u)
			s.queueUnit(u)
			return false
		case StepFlee:
			log.Add(u.ID, "%s flees the battlefield from %s", u, u.Pos())
			s.retreat(u, "fled")
			return false
		case StepEject:
			log.Add(u.ID, "the pilot of %s ejects", u)
			u.Doomed = true
			return false
		case StepUnjam:
			s.unjam(u, log)
			return false
		case StepCharge, StepDFA:
			kind := AttackCharge
			if st.Type == StepDFA {
				kind = AttackDFA
			}
			s.Attacks = append(s.Attacks, AttackDeclaration{Kind: kind, Attacker: u.ID, Target: UnitTarget(st.Target), Ammo: -1})
			log.Add(u.ID, "%s declares a %s attack on unit %d", u, kind, st.Target)
			s.queueUnit(u)
			s.finishMovement(u, plan, first, startHexes, log)
			return false

		case StepGetUp:
			if s.checkWhileMoving(u, 0, "getting up", log) {
				u.Prone = false
				log.Add(u.ID, "%s stands up", u)
			} else {
				s.fall(u, 0, log)
				fell = true
			}

		case StepTurnLeft, StepTurnRight:
			u.Facing = st.facing
			h := s.Board.Get(u.Pos())
			if plan.mode == units.MoveRun && u.Kind == units.Mech && h.Slick() &&
				!s.checkWhileMoving(u, 0, "running turn on pavement", log) {
				s.skid(u, st.prevFacing, rules.CeilDiv(u.Moved, 2), log)
				fell = true
			}

		case StepForward, StepBackward:
			from := u.Pos()
			s.moveUnit(u, st.to)
			u.Moved++
			if plan.mode != units.MoveJump && !s.enterHex(u, from, s.Board.Get(st.to), log) {
				fell = u.FellThisPhase
				if !fell {
					return false
				}
			}

		case StepLoad:
			cargo := s.Unit(st.Target)
			cargo.ClearPosition()
			cargo.TransportedByID = u.ID
			cargo.Done = true
			u.Transports = append(u.Transports, cargo.ID)
			log.Add(u.ID, "%s loads %s", u, cargo)
			s.queueUnit(cargo)

		case StepUnload:
			cargo := s.Unit(st.Target)
			cargo.SetPosition(u.Pos())
			cargo.Facing = u.Facing
			cargo.TransportedByID = 0
			cargo.Done = true
			u.Transports = removeID(u.Transports, cargo.ID)
			log.Add(u.ID, "%s unloads %s at %s", u, cargo, u.Pos())
			s.queueUnit(cargo)
		}
	}

	if !fell && plan.mode == units.MoveJump && u.Active() && u.OnBoard() {
		s.land(u, log)
	}
	s.finishMovement(u, plan, first, startHexes, log)
	return fell
}

// finishMovement books heat and the checks owed for how the unit moved.
func (s *Session) finishMovement(u *units.Unit, plan *movePlan, first bool, startHexes int, log *Log) {
	if !u.Active() {
		return
	}
	if u.Kind == units.Mech && first {
		switch plan.mode {
		case units.MoveWalk:
			u.HeatBuildup++
		case units.MoveRun:
			u.HeatBuildup += 2
		case units.MoveJump:
			u.HeatBuildup += max(3, u.Moved-startHexes)
		}
	}
	if u.Kind == units.Mech && plan.mode == units.MoveRun && (u.Crits.GyroHits > 0 || u.Crits.HipHits > 0) {
		s.addRoll(u, 0, "running with a damaged gyro or hip", false)
	}
	if u.OnBoard() {
		log.Add(u.ID, "%s ends its move at %s facing %s (%d MP)", u, u.Pos(), u.Facing, u.MPUsed)
	}
	s.queueUnit(u)
}

// enterHex applies terrain effects of walking from one hex into the next. It
// returns false when the move must stop.
func (s *Session) enterHex(u *units.Unit, from world.Coords, to *world.Hex, log *Log) bool {
	if to.Has(world.Rubble) && u.Kind == units.Mech &&
		!s.checkWhileMoving(u, 0, "entering rubble", log) {
		s.fall(u, 0, log)
		return false
	}
	if d := to.Depth(); d > 0 {
		s.enterWater(u, d, log)
		if u.Kind == units.Mech && !s.checkWhileMoving(u, waterModifier(d), "entering water", log) {
			s.fall(u, 0, log)
			return false
		}
	}
	if to.Burning() && u.Kind == units.Mech {
		u.HeatBuildup += 2
		log.Add(u.ID, "%s wades through fire at %s", u, to.Coords)
	}
	if !u.IsInfantry() {
		leaving, entering := s.Board.BuildingAt(from), s.Board.BuildingAt(to.Coords)
		// Walking out of one building straight into another crosses two walls.
		if leaving != nil && leaving != entering && !s.crashWall(u, leaving, log) {
			return false
		}
		if entering != nil && !s.crashWall(u, entering, log) {
			return false
		}
	}
	return u.Active()
}

// waterModifier is the piloting modifier for entering water of a depth.
func waterModifier(depth int) int {
	switch {
	case depth <= 1:
		return -1
	case depth == 2:
		return 0
	}
	return 1
}

// enterWater washes off inferno gel and drowns a swarming passenger in deep
// water.
func (s *Session) enterWater(u *units.Unit, depth int, log *Log) {
	if u.InfernoRounds > 0 {
		u.InfernoRounds = 0
		log.Add(u.ID, "%s washes off the burning inferno gel", u)
	}
	if depth < 2 {
		return
	}
	if sw := s.Unit(u.SwarmAttackerID); sw != nil {
		log.Add(sw.ID, "%s is dragged under and drowns", sw)
		sw.Doomed = true
		s.queueUnit(sw)
	}
}

// crashWall resolves moving through a building wall. The building always
// takes damage; a failed check hurts the unit.
func (s *Session) crashWall(u *units.Unit, b *world.Building, log *Log) bool {
	cf := b.CF
	ok := s.checkWhileMoving(u, b.Category.WallModifier()+u.Moved/2, "moving through "+b.Name, log)
	s.damageBuilding(b, rules.CeilDiv(u.Mass, 10), log)
	if !ok {
		log.Add(u.ID, "%s crashes through the wall of %s", u, b.Name)
		s.damageGroups(u, units.Front, rules.CeilDiv(cf, 10), 5, log)
	}
	return u.Active()
}

// land applies jump landing checks.
func (s *Session) land(u *units.Unit, log *Log) {
	h := s.Board.Get(u.Pos())
	if d := h.Depth(); d > 0 {
		s.enterWater(u, d, log)
		if sw := s.Unit(u.SwarmAttackerID); sw != nil {
			log.Add(sw.ID, "%s is shaken off by the splashdown", sw)
			s.dislodge(u)
		}
	}
	if u.Kind != units.Mech {
		return
	}
	_, upper, lower, foot := u.LegActuatorHits(units.RightLeg)
	_, upper2, lower2, foot2 := u.LegActuatorHits(units.LeftLeg)
	legs := upper + lower + foot + upper2 + lower2 + foot2
	if u.Crits.GyroHits > 0 || u.Crits.HipHits > 0 || legs > 0 ||
		u.Locations[units.RightLeg].Destroyed || u.Locations[units.LeftLeg].Destroyed {
		s.addRoll(u, 0, "jumping with damaged gyro or legs", false)
	}
}

// dislodge separates a unit from the battle armor swarming it.
func (s *Session) dislodge(u *units.Unit) {
	sw := s.Unit(u.SwarmAttackerID)
	u.SwarmAttackerID = 0
	if sw != nil {
		sw.SwarmTargetID = 0
		s.queueUnit(sw)
	}
	s.queueUnit(u)
}

// unjam tries to clear jammed rapid-fire weapons.
func (s *Session) unjam(u *units.Unit, log *Log) {
	target := rules.NewTarget(u.Gunnery, "gunnery")
	target.Add(3, "unjam")
	roll := s.roll2d6()
	if !target.Succeeds(roll) {
		log.Add(u.ID, "%s fails to unjam its weapons (needs %d, rolls %d)", u, target.Value(), roll)
		return
	}
	for i := range u.Equipment {
		if u.Equipment[i].Jammed {
			u.Equipment[i].Jammed = false
		}
	}
	log.Add(u.ID, "%s clears its jammed weapons (needs %d, rolls %d)", u, target.Value(), roll)
	slog.Debug("weapons unjammed", "unit", u.ID, "round", s.Round)
	s.queueUnit(u)
}
