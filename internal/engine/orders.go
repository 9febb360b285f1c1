// Inbound orders: validation, atomic application and admin operations.
package engine

import (
	"errors"
	"log/slog"

	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

// OrderKind selects what an order does.
type OrderKind uint8

const (
	OrderReady OrderKind = iota + 1
	OrderDeploy
	OrderMove
	OrderAttack
)

var orderNames = [...]string{"", "ready", "deploy", "move", "attack"}

func (k OrderKind) String() string {
	if int(k) < len(orderNames) && k != 0 {
		return orderNames[k]
	}
	return "unknown"
}

// Order is one player instruction. Attacks may be empty: a firing or
// physical turn with no attacks passes.
type Order struct {
	Kind     OrderKind           `json:"kind"`
	Player   units.PlayerID      `json:"player"`
	Unit     units.ID            `json:"unit,omitempty"`
	Position world.Coords        `json:"position"`
	Facing   world.Facing        `json:"facing"`
	Move     MoveOrder           `json:"move"`
	Attacks  []AttackDeclaration `json:"attacks,omitempty"`
}

// Handle validates and applies one order. A rejected order changes nothing;
// the sender gets a rejection event and the error unwraps to a sentinel.
func (s *Session) Handle(o Order) error {
	defer s.flush()
	apply, rej := s.prepare(o)
	if rej != nil {
		slog.Info("order rejected", "player", o.Player, "kind", o.Kind, "unit", o.Unit, "reason", rej.Error())
		s.unicast(o.Player, Event{Type: EventRejected, Data: Rejection{Reason: rej.Error()}})
		return rej
	}
	apply()
	return nil
}

// prepare validates an order without touching state and returns the closure
// that applies it.
func (s *Session) prepare(o Order) (func(), *RejectionError) {
	if s.Player(o.Player) == nil {
		return nil, reject(ErrMalformedOrder, "unknown player %d", o.Player)
	}
	switch o.Kind {
	case OrderReady:
		return s.prepareReady(o)
	case OrderDeploy:
		u, rej := s.turnUnit(o, PhaseDeployment)
		if rej != nil {
			return nil, rej
		}
		return s.prepareDeploy(u, o)
	case OrderMove:
		u, rej := s.turnUnit(o, PhaseMovement)
		if rej != nil {
			return nil, rej
		}
		plan, err := s.planMove(u, o.Move)
		if err != nil {
			var r *RejectionError
			if errors.As(err, &r) {
				return nil, r
			}
			return nil, reject(ErrIllegalMove, "%v", err)
		}
		return func() { s.applyMove(u, plan) }, nil
	case OrderAttack:
		switch s.Phase {
		case PhaseFiring:
			u, rej := s.turnUnit(o, PhaseFiring)
			if rej != nil {
				return nil, rej
			}
			if rej := s.validateFiring(u, o.Attacks); rej != nil {
				return nil, rej
			}
			return func() { s.applyAttacks(u, o.Attacks) }, nil
		case PhasePhysical:
			u, rej := s.turnUnit(o, PhasePhysical)
			if rej != nil {
				return nil, rej
			}
			if rej := s.validatePhysical(u, o.Attacks); rej != nil {
				return nil, rej
			}
			return func() { s.applyAttacks(u, o.Attacks) }, nil
		}
		return nil, reject(ErrWrongPhase, "attacks are not accepted in the %s phase", s.Phase)
	}
	return nil, reject(ErrMalformedOrder, "unknown order kind %d", o.Kind)
}

// turnUnit checks phase, turn ownership and the acting unit.
func (s *Session) turnUnit(o Order, phase Phase) (*units.Unit, *RejectionError) {
	if s.Phase != phase {
		return nil, reject(ErrWrongPhase, "%s order during the %s phase", o.Kind, s.Phase)
	}
	t := s.CurrentTurn()
	if t == nil || t.Player != o.Player {
		return nil, reject(ErrNotYourTurn, "player %d does not hold the turn", o.Player)
	}
	u := s.Unit(o.Unit)
	if u == nil {
		return nil, reject(ErrUnknownUnit, "unit %d", o.Unit)
	}
	if u.Owner != o.Player {
		return nil, reject(ErrInvalidUnit, "%s belongs to player %d", u, u.Owner)
	}
	if !t.Allows(u) {
		return nil, reject(ErrInvalidUnit, "%s cannot act on a %s turn", u, t.Kind)
	}
	if !s.eligible(u, phase) || (u.Done && t.Kind != TurnSpecificUnit) {
		return nil, reject(ErrInvalidUnit, "%s cannot act this phase", u)
	}
	return u, nil
}

func (s *Session) prepareReady(o Order) (func(), *RejectionError) {
	if s.Phase.HasTurns() {
		return nil, reject(ErrWrongPhase, "the %s phase advances by turns", s.Phase)
	}
	p := s.Player(o.Player)
	return func() { s.markReady(p) }, nil
}

func (s *Session) prepareDeploy(u *units.Unit, o Order) (func(), *RejectionError) {
	h := s.Board.Get(o.Position)
	if h == nil {
		return nil, reject(ErrIllegalMove, "deployment hex %s is off the board", o.Position)
	}
	if prohibited(u, h) {
		return nil, reject(ErrIllegalMove, "%s cannot deploy into %s", u, o.Position)
	}
	if !u.IsInfantry() && s.blocker(o.Position, u) != nil {
		return nil, reject(ErrIllegalMove, "hex %s is occupied", o.Position)
	}
	facing := o.Facing.Normalize()
	return func() {
		u.SetPosition(o.Position)
		u.Facing = facing
		u.Deployed = true
		log := NewLog(s.Round, s.Phase)
		log.Add(u.ID, "%s deploys to %s facing %s", u, o.Position, facing)
		s.commitLog(log)
		s.advanceTurn(u)
	}, nil
}

// applyAttacks records declarations for resolution at phase end.
func (s *Session) applyAttacks(u *units.Unit, attacks []AttackDeclaration) {
	for _, a := range attacks {
		if a.Kind == AttackWeapon {
			u.Equipment[a.Weapon].FiredThisRound = true
		}
		s.Attacks = append(s.Attacks, a)
	}
	slog.Debug("attacks declared", "unit", u.ID, "count", len(attacks), "phase", s.Phase)
	s.advanceTurn(u)
}

func (s *Session) validateTarget(u *units.Unit, t Target) *RejectionError {
	switch t.Type {
	case TargetUnit:
		target := s.Unit(t.Unit)
		if target == nil || !target.OnBoard() || target.TransportedByID != 0 {
			return reject(ErrInvalidTarget, "unit %d is not on the board", t.Unit)
		}
		if target == u {
			return reject(ErrInvalidTarget, "%s cannot attack itself", u)
		}
	case TargetHex:
		if !s.Board.Contains(t.Hex) {
			return reject(ErrInvalidTarget, "hex %s is off the board", t.Hex)
		}
	case TargetBuilding:
		if b := s.Board.Buildings[t.Building]; b == nil || b.Collapsed {
			return reject(ErrInvalidTarget, "no building %d", t.Building)
		}
	default:
		return reject(ErrMalformedOrder, "target type %d", t.Type)
	}
	return nil
}

func (s *Session) validateFiring(u *units.Unit, attacks []AttackDeclaration) *RejectionError {
	used := make(map[int]bool)
	for _, a := range attacks {
		if a.Attacker != u.ID {
			return reject(ErrMalformedOrder, "attack declared for unit %d on %s's turn", a.Attacker, u)
		}
		if rej := s.validateTarget(u, a.Target); rej != nil {
			return rej
		}
		switch a.Kind {
		case AttackWeapon:
			if a.Weapon < 0 || a.Weapon >= len(u.Equipment) || u.Equipment[a.Weapon].Type != units.EquipWeapon {
				return reject(ErrMalformedOrder, "%s has no weapon %d", u, a.Weapon)
			}
			if used[a.Weapon] || u.Equipment[a.Weapon].FiredThisRound {
				return reject(ErrMalformedOrder, "%s fires %s twice", u, u.Equipment[a.Weapon].Name)
			}
			used[a.Weapon] = true
			if u.SwarmTargetID != 0 && (a.Target.Type != TargetUnit || a.Target.Unit != u.SwarmTargetID) {
				return reject(ErrInvalidTarget, "%s can only attack the unit it swarms", u)
			}
		case AttackSwarm:
			if u.Kind != units.BattleArmor || len(attacks) != 1 {
				return reject(ErrMalformedOrder, "only battle armor swarm, as their only attack")
			}
			if a.Target.Type != TargetUnit {
				return reject(ErrInvalidTarget, "swarm attacks need a unit")
			}
		default:
			return reject(ErrMalformedOrder, "%s attacks belong to the physical phase", a.Kind)
		}
		if a.Target.Type == TargetUnit && !s.Options.FriendlyFire && !s.Enemies(u.Owner, s.Unit(a.Target.Unit).Owner) {
			return reject(ErrInvalidTarget, "friendly fire is disabled")
		}
	}
	return nil
}

func (s *Session) validatePhysical(u *units.Unit, attacks []AttackDeclaration) *RejectionError {
	if len(attacks) > 1 {
		return reject(ErrMalformedOrder, "one physical attack per unit")
	}
	for _, a := range attacks {
		if a.Attacker != u.ID {
			return reject(ErrMalformedOrder, "attack declared for unit %d on %s's turn", a.Attacker, u)
		}
		switch a.Kind {
		case AttackPunch, AttackKick, AttackPush, AttackClub, AttackBrushOff, AttackThrash:
		default:
			return reject(ErrMalformedOrder, "%s is not a physical phase attack", a.Kind)
		}
		if a.Target.Type != TargetUnit {
			return reject(ErrInvalidTarget, "physical attacks need a unit target")
		}
		if rej := s.validateTarget(u, a.Target); rej != nil {
			return rej
		}
		if a.Kind == AttackBrushOff && a.Target.Unit != u.SwarmAttackerID {
			return reject(ErrInvalidTarget, "%s can only brush off its own swarmer", u)
		}
		if (a.Kind == AttackPunch || a.Kind == AttackBrushOff) && a.Limb != units.RightArm && a.Limb != units.LeftArm {
			return reject(ErrMalformedOrder, "%s needs an arm", a.Kind)
		}
		if a.Kind == AttackKick && !units.IsLeg(a.Limb) {
			return reject(ErrMalformedOrder, "kick needs a leg")
		}
	}
	return nil
}

// markReady records a player's readiness and ends the phase once every
// active player is ready.
func (s *Session) markReady(p *Player) {
	p.Ready = true
	s.emit(Event{Type: EventPlayers, Data: s.Players})
	s.checkReady()
}

func (s *Session) checkReady() {
	if s.Phase.HasTurns() {
		return
	}
	waiting := 0
	for _, p := range s.Players {
		if p.Observer || p.Ghost {
			continue
		}
		waiting++
		if !p.Ready {
			return
		}
	}
	if waiting == 0 {
		return
	}
	s.endPhase()
}

func (s *Session) resetReady() {
	for _, p := range s.Players {
		p.Ready = false
	}
}

// SkipTurn passes the current turn without the player acting.
func (s *Session) SkipTurn() error {
	defer s.flush()
	t := s.CurrentTurn()
	if t == nil {
		return reject(ErrWrongPhase, "no turn to skip in the %s phase", s.Phase)
	}
	slog.Info("turn skipped", "player", t.Player, "phase", s.Phase, "index", s.TurnIndex)
	var actor *units.Unit
	if t.Kind == TurnSpecificUnit {
		actor = s.Unit(t.Unit)
	}
	s.advanceTurn(actor)
	return nil
}

// ForceVictory ends the game at once in favor of a player.
func (s *Session) ForceVictory(p units.PlayerID) error {
	defer s.flush()
	pl := s.Player(p)
	if pl == nil {
		return reject(ErrMalformedOrder, "unknown player %d", p)
	}
	if s.Phase == PhaseLounge || s.Phase == PhaseVictory {
		return reject(ErrWrongPhase, "no game in progress")
	}
	s.Forced = &ForcedVictory{Player: p, Team: pl.Team}
	s.Victory = s.EvaluateVictory()
	s.emit(Event{Type: EventVictory, Data: s.Victory})
	slog.Info("victory forced", "player", p, "round", s.Round)
	s.enterPhase(PhaseVictory)
	return nil
}

// Disconnect turns a player into a ghost. Ghosts do not hold up ready checks.
func (s *Session) Disconnect(p units.PlayerID) {
	defer s.flush()
	pl := s.Player(p)
	if pl == nil {
		return
	}
	pl.Ghost = true
	slog.Info("player disconnected", "player", p, "phase", s.Phase)
	s.emit(Event{Type: EventPlayers, Data: s.Players})
	s.checkReady()
}

// Reconnect clears the ghost flag.
func (s *Session) Reconnect(p units.PlayerID) {
	defer s.flush()
	if pl := s.Player(p); pl != nil && pl.Ghost {
		pl.Ghost = false
		s.emit(Event{Type: EventPlayers, Data: s.Players})
	}
}
