// Package engine provides the authoritative game simulation: the phase
// controller, turn sequencer and the movement, attack and environment
// resolvers, all operating on an explicit Session.
package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/ironhex/internal/entropy"
	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/weather"
	"github.com/talgya/ironhex/internal/world"
)

// Player is a participant. Team 0 means no team.
type Player struct {
	ID         units.PlayerID `json:"id" msgpack:"id"`
	Name       string         `json:"name" msgpack:"name"`
	Team       int            `json:"team" msgpack:"team"`
	Observer   bool           `json:"observer" msgpack:"observer"`
	Ghost      bool           `json:"ghost" msgpack:"ghost"` // Disconnected
	Ready      bool           `json:"ready" msgpack:"ready"`
	Initiative []int          `json:"initiative,omitempty" msgpack:"initiative"`
	Token      string         `json:"-" msgpack:"token"` // Proves a connection speaks for this player
}

// Session is the complete mutable game state. Every resolver receives it
// explicitly; nothing else holds game state.
type Session struct {
	ID        string              `msgpack:"id"`
	Board     *world.Board        `msgpack:"board"`
	Units     []*units.Unit       `msgpack:"units"`
	Graveyard []*units.Unit       `msgpack:"graveyard"`
	Players   []*Player           `msgpack:"players"`
	Options   rules.Options       `msgpack:"options"`
	Wind      weather.Wind        `msgpack:"wind"`
	Phase     Phase               `msgpack:"phase"`
	Round     int                 `msgpack:"round"`
	Turns     []Turn              `msgpack:"turns"`
	TurnIndex int                 `msgpack:"turn_index"`
	Pending   []PendingRoll       `msgpack:"pending"`
	Attacks   []AttackDeclaration `msgpack:"attacks"`
	Reports   []Report            `msgpack:"reports"` // Current round
	Order     []InitiativeEntry   `msgpack:"initiative"`
	Forced    *ForcedVictory      `msgpack:"forced"`
	Victory   *VictoryResult      `msgpack:"victory"`

	// Dice stream position, refreshed before every save.
	Seed  uint64 `msgpack:"seed"`
	Draws uint64 `msgpack:"draws"`

	NextUnitID units.ID `msgpack:"next_unit_id"`

	// Runtime state, rebuilt by Reindex.
	dice         entropy.Roller
	index        map[units.ID]*units.Unit
	transport    Transport
	outbox       []outbound
	modifiers    []*rules.ModifierRule
	endCondition *rules.EndCondition
	roundPlayed  bool
	touched      map[int]bool // Buildings whose CF changed this round

	// OnPhase and OnRound are optional hooks for metrics and persistence.
	OnPhase func(p Phase)                      `msgpack:"-"`
	OnRound func(round int, reports []Report) `msgpack:"-"`
}

// Config holds everything needed to start a session.
type Config struct {
	Board     *world.Board
	Options   rules.Options
	Wind      weather.Wind
	Seed      uint64
	Modifiers []rules.ModifierSpec
	EndWhen   string
}

// NewSession creates a session in the lounge.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Board == nil {
		return nil, fmt.Errorf("new session: no board")
	}
	s := &Session{
		ID:         uuid.NewString(),
		Board:      cfg.Board,
		Options:    cfg.Options,
		Wind:       cfg.Wind,
		Phase:      PhaseLounge,
		Seed:       cfg.Seed,
		NextUnitID: 1,
		dice:       entropy.NewSeeded(cfg.Seed),
		index:      make(map[units.ID]*units.Unit),
		touched:    make(map[int]bool),
	}
	if err := s.ConfigureRules(cfg.Modifiers, cfg.EndWhen); err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	return s, nil
}

// ConfigureRules compiles custom to-hit modifiers and the end condition.
// Compiled rules are not serialized, so a loaded session needs this again.
func (s *Session) ConfigureRules(mods []rules.ModifierSpec, endWhen string) error {
	compiled, err := rules.CompileModifiers(mods)
	if err != nil {
		return err
	}
	end, err := rules.CompileEndCondition(endWhen)
	if err != nil {
		return err
	}
	s.modifiers, s.endCondition = compiled, end
	return nil
}

// Reindex rebuilds lookup tables and checks every weak relation. It is run
// after a session is decoded.
func (s *Session) Reindex() error {
	s.index = make(map[units.ID]*units.Unit, len(s.Units))
	if s.touched == nil {
		s.touched = make(map[int]bool)
	}
	for _, u := range s.Units {
		if _, dup := s.index[u.ID]; dup {
			return fmt.Errorf("duplicate unit id %d", u.ID)
		}
		s.index[u.ID] = u
		if u.ID >= s.NextUnitID {
			s.NextUnitID = u.ID + 1
		}
	}
	for _, u := range s.Graveyard {
		if u.ID >= s.NextUnitID {
			s.NextUnitID = u.ID + 1
		}
	}
	for _, u := range s.Units {
		if s.Player(u.Owner) == nil {
			return fmt.Errorf("unit %d: unknown owner %d", u.ID, u.Owner)
		}
		if err := s.checkRelation(u.ID, u.SwarmTargetID, func(o *units.Unit) bool { return o.SwarmAttackerID == u.ID }); err != nil {
			return fmt.Errorf("swarm target: %w", err)
		}
		if err := s.checkRelation(u.ID, u.SwarmAttackerID, func(o *units.Unit) bool { return o.SwarmTargetID == u.ID }); err != nil {
			return fmt.Errorf("swarm attacker: %w", err)
		}
		if err := s.checkRelation(u.ID, u.TransportedByID, func(o *units.Unit) bool { return containsID(o.Transports, u.ID) }); err != nil {
			return fmt.Errorf("transporter: %w", err)
		}
		for _, id := range u.Transports {
			if err := s.checkRelation(u.ID, id, func(o *units.Unit) bool { return o.TransportedByID == u.ID }); err != nil {
				return fmt.Errorf("cargo: %w", err)
			}
		}
	}
	if s.TurnIndex < 0 || s.TurnIndex > len(s.Turns) {
		return fmt.Errorf("turn index %d outside queue of %d", s.TurnIndex, len(s.Turns))
	}
	s.dice = entropy.Restore(s.Seed, s.Draws)
	return nil
}

func (s *Session) checkRelation(from, to units.ID, back func(*units.Unit) bool) error {
	if to == 0 {
		return nil
	}
	o := s.index[to]
	if o == nil {
		return fmt.Errorf("unit %d refers to missing unit %d", from, to)
	}
	if !back(o) {
		return fmt.Errorf("unit %d and unit %d disagree", from, to)
	}
	return nil
}

// SetDice replaces the dice stream, for tests and replays.
func (s *Session) SetDice(r entropy.Roller) {
	s.dice = r
}

// SetTransport attaches the outbound event sink.
func (s *Session) SetTransport(t Transport) {
	s.transport = t
}

// SyncDice copies the dice position into the serialized fields.
func (s *Session) SyncDice() {
	if seeded, ok := s.dice.(*entropy.Seeded); ok {
		s.Seed, s.Draws = seeded.State()
	}
}

func (s *Session) d6() int {
	return s.dice.D6()
}

func (s *Session) roll2d6() int {
	return entropy.Roll2D6(s.dice)
}

// Unit resolves an ID to an active-collection unit, or nil.
func (s *Session) Unit(id units.ID) *units.Unit {
	if id == 0 {
		return nil
	}
	return s.index[id]
}

// Player finds a player by ID.
func (s *Session) Player(id units.PlayerID) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AddPlayer registers a participant in the lounge.
func (s *Session) AddPlayer(id units.PlayerID, name string, team int) (*Player, error) {
	if s.Phase != PhaseLounge {
		return nil, fmt.Errorf("add player %q: %w", name, ErrWrongPhase)
	}
	if s.Player(id) != nil {
		return nil, fmt.Errorf("add player %q: id %d taken", name, id)
	}
	p := &Player{ID: id, Name: name, Team: team}
	s.Players = append(s.Players, p)
	sort.Slice(s.Players, func(i, j int) bool { return s.Players[i].ID < s.Players[j].ID })
	s.emit(Event{Type: EventPlayers, Data: s.Players})
	s.flush()
	return p, nil
}

// AddUnit spawns a registered design for a player. deployRound above zero
// makes the unit a reinforcement.
func (s *Session) AddUnit(owner units.PlayerID, design string, deployRound int) (*units.Unit, error) {
	if s.Phase != PhaseLounge {
		return nil, fmt.Errorf("add unit: %w", ErrWrongPhase)
	}
	if s.Player(owner) == nil {
		return nil, fmt.Errorf("add unit: unknown player %d", owner)
	}
	u, err := units.Spawn(design, s.NextUnitID, owner)
	if err != nil {
		return nil, fmt.Errorf("add unit: %w", err)
	}
	u.DeployRound = deployRound
	s.insertUnit(u)
	s.flush()
	return u, nil
}

// PlaceUnit adds an already built unit, optionally pre-deployed at a hex.
func (s *Session) PlaceUnit(u *units.Unit, at *world.Coords, facing world.Facing) error {
	if s.Player(u.Owner) == nil {
		return fmt.Errorf("place unit: unknown player %d", u.Owner)
	}
	if u.ID == 0 {
		u.ID = s.NextUnitID
	}
	if s.index[u.ID] != nil {
		return fmt.Errorf("place unit: id %d taken", u.ID)
	}
	if at != nil {
		if !s.Board.Contains(*at) {
			return fmt.Errorf("place unit: %s off board", *at)
		}
		u.SetPosition(*at)
		u.Facing = facing
		u.Deployed = true
	}
	s.insertUnit(u)
	s.flush()
	return nil
}

func (s *Session) insertUnit(u *units.Unit) {
	s.Units = append(s.Units, u)
	s.index[u.ID] = u
	if u.ID >= s.NextUnitID {
		s.NextUnitID = u.ID + 1
	}
	s.queueUnit(u)
}

// UnitsAt lists active units in a hex in collection order.
func (s *Session) UnitsAt(c world.Coords) []*units.Unit {
	var out []*units.Unit
	for _, u := range s.Units {
		if u.OnBoard() && u.Pos() == c && u.Active() && u.TransportedByID == 0 {
			out = append(out, u)
		}
	}
	return out
}

// blocker returns a non-infantry unit other than self in the hex.
func (s *Session) blocker(c world.Coords, self *units.Unit) *units.Unit {
	for _, o := range s.UnitsAt(c) {
		if o != self && !o.IsInfantry() && o.SwarmTargetID == 0 {
			return o
		}
	}
	return nil
}

// OwnedBy lists active units of a player.
func (s *Session) OwnedBy(p units.PlayerID) []*units.Unit {
	var out []*units.Unit
	for _, u := range s.Units {
		if u.Owner == p && u.Active() {
			out = append(out, u)
		}
	}
	return out
}

// teamOf returns the player's team, or 0.
func (s *Session) teamOf(p units.PlayerID) int {
	if pl := s.Player(p); pl != nil {
		return pl.Team
	}
	return 0
}

// Enemies reports whether two players are opposed.
func (s *Session) Enemies(a, b units.PlayerID) bool {
	if a == b {
		return false
	}
	ta, tb := s.teamOf(a), s.teamOf(b)
	return ta == 0 || ta != tb
}

func (s *Session) hasUndeployed() bool {
	for _, u := range s.Units {
		if u.Active() && !u.Deployed && u.TransportedByID == 0 && u.DeployRound <= s.Round {
			return true
		}
	}
	return false
}

// moveUnit sets a unit's position and drags swarming passengers along.
func (s *Session) moveUnit(u *units.Unit, c world.Coords) {
	u.SetPosition(c)
	if sw := s.Unit(u.SwarmAttackerID); sw != nil {
		sw.SetPosition(c)
		s.queueUnit(sw)
	}
	s.queueUnit(u)
}

// removeDoomed moves units destroyed during the phase to the graveyard.
func (s *Session) removeDoomed() {
	// Carried units go down with their carrier.
	for _, u := range s.Units {
		if u.Active() {
			continue
		}
		for _, id := range u.Transports {
			if cargo := s.Unit(id); cargo != nil {
				cargo.Doomed = true
			}
		}
	}
	kept := s.Units[:0]
	var removed []*units.Unit
	for _, u := range s.Units {
		if u.Active() {
			kept = append(kept, u)
		} else {
			removed = append(removed, u)
		}
	}
	for i := len(kept); i < len(s.Units); i++ {
		s.Units[i] = nil
	}
	s.Units = kept
	for _, u := range removed {
		s.detach(u)
		u.Destroyed = true
		u.Doomed = false
		s.Graveyard = append(s.Graveyard, u)
		delete(s.index, u.ID)
		s.emit(Event{Type: EventUnitRemoved, Data: UnitRemoval{Unit: u.ID, Owner: u.Owner, Reason: "destroyed"}})
	}
	s.pruneTurns()
}

// retreat removes a live unit that left the board, along with its cargo.
func (s *Session) retreat(u *units.Unit, reason string) {
	for _, id := range append([]units.ID(nil), u.Transports...) {
		if cargo := s.Unit(id); cargo != nil {
			s.retreat(cargo, reason)
		}
	}
	s.detach(u)
	u.ClearPosition()
	for i, o := range s.Units {
		if o == u {
			s.Units = append(s.Units[:i], s.Units[i+1:]...)
			break
		}
	}
	delete(s.index, u.ID)
	s.Graveyard = append(s.Graveyard, u)
	s.emit(Event{Type: EventUnitRemoved, Data: UnitRemoval{Unit: u.ID, Owner: u.Owner, Reason: reason}})
}

// detach breaks every weak relation pointing at u.
func (s *Session) detach(u *units.Unit) {
	if t := s.Unit(u.SwarmTargetID); t != nil {
		t.SwarmAttackerID = 0
		s.queueUnit(t)
	}
	if a := s.Unit(u.SwarmAttackerID); a != nil {
		a.SwarmTargetID = 0
		s.queueUnit(a)
	}
	if carrier := s.Unit(u.TransportedByID); carrier != nil {
		carrier.Transports = removeID(carrier.Transports, u.ID)
		s.queueUnit(carrier)
	}
	for _, id := range u.Transports {
		if cargo := s.Unit(id); cargo != nil {
			cargo.TransportedByID = 0
			s.queueUnit(cargo)
		}
	}
	u.SwarmTargetID, u.SwarmAttackerID, u.TransportedByID = 0, 0, 0
	u.Transports = nil
}

func distance(a, b *units.Unit) int {
	return world.Distance(a.Pos(), b.Pos())
}

func containsID(ids []units.ID, id units.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func removeID(ids []units.ID, id units.ID) []units.ID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// startGame leaves the lounge.
func (s *Session) startGame() {
	s.Round = 0
	s.Victory = nil
	s.Forced = nil
	slog.Info("game starting", "session", s.ID, "players", len(s.Players), "units", len(s.Units))
}

// resetToLounge clears the game but keeps the players.
func (s *Session) resetToLounge() {
	s.Units = nil
	s.Graveyard = nil
	s.index = make(map[units.ID]*units.Unit)
	s.Turns = nil
	s.TurnIndex = 0
	s.Pending = nil
	s.Attacks = nil
	s.Reports = nil
	s.Order = nil
	s.Forced = nil
	s.Victory = nil
	s.Round = 0
	s.NextUnitID = 1
	for _, p := range s.Players {
		p.Ready = false
		p.Initiative = nil
	}
	slog.Info("session reset to lounge", "session", s.ID, "players", len(s.Players))
}
