// Turn sequencing: initiative, turn order generation and turn bookkeeping.
package engine

import (
	"log/slog"
	"slices"
	"sort"

	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
)

// TurnKind constrains which units may act on a turn.
type TurnKind uint8

const (
	TurnAny TurnKind = iota
	TurnNonInfantry
	TurnInfantryOnly
	TurnSpecificUnit
)

var turnKindNames = [...]string{"any", "non-infantry", "infantry only", "specific unit"}

func (k TurnKind) String() string {
	if int(k) < len(turnKindNames) {
		return turnKindNames[k]
	}
	return "unknown"
}

// Turn is one queued obligation for a player.
type Turn struct {
	Kind   TurnKind       `json:"kind" msgpack:"kind"`
	Player units.PlayerID `json:"player" msgpack:"player"`
	Unit   units.ID       `json:"unit,omitempty" msgpack:"unit"`   // TurnSpecificUnit only
	Multi  bool           `json:"multi,omitempty" msgpack:"multi"` // Inserted by infantry multi-move
}

// Allows reports whether the unit may act on this turn.
func (t Turn) Allows(u *units.Unit) bool {
	if u.Owner != t.Player {
		return false
	}
	switch t.Kind {
	case TurnNonInfantry:
		return !u.IsInfantry()
	case TurnInfantryOnly:
		return u.IsInfantry()
	case TurnSpecificUnit:
		return u.ID == t.Unit
	}
	return true
}

// InitiativeEntry is one player's place in the round order. Lower rolls act
// first.
type InitiativeEntry struct {
	Player    units.PlayerID `json:"player" msgpack:"player"`
	Team      int            `json:"team" msgpack:"team"`
	Rolls     []int          `json:"rolls" msgpack:"rolls"`
	TeamRolls []int          `json:"team_rolls,omitempty" msgpack:"team_rolls"`
}

// maxRerolls bounds initiative tie breaking. Groups still tied afterwards
// keep their ID order.
const maxRerolls = 16

// CurrentTurn returns the turn being played, or nil.
func (s *Session) CurrentTurn() *Turn {
	if !s.Phase.HasTurns() || s.TurnIndex >= len(s.Turns) {
		return nil
	}
	return &s.Turns[s.TurnIndex]
}

// rollOff rolls 2d6 for n entries and rerolls tied entries, appending to
// their lists, until every list differs.
func (s *Session) rollOff(n int) [][]int {
	rolls := make([][]int, n)
	for i := range rolls {
		rolls[i] = []int{s.roll2d6()}
	}
	for i := 0; i < maxRerolls; i++ {
		tied := tiedEntries(rolls)
		if len(tied) == 0 {
			break
		}
		for _, j := range tied {
			rolls[j] = append(rolls[j], s.roll2d6())
		}
	}
	return rolls
}

func tiedEntries(rolls [][]int) []int {
	var out []int
	for i := range rolls {
		for j := range rolls {
			if i != j && slices.Equal(rolls[i], rolls[j]) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// rankedByRolls returns indexes sorted by ascending roll lists.
func rankedByRolls(rolls [][]int) []int {
	idx := make([]int, len(rolls))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return slices.Compare(rolls[idx[a]], rolls[idx[b]]) < 0
	})
	return idx
}

type initiativeGroup struct {
	team    int
	players []*Player
}

// rollInitiative orders the players for the round. With team initiative each
// team rolls as one group and its members roll again among themselves;
// otherwise every player is a group of one.
func (s *Session) rollInitiative() {
	var groups []*initiativeGroup
	byTeam := make(map[int]*initiativeGroup)
	for _, p := range s.Players {
		p.Initiative = nil
		if p.Observer {
			continue
		}
		if s.Options.TeamInitiative && p.Team != 0 {
			g := byTeam[p.Team]
			if g == nil {
				g = &initiativeGroup{team: p.Team}
				byTeam[p.Team] = g
				groups = append(groups, g)
			}
			g.players = append(g.players, p)
			continue
		}
		groups = append(groups, &initiativeGroup{team: p.Team, players: []*Player{p}})
	}

	s.Order = s.Order[:0]
	groupRolls := s.rollOff(len(groups))
	for _, gi := range rankedByRolls(groupRolls) {
		g := groups[gi]
		if len(g.players) == 1 {
			p := g.players[0]
			p.Initiative = groupRolls[gi]
			s.Order = append(s.Order, InitiativeEntry{Player: p.ID, Team: g.team, Rolls: p.Initiative})
			continue
		}
		playerRolls := s.rollOff(len(g.players))
		for _, pi := range rankedByRolls(playerRolls) {
			p := g.players[pi]
			p.Initiative = playerRolls[pi]
			s.Order = append(s.Order, InitiativeEntry{
				Player:    p.ID,
				Team:      g.team,
				Rolls:     p.Initiative,
				TeamRolls: groupRolls[gi],
			})
		}
	}
	slog.Debug("initiative rolled", "round", s.Round, "order", len(s.Order))
}

// orderedPlayers returns non-observer players in initiative order, falling
// back to ID order before the first roll.
func (s *Session) orderedPlayers() []*Player {
	var out []*Player
	if len(s.Order) > 0 {
		for _, e := range s.Order {
			if p := s.Player(e.Player); p != nil {
				out = append(out, p)
			}
		}
		return out
	}
	for _, p := range s.Players {
		if !p.Observer {
			out = append(out, p)
		}
	}
	return out
}

// interleave spreads turns across groups in proportion to what each still
// has to move: every pass, each group takes remaining/least turns, where
// least is the smallest nonzero remainder.
func interleave(counts []int) []int {
	remaining := slices.Clone(counts)
	var seq []int
	for {
		least := 0
		for _, r := range remaining {
			if r > 0 && (least == 0 || r < least) {
				least = r
			}
		}
		if least == 0 {
			return seq
		}
		for i, r := range remaining {
			if r == 0 {
				continue
			}
			n := r / least
			for k := 0; k < n; k++ {
				seq = append(seq, i)
			}
			remaining[i] -= n
		}
	}
}

// eligible reports whether a unit owes a turn in the phase.
func (s *Session) eligible(u *units.Unit, p Phase) bool {
	if !u.Active() {
		return false
	}
	switch p {
	case PhaseDeployment:
		return !u.Deployed && u.TransportedByID == 0 && u.DeployRound <= s.Round
	case PhaseMovement:
		return u.Deployed && u.OnBoard() && u.CanAct() && !u.Immobile
	case PhaseFiring:
		return u.Deployed && u.OnBoard() && !u.Shutdown && !u.Unconscious &&
			u.TransportedByID == 0 && u.Crits.CrewStunned == 0 && hasUsableWeapon(u)
	case PhasePhysical:
		if u.Kind != units.Mech || !u.OnBoard() || !u.CanAct() || s.chargedThisRound(u.ID) {
			return false
		}
		if !s.Options.SkipIneligiblePhysical {
			return true
		}
		return u.SwarmAttackerID != 0 || s.hasAdjacentEnemy(u)
	}
	return false
}

func hasUsableWeapon(u *units.Unit) bool {
	for i := range u.Equipment {
		m := &u.Equipment[i]
		if m.Type != units.EquipWeapon || !m.Usable() || m.FiredThisRound {
			continue
		}
		if int(m.Location) < len(u.Locations) && u.Locations[m.Location].Destroyed && !u.IsInfantry() {
			continue
		}
		spec, ok := m.Spec()
		if !ok {
			continue
		}
		if spec.AmmoType == "" || u.AmmoFor(m, -1) != nil {
			return true
		}
	}
	return false
}

func (s *Session) hasAdjacentEnemy(u *units.Unit) bool {
	for _, o := range s.Units {
		if o.OnBoard() && o.Active() && o.TransportedByID == 0 && s.Enemies(u.Owner, o.Owner) &&
			distance(u, o) <= 1 {
			return true
		}
	}
	return false
}

func (s *Session) chargedThisRound(id units.ID) bool {
	for _, a := range s.Attacks {
		if a.Attacker == id && (a.Kind == AttackCharge || a.Kind == AttackDFA) {
			return true
		}
	}
	return false
}

// generateTurns builds the phase queue. It uses no dice, so running it twice
// on the same state gives the same queue.
func (s *Session) generateTurns(p Phase) []Turn {
	players := s.orderedPlayers()
	later := p == PhaseMovement && s.Options.InfantryMoveLater

	var main, deferred []int
	for _, pl := range players {
		var normal, inf int
		for _, u := range s.Units {
			if u.Owner != pl.ID || !s.eligible(u, p) {
				continue
			}
			if later && u.IsInfantry() {
				inf++
			} else {
				normal++
			}
		}
		main = append(main, normal)
		deferred = append(deferred, inf)
	}

	mainKind := TurnAny
	if later {
		mainKind = TurnNonInfantry
	}
	var turns []Turn
	for _, i := range interleave(main) {
		turns = append(turns, Turn{Kind: mainKind, Player: players[i].ID})
	}
	for _, i := range interleave(deferred) {
		turns = append(turns, Turn{Kind: TurnInfantryOnly, Player: players[i].ID})
	}
	return turns
}

// advanceTurn consumes the current turn. The acting unit, if any, is done for
// the phase. An exhausted queue ends the phase.
func (s *Session) advanceTurn(actor *units.Unit) {
	if actor != nil {
		actor.Done = true
		s.queueUnit(actor)
	}
	s.TurnIndex++
	s.pruneTurns()
	if s.TurnIndex >= len(s.Turns) {
		s.endPhase()
		return
	}
	s.emitTurns()
}

// insertTurn places a turn right after the current one.
func (s *Session) insertTurn(t Turn) {
	at := min(s.TurnIndex+1, len(s.Turns))
	s.Turns = slices.Insert(s.Turns, at, t)
}

// grantExtraTurn lets a unit that fell finish its movement.
func (s *Session) grantExtraTurn(u *units.Unit) {
	s.insertTurn(Turn{Kind: TurnSpecificUnit, Player: u.Owner, Unit: u.ID})
	slog.Debug("extra turn granted", "unit", u.ID, "round", s.Round)
}

// grantMultiMove follows an infantry move with up to MultiMoveGroup-1 more
// infantry turns for the same player. The same number of that player's later
// infantry turns is dropped, so the total stays one turn per unit.
func (s *Session) grantMultiMove(u *units.Unit) {
	if !s.Options.InfantryMoveMulti || s.Phase != PhaseMovement || !u.IsInfantry() {
		return
	}
	if t := s.CurrentTurn(); t == nil || t.Multi {
		return
	}
	waiting := 0
	for _, o := range s.Units {
		if o != u && o.Owner == u.Owner && o.IsInfantry() && !o.Done && s.eligible(o, s.Phase) {
			waiting++
		}
	}
	extra := min(rules.MultiMoveGroup-1, waiting)
	if extra == 0 {
		return
	}
	removed := 0
	for _, kind := range []TurnKind{TurnInfantryOnly, TurnAny} {
		for i := len(s.Turns) - 1; i > s.TurnIndex && removed < extra; i-- {
			t := s.Turns[i]
			if t.Player == u.Owner && t.Kind == kind && !t.Multi {
				s.Turns = slices.Delete(s.Turns, i, i+1)
				removed++
			}
		}
	}
	for i := 0; i < removed; i++ {
		s.insertTurn(Turn{Kind: TurnInfantryOnly, Player: u.Owner, Multi: true})
	}
}

// pruneTurns drops queued turns no unit can take any more, such as turns of
// a player whose last eligible unit was destroyed. Turns before TurnIndex
// are history and stay untouched.
func (s *Session) pruneTurns() {
	if !s.Phase.HasTurns() || s.TurnIndex >= len(s.Turns) {
		return
	}
	type pool struct{ normal, inf int }
	avail := make(map[units.PlayerID]*pool)
	for _, u := range s.Units {
		if u.Done || !s.eligible(u, s.Phase) {
			continue
		}
		p := avail[u.Owner]
		if p == nil {
			p = &pool{}
			avail[u.Owner] = p
		}
		if u.IsInfantry() {
			p.inf++
		} else {
			p.normal++
		}
	}

	keep := make([]bool, len(s.Turns))
	claim := func(i int) {
		t := s.Turns[i]
		p := avail[t.Player]
		switch t.Kind {
		case TurnSpecificUnit:
			u := s.Unit(t.Unit)
			keep[i] = u != nil && u.CanAct() && u.OnBoard()
		case TurnNonInfantry:
			if p != nil && p.normal > 0 {
				p.normal--
				keep[i] = true
			}
		case TurnInfantryOnly:
			if p != nil && p.inf > 0 {
				p.inf--
				keep[i] = true
			}
		case TurnAny:
			switch {
			case p == nil:
			case p.normal > 0:
				p.normal--
				keep[i] = true
			case p.inf > 0:
				p.inf--
				keep[i] = true
			}
		}
	}
	// Constrained turns claim units before unconstrained ones.
	for i := s.TurnIndex; i < len(s.Turns); i++ {
		if s.Turns[i].Kind != TurnAny {
			claim(i)
		}
	}
	for i := s.TurnIndex; i < len(s.Turns); i++ {
		if s.Turns[i].Kind == TurnAny {
			claim(i)
		}
	}

	out := s.Turns[:s.TurnIndex]
	dropped := 0
	for i := s.TurnIndex; i < len(s.Turns); i++ {
		if keep[i] {
			out = append(out, s.Turns[i])
		} else {
			dropped++
		}
	}
	s.Turns = out
	if dropped > 0 {
		slog.Debug("turns pruned", "phase", s.Phase, "dropped", dropped)
	}
}
