// Narrative reports, outbound events and the transport they leave through.
package engine

import (
	"fmt"

	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/world"
)

// Report is one narrative line, tagged with the acting unit so client logs
// are stable.
type Report struct {
	Round int      `json:"round" msgpack:"round"`
	Phase Phase    `json:"phase" msgpack:"phase"`
	Unit  units.ID `json:"unit,omitempty" msgpack:"unit"`
	Text  string   `json:"text" msgpack:"text"`
}

// Log is an append-only report buffer handed to resolvers. It is merged into
// the session once the resolution step completes.
type Log struct {
	round   int
	phase   Phase
	entries []Report
}

// NewLog creates an empty log for a round and phase.
func NewLog(round int, phase Phase) *Log {
	return &Log{round: round, phase: phase}
}

// Add appends a line for a unit. Unit 0 marks board-wide lines.
func (l *Log) Add(unit units.ID, format string, args ...any) {
	l.entries = append(l.entries, Report{
		Round: l.round,
		Phase: l.phase,
		Unit:  unit,
		Text:  fmt.Sprintf(format, args...),
	})
}

// Entries returns the lines in order.
func (l *Log) Entries() []Report {
	return l.entries
}

// Len is the number of lines.
func (l *Log) Len() int {
	return len(l.entries)
}

// Merge appends another log.
func (l *Log) Merge(o *Log) {
	l.entries = append(l.entries, o.entries...)
}

// commitLog moves a finished resolver log into the round reports.
func (s *Session) commitLog(l *Log) {
	if l.Len() == 0 {
		return
	}
	s.Reports = append(s.Reports, l.entries...)
	s.emitReports(l.entries)
}

func (s *Session) hasReports(p Phase) bool {
	for _, r := range s.Reports {
		if r.Phase == p {
			return true
		}
	}
	return false
}

// EventType names an outbound event.
type EventType string

const (
	EventPhase       EventType = "phase"
	EventTurns       EventType = "turns"
	EventTurn        EventType = "turn"
	EventUnit        EventType = "unit"
	EventUnitRemoved EventType = "unit_removed"
	EventBuildings   EventType = "buildings"
	EventHexes       EventType = "hexes"
	EventReports     EventType = "reports"
	EventRejected    EventType = "rejected"
	EventInitiative  EventType = "initiative"
	EventPlayers     EventType = "players"
	EventWind        EventType = "wind"
	EventVictory     EventType = "victory"
)

// Event is an opaque typed record for the transport.
type Event struct {
	Type  EventType `json:"type"`
	Round int       `json:"round"`
	Phase Phase     `json:"phase"`
	Data  any       `json:"data,omitempty"`
}

// Transport delivers events. Implementations must not call back into the
// session.
type Transport interface {
	Unicast(player units.PlayerID, ev Event)
	Broadcast(ev Event)
}

// PhaseChange is the payload of EventPhase.
type PhaseChange struct {
	From Phase `json:"from"`
	To   Phase `json:"to"`
}

// TurnInfo is the payload of EventTurn.
type TurnInfo struct {
	Index int  `json:"index"`
	Turn  Turn `json:"turn"`
}

// UnitRemoval is the payload of EventUnitRemoved.
type UnitRemoval struct {
	Unit   units.ID       `json:"unit"`
	Owner  units.PlayerID `json:"owner"`
	Reason string         `json:"reason"`
}

// BuildingBatch is the once-per-round building update. CF values are
// absolute, so applying a batch twice is harmless.
type BuildingBatch struct {
	CF        map[int]int `json:"cf"`
	Collapsed []int       `json:"collapsed,omitempty"`
}

// Rejection is the payload of EventRejected.
type Rejection struct {
	Reason string `json:"reason"`
}

// outbound is a queued event. A unit update is resolved at flush time so
// double-blind filtering sees the final state.
type outbound struct {
	ev     Event
	to     units.PlayerID // Unicast target when nonzero
	unit   units.ID       // Unit update, filtered by visibility
	report bool           // Reports, filtered by visibility
}

// emit queues a broadcast event stamped with the current round and phase.
func (s *Session) emit(ev Event) {
	ev.Round, ev.Phase = s.Round, s.Phase
	s.outbox = append(s.outbox, outbound{ev: ev})
}

// unicast queues an event for one player.
func (s *Session) unicast(to units.PlayerID, ev Event) {
	ev.Round, ev.Phase = s.Round, s.Phase
	s.outbox = append(s.outbox, outbound{ev: ev, to: to})
}

// queueUnit schedules a unit update. Repeated updates of one unit within a
// step collapse into one.
func (s *Session) queueUnit(u *units.Unit) {
	for _, o := range s.outbox {
		if o.unit == u.ID {
			return
		}
	}
	s.outbox = append(s.outbox, outbound{unit: u.ID, ev: Event{Type: EventUnit}})
}

func (s *Session) emitReports(entries []Report) {
	ev := Event{Type: EventReports, Round: s.Round, Phase: s.Phase, Data: entries}
	s.outbox = append(s.outbox, outbound{ev: ev, report: true})
}

func (s *Session) emitTurns() {
	s.emit(Event{Type: EventTurns, Data: s.Turns})
	if t := s.CurrentTurn(); t != nil {
		s.emit(Event{Type: EventTurn, Data: TurnInfo{Index: s.TurnIndex, Turn: *t}})
	}
}

func (s *Session) emitHexes(hexes []*world.Hex) {
	if len(hexes) == 0 {
		return
	}
	out := make([]*world.Hex, len(hexes))
	for i, h := range hexes {
		out[i] = h.Clone()
	}
	s.emit(Event{Type: EventHexes, Data: out})
}

// flush delivers queued events. It runs only after a step has completed, so
// observers never see half-applied state.
func (s *Session) flush() {
	queue := s.outbox
	s.outbox = nil
	if s.transport == nil {
		return
	}
	for _, o := range queue {
		switch {
		case o.unit != 0:
			s.sendUnit(o.unit, o.ev)
		case o.report:
			s.sendReports(o.ev)
		case o.to != 0:
			s.transport.Unicast(o.to, o.ev)
		default:
			s.transport.Broadcast(o.ev)
		}
	}
}

func (s *Session) sendUnit(id units.ID, ev Event) {
	u := s.Unit(id)
	if u == nil {
		return
	}
	ev.Round, ev.Phase = s.Round, s.Phase
	ev.Data = u
	if !s.Options.DoubleBlind {
		s.transport.Broadcast(ev)
		return
	}
	for _, p := range s.Players {
		if s.CanSee(p.ID, u) {
			s.transport.Unicast(p.ID, ev)
		}
	}
}

func (s *Session) sendReports(ev Event) {
	if !s.Options.DoubleBlind {
		s.transport.Broadcast(ev)
		return
	}
	entries, _ := ev.Data.([]Report)
	for _, p := range s.Players {
		var visible []Report
		for _, r := range entries {
			if r.Unit == 0 || s.canSeeID(p.ID, r.Unit) {
				visible = append(visible, r)
			}
		}
		if len(visible) == 0 {
			continue
		}
		pev := ev
		pev.Data = visible
		s.transport.Unicast(p.ID, pev)
	}
}
