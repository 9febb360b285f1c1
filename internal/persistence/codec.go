package persistence

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/talgya/ironhex/internal/engine"
	"github.com/talgya/ironhex/internal/rules"
)

// ErrCorruptSnapshot is returned for payloads that do not decode into a
// consistent session.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Encode serializes the whole session. Map keys are sorted so the same state
// always yields the same bytes.
func Encode(s *engine.Session) ([]byte, error) {
	s.SyncDice()
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return buf.Bytes(), nil
}

// Decode rebuilds a session from Encode output. Lookup tables, the dice
// stream and the compiled rules are restored; a payload whose weak
// relations do not line up is rejected as corrupt.
func Decode(data []byte, mods []rules.ModifierSpec, endWhen string) (*engine.Session, error) {
	var s engine.Session
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if s.Board == nil || len(s.Board.Hexes) != s.Board.Width*s.Board.Height {
		return nil, fmt.Errorf("%w: board missing or truncated", ErrCorruptSnapshot)
	}
	for i, h := range s.Board.Hexes {
		if h == nil {
			return nil, fmt.Errorf("%w: hex %d missing", ErrCorruptSnapshot, i)
		}
	}
	if err := s.Reindex(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := s.ConfigureRules(mods, endWhen); err != nil {
		return nil, fmt.Errorf("configure rules: %w", err)
	}
	return &s, nil
}
