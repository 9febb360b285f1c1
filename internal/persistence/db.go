// Package persistence stores session snapshots and archived reports in SQLite.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/ironhex/internal/engine"
	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
)

// ErrNotFound is returned when no snapshot matches.
var ErrNotFound = errors.New("snapshot not found")

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Snapshot describes a stored session without its payload.
type Snapshot struct {
	ID        string `db:"id" json:"id"`
	SessionID string `db:"session_id" json:"sessionId"`
	Round     int    `db:"round" json:"round"`
	Phase     string `db:"phase" json:"phase"`
	SavedAt   int64  `db:"saved_at" json:"savedAt"`
	Size      int    `db:"size" json:"size"`
}

// Time returns the save time.
func (s Snapshot) Time() time.Time { return time.Unix(s.SavedAt, 0).UTC() }

type reportRow struct {
	Round int    `db:"round"`
	Phase int    `db:"phase"`
	Unit  int    `db:"unit"`
	Text  string `db:"text"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		phase TEXT NOT NULL,
		saved_at INTEGER NOT NULL,
		size INTEGER NOT NULL,
		payload BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		phase INTEGER NOT NULL,
		unit INTEGER NOT NULL,
		text TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_saved ON snapshots(saved_at);
	CREATE INDEX IF NOT EXISTS idx_reports_session ON reports(session_id, round);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Save writes a full snapshot of the session and returns its descriptor.
func (db *DB) Save(s *engine.Session) (Snapshot, error) {
	payload, err := Encode(s)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		ID:        uuid.NewString(),
		SessionID: s.ID,
		Round:     s.Round,
		Phase:     s.Phase.String(),
		SavedAt:   time.Now().Unix(),
		Size:      len(payload),
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return Snapshot{}, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO snapshots (id, session_id, round, phase, saved_at, size, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.SessionID, snap.Round, snap.Phase, snap.SavedAt, snap.Size, payload,
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('latest', ?)", snap.ID); err != nil {
		return Snapshot{}, fmt.Errorf("save meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, err
	}

	slog.Info("session saved", "session", s.ID, "snapshot", snap.ID,
		"round", snap.Round, "phase", snap.Phase, "size", humanize.Bytes(uint64(snap.Size)))
	return snap, nil
}

// Load decodes the snapshot with the given id.
func (db *DB) Load(id string, mods []rules.ModifierSpec, endWhen string) (*engine.Session, error) {
	var payload []byte
	err := db.conn.Get(&payload, "SELECT payload FROM snapshots WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	s, err := Decode(payload, mods, endWhen)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return s, nil
}

// Latest returns the most recently saved snapshot's descriptor.
func (db *DB) Latest() (Snapshot, error) {
	var snap Snapshot
	err := db.conn.Get(&snap,
		`SELECT s.id, s.session_id, s.round, s.phase, s.saved_at, s.size
		FROM snapshots s JOIN meta m ON m.key = 'latest' AND m.value = s.id`)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	return snap, err
}

// List returns up to limit descriptors, newest first.
func (db *DB) List(limit int) ([]Snapshot, error) {
	var snaps []Snapshot
	err := db.conn.Select(&snaps,
		`SELECT id, session_id, round, phase, saved_at, size
		FROM snapshots ORDER BY saved_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	return snaps, err
}

// ArchiveReports appends a finished round's reports.
func (db *DB) ArchiveReports(sessionID string, reports []engine.Report) error {
	if len(reports) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range reports {
		_, err := tx.Exec(
			"INSERT INTO reports (session_id, round, phase, unit, text) VALUES (?, ?, ?, ?, ?)",
			sessionID, r.Round, int(r.Phase), int(r.Unit), r.Text,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Reports returns the latest archived reports of a session in the order
// they were written.
func (db *DB) Reports(sessionID string, limit int) ([]engine.Report, error) {
	var rows []reportRow
	err := db.conn.Select(&rows,
		`SELECT round, phase, unit, text FROM (
			SELECT id, round, phase, unit, text FROM reports
			WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Report, len(rows))
	for i, r := range rows {
		out[i] = engine.Report{Round: r.Round, Phase: engine.Phase(r.Phase), Unit: units.ID(r.Unit), Text: r.Text}
	}
	return out, nil
}
