// Command inspect prints saved sessions and archived reports from the
// server database without starting a server.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/talgya/ironhex/internal/config"
	"github.com/talgya/ironhex/internal/engine"
	"github.com/talgya/ironhex/internal/persistence"
)

func main() {
	snapID := flag.String("snapshot", "", "snapshot id to load (default: latest)")
	limit := flag.Int("limit", 10, "snapshots and reports to list")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("config", err)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		fatal("open database", err)
	}
	defer db.Close()

	snaps, err := db.List(*limit)
	if err != nil {
		fatal("list snapshots", err)
	}
	if len(snaps) == 0 {
		fmt.Println("No saved sessions in", cfg.DBPath)
		return
	}

	fmt.Printf("── Snapshots (%s) ──\n", cfg.DBPath)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSESSION\tROUND\tPHASE\tSIZE\tSAVED")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			s.ID, s.SessionID, s.Round, s.Phase, humanize.Bytes(uint64(s.Size)), humanize.Time(s.Time()))
	}
	tw.Flush()

	var snap persistence.Snapshot
	if *snapID == "" {
		snap, err = db.Latest()
	} else {
		snap, err = findSnapshot(snaps, *snapID)
	}
	if err != nil {
		fatal("snapshot", err)
	}

	sess, err := db.Load(snap.ID, cfg.Modifiers, cfg.EndWhen)
	if err != nil {
		fatal("load snapshot", err)
	}
	printSession(sess)

	reports, err := db.Reports(sess.ID, *limit)
	if err != nil {
		fatal("reports", err)
	}
	fmt.Printf("\n── Last %d reports ──\n", len(reports))
	for _, r := range reports {
		fmt.Printf("  [round %d, %s] %s\n", r.Round, r.Phase, r.Text)
	}
}

func findSnapshot(snaps []persistence.Snapshot, id string) (persistence.Snapshot, error) {
	for _, s := range snaps {
		if s.ID == id {
			return s, nil
		}
	}
	return persistence.Snapshot{}, fmt.Errorf("%s: %w", id, persistence.ErrNotFound)
}

func printSession(s *engine.Session) {
	fmt.Printf("\n── Session %s ──\n", s.ID)
	fmt.Printf("Round %d, %s phase, %dx%d board, %d buildings, wind %v\n",
		s.Round, s.Phase, s.Board.Width, s.Board.Height, len(s.Board.Buildings), s.Wind)
	if s.Victory != nil {
		fmt.Printf("Victory: %+v\n", *s.Victory)
	}

	fmt.Println("\nPlayers:")
	for _, p := range s.Players {
		state := "connected"
		if p.Ghost {
			state = "ghost"
		}
		fmt.Printf("  %d %-16s team %d  %s, %d units\n", p.ID, p.Name, p.Team, state, len(s.OwnedBy(p.ID)))
	}

	fmt.Println("\nUnits:")
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tNAME\tOWNER\tPOSITION")
	for _, u := range s.Units {
		pos := "off board"
		if u.Position != nil {
			pos = fmt.Sprintf("%v", *u.Position)
		}
		fmt.Fprintf(tw, "  %d\t%s\t%d\t%s\n", u.ID, u.Name, u.Owner, pos)
	}
	tw.Flush()
	if n := len(s.Graveyard); n > 0 {
		fmt.Printf("  %s destroyed\n", humanize.Comma(int64(n)))
	}
}

func fatal(what string, err error) {
	if errors.Is(err, persistence.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "%s: nothing saved yet\n", what)
	} else {
		fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	}
	os.Exit(1)
}
