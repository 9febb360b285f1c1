// Command ironhex runs the tactical battle server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/ironhex/internal/api"
	"github.com/talgya/ironhex/internal/config"
	"github.com/talgya/ironhex/internal/dispatcher"
	"github.com/talgya/ironhex/internal/engine"
	"github.com/talgya/ironhex/internal/entropy"
	"github.com/talgya/ironhex/internal/logging"
	"github.com/talgya/ironhex/internal/persistence"
	"github.com/talgya/ironhex/internal/weather"
	"github.com/talgya/ironhex/internal/world"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// ── Logging ───────────────────────────────────────────────────────
	logFile, err := logging.OpenFile(cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "log file:", err)
		os.Exit(1)
	}
	var fileOut io.Writer
	if logFile != nil {
		defer logFile.Close()
		fileOut = logFile
	}
	logging.Setup(os.Stderr, fileOut, cfg.LogLevel)

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Load or Create Session ────────────────────────────────────────
	sess, err := loadLatest(db, cfg)
	if err != nil {
		slog.Error("failed to restore session", "error", err)
		os.Exit(1)
	}
	if sess == nil {
		sess, err = newSession(cfg)
		if err != nil {
			slog.Error("failed to create session", "error", err)
			os.Exit(1)
		}
		if _, err := db.Save(sess); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Dispatcher ────────────────────────────────────────────────────
	var hub *api.Hub
	disp, err := dispatcher.New(sess,
		dispatcher.Buffered(cfg.DispatcherBuffer),
		dispatcher.OnAttach(func(s *engine.Session) {
			if hub != nil {
				s.SetTransport(hub)
			}
			s.OnRound = func(round int, reports []engine.Report) {
				if err := db.ArchiveReports(s.ID, reports); err != nil {
					slog.Error("report archive failed", "round", round, "error", err)
				}
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create dispatcher", "error", err)
		os.Exit(1)
	}
	hub = api.NewHub(disp)
	sess.SetTransport(hub)

	// ── Clock ─────────────────────────────────────────────────────────
	clock := dispatcher.NewClock(cfg.Autosave)
	runCtx, stopRun := context.WithCancel(context.Background())
	clock.OnTick = func(tick uint64) {
		ctx, cancel := context.WithTimeout(runCtx, 30*time.Second)
		defer cancel()
		if _, err := disp.Do(ctx, func(s *engine.Session) (any, error) {
			return db.Save(s)
		}); err != nil {
			slog.Error("autosave failed", "tick", tick, "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("admin.key not set, admin endpoints will be disabled")
	}
	apiServer := &api.Server{
		Disp:      disp,
		Hub:       hub,
		DB:        db,
		Listen:    cfg.Listen,
		AdminKey:  cfg.AdminKey,
		Modifiers: cfg.Modifiers,
		EndWhen:   cfg.EndWhen,
	}
	apiServer.Start(runCtx)

	// ── Start ─────────────────────────────────────────────────────────
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		disp.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		clock.Run(runCtx)
	}()

	fmt.Printf("\nironhex: session %s, round %d, %s phase, %dx%d board.\n",
		sess.ID, sess.Round, sess.Phase, sess.Board.Width, sess.Board.Height)
	fmt.Printf("API: http://localhost%s/api/v1/status\n", cfg.Listen)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	<-sigCtx.Done()
	slog.Info("received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	stopRun()
	wg.Wait()

	// Final save on shutdown.
	slog.Info("final save...")
	if _, err := db.Save(disp.Session()); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Server stopped. Session saved.")
}

// loadLatest restores the most recent snapshot. It returns nil without an
// error when there is nothing to resume or the snapshot is unusable.
func loadLatest(db *persistence.DB, cfg *config.Config) (*engine.Session, error) {
	snap, err := db.Latest()
	if errors.Is(err, persistence.ErrNotFound) {
		slog.Info("no saved session found, creating a new one")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess, err := db.Load(snap.ID, cfg.Modifiers, cfg.EndWhen)
	if errors.Is(err, persistence.ErrCorruptSnapshot) {
		slog.Warn("latest snapshot is corrupt, starting fresh", "snapshot", snap.ID, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	slog.Info("session restored",
		"session", sess.ID,
		"round", sess.Round,
		"phase", sess.Phase,
		"saved", humanize.Time(snap.Time()),
		"size", humanize.Bytes(uint64(snap.Size)),
	)
	return sess, nil
}

// newSession builds the board, draws a seed and reads the wind.
func newSession(cfg *config.Config) (*engine.Session, error) {
	board, err := buildBoard(cfg)
	if err != nil {
		return nil, err
	}
	for t, c := range world.TerrainCounts(board) {
		slog.Debug("terrain", "type", t, "count", c)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = entropy.SeedFromSource(entropy.NewClient(cfg.RandomKey))
	}

	wind := cfg.Wind
	if wc := weather.NewClient(cfg.WeatherKey, cfg.WeatherLocation); wc != nil {
		if c, err := wc.Fetch(); err != nil {
			slog.Warn("weather unavailable, using configured wind", "error", err)
		} else {
			wind = weather.MapToWind(c, cfg.Wind.Shifting)
		}
	}

	sess, err := engine.NewSession(engine.Config{
		Board:     board,
		Options:   cfg.Options,
		Wind:      wind,
		Seed:      seed,
		Modifiers: cfg.Modifiers,
		EndWhen:   cfg.EndWhen,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("session created",
		"session", sess.ID,
		"board", fmt.Sprintf("%dx%d", board.Width, board.Height),
		"buildings", len(board.Buildings),
		"wind", wind,
	)
	return sess, nil
}

func buildBoard(cfg *config.Config) (*world.Board, error) {
	if cfg.Board.File == "" {
		slog.Info("generating battlefield...", "seed", cfg.Board.Seed)
		return world.Generate(cfg.GenConfig()), nil
	}
	f, err := os.Open(cfg.Board.File)
	if err != nil {
		return nil, fmt.Errorf("open board: %w", err)
	}
	defer f.Close()
	b, err := world.ParseBoard(f)
	if err != nil {
		return nil, fmt.Errorf("parse board %s: %w", cfg.Board.File, err)
	}
	return b, nil
}
