// Package api serves the game over HTTP and websockets.
// GET endpoints are public and respect double-blind visibility.
// Admin endpoints require a bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/talgya/ironhex/internal/dispatcher"
	"github.com/talgya/ironhex/internal/engine"
	"github.com/talgya/ironhex/internal/persistence"
	"github.com/talgya/ironhex/internal/rules"
	"github.com/talgya/ironhex/internal/units"
	"github.com/talgya/ironhex/internal/weather"
)

const defaultReportLimit = 100

var (
	errNotFound = errors.New("not found")
	errHidden   = errors.New("hidden during double-blind play")
	errNoDB     = errors.New("database not available")
)

// Server serves the current session.
type Server struct {
	Disp     *dispatcher.Dispatcher
	Hub      *Hub
	DB       *persistence.DB
	Listen   string
	AdminKey string // Bearer token for admin endpoints. Empty = admin disabled.

	// Rules compiled into loaded snapshots.
	Modifiers []rules.ModifierSpec
	EndWhen   string

	connectLimiter *RateLimiter
	adminLimiter   *RateLimiter
	srv            *http.Server
}

// Status summarizes the session.
type Status struct {
	Session     string                `json:"session"`
	Round       int                   `json:"round"`
	Phase       string                `json:"phase"`
	Turn        *engine.Turn          `json:"turn,omitempty"`
	Players     []*engine.Player      `json:"players"`
	Units       int                   `json:"units"`
	Destroyed   int                   `json:"destroyed"`
	Wind        weather.Wind          `json:"wind"`
	Victory     *engine.VictoryResult `json:"victory,omitempty"`
	Queue       int                   `json:"queue"`
	Connections int                   `json:"connections"`
}

// SnapshotInfo is a listed snapshot.
type SnapshotInfo struct {
	persistence.Snapshot
	Saved string `json:"saved"`
	Human string `json:"humanSize"`
}

// Handler builds the router, wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	if s.connectLimiter == nil {
		s.connectLimiter = NewRateLimiter(30, time.Minute)
	}
	if s.adminLimiter == nil {
		s.adminLimiter = NewRateLimiter(60, time.Minute)
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public endpoints.
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/board", s.handleBoard).Methods(http.MethodGet)
	api.HandleFunc("/units", s.handleUnits).Methods(http.MethodGet)
	api.HandleFunc("/units/{id:[0-9]+}", s.handleUnit).Methods(http.MethodGet)
	api.HandleFunc("/reports", s.handleReports).Methods(http.MethodGet)
	api.HandleFunc("/ws", RateLimitMiddleware(s.connectLimiter, s.Hub.HandleWebSocket))

	// Admin endpoints.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminOnly)
	admin.HandleFunc("/snapshots", s.handleSnapshots).Methods(http.MethodGet)
	admin.HandleFunc("/save", s.handleSave).Methods(http.MethodPost)
	admin.HandleFunc("/load/{id}", s.handleLoad).Methods(http.MethodPost)
	admin.HandleFunc("/skip", s.handleSkip).Methods(http.MethodPost)
	admin.HandleFunc("/victory/{player:[0-9]+}", s.handleVictory).Methods(http.MethodPost)

	// Nested subrouters lose the method mismatch on the way out, so each
	// router answers 405 itself.
	for _, rt := range []*mux.Router{r, api, admin} {
		rt.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	}

	return corsMiddleware(r)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

// Start begins serving in a goroutine. Limiter sweeps stop with ctx.
func (s *Server) Start(ctx context.Context) {
	s.srv = &http.Server{
		Addr:              s.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.connectLimiter.Sweep(ctx)
	go s.adminLimiter.Sweep(ctx)

	slog.Info("HTTP API starting", "addr", s.Listen, "admin_auth", s.AdminKey != "")
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// allowedOrigins returns the localhost dev servers plus the comma-separated
// CORS_ORIGINS list.
func allowedOrigins() map[string]bool {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowed[origin] = true
			}
		}
	}
	return allowed
}

// corsMiddleware adds CORS headers for allowed frontend origins.
func corsMiddleware(next http.Handler) http.Handler {
	allowed := allowedOrigins()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Player-Token")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires the bearer token and applies the admin rate limit.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	limited := RateLimitMiddleware(s.adminLimiter, next.ServeHTTP)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no IRONHEX_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		limited(w, r)
	})
}

// query runs fn on the dispatcher and writes its result. The result is
// encoded inside the job so no session state escapes the consumer goroutine.
func (s *Server) query(w http.ResponseWriter, r *http.Request, fn func(sess *engine.Session) (any, error)) {
	out, err := s.Disp.Do(r.Context(), func(sess *engine.Session) (any, error) {
		v, err := fn(sess)
		if err != nil {
			return nil, err
		}
		return json.MarshalIndent(v, "", "  ")
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(out.([]byte))
	w.Write([]byte("\n"))
}

func (s *Server) status(sess *engine.Session) Status {
	return Status{
		Session:     sess.ID,
		Round:       sess.Round,
		Phase:       sess.Phase.String(),
		Turn:        sess.CurrentTurn(),
		Players:     sess.Players,
		Units:       len(sess.Units),
		Destroyed:   len(sess.Graveyard),
		Wind:        sess.Wind,
		Victory:     sess.Victory,
		Queue:       s.Disp.Len(),
		Connections: s.Hub.Len(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(sess *engine.Session) (any, error) {
		return s.status(sess), nil
	})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(sess *engine.Session) (any, error) {
		return sess.Board, nil
	})
}

// viewer reads the optional ?player= parameter. Zero is a spectator.
// Anything else needs the player's token or the admin key, see authorize.
func viewer(r *http.Request) (units.PlayerID, error) {
	raw := r.URL.Query().Get("player")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, engine.ErrMalformedOrder
	}
	return units.PlayerID(n), nil
}

// authorize checks that the request may look through p's eyes. The token
// comes from the X-Player-Token header or the ?token= parameter.
func (s *Server) authorize(r *http.Request, sess *engine.Session, p units.PlayerID) error {
	if p == 0 || (s.AdminKey != "" && s.checkBearerToken(r)) {
		return nil
	}
	tok := r.Header.Get("X-Player-Token")
	if tok == "" {
		tok = r.URL.Query().Get("token")
	}
	if !tokenMatches(sess.Player(p), tok) {
		return errBadToken
	}
	return nil
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	p, err := viewer(r)
	if err != nil {
		http.Error(w, "bad player", http.StatusBadRequest)
		return
	}
	s.query(w, r, func(sess *engine.Session) (any, error) {
		if err := s.authorize(r, sess, p); err != nil {
			return nil, err
		}
		visible := make([]*units.Unit, 0, len(sess.Units))
		for _, u := range sess.Units {
			if sess.CanSee(p, u) {
				visible = append(visible, u)
			}
		}
		return visible, nil
	})
}

func (s *Server) handleUnit(w http.ResponseWriter, r *http.Request) {
	p, err := viewer(r)
	if err != nil {
		http.Error(w, "bad player", http.StatusBadRequest)
		return
	}
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	s.query(w, r, func(sess *engine.Session) (any, error) {
		if err := s.authorize(r, sess, p); err != nil {
			return nil, err
		}
		u := sess.Unit(units.ID(id))
		if u == nil || !sess.CanSee(p, u) {
			return nil, errNotFound
		}
		return u, nil
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, errNoDB)
		return
	}
	limit := defaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = min(n, 1000)
	}

	id, err := s.Disp.Do(r.Context(), func(sess *engine.Session) (any, error) {
		if sess.Options.DoubleBlind && sess.Phase != engine.PhaseVictory {
			return nil, errHidden
		}
		return sess.ID, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	reports, err := s.DB.Reports(id.(string), limit)
	if err != nil {
		slog.Error("read reports failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, reports)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, errNoDB)
		return
	}
	snaps, err := s.DB.List(50)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]SnapshotInfo, len(snaps))
	for i, sn := range snaps {
		out[i] = SnapshotInfo{Snapshot: sn, Saved: humanize.Time(sn.Time()), Human: humanize.Bytes(uint64(sn.Size))}
	}
	writeJSON(w, out)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, errNoDB)
		return
	}
	snap, err := s.Disp.Do(r.Context(), func(sess *engine.Session) (any, error) {
		return s.DB.Save(sess)
	})
	if err != nil {
		slog.Error("snapshot save failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, errNoDB)
		return
	}
	id := mux.Vars(r)["id"]
	loaded, err := s.DB.Load(id, s.Modifiers, s.EndWhen)
	if err != nil {
		slog.Warn("snapshot load failed, keeping current session", "snapshot", id, "error", err)
		writeError(w, err)
		return
	}
	if _, err := s.Disp.Swap(r.Context(), loaded); err != nil {
		writeError(w, err)
		return
	}
	s.query(w, r, func(sess *engine.Session) (any, error) {
		st := s.status(sess)
		data, err := json.Marshal(st)
		if err != nil {
			return nil, err
		}
		s.Hub.broadcast(ServerMessage{Type: MsgSession, Data: json.RawMessage(data)})
		return st, nil
	})
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(sess *engine.Session) (any, error) {
		if err := sess.SkipTurn(); err != nil {
			return nil, err
		}
		return s.status(sess), nil
	})
}

func (s *Server) handleVictory(w http.ResponseWriter, r *http.Request) {
	p, _ := strconv.Atoi(mux.Vars(r)["player"])
	s.query(w, r, func(sess *engine.Session) (any, error) {
		if err := sess.ForceVictory(units.PlayerID(p)); err != nil {
			return nil, err
		}
		return s.status(sess), nil
	})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errNotFound), errors.Is(err, persistence.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errHidden), errors.Is(err, errBadToken):
		status = http.StatusForbidden
	case errors.Is(err, persistence.ErrCorruptSnapshot):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrMalformedOrder):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrWrongPhase), errors.Is(err, engine.ErrNotYourTurn):
		status = http.StatusConflict
	case errors.Is(err, errNoDB), errors.Is(err, dispatcher.ErrStopped),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
