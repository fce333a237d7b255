// Package api exposes lobbies over HTTP: creation, commands, snapshots, history and metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/MRamiBalles/SinAndGrace/server/internal/infra/cache"
	"github.com/MRamiBalles/SinAndGrace/server/internal/infra/storage"
	"github.com/MRamiBalles/SinAndGrace/server/internal/network"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/metrics"
	"github.com/MRamiBalles/SinAndGrace/server/internal/session"
)

const requestTimeout = 5 * time.Second

// Deps wires the server. Events and Cache are optional.
type Deps struct {
	Manager *session.Manager
	Hub     *network.Hub
	Events  storage.EventRepository
	Cache   *cache.SnapshotCache
	Metrics *metrics.Collector
	Logger  *logger.Logger

	WS        network.Options
	RateLimit rate.Limit // HTTP requests per second per IP
	RateBurst int
}

// Server handles HTTP requests
type Server struct {
	router      chi.Router
	deps        Deps
	recap       *storage.Recap
	rateLimiter *RateLimiter
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Get()
	}
	if deps.RateLimit <= 0 {
		deps.RateLimit = 100
	}
	if deps.RateBurst < 1 {
		deps.RateBurst = 50
	}
	s := &Server{
		router:      chi.NewRouter(),
		deps:        deps,
		rateLimiter: NewRateLimiter(deps.RateLimit, deps.RateBurst),
	}
	if deps.Events != nil {
		s.recap = storage.NewRecap(deps.Events)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/metrics", s.deps.Metrics.Handler())
	s.router.Get("/metrics/prometheus", s.deps.Metrics.PrometheusHandler())
	if s.deps.Hub != nil {
		s.router.Get("/ws", network.ServeWS(s.deps.Hub, s.deps.Manager, s.deps.WS))
	}

	s.router.Route("/api/lobbies", func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware)
		r.Use(middleware.AllowContentType("application/json"))
		r.Use(middleware.RequestSize(1 << 20))

		r.Post("/", s.createLobby)
		r.Get("/", s.listLobbies)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getLobby)
			r.Delete("/", s.deleteLobby)
			r.Post("/commands", s.postCommand)
			r.Post("/restart", s.restartLobby)
			r.Get("/events", s.getEvents)
			r.Get("/recap", s.getRecap)
			r.Get("/participants/{pid}", s.getParticipant)
		})
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response wraps API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

// writeError writes an error response. Internal failures are not echoed.
func writeError(w http.ResponseWriter, status int, message string) {
	if status >= 500 && status != http.StatusServiceUnavailable && status != http.StatusGatewayTimeout {
		message = "Internal server error"
	}
	writeJSON(w, status, Response{Success: false, Error: message})
}

func (s *Server) lobby(w http.ResponseWriter, r *http.Request) (*session.Lobby, bool) {
	l, err := s.deps.Manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	return l, true
}

func (s *Server) createLobby(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	l, err := s.deps.Manager.Create(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	info, err := l.Info(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusCreated, info)
}

func (s *Server) listLobbies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	infos, err := s.deps.Manager.List(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, infos)
}

// getLobby serves the public snapshot, from cache when it is fresh.
func (s *Server) getLobby(w http.ResponseWriter, r *http.Request) {
	l, ok := s.lobby(w, r)
	if !ok {
		return
	}
	if s.deps.Cache != nil {
		if snap, hit := s.deps.Cache.Get(l.ID); hit {
			writeOK(w, http.StatusOK, snap)
			return
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	snap, err := l.Snapshot(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, snap)
}

func (s *Server) deleteLobby(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := s.deps.Manager.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	l, ok := s.lobby(w, r)
	if !ok {
		return
	}
	var cmd session.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if cmd.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "Missing participant_id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	v, err := l.Submit(ctx, cmd)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, v)
}

func (s *Server) restartLobby(w http.ResponseWriter, r *http.Request) {
	l, ok := s.lobby(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := l.Restart(ctx); err != nil {
		writeErr(w, err)
		return
	}
	snap, err := l.Snapshot(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, snap)
}

func (s *Server) getParticipant(w http.ResponseWriter, r *http.Request) {
	l, ok := s.lobby(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	view, err := l.PrivateState(ctx, chi.URLParam(r, "pid"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, view)
}

// getEvents replays the persisted history. Hidden events are never served.
// GET /api/lobbies/{id}/events?day=N&actor=ID&type=T
func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		writeError(w, http.StatusNotImplemented, "Event history is not persisted")
		return
	}
	q := r.URL.Query()
	filter := storage.EventFilter{
		ActorID:      q.Get("actor"),
		EventType:    q.Get("type"),
		RevealedOnly: true,
	}
	if d := q.Get("day"); d != "" {
		day, err := strconv.Atoi(d)
		if err != nil || day < 1 {
			writeError(w, http.StatusBadRequest, "Invalid day")
			return
		}
		filter.Day = day
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rows, err := s.deps.Events.GetByLobby(ctx, chi.URLParam(r, "id"), filter)
	if err != nil {
		s.deps.Logger.Err(err, "Failed to load lobby events")
		writeErr(w, err)
		return
	}
	if rows == nil {
		rows = []storage.GameEvent{}
	}
	writeOK(w, http.StatusOK, rows)
}

// getRecap summarizes what one participant could have seen.
// GET /api/lobbies/{id}/recap?participant=PID&since=N
func (s *Server) getRecap(w http.ResponseWriter, r *http.Request) {
	if s.recap == nil {
		writeError(w, http.StatusNotImplemented, "Event history is not persisted")
		return
	}
	q := r.URL.Query()
	since := 0
	if v := q.Get("since"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid since")
			return
		}
		since = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	entries, err := s.recap.Build(ctx, chi.URLParam(r, "id"), q.Get("participant"), since)
	if err != nil {
		s.deps.Logger.Err(err, "Failed to build recap")
		writeErr(w, err)
		return
	}
	if entries == nil {
		entries = []storage.RecapEntry{}
	}
	writeOK(w, http.StatusOK, entries)
}
