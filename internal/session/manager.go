// Package session runs lobbies. Each lobby is one goroutine that owns one engine,
// drives its Tick at a fixed interval and serializes participant commands.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/catalog"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
	"github.com/MRamiBalles/SinAndGrace/server/internal/infra/cache"
	"github.com/MRamiBalles/SinAndGrace/server/internal/infra/storage"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/metrics"
)

const (
	MinParticipants = 3
	MaxParticipants = 5
)

var (
	ErrLobbyNotFound  = errors.New("lobby not found")
	ErrLobbyClosed    = errors.New("lobby closed")
	ErrTooManyLobbies = errors.New("lobby limit reached")
	ErrInvalidLobby   = errors.New("invalid lobby request")
)

// Broadcaster receives every published snapshot. The WebSocket hub implements it.
type Broadcaster interface {
	Broadcast(lobbyID string, snap engine.Snapshot)
}

// Deps are the collaborators shared by every lobby. Only Rules is required.
type Deps struct {
	Rules       engine.Rules
	Catalog     *catalog.Catalog
	Events      storage.EventRepository
	Snapshots   storage.SnapshotRepository
	Cache       *cache.SnapshotCache
	Metrics     *metrics.Collector
	Logger      *logger.Logger
	Broadcaster Broadcaster
}

// Settings tune the lobby loops.
type Settings struct {
	TickInterval   time.Duration
	BroadcastEvery int
	CommandBuffer  int
	MaxLobbies     int
	LogTail        int
	PersistTimeout time.Duration
}

// DefaultSettings matches the server's environment defaults.
func DefaultSettings() Settings {
	return Settings{
		TickInterval:   time.Second,
		BroadcastEvery: 5,
		CommandBuffer:  256,
		MaxLobbies:     200,
		LogTail:        20,
		PersistTimeout: 5 * time.Second,
	}
}

// Seat describes one seat in a new lobby.
type Seat struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CharacterID string `json:"character_id"`
	Controlled  bool   `json:"controlled"`
}

// CreateRequest is the body of a lobby creation.
type CreateRequest struct {
	Mode         string `json:"mode"`
	Seed         *int64 `json:"seed,omitempty"`
	Participants []Seat `json:"participants"`
}

// Validate checks the mode and seat list.
func (r CreateRequest) Validate() error {
	if r.Mode != "" && r.Mode != string(engine.ModeStandard) && r.Mode != string(engine.ModeSwarm) {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidLobby, r.Mode)
	}
	if n := len(r.Participants); n < MinParticipants || n > MaxParticipants {
		return fmt.Errorf("%w: need %d to %d participants, got %d", ErrInvalidLobby, MinParticipants, MaxParticipants, n)
	}
	seen := make(map[string]bool, len(r.Participants))
	for _, p := range r.Participants {
		if p.ID == "" {
			return fmt.Errorf("%w: participant without id", ErrInvalidLobby)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate participant %q", ErrInvalidLobby, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// Manager creates, finds and stops lobbies.
type Manager struct {
	mu       sync.RWMutex
	lobbies  map[string]*Lobby
	deps     Deps
	settings Settings
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewManager creates a manager. Lobbies it starts live until Delete or Shutdown.
func NewManager(deps Deps, settings Settings) *Manager {
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	def := DefaultSettings()
	if settings.TickInterval <= 0 {
		settings.TickInterval = def.TickInterval
	}
	if settings.BroadcastEvery < 1 {
		settings.BroadcastEvery = def.BroadcastEvery
	}
	if settings.CommandBuffer < 1 {
		settings.CommandBuffer = def.CommandBuffer
	}
	if settings.MaxLobbies < 1 {
		settings.MaxLobbies = def.MaxLobbies
	}
	if settings.LogTail < 1 {
		settings.LogTail = def.LogTail
	}
	if settings.PersistTimeout <= 0 {
		settings.PersistTimeout = def.PersistTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		lobbies:  make(map[string]*Lobby),
		deps:     deps,
		settings: settings,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Create validates req, builds an engine with its participants and starts the lobby loop.
func (m *Manager) Create(req CreateRequest) (*Lobby, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.lobbies) >= m.settings.MaxLobbies {
		return nil, ErrTooManyLobbies
	}

	id := uuid.NewString()
	log := m.deps.Logger.With("lobby", id)

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	mode := engine.ParseMode(req.Mode)
	world := NewWorld(len(req.Participants), seed+1)

	var sink events.EventPersister = &observedSink{metrics: m.deps.Metrics}
	if m.deps.Events != nil {
		sink = &observedSink{next: storage.NewEventSink(m.deps.Events, id), metrics: m.deps.Metrics}
	}
	el := events.NewEventLog(sink)
	el.OnPersistError(func(e events.GameEvent, err error) {
		log.Err(err, "Failed to persist event "+string(e.Type))
	})

	eng, err := engine.New(m.deps.Rules, m.deps.Catalog,
		engine.WithSeed(seed),
		engine.WithMode(mode),
		engine.WithEventLog(el),
		engine.WithLogger(log),
		engine.WithWorldEvents(world),
		engine.WithMonsterSpawner(world),
	)
	if err != nil {
		el.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}
	for _, seat := range req.Participants {
		name := seat.Name
		if name == "" {
			name = seat.ID
		}
		p := participant.NewParticipant(seat.ID, name, seat.CharacterID)
		p.Controlled = seat.Controlled
		if err := eng.AddParticipant(p); err != nil {
			el.Close()
			return nil, fmt.Errorf("add participant %s: %w", seat.ID, err)
		}
	}

	l := &Lobby{
		ID:        id,
		Mode:      mode,
		CreatedAt: time.Now(),
		eng:       eng,
		eventLog:  el,
		world:     world,
		deps:      m.deps,
		settings:  m.settings,
		logger:    log,
		requests:  make(chan request, m.settings.CommandBuffer),
		done:      make(chan struct{}),
	}
	m.lobbies[id] = l
	l.start(m.ctx)
	m.deps.Metrics.RecordLobby(1)

	log.Info(fmt.Sprintf("Lobby created in %s mode with %d participants", mode, len(req.Participants)))
	return l, nil
}

// Get finds a running lobby.
func (m *Manager) Get(id string) (*Lobby, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lobbies[id]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	return l, nil
}

// List returns the headers of every running lobby, oldest first.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	m.mu.RLock()
	lobbies := make([]*Lobby, 0, len(m.lobbies))
	for _, l := range m.lobbies {
		lobbies = append(lobbies, l)
	}
	m.mu.RUnlock()

	out := make([]Info, 0, len(lobbies))
	for _, l := range lobbies {
		info, err := l.Info(ctx)
		if errors.Is(err, ErrLobbyClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Delete stops a lobby and drops its persisted history and cached snapshot.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	l, ok := m.lobbies[id]
	if ok {
		delete(m.lobbies, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrLobbyNotFound
	}

	l.Close()
	m.deps.Metrics.RecordLobby(-1)
	if m.deps.Cache != nil {
		m.deps.Cache.Invalidate(id)
	}
	if m.deps.Events != nil {
		if err := m.deps.Events.DeleteLobby(ctx, id); err != nil {
			return fmt.Errorf("delete lobby history: %w", err)
		}
	}
	m.deps.Logger.Info("Lobby deleted: " + id)
	return nil
}

// Shutdown stops every lobby. Their histories stay persisted.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	lobbies := m.lobbies
	m.lobbies = make(map[string]*Lobby)
	m.mu.Unlock()

	m.cancel()
	for _, l := range lobbies {
		l.Close()
		m.deps.Metrics.RecordLobby(-1)
	}
	m.deps.Logger.Info(fmt.Sprintf("Session manager stopped %d lobbies", len(lobbies)))
}

// observedSink counts gameplay events and times writes to next, if any.
type observedSink struct {
	next    events.EventPersister
	metrics *metrics.Collector
}

func (s *observedSink) Append(e events.GameEvent) error {
	s.metrics.RecordGameEvent(string(e.Type))
	if s.next == nil {
		return nil
	}
	start := time.Now()
	err := s.next.Append(e)
	s.metrics.RecordEventWrite(time.Since(start), err)
	return err
}
