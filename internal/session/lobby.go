package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
	"github.com/MRamiBalles/SinAndGrace/server/internal/infra/storage"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
)

// Lobby owns one engine. Every read and write of the engine happens on the lobby goroutine.
type Lobby struct {
	ID        string
	Mode      engine.Mode
	CreatedAt time.Time

	eng      *engine.Engine
	eventLog *events.EventLog
	world    *World
	deps     Deps
	settings Settings
	logger   *logger.Logger

	requests  chan request
	done      chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once

	// Loop-owned
	lastPhase engine.Phase
	finished  bool
}

type request struct {
	fn    func(*engine.Engine) (interface{}, error)
	reply chan response
}

type response struct {
	value interface{}
	err   error
}

// Info is a lobby header for listings.
type Info struct {
	ID           string      `json:"id"`
	Mode         engine.Mode `json:"mode"`
	Phase        string      `json:"phase"`
	DayCount     int         `json:"day_count"`
	Participants int         `json:"participants"`
	CreatedAt    time.Time   `json:"created_at"`
}

func (l *Lobby) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel
	l.lastPhase = l.eng.Phase()
	go l.run(ctx)
}

// run is the lobby loop: commands and ticks are serialized here.
func (l *Lobby) run(ctx context.Context) {
	defer close(l.done)

	ticker := time.NewTicker(l.settings.TickInterval)
	defer ticker.Stop()

	l.logger.Info("Lobby loop started")
	l.persistSnapshot()

	for {
		select {
		case <-ctx.Done():
			l.persistSnapshot()
			l.logger.Info("Lobby loop stopped")
			return
		case req := <-l.requests:
			v, err := req.fn(l.eng)
			req.reply <- response{value: v, err: err}
			l.afterChange()
		case <-ticker.C:
			l.tick()
		}
	}
}

func (l *Lobby) tick() {
	start := time.Now()
	l.eng.Tick(l.settings.TickInterval.Seconds())
	l.deps.Metrics.RecordTick(time.Since(start))

	if l.eng.Ticks()%int64(l.settings.BroadcastEvery) == 0 {
		l.publish()
	}
	l.afterChange()
}

// afterChange publishes and persists on every phase change.
func (l *Lobby) afterChange() {
	phase := l.eng.Phase()
	if phase == l.lastPhase {
		return
	}
	l.lastPhase = phase
	l.publish()
	l.persistSnapshot()

	if engine.IsTerminal(phase) && !l.finished {
		l.finished = true
		l.deps.Metrics.RecordGameFinished()
		if out, ok := l.eng.Outcome(); ok {
			l.logger.Info(fmt.Sprintf("Game over: %s (%s) on day %d", out.Winner, out.Reason, out.Day))
		}
	} else if !engine.IsTerminal(phase) {
		l.finished = false
	}
}

func (l *Lobby) publish() {
	snap := l.eng.Snapshot(l.settings.LogTail)
	if l.deps.Cache != nil {
		l.deps.Cache.Put(l.ID, snap)
	}
	if l.deps.Broadcaster != nil {
		l.deps.Broadcaster.Broadcast(l.ID, snap)
	}
}

func (l *Lobby) persistSnapshot() {
	if l.deps.Snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.settings.PersistTimeout)
	defer cancel()

	rec := storage.LobbyRecord{
		LobbyID:  l.ID,
		Mode:     string(l.Mode),
		Phase:    string(l.eng.Phase()),
		DayCount: l.eng.DayCount(),
	}
	if out, ok := l.eng.Outcome(); ok {
		rec.Winner = string(out.Winner)
	}
	if err := l.deps.Snapshots.UpsertLobby(ctx, rec); err != nil {
		l.logger.Err(err, "Failed to persist lobby header")
		return
	}
	for _, p := range l.eng.Participants() {
		err := l.deps.Snapshots.Upsert(ctx, storage.ParticipantSnapshot{
			ParticipantID: p.ID,
			LobbyID:       l.ID,
			Name:          p.Name,
			CharacterID:   p.CharacterID,
			Role:          string(p.Role),
			Alive:         p.Alive,
			HP:            p.HP,
			Suspicion:     p.Alignment.Suspicion,
			NPCTrust:      p.Alignment.NPCTrust,
		})
		if err != nil {
			l.logger.Err(err, "Failed to persist participant snapshot "+p.ID)
			return
		}
	}
}

// Do runs fn on the lobby goroutine and waits for its result.
func (l *Lobby) Do(ctx context.Context, fn func(*engine.Engine) (interface{}, error)) (interface{}, error) {
	req := request{fn: fn, reply: make(chan response, 1)}
	select {
	case l.requests <- req:
	case <-l.done:
		return nil, ErrLobbyClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.value, res.err
	case <-l.done:
		return nil, ErrLobbyClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Submit applies a participant command.
func (l *Lobby) Submit(ctx context.Context, cmd Command) (interface{}, error) {
	v, err := l.Do(ctx, func(e *engine.Engine) (interface{}, error) {
		return Apply(e, cmd)
	})
	l.deps.Metrics.RecordCommand(err)
	if err != nil {
		l.logger.Debug(fmt.Sprintf("Command %s from %s rejected: %v", cmd.Type, cmd.ParticipantID, err))
	}
	return v, err
}

// Snapshot returns the current public state and refreshes the cache.
func (l *Lobby) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	v, err := l.Do(ctx, func(e *engine.Engine) (interface{}, error) {
		return e.Snapshot(l.settings.LogTail), nil
	})
	if err != nil {
		return engine.Snapshot{}, err
	}
	snap := v.(engine.Snapshot)
	if l.deps.Cache != nil {
		l.deps.Cache.Put(l.ID, snap)
	}
	return snap, nil
}

// PrivateState returns one participant's own view.
func (l *Lobby) PrivateState(ctx context.Context, participantID string) (engine.PrivateView, error) {
	v, err := l.Do(ctx, func(e *engine.Engine) (interface{}, error) {
		return e.PrivateState(participantID)
	})
	if err != nil {
		return engine.PrivateView{}, err
	}
	return v.(engine.PrivateView), nil
}

// Restart resets the game with the same participants.
func (l *Lobby) Restart(ctx context.Context) error {
	_, err := l.Do(ctx, func(e *engine.Engine) (interface{}, error) {
		e.Restart()
		l.world.Reset()
		return nil, nil
	})
	if err != nil {
		return err
	}
	if l.deps.Cache != nil {
		l.deps.Cache.Invalidate(l.ID)
	}
	l.logger.Info("Lobby restarted")
	return nil
}

// Info returns the lobby header.
func (l *Lobby) Info(ctx context.Context) (Info, error) {
	v, err := l.Do(ctx, func(e *engine.Engine) (interface{}, error) {
		return Info{
			ID:           l.ID,
			Mode:         l.Mode,
			Phase:        string(e.Phase()),
			DayCount:     e.DayCount(),
			Participants: len(e.Participants()),
			CreatedAt:    l.CreatedAt,
		}, nil
	})
	if err != nil {
		return Info{}, err
	}
	return v.(Info), nil
}

// Close stops the loop and flushes pending event writes.
func (l *Lobby) Close() {
	l.closeOnce.Do(func() {
		l.cancel()
		<-l.done
		l.eventLog.Close()
	})
}

// Done is closed when the lobby loop has exited.
func (l *Lobby) Done() <-chan struct{} {
	return l.done
}
