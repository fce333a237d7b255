// Package metrics provides observability for the game server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and gameplay counters.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Lobby metrics
	LobbiesActive  int64
	LobbiesCreated int64
	GamesFinished  int64
	Commands       int64
	CommandErrors  int64

	// Gameplay
	Accusations    int64
	CluesGenerated int64
	Reveals        int64

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64
	WSDropped           int64
	WSRateLimited       int64

	// CacheStats reports snapshot cache hits and misses when set.
	CacheStats func() (hits, misses int64)

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = New()

// New creates an empty collector. Most code uses Get; tests use their own.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordLobby records lobby creation (+1) and removal (-1).
func (c *Collector) RecordLobby(delta int64) {
	atomic.AddInt64(&c.LobbiesActive, delta)
	if delta > 0 {
		atomic.AddInt64(&c.LobbiesCreated, delta)
	}
}

func (c *Collector) RecordGameFinished() {
	atomic.AddInt64(&c.GamesFinished, 1)
}

// RecordCommand records a participant command and whether the engine rejected it.
func (c *Collector) RecordCommand(err error) {
	atomic.AddInt64(&c.Commands, 1)
	if err != nil {
		atomic.AddInt64(&c.CommandErrors, 1)
	}
}

// RecordGameEvent counts gameplay events by type name.
func (c *Collector) RecordGameEvent(eventType string) {
	switch eventType {
	case "ACCUSATION":
		atomic.AddInt64(&c.Accusations, 1)
	case "CLUE_GENERATED":
		atomic.AddInt64(&c.CluesGenerated, 1)
	case "ROLE_REVEALED":
		atomic.AddInt64(&c.Reveals, 1)
	}
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordWSDropped records a message dropped because a client's send buffer was full.
func (c *Collector) RecordWSDropped() {
	atomic.AddInt64(&c.WSDropped, 1)
}

func (c *Collector) RecordWSRateLimited() {
	atomic.AddInt64(&c.WSRateLimited, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	// Calculate averages
	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	var hits, misses int64
	if c.CacheStats != nil {
		hits, misses = c.CacheStats()
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"lobbies": map[string]interface{}{
			"active":         atomic.LoadInt64(&c.LobbiesActive),
			"created":        atomic.LoadInt64(&c.LobbiesCreated),
			"games_finished": atomic.LoadInt64(&c.GamesFinished),
			"commands":       atomic.LoadInt64(&c.Commands),
			"command_errors": atomic.LoadInt64(&c.CommandErrors),
		},

		"gameplay": map[string]interface{}{
			"accusations":     atomic.LoadInt64(&c.Accusations),
			"clues_generated": atomic.LoadInt64(&c.CluesGenerated),
			"reveals":         atomic.LoadInt64(&c.Reveals),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
			"dropped":            atomic.LoadInt64(&c.WSDropped),
			"rate_limited":       atomic.LoadInt64(&c.WSRateLimited),
		},

		"cache": map[string]interface{}{
			"hits":   hits,
			"misses": misses,
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Tick metrics
		counter(w, "sinandgrace_tick_count", "Total tick cycles", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP sinandgrace_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE sinandgrace_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "sinandgrace_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// Lobbies
		gauge(w, "sinandgrace_lobbies_active", "Running lobbies", atomic.LoadInt64(&c.LobbiesActive))
		counter(w, "sinandgrace_games_finished", "Games that reached a terminal phase", atomic.LoadInt64(&c.GamesFinished))
		counter(w, "sinandgrace_command_errors", "Commands rejected by the engine", atomic.LoadInt64(&c.CommandErrors))

		// Gameplay
		counter(w, "sinandgrace_accusations", "Accusations submitted", atomic.LoadInt64(&c.Accusations))
		counter(w, "sinandgrace_clues_generated", "Clues generated", atomic.LoadInt64(&c.CluesGenerated))

		// Event metrics
		counter(w, "sinandgrace_events_written", "Total events written", atomic.LoadInt64(&c.EventsWritten))
		counter(w, "sinandgrace_event_write_errors", "Total event write errors", atomic.LoadInt64(&c.EventWriteErrors))

		// WebSocket metrics
		gauge(w, "sinandgrace_ws_connections", "Active WebSocket connections", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP sinandgrace_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE sinandgrace_ws_messages_total counter\n")
		fmt.Fprintf(w, "sinandgrace_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "sinandgrace_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		counter(w, "sinandgrace_ws_dropped", "Messages dropped for slow clients", atomic.LoadInt64(&c.WSDropped))
	}
}

func counter(w http.ResponseWriter, name, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
}

func gauge(w http.ResponseWriter, name, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n\n", name, help, name, name, v)
}
