package config

import (
	"fmt"
	"runtime"
)

// Tuning holds buffer and pool sizes for the session and network layers.
type Tuning struct {
	// Channel buffer sizes
	CommandBuffer    int // per lobby
	BroadcastBuffer  int // per hub
	ClientSendBuffer int // per WebSocket

	// Connection pool
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Limits
	MaxLobbies         int
	MaxClientsPerLobby int
}

// DefaultTuning returns sensible defaults for production.
func DefaultTuning() Tuning {
	numCPU := runtime.NumCPU()
	return Tuning{
		CommandBuffer:    256,
		BroadcastBuffer:  256,
		ClientSendBuffer: 64,

		DBMaxOpenConns: numCPU * 4,
		DBMaxIdleConns: numCPU * 2,

		MaxLobbies:         200,
		MaxClientsPerLobby: 50,
	}
}

// StressTuning returns aggressive settings for load runs.
func StressTuning() Tuning {
	numCPU := runtime.NumCPU()
	return Tuning{
		CommandBuffer:    2048,
		BroadcastBuffer:  512,
		ClientSendBuffer: 128,

		DBMaxOpenConns: numCPU * 8,
		DBMaxIdleConns: numCPU * 4,

		MaxLobbies:         1000,
		MaxClientsPerLobby: 200,
	}
}

// LowResourceTuning returns minimal settings for development.
func LowResourceTuning() Tuning {
	return Tuning{
		CommandBuffer:    32,
		BroadcastBuffer:  16,
		ClientSendBuffer: 8,

		DBMaxOpenConns: 5,
		DBMaxIdleConns: 2,

		MaxLobbies:         10,
		MaxClientsPerLobby: 10,
	}
}

// TuningFor maps a TUNING_PROFILE value to its settings.
func TuningFor(profile string) (Tuning, error) {
	switch profile {
	case "", "default":
		return DefaultTuning(), nil
	case "stress":
		return StressTuning(), nil
	case "low":
		return LowResourceTuning(), nil
	}
	return Tuning{}, fmt.Errorf("config: unknown tuning profile %q", profile)
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseCommandBuffer   bool
	IncreaseBroadcastBuffer bool
	IncreaseDBConnections   bool
	Notes                   []string
}

// Analyze examines a metrics snapshot (metrics.Collector.Snapshot) and returns recommendations.
func Analyze(m map[string]interface{}) Recommendations {
	rec := Recommendations{Notes: make([]string, 0)}

	if tick, ok := m["tick"].(map[string]interface{}); ok {
		if maxLat, ok := asFloat(tick["max_latency_ms"]); ok && maxLat > 100 {
			rec.IncreaseCommandBuffer = true
			rec.Notes = append(rec.Notes, "Tick latency exceeds 100ms - lobbies are falling behind their commands")
		}
	}

	if ev, ok := m["events"].(map[string]interface{}); ok {
		if maxLat, ok := asFloat(ev["max_write_lat_ms"]); ok && maxLat > 50 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write latency exceeds 50ms - increase DB connections")
		}
		if errs, ok := asFloat(ev["errors"]); ok && errs > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write errors detected - check DB connection pool")
		}
	}

	if ws, ok := m["websocket"].(map[string]interface{}); ok {
		if dropped, ok := asFloat(ws["dropped"]); ok && dropped > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "Snapshots dropped for slow clients - increase client send buffer")
		}
	}
	return rec
}

// Apply returns t adjusted by rec.
func (t Tuning) Apply(rec Recommendations) Tuning {
	if rec.IncreaseCommandBuffer {
		t.CommandBuffer *= 2
	}
	if rec.IncreaseBroadcastBuffer {
		t.BroadcastBuffer *= 2
		t.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		t.DBMaxOpenConns = int(float64(t.DBMaxOpenConns) * 1.5)
		t.DBMaxIdleConns = int(float64(t.DBMaxIdleConns) * 1.5)
	}
	return t
}

// asFloat accepts both in-process snapshots and ones decoded from JSON.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
