// Package engine contains the game loop and simulation logic.
// This is the heartbeat of "Sin & Grace".
//
// An Engine owns one session: the phase machine, the roster, the alignment
// tracker, the suspicion graph, the clue engine and the behavior profiler.
// It is synchronous and not safe for concurrent use; the session package
// gives each engine a single owning goroutine that calls Tick at a fixed
// interval and applies participant commands between ticks.
//
// Every state change that matters is appended to the events.EventLog.
// Secret events (role assignment, private discoveries, card picks) are
// recorded with IsRevealed=false and never leave the server through the
// public snapshot or history endpoints.
package engine
