// Package main - agitator
// Load generator for stress testing: opens lobbies, seats one WebSocket client per
// participant and spams commands, then reads /metrics and prints tuning advice.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/config"
	"github.com/MRamiBalles/SinAndGrace/server/internal/session"
)

// Config for the agitator
type Config struct {
	BaseURL        string
	NumLobbies     int
	Seats          int
	Mode           string
	ActionInterval time.Duration
	TestDuration   time.Duration
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

var commandTypes = []session.CommandType{
	session.CmdMove,
	session.CmdSpeak,
	session.CmdReact,
	session.CmdBehavior,
	session.CmdAccuse,
	session.CmdState,
}

var lines = []string{
	"Where were you when the bell rang?",
	"I saw a light in the chapel.",
	"The miller is lying.",
	"Nobody leaves until dawn.",
}

var behaviors = []string{"sneaking", "lying", "investigating", "loitering"}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Server base URL")
	lobbies := flag.Int("lobbies", 10, "Number of lobbies to open")
	seats := flag.Int("seats", session.MaxParticipants, "Participants per lobby")
	mode := flag.String("mode", "standard", "Game mode (standard or swarm)")
	interval := flag.Duration("interval", 100*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	flag.Parse()

	cfg := Config{
		BaseURL:        strings.TrimRight(*baseURL, "/"),
		NumLobbies:     *lobbies,
		Seats:          *seats,
		Mode:           *mode,
		ActionInterval: *interval,
		TestDuration:   *duration,
	}

	fmt.Println("=========================================")
	fmt.Println("AGITATOR - Stress Test Tool")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", cfg.BaseURL)
	fmt.Printf("Lobbies:  %d x %d seats\n", cfg.NumLobbies, cfg.Seats)
	fmt.Printf("Interval: %v\n", cfg.ActionInterval)
	fmt.Printf("Duration: %v\n", cfg.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	stats := runStressTest(ctx, cfg)
	printResults(stats, cfg)
	printRecommendations(cfg)
}

func runStressTest(ctx context.Context, cfg Config) *Stats {
	stats := &Stats{Latencies: make([]time.Duration, 0, 10000)}
	var wg sync.WaitGroup

	fmt.Println("\nOpening lobbies and starting clients...")
	started := 0
	for i := 0; i < cfg.NumLobbies; i++ {
		lobbyID, seats, err := createLobby(cfg, i)
		if err != nil {
			log.Printf("Lobby %d: %v", i, err)
			atomic.AddInt64(&stats.Errors, 1)
			continue
		}
		for _, seat := range seats {
			wg.Add(1)
			started++
			go func(lobbyID, seat string, others []string) {
				defer wg.Done()
				runClient(ctx, cfg, lobbyID, seat, others, stats)
			}(lobbyID, seat, seats)

			// Stagger client starts to avoid thundering herd
			time.Sleep(10 * time.Millisecond)
		}
	}
	fmt.Printf("All %d clients started\n\n", started)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: Sent=%d Recv=%d Errors=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.MessagesReceived),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func createLobby(cfg Config, n int) (string, []string, error) {
	req := session.CreateRequest{Mode: cfg.Mode}
	seats := make([]string, 0, cfg.Seats)
	for i := 0; i < cfg.Seats; i++ {
		id := fmt.Sprintf("L%03d-P%d", n, i+1)
		seats = append(seats, id)
		req.Participants = append(req.Participants, session.Seat{ID: id, Name: id, Controlled: true})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, err
	}
	resp, err := http.Post(cfg.BaseURL+"/api/lobbies", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	var out struct {
		Success bool         `json:"success"`
		Data    session.Info `json:"data"`
		Error   string       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil, err
	}
	if !out.Success {
		return "", nil, fmt.Errorf("create lobby: %s", out.Error)
	}
	return out.Data.ID, seats, nil
}

func runClient(ctx context.Context, cfg Config, lobbyID, seat string, others []string, stats *Stats) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	q := u.Query()
	q.Set("lobby", lobbyID)
	q.Set("participant", seat)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Printf("%s: connection failed: %v", seat, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, int64(bytes.Count(data, []byte{'\n'})+1))
		}
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(cfg.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cmd := randomCommand(rng, seat, others)
			start := time.Now()
			if err := conn.WriteJSON(cmd); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, time.Since(start))
			stats.mu.Unlock()
		}
	}
}

func randomCommand(rng *rand.Rand, seat string, others []string) session.Command {
	cmd := session.Command{Type: commandTypes[rng.Intn(len(commandTypes))], ParticipantID: seat}

	var payload interface{}
	switch cmd.Type {
	case session.CmdMove:
		payload = session.MovePayload{X: rng.Float64() * 500, Y: rng.Float64() * 500}
	case session.CmdSpeak:
		payload = session.SpeakPayload{NPCID: "npc-elder", Text: lines[rng.Intn(len(lines))], ResponseTime: rng.Float64() * 4}
	case session.CmdReact:
		payload = session.ReactPayload{Seconds: 0.2 + rng.Float64()*2}
	case session.CmdBehavior:
		payload = session.BehaviorPayload{Behavior: behaviors[rng.Intn(len(behaviors))]}
	case session.CmdAccuse:
		target := others[rng.Intn(len(others))]
		if target == seat {
			return session.Command{Type: session.CmdState, ParticipantID: seat}
		}
		payload = session.AccusePayload{AccusedID: target, Reason: "acting strange"}
	}
	if payload != nil {
		cmd.Payload, _ = json.Marshal(payload)
	}
	return cmd
}

func printResults(stats *Stats, cfg Config) {
	fmt.Println("\n=========================================")
	fmt.Println("STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / cfg.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	if len(stats.Latencies) > 0 {
		var total time.Duration
		min, max := stats.Latencies[0], stats.Latencies[0]
		for _, l := range stats.Latencies {
			total += l
			if l < min {
				min = l
			}
			if l > max {
				max = l
			}
		}
		fmt.Printf("\nWrite latency:\n")
		fmt.Printf("  Min: %v\n", min)
		fmt.Printf("  Avg: %v\n", total/time.Duration(len(stats.Latencies)))
		fmt.Printf("  Max: %v\n", max)
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0:
		fmt.Println("TEST PASSED: System handled the load")
	case float64(errs)/float64(sent+1) < 0.05:
		fmt.Println("TEST WARNING: Some errors detected")
	default:
		fmt.Println("TEST FAILED: High error rate")
	}

	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"lobbies":  cfg.NumLobbies,
			"seats":    cfg.Seats,
			"interval": cfg.ActionInterval.String(),
			"duration": cfg.TestDuration.String(),
		},
	}
	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile("stress_test_results.json", jsonData, 0644); err == nil {
		fmt.Println("Results saved to stress_test_results.json")
	}
}

// printRecommendations reads the server's metrics and suggests a tuning profile change.
func printRecommendations(cfg Config) {
	resp, err := http.Get(cfg.BaseURL + "/metrics")
	if err != nil {
		log.Printf("metrics unavailable: %v", err)
		return
	}
	defer resp.Body.Close()

	var snap map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		log.Printf("metrics decode: %v", err)
		return
	}
	rec := config.Analyze(snap)
	tuned := config.DefaultTuning().Apply(rec)

	fmt.Println("\n=========================================")
	fmt.Println("TUNING RECOMMENDATIONS")
	fmt.Println("=========================================")
	if len(rec.Notes) == 0 {
		fmt.Println("No bottlenecks detected.")
		return
	}
	for _, n := range rec.Notes {
		fmt.Println("  - " + n)
	}
	fmt.Printf("Suggested: command_buffer=%d broadcast_buffer=%d db_max_open=%d\n",
		tuned.CommandBuffer, tuned.BroadcastBuffer, tuned.DBMaxOpenConns)
}
