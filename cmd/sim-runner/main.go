// Package main - sim-runner
// Runs headless bot games against the engine and fails when an invariant breaks.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/config"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
	"github.com/MRamiBalles/SinAndGrace/server/internal/sim"
)

func main() {
	games := flag.Int("games", 0, "Extra random games per mode on top of the default scenarios")
	seed := flag.Int64("seed", 1000, "Seed of the first extra game")
	catalogPath := flag.String("catalog", os.Getenv("CATALOG_PATH"), "Catalog YAML (built-in when empty)")
	verbose := flag.Bool("v", false, "Log engine decisions")
	jsonOut := flag.String("json", "", "Write results to this file")
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	appLogger := logger.New(os.Stderr, level)

	rules, err := config.LoadRules()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cat, err := config.LoadCatalog(*catalogPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	scenarios := sim.DefaultScenarios()
	for i := 0; i < *games; i++ {
		for _, mode := range []engine.Mode{engine.ModeStandard, engine.ModeSwarm} {
			scenarios = append(scenarios, sim.Scenario{
				Name:         fmt.Sprintf("%s #%d", mode, i+1),
				Mode:         mode,
				Participants: 3 + i%3,
				Seed:         *seed + int64(i),
				Activity:     0.3,
				Dt:           1,
				MaxTicks:     20000,
			})
		}
	}

	fmt.Println("SIN & GRACE - SIMULATION SUITE")
	fmt.Println(strings.Repeat("=", 60))

	runner := sim.NewRunner(rules, cat, appLogger)
	results := make([]sim.Result, 0, len(scenarios))
	for _, sc := range scenarios {
		res, err := runner.Run(context.Background(), sc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", sc.Name, err)
			os.Exit(2)
		}
		mark := "PASS"
		if !res.Passed {
			mark = "FAIL"
		}
		fmt.Printf("[%s] %-20s day %-2d ticks %-5d events %-5d accusations %-3d reveals %-2d  %s\n",
			mark, res.ScenarioName, res.Days, res.Ticks, res.Events, res.Accusations, res.Reveals, res.Reason)
		for _, v := range res.Violations {
			fmt.Println("       " + v)
		}
		results = append(results, res)
	}

	fmt.Println(strings.Repeat("=", 60))
	for winner, n := range sim.Summary(results) {
		fmt.Printf("   %-12s %d\n", winner, n)
	}

	if *jsonOut != "" {
		data, _ := json.MarshalIndent(results, "", "  ")
		if err := os.WriteFile(*jsonOut, data, 0644); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	if failed := sim.Failed(results); len(failed) > 0 {
		fmt.Printf("\nFailed: %s\n", strings.Join(failed, ", "))
		os.Exit(1)
	}
	fmt.Println("\nAll scenarios passed")
}
