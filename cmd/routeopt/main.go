// Command routeopt plans one sales rep's day from a config file and a clients
// CSV, printing the schedule and writing it next to the matrices and raw
// solution.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"salesroute/internal/buildinfo"
	"salesroute/internal/config"
	"salesroute/internal/matrix"
	"salesroute/internal/model"
	"salesroute/internal/opt"
	"salesroute/internal/plan"
	"salesroute/internal/roster"
	"salesroute/internal/schedule"
)

var (
	configF   = flag.String("config", "config.yaml", "Path to the rep config (YAML or JSON)")
	clientsF  = flag.String("clients", "clients.csv", "Path to the clients CSV")
	outDir    = flag.String("out", "output", "Directory for daily_schedule.csv, distance_matrix.json and solution.json")
	timeLimit = flag.Duration("time-limit", 0, "Search budget; overrides optimization_settings.time_limit_seconds")
	workers   = flag.Int("workers", 0, "Parallel multi-start workers; overrides the config")
	seed      = flag.Int64("seed", 0, "Random seed; overrides the config")
	planDate  = flag.String("date", "", "Plan date (YYYY-MM-DD), defaults to today")
	check     = flag.Bool("check", false, "Only run the constraint pre-check")
)

// errNoRoute is returned after the diagnosis has been printed for a day that
// cannot be planned.
var errNoRoute = errors.New("no feasible route")

// report is the solution.json document.
type report struct {
	Plan     *model.Plan       `json:"plan"`
	Metrics  map[string]any    `json:"metrics"`
	System   buildinfo.SysInfo `json:"system"`
	Build    map[string]string `json:"build"`
	Duration string            `json:"duration"`
}

func main() {
	flag.Parse()
	config.LoadDotEnv()
	if err := run(); err != nil {
		log.Printf("routeopt: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configF)
	if err != nil {
		return err
	}
	clients, err := roster.LoadClients(*clientsF)
	if err != nil {
		return err
	}
	rep := cfg.SalesRep
	fmt.Printf("Loaded %d clients for %s\n", len(clients), rep.Name)

	diag, err := plan.Diagnose(rep, clients)
	if err != nil {
		return err
	}
	if *check {
		diag.Print(os.Stdout)
		if !diag.Feasible {
			return errNoRoute
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	o := opt.Options{TimeLimit: cfg.Optimization.TimeLimit(), Workers: cfg.Optimization.Workers, Seed: cfg.Optimization.Seed}
	if *timeLimit > 0 {
		o.TimeLimit = *timeLimit
	}
	pl := &plan.Planner{Matrices: provider(cfg), Defaults: o}

	date := *planDate
	if date == "" {
		date = time.Now().Format(time.DateOnly)
	}
	req := model.OptimizeRequest{
		PlanDate: date,
		Rep:      &rep,
		Clients:  clients,
		Workers:  *workers,
		Seed:     *seed,
		MaxWait:  cfg.Optimization.MaxWaitMinutes,
	}
	fmt.Printf("Optimizing with a %s budget...\n", o.TimeLimit)
	start := time.Now()
	res, err := pl.Plan(ctx, req, nil)
	if err != nil {
		fmt.Printf("\nNo route found (%s): %v\n\n", plan.Kind(err), err)
		diag.Print(os.Stdout)
		return fmt.Errorf("%w: %s", errNoRoute, plan.Kind(err))
	}
	elapsed := time.Since(start)

	schedule.Print(os.Stdout, rep.Name, res.Plan.Schedule)
	if err := writeOutputs(*outDir, res, elapsed); err != nil {
		return err
	}
	fmt.Printf("\nWrote %s\n", *outDir)
	return nil
}

// provider prefers OSRM and falls back to the straight-line estimate; with
// REDIS_URL set the result is cached.
func provider(cfg *config.File) matrix.Provider {
	var p matrix.Provider = matrix.Fallback{
		Primary:   matrix.NewOSRM(cfg.OSRMServer),
		Secondary: matrix.Estimator{},
	}
	if os.Getenv("REDIS_URL") == "" {
		return p
	}
	c, err := matrix.NewRedisCacheFromEnv(p, config.EnvDuration("MATRIX_CACHE_TTL", 24*time.Hour))
	if err != nil {
		log.Printf("matrix cache disabled: %v", err)
		return p
	}
	return c
}

func writeOutputs(dir string, res *plan.Result, elapsed time.Duration) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "daily_schedule.csv"))
	if err != nil {
		return err
	}
	if err := schedule.WriteCSV(f, res.Plan.Schedule); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := matrix.Save(filepath.Join(dir, "distance_matrix.json"), res.Matrices); err != nil {
		return err
	}
	b, err := json.MarshalIndent(report{
		Plan:     res.Plan,
		Metrics:  plan.MetricsMap(res.Metrics),
		System:   buildinfo.System(),
		Build:    buildinfo.Info(),
		Duration: elapsed.Round(time.Millisecond).String(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "solution.json"), b, 0o644)
}
