package opt

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeLimit is the search budget used when Options.TimeLimit is zero.
const DefaultTimeLimit = 30 * time.Second

// Options tune one Solve call.
type Options struct {
	TimeLimit time.Duration
	// Workers > 1 runs independent multi-start searches in parallel.
	Workers int
	Seed    int64
	// MaxRounds caps search rounds per worker; 0 means no cap.
	MaxRounds  int
	StallLimit int
	// Lambda is the guided local search coefficient. Zero selects DefaultLambda,
	// negative disables penalties (plain descent).
	Lambda float64
	// Observer receives state changes and new best costs. With several workers
	// it is called from several goroutines.
	Observer func(Progress)
}

func (o Options) withDefaults() Options {
	if o.TimeLimit <= 0 {
		o.TimeLimit = DefaultTimeLimit
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.StallLimit <= 0 {
		o.StallLimit = DefaultStallLimit
	}
	if o.Lambda == 0 {
		o.Lambda = DefaultLambda
	}
	return o
}

// Progress is reported to Options.Observer.
type Progress struct {
	Worker       int           `json:"worker"`
	State        State         `json:"state"`
	Round        int           `json:"round"`
	BestDistance float64       `json:"bestDistance"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Metrics describe the search of the worker whose route was returned.
type Metrics struct {
	Worker       int
	Workers      int
	Rounds       int
	Evaluations  int
	Accepted     [moveKinds]int
	Escalations  int
	Improvements int
	InitialCost  float64
	BestCost     float64
	Elapsed      time.Duration
	States       []State
	Snapshots    []CostSnapshot
}

type CostSnapshot struct {
	Round   int
	Best    float64
	Current float64
}

// Solve runs construction and guided local search on p. On success the
// Solution holds N+1 stops; on failure the error wraps one of
// ErrNoFeasibleInsertion or ErrTimedOutWithoutSolution.
func Solve(p *Problem, o Options) (*Solution, Metrics, error) {
	o = o.withDefaults()
	deadline := time.Now().Add(o.TimeLimit)
	if o.Workers == 1 {
		r := runWorker(p, o, 0, deadline)
		r.m.Workers = 1
		return r.sol, r.m, r.err
	}

	results := make([]workerResult, o.Workers)
	var g errgroup.Group
	for w := 0; w < o.Workers; w++ {
		g.Go(func() error {
			results[w] = runWorker(p, o, w, deadline)
			return nil
		})
	}
	_ = g.Wait()

	r := pickBest(results)
	r.m.Workers = o.Workers
	return r.sol, r.m, r.err
}

type workerResult struct {
	sol *Solution
	m   Metrics
	err error
}

// pickBest keeps the lowest total distance; ties and failures resolve to the
// lowest worker index.
func pickBest(results []workerResult) workerResult {
	best := -1
	for i, r := range results {
		if r.sol == nil {
			continue
		}
		if best < 0 || r.sol.TotalDistance < results[best].sol.TotalDistance {
			best = i
		}
	}
	if best >= 0 {
		return results[best]
	}
	return results[0]
}

func runWorker(p *Problem, o Options, worker int, deadline time.Time) workerResult {
	started := time.Now()
	m := Metrics{Worker: worker}
	lc := lifecycle{state: StateInit}
	report := func(round int, best float64) {
		if o.Observer != nil {
			o.Observer(Progress{Worker: worker, State: lc.state, Round: round, BestDistance: best, Elapsed: time.Since(started)})
		}
	}
	finish := func(r workerResult) workerResult {
		lc.to(StateDone)
		r.m.States = lc.trail
		r.m.Elapsed = time.Since(started)
		report(r.m.Rounds, r.m.BestCost)
		return r
	}

	lc.to(StateConstructing)
	report(0, 0)
	route, err := Construct(p, workerRNG(o.Seed, worker), deadline)
	if err != nil {
		lc.to(StateFailedConstruction)
		report(0, 0)
		return finish(workerResult{m: m, err: err})
	}

	lc.to(StateImproving)
	s := newSearch(p, route, o, deadline, &m)
	report(0, s.bestCost)
	s.onBest = func(cost float64) { report(m.Rounds, cost) }
	end := s.run()
	lc.to(end)

	status := StatusConverged
	if end == StateTimedOut {
		status = StatusTimedOut
	}
	sol, err := Extract(p, s.best, status)
	if err != nil {
		return finish(workerResult{m: m, err: fmt.Errorf("worker %d: %w", worker, err)})
	}
	sol.Worker = worker
	return finish(workerResult{sol: sol, m: m})
}
