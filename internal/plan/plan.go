// Package plan turns a rep's day (or a raw matrix problem) into a solved,
// scheduled plan.
package plan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"salesroute/internal/matrix"
	"salesroute/internal/metrics"
	"salesroute/internal/model"
	"salesroute/internal/obs"
	"salesroute/internal/opt"
	"salesroute/internal/roster"
	"salesroute/internal/schedule"
)

// ErrMatrix wraps failures of the matrix provider.
var ErrMatrix = errors.New("matrix provider failed")

// Planner runs one optimization per call; it holds no per-plan state.
type Planner struct {
	Matrices matrix.Provider
	// Defaults fill options the request leaves unset.
	Defaults opt.Options
}

// Result carries everything a caller may persist or print. On solver failure
// Plan and Metrics are still filled in so the attempt can be recorded.
type Result struct {
	Plan     *model.Plan
	Metrics  opt.Metrics
	Input    *opt.Input
	Matrices *matrix.Matrices
	Clients  []model.Client
}

// Options merges request overrides into the planner defaults and clamps the
// time limit to the context deadline.
func (pl *Planner) Options(ctx context.Context, req model.OptimizeRequest) opt.Options {
	o := pl.Defaults
	if req.TimeLimitMs > 0 {
		o.TimeLimit = time.Duration(req.TimeLimitMs) * time.Millisecond
	}
	if req.Workers > 0 {
		o.Workers = req.Workers
	}
	if req.Seed != 0 {
		o.Seed = req.Seed
	}
	if req.MaxRounds > 0 {
		o.MaxRounds = req.MaxRounds
	}
	if dl, ok := ctx.Deadline(); ok {
		left := time.Until(dl)
		if o.TimeLimit <= 0 || left < o.TimeLimit {
			o.TimeLimit = max(left, time.Millisecond)
		}
	}
	return o
}

// Plan solves req. observer may be nil.
func (pl *Planner) Plan(ctx context.Context, req model.OptimizeRequest, observer func(opt.Progress)) (res *Result, err error) {
	defer obs.Time(ctx, "plan")(&err)

	res = &Result{Plan: &model.Plan{PlanDate: req.PlanDate, Status: model.PlanRunning}}
	var in opt.Input
	switch {
	case req.Problem != nil:
		in = *req.Problem
		if req.MaxWait != 0 {
			in.MaxWait = req.MaxWait
		}
	case req.Rep != nil:
		res.Plan.Rep = req.Rep.Name
		res.Clients = req.Clients
		m, err := pl.fetch(ctx, *req.Rep, req.Clients)
		if err != nil {
			return res, fail(res, err)
		}
		res.Matrices = m
		res.Plan.MatrixSource = m.Source
		if in, err = BuildInput(*req.Rep, req.Clients, m); err != nil {
			return res, fail(res, err)
		}
		in.MaxWait = req.MaxWait
	default:
		return res, fail(res, &opt.ValidationError{Field: "request", Reason: "either problem or rep with clients is required"})
	}
	res.Input = &in

	p, err := opt.NewProblem(in)
	if err != nil {
		return res, fail(res, err)
	}
	o := pl.Options(ctx, req)
	o.Observer = observer

	stop := obs.Time(ctx, "opt.solve")
	sol, m, err := opt.Solve(p, o)
	stop(&err)
	res.Metrics = m
	metrics.SolveDuration.Observe(m.Elapsed.Seconds())
	opt.RecordMetrics(res.Plan.Rep, req.PlanDate, m)
	if err != nil {
		return res, fail(res, err)
	}
	metrics.Solves.WithLabelValues(string(sol.Status)).Inc()

	res.Plan.Status = model.PlanDone
	res.Plan.Solution = sol
	res.Plan.TotalMinutes = sol.TotalTime
	if req.Rep != nil {
		rows, err := schedule.Build(sol, *req.Rep, req.Clients)
		if err != nil {
			return res, fail(res, err)
		}
		res.Plan.Schedule = rows
		res.Plan.TotalDistanceKm = math.Round(sol.TotalDistance/10) / 100
		metrics.RouteDistance.Observe(sol.TotalDistance / 1000)
	}
	return res, nil
}

func (pl *Planner) fetch(ctx context.Context, rep model.Rep, clients []model.Client) (*matrix.Matrices, error) {
	if pl.Matrices == nil {
		return nil, fmt.Errorf("%w: no provider configured", ErrMatrix)
	}
	pts := Points(rep, clients)
	m, err := pl.Matrices.Matrices(ctx, pts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMatrix, err)
	}
	if err := m.Check(len(pts)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMatrix, err)
	}
	return m, nil
}

func fail(res *Result, err error) error {
	res.Plan.Status = model.PlanFailed
	res.Plan.Error = err.Error()
	kind := Kind(err)
	res.Plan.Failure = kind
	metrics.Solves.WithLabelValues(kind).Inc()
	return err
}

// Kind names the failure class of err for clients and metrics.
func Kind(err error) string {
	if errors.Is(err, ErrMatrix) {
		return "matrix_unavailable"
	}
	return opt.KindOf(err).String()
}

// Points lists the depot followed by the clients in order.
func Points(rep model.Rep, clients []model.Client) []matrix.Point {
	pts := make([]matrix.Point, 0, len(clients)+1)
	pts = append(pts, matrix.Point{Lat: rep.StartLocation.Lat, Lng: rep.StartLocation.Lng})
	for _, c := range clients {
		pts = append(pts, matrix.Point{Lat: c.Lat, Lng: c.Lng})
	}
	return pts
}

// BuildInput maps a rep's day onto optimizer units. Times are minutes after
// the working-hours start; the depot is open for the whole day, which is also
// the elapsed-time budget. Distances stay in meters.
func BuildInput(rep model.Rep, clients []model.Client, m *matrix.Matrices) (opt.Input, error) {
	base := rep.WorkingHours.Start
	dayEnd, err := roster.Minutes(base, rep.WorkingHours.End)
	if err != nil {
		return opt.Input{}, &opt.ValidationError{Field: "rep.workingHours", Reason: err.Error()}
	}
	if dayEnd <= 0 {
		return opt.Input{}, &opt.ValidationError{Field: "rep.workingHours", Reason: "end must be after start"}
	}
	n := len(clients) + 1
	in := opt.Input{
		Distance:    m.Meters,
		Time:        m.Minutes,
		Windows:     make([]opt.TimeWindow, n),
		Service:     make([]float64, n),
		MaxDistance: rep.MaxDistanceKm * 1000,
		MaxTime:     dayEnd,
	}
	in.Windows[0] = opt.TimeWindow{Earliest: 0, Latest: dayEnd}
	for i, c := range clients {
		lo, err := roster.Minutes(base, c.WindowStart)
		if err != nil {
			return opt.Input{}, &opt.ValidationError{Field: fmt.Sprintf("clients[%d].windowStart", i), Reason: err.Error()}
		}
		hi, err := roster.Minutes(base, c.WindowEnd)
		if err != nil {
			return opt.Input{}, &opt.ValidationError{Field: fmt.Sprintf("clients[%d].windowEnd", i), Reason: err.Error()}
		}
		in.Windows[i+1] = opt.TimeWindow{Earliest: lo, Latest: hi}
		in.Service[i+1] = c.ServiceMinutes
	}
	return in, nil
}

// MetricsMap flattens solver metrics for JSON responses and storage.
func MetricsMap(m opt.Metrics) map[string]any {
	accepted := map[string]int{}
	for mv := opt.MoveRelocate; mv <= opt.MoveOrOpt; mv++ {
		accepted[mv.String()] = m.Accepted[mv]
	}
	states := make([]string, len(m.States))
	for i, s := range m.States {
		states[i] = s.String()
	}
	return map[string]any{
		"worker":       m.Worker,
		"workers":      m.Workers,
		"rounds":       m.Rounds,
		"evaluations":  m.Evaluations,
		"accepted":     accepted,
		"escalations":  m.Escalations,
		"improvements": m.Improvements,
		"initialCost":  m.InitialCost,
		"bestCost":     m.BestCost,
		"elapsedMs":    m.Elapsed.Milliseconds(),
		"states":       states,
	}
}
