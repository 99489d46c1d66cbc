package plan

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"salesroute/internal/matrix"
	"salesroute/internal/model"
	"salesroute/internal/opt"
)

func testRep() model.Rep {
	return model.Rep{
		Name:           "Jordan",
		StartLocation:  model.Place{Name: "Office", Lat: 40.0, Lng: -74.0},
		WorkingHours:   model.WorkingHours{Start: "09:00", End: "17:00"},
		MaxDistanceKm:  100,
		MaxTravelHours: 3,
	}
}

func testClients() []model.Client {
	return []model.Client{
		{ID: "C1", Name: "North", Lat: 40.05, Lng: -74.0, WindowStart: "09:00", WindowEnd: "17:00", ServiceMinutes: 30, Priority: "High"},
		{ID: "C2", Name: "East", Lat: 40.0, Lng: -73.95, WindowStart: "10:00", WindowEnd: "16:00", ServiceMinutes: 45},
		{ID: "C3", Name: "NorthEast", Lat: 40.05, Lng: -73.95, WindowStart: "09:00", WindowEnd: "17:00", ServiceMinutes: 20},
	}
}

func newPlanner(p matrix.Provider) *Planner {
	return &Planner{Matrices: p, Defaults: opt.Options{TimeLimit: 10 * time.Second, MaxRounds: 100}}
}

func TestPlanRepDay(t *testing.T) {
	rep := testRep()
	req := model.OptimizeRequest{PlanDate: "2026-03-02", Rep: &rep, Clients: testClients()}
	res, err := newPlanner(matrix.Estimator{}).Plan(context.Background(), req, nil)
	require.NoError(t, err)

	p := res.Plan
	require.Equal(t, model.PlanDone, p.Status)
	require.Equal(t, "Jordan", p.Rep)
	require.Equal(t, "estimate", p.MatrixSource)
	require.Len(t, p.Solution.Route, 5)
	require.Len(t, p.Schedule, 5)
	require.Equal(t, "DEPOT", p.Schedule[0].ClientID)
	require.Equal(t, "Return to Office", p.Schedule[4].Activity)
	require.Greater(t, p.TotalDistanceKm, 0.0)
	require.LessOrEqual(t, p.TotalDistanceKm, 100.0)
	require.NotNil(t, res.Input)
	require.NotNil(t, res.Matrices)
	require.Equal(t, opt.StateDone, res.Metrics.States[len(res.Metrics.States)-1])

	// Window of C2 opens an hour into the day.
	for k, st := range p.Solution.Stops {
		if st.Location == 2 {
			require.GreaterOrEqual(t, st.Arrival, 60.0, "stop %d", k)
		}
	}

	ms := opt.GetMetrics("2026-03-02")
	require.Contains(t, ms, "Jordan")
}

func TestPlanRawProblem(t *testing.T) {
	m := [][]float64{{0, 10, 20}, {10, 0, 15}, {20, 15, 0}}
	in := opt.Input{
		Distance:    m,
		Time:        m,
		Windows:     []opt.TimeWindow{{Earliest: 0, Latest: 480}, {Earliest: 0, Latest: 480}, {Earliest: 0, Latest: 480}},
		Service:     []float64{0, 5, 5},
		MaxDistance: 1000,
		MaxTime:     480,
	}
	res, err := newPlanner(nil).Plan(context.Background(), model.OptimizeRequest{Problem: &in}, nil)
	require.NoError(t, err)
	require.Equal(t, 45.0, res.Plan.Solution.TotalDistance)
	require.Empty(t, res.Plan.Schedule)
}

type failingProvider struct{}

func (failingProvider) Matrices(context.Context, []matrix.Point) (*matrix.Matrices, error) {
	return nil, errors.New("osrm down")
}

func TestPlanMatrixFailure(t *testing.T) {
	rep := testRep()
	res, err := newPlanner(failingProvider{}).Plan(context.Background(), model.OptimizeRequest{Rep: &rep, Clients: testClients()}, nil)
	require.ErrorIs(t, err, ErrMatrix)
	require.Equal(t, model.PlanFailed, res.Plan.Status)
	require.Equal(t, "matrix_unavailable", res.Plan.Failure)
	require.Contains(t, res.Plan.Error, "osrm down")
}

func TestPlanInfeasibleWindow(t *testing.T) {
	rep := testRep()
	clients := testClients()
	// 5.5 km away at 40 km/h cannot be reached within the first minute.
	clients[0].WindowStart, clients[0].WindowEnd = "09:00", "09:01"
	res, err := newPlanner(matrix.Estimator{}).Plan(context.Background(), model.OptimizeRequest{Rep: &rep, Clients: clients}, nil)
	require.ErrorIs(t, err, opt.ErrNoFeasibleInsertion)
	require.Equal(t, "no_feasible_insertion", res.Plan.Failure)
	require.Nil(t, res.Plan.Solution)
}

func TestPlanRejectsEmptyRequest(t *testing.T) {
	res, err := newPlanner(nil).Plan(context.Background(), model.OptimizeRequest{}, nil)
	require.ErrorIs(t, err, opt.ErrInvalidInput)
	require.Equal(t, "invalid_input", res.Plan.Failure)
}

func TestPlanObserver(t *testing.T) {
	rep := testRep()
	var got []opt.State
	_, err := newPlanner(matrix.Estimator{}).Plan(context.Background(), model.OptimizeRequest{Rep: &rep, Clients: testClients()}, func(p opt.Progress) {
		got = append(got, p.State)
	})
	require.NoError(t, err)
	require.Equal(t, opt.StateDone, got[len(got)-1])
}

func TestBuildInputUnits(t *testing.T) {
	rep := testRep()
	m, _ := matrix.Estimator{}.Matrices(context.Background(), Points(rep, testClients()))
	in, err := BuildInput(rep, testClients(), m)
	require.NoError(t, err)
	require.Equal(t, opt.TimeWindow{Earliest: 0, Latest: 480}, in.Windows[0])
	require.Equal(t, opt.TimeWindow{Earliest: 60, Latest: 420}, in.Windows[2])
	require.Equal(t, 100000.0, in.MaxDistance)
	require.Equal(t, 480.0, in.MaxTime)
	require.Equal(t, []float64{0, 30, 45, 20}, in.Service)

	rep.WorkingHours.End = "08:00"
	_, err = BuildInput(rep, testClients(), m)
	var ve *opt.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "rep.workingHours", ve.Field)
}

func TestOptionsClampToDeadline(t *testing.T) {
	pl := newPlanner(nil)
	req := model.OptimizeRequest{TimeLimitMs: 60000, Workers: 3, Seed: 5}
	o := pl.Options(context.Background(), req)
	require.Equal(t, time.Minute, o.TimeLimit)
	require.Equal(t, 3, o.Workers)
	require.Equal(t, int64(5), o.Seed)
	require.Equal(t, 100, o.MaxRounds)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	o = pl.Options(ctx, req)
	require.LessOrEqual(t, o.TimeLimit, 2*time.Second)
}

func TestDiagnose(t *testing.T) {
	rep := testRep()
	d, err := Diagnose(rep, testClients())
	require.NoError(t, err)
	require.True(t, d.Feasible)
	require.Equal(t, 480.0, d.WorkingMinutes)
	require.Equal(t, 95.0, d.ServiceMinutes)
	require.Equal(t, 275.0, d.NeededMinutes)
	require.Empty(t, d.Issues)

	clients := testClients()
	clients[0].WindowStart = "08:00"
	clients[1].WindowEnd = "10:30"
	rep.MaxTravelHours = 7
	d, err = Diagnose(rep, clients)
	require.NoError(t, err)
	require.False(t, d.Feasible)
	require.Len(t, d.Issues, 3)

	var buf bytes.Buffer
	d.Print(&buf)
	require.Contains(t, buf.String(), "INFEASIBLE")
	require.Contains(t, buf.String(), "C1: window 08:00-17:00 outside working hours")
}

func TestMetricsMap(t *testing.T) {
	m := opt.Metrics{Rounds: 4, Workers: 2, States: []opt.State{opt.StateInit, opt.StateDone}}
	m.Accepted[opt.MoveTwoOpt] = 3
	out := MetricsMap(m)
	require.Equal(t, 4, out["rounds"])
	require.Equal(t, 3, out["accepted"].(map[string]int)["2-opt"])
	require.Equal(t, []string{"init", "done"}, out["states"])
}
