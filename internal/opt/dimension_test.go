package opt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// lineInput is a depot and two clients with 10-minute legs everywhere.
func lineInput() Input {
	m := [][]float64{
		{0, 10, 10},
		{10, 0, 10},
		{10, 10, 0},
	}
	return Input{
		Distance:    m,
		Time:        m,
		Windows:     []TimeWindow{{0, 500}, {0, 500}, {0, 500}},
		Service:     []float64{0, 5, 5},
		MaxDistance: 1000,
		MaxTime:     500,
	}
}

func TestDistanceDimensionPropagate(t *testing.T) {
	p := mustProblem(t, threeNode())
	var tr Trace
	require.NoError(t, DistanceDimension(p).Propagate([]int{0, 1, 2, 0}, &tr))
	require.Equal(t, []float64{0, 10, 25, 45}, tr.Cumul)

	in := threeNode()
	in.MaxDistance = 30
	p = mustProblem(t, in)
	err := DistanceDimension(p).Propagate([]int{0, 1, 2, 0}, &tr)
	var inf *Infeasibility
	require.ErrorAs(t, err, &inf)
	require.Equal(t, "distance", inf.Dimension)
	require.Equal(t, 3, inf.Position)
	require.Equal(t, ReasonBudget, inf.Reason)
}

func TestTimeDimensionAddsServiceOfOrigin(t *testing.T) {
	p := mustProblem(t, lineInput())
	var tr Trace
	require.NoError(t, TimeDimension(p).Propagate([]int{0, 1, 2, 0}, &tr))
	// 0 -> 1: 10, 1 -> 2: 10+5, 2 -> 0: 10+5
	require.Equal(t, []float64{0, 10, 25, 40}, tr.Cumul)
	require.Equal(t, []float64{0, 0, 0, 0}, tr.Wait)
}

func TestTimeDimensionWaitsForWindow(t *testing.T) {
	in := lineInput()
	in.Windows[2] = TimeWindow{Earliest: 60, Latest: 90}
	p := mustProblem(t, in)
	var tr Trace
	require.NoError(t, TimeDimension(p).Propagate([]int{0, 1, 2, 0}, &tr))
	require.Equal(t, 0.0, tr.Start)
	require.Equal(t, 60.0, tr.Cumul[2])
	require.Equal(t, 35.0, tr.Wait[2])
	require.Equal(t, 75.0, tr.Cumul[3])
}

func TestTimeDimensionWindowClosed(t *testing.T) {
	in := lineInput()
	in.Windows[2] = TimeWindow{Earliest: 0, Latest: 20}
	p := mustProblem(t, in)
	var tr Trace
	err := TimeDimension(p).Propagate([]int{0, 1, 2, 0}, &tr)
	var inf *Infeasibility
	require.ErrorAs(t, err, &inf)
	require.Equal(t, "time", inf.Dimension)
	require.Equal(t, 2, inf.Location)
	require.Equal(t, 2, inf.Position)
	require.Equal(t, ReasonWindowClosed, inf.Reason)

	// The other order reaches location 2 first, at minute 10.
	require.NoError(t, TimeDimension(p).Propagate([]int{0, 2, 1, 0}, &tr))
}

func TestTimeDimensionElapsedBudget(t *testing.T) {
	in := lineInput()
	in.MaxTime = 39
	p := mustProblem(t, in)
	var tr Trace
	err := TimeDimension(p).Propagate([]int{0, 1, 2, 0}, &tr)
	var inf *Infeasibility
	require.ErrorAs(t, err, &inf)
	require.Equal(t, ReasonBudget, inf.Reason)
	require.Equal(t, 3, inf.Position)
}

func TestTimeDimensionLongWaitDelaysDeparture(t *testing.T) {
	in := lineInput()
	in.Windows[1] = TimeWindow{Earliest: 80, Latest: 90}
	p := mustProblem(t, in)
	var tr Trace
	require.NoError(t, TimeDimension(p).Propagate([]int{0, 1, 2, 0}, &tr))
	// Waiting 70 at location 1 exceeds the 60 minute slack, so the route
	// leaves the depot 10 minutes later.
	require.Equal(t, 10.0, tr.Start)
	require.Equal(t, 80.0, tr.Cumul[1])
	require.Equal(t, 60.0, tr.Wait[1])
	require.Equal(t, 110.0, tr.Cumul[3])
}

// lateClientInput is a depot open all day and one client that cannot be
// served before 100, 10 minutes away.
func lateClientInput(maxTime float64) Input {
	m := [][]float64{
		{0, 10},
		{10, 0},
	}
	return Input{
		Distance:    m,
		Time:        m,
		Windows:     []TimeWindow{{0, 600}, {100, 500}},
		Service:     []float64{0, 0},
		MaxDistance: 1000,
		MaxTime:     maxTime,
	}
}

func TestTimeDimensionLateDepartureFitsBudget(t *testing.T) {
	p := mustProblem(t, lateClientInput(50))
	var tr Trace
	require.NoError(t, TimeDimension(p).Propagate([]int{0, 1, 0}, &tr))
	// Leaving at 30 keeps the wait at the 60 minute cap but takes 80 minutes.
	// Another 30 minutes at the depot brings the day down to 50.
	require.Equal(t, 60.0, tr.Start)
	require.Equal(t, []float64{60, 100, 110}, tr.Cumul)
	require.Equal(t, []float64{0, 30, 0}, tr.Wait)
}

func TestTimeDimensionLateDepartureCannotBeatTravel(t *testing.T) {
	p := mustProblem(t, lateClientInput(15))
	var tr Trace
	err := TimeDimension(p).Propagate([]int{0, 1, 0}, &tr)
	var inf *Infeasibility
	require.ErrorAs(t, err, &inf)
	require.Equal(t, "time", inf.Dimension)
	require.Equal(t, ReasonBudget, inf.Reason)
}

func TestTimeDimensionLateDepartureBoundedByWindows(t *testing.T) {
	in := lineInput()
	in.Service = []float64{0, 0, 0}
	in.Windows[2] = TimeWindow{Earliest: 100, Latest: 200}
	in.MaxWait = -1
	in.MaxTime = 50
	p := mustProblem(t, in)
	var tr Trace
	require.NoError(t, TimeDimension(p).Propagate([]int{0, 1, 2, 0}, &tr))
	require.Equal(t, 60.0, tr.Start)
	require.Equal(t, []float64{60, 70, 100, 110}, tr.Cumul)
	require.Equal(t, []float64{0, 0, 20, 0}, tr.Wait)

	// Location 1 closes at 15, so the route may leave at most 5 minutes late
	// and still waits 75 minutes at location 2.
	in.Windows[1] = TimeWindow{Earliest: 0, Latest: 15}
	p = mustProblem(t, in)
	err := TimeDimension(p).Propagate([]int{0, 1, 2, 0}, &tr)
	var inf *Infeasibility
	require.ErrorAs(t, err, &inf)
	require.Equal(t, ReasonBudget, inf.Reason)
}

func TestTimeDimensionDelayAbsorbsEarlierWaits(t *testing.T) {
	in := lineInput()
	in.Service = []float64{0, 0, 0}
	in.Windows[1] = TimeWindow{Earliest: 30, Latest: 400}
	in.Windows[2] = TimeWindow{Earliest: 200, Latest: 300}
	p := mustProblem(t, in)
	var tr Trace
	require.NoError(t, TimeDimension(p).Propagate([]int{0, 1, 2, 0}, &tr))
	require.Equal(t, 120.0, tr.Start)
	require.Equal(t, []float64{120, 130, 200, 210}, tr.Cumul)
	require.Equal(t, []float64{0, 0, 60, 0}, tr.Wait)
}

func TestTimeDimensionSlackBoundedByDepotWindow(t *testing.T) {
	in := lineInput()
	in.Windows[0] = TimeWindow{Earliest: 0, Latest: 5}
	in.Windows[1] = TimeWindow{Earliest: 80, Latest: 90}
	p := mustProblem(t, in)
	var tr Trace
	err := TimeDimension(p).Propagate([]int{0, 1, 2, 0}, &tr)
	var inf *Infeasibility
	require.ErrorAs(t, err, &inf)
	require.Equal(t, ReasonSlack, inf.Reason)

	in.Windows[0] = TimeWindow{Earliest: 0, Latest: 500}
	in.MaxWait = -1
	p = mustProblem(t, in)
	require.NoError(t, TimeDimension(p).Propagate([]int{0, 1, 2, 0}, &tr))
	require.Equal(t, 0.0, tr.Start)
	require.Equal(t, 70.0, tr.Wait[1])
}
