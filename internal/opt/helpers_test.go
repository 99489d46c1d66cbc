package opt

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// threeNode is a depot plus clients B (1) and C (2): A-B=10, A-C=20, B-C=15.
func threeNode() Input {
	m := [][]float64{
		{0, 10, 20},
		{10, 0, 15},
		{20, 15, 0},
	}
	return Input{
		Distance:    m,
		Time:        m,
		Windows:     []TimeWindow{{0, 480}, {0, 480}, {0, 480}},
		Service:     []float64{0, 5, 5},
		MaxDistance: 1000,
		MaxTime:     480,
	}
}

// gridInput places n locations on a 50x50 grid. Distances are rounded
// Euclidean, travel minutes equal distance, every third client has a
// [100, 900] window and the others are open all day.
func gridInput(n int, seed int64) Input {
	rng := rand.New(rand.NewSource(seed))
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = float64(rng.Intn(50))
		ys[i] = float64(rng.Intn(50))
	}
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			if i != j {
				dist[i][j] = math.Round(math.Hypot(xs[i]-xs[j], ys[i]-ys[j]))
			}
		}
	}
	in := Input{
		Distance:    dist,
		Time:        dist,
		Windows:     make([]TimeWindow, n),
		Service:     make([]float64, n),
		MaxDistance: 100000,
		MaxTime:     1000,
	}
	in.Windows[0] = TimeWindow{0, 1000}
	for i := 1; i < n; i++ {
		in.Service[i] = 5
		in.Windows[i] = TimeWindow{0, 1000}
		if i%3 == 0 {
			in.Windows[i] = TimeWindow{100, 900}
		}
	}
	return in
}

func mustProblem(t *testing.T, in Input) *Problem {
	t.Helper()
	p, err := NewProblem(in)
	require.NoError(t, err)
	return p
}

// requireValidSolution checks the permutation, window, monotonicity and
// no-drift properties of sol against p.
func requireValidSolution(t *testing.T, p *Problem, sol *Solution) {
	t.Helper()
	n := p.Size()
	require.Len(t, sol.Stops, n+1)
	require.Equal(t, n, sol.LocationsVisited)
	require.Equal(t, 0, sol.Stops[0].Location)
	require.Equal(t, 0, sol.Stops[n].Location)

	seen := map[int]bool{}
	for _, st := range sol.Stops[1:n] {
		require.False(t, seen[st.Location], "location %d visited twice", st.Location)
		seen[st.Location] = true
	}
	require.Len(t, seen, n-1)

	dist, elapsed := 0.0, 0.0
	for k, st := range sol.Stops {
		w := p.Window(st.Location)
		require.GreaterOrEqual(t, st.Arrival, w.Earliest, "stop %d", k)
		require.LessOrEqual(t, st.Arrival, w.Latest, "stop %d", k)
		if k == 0 {
			continue
		}
		prev := sol.Stops[k-1]
		require.GreaterOrEqual(t, st.CumulativeDistance, prev.CumulativeDistance)
		require.GreaterOrEqual(t, st.CumulativeTime, prev.CumulativeTime)
		dist += p.Distance(prev.Location, st.Location)
		elapsed += p.Travel(prev.Location, st.Location) + p.Service(prev.Location) + st.Wait
	}
	require.InDelta(t, dist, sol.TotalDistance, 1e-9)
	require.InDelta(t, elapsed, sol.TotalTime, 1e-9)
	require.LessOrEqual(t, sol.TotalDistance, p.MaxDistance())
	require.LessOrEqual(t, sol.TotalTime, p.MaxTime())
}
