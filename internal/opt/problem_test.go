package opt

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProblemRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(in *Input)
		field string
	}{
		{"empty matrix", func(in *Input) { in.Distance = nil }, "distance"},
		{"ragged distance", func(in *Input) { in.Distance[1] = []float64{10, 0} }, "distance"},
		{"time size", func(in *Input) { in.Time = in.Time[:2] }, "time"},
		{"negative entry", func(in *Input) { in.Distance[0][1] = -1 }, "distance"},
		{"nan entry", func(in *Input) { in.Time[0][1] = math.NaN() }, "time"},
		{"diagonal", func(in *Input) { in.Distance[2][2] = 3 }, "distance"},
		{"window count", func(in *Input) { in.Windows = in.Windows[:1] }, "windows"},
		{"inverted window", func(in *Input) { in.Windows[1] = TimeWindow{50, 10} }, "windows"},
		{"service count", func(in *Input) { in.Service = []float64{0} }, "service"},
		{"negative service", func(in *Input) { in.Service[2] = -5 }, "service"},
		{"depot service", func(in *Input) { in.Service[0] = 1 }, "service"},
		{"zero distance budget", func(in *Input) { in.MaxDistance = 0 }, "maxDistance"},
		{"negative time budget", func(in *Input) { in.MaxTime = -1 }, "maxTime"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := threeNode()
			// threeNode shares one matrix for distance and time; split them.
			in.Time = [][]float64{{0, 10, 20}, {10, 0, 15}, {20, 15, 0}}
			tc.edit(&in)
			_, err := NewProblem(in)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidInput))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tc.field, ve.Field)
			require.Equal(t, KindInvalidInput, KindOf(err))
		})
	}
}

func TestNewProblemCopiesInput(t *testing.T) {
	in := threeNode()
	p := mustProblem(t, in)
	in.Distance[0][1] = 999
	in.Windows[1] = TimeWindow{1, 2}

	require.Equal(t, 3, p.Size())
	require.Equal(t, 10.0, p.Distance(0, 1))
	require.Equal(t, TimeWindow{0, 480}, p.Window(1))
	require.Equal(t, 5.0, p.Service(2))
	require.Equal(t, 1000.0, p.MaxDistance())
	require.Equal(t, 480.0, p.MaxTime())
}

func TestNewProblemMaxWait(t *testing.T) {
	in := threeNode()
	require.Equal(t, float64(DefaultMaxWait), mustProblem(t, in).MaxWait())

	in.MaxWait = -1
	require.Equal(t, -1.0, mustProblem(t, in).MaxWait())

	in.MaxWait = 15
	require.Equal(t, 15.0, mustProblem(t, in).MaxWait())
}

func TestSingleLocationProblem(t *testing.T) {
	p := mustProblem(t, Input{
		Distance:    [][]float64{{0}},
		Time:        [][]float64{{0}},
		Windows:     []TimeWindow{{0, 600}},
		Service:     []float64{0},
		MaxDistance: 1,
		MaxTime:     1,
	})
	sol, _, err := Solve(p, Options{})
	require.NoError(t, err)
	require.Equal(t, []int{0, 0}, sol.Route)
	require.Equal(t, 1, sol.LocationsVisited)
	require.Zero(t, sol.TotalDistance)
}
