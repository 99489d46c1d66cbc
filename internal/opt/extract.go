package opt

import "fmt"

// Stop is one visit of the extracted route.
type Stop struct {
	Location int `json:"locationIndex"`
	// Arrival is the service start in minutes from day start, after any waiting.
	Arrival            float64 `json:"arrivalTime"`
	Wait               float64 `json:"wait"`
	CumulativeDistance float64 `json:"cumulativeDistance"`
	// CumulativeTime is the elapsed time since leaving the depot.
	CumulativeTime float64 `json:"cumulativeTime"`
}

// Status tells how the search that produced a Solution ended.
type Status string

const (
	StatusConverged Status = "converged"
	StatusTimedOut  Status = "timed_out"
)

// Solution is the read-only result of one solve.
type Solution struct {
	Route            []int   `json:"route"`
	Stops            []Stop  `json:"stops"`
	Start            float64 `json:"start"`
	TotalDistance    float64 `json:"totalDistance"`
	TotalTime        float64 `json:"totalTime"`
	LocationsVisited int     `json:"locationsVisited"`
	Status           Status  `json:"status"`
	// TimeLimited is set when the time budget ended the search, so the route
	// may not be locally optimal.
	TimeLimited bool `json:"timeLimited"`
	Worker      int  `json:"worker"`
}

// Extract re-propagates both dimensions over route and assembles the Solution.
// Totals come from the last stop, never from incremental search bookkeeping.
func Extract(p *Problem, route []int, status Status) (*Solution, error) {
	if err := checkRoute(p, route); err != nil {
		return nil, err
	}
	var tt, dt Trace
	if err := TimeDimension(p).Propagate(route, &tt); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if err := DistanceDimension(p).Propagate(route, &dt); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	stops := make([]Stop, len(route))
	for k, loc := range route {
		stops[k] = Stop{
			Location:           loc,
			Arrival:            tt.Cumul[k],
			Wait:               tt.Wait[k],
			CumulativeDistance: dt.Cumul[k],
			CumulativeTime:     tt.Cumul[k] - tt.Start,
		}
	}
	last := stops[len(stops)-1]
	return &Solution{
		Route:            append([]int(nil), route...),
		Stops:            stops,
		Start:            tt.Start,
		TotalDistance:    last.CumulativeDistance,
		TotalTime:        last.CumulativeTime,
		LocationsVisited: len(route) - 1,
		Status:           status,
		TimeLimited:      status == StatusTimedOut,
	}, nil
}

// checkRoute enforces the permutation invariant: depot at both ends and every
// other location exactly once.
func checkRoute(p *Problem, route []int) error {
	n := p.Size()
	if len(route) != n+1 {
		return fmt.Errorf("route has %d stops, want %d", len(route), n+1)
	}
	if route[0] != 0 || route[n] != 0 {
		return fmt.Errorf("route must start and end at the depot: %v", route)
	}
	seen := make([]bool, n)
	for _, loc := range route[1:n] {
		if loc <= 0 || loc >= n || seen[loc] {
			return fmt.Errorf("route visits location %d out of range or twice", loc)
		}
		seen[loc] = true
	}
	return nil
}
