package opt

import "math"

// DefaultMaxWait is the idle time allowed at one location before its window opens, in minutes.
const DefaultMaxWait = 60

// TimeWindow bounds the service start at a location, in minutes from day start.
type TimeWindow struct {
	Earliest float64 `json:"earliest"`
	Latest   float64 `json:"latest"`
}

// Input is the raw problem handed to NewProblem. Index 0 is the depot.
type Input struct {
	Distance    [][]float64  `json:"distance"`
	Time        [][]float64  `json:"time"`
	Windows     []TimeWindow `json:"windows"`
	Service     []float64    `json:"service"`
	MaxDistance float64      `json:"maxDistance"`
	MaxTime     float64      `json:"maxTime"`
	// MaxWait caps waiting per location. Zero selects DefaultMaxWait, negative disables the cap.
	MaxWait float64 `json:"maxWait,omitempty"`
}

// Problem is a validated, immutable TSPTW instance. It is safe to share between goroutines.
type Problem struct {
	n           int
	dist        []float64 // row-major n*n
	travel      []float64 // row-major n*n
	windows     []TimeWindow
	service     []float64
	maxDistance float64
	maxTime     float64
	maxWait     float64
}

// NewProblem validates in and copies it into a Problem.
func NewProblem(in Input) (*Problem, error) {
	n := len(in.Distance)
	if n == 0 {
		return nil, invalid("distance", "matrix is empty")
	}
	if err := checkMatrix("distance", in.Distance, n); err != nil {
		return nil, err
	}
	if len(in.Time) != n {
		return nil, invalid("time", "matrix has %d rows, want %d", len(in.Time), n)
	}
	if err := checkMatrix("time", in.Time, n); err != nil {
		return nil, err
	}
	if len(in.Windows) != n {
		return nil, invalid("windows", "have %d entries, want %d", len(in.Windows), n)
	}
	for i, w := range in.Windows {
		if math.IsNaN(w.Earliest) || math.IsNaN(w.Latest) {
			return nil, invalid("windows", "entry %d is not a number", i)
		}
		if w.Earliest > w.Latest {
			return nil, invalid("windows", "entry %d opens at %g after it closes at %g", i, w.Earliest, w.Latest)
		}
	}
	if len(in.Service) != n {
		return nil, invalid("service", "have %d entries, want %d", len(in.Service), n)
	}
	for i, s := range in.Service {
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			return nil, invalid("service", "entry %d must be a non-negative number, got %g", i, s)
		}
	}
	if in.Service[0] != 0 {
		return nil, invalid("service", "depot service must be 0, got %g", in.Service[0])
	}
	if !(in.MaxDistance > 0) || math.IsInf(in.MaxDistance, 0) {
		return nil, invalid("maxDistance", "must be positive, got %g", in.MaxDistance)
	}
	if !(in.MaxTime > 0) || math.IsInf(in.MaxTime, 0) {
		return nil, invalid("maxTime", "must be positive, got %g", in.MaxTime)
	}
	if math.IsNaN(in.MaxWait) {
		return nil, invalid("maxWait", "is not a number")
	}

	p := &Problem{
		n:           n,
		dist:        flatten(in.Distance, n),
		travel:      flatten(in.Time, n),
		windows:     append([]TimeWindow(nil), in.Windows...),
		service:     append([]float64(nil), in.Service...),
		maxDistance: in.MaxDistance,
		maxTime:     in.MaxTime,
		maxWait:     in.MaxWait,
	}
	if p.maxWait == 0 {
		p.maxWait = DefaultMaxWait
	}
	return p, nil
}

func checkMatrix(field string, m [][]float64, n int) error {
	for i, row := range m {
		if len(row) != n {
			return invalid(field, "row %d has %d entries, want %d", i, len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return invalid(field, "entry [%d][%d] must be a non-negative number, got %g", i, j, v)
			}
			if i == j && v != 0 {
				return invalid(field, "diagonal entry [%d][%d] must be 0, got %g", i, j, v)
			}
		}
	}
	return nil
}

func flatten(m [][]float64, n int) []float64 {
	out := make([]float64, 0, n*n)
	for _, row := range m {
		out = append(out, row...)
	}
	return out
}

// Size is the number of locations N, depot included.
func (p *Problem) Size() int { return p.n }

// Distance is the travel distance from i to j.
func (p *Problem) Distance(i, j int) float64 { return p.dist[i*p.n+j] }

// Travel is the travel time from i to j in minutes.
func (p *Problem) Travel(i, j int) float64 { return p.travel[i*p.n+j] }

func (p *Problem) Window(i int) TimeWindow { return p.windows[i] }

func (p *Problem) Service(i int) float64 { return p.service[i] }

func (p *Problem) MaxDistance() float64 { return p.maxDistance }

func (p *Problem) MaxTime() float64 { return p.maxTime }

// MaxWait is the per-location waiting cap; negative means unlimited.
func (p *Problem) MaxWait() float64 { return p.maxWait }
