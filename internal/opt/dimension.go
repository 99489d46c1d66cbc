package opt

import "fmt"

// feasTol absorbs float rounding when comparing against bounds.
const feasTol = 1e-9

// Reasons reported by Infeasibility.
const (
	ReasonWindowClosed = "arrival after window closes"
	ReasonBudget       = "route budget exceeded"
	ReasonSlack        = "wait before window exceeds slack"
)

// Infeasibility is returned by Propagate at the first violated bound.
type Infeasibility struct {
	Dimension string
	Location  int
	Position  int
	Reason    string
}

func (e *Infeasibility) Error() string {
	return fmt.Sprintf("%s infeasible at position %d (location %d): %s", e.Dimension, e.Position, e.Location, e.Reason)
}

// Trace receives per-position results of a propagation.
type Trace struct {
	// Cumul is the cumulative value at each route position. For time it is the
	// service start after any waiting, in minutes from day start.
	Cumul []float64
	Wait  []float64
	// Start is the cumulative value at the route's first position.
	Start float64
}

func (t *Trace) reset(n int) {
	if cap(t.Cumul) < n {
		t.Cumul = make([]float64, n)
		t.Wait = make([]float64, n)
	}
	t.Cumul = t.Cumul[:n]
	t.Wait = t.Wait[:n]
	t.Start = 0
}

// Dimension accumulates distance or time along a route.
type Dimension struct {
	name     string
	p        *Problem
	timed    bool
	capacity float64
}

// DistanceDimension adds distance(from,to) per arc and bounds the total by MaxDistance.
func DistanceDimension(p *Problem) *Dimension {
	return &Dimension{name: "distance", p: p, capacity: p.maxDistance}
}

// TimeDimension adds travel(from,to)+service(from) per arc, honors windows and
// the waiting cap, and bounds elapsed time by MaxTime.
func TimeDimension(p *Problem) *Dimension {
	return &Dimension{name: "time", p: p, timed: true, capacity: p.maxTime}
}

func (d *Dimension) Name() string { return d.name }

// Increment is the quantity added on the arc from -> to.
func (d *Dimension) Increment(from, to int) float64 {
	if d.timed {
		return d.p.Travel(from, to) + d.p.service[from]
	}
	return d.p.Distance(from, to)
}

// Propagate walks route in order and fills tr. It returns *Infeasibility at the
// first position that breaks a window or the route budget.
func (d *Dimension) Propagate(route []int, tr *Trace) error {
	if fail, ok := d.propagate(route, tr); !ok {
		return &fail
	}
	return nil
}

func (d *Dimension) propagate(route []int, tr *Trace) (Infeasibility, bool) {
	tr.reset(len(route))
	if len(route) == 0 {
		return Infeasibility{}, true
	}
	if !d.timed {
		c := 0.0
		for k, loc := range route {
			if k > 0 {
				c += d.Increment(route[k-1], loc)
			}
			if c > d.capacity+feasTol {
				return d.fail(route, k, ReasonBudget), false
			}
			tr.Cumul[k] = c
			tr.Wait[k] = 0
		}
		return Infeasibility{}, true
	}

	// A wait longer than the slack is removed by leaving the depot later. Each
	// restart clears every wait up to the offending position, so at most
	// len(route) restarts are needed.
	first := d.p.windows[route[0]]
	start := first.Earliest
	for range route {
		shift, fail, ok := d.walk(route, start, tr)
		if !ok {
			return fail, false
		}
		if shift == 0 {
			return d.fitBudget(route, tr)
		}
		start += shift
		if start > first.Latest+feasTol {
			return d.fail(route, 0, ReasonSlack), false
		}
	}
	return d.fail(route, 0, ReasonSlack), false
}

// walk is one forward pass from the given start. A positive shift asks the
// caller to restart that much later.
func (d *Dimension) walk(route []int, start float64, tr *Trace) (float64, Infeasibility, bool) {
	w := d.p.windows
	maxWait := d.p.maxWait
	t := start
	waited := 0.0
	tr.Start = start
	for k, loc := range route {
		wait := 0.0
		if k > 0 {
			t += d.Increment(route[k-1], loc)
			if t < w[loc].Earliest {
				wait = w[loc].Earliest - t
				if maxWait >= 0 && wait > maxWait+feasTol {
					return wait - maxWait + waited, Infeasibility{}, true
				}
				t = w[loc].Earliest
			}
		}
		if t > w[loc].Latest+feasTol {
			return 0, d.fail(route, k, ReasonWindowClosed), false
		}
		tr.Cumul[k] = t
		tr.Wait[k] = wait
		waited += wait
	}
	return 0, Infeasibility{}, true
}

// fitBudget checks the elapsed-time budget over a window-feasible pass in tr.
// When the route runs over, departure moves later: a delay of x shortens the
// route by x as long as x stays within the waits it absorbs, and every
// service start k moves by max(0, x - waits up to k), which bounds x by the
// windows. Waits only shrink, so the waiting cap still holds.
func (d *Dimension) fitBudget(route []int, tr *Trace) (Infeasibility, bool) {
	last := len(route) - 1
	if over := tr.Cumul[last] - tr.Start - d.capacity; over > feasTol {
		w := d.p.windows
		room := w[route[0]].Latest - tr.Start
		waited := 0.0
		for k := 1; k <= last; k++ {
			waited += tr.Wait[k]
			room = min(room, w[route[k]].Latest-tr.Cumul[k]+waited)
		}
		if delay := min(over, waited, room); delay > 0 {
			if _, fail, ok := d.walk(route, tr.Start+delay, tr); !ok {
				return fail, false
			}
		}
	}
	for k := range route {
		if tr.Cumul[k]-tr.Start > d.capacity+feasTol {
			return d.fail(route, k, ReasonBudget), false
		}
	}
	return Infeasibility{}, true
}

func (d *Dimension) fail(route []int, pos int, reason string) Infeasibility {
	return Infeasibility{Dimension: d.name, Location: route[pos], Position: pos, Reason: reason}
}
