package opt

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// noiseSpread is the maximum relative perturbation applied to insertion costs
// when construction is given a random stream.
const noiseSpread = 0.2

// Construct builds a first route by cheapest feasible insertion, starting from
// the depot-only route [0, 0]. At each step the unrouted location with the
// smallest feasible insertion increase wins; ties go to the lower location
// index and then to the earlier position.
//
// With a non-nil rng each location's insertion cost is scaled by a fixed random
// factor in [1, 1+noiseSpread), which diversifies multi-start runs while keeping
// them reproducible. Feasibility is always judged on the real matrices.
func Construct(p *Problem, rng *rand.Rand, deadline time.Time) ([]int, error) {
	n := p.Size()
	route := make([]int, 2, n+1)

	bias := make([]float64, n)
	for i := range bias {
		bias[i] = 1
		if rng != nil {
			bias[i] += noiseSpread * rng.Float64()
		}
	}

	routed := make([]bool, n)
	routed[0] = true
	timeDim, distDim := TimeDimension(p), DistanceDimension(p)
	var tt, dt Trace
	cand := make([]int, 0, n+1)
	checks := 0

	for placed := 1; placed < n; placed++ {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("construct: placed %d of %d locations: %w", placed-1, n-1, ErrTimedOutWithoutSolution)
		}
		bestLoc, bestPos, bestDelta := -1, -1, math.Inf(1)
		for loc := 1; loc < n; loc++ {
			if routed[loc] {
				continue
			}
			for at := 1; at < len(route); at++ {
				a, b := route[at-1], route[at]
				delta := (p.Distance(a, loc) + p.Distance(loc, b) - p.Distance(a, b)) * bias[loc]
				if delta >= bestDelta {
					continue
				}
				checks++
				if checks%1024 == 0 && time.Now().After(deadline) {
					return nil, fmt.Errorf("construct: placed %d of %d locations: %w", placed-1, n-1, ErrTimedOutWithoutSolution)
				}
				cand = insertAt(cand[:0], route, at, loc)
				if _, ok := timeDim.propagate(cand, &tt); !ok {
					continue
				}
				if _, ok := distDim.propagate(cand, &dt); !ok {
					continue
				}
				bestLoc, bestPos, bestDelta = loc, at, delta
			}
		}
		if bestLoc < 0 {
			var unplaced []int
			for loc := 1; loc < n; loc++ {
				if !routed[loc] {
					unplaced = append(unplaced, loc)
				}
			}
			return nil, &InsertionError{Unplaced: unplaced}
		}
		route = append(route, 0)
		copy(route[bestPos+1:], route[bestPos:])
		route[bestPos] = bestLoc
		routed[bestLoc] = true
	}
	return route, nil
}

func insertAt(dst, src []int, at, loc int) []int {
	dst = append(dst, src[:at]...)
	dst = append(dst, loc)
	return append(dst, src[at:]...)
}
