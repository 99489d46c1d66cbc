package opt

// DefaultLambda scales guided local search penalties.
const DefaultLambda = 0.1

// penalties holds the guided local search arc counters. The augmented arc cost
// is distance*(1+lambda*count), so a penalty grows with the arc's base cost.
type penalties struct {
	n      int
	lambda float64
	count  []float64 // row-major n*n
	active bool
}

func newPenalties(n int, lambda float64) *penalties {
	return &penalties{n: n, lambda: lambda, count: make([]float64, n*n)}
}

func (pn *penalties) cost(p *Problem, i, j int) float64 {
	d := p.Distance(i, j)
	if !pn.active {
		return d
	}
	return d * (1 + pn.lambda*pn.count[i*pn.n+j])
}

// penalize increments every arc of seq with maximal utility d/(1+count) and
// returns how many arcs were penalized.
func (pn *penalties) penalize(p *Problem, seq []int) int {
	best := -1.0
	for k := 0; k+1 < len(seq); k++ {
		a, b := seq[k], seq[k+1]
		if u := p.Distance(a, b) / (1 + pn.count[a*pn.n+b]); u > best {
			best = u
		}
	}
	if best <= 0 {
		return 0
	}
	hit := 0
	for k := 0; k+1 < len(seq); k++ {
		a, b := seq[k], seq[k+1]
		if u := p.Distance(a, b) / (1 + pn.count[a*pn.n+b]); u >= best-feasTol {
			pn.count[a*pn.n+b]++
			hit++
		}
	}
	if hit > 0 {
		pn.active = true
	}
	return hit
}

func (pn *penalties) reset() {
	clear(pn.count)
	pn.active = false
}
