package opt

import "time"

// improveEps is the smallest cost change treated as an improvement.
const improveEps = 1e-6

// deadlinePollMask throttles clock reads inside a round to one per 1024 evaluations.
const deadlinePollMask = 1023

const snapshotEvery = 50

// DefaultStallLimit is the number of penalty escalations without a new best
// route after which guided local search stops.
const DefaultStallLimit = 100

// Move identifies a neighborhood.
type Move int

const (
	MoveRelocate Move = iota
	MoveTwoOpt
	MoveOrOpt
	moveKinds
)

func (m Move) String() string {
	switch m {
	case MoveRelocate:
		return "relocate"
	case MoveTwoOpt:
		return "2-opt"
	case MoveOrOpt:
		return "or-opt"
	}
	return "unknown"
}

// search owns the single mutable route of one worker.
type search struct {
	p        *Problem
	t        *tour
	timeDim  *Dimension
	distDim  *Dimension
	tt, dt   Trace
	pen      *penalties
	gls      bool
	deadline time.Time

	maxRounds  int
	stallLimit int
	evals      int
	timedOut   bool

	curCost  float64
	best     []int
	bestCost float64

	m      *Metrics
	onBest func(cost float64)
}

func newSearch(p *Problem, route []int, o Options, deadline time.Time, m *Metrics) *search {
	s := &search{
		p:          p,
		t:          newTour(route, p.Size()),
		timeDim:    TimeDimension(p),
		distDim:    DistanceDimension(p),
		pen:        newPenalties(p.Size(), o.Lambda),
		gls:        o.Lambda > 0,
		deadline:   deadline,
		maxRounds:  o.MaxRounds,
		stallLimit: o.StallLimit,
		m:          m,
	}
	s.distDim.propagate(s.t.seq, &s.dt)
	s.curCost = s.dt.Cumul[len(s.t.seq)-1]
	s.best = s.t.snapshot()
	s.bestCost = s.curCost
	m.InitialCost = s.curCost
	m.BestCost = s.curCost
	return s
}

// run improves the route until the budget runs out (StateTimedOut) or the
// search stops finding anything new (StateConverged). s.best is always feasible.
func (s *search) run() State {
	stall := 0
	for {
		if s.expired() {
			return StateTimedOut
		}
		if s.maxRounds > 0 && s.m.Rounds >= s.maxRounds {
			return StateConverged
		}
		s.m.Rounds++
		accepted := s.round()
		if s.m.Rounds%snapshotEvery == 0 {
			s.m.Snapshots = append(s.m.Snapshots, CostSnapshot{Round: s.m.Rounds, Best: s.bestCost, Current: s.curCost})
		}
		if s.timedOut {
			return StateTimedOut
		}
		if accepted {
			if s.curCost < s.bestCost-improveEps {
				s.bestCost = s.curCost
				s.best = s.t.snapshot()
				s.m.Improvements++
				s.m.BestCost = s.bestCost
				stall = 0
				if s.pen.active {
					s.pen.reset()
				}
				if s.onBest != nil {
					s.onBest(s.bestCost)
				}
			}
			continue
		}
		// Local optimum for the current (possibly augmented) arc costs.
		if !s.gls {
			return StateConverged
		}
		stall++
		if stall > s.stallLimit {
			return StateConverged
		}
		s.m.Escalations++
		if s.pen.penalize(s.p, s.t.seq) == 0 {
			return StateConverged
		}
	}
}

func (s *search) expired() bool {
	if time.Now().After(s.deadline) {
		s.timedOut = true
	}
	return s.timedOut
}

// round tries the neighborhoods in priority order and stops at the first
// accepted move.
func (s *search) round() bool {
	return s.relocate() || s.twoOpt() || s.orOpt()
}

// tick counts one evaluation and polls the deadline every 1024 of them.
func (s *search) tick() bool {
	s.evals++
	s.m.Evaluations++
	if s.evals&deadlinePollMask == 0 {
		return s.expired()
	}
	return false
}

func (s *search) cost(i, j int) float64 { return s.pen.cost(s.p, i, j) }

// feasible re-propagates both dimensions over the mutated route.
func (s *search) feasible() bool {
	if _, ok := s.distDim.propagate(s.t.seq, &s.dt); !ok {
		return false
	}
	_, ok := s.timeDim.propagate(s.t.seq, &s.tt)
	return ok
}

func (s *search) accept(mv Move) {
	s.curCost = s.dt.Cumul[len(s.t.seq)-1]
	s.m.Accepted[mv]++
}

// relocate moves a single location to another position.
func (s *search) relocate() bool {
	last := len(s.t.seq) - 1
	for loc := 1; loc < s.p.Size(); loc++ {
		i := s.t.pos[loc]
		for j := 1; j <= last; j++ {
			if j == i || j == i+1 {
				continue
			}
			if s.tick() {
				return false
			}
			if s.segmentDelta(i, 1, j) >= -improveEps {
				continue
			}
			s.t.move(i, 1, j)
			if s.feasible() {
				s.accept(MoveRelocate)
				return true
			}
			s.t.unmove(i, 1, j)
		}
	}
	return false
}

// twoOpt reverses seq[i..k]. The internal sum tracks the cost change of the
// reversed arcs, which is non-zero for asymmetric matrices.
func (s *search) twoOpt() bool {
	seq := s.t.seq
	last := len(seq) - 1
	for i := 1; i < last-1; i++ {
		internal := 0.0
		for k := i + 1; k < last; k++ {
			internal += s.cost(seq[k], seq[k-1]) - s.cost(seq[k-1], seq[k])
			if s.tick() {
				return false
			}
			delta := s.cost(seq[i-1], seq[k]) + s.cost(seq[i], seq[k+1]) -
				s.cost(seq[i-1], seq[i]) - s.cost(seq[k], seq[k+1]) + internal
			if delta >= -improveEps {
				continue
			}
			s.t.reverse(i, k)
			if s.feasible() {
				s.accept(MoveTwoOpt)
				return true
			}
			s.t.reverse(i, k)
		}
	}
	return false
}

// orOpt moves a segment of one to three consecutive locations.
func (s *search) orOpt() bool {
	last := len(s.t.seq) - 1
	for l := 1; l <= 3; l++ {
		for i := 1; i+l <= last; i++ {
			for j := 1; j <= last; j++ {
				if j >= i && j <= i+l {
					continue
				}
				if s.tick() {
					return false
				}
				if s.segmentDelta(i, l, j) >= -improveEps {
					continue
				}
				s.t.move(i, l, j)
				if s.feasible() {
					s.accept(MoveOrOpt)
					return true
				}
				s.t.unmove(i, l, j)
			}
		}
	}
	return false
}

// segmentDelta is the augmented cost change of moving seq[i:i+l] in front of seq[j].
func (s *search) segmentDelta(i, l, j int) float64 {
	seq := s.t.seq
	prev, head, tail, next := seq[i-1], seq[i], seq[i+l-1], seq[i+l]
	a, b := seq[j-1], seq[j]
	return s.cost(prev, next) - s.cost(prev, head) - s.cost(tail, next) +
		s.cost(a, head) + s.cost(tail, b) - s.cost(a, b)
}
