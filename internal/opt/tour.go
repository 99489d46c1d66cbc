package opt

// tour is the working route: seq holds the location at each position and pos
// is the inverse lookup. seq[0] and seq[len-1] are the depot, so pos[0] is 0.
type tour struct {
	seq []int
	pos []int
}

func newTour(route []int, n int) *tour {
	t := &tour{seq: append([]int(nil), route...), pos: make([]int, n)}
	t.reindex(0, len(t.seq)-1)
	return t
}

// reindex refreshes pos for positions lo..hi, skipping the closing depot.
func (t *tour) reindex(lo, hi int) {
	last := len(t.seq) - 1
	for i := lo; i <= hi; i++ {
		if i == last {
			continue
		}
		t.pos[t.seq[i]] = i
	}
}

func (t *tour) snapshot() []int { return append([]int(nil), t.seq...) }

// reverse flips seq[i..k] in place.
func (t *tour) reverse(i, k int) {
	for a, b := i, k; a < b; a, b = a+1, b-1 {
		t.seq[a], t.seq[b] = t.seq[b], t.seq[a]
	}
	t.reindex(i, k)
}

// rotateLeft shifts seq[lo:hi] left by s positions.
func (t *tour) rotateLeft(lo, hi, s int) {
	if s <= 0 || s >= hi-lo {
		return
	}
	t.flip(lo, lo+s-1)
	t.flip(lo+s, hi-1)
	t.flip(lo, hi-1)
	t.reindex(lo, hi-1)
}

func (t *tour) rotateRight(lo, hi, s int) { t.rotateLeft(lo, hi, hi-lo-s) }

func (t *tour) flip(i, k int) {
	for a, b := i, k; a < b; a, b = a+1, b-1 {
		t.seq[a], t.seq[b] = t.seq[b], t.seq[a]
	}
}

// move takes the segment of length l starting at position i and reinserts it
// in front of the element currently at position j, with j outside [i, i+l].
func (t *tour) move(i, l, j int) {
	if j > i+l {
		t.rotateLeft(i, j, l)
		return
	}
	t.rotateRight(j, i+l, l)
}

// unmove reverts move(i, l, j).
func (t *tour) unmove(i, l, j int) {
	if j > i+l {
		t.rotateRight(i, j, l)
		return
	}
	t.rotateLeft(j, i+l, l)
}
