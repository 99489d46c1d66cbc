package opt

import (
	"encoding/json"
	"fmt"
)

// State is a step of one worker's solve lifecycle.
type State int

const (
	StateInit State = iota
	StateConstructing
	StateFailedConstruction
	StateImproving
	StateTimedOut
	StateConverged
	StateDone
)

var stateNames = [...]string{
	StateInit:               "init",
	StateConstructing:       "constructing",
	StateFailedConstruction: "failed_construction",
	StateImproving:          "improving",
	StateTimedOut:           "timed_out",
	StateConverged:          "converged",
	StateDone:               "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

var transitions = map[State][]State{
	StateInit:               {StateConstructing},
	StateConstructing:       {StateFailedConstruction, StateImproving},
	StateFailedConstruction: {StateDone},
	StateImproving:          {StateTimedOut, StateConverged},
	StateTimedOut:           {StateDone},
	StateConverged:          {StateDone},
}

type lifecycle struct {
	state State
	trail []State
}

// to moves to next. An edge missing from the transition table is a bug in this
// package, so it panics.
func (l *lifecycle) to(next State) {
	for _, s := range transitions[l.state] {
		if s == next {
			if l.trail == nil {
				l.trail = []State{l.state}
			}
			l.state = next
			l.trail = append(l.trail, next)
			return
		}
	}
	panic(fmt.Sprintf("opt: illegal transition %s -> %s", l.state, next))
}
