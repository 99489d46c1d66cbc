package opt

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is wrapped by every *ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoFeasibleInsertion means construction could not place every location.
	ErrNoFeasibleInsertion = errors.New("no feasible insertion")
	// ErrTimedOutWithoutSolution means the time budget ran out before a first route existed.
	ErrTimedOutWithoutSolution = errors.New("timed out without solution")
)

// ValidationError names the first input field that violates the problem invariants.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InsertionError lists the locations construction was unable to route.
type InsertionError struct {
	Unplaced []int
}

func (e *InsertionError) Error() string {
	return fmt.Sprintf("no feasible insertion for locations %v", e.Unplaced)
}

func (e *InsertionError) Unwrap() error { return ErrNoFeasibleInsertion }

// FailureKind classifies a solve error for callers that branch on outcome.
type FailureKind int

const (
	KindNone FailureKind = iota
	KindInvalidInput
	KindNoFeasibleInsertion
	KindTimedOutWithoutSolution
	KindInternal
)

func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidInput:
		return "invalid_input"
	case KindNoFeasibleInsertion:
		return "no_feasible_insertion"
	case KindTimedOutWithoutSolution:
		return "timed_out_without_solution"
	default:
		return "internal"
	}
}

// KindOf maps err to its failure kind. A nil error is KindNone.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNoFeasibleInsertion):
		return KindNoFeasibleInsertion
	case errors.Is(err, ErrTimedOutWithoutSolution):
		return KindTimedOutWithoutSolution
	default:
		return KindInternal
	}
}
