package store

import (
	"context"
	"errors"

	"salesroute/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Plans
	SavePlan(ctx context.Context, p model.Plan) (model.Plan, error)
	GetPlan(ctx context.Context, id string) (model.Plan, error)
	ListPlans(ctx context.Context, planDate, cursor string, limit int) ([]model.Plan, string, error)

	// Solver metrics, one row per rep and plan date
	SavePlanMetrics(ctx context.Context, rep, planDate string, metrics map[string]any) error
	ListPlanMetrics(ctx context.Context, planDate, rep string) ([]map[string]any, error)

	// Optimizer defaults per rep; "" is the global entry
	GetOptimizerConfig(ctx context.Context, rep string) (map[string]any, error)
	SaveOptimizerConfig(ctx context.Context, rep string, cfg map[string]any) error
}

var ErrNotFound = errors.New("not found")

const (
	defaultLimit = 100
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}
