package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"salesroute/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu     sync.Mutex
	plans  map[string]model.Plan                // id -> plan
	order  []string                             // plan ids in insertion order
	planMx map[string]map[string]map[string]any // planDate -> rep -> metrics
	optCfg map[string]map[string]any            // rep -> config
}

func NewMemory() *Memory {
	return &Memory{
		plans:  map[string]model.Plan{},
		planMx: map[string]map[string]map[string]any{},
		optCfg: map[string]map[string]any{},
	}
}

func (m *Memory) SavePlan(ctx context.Context, p model.Plan) (model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if old, ok := m.plans[p.ID]; ok {
		p.CreatedAt = old.CreatedAt
	} else {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		m.order = append(m.order, p.ID)
	}
	p.UpdatedAt = now
	m.plans[p.ID] = p
	return p, nil
}

func (m *Memory) GetPlan(ctx context.Context, id string) (model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return model.Plan{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListPlans(ctx context.Context, planDate, cursor string, limit int) ([]model.Plan, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	start := 0
	if cursor != "" {
		for i, id := range m.order {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.Plan{}
	next := ""
	for _, id := range m.order[start:] {
		p := m.plans[id]
		if planDate != "" && p.PlanDate != planDate {
			continue
		}
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, p)
	}
	return out, next, nil
}

func (m *Memory) SavePlanMetrics(ctx context.Context, rep, planDate string, metrics map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.planMx[planDate] == nil {
		m.planMx[planDate] = map[string]map[string]any{}
	}
	item := make(map[string]any, len(metrics)+1)
	for k, v := range metrics {
		item[k] = v
	}
	item["rep"] = rep
	m.planMx[planDate][rep] = item
	return nil
}

func (m *Memory) ListPlanMetrics(ctx context.Context, planDate, rep string) ([]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []map[string]any{}
	for r, it := range m.planMx[planDate] {
		if rep == "" || r == rep {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *Memory) GetOptimizerConfig(ctx context.Context, rep string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.optCfg[rep]; ok {
		return cfg, nil
	}
	return nil, nil
}

func (m *Memory) SaveOptimizerConfig(ctx context.Context, rep string, cfg map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optCfg[rep] = cfg
	return nil
}
