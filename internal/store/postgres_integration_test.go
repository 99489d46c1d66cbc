//go:build postgres_integration

package store

import (
	"os"
	"testing"

	"salesroute/internal/model"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	defer p.Close()
	if err := p.Ping(t.Context()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := p.Migrate(t.Context()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	saved, err := p.SavePlan(t.Context(), model.Plan{Rep: "it", PlanDate: "2026-01-01", Status: model.PlanDone})
	if err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	got, err := p.GetPlan(t.Context(), saved.ID)
	if err != nil || got.Rep != "it" {
		t.Fatalf("GetPlan: %v %+v", err, got)
	}
	if err := p.SavePlanMetrics(t.Context(), "it", "2026-01-01", map[string]any{"rounds": 3}); err != nil {
		t.Fatalf("SavePlanMetrics: %v", err)
	}
	if ms, err := p.ListPlanMetrics(t.Context(), "2026-01-01", "it"); err != nil || len(ms) != 1 {
		t.Fatalf("ListPlanMetrics: %v %v", err, ms)
	}
}
