package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"salesroute/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS plans (
  id          uuid PRIMARY KEY,
  rep         text NOT NULL DEFAULT '',
  plan_date   text NOT NULL DEFAULT '',
  status      text NOT NULL,
  failure     text,
  body        jsonb NOT NULL,
  created_at  timestamptz NOT NULL DEFAULT now(),
  updated_at  timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS plans_plan_date_idx ON plans (plan_date);
CREATE TABLE IF NOT EXISTS plan_metrics (
  id          uuid PRIMARY KEY,
  rep         text NOT NULL,
  plan_date   text NOT NULL,
  metrics     jsonb NOT NULL,
  created_at  timestamptz NOT NULL DEFAULT now(),
  UNIQUE (rep, plan_date)
);
CREATE TABLE IF NOT EXISTS optimizer_config (
  rep         text PRIMARY KEY,
  config      jsonb NOT NULL,
  updated_at  timestamptz NOT NULL DEFAULT now()
);`

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) SavePlan(ctx context.Context, pl model.Plan) (model.Plan, error) {
	now := time.Now().UTC()
	if pl.ID == "" {
		pl.ID = uuid.New().String()
	}
	if pl.CreatedAt.IsZero() {
		pl.CreatedAt = now
	}
	pl.UpdatedAt = now
	body, err := json.Marshal(pl)
	if err != nil {
		return model.Plan{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO plans (id, rep, plan_date, status, failure, body, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (id) DO UPDATE SET status=$4, failure=$5, body=$6, updated_at=$8`,
		pl.ID, pl.Rep, pl.PlanDate, pl.Status, nullIfEmpty(pl.Failure), body, pl.CreatedAt, pl.UpdatedAt)
	if err != nil {
		return model.Plan{}, err
	}
	return pl, nil
}

func (p *Postgres) GetPlan(ctx context.Context, id string) (model.Plan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Plan{}, ErrNotFound
	}
	var body []byte
	err := p.db.QueryRowContext(ctx, `SELECT body FROM plans WHERE id=$1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Plan{}, ErrNotFound
	}
	if err != nil {
		return model.Plan{}, err
	}
	return decodePlan(body)
}

func (p *Postgres) ListPlans(ctx context.Context, planDate, cursor string, limit int) ([]model.Plan, string, error) {
	limit = clampLimit(limit)
	q, args := listPlansQuery(planDate, cursor, limit)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Plan{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, "", err
		}
		pl, err := decodePlan(body)
		if err != nil {
			return nil, "", err
		}
		out = append(out, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	var next string
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, nil
}

// listPlansQuery fetches one row past limit so the caller can tell whether a
// next page exists. The cursor is the last id of the previous page.
func listPlansQuery(planDate, cursor string, limit int) (string, []any) {
	q := `SELECT body FROM plans WHERE true`
	args := []any{}
	if planDate != "" {
		args = append(args, planDate)
		q += fmt.Sprintf(` AND plan_date=$%d`, len(args))
	}
	if cursor != "" {
		args = append(args, cursor)
		q += fmt.Sprintf(` AND id::text > $%d`, len(args))
	}
	args = append(args, limit+1)
	q += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args))
	return q, args
}

func decodePlan(body []byte) (model.Plan, error) {
	var pl model.Plan
	if err := json.Unmarshal(body, &pl); err != nil {
		return model.Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	return pl, nil
}

func (p *Postgres) SavePlanMetrics(ctx context.Context, rep, planDate string, metrics map[string]any) error {
	js, err := json.Marshal(metrics)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO plan_metrics (id, rep, plan_date, metrics) VALUES ($1,$2,$3,$4)
        ON CONFLICT (rep, plan_date) DO UPDATE SET metrics=$4, created_at=now()`,
		uuid.New().String(), rep, planDate, js)
	return err
}

func (p *Postgres) ListPlanMetrics(ctx context.Context, planDate, rep string) ([]map[string]any, error) {
	base := `SELECT rep, metrics FROM plan_metrics WHERE plan_date=$1`
	args := []any{planDate}
	if rep != "" {
		base += ` AND rep=$2`
		args = append(args, rep)
	}
	rows, err := p.db.QueryContext(ctx, base+` ORDER BY rep`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []map[string]any{}
	for rows.Next() {
		var r string
		var js []byte
		if err := rows.Scan(&r, &js); err != nil {
			return nil, err
		}
		item := map[string]any{}
		if err := json.Unmarshal(js, &item); err != nil {
			return nil, err
		}
		item["rep"] = r
		out = append(out, item)
	}
	return out, rows.Err()
}

func (p *Postgres) GetOptimizerConfig(ctx context.Context, rep string) (map[string]any, error) {
	row := p.db.QueryRowContext(ctx, `SELECT config FROM optimizer_config WHERE rep=$1`, rep)
	var js []byte
	if err := row.Scan(&js); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(js, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Postgres) SaveOptimizerConfig(ctx context.Context, rep string, cfg map[string]any) error {
	js, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO optimizer_config (rep, config, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (rep) DO UPDATE SET config=$2, updated_at=now()`, rep, js)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
