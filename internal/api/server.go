package api

import (
	"context"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"salesroute/internal/auth"
	"salesroute/internal/config"
	"salesroute/internal/matrix"
	"salesroute/internal/opt"
	"salesroute/internal/plan"
	"salesroute/internal/store"
	"salesroute/internal/webhooks"
)

type Server struct {
	Store   store.Store
	Planner *plan.Planner
	Auth    *auth.Verifier
	Broker  EventBroker
	// Limiter throttles POST /v1/optimize; nil means unlimited.
	Limiter *rate.Limiter
	// Hooks, when set, receives plan.done and plan.failed notifications.
	Hooks *webhooks.Notifier

	jobs sync.WaitGroup
}

// NewServer creates a Server from the environment. If DATABASE_URL is unset,
// uses the in-memory store; if REDIS_URL is set, events go over Redis and
// matrices are cached there.
func NewServer() (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := sp.Migrate(ctx)
			cancel()
			if err != nil {
				return nil, err
			}
		}
		s = sp
	}

	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			log.Printf("redis broker unavailable, using in-memory: %v", err)
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	srv := &Server{
		Store:   s,
		Planner: &plan.Planner{Matrices: providerFromEnv(), Defaults: defaultsFromEnv()},
		Auth:    auth.NewVerifierFromEnv(),
		Broker:  broker,
		Hooks:   webhooks.NewNotifierFromEnv(),
	}
	if rps := config.EnvFloat("RATE_RPS", 0); rps > 0 {
		srv.Limiter = rate.NewLimiter(rate.Limit(rps), config.EnvInt("RATE_BURST", 1))
	}
	return srv, nil
}

// providerFromEnv builds OSRM with an estimate fallback, optionally behind a
// Redis cache. MATRIX_SOURCE=estimate skips the network entirely.
func providerFromEnv() matrix.Provider {
	var p matrix.Provider = matrix.Estimator{SpeedKmh: config.EnvFloat("ESTIMATE_SPEED_KMH", 0)}
	if config.Env("MATRIX_SOURCE", "osrm") != "estimate" {
		osrm := matrix.NewOSRM(config.Env("OSRM_URL", config.DefaultOSRMServer),
			matrix.WithRate(config.EnvFloat("OSRM_RPS", 1), config.EnvInt("OSRM_BURST", 1)))
		p = matrix.Fallback{Primary: osrm, Secondary: p}
	}
	if os.Getenv("REDIS_URL") != "" {
		c, err := matrix.NewRedisCacheFromEnv(p, config.EnvDuration("MATRIX_CACHE_TTL", 24*time.Hour))
		if err != nil {
			log.Printf("matrix cache disabled: %v", err)
			return p
		}
		return c
	}
	return p
}

func defaultsFromEnv() opt.Options {
	return opt.Options{
		TimeLimit: config.EnvDuration("SOLVE_TIME_LIMIT", opt.DefaultTimeLimit),
		Workers:   config.EnvInt("SOLVE_WORKERS", 1),
		Seed:      int64(config.EnvInt("SOLVE_SEED", 0)),
	}
}

// Wait blocks until background optimizations and webhook deliveries finish.
func (s *Server) Wait() { s.jobs.Wait() }
