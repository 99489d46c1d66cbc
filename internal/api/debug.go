package api

import (
	"net/http"
	"os"
	"time"

	"salesroute/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build":  buildinfo.Info(),
		"system": buildinfo.System(),
		"time":   time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":             os.Getenv("PORT"),
			"AUTH_MODE":        os.Getenv("AUTH_MODE"),
			"RATE_RPS":         os.Getenv("RATE_RPS"),
			"RATE_BURST":       os.Getenv("RATE_BURST"),
			"OSRM_URL":         os.Getenv("OSRM_URL"),
			"MATRIX_SOURCE":    os.Getenv("MATRIX_SOURCE"),
			"SOLVE_TIME_LIMIT": os.Getenv("SOLVE_TIME_LIMIT"),
			"SOLVE_WORKERS":    os.Getenv("SOLVE_WORKERS"),
			"HAS_DATABASE_URL": os.Getenv("DATABASE_URL") != "",
			"HAS_REDIS_URL":    os.Getenv("REDIS_URL") != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
