package api

import (
	"fmt"
	"strings"

	"salesroute/internal/model"
	"salesroute/internal/opt"
)

const maxWorkers = 64

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if req.TimeLimitMs < 0 {
		return &opt.ValidationError{Field: "timeLimitMs", Reason: "must be >= 0"}
	}
	if req.Workers < 0 || req.Workers > maxWorkers {
		return &opt.ValidationError{Field: "workers", Reason: fmt.Sprintf("must be in [0,%d]", maxWorkers)}
	}
	if req.MaxRounds < 0 {
		return &opt.ValidationError{Field: "maxRounds", Reason: "must be >= 0"}
	}
	switch {
	case req.Problem != nil && req.Rep != nil:
		return &opt.ValidationError{Field: "request", Reason: "problem and rep are mutually exclusive"}
	case req.Problem != nil:
		// matrices and windows are checked by the optimizer itself
		return nil
	case req.Rep == nil:
		return &opt.ValidationError{Field: "request", Reason: "either problem or rep with clients is required"}
	}
	if strings.TrimSpace(req.Rep.Name) == "" {
		return &opt.ValidationError{Field: "rep.name", Reason: "required"}
	}
	if req.Rep.MaxDistanceKm <= 0 {
		return &opt.ValidationError{Field: "rep.maxDistanceKm", Reason: "must be positive"}
	}
	if err := checkCoord("rep.startLocation", req.Rep.StartLocation.Lat, req.Rep.StartLocation.Lng); err != nil {
		return err
	}
	if len(req.Clients) == 0 {
		return &opt.ValidationError{Field: "clients", Reason: "at least one client is required"}
	}
	seen := make(map[string]struct{}, len(req.Clients))
	for i, c := range req.Clients {
		field := fmt.Sprintf("clients[%d]", i)
		if c.ID == "" {
			return &opt.ValidationError{Field: field + ".id", Reason: "required"}
		}
		if _, dup := seen[c.ID]; dup {
			return &opt.ValidationError{Field: field + ".id", Reason: "duplicate id " + c.ID}
		}
		seen[c.ID] = struct{}{}
		if err := checkCoord(field, c.Lat, c.Lng); err != nil {
			return err
		}
		if c.ServiceMinutes < 0 {
			return &opt.ValidationError{Field: field + ".serviceMinutes", Reason: "must be >= 0"}
		}
	}
	return nil
}

func checkCoord(field string, lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return &opt.ValidationError{Field: field, Reason: fmt.Sprintf("coordinate (%g, %g) out of range", lat, lng)}
	}
	return nil
}
