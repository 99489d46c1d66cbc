package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"salesroute/internal/opt"
	"salesroute/internal/plan"
	"salesroute/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError maps planning and store errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := statusOf(err)
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   err.Error(),
		Instance: r.URL.Path,
		Kind:     plan.Kind(err),
	})
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, plan.ErrMatrix):
		return http.StatusBadGateway, "Matrix provider failed"
	case errors.Is(err, opt.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid optimize request"
	case errors.Is(err, opt.ErrNoFeasibleInsertion):
		return http.StatusUnprocessableEntity, "No feasible route"
	case errors.Is(err, opt.ErrTimedOutWithoutSolution):
		return http.StatusGatewayTimeout, "Time limit reached without a route"
	}
	return http.StatusInternalServerError, "Internal error"
}
