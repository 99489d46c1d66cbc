package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"salesroute/internal/model"
	"salesroute/internal/obs"
	"salesroute/internal/opt"
	"salesroute/internal/plan"
)

// asyncGrace is added to the solve budget of background jobs to cover
// matrix fetching and persistence.
const asyncGrace = 30 * time.Second

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/optimize" {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !(p.IsAdmin() || p.Role == "rep") {
		writeProblem(w, 403, "Forbidden", "rep or admin required", r.URL.Path)
		return
	}
	if s.Limiter != nil && !s.Limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "optimize rate limit exceeded", r.URL.Path)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}
	if !p.IsAdmin() && req.Rep != nil && p.Rep != "" && p.Rep != req.Rep.Name {
		writeProblem(w, 403, "Forbidden", "reps may only plan their own day", r.URL.Path)
		return
	}
	repName := p.Rep
	if req.Rep != nil {
		repName = req.Rep.Name
	}
	cfg, err := s.Store.GetOptimizerConfig(r.Context(), repName)
	if err != nil {
		log.Printf("req_id=%s rep=%s load optimizer config, using defaults: %v", obs.RequestID(r.Context()), repName, err)
	}
	applyConfig(&req, cfg)

	// Persist a running plan first so its id can be streamed right away.
	pl, err := s.Store.SavePlan(r.Context(), model.Plan{Rep: repName, PlanDate: req.PlanDate, Status: model.PlanRunning})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save plan failed", err.Error(), r.URL.Path)
		return
	}

	if async := r.URL.Query().Get("async"); strings.EqualFold(async, "true") || async == "1" {
		budget := s.Planner.Options(r.Context(), req).TimeLimit
		if budget <= 0 {
			budget = opt.DefaultTimeLimit
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), budget+asyncGrace)
		s.jobs.Add(1)
		go func() {
			defer s.jobs.Done()
			defer cancel()
			if _, err := s.runPlan(ctx, pl, req); err != nil {
				log.Printf("req_id=%s plan=%s async solve failed: %v", obs.RequestID(ctx), pl.ID, err)
			}
		}()
		w.Header().Set("Location", "/v1/plans/"+pl.ID)
		writeJSON(w, http.StatusAccepted, map[string]string{"id": pl.ID, "status": pl.Status})
		return
	}

	out, err := s.runPlan(r.Context(), pl, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// runPlan solves req under the id of pl, persists the outcome and publishes
// progress. It returns the stored plan and the solve or store error.
func (s *Server) runPlan(ctx context.Context, pl model.Plan, req model.OptimizeRequest) (model.Plan, error) {
	observer := func(pr opt.Progress) {
		s.Broker.Publish(pl.ID, Event{Type: "plan.progress", Data: map[string]any{
			"planId":       pl.ID,
			"worker":       pr.Worker,
			"state":        pr.State.String(),
			"round":        pr.Round,
			"bestDistance": pr.BestDistance,
			"elapsedMs":    pr.Elapsed.Milliseconds(),
		}})
	}
	res, solveErr := s.Planner.Plan(ctx, req, observer)
	out := *res.Plan
	out.ID, out.CreatedAt = pl.ID, pl.CreatedAt
	if out.Rep == "" {
		out.Rep = pl.Rep
	}

	// Store writes must not be cut short by an expired solve deadline.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	saved, err := s.Store.SavePlan(sctx, out)
	if err != nil {
		return out, fmt.Errorf("save plan %s: %w", pl.ID, err)
	}
	if req.PlanDate != "" && len(res.Metrics.States) > 0 {
		if err := s.Store.SavePlanMetrics(sctx, out.Rep, req.PlanDate, plan.MetricsMap(res.Metrics)); err != nil {
			log.Printf("plan=%s save metrics: %v", pl.ID, err)
		}
	}

	evt := Event{Type: "plan.done", Data: map[string]any{"planId": saved.ID, "status": saved.Status}}
	if solveErr != nil {
		evt.Type = "plan.failed"
		evt.Data["failure"] = saved.Failure
		evt.Data["error"] = saved.Error
	} else {
		evt.Data["totalDistance"] = saved.Solution.TotalDistance
		evt.Data["solutionStatus"] = saved.Solution.Status
	}
	s.Broker.Publish(saved.ID, evt)
	if s.Hooks != nil {
		s.jobs.Add(1)
		go func() {
			defer s.jobs.Done()
			hctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := s.Hooks.Notify(hctx, evt.Type, evt.Data); err != nil {
				log.Printf("plan=%s %v", saved.ID, err)
			}
		}()
	}
	return saved, solveErr
}

// applyConfig fills request options left unset from a rep's stored optimizer
// config.
func applyConfig(req *model.OptimizeRequest, cfg map[string]any) {
	num := func(k string) (float64, bool) {
		f, ok := cfg[k].(float64)
		return f, ok && f > 0
	}
	if f, ok := num("timeLimitMs"); ok && req.TimeLimitMs == 0 {
		req.TimeLimitMs = int(f)
	}
	if f, ok := num("workers"); ok && req.Workers == 0 {
		req.Workers = min(int(f), maxWorkers)
	}
	if f, ok := num("seed"); ok && req.Seed == 0 {
		req.Seed = int64(f)
	}
	if f, ok := num("maxRounds"); ok && req.MaxRounds == 0 {
		req.MaxRounds = int(f)
	}
	if f, ok := num("maxWaitMinutes"); ok && req.MaxWait == 0 {
		req.MaxWait = f
	}
}

// PlansHandler handles GET /v1/plans
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/plans" {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	planDate := r.URL.Query().Get("planDate")
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListPlans(r.Context(), planDate, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List plans failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// PlanByIDHandler handles GET /v1/plans/{id}, /v1/plans/{id}/events/stream (SSE)
// and /v1/plans/{id}/events/ws
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.TrimPrefix(path, "/v1/plans/")
	if rest == path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	switch {
	case len(parts) == 1:
		pl, err := s.Store.GetPlan(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pl)
	case len(parts) == 3 && parts[1] == "events" && parts[2] == "stream":
		s.planEventsSSE(w, r, id)
	case len(parts) == 3 && parts[1] == "events" && parts[2] == "ws":
		s.planEventsWS(w, r, id)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
	}
}

func terminal(status string) bool {
	return status == model.PlanDone || status == model.PlanFailed
}

func snapshot(pl model.Plan) Event {
	return Event{Type: "plan.snapshot", Data: map[string]any{"planId": pl.ID, "status": pl.Status, "failure": pl.Failure}}
}

func (s *Server) planEventsSSE(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path)
		return
	}
	// subscribe before reading the plan so no terminal event slips in between
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	pl, err := s.Store.GetPlan(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func(evt Event) {
		b, _ := json.Marshal(evt.Data)
		fmt.Fprintf(w, "event: %s\n", evt.Type)
		fmt.Fprintf(w, "data: %s\n\n", string(b))
		flusher.Flush()
	}
	send(snapshot(pl))
	if terminal(pl.Status) {
		return
	}
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			send(evt)
			if evt.Final() {
				return
			}
		case <-heartbeat.C:
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"planId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

func (s *Server) planEventsWS(w http.ResponseWriter, r *http.Request, id string) {
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	pl, err := s.Store.GetPlan(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })
	// drain client frames so control messages are processed; any error ends the stream
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	bye := func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "plan finished")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
	if err := conn.WriteJSON(snapshot(pl)); err != nil {
		return
	}
	if terminal(pl.Status) {
		bye()
		return
	}
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if evt.Final() {
				bye()
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// OptimizerConfigHandler returns the optimizer defaults merged with the
// caller's stored config.
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/optimizer/config" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	d := s.Planner.Defaults
	defaults := map[string]any{
		"timeLimitMs":    d.TimeLimit.Milliseconds(),
		"workers":        max(d.Workers, 1),
		"seed":           d.Seed,
		"maxRounds":      d.MaxRounds,
		"maxWaitMinutes": float64(opt.DefaultMaxWait),
		"lambda":         opt.DefaultLambda,
	}
	p := s.getPrincipal(r)
	rep := p.Rep
	if v := r.URL.Query().Get("rep"); v != "" && p.IsAdmin() {
		rep = v
	}
	cfg, err := s.Store.GetOptimizerConfig(r.Context(), rep)
	if err != nil {
		log.Printf("req_id=%s rep=%s load optimizer config, using defaults: %v", obs.RequestID(r.Context()), rep, err)
	}
	for k, v := range cfg {
		defaults[k] = v
	}
	writeJSON(w, 200, map[string]any{"rep": rep, "defaults": defaults})
}

// AdminOptimizerConfigHandler gets or replaces a rep's stored optimizer config.
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/optimizer/config" {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	rep := r.URL.Query().Get("rep")
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.Store.GetOptimizerConfig(r.Context(), rep)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Load config failed", err.Error(), r.URL.Path)
			return
		}
		if cfg == nil {
			cfg = map[string]any{}
		}
		writeJSON(w, 200, map[string]any{"rep": rep, "config": cfg})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, 400, "Missing config", "", r.URL.Path)
			return
		}
		if err := s.Store.SaveOptimizerConfig(r.Context(), rep, body.Config); err != nil {
			writeProblem(w, 500, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// PlanMetricsHandler lists solver metrics for a plan date, one item per rep.
func (s *Server) PlanMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/plan-metrics" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	planDate := r.URL.Query().Get("planDate")
	if planDate == "" {
		writeProblem(w, 400, "Missing planDate", "", r.URL.Path)
		return
	}
	rep := r.URL.Query().Get("rep")
	// Prefer stored metrics; fall back to this process's in-memory record
	items, err := s.Store.ListPlanMetrics(r.Context(), planDate, rep)
	if err != nil || len(items) == 0 {
		items = []map[string]any{}
		for name, m := range opt.GetMetrics(planDate) {
			if rep != "" && name != rep {
				continue
			}
			it := plan.MetricsMap(m)
			it["rep"] = name
			items = append(items, it)
		}
	}
	writeJSON(w, 200, map[string]any{"items": items})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB and Redis connectivity when configured
	type pinger interface {
		Ping(ctx context.Context) error
	}
	for _, dep := range []any{s.Store, s.Broker, s.Planner.Matrices} {
		pg, ok := dep.(pinger)
		if !ok {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		err := pg.Ping(ctx)
		cancel()
		if err != nil {
			writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
