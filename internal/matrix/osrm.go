package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"salesroute/internal/metrics"
	"salesroute/internal/obs"
)

// OSRM fetches matrices from the table service of an OSRM server.
type OSRM struct {
	baseURL string
	profile string
	session *http.Client
	limiter *rate.Limiter
	backoff time.Duration
}

type OSRMOption func(*OSRM)

// WithHTTPClient overrides the default client (30s timeout).
func WithHTTPClient(c *http.Client) OSRMOption { return func(o *OSRM) { o.session = c } }

// WithRate paces requests to rps per second with the given burst.
func WithRate(rps float64, burst int) OSRMOption {
	return func(o *OSRM) { o.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithBackoff sets the initial retry delay.
func WithBackoff(d time.Duration) OSRMOption { return func(o *OSRM) { o.backoff = d } }

func NewOSRM(baseURL string, opts ...OSRMOption) *OSRM {
	o := &OSRM{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "driving",
		session: &http.Client{Timeout: 30 * time.Second},
		// The public demo server asks for at most one request per second.
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		backoff: 200 * time.Millisecond,
	}
	for _, fn := range opts {
		fn(o)
	}
	return o
}

type tableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func (o *OSRM) Matrices(ctx context.Context, pts []Point) (_ *Matrices, err error) {
	defer obs.Time(ctx, "matrix.osrm")(&err)
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.MatrixRequests.WithLabelValues("osrm", status).Inc()
	}()

	if len(pts) < 2 {
		return &Matrices{Meters: square(len(pts)), Minutes: square(len(pts)), Source: "osrm"}, nil
	}
	coords := make([]string, len(pts))
	for i, p := range pts {
		coords[i] = fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat)
	}
	endpoint := fmt.Sprintf("%s/table/v1/%s/%s?annotations=distance,duration", o.baseURL, o.profile, strings.Join(coords, ";"))

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("osrm table request failed: %w", err)
	}
	defer resp.Body.Close()

	var tr tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode osrm table: %w", err)
	}
	if tr.Code != "Ok" {
		return nil, fmt.Errorf("osrm error %s: %s", tr.Code, tr.Message)
	}

	n := len(pts)
	m := &Matrices{Meters: square(n), Minutes: square(n), Source: "osrm"}
	if len(tr.Distances) != n || len(tr.Durations) != n {
		return nil, fmt.Errorf("%w: osrm returned %d/%d rows for %d points", ErrBadMatrix, len(tr.Distances), len(tr.Durations), n)
	}
	for i := 0; i < n; i++ {
		if len(tr.Distances[i]) != n || len(tr.Durations[i]) != n {
			return nil, fmt.Errorf("%w: osrm row %d has wrong length", ErrBadMatrix, i)
		}
		for j := 0; j < n; j++ {
			d, s := tr.Distances[i][j], tr.Durations[i][j]
			if d == nil || s == nil {
				return nil, fmt.Errorf("%w: no route between points %d and %d", ErrBadMatrix, i, j)
			}
			if i == j {
				continue
			}
			m.Meters[i][j] = *d
			m.Minutes[i][j] = *s / 60
		}
	}
	return m, nil
}

func (o *OSRM) do(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429 and 5xx
// responses) with exponential backoff while respecting ctx.
func (o *OSRM) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	const maxAttempts = 4
	backoff := o.backoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := o.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}
		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}
		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}
