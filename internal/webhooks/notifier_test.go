package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNotifyRetriesAndSigns(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !VerifyHMAC("s3cret", body, r.Header.Get("X-Signature")) {
			t.Errorf("bad signature %q", r.Header.Get("X-Signature"))
		}
		if r.Header.Get("X-Event-Type") != "plan.done" {
			t.Errorf("event type %q", r.Header.Get("X-Event-Type"))
		}
		var evt map[string]any
		_ = json.Unmarshal(body, &evt)
		if evt["type"] != "plan.done" {
			t.Errorf("payload %v", evt)
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := &Notifier{URL: srv.URL, Secret: "s3cret", MaxAttempts: 5, Backoff: time.Millisecond}
	if err := n.Notify(context.Background(), "plan.done", map[string]any{"planId": "p1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls: got %d want 3", got)
	}
}

func TestNotifyGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := &Notifier{URL: srv.URL, MaxAttempts: 2, Backoff: time.Millisecond}
	if err := n.Notify(context.Background(), "plan.failed", nil); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 2 {
		t.Fatalf("calls: %d", calls.Load())
	}
}

func TestBackoffCapped(t *testing.T) {
	n := &Notifier{Backoff: time.Second}
	if d := n.nextBackoff(0); d != time.Second {
		t.Fatalf("first backoff %v", d)
	}
	if d := n.nextBackoff(3); d != 8*time.Second {
		t.Fatalf("fourth backoff %v", d)
	}
	if d := n.nextBackoff(20); d != time.Minute {
		t.Fatalf("cap %v", d)
	}
}

func TestVerifyHMAC(t *testing.T) {
	sig := SignHMAC("k", []byte("body"))
	if !VerifyHMAC("k", []byte("body"), sig) || VerifyHMAC("k", []byte("other"), sig) || VerifyHMAC("k", []byte("body"), "zz") {
		t.Fatal("hmac verify mismatch")
	}
}

func TestNewNotifierFromEnv(t *testing.T) {
	t.Setenv("PLAN_WEBHOOK_URL", "")
	if NewNotifierFromEnv() != nil {
		t.Fatal("expected nil without URL")
	}
	t.Setenv("PLAN_WEBHOOK_URL", "http://example.invalid/hook")
	t.Setenv("WEBHOOK_MAX_ATTEMPTS", "3")
	if n := NewNotifierFromEnv(); n == nil || n.MaxAttempts != 3 {
		t.Fatalf("notifier: %+v", n)
	}
}
