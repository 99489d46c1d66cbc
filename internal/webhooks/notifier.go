// Package webhooks delivers signed plan notifications to an external URL.
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"salesroute/internal/config"
)

// Notifier POSTs events to URL, retrying non-2xx answers with exponential
// backoff. Bodies are signed with Secret in X-Signature when it is set.
type Notifier struct {
	URL         string
	Secret      string
	HTTP        *http.Client
	MaxAttempts int
	// Backoff is the delay before the second attempt; it doubles per attempt
	// and is capped at one minute.
	Backoff time.Duration
}

// NewNotifierFromEnv returns nil when PLAN_WEBHOOK_URL is unset.
func NewNotifierFromEnv() *Notifier {
	url := config.Env("PLAN_WEBHOOK_URL", "")
	if url == "" {
		return nil
	}
	return &Notifier{
		URL:         url,
		Secret:      config.Env("PLAN_WEBHOOK_SECRET", ""),
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: config.EnvInt("WEBHOOK_MAX_ATTEMPTS", 5),
		Backoff:     time.Second,
	}
}

// Notify delivers one event and blocks until it succeeds, attempts run out or
// ctx ends.
func (n *Notifier) Notify(ctx context.Context, eventType string, data any) error {
	body, err := json.Marshal(map[string]any{
		"id":   "evt_" + uuid.NewString(),
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	})
	if err != nil {
		return err
	}
	attempts := max(n.MaxAttempts, 1)
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook %s: %w (last: %v)", eventType, ctx.Err(), lastErr)
			case <-time.After(n.nextBackoff(i - 1)):
			}
		}
		code, err := n.post(ctx, eventType, body)
		if err == nil && code >= 200 && code < 300 {
			return nil
		}
		if err == nil {
			err = fmt.Errorf("status %d", code)
		}
		lastErr = err
		log.Printf("webhook type=%s attempt=%d err=%v", eventType, i+1, err)
	}
	return fmt.Errorf("webhook %s: gave up after %d attempts: %w", eventType, attempts, lastErr)
}

func (n *Notifier) post(ctx context.Context, eventType string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", eventType)
	if n.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(n.Secret, body))
	}
	client := n.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func (n *Notifier) nextBackoff(attempts int) time.Duration {
	base := n.Backoff
	if base <= 0 {
		base = time.Second
	}
	if attempts > 10 {
		attempts = 10
	}
	return min(base*time.Duration(1<<attempts), time.Minute)
}

// SignHMAC returns lowercase hex of HMAC-SHA256 for use in headers
func SignHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return fmt.Sprintf("%x", mac.Sum(nil))
}

// VerifyHMAC checks an HMAC-SHA256 signature over the raw body using the shared secret.
func VerifyHMAC(secret string, body []byte, provided string) bool {
	b, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), b)
}
