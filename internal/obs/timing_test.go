package obs

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestTimeLogsRequestIDAndError(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	ctx := WithRequestID(context.Background(), "abc")
	if RequestID(ctx) != "abc" {
		t.Fatalf("request id: %q", RequestID(ctx))
	}
	err := errors.New("boom")
	Time(ctx, "matrix.fetch")(&err)
	out := buf.String()
	if !strings.Contains(out, "req_id=abc op=matrix.fetch") || !strings.Contains(out, "err=boom") {
		t.Fatalf("unexpected log: %s", out)
	}

	buf.Reset()
	var ok error
	Time(context.Background(), "solve")(&ok)
	if strings.Contains(buf.String(), "err=") {
		t.Fatalf("unexpected error field: %s", buf.String())
	}
}
