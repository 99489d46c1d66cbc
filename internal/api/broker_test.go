package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	pid := "p1"
	ch := b.Subscribe(pid)

	evt := Event{Type: "plan.progress", Data: map[string]any{"x": 1}}
	b.Publish(pid, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["x"].(int) != 1 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(pid, ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// second unsubscribe is a no-op
	b.Unsubscribe(pid, ch)
	// publishing with no subscribers must not block
	b.Publish(pid, evt)
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	b := NewRedisBrokerClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ch := b.Subscribe("p2")
	defer b.Unsubscribe("p2", ch)

	b.Publish("p2", Event{Type: "plan.done", Data: map[string]any{"planId": "p2"}})
	select {
	case got := <-ch:
		if got.Type != "plan.done" || got.Data["planId"] != "p2" {
			t.Fatalf("bad event: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}
}

func TestBrokerKeepsFinalEventForSlowReader(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("p3")
	for i := 0; i < 20; i++ {
		b.Publish("p3", Event{Type: "plan.progress", Data: map[string]any{"round": i}})
	}
	b.Publish("p3", Event{Type: "plan.done", Data: map[string]any{"planId": "p3"}})

	var last Event
	n := 0
	for len(ch) > 0 {
		last = <-ch
		n++
	}
	if n != cap(ch) {
		t.Fatalf("drained %d events, want %d", n, cap(ch))
	}
	if last.Type != "plan.done" {
		t.Fatalf("last event %s, want plan.done", last.Type)
	}
}

func TestRedisBrokerKeepsFinalEventForSlowReader(t *testing.T) {
	mr := miniredis.RunT(t)
	b := NewRedisBrokerClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ch := b.Subscribe("p4")
	defer b.Unsubscribe("p4", ch)

	for i := 0; i < 20; i++ {
		b.Publish("p4", Event{Type: "plan.progress", Data: map[string]any{"round": i}})
	}
	b.Publish("p4", Event{Type: "plan.failed", Data: map[string]any{"planId": "p4"}})
	time.Sleep(200 * time.Millisecond)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-ch:
			if got.Final() {
				return
			}
		case <-deadline:
			t.Fatal("plan.failed never reached the subscriber")
		}
	}
}
