package api

import (
	"sync"
)

// Event is a plan lifecycle notification streamed to subscribers.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type EventBroker interface {
	Subscribe(planID string) chan Event
	Unsubscribe(planID string, ch chan Event)
	Publish(planID string, evt Event)
}

// Broker fans events out in process. Slow subscribers drop progress events;
// a final event evicts the oldest queued one instead of being lost.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // planId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(planID string) chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	if b.subs[planID] == nil {
		b.subs[planID] = map[chan Event]struct{}{}
	}
	b.subs[planID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(planID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[planID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, planID)
	}
	close(ch)
}

func (b *Broker) Publish(planID string, evt Event) {
	b.mu.Lock()
	for ch := range b.subs[planID] {
		deliver(ch, evt)
	}
	b.mu.Unlock()
}

// Final reports whether evt ends a plan's event stream.
func (evt Event) Final() bool {
	return evt.Type == "plan.done" || evt.Type == "plan.failed"
}

// deliver sends without blocking. The caller holds the lock that guards
// closing ch, so ch stays open and has no other sender.
func deliver(ch chan Event, evt Event) {
	select {
	case ch <- evt:
		return
	default:
	}
	if !evt.Final() {
		return
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- evt:
	default:
	}
}
