package opt

import "sync"

// In-process record of the last solve per rep and plan date. The API falls
// back to it when the store has no metrics row.

type key struct {
	Rep      string
	PlanDate string
}

var (
	mu    sync.Mutex
	store = map[key]Metrics{}
)

func RecordMetrics(rep, planDate string, m Metrics) {
	mu.Lock()
	store[key{Rep: rep, PlanDate: planDate}] = m
	mu.Unlock()
}

// GetMetrics returns the recorded metrics of every rep for planDate.
func GetMetrics(planDate string) map[string]Metrics {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]Metrics{}
	for k, v := range store {
		if k.PlanDate == planDate {
			out[k.Rep] = v
		}
	}
	return out
}
