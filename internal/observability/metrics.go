package observability

import "sync"

// Metrics provides basic in-memory counters for the console's loops.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

// Counter names.
const (
	CounterPollApplied       = "poll_applied"
	CounterPollUnchanged     = "poll_unchanged"
	CounterPollSkipped       = "poll_skipped"
	CounterPollFailed        = "poll_failed"
	CounterBulkSucceeded     = "bulk_succeeded"
	CounterBulkFailed        = "bulk_failed"
	CounterBulkSkipped       = "bulk_skipped"
	CounterWorkspaceOpened   = "workspace_opened"
	CounterWorkspaceFallback = "workspace_fallback"
)

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{counters: make(map[string]int64)}
}

// Inc increments a named counter.
func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

// Add increments a named counter by delta.
func (m *Metrics) Add(name string, delta int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += delta
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counters))
	for name, value := range m.counters {
		out[name] = value
	}
	return out
}
