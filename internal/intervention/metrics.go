package intervention

import (
	"sort"
	"sync"
)

// Metrics counts provider calls keyed by provider, mode, and outcome.
// It backs the JSON metrics endpoint; the structured llm_call log is
// emitted regardless of whether counting is enabled.
type Metrics struct {
	mu       sync.Mutex
	enabled  bool
	counters map[metricKey]int64
}

type metricKey struct {
	Provider string
	Mode     string
	Outcome  string
}

// NewMetrics creates a counter set. A disabled set accepts observations
// and discards them.
func NewMetrics(enabled bool) *Metrics {
	return &Metrics{
		enabled:  enabled,
		counters: make(map[metricKey]int64),
	}
}

// Enabled reports whether observations are being counted.
func (m *Metrics) Enabled() bool { return m.enabled }

// Observe records one call outcome. Outcome is "success" or the error
// code of the failure.
func (m *Metrics) Observe(provider, mode, outcome string) {
	if !m.enabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metricKey{Provider: provider, Mode: mode, Outcome: outcome}]++
}

// CounterSnapshot is one counter in a snapshot.
type CounterSnapshot struct {
	Provider string `json:"provider"`
	Mode     string `json:"mode"`
	Outcome  string `json:"outcome"`
	Count    int64  `json:"count"`
}

// Snapshot returns the current counters in a stable order.
func (m *Metrics) Snapshot() []CounterSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]CounterSnapshot, 0, len(m.counters))
	for key, count := range m.counters {
		result = append(result, CounterSnapshot{
			Provider: key.Provider,
			Mode:     key.Mode,
			Outcome:  key.Outcome,
			Count:    count,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		if a.Mode != b.Mode {
			return a.Mode < b.Mode
		}
		return a.Outcome < b.Outcome
	})
	return result
}
